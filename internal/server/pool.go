package server

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netchess/netchess/internal/player"
	"github.com/netchess/netchess/internal/protocol"
)

const reapInterval = 2 * time.Second

// Pool tracks every open connection. Anonymous connections carry
// their accept time and must authenticate before the login deadline;
// authenticated ones map to their player.
type Pool struct {
	mu            sync.Mutex
	anonymous     map[*Connection]time.Time
	authenticated map[*Connection]*player.Player
	loginDeadline time.Duration
	log           *logrus.Entry

	now func() time.Time
}

// NewPool returns a pool enforcing the given login deadline on
// anonymous connections.
func NewPool(loginDeadline time.Duration) *Pool {
	return &Pool{
		anonymous:     make(map[*Connection]time.Time),
		authenticated: make(map[*Connection]*player.Player),
		loginDeadline: loginDeadline,
		log:           logrus.WithField("component", "pool"),
		now:           time.Now,
	}
}

// Add registers a fresh connection as anonymous.
func (p *Pool) Add(c *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.anonymous[c] = p.now()
}

// Promote moves an anonymous connection to the authenticated set.
func (p *Pool) Promote(c *Connection, pl *player.Player) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.anonymous, c)
	p.authenticated[c] = pl
}

// PlayerOf returns the player behind an authenticated connection, or
// nil while the connection is anonymous.
func (p *Pool) PlayerOf(c *Connection) *player.Player {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authenticated[c]
}

// Remove drops the connection and returns its player, if any.
func (p *Pool) Remove(c *Connection) *player.Player {
	p.mu.Lock()
	defer p.mu.Unlock()
	pl := p.authenticated[c]
	delete(p.anonymous, c)
	delete(p.authenticated, c)
	return pl
}

// MonitorUnauthenticated closes anonymous connections that outstay
// the login deadline. Runs until the context is cancelled.
func (p *Pool) MonitorUnauthenticated(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.reapExpired()
		}
	}
}

func (p *Pool) reapExpired() {
	p.mu.Lock()
	var expired []*Connection
	now := p.now()
	for c, acceptedAt := range p.anonymous {
		if now.Sub(acceptedAt) > p.loginDeadline {
			expired = append(expired, c)
			delete(p.anonymous, c)
		}
	}
	p.mu.Unlock()

	for _, c := range expired {
		p.log.WithField("connection", c.ID).Debug("login deadline exceeded")
		c.CloseWithReason(protocol.CloseCodeLoginTimeout, protocol.CloseReasonLoginTimeExceed)
	}
}
