package game

import (
	"sync"
	"time"

	"github.com/netchess/netchess/internal/chess"
)

// Clock is the per-game chess clock. Exactly one side is current at a
// time; the first mover's first segment uses the fixed grace period
// instead of its stored total. When a side's time runs out the expiry
// callback fires once with that side.
type Clock struct {
	mu        sync.Mutex
	remaining map[chess.Team]time.Duration
	current   chess.Team
	moveStart time.Time
	firstMove bool
	stopped   bool
	timer     *time.Timer
	onExpire  func(chess.Team)

	now func() time.Time // test hook
}

// NewClock starts a clock with the given per-team budget. White is
// current and the grace timer is armed immediately.
func NewClock(total time.Duration, onExpire func(chess.Team)) *Clock {
	c := &Clock{
		remaining: map[chess.Team]time.Duration{chess.White: total, chess.Black: total},
		current:   chess.White,
		firstMove: true,
		onExpire:  onExpire,
		now:       time.Now,
	}
	c.moveStart = c.now()
	c.schedule(FirstMoveGrace)
	return c
}

// Next transitions the clock after a move: it cancels the running
// expiry timer, charges the elapsed time to the side that just moved
// (except on the first move), flips the current side and arms a timer
// for its remaining time. It returns the mover's remaining time.
func (c *Clock) Next() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return 0
	}
	c.timer.Stop()

	now := c.now()
	if c.firstMove {
		c.firstMove = false
	} else {
		c.remaining[c.current] -= now.Sub(c.moveStart)
	}
	left := c.remaining[c.current]

	c.current = c.current.Other()
	c.moveStart = now
	c.schedule(c.remaining[c.current])
	return left
}

// Stop cancels the expiry timer. It is idempotent and suppresses any
// expiry that has not fired yet.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Current returns the side whose clock is running.
func (c *Clock) Current() chess.Team {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Remaining returns the stored time of the team.
func (c *Clock) Remaining(t chess.Team) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining[t]
}

func (c *Clock) schedule(d time.Duration) {
	team := c.current
	c.timer = time.AfterFunc(d, func() {
		c.expire(team)
	})
}

func (c *Clock) expire(team chess.Team) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	onExpire := c.onExpire
	c.mu.Unlock()

	if onExpire != nil {
		onExpire(team)
	}
}
