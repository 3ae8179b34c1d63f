package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/netchess/netchess/internal/auth"
	"github.com/netchess/netchess/internal/room"
)

const shutdownGrace = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The protocol authenticates inside the socket; the handshake
	// itself is open.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Server accepts WebSocket clients and runs the background loops:
// the anonymous-connection reaper and the matchmaking sweep.
type Server struct {
	addr          string
	sweepInterval time.Duration
	pool          *Pool
	broker        *Broker
	rooms         *room.Service
	log           *logrus.Entry
}

// New returns a server listening on addr.
func New(addr string, loginDeadline, sweepInterval time.Duration, authSvc *auth.Service, rooms *room.Service) *Server {
	pool := NewPool(loginDeadline)
	return &Server{
		addr:          addr,
		sweepInterval: sweepInterval,
		pool:          pool,
		broker:        NewBroker(pool, authSvc, rooms),
		rooms:         rooms,
		log:           logrus.WithField("component", "server"),
	}
}

// Run serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)

	httpServer := &http.Server{Addr: s.addr, Handler: mux}

	go s.pool.MonitorUnauthenticated(ctx)
	go s.rooms.Run(ctx, s.sweepInterval)

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.addr).Info("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// handleWebSocket upgrades the request and pumps inbound frames until
// the socket closes, then runs the disconnect path.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("upgrade failed")
		return
	}

	c := newConnection(ws)
	s.pool.Add(c)
	s.log.WithField("connection", c.ID).Debug("connection accepted")

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}
		s.broker.Handle(c, raw)
	}

	c.terminate()
	if p := s.pool.Remove(c); p != nil {
		s.rooms.Disconnect(p)
		s.log.WithField("nick", p.Nick).Info("player disconnected")
	} else {
		s.log.WithField("connection", c.ID).Debug("connection closed")
	}
}
