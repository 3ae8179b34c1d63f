package server

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/netchess/netchess/internal/auth"
	"github.com/netchess/netchess/internal/player"
	"github.com/netchess/netchess/internal/protocol"
	"github.com/netchess/netchess/internal/room"
)

// Broker routes inbound frames. Anonymous connections may only sign
// up or sign in; everything else, and every malformed frame, closes
// the connection with an invalid-request reason.
type Broker struct {
	pool  *Pool
	auth  *auth.Service
	rooms *room.Service
	log   *logrus.Entry

	handlers map[int]func(raw []byte, sender *player.Player) error
}

// NewBroker wires the broker to the pool and both services.
func NewBroker(pool *Pool, authSvc *auth.Service, rooms *room.Service) *Broker {
	b := &Broker{
		pool:  pool,
		auth:  authSvc,
		rooms: rooms,
		log:   logrus.WithField("component", "broker"),
	}
	b.handlers = map[int]func([]byte, *player.Player) error{
		protocol.CodeJoinRankedQueue:     rooms.JoinRankedQueue,
		protocol.CodeCancelJoiningRanked: rooms.CancelJoiningRanked,
		protocol.CodeCreatePrivateRoom:   rooms.CreatePrivateRoom,
		protocol.CodeJoinPrivateRoom:     rooms.JoinPrivateRoom,
		protocol.CodeLeavePrivateRoom:    rooms.LeavePrivateRoom,
		protocol.CodeKickFromPrivateRoom: rooms.KickFromPrivateRoom,
		protocol.CodeStartPrivateGame:    rooms.StartPrivateGame,
		protocol.CodeGameSurrender:       rooms.Surrender,
		protocol.CodeGameOfferDraw:       rooms.OfferDraw,
		protocol.CodeGameRespondToDraw:   rooms.RespondToDrawOffer,
		protocol.CodeGameClaimDraw:       rooms.ClaimDraw,
		protocol.CodeGameMove:            rooms.Move,
	}
	return b
}

// Handle routes one inbound frame from the connection.
func (b *Broker) Handle(c *Connection, raw []byte) {
	code, err := protocol.ParseCode(raw)
	if err != nil {
		c.CloseWithReason(protocol.CloseCodeInvalidRequest, protocol.CloseReasonInvalidRequest)
		return
	}

	sender := b.pool.PlayerOf(c)
	if sender == nil {
		b.handleAnonymous(c, code, raw)
		return
	}

	handler, ok := b.handlers[code]
	if !ok {
		c.CloseWithReason(protocol.CloseCodeInvalidRequest, protocol.CloseReasonInvalidRequest)
		return
	}
	if err := handler(raw, sender); err != nil {
		if errors.Is(err, protocol.ErrInvalidRequest) {
			c.CloseWithReason(protocol.CloseCodeInvalidRequest, protocol.CloseReasonInvalidRequest)
			return
		}
		b.log.WithError(err).WithField("code", code).Error("handler failed")
	}
}

func (b *Broker) handleAnonymous(c *Connection, code int, raw []byte) {
	var (
		p   *player.Player
		err error
	)
	switch code {
	case protocol.CodeSignUp:
		p, err = b.auth.SignUp(raw, c)
	case protocol.CodeSignIn:
		p, err = b.auth.SignIn(raw, c)
	default:
		c.CloseWithReason(protocol.CloseCodeInvalidRequest, protocol.CloseReasonInvalidRequest)
		return
	}

	if err != nil {
		if errors.Is(err, protocol.ErrInvalidRequest) {
			c.CloseWithReason(protocol.CloseCodeInvalidRequest, protocol.CloseReasonInvalidRequest)
			return
		}
		b.log.WithError(err).Error("authentication failed")
		c.CloseWithReason(protocol.CloseCodeInvalidRequest, protocol.CloseReasonInvalidRequest)
		return
	}
	if p != nil {
		b.pool.Promote(c, p)
	}
}
