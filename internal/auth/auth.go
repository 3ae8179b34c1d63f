// Package auth implements account creation and sign-in on top of the
// player store.
package auth

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/netchess/netchess/internal/game"
	"github.com/netchess/netchess/internal/player"
	"github.com/netchess/netchess/internal/protocol"
	"github.com/netchess/netchess/internal/storage"
)

// Conn is an anonymous connection attempting to authenticate. On
// failure the connection is closed with a status payload; on success
// it becomes the promoted player's send channel.
type Conn interface {
	player.Conn
	CloseWithStatus(payload []byte)
}

// Service authenticates connections against the player store.
type Service struct {
	store *storage.Store
	log   *logrus.Entry
}

// NewService returns an auth service over the store.
func NewService(store *storage.Store) *Service {
	return &Service{
		store: store,
		log:   logrus.WithField("component", "auth"),
	}
}

// SignUp creates an account and returns the signed-in player. A taken
// nick or email closes the connection with the matching status and
// returns nil without error; malformed input returns ErrInvalidRequest.
func (s *Service) SignUp(raw []byte, conn Conn) (*player.Player, error) {
	var req protocol.SignUpRequest
	if err := protocol.Decode(raw, &req); err != nil {
		return nil, err
	}
	if !protocol.NickValid(req.Nick) || !protocol.EmailValid(req.Email) || !protocol.PasswordValid(req.Password) {
		return nil, protocol.ErrInvalidRequest
	}

	if taken, err := s.store.ExistsByNick(req.Nick); err != nil {
		return nil, err
	} else if taken {
		s.log.WithField("nick", req.Nick).Info("sign-up rejected: nick taken")
		conn.CloseWithStatus(protocol.Encode(protocol.AuthFailure{
			Code:   protocol.CodeSignUp,
			Status: protocol.AuthNickExist,
		}))
		return nil, nil
	}

	if taken, err := s.store.ExistsByEmail(req.Email); err != nil {
		return nil, err
	} else if taken {
		s.log.WithField("nick", req.Nick).Info("sign-up rejected: email taken")
		conn.CloseWithStatus(protocol.Encode(protocol.AuthFailure{
			Code:   protocol.CodeSignUp,
			Status: protocol.AuthEmailExist,
		}))
		return nil, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	elo := map[game.Type]int{
		game.Blitz:   game.DefaultElo,
		game.Rapid:   game.DefaultElo,
		game.Classic: game.DefaultElo,
	}
	if err := s.store.Insert(storage.PlayerDoc{
		Nick:         req.Nick,
		Email:        req.Email,
		PasswordHash: string(hash),
		Elo:          elo,
	}); err != nil {
		return nil, err
	}

	p := player.New(req.Nick, elo, conn)
	s.log.WithField("nick", p.Nick).Info("account created")

	_ = p.Send(protocol.Encode(protocol.AuthResponse{
		Code:   protocol.CodeSignUp,
		Status: protocol.AuthSuccess,
		Player: p.Descriptor(),
	}))
	return p, nil
}

// SignIn authenticates an existing account. An unknown email or wrong
// password closes the connection with the matching status and returns
// nil without error.
func (s *Service) SignIn(raw []byte, conn Conn) (*player.Player, error) {
	var req protocol.SignInRequest
	if err := protocol.Decode(raw, &req); err != nil {
		return nil, err
	}
	if !protocol.EmailValid(req.Email) || !protocol.PasswordValid(req.Password) {
		return nil, protocol.ErrInvalidRequest
	}

	doc, err := s.store.FindByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		s.log.Info("sign-in rejected: unknown email")
		conn.CloseWithStatus(protocol.Encode(protocol.AuthFailure{
			Code:   protocol.CodeSignIn,
			Status: protocol.AuthEmailNotExist,
		}))
		return nil, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(doc.PasswordHash), []byte(req.Password)) != nil {
		s.log.WithField("nick", doc.Nick).Info("sign-in rejected: wrong password")
		conn.CloseWithStatus(protocol.Encode(protocol.AuthFailure{
			Code:   protocol.CodeSignIn,
			Status: protocol.AuthWrongPassword,
		}))
		return nil, nil
	}

	p := player.New(doc.Nick, doc.Elo, conn)
	s.log.WithField("nick", p.Nick).Info("signed in")

	_ = p.Send(protocol.Encode(protocol.AuthResponse{
		Code:   protocol.CodeSignIn,
		Status: protocol.AuthSuccess,
		Player: p.Descriptor(),
	}))
	return p, nil
}
