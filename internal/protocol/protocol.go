// Package protocol defines the JSON wire protocol: message codes,
// status enums, request parsing and the structural move codec.
package protocol

import (
	"encoding/json"

	"github.com/netchess/netchess/internal/game"
	"github.com/netchess/netchess/internal/player"
)

// Message codes. The numeric values are stable; clients depend on
// them.
const (
	CodeSignUp               = 1
	CodeSignIn               = 2
	CodeJoinRankedQueue      = 3
	CodeCancelJoiningRanked  = 4
	CodeJoinedRankedRoom     = 5
	CodeCreatePrivateRoom    = 6
	CodeJoinPrivateRoom      = 7
	CodeLeavePrivateRoom     = 8
	CodeKickFromPrivateRoom  = 9
	CodeStartPrivateGame     = 10
	CodeGameSurrender        = 11
	CodeGameOfferDraw        = 12
	CodeGameRespondToDraw    = 13
	CodeGameClaimDraw        = 14
	CodeGameMove             = 15
	CodeGameTimeEnd          = 16
	CodePlayerDisconnected   = 17
)

// Auth statuses, reported under the originating code.
const (
	AuthSuccess       = 1
	AuthEmailNotExist = 2
	AuthWrongPassword = 3
	AuthEmailExist    = 4
	AuthNickExist     = 5
)

// Private room joining statuses.
const (
	JoinSuccess        = 1
	JoinRoomFull       = 2
	JoinRoomNotExist   = 3
	JoinKickedFromRoom = 4
)

// WebSocket close codes and reasons. An auth-failure close carries
// the encoded AuthFailure payload as its reason.
const (
	CloseCodeAuthFailure    = 4000
	CloseCodeInvalidRequest = 4001
	CloseCodeLoginTimeout   = 4002

	CloseReasonInvalidRequest  = "invalid request"
	CloseReasonLoginTimeExceed = "login time exceeded"
)

// Ack is a bare acknowledgement carrying only the code.
type Ack struct {
	Code int `json:"code"`
}

// AuthResponse acknowledges a successful sign-up or sign-in.
type AuthResponse struct {
	Code   int               `json:"code"`
	Status int               `json:"status"`
	Player player.Descriptor `json:"player"`
}

// AuthFailure is the close-frame payload of a failed sign-up or
// sign-in.
type AuthFailure struct {
	Code   int `json:"code"`
	Status int `json:"status"`
}

// CreateRoomResponse returns the access key of a fresh private room.
type CreateRoomResponse struct {
	Code      int    `json:"code"`
	AccessKey string `json:"accessKey"`
}

// JoinRoomStatus is sent to the joiner alone when joining fails.
type JoinRoomStatus struct {
	Code   int `json:"code"`
	Status int `json:"status"`
}

// JoinRoomResponse is broadcast to host and guest on a successful
// join.
type JoinRoomResponse struct {
	Code      int               `json:"code"`
	Status    int               `json:"status"`
	AccessKey string            `json:"accessKey"`
	Host      player.Descriptor `json:"host"`
}

// PlayerNotice carries a player descriptor under a code (leaves,
// surrenders, disconnects, draw offers).
type PlayerNotice struct {
	Code   int               `json:"code"`
	Player player.Descriptor `json:"player"`
}

// GameStartResponse announces a started game and its team assignment.
// Teams maps "WHITE"/"BLACK" to player descriptors.
type GameStartResponse struct {
	Code     int                          `json:"code"`
	GameType game.Type                    `json:"gameType"`
	Teams    map[string]player.Descriptor `json:"teams"`
}

// DrawResponse broadcasts the answer to a draw offer.
type DrawResponse struct {
	Code     int  `json:"code"`
	Accepted bool `json:"accepted"`
}

// MoveBroadcast echoes a processed move with the mover's remaining
// time in milliseconds.
type MoveBroadcast struct {
	Code     int         `json:"code"`
	Move     MoveMessage `json:"move"`
	TimeLeft int64       `json:"timeLeft"`
}

// Encode marshals a response value. The response types above cannot
// fail to marshal.
func Encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
