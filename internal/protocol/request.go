package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidRequest marks malformed client input: bad JSON, missing or
// mistyped fields, unknown codes, out-of-board coordinates. It is the
// only error class that closes an authenticated connection.
var ErrInvalidRequest = errors.New("invalid request")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// ParseCode extracts the mandatory code field of a frame.
func ParseCode(raw []byte) (int, error) {
	var envelope struct {
		Code *int `json:"code"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return 0, invalidf("malformed frame: %v", err)
	}
	if envelope.Code == nil {
		return 0, invalidf("missing code")
	}
	return *envelope.Code, nil
}

// SignUpRequest creates an account.
type SignUpRequest struct {
	Nick     string `json:"nick"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest authenticates an existing account.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// JoinRankedQueueRequest enters the matchmaking queue.
type JoinRankedQueueRequest struct {
	GameType string `json:"gameType"`
}

// JoinPrivateRoomRequest joins a private room by access key.
type JoinPrivateRoomRequest struct {
	AccessKey string `json:"accessKey"`
}

// StartPrivateGameRequest starts the game in a private room.
type StartPrivateGameRequest struct {
	GameType string `json:"gameType"`
}

// RespondToDrawRequest answers an outstanding draw offer. Accepted is
// a pointer so a missing field is rejected.
type RespondToDrawRequest struct {
	Accepted *bool `json:"accepted"`
}

// MoveRequest transmits a structural move.
type MoveRequest struct {
	Move *MoveMessage `json:"move"`
}

// Decode unmarshals a request payload into dst.
func Decode(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return invalidf("malformed payload: %v", err)
	}
	return nil
}

// Input validation rules.
var (
	nickRegexp      = regexp.MustCompile(`^\w{3,16}$`)
	emailRegexp     = regexp.MustCompile(`^.{1,50}@.{1,25}\..{1,25}$`)
	accessKeyRegexp = regexp.MustCompile(`^[A-Z]{5}$`)
)

// NickValid reports whether nick is a word of 3 to 16 characters.
func NickValid(nick string) bool {
	return nickRegexp.MatchString(nick)
}

// EmailValid reports whether email has a plausible address shape.
func EmailValid(email string) bool {
	return emailRegexp.MatchString(email)
}

// PasswordValid reports whether the password length is within bounds.
func PasswordValid(password string) bool {
	return len(password) >= 7 && len(password) <= 75
}

// AccessKeyValid reports whether key is five uppercase letters.
func AccessKeyValid(key string) bool {
	return accessKeyRegexp.MatchString(key)
}
