// Package player defines the in-memory identity of a signed-in player.
package player

import "github.com/netchess/netchess/internal/game"

// Conn is the outbound half of a player's connection. Sends must not
// block the caller; a failed send is absorbed and the connection
// enters the disconnect path on its own.
type Conn interface {
	Send(message []byte) error
}

// Player is a signed-in player. Identity is the nick; the Elo map is
// the in-memory copy of the persisted ratings, mutated on ranked game
// end. A Player lives from successful sign-in or sign-up until its
// connection closes.
type Player struct {
	Nick string
	Elo  map[game.Type]int

	conn Conn
}

// New returns a player bound to its connection.
func New(nick string, elo map[game.Type]int, conn Conn) *Player {
	return &Player{Nick: nick, Elo: elo, conn: conn}
}

// Send forwards a message to the player's client.
func (p *Player) Send(message []byte) error {
	return p.conn.Send(message)
}

// Descriptor is the wire shape of a player reference.
type Descriptor struct {
	Nick string            `json:"nick"`
	Elo  map[game.Type]int `json:"elo"`
}

// Descriptor returns the wire representation of the player.
func (p *Player) Descriptor() Descriptor {
	return Descriptor{Nick: p.Nick, Elo: p.Elo}
}
