// Package room hosts live games: ranked and private rooms, the game
// runner, and the service that owns all room state and matchmaking.
package room

import (
	"golang.org/x/sync/errgroup"

	"github.com/netchess/netchess/internal/player"
)

// Room is a set of participants sharing one game runner.
type Room interface {
	Runner() *GameRunner
	Players() []*player.Player
	Broadcast(message []byte)
}

// broadcast fans a message out to all players concurrently; a failed
// send is absorbed, the broken connection cleans itself up through the
// disconnect path.
func broadcast(players []*player.Player, message []byte) {
	g := new(errgroup.Group)
	for _, p := range players {
		p := p
		g.Go(func() error {
			return p.Send(message)
		})
	}
	_ = g.Wait()
}

// RankedRoom pairs two matched players.
type RankedRoom struct {
	Player1 *player.Player
	Player2 *player.Player
	runner  *GameRunner
}

// NewRankedRoom returns a ranked room over the two players.
func NewRankedRoom(p1, p2 *player.Player) *RankedRoom {
	return &RankedRoom{Player1: p1, Player2: p2, runner: NewGameRunner()}
}

// Runner returns the room's game runner.
func (r *RankedRoom) Runner() *GameRunner {
	return r.runner
}

// Players returns both players.
func (r *RankedRoom) Players() []*player.Player {
	return []*player.Player{r.Player1, r.Player2}
}

// Broadcast sends the message to both players.
func (r *RankedRoom) Broadcast(message []byte) {
	broadcast(r.Players(), message)
}

// PrivateRoom is an invite-only room reachable by access key. Kicked
// guests may not rejoin.
type PrivateRoom struct {
	Host      *player.Player
	Guest     *player.Player
	AccessKey string
	Kicked    map[string]bool
	runner    *GameRunner
}

// NewPrivateRoom returns a private room hosted by host.
func NewPrivateRoom(host *player.Player, accessKey string) *PrivateRoom {
	return &PrivateRoom{
		Host:      host,
		AccessKey: accessKey,
		Kicked:    make(map[string]bool),
		runner:    NewGameRunner(),
	}
}

// Runner returns the room's game runner.
func (r *PrivateRoom) Runner() *GameRunner {
	return r.runner
}

// Full reports whether a guest occupies the room.
func (r *PrivateRoom) Full() bool {
	return r.Guest != nil
}

// Players returns the host and, if present, the guest.
func (r *PrivateRoom) Players() []*player.Player {
	players := []*player.Player{r.Host}
	if r.Guest != nil {
		players = append(players, r.Guest)
	}
	return players
}

// Broadcast sends the message to every participant.
func (r *PrivateRoom) Broadcast(message []byte) {
	broadcast(r.Players(), message)
}
