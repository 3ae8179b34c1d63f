package room

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/netchess/netchess/internal/game"
	"github.com/netchess/netchess/internal/player"
	"github.com/netchess/netchess/internal/protocol"
	"github.com/netchess/netchess/internal/storage"
)

const (
	numBuckets   = 30
	bucketWidth  = 100
	accessKeyLen = 5
)

// eloBucket returns the matchmaking bucket of the player for the game
// type; ratings past the top bucket clamp into it.
func eloBucket(p *player.Player, gameType game.Type) int {
	bucket := p.Elo[gameType] / bucketWidth
	if bucket >= numBuckets {
		return numBuckets - 1
	}
	return bucket
}

type bucket map[string]*player.Player

func popPlayer(b bucket) *player.Player {
	for nick, p := range b {
		delete(b, nick)
		return p
	}
	return nil
}

// Service owns all room state: the room indexes, the matchmaking
// queue and every request handler. Handlers are serialized by the
// service mutex; within one handler turn state mutation happens
// before the broadcast, so other handlers observe both atomically.
type Service struct {
	mu              sync.Mutex
	store           *storage.Store
	log             *logrus.Entry
	rankedRooms     map[string]*RankedRoom
	privateByPlayer map[string]*PrivateRoom
	privateByKey    map[string]*PrivateRoom
	queue           map[game.Type][]bucket
	rnd             *rand.Rand
}

// NewService returns a service persisting ratings to store.
func NewService(store *storage.Store) *Service {
	s := &Service{
		store:           store,
		log:             logrus.WithField("component", "rooms"),
		rankedRooms:     make(map[string]*RankedRoom),
		privateByPlayer: make(map[string]*PrivateRoom),
		privateByKey:    make(map[string]*PrivateRoom),
		queue:           make(map[game.Type][]bucket),
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, gameType := range game.Types {
		buckets := make([]bucket, numBuckets)
		for i := range buckets {
			buckets[i] = make(bucket)
		}
		s.queue[gameType] = buckets
	}
	return s
}

// SeedRand fixes access key generation, for tests.
func (s *Service) SeedRand(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd = rand.New(rand.NewSource(seed))
}

// Run sweeps the matchmaking queue until the context is cancelled.
func (s *Service) Run(ctx context.Context, sweepInterval time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.MatchPlayers()
		}
	}
}

// JoinRankedQueue puts the sender into the Elo bucket of the requested
// game type. Senders already occupying a room or queue are ignored.
func (s *Service) JoinRankedQueue(raw []byte, sender *player.Player) error {
	var req protocol.JoinRankedQueueRequest
	if err := protocol.Decode(raw, &req); err != nil {
		return err
	}
	gameType, ok := game.ParseType(req.GameType)
	if !ok {
		return protocol.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.occupiedLocked(sender) {
		return nil
	}

	s.queue[gameType][eloBucket(sender, gameType)][sender.Nick] = sender
	s.log.WithFields(logrus.Fields{"nick": sender.Nick, "gameType": gameType}).Debug("joined ranked queue")

	_ = sender.Send(protocol.Encode(protocol.Ack{Code: protocol.CodeJoinRankedQueue}))
	return nil
}

// CancelJoiningRanked removes the sender from whichever bucket holds
// it.
func (s *Service) CancelJoiningRanked(_ []byte, sender *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, gameType := range game.Types {
		b := s.queue[gameType][eloBucket(sender, gameType)]
		if _, ok := b[sender.Nick]; ok {
			delete(b, sender.Nick)
			_ = sender.Send(protocol.Encode(protocol.Ack{Code: protocol.CodeCancelJoiningRanked}))
			return nil
		}
	}
	return nil
}

// CreatePrivateRoom opens a private room hosted by the sender and
// returns its access key.
func (s *Service) CreatePrivateRoom(_ []byte, sender *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.occupiedLocked(sender) {
		return nil
	}

	accessKey := s.generateAccessKeyLocked()
	room := NewPrivateRoom(sender, accessKey)
	s.privateByKey[accessKey] = room
	s.privateByPlayer[sender.Nick] = room
	s.log.WithFields(logrus.Fields{"nick": sender.Nick, "accessKey": accessKey}).Debug("private room created")

	_ = sender.Send(protocol.Encode(protocol.CreateRoomResponse{
		Code:      protocol.CodeCreatePrivateRoom,
		AccessKey: accessKey,
	}))
	return nil
}

// JoinPrivateRoom attaches the sender as guest of the room behind the
// access key. Failures are reported to the sender alone; success is
// broadcast to host and guest.
func (s *Service) JoinPrivateRoom(raw []byte, sender *player.Player) error {
	var req protocol.JoinPrivateRoomRequest
	if err := protocol.Decode(raw, &req); err != nil {
		return err
	}
	if !protocol.AccessKeyValid(req.AccessKey) {
		return protocol.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.occupiedLocked(sender) {
		return nil
	}

	room, ok := s.privateByKey[req.AccessKey]
	switch {
	case !ok:
		_ = sender.Send(protocol.Encode(protocol.JoinRoomStatus{
			Code:   protocol.CodeJoinPrivateRoom,
			Status: protocol.JoinRoomNotExist,
		}))
	case room.Full():
		_ = sender.Send(protocol.Encode(protocol.JoinRoomStatus{
			Code:   protocol.CodeJoinPrivateRoom,
			Status: protocol.JoinRoomFull,
		}))
	case room.Kicked[sender.Nick]:
		_ = sender.Send(protocol.Encode(protocol.JoinRoomStatus{
			Code:   protocol.CodeJoinPrivateRoom,
			Status: protocol.JoinKickedFromRoom,
		}))
	default:
		s.privateByPlayer[sender.Nick] = room
		room.Guest = sender
		room.Broadcast(protocol.Encode(protocol.JoinRoomResponse{
			Code:      protocol.CodeJoinPrivateRoom,
			Status:    protocol.JoinSuccess,
			AccessKey: room.AccessKey,
			Host:      room.Host.Descriptor(),
		}))
	}
	return nil
}

// LeavePrivateRoom detaches the sender: a leaving guest frees its
// seat, a leaving host tears the room down. All former participants
// are notified.
func (s *Service) LeavePrivateRoom(_ []byte, sender *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.privateByPlayer[sender.Nick]
	if !ok {
		return nil
	}

	recipients := room.Players()
	if sender == room.Host {
		s.removePrivateLocked(room)
	} else {
		room.Guest = nil
		delete(s.privateByPlayer, sender.Nick)
	}

	broadcast(recipients, protocol.Encode(protocol.PlayerNotice{
		Code:   protocol.CodeLeavePrivateRoom,
		Player: sender.Descriptor(),
	}))
	return nil
}

// KickFromPrivateRoom removes the guest and bans it from rejoining.
// Only the host may kick, and only while a guest is present.
func (s *Service) KickFromPrivateRoom(_ []byte, sender *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.privateByPlayer[sender.Nick]
	if !ok || sender != room.Host || room.Guest == nil {
		return nil
	}

	guest := room.Guest
	room.Runner().Clean()
	delete(s.privateByPlayer, guest.Nick)
	room.Kicked[guest.Nick] = true
	room.Guest = nil

	broadcast([]*player.Player{room.Host, guest}, protocol.Encode(protocol.Ack{
		Code: protocol.CodeKickFromPrivateRoom,
	}))
	return nil
}

// StartPrivateGame starts the game in the sender's room. Only the
// host may start, and only with a guest present.
func (s *Service) StartPrivateGame(raw []byte, sender *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.privateByPlayer[sender.Nick]
	if !ok {
		return nil
	}
	if sender != room.Host {
		return protocol.ErrInvalidRequest
	}
	if room.Guest == nil {
		return nil
	}

	var req protocol.StartPrivateGameRequest
	if err := protocol.Decode(raw, &req); err != nil {
		return err
	}
	gameType, ok := game.ParseType(req.GameType)
	if !ok {
		return protocol.ErrInvalidRequest
	}

	room.Runner().Start(room.Host, room.Guest, gameType, s.onPrivateTimeEnd)
	room.Broadcast(protocol.Encode(protocol.GameStartResponse{
		Code:     protocol.CodeStartPrivateGame,
		GameType: gameType,
		Teams:    teamsPayload(room.Runner()),
	}))
	return nil
}

// Surrender ends the sender's game with the sender as loser.
func (s *Service) Surrender(_ []byte, sender *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.roomByPlayerLocked(sender)
	if room == nil {
		return nil
	}

	status := room.Runner().OnSurrender(sender)
	if status == nil {
		return nil
	}
	if _, ranked := room.(*RankedRoom); ranked {
		s.removeRankedLocked(status)
	}

	room.Broadcast(protocol.Encode(protocol.PlayerNotice{
		Code:   protocol.CodeGameSurrender,
		Player: sender.Descriptor(),
	}))
	return nil
}

// OfferDraw registers a draw offer by the sender and announces it.
func (s *Service) OfferDraw(_ []byte, sender *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.roomByPlayerLocked(sender)
	if room == nil {
		return nil
	}

	if room.Runner().OnDrawOffer(sender) {
		room.Broadcast(protocol.Encode(protocol.PlayerNotice{
			Code:   protocol.CodeGameOfferDraw,
			Player: sender.Descriptor(),
		}))
	}
	return nil
}

// RespondToDrawOffer answers the outstanding offer: acceptance ends
// the game as a draw, rejection clears the offer. Either way the
// response is broadcast.
func (s *Service) RespondToDrawOffer(raw []byte, sender *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.roomByPlayerLocked(sender)
	if room == nil {
		return nil
	}

	var req protocol.RespondToDrawRequest
	if err := protocol.Decode(raw, &req); err != nil {
		return err
	}
	if req.Accepted == nil {
		return protocol.ErrInvalidRequest
	}

	if *req.Accepted {
		status := room.Runner().OnDrawOfferAccepted(sender)
		if status == nil {
			return nil
		}
		if _, ranked := room.(*RankedRoom); ranked {
			s.removeRankedLocked(status)
		}
	} else if !room.Runner().OnDrawOfferRejected(sender) {
		return nil
	}

	room.Broadcast(protocol.Encode(protocol.DrawResponse{
		Code:     protocol.CodeGameRespondToDraw,
		Accepted: *req.Accepted,
	}))
	return nil
}

// ClaimDraw ends the game as a draw when the sender may claim one.
func (s *Service) ClaimDraw(_ []byte, sender *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.roomByPlayerLocked(sender)
	if room == nil {
		return nil
	}

	status := room.Runner().OnDrawClaim(sender)
	if status == nil {
		return nil
	}
	if _, ranked := room.(*RankedRoom); ranked {
		s.removeRankedLocked(status)
	}

	room.Broadcast(protocol.Encode(protocol.PlayerNotice{
		Code:   protocol.CodeGameClaimDraw,
		Player: sender.Descriptor(),
	}))
	return nil
}

// Move applies a structural move and broadcasts it with the mover's
// remaining time. A move that ends the game in a ranked room also
// settles ratings.
func (s *Service) Move(raw []byte, sender *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.roomByPlayerLocked(sender)
	if room == nil {
		return nil
	}

	var req protocol.MoveRequest
	if err := protocol.Decode(raw, &req); err != nil {
		return err
	}
	if req.Move == nil {
		return protocol.ErrInvalidRequest
	}
	move, err := protocol.ParseMove(*req.Move)
	if err != nil {
		return err
	}

	status := room.Runner().OnMove(move, sender)
	if !status.Successful {
		return nil
	}

	if status.End != nil {
		if _, ranked := room.(*RankedRoom); ranked {
			s.removeRankedLocked(status.End)
		}
	}

	room.Broadcast(protocol.Encode(protocol.MoveBroadcast{
		Code:     protocol.CodeGameMove,
		Move:     *req.Move,
		TimeLeft: status.TimeLeft,
	}))
	return nil
}

// Disconnect handles a closed connection: waiting players silently
// leave the queue, playing ones forfeit, a vanished host tears its
// room down.
func (s *Service) Disconnect(p *player.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, gameType := range game.Types {
		b := s.queue[gameType][eloBucket(p, gameType)]
		if _, ok := b[p.Nick]; ok {
			delete(b, p.Nick)
			return
		}
	}

	notice := protocol.Encode(protocol.PlayerNotice{
		Code:   protocol.CodePlayerDisconnected,
		Player: p.Descriptor(),
	})

	if room, ok := s.rankedRooms[p.Nick]; ok {
		status := room.Runner().OnSurrender(p)
		if status != nil {
			s.removeRankedLocked(status)
			_ = status.Winner.Send(notice)
		}
		return
	}

	if room, ok := s.privateByPlayer[p.Nick]; ok {
		if p == room.Host {
			guest := room.Guest
			s.removePrivateLocked(room)
			if guest != nil {
				_ = guest.Send(notice)
			}
		} else {
			room.Runner().OnSurrender(p)
			room.Guest = nil
			delete(s.privateByPlayer, p.Nick)
			_ = room.Host.Send(notice)
		}
	}
}

// MatchPlayers performs one matchmaking sweep. Within each game type
// the buckets are visited in rating order with a single carry-over:
// a leftover singleton pairs into the next non-empty bucket or
// returns to its origin bucket, bounding the rating gap of any pair
// to one bucket width.
func (s *Service) MatchPlayers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, gameType := range game.Types {
		var left *player.Player
		for _, b := range s.queue[gameType] {
			if left != nil && len(b) > 0 {
				s.createRankedLocked(left, popPlayer(b), gameType)
				left = nil
			}

			for len(b) >= 2 {
				s.createRankedLocked(popPlayer(b), popPlayer(b), gameType)
			}

			if len(b) == 0 {
				if left != nil {
					s.reinsertLocked(left, gameType)
					left = nil
				}
			} else {
				left = popPlayer(b)
			}
		}
		if left != nil {
			s.reinsertLocked(left, gameType)
		}
	}
}

func (s *Service) reinsertLocked(p *player.Player, gameType game.Type) {
	s.queue[gameType][eloBucket(p, gameType)][p.Nick] = p
}

func (s *Service) createRankedLocked(p1, p2 *player.Player, gameType game.Type) {
	room := NewRankedRoom(p1, p2)
	s.rankedRooms[p1.Nick] = room
	s.rankedRooms[p2.Nick] = room
	room.Runner().Start(p1, p2, gameType, s.onRankedTimeEnd)

	s.log.WithFields(logrus.Fields{
		"player1": p1.Nick, "player2": p2.Nick, "gameType": gameType,
	}).Info("ranked room created")

	room.Broadcast(protocol.Encode(protocol.GameStartResponse{
		Code:     protocol.CodeJoinedRankedRoom,
		GameType: gameType,
		Teams:    teamsPayload(room.Runner()),
	}))
}

// removeRankedLocked settles a finished ranked game: the room leaves
// the indexes, both in-memory ratings shift by the Elo change, and
// both updates are persisted together in the background.
func (s *Service) removeRankedLocked(status *GameEndStatus) {
	room, ok := s.rankedRooms[status.Winner.Nick]
	if !ok {
		return
	}
	room.Runner().Clean()
	delete(s.rankedRooms, status.Winner.Nick)
	delete(s.rankedRooms, status.Loser.Nick)

	score := game.ScoreWin
	if status.Draw {
		score = game.ScoreDraw
	}
	gameType := status.GameType
	change := game.EloChange(status.Winner.Elo[gameType], status.Loser.Elo[gameType], score)
	status.Winner.Elo[gameType] += change
	status.Loser.Elo[gameType] -= change

	winnerNick, winnerElo := status.Winner.Nick, status.Winner.Elo[gameType]
	loserNick, loserElo := status.Loser.Nick, status.Loser.Elo[gameType]
	go s.persistElo(gameType, winnerNick, winnerElo, loserNick, loserElo)
}

// persistElo writes both rating updates together.
func (s *Service) persistElo(gameType game.Type, nick1 string, elo1 int, nick2 string, elo2 int) {
	g := new(errgroup.Group)
	g.Go(func() error { return s.store.UpdateElo(nick1, gameType, elo1) })
	g.Go(func() error { return s.store.UpdateElo(nick2, gameType, elo2) })
	if err := g.Wait(); err != nil {
		s.log.WithError(err).Error("persisting elo updates failed")
	}
}

func (s *Service) removePrivateLocked(room *PrivateRoom) {
	room.Runner().Clean()
	delete(s.privateByPlayer, room.Host.Nick)
	if room.Guest != nil {
		delete(s.privateByPlayer, room.Guest.Nick)
	}
	delete(s.privateByKey, room.AccessKey)
}

func (s *Service) onRankedTimeEnd(status GameEndStatus) {
	s.mu.Lock()
	s.removeRankedLocked(&status)
	s.mu.Unlock()

	message := protocol.Encode(protocol.Ack{Code: protocol.CodeGameTimeEnd})
	broadcast([]*player.Player{status.Winner, status.Loser}, message)
}

func (s *Service) onPrivateTimeEnd(status GameEndStatus) {
	message := protocol.Encode(protocol.Ack{Code: protocol.CodeGameTimeEnd})
	broadcast([]*player.Player{status.Winner, status.Loser}, message)
}

func (s *Service) occupiedLocked(p *player.Player) bool {
	if _, ok := s.rankedRooms[p.Nick]; ok {
		return true
	}
	if _, ok := s.privateByPlayer[p.Nick]; ok {
		return true
	}
	for _, gameType := range game.Types {
		if _, ok := s.queue[gameType][eloBucket(p, gameType)][p.Nick]; ok {
			return true
		}
	}
	return false
}

func (s *Service) roomByPlayerLocked(p *player.Player) Room {
	if room, ok := s.rankedRooms[p.Nick]; ok {
		return room
	}
	if room, ok := s.privateByPlayer[p.Nick]; ok {
		return room
	}
	return nil
}

func (s *Service) generateAccessKeyLocked() string {
	for {
		key := make([]byte, accessKeyLen)
		for i := range key {
			key[i] = byte('A' + s.rnd.Intn(26))
		}
		if _, taken := s.privateByKey[string(key)]; !taken {
			return string(key)
		}
	}
}

func teamsPayload(runner *GameRunner) map[string]player.Descriptor {
	white, black := runner.TeamAssignment()
	return map[string]player.Descriptor{
		"WHITE": white.Descriptor(),
		"BLACK": black.Descriptor(),
	}
}
