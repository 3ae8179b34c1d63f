package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/netchess/netchess/internal/chess"
	"github.com/netchess/netchess/internal/game"
	"github.com/netchess/netchess/internal/player"
	"github.com/netchess/netchess/internal/protocol"
	"github.com/netchess/netchess/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store)
}

func joinQueue(t *testing.T, s *Service, p *player.Player, gameType game.Type) {
	t.Helper()
	raw := []byte(fmt.Sprintf(`{"code": 3, "gameType": %q}`, gameType))
	if err := s.JoinRankedQueue(raw, p); err != nil {
		t.Fatalf("JoinRankedQueue(%s): %v", p.Nick, err)
	}
}

func matchedPair(t *testing.T, s *Service) (white, black *player.Player, whiteConn, blackConn *fakeConn) {
	t.Helper()
	p1, c1 := newTestPlayer("alice", 1000)
	p2, c2 := newTestPlayer("bob", 1000)
	joinQueue(t, s, p1, game.Blitz)
	joinQueue(t, s, p2, game.Blitz)
	s.MatchPlayers()

	room, ok := s.rankedRooms[p1.Nick]
	if !ok {
		t.Fatal("no ranked room created")
	}
	white, black = room.Runner().TeamAssignment()
	if white == p1 {
		return p1, p2, c1, c2
	}
	return p2, p1, c2, c1
}

func TestEloBucket(t *testing.T) {
	cases := []struct {
		elo  int
		want int
	}{
		{0, 0}, {99, 0}, {100, 1}, {1000, 10}, {1213, 12}, {1240, 12}, {2899, 28}, {2900, 29}, {4000, 29},
	}
	for _, c := range cases {
		p, _ := newTestPlayer("p", c.elo)
		if got := eloBucket(p, game.Blitz); got != c.want {
			t.Errorf("eloBucket(elo=%d) = %d, want %d", c.elo, got, c.want)
		}
	}
}

func TestJoinRankedQueue(t *testing.T) {
	s := newTestService(t)
	p, conn := newTestPlayer("alice", 1213)

	joinQueue(t, s, p, game.Blitz)
	if _, ok := s.queue[game.Blitz][12][p.Nick]; !ok {
		t.Fatal("player not in bucket 12")
	}
	if codes := conn.codes(t); len(codes) != 1 || codes[0] != protocol.CodeJoinRankedQueue {
		t.Errorf("ack codes = %v, want [3]", codes)
	}

	// Joining twice is a silent no-op.
	joinQueue(t, s, p, game.Rapid)
	if _, ok := s.queue[game.Rapid][12][p.Nick]; ok {
		t.Error("occupied player entered a second queue")
	}

	if err := s.JoinRankedQueue([]byte(`{"code": 3, "gameType": "BULLET"}`), p); !errors.Is(err, protocol.ErrInvalidRequest) {
		t.Errorf("unknown game type: err = %v, want ErrInvalidRequest", err)
	}
}

func TestCancelJoiningRanked(t *testing.T) {
	s := newTestService(t)
	p, conn := newTestPlayer("alice", 1000)

	joinQueue(t, s, p, game.Blitz)
	if err := s.CancelJoiningRanked(nil, p); err != nil {
		t.Fatalf("CancelJoiningRanked: %v", err)
	}
	if _, ok := s.queue[game.Blitz][10][p.Nick]; ok {
		t.Fatal("player still queued after cancel")
	}

	codes := conn.codes(t)
	if len(codes) != 2 || codes[1] != protocol.CodeCancelJoiningRanked {
		t.Errorf("codes = %v, want join and cancel acks", codes)
	}
}

func TestMatchPlayersPairsSameBucket(t *testing.T) {
	s := newTestService(t)
	_, _, whiteConn, blackConn := matchedPair(t, s)

	for _, conn := range []*fakeConn{whiteConn, blackConn} {
		codes := conn.codes(t)
		if len(codes) != 2 || codes[1] != protocol.CodeJoinedRankedRoom {
			t.Errorf("codes = %v, want queue ack then room start", codes)
		}
	}
	if len(s.queue[game.Blitz][10]) != 0 {
		t.Error("paired players left in the bucket")
	}
}

func TestMatchPlayersPairsAdjacentBuckets(t *testing.T) {
	s := newTestService(t)
	p1, _ := newTestPlayer("alice", 1213)
	p2, _ := newTestPlayer("bob", 1300)
	joinQueue(t, s, p1, game.Blitz)
	joinQueue(t, s, p2, game.Blitz)

	s.MatchPlayers()
	if _, ok := s.rankedRooms[p1.Nick]; !ok {
		t.Error("carry-over into the next bucket did not pair the players")
	}
}

func TestMatchPlayersKeepsLonePlayerQueued(t *testing.T) {
	s := newTestService(t)
	p, _ := newTestPlayer("alice", 1213)
	joinQueue(t, s, p, game.Blitz)

	s.MatchPlayers()
	if _, ok := s.rankedRooms[p.Nick]; ok {
		t.Fatal("lone player got a room")
	}
	if _, ok := s.queue[game.Blitz][12][p.Nick]; !ok {
		t.Error("lone player fell out of the queue")
	}
}

func TestSurrenderRankedSettlesRatings(t *testing.T) {
	s := newTestService(t)
	white, black, _, blackConn := matchedPair(t, s)

	if err := s.Surrender([]byte(`{"code": 11}`), white); err != nil {
		t.Fatalf("Surrender: %v", err)
	}

	if _, ok := s.rankedRooms[white.Nick]; ok {
		t.Error("ranked room survived the surrender")
	}
	if white.Elo[game.Blitz] != 985 {
		t.Errorf("loser elo = %d, want 985", white.Elo[game.Blitz])
	}
	if black.Elo[game.Blitz] != 1015 {
		t.Errorf("winner elo = %d, want 1015", black.Elo[game.Blitz])
	}

	codes := blackConn.codes(t)
	if codes[len(codes)-1] != protocol.CodeGameSurrender {
		t.Errorf("codes = %v, want a trailing surrender notice", codes)
	}
}

func TestDrawAgreementInRankedRoom(t *testing.T) {
	s := newTestService(t)
	white, black, whiteConn, _ := matchedPair(t, s)

	if err := s.OfferDraw([]byte(`{"code": 12}`), white); err != nil {
		t.Fatalf("OfferDraw: %v", err)
	}
	if err := s.RespondToDrawOffer([]byte(`{"code": 13, "accepted": true}`), black); err != nil {
		t.Fatalf("RespondToDrawOffer: %v", err)
	}

	if _, ok := s.rankedRooms[white.Nick]; ok {
		t.Error("room survived the agreed draw")
	}
	if white.Elo[game.Blitz] != 1000 || black.Elo[game.Blitz] != 1000 {
		t.Errorf("equal-rating draw moved ratings: %d / %d", white.Elo[game.Blitz], black.Elo[game.Blitz])
	}

	codes := whiteConn.codes(t)
	if codes[len(codes)-1] != protocol.CodeGameRespondToDraw {
		t.Errorf("codes = %v, want a trailing draw response", codes)
	}

	if err := s.RespondToDrawOffer([]byte(`{"code": 13}`), black); err != nil {
		t.Errorf("draw response without a room should be silent, got %v", err)
	}
}

func TestMoveBroadcast(t *testing.T) {
	s := newTestService(t)
	white, _, _, blackConn := matchedPair(t, s)

	raw := []byte(`{"code": 15, "move": {"type": 1, "positionFrom": [4, 1], "positionTo": [4, 3]}}`)
	if err := s.Move(raw, white); err != nil {
		t.Fatalf("Move: %v", err)
	}

	var last []byte
	blackConn.mu.Lock()
	last = blackConn.messages[len(blackConn.messages)-1]
	blackConn.mu.Unlock()

	var broadcastMsg struct {
		Code     int                  `json:"code"`
		Move     protocol.MoveMessage `json:"move"`
		TimeLeft int64                `json:"timeLeft"`
	}
	if err := json.Unmarshal(last, &broadcastMsg); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if broadcastMsg.Code != protocol.CodeGameMove {
		t.Errorf("code = %d, want %d", broadcastMsg.Code, protocol.CodeGameMove)
	}
	if broadcastMsg.Move.Type != int(chess.MoveNormal) {
		t.Errorf("move type = %d, want %d", broadcastMsg.Move.Type, chess.MoveNormal)
	}
	if broadcastMsg.TimeLeft < 0 {
		t.Errorf("timeLeft = %d, want non-negative", broadcastMsg.TimeLeft)
	}

	// A rejected move produces no broadcast and no error.
	rejected := []byte(`{"code": 15, "move": {"type": 1, "positionFrom": [0, 0], "positionTo": [0, 7]}}`)
	before := len(blackConn.codes(t))
	if err := s.Move(rejected, white); err != nil {
		t.Fatalf("rejected move returned error: %v", err)
	}
	if after := len(blackConn.codes(t)); after != before {
		t.Error("rejected move was broadcast")
	}
}

func TestPrivateRoomLifecycle(t *testing.T) {
	s := newTestService(t)
	host, hostConn := newTestPlayer("alice", 1000)
	guest, guestConn := newTestPlayer("bob", 1000)

	if err := s.CreatePrivateRoom(nil, host); err != nil {
		t.Fatalf("CreatePrivateRoom: %v", err)
	}

	var created protocol.CreateRoomResponse
	hostConn.mu.Lock()
	err := json.Unmarshal(hostConn.messages[0], &created)
	hostConn.mu.Unlock()
	if err != nil {
		t.Fatalf("unmarshal create response: %v", err)
	}
	if !protocol.AccessKeyValid(created.AccessKey) {
		t.Fatalf("access key %q not five uppercase letters", created.AccessKey)
	}

	t.Run("wrong key", func(t *testing.T) {
		wrongKey := "AAAAA"
		if wrongKey == created.AccessKey {
			wrongKey = "BBBBB"
		}
		raw := []byte(fmt.Sprintf(`{"code": 7, "accessKey": %q}`, wrongKey))
		if err := s.JoinPrivateRoom(raw, guest); err != nil {
			t.Fatalf("JoinPrivateRoom: %v", err)
		}
		var status protocol.JoinRoomStatus
		guestConn.mu.Lock()
		err := json.Unmarshal(guestConn.messages[len(guestConn.messages)-1], &status)
		guestConn.mu.Unlock()
		if err != nil {
			t.Fatal(err)
		}
		if status.Status != protocol.JoinRoomNotExist {
			t.Errorf("status = %d, want %d", status.Status, protocol.JoinRoomNotExist)
		}
	})

	t.Run("malformed key", func(t *testing.T) {
		raw := []byte(`{"code": 7, "accessKey": "abc"}`)
		if err := s.JoinPrivateRoom(raw, guest); !errors.Is(err, protocol.ErrInvalidRequest) {
			t.Errorf("err = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("join and start", func(t *testing.T) {
		raw := []byte(fmt.Sprintf(`{"code": 7, "accessKey": %q}`, created.AccessKey))
		if err := s.JoinPrivateRoom(raw, guest); err != nil {
			t.Fatalf("JoinPrivateRoom: %v", err)
		}
		room := s.privateByKey[created.AccessKey]
		if room == nil || room.Guest != guest {
			t.Fatal("guest not seated in the room")
		}

		if err := s.StartPrivateGame([]byte(`{"code": 10, "gameType": "RAPID"}`), guest); !errors.Is(err, protocol.ErrInvalidRequest) {
			t.Errorf("guest started the game: err = %v", err)
		}
		if err := s.StartPrivateGame([]byte(`{"code": 10, "gameType": "RAPID"}`), host); err != nil {
			t.Fatalf("StartPrivateGame: %v", err)
		}
		if !room.Runner().Running() {
			t.Fatal("game not running after start")
		}
		if room.Runner().GameType() != game.Rapid {
			t.Errorf("game type = %v, want RAPID", room.Runner().GameType())
		}

		codes := guestConn.codes(t)
		if codes[len(codes)-1] != protocol.CodeStartPrivateGame {
			t.Errorf("guest codes = %v, want a trailing game start", codes)
		}
	})

	t.Run("guest leaves", func(t *testing.T) {
		if err := s.LeavePrivateRoom(nil, guest); err != nil {
			t.Fatalf("LeavePrivateRoom: %v", err)
		}
		room := s.privateByKey[created.AccessKey]
		if room == nil {
			t.Fatal("room torn down by a leaving guest")
		}
		if room.Guest != nil {
			t.Error("guest seat not freed")
		}
		if _, ok := s.privateByPlayer[guest.Nick]; ok {
			t.Error("leaver still indexed")
		}
	})

	t.Run("host leaves", func(t *testing.T) {
		if err := s.LeavePrivateRoom(nil, host); err != nil {
			t.Fatalf("LeavePrivateRoom: %v", err)
		}
		if _, ok := s.privateByKey[created.AccessKey]; ok {
			t.Error("room survived the host leaving")
		}
		if _, ok := s.privateByPlayer[host.Nick]; ok {
			t.Error("host still indexed")
		}
	})
}

func TestKickBansGuest(t *testing.T) {
	s := newTestService(t)
	host, hostConn := newTestPlayer("alice", 1000)
	guest, guestConn := newTestPlayer("bob", 1000)

	if err := s.CreatePrivateRoom(nil, host); err != nil {
		t.Fatal(err)
	}
	var created protocol.CreateRoomResponse
	hostConn.mu.Lock()
	_ = json.Unmarshal(hostConn.messages[0], &created)
	hostConn.mu.Unlock()

	join := []byte(fmt.Sprintf(`{"code": 7, "accessKey": %q}`, created.AccessKey))
	if err := s.JoinPrivateRoom(join, guest); err != nil {
		t.Fatal(err)
	}

	// Only the host may kick.
	if err := s.KickFromPrivateRoom(nil, guest); err != nil {
		t.Fatal(err)
	}
	if s.privateByKey[created.AccessKey].Guest != guest {
		t.Fatal("guest kicked by itself")
	}

	if err := s.KickFromPrivateRoom(nil, host); err != nil {
		t.Fatal(err)
	}
	room := s.privateByKey[created.AccessKey]
	if room.Guest != nil {
		t.Fatal("guest still seated after kick")
	}
	if !room.Kicked[guest.Nick] {
		t.Fatal("kicked guest not banned")
	}

	if err := s.JoinPrivateRoom(join, guest); err != nil {
		t.Fatal(err)
	}
	var status protocol.JoinRoomStatus
	guestConn.mu.Lock()
	_ = json.Unmarshal(guestConn.messages[len(guestConn.messages)-1], &status)
	guestConn.mu.Unlock()
	if status.Status != protocol.JoinKickedFromRoom {
		t.Errorf("rejoin status = %d, want %d", status.Status, protocol.JoinKickedFromRoom)
	}
}

func TestDisconnect(t *testing.T) {
	t.Run("waiting player leaves the queue silently", func(t *testing.T) {
		s := newTestService(t)
		p, _ := newTestPlayer("alice", 1000)
		joinQueue(t, s, p, game.Blitz)

		s.Disconnect(p)
		if _, ok := s.queue[game.Blitz][10][p.Nick]; ok {
			t.Error("disconnected player still queued")
		}
	})

	t.Run("ranked game forfeits to the opponent", func(t *testing.T) {
		s := newTestService(t)
		white, black, _, blackConn := matchedPair(t, s)

		s.Disconnect(white)
		if _, ok := s.rankedRooms[black.Nick]; ok {
			t.Error("ranked room survived the disconnect")
		}
		if black.Elo[game.Blitz] != 1015 {
			t.Errorf("winner elo = %d, want 1015", black.Elo[game.Blitz])
		}
		codes := blackConn.codes(t)
		if codes[len(codes)-1] != protocol.CodePlayerDisconnected {
			t.Errorf("codes = %v, want a trailing disconnect notice", codes)
		}
	})

	t.Run("host disconnect tears the private room down", func(t *testing.T) {
		s := newTestService(t)
		host, hostConn := newTestPlayer("alice", 1000)
		guest, guestConn := newTestPlayer("bob", 1000)
		if err := s.CreatePrivateRoom(nil, host); err != nil {
			t.Fatal(err)
		}
		var created protocol.CreateRoomResponse
		hostConn.mu.Lock()
		_ = json.Unmarshal(hostConn.messages[0], &created)
		hostConn.mu.Unlock()
		join := []byte(fmt.Sprintf(`{"code": 7, "accessKey": %q}`, created.AccessKey))
		if err := s.JoinPrivateRoom(join, guest); err != nil {
			t.Fatal(err)
		}

		s.Disconnect(host)
		if _, ok := s.privateByKey[created.AccessKey]; ok {
			t.Error("room survived the host disconnect")
		}
		if _, ok := s.privateByPlayer[guest.Nick]; ok {
			t.Error("guest still indexed after room teardown")
		}
		codes := guestConn.codes(t)
		if codes[len(codes)-1] != protocol.CodePlayerDisconnected {
			t.Errorf("guest codes = %v, want a trailing disconnect notice", codes)
		}
	})
}

func TestAccessKeysAreUnique(t *testing.T) {
	s := newTestService(t)
	s.SeedRand(1)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		p, _ := newTestPlayer(fmt.Sprintf("host%02d", i), 1000)
		if err := s.CreatePrivateRoom(nil, p); err != nil {
			t.Fatal(err)
		}
	}
	for key := range s.privateByKey {
		if !protocol.AccessKeyValid(key) {
			t.Errorf("generated key %q invalid", key)
		}
		if seen[key] {
			t.Errorf("duplicate access key %q", key)
		}
		seen[key] = true
	}
	if len(seen) != 50 {
		t.Errorf("expected 50 distinct rooms, got %d", len(seen))
	}
}
