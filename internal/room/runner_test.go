package room

import (
	"sync"
	"testing"

	"github.com/netchess/netchess/internal/chess"
	"github.com/netchess/netchess/internal/game"
	"github.com/netchess/netchess/internal/player"
	"github.com/netchess/netchess/internal/protocol"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
}

func (c *fakeConn) Send(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, append([]byte(nil), message...))
	return nil
}

func (c *fakeConn) CloseWithStatus(payload []byte) {
	_ = c.Send(payload)
}

func (c *fakeConn) codes(t *testing.T) []int {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	codes := make([]int, 0, len(c.messages))
	for _, m := range c.messages {
		code, err := protocol.ParseCode(m)
		if err != nil {
			t.Fatalf("unparseable outbound message %s: %v", m, err)
		}
		codes = append(codes, code)
	}
	return codes
}

func newTestPlayer(nick string, elo int) (*player.Player, *fakeConn) {
	conn := &fakeConn{}
	ratings := map[game.Type]int{game.Blitz: elo, game.Rapid: elo, game.Classic: elo}
	return player.New(nick, ratings, conn), conn
}

func startedRunner(t *testing.T) (r *GameRunner, white, black *player.Player) {
	t.Helper()
	p1, _ := newTestPlayer("alice", 1000)
	p2, _ := newTestPlayer("bob", 1000)

	r = NewGameRunner()
	r.Start(p1, p2, game.Blitz, nil)
	t.Cleanup(r.Clean)

	white, black = r.TeamAssignment()
	if white == nil || black == nil {
		t.Fatal("team assignment incomplete")
	}
	return r, white, black
}

func TestRunnerStart(t *testing.T) {
	r, white, black := startedRunner(t)

	if !r.Running() {
		t.Fatal("runner not running after Start")
	}
	if r.GameType() != game.Blitz {
		t.Errorf("game type = %v, want BLITZ", r.GameType())
	}
	if white == black {
		t.Error("both teams assigned to the same player")
	}
}

func TestRunnerCoinFlipCoversBothAssignments(t *testing.T) {
	p1, _ := newTestPlayer("alice", 1000)
	p2, _ := newTestPlayer("bob", 1000)

	seen := make(map[*player.Player]bool)
	for seed := int64(0); seed < 32 && len(seen) < 2; seed++ {
		r := NewGameRunner()
		r.SeedRand(seed)
		r.Start(p1, p2, game.Blitz, nil)
		white, _ := r.TeamAssignment()
		seen[white] = true
		r.Clean()
	}
	if len(seen) != 2 {
		t.Error("coin flip never gave the other player White")
	}
}

func TestRunnerOnMove(t *testing.T) {
	r, white, black := startedRunner(t)
	opening := chess.NewMove(chess.Vector2d{X: 4, Y: 1}, chess.Vector2d{X: 4, Y: 3})

	t.Run("wrong turn rejected", func(t *testing.T) {
		status := r.OnMove(chess.NewMove(chess.Vector2d{X: 4, Y: 6}, chess.Vector2d{X: 4, Y: 4}), black)
		if status.Successful || status.TimeLeft != -1 {
			t.Errorf("move out of turn accepted: %+v", status)
		}
	})

	t.Run("non-participant rejected", func(t *testing.T) {
		stranger, _ := newTestPlayer("carol", 1000)
		status := r.OnMove(opening, stranger)
		if status.Successful {
			t.Errorf("stranger's move accepted: %+v", status)
		}
	})

	t.Run("illegal move rejected", func(t *testing.T) {
		status := r.OnMove(chess.NewMove(chess.Vector2d{X: 4, Y: 1}, chess.Vector2d{X: 4, Y: 5}), white)
		if status.Successful {
			t.Errorf("illegal move accepted: %+v", status)
		}
	})

	t.Run("legal move accepted", func(t *testing.T) {
		status := r.OnMove(opening, white)
		if !status.Successful {
			t.Fatalf("legal move rejected: %+v", status)
		}
		if status.TimeLeft < 0 {
			t.Errorf("TimeLeft = %d, want non-negative", status.TimeLeft)
		}
		if status.End != nil {
			t.Errorf("opening move ended the game: %+v", status.End)
		}
	})
}

func TestRunnerCheckmateEndsGame(t *testing.T) {
	r, white, black := startedRunner(t)

	moves := []struct {
		m chess.Move
		p *player.Player
	}{
		{chess.NewMove(chess.Vector2d{X: 5, Y: 1}, chess.Vector2d{X: 5, Y: 2}), white},
		{chess.NewMove(chess.Vector2d{X: 4, Y: 6}, chess.Vector2d{X: 4, Y: 4}), black},
		{chess.NewMove(chess.Vector2d{X: 6, Y: 1}, chess.Vector2d{X: 6, Y: 3}), white},
	}
	for _, step := range moves {
		if status := r.OnMove(step.m, step.p); !status.Successful {
			t.Fatalf("move %v rejected", step.m)
		}
	}

	status := r.OnMove(chess.NewMove(chess.Vector2d{X: 3, Y: 7}, chess.Vector2d{X: 7, Y: 3}), black)
	if !status.Successful {
		t.Fatal("mating move rejected")
	}
	if status.End == nil {
		t.Fatal("checkmate did not end the game")
	}
	if status.End.Draw || status.End.Winner != black || status.End.Loser != white {
		t.Errorf("end status = %+v, want Black wins", status.End)
	}
	if r.Running() {
		t.Error("runner still running after checkmate")
	}
}

func TestRunnerSurrender(t *testing.T) {
	r, white, black := startedRunner(t)

	stranger, _ := newTestPlayer("carol", 1000)
	if status := r.OnSurrender(stranger); status != nil {
		t.Errorf("stranger surrendered someone else's game: %+v", status)
	}

	status := r.OnSurrender(white)
	if status == nil {
		t.Fatal("participant's surrender ignored")
	}
	if status.Draw || status.Winner != black || status.Loser != white {
		t.Errorf("surrender status = %+v, want Black wins", status)
	}
	if r.Running() {
		t.Error("runner still running after surrender")
	}
	if again := r.OnSurrender(black); again != nil {
		t.Errorf("surrender on a finished game returned %+v", again)
	}
}

func TestRunnerTimeEnd(t *testing.T) {
	start := func(t *testing.T) (r *GameRunner, white, black *player.Player, ended *GameEndStatus) {
		t.Helper()
		p1, _ := newTestPlayer("alice", 1000)
		p2, _ := newTestPlayer("bob", 1000)

		r = NewGameRunner()
		captured := &GameEndStatus{}
		r.Start(p1, p2, game.Blitz, func(status GameEndStatus) { *captured = status })
		t.Cleanup(r.Clean)

		white, black = r.TeamAssignment()
		if white == nil || black == nil {
			t.Fatal("team assignment incomplete")
		}
		return r, white, black, captured
	}

	t.Run("opponent with material wins", func(t *testing.T) {
		r, white, black, ended := start(t)

		r.onTeamTimeEnd(chess.White)

		if ended.Draw || ended.Winner != black || ended.Loser != white {
			t.Errorf("end status = %+v, want Black wins on White's flag", ended)
		}
		if ended.GameType != game.Blitz {
			t.Errorf("game type = %v, want BLITZ", ended.GameType)
		}
		if r.Running() {
			t.Error("runner still running after time end")
		}
	})

	t.Run("bare king opponent draws", func(t *testing.T) {
		r, _, _, ended := start(t)

		r.mu.Lock()
		r.engine = chess.NewEngineWith([]*chess.Piece{
			chess.NewPiece(chess.King, chess.White, chess.Vector2d{X: 4, Y: 0}),
			chess.NewPiece(chess.King, chess.Black, chess.Vector2d{X: 4, Y: 7}),
		}, nil)
		r.mu.Unlock()

		r.onTeamTimeEnd(chess.White)

		if !ended.Draw {
			t.Errorf("end status = %+v, want a draw against a bare king", ended)
		}
		if r.Running() {
			t.Error("runner still running after time end")
		}
	})

	t.Run("finished game ignores a late flag", func(t *testing.T) {
		r, _, _, ended := start(t)
		r.Clean()

		r.onTeamTimeEnd(chess.White)

		if ended.Winner != nil || ended.Loser != nil || ended.Draw {
			t.Errorf("late flag produced an end status: %+v", ended)
		}
	})
}

func TestRunnerDrawOffers(t *testing.T) {
	t.Run("only side to move may offer", func(t *testing.T) {
		r, _, black := startedRunner(t)
		if r.OnDrawOffer(black) {
			t.Error("opponent of the side to move offered a draw")
		}
	})

	t.Run("offerer cannot accept", func(t *testing.T) {
		r, white, _ := startedRunner(t)
		if !r.OnDrawOffer(white) {
			t.Fatal("side to move could not offer")
		}
		if status := r.OnDrawOfferAccepted(white); status != nil {
			t.Errorf("offerer accepted its own offer: %+v", status)
		}
	})

	t.Run("accept ends as draw", func(t *testing.T) {
		r, white, black := startedRunner(t)
		if !r.OnDrawOffer(white) {
			t.Fatal("offer rejected")
		}
		status := r.OnDrawOfferAccepted(black)
		if status == nil || !status.Draw {
			t.Fatalf("acceptance status = %+v, want a draw", status)
		}
		if r.Running() {
			t.Error("runner still running after agreed draw")
		}
	})

	t.Run("reject clears the offer", func(t *testing.T) {
		r, white, black := startedRunner(t)
		if !r.OnDrawOffer(white) {
			t.Fatal("offer rejected")
		}
		if r.OnDrawOffer(white) {
			t.Error("second offer accepted while one stands")
		}
		if !r.OnDrawOfferRejected(black) {
			t.Fatal("rejection ignored")
		}
		if !r.OnDrawOffer(white) {
			t.Error("fresh offer rejected after the last one was declined")
		}
	})

	t.Run("opponent move clears the offer", func(t *testing.T) {
		r, white, black := startedRunner(t)
		if !r.OnDrawOffer(white) {
			t.Fatal("offer rejected")
		}
		if status := r.OnMove(chess.NewMove(chess.Vector2d{X: 4, Y: 1}, chess.Vector2d{X: 4, Y: 3}), white); !status.Successful {
			t.Fatal("white's move rejected")
		}
		// Black moves; the standing white offer survives Black's
		// turn only until Black moves.
		if status := r.OnMove(chess.NewMove(chess.Vector2d{X: 4, Y: 6}, chess.Vector2d{X: 4, Y: 4}), black); !status.Successful {
			t.Fatal("black's move rejected")
		}
		if status := r.OnDrawOfferAccepted(black); status != nil {
			t.Errorf("stale offer still accepted after a move: %+v", status)
		}
	})
}
