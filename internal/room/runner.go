package room

import (
	"math/rand"
	"sync"
	"time"

	"github.com/netchess/netchess/internal/chess"
	"github.com/netchess/netchess/internal/game"
	"github.com/netchess/netchess/internal/player"
)

// GameEndStatus classifies a finished game. For a draw the winner and
// loser fields carry the two players in arbitrary order.
type GameEndStatus struct {
	Draw     bool
	Winner   *player.Player
	Loser    *player.Player
	GameType game.Type
}

// MoveStatus is the outcome of a move attempt. TimeLeft is the
// mover's remaining clock in milliseconds, -1 when the move was
// rejected. End is non-nil when the move finished the game.
type MoveStatus struct {
	Successful bool
	TimeLeft   int64
	End        *GameEndStatus
}

// GameRunner drives one live game: the rules engine, the clock, the
// team assignment and the draw-offer state. A runner is running iff an
// engine is present; Clean tears the game down and makes the runner
// reusable.
type GameRunner struct {
	mu        sync.Mutex
	teams     map[*player.Player]chess.Team
	gameType  game.Type
	clock     *game.Clock
	engine    *chess.Engine
	drawOffer *player.Player
	onTimeEnd func(GameEndStatus)

	rnd *rand.Rand
}

// NewGameRunner returns an idle runner.
func NewGameRunner() *GameRunner {
	return &GameRunner{
		teams: make(map[*player.Player]chess.Team),
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SeedRand fixes the team-assignment coin flip, for tests.
func (r *GameRunner) SeedRand(seed int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rnd = rand.New(rand.NewSource(seed))
}

// Running reports whether a game is in progress.
func (r *GameRunner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine != nil
}

// GameType returns the type of the running game.
func (r *GameRunner) GameType() game.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gameType
}

// TeamAssignment returns the white and black players of the running
// game.
func (r *GameRunner) TeamAssignment() (white, black *player.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for p, t := range r.teams {
		if t == chess.White {
			white = p
		} else {
			black = p
		}
	}
	return white, black
}

// Start begins a game between the two players: White and Black are
// assigned by coin flip, both clocks get the game type's total, the
// expiry callback is installed and a fresh engine is allocated.
// Starting a running runner is a no-op.
func (r *GameRunner) Start(p1, p2 *player.Player, gameType game.Type, onTimeEnd func(GameEndStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine != nil {
		return
	}

	r.gameType = gameType
	r.onTimeEnd = onTimeEnd

	if r.rnd.Intn(2) == 0 {
		r.teams[p1], r.teams[p2] = chess.White, chess.Black
	} else {
		r.teams[p1], r.teams[p2] = chess.Black, chess.White
	}

	r.engine = chess.NewEngine()
	r.clock = game.NewClock(game.ClockTotal(gameType), r.onTeamTimeEnd)
}

// Clean tears down the game. Idempotent; the clock cancellation
// completes before the runner lets go of it.
func (r *GameRunner) Clean() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanLocked()
}

func (r *GameRunner) cleanLocked() {
	if r.clock != nil {
		r.clock.Stop()
		r.clock = nil
	}
	r.engine = nil
	r.drawOffer = nil
	r.gameType = ""
	r.teams = make(map[*player.Player]chess.Team)
}

// OnMove validates and applies a move by the player. The game ends
// here on checkmate or a forced tie; otherwise a draw offer by the
// opponent is cleared by this move.
func (r *GameRunner) OnMove(m chess.Move, p *player.Player) MoveStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.teams[p]
	if r.engine == nil || !ok || team != r.engine.SideToMove() || !r.engine.ValidateMove(m) {
		return MoveStatus{Successful: false, TimeLeft: -1}
	}

	r.engine.ProcessMove(m)

	gameType := r.gameType
	opponent := r.oppositeLocked(p)
	timeLeft := r.clock.Next().Milliseconds()

	if r.engine.IsCheckmate() {
		r.cleanLocked()
		return MoveStatus{Successful: true, TimeLeft: timeLeft, End: &GameEndStatus{
			Draw: false, Winner: p, Loser: opponent, GameType: gameType,
		}}
	}
	if r.engine.IsTie() {
		r.cleanLocked()
		return MoveStatus{Successful: true, TimeLeft: timeLeft, End: &GameEndStatus{
			Draw: true, Winner: p, Loser: opponent, GameType: gameType,
		}}
	}

	if r.drawOffer != nil && r.drawOffer != p {
		r.drawOffer = nil
	}
	return MoveStatus{Successful: true, TimeLeft: timeLeft}
}

// OnSurrender ends the game with the player as loser. Returns nil if
// no game is running or the player is not a participant.
func (r *GameRunner) OnSurrender(p *player.Player) *GameEndStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine == nil {
		return nil
	}
	if _, ok := r.teams[p]; !ok {
		return nil
	}

	winner := r.oppositeLocked(p)
	gameType := r.gameType
	r.cleanLocked()
	return &GameEndStatus{Draw: false, Winner: winner, Loser: p, GameType: gameType}
}

// OnDrawOffer registers a draw offer. Only the side to move may offer,
// and only while no offer stands.
func (r *GameRunner) OnDrawOffer(p *player.Player) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine == nil || r.drawOffer != nil || r.teams[p] != r.engine.SideToMove() {
		return false
	}
	r.drawOffer = p
	return true
}

// OnDrawOfferAccepted ends the game as a draw. Only the player who
// did not offer may accept.
func (r *GameRunner) OnDrawOfferAccepted(p *player.Player) *GameEndStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine == nil || r.drawOffer == nil || p == r.drawOffer {
		return nil
	}

	first, second := r.participantsLocked()
	gameType := r.gameType
	r.cleanLocked()
	return &GameEndStatus{Draw: true, Winner: first, Loser: second, GameType: gameType}
}

// OnDrawOfferRejected clears the outstanding offer. Only the player
// who did not offer may reject.
func (r *GameRunner) OnDrawOfferRejected(p *player.Player) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine == nil || r.drawOffer == nil || p == r.drawOffer {
		return false
	}
	r.drawOffer = nil
	return true
}

// OnDrawClaim ends the game as a draw when the claiming side may do
// so (threefold repetition or the fifty-move rule).
func (r *GameRunner) OnDrawClaim(p *player.Player) *GameEndStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine == nil || r.teams[p] != r.engine.SideToMove() || !r.engine.CanClaimDraw() {
		return nil
	}

	first, second := r.participantsLocked()
	gameType := r.gameType
	r.cleanLocked()
	return &GameEndStatus{Draw: true, Winner: first, Loser: second, GameType: gameType}
}

// onTeamTimeEnd fires when a side's clock reaches zero. The opposite
// side wins if it has sufficient mating material; otherwise the game
// is a draw.
func (r *GameRunner) onTeamTimeEnd(team chess.Team) {
	r.mu.Lock()
	if r.engine == nil {
		r.mu.Unlock()
		return
	}

	loser := r.playerByTeamLocked(team)
	winner := r.oppositeLocked(loser)
	gameType := r.gameType

	status := GameEndStatus{Draw: true, Winner: winner, Loser: loser, GameType: gameType}
	if r.engine.HasSufficientMaterial(r.teams[winner]) {
		status.Draw = false
	}

	onTimeEnd := r.onTimeEnd
	r.cleanLocked()
	r.mu.Unlock()

	if onTimeEnd != nil {
		onTimeEnd(status)
	}
}

func (r *GameRunner) participantsLocked() (first, second *player.Player) {
	for p := range r.teams {
		if first == nil {
			first = p
		} else {
			second = p
		}
	}
	return first, second
}

func (r *GameRunner) playerByTeamLocked(team chess.Team) *player.Player {
	for p, t := range r.teams {
		if t == team {
			return p
		}
	}
	return nil
}

func (r *GameRunner) oppositeLocked(p *player.Player) *player.Player {
	return r.playerByTeamLocked(r.teams[p].Other())
}
