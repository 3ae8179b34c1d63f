package chess

// CheckStatus holds up to two pieces giving check to the side to move.
type CheckStatus struct {
	First  *Piece
	Second *Piece
}

// Checked reports whether the side to move is in check.
func (cs CheckStatus) Checked() bool {
	return cs.First != nil
}

// DoubleChecked reports whether two pieces give check at once.
func (cs CheckStatus) DoubleChecked() bool {
	return cs.First != nil && cs.Second != nil
}

// Engine is the rules engine for a single game: a board, the move
// history and the derived check state for the side to move.
type Engine struct {
	board   *Board
	history *MoveHistory
	side    Team
	check   CheckStatus
}

// NewEngine returns an engine set up with the standard starting
// position, White to move.
func NewEngine() *Engine {
	return NewEngineWith(startingPieces(), nil)
}

// NewEngineWith returns an engine over an explicit piece list and move
// history. The side to move is derived from the last move's owner and
// the check status is recomputed.
func NewEngineWith(pieces []*Piece, moves []Move) *Engine {
	e := &Engine{
		board:   NewBoard(pieces),
		history: NewMoveHistory(moves),
	}
	e.side = e.initialSide()
	e.updateCheckStatus()
	e.history.AddSnapshot(e.boardSnapshot())
	return e
}

// Board returns the engine's board.
func (e *Engine) Board() *Board {
	return e.board
}

// History returns the engine's move history.
func (e *Engine) History() *MoveHistory {
	return e.history
}

// SideToMove returns the team whose turn it is.
func (e *Engine) SideToMove() Team {
	return e.side
}

// CheckStatus returns the check state of the side to move.
func (e *Engine) CheckStatus() CheckStatus {
	return e.check
}

// AvailableMoves returns all legal moves of the piece standing on
// from. It returns nil if the square is empty or the piece does not
// belong to the side to move. While double-checked, only the king may
// move.
func (e *Engine) AvailableMoves(from Vector2d) []Move {
	piece := e.board.PieceAt(from)
	if piece == nil || piece.Team != e.side {
		return nil
	}

	if e.check.DoubleChecked() && piece.Type != King {
		return nil
	}

	switch piece.Type {
	case Pawn:
		return e.availablePawnMoves(piece)
	case Knight:
		return e.availableKnightMoves(piece)
	case King:
		return e.availableKingMoves(piece)
	default:
		return e.availableSliderMoves(piece)
	}
}

// ValidateMove reports whether move is among the legal moves of the
// piece on its origin square.
func (e *Engine) ValidateMove(m Move) bool {
	for _, legal := range e.AvailableMoves(m.From) {
		if legal == m {
			return true
		}
	}
	return false
}

// ProcessMove applies the move, flips the side to move, records the
// move and the resulting snapshot, and recomputes the check status.
// The move must have been validated.
func (e *Engine) ProcessMove(m Move) {
	switch m.Type {
	case MoveCapture:
		e.board.RemovePiece(m.To)
		e.board.Move(m.From, m.To)
	case MoveCastling:
		e.board.Move(m.RookFrom, m.RookTo)
		e.board.Move(m.From, m.To)
	case MoveEnPassant:
		e.board.RemovePiece(m.Captured)
		e.board.Move(m.From, m.To)
	case MovePromotion:
		e.board.RemovePiece(m.From)
		e.board.SetPiece(&Piece{Type: m.Promotion, Team: e.side, Position: m.To, HasMoved: true})
	case MovePromotionCapture:
		e.board.RemovePiece(m.To)
		e.board.RemovePiece(m.From)
		e.board.SetPiece(&Piece{Type: m.Promotion, Team: e.side, Position: m.To, HasMoved: true})
	default:
		e.board.Move(m.From, m.To)
	}

	movedPawn := e.board.PieceAt(m.To).Type == Pawn
	e.side = e.side.Other()
	e.history.Update(m, movedPawn)
	e.history.AddSnapshot(e.boardSnapshot())
	e.updateCheckStatus()
}

// IsCheckmate reports whether the side to move is checkmated.
func (e *Engine) IsCheckmate() bool {
	if e.check.DoubleChecked() {
		return len(e.AvailableMoves(e.kingPosition())) == 0
	}
	if e.check.Checked() {
		for _, p := range e.board.Pieces(e.side).All() {
			if len(e.AvailableMoves(p.Position)) > 0 {
				return false
			}
		}
		return true
	}
	return false
}

// IsTie reports whether the game ended in a forced draw: neither side
// has sufficient mating material, or the current position occurred
// five times.
func (e *Engine) IsTie() bool {
	if !e.HasSufficientMaterial(White) && !e.HasSufficientMaterial(Black) {
		return true
	}
	return e.history.RepeatedFiveTimes()
}

// CanClaimDraw reports whether the side to move may claim a draw by
// threefold repetition or the fifty-move rule.
func (e *Engine) CanClaimDraw() bool {
	return e.history.RepeatedThreeTimes() || e.history.FiftyMovesRuleSatisfied()
}

// HasSufficientMaterial reports whether the team can in principle
// still deliver checkmate.
func (e *Engine) HasSufficientMaterial(team Team) bool {
	pieces := e.board.Pieces(team)
	opposite := e.board.Pieces(team.Other())

	switch pieces.Len() {
	case 1:
		return false
	case 2:
		if len(pieces.Knights) == 1 {
			return false
		}
		if len(pieces.Bishops) == 1 && opposite.Len() == 2 && len(opposite.Bishops) == 1 &&
			SameColor(pieces.Bishops[0].Position, opposite.Bishops[0].Position) {
			return false
		}
	}
	return true
}

func (e *Engine) initialSide() Team {
	last, ok := e.history.LastMove()
	if !ok {
		return White
	}
	if p := e.board.PieceAt(last.To); p != nil {
		return p.Team.Other()
	}
	return White
}

func (e *Engine) kingPosition() Vector2d {
	return e.board.Pieces(e.side).King.Position
}

func (e *Engine) updateCheckStatus() {
	e.check = CheckStatus{}
	checkers := e.checkingPieces()
	if len(checkers) > 0 {
		e.check.First = checkers[0]
	}
	if len(checkers) > 1 {
		e.check.Second = checkers[1]
	}
}

// checkingPieces probes outward from the king as if it were each
// attacker type in turn: knight offsets, forward pawn-attack
// diagonals, then the bishop and rook rays.
func (e *Engine) checkingPieces() []*Piece {
	var checkers []*Piece
	kingPos := e.kingPosition()

	for _, offset := range knightOffsets {
		pos := kingPos.Sub(offset)
		if !WithinBoard(pos) {
			continue
		}
		if p := e.board.PieceAt(pos); p != nil && p.Type == Knight && p.Team != e.side {
			checkers = append(checkers, p)
		}
	}

	for _, attack := range pawnAttacks[e.side] {
		pos := kingPos.Add(attack)
		if !WithinBoard(pos) {
			continue
		}
		if p := e.board.PieceAt(pos); p != nil && p.Type == Pawn && p.Team != e.side {
			checkers = append(checkers, p)
		}
	}

	checkers = e.appendSlidingCheckers(checkers, bishopDirections, Bishop)
	checkers = e.appendSlidingCheckers(checkers, rookDirections, Rook)
	return checkers
}

func (e *Engine) appendSlidingCheckers(checkers []*Piece, directions []Vector2d, slider PieceType) []*Piece {
	kingPos := e.kingPosition()
	for _, dir := range directions {
		for pos := kingPos.Add(dir); WithinBoard(pos); pos = pos.Add(dir) {
			p := e.board.PieceAt(pos)
			if p == nil {
				continue
			}
			if (p.Type == slider || p.Type == Queen) && p.Team != e.side {
				checkers = append(checkers, p)
			}
			break
		}
	}
	return checkers
}

func (e *Engine) availablePawnMoves(pawn *Piece) []Move {
	var moves []Move
	forward := pawnMoves[pawn.Team][0]
	promotionRank := SecondRank(e.side.Other())

	push := pawn.Position.Add(forward)
	if WithinBoard(push) && !e.willMoveRevealKing(pawn.Position, push) && e.board.PieceAt(push) == nil {
		if !e.check.Checked() || e.willMoveCoverKing(push) {
			if pawn.Position.Y == promotionRank {
				moves = appendPromotions(moves, MovePromotion, pawn.Position, push)
			} else {
				moves = append(moves, NewMove(pawn.Position, push))
			}
		}

		doublePush := push.Add(forward)
		if !pawn.HasMoved && WithinBoard(doublePush) && e.board.PieceAt(doublePush) == nil &&
			(!e.check.Checked() || e.willMoveCoverKing(doublePush)) {
			moves = append(moves, NewMove(pawn.Position, doublePush))
		}
	}

	for _, attack := range pawnAttacks[pawn.Team] {
		attackPos := pawn.Position.Add(attack)
		if !WithinBoard(attackPos) || e.willMoveRevealKing(pawn.Position, attackPos) ||
			(e.check.Checked() && !e.willCaptureCheckingPiece(attackPos)) {
			continue
		}

		target := e.board.PieceAt(attackPos)
		switch {
		case target != nil && target.Team != e.side:
			if pawn.Position.Y == promotionRank {
				moves = appendPromotions(moves, MovePromotionCapture, pawn.Position, attackPos)
			} else {
				moves = append(moves, NewCapture(pawn.Position, attackPos))
			}
		case target == nil && e.enPassantTarget(attackPos):
			last, _ := e.history.LastMove()
			moves = append(moves, NewEnPassant(pawn.Position, attackPos, last.To))
		}
	}

	return moves
}

// enPassantTarget reports whether the last move was an enemy pawn
// double-step whose landing file equals the attack file.
func (e *Engine) enPassantTarget(attackPos Vector2d) bool {
	last, ok := e.history.LastMove()
	if !ok {
		return false
	}
	moved := e.board.PieceAt(last.To)
	return moved != nil && moved.Type == Pawn && moved.Team != e.side &&
		DistanceY(last.From, last.To) == 2 && last.To.X == attackPos.X
}

func appendPromotions(moves []Move, mt MoveType, from, to Vector2d) []Move {
	for _, pt := range []PieceType{Knight, Bishop, Rook, Queen} {
		moves = append(moves, Move{Type: mt, From: from, To: to, Promotion: pt})
	}
	return moves
}

func (e *Engine) availableKnightMoves(knight *Piece) []Move {
	var moves []Move
	for _, offset := range knightOffsets {
		pos := knight.Position.Add(offset)
		if !WithinBoard(pos) || e.willMoveRevealKing(knight.Position, pos) {
			continue
		}
		if e.check.Checked() && !e.willMoveCoverKing(pos) && !e.willCaptureCheckingPiece(pos) {
			continue
		}

		target := e.board.PieceAt(pos)
		if target != nil {
			if target.Team != e.side {
				moves = append(moves, NewCapture(knight.Position, pos))
			}
			continue
		}
		moves = append(moves, NewMove(knight.Position, pos))
	}
	return moves
}

func (e *Engine) availableKingMoves(king *Piece) []Move {
	var moves []Move
	attacked := e.attackedFields()

	for _, offset := range royalDirections {
		pos := king.Position.Add(offset)
		if !WithinBoard(pos) {
			continue
		}
		if _, ok := attacked[pos]; ok {
			continue
		}

		target := e.board.PieceAt(pos)
		if target != nil {
			if target.Team != e.side {
				moves = append(moves, NewCapture(king.Position, pos))
			}
			continue
		}
		moves = append(moves, NewMove(king.Position, pos))
	}

	if king.HasMoved || e.check.Checked() {
		return moves
	}

	for _, rook := range e.board.Pieces(e.side).Rooks {
		if rook.HasMoved || e.board.AnyPieceBetween(king.Position, rook.Position) {
			continue
		}

		unit := UnitVectorTo(king.Position, rook.Position)
		newRookPos := king.Position.Add(unit)
		newKingPos := king.Position.Add(unit.Mul(2))
		if _, ok := attacked[newRookPos]; ok {
			continue
		}
		if _, ok := attacked[newKingPos]; ok {
			continue
		}

		moves = append(moves, NewCastling(king.Position, newKingPos, rook.Position, newRookPos))
	}

	return moves
}

func (e *Engine) availableSliderMoves(piece *Piece) []Move {
	var moves []Move
	for _, dir := range piece.MoveVectors() {
		first := piece.Position.Add(dir)
		if !WithinBoard(first) || e.willMoveRevealKing(piece.Position, first) {
			continue
		}

		for pos := first; WithinBoard(pos); pos = pos.Add(dir) {
			target := e.board.PieceAt(pos)
			if target != nil {
				if target.Team != e.side &&
					(!e.check.Checked() || e.willCaptureCheckingPiece(pos)) {
					moves = append(moves, NewCapture(piece.Position, pos))
				}
				break
			}
			if !e.check.Checked() || e.willMoveCoverKing(pos) {
				moves = append(moves, NewMove(piece.Position, pos))
			}
		}
	}
	return moves
}

// willMoveCoverKing reports whether a piece arriving on to would
// interpose on the line of the single checker. Knight checks cannot
// be interposed.
func (e *Engine) willMoveCoverKing(to Vector2d) bool {
	checker := e.check.First
	kingPos := e.kingPosition()
	return checker.Type != Knight &&
		SameLine3(to, kingPos, checker.Position) &&
		IsBetween(to, kingPos, checker.Position)
}

func (e *Engine) willCaptureCheckingPiece(pos Vector2d) bool {
	return e.check.First.Position == pos
}

// willMoveRevealKing is the pin test: moving the piece on from to to
// is illegal when king and from share a line, an enemy slider covering
// that line stands behind the piece, and the destination leaves the
// line.
func (e *Engine) willMoveRevealKing(from, to Vector2d) bool {
	kingPos := e.kingPosition()

	if !SameLine(kingPos, from) || SameLine3(kingPos, from, to) {
		return false
	}
	if e.board.AnyPieceBetween(kingPos, from) {
		return false
	}

	away := from.Add(UnitVectorTo(kingPos, from))
	revealed := e.board.NextPieceOnLine(from, away)
	if revealed == nil || revealed.Team == e.side {
		return false
	}

	switch revealed.Type {
	case Queen:
		return true
	case Rook:
		return SameRow(kingPos, from)
	case Bishop:
		return SameDiagonal(kingPos, from)
	default:
		return false
	}
}

// attackedFields returns every square an enemy piece attacks, for king
// move filtering. Slider rays stop at the first piece they hit but
// treat the current king as transparent, so the king cannot retreat
// along a checking ray.
func (e *Engine) attackedFields() map[Vector2d]struct{} {
	attacked := make(map[Vector2d]struct{})
	enemy := e.board.Pieces(e.side.Other())
	ownKing := e.board.Pieces(e.side).King

	for _, pawn := range enemy.Pawns {
		for _, attack := range pawnAttacks[pawn.Team] {
			if pos := pawn.Position.Add(attack); WithinBoard(pos) {
				attacked[pos] = struct{}{}
			}
		}
	}

	steppers := append(append([]*Piece{}, enemy.Knights...), enemy.King)
	for _, piece := range steppers {
		for _, offset := range piece.MoveVectors() {
			if pos := piece.Position.Add(offset); WithinBoard(pos) {
				attacked[pos] = struct{}{}
			}
		}
	}

	sliders := append(append(append([]*Piece{}, enemy.Bishops...), enemy.Rooks...), enemy.Queens...)
	for _, piece := range sliders {
		for _, dir := range piece.MoveVectors() {
			for pos := piece.Position.Add(dir); WithinBoard(pos); pos = pos.Add(dir) {
				attacked[pos] = struct{}{}
				if p := e.board.PieceAt(pos); p != nil && p != ownKing {
					break
				}
			}
		}
	}

	return attacked
}

func (e *Engine) boardSnapshot() Snapshot {
	return snapshotOf(e.board, e.side, e.castleRights(), e.enPassantAvailable())
}

func (e *Engine) castleRights() map[Team]CastleRight {
	rights := make(map[Team]CastleRight, 2)
	for _, team := range []Team{White, Black} {
		home := FirstRank(team)
		king := e.board.PieceAt(Vector2d{4, home})
		if king == nil || king.Team != team || king.Type != King || king.HasMoved {
			rights[team] = CastleNone
			continue
		}

		long := unmovedRook(e.board.PieceAt(Vector2d{0, home}), team)
		short := unmovedRook(e.board.PieceAt(Vector2d{7, home}), team)
		switch {
		case long && short:
			rights[team] = CastleBoth
		case short:
			rights[team] = CastleShort
		case long:
			rights[team] = CastleLong
		default:
			rights[team] = CastleNone
		}
	}
	return rights
}

func unmovedRook(p *Piece, team Team) bool {
	return p != nil && p.Type == Rook && p.Team == team && !p.HasMoved
}

// enPassantAvailable reports whether the side to move has a pawn that
// stands beside the landing square of an enemy double-step.
func (e *Engine) enPassantAvailable() bool {
	last, ok := e.history.LastMove()
	if !ok {
		return false
	}
	moved := e.board.PieceAt(last.To)
	if moved == nil || moved.Type != Pawn || moved.Team == e.side || DistanceY(last.From, last.To) != 2 {
		return false
	}

	for _, dx := range []int{-1, 1} {
		beside := Vector2d{last.To.X + dx, last.To.Y}
		if p := e.board.PieceAt(beside); p != nil && p.Type == Pawn && p.Team == e.side {
			return true
		}
	}
	return false
}

func startingPieces() []*Piece {
	var pieces []*Piece
	for _, team := range []Team{White, Black} {
		home, pawns := FirstRank(team), SecondRank(team)
		for x := 0; x < 8; x++ {
			pieces = append(pieces, NewPiece(Pawn, team, Vector2d{x, pawns}))
		}
		pieces = append(pieces,
			NewPiece(Rook, team, Vector2d{0, home}),
			NewPiece(Knight, team, Vector2d{1, home}),
			NewPiece(Bishop, team, Vector2d{2, home}),
			NewPiece(Queen, team, Vector2d{3, home}),
			NewPiece(King, team, Vector2d{4, home}),
			NewPiece(Bishop, team, Vector2d{5, home}),
			NewPiece(Knight, team, Vector2d{6, home}),
			NewPiece(Rook, team, Vector2d{7, home}),
		)
	}
	return pieces
}
