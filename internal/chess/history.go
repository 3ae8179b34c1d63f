package chess

import (
	"fmt"
	"sort"
	"strings"
)

// CastleRight describes the castling options a team still has.
type CastleRight uint8

const (
	CastleNone CastleRight = iota
	CastleShort
	CastleLong
	CastleBoth
)

// Snapshot is a canonical encoding of a complete game state used as a
// repetition key: piece placement, side to move, castle rights and
// en passant availability. Two snapshots are equal iff all four
// components are equal. The placement is serialized in sorted square
// order so the encoding is stable regardless of map iteration order.
type Snapshot string

// snapshotOf builds the repetition key for the position with side to
// move.
func snapshotOf(b *Board, side Team, rights map[Team]CastleRight, enPassant bool) Snapshot {
	squares := make([]Vector2d, 0, 32)
	for _, p := range b.Pieces(White).All() {
		squares = append(squares, p.Position)
	}
	for _, p := range b.Pieces(Black).All() {
		squares = append(squares, p.Position)
	}
	sort.Slice(squares, func(i, j int) bool {
		if squares[i].Y != squares[j].Y {
			return squares[i].Y < squares[j].Y
		}
		return squares[i].X < squares[j].X
	})

	var sb strings.Builder
	for _, pos := range squares {
		p := b.PieceAt(pos)
		fmt.Fprintf(&sb, "%d%d%d%d;", pos.X, pos.Y, p.Type, p.Team)
	}
	fmt.Fprintf(&sb, "|%d|%d%d|%t", side, rights[White], rights[Black], enPassant)
	return Snapshot(sb.String())
}

// MoveHistory is the ordered list of played moves together with the
// bookkeeping for the repetition and fifty-move draw rules.
type MoveHistory struct {
	moves             []Move
	snapshots         map[Snapshot]int
	last              Snapshot
	hasLast           bool
	lastPawnOrCapture int
}

// NewMoveHistory returns a history primed with already played moves.
// The prior moves only establish ordering; snapshots are counted from
// the current position on.
func NewMoveHistory(moves []Move) *MoveHistory {
	h := &MoveHistory{
		snapshots: make(map[Snapshot]int),
	}
	h.moves = append(h.moves, moves...)
	h.lastPawnOrCapture = len(h.moves)
	return h
}

// LastMove returns the most recent move, if any.
func (h *MoveHistory) LastMove() (Move, bool) {
	if len(h.moves) == 0 {
		return Move{}, false
	}
	return h.moves[len(h.moves)-1], true
}

// Len returns the number of recorded half-moves.
func (h *MoveHistory) Len() int {
	return len(h.moves)
}

// Update appends the move. movedPawn tells whether the piece standing
// on the target square is a pawn; pawn moves and captures reset the
// fifty-move counter.
func (h *MoveHistory) Update(m Move, movedPawn bool) {
	h.moves = append(h.moves, m)
	if movedPawn || m.Type == MoveCapture || m.Type == MovePromotionCapture {
		h.lastPawnOrCapture = len(h.moves)
	}
}

// AddSnapshot counts an occurrence of the snapshot and remembers it as
// the current one.
func (h *MoveHistory) AddSnapshot(s Snapshot) {
	h.snapshots[s]++
	h.last = s
	h.hasLast = true
}

// RepeatedThreeTimes reports whether the current snapshot occurred at
// least three times.
func (h *MoveHistory) RepeatedThreeTimes() bool {
	return h.hasLast && h.snapshots[h.last] >= 3
}

// RepeatedFiveTimes reports whether the current snapshot occurred at
// least five times.
func (h *MoveHistory) RepeatedFiveTimes() bool {
	return h.hasLast && h.snapshots[h.last] >= 5
}

// FiftyMovesRuleSatisfied reports whether more than 100 half-moves
// were played since the last pawn move or capture.
func (h *MoveHistory) FiftyMovesRuleSatisfied() bool {
	return len(h.moves)-h.lastPawnOrCapture > 100
}
