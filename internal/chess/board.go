package chess

// Rank helpers. Ranks are horizontal lines of squares; the first rank
// is the home rank of a team's major pieces.

// FirstRank returns the home rank of the team.
func FirstRank(t Team) int {
	if t == White {
		return 0
	}
	return 7
}

// SecondRank returns the starting pawn rank of the team.
func SecondRank(t Team) int {
	if t == White {
		return 1
	}
	return 6
}

// Board maps squares to pieces and maintains per-team piece sets in
// sync with the cell map.
type Board struct {
	fields map[Vector2d]*Piece
	pieces map[Team]*PieceSet
}

// NewBoard returns a board populated with the given pieces.
func NewBoard(pieces []*Piece) *Board {
	b := &Board{
		fields: make(map[Vector2d]*Piece, 64),
		pieces: map[Team]*PieceSet{White: {}, Black: {}},
	}
	for _, p := range pieces {
		b.SetPiece(p)
	}
	return b
}

// PieceAt returns the piece on the square, or nil.
func (b *Board) PieceAt(pos Vector2d) *Piece {
	return b.fields[pos]
}

// Pieces returns the piece set of the team.
func (b *Board) Pieces(t Team) *PieceSet {
	return b.pieces[t]
}

// SetPiece places the piece on its square.
func (b *Board) SetPiece(p *Piece) {
	b.fields[p.Position] = p
	b.pieces[p.Team].Add(p)
}

// RemovePiece clears the square and drops the piece from its set.
func (b *Board) RemovePiece(pos Vector2d) {
	p := b.fields[pos]
	if p == nil {
		return
	}
	delete(b.fields, pos)
	b.pieces[p.Team].Remove(p)
}

// Move relocates the piece on from to to and marks it moved.
func (b *Board) Move(from, to Vector2d) {
	p := b.fields[from]
	delete(b.fields, from)
	b.fields[to] = p
	p.Position = to
	p.HasMoved = true
}

// AnyPieceBetween reports whether a piece stands strictly between a
// and b. It assumes a and b share a line.
func (b *Board) AnyPieceBetween(a, bb Vector2d) bool {
	unit := UnitVectorTo(a, bb)
	for pos := a.Add(unit); pos != bb; pos = pos.Add(unit) {
		if b.fields[pos] != nil {
			return true
		}
	}
	return false
}

// NextPieceOnLine walks unit steps from from in the direction of
// toward and returns the first piece hit, or nil if the walk leaves
// the board. It assumes from and toward share a line.
func (b *Board) NextPieceOnLine(from, toward Vector2d) *Piece {
	unit := UnitVectorTo(from, toward)
	for pos := from.Add(unit); WithinBoard(pos); pos = pos.Add(unit) {
		if p := b.fields[pos]; p != nil {
			return p
		}
	}
	return nil
}
