package chess

// Team represents the side a piece belongs to.
type Team uint8

const (
	White Team = iota
	Black
)

// Other returns the opposite team.
func (t Team) Other() Team {
	return t ^ 1
}

// String returns the wire name of the team.
func (t Team) String() string {
	if t == White {
		return "WHITE"
	}
	return "BLACK"
}

// PieceType represents the kind of a chess piece. The numeric values
// are the wire encoding and must not change.
type PieceType uint8

const (
	Pawn PieceType = iota + 1
	Knight
	Bishop
	Rook
	Queen
	King
)

// PieceTypeFromCode converts a wire code to a PieceType.
func PieceTypeFromCode(code int) (PieceType, bool) {
	if code < int(Pawn) || code > int(King) {
		return 0, false
	}
	return PieceType(code), true
}

// String returns the piece type name.
func (pt PieceType) String() string {
	switch pt {
	case Pawn:
		return "Pawn"
	case Knight:
		return "Knight"
	case Bishop:
		return "Bishop"
	case Rook:
		return "Rook"
	case Queen:
		return "Queen"
	case King:
		return "King"
	default:
		return "None"
	}
}

// Piece is a chess piece placed on the board. Pieces are referenced by
// pointer: the engine tracks checker identity through the board maps.
type Piece struct {
	Type     PieceType
	Team     Team
	Position Vector2d
	HasMoved bool
}

// NewPiece returns a piece that has not moved yet.
func NewPiece(pt PieceType, team Team, pos Vector2d) *Piece {
	return &Piece{Type: pt, Team: team, Position: pos}
}

// Per-kind movement data. Sliders iterate along directions, steppers
// use fixed offsets, pawns depend on team.
var (
	knightOffsets = []Vector2d{
		{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1},
	}
	bishopDirections = []Vector2d{UpRight, DownRight, DownLeft, UpLeft}
	rookDirections   = []Vector2d{Up, Right, Down, Left}
	royalDirections  = []Vector2d{UpRight, DownRight, DownLeft, UpLeft, Up, Right, Down, Left}

	pawnMoves   = map[Team][]Vector2d{White: {Up}, Black: {Down}}
	pawnAttacks = map[Team][]Vector2d{White: {UpLeft, UpRight}, Black: {DownLeft, DownRight}}
)

// MoveVectors returns the movement vectors of the piece: directions for
// sliders, fixed offsets for knights and kings, the push direction for
// pawns.
func (p *Piece) MoveVectors() []Vector2d {
	switch p.Type {
	case Pawn:
		return pawnMoves[p.Team]
	case Knight:
		return knightOffsets
	case Bishop:
		return bishopDirections
	case Rook:
		return rookDirections
	default:
		return royalDirections
	}
}

// AttackVectors returns the capture vectors of a pawn. For every other
// piece they equal MoveVectors.
func (p *Piece) AttackVectors() []Vector2d {
	if p.Type == Pawn {
		return pawnAttacks[p.Team]
	}
	return p.MoveVectors()
}

// PieceSet groups the pieces of one team for cheap per-team
// enumeration. It is kept in sync with the board cell map.
type PieceSet struct {
	Pawns   []*Piece
	Knights []*Piece
	Bishops []*Piece
	Rooks   []*Piece
	Queens  []*Piece
	King    *Piece
}

// Add inserts the piece into its group.
func (s *PieceSet) Add(p *Piece) {
	switch p.Type {
	case Pawn:
		s.Pawns = append(s.Pawns, p)
	case Knight:
		s.Knights = append(s.Knights, p)
	case Bishop:
		s.Bishops = append(s.Bishops, p)
	case Rook:
		s.Rooks = append(s.Rooks, p)
	case Queen:
		s.Queens = append(s.Queens, p)
	case King:
		s.King = p
	}
}

func removePiece(group []*Piece, p *Piece) []*Piece {
	for i, q := range group {
		if q == p {
			return append(group[:i], group[i+1:]...)
		}
	}
	return group
}

// Remove deletes the piece from its group. Kings are never removed.
func (s *PieceSet) Remove(p *Piece) {
	switch p.Type {
	case Pawn:
		s.Pawns = removePiece(s.Pawns, p)
	case Knight:
		s.Knights = removePiece(s.Knights, p)
	case Bishop:
		s.Bishops = removePiece(s.Bishops, p)
	case Rook:
		s.Rooks = removePiece(s.Rooks, p)
	case Queen:
		s.Queens = removePiece(s.Queens, p)
	}
}

// All returns every piece of the set.
func (s *PieceSet) All() []*Piece {
	all := make([]*Piece, 0, 16)
	all = append(all, s.Pawns...)
	all = append(all, s.Knights...)
	all = append(all, s.Bishops...)
	all = append(all, s.Rooks...)
	all = append(all, s.Queens...)
	if s.King != nil {
		all = append(all, s.King)
	}
	return all
}

// Len returns the number of pieces in the set.
func (s *PieceSet) Len() int {
	n := len(s.Pawns) + len(s.Knights) + len(s.Bishops) + len(s.Rooks) + len(s.Queens)
	if s.King != nil {
		n++
	}
	return n
}
