package chess

// MoveType distinguishes the move variants. The numeric values are the
// wire encoding and must not change.
type MoveType uint8

const (
	MoveNormal MoveType = iota + 1
	MoveCapture
	MoveCastling
	MoveEnPassant
	MovePromotion
	MovePromotionCapture
)

// MoveTypeFromCode converts a wire code to a MoveType.
func MoveTypeFromCode(code int) (MoveType, bool) {
	if code < int(MoveNormal) || code > int(MovePromotionCapture) {
		return 0, false
	}
	return MoveType(code), true
}

// String returns the move type name.
func (mt MoveType) String() string {
	switch mt {
	case MoveNormal:
		return "Move"
	case MoveCapture:
		return "Capture"
	case MoveCastling:
		return "Castling"
	case MoveEnPassant:
		return "EnPassant"
	case MovePromotion:
		return "Promotion"
	case MovePromotionCapture:
		return "PromotionWithCapture"
	default:
		return "None"
	}
}

// Move is a structural chess move. The struct is comparable: equality
// covers the type, both squares and the variant fields, so generated
// moves can be validated against client moves with ==.
//
// RookFrom and RookTo are meaningful only for castling, Captured only
// for en passant, Promotion only for the promotion variants; unused
// fields stay zero.
type Move struct {
	Type      MoveType
	From, To  Vector2d
	RookFrom  Vector2d
	RookTo    Vector2d
	Captured  Vector2d
	Promotion PieceType
}

// NewMove returns a plain move.
func NewMove(from, to Vector2d) Move {
	return Move{Type: MoveNormal, From: from, To: to}
}

// NewCapture returns a capturing move.
func NewCapture(from, to Vector2d) Move {
	return Move{Type: MoveCapture, From: from, To: to}
}

// NewCastling returns a castling move with the accompanying rook move.
func NewCastling(from, to, rookFrom, rookTo Vector2d) Move {
	return Move{Type: MoveCastling, From: from, To: to, RookFrom: rookFrom, RookTo: rookTo}
}

// NewEnPassant returns an en passant capture; captured is the square
// of the captured pawn.
func NewEnPassant(from, to, captured Vector2d) Move {
	return Move{Type: MoveEnPassant, From: from, To: to, Captured: captured}
}

// NewPromotion returns a promotion to pt.
func NewPromotion(from, to Vector2d, pt PieceType) Move {
	return Move{Type: MovePromotion, From: from, To: to, Promotion: pt}
}

// NewPromotionCapture returns a capturing promotion to pt.
func NewPromotionCapture(from, to Vector2d, pt PieceType) Move {
	return Move{Type: MovePromotionCapture, From: from, To: to, Promotion: pt}
}

// IsCapture reports whether the move removes an enemy piece.
func (m Move) IsCapture() bool {
	return m.Type == MoveCapture || m.Type == MoveEnPassant || m.Type == MovePromotionCapture
}
