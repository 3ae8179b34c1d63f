package protocol

import "github.com/netchess/netchess/internal/chess"

// MoveMessage is the wire shape of a structural move. Positions are
// [x, y] pairs; the optional fields belong to specific move types.
type MoveMessage struct {
	Type             int   `json:"type"`
	PositionFrom     []int `json:"positionFrom"`
	PositionTo       []int `json:"positionTo"`
	RookFrom         []int `json:"rookFrom,omitempty"`
	RookTo           []int `json:"rookTo,omitempty"`
	CapturedPosition []int `json:"capturedPosition,omitempty"`
	PieceType        int   `json:"pieceType,omitempty"`
}

// ParseVector converts an [x, y] pair into a board position.
func ParseVector(data []int) (chess.Vector2d, error) {
	if len(data) != 2 {
		return chess.Vector2d{}, invalidf("invalid position format")
	}
	v := chess.Vector2d{X: data[0], Y: data[1]}
	if !chess.WithinBoard(v) {
		return chess.Vector2d{}, invalidf("position is not within board")
	}
	return v, nil
}

// ParseMove converts a wire move into a chess move, validating the
// move type, all positions and the promotion piece type.
func ParseMove(msg MoveMessage) (chess.Move, error) {
	moveType, ok := chess.MoveTypeFromCode(msg.Type)
	if !ok {
		return chess.Move{}, invalidf("unrecognized move type %d", msg.Type)
	}

	from, err := ParseVector(msg.PositionFrom)
	if err != nil {
		return chess.Move{}, err
	}
	to, err := ParseVector(msg.PositionTo)
	if err != nil {
		return chess.Move{}, err
	}

	switch moveType {
	case chess.MoveNormal:
		return chess.NewMove(from, to), nil
	case chess.MoveCapture:
		return chess.NewCapture(from, to), nil
	case chess.MoveCastling:
		rookFrom, err := ParseVector(msg.RookFrom)
		if err != nil {
			return chess.Move{}, err
		}
		rookTo, err := ParseVector(msg.RookTo)
		if err != nil {
			return chess.Move{}, err
		}
		return chess.NewCastling(from, to, rookFrom, rookTo), nil
	case chess.MoveEnPassant:
		captured, err := ParseVector(msg.CapturedPosition)
		if err != nil {
			return chess.Move{}, err
		}
		return chess.NewEnPassant(from, to, captured), nil
	default:
		pieceType, ok := chess.PieceTypeFromCode(msg.PieceType)
		if !ok {
			return chess.Move{}, invalidf("unrecognized piece type %d", msg.PieceType)
		}
		if moveType == chess.MovePromotion {
			return chess.NewPromotion(from, to, pieceType), nil
		}
		return chess.NewPromotionCapture(from, to, pieceType), nil
	}
}

// EncodeMove converts a chess move back into its wire shape.
func EncodeMove(m chess.Move) MoveMessage {
	msg := MoveMessage{
		Type:         int(m.Type),
		PositionFrom: []int{m.From.X, m.From.Y},
		PositionTo:   []int{m.To.X, m.To.Y},
	}
	switch m.Type {
	case chess.MoveCastling:
		msg.RookFrom = []int{m.RookFrom.X, m.RookFrom.Y}
		msg.RookTo = []int{m.RookTo.X, m.RookTo.Y}
	case chess.MoveEnPassant:
		msg.CapturedPosition = []int{m.Captured.X, m.Captured.Y}
	case chess.MovePromotion, chess.MovePromotionCapture:
		msg.PieceType = int(m.Promotion)
	}
	return msg
}
