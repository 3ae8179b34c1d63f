// Package chess implements the rules of chess on an 8x8 board:
// move generation, legality checking, check and mate detection, and
// the draw conditions (repetition, fifty-move rule, material).
package chess

import "fmt"

// Vector2d is a signed 2D vector used both as a board coordinate and
// as a direction. Board coordinates use White's bottom-left as (0,0).
type Vector2d struct {
	X, Y int
}

// Direction unit vectors.
var (
	Up        = Vector2d{0, 1}
	UpRight   = Vector2d{1, 1}
	Right     = Vector2d{1, 0}
	DownRight = Vector2d{1, -1}
	Down      = Vector2d{0, -1}
	DownLeft  = Vector2d{-1, -1}
	Left      = Vector2d{-1, 0}
	UpLeft    = Vector2d{-1, 1}
)

// Add returns v + o.
func (v Vector2d) Add(o Vector2d) Vector2d {
	return Vector2d{v.X + o.X, v.Y + o.Y}
}

// Sub returns v - o.
func (v Vector2d) Sub(o Vector2d) Vector2d {
	return Vector2d{v.X - o.X, v.Y - o.Y}
}

// Mul returns v scaled by k.
func (v Vector2d) Mul(k int) Vector2d {
	return Vector2d{k * v.X, k * v.Y}
}

// Div returns v divided component-wise by k.
func (v Vector2d) Div(k int) Vector2d {
	return Vector2d{v.X / k, v.Y / k}
}

// Neg returns -v.
func (v Vector2d) Neg() Vector2d {
	return Vector2d{-v.X, -v.Y}
}

func (v Vector2d) String() string {
	return fmt.Sprintf("(%d, %d)", v.X, v.Y)
}

// WithinBoard reports whether p is a valid board coordinate.
func WithinBoard(p Vector2d) bool {
	return p.X >= 0 && p.X < 8 && p.Y >= 0 && p.Y < 8
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// DistanceX returns the horizontal distance between a and b.
func DistanceX(a, b Vector2d) int {
	return abs(a.X - b.X)
}

// DistanceY returns the vertical distance between a and b.
func DistanceY(a, b Vector2d) int {
	return abs(a.Y - b.Y)
}

// SameFile reports whether a and b share a file (vertical line).
func SameFile(a, b Vector2d) bool {
	return a.X == b.X
}

// SameRank reports whether a and b share a rank (horizontal line).
func SameRank(a, b Vector2d) bool {
	return a.Y == b.Y
}

// SameRow reports whether a and b share a file or a rank.
func SameRow(a, b Vector2d) bool {
	return SameFile(a, b) || SameRank(a, b)
}

func sameRisingDiagonal(a, b Vector2d) bool {
	return a.X-b.X == a.Y-b.Y
}

func sameFallingDiagonal(a, b Vector2d) bool {
	return a.X-b.X == b.Y-a.Y
}

// SameDiagonal reports whether a and b share a diagonal.
func SameDiagonal(a, b Vector2d) bool {
	return sameRisingDiagonal(a, b) || sameFallingDiagonal(a, b)
}

// SameLine reports whether a and b share a file, rank or diagonal.
func SameLine(a, b Vector2d) bool {
	return SameRow(a, b) || SameDiagonal(a, b)
}

// SameLine3 reports whether a, b and a, c share the same kind of line.
func SameLine3(a, b, c Vector2d) bool {
	return SameFile(a, b) && SameFile(a, c) ||
		SameRank(a, b) && SameRank(a, c) ||
		sameRisingDiagonal(a, b) && sameRisingDiagonal(a, c) ||
		sameFallingDiagonal(a, b) && sameFallingDiagonal(a, c)
}

// Distance returns the Chebyshev step count between a and b.
// It assumes a and b share a line.
func Distance(a, b Vector2d) int {
	if SameFile(a, b) {
		return DistanceY(a, b)
	}
	return DistanceX(a, b)
}

// IsBetween reports whether p lies strictly between u and v.
// It assumes all three positions are colinear.
func IsBetween(p, u, v Vector2d) bool {
	d := Distance(u, v)
	return Distance(p, u) < d && Distance(p, v) < d
}

// UnitVectorTo returns the unit step from a toward b.
// It assumes a and b share a line.
func UnitVectorTo(a, b Vector2d) Vector2d {
	return b.Sub(a).Div(Distance(a, b))
}

// SameColor reports whether a and b are squares of the same color.
func SameColor(a, b Vector2d) bool {
	return (a.X+a.Y)%2 == (b.X+b.Y)%2
}
