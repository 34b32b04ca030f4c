package engine

import "math"

// Matrix2D is an affine map in Canvas order [a b c d e f]:
//
//	x' = a*x + c*y + e
//	y' = b*x + d*y + f
type Matrix2D [6]float64

func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// Multiply composes m with n; n is applied first.
func (m Matrix2D) Multiply(n Matrix2D) Matrix2D {
	var out Matrix2D
	out[0] = m[0]*n[0] + m[2]*n[1]
	out[1] = m[1]*n[0] + m[3]*n[1]
	out[2] = m[0]*n[2] + m[2]*n[3]
	out[3] = m[1]*n[2] + m[3]*n[3]
	out[4], out[5] = m.TransformPoint(n[4], n[5])
	return out
}

func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// TransformRect maps the corners of r and returns their bounding box. The
// result always has non-negative width and height, even when m flips an
// axis the way the view's y-up mapping does.
func (m Matrix2D) TransformRect(r Rect) Rect {
	xs := [4]float64{}
	ys := [4]float64{}
	xs[0], ys[0] = m.TransformPoint(r.X, r.Y)
	xs[1], ys[1] = m.TransformPoint(r.X+r.Width, r.Y)
	xs[2], ys[2] = m.TransformPoint(r.X+r.Width, r.Y+r.Height)
	xs[3], ys[3] = m.TransformPoint(r.X, r.Y+r.Height)

	minX, maxX := min(xs[0], xs[1], xs[2], xs[3]), max(xs[0], xs[1], xs[2], xs[3])
	minY, maxY := min(ys[0], ys[1], ys[2], ys[3]), max(ys[0], ys[1], ys[2], ys[3])
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// LinearScale is the factor by which m scales lengths on average, used to
// size text drawn under a transform.
func (m Matrix2D) LinearScale() float64 {
	return math.Sqrt(math.Abs(m.Determinant()))
}

// Invert returns the inverse of m. A singular matrix has none and yields
// Identity.
func (m Matrix2D) Invert() Matrix2D {
	det := m.Determinant()
	if det == 0 {
		return Identity()
	}
	a, b, c, d := m[3]/det, -m[1]/det, -m[2]/det, m[0]/det
	return Matrix2D{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}
}

// ToSlice returns the six coefficients for a draw command.
func (m Matrix2D) ToSlice() []float64 {
	return m[:]
}
