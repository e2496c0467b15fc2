package geom

import "github.com/chewxy/math32"

// Epsilon is the per-component tolerance used for position equality.
const Epsilon float32 = 1e-4

// Vec2 is a 2D position.
type Vec2 struct {
	X float32 `yaml:"x" json:"x"`
	Y float32 `yaml:"y" json:"y"`
}

// V constructs a Vec2.
func V(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

// Add returns a+b.
func (a Vec2) Add(b Vec2) Vec2 {
	return Vec2{X: a.X + b.X, Y: a.Y + b.Y}
}

// Sub returns a-b.
func (a Vec2) Sub(b Vec2) Vec2 {
	return Vec2{X: a.X - b.X, Y: a.Y - b.Y}
}

// Scale returns a*s.
func (a Vec2) Scale(s float32) Vec2 {
	return Vec2{X: a.X * s, Y: a.Y * s}
}

// Dot returns the dot product of a and b.
func (a Vec2) Dot(b Vec2) float32 {
	return a.X*b.X + a.Y*b.Y
}

// Len returns the Euclidean length of a.
func (a Vec2) Len() float32 {
	return math32.Hypot(a.X, a.Y)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec2) float32 {
	return math32.Hypot(a.X-b.X, a.Y-b.Y)
}

// SquaredDistance returns the squared Euclidean distance between a and b.
func SquaredDistance(a, b Vec2) float32 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// Equal reports whether every component of a and b differs by at most Epsilon.
func Equal(a, b Vec2) bool {
	return math32.Abs(a.X-b.X) <= Epsilon && math32.Abs(a.Y-b.Y) <= Epsilon
}

// Lerp interpolates between a and b.
func Lerp(a, b Vec2, t float32) Vec2 {
	return Vec2{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// ProjectSegment returns the point on segment ab closest to p together with
// its parameter t in [0, 1]. A degenerate segment projects onto a with t=0.
func ProjectSegment(p, a, b Vec2) (Vec2, float32) {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq < Epsilon*Epsilon {
		return a, 0
	}

	t := p.Sub(a).Dot(ab) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	return Lerp(a, b, t), t
}

// Min returns the component-wise minimum of a and b.
func Min(a, b Vec2) Vec2 {
	return Vec2{X: math32.Min(a.X, b.X), Y: math32.Min(a.Y, b.Y)}
}

// Max returns the component-wise maximum of a and b.
func Max(a, b Vec2) Vec2 {
	return Vec2{X: math32.Max(a.X, b.X), Y: math32.Max(a.Y, b.Y)}
}

// Quantize snaps p onto a grid of the given step and returns the integer cell.
// A non-positive step is treated as 1.
func Quantize(p Vec2, step float32) (int32, int32) {
	if step <= 0 {
		step = 1
	}
	return int32(math32.Floor(p.X / step)), int32(math32.Floor(p.Y / step))
}
