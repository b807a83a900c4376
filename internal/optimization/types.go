package optimization

import "math"

// Bounds is a box constraint holding [min, max] for each dimension.
type Bounds [][2]float64

// Dim returns the number of dimensions of the box.
func (b Bounds) Dim() int { return len(b) }

// Validate checks that the box is non-empty and that no interval is inverted
// or contains NaN.
func (b Bounds) Validate() error {
	if len(b) == 0 {
		return WrapError(ErrInvalidBounds, "box has no dimensions")
	}
	for i, iv := range b {
		if math.IsNaN(iv[0]) || math.IsNaN(iv[1]) || iv[0] > iv[1] {
			return WrapErrorf(ErrInvalidBounds, "dimension %d: [%v, %v]", i, iv[0], iv[1])
		}
	}
	return nil
}

// Contains reports whether x lies inside the box.
func (b Bounds) Contains(x []float64) bool {
	if len(x) != len(b) {
		return false
	}
	for i, v := range x {
		if v < b[i][0] || v > b[i][1] {
			return false
		}
	}
	return true
}

// Clip writes the projection of x onto the box into dst and returns it.
// If dst is nil a new slice is allocated.
func (b Bounds) Clip(dst, x []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(x))
	}
	for i, v := range x {
		dst[i] = math.Max(b[i][0], math.Min(v, b[i][1]))
	}
	return dst
}

// ToUnit maps x from the box into [0,1]^d. Degenerate dimensions map to 0.
func (b Bounds) ToUnit(dst, x []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(x))
	}
	for i, v := range x {
		w := b[i][1] - b[i][0]
		if w == 0 {
			dst[i] = 0
			continue
		}
		dst[i] = (v - b[i][0]) / w
	}
	return dst
}

// FromUnit maps u from [0,1]^d back into the box. The result is clamped so
// rounding never leaves the box.
func (b Bounds) FromUnit(dst, u []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(u))
	}
	for i, v := range u {
		x := b[i][0] + v*(b[i][1]-b[i][0])
		dst[i] = math.Max(b[i][0], math.Min(x, b[i][1]))
	}
	return dst
}
