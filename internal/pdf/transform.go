package pdf

import "math"

// Transform converts a normalized editor-space placement (origin top-left,
// y growing downward) into absolute page coordinates (origin bottom-left,
// y growing upward). Results are clamped to the page so a draw call never
// lands outside it, even for out-of-range input. ok is false when either
// coordinate is non-finite; the caller must skip the draw instead of
// drawing at a clamped default, which would mask bad data.
func Transform(x, y, width, height float64) (absX, absY float64, ok bool) {
	if !finite(x) || !finite(y) {
		return 0, 0, false
	}
	absX = clamp(x*width, 0, width)
	absY = clamp((1-y)*height, 0, height)
	return absX, absY, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
