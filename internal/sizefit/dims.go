package sizefit

import "math"

// scaleDims applies scale to both sides, rounding to the nearest pixel
// and never going below 1px.
func scaleDims(w, h int, scale float64) (int, int) {
	return atLeastOne(float64(w) * scale), atLeastOne(float64(h) * scale)
}

// ResolveDimensions computes the output size a DimensionSpec asks for on a
// w×h source.
func ResolveDimensions(w, h int, spec DimensionSpec) (int, int) {
	if spec.Percent > 0 {
		return scaleDims(w, h, spec.Percent/100)
	}

	tw, th := spec.Width, spec.Height
	switch {
	case tw > 0 && th > 0:
		return tw, th
	case tw > 0:
		if spec.KeepAspect && w > 0 {
			return tw, atLeastOne(float64(tw) * float64(h) / float64(w))
		}
		return tw, h
	case th > 0:
		if spec.KeepAspect && h > 0 {
			return atLeastOne(float64(th) * float64(w) / float64(h)), th
		}
		return w, th
	}
	return w, h
}

func atLeastOne(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}

// round2 keeps repeated quality steps from drifting (0.95-0.05 != 0.9).
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
