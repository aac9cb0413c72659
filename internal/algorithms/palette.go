package algorithms

import "deep-fryer/internal/pixel"

var clampPalette = [...]int{0, 50, 100, 150, 200, 255}

// nearest returns the closest palette level. On a tie the lower level wins.
func nearest(v uint8) uint8 {
	best := clampPalette[0]
	for _, p := range clampPalette[1:] {
		if abs(p-int(v)) < abs(best-int(v)) {
			best = p
		}
	}
	return uint8(best)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampGrayscale(src *pixel.Buffer, _ int) *pixel.Buffer {
	out := src.Clone()
	for i := 0; i < len(src.Pix); i += pixel.Channels {
		setGray(out.Pix, i, nearest(src.Pix[i]))
	}
	return out
}

func clamp(src *pixel.Buffer, _ int) *pixel.Buffer {
	out := src.Clone()
	for i := 0; i < len(src.Pix); i += pixel.Channels {
		out.Pix[i] = nearest(src.Pix[i])
		out.Pix[i+1] = nearest(src.Pix[i+1])
		out.Pix[i+2] = nearest(src.Pix[i+2])
	}
	return out
}
