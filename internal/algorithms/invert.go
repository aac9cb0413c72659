package algorithms

import "deep-fryer/internal/pixel"

// inv complements against 256, so 0 saturates to 255 and 255 becomes 1.
func inv(v uint8) uint8 {
	return pixel.Saturate(256 - int(v))
}

func invert(src *pixel.Buffer, _ int) *pixel.Buffer {
	out := src.Clone()
	for i := 0; i < len(src.Pix); i += pixel.Channels {
		out.Pix[i] = inv(src.Pix[i])
		out.Pix[i+1] = inv(src.Pix[i+1])
		out.Pix[i+2] = inv(src.Pix[i+2])
	}
	return out
}

func invertShifted(src *pixel.Buffer, _ int) *pixel.Buffer {
	out := src.Clone()
	for i := 0; i < len(src.Pix); i += pixel.Channels {
		r, g, b := src.Pix[i], src.Pix[i+1], src.Pix[i+2]
		out.Pix[i] = inv(b)
		out.Pix[i+1] = inv(r)
		out.Pix[i+2] = inv(g)
	}
	return out
}
