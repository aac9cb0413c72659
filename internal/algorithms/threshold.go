package algorithms

import (
	"math/rand/v2"

	"deep-fryer/internal/pixel"
)

// Ordered dither matrix, indexed [x%4][y%4].
var bayerMatrix = [4][4]int{
	{15, 135, 45, 165},
	{195, 75, 225, 105},
	{60, 180, 30, 150},
	{240, 120, 210, 90},
}

// Red contribution to luminance for every 8-bit level.
var lumR = func() (t [256]uint8) {
	for i := range t {
		t[i] = pixel.SaturateFloat(float64(i) * 0.299)
	}
	return t
}()

// luminance writes the red-weighted luminance of src into R, G and B of dst.
// Only the red table is used for all three channels.
func luminance(src, dst *pixel.Buffer) {
	for i := 0; i < len(src.Pix); i += pixel.Channels {
		l := lumR[src.Pix[i]]
		dst.Pix[i] = l
		dst.Pix[i+1] = l
		dst.Pix[i+2] = l
	}
}

func setGray(pix []uint8, i int, v uint8) {
	pix[i] = v
	pix[i+1] = v
	pix[i+2] = v
}

func grayscale(src *pixel.Buffer, threshold int) *pixel.Buffer {
	out := src.Clone()
	luminance(src, out)

	for i := 0; i < len(src.Pix); i += pixel.Channels {
		v := 0
		if int(src.Pix[i]) > threshold {
			v = 256
		}
		setGray(out.Pix, i, pixel.Saturate(v))
	}
	return out
}

func random(src *pixel.Buffer, threshold int) *pixel.Buffer {
	return randomDither(src, threshold, rand.Float64)
}

// randomDither compares each red sample with threshold*u where u is drawn
// from uniform once per pixel.
func randomDither(src *pixel.Buffer, threshold int, uniform func() float64) *pixel.Buffer {
	out := src.Clone()
	luminance(src, out)

	t := float64(threshold)
	for i := 0; i < len(src.Pix); i += pixel.Channels {
		v := 0
		if float64(src.Pix[i]) > uniform()*t {
			v = 256
		}
		setGray(out.Pix, i, pixel.Saturate(v))
	}
	return out
}

func orderedDither(sample uint8, x, y, threshold int) uint8 {
	mapped := (int(sample) + bayerMatrix[x%4][y%4]) / 2
	if mapped < threshold {
		return 0
	}
	return 255
}

func bayer(src *pixel.Buffer, threshold int) *pixel.Buffer {
	out := src.Clone()
	luminance(src, out)

	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			i := src.Offset(x, y)
			setGray(out.Pix, i, orderedDither(src.Pix[i], x, y, threshold))
		}
	}
	return out
}

func bayerRGB(src *pixel.Buffer, threshold int) *pixel.Buffer {
	out := src.Clone()

	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			i := src.Offset(x, y)
			for c := 0; c < 3; c++ {
				out.Pix[i+c] = orderedDither(src.Pix[i+c], x, y, threshold)
			}
		}
	}
	return out
}
