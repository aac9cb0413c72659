package loader

import (
	"image"
	"image/color"
	"math"
	"sort"
)

const (
	presetWidth  = 480
	presetHeight = 320
)

type presetFunc func(w, h int) image.Image

var presets = map[string]presetFunc{
	"gradient": gradientPreset,
	"checker":  checkerPreset,
	"spectrum": spectrumPreset,
}

// DefaultPreset is shown on startup.
const DefaultPreset = "gradient"

// Presets returns the preset ids in stable order, default first.
func Presets() []string {
	ids := make([]string, 0, len(presets))
	for id := range presets {
		if id != DefaultPreset {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return append([]string{DefaultPreset}, ids...)
}

// gradientPreset ramps luminance left to right and red top to bottom.
func gradientPreset(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / max(w-1, 1))
			r := uint8(y * 255 / max(h-1, 1))
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: v, B: v, A: 255})
		}
	}
	return img
}

// checkerPreset alternates 32px gray tiles over a soft diagonal fade, with
// a translucent band to exercise alpha.
func checkerPreset(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			base := 60
			if (x/32+y/32)%2 == 0 {
				base = 180
			}
			fade := (x + y) * 60 / (w + h)
			v := uint8(base + fade)
			a := uint8(255)
			if y > h*3/4 {
				a = 160
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: a})
		}
	}
	return img
}

// spectrumPreset sweeps hue horizontally and brightness vertically.
func spectrumPreset(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		value := 1 - float64(y)/float64(max(h, 1))
		for x := 0; x < w; x++ {
			hue := float64(x) / float64(max(w, 1)) * 360
			r, g, b := hsvToRGB(hue, 1, value)
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return uint8(math.Round((r + m) * 255)), uint8(math.Round((g + m) * 255)), uint8(math.Round((b + m) * 255))
}
