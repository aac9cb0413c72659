// Concrete implementations of quality metrics
package metrics

import (
	"math"

	"deep-fryer/internal/pixel"
)

// MSE implements mean squared error over the R, G and B channels
type MSE struct{}

// NewMSE creates a new MSE metric
func NewMSE() *MSE {
	return &MSE{}
}

func (m *MSE) Calculate(original, processed *pixel.Buffer) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}
	return meanSquaredError(original, processed), nil
}

func (m *MSE) GetName() string              { return "MSE" }
func (m *MSE) GetDescription() string       { return "Mean squared error over RGB channels" }
func (m *MSE) GetRange() (float64, float64) { return 0, 255 * 255 }
func (m *MSE) IsHigherBetter() bool         { return false }

// PSNR implements Peak Signal-to-Noise Ratio metric
type PSNR struct{}

// NewPSNR creates a new PSNR metric
func NewPSNR() *PSNR {
	return &PSNR{}
}

func (p *PSNR) Calculate(original, processed *pixel.Buffer) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}

	mse := meanSquaredError(original, processed)
	if mse == 0 {
		return math.Inf(1), nil // Perfect match
	}

	maxVal := 255.0
	return 20 * math.Log10(maxVal/math.Sqrt(mse)), nil
}

func (p *PSNR) GetName() string              { return "PSNR" }
func (p *PSNR) GetDescription() string       { return "Peak signal-to-noise ratio in dB" }
func (p *PSNR) GetRange() (float64, float64) { return 0, 100 }
func (p *PSNR) IsHigherBetter() bool         { return true }

// WhiteRatio is the fraction of processed pixels whose R, G and B are all 255.
// It ignores the original and is most useful for the binarizing transforms.
type WhiteRatio struct{}

// NewWhiteRatio creates a new white ratio metric
func NewWhiteRatio() *WhiteRatio {
	return &WhiteRatio{}
}

func (w *WhiteRatio) Calculate(original, processed *pixel.Buffer) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}

	white := 0
	for i := 0; i < len(processed.Pix); i += pixel.Channels {
		if processed.Pix[i] == 255 && processed.Pix[i+1] == 255 && processed.Pix[i+2] == 255 {
			white++
		}
	}
	return float64(white) / float64(processed.PixelCount()), nil
}

func (w *WhiteRatio) GetName() string              { return "White ratio" }
func (w *WhiteRatio) GetDescription() string       { return "Fraction of pure white pixels" }
func (w *WhiteRatio) GetRange() (float64, float64) { return 0, 1 }
func (w *WhiteRatio) IsHigherBetter() bool         { return true }

func meanSquaredError(original, processed *pixel.Buffer) float64 {
	sumSquaredDiff := 0.0
	for i := 0; i < len(original.Pix); i += pixel.Channels {
		for c := 0; c < 3; c++ {
			diff := float64(original.Pix[i+c]) - float64(processed.Pix[i+c])
			sumSquaredDiff += diff * diff
		}
	}
	return sumSquaredDiff / float64(original.PixelCount()*3)
}
