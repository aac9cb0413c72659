// Fixed catalog of per-pixel transforms
package algorithms

import (
	"errors"
	"fmt"
	"strings"

	"deep-fryer/internal/pixel"
)

var ErrUnknownName = errors.New("unknown transform")

// Name identifies one catalog entry. The zero value is Grayscale.
type Name int

const (
	Grayscale Name = iota
	Random
	Bayer
	BayerRGB
	ClampGrayscale
	Clamp
	Invert
	InvertShifted

	numNames
)

var nameStrings = [numNames]string{
	Grayscale:      "grayscale",
	Random:         "random",
	Bayer:          "bayer",
	BayerRGB:       "bayerRGB",
	ClampGrayscale: "clampGrayscale",
	Clamp:          "clamp",
	Invert:         "invert",
	InvertShifted:  "invertShifted",
}

func (n Name) String() string {
	if !n.Valid() {
		return fmt.Sprintf("Name(%d)", int(n))
	}
	return nameStrings[n]
}

// Valid reports whether n is a catalog entry.
func (n Name) Valid() bool {
	return n >= 0 && n < numNames
}

// ParseName resolves an identifier such as "bayerRGB". Matching ignores case.
func ParseName(s string) (Name, error) {
	for i, str := range nameStrings {
		if strings.EqualFold(str, s) {
			return Name(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownName, s)
}

// Func maps a source buffer and a threshold in [0, 255] to a new buffer of
// the same size. Implementations never write to src.
type Func func(src *pixel.Buffer, threshold int) *pixel.Buffer

// Descriptor binds a catalog name to its transform.
type Descriptor struct {
	Name          Name
	Func          Func
	Description   string
	UsesThreshold bool
}

var catalog = [numNames]Descriptor{
	Grayscale: {
		Name:          Grayscale,
		Func:          grayscale,
		Description:   "Binary threshold on the red sample",
		UsesThreshold: true,
	},
	Random: {
		Name:          Random,
		Func:          random,
		Description:   "Stochastic dither against threshold times a uniform sample",
		UsesThreshold: true,
	},
	Bayer: {
		Name:          Bayer,
		Func:          bayer,
		Description:   "4x4 ordered dither, monochrome",
		UsesThreshold: true,
	},
	BayerRGB: {
		Name:          BayerRGB,
		Func:          bayerRGB,
		Description:   "4x4 ordered dither per color channel",
		UsesThreshold: true,
	},
	ClampGrayscale: {
		Name:        ClampGrayscale,
		Func:        clampGrayscale,
		Description: "Red sample quantized to a six level gray palette",
	},
	Clamp: {
		Name:        Clamp,
		Func:        clamp,
		Description: "Each channel quantized to a six level palette",
	},
	Invert: {
		Name:        Invert,
		Func:        invert,
		Description: "256 minus each channel",
	},
	InvertShifted: {
		Name:        InvertShifted,
		Func:        invertShifted,
		Description: "Inversion with channels rotated (B, R, G)",
	},
}

// Catalog returns every descriptor in display order.
func Catalog() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog[:])
	return out
}

// Names returns every catalog name in display order.
func Names() []Name {
	out := make([]Name, numNames)
	for i := range out {
		out[i] = Name(i)
	}
	return out
}

// Get returns the descriptor for name.
func Get(name Name) (Descriptor, bool) {
	if !name.Valid() {
		return Descriptor{}, false
	}
	return catalog[name], true
}

// Apply runs the named transform.
func Apply(name Name, src *pixel.Buffer, threshold int) (*pixel.Buffer, error) {
	desc, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownName, name)
	}
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("apply %s: %w", name, err)
	}
	return desc.Func(src, threshold), nil
}

// ClampThreshold limits v to [0, 255]. Callers clamp; transforms do not.
func ClampThreshold(v int) int {
	return int(pixel.Saturate(v))
}
