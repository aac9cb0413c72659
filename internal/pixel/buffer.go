// RGBA pixel buffer shared by loaders, transforms and display surfaces
package pixel

import (
	"errors"
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Channels is the number of samples stored per pixel (R, G, B, A).
const Channels = 4

// MaxDimension bounds width and height to keep allocations reasonable.
const MaxDimension = 16384

var ErrInvalidDimensions = errors.New("invalid buffer dimensions")

// Buffer is a rectangular grid of 8-bit, non-premultiplied RGBA samples.
// Pix holds Width*Height*4 bytes in row-major order.
//
// A Buffer handed to an executor is treated as read-only by everyone.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed buffer.
func New(width, height int) (*Buffer, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*Channels),
	}, nil
}

// Wrap builds a buffer around existing samples without copying them.
func Wrap(width, height int, pix []uint8) (*Buffer, error) {
	b := &Buffer{Width: width, Height: height, Pix: pix}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// FromImage converts any decoded image into a buffer with its origin at (0, 0).
// A tightly packed NRGBA image at the origin is wrapped, not copied, so the
// buffer takes over its samples.
func FromImage(img image.Image) (*Buffer, error) {
	if img == nil {
		return nil, fmt.Errorf("cannot convert nil image")
	}

	bounds := img.Bounds()
	if src, ok := img.(*image.NRGBA); ok && bounds.Min == (image.Point{}) && src.Stride == bounds.Dx()*Channels {
		return Wrap(bounds.Dx(), bounds.Dy(), src.Pix[:bounds.Dx()*bounds.Dy()*Channels])
	}

	buf, err := New(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	// NRGBA already matches the buffer layout row by row.
	if src, ok := img.(*image.NRGBA); ok {
		rowLen := buf.Width * Channels
		for y := 0; y < buf.Height; y++ {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(buf.Pix[y*rowLen:(y+1)*rowLen], src.Pix[off:off+rowLen])
		}
		return buf, nil
	}

	dst := &image.NRGBA{
		Pix:    buf.Pix,
		Stride: buf.Width * Channels,
		Rect:   image.Rect(0, 0, buf.Width, buf.Height),
	}
	xdraw.Draw(dst, dst.Rect, img, bounds.Min, xdraw.Src)
	return buf, nil
}

// Validate checks the sample count against the dimensions.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidDimensions)
	}
	if err := checkDimensions(b.Width, b.Height); err != nil {
		return err
	}
	if want := b.Width * b.Height * Channels; len(b.Pix) != want {
		return fmt.Errorf("%w: %d samples for %dx%d, want %d",
			ErrInvalidDimensions, len(b.Pix), b.Width, b.Height, want)
	}
	return nil
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// SameSize reports whether both buffers have identical dimensions.
func (b *Buffer) SameSize(other *Buffer) bool {
	return other != nil && b.Width == other.Width && b.Height == other.Height
}

// PixelCount returns Width*Height.
func (b *Buffer) PixelCount() int {
	return b.Width * b.Height
}

// Offset returns the index of the R sample of pixel (x, y).
func (b *Buffer) Offset(x, y int) int {
	return (y*b.Width + x) * Channels
}

// RGBA returns the four samples of pixel (x, y).
func (b *Buffer) RGBA(x, y int) (r, g, bl, a uint8) {
	i := b.Offset(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// ToImage exposes the buffer as an image.NRGBA sharing the same samples.
func (b *Buffer) ToImage() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * Channels,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Saturate stores an integer sample the way a clamped byte array does:
// negatives become 0 and anything above 255 becomes 255.
func Saturate(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > math.MaxUint8 {
		return math.MaxUint8
	}
	return uint8(v)
}

// SaturateFloat rounds half to even before saturating.
func SaturateFloat(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return Saturate(int(math.RoundToEven(math.Max(-1, math.Min(v, 256)))))
}

func checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidDimensions, width, height, MaxDimension)
	}
	return nil
}
