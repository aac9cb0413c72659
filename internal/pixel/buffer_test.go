package pixel

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	buf, err := New(3, 2)
	require.NoError(t, err)
	assert.Len(t, buf.Pix, 3*2*Channels)
	assert.Equal(t, 6, buf.PixelCount())
	assert.NoError(t, buf.Validate())
}

func TestNewRejectsBadDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 1}, {1, 0}, {-2, 4}, {MaxDimension + 1, 1}} {
		_, err := New(dims[0], dims[1])
		assert.ErrorIs(t, err, ErrInvalidDimensions, "dims %v", dims)
	}
}

func TestWrapChecksSampleCount(t *testing.T) {
	_, err := Wrap(2, 2, make([]uint8, 15))
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	buf, err := Wrap(2, 2, make([]uint8, 16))
	require.NoError(t, err)
	assert.Equal(t, 2, buf.Width)
}

func TestCloneIsDeep(t *testing.T) {
	buf, err := New(1, 1)
	require.NoError(t, err)
	buf.Pix[0] = 7

	c := buf.Clone()
	c.Pix[0] = 9
	assert.Equal(t, uint8(7), buf.Pix[0])
	assert.True(t, buf.SameSize(c))
}

func TestFromImageNRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 12, 11))
	img.SetNRGBA(10, 10, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	img.SetNRGBA(11, 10, color.NRGBA{R: 5, G: 6, B: 7, A: 8})

	buf, err := FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 3, 4, 5, 6, 7, 8}, buf.Pix)
}

func TestFromImageWrapsPackedNRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(1, 0, color.NRGBA{R: 9, A: 255})

	buf, err := FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 0, 0, 9, 0, 0, 255}, buf.Pix)

	img.Pix[0] = 42
	assert.Equal(t, uint8(42), buf.Pix[0])
}

func TestFromImageConvertsGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{Y: 128})
	img.SetGray(1, 0, color.Gray{Y: 255})

	buf, err := FromImage(img)
	require.NoError(t, err)

	r, g, b, a := buf.RGBA(0, 0)
	assert.Equal(t, [4]uint8{128, 128, 128, 255}, [4]uint8{r, g, b, a})
	r, _, _, _ = buf.RGBA(1, 0)
	assert.Equal(t, uint8(255), r)
}

func TestToImageSharesSamples(t *testing.T) {
	buf, err := New(2, 2)
	require.NoError(t, err)

	img := buf.ToImage()
	img.SetNRGBA(1, 1, color.NRGBA{R: 200, A: 255})
	r, _, _, a := buf.RGBA(1, 1)
	assert.Equal(t, uint8(200), r)
	assert.Equal(t, uint8(255), a)
}

func TestSaturate(t *testing.T) {
	assert.Equal(t, uint8(0), Saturate(-3))
	assert.Equal(t, uint8(128), Saturate(128))
	assert.Equal(t, uint8(255), Saturate(256))

	assert.Equal(t, uint8(38), SaturateFloat(38.272))
	assert.Equal(t, uint8(2), SaturateFloat(2.5))
	assert.Equal(t, uint8(4), SaturateFloat(3.5))
	assert.Equal(t, uint8(255), SaturateFloat(300))
}
