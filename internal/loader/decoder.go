package loader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var ErrDecoderUnavailable = errors.New("decoder not available in this build")

// Decoder turns encoded bytes into an image.
type Decoder interface {
	Decode(data []byte) (image.Image, error)
	Name() string
}

// NewDecoder returns the backend registered under name. An empty name
// selects the standard library decoders.
func NewDecoder(name string) (Decoder, error) {
	switch name {
	case "", "std":
		return stdDecoder{}, nil
	case "opencv":
		return newOpenCVDecoder()
	default:
		return nil, fmt.Errorf("unknown decoder %q", name)
	}
}

// stdDecoder uses the image package registry (jpeg, png, gif, webp).
type stdDecoder struct{}

func (stdDecoder) Name() string { return "std" }

func (stdDecoder) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
