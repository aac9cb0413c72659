//go:build opencv

package loader

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// cvDecoder decodes through OpenCV's imdecode.
type cvDecoder struct{}

func newOpenCVDecoder() (Decoder, error) {
	return cvDecoder{}, nil
}

func (cvDecoder) Name() string { return "opencv" }

func (cvDecoder) Decode(data []byte) (image.Image, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("opencv could not decode image")
	}

	channels := mat.Channels()
	if channels != 1 && channels != 3 && channels != 4 {
		return nil, fmt.Errorf("unsupported number of channels: %d", channels)
	}
	return mat.ToImage()
}
