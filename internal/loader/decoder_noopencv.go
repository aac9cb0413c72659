//go:build !opencv

package loader

func newOpenCVDecoder() (Decoder, error) {
	return nil, ErrDecoderUnavailable
}
