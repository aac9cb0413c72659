// Image source loading: files, byte streams with a MIME type, and presets
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"

	"deep-fryer/internal/pixel"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrUnknownPreset   = errors.New("unknown preset")
)

// Same set the clipboard paste handler accepts.
var acceptedMIME = regexp.MustCompile(`(?i)^image/(p?jpeg|gif|png|webp)$`)

// maxFileSize guards against reading arbitrarily large files into memory.
const maxFileSize = 256 << 20

// maxDecodePixels caps the area a header may declare. It applies before
// MaxDimension downscaling, so sources larger than the display limit still
// load as long as they fit here.
const maxDecodePixels = 64 << 20

// Options configures a Loader.
type Options struct {
	// Decoder selects the backend: "std" (default) or "opencv".
	Decoder string
	// MaxDimension downscales larger images so their longest side fits.
	// Zero keeps the decoded size.
	MaxDimension int
}

// ImageLoader turns image sources into pixel buffers.
type ImageLoader struct {
	decoder      Decoder
	maxDimension int
	logger       logrus.FieldLogger
}

func NewImageLoader(opts Options, logger logrus.FieldLogger) (*ImageLoader, error) {
	dec, err := NewDecoder(opts.Decoder)
	if err != nil {
		return nil, err
	}
	if opts.MaxDimension < 0 {
		return nil, fmt.Errorf("max dimension must not be negative: %d", opts.MaxDimension)
	}
	return &ImageLoader{
		decoder:      dec,
		maxDimension: opts.MaxDimension,
		logger:       logger,
	}, nil
}

// Accepts reports whether a MIME type can be loaded.
func Accepts(mimeType string) bool {
	return acceptedMIME.MatchString(strings.TrimSpace(mimeType))
}

// SniffMIME detects the MIME type from the leading bytes of data.
func SniffMIME(data []byte) string {
	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return mimeType
}

// LoadFile reads and decodes the image at path.
func (il *ImageLoader) LoadFile(path string) (*pixel.Buffer, error) {
	il.logger.WithField("filepath", path).Debug("Loading image")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	buf, err := il.LoadReader(f, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}

// LoadReader decodes an image stream. An empty mimeType is sniffed from the data.
func (il *ImageLoader) LoadReader(r io.Reader, mimeType string) (*pixel.Buffer, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("image larger than %d bytes", maxFileSize)
	}
	return il.LoadBytes(data, mimeType)
}

// LoadBytes decodes an in-memory image.
func (il *ImageLoader) LoadBytes(data []byte, mimeType string) (*pixel.Buffer, error) {
	if mimeType == "" {
		mimeType = SniffMIME(data)
	}
	if !Accepts(mimeType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}

	if err := checkDecodeSize(data); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", mimeType, err)
	}

	img, err := il.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s with %s decoder: %w", mimeType, il.decoder.Name(), err)
	}

	buf, err := il.toBuffer(img)
	if err != nil {
		return nil, err
	}

	il.logger.WithFields(logrus.Fields{
		"mime":    mimeType,
		"decoder": il.decoder.Name(),
		"width":   buf.Width,
		"height":  buf.Height,
	}).Info("Image loaded successfully")
	return buf, nil
}

// checkDecodeSize reads only the image header and rejects sizes whose
// decoded pixels would not fit in memory.
func checkDecodeSize(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if cfg.Width > pixel.MaxDimension || cfg.Height > pixel.MaxDimension ||
		cfg.Width*cfg.Height > maxDecodePixels {
		return fmt.Errorf("%w: header declares %dx%d", pixel.ErrInvalidDimensions, cfg.Width, cfg.Height)
	}
	return nil
}

// LoadPreset renders one of the built-in presets.
func (il *ImageLoader) LoadPreset(id string) (*pixel.Buffer, error) {
	gen, ok := presets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, id)
	}
	buf, err := il.toBuffer(gen(presetWidth, presetHeight))
	if err != nil {
		return nil, err
	}
	il.logger.WithField("preset", id).Info("Preset loaded")
	return buf, nil
}

func (il *ImageLoader) toBuffer(img image.Image) (*pixel.Buffer, error) {
	if il.maxDimension > 0 {
		b := img.Bounds()
		if b.Dx() > il.maxDimension || b.Dy() > il.maxDimension {
			img = resize.Thumbnail(uint(il.maxDimension), uint(il.maxDimension), img, resize.Lanczos3)
			il.logger.WithFields(logrus.Fields{
				"from": fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
				"to":   fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()),
			}).Debug("Image downscaled")
		}
	}

	buf, err := pixel.FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}
	return buf, nil
}
