// Display surface: one canvas per transform plus one for the original
package gui

import (
	"image"
	"math"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"deep-fryer/internal/pixel"
)

// Panel shows one buffer at its natural size with a title and a caption.
// It satisfies core.Surface and core.Annotator.
type Panel struct {
	title   string
	image   *canvas.Image
	label   *widget.Label
	caption *widget.Label
	printer *message.Printer

	container *fyne.Container

	mu      sync.Mutex
	current *pixel.Buffer
}

func NewPanel(title string) *Panel {
	placeholder := image.NewNRGBA(image.Rect(0, 0, 1, 1))

	p := &Panel{
		title:   title,
		image:   canvas.NewImageFromImage(placeholder),
		label:   widget.NewLabelWithStyle(title, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		caption: widget.NewLabel(""),
		printer: message.NewPrinter(language.English),
	}
	// Original fill mode makes the canvas take the buffer's width and height.
	p.image.FillMode = canvas.ImageFillOriginal
	p.image.ScaleMode = canvas.ImageScalePixels

	p.container = container.NewBorder(p.label, p.caption, nil, nil, p.image)
	return p
}

// Paint replaces the displayed image. Safe to call from any goroutine.
func (p *Panel) Paint(buf *pixel.Buffer) {
	p.mu.Lock()
	p.current = buf
	p.mu.Unlock()

	img := buf.ToImage()
	fyne.Do(func() {
		p.image.Image = img
		p.image.Refresh()
	})
}

// Annotate shows result metrics and the transform duration under the image.
func (p *Panel) Annotate(values map[string]float64, elapsed time.Duration) {
	text := p.formatCaption(values, elapsed)
	fyne.Do(func() {
		p.caption.SetText(text)
	})
}

// Current returns the last painted buffer.
func (p *Panel) Current() *pixel.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Panel) Title() string {
	return p.title
}

func (p *Panel) GetContainer() fyne.CanvasObject {
	return p.container
}

func (p *Panel) formatCaption(values map[string]float64, elapsed time.Duration) string {
	var parts []string

	if psnr, ok := values["psnr"]; ok {
		if math.IsInf(psnr, 1) {
			parts = append(parts, "PSNR ∞")
		} else {
			parts = append(parts, p.printer.Sprintf("PSNR %.1f dB", psnr))
		}
	}
	if white, ok := values["white_ratio"]; ok {
		parts = append(parts, p.printer.Sprintf("white %.0f%%", white*100))
	}
	parts = append(parts, p.printer.Sprintf("%d ms", elapsed.Milliseconds()))

	return strings.Join(parts, " · ")
}
