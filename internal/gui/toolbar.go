// Top toolbar: threshold slider, image info, presets and file opening
package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Toolbar struct {
	container *fyne.Container
	printer   *message.Printer

	slider         *widget.Slider
	thresholdLabel *widget.Label
	pixelLabel     *widget.Label
	openBtn        *widget.Button
	presetBtns     []*widget.Button

	// Callbacks
	onThresholdChanged func(int)
	onPresetSelected   func(string)
	onOpen             func()
}

func NewToolbar(threshold int, presets []string) *Toolbar {
	tb := &Toolbar{
		printer: message.NewPrinter(language.English),
	}
	tb.initializeUI(threshold, presets)
	return tb
}

func (tb *Toolbar) initializeUI(threshold int, presets []string) {
	tb.thresholdLabel = widget.NewLabel("")
	tb.setThresholdText(threshold)

	tb.slider = widget.NewSlider(0, 255)
	tb.slider.Step = 1
	tb.slider.SetValue(float64(threshold))
	tb.slider.OnChanged = func(v float64) {
		tb.setThresholdText(int(v))
		if tb.onThresholdChanged != nil {
			tb.onThresholdChanged(int(v))
		}
	}

	tb.pixelLabel = widget.NewLabel("")
	tb.SetPixelCount(0)

	tb.presetBtns = lo.Map(presets, func(id string, i int) *widget.Button {
		return widget.NewButton(tb.printer.Sprintf("preset %d", i), func() {
			if tb.onPresetSelected != nil {
				tb.onPresetSelected(id)
			}
		})
	})

	tb.openBtn = widget.NewButtonWithIcon("Open image", theme.FolderOpenIcon(), func() {
		if tb.onOpen != nil {
			tb.onOpen()
		}
	})
	tb.openBtn.Importance = widget.HighImportance

	left := container.NewHBox(tb.thresholdLabel, tb.pixelLabel)
	right := container.NewHBox(append(
		lo.Map(tb.presetBtns, func(b *widget.Button, _ int) fyne.CanvasObject { return b }),
		widget.NewSeparator(),
		widget.NewLabel("Paste or select a file:"),
		tb.openBtn,
	)...)

	tb.container = container.NewBorder(nil, nil, left, right, tb.slider)
}

// SetCallbacks wires the toolbar to the application.
func (tb *Toolbar) SetCallbacks(onThresholdChanged func(int), onPresetSelected func(string), onOpen func()) {
	tb.onThresholdChanged = onThresholdChanged
	tb.onPresetSelected = onPresetSelected
	tb.onOpen = onOpen
}

// SetPixelCount shows the pixel count and the number of RGB values.
func (tb *Toolbar) SetPixelCount(n int) {
	tb.pixelLabel.SetText(tb.printer.Sprintf("%d Pixel (%d RGB Values)", n, n*3))
}

func (tb *Toolbar) setThresholdText(v int) {
	tb.thresholdLabel.SetText(tb.printer.Sprintf("Threshold: %d", v))
}

func (tb *Toolbar) GetContainer() fyne.CanvasObject {
	return tb.container
}
