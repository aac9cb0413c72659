// Main window: original image and one panel per transform
package gui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"deep-fryer/internal/algorithms"
	"deep-fryer/internal/config"
	"deep-fryer/internal/core"
	"deep-fryer/internal/loader"
	"deep-fryer/internal/pixel"
)

const panelColumns = 3

// Application owns the window and connects the toolbar, the loader and the
// controller. Decoding happens off the UI goroutine; results are painted
// through fyne.Do by the panels themselves.
type Application struct {
	app    fyne.App
	window fyne.Window
	logger logrus.FieldLogger
	cfg    config.Config

	controller *core.Controller
	loader     *loader.ImageLoader

	toolbar  *Toolbar
	original *Panel
	panels   map[algorithms.Name]*Panel
	status   *widget.Label

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
	closeOnce   sync.Once
}

func NewApplication(app fyne.App, controller *core.Controller, imageLoader *loader.ImageLoader, cfg config.Config, logger logrus.FieldLogger) *Application {
	window := app.NewWindow("deep-fryer")
	window.Resize(fyne.NewSize(cfg.WindowWidth, cfg.WindowHeight))

	a := &Application{
		app:        app,
		window:     window,
		logger:     logger,
		cfg:        cfg,
		controller: controller,
		loader:     imageLoader,
		panels:     make(map[algorithms.Name]*Panel),
	}

	a.initializeGUI()
	a.setupLayout()
	a.setupCallbacks()
	return a
}

func (a *Application) initializeGUI() {
	a.toolbar = NewToolbar(a.controller.Threshold(), loader.Presets())
	a.original = NewPanel("original")
	a.status = widget.NewLabel("Ready")

	for _, name := range algorithms.Names() {
		p := NewPanel(name.String())
		a.panels[name] = p
		a.controller.Register(name, p)
	}
}

func (a *Application) setupLayout() {
	cells := append([]fyne.CanvasObject{a.original.GetContainer()},
		lo.Map(algorithms.Names(), func(name algorithms.Name, _ int) fyne.CanvasObject {
			return a.panels[name].GetContainer()
		})...)

	grid := container.NewGridWithColumns(panelColumns, cells...)
	content := container.NewBorder(
		container.NewVBox(a.toolbar.GetContainer(), widget.NewSeparator()),
		a.status,
		nil,
		nil,
		container.NewScroll(grid),
	)
	a.window.SetContent(content)
}

func (a *Application) setupCallbacks() {
	a.toolbar.SetCallbacks(
		a.controller.SetThreshold,
		func(id string) {
			go a.report(a.LoadPreset(id))
		},
		a.openImage,
	)

	a.window.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		if len(uris) == 0 {
			return
		}
		path := uris[0].Path()
		go a.report(a.LoadPath(path))
	})

	a.window.Canvas().AddShortcut(&fyne.ShortcutPaste{}, func(fyne.Shortcut) {
		content := a.window.Clipboard().Content()
		go a.report(a.Paste(content))
	})

	a.window.SetCloseIntercept(func() {
		a.Close()
		a.app.Quit()
	})
}

// Window returns the main window.
func (a *Application) Window() fyne.Window {
	return a.window
}

// Panel returns the surface for a transform.
func (a *Application) Panel(name algorithms.Name) *Panel {
	return a.panels[name]
}

// Original returns the surface showing the unmodified image.
func (a *Application) Original() *Panel {
	return a.original
}

// LoadPreset decodes a built-in preset and dispatches it.
func (a *Application) LoadPreset(id string) error {
	buf, err := a.loader.LoadPreset(id)
	if err != nil {
		return fmt.Errorf("failed to load preset: %w", err)
	}
	a.stopWatching()
	return a.setImage(buf, "preset "+id)
}

// LoadPath decodes a file and dispatches it, watching it for changes when
// configured to.
func (a *Application) LoadPath(path string) error {
	buf, err := a.loader.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	if err := a.setImage(buf, path); err != nil {
		return err
	}
	if a.cfg.Watch {
		a.watch(path)
	}
	return nil
}

// Paste loads the file named by clipboard text, given as a path or a file:// URI.
func (a *Application) Paste(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if u, err := url.Parse(content); err == nil && u.Scheme == "file" {
		content = u.Path
	}
	return a.LoadPath(content)
}

// ShowAndRun shows the window and blocks until the application quits.
func (a *Application) ShowAndRun() {
	a.logger.Info("Showing main application window")
	a.window.ShowAndRun()
}

// Close stops watching and shuts the controller down. Safe to call twice.
func (a *Application) Close() {
	a.closeOnce.Do(func() {
		a.logger.Info("Cleaning up application resources")
		a.stopWatching()
		for _, name := range algorithms.Names() {
			a.controller.Unregister(name)
		}
		a.controller.Stop()
	})
}

func (a *Application) setImage(buf *pixel.Buffer, source string) error {
	if err := a.controller.SetImage(buf); err != nil {
		return fmt.Errorf("failed to dispatch image: %w", err)
	}
	a.original.Paint(buf)

	fyne.Do(func() {
		a.toolbar.SetPixelCount(buf.PixelCount())
		a.status.SetText(fmt.Sprintf("Loaded: %s (%dx%d)", source, buf.Width, buf.Height))
	})
	return nil
}

func (a *Application) openImage() {
	a.logger.Info("Opening file dialog for image selection")

	fileDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError("File Dialog Error", err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		go a.report(a.LoadPath(path))
	}, a.window)

	fileDialog.SetFilter(storage.NewExtensionFileFilter([]string{".jpg", ".jpeg", ".png", ".gif", ".webp"}))
	fileDialog.Show()
}

func (a *Application) watch(path string) {
	ctx, cancel := context.WithCancel(context.Background())

	a.watchMu.Lock()
	if a.watchCancel != nil {
		a.watchCancel()
	}
	a.watchCancel = cancel
	a.watchMu.Unlock()

	go func() {
		err := a.loader.Watch(ctx, path, func(buf *pixel.Buffer) {
			a.report(a.setImage(buf, path))
		})
		if err != nil {
			a.logger.WithError(err).WithField("filepath", path).Error("Stopped watching image")
		}
	}()
}

func (a *Application) stopWatching() {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.watchCancel != nil {
		a.watchCancel()
		a.watchCancel = nil
	}
}

// report shows err, if any, without blocking the caller.
func (a *Application) report(err error) {
	if err == nil {
		return
	}
	title := "Failed to Load Image"
	if errors.Is(err, core.ErrStopped) {
		title = "Application Stopping"
	}
	fyne.Do(func() {
		a.showError(title, err)
	})
}

func (a *Application) showError(title string, err error) {
	a.logger.WithError(err).Error(title)
	dialog.ShowError(err, a.window)
	a.status.SetText(fmt.Sprintf("Error: %s", err.Error()))
}
