package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"deep-fryer/internal/pixel"
)

// reloadDelay lets editors finish writing before the file is decoded again.
const reloadDelay = 50 * time.Millisecond

// Watch reloads path whenever it is written or replaced and hands each
// successfully decoded buffer to onChange. Decode failures are logged and
// skipped. Watch blocks until ctx is done.
func (il *ImageLoader) Watch(ctx context.Context, path string, onChange func(*pixel.Buffer)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory so atomic replace-by-rename is noticed too.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	log := il.logger.WithField("filepath", abs)
	log.Info("Watching image for changes")

	var (
		timer  *time.Timer
		reload = make(chan struct{}, 1)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != abs || evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			buf, err := il.LoadFile(abs)
			if err != nil {
				log.WithError(err).Warn("Reload failed, keeping previous image")
				continue
			}
			onChange(buf)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).WithFields(logrus.Fields{"component": "watcher"}).Error("File watcher error")
		}
	}
}
