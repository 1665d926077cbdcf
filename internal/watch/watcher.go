// Package watch reloads a specification file when it changes on disk.
package watch

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"infranest/internal/dsl"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// Reload is one reload attempt. Err is set when the file could not be read
// or parsed; Specification is then the zero value.
type Reload struct {
	Path          string
	Specification dsl.Specification
	Err           error
}

// Watcher monitors one specification file. The parent directory is
// watched so that editors that save by rename are still seen.
type Watcher struct {
	Path    string
	Changes <-chan Reload

	changes  chan Reload
	stop     chan struct{}
	done     chan struct{}
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan Reload, 4)
	w := &Watcher{
		Path:     abs,
		Changes:  ch,
		changes:  ch,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		debounce: DefaultDebounce,
		watcher:  fw,
		logger:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(w)
	}
	w.logger = w.logger.With().Str("component", "watch").Str("path", abs).Logger()
	return w, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.Path)); err != nil {
		_ = w.watcher.Close()
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	close(w.stop)
	_ = w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	var pending time.Time
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.Path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				pending = time.Now()
			}

		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= w.debounce {
				pending = time.Time{}
				w.emit()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) emit() {
	spec, err := dsl.LoadFile(w.Path)
	r := Reload{Path: w.Path, Specification: spec, Err: err}
	if err != nil {
		r.Specification = dsl.Specification{}
		w.logger.Warn().Err(err).Msg("specification reload failed")
	} else {
		w.logger.Info().Str("name", spec.Meta().Name).Msg("specification reloaded")
	}
	select {
	case w.changes <- r:
	case <-w.stop:
	}
}
