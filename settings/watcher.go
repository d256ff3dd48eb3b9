package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmolner/layered/internal/logging"
)

// ReloadCallback is called with freshly loaded settings after the initial
// load and after every successful reload. If the callback returns an error it
// is logged and the watcher keeps watching.
type ReloadCallback func(s *Settings) error

// WatcherConfig holds configuration for a settings Watcher.
type WatcherConfig struct {
	// FilePath is the settings document to watch. Every document in its
	// extends chain is watched too.
	FilePath string

	// Options are the load options applied on every (re)load.
	Options Options

	// Debounce coalesces bursts of file events (editor save sequences,
	// atomic renames) into a single reload. Default 500ms.
	Debounce time.Duration

	// Metrics, when set, records reload outcomes.
	Metrics *WatcherMetrics
}

// Watcher watches a settings document chain and reloads on change, keeping
// the previous settings live when a reload fails. A changed extends reference
// is picked up on the next successful reload, which re-derives the watched
// file set.
type Watcher struct {
	config   WatcherConfig
	callback ReloadCallback

	cancel  context.CancelFunc
	stopped chan struct{}
	ready   chan struct{}
	mu      sync.Mutex

	debounceTimer *time.Timer
	watched       []string
	watcher       *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given settings document.
func NewWatcher(config WatcherConfig, callback ReloadCallback) (*Watcher, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("FilePath cannot be empty")
	}
	if callback == nil {
		return nil, fmt.Errorf("callback cannot be nil")
	}
	if config.Debounce == 0 {
		config.Debounce = 500 * time.Millisecond
	}
	return &Watcher{
		config:   config,
		callback: callback,
		stopped:  make(chan struct{}),
		ready:    make(chan struct{}),
	}, nil
}

// Start loads the settings, invokes the callback, and begins watching the
// document chain. It returns once the file watches are established; watching
// continues in the background until Stop or context cancellation. The initial
// load failing is fatal; later reload failures are logged and skipped.
func (w *Watcher) Start(ctx context.Context) error {
	log := logging.GetLogger("settings.watcher")

	initial, err := w.load()
	if err != nil {
		return fmt.Errorf("initial settings load: %w", err)
	}
	if err := w.callback(initial); err != nil {
		return fmt.Errorf("initial settings callback: %w", err)
	}
	w.watched = initial.Sources()
	log.Info().
		Str("document", w.config.FilePath).
		Str("profile", initial.Profile()).
		Int("chain_length", len(w.watched)).
		Msg("loaded initial settings")

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.watchLoop(watchCtx)

	select {
	case <-w.ready:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for file watcher to initialize")
	}
	return nil
}

// Stop stops watching and waits for the watch loop to exit.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	select {
	case <-w.stopped:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for watcher to stop")
	}
}

func (w *Watcher) load() (*Settings, error) {
	s, err := Load(w.config.FilePath, w.config.Options)
	if err != nil {
		if w.config.Metrics != nil {
			w.config.Metrics.ReloadErrorsTotal.Inc()
		}
		return nil, err
	}
	if w.config.Metrics != nil {
		w.config.Metrics.ReloadsTotal.Inc()
		w.config.Metrics.LastReloadTime.SetToCurrentTime()
	}
	return s, nil
}

func (w *Watcher) signalReady() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.ready:
	default:
		close(w.ready)
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	log := logging.GetLogger("settings.watcher")
	defer close(w.stopped)
	defer w.signalReady()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error().Err(err).Msg("failed to create file watcher")
		return
	}
	defer watcher.Close()
	w.watcher = watcher

	for _, path := range w.watched {
		if err := watcher.Add(path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("failed to watch settings document")
			return
		}
	}
	log.Debug().
		Strs("paths", w.watched).
		Dur("debounce", w.config.Debounce).
		Msg("watching settings documents")

	w.signalReady()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Rename and Remove matter for atomic writes: the old inode is
			// unlinked before the new file lands, so the watch must be
			// re-added.
			relevant := event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
			if !relevant {
				continue
			}
			if event.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				time.Sleep(50 * time.Millisecond)
				if err := watcher.Add(event.Name); err != nil {
					log.Warn().Err(err).Str("path", event.Name).Msg("failed to re-add watch")
				}
			}
			w.scheduleReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

// scheduleReload debounces file events by resetting a timer on each one.
func (w *Watcher) scheduleReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.config.Debounce, func() {
		w.reload(ctx)
	})
}

// reload loads the chain again and swaps in the result via the callback.
// A load failure keeps the previous settings live.
func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log := logging.GetLogger("settings.watcher")

	s, err := w.load()
	if err != nil {
		log.Error().Err(err).Msg("settings reload failed, keeping previous settings")
		return
	}
	if err := w.callback(s); err != nil {
		log.Error().Err(err).Msg("settings reload callback failed")
		return
	}

	w.updateWatches(s.Sources())
	log.Info().Str("profile", s.Profile()).Msg("settings reloaded")
}

// updateWatches reconciles the watched file set after a reload, since the
// extends chain may have changed.
func (w *Watcher) updateWatches(sources []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return
	}
	current := make(map[string]bool, len(w.watched))
	for _, path := range w.watched {
		current[path] = true
	}
	next := make(map[string]bool, len(sources))
	for _, path := range sources {
		next[path] = true
		if !current[path] {
			_ = w.watcher.Add(path)
		}
	}
	for _, path := range w.watched {
		if !next[path] {
			_ = w.watcher.Remove(path)
		}
	}
	w.watched = sources
}
