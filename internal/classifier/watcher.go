package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads a classifier's rule table when its YAML file changes.
// A file that fails to load is logged and the previous rules stay active.
type Watcher struct {
	path       string
	debounce   time.Duration
	classifier *Classifier
	logger     *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	cancel  context.CancelFunc
	closed  bool
	stopped chan struct{}
	ready   chan struct{}
}

// NewWatcher creates a watcher for filePath. A zero debounce uses 500ms.
func NewWatcher(filePath string, debounce time.Duration, c *Classifier, logger *zap.Logger) (*Watcher, error) {
	if filePath == "" {
		return nil, errors.New("rules path cannot be empty")
	}
	if c == nil {
		return nil, errors.New("classifier cannot be nil")
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:       filePath,
		debounce:   debounce,
		classifier: c,
		logger:     logger.With(zap.String("rules_path", filePath)),
		stopped:    make(chan struct{}),
		ready:      make(chan struct{}),
	}, nil
}

// Start loads the rules once, installs them and begins watching. It returns
// once the file watch is in place.
func (w *Watcher) Start(ctx context.Context) error {
	rules, err := LoadRules(w.path)
	if err != nil {
		return err
	}
	w.classifier.SetRules(rules)
	w.logger.Info("classifier rules loaded", zap.Int("rules", len(rules.Rules)))

	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()
	go w.loop(watchCtx)

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return errors.New("timeout waiting for rules watcher")
	}
}

// Stop ends the watch loop. No reload installs rules once Stop returns.
// Stopping a watcher that never started is a no-op.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	w.closed = true
	cancel := w.cancel
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-w.stopped:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for rules watcher to stop")
	}
}

func (w *Watcher) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
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

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.stopped)
	defer w.signalReady()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("create file watcher", zap.Error(err))
		return
	}
	defer fw.Close()

	if err := fw.Add(w.path); err != nil {
		w.logger.Error("watch rules file", zap.Error(err))
		return
	}
	w.signalReady()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			// Editors replace the file on save; the watch follows the inode.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(50 * time.Millisecond)
				if err := fw.Add(w.path); err != nil {
					w.logger.Warn("re-add rules watch", zap.Error(err))
				}
			}
			w.schedule()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("rules watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	if w.isClosed() {
		return
	}
	rules, err := LoadRules(w.path)
	if err != nil {
		w.logger.Warn("classifier rules reload failed, keeping previous rules", zap.Error(err))
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.classifier.SetRules(rules)
	w.logger.Info("classifier rules reloaded", zap.Int("rules", len(rules.Rules)))
}
