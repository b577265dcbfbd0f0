package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"delivery-metrics/internal/domain/entity"
)

const (
	// DefaultReloadInterval is the minimum delay between two reloads.
	DefaultReloadInterval = 250 * time.Millisecond

	// settleDelay lets editors finish a multi-step save before the file is read.
	settleDelay = 50 * time.Millisecond
)

// ReloadRecorder counts reload attempts; a nil error is a success.
type ReloadRecorder interface {
	RecordProfileReload(err error)
}

// Watcher reloads a profile file whenever it changes.
//
// The file's directory is watched rather than the file itself so that
// editors replacing the file through a rename are still noticed. Reloads are
// rate limited and events that pile up while waiting are coalesced.
type Watcher struct {
	path     string
	base     entity.Profile
	logger   *slog.Logger
	recorder ReloadRecorder
	limiter  *rate.Limiter

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithReloadInterval sets the minimum delay between two reloads.
func WithReloadInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithRecorder counts every reload attempt on r.
func WithRecorder(r ReloadRecorder) WatcherOption {
	return func(w *Watcher) {
		w.recorder = r
	}
}

// NewWatcher starts watching path. Every reload applies the file on top of
// base, so removing a section from the file restores the base values.
// The watch is established before NewWatcher returns.
func NewWatcher(path string, base entity.Profile, logger *slog.Logger, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve profile path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:    abs,
		base:    base,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(DefaultReloadInterval), 1),
		watcher: fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes file events until ctx is cancelled and calls onReload with
// every successfully loaded profile. A failed load or a rejected profile is
// logged and the previous profile stays in effect.
//
// Run closes the watcher when it returns. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, onReload func(entity.Profile) error) error {
	defer func() { _ = w.Close() }()

	w.logger.Info("profile watcher started", slog.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("profile watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}

			w.logger.Debug("profile file event",
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()))

			if event.Has(fsnotify.Remove) {
				w.logger.Warn("profile file removed, keeping current profile",
					slog.String("path", w.path))
				continue
			}

			if err := w.limiter.Wait(ctx); err != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(settleDelay):
			}
			w.drain()

			w.reload(onReload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("profile watcher error", slog.Any("error", err))
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove)
}

// drain discards events that are already queued.
func (w *Watcher) drain() {
	for {
		select {
		case _, ok := <-w.watcher.Events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (w *Watcher) reload(onReload func(entity.Profile) error) {
	p, err := Load(w.path, w.base)
	if err == nil {
		err = onReload(p)
	}
	if w.recorder != nil {
		w.recorder.RecordProfileReload(err)
	}

	if err != nil {
		w.logger.Error("profile reload failed",
			slog.String("path", w.path),
			slog.Any("error", err))
		return
	}

	w.logger.Info("profile reloaded",
		slog.String("path", w.path),
		slog.Bool("high_pending_mode", p.HighPendingMode),
		slog.String("pending", p.PendingRange().String()))
}
