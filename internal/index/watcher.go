package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/mdcal/internal/docstore"
)

const (
	// settleDelay batches the several events one document write produces
	// (content, metadata, atomic renames) into a single refresh.
	settleDelay    = 150 * time.Millisecond
	reconcileDelay = 200 * time.Millisecond
)

// Watcher follows the documents directory with fsnotify and feeds changes
// to a Mirror. Retarget moves it to a new directory after the documents
// folder setting changes.
type Watcher struct {
	mirror   *Mirror
	logger   *slog.Logger
	retarget chan struct{}
}

// NewWatcher creates a Watcher for m.
func NewWatcher(m *Mirror, logger *slog.Logger) *Watcher {
	return &Watcher{
		mirror:   m,
		logger:   logger,
		retarget: make(chan struct{}, 1),
	}
}

// Retarget asks a running watcher to resolve the documents directory again.
// It never blocks.
func (w *Watcher) Retarget() {
	select {
	case w.retarget <- struct{}{}:
	default:
	}
}

// Run watches the current documents directory until ctx is cancelled. Each
// time the watched directory is (re)established the catalog is synced.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		dir, err := w.mirror.src.Dir()
		if err != nil {
			return err
		}
		again, err := w.watchDir(ctx, dir)
		if err != nil || !again {
			return err
		}
	}
}

// docID maps a file name in the documents directory to a document id.
func docID(name string) (string, bool) {
	base := filepath.Base(name)
	switch {
	case strings.HasSuffix(base, docstore.MetaExt):
		base = strings.TrimSuffix(base, docstore.MetaExt)
	case strings.HasSuffix(base, docstore.ContentExt):
		base = strings.TrimSuffix(base, docstore.ContentExt)
	default:
		return "", false
	}
	return base, base != ""
}

// watchDir processes events for dir. It returns true when a retarget was
// requested and false when ctx ended.
func (w *Watcher) watchDir(ctx context.Context, dir string) (bool, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return false, err
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return false, err
	}
	w.logger.Info("watcher: started", slog.String("root", dir))

	if err := w.mirror.Sync(); err != nil {
		w.logger.Warn("watcher: initial sync failed", slog.String("error", err.Error()))
	}

	pending := make(map[string]struct{})
	settle := time.NewTimer(settleDelay)
	settle.Stop()

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}
	defer func() {
		settle.Stop()
		if reconcileTimer != nil {
			reconcileTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return false, nil

		case <-w.retarget:
			w.logger.Info("watcher: retarget requested", slog.String("root", dir))
			return true, nil

		case <-settle.C:
			for id := range pending {
				kind, err := w.mirror.Refresh(id)
				if err != nil {
					w.logger.Warn("watcher: refresh failed", slog.String("id", id), slog.String("error", err.Error()))
					continue
				}
				if kind != "" {
					w.logger.Debug("watcher: indexed", slog.String("id", id), slog.String("op", kind))
				}
			}
			clear(pending)

		case <-reconcileCh:
			if err := w.mirror.Sync(); err != nil {
				w.logger.Warn("reconcile: sync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-fsw.Events:
			if !ok {
				return false, nil
			}
			id, ok := docID(ev.Name)
			if !ok {
				continue
			}
			pending[id] = struct{}{}
			settle.Reset(settleDelay)
			// fsnotify fires Rename on the old name only; a reconcile
			// pass catches whatever the rename left behind.
			if ev.Op&fsnotify.Rename != 0 {
				scheduleReconcile()
			}

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return false, nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
