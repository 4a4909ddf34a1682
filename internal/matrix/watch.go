package matrix

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/relguard/internal/report"
)

// rebuildInterval caps how often filesystem churn can trigger a fresh
// aggregation pass.
const rebuildInterval = time.Second

// Watcher re-aggregates the lane results directory whenever a result
// file changes and rewrites the summary outputs in place. Bursts of
// events coalesce into a single rebuild.
type Watcher struct {
	inputDir string
	owners   map[string]string
	jsonPath string
	mdPath   string
	now      func() time.Time
	logger   *zap.Logger

	watcher *fsnotify.Watcher
	limiter *rate.Limiter
	kick    chan struct{}
	stop    chan struct{}
}

// NewWatcher creates a watcher over inputDir that rewrites jsonPath and
// mdPath after every change. A nil logger falls back to a no-op logger.
func NewWatcher(inputDir string, owners map[string]string, jsonPath, mdPath string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(inputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving input dir %s: %w", inputDir, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInputDir, abs)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}

	return &Watcher{
		inputDir: abs,
		owners:   owners,
		jsonPath: jsonPath,
		mdPath:   mdPath,
		now:      time.Now,
		logger:   logger,
		watcher:  fsWatcher,
		limiter:  rate.NewLimiter(rate.Every(rebuildInterval), 1),
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}, nil
}

// Start writes an initial summary, registers the directory tree with the
// filesystem watcher and begins processing events. It returns once the
// watch loops are running.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.rebuild(); err != nil {
		return err
	}
	if err := w.watchTree(w.inputDir); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.rebuildLoop(ctx)

	w.logger.Info("watching lane results",
		zap.String("input_dir", w.inputDir),
		zap.String("output_json", w.jsonPath),
	)
	return nil
}

// Stop shuts the watcher down. Safe to call more than once.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

// watchTree registers dir and every subdirectory beneath it. Lane result
// files can land in per-lane subdirectories created after startup; those
// are picked up by handleEvent.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory",
					zap.String("path", event.Name), zap.Error(err))
			}
			// A directory may appear with result files already in it.
			w.requestRebuild()
			return
		}
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !isLaneFile(event.Name) {
		return
	}
	w.requestRebuild()
}

// requestRebuild is a non-blocking send; a pending request already
// covers any further events.
func (w *Watcher) requestRebuild() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *Watcher) rebuildLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-w.kick:
			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
			if err := w.rebuild(); err != nil {
				// Lane jobs rewrite files in place; a torn read heals
				// on the next event.
				w.logger.Warn("matrix rebuild failed", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) rebuild() error {
	rep, err := Aggregate(w.inputDir, w.owners, w.now().UTC())
	if err != nil {
		return err
	}
	if err := report.WriteFiles(rep, rep.Markdown(), w.jsonPath, w.mdPath); err != nil {
		return err
	}
	w.logger.Info("matrix summary refreshed",
		zap.Int("total", rep.Total),
		zap.Int("passed", rep.Passed),
		zap.Int("failed", rep.Failed),
	)
	return nil
}

func isLaneFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, laneStem) && strings.HasSuffix(base, ".json")
}
