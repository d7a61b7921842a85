package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// WatchConfig describes an inbox directory. Each first-level subdirectory of
// Root is named after a proposal id; files dropped anywhere below it are
// ingested into that proposal.
type WatchConfig struct {
	Root        string
	InitialScan bool          // if true, walk Root and emit existing files
	Debounce    time.Duration // coalesce rapid write/rename bursts per path
}

// StartWatcher emits paths of allowed files created or written under
// cfg.Root once they have been quiet for cfg.Debounce.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.Root) == "" {
		return nil, nil, errors.New("no inbox root provided")
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("watcher.create.failed", "error", err)
		return nil, nil, err
	}

	var initial []string
	err = filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path != cfg.Root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if cfg.InitialScan && AllowedExt(filepath.Ext(path)) {
			initial = append(initial, path)
		}
		return nil
	})
	if err != nil {
		logger.Error("watcher.add_root.failed", "root", cfg.Root, "error", err)
		_ = w.Close()
		return nil, nil, err
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watcher.close.failed", "error", err)
			}
		}()

		emit := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		pending := map[string]time.Time{}
		tick := cfg.Debounce
		if tick <= 0 {
			tick = 50 * time.Millisecond
		}
		ticker := time.NewTicker(tick / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if IsHidden(e.Name) {
					continue
				}
				if e.Op&fsnotify.Create == fsnotify.Create {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						if err := w.Add(e.Name); err != nil {
							logger.Warn("watcher.add_dir.failed", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if AllowedExt(filepath.Ext(e.Name)) && e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					pending[e.Name] = time.Now()
				}
			case now := <-ticker.C:
				for p, last := range pending {
					if now.Sub(last) < cfg.Debounce {
						continue
					}
					delete(pending, p)
					if _, err := os.Stat(p); err != nil {
						continue
					}
					if !emit(p) {
						return
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// ProposalFor maps an inbox path to the proposal named by its first-level
// directory.
func ProposalFor(root, path string) (uuid.UUID, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return uuid.Nil, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Watch ingests files dropped into the inbox until ctx is done.
func (i *FSIngestor) Watch(ctx context.Context, cfg WatchConfig) error {
	events, errs, err := StartWatcher(ctx, cfg, i.logger)
	if err != nil {
		return err
	}
	i.logger.Info("ingest.watch.started", "root", cfg.Root, "debounce_ms", cfg.Debounce.Milliseconds())
	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-events:
			if !ok {
				return nil
			}
			id, ok := ProposalFor(cfg.Root, path)
			if !ok {
				i.logger.Warn("ingest.watch.no_proposal", "path", path)
				continue
			}
			if _, err := i.IngestPath(ctx, id, path); err != nil {
				i.logger.Warn("ingest.watch.failed", "proposal_id", id, "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			i.logger.Warn("ingest.watch.error", "error", err)
		}
	}
}
