package daemon

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jward/gabb/internal/indexer"
	"github.com/jward/gabb/internal/langutil"
	"github.com/jward/gabb/internal/schema"
	"github.com/jward/gabb/internal/store"
)

// skipDirNames mirrors indexer's defaults; the watcher must not
// subscribe to directories the indexer would never walk.
var skipDirNames = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"target":       true,
	".gabb":        true,
	".git":         true,
}

// Run executes the full daemon lifecycle against an already-open store:
// write the PID file, install signal handlers, run a full index, then
// enter the watch loop until shutdown (spec §4.9 steps 3-7).
func Run(ctx context.Context, s *store.Store, ix *indexer.Indexer, opts Options, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	pf := PIDFile{
		PID:           os.Getpid(),
		Version:       schema.AppVersion,
		SchemaVersion: schema.Current().String(),
		StartedAt:     time.Now().Unix(),
	}
	if err := WritePIDFile(opts.WorkspaceRoot, pf); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	defer RemovePIDFile(opts.WorkspaceRoot)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	log.Info("running full index", "root", opts.WorkspaceRoot)
	if err := ix.IndexDirectory(ctx, opts.WorkspaceRoot, nil); err != nil {
		log.Error("full index failed", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, opts.WorkspaceRoot); err != nil {
		return fmt.Errorf("subscribing to %s: %w", opts.WorkspaceRoot, err)
	}

	log.Info("watching for changes", "root", opts.WorkspaceRoot)
	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				log.Info("HUP received, rebuilding index")
				if err := ix.IndexDirectory(ctx, opts.WorkspaceRoot, nil); err != nil {
					log.Error("rebuild failed", "error", err)
				}
			default:
				log.Info("shutdown signal received", "signal", sig)
				return nil
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleEvent(ix, watcher, event, log)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)

		case <-ctxDone(ctx):
			log.Info("context cancelled, shutting down")
			return nil

		case <-time.After(time.Second):
			// 1-second receive timeout (spec §4.9 step 7) keeps shutdown
			// responsive even with no filesystem activity.
		}
	}
}

// handleEvent classifies one fsnotify event per spec §4.9 step 6 and
// drives the Indexer accordingly.
func handleEvent(ix *indexer.Indexer, watcher *fsnotify.Watcher, event fsnotify.Event, log *slog.Logger) {
	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if !skipDirNames[filepath.Base(event.Name)] {
				_ = watcher.Add(event.Name)
			}
			return
		}
		if !langutil.Known(event.Name) {
			return
		}
		if err := ix.IndexFile(event.Name); err != nil {
			log.Warn("single-file index failed", "path", event.Name, "error", err)
		}

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if langutil.Known(event.Name) {
			if err := ix.RemoveFile(event.Name); err != nil {
				log.Warn("remove failed", "path", event.Name, "error", err)
			}
		}

	default:
		log.Debug("ignoring event", "path", event.Name, "op", event.Op.String())
	}
}

// addRecursive subscribes to root and every non-excluded subdirectory,
// since fsnotify only watches the directories it's explicitly told
// about.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || skipDirNames[name]) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
