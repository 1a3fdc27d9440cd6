// Package watch reports folders created or removed on disk by other
// programs while the server is running.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called for each folder change observed on disk.
// kind is "created" or "removed"; path is relative to the vault root.
type EventCallback func(kind string, path string)

// Skip reports whether a relative folder path must not be watched.
type Skip func(rel string) bool

// Names with this prefix are transient entries made by folder operations.
const transientPrefix = ".vaultfold-"

const reconcileDelay = 200 * time.Millisecond

type watcher struct {
	w      *fsnotify.Watcher
	root   string
	skip   Skip
	logger *slog.Logger
	cb     EventCallback
	dirs   map[string]struct{}
}

// Watch starts an fsnotify watcher on every folder under root and reports
// folder changes until ctx is cancelled.
//
// New folders are added to the watch list as they appear. fsnotify only
// reports the old name of a renamed folder, so renames and removals are
// followed by a debounced reconciliation pass against the disk.
func Watch(ctx context.Context, root string, skip Skip, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if skip == nil {
		skip = func(string) bool { return false }
	}
	wt := &watcher{w: fw, root: root, skip: skip, logger: logger, cb: cb, dirs: make(map[string]struct{})}
	if _, err := wt.addTree(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root), slog.Int("folders", len(wt.dirs)))

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

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			wt.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			rel, ok := wt.rel(ev.Name)
			if !ok {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				info, statErr := os.Lstat(ev.Name)
				if statErr != nil || !info.IsDir() {
					continue
				}
				added, addErr := wt.addTree(ev.Name)
				if addErr != nil {
					logger.Warn("watcher: add new dir failed",
						slog.String("path", rel),
						slog.String("error", addErr.Error()))
				}
				for _, p := range added {
					logger.Debug("watcher: folder created", slog.String("path", p))
					wt.emit("created", p)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if _, tracked := wt.dirs[rel]; !tracked {
					continue
				}
				wt.forget(rel)
				logger.Debug("watcher: folder removed", slog.String("path", rel))
				wt.emit("removed", rel)
				scheduleReconcile()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// rel converts an absolute event path into a slash separated vault path,
// rejecting the root itself and skipped or transient locations.
func (wt *watcher) rel(abs string) (string, bool) {
	r, err := filepath.Rel(wt.root, abs)
	if err != nil || r == "." || strings.HasPrefix(r, "..") {
		return "", false
	}
	r = filepath.ToSlash(r)
	if wt.ignored(r) {
		return "", false
	}
	return r, true
}

func (wt *watcher) ignored(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, transientPrefix) {
			return true
		}
	}
	return wt.skip(rel)
}

// addTree watches dir and every folder below it, returning the relative
// paths that were not tracked before.
func (wt *watcher) addTree(dir string) ([]string, error) {
	var added []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel := ""
		if p != wt.root {
			r, ok := wt.rel(p)
			if !ok {
				return fs.SkipDir
			}
			rel = r
		}
		if err := wt.w.Add(p); err != nil {
			return err
		}
		if _, seen := wt.dirs[rel]; !seen {
			wt.dirs[rel] = struct{}{}
			if rel != "" {
				added = append(added, rel)
			}
		}
		return nil
	})
	return added, err
}

// forget drops rel and its tracked descendants.
func (wt *watcher) forget(rel string) {
	prefix := rel + "/"
	for p := range wt.dirs {
		if p == rel || strings.HasPrefix(p, prefix) {
			delete(wt.dirs, p)
			_ = wt.w.Remove(filepath.Join(wt.root, filepath.FromSlash(p)))
		}
	}
}

// reconcile compares the tracked folders with the disk, reporting stale
// entries as removed and untracked folders as created.
func (wt *watcher) reconcile() {
	onDisk := make(map[string]struct{}, len(wt.dirs))
	_ = filepath.WalkDir(wt.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || p == wt.root {
			return nil
		}
		rel, ok := wt.rel(p)
		if !ok {
			return fs.SkipDir
		}
		onDisk[rel] = struct{}{}
		return nil
	})

	var stale []string
	for p := range wt.dirs {
		if p == "" {
			continue
		}
		if _, ok := onDisk[p]; !ok {
			stale = append(stale, p)
		}
	}
	sort.Strings(stale)
	for _, p := range stale {
		if _, still := wt.dirs[p]; !still {
			continue
		}
		wt.forget(p)
		wt.logger.Debug("reconcile: removed stale", slog.String("path", p))
		wt.emit("removed", p)
	}

	var fresh []string
	for p := range onDisk {
		if _, ok := wt.dirs[p]; !ok {
			fresh = append(fresh, p)
		}
	}
	sort.Strings(fresh)
	for _, p := range fresh {
		if _, ok := wt.dirs[p]; ok {
			continue
		}
		added, err := wt.addTree(filepath.Join(wt.root, filepath.FromSlash(p)))
		if err != nil {
			wt.logger.Warn("reconcile: add dir failed", slog.String("path", p), slog.String("error", err.Error()))
		}
		for _, a := range added {
			wt.logger.Debug("reconcile: found folder", slog.String("path", a))
			wt.emit("created", a)
		}
	}
}

func (wt *watcher) emit(kind, rel string) {
	if wt.cb != nil {
		wt.cb(kind, rel)
	}
}
