package archetypes

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/scintillator/scsynth/engine/core"
)

// LoadFile parses every document in a single .yaml file into the registry.
func (r *Registry) LoadFile(path string) (ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{}, err
	}
	defer f.Close()
	return r.ParseDocuments(f), nil
}

// LoadString parses every document in s into the registry. Named after
// spec.md's "parse-defs-from-string" submission helper; it admits both
// VGen and def documents, matching ParseDocuments.
func (r *Registry) LoadString(s string) ParseResult {
	return r.ParseDocuments(strings.NewReader(s))
}

// LoadDirectory parses every *.yaml file directly inside dir (non-
// recursive) and, if watch is true, installs an fsnotify watch so
// subsequent edits or new files are re-parsed automatically. The returned
// Watcher must be closed by the caller if watch was requested; it is nil
// otherwise.
func (r *Registry) LoadDirectory(dir string, watch bool) (ParseResult, *Watcher, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ParseResult{}, nil, err
	}

	var total ParseResult
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		result, err := r.LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			total.Errors = append(total.Errors, err)
			core.LogError("archetypes: failed to load %s: %v", entry.Name(), err)
			continue
		}
		total.VGensLoaded += result.VGensLoaded
		total.DefsLoaded += result.DefsLoaded
		total.Errors = append(total.Errors, result.Errors...)
	}

	if !watch {
		return total, nil, nil
	}

	w, err := newWatcher(r, dir)
	if err != nil {
		return total, nil, err
	}
	return total, w, nil
}

func isYAMLFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

// Watcher re-parses a directory's documents into its Registry whenever a
// .yaml/.yml file inside it is created or written. Editing a shader graph
// on disk takes effect without a process restart.
type Watcher struct {
	registry *Registry
	dir      string
	fsnotify *fsnotify.Watcher

	mu       sync.Mutex
	closed   bool
	done     chan struct{}
}

func newWatcher(r *Registry, dir string) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatch.Add(dir); err != nil {
		fsWatch.Close()
		return nil, err
	}

	w := &Watcher{
		registry: r,
		dir:      dir,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isYAMLFile(e.Name) {
				continue
			}
			if _, err := w.registry.LoadFile(e.Name); err != nil {
				core.LogError("archetypes: watch: failed to reload %s: %v", e.Name, err)
			} else {
				core.LogInfo("archetypes: watch: reloaded %s", e.Name)
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("archetypes: watch: %v", err)

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

// Close stops the watch goroutine. Safe to call more than once.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.done)
}
