// Package dashboard serves the read-only views of the ledger snapshot and
// traffic log. Missing or corrupt files read as empty.
package dashboard

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ghalamif/AegisSDN/internal/adapters/snapshot"
	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

// FileView caches the dashboard files and reloads them when they change on disk.
type FileView struct {
	chainPath   string
	trafficPath string
	obs         ports.Observability

	mu      sync.RWMutex
	chain   []*domain.Block
	traffic []domain.TrafficEntry

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileView loads both files once. An empty path disables that view.
func NewFileView(chainPath, trafficPath string, obs ports.Observability) *FileView {
	v := &FileView{chainPath: chainPath, trafficPath: trafficPath, obs: obs}
	v.Reload()
	return v
}

func (v *FileView) Reload() {
	v.reloadChain()
	v.reloadTraffic()
}

func (v *FileView) reloadChain() {
	if v.chainPath == "" {
		return
	}
	chain, err := snapshot.ReadChain(v.chainPath)
	if err != nil {
		chain = nil
	}
	v.mu.Lock()
	v.chain = chain
	v.mu.Unlock()
}

func (v *FileView) reloadTraffic() {
	if v.trafficPath == "" {
		return
	}
	traffic, err := snapshot.ReadTraffic(v.trafficPath)
	if err != nil {
		traffic = nil
	}
	v.mu.Lock()
	v.traffic = traffic
	v.mu.Unlock()
}

// Watch starts reloading on file changes. The parent directories are watched
// because atomic rewrites replace the file rather than modify it.
func (v *FileView) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dirs := map[string]struct{}{}
	for _, p := range []string{v.chainPath, v.trafficPath} {
		if p != "" {
			dirs[filepath.Dir(p)] = struct{}{}
		}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return err
		}
	}
	v.watcher = w
	v.done = make(chan struct{})
	go v.handleEvents()
	return nil
}

func (v *FileView) handleEvents() {
	defer close(v.done)
	for {
		select {
		case event, ok := <-v.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			switch filepath.Clean(event.Name) {
			case filepath.Clean(v.chainPath):
				v.reloadChain()
			case filepath.Clean(v.trafficPath):
				v.reloadTraffic()
			}
		case err, ok := <-v.watcher.Errors:
			if !ok {
				return
			}
			if v.obs != nil {
				v.obs.LogWarn("dashboard watcher error", ports.Field{Key: "error", Value: err.Error()})
			}
		}
	}
}

func (v *FileView) Close() error {
	if v.watcher == nil {
		return nil
	}
	err := v.watcher.Close()
	<-v.done
	return err
}

func (v *FileView) Chain() []*domain.Block {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.chain
}

func (v *FileView) Traffic() []domain.TrafficEntry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.traffic
}
