package shader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ErrNotFileBacked is returned when watching a shader created from an inline source.
var ErrNotFileBacked = errors.New("shader: shader has no source file")

// ReloadFunc is called after a watched shader file changed. err is non-nil when the new
// source could not be read or pre-processed; the shader keeps its previous source then.
type ReloadFunc func(s Shader, err error)

// Watcher reloads shaders when their source files change on disk.
type Watcher struct {
	fs       *fsnotify.Watcher
	onReload ReloadFunc

	mu      sync.Mutex
	shaders map[string][]Shader
	dirs    map[string]bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher starts a watcher that calls onReload for every reloaded shader.
//
// Parameters:
//   - onReload: the callback invoked on the watcher goroutine after each reload
//
// Returns:
//   - *Watcher: the running watcher
//   - error: an error if the OS watcher cannot be created
func NewWatcher(onReload ReloadFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("shader watcher: %w", err)
	}
	w := &Watcher{
		fs:       fw,
		onReload: onReload,
		shaders:  make(map[string][]Shader),
		dirs:     make(map[string]bool),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Watch starts watching the source file of s. The containing directory is watched so
// that editors replacing the file through a rename are noticed too.
//
// Parameters:
//   - s: a shader created with WithSourceFromPath
//
// Returns:
//   - error: ErrNotFileBacked, or an error adding the directory to the OS watcher
func (w *Watcher) Watch(s Shader) error {
	if s.Path() == "" {
		return fmt.Errorf("%w: %s", ErrNotFileBacked, s.Key())
	}
	path, err := filepath.Abs(s.Path())
	if err != nil {
		return fmt.Errorf("shader watcher: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(path)
	if !w.dirs[dir] {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("shader watcher: watch %q: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.shaders[path] = append(w.shaders[path], s)
	return nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload(event.Name)
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) reload(name string) {
	path, err := filepath.Abs(name)
	if err != nil {
		return
	}
	w.mu.Lock()
	shaders := append([]Shader(nil), w.shaders[path]...)
	w.mu.Unlock()

	for _, s := range shaders {
		changed, err := s.Reload()
		if err != nil {
			w.onReload(s, err)
			continue
		}
		if changed {
			w.onReload(s, nil)
		}
	}
}
