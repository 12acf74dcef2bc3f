// Package pluginwatch watches the vulnerability and tool plugin
// directories for manifest changes and routes them into a plugin.Loader,
// the filesystem change source spec.md calls start_watcher/stop_watcher.
package pluginwatch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/ports"
)

// Loader is the subset of plugin.Loader the watcher drives. Declared
// locally to avoid an import cycle back into internal/domain/plugin's
// tests, and because the watcher only ever needs these five operations.
type Loader interface {
	LoadVulnFile(path string) (bool, error)
	LoadToolFile(path string) (bool, error)
	ReloadPlugin(pluginID string) (bool, error)
	DropPlugin(pluginID string)
	DropTool(toolID string)
}

// Watcher attaches to the vuln and tool plugin directories recursively
// and routes filesystem events to the loader: modified manifests are
// reloaded by plugin_id, created manifests are routed by directory to
// the vuln or tool loader, and deleted manifests drop the registry
// entry. The loader's own content-hash dedupe absorbs duplicate events
// from editors that emit several writes per save, so no debounce timer
// is needed here (per spec.md §9).
type Watcher struct {
	vulnDir string
	toolDir string
	logger  ports.Logger
	loader  Loader

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a Watcher over vulnDir and toolDir. Either directory may be
// absent at construction time; it is simply not watched.
func New(vulnDir, toolDir string, logger ports.Logger, loader Loader) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		vulnDir: vulnDir,
		toolDir: toolDir,
		logger:  logger,
		loader:  loader,
		watcher: fsWatcher,
		done:    make(chan struct{}),
	}

	if err := w.addRecursive(vulnDir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	if err := w.addRecursive(toolDir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop terminates the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.watcher.Close()
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("plugin watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
			return
		}
	}

	if !isManifestFile(event.Name) {
		return
	}

	pluginID := pluginIDFor(event.Name)
	inVulnDir := underDir(event.Name, w.vulnDir)
	inToolDir := underDir(event.Name, w.toolDir)

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if inVulnDir {
			w.loader.DropPlugin(pluginID)
		} else if inToolDir {
			w.loader.DropTool(pluginID)
		}

	case event.Has(fsnotify.Create):
		var err error
		switch {
		case inVulnDir:
			_, err = w.loader.LoadVulnFile(event.Name)
		case inToolDir:
			_, err = w.loader.LoadToolFile(event.Name)
		}
		if err != nil {
			w.logger.Error("failed to load created plugin manifest", "path", event.Name, "error", err)
		}

	case event.Has(fsnotify.Write):
		if inVulnDir {
			if _, err := w.loader.ReloadPlugin(pluginID); err != nil {
				w.logger.Error("failed to reload plugin", "plugin_id", pluginID, "error", err)
			}
		} else if inToolDir {
			if _, err := w.loader.LoadToolFile(event.Name); err != nil {
				w.logger.Error("failed to reload tool", "tool_id", pluginID, "error", err)
			}
		}
	}
}

func (w *Watcher) addRecursive(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func isManifestFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "_") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func pluginIDFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func underDir(path, dir string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}
