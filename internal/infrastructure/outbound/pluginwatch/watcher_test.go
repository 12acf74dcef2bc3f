//go:build integration

package pluginwatch_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/outbound/pluginwatch"
	"github.com/blackridge-sec/vulnscan-core/internal/testutil"
)

type fakeLoader struct {
	mu       sync.Mutex
	loaded   []string
	reloaded []string
	dropped  []string
}

func (f *fakeLoader) LoadVulnFile(path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, path)
	return true, nil
}

func (f *fakeLoader) LoadToolFile(path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, path)
	return true, nil
}

func (f *fakeLoader) ReloadPlugin(pluginID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloaded = append(f.reloaded, pluginID)
	return true, nil
}

func (f *fakeLoader) DropPlugin(pluginID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, pluginID)
}

func (f *fakeLoader) DropTool(toolID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, toolID)
}

func (f *fakeLoader) reloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reloaded)
}

func (f *fakeLoader) dropCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dropped)
}

func (f *fakeLoader) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loaded)
}

func TestWatcher_DetectsVulnManifestCreate(t *testing.T) {
	vulnDir := t.TempDir()
	toolDir := t.TempDir()
	loader := &fakeLoader{}

	w, err := pluginwatch.New(vulnDir, toolDir, &testutil.NoopLogger{}, loader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()
	w.Start()

	if err := os.WriteFile(filepath.Join(vulnDir, "sqli_basic.yaml"), []byte("name: x"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	if loader.loadCount() < 1 {
		t.Error("expected at least one load for created manifest")
	}
}

func TestWatcher_DetectsVulnManifestModify(t *testing.T) {
	vulnDir := t.TempDir()
	toolDir := t.TempDir()

	path := filepath.Join(vulnDir, "sqli_basic.yaml")
	os.WriteFile(path, []byte("name: x"), 0o644)

	loader := &fakeLoader{}
	w, err := pluginwatch.New(vulnDir, toolDir, &testutil.NoopLogger{}, loader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()
	w.Start()

	os.WriteFile(path, []byte("name: y"), 0o644)
	time.Sleep(300 * time.Millisecond)

	if loader.reloadCount() < 1 {
		t.Error("expected at least one reload for modified manifest")
	}
}

func TestWatcher_DetectsManifestDelete(t *testing.T) {
	vulnDir := t.TempDir()
	toolDir := t.TempDir()

	path := filepath.Join(vulnDir, "sqli_basic.yaml")
	os.WriteFile(path, []byte("name: x"), 0o644)

	loader := &fakeLoader{}
	w, err := pluginwatch.New(vulnDir, toolDir, &testutil.NoopLogger{}, loader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()
	w.Start()

	os.Remove(path)
	time.Sleep(300 * time.Millisecond)

	if loader.dropCount() < 1 {
		t.Error("expected drop for deleted manifest")
	}
}

func TestWatcher_IgnoresNonManifestFiles(t *testing.T) {
	vulnDir := t.TempDir()
	toolDir := t.TempDir()
	loader := &fakeLoader{}

	w, err := pluginwatch.New(vulnDir, toolDir, &testutil.NoopLogger{}, loader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()
	w.Start()

	os.WriteFile(filepath.Join(vulnDir, "README.txt"), []byte("hello"), 0o644)
	time.Sleep(300 * time.Millisecond)

	if loader.loadCount() != 0 || loader.reloadCount() != 0 {
		t.Error("expected non-manifest file to be ignored")
	}
}

func TestWatcher_InvalidDirectoriesStillConstructs(t *testing.T) {
	loader := &fakeLoader{}
	w, err := pluginwatch.New("/nonexistent/vulns", "/nonexistent/tools", &testutil.NoopLogger{}, loader)
	if err != nil {
		t.Fatalf("expected New to tolerate absent directories, got %v", err)
	}
	w.Stop()
}
