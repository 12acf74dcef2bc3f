package plugin_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/blackridge-sec/vulnscan-core/internal/domain/plugin"
	"github.com/blackridge-sec/vulnscan-core/internal/testutil"
)

type stubVerifier struct{}

func (stubVerifier) Verify(ctx context.Context, target string, c *http.Client, opts map[string]any) (plugin.VerifyResult, error) {
	return plugin.VerifyResult{Vulnerable: false}, nil
}

type stubTool struct{ name string }

func (t stubTool) Name() string { return t.name }

func writeManifest(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoader_LoadAll_BindsManifestToCatalogEntry(t *testing.T) {
	vulnDir := t.TempDir()
	toolDir := t.TempDir()

	catalog := plugin.NewCatalog()
	catalog.RegisterVuln("sqli_basic", func() plugin.Verifier { return stubVerifier{} })

	writeManifest(t, vulnDir, "sqli_basic.yaml", "name: SQLi Basic\nvuln_id: VS-001\nseverity: high\n")

	l := plugin.New(vulnDir, toolDir, &testutil.NoopLogger{}, plugin.WithCatalog(catalog))

	if n := l.LoadAll(); n != 1 {
		t.Fatalf("expected 1 plugin loaded, got %d", n)
	}

	info, ok := l.GetPlugin("sqli_basic")
	if !ok {
		t.Fatal("expected plugin to be registered")
	}
	if info.Name != "SQLi Basic" {
		t.Errorf("expected manifest name, got %q", info.Name)
	}
	if info.Instance == nil {
		t.Error("expected bound verifier instance")
	}
}

func TestLoader_LoadAll_IgnoresUnderscorePrefixedFiles(t *testing.T) {
	vulnDir := t.TempDir()
	toolDir := t.TempDir()

	catalog := plugin.NewCatalog()
	writeManifest(t, vulnDir, "_draft.yaml", "name: Draft\n")

	l := plugin.New(vulnDir, toolDir, &testutil.NoopLogger{}, plugin.WithCatalog(catalog))
	if n := l.LoadAll(); n != 0 {
		t.Fatalf("expected underscore-prefixed file to be ignored, got count %d", n)
	}
}

func TestLoader_LoadAll_TwiceWithNoChangesLoadsZeroSecondTime(t *testing.T) {
	vulnDir := t.TempDir()
	toolDir := t.TempDir()

	catalog := plugin.NewCatalog()
	catalog.RegisterVuln("sqli_basic", func() plugin.Verifier { return stubVerifier{} })
	writeManifest(t, vulnDir, "sqli_basic.yaml", "name: SQLi Basic\n")

	l := plugin.New(vulnDir, toolDir, &testutil.NoopLogger{}, plugin.WithCatalog(catalog))

	first := l.LoadAll()
	second := l.LoadAll()

	if first != 1 {
		t.Fatalf("expected 1 on first load, got %d", first)
	}
	if second != 0 {
		t.Fatalf("expected 0 on second load with unchanged content, got %d", second)
	}
}

func TestLoader_ReloadPlugin_ChangesMD5AndInvokesCallback(t *testing.T) {
	vulnDir := t.TempDir()
	toolDir := t.TempDir()

	catalog := plugin.NewCatalog()
	catalog.RegisterVuln("sqli_basic", func() plugin.Verifier { return stubVerifier{} })
	path := writeManifest(t, vulnDir, "sqli_basic.yaml", "name: SQLi Basic\n")

	l := plugin.New(vulnDir, toolDir, &testutil.NoopLogger{}, plugin.WithCatalog(catalog))
	l.LoadAll()

	before, _ := l.GetPlugin("sqli_basic")
	h1 := before.MD5

	var callbackArg string
	calls := 0
	l.SetReloadCallback(func(pluginID string) {
		callbackArg = pluginID
		calls++
	})

	if err := os.WriteFile(path, []byte("name: SQLi Basic\n# comment appended\n"), 0o644); err != nil {
		t.Fatalf("rewrite manifest: %v", err)
	}

	reloaded, err := l.ReloadPlugin("sqli_basic")
	if err != nil {
		t.Fatalf("ReloadPlugin: %v", err)
	}
	if !reloaded {
		t.Fatal("expected reload to report success")
	}

	after, _ := l.GetPlugin("sqli_basic")
	if after.MD5 == h1 {
		t.Error("expected MD5 to change after content change")
	}
	if calls != 1 {
		t.Fatalf("expected callback invoked exactly once, got %d", calls)
	}
	if callbackArg != "sqli_basic" {
		t.Errorf("expected callback arg sqli_basic, got %q", callbackArg)
	}
}

func TestLoader_ReloadPlugin_MissingFileDropsEntry(t *testing.T) {
	vulnDir := t.TempDir()
	toolDir := t.TempDir()

	catalog := plugin.NewCatalog()
	catalog.RegisterVuln("sqli_basic", func() plugin.Verifier { return stubVerifier{} })
	path := writeManifest(t, vulnDir, "sqli_basic.yaml", "name: SQLi Basic\n")

	l := plugin.New(vulnDir, toolDir, &testutil.NoopLogger{}, plugin.WithCatalog(catalog))
	l.LoadAll()

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove manifest: %v", err)
	}

	reloaded, err := l.ReloadPlugin("sqli_basic")
	if err != nil {
		t.Fatalf("ReloadPlugin: %v", err)
	}
	if reloaded {
		t.Fatal("expected reload of missing file to report false")
	}
	if _, ok := l.GetPlugin("sqli_basic"); ok {
		t.Fatal("expected registry entry to be dropped")
	}
}

func TestLoader_LoadAll_ToolPlugin(t *testing.T) {
	vulnDir := t.TempDir()
	toolDir := t.TempDir()

	catalog := plugin.NewCatalog()
	catalog.RegisterTool("http_client", func() plugin.Tool { return stubTool{name: "http_client"} })
	writeManifest(t, toolDir, "http_client.yaml", "name: HTTP Client\nversion: \"1.0\"\n")

	l := plugin.New(vulnDir, toolDir, &testutil.NoopLogger{}, plugin.WithCatalog(catalog))
	if n := l.LoadAll(); n != 1 {
		t.Fatalf("expected 1 tool loaded, got %d", n)
	}

	tool, ok := l.GetTool("http_client")
	if !ok {
		t.Fatal("expected tool registered")
	}
	if tool.Name() != "http_client" {
		t.Errorf("unexpected tool name %q", tool.Name())
	}
}

func TestLoader_UnregisteredCatalogEntryLogsAndSkips(t *testing.T) {
	vulnDir := t.TempDir()
	toolDir := t.TempDir()

	catalog := plugin.NewCatalog()
	writeManifest(t, vulnDir, "unknown_plugin.yaml", "name: Unknown\n")

	l := plugin.New(vulnDir, toolDir, &testutil.NoopLogger{}, plugin.WithCatalog(catalog))
	if n := l.LoadAll(); n != 0 {
		t.Fatalf("expected 0 loaded for unregistered catalog entry, got %d", n)
	}
	if _, ok := l.GetPlugin("unknown_plugin"); ok {
		t.Fatal("expected no registry entry for unregistered plugin")
	}
}
