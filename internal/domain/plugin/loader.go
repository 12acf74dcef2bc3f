package plugin

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/ports"
)

// Loader discovers plugin manifests under two directories, binds them to
// compile-time catalog factories, and tracks content hashes for
// hot-reload dedupe — the Go rendering of the source's PluginLoader with
// dynamic import replaced by manifest-plus-catalog lookup.
type Loader struct {
	mu sync.Mutex

	vulnDir string
	toolDir string

	catalog      *Catalog
	capabilities CapabilitySet
	logger       ports.Logger

	vulns   map[string]*Info
	tools   map[string]Tool
	toolMD5 map[string]string

	onReload func(pluginID string)
}

// Option configures a Loader at construction.
type Option func(*Loader)

// WithCatalog overrides the default process-wide catalog, e.g. for tests.
func WithCatalog(c *Catalog) Option {
	return func(l *Loader) { l.catalog = c }
}

// WithCapabilities overrides the default capability set.
func WithCapabilities(cs CapabilitySet) Option {
	return func(l *Loader) { l.capabilities = cs }
}

// New creates a Loader rooted at the given vulnerability and tool plugin
// directories.
func New(vulnDir, toolDir string, logger ports.Logger, opts ...Option) *Loader {
	l := &Loader{
		vulnDir:      vulnDir,
		toolDir:      toolDir,
		catalog:      DefaultCatalog,
		capabilities: DefaultCapabilitySet(),
		logger:       logger,
		vulns:        make(map[string]*Info),
		tools:        make(map[string]Tool),
		toolMD5:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetReloadCallback registers the callback invoked with a plugin_id
// whenever ReloadPlugin successfully reloads it.
func (l *Loader) SetReloadCallback(cb func(pluginID string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onReload = cb
}

// Capabilities returns the capability set this loader holds. The loader
// does not check plugins against it when loading them.
func (l *Loader) Capabilities() CapabilitySet {
	return l.capabilities
}

// LoadAll walks both plugin directories and loads or reloads every
// eligible manifest. Each file contributes at most +1 to the returned
// count, even along partial-failure paths; individual errors are logged
// and do not abort the walk.
func (l *Loader) LoadAll() int {
	count := 0
	count += l.loadDir(l.vulnDir, func(path string) (bool, error) { return l.loadVulnPlugin(path) })
	count += l.loadDir(l.toolDir, func(path string) (bool, error) { return l.loadToolPlugin(path) })
	l.logger.Info("loaded plugins", "count", count)
	return count
}

func (l *Loader) loadDir(dir string, load func(string) (bool, error)) int {
	count := 0
	if _, err := os.Stat(dir); err != nil {
		return 0
	}

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Error("walk plugin directory", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !isEligible(d.Name()) {
			return nil
		}
		loaded, loadErr := load(path)
		if loadErr != nil {
			l.logger.Error("failed to load plugin", "path", path, "error", loadErr)
			return nil
		}
		if loaded {
			count++
		}
		return nil
	})
	return count
}

func isEligible(name string) bool {
	if strings.HasPrefix(name, "_") {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

func pluginIDFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// loadVulnPlugin implements spec.md §4.8's _load_vuln_plugin: hash, dedupe,
// decode manifest, bind to the catalog, overwrite the registry entry.
func (l *Loader) loadVulnPlugin(path string) (bool, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read manifest: %w", err)
	}
	hash := md5Hex(contents)
	pluginID := pluginIDFor(path)

	l.mu.Lock()
	existing, ok := l.vulns[pluginID]
	l.mu.Unlock()
	if ok && existing.MD5 == hash {
		return false, nil
	}

	var manifest VulnManifest
	if err := yaml.Unmarshal(contents, &manifest); err != nil {
		return false, fmt.Errorf("decode vuln manifest: %w", err)
	}

	verifier, found := l.catalog.NewVerifier(pluginID)
	if !found {
		l.logger.Warn("no compiled verifier registered for plugin", "plugin_id", pluginID)
		return false, nil
	}

	name := manifest.Name
	if name == "" {
		name = pluginID
	}

	l.mu.Lock()
	l.vulns[pluginID] = &Info{
		PluginID: pluginID,
		Name:     name,
		Type:     TypeVuln,
		FilePath: path,
		MD5:      hash,
		Enabled:  true,
		Metadata: manifest.Metadata(),
		Instance: verifier,
	}
	l.mu.Unlock()
	return true, nil
}

// loadToolPlugin implements spec.md §4.8's _load_tool_plugin: same
// content-hash dedupe, tracked alongside the instance since Tool carries
// no hash field of its own in this rendering.
func (l *Loader) loadToolPlugin(path string) (bool, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read manifest: %w", err)
	}
	hash := md5Hex(contents)
	toolID := pluginIDFor(path)

	l.mu.Lock()
	existingHash, ok := l.toolMD5[toolID]
	l.mu.Unlock()
	if ok && existingHash == hash {
		return false, nil
	}

	var manifest ToolManifest
	if err := yaml.Unmarshal(contents, &manifest); err != nil {
		return false, fmt.Errorf("decode tool manifest: %w", err)
	}

	tool, found := l.catalog.NewTool(toolID)
	if !found {
		l.logger.Warn("no compiled tool registered for plugin", "tool_id", toolID)
		return false, nil
	}

	l.mu.Lock()
	l.tools[toolID] = tool
	l.toolMD5[toolID] = hash
	l.mu.Unlock()
	return true, nil
}

// ReloadPlugin re-runs loadVulnPlugin for an already-registered vuln
// plugin. If the backing file is gone, the registry entry is dropped. On
// success, the reload callback (if any) is invoked with pluginID exactly
// once, outside the loader's lock.
func (l *Loader) ReloadPlugin(pluginID string) (bool, error) {
	l.mu.Lock()
	info, ok := l.vulns[pluginID]
	l.mu.Unlock()
	if !ok {
		return false, nil
	}

	if _, err := os.Stat(info.FilePath); err != nil {
		l.mu.Lock()
		delete(l.vulns, pluginID)
		l.mu.Unlock()
		return false, nil
	}

	loaded, err := l.loadVulnPlugin(info.FilePath)
	if err != nil {
		return false, err
	}
	if loaded {
		l.mu.Lock()
		cb := l.onReload
		l.mu.Unlock()
		if cb != nil {
			cb(pluginID)
		}
	}
	return loaded, nil
}

// DropPlugin removes a vuln plugin's registry entry, e.g. on a watcher
// delete event.
func (l *Loader) DropPlugin(pluginID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.vulns, pluginID)
}

// DropTool removes a tool plugin's registry entry.
func (l *Loader) DropTool(toolID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.tools, toolID)
	delete(l.toolMD5, toolID)
}

// LoadVulnFile loads or reloads a single vuln manifest path, for use by
// the watcher's create-event handler.
func (l *Loader) LoadVulnFile(path string) (bool, error) {
	return l.loadVulnPlugin(path)
}

// LoadToolFile loads or reloads a single tool manifest path, for use by
// the watcher's create-event handler.
func (l *Loader) LoadToolFile(path string) (bool, error) {
	return l.loadToolPlugin(path)
}

// GetPlugin returns the registered vuln plugin info for pluginID.
func (l *Loader) GetPlugin(pluginID string) (*Info, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info, ok := l.vulns[pluginID]
	return info, ok
}

// GetAllPlugins returns a snapshot slice of every registered vuln plugin.
func (l *Loader) GetAllPlugins() []*Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Info, 0, len(l.vulns))
	for _, info := range l.vulns {
		out = append(out, info)
	}
	return out
}

// GetTool returns the registered tool instance for toolID.
func (l *Loader) GetTool(toolID string) (Tool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tools[toolID]
	return t, ok
}

// GetAllTools returns a snapshot copy of the registered tool instances.
func (l *Loader) GetAllTools() map[string]Tool {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Tool, len(l.tools))
	for k, v := range l.tools {
		out[k] = v
	}
	return out
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}
