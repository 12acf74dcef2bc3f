package plugin

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// VerifyResult is the opaque-to-the-core result mapping a verifier
// produces, per spec.md §6. The core only ever carries this as audit
// log details; it never inspects or branches on its contents.
type VerifyResult struct {
	Vulnerable    bool     `json:"vulnerable"`
	Vulnerability string   `json:"vulnerability"`
	Severity      string   `json:"severity"`
	Details       []string `json:"details"`
	Evidence      *string  `json:"evidence"`
	Error         string   `json:"error,omitempty"`
}

// Verifier is the Go rendering of "a public class exposing a verify
// operation": the compiled analogue of the source's dynamically loaded
// VulnCheck class.
type Verifier interface {
	Verify(ctx context.Context, target string, httpClient *http.Client, opts map[string]any) (VerifyResult, error)
}

// Cleaner is implemented by verifiers that also expose an optional
// cleanup operation, mirroring the source's optional cleanup(target, **kwargs).
type Cleaner interface {
	Cleanup(ctx context.Context, target string, opts map[string]any) error
}

// Tool is the Go rendering of a tool plugin instance: a concrete helper
// (HTTP client wrapper, DNS resolver, ...) constructed fresh on load.
type Tool interface {
	Name() string
}

// VerifierFactory constructs a fresh Verifier instance for a plugin_id.
type VerifierFactory func() Verifier

// ToolFactory constructs a fresh Tool instance for a tool_id.
type ToolFactory func() Tool

// Catalog is the process-wide, compile-time registry of plugin
// factories. Concrete plugin packages populate it from their init()
// functions; the loader looks up a manifest's plugin_id here instead of
// introspecting freshly executed bytecode.
type Catalog struct {
	mu    sync.RWMutex
	vulns map[string]VerifierFactory
	tools map[string]ToolFactory
}

// DefaultCatalog is the single process-wide catalog concrete plugin
// packages register into. A package-level var (rather than an init-time
// parameter) matches the source's "Global plugin loader instance"
// convenience pattern referenced in spec.md §5.
var DefaultCatalog = NewCatalog()

// NewCatalog creates an empty Catalog. Most callers use DefaultCatalog;
// NewCatalog exists for tests that need isolation from process-wide
// registration.
func NewCatalog() *Catalog {
	return &Catalog{
		vulns: make(map[string]VerifierFactory),
		tools: make(map[string]ToolFactory),
	}
}

// RegisterVuln registers a verifier factory under pluginID. Calling it
// twice for the same ID is a programming error (duplicate plugin
// packages) and panics, matching the teacher's fail-fast init()
// registration pattern for other process-wide registries.
func (c *Catalog) RegisterVuln(pluginID string, factory VerifierFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.vulns[pluginID]; exists {
		panic(fmt.Sprintf("plugin: vuln plugin %q already registered", pluginID))
	}
	c.vulns[pluginID] = factory
}

// RegisterTool registers a tool factory under toolID.
func (c *Catalog) RegisterTool(toolID string, factory ToolFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tools[toolID]; exists {
		panic(fmt.Sprintf("plugin: tool plugin %q already registered", toolID))
	}
	c.tools[toolID] = factory
}

// NewVerifier constructs a fresh Verifier for pluginID, or (nil, false)
// if no compiled package registered that ID.
func (c *Catalog) NewVerifier(pluginID string) (Verifier, bool) {
	c.mu.RLock()
	factory, ok := c.vulns[pluginID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(), true
}

// NewTool constructs a fresh Tool for toolID, or (nil, false) if no
// compiled package registered that ID.
func (c *Catalog) NewTool(toolID string) (Tool, bool) {
	c.mu.RLock()
	factory, ok := c.tools[toolID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(), true
}
