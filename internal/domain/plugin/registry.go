package plugin

// Type distinguishes vulnerability plugins from tool plugins.
type Type string

const (
	TypeVuln Type = "vuln"
	TypeTool Type = "tool"
)

// Info is the Go rendering of the source's PluginInfo: identity,
// location, content hash, and the bound instance.
type Info struct {
	PluginID string
	Name     string
	Type     Type
	FilePath string
	MD5      string
	Enabled  bool
	Metadata map[string]any
	Instance Verifier
}
