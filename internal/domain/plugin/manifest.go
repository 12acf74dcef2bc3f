// Package plugin implements the compile-time plugin catalog, manifest
// decoding, capability gate, and hot-reload loader that together replace
// dynamic source-file import: identity and metadata live in a YAML
// manifest colocated with a compiled Go package, and the loader matches
// manifest basenames against factories registered by that package's
// init function.
package plugin

// VulnManifest is the decoded form of a vulnerability plugin's manifest
// file — the Go rendering of the source's top-level __vuln_info__
// mapping. Unknown YAML keys are preserved in Extra.
type VulnManifest struct {
	Name         string            `yaml:"name"`
	VulnID       string            `yaml:"vuln_id"`
	Severity     string            `yaml:"severity"`
	Category     string            `yaml:"category"`
	Description  string            `yaml:"description"`
	Author       string            `yaml:"author"`
	Version      string            `yaml:"version"`
	References   []string          `yaml:"references"`
	Tags         []string          `yaml:"tags"`
	Fingerprints map[string]string `yaml:"fingerprints"`
	Extra        map[string]any    `yaml:",inline"`
}

// Metadata renders the manifest as the free-form map PluginInfo carries,
// mirroring how the source stores the whole __vuln_info__ dict verbatim
// as metadata regardless of which keys are "recognized".
func (m VulnManifest) Metadata() map[string]any {
	out := map[string]any{
		"name":        m.Name,
		"vuln_id":     m.VulnID,
		"severity":    m.Severity,
		"category":    m.Category,
		"description": m.Description,
		"author":      m.Author,
		"version":     m.Version,
		"references":  m.References,
		"tags":        m.Tags,
	}
	if len(m.Fingerprints) > 0 {
		out["fingerprints"] = m.Fingerprints
	}
	for k, v := range m.Extra {
		out[k] = v
	}
	return out
}

// ToolManifest is the decoded form of a tool plugin's manifest file.
// Tool plugins carry lighter metadata than vuln plugins in the source;
// name/description/version are the fields every tool declares.
type ToolManifest struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Version     string         `yaml:"version"`
	Extra       map[string]any `yaml:",inline"`
}

func (m ToolManifest) Metadata() map[string]any {
	out := map[string]any{
		"name":        m.Name,
		"description": m.Description,
		"version":     m.Version,
	}
	for k, v := range m.Extra {
		out[k] = v
	}
	return out
}
