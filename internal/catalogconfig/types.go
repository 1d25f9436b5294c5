// Package catalogconfig loads the declarative catalog of managed MCP tool
// servers and watches it for changes.
package catalogconfig

import "sort"

// Kind identifies how a ServerSpec is launched and proxied.
type Kind string

const (
	KindStdio           Kind = "stdio"
	KindSSE             Kind = "sse"
	KindStreamableHTTP  Kind = "streamable-http"
)

// ProxyType identifies which bridge implementation fronts a server.
type ProxyType string

const (
	ProxyMCPO       ProxyType = "mcpo"
	ProxyMCPBridge  ProxyType = "mcp-bridge"
)

// LaunchMode selects how the bridge process itself is started.
type LaunchMode string

const (
	LaunchProcess   LaunchMode = "process"
	LaunchContainer LaunchMode = "container"
)

// ServerSpec is the immutable identity and desired state for one managed
// server, as produced by the loader from the configuration document.
type ServerSpec struct {
	ID   string
	Kind Kind

	// stdio fields
	Command       string
	Args          []string
	Env           map[string]string
	Cwd           string
	EnvFilePath   string
	ProxyTypeHint ProxyType
	NeedsProxy    bool

	// remote fields
	URL     string
	Headers map[string]string

	AlwaysAllow []string

	// Supplemental launch mode (container-backed bridge, see SPEC_FULL §13).
	Launch LaunchMode
	Image  string
}

// Equal reports whether two specs describe the same effective launch,
// ignoring fields that never affect the running process (none at present).
func (s ServerSpec) Equal(o ServerSpec) bool {
	if s.ID != o.ID || s.Kind != o.Kind || s.Command != o.Command ||
		s.Cwd != o.Cwd || s.EnvFilePath != o.EnvFilePath ||
		s.ProxyTypeHint != o.ProxyTypeHint || s.NeedsProxy != o.NeedsProxy ||
		s.URL != o.URL || s.Launch != o.Launch || s.Image != o.Image {
		return false
	}
	if !stringSliceEqual(s.Args, o.Args) || !stringSliceEqual(s.AlwaysAllow, o.AlwaysAllow) {
		return false
	}
	if !stringMapEqual(s.Env, o.Env) || !stringMapEqual(s.Headers, o.Headers) {
		return false
	}
	return true
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringMapEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// document is the on-disk shape of the configuration file (§6.1).
type document struct {
	MCPServers map[string]serverDocument `json:"mcpServers" yaml:"mcpServers"`
}

type serverDocument struct {
	Command       string            `json:"command" yaml:"command"`
	Args          []string          `json:"args" yaml:"args"`
	Env           map[string]string `json:"env" yaml:"env"`
	EnvFile       string            `json:"envFile" yaml:"envFile"`
	Cwd           string            `json:"cwd" yaml:"cwd"`
	Transport     string            `json:"transport" yaml:"transport"`
	URL           string            `json:"url" yaml:"url"`
	Headers       map[string]string `json:"headers" yaml:"headers"`
	NeedsProxy    *bool             `json:"needsProxy" yaml:"needsProxy"`
	ProxyType     string            `json:"proxyType" yaml:"proxyType"`
	AlwaysAllow   []string          `json:"alwaysAllow" yaml:"alwaysAllow"`
	Launch        string            `json:"launch" yaml:"launch"`
	Image         string            `json:"image" yaml:"image"`
}

// DesiredSet is a deterministic, duplicate-free collection of ServerSpecs
// keyed by id.
type DesiredSet map[string]ServerSpec

// IDs returns the sorted set of server ids.
func (d DesiredSet) IDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
