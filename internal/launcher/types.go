// Package launcher maps a (ServerSpec, port, proxy type) triple to a launch
// plan: argv, environment, working directory, and optional generated config
// file (§4.4). The supervisor performs the actual spawn.
package launcher

import "github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"

// Plan is the opaque result of building a launch: what to exec, how, and
// where.
type Plan struct {
	Argv       []string
	Env        map[string]string
	WorkDir    string
	ConfigFile *GeneratedFile // non-nil when a config file must be written first
	Image      string         // non-empty when Launch == container
}

// GeneratedFile is a file the launcher needs written to WorkDir before spawn.
type GeneratedFile struct {
	RelPath string
	Content []byte
}

// Request bundles everything Build needs.
type Request struct {
	Spec            catalogconfig.ServerSpec
	Port            int
	ProxyType       catalogconfig.ProxyType
	DecryptedSecret map[string]string
	WorkDir         string
}
