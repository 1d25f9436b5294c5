package catalogconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Digest short-circuits unchanged reloads (§4.1): it is the file's mtime
// joined with a content hash, so a reload with an identical digest never
// triggers reconciliation even if the mtime granularity is coarse.
type Digest string

// Loader reads the configuration document from disk.
type Loader struct {
	Path string
}

// NewLoader creates a Loader for the given path.
func NewLoader(path string) *Loader {
	return &Loader{Path: path}
}

// Load parses the configuration document into a DesiredSet and returns a
// digest for change detection. Parsing problems with individual entries are
// warnings, not errors (§4.1); an unreadable file or a document that does
// not parse is fatal to the load. A server id repeated in a YAML document
// fails the parse; in a JSON document a repeated id is not detected and its
// last occurrence is the one loaded.
func (l *Loader) Load() (DesiredSet, Digest, []string, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, "", nil, fmt.Errorf("read config %s: %w", l.Path, err)
	}
	info, err := os.Stat(l.Path)
	if err != nil {
		return nil, "", nil, fmt.Errorf("stat config %s: %w", l.Path, err)
	}

	var doc document
	if isYAML(l.Path) {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, "", nil, fmt.Errorf("parse yaml config %s: %w", l.Path, err)
		}
	} else {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, "", nil, fmt.Errorf("parse json config %s: %w", l.Path, err)
		}
	}

	desired := make(DesiredSet, len(doc.MCPServers))
	var warnings []string

	// Range over a map has nondeterministic order; sort ids first so that
	// warnings and any future "first duplicate wins" behavior are stable.
	names := make([]string, 0, len(doc.MCPServers))
	for name := range doc.MCPServers {
		names = append(names, name)
	}
	sortedCopy := append([]string(nil), names...)
	sort.Strings(sortedCopy)

	for _, name := range sortedCopy {
		if _, dup := desired[name]; dup {
			return nil, "", nil, fmt.Errorf("duplicate server id %q in %s", name, l.Path)
		}
		spec, warn, ok := parseEntry(name, doc.MCPServers[name])
		if warn != "" {
			warnings = append(warnings, warn)
		}
		if !ok {
			continue
		}
		desired[name] = spec
	}

	digest := computeDigest(info.ModTime().UnixNano(), data)
	return desired, digest, warnings, nil
}

// parseEntry applies the parsing rules of §4.1.
func parseEntry(id string, d serverDocument) (ServerSpec, string, bool) {
	spec := ServerSpec{
		ID:          id,
		Env:         d.Env,
		Headers:     d.Headers,
		Cwd:         d.Cwd,
		EnvFilePath: d.EnvFile,
		AlwaysAllow: d.AlwaysAllow,
		Launch:      LaunchProcess,
		Image:       d.Image,
	}
	if d.Launch == string(LaunchContainer) {
		spec.Launch = LaunchContainer
	}

	switch {
	case d.Transport == "sse" && d.URL != "":
		spec.Kind = KindSSE
		spec.URL = d.URL
		spec.NeedsProxy = true
	case d.Transport == "streamable-http" && d.URL != "":
		spec.Kind = KindStreamableHTTP
		spec.URL = d.URL
		spec.NeedsProxy = true
	case d.Command != "":
		spec.Kind = KindStdio
		spec.Command = d.Command
		spec.Args = d.Args
		spec.NeedsProxy = true
		if d.NeedsProxy != nil {
			spec.NeedsProxy = *d.NeedsProxy
		}
		if d.ProxyType != "" {
			spec.ProxyTypeHint = ProxyType(d.ProxyType)
		}
	default:
		return ServerSpec{}, fmt.Sprintf("skipping server %q: no command and no transport/url", id), false
	}

	return spec, "", true
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func computeDigest(mtimeNano int64, content []byte) Digest {
	h := sha256.New()
	fmt.Fprintf(h, "%d", mtimeNano)
	h.Write(content)
	return Digest(hex.EncodeToString(h.Sum(nil)))
}
