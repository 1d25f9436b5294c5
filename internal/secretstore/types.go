// Package secretstore persists per-server secret key/value bundles to disk,
// encrypted at rest, with an in-memory read cache (§4.3, §3.6).
package secretstore

import "time"

// EncryptedBlob is one encrypted value inside a SecretBundle.
type EncryptedBlob struct {
	Ciphertext []byte    `json:"ciphertext"`
	Nonce      []byte    `json:"nonce"`
	Algorithm  string    `json:"algorithm"`
	At         time.Time `json:"at"`
}

// Bundle is the persisted, per-server document (§3.6).
type Bundle struct {
	ServerID    string                   `json:"serverId"`
	LastUpdated time.Time                `json:"lastUpdated"`
	Variables   map[string]EncryptedBlob `json:"variables"`
	Metadata    BundleMetadata           `json:"metadata"`
}

// BundleMetadata carries counters the dashboard can render without
// decrypting anything.
type BundleMetadata struct {
	KeyCount int `json:"keyCount"`
	Version  int `json:"version"`
}

const currentBundleVersion = 1

// InferredType classifies a secret by its name for the masked summary
// view (§4.3).
type InferredType string

const (
	TypeAPIKey   InferredType = "api_key"
	TypeToken    InferredType = "token"
	TypePassword InferredType = "password"
	TypeSecret   InferredType = "secret"
	TypeURL      InferredType = "url"
	TypeString   InferredType = "string"
)

// Summary is what the management API is allowed to expose for one key:
// never the plaintext (§4.3).
type Summary struct {
	Name      string       `json:"name"`
	Masked    string       `json:"masked"`
	Type      InferredType `json:"type"`
	Required  bool         `json:"required"`
}
