package secretstore

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// cacheTTL is the decrypted-value cache lifetime (§4.3).
const cacheTTL = 5 * time.Minute

// Mode records which fallback storage mode the store ended up in (§4.3).
type Mode string

const (
	ModePersistent Mode = "persistent"
	ModeTmpfs      Mode = "tmpfs"
	ModeMemory     Mode = "memory"
)

type cacheEntry struct {
	values  map[string]string
	at      time.Time
}

// Store is the secret store: encrypted-at-rest, cached decrypted reads.
type Store struct {
	dir       string
	mode      Mode
	masterKey *masterKeyStore

	mu    sync.Mutex
	cache map[string]cacheEntry

	// memStore backs ModeMemory, where nothing touches disk at all.
	memStore map[string]Bundle
}

// Open selects a storage mode in the order described by §4.3: a persistent
// writable directory, then an ephemeral tmpfs directory, then memory-only.
func Open(preferredDir, tmpfsDir string) (*Store, error) {
	if dir, err := ensureWritable(preferredDir); err == nil {
		key, err := loadOrCreateMasterKey(filepath.Join(dir, "master.key"))
		if err != nil {
			return nil, err
		}
		return &Store{dir: dir, mode: ModePersistent, masterKey: key, cache: make(map[string]cacheEntry)}, nil
	}

	if tmpfsDir != "" {
		if dir, err := ensureWritable(tmpfsDir); err == nil {
			log.Printf("WARN: secret store falling back to ephemeral tmpfs directory %s: secrets will not survive a reboot", dir)
			key, err := loadOrCreateMasterKey(filepath.Join(dir, "master.key"))
			if err != nil {
				return nil, err
			}
			return &Store{dir: dir, mode: ModeTmpfs, masterKey: key, cache: make(map[string]cacheEntry)}, nil
		}
	}

	log.Printf("WARN: secret store falling back to MEMORY ONLY: secrets will be lost when this process exits")
	key, err := newInMemoryMasterKey()
	if err != nil {
		return nil, err
	}
	return &Store{mode: ModeMemory, masterKey: key, cache: make(map[string]cacheEntry), memStore: make(map[string]Bundle)}, nil
}

// Mode reports which fallback tier the store landed in.
func (s *Store) Mode() Mode { return s.mode }

// Load decrypts and returns every variable in a server's bundle.
// Per-key decryption failures are logged and the key skipped; other keys
// still come back (§4.3).
func (s *Store) Load(serverID string) (map[string]string, error) {
	s.mu.Lock()
	if entry, ok := s.cache[serverID]; ok && time.Since(entry.at) < cacheTTL {
		defer s.mu.Unlock()
		return cloneMap(entry.values), nil
	}
	s.mu.Unlock()

	bundle, ok, err := s.readBundle(serverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]string{}, nil
	}

	values := make(map[string]string, len(bundle.Variables))
	for name, blob := range bundle.Variables {
		plaintext, err := s.masterKey.decrypt(serverID, name, blob)
		if err != nil {
			log.Printf("WARN: secret store: dropping undecryptable key %s/%s: %v", serverID, name, err)
			continue
		}
		values[name] = plaintext
	}

	s.mu.Lock()
	s.cache[serverID] = cacheEntry{values: cloneMap(values), at: time.Now()}
	s.mu.Unlock()

	return values, nil
}

// Save encrypts and persists vars, replacing the server's bundle entirely,
// then invalidates the cache entry.
func (s *Store) Save(serverID string, vars map[string]string) error {
	variables := make(map[string]EncryptedBlob, len(vars))
	for name, plaintext := range vars {
		blob, err := s.masterKey.encrypt(serverID, name, plaintext)
		if err != nil {
			return fmt.Errorf("encrypt %s/%s: %w", serverID, name, err)
		}
		blob.At = time.Now()
		variables[name] = blob
	}

	bundle := Bundle{
		ServerID:    serverID,
		LastUpdated: time.Now(),
		Variables:   variables,
		Metadata:    BundleMetadata{KeyCount: len(variables), Version: currentBundleVersion},
	}

	if err := s.writeBundle(serverID, bundle); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.cache, serverID)
	s.mu.Unlock()
	return nil
}

// Delete removes a server's bundle entirely.
func (s *Store) Delete(serverID string) error {
	s.mu.Lock()
	delete(s.cache, serverID)
	s.mu.Unlock()

	if s.mode == ModeMemory {
		delete(s.memStore, serverID)
		return nil
	}
	path := s.bundlePath(serverID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete bundle %s: %w", path, err)
	}
	return nil
}

// Summary returns masked, type-inferred metadata only — never plaintext.
func (s *Store) Summary(serverID string) ([]Summary, error) {
	bundle, ok, err := s.readBundle(serverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	names := make([]string, 0, len(bundle.Variables))
	for name := range bundle.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]Summary, 0, len(names))
	for _, name := range names {
		summaries = append(summaries, Summary{
			Name:     name,
			Masked:   maskedPlaceholder(name),
			Type:     inferType(name),
			Required: true,
		})
	}
	return summaries, nil
}

func (s *Store) readBundle(serverID string) (Bundle, bool, error) {
	if s.mode == ModeMemory {
		s.mu.Lock()
		defer s.mu.Unlock()
		b, ok := s.memStore[serverID]
		return b, ok, nil
	}

	data, err := os.ReadFile(s.bundlePath(serverID))
	if os.IsNotExist(err) {
		return Bundle{}, false, nil
	}
	if err != nil {
		return Bundle{}, false, fmt.Errorf("read bundle %s: %w", serverID, err)
	}
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return Bundle{}, false, fmt.Errorf("parse bundle %s: %w", serverID, err)
	}
	return bundle, true, nil
}

func (s *Store) writeBundle(serverID string, bundle Bundle) error {
	if s.mode == ModeMemory {
		s.mu.Lock()
		s.memStore[serverID] = bundle
		s.mu.Unlock()
		return nil
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bundle %s: %w", serverID, err)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create secret dir: %w", err)
	}
	if err := writeAtomic(s.bundlePath(serverID), data, 0o600); err != nil {
		return fmt.Errorf("write bundle %s: %w", serverID, err)
	}
	return nil
}

func (s *Store) bundlePath(serverID string) string {
	return filepath.Join(s.dir, serverID+".env.json")
}

func ensureWritable(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("empty directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	probe := filepath.Join(dir, ".write-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return "", err
	}
	_ = os.Remove(probe)
	return dir, nil
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func maskedPlaceholder(name string) string {
	return "••••••••"
}

func inferType(name string) InferredType {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "api_key") || strings.Contains(lower, "apikey"):
		return TypeAPIKey
	case strings.Contains(lower, "token"):
		return TypeToken
	case strings.Contains(lower, "password") || strings.Contains(lower, "passwd"):
		return TypePassword
	case strings.Contains(lower, "secret"):
		return TypeSecret
	case strings.Contains(lower, "url") || strings.Contains(lower, "uri") || strings.Contains(lower, "endpoint"):
		return TypeURL
	default:
		return TypeString
	}
}
