package secretstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

// masterKeySize is 256 bits, per §4.3.
const masterKeySize = 32

// associatedDataPrefix binds every ciphertext to this system so a blob
// produced here can never be silently accepted by a different store
// (§9 REDESIGN FLAGS: the source's construction was inconsistent; this is
// the well-reviewed AEAD construction the spec calls for instead).
const associatedDataPrefix = "mcp-supervisor-secret-store/v1"

const algorithmTag = "AES-256-GCM"

// masterKeyStore owns the on-disk 32-byte master secret and derives a
// per-process sub-key from it via HKDF-SHA256, so key material used for
// AEAD never equals the raw on-disk bytes.
type masterKeyStore struct {
	subKey []byte
}

func loadOrCreateMasterKey(path string) (*masterKeyStore, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		raw = make([]byte, masterKeySize)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("generate master key: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create secret dir: %w", err)
		}
		if err := writeAtomic(path, raw, 0o600); err != nil {
			return nil, fmt.Errorf("persist master key: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read master key: %w", err)
	}
	if len(raw) != masterKeySize {
		return nil, fmt.Errorf("master key at %s has unexpected length %d", path, len(raw))
	}

	sub := make([]byte, masterKeySize)
	r := hkdf.New(sha256.New, raw, nil, []byte("mcp-supervisor/secretstore"))
	if _, err := io.ReadFull(r, sub); err != nil {
		return nil, fmt.Errorf("derive sub-key: %w", err)
	}
	return &masterKeyStore{subKey: sub}, nil
}

// newInMemoryMasterKey generates a master key that is never written to
// disk, for the memory-only fallback storage mode.
func newInMemoryMasterKey() (*masterKeyStore, error) {
	raw := make([]byte, masterKeySize)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate in-memory master key: %w", err)
	}
	sub := make([]byte, masterKeySize)
	r := hkdf.New(sha256.New, raw, nil, []byte("mcp-supervisor/secretstore"))
	if _, err := io.ReadFull(r, sub); err != nil {
		return nil, fmt.Errorf("derive sub-key: %w", err)
	}
	return &masterKeyStore{subKey: sub}, nil
}

func (m *masterKeyStore) encrypt(serverID, name, plaintext string) (EncryptedBlob, error) {
	block, err := aes.NewCipher(m.subKey)
	if err != nil {
		return EncryptedBlob{}, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return EncryptedBlob{}, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return EncryptedBlob{}, err
	}
	ad := associatedData(serverID, name)
	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), ad)
	return EncryptedBlob{Ciphertext: ciphertext, Nonce: nonce, Algorithm: algorithmTag}, nil
}

func (m *masterKeyStore) decrypt(serverID, name string, blob EncryptedBlob) (string, error) {
	block, err := aes.NewCipher(m.subKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	ad := associatedData(serverID, name)
	plaintext, err := gcm.Open(nil, blob.Nonce, blob.Ciphertext, ad)
	if err != nil {
		return "", fmt.Errorf("decrypt %s/%s: %w", serverID, name, err)
	}
	return string(plaintext), nil
}

func associatedData(serverID, name string) []byte {
	return []byte(associatedDataPrefix + "|" + serverID + "|" + name)
}

// writeAtomic writes data to a temp file in the target directory, then
// renames it into place, so readers never observe a partial write (§3.8).
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
