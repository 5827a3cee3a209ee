// Package vault owns the master-key lifecycle and the authenticated
// encryption primitives used for secret records.
package vault

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// KeySize is the master key length in bytes (AES-256).
const KeySize = 32

var (
	// ErrKeyCorrupt indicates key material exists on disk but has the
	// wrong length.
	ErrKeyCorrupt = errors.New("master key file is corrupt")
)

// KeyVault manages the process-wide master key: generated once, persisted
// to a protected file, immutable for the life of the deployment. Construct
// one instance at process start and pass it by handle; there is no ambient
// global key.
type KeyVault struct {
	path string

	mu  sync.Mutex
	key []byte
}

// New creates a KeyVault backed by the key file at path. The key is not
// touched until the first MasterKey call.
func New(path string) *KeyVault {
	return &KeyVault{path: path}
}

// MasterKey returns the master key material, generating and persisting it
// on first use. Subsequent calls return the same bytes, byte-for-byte
// stable across process restarts.
func (v *KeyVault) MasterKey() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.key != nil {
		return v.key, nil
	}

	key, err := os.ReadFile(v.path)
	switch {
	case err == nil:
		if len(key) != KeySize {
			return nil, fmt.Errorf("%w: expected %d bytes, found %d", ErrKeyCorrupt, KeySize, len(key))
		}
		v.key = key
		return v.key, nil
	case os.IsNotExist(err):
		// First use: fall through to generation.
	default:
		return nil, fmt.Errorf("read master key: %w", err)
	}

	key = make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}

	if dir := filepath.Dir(v.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create key directory: %w", err)
		}
	}
	if err := os.WriteFile(v.path, key, 0600); err != nil {
		return nil, fmt.Errorf("write master key: %w", err)
	}

	// Owner-only permissions; unsupported platforms log and continue.
	if err := os.Chmod(v.path, 0600); err != nil {
		slog.Warn("set key file permissions failed",
			"component", "vault",
			"path", v.path,
			"error", err,
		)
	}

	v.key = key
	return v.key, nil
}
