// Package secret protects the provider API key at rest. A Keystore owns the
// symmetric key file and hands out opaque handles, a Cipher performs
// AES-256-GCM encryption with those handles, and a Vault layers a volatile
// session cache plus the persisted record on top.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	keyFileName = "secret.key"
	keySize     = 32 // AES-256
)

// KeyHandle wraps an AEAD constructed from the stored key. The raw key bytes
// are wiped after construction; application code only ever sees the handle.
// Go offers no hardware-backed non-extractable key object, so the guarantee
// is by construction rather than by platform.
type KeyHandle struct {
	aead cipher.AEAD
}

// Keystore loads or creates the daemon's symmetric key. The key lives in its
// own file inside the data directory, separate from the settings store.
type Keystore struct {
	path string

	mu     sync.Mutex
	handle *KeyHandle
}

// NewKeystore returns a keystore rooted at dataDir. The key file is not
// touched until Handle is first called.
func NewKeystore(dataDir string) *Keystore {
	return &Keystore{path: filepath.Join(dataDir, keyFileName)}
}

// Handle returns the key handle, generating and persisting the key on first
// use. Concurrent first callers are serialized; exactly one key is created.
func (k *Keystore) Handle() (*KeyHandle, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.handle != nil {
		return k.handle, nil
	}

	raw, err := k.loadOrCreate()
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(raw)
	zero(raw)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	k.handle = &KeyHandle{aead: aead}
	return k.handle, nil
}

// loadOrCreate reads the key file, creating it with a fresh random key when
// absent. Creation uses O_EXCL so two processes racing on first use agree on
// a single key: the loser re-reads the winner's file.
func (k *Keystore) loadOrCreate() ([]byte, error) {
	raw, err := os.ReadFile(k.path)
	if err == nil {
		if len(raw) != keySize {
			return nil, fmt.Errorf("key file %s: %d bytes, want %d", k.path, len(raw), keySize)
		}
		return raw, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	raw = make([]byte, keySize)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(k.path), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.OpenFile(k.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		zero(raw)
		raw, err = os.ReadFile(k.path)
		if err != nil {
			return nil, fmt.Errorf("read key file after lost create race: %w", err)
		}
		if len(raw) != keySize {
			return nil, fmt.Errorf("key file %s: %d bytes, want %d", k.path, len(raw), keySize)
		}
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create key file: %w", err)
	}

	_, werr := f.Write(raw)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(k.path)
		return nil, fmt.Errorf("write key file: %w", errors.Join(werr, cerr))
	}

	return raw, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
