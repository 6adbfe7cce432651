package secret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/glossahq/glossa/internal/settings"
)

// Vault is the read/write surface for provider secrets. Reads consult a
// volatile session cache before the encrypted record; a missing key file or
// record reads as "no secret configured" rather than an error. The cache is
// never persisted and is swept by the maintenance job after an idle TTL.
type Vault struct {
	cipher *Cipher
	store  settings.Store
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	value    string
	lastUsed time.Time
}

// NewVault returns a vault over the given cipher and settings store.
func NewVault(cipher *Cipher, store settings.Store, logger *slog.Logger) *Vault {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vault{
		cipher: cipher,
		store:  store,
		logger: logger,
		cache:  make(map[string]cacheEntry),
	}
}

// Secret returns the decrypted secret for a provider kind such as
// "openrouter". The second return reports whether a secret is configured;
// a missing record is (_, false, nil), not an error. Decryption failures on
// an existing record are returned so callers can surface them.
func (v *Vault) Secret(ctx context.Context, name string) (string, bool, error) {
	key := settings.SecretKeyPrefix + name

	v.mu.Lock()
	if e, ok := v.cache[key]; ok {
		e.lastUsed = time.Now()
		v.cache[key] = e
		v.mu.Unlock()
		return e.value, true, nil
	}
	v.mu.Unlock()

	raw, err := v.store.Get(ctx, key)
	if errors.Is(err, settings.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read secret record: %w", err)
	}

	var rec EncryptedSecret
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", false, fmt.Errorf("%w: malformed secret record: %v", ErrDecryption, err)
	}

	plain, err := v.cipher.Decrypt(rec)
	if err != nil {
		return "", false, err
	}

	v.remember(key, plain)
	return plain, true, nil
}

// HasSecret reports whether a secret is configured without decrypting it.
// A failing store reads as "not configured", but unlike a genuinely absent
// record the failure is logged so a rejected hosted config can be traced
// back to the store rather than a missing key.
func (v *Vault) HasSecret(ctx context.Context, name string) bool {
	key := settings.SecretKeyPrefix + name

	v.mu.Lock()
	_, cached := v.cache[key]
	v.mu.Unlock()
	if cached {
		return true
	}

	if _, err := v.store.Get(ctx, key); err != nil {
		if !errors.Is(err, settings.ErrKeyNotFound) {
			v.logger.Warn("secret lookup failed", "key", key, "error", err)
		}
		return false
	}
	return true
}

// SetSecret encrypts plaintext, persists the record, and primes the cache.
// Write-path failures are explicit.
func (v *Vault) SetSecret(ctx context.Context, name, plaintext string) error {
	key := settings.SecretKeyPrefix + name

	rec, err := v.cipher.Encrypt(plaintext)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode secret record: %w", err)
	}
	if err := v.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("persist secret record: %w", err)
	}

	v.remember(key, plaintext)
	return nil
}

// ClearSecret removes the persisted record and the cached plaintext.
// Clearing an absent secret is a no-op.
func (v *Vault) ClearSecret(ctx context.Context, name string) error {
	key := settings.SecretKeyPrefix + name

	v.mu.Lock()
	delete(v.cache, key)
	v.mu.Unlock()

	err := v.store.Remove(ctx, key)
	if err != nil && !errors.Is(err, settings.ErrKeyNotFound) {
		return fmt.Errorf("remove secret record: %w", err)
	}
	return nil
}

// SweepCache drops cached plaintexts that have not been read for at least
// idle, and returns how many were dropped. The encrypted records are
// untouched; the next read decrypts again.
func (v *Vault) SweepCache(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	v.mu.Lock()
	defer v.mu.Unlock()

	var dropped int
	for key, e := range v.cache {
		if e.lastUsed.Before(cutoff) {
			delete(v.cache, key)
			dropped++
		}
	}
	return dropped
}

// CacheLen returns the number of cached plaintexts.
func (v *Vault) CacheLen() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.cache)
}

func (v *Vault) remember(key, plaintext string) {
	v.mu.Lock()
	v.cache[key] = cacheEntry{value: plaintext, lastUsed: time.Now()}
	v.mu.Unlock()
}
