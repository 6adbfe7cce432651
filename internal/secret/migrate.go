package secret

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/glossahq/glossa/internal/settings"
)

// MigrateLegacy moves a plaintext apiKey left behind by older releases from
// the provider-config blob into an encrypted record, then scrubs it from the
// blob. It no-ops when there is nothing to migrate and never fails the
// caller: problems are logged and the plaintext stays put for a later
// attempt. Safe to run on every startup.
func (v *Vault) MigrateLegacy(ctx context.Context) {
	raw, err := v.store.Get(ctx, settings.KeyProviderConfig)
	if errors.Is(err, settings.ErrKeyNotFound) {
		return
	}
	if err != nil {
		v.logger.Warn("legacy secret migration: read provider config", "error", err)
		return
	}

	var blob map[string]json.RawMessage
	if err := json.Unmarshal(raw, &blob); err != nil {
		v.logger.Warn("legacy secret migration: decode provider config", "error", err)
		return
	}

	keyRaw, ok := blob["apiKey"]
	if !ok {
		return
	}
	var plaintext string
	if err := json.Unmarshal(keyRaw, &plaintext); err != nil || plaintext == "" {
		return
	}

	name := "openrouter"
	var kind string
	if kindRaw, ok := blob["kind"]; ok {
		if err := json.Unmarshal(kindRaw, &kind); err == nil && kind != "" {
			name = kind
		}
	}

	if !v.HasSecret(ctx, name) {
		if err := v.SetSecret(ctx, name, plaintext); err != nil {
			v.logger.Warn("legacy secret migration: encrypt", "provider", name, "error", err)
			return
		}
	}

	delete(blob, "apiKey")
	scrubbed, err := json.Marshal(blob)
	if err != nil {
		v.logger.Warn("legacy secret migration: re-encode provider config", "error", err)
		return
	}
	if err := v.store.Set(ctx, settings.KeyProviderConfig, scrubbed); err != nil {
		v.logger.Warn("legacy secret migration: scrub provider config", "error", err)
		return
	}

	v.logger.Info("migrated legacy plaintext api key to encrypted storage", "provider", name)
}
