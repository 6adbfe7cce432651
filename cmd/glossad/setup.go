package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/glossahq/glossa/internal/core"
	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/internal/secret"
	"github.com/glossahq/glossa/internal/settings"
	"github.com/glossahq/glossa/modules/store/sqlite"
	"github.com/glossahq/glossa/pkg/app"
	"github.com/glossahq/glossa/pkg/protocol"
)

// configTemplate is the glossa.yaml written by setup. Every compiled
// configurable module needs an entry, so telemetry ships disabled.
const configTemplate = `version: "1"

modules:
  store.sqlite:
    path: %q
  gateway.http:
    bind: "127.0.0.1:4765"
    auth:
      token: %q
  telemetry.otel:
    enabled: false
`

func setupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactive first-run setup: pick a provider, store its credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			if dataDir == "" {
				dataDir = app.DefaultDataDir()
			}
			return runSetup(cmd.Context(), dataDir)
		},
	}
	cmd.Flags().String("data-dir", "", "Directory for persistent daemon data")
	return cmd
}

func runSetup(ctx context.Context, dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	desc, apiKey, err := askProvider()
	if err != nil {
		return err
	}

	dbPath := filepath.Join(dataDir, "settings.db")
	store, db, err := sqlite.OpenStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening settings database: %w", err)
	}
	defer db.Close()

	// The API key never goes into settings as plaintext; it is sealed by
	// the vault and only the descriptor is stored.
	if apiKey != "" {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		vault := secret.NewVault(secret.NewCipher(secret.NewKeystore(dataDir)), store, logger)
		if err := vault.SetSecret(ctx, desc.Kind, apiKey); err != nil {
			return fmt.Errorf("storing API key: %w", err)
		}
	}

	raw, err := json.Marshal(desc)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, settings.KeyProviderConfig, raw); err != nil {
		return fmt.Errorf("saving provider settings: %w", err)
	}

	cfgPath, wrote, err := ensureConfigFile(dbPath)
	if err != nil {
		return err
	}

	fmt.Printf("Provider %q configured.\n", desc.Kind)
	if wrote {
		fmt.Printf("Wrote %s. The gateway token inside it goes into the extension settings.\n", cfgPath)
	} else {
		fmt.Printf("Existing config at %s left untouched.\n", cfgPath)
	}
	fmt.Println("Start the daemon with: glossad start")
	return nil
}

// providerLabels maps known provider kinds to wizard labels. Kinds compiled
// in without an entry fall back to their bare name.
var providerLabels = map[string]string{
	string(llm.KindOllama):     "Ollama (local inference server)",
	string(llm.KindOpenRouter): "OpenRouter (hosted aggregator)",
}

// providerOptions enumerates the compiled provider modules, so the wizard
// offers exactly the backends this binary can construct.
func providerOptions() []huh.Option[string] {
	mods := core.GetModulesByNamespace(strings.TrimSuffix(llm.ModuleIDPrefix, "."))
	opts := make([]huh.Option[string], 0, len(mods))
	for _, info := range mods {
		kind := strings.TrimPrefix(string(info.ID), llm.ModuleIDPrefix)
		label, ok := providerLabels[kind]
		if !ok {
			label = kind
		}
		opts = append(opts, huh.NewOption(label, kind))
	}
	return opts
}

// askProvider walks the interactive forms and returns the descriptor to
// persist plus the API key for hosted kinds (empty otherwise).
func askProvider() (protocol.ProviderSettings, string, error) {
	var kind string
	pick := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Which backend should handle requests?").
			Options(providerOptions()...).
			Value(&kind),
	))
	if err := pick.Run(); err != nil {
		return protocol.ProviderSettings{}, "", err
	}

	switch llm.Kind(kind) {
	case llm.KindOllama:
		host := llm.DefaultOllamaHost
		portStr := strconv.Itoa(llm.DefaultOllamaPort)
		var model string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Host").Value(&host).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("host is required")
					}
					return nil
				}),
			huh.NewInput().Title("Port").Value(&portStr).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 || n > 65535 {
						return fmt.Errorf("port must be 1-65535")
					}
					return nil
				}),
			huh.NewInput().Title("Model (optional, pick later from the extension)").Value(&model),
		))
		if err := form.Run(); err != nil {
			return protocol.ProviderSettings{}, "", err
		}
		port, _ := strconv.Atoi(portStr)
		return protocol.ProviderSettings{
			Kind:  kind,
			Host:  strings.TrimSpace(host),
			Port:  port,
			Model: strings.TrimSpace(model),
		}, "", nil

	case llm.KindOpenRouter:
		var apiKey, model string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("API key").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("an API key is required for hosted backends")
					}
					return nil
				}),
			huh.NewInput().Title("Model identifier (e.g. openai/gpt-4o-mini)").
				Value(&model).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a model identifier is required")
					}
					return nil
				}),
		))
		if err := form.Run(); err != nil {
			return protocol.ProviderSettings{}, "", err
		}
		return protocol.ProviderSettings{
			Kind:  kind,
			Model: strings.TrimSpace(model),
		}, strings.TrimSpace(apiKey), nil

	default:
		return protocol.ProviderSettings{}, "", fmt.Errorf("unknown provider kind %q", kind)
	}
}

// ensureConfigFile writes a default glossa.yaml if none exists yet and
// reports the path and whether it was created.
func ensureConfigFile(dbPath string) (string, bool, error) {
	if existing, err := app.ResolveConfigPath(); err == nil {
		return existing, false, nil
	}

	var dir string
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		dir = filepath.Join(xdg, "glossa")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false, err
		}
		dir = filepath.Join(home, ".config", "glossa")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", false, err
	}

	token, err := newGatewayToken()
	if err != nil {
		return "", false, err
	}

	path := filepath.Join(dir, "glossa.yaml")
	content := fmt.Sprintf(configTemplate, dbPath, token)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", false, err
	}
	return path, true, nil
}

func newGatewayToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
