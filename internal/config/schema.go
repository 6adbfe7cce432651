// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for glossa.
package config

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glossahq/glossa/internal/security"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Settings holds daemon-wide tunables that no single module owns. They
	// are applied during wiring, before modules start.
	Settings Settings `yaml:"settings"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "gateway.http").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// Settings configures the session hub and stream manager.
type Settings struct {
	// Limits applies per connected WebSocket client. Zero fields take
	// defaults.
	Limits security.RateLimitConfig `yaml:"limits"`

	// StreamTimeout bounds one generation from acceptance to its terminal
	// notification, surfaced as a TIMEOUT error. Zero leaves streams bounded
	// only by cancellation and client disconnect.
	StreamTimeout time.Duration `yaml:"stream_timeout"`
}
