package telemetry

// Config controls trace export.
type Config struct {
	// Enabled turns span export on. When false the global no-op tracer
	// provider stays in place.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/HTTP collector address as host:port, no scheme.
	Endpoint string `yaml:"endpoint"`

	// Insecure switches the exporter to plain HTTP for local collectors.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of new traces to sample, in (0, 1].
	SampleRatio float64 `yaml:"sample_ratio"`
}

func (c *Config) defaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRatio == 0 {
		c.SampleRatio = 1
	}
}
