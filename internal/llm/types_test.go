package llm

import (
	"testing"
)

func TestConfig_Equal(t *testing.T) {
	t.Parallel()

	ollama := func(host string, port int, model string) Config {
		return Config{Kind: KindOllama, Ollama: &OllamaConfig{Host: host, Port: port, Model: model}}
	}
	openrouter := func(key, model string) Config {
		return Config{Kind: KindOpenRouter, OpenRouter: &OpenRouterConfig{APIKey: key, Model: model}}
	}

	tests := []struct {
		name string
		a, b Config
		want bool
	}{
		{
			name: "identical ollama",
			a:    ollama("127.0.0.1", 11434, "llama3.2"),
			b:    ollama("127.0.0.1", 11434, "llama3.2"),
			want: true,
		},
		{
			name: "ollama host differs",
			a:    ollama("127.0.0.1", 11434, "llama3.2"),
			b:    ollama("10.0.0.5", 11434, "llama3.2"),
			want: false,
		},
		{
			name: "ollama port differs",
			a:    ollama("127.0.0.1", 11434, "llama3.2"),
			b:    ollama("127.0.0.1", 11435, "llama3.2"),
			want: false,
		},
		{
			name: "ollama model differs",
			a:    ollama("127.0.0.1", 11434, "llama3.2"),
			b:    ollama("127.0.0.1", 11434, "mistral"),
			want: false,
		},
		{
			name: "identical openrouter",
			a:    openrouter("sk-or-1", "openai/gpt-4o-mini"),
			b:    openrouter("sk-or-1", "openai/gpt-4o-mini"),
			want: true,
		},
		{
			name: "openrouter key rotated",
			a:    openrouter("sk-or-1", "openai/gpt-4o-mini"),
			b:    openrouter("sk-or-2", "openai/gpt-4o-mini"),
			want: false,
		},
		{
			name: "openrouter model differs",
			a:    openrouter("sk-or-1", "openai/gpt-4o-mini"),
			b:    openrouter("sk-or-1", "anthropic/claude-3.5-haiku"),
			want: false,
		},
		{
			name: "kind differs",
			a:    ollama("127.0.0.1", 11434, ""),
			b:    openrouter("sk-or-1", "m"),
			want: false,
		},
		{
			name: "unknown kind never equal",
			a:    Config{Kind: "mystery"},
			b:    Config{Kind: "mystery"},
			want: false,
		},
		{
			name: "nil branch vs populated branch",
			a:    Config{Kind: KindOllama},
			b:    ollama("127.0.0.1", 11434, ""),
			want: false,
		},
		{
			name: "both branches nil",
			a:    Config{Kind: KindOllama},
			b:    Config{Kind: KindOllama},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %t, want %t", got, tt.want)
			}
			// Equality is symmetric.
			if got := tt.b.Equal(tt.a); got != tt.want {
				t.Errorf("Equal() reversed = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Kind != KindOllama {
		t.Errorf("Kind = %q, want %q", cfg.Kind, KindOllama)
	}
	if cfg.Ollama == nil {
		t.Fatal("Ollama branch is nil")
	}
	if cfg.Ollama.Host != "127.0.0.1" || cfg.Ollama.Port != 11434 {
		t.Errorf("default endpoint = %s:%d, want 127.0.0.1:11434", cfg.Ollama.Host, cfg.Ollama.Port)
	}
	if cfg.Model() != "" {
		t.Errorf("default Model() = %q, want empty", cfg.Model())
	}
}

func TestConfig_Model(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "ollama with model",
			cfg:  Config{Kind: KindOllama, Ollama: &OllamaConfig{Model: "llama3.2"}},
			want: "llama3.2",
		},
		{
			name: "ollama without model",
			cfg:  Config{Kind: KindOllama, Ollama: &OllamaConfig{}},
			want: "",
		},
		{
			name: "openrouter",
			cfg:  Config{Kind: KindOpenRouter, OpenRouter: &OpenRouterConfig{Model: "openai/gpt-4o-mini"}},
			want: "openai/gpt-4o-mini",
		},
		{
			name: "nil branch",
			cfg:  Config{Kind: KindOpenRouter},
			want: "",
		},
		{
			name: "zero config",
			cfg:  Config{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.cfg.Model(); got != tt.want {
				t.Errorf("Model() = %q, want %q", got, tt.want)
			}
		})
	}
}
