// Package llm defines the capability surface shared by all model backends:
// the Provider interface, the unified request/response types, the runtime
// provider configuration union, and the Registry that owns the active
// provider instance. Concrete backends live under modules/provider.
package llm

// Kind identifies a backend implementation.
type Kind string

// Supported backend kinds.
const (
	KindOllama     Kind = "ollama"
	KindOpenRouter Kind = "openrouter"
)

// Default local backend, used when nothing is configured yet.
const (
	DefaultOllamaHost = "127.0.0.1"
	DefaultOllamaPort = 11434
)

// Role identifies the sender of a message in a conversation.
type Role string

// Role constants for conversation messages.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FinishReason describes why the model stopped generating.
type FinishReason string

// FinishReason constants for completion termination.
const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonCancelled FinishReason = "cancelled"
)

// Message is a single message in a conversation. Images carries base64
// image attachments for multimodal requests; each backend maps them to its
// own wire shape.
type Message struct {
	Role    Role     `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// Options are per-request generation parameters. Nil pointer fields are
// omitted from the backend request so backend defaults apply.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	TopP        *float64 `json:"topP,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// CompletionRequest is the input to a Provider.Complete or Provider.Stream
// call. Messages must be non-empty; Model must be resolved by the caller.
type CompletionRequest struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model"`
	Options  *Options  `json:"options,omitempty"`
}

// CompletionResponse is the output of a Provider.Complete call.
type CompletionResponse struct {
	Content      string       `json:"content"`
	Model        string       `json:"model"`
	Usage        *TokenUsage  `json:"usage,omitempty"`
	FinishReason FinishReason `json:"finishReason"`
}

// TokenUsage tracks token consumption for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// StreamToken is one element of a streaming completion. A stream is finite
// and not restartable, and carries exactly one terminal element: either a
// token with Done set (which may carry trailing content) or a token whose
// Err is non-nil.
type StreamToken struct {
	Content string
	Done    bool
	Err     error
}

// OllamaConfig holds the connection fields for a local ollama backend.
type OllamaConfig struct {
	Host  string `json:"host"`
	Port  int    `json:"port"`
	Model string `json:"model,omitempty"`
}

// OpenRouterConfig holds the auth and model fields for the hosted backend.
type OpenRouterConfig struct {
	APIKey string `json:"apiKey"`
	Model  string `json:"model"`
}

// Config describes the active provider: a kind plus exactly one populated
// kind-specific branch.
type Config struct {
	Kind       Kind              `json:"kind"`
	Ollama     *OllamaConfig     `json:"ollama,omitempty"`
	OpenRouter *OpenRouterConfig `json:"openrouter,omitempty"`
}

// DefaultConfig returns the fallback local-backend configuration used when
// no provider has been configured.
func DefaultConfig() Config {
	return Config{
		Kind: KindOllama,
		Ollama: &OllamaConfig{
			Host: DefaultOllamaHost,
			Port: DefaultOllamaPort,
		},
	}
}

// Equal reports whether two configs are identical across every identity
// field of the active kind. The kind switch is deliberately exhaustive with
// a false default: an unrecognized kind must never compare as equal, or a
// stale adapter would silently survive a config change.
func (c Config) Equal(other Config) bool {
	if c.Kind != other.Kind {
		return false
	}
	switch c.Kind {
	case KindOllama:
		if c.Ollama == nil || other.Ollama == nil {
			return c.Ollama == other.Ollama
		}
		return *c.Ollama == *other.Ollama
	case KindOpenRouter:
		if c.OpenRouter == nil || other.OpenRouter == nil {
			return c.OpenRouter == other.OpenRouter
		}
		return *c.OpenRouter == *other.OpenRouter
	default:
		return false
	}
}

// Model returns the configured model identifier for the active kind, or ""
// when none is set.
func (c Config) Model() string {
	switch c.Kind {
	case KindOllama:
		if c.Ollama != nil {
			return c.Ollama.Model
		}
	case KindOpenRouter:
		if c.OpenRouter != nil {
			return c.OpenRouter.Model
		}
	}
	return ""
}
