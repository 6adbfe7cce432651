package openrouter

import (
	"testing"

	"github.com/glossahq/glossa/internal/llm"
)

func TestBuildRequest(t *testing.T) {
	t.Parallel()

	temp := 0.7
	topP := 0.9
	o := newOpenRouter()
	o.cfg = llm.OpenRouterConfig{APIKey: "sk-or-v1-test", Model: "openai/gpt-4o"}

	req := llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a translator."},
			{Role: llm.RoleUser, Content: "Hello"},
		},
		Options: &llm.Options{
			MaxTokens:   100,
			Temperature: &temp,
			TopP:        &topP,
			Stop:        []string{"\n\n"},
		},
	}

	ar := o.buildRequest(req, true)

	if ar.Model != "openai/gpt-4o" {
		t.Errorf("Model = %q", ar.Model)
	}
	if !ar.Stream {
		t.Error("Stream flag not set")
	}
	if len(ar.Messages) != 2 {
		t.Fatalf("Messages count = %d", len(ar.Messages))
	}
	if ar.Messages[0].Role != "system" {
		t.Errorf("Messages[0].Role = %q", ar.Messages[0].Role)
	}
	if ar.MaxTokens != 100 {
		t.Errorf("MaxTokens = %d", ar.MaxTokens)
	}
	if ar.Temperature == nil || *ar.Temperature != 0.7 {
		t.Errorf("Temperature = %v", ar.Temperature)
	}
	if ar.TopP == nil || *ar.TopP != 0.9 {
		t.Errorf("TopP = %v", ar.TopP)
	}
	if len(ar.Stop) != 1 || ar.Stop[0] != "\n\n" {
		t.Errorf("Stop = %v", ar.Stop)
	}
}

func TestBuildRequestModelPrecedence(t *testing.T) {
	t.Parallel()

	o := newOpenRouter()
	o.cfg = llm.OpenRouterConfig{APIKey: "sk-or-v1-test", Model: "openai/gpt-4o-mini"}

	// The per-request model wins over the configured default.
	ar := o.buildRequest(llm.CompletionRequest{Model: "anthropic/claude-3.5-sonnet"}, false)
	if ar.Model != "anthropic/claude-3.5-sonnet" {
		t.Errorf("Model = %q", ar.Model)
	}

	// Empty request model falls back to the configured default.
	ar = o.buildRequest(llm.CompletionRequest{}, false)
	if ar.Model != "openai/gpt-4o-mini" {
		t.Errorf("Model = %q", ar.Model)
	}

	// "auto" resolves to the router model.
	ar = o.buildRequest(llm.CompletionRequest{Model: "auto"}, false)
	if ar.Model != "openrouter/auto" {
		t.Errorf("Model = %q", ar.Model)
	}
}

func TestConvertMessagesTextOnly(t *testing.T) {
	t.Parallel()

	msgs := convertMessages([]llm.Message{
		{Role: llm.RoleUser, Content: "plain text"},
	})

	if len(msgs) != 1 {
		t.Fatalf("message count = %d", len(msgs))
	}
	content, ok := msgs[0].Content.(string)
	if !ok {
		t.Fatalf("Content type = %T, want string", msgs[0].Content)
	}
	if content != "plain text" {
		t.Errorf("Content = %q", content)
	}
}

func TestConvertMessagesWithImages(t *testing.T) {
	t.Parallel()

	msgs := convertMessages([]llm.Message{
		{
			Role:    llm.RoleUser,
			Content: "what is this?",
			Images:  []string{"aGVsbG8=", "data:image/jpeg;base64,Zm9v"},
		},
	})

	parts, ok := msgs[0].Content.([]contentPart)
	if !ok {
		t.Fatalf("Content type = %T, want []contentPart", msgs[0].Content)
	}
	if len(parts) != 3 {
		t.Fatalf("part count = %d, want 3", len(parts))
	}

	if parts[0].Type != "text" || parts[0].Text != "what is this?" {
		t.Errorf("parts[0] = %+v", parts[0])
	}
	if parts[1].Type != "image_url" || parts[1].ImageURL.URL != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("parts[1] = %+v", parts[1])
	}
	// An existing data URI passes through untouched.
	if parts[2].ImageURL.URL != "data:image/jpeg;base64,Zm9v" {
		t.Errorf("parts[2] = %+v", parts[2])
	}
}

func TestConvertMessagesImageWithoutText(t *testing.T) {
	t.Parallel()

	msgs := convertMessages([]llm.Message{
		{Role: llm.RoleUser, Images: []string{"aGVsbG8="}},
	})

	parts, ok := msgs[0].Content.([]contentPart)
	if !ok {
		t.Fatalf("Content type = %T, want []contentPart", msgs[0].Content)
	}
	if len(parts) != 1 || parts[0].Type != "image_url" {
		t.Errorf("parts = %+v", parts)
	}
}

func TestAsDataURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"aGVsbG8=", "data:image/png;base64,aGVsbG8="},
		{"data:image/jpeg;base64,Zm9v", "data:image/jpeg;base64,Zm9v"},
		{"https://example.com/cat.png", "https://example.com/cat.png"},
		{"http://example.com/cat.png", "http://example.com/cat.png"},
	}

	for _, tt := range tests {
		if got := asDataURI(tt.in); got != tt.want {
			t.Errorf("asDataURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
