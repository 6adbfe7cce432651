package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/pkg/protocol"
)

// maxErrorBody caps how much of an error response is read for diagnostics.
const maxErrorBody = 8 << 10

// chatRequest is the POST /api/chat payload.
type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

// chatMessage carries one conversation turn. Images are base64-encoded
// without a data URI prefix, per the Ollama API.
type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// chatChunk is one /api/chat response object: the single body when
// stream=false, or one NDJSON line when stream=true. Token counts are only
// present on the final chunk.
type chatChunk struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

type versionResponse struct {
	Version string `json:"version"`
}

type tagsResponse struct {
	Models []struct {
		Name       string `json:"name"`
		Size       int64  `json:"size"`
		ModifiedAt string `json:"modified_at"`
	} `json:"models"`
}

// TestConnection probes GET /api/version, the cheapest endpoint the server
// exposes.
func (o *Ollama) TestConnection(ctx context.Context) error {
	opCtx, done := o.ops.Begin(ctx)
	defer done()

	resp, err := o.get(opCtx, "/api/version")
	if err != nil {
		return llm.FromTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return llm.FromStatus(resp.StatusCode, readAPIError(resp.Body))
	}

	var v versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return llm.NewError(protocol.CodeInvalidResponse, "malformed version response", err)
	}
	return nil
}

// ListModels returns the locally installed models from GET /api/tags.
func (o *Ollama) ListModels(ctx context.Context) ([]protocol.ModelInfo, error) {
	opCtx, done := o.ops.Begin(ctx)
	defer done()

	resp, err := o.get(opCtx, "/api/tags")
	if err != nil {
		return nil, llm.FromTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, llm.FromStatus(resp.StatusCode, readAPIError(resp.Body))
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, llm.NewError(protocol.CodeInvalidResponse, "malformed tags response", err)
	}

	models := make([]protocol.ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, protocol.ModelInfo{
			Name:       m.Name,
			Size:       m.Size,
			ModifiedAt: m.ModifiedAt,
		})
	}
	return models, nil
}

// Complete performs a non-streaming chat completion.
func (o *Ollama) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	opCtx, done := o.ops.Begin(ctx)
	defer done()

	resp, err := o.postChat(opCtx, req, false)
	if err != nil {
		return llm.CompletionResponse{}, err
	}
	defer resp.Body.Close()

	var chunk chatChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return llm.CompletionResponse{}, llm.NewError(protocol.CodeInvalidResponse, "malformed chat response", err)
	}
	if chunk.Error != "" {
		return llm.CompletionResponse{}, llm.NewError(protocol.CodeUnknown, chunk.Error, nil)
	}

	out := llm.CompletionResponse{
		Content:      chunk.Message.Content,
		Model:        chunk.Model,
		FinishReason: finishReason(chunk.DoneReason),
	}
	if chunk.PromptEvalCount > 0 || chunk.EvalCount > 0 {
		out.Usage = &llm.TokenUsage{
			PromptTokens:     chunk.PromptEvalCount,
			CompletionTokens: chunk.EvalCount,
			TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
		}
	}
	return out, nil
}

// Stream performs a streaming chat completion. Tokens are relayed from the
// NDJSON body until the chunk flagged done, which becomes the single
// terminal element before the channel closes.
func (o *Ollama) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamToken, error) {
	opCtx, done := o.ops.Begin(ctx)

	resp, err := o.postChat(opCtx, req, true)
	if err != nil {
		done()
		return nil, err
	}

	ch := make(chan llm.StreamToken, tokenBuffer)
	go func() {
		defer done()
		defer resp.Body.Close()
		defer close(ch)
		relayNDJSON(opCtx, resp.Body, ch)
	}()
	return ch, nil
}

// postChat issues POST /api/chat and maps HTTP-level failures. On success
// the caller owns the response body.
func (o *Ollama) postChat(ctx context.Context, req llm.CompletionRequest, stream bool) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = o.defaultModel()
	}

	payload := chatRequest{
		Model:    model,
		Messages: make([]chatMessage, 0, len(req.Messages)),
		Stream:   stream,
		Options:  buildOptions(req.Options),
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, chatMessage{
			Role:    string(m.Role),
			Content: m.Content,
			Images:  normalizeImages(m.Images),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, llm.NewError(protocol.CodeUnknown, "encode chat request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL()+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewError(protocol.CodeUnknown, "build chat request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, llm.FromTransport(err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, llm.FromStatus(resp.StatusCode, readAPIError(resp.Body))
	}
	return resp, nil
}

// get issues a GET against the configured endpoint.
func (o *Ollama) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL()+path, nil)
	if err != nil {
		return nil, err
	}
	return o.client.Do(req)
}

// buildOptions maps generation options onto the Ollama options object.
// Returns nil when nothing is set so the field is omitted.
func buildOptions(opts *llm.Options) map[string]any {
	if opts == nil {
		return nil
	}
	m := make(map[string]any)
	if opts.Temperature != nil {
		m["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		m["num_predict"] = opts.MaxTokens
	}
	if opts.TopP != nil {
		m["top_p"] = *opts.TopP
	}
	if len(opts.Stop) > 0 {
		m["stop"] = opts.Stop
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// finishReason maps the Ollama done_reason onto the protocol vocabulary.
func finishReason(reason string) llm.FinishReason {
	if reason == "length" {
		return llm.FinishReasonLength
	}
	return llm.FinishReasonStop
}

// normalizeImages strips data URI prefixes. The Ollama API takes bare
// base64 payloads.
func normalizeImages(images []string) []string {
	if len(images) == 0 {
		return nil
	}
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = stripDataURI(img)
	}
	return out
}

func stripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, "base64,"); i >= 0 {
		return s[i+len("base64,"):]
	}
	return s
}

// readAPIError extracts the error message from an Ollama error body, which
// is a JSON object with a single "error" field. Falls back to the raw body.
func readAPIError(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return fmt.Sprintf("%.200s", bytes.TrimSpace(raw))
}
