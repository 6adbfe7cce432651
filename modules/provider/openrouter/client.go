package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/pkg/protocol"
)

// apiRequest is the OpenAI-compatible chat completion request body.
type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	TopP        *float64     `json:"top_p,omitempty"`
	Stop        []string     `json:"stop,omitempty"`
	Stream      bool         `json:"stream"`
}

// apiMessage is an OpenAI-compatible chat message. Content is a plain
// string for text-only turns and a part array when images are attached.
type apiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentPart is one element of a multimodal content array.
type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

// apiResponse is the non-streaming response body.
type apiResponse struct {
	Model   string      `json:"model"`
	Choices []apiChoice `json:"choices"`
	Usage   apiUsage    `json:"usage"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// apiChoice is a single choice in a completion response.
type apiChoice struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// apiUsage holds token consumption data.
type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TestConnection validates the API key against GET /key, which returns the
// key's metadata without consuming credits.
func (o *OpenRouter) TestConnection(ctx context.Context) error {
	opCtx, done := o.ops.Begin(ctx)
	defer done()

	httpReq, err := http.NewRequestWithContext(opCtx, http.MethodGet, o.baseURL+"/key", nil)
	if err != nil {
		return llm.NewError(protocol.CodeUnknown, "build key request", err)
	}
	o.setHeaders(httpReq)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return llm.FromTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mapHTTPError(resp.StatusCode, resp.Body)
	}
	return nil
}

// ListModels returns an empty catalog. The hosted model list is too large
// to enumerate usefully, so clients maintain their own selection.
func (o *OpenRouter) ListModels(context.Context) ([]protocol.ModelInfo, error) {
	return []protocol.ModelInfo{}, nil
}

// Complete sends a non-streaming completion request.
func (o *OpenRouter) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	opCtx, done := o.ops.Begin(ctx)
	defer done()

	resp, err := o.doRequest(opCtx, o.buildRequest(req, false))
	if err != nil {
		return llm.CompletionResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return llm.CompletionResponse{}, mapHTTPError(resp.StatusCode, resp.Body)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return llm.CompletionResponse{}, llm.NewError(protocol.CodeInvalidResponse, "malformed completion response", err)
	}
	if apiResp.Error.Message != "" {
		return llm.CompletionResponse{}, mapStreamError(apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return llm.CompletionResponse{}, llm.NewError(protocol.CodeInvalidResponse, "response carried no choices", nil)
	}

	choice := apiResp.Choices[0]
	out := llm.CompletionResponse{
		Content:      choice.Message.Content,
		Model:        apiResp.Model,
		FinishReason: mapFinishReason(choice.FinishReason),
	}
	if apiResp.Usage.TotalTokens > 0 {
		out.Usage = &llm.TokenUsage{
			PromptTokens:     apiResp.Usage.PromptTokens,
			CompletionTokens: apiResp.Usage.CompletionTokens,
			TotalTokens:      apiResp.Usage.TotalTokens,
		}
	}
	return out, nil
}

// Stream sends a streaming completion request. Connection and HTTP-level
// failures are returned directly; mid-stream failures arrive as the
// terminal token.
func (o *OpenRouter) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamToken, error) {
	opCtx, done := o.ops.Begin(ctx)

	resp, err := o.doRequest(opCtx, o.buildRequest(req, true))
	if err != nil {
		done()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		err := mapHTTPError(resp.StatusCode, resp.Body)
		resp.Body.Close()
		done()
		return nil, err
	}

	ch := make(chan llm.StreamToken, tokenBuffer)
	go func() {
		defer done()
		defer resp.Body.Close()
		defer close(ch)
		parseSSE(opCtx, resp.Body, ch)
	}()
	return ch, nil
}

// buildRequest converts a completion request into the wire shape. The
// request model wins over the configured default.
func (o *OpenRouter) buildRequest(req llm.CompletionRequest, stream bool) apiRequest {
	model := req.Model
	if model == "" {
		model = o.snapshot().Model
	}

	ar := apiRequest{
		Model:    resolveModel(model),
		Messages: convertMessages(req.Messages),
		Stream:   stream,
	}
	if req.Options != nil {
		ar.MaxTokens = req.Options.MaxTokens
		ar.Temperature = req.Options.Temperature
		ar.TopP = req.Options.TopP
		ar.Stop = req.Options.Stop
	}
	return ar
}

// doRequest sends an API request and returns the raw HTTP response.
func (o *OpenRouter) doRequest(ctx context.Context, apiReq apiRequest) (*http.Response, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, llm.NewError(protocol.CodeUnknown, "encode completion request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewError(protocol.CodeUnknown, "build completion request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	o.setHeaders(httpReq)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, llm.FromTransport(err)
	}
	return resp, nil
}

// setHeaders applies authentication and app attribution headers.
func (o *OpenRouter) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+o.snapshot().APIKey)
	req.Header.Set("HTTP-Referer", appReferer)
	req.Header.Set("X-Title", appTitle)
}

// convertMessages converts conversation turns to API messages. Turns with
// images become multimodal part arrays.
func convertMessages(msgs []llm.Message) []apiMessage {
	out := make([]apiMessage, len(msgs))
	for i, m := range msgs {
		if len(m.Images) == 0 {
			out[i] = apiMessage{Role: string(m.Role), Content: m.Content}
			continue
		}

		parts := make([]contentPart, 0, len(m.Images)+1)
		if m.Content != "" {
			parts = append(parts, contentPart{Type: "text", Text: m.Content})
		}
		for _, img := range m.Images {
			parts = append(parts, contentPart{
				Type:     "image_url",
				ImageURL: &imageURLPart{URL: asDataURI(img)},
			})
		}
		out[i] = apiMessage{Role: string(m.Role), Content: parts}
	}
	return out
}

// asDataURI wraps a bare base64 payload in a PNG data URI. Payloads that
// already carry a scheme pass through.
func asDataURI(img string) string {
	if strings.HasPrefix(img, "data:") || strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
		return img
	}
	return "data:image/png;base64," + img
}
