package openrouter

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/pkg/protocol"
)

const (
	// tokenBuffer absorbs short bursts so a slow consumer does not stall
	// the HTTP read loop immediately.
	tokenBuffer = 16

	// sseMaxLineSize is the maximum SSE line size (512 KiB). Long
	// completions can exceed the default 64 KiB bufio.Scanner limit.
	sseMaxLineSize = 512 * 1024
)

// apiStreamChunk is a single chunk in a streaming response.
type apiStreamChunk struct {
	Choices []apiStreamChoice `json:"choices"`
	Error   struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// apiStreamChoice is a choice within a streaming chunk.
type apiStreamChoice struct {
	Delta struct {
		Content string `json:"content,omitempty"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

// parseSSE reads an SSE stream from r and forwards decoded chunks as
// stream tokens. It handles OpenRouter keepalive comments, the [DONE]
// sentinel, and mid-stream error objects, and sends exactly one terminal
// element. The caller closes the channel.
//
// Each data payload is assumed to fit on a single "data:" line, the format
// used by all OpenAI-compatible APIs. Multi-line SSE data fields are not
// supported.
func parseSSE(ctx context.Context, r io.Reader, ch chan<- llm.StreamToken) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, sseMaxLineSize), sseMaxLineSize)

	for scanner.Scan() {
		line := scanner.Text()

		// Event separators and SSE comment lines.
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		if data == "[DONE]" {
			ch <- llm.StreamToken{Done: true}
			return
		}

		// Keepalive sent as a data payload: "data: : OPENROUTER PROCESSING".
		if strings.HasPrefix(data, ":") {
			continue
		}

		var chunk apiStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			ch <- llm.StreamToken{Err: llm.NewError(protocol.CodeInvalidResponse, "malformed stream chunk", err)}
			return
		}

		if chunk.Error.Message != "" {
			ch <- llm.StreamToken{Err: mapStreamError(chunk.Error.Message)}
			return
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			// Trailing content rides on the terminal token.
			ch <- llm.StreamToken{Content: choice.Delta.Content, Done: true}
			return
		}

		select {
		case ch <- llm.StreamToken{Content: choice.Delta.Content}:
		case <-ctx.Done():
			ch <- llm.StreamToken{Err: llm.NewError(protocol.CodeCancelled, "stream cancelled", ctx.Err())}
			return
		}
	}

	// The read loop ended without a terminal chunk: either the operation
	// was cancelled mid-body or the server hung up early.
	if ctx.Err() != nil {
		ch <- llm.StreamToken{Err: llm.NewError(protocol.CodeCancelled, "stream cancelled", ctx.Err())}
		return
	}
	if err := scanner.Err(); err != nil {
		ch <- llm.StreamToken{Err: llm.FromTransport(err)}
		return
	}
	ch <- llm.StreamToken{Err: llm.NewError(protocol.CodeInvalidResponse, "stream ended before completion", nil)}
}

// mapFinishReason converts an OpenAI-compatible finish_reason string onto
// the protocol vocabulary.
func mapFinishReason(reason string) llm.FinishReason {
	if reason == "length" {
		return llm.FinishReasonLength
	}
	return llm.FinishReasonStop
}
