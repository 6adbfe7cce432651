package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/pkg/protocol"
)

const (
	// tokenBuffer absorbs short bursts so a slow consumer does not stall
	// the HTTP read loop immediately.
	tokenBuffer = 16

	// maxLineSize bounds a single NDJSON line. Chunks carry one token each
	// so this is generous.
	maxLineSize = 512 * 1024
)

// relayNDJSON reads newline-delimited chat chunks from r and forwards them
// as stream tokens. It sends exactly one terminal element: a Done token for
// the chunk flagged done, or an Err token on any failure. The caller closes
// the channel.
func relayNDJSON(ctx context.Context, r io.Reader, ch chan<- llm.StreamToken) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			ch <- llm.StreamToken{Err: llm.NewError(protocol.CodeInvalidResponse, "malformed stream chunk", err)}
			return
		}

		if chunk.Error != "" {
			ch <- llm.StreamToken{Err: llm.NewError(protocol.CodeUnknown, chunk.Error, nil)}
			return
		}

		if chunk.Done {
			// The final chunk may still carry trailing content.
			ch <- llm.StreamToken{Content: chunk.Message.Content, Done: true}
			return
		}

		select {
		case ch <- llm.StreamToken{Content: chunk.Message.Content}:
		case <-ctx.Done():
			ch <- llm.StreamToken{Err: llm.NewError(protocol.CodeCancelled, "stream cancelled", ctx.Err())}
			return
		}
	}

	// The read loop ended without a done chunk: either the operation was
	// cancelled mid-body or the server hung up early.
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
