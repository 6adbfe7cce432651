package openrouter

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/pkg/protocol"
)

// maxErrorBody caps how much of an error response is read for diagnostics.
const maxErrorBody = 4096

// apiError is the error envelope OpenRouter returns on failures.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"` // string or int depending on upstream
	} `json:"error"`
}

// mapHTTPError converts a non-200 response into a coded error, preserving
// the server's message when the body carries one.
func mapHTTPError(statusCode int, body io.Reader) error {
	var ae apiError
	data, readErr := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if readErr == nil && len(data) > 0 {
		_ = json.Unmarshal(data, &ae)
	}
	return llm.FromStatus(statusCode, ae.Error.Message)
}

// mapStreamError converts an in-band error object into a coded error. The
// HTTP status is gone by that point, so the message is sniffed for the
// rate-limit case.
func mapStreamError(msg string) error {
	if msg == "" {
		msg = "unknown provider error"
	}
	code := protocol.CodeUnknown
	if strings.Contains(strings.ToLower(msg), "rate limit") {
		code = protocol.CodeRateLimited
	}
	return llm.NewError(code, msg, nil)
}
