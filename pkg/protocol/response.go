package protocol

import "encoding/json"

// ErrorDetail carries a classified failure inside a Response or a
// STREAM_ERROR notification.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Response is the uniform reply shape for every request: either Data is set
// and Success is true, or Error is set and Success is false. Exactly one
// Response is produced per request envelope.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
}

// OK builds a success response, marshalling data to JSON. A marshal failure
// degrades to an INTERNAL_ERROR response rather than a partial envelope.
func OK(data any) Response {
	raw, err := json.Marshal(data)
	if err != nil {
		return Fail(CodeInternalError, "encoding response: "+err.Error())
	}
	return Response{Success: true, Data: raw}
}

// Fail builds an error response with the given code and message.
func Fail(code ErrorCode, message string) Response {
	return Response{Success: false, Error: &ErrorDetail{Code: code, Message: message}}
}

// DecodeData unmarshals the Data of a success response into T.
func DecodeData[T any](r Response) (T, error) {
	var v T
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return v, err
	}
	return v, nil
}

// ModelInfo describes one locally enumerable model.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size,omitempty"`
	ModifiedAt string `json:"modifiedAt,omitempty"`
}

// ProviderView is the redacted provider descriptor returned by GET_CONFIG:
// the stored secret is reduced to a presence flag.
type ProviderView struct {
	Kind      string `json:"kind"`
	Host      string `json:"host,omitempty"`
	Port      int    `json:"port,omitempty"`
	Model     string `json:"model,omitempty"`
	HasAPIKey bool   `json:"hasApiKey"`
}

// ConfigView is the data payload of a GET_CONFIG response.
type ConfigView struct {
	Provider ProviderView `json:"provider"`
}

// StreamAccepted is the data payload of a GENERATE_STREAM response,
// acknowledging the stream before the first token notification.
type StreamAccepted struct {
	RequestID string `json:"requestId"`
}

// Transformation describes one named rewrite template, built-in or saved.
type Transformation struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
	BuiltIn     bool   `json:"builtIn,omitempty"`
}
