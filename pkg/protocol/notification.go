package protocol

// StreamTokenPayload is pushed once per non-terminal token of a stream.
type StreamTokenPayload struct {
	RequestID string `json:"requestId"`
	Token     string `json:"token"`
}

// StreamCompletePayload marks the successful end of a stream. It is sent
// exactly once, after the final token.
type StreamCompletePayload struct {
	RequestID string `json:"requestId"`
}

// StreamErrorPayload marks the failed end of a stream. A stream that ends
// with an error never also sends STREAM_COMPLETE or STREAM_CANCELLED.
type StreamErrorPayload struct {
	RequestID string      `json:"requestId"`
	Error     ErrorDetail `json:"error"`
}

// StreamCancelledPayload marks a stream stopped by CANCEL_REQUEST or by the
// adapter observing cancellation mid-flight.
type StreamCancelledPayload struct {
	RequestID string `json:"requestId"`
}
