package protocol

// WritingAction selects what WRITING_ASSIST should do with the text.
type WritingAction string

// Supported writing-assist actions.
const (
	ActionImprove  WritingAction = "improve"
	ActionShorten  WritingAction = "shorten"
	ActionExpand   WritingAction = "expand"
	ActionRephrase WritingAction = "rephrase"
)

// Valid reports whether the action is one of the supported values.
func (a WritingAction) Valid() bool {
	switch a {
	case ActionImprove, ActionShorten, ActionExpand, ActionRephrase:
		return true
	}
	return false
}

// TranslateRequest is the payload of a TRANSLATE envelope.
type TranslateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
}

// WritingAssistRequest is the payload of a WRITING_ASSIST envelope.
type WritingAssistRequest struct {
	Text   string        `json:"text"`
	Action WritingAction `json:"action"`
	Style  string        `json:"style,omitempty"`
}

// GrammarCheckRequest is the payload of a GRAMMAR_CHECK envelope.
type GrammarCheckRequest struct {
	Text                string `json:"text"`
	IncludeExplanations bool   `json:"includeExplanations,omitempty"`
}

// TransformRequest is the payload of a TRANSFORM envelope. The
// transformation id names either a built-in template or one saved through
// SAVE_TRANSFORMATION.
type TransformRequest struct {
	Text             string `json:"text"`
	TransformationID string `json:"transformationId"`
}

// ExtractTextRequest is the payload of an EXTRACT_TEXT envelope. ImageData
// carries the raw image bytes base64-encoded.
type ExtractTextRequest struct {
	ImageData string `json:"imageData"`
	MimeType  string `json:"mimeType,omitempty"`
}

// GenerateStreamRequest is the payload of a GENERATE_STREAM envelope. The
// RequestID is chosen by the caller (see client.GenerateRequestID) and keys
// every notification for this stream. Model overrides the configured model
// when set.
type GenerateStreamRequest struct {
	Prompt    string `json:"prompt"`
	RequestID string `json:"requestId"`
	Model     string `json:"model,omitempty"`
	System    string `json:"system,omitempty"`
}

// SaveTransformationRequest is the payload of a SAVE_TRANSFORMATION
// envelope. An empty ID creates a new transformation.
type SaveTransformationRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
}

// DeleteTransformationRequest is the payload of a DELETE_TRANSFORMATION
// envelope.
type DeleteTransformationRequest struct {
	TransformationID string `json:"transformationId"`
}

// ProviderSettings is the provider descriptor exchanged by GET_CONFIG and
// UPDATE_CONFIG. APIKey is only ever populated on the inbound UPDATE_CONFIG
// path; responses report key presence through ConfigView instead.
type ProviderSettings struct {
	Kind   string `json:"kind"`
	Host   string `json:"host,omitempty"`
	Port   int    `json:"port,omitempty"`
	APIKey string `json:"apiKey,omitempty"`
	Model  string `json:"model,omitempty"`
}

// UpdateConfigRequest is the payload of an UPDATE_CONFIG envelope.
type UpdateConfigRequest struct {
	Provider *ProviderSettings `json:"provider,omitempty"`
}

// CancelRequest is the payload of a CANCEL_REQUEST envelope.
type CancelRequest struct {
	RequestID string `json:"requestId"`
}
