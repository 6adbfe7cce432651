// Package prompt assembles the completion request behind each text
// operation: translation, writing assistance, grammar checking, named
// transformations, and image text extraction. Builders return a request
// without a model; the router fills in the resolved model before dispatch.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/pkg/protocol"
)

// Sampling temperatures per task. Rewriting tasks tolerate more variety
// than correction and extraction, which want near-deterministic output.
const (
	translateTemperature = 0.3
	writingTemperature   = 0.7
	grammarTemperature   = 0.2
	transformTemperature = 0.7
	extractTemperature   = 0.1
)

// maxSelectionChars caps the selected text embedded in a prompt, roughly
// two thousand tokens at the usual four characters per token. Longer
// selections are cut at a rune boundary.
const maxSelectionChars = 8192

// Translation builds the request for a TRANSLATE operation. An empty source
// language asks the model to detect it.
func Translation(req protocol.TranslateRequest) llm.CompletionRequest {
	source := req.SourceLanguage
	if source == "" {
		source = "the detected source language"
	}
	system := joinParts(
		"You are a professional translator.",
		fmt.Sprintf("Translate the user's text from %s into %s. Preserve the original tone, formatting, and line breaks.", source, req.TargetLanguage),
		"Reply with the translation only, without explanations or surrounding quotes.",
	)
	return textRequest(system, req.Text, translateTemperature)
}

// WritingAssist builds the request for a WRITING_ASSIST operation. The
// caller is expected to have validated the action; unrecognized values fall
// back to improving the text.
func WritingAssist(req protocol.WritingAssistRequest) llm.CompletionRequest {
	var style string
	if req.Style != "" {
		style = fmt.Sprintf("Write in a %s style.", req.Style)
	}
	system := joinParts(
		"You are a writing assistant.",
		instructionFor(req.Action),
		style,
		"Reply with the revised text only.",
	)
	return textRequest(system, req.Text, writingTemperature)
}

// GrammarCheck builds the request for a GRAMMAR_CHECK operation.
func GrammarCheck(req protocol.GrammarCheckRequest) llm.CompletionRequest {
	output := "Reply with the corrected text only, without commentary."
	if req.IncludeExplanations {
		output = "Reply with the corrected text, then a short list of each correction and the reason for it."
	}
	system := joinParts(
		"You are a meticulous proofreader.",
		"Correct the grammar, spelling, and punctuation of the user's text. Keep the wording and tone as close to the original as possible.",
		output,
	)
	return textRequest(system, req.Text, grammarTemperature)
}

// Transform builds the request for a TRANSFORM operation from a resolved
// transformation.
func Transform(t Transformation, text string) llm.CompletionRequest {
	system := joinParts(
		t.Instruction,
		"Apply this to the user's text and reply with the result only.",
	)
	return textRequest(system, text, transformTemperature)
}

// ExtractText builds the request for an EXTRACT_TEXT operation. The image
// travels as a data URI; each backend maps it to its own wire shape.
func ExtractText(req protocol.ExtractTextRequest) llm.CompletionRequest {
	system := joinParts(
		"You extract text from images.",
		"Transcribe all readable text exactly as it appears, preserving line breaks and reading order.",
		"Reply with the transcribed text only. If the image contains no text, reply with an empty string.",
	)
	return llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{
				Role:    llm.RoleUser,
				Content: "Extract the text from this image.",
				Images:  []string{asDataURI(req.ImageData, req.MimeType)},
			},
		},
		Options: taskOptions(extractTemperature),
	}
}

// Generate builds the request for a GENERATE_STREAM operation. The prompt is
// forwarded untouched; an optional system message precedes it.
func Generate(req protocol.GenerateStreamRequest) llm.CompletionRequest {
	msgs := make([]llm.Message, 0, 2)
	if req.System != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: req.System})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Prompt})
	return llm.CompletionRequest{Messages: msgs}
}

// actionInstructions maps each writing action to its instruction.
var actionInstructions = map[protocol.WritingAction]string{
	protocol.ActionImprove:  "Improve the user's text: fix awkward phrasing and tighten the wording while keeping the meaning and approximate length.",
	protocol.ActionShorten:  "Shorten the user's text to roughly half its length while keeping every essential point.",
	protocol.ActionExpand:   "Expand the user's text with relevant detail and smoother transitions, staying faithful to the original intent.",
	protocol.ActionRephrase: "Rephrase the user's text using different wording and sentence structure while preserving the meaning.",
}

func instructionFor(action protocol.WritingAction) string {
	if instruction, ok := actionInstructions[action]; ok {
		return instruction
	}
	return actionInstructions[protocol.ActionImprove]
}

// textRequest pairs a system instruction with the clamped selection.
func textRequest(system, text string, temperature float64) llm.CompletionRequest {
	return llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: clampSelection(text)},
		},
		Options: taskOptions(temperature),
	}
}

// taskOptions pins the sampling temperature for a task, leaving every other
// generation parameter at the backend default.
func taskOptions(temperature float64) *llm.Options {
	return &llm.Options{Temperature: &temperature}
}

// joinParts assembles a system prompt from its sections, skipping empties.
func joinParts(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

// clampSelection bounds the selected text, never splitting a multi-byte
// character.
func clampSelection(s string) string {
	if len(s) <= maxSelectionChars {
		return s
	}
	cut := maxSelectionChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// asDataURI wraps bare base64 image bytes in a data URI carrying the mime
// type. Already-prefixed payloads pass through unchanged.
func asDataURI(data, mimeType string) string {
	if strings.HasPrefix(data, "data:") {
		return data
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + data
}
