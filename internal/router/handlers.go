package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/internal/prompt"
	"github.com/glossahq/glossa/pkg/protocol"
)

// runCompletion resolves the active provider, enforces that a model is
// selected, and executes a one-shot completion. The model check runs before
// any backend call.
func (r *Router) runCompletion(ctx context.Context, creq llm.CompletionRequest) protocol.Response {
	p, model, err := r.resolveProvider(ctx)
	if err != nil {
		return failFrom(err)
	}
	if model == "" {
		return protocol.Fail(protocol.CodeModelNotSelected, "no model selected")
	}
	creq.Model = model
	out, err := p.Complete(ctx, creq)
	if err != nil {
		return failFrom(err)
	}
	return protocol.OK(out)
}

func (r *Router) handleTranslate(ctx context.Context, payload json.RawMessage) protocol.Response {
	req, err := decode[protocol.TranslateRequest](payload)
	if err != nil {
		return invalidPayload(err)
	}
	if req.Text == "" || req.TargetLanguage == "" {
		return protocol.Fail(protocol.CodeInvalidPayload, "text and targetLanguage are required")
	}
	return r.runCompletion(ctx, prompt.Translation(req))
}

func (r *Router) handleWritingAssist(ctx context.Context, payload json.RawMessage) protocol.Response {
	req, err := decode[protocol.WritingAssistRequest](payload)
	if err != nil {
		return invalidPayload(err)
	}
	if req.Text == "" {
		return protocol.Fail(protocol.CodeInvalidPayload, "text is required")
	}
	if !req.Action.Valid() {
		return protocol.Fail(protocol.CodeInvalidPayload, fmt.Sprintf("unsupported action %q", req.Action))
	}
	return r.runCompletion(ctx, prompt.WritingAssist(req))
}

func (r *Router) handleGrammarCheck(ctx context.Context, payload json.RawMessage) protocol.Response {
	req, err := decode[protocol.GrammarCheckRequest](payload)
	if err != nil {
		return invalidPayload(err)
	}
	if req.Text == "" {
		return protocol.Fail(protocol.CodeInvalidPayload, "text is required")
	}
	return r.runCompletion(ctx, prompt.GrammarCheck(req))
}

func (r *Router) handleTransform(ctx context.Context, payload json.RawMessage) protocol.Response {
	req, err := decode[protocol.TransformRequest](payload)
	if err != nil {
		return invalidPayload(err)
	}
	if req.Text == "" || req.TransformationID == "" {
		return protocol.Fail(protocol.CodeInvalidPayload, "text and transformationId are required")
	}
	t, err := r.library.Get(ctx, req.TransformationID)
	if errors.Is(err, prompt.ErrNotFound) {
		return protocol.Fail(protocol.CodeTransformNotFound,
			fmt.Sprintf("transformation %q not found", req.TransformationID))
	}
	if err != nil {
		return protocol.Fail(protocol.CodeInternalError, err.Error())
	}
	return r.runCompletion(ctx, prompt.Transform(t, req.Text))
}

func (r *Router) handleExtractText(ctx context.Context, payload json.RawMessage) protocol.Response {
	req, err := decode[protocol.ExtractTextRequest](payload)
	if err != nil {
		return invalidPayload(err)
	}
	if req.ImageData == "" {
		return protocol.Fail(protocol.CodeInvalidPayload, "imageData is required")
	}
	return r.runCompletion(ctx, prompt.ExtractText(req))
}

// handleGenerateStream acknowledges the stream before the first token: the
// response carries the request id, and everything after it arrives as
// STREAM_* notifications on the caller's session connection.
func (r *Router) handleGenerateStream(ctx context.Context, clientID string, payload json.RawMessage) protocol.Response {
	req, err := decode[protocol.GenerateStreamRequest](payload)
	if err != nil {
		return invalidPayload(err)
	}
	if req.Prompt == "" || req.RequestID == "" {
		return protocol.Fail(protocol.CodeInvalidPayload, "prompt and requestId are required")
	}
	if clientID == "" {
		return protocol.Fail(protocol.CodeInvalidPayload, "streaming requires a session connection")
	}

	p, model, err := r.resolveProvider(ctx)
	if err != nil {
		return failFrom(err)
	}
	if req.Model != "" {
		model = req.Model
	}
	if model == "" {
		return protocol.Fail(protocol.CodeModelNotSelected, "no model selected")
	}

	creq := prompt.Generate(req)
	creq.Model = model

	sr, err := r.streams.Begin(ctx, req.RequestID, clientID)
	if err != nil {
		return invalidPayload(err)
	}
	tokens, err := p.Stream(sr.Context(), creq)
	if err != nil {
		r.streams.Release(sr.ID)
		return failFrom(err)
	}
	go r.streams.Relay(sr, tokens)

	return protocol.OK(protocol.StreamAccepted{RequestID: req.RequestID})
}

func (r *Router) handleTestConnection(ctx context.Context) protocol.Response {
	p, _, err := r.resolveProvider(ctx)
	if err != nil {
		return failFrom(err)
	}
	if err := p.TestConnection(ctx); err != nil {
		return failFrom(err)
	}
	return protocol.OK(true)
}

func (r *Router) handleListModels(ctx context.Context) protocol.Response {
	p, _, err := r.resolveProvider(ctx)
	if err != nil {
		return failFrom(err)
	}
	models, err := p.ListModels(ctx)
	if err != nil {
		return failFrom(err)
	}
	if models == nil {
		models = []protocol.ModelInfo{}
	}
	return protocol.OK(models)
}

func (r *Router) handleListTransformations(ctx context.Context) protocol.Response {
	list, err := r.library.List(ctx)
	if err != nil {
		return protocol.Fail(protocol.CodeInternalError, err.Error())
	}
	return protocol.OK(list)
}

func (r *Router) handleSaveTransformation(ctx context.Context, payload json.RawMessage) protocol.Response {
	req, err := decode[protocol.SaveTransformationRequest](payload)
	if err != nil {
		return invalidPayload(err)
	}
	saved, err := r.library.Save(ctx, prompt.Transformation{
		ID:          req.ID,
		Name:        req.Name,
		Instruction: req.Instruction,
	})
	switch {
	case errors.Is(err, prompt.ErrInvalid), errors.Is(err, prompt.ErrBuiltIn):
		return protocol.Fail(protocol.CodeInvalidPayload, err.Error())
	case err != nil:
		return protocol.Fail(protocol.CodeInternalError, err.Error())
	}
	return protocol.OK(saved)
}

func (r *Router) handleDeleteTransformation(ctx context.Context, payload json.RawMessage) protocol.Response {
	req, err := decode[protocol.DeleteTransformationRequest](payload)
	if err != nil {
		return invalidPayload(err)
	}
	if req.TransformationID == "" {
		return protocol.Fail(protocol.CodeInvalidPayload, "transformationId is required")
	}
	err = r.library.Delete(ctx, req.TransformationID)
	switch {
	case errors.Is(err, prompt.ErrNotFound):
		return protocol.Fail(protocol.CodeTransformNotFound,
			fmt.Sprintf("transformation %q not found", req.TransformationID))
	case errors.Is(err, prompt.ErrBuiltIn):
		return protocol.Fail(protocol.CodeInvalidPayload, "built-in transformations cannot be deleted")
	case err != nil:
		return protocol.Fail(protocol.CodeInternalError, err.Error())
	}
	return protocol.OK(true)
}

// handleCancelRequest drops the stream entry and aborts the backend call.
// Both effects are required for an active id; either alone leaves a stale
// resource behind. Cancelling an unknown id is a successful no-op that never
// reaches the adapter: its most recent in-flight operation belongs to some
// other request.
func (r *Router) handleCancelRequest(payload json.RawMessage) protocol.Response {
	req, err := decode[protocol.CancelRequest](payload)
	if err != nil {
		return invalidPayload(err)
	}
	if req.RequestID == "" {
		return protocol.Fail(protocol.CodeInvalidPayload, "requestId is required")
	}
	if r.streams.Cancel(req.RequestID) {
		if p := r.registry.Current(); p != nil {
			p.Abort()
		}
	} else {
		r.logger.Debug("cancel for unknown request", "requestId", req.RequestID)
	}
	return protocol.OK(true)
}
