package learning

import (
	"context"
	"errors"
	"fmt"
)

// FeedbackTypeIntentConfirmation is the type of every emitted request.
const FeedbackTypeIntentConfirmation = "intent-confirmation"

// Suggestion is the classification the user is asked to confirm.
// Confidence is a percentage in 0..100.
type Suggestion struct {
	Intent     string `json:"intent"`
	Confidence int    `json:"confidence"`
}

// FeedbackRequest is the outbound request-feedback event payload.
type FeedbackRequest struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Message    string     `json:"message"`
	Suggestion Suggestion `json:"suggestion"`
}

// FeedbackEmitter delivers feedback requests to a recipient.
// Implementations must not block waiting for the user's answer.
type FeedbackEmitter interface {
	EmitFeedbackRequest(ctx context.Context, recipient string, req FeedbackRequest) error
}

// EmitterFunc adapts a function to FeedbackEmitter.
type EmitterFunc func(ctx context.Context, recipient string, req FeedbackRequest) error

// EmitFeedbackRequest calls f.
func (f EmitterFunc) EmitFeedbackRequest(ctx context.Context, recipient string, req FeedbackRequest) error {
	return f(ctx, recipient, req)
}

// MultiEmitter fans a request out to several emitters. Every emitter is
// tried. When some emitters fail but at least one delivered, the joined
// failures are wrapped in ErrPartialDelivery.
type MultiEmitter []FeedbackEmitter

// EmitFeedbackRequest emits to every non-nil emitter.
func (m MultiEmitter) EmitFeedbackRequest(ctx context.Context, recipient string, req FeedbackRequest) error {
	var errs []error
	delivered := 0
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.EmitFeedbackRequest(ctx, recipient, req); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}
	if len(errs) == 0 {
		return nil
	}
	if delivered > 0 {
		return fmt.Errorf("%w: %w", ErrPartialDelivery, errors.Join(errs...))
	}
	return errors.Join(errs...)
}
