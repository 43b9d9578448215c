// Package assistant turns commands into replies by running the brain,
// applying the feedback escalation policy and dispatching to modules.
//
// Escalation by tier:
//
//	execute  run the module
//	notify   run the module, then ask the user to confirm the intent
//	ask      ask first and do not run anything ("Did you mean ...?")
//
// An unknown intent is never put to the user: there is nothing to confirm,
// so it goes straight to the ai fallback module.
package assistant

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/nyx/internal/brain"
	"github.com/fyrsmithlabs/nyx/internal/learning"
	"github.com/fyrsmithlabs/nyx/internal/logging"
	"github.com/fyrsmithlabs/nyx/internal/modules"
	"github.com/fyrsmithlabs/nyx/internal/nlu"
)

// Processor produces decisions. *brain.Brain implements it.
type Processor interface {
	Process(ctx context.Context, message string) (brain.Decision, error)
}

// FeedbackService issues and resolves feedback requests.
// *learning.FeedbackPolicy implements it.
type FeedbackService interface {
	RequestFeedback(ctx context.Context, message string, intent nlu.Intent, confidence float64, recipient string) (string, error)
	ResolveFeedback(ctx context.Context, id string, resp learning.Response) (learning.Resolution, error)
}

// Executor runs a decision on a named module. *modules.Registry implements it.
type Executor interface {
	Execute(ctx context.Context, name, message string, decision brain.Decision) modules.Result
}

// Response is the reply to one command.
type Response struct {
	Text       string             `json:"text"`
	Type       modules.ResultType `json:"type"`
	Module     string             `json:"module"`
	Intent     nlu.Intent         `json:"intent"`
	Confidence float64            `json:"confidence"`
	Entities   nlu.EntitySet      `json:"entities"`
	Tier       learning.Tier      `json:"tier"`
	FeedbackID string             `json:"feedback_id,omitempty"`
	Executed   bool               `json:"executed"`
	Timestamp  time.Time          `json:"timestamp"`
}

// Ack acknowledges a feedback response.
type Ack struct {
	ID       string          `json:"id"`
	Resolved bool            `json:"resolved"`
	Action   learning.Action `json:"action,omitempty"`
	Intent   string          `json:"intent,omitempty"`
}

// Assistant handles commands and feedback. Safe for concurrent use when its
// collaborators are.
type Assistant struct {
	brain    Processor
	feedback FeedbackService
	modules  Executor
	logger   *logging.Logger
	now      func() time.Time
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Assistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock replaces time.Now for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an Assistant.
func New(processor Processor, feedback FeedbackService, executor Executor, opts ...Option) (*Assistant, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	if feedback == nil {
		return nil, fmt.Errorf("feedback service cannot be nil")
	}
	if executor == nil {
		return nil, fmt.Errorf("module executor cannot be nil")
	}
	a := &Assistant{
		brain:    processor,
		feedback: feedback,
		modules:  executor,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// HandleCommand processes message for recipient and returns the reply.
// A failed post-execution feedback request is logged, not returned.
func (a *Assistant) HandleCommand(ctx context.Context, recipient, message string) (Response, error) {
	ctx = logging.WithSessionID(ctx, recipient)

	decision, err := a.brain.Process(ctx, message)
	if err != nil {
		return Response{}, fmt.Errorf("processing command: %w", err)
	}

	resp := Response{
		Module:     decision.Module,
		Intent:     decision.Intent,
		Confidence: decision.Confidence,
		Entities:   decision.Entities,
		Tier:       decision.Tier,
	}

	switch {
	case decision.Intent.IsUnknown():
		a.execute(ctx, message, decision, &resp)

	case decision.Tier == learning.TierAsk:
		id, err := a.feedback.RequestFeedback(ctx, message, decision.Intent, decision.Confidence, recipient)
		if err != nil {
			return Response{}, fmt.Errorf("requesting confirmation: %w", err)
		}
		resp.FeedbackID = id
		resp.Type = modules.ResultInfo
		resp.Text = fmt.Sprintf("Did you mean %s?", decision.Intent.Name)

	case decision.Tier == learning.TierNotify:
		a.execute(ctx, message, decision, &resp)
		id, err := a.feedback.RequestFeedback(ctx, message, decision.Intent, decision.Confidence, recipient)
		if err != nil {
			a.logger.Warn(ctx, "post-execution feedback request failed", zap.Error(err))
		}
		resp.FeedbackID = id

	default:
		a.execute(ctx, message, decision, &resp)
	}

	resp.Timestamp = a.now()
	a.logger.Info(ctx, "command handled",
		zap.String("intent", resp.Intent.Name),
		zap.String("module", resp.Module),
		zap.String("tier", string(resp.Tier)),
		zap.Bool("executed", resp.Executed),
		zap.String("result_type", string(resp.Type)),
	)
	return resp, nil
}

// HandleFeedback resolves a feedback response. Unknown ids are acknowledged
// with Resolved=false.
func (a *Assistant) HandleFeedback(ctx context.Context, id string, response learning.Response) (Ack, error) {
	res, err := a.feedback.ResolveFeedback(ctx, id, response)
	ack := Ack{ID: id, Resolved: res.Resolved, Action: res.Action, Intent: res.Intent}
	if err != nil {
		return ack, err
	}
	return ack, nil
}

func (a *Assistant) execute(ctx context.Context, message string, decision brain.Decision, resp *Response) {
	if decision.Intent.IsUnknown() {
		decision.Module = brain.DefaultModule
		resp.Module = decision.Module
	}
	result := a.modules.Execute(ctx, decision.Module, message, decision)
	resp.Text = result.Text
	resp.Type = result.Type
	resp.Executed = true
}
