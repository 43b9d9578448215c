package learning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/nyx/internal/logging"
	"github.com/fyrsmithlabs/nyx/internal/nlu"
)

// Action is the user's answer to a feedback request.
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionReject  Action = "reject"
	ActionCorrect Action = "correct"
)

// Rewards applied per action.
const (
	RewardConfirm = 1.0
	RewardReject  = -0.5
	RewardCorrect = 1.0
)

// Pending retention defaults.
const (
	DefaultPendingTTL = 10 * time.Minute
	DefaultMaxPending = 100
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionConfirm, ActionReject, ActionCorrect:
		return true
	}
	return false
}

// Response is the inbound answer to a feedback request.
type Response struct {
	Action        Action `json:"action"`
	CorrectIntent string `json:"correct_intent,omitempty"`
}

// PendingFeedback is an unresolved feedback request.
type PendingFeedback struct {
	ID         string     `json:"id"`
	Message    string     `json:"message"`
	Intent     nlu.Intent `json:"intent"`
	Confidence float64    `json:"confidence"`
	Recipient  string     `json:"recipient,omitempty"`
	CreatedAt  time.Time  `json:"timestamp"`
}

// Resolution describes what ResolveFeedback did. Resolved is false when the
// id was unknown, expired or already resolved.
type Resolution struct {
	ID             string  `json:"id"`
	Resolved       bool    `json:"resolved"`
	Action         Action  `json:"action,omitempty"`
	Message        string  `json:"message,omitempty"`
	OriginalIntent string  `json:"original_intent,omitempty"`
	Intent         string  `json:"intent,omitempty"`
	Reward         float64 `json:"reward,omitempty"`
	Value          float64 `json:"value,omitempty"`
}

// RewardUpdater absorbs feedback rewards. *RewardTable implements it.
type RewardUpdater interface {
	Update(ctx context.Context, message, intent string, reward float64) (float64, error)
}

// FeedbackPolicy decides when to involve the user and turns their answers
// into reward updates. Safe for concurrent use.
type FeedbackPolicy struct {
	mu         sync.Mutex
	thresholds Thresholds
	pending    map[string]*PendingFeedback
	order      []string
	rewards    RewardUpdater
	emitter    FeedbackEmitter
	ttl        time.Duration
	maxPending int
	now        func() time.Time
	lastMS     int64
	seq        int
	logger     *logging.Logger
}

// PolicyOption configures a FeedbackPolicy.
type PolicyOption func(*FeedbackPolicy)

// WithThresholds overrides the tier thresholds. Invalid thresholds are ignored.
func WithThresholds(t Thresholds) PolicyOption {
	return func(p *FeedbackPolicy) {
		if t.Validate() == nil {
			p.thresholds = t
		}
	}
}

// WithPendingTTL sets how long an unanswered request stays resolvable.
// Zero disables expiry.
func WithPendingTTL(ttl time.Duration) PolicyOption {
	return func(p *FeedbackPolicy) {
		if ttl >= 0 {
			p.ttl = ttl
		}
	}
}

// WithMaxPending caps the number of outstanding requests. Zero disables the cap.
func WithMaxPending(n int) PolicyOption {
	return func(p *FeedbackPolicy) {
		if n >= 0 {
			p.maxPending = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PolicyOption {
	return func(p *FeedbackPolicy) {
		if now != nil {
			p.now = now
		}
	}
}

// WithPolicyLogger sets the logger.
func WithPolicyLogger(logger *logging.Logger) PolicyOption {
	return func(p *FeedbackPolicy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewFeedbackPolicy creates a policy. emitter may be nil, in which case
// requests are tracked but not delivered.
func NewFeedbackPolicy(rewards RewardUpdater, emitter FeedbackEmitter, opts ...PolicyOption) *FeedbackPolicy {
	p := &FeedbackPolicy{
		thresholds: DefaultThresholds(),
		pending:    make(map[string]*PendingFeedback),
		rewards:    rewards,
		emitter:    emitter,
		ttl:        DefaultPendingTTL,
		maxPending: DefaultMaxPending,
		now:        time.Now,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Classify buckets confidence into ask, notify or execute.
func (p *FeedbackPolicy) Classify(confidence float64) Escalation {
	p.mu.Lock()
	t := p.thresholds
	p.mu.Unlock()
	return t.Classify(confidence)
}

// Thresholds returns the current thresholds.
func (p *FeedbackPolicy) Thresholds() Thresholds {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.thresholds
}

// SetThresholds replaces the thresholds at runtime.
func (p *FeedbackPolicy) SetThresholds(t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	p.thresholds = t
	p.mu.Unlock()
	return nil
}

// RequestFeedback records a pending request and emits it to recipient.
// It returns the new feedback id without waiting for an answer. If the
// emitter fails the pending entry is dropped and the error returned; a
// partial delivery keeps the entry, since the id has reached the user.
func (p *FeedbackPolicy) RequestFeedback(ctx context.Context, message string, intent nlu.Intent, confidence float64, recipient string) (string, error) {
	if intent.Name == "" {
		return "", ErrEmptyIntent
	}

	p.mu.Lock()
	now := p.now()
	p.pruneLocked(now)
	if p.maxPending > 0 {
		for len(p.order) >= p.maxPending {
			evicted := p.order[0]
			p.removeLocked(evicted)
			p.logger.Debug(ctx, "pending feedback evicted", zap.String("feedback_id", evicted))
		}
	}
	id := p.nextIDLocked(now)
	p.pending[id] = &PendingFeedback{
		ID:         id,
		Message:    message,
		Intent:     intent,
		Confidence: confidence,
		Recipient:  recipient,
		CreatedAt:  now,
	}
	p.order = append(p.order, id)
	PendingRequests.Set(float64(len(p.pending)))
	p.mu.Unlock()

	req := FeedbackRequest{
		ID:      id,
		Type:    FeedbackTypeIntentConfirmation,
		Message: message,
		Suggestion: Suggestion{
			Intent:     intent.Name,
			Confidence: int(confidence * 100),
		},
	}

	if p.emitter != nil {
		err := p.emitter.EmitFeedbackRequest(ctx, recipient, req)
		if errors.Is(err, ErrPartialDelivery) {
			p.logger.Warn(ctx, "feedback request not delivered everywhere",
				zap.String("feedback_id", id), zap.Error(err))
		} else if err != nil {
			p.mu.Lock()
			p.removeLocked(id)
			p.mu.Unlock()
			return "", fmt.Errorf("emitting feedback request %s: %w", id, err)
		}
	}

	p.logger.Info(ctx, "feedback requested",
		zap.String("feedback_id", id),
		zap.String("message", message),
		zap.String("intent", intent.Name),
		zap.Float64("confidence", confidence),
	)
	return id, nil
}

// ResolveFeedback applies the user's answer to a pending request.
//
// Unknown, expired or already-resolved ids are a silent no-op. An invalid
// response is rejected and leaves the request pending. The entry is removed
// before the reward update so concurrent answers resolve it at most once;
// a persist failure is returned wrapped in ErrPersistFailed.
func (p *FeedbackPolicy) ResolveFeedback(ctx context.Context, id string, resp Response) (Resolution, error) {
	res := Resolution{ID: id}

	p.mu.Lock()
	p.pruneLocked(p.now())
	pending, ok := p.pending[id]
	if !ok {
		p.mu.Unlock()
		FeedbackTotal.WithLabelValues("ignored").Inc()
		p.logger.Debug(ctx, "feedback for unknown id ignored", zap.String("feedback_id", id))
		return res, nil
	}

	if !resp.Action.Valid() {
		p.mu.Unlock()
		return res, fmt.Errorf("%w: %q", ErrUnknownAction, resp.Action)
	}
	if resp.Action == ActionCorrect && resp.CorrectIntent == "" {
		p.mu.Unlock()
		return res, ErrMissingCorrectIntent
	}

	p.removeLocked(id)
	p.mu.Unlock()

	res.Resolved = true
	res.Action = resp.Action
	res.Message = pending.Message
	res.OriginalIntent = pending.Intent.Name
	res.Intent = pending.Intent.Name

	switch resp.Action {
	case ActionConfirm:
		res.Reward = RewardConfirm
	case ActionReject:
		res.Reward = RewardReject
	case ActionCorrect:
		res.Reward = RewardCorrect
		res.Intent = resp.CorrectIntent
	}

	FeedbackTotal.WithLabelValues(string(resp.Action)).Inc()
	p.logger.Info(ctx, "feedback received",
		zap.String("feedback_id", id),
		zap.String("action", string(resp.Action)),
		zap.String("message", res.Message),
		zap.String("intent", res.Intent),
	)

	if p.rewards == nil {
		return res, nil
	}
	value, err := p.rewards.Update(ctx, res.Message, res.Intent, res.Reward)
	res.Value = value
	if err != nil {
		return res, fmt.Errorf("resolving feedback %s: %w", id, err)
	}
	return res, nil
}

// Prune drops requests older than the TTL and returns how many were removed.
func (p *FeedbackPolicy) Prune(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pruneLocked(now)
}

// Pending returns a snapshot of outstanding requests, oldest first.
func (p *FeedbackPolicy) Pending() []PendingFeedback {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PendingFeedback, 0, len(p.pending))
	for _, pf := range p.pending {
		out = append(out, *pf)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// PendingCount returns the number of outstanding requests.
func (p *FeedbackPolicy) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *FeedbackPolicy) pruneLocked(now time.Time) int {
	if p.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-p.ttl)
	removed := 0
	for len(p.order) > 0 {
		pf := p.pending[p.order[0]]
		if pf != nil && pf.CreatedAt.After(cutoff) {
			break
		}
		p.removeLocked(p.order[0])
		removed++
	}
	return removed
}

// removeLocked deletes id from the map and the insertion order.
func (p *FeedbackPolicy) removeLocked(id string) {
	delete(p.pending, id)
	for i, v := range p.order {
		if v == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	PendingRequests.Set(float64(len(p.pending)))
}

// nextIDLocked mints feedback_<unix ms>. Requests within the same (or an
// earlier) millisecond get a _<seq> suffix so ids never repeat.
func (p *FeedbackPolicy) nextIDLocked(now time.Time) string {
	ms := now.UnixMilli()
	if ms <= p.lastMS {
		p.seq++
		return fmt.Sprintf("feedback_%d_%d", p.lastMS, p.seq)
	}
	p.lastMS = ms
	p.seq = 0
	return fmt.Sprintf("feedback_%d", ms)
}
