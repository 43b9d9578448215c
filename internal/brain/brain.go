package brain

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/nyx/internal/learning"
	"github.com/fyrsmithlabs/nyx/internal/logging"
	"github.com/fyrsmithlabs/nyx/internal/nlu"
)

const instrumentationName = "github.com/fyrsmithlabs/nyx/internal/brain"

// RewardSource supplies learned confidence adjustments.
// *learning.RewardTable implements it.
type RewardSource interface {
	Load(ctx context.Context) error
	ConfidenceBoost(message, intent string) float64
}

// Escalator buckets a confidence into a tier.
// *learning.FeedbackPolicy implements it.
type Escalator interface {
	Classify(confidence float64) learning.Escalation
}

// Brain runs the perceive, reason and learn stages. Safe for concurrent use.
type Brain struct {
	classifier *nlu.Classifier
	rewards    RewardSource
	escalator  Escalator
	router     *Router
	history    *History
	logger     *logging.Logger
	tracer     trace.Tracer
	now        func() time.Time

	initMu      sync.Mutex
	initialized bool
}

// Option configures a Brain.
type Option func(*Brain)

// WithClassifier replaces the built-in intent classifier.
func WithClassifier(c *nlu.Classifier) Option {
	return func(b *Brain) {
		if c != nil {
			b.classifier = c
		}
	}
}

// WithRoutes replaces the routing table.
func WithRoutes(rules []RouteRule) Option {
	return func(b *Brain) {
		b.router = NewRouter(rules, DefaultModule)
	}
}

// WithHistorySize sets the history bound.
func WithHistorySize(n int) Option {
	return func(b *Brain) {
		b.history = NewHistory(n)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(b *Brain) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithTracerProvider sets the tracer provider used for pipeline spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(b *Brain) {
		if tp != nil {
			b.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithClock replaces time.Now for perception timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Brain) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a Brain. rewards and escalator may be nil: without rewards no
// boost is applied, without an escalator the default thresholds are used.
func New(rewards RewardSource, escalator Escalator, opts ...Option) *Brain {
	b := &Brain{
		classifier: nlu.NewClassifier(),
		rewards:    rewards,
		escalator:  escalator,
		router:     NewRouter(DefaultRoutes(), DefaultModule),
		history:    NewHistory(DefaultHistorySize),
		logger:     logging.NewNop(),
		tracer:     otel.Tracer(instrumentationName),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.escalator == nil {
		b.escalator = learning.DefaultThresholds()
	}
	return b
}

// Initialize loads the reward source. It is a no-op after the first success.
func (b *Brain) Initialize(ctx context.Context) error {
	b.initMu.Lock()
	defer b.initMu.Unlock()

	if b.initialized {
		return nil
	}
	if b.rewards != nil {
		if err := b.rewards.Load(ctx); err != nil {
			return fmt.Errorf("initializing brain: %w", err)
		}
	}
	b.initialized = true
	b.logger.Info(ctx, "brain initialized", zap.Int("history_size", b.history.Max()))
	return nil
}

// Process runs one utterance through the pipeline. The only error source is
// lazy initialization.
func (b *Brain) Process(ctx context.Context, message string) (Decision, error) {
	ctx, span := b.tracer.Start(ctx, "brain.process")
	defer span.End()

	if err := b.Initialize(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Decision{}, err
	}

	perception := b.perceive(ctx, message)
	decision := b.reason(ctx, perception)
	b.learn(ctx, perception, decision)

	span.SetAttributes(
		attribute.String("intent", decision.Intent.Name),
		attribute.String("module", decision.Module),
		attribute.Float64("confidence", decision.Confidence),
		attribute.String("tier", string(decision.Tier)),
	)
	DecisionsTotal.WithLabelValues(decision.Module, string(decision.Tier)).Inc()

	b.logger.Debug(ctx, "decision",
		zap.String("message", message),
		zap.String("intent", decision.Intent.Name),
		zap.String("module", decision.Module),
		zap.Float64("confidence", decision.Confidence),
		zap.String("tier", string(decision.Tier)),
	)
	return decision, nil
}

// History returns a copy of the recent interactions, oldest first.
func (b *Brain) History() []Interaction {
	return b.history.Entries()
}

// Router returns the routing table in use.
func (b *Brain) Router() *Router {
	return b.router
}

func (b *Brain) perceive(ctx context.Context, message string) Perception {
	_, span := b.tracer.Start(ctx, "brain.perceive")
	defer span.End()

	intent := b.classifier.Classify(message)
	entities := nlu.Extract(message)

	var boost float64
	if b.rewards != nil {
		boost = b.rewards.ConfidenceBoost(message, intent.Name)
		intent.Confidence = clampUnit(intent.Confidence + boost)
	}
	span.SetAttributes(attribute.Float64("boost", boost))
	b.logger.Trace(ctx, "perceived",
		zap.String("intent", intent.Name),
		zap.Float64("confidence", intent.Confidence),
		zap.Float64("boost", boost),
		zap.Ints("numbers", entities.Numbers),
		zap.String("app", entities.App),
	)

	return Perception{
		RawInput:  message,
		Timestamp: b.now(),
		Intent:    intent,
		Entities:  entities,
	}
}

func (b *Brain) reason(ctx context.Context, p Perception) Decision {
	_, span := b.tracer.Start(ctx, "brain.reason")
	defer span.End()

	module := b.router.Route(p.Intent.Name)
	b.logger.Trace(ctx, "routed", zap.String("intent", p.Intent.Name), zap.String("module", module))

	return Decision{
		Module:     module,
		Intent:     p.Intent,
		Entities:   p.Entities,
		Confidence: p.Intent.Confidence,
		Tier:       b.escalator.Classify(p.Intent.Confidence).Tier(),
	}
}

func (b *Brain) learn(ctx context.Context, p Perception, d Decision) {
	_, span := b.tracer.Start(ctx, "brain.learn")
	defer span.End()

	b.history.Add(Interaction{
		Message:   p.RawInput,
		Intent:    d.Intent,
		Module:    d.Module,
		Timestamp: p.Timestamp,
	})
}

// clampUnit maps NaN to 0.
func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
