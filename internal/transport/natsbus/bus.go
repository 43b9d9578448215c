// Package natsbus carries the feedback exchange over NATS so clients other
// than the stdio peer can confirm or correct intents.
//
// Subjects:
//
//	<prefix>.request.<recipient>   request-feedback events (published)
//	<prefix>.response              feedback answers (subscribed)
//
// Answers are JSON {"id", "action", "correct_intent"}. When the message has
// a reply subject the bus answers with {"ack": {...}} or {"error": "..."}.
package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/nyx/internal/assistant"
	"github.com/fyrsmithlabs/nyx/internal/learning"
	"github.com/fyrsmithlabs/nyx/internal/logging"
)

// DefaultSubjectPrefix is used when Config.SubjectPrefix is empty.
const DefaultSubjectPrefix = "nyx.feedback"

// ErrClosed is returned after Close.
var ErrClosed = errors.New("feedback bus closed")

// Config configures a connection.
type Config struct {
	URL           string
	Token         string
	SubjectPrefix string
	Name          string
}

// Resolver applies feedback answers. *assistant.Assistant implements it.
type Resolver interface {
	HandleFeedback(ctx context.Context, id string, resp learning.Response) (assistant.Ack, error)
}

// ResponseMessage is an inbound feedback answer.
type ResponseMessage struct {
	ID            string          `json:"id"`
	Action        learning.Action `json:"action"`
	CorrectIntent string          `json:"correct_intent,omitempty"`
}

// Reply answers a ResponseMessage sent with a reply subject.
type Reply struct {
	Ack   *assistant.Ack `json:"ack,omitempty"`
	Error string         `json:"error,omitempty"`
}

// Bus publishes feedback requests and consumes answers.
type Bus struct {
	nc     *nats.Conn
	owned  bool
	prefix string
	logger *logging.Logger

	mu     sync.Mutex
	subs   []*nats.Subscription
	closed bool
}

// Connect dials NATS and returns a bus that owns the connection.
func Connect(cfg Config, logger *logging.Logger) (*Bus, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	name := cfg.Name
	if name == "" {
		name = "nyx"
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1 * time.Second),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	b := New(nc, cfg.SubjectPrefix, logger)
	b.owned = true
	return b, nil
}

// New wraps an existing connection. The caller keeps ownership of nc.
func New(nc *nats.Conn, prefix string, logger *logging.Logger) *Bus {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bus{nc: nc, prefix: strings.TrimSuffix(prefix, "."), logger: logger}
}

// RequestSubject returns the subject feedback requests for recipient go to.
func (b *Bus) RequestSubject(recipient string) string {
	return fmt.Sprintf("%s.request.%s", b.prefix, sanitizeToken(recipient))
}

// ResponseSubject returns the subject answers are read from.
func (b *Bus) ResponseSubject() string {
	return b.prefix + ".response"
}

// EmitFeedbackRequest publishes req to the recipient's request subject.
func (b *Bus) EmitFeedbackRequest(ctx context.Context, recipient string, req learning.FeedbackRequest) error {
	if b.isClosed() {
		return ErrClosed
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback request: %w", err)
	}
	subject := b.RequestSubject(recipient)
	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish feedback request: %w", err)
	}
	b.logger.Debug(ctx, "feedback request published",
		zap.String("subject", subject),
		zap.String("feedback_id", req.ID),
	)
	return nil
}

// Subscribe starts consuming answers and passing them to r. Handlers run
// with ctx as their parent context.
func (b *Bus) Subscribe(ctx context.Context, r Resolver) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	sub, err := b.nc.Subscribe(b.ResponseSubject(), func(msg *nats.Msg) {
		b.handleResponse(ctx, r, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.ResponseSubject(), err)
	}
	b.subs = append(b.subs, sub)

	b.logger.Info(ctx, "feedback bus subscribed", zap.String("subject", b.ResponseSubject()))
	return nil
}

func (b *Bus) handleResponse(ctx context.Context, r Resolver, msg *nats.Msg) {
	var in ResponseMessage
	if err := json.Unmarshal(msg.Data, &in); err != nil {
		b.logger.Warn(ctx, "skipping malformed feedback answer", zap.Error(err))
		b.reply(ctx, msg, Reply{Error: "malformed feedback answer"})
		return
	}

	ack, err := r.HandleFeedback(ctx, in.ID, learning.Response{Action: in.Action, CorrectIntent: in.CorrectIntent})
	if err != nil && !errors.Is(err, learning.ErrPersistFailed) {
		b.logger.Warn(ctx, "feedback answer rejected", zap.String("feedback_id", in.ID), zap.Error(err))
		b.reply(ctx, msg, Reply{Error: err.Error()})
		return
	}
	if err != nil {
		b.logger.Error(ctx, "feedback applied but not persisted", zap.String("feedback_id", in.ID), zap.Error(err))
	}
	b.reply(ctx, msg, Reply{Ack: &ack})
}

func (b *Bus) reply(ctx context.Context, msg *nats.Msg, r Reply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		b.logger.Error(ctx, "encoding feedback reply", zap.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Warn(ctx, "sending feedback reply", zap.Error(err))
	}
}

// Close unsubscribes and, for owned connections, drains and closes NATS.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if err := s.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	if b.owned {
		if err := b.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// sanitizeToken makes s usable as a single NATS subject token.
func sanitizeToken(s string) string {
	if s == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
