package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/nyx/internal/assistant"
	"github.com/fyrsmithlabs/nyx/internal/learning"
	"github.com/fyrsmithlabs/nyx/internal/logging"
	"github.com/fyrsmithlabs/nyx/internal/modules"
)

// Record types.
const (
	TypeCommand          = "command"
	TypeFeedback         = "feedback"
	TypeFeedbackResponse = "feedback-response"
	TypeResponse         = "response"
	TypeRequestFeedback  = "request-feedback"
	TypeFeedbackReceived = "feedback-received"
	TypeError            = "error"
)

// DefaultMaxLineSize bounds a single inbound record.
const DefaultMaxLineSize = 1024 * 1024

// ErrMalformedRecord is logged for lines that cannot be decoded.
var ErrMalformedRecord = errors.New("malformed record")

// Handler processes decoded records. *assistant.Assistant implements it.
type Handler interface {
	HandleCommand(ctx context.Context, recipient, message string) (assistant.Response, error)
	HandleFeedback(ctx context.Context, id string, resp learning.Response) (assistant.Ack, error)
}

// Envelope is one outbound line.
type Envelope struct {
	Type      string `json:"type"`
	Recipient string `json:"recipient,omitempty"`
	Data      any    `json:"data"`
}

// inbound is one decoded input line.
type inbound struct {
	Type          string          `json:"type"`
	Message       string          `json:"message"`
	Session       string          `json:"session,omitempty"`
	ID            string          `json:"id,omitempty"`
	FeedbackID    string          `json:"feedbackId,omitempty"`
	Action        learning.Action `json:"action,omitempty"`
	CorrectIntent string          `json:"correct_intent,omitempty"`
	CorrectCamel  string          `json:"correctIntent,omitempty"`
}

func (r inbound) feedbackID() string {
	if r.ID != "" {
		return r.ID
	}
	return r.FeedbackID
}

func (r inbound) correctIntent() string {
	if r.CorrectIntent != "" {
		return r.CorrectIntent
	}
	return r.CorrectCamel
}

type errorData struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

type failedCommand struct {
	Text      string             `json:"text"`
	Type      modules.ResultType `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
}

// Server reads records from in and writes replies to out.
// EmitFeedbackRequest may be called from any goroutine.
type Server struct {
	in          io.Reader
	out         io.Writer
	writeMu     sync.Mutex
	logger      *logging.Logger
	session     string
	maxLineSize int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSession sets the default recipient for commands without a session.
func WithSession(id string) Option {
	return func(s *Server) {
		if id != "" {
			s.session = id
		}
	}
}

// WithMaxLineSize bounds inbound lines.
func WithMaxLineSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLineSize = n
		}
	}
}

// NewServer creates a server on the given streams. Without WithSession a
// random session id is used as the default recipient.
func NewServer(in io.Reader, out io.Writer, opts ...Option) *Server {
	s := &Server{
		in:          in,
		out:         out,
		logger:      logging.NewNop(),
		session:     uuid.NewString(),
		maxLineSize: DefaultMaxLineSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the default recipient.
func (s *Server) Session() string {
	return s.session
}

// Serve handles records until EOF, a read error or ctx cancellation.
// EOF and cancellation return nil. Lines longer than the configured maximum
// are discarded and logged like any other malformed record.
func (s *Server) Serve(ctx context.Context, h Handler) error {
	lines := make(chan inputLine)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		r := bufio.NewReader(s.in)
		for {
			line, err := readLine(r, s.maxLineSize)
			if line.data != nil || line.tooLong {
				select {
				case lines <- line:
				case <-done:
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = nil
				}
				readErr <- err
				return
			}
		}
	}()

	s.logger.Info(ctx, "stdio transport ready", zap.String("session", s.session))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			s.logger.Info(ctx, "input closed")
			return nil
		case line := <-lines:
			if line.tooLong {
				s.logger.Warn(ctx, "skipping input line",
					zap.Int("max_line_size", s.maxLineSize),
					zap.Error(fmt.Errorf("%w: line too long", ErrMalformedRecord)))
				continue
			}
			s.handleLine(ctx, h, line.data)
		}
	}
}

type inputLine struct {
	data    []byte
	tooLong bool
}

// readLine returns the next line without its terminator. Once a line
// exceeds max bytes the remainder is consumed and dropped. A final line
// without a newline is returned together with io.EOF.
func readLine(r *bufio.Reader, max int) (inputLine, error) {
	var line inputLine
	for {
		chunk, err := r.ReadSlice('\n')
		if !line.tooLong {
			line.data = append(line.data, chunk...)
			if len(bytes.TrimRight(line.data, "\r\n")) > max {
				line = inputLine{tooLong: true}
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if !line.tooLong {
			line.data = bytes.TrimRight(line.data, "\r\n")
			if len(line.data) == 0 && len(chunk) == 0 {
				line.data = nil
			} else if line.data == nil {
				line.data = []byte{}
			}
		}
		return line, err
	}
}

func (s *Server) handleLine(ctx context.Context, h Handler, line []byte) {
	if strings.TrimSpace(string(line)) == "" {
		return
	}

	var rec inbound
	if err := json.Unmarshal(line, &rec); err != nil {
		s.logger.Warn(ctx, "skipping input line", zap.Error(fmt.Errorf("%w: %v", ErrMalformedRecord, err)))
		return
	}

	ctx = logging.WithRequestID(ctx, uuid.NewString())

	switch rec.Type {
	case TypeCommand:
		s.handleCommand(ctx, h, rec)
	case TypeFeedback, TypeFeedbackResponse:
		s.handleFeedback(ctx, h, rec)
	default:
		s.logger.Warn(ctx, "skipping record with unknown type", zap.String("type", rec.Type))
	}
}

func (s *Server) handleCommand(ctx context.Context, h Handler, rec inbound) {
	recipient := rec.Session
	if recipient == "" {
		recipient = s.session
	}

	resp, err := h.HandleCommand(ctx, recipient, rec.Message)
	if err != nil {
		s.logger.Error(ctx, "command failed", zap.Error(err))
		s.write(ctx, Envelope{Type: TypeResponse, Data: failedCommand{
			Text:      fmt.Sprintf("Error: %v", err),
			Type:      modules.ResultError,
			Timestamp: time.Now(),
		}})
		return
	}
	s.write(ctx, Envelope{Type: TypeResponse, Data: resp})
}

func (s *Server) handleFeedback(ctx context.Context, h Handler, rec inbound) {
	id := rec.feedbackID()
	ack, err := h.HandleFeedback(ctx, id, learning.Response{
		Action:        rec.Action,
		CorrectIntent: rec.correctIntent(),
	})
	if err != nil && !errors.Is(err, learning.ErrPersistFailed) {
		s.logger.Warn(ctx, "feedback rejected", zap.String("feedback_id", id), zap.Error(err))
		s.write(ctx, Envelope{Type: TypeError, Data: errorData{ID: id, Error: err.Error()}})
		return
	}
	if err != nil {
		s.logger.Error(ctx, "feedback applied but not persisted", zap.String("feedback_id", id), zap.Error(err))
	}
	s.write(ctx, Envelope{Type: TypeFeedbackReceived, Data: ack})
}

// EmitFeedbackRequest writes a request-feedback record.
func (s *Server) EmitFeedbackRequest(ctx context.Context, recipient string, req learning.FeedbackRequest) error {
	return s.write(ctx, Envelope{Type: TypeRequestFeedback, Recipient: recipient, Data: req})
}

// write encodes env as one line. Writes are serialized.
func (s *Server) write(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Error(ctx, "encoding output record", zap.String("type", env.Type), zap.Error(err))
		return fmt.Errorf("encoding %s record: %w", env.Type, err)
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(data); err != nil {
		s.logger.Error(ctx, "writing output record", zap.String("type", env.Type), zap.Error(err))
		return fmt.Errorf("writing %s record: %w", env.Type, err)
	}
	return nil
}
