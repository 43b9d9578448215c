package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/nyx/internal/assistant"
	"github.com/fyrsmithlabs/nyx/internal/brain"
	"github.com/fyrsmithlabs/nyx/internal/learning"
	"github.com/fyrsmithlabs/nyx/internal/logging"
	"github.com/fyrsmithlabs/nyx/internal/modules"
)

type outLine struct {
	Type      string          `json:"type"`
	Recipient string          `json:"recipient"`
	Data      json.RawMessage `json:"data"`
}

func readLines(t *testing.T, buf *bytes.Buffer) []outLine {
	t.Helper()
	var out []outLine
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var l outLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &l), scanner.Text())
		out = append(out, l)
	}
	return out
}

func newStack(t *testing.T, in io.Reader, out io.Writer, logger *logging.Logger) (*Server, *assistant.Assistant, *learning.RewardTable) {
	t.Helper()
	server := NewServer(in, out, WithSession("desktop"), WithLogger(logger))

	table := learning.NewRewardTable(filepath.Join(t.TempDir(), "data"))
	clock := func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	policy := learning.NewFeedbackPolicy(table, server, learning.WithClock(clock))
	registry, err := modules.NewRegistry(modules.Builtins()...)
	require.NoError(t, err)
	a, err := assistant.New(brain.New(table, policy), policy, registry)
	require.NoError(t, err)
	return server, a, table
}

func TestServer_CommandAndFeedbackRoundTrip(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"command","message":"please set a timer 5 minutes"}`,
		`this is not json`,
		``,
		`{"type":"feedback-response","feedbackId":"feedback_1700000000000","action":"correct","correctIntent":"time.reminder"}`,
		`{"type":"feedback","id":"feedback_1700000000000","action":"confirm"}`,
		`{"type":"ping"}`,
	}, "\n") + "\n"

	out := &bytes.Buffer{}
	logger := logging.NewTestLogger()
	server, a, table := newStack(t, strings.NewReader(input), out, logger.Logger)

	require.NoError(t, server.Serve(context.Background(), a))

	lines := readLines(t, out)
	require.Len(t, lines, 4)

	assert.Equal(t, TypeRequestFeedback, lines[0].Type)
	assert.Equal(t, "desktop", lines[0].Recipient)
	var req learning.FeedbackRequest
	require.NoError(t, json.Unmarshal(lines[0].Data, &req))
	assert.Equal(t, "feedback_1700000000000", req.ID)
	assert.Equal(t, "intent-confirmation", req.Type)
	assert.Equal(t, learning.Suggestion{Intent: "time.timer", Confidence: 70}, req.Suggestion)

	assert.Equal(t, TypeResponse, lines[1].Type)
	var resp assistant.Response
	require.NoError(t, json.Unmarshal(lines[1].Data, &resp))
	assert.Equal(t, "Timer set for 5 minutes", resp.Text)
	assert.Equal(t, "time", resp.Module)
	assert.Equal(t, req.ID, resp.FeedbackID)

	assert.Equal(t, TypeFeedbackReceived, lines[2].Type)
	var ack assistant.Ack
	require.NoError(t, json.Unmarshal(lines[2].Data, &ack))
	assert.True(t, ack.Resolved)
	assert.Equal(t, "time.reminder", ack.Intent)

	assert.Equal(t, TypeFeedbackReceived, lines[3].Type)
	require.NoError(t, json.Unmarshal(lines[3].Data, &ack))
	assert.False(t, ack.Resolved)

	_, ok := table.Value("please set a timer 5 minutes", "time.reminder")
	assert.True(t, ok)

	logger.AssertLogged(t, zapcore.WarnLevel, "skipping input line")
	logger.AssertLogged(t, zapcore.WarnLevel, "skipping record with unknown type")
}

type failingHandler struct{}

func (failingHandler) HandleCommand(context.Context, string, string) (assistant.Response, error) {
	return assistant.Response{}, errors.New("reward table unreadable")
}

func (failingHandler) HandleFeedback(_ context.Context, id string, _ learning.Response) (assistant.Ack, error) {
	return assistant.Ack{ID: id}, learning.ErrUnknownAction
}

func TestServer_HandlerErrors(t *testing.T) {
	input := `{"type":"command","message":"hi","session":"s9"}` + "\n" +
		`{"type":"feedback","id":"feedback_1","action":"shrug"}` + "\n"
	out := &bytes.Buffer{}
	server := NewServer(strings.NewReader(input), out)

	require.NoError(t, server.Serve(context.Background(), failingHandler{}))

	lines := readLines(t, out)
	require.Len(t, lines, 2)

	assert.Equal(t, TypeResponse, lines[0].Type)
	var failed struct {
		Text string `json:"text"`
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(lines[0].Data, &failed))
	assert.Equal(t, "error", failed.Type)
	assert.Equal(t, "Error: reward table unreadable", failed.Text)

	assert.Equal(t, TypeError, lines[1].Type)
	var e errorData
	require.NoError(t, json.Unmarshal(lines[1].Data, &e))
	assert.Equal(t, "feedback_1", e.ID)
}

type recipientHandler struct {
	recipients []string
	messages   []string
}

func (h *recipientHandler) HandleCommand(_ context.Context, recipient, message string) (assistant.Response, error) {
	h.recipients = append(h.recipients, recipient)
	h.messages = append(h.messages, message)
	return assistant.Response{}, nil
}

func (h *recipientHandler) HandleFeedback(context.Context, string, learning.Response) (assistant.Ack, error) {
	return assistant.Ack{}, nil
}

func TestServer_DefaultRecipient(t *testing.T) {
	input := `{"type":"command","message":"a"}` + "\n" + `{"type":"command","message":"b","session":"other"}` + "\n"
	server := NewServer(strings.NewReader(input), io.Discard)
	require.NotEmpty(t, server.Session())

	h := &recipientHandler{}
	require.NoError(t, server.Serve(context.Background(), h))
	assert.Equal(t, []string{server.Session(), "other"}, h.recipients)
}

func TestServer_StopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	server := NewServer(pr, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, &recipientHandler{}) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServer_LineTooLongIsSkipped(t *testing.T) {
	input := `{"type":"command","message":"` + strings.Repeat("a", 200) + `"}` + "\n" +
		`{"type":"command","message":"after"}` + "\n" +
		strings.Repeat("b", 300)
	logger := logging.NewTestLogger()
	server := NewServer(strings.NewReader(input), io.Discard, WithMaxLineSize(64), WithLogger(logger.Logger))

	h := &recipientHandler{}
	require.NoError(t, server.Serve(context.Background(), h))

	assert.Equal(t, []string{"after"}, h.messages)
	assert.Len(t, logger.FilterMessage("skipping input line").All(), 2)
	logger.AssertLogged(t, zapcore.WarnLevel, "skipping input line")
}

func TestReadLine(t *testing.T) {
	input := "short\r\n" + strings.Repeat("x", 40) + "\n" + "\n" + strings.Repeat("y", 20) + "\nlast"
	// 16 is the smallest bufio buffer, so long lines arrive in several chunks.
	r := bufio.NewReaderSize(strings.NewReader(input), 16)

	tests := []struct {
		data    string
		tooLong bool
		err     error
	}{
		{data: "short"},
		{tooLong: true},
		{data: ""},
		{data: strings.Repeat("y", 20)},
		{data: "last", err: io.EOF},
	}
	for i, tt := range tests {
		line, err := readLine(r, 32)
		assert.Equal(t, tt.err, err, "line %d", i)
		assert.Equal(t, tt.tooLong, line.tooLong, "line %d", i)
		if !tt.tooLong {
			assert.Equal(t, tt.data, string(line.data), "line %d", i)
		}
	}

	line, err := readLine(r, 32)
	assert.Equal(t, io.EOF, err)
	assert.Nil(t, line.data)
	assert.False(t, line.tooLong)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("device gone") }

func TestServer_ReadErrorStops(t *testing.T) {
	server := NewServer(errReader{}, io.Discard)
	err := server.Serve(context.Background(), &recipientHandler{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device gone")
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestServer_EmitWriteFailure(t *testing.T) {
	server := NewServer(strings.NewReader(""), errWriter{})
	err := server.EmitFeedbackRequest(context.Background(), "r", learning.FeedbackRequest{ID: "feedback_1"})
	require.Error(t, err)
}
