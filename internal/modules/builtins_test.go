package modules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/nyx/internal/brain"
	"github.com/fyrsmithlabs/nyx/internal/nlu"
)

func decisionFor(intent string, message string) brain.Decision {
	return brain.Decision{
		Intent:   nlu.Intent{Name: intent, Confidence: 0.85},
		Entities: nlu.Extract(message),
	}
}

func TestAI_Execute(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"Hello there", GreetingReply},
		{"hey!", GreetingReply},
		{"bonjour nyx", GreetingReply},
		{"thanks a lot", ThanksReply},
		{"thank you", ThanksReply},
		{"merci beaucoup", ThanksReply},
		{"which way", HelpReply},
		{"do something", HelpReply},
		{"", HelpReply},
	}

	ai := NewAI()
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			res, err := ai.Execute(context.Background(), tt.message, decisionFor("unknown", tt.message))
			require.NoError(t, err)
			assert.Equal(t, Result{Text: tt.want, Type: ResultInfo}, res)
		})
	}
}

func TestTimekeeper_Execute(t *testing.T) {
	now := time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)
	tk := NewTimekeeper(func() time.Time { return now })
	ctx := context.Background()

	tests := []struct {
		name    string
		intent  string
		message string
		want    Result
	}{
		{"duration entity", "time.timer", "timer 5 minutes", Result{Text: "Timer set for 5 minutes", Type: ResultSuccess}},
		{"hours", "time.timer", "timer 2 hours", Result{Text: "Timer set for 2 hours", Type: ResultSuccess}},
		{"bare number", "time.timer", "set timer for 10", Result{Text: "Timer set for 10 minutes", Type: ResultSuccess}},
		{"no number", "time.timer", "timer please", Result{Text: "Could not understand timer duration", Type: ResultError}},
		{"current time", "info.time", "what time is it", Result{Text: "It's 14:30 on Monday, March 9", Type: ResultInfo}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tk.Execute(ctx, tt.message, decisionFor(tt.intent, tt.message))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
		})
	}
}

func TestCalculator_Execute(t *testing.T) {
	calc := NewCalculator()
	ctx := context.Background()

	tests := []struct {
		message string
		want    Result
	}{
		{"2 + 3", Success("2 + 3 = 5")},
		{"calculate 10-4", Success("10 - 4 = 6")},
		{"6 * 7", Success("6 * 7 = 42")},
		{"combien fait 3 x 4", Success("3 x 4 = 12")},
		{"8 / 2", Success("8 / 2 = 4")},
		{"7 / 2", Success("7 / 2 = 3.5")},
		{"-3 + 5", Success("-3 + 5 = 2")},
		{"calculate", Failure("Could not find an expression to calculate")},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			res, err := calc.Execute(ctx, tt.message, decisionFor("math.calculate", tt.message))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
		})
	}
}

func TestCalculator_DivisionByZero(t *testing.T) {
	_, err := NewCalculator().Execute(context.Background(), "1 / 0", decisionFor("math.calculate", "1 / 0"))
	assert.ErrorIs(t, err, ErrDivisionByZero)

	r, err := NewRegistry(NewCalculator())
	require.NoError(t, err)
	res := r.Execute(context.Background(), "calculator", "1 / 0", decisionFor("math.calculate", "1 / 0"))
	assert.Equal(t, Failure("Error: division by zero"), res)
}

func TestCalculator_Overflow(t *testing.T) {
	calc := NewCalculator()
	ctx := context.Background()

	for _, message := range []string{
		"9223372036854775807 + 1",
		"-9223372036854775807 - 5",
		"9223372036854775807 * 2",
		"-9223372036854775808 x -1",
		"-9223372036854775808 / -1",
		"99999999999999999999 + 1",
	} {
		t.Run(message, func(t *testing.T) {
			res, err := calc.Execute(ctx, message, decisionFor("math.calculate", message))
			require.NoError(t, err)
			assert.Equal(t, Failure("Numbers are too large"), res)
		})
	}

	res, err := calc.Execute(ctx, "9223372036854775806 + 1", decisionFor("math.calculate", ""))
	require.NoError(t, err)
	assert.Equal(t, Success("9223372036854775806 + 1 = 9223372036854775807"), res)
}

func TestCalculator_Derivative(t *testing.T) {
	res, err := NewCalculator().Execute(context.Background(), "derivative of x^2", decisionFor("math.derivative", ""))
	require.NoError(t, err)
	assert.Equal(t, ResultInfo, res.Type)
}
