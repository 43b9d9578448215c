package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/nyx/internal/brain"
	"github.com/fyrsmithlabs/nyx/internal/learning"
	"github.com/fyrsmithlabs/nyx/internal/telemetry"
)

func TestTestTelemetry_RecordsPipelineSpans(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	table := learning.NewRewardTable(t.TempDir())

	b := brain.New(table, nil, brain.WithTracerProvider(tt.TracerProvider()))
	_, err := b.Process(context.Background(), "what time is it")
	require.NoError(t, err)

	for _, name := range []string{"brain.process", "brain.perceive", "brain.reason", "brain.learn"} {
		tt.AssertSpanExists(t, name)
	}
	tt.AssertSpanAttribute(t, "brain.process", "intent", "info.time")
	tt.AssertSpanAttribute(t, "brain.process", "module", "ai")
}
