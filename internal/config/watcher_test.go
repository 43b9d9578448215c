package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/nyx/internal/logging"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "feedback:\n  ask_threshold: 0.6\n")

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { changes <- c }, nil)
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("feedback:\n  ask_threshold: 0.65\n"), 0o600))

	select {
	case cfg := <-changes:
		assert.Equal(t, 0.65, cfg.Feedback.AskThreshold)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}

func TestWatcher_IgnoresInvalidChange(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "logging:\n  level: info\n")
	tl := logging.NewTestLogger()

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { changes <- c }, tl.Logger)
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))

	assert.Eventually(t, func() bool {
		return len(tl.FilterMessage("ignoring invalid config change").All()) > 0
	}, 5*time.Second, 20*time.Millisecond)
	w.Stop()
	w.Stop()

	assert.Empty(t, changes)
	tl.AssertLogged(t, zapcore.WarnLevel, "ignoring invalid config change")
}

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher("", func(*Config) {}, nil)
	assert.ErrorIs(t, err, ErrWatcherFailed)

	_, err = NewWatcher("config.yaml", nil, nil)
	assert.ErrorIs(t, err, ErrWatcherFailed)
}
