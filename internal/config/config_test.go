package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.70, cfg.Feedback.AskThreshold)
	assert.Equal(t, 0.80, cfg.Feedback.NotifyThreshold)
	assert.Equal(t, 10*time.Minute, cfg.Feedback.PendingTTL.Duration())
	assert.Equal(t, 100, cfg.Feedback.MaxPending)
	assert.Equal(t, 50, cfg.Brain.HistorySize)
	assert.Equal(t, "nyx.feedback", cfg.NATS.SubjectPrefix)
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Feedback, cfg.Feedback)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
brain:
  data_dir: /var/lib/nyx
  history_size: 20
feedback:
  ask_threshold: 0.6
  pending_ttl: 5m
http:
  enabled: true
  port: 8088
nats:
  enabled: true
  token: s3cret
logging:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/nyx", cfg.Brain.DataDir)
	assert.Equal(t, 20, cfg.Brain.HistorySize)
	assert.Equal(t, 0.6, cfg.Feedback.AskThreshold)
	assert.Equal(t, 0.80, cfg.Feedback.NotifyThreshold, "unset keys keep defaults")
	assert.Equal(t, 5*time.Minute, cfg.Feedback.PendingTTL.Duration())
	assert.True(t, cfg.HTTP.Enabled)
	assert.Equal(t, 8088, cfg.HTTP.Port)
	assert.Equal(t, "localhost", cfg.HTTP.Host)
	assert.Equal(t, "s3cret", cfg.NATS.Token.Value())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "feedback:\n  ask_threshold: 0.6\n")

	t.Setenv("NYX_FEEDBACK_ASK_THRESHOLD", "0.5")
	t.Setenv("NYX_BRAIN_DATA_DIR", "~/nyx-data")
	t.Setenv("NYX_NATS_SUBJECT_PREFIX", "home.nyx")
	t.Setenv("NYX_FEEDBACK_PENDING_TTL", "30s")
	t.Setenv("NYX_HTTP_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Feedback.AskThreshold)
	assert.Equal(t, "home.nyx", cfg.NATS.SubjectPrefix)
	assert.Equal(t, 30*time.Second, cfg.Feedback.PendingTTL.Duration())
	assert.True(t, cfg.HTTP.Enabled)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "nyx-data"), cfg.Brain.DataDir)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"thresholds inverted", "feedback:\n  ask_threshold: 0.9\n  notify_threshold: 0.8\n", "feedback thresholds"},
		{"bad http port", "http:\n  enabled: true\n  port: 70000\n", "invalid http port"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"bad protocol", "telemetry:\n  enabled: true\n  protocol: udp\n", "telemetry.protocol"},
		{"negative duration", "feedback:\n  pending_ttl: -1m\n", "negative"},
		{"malformed yaml", "brain: [", "failed to load config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.yaml)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_RejectsWorldWritableFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "logging:\n  level: info\n")
	require.NoError(t, os.Chmod(path, 0o666))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "brain.data_dir", envKey("NYX_BRAIN_DATA_DIR"))
	assert.Equal(t, "nats.url", envKey("NYX_NATS_URL"))
	assert.Equal(t, "debug", envKey("NYX_DEBUG"))
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("hunter2")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "hunter2", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(struct{ Token Secret }{s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Token":"[REDACTED]"}`, string(data))

	assert.Equal(t, "", Secret("").String())
	assert.False(t, Secret("").IsSet())
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
