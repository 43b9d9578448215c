package learning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/nyx/internal/logging"
)

const (
	// TableFileName is the name of the persisted table inside the data dir.
	TableFileName = "q_learning.json"

	// DefaultLearningRate is the smoothing factor alpha.
	DefaultLearningRate = 0.1

	// MaxBoost bounds the absolute confidence adjustment.
	MaxBoost = 0.2

	// boostScale converts a stored estimate into a confidence adjustment.
	boostScale = 0.2
)

// Key derives the table key for a message and intent name.
func Key(message, intent string) string {
	return strings.ToLower(message) + ":" + intent
}

// Stats summarizes the reward table.
type Stats struct {
	KnownCount   int     `json:"known_messages"`
	AverageValue float64 `json:"avg_q_value"`
}

// RewardTable is the persistent (message, intent) -> estimate mapping.
// Safe for concurrent use; updates are serialized and each one rewrites the
// whole file before returning.
type RewardTable struct {
	mu       sync.RWMutex
	dataDir  string
	path     string
	alpha    float64
	values   map[string]float64
	logger   *logging.Logger
	fileMode os.FileMode
}

// RewardOption configures a RewardTable.
type RewardOption func(*RewardTable)

// WithLearningRate overrides alpha. Values outside (0,1] are ignored.
func WithLearningRate(alpha float64) RewardOption {
	return func(t *RewardTable) {
		if alpha > 0 && alpha <= 1 {
			t.alpha = alpha
		}
	}
}

// WithRewardLogger sets the logger.
func WithRewardLogger(logger *logging.Logger) RewardOption {
	return func(t *RewardTable) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewRewardTable creates an empty table persisted under dataDir.
// Call Load to read existing state.
func NewRewardTable(dataDir string, opts ...RewardOption) *RewardTable {
	t := &RewardTable{
		dataDir:  dataDir,
		path:     filepath.Join(dataDir, TableFileName),
		alpha:    DefaultLearningRate,
		values:   make(map[string]float64),
		logger:   logging.NewNop(),
		fileMode: 0o644,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Path returns the location of the persisted table.
func (t *RewardTable) Path() string {
	return t.path
}

// Load creates the data dir if needed and replaces the in-memory table with
// the persisted one. A missing file yields an empty table.
func (t *RewardTable) Load(ctx context.Context) error {
	if err := os.MkdirAll(t.dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", t.dataDir, err)
	}

	data, err := os.ReadFile(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		t.mu.Lock()
		t.values = make(map[string]float64)
		t.mu.Unlock()
		t.logger.Info(ctx, "reward table not found, starting empty", zap.String("path", t.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading reward table: %w", err)
	}

	values := make(map[string]float64)
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptTable, t.path, err)
		}
	}

	t.mu.Lock()
	t.values = values
	t.mu.Unlock()

	t.logger.Info(ctx, "reward table loaded",
		zap.String("path", t.path),
		zap.Int("entries", len(values)),
	)
	KnownEntries.Set(float64(len(values)))
	return nil
}

// Value returns the stored estimate and whether the key exists.
func (t *RewardTable) Value(message, intent string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[Key(message, intent)]
	return v, ok
}

// ConfidenceBoost returns the clamped confidence adjustment for a pair,
// or 0 when the pair has never received feedback.
func (t *RewardTable) ConfidenceBoost(message, intent string) float64 {
	v, ok := t.Value(message, intent)
	if !ok {
		return 0
	}
	return clamp(v*boostScale, -MaxBoost, MaxBoost)
}

// Update moves the estimate for a pair toward reward and persists the whole
// table. The returned value is the new estimate. On a write failure the
// in-memory value is kept and the error wraps ErrPersistFailed. A reward
// that is not finite, or that would push the estimate out of float64 range,
// is rejected with ErrInvalidReward and leaves the table untouched.
func (t *RewardTable) Update(ctx context.Context, message, intent string, reward float64) (float64, error) {
	if !isFinite(reward) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidReward, reward)
	}
	key := Key(message, intent)

	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.values[key]
	updated := current + t.alpha*(reward-current)
	if !isFinite(updated) {
		return current, fmt.Errorf("%w: estimate for %q overflows", ErrInvalidReward, key)
	}
	t.values[key] = updated

	RewardUpdates.Inc()
	KnownEntries.Set(float64(len(t.values)))

	t.logger.Info(ctx, "reward updated",
		zap.String("key", key),
		zap.Float64("reward", reward),
		zap.Float64("previous", current),
		zap.Float64("value", updated),
	)

	if err := t.saveLocked(); err != nil {
		PersistFailures.Inc()
		t.logger.Error(ctx, "reward table persist failed", zap.String("path", t.path), zap.Error(err))
		return updated, err
	}
	return updated, nil
}

// Save rewrites the persisted table from memory.
func (t *RewardTable) Save(ctx context.Context) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.saveLocked(); err != nil {
		PersistFailures.Inc()
		return err
	}
	return nil
}

// saveLocked writes the full table. Caller must hold t.mu.
// encoding/json sorts map keys, so equal tables encode identically.
func (t *RewardTable) saveLocked() error {
	data, err := json.MarshalIndent(t.values, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding: %v", ErrPersistFailed, err)
	}
	if err := os.MkdirAll(t.dataDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	if err := os.WriteFile(t.path, data, t.fileMode); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return nil
}

// Stats returns the number of entries and their mean value.
func (t *RewardTable) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := Stats{KnownCount: len(t.values)}
	if stats.KnownCount == 0 {
		return stats
	}
	var sum float64
	for _, v := range t.values {
		sum += v
	}
	stats.AverageValue = sum / float64(stats.KnownCount)
	return stats
}

// Snapshot returns a copy of all entries.
func (t *RewardTable) Snapshot() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// clamp maps NaN to 0.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
