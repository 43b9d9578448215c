package learning

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoadedTable(t *testing.T) *RewardTable {
	t.Helper()
	table := NewRewardTable(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, table.Load(context.Background()))
	return table
}

func TestKey(t *testing.T) {
	assert.Equal(t, "open safari:system.open", Key("Open SAFARI", "system.open"))
	assert.Equal(t, Key("hello", "unknown"), Key("HELLO", "unknown"))
}

func TestRewardTable_LoadMissingFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	table := NewRewardTable(dir)

	require.NoError(t, table.Load(context.Background()))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, Stats{}, table.Stats())
	assert.Equal(t, filepath.Join(dir, TableFileName), table.Path())
}

func TestRewardTable_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TableFileName), []byte("{not json"), 0o644))

	err := NewRewardTable(dir).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptTable)
}

func TestRewardTable_UpdateFromUnseen(t *testing.T) {
	ctx := context.Background()
	table := newLoadedTable(t)

	v, err := table.Update(ctx, "Open Safari", "system.open", RewardConfirm)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, v, 1e-9)

	stored, ok := table.Value("open safari", "system.open")
	require.True(t, ok)
	assert.InDelta(t, 0.1, stored, 1e-9)

	data, err := os.ReadFile(table.Path())
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"open safari:system.open\": 0.1\n}", string(data))
}

func TestRewardTable_ConvergesTowardReward(t *testing.T) {
	ctx := context.Background()

	for _, target := range []float64{1.0, -0.5} {
		table := newLoadedTable(t)
		prev := 0.0
		prevGap := math.Abs(target - prev)
		for i := 0; i < 40; i++ {
			v, err := table.Update(ctx, "set timer for 10", "time.timer", target)
			require.NoError(t, err)

			gap := math.Abs(target - v)
			if target > 0 {
				assert.Greater(t, v, prev)
			} else {
				assert.Less(t, v, prev)
			}
			assert.InDelta(t, (1-DefaultLearningRate)*prevGap, gap, 1e-9)
			prev, prevGap = v, gap
		}
		assert.InDelta(t, target, prev, 0.02)
	}
}

func TestRewardTable_ConfidenceBoostClamped(t *testing.T) {
	ctx := context.Background()
	table := newLoadedTable(t)

	assert.Equal(t, 0.0, table.ConfidenceBoost("never seen", "unknown"))

	_, err := table.Update(ctx, "big", "x", 100)
	require.NoError(t, err)
	_, err = table.Update(ctx, "small", "x", -100)
	require.NoError(t, err)
	_, err = table.Update(ctx, "mid", "x", 1)
	require.NoError(t, err)

	assert.Equal(t, MaxBoost, table.ConfidenceBoost("big", "x"))
	assert.Equal(t, -MaxBoost, table.ConfidenceBoost("small", "x"))
	assert.InDelta(t, 0.02, table.ConfidenceBoost("MID", "x"), 1e-9)

	for _, rewards := range [][]float64{{1, 1, 1}, {-0.5, 7, -3}, {1e6}} {
		for _, r := range rewards {
			_, err := table.Update(ctx, "prop", "y", r)
			require.NoError(t, err)
			b := table.ConfidenceBoost("prop", "y")
			assert.GreaterOrEqual(t, b, -MaxBoost)
			assert.LessOrEqual(t, b, MaxBoost)
		}
	}
}

func TestRewardTable_RejectsNonFiniteReward(t *testing.T) {
	ctx := context.Background()
	table := newLoadedTable(t)

	_, err := table.Update(ctx, "open safari", "system.open", RewardConfirm)
	require.NoError(t, err)

	for _, r := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		_, err := table.Update(ctx, "hello", "unknown", r)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidReward)
		assert.NotErrorIs(t, err, ErrPersistFailed)
	}
	_, ok := table.Value("hello", "unknown")
	assert.False(t, ok)
	assert.Equal(t, 0.0, table.ConfidenceBoost("hello", "unknown"))

	// The table still persists after the rejected updates.
	v, err := table.Update(ctx, "open safari", "system.open", RewardConfirm)
	require.NoError(t, err)
	assert.InDelta(t, 0.19, v, 1e-9)

	reloaded := NewRewardTable(filepath.Dir(table.Path()))
	require.NoError(t, reloaded.Load(ctx))
	stored, ok := reloaded.Value("open safari", "system.open")
	require.True(t, ok)
	assert.InDelta(t, 0.19, stored, 1e-9)
}

func TestRewardTable_RejectsOverflowingEstimate(t *testing.T) {
	ctx := context.Background()
	table := newLoadedTable(t)
	table.values[Key("m", "i")] = -math.MaxFloat64

	v, err := table.Update(ctx, "m", "i", math.MaxFloat64)
	require.ErrorIs(t, err, ErrInvalidReward)
	assert.Equal(t, -math.MaxFloat64, v)

	stored, _ := table.Value("m", "i")
	assert.Equal(t, -math.MaxFloat64, stored)
}

func TestClamp_NaN(t *testing.T) {
	assert.Equal(t, 0.0, clamp(math.NaN(), -MaxBoost, MaxBoost))
	assert.Equal(t, MaxBoost, clamp(math.Inf(1), -MaxBoost, MaxBoost))
}

func TestRewardTable_LoadSaveIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	original := map[string]float64{
		"open safari:system.open": 0.19,
		"hello:unknown":           -0.05,
		"play jazz:music.play":    0.271,
	}
	seed := NewRewardTable(dir)
	seed.values = original
	require.NoError(t, seed.Save(ctx))
	first, err := os.ReadFile(seed.Path())
	require.NoError(t, err)

	reloaded := NewRewardTable(dir)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, original, reloaded.Snapshot())
	require.NoError(t, reloaded.Save(ctx))

	second, err := os.ReadFile(reloaded.Path())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestRewardTable_PersistFailureKeepsMemory(t *testing.T) {
	dir := t.TempDir()
	table := NewRewardTable(dir)
	// A directory where the file should be makes the write fail.
	require.NoError(t, os.Mkdir(table.Path(), 0o755))

	v, err := table.Update(context.Background(), "open safari", "system.open", RewardConfirm)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistFailed)
	assert.InDelta(t, 0.1, v, 1e-9)

	stored, ok := table.Value("open safari", "system.open")
	require.True(t, ok)
	assert.InDelta(t, 0.1, stored, 1e-9)
}

func TestRewardTable_Stats(t *testing.T) {
	ctx := context.Background()
	table := newLoadedTable(t)

	_, err := table.Update(ctx, "a", "x", 1)
	require.NoError(t, err)
	_, err = table.Update(ctx, "b", "x", -0.5)
	require.NoError(t, err)

	stats := table.Stats()
	assert.Equal(t, 2, stats.KnownCount)
	assert.InDelta(t, (0.1-0.05)/2, stats.AverageValue, 1e-9)
}

func TestWithLearningRate(t *testing.T) {
	table := NewRewardTable(t.TempDir(), WithLearningRate(0.5))
	v, err := table.Update(context.Background(), "m", "i", 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-9)

	assert.Equal(t, DefaultLearningRate, NewRewardTable(t.TempDir(), WithLearningRate(2)).alpha)
}
