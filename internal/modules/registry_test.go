package modules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/nyx/internal/brain"
)

type fakeModule struct {
	name string
	res  Result
	err  error
}

func (f *fakeModule) Name() string { return f.name }

func (f *fakeModule) Execute(context.Context, string, brain.Decision) (Result, error) {
	return f.res, f.err
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r, err := NewRegistry(Builtins()...)
	require.NoError(t, err)
	assert.Equal(t, []string{"ai", "calculator", "time"}, r.Names())

	m, ok := r.Get("calculator")
	require.True(t, ok)
	assert.Equal(t, "calculator", m.Name())

	_, ok = r.Get("system")
	assert.False(t, ok)
}

func TestRegistry_RegisterErrors(t *testing.T) {
	r, err := NewRegistry(NewAI())
	require.NoError(t, err)

	assert.ErrorIs(t, r.Register(NewAI()), ErrDuplicateModule)
	assert.ErrorIs(t, r.Register(&fakeModule{name: "Bad Name"}), ErrInvalidName)
	assert.ErrorIs(t, r.Register(&fakeModule{name: ""}), ErrInvalidName)

	_, err = NewRegistry(NewAI(), NewAI())
	assert.ErrorIs(t, err, ErrDuplicateModule)
}

func TestRegistry_Execute(t *testing.T) {
	ctx := context.Background()
	r, err := NewRegistry(
		&fakeModule{name: "ok", res: Success("done")},
		&fakeModule{name: "boom", err: errors.New("osascript failed")},
		&fakeModule{name: "untyped", res: Result{Text: "plain"}},
	)
	require.NoError(t, err)

	assert.Equal(t, Result{Text: "done", Type: ResultSuccess}, r.Execute(ctx, "ok", "m", brain.Decision{}))
	assert.Equal(t, Result{Text: "Error: osascript failed", Type: ResultError}, r.Execute(ctx, "boom", "m", brain.Decision{}))
	assert.Equal(t, Result{Text: "plain", Type: ResultInfo}, r.Execute(ctx, "untyped", "m", brain.Decision{}))
	assert.Equal(t, Result{Text: `module "system" is not available`, Type: ResultError}, r.Execute(ctx, "system", "m", brain.Decision{}))
}
