package identity

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crosshatch/internal/directory"
)

type fakeEnv struct {
	dir      *directory.Directory
	stateDir string
	logger   *slog.Logger
}

func (e *fakeEnv) Directory() *directory.Directory { return e.dir }
func (e *fakeEnv) StateDir() string                { return e.stateDir }
func (e *fakeEnv) Logger() *slog.Logger            { return e.logger }

func newFakeEnv(t *testing.T) *fakeEnv {
	t.Helper()
	return &fakeEnv{
		dir:      directory.WellKnown(),
		stateDir: t.TempDir(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestAppNameIsFixed(t *testing.T) {
	env := newFakeEnv(t)
	ctx := NewContext(env, directory.PackageGreen)

	assert.Equal(t, directory.PackageGreen, ctx.AppName())
}

func TestUIDResolution(t *testing.T) {
	env := newFakeEnv(t)
	ctx := NewContext(env, directory.PackageRed)

	assert.Equal(t, directory.UIDRed, ctx.UID())
	assert.Equal(t, directory.UIDGreen, ctx.UIDOf(directory.PackageGreen))
}

func TestUIDOfUnknownNameIsSentinel(t *testing.T) {
	env := newFakeEnv(t)
	ctx := NewContext(env, directory.PackageGrey)

	assert.Equal(t, UnknownUID, ctx.UIDOf("com.example.unknown"))
}

func TestUIDOfOwnUnregisteredName(t *testing.T) {
	env := newFakeEnv(t)
	ctx := NewContext(env, "com.example.stranger")

	assert.Equal(t, UnknownUID, ctx.UID())
}

func TestDelegation(t *testing.T) {
	env := newFakeEnv(t)
	ctx := NewContext(env, directory.PackageBlue)

	assert.Same(t, env.dir, ctx.Directory())
	assert.Equal(t, env.stateDir, ctx.StateDir())
	assert.Same(t, env.logger, ctx.Logger())
}

func TestContextsStack(t *testing.T) {
	env := newFakeEnv(t)
	outer := NewContext(env, directory.PackageGrey)
	inner := NewContext(outer, directory.PackageBlue)

	assert.Equal(t, directory.PackageBlue, inner.AppName())
	assert.Equal(t, env.stateDir, inner.StateDir())
}

func TestCallerPlumbing(t *testing.T) {
	ctx := WithCaller(context.Background(), directory.PackageGreen)

	name, ok := CallerFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, directory.PackageGreen, name)

	_, ok = CallerFrom(context.Background())
	assert.False(t, ok)
}
