package storage

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/crosshatch/internal/directory"
	"github.com/roach88/crosshatch/internal/identity"
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

func TestDatabasePathIsPrefixed(t *testing.T) {
	env := newFakeEnv(t)
	b := Bind(identity.NewContext(env, directory.PackageGreen))

	got := b.DatabasePath("records.db")
	assert.Equal(t, filepath.Join(env.stateDir, "test.records.db"), got)
}

func TestBindingsOverSameEnvShareState(t *testing.T) {
	env := newFakeEnv(t)
	green := Bind(identity.NewContext(env, directory.PackageGreen))
	red := Bind(identity.NewContext(env, directory.PackageRed))

	assert.Equal(t, green.DatabasePath("records.db"), red.DatabasePath("records.db"))
}

func TestBindingsOverDifferentEnvsAreIsolated(t *testing.T) {
	a := Bind(identity.NewContext(newFakeEnv(t), directory.PackageGreen))
	b := Bind(identity.NewContext(newFakeEnv(t), directory.PackageGreen))

	assert.NotEqual(t, a.DatabasePath("records.db"), b.DatabasePath("records.db"))
}

func TestBindingCarriesIdentity(t *testing.T) {
	env := newFakeEnv(t)
	idctx := identity.NewContext(env, directory.PackageBlue)
	b := Bind(idctx)

	assert.Same(t, idctx, b.Identity())
	assert.Same(t, env.dir, b.Directory())
	assert.Same(t, env.logger, b.Logger())
}
