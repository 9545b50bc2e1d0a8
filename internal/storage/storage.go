// Package storage provides the isolated storage binding handed to a service
// at attach time. Every persisted artifact the service names is rewritten
// under a fixed test prefix inside the base environment's state directory,
// so simulated runs can never touch real state, and every actor bound over
// the same base environment resolves the same paths and therefore shares
// one logical store.
package storage

import (
	"log/slog"
	"path/filepath"

	"github.com/roach88/crosshatch/internal/directory"
	"github.com/roach88/crosshatch/internal/identity"
)

// FilenamePrefix namespaces all persisted artifacts created through a
// binding.
const FilenamePrefix = "test."

// Binding is a storage view bound to one identity context. It carries
// everything a service factory needs when it is attached: where to put its
// files, who it runs as, the shared directory, and a logger.
type Binding struct {
	idctx *identity.Context
}

// Bind creates the storage binding for an identity context.
func Bind(idctx *identity.Context) *Binding {
	return &Binding{idctx: idctx}
}

// DatabasePath resolves a service-chosen database name to its prefixed
// location in the state directory. Two bindings over the same base
// environment resolve the same name to the same path.
func (b *Binding) DatabasePath(name string) string {
	return filepath.Join(b.idctx.StateDir(), FilenamePrefix+name)
}

// Identity returns the identity context the binding was created from.
func (b *Binding) Identity() *identity.Context {
	return b.idctx
}

// Directory returns the shared identity directory.
func (b *Binding) Directory() *directory.Directory {
	return b.idctx.Directory()
}

// Logger returns the environment logger.
func (b *Binding) Logger() *slog.Logger {
	return b.idctx.Logger()
}
