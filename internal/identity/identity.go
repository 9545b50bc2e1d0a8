// Package identity provides the simulated-caller primitive: a context that
// always reports one fixed application identity, layered over a base
// environment whose other capabilities it delegates to.
package identity

import (
	"context"
	"log/slog"

	"github.com/roach88/crosshatch/internal/directory"
)

// UnknownUID is the sentinel returned for names with no registered
// identity. Unknown callers are an expected condition, not an error.
const UnknownUID int64 = -1

// Environment is what an identity context needs from its surroundings: the
// shared identity directory, a state directory for persisted artifacts, and
// a logger. A harness Env implements this, and so does Context itself, so
// contexts can stack.
type Environment interface {
	Directory() *directory.Directory
	StateDir() string
	Logger() *slog.Logger
}

// Context reports a fixed application identity while delegating everything
// else to its base environment. AppName never consults the real caller;
// returning the configured name is the whole point.
type Context struct {
	base    Environment
	appName string
}

// NewContext builds an identity context reporting appName over base.
func NewContext(base Environment, appName string) *Context {
	return &Context{base: base, appName: appName}
}

// AppName returns the identity this context was configured with.
func (c *Context) AppName() string {
	return c.appName
}

// UID returns the numeric identity id for this context's own name, or
// UnknownUID if the name was never registered.
func (c *Context) UID() int64 {
	return c.UIDOf(c.appName)
}

// UIDOf resolves any application name to its identity id. UnknownUID is
// returned for unregistered names; lookups never fail hard because service
// code paths tolerate unknown callers.
func (c *Context) UIDOf(name string) int64 {
	id, ok := c.base.Directory().IDByName(name)
	if !ok {
		return UnknownUID
	}
	return id
}

// Directory returns the shared identity directory.
func (c *Context) Directory() *directory.Directory {
	return c.base.Directory()
}

// StateDir delegates to the base environment.
func (c *Context) StateDir() string {
	return c.base.StateDir()
}

// Logger delegates to the base environment.
func (c *Context) Logger() *slog.Logger {
	return c.base.Logger()
}

type callerKey struct{}

// WithCaller stamps the simulated caller name on a request context. A
// shared service instance receives calls from several actors; this is how
// it tells them apart.
func WithCaller(ctx context.Context, appName string) context.Context {
	return context.WithValue(ctx, callerKey{}, appName)
}

// CallerFrom reads the simulated caller from a request context.
func CallerFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(callerKey{}).(string)
	return name, ok
}
