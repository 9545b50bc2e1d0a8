package harness

import (
	"fmt"
	"log/slog"

	"github.com/roach88/crosshatch/internal/directory"
	"github.com/roach88/crosshatch/internal/identity"
	"github.com/roach88/crosshatch/internal/provider"
	"github.com/roach88/crosshatch/internal/resolver"
	"github.com/roach88/crosshatch/internal/storage"
)

// Env is the base environment for one test case. It implements
// identity.Environment, owns the shared identity directory, and keeps the
// registry of running service instances keyed by authority. Actors built
// over the same Env share state; unrelated test cases get their own Env.
type Env struct {
	stateDir string
	dir      *directory.Directory
	log      *slog.Logger
	services map[string]provider.Provider
}

// EnvOption configures an Env at construction.
type EnvOption func(*Env)

// WithLogger substitutes the environment logger. Tests usually pass a
// handler writing to io.Discard.
func WithLogger(log *slog.Logger) EnvOption {
	return func(e *Env) { e.log = log }
}

// WithDirectory substitutes the identity directory. The default is the
// well-known four-application table.
func WithDirectory(dir *directory.Directory) EnvOption {
	return func(e *Env) { e.dir = dir }
}

// NewEnv creates a base environment rooted at stateDir.
func NewEnv(stateDir string, opts ...EnvOption) *Env {
	e := &Env{
		stateDir: stateDir,
		dir:      directory.WellKnown(),
		log:      slog.Default(),
		services: make(map[string]provider.Provider),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Directory returns the shared identity directory.
func (e *Env) Directory() *directory.Directory {
	return e.dir
}

// StateDir returns the directory persisted artifacts live under.
func (e *Env) StateDir() string {
	return e.stateDir
}

// Logger returns the environment logger.
func (e *Env) Logger() *slog.Logger {
	return e.log
}

// Service returns the running instance at an authority, if one exists.
func (e *Env) Service(authority string) (provider.Provider, bool) {
	p, ok := e.services[authority]
	return p, ok
}

// Actor is one simulated application: a fixed identity, an isolated storage
// binding, and a resolver attached to the shared service instance. Actors
// are built once per simulated application per test case.
type Actor struct {
	appName   string
	authority string
	idctx     *identity.Context
	res       *resolver.Resolver
	env       *Env
}

// NewActor builds an actor over env reporting appName. The service instance
// at authority is created through factory on first use and reused by every
// later actor, so all actors from one Env observe the same state. Any error
// is a fatal test-setup failure; no half-initialized actor is returned.
func NewActor(env *Env, appName string, factory provider.Factory, authority string) (*Actor, error) {
	idctx := identity.NewContext(env, appName)
	binding := storage.Bind(idctx)

	svc, ok := env.services[authority]
	if !ok {
		var err error
		svc, err = factory(binding)
		if err != nil {
			return nil, fmt.Errorf("instantiate service at %q: %w", authority, err)
		}
		env.services[authority] = svc
	}

	res := resolver.New(idctx)
	if err := res.Attach(authority, svc); err != nil {
		return nil, fmt.Errorf("attach actor %q at %q: %w", appName, authority, err)
	}

	env.log.Debug("actor ready", "app", appName, "authority", authority, "uid", idctx.UID())
	return &Actor{
		appName:   appName,
		authority: authority,
		idctx:     idctx,
		res:       res,
		env:       env,
	}, nil
}

// AppName returns the identity this actor reports on every call.
func (a *Actor) AppName() string {
	return a.appName
}

// UID returns the actor's numeric identity id, or identity.UnknownUID when
// the name is not in the directory.
func (a *Actor) UID() int64 {
	return a.idctx.UID()
}

// Resolver returns the actor's connection handle, for tests that need to
// issue raw operations outside the facade.
func (a *Actor) Resolver() *resolver.Resolver {
	return a.res
}

// Env returns the base environment the actor was built over.
func (a *Actor) Env() *Env {
	return a.env
}
