// Package resolver provides the per-actor connection handle that routes
// data operations to attached service instances by address authority,
// stamping each call with the actor's simulated identity.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/crosshatch/internal/address"
	"github.com/roach88/crosshatch/internal/identity"
	"github.com/roach88/crosshatch/internal/provider"
	"github.com/roach88/crosshatch/internal/query"
	"github.com/roach88/crosshatch/internal/values"
)

// ErrNoProvider reports an operation addressed to an authority nothing is
// attached at.
var ErrNoProvider = errors.New("no service attached for authority")

// ErrAuthorityTaken reports a second attachment at an authority already in
// use by this resolver.
var ErrAuthorityTaken = errors.New("authority already attached")

// Resolver dispatches Insert, Update, and Query calls to the service
// attached at the address's authority. One resolver belongs to one identity
// context; several resolvers may share one service instance, which is how
// multiple actors talk to the same store.
type Resolver struct {
	idctx     *identity.Context
	providers map[string]provider.Provider
}

// New creates a resolver for an identity context with nothing attached.
func New(idctx *identity.Context) *Resolver {
	return &Resolver{
		idctx:     idctx,
		providers: make(map[string]provider.Provider),
	}
}

// Attach binds a service instance at an authority. Attaching twice at the
// same authority is rejected.
func (r *Resolver) Attach(authority string, p provider.Provider) error {
	if authority == "" {
		return fmt.Errorf("attach: empty authority")
	}
	if p == nil {
		return fmt.Errorf("attach %q: nil provider", authority)
	}
	if _, exists := r.providers[authority]; exists {
		return fmt.Errorf("attach %q: %w", authority, ErrAuthorityTaken)
	}
	r.providers[authority] = p
	return nil
}

// Authorities returns the attached authorities in unspecified order.
func (r *Resolver) Authorities() []string {
	out := make([]string, 0, len(r.providers))
	for a := range r.providers {
		out = append(out, a)
	}
	return out
}

// Insert routes an insert to the addressed service.
func (r *Resolver) Insert(ctx context.Context, addr address.Address, vals values.Values) (address.Address, error) {
	p, err := r.lookup(addr)
	if err != nil {
		return address.Address{}, err
	}
	return p.Insert(r.stamp(ctx), addr, vals)
}

// Update routes an update to the addressed service.
func (r *Resolver) Update(ctx context.Context, addr address.Address, vals values.Values, filter query.Filter) (int64, error) {
	p, err := r.lookup(addr)
	if err != nil {
		return 0, err
	}
	return p.Update(r.stamp(ctx), addr, vals, filter)
}

// Query routes a query to the addressed service. The caller owns the
// returned cursor.
func (r *Resolver) Query(ctx context.Context, addr address.Address, projection []string, filter query.Filter) (*provider.Cursor, error) {
	p, err := r.lookup(addr)
	if err != nil {
		return nil, err
	}
	return p.Query(r.stamp(ctx), addr, projection, filter)
}

func (r *Resolver) lookup(addr address.Address) (provider.Provider, error) {
	p, ok := r.providers[addr.Authority()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", addr, ErrNoProvider)
	}
	return p, nil
}

// stamp marks the outgoing call with this resolver's identity so a shared
// service instance can tell callers apart.
func (r *Resolver) stamp(ctx context.Context) context.Context {
	return identity.WithCaller(ctx, r.idctx.AppName())
}
