package provider

import (
	"context"
	"errors"

	"github.com/roach88/crosshatch/internal/address"
	"github.com/roach88/crosshatch/internal/query"
	"github.com/roach88/crosshatch/internal/storage"
	"github.com/roach88/crosshatch/internal/values"
)

// ErrNotFound reports that an addressed row does not exist where one was
// required. Callers treat it as a hard failure; it is never used for
// rows that are merely invisible to the caller.
var ErrNotFound = errors.New("row not found")

// Provider is the data service surface the harness drives. Implementations
// read the simulated caller from the request context (identity.CallerFrom)
// and may filter what that caller can see, but they never see the real
// process identity.
type Provider interface {
	// Insert creates a row at the collection addr names and returns the
	// created row's address (the collection address with the new id
	// appended).
	Insert(ctx context.Context, addr address.Address, vals values.Values) (address.Address, error)

	// Update modifies rows matched by addr and filter, returning how many
	// rows changed.
	Update(ctx context.Context, addr address.Address, vals values.Values, filter query.Filter) (int64, error)

	// Query reads rows. The returned cursor is fully materialized; the
	// caller owns it and must Close it on every path.
	Query(ctx context.Context, addr address.Address, projection []string, filter query.Filter) (*Cursor, error)
}

// Factory creates one service instance over a storage binding. It runs once
// per authority per environment; later actors attach to the instance the
// first construction produced.
type Factory func(*storage.Binding) (Provider, error)
