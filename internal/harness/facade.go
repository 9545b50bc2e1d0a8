package harness

import (
	"context"
	"fmt"

	"github.com/roach88/crosshatch/internal/address"
	"github.com/roach88/crosshatch/internal/provider"
	"github.com/roach88/crosshatch/internal/recordsvc"
	"github.com/roach88/crosshatch/internal/values"
)

// The facade translates high-level test moves into resolver calls. Every
// operation is a minimal building block so a scenario like "green creates a
// restricted record, red tries to read it" is a short call sequence rather
// than hand-built requests. Queries release their cursor on every path.

func (a *Actor) records() address.Address {
	return address.New(a.authority, "records")
}

func (a *Actor) aggregates() address.Address {
	return address.New(a.authority, "aggregates")
}

// CreateContact creates a record owned by this actor and returns its id.
// The restricted flag sets the owner-restriction marker; a freshly created
// record already has its aggregate assigned.
func (a *Actor) CreateContact(ctx context.Context, restricted bool) (int64, error) {
	created, err := a.res.Insert(ctx, a.records(), values.Values{
		recordsvc.ColIsRestricted: values.Bool(restricted),
	})
	if err != nil {
		return 0, fmt.Errorf("create contact: %w", err)
	}
	return createdID(created)
}

// CreateContactWithName creates a record and its name sub-record in one
// move.
func (a *Actor) CreateContactWithName(ctx context.Context, restricted bool, name string) (int64, error) {
	recordID, err := a.CreateContact(ctx, restricted)
	if err != nil {
		return 0, err
	}
	if _, err := a.CreateName(ctx, recordID, name); err != nil {
		return 0, err
	}
	return recordID, nil
}

// CreateName adds a name sub-record with the primary and super-primary
// markers set, returning the sub-record id.
func (a *Actor) CreateName(ctx context.Context, recordID int64, name string) (int64, error) {
	return a.createData(ctx, recordID, values.Values{
		recordsvc.ColKind:           values.String(recordsvc.KindName),
		recordsvc.ColContent:        values.String(name),
		recordsvc.ColIsPrimary:      values.Bool(true),
		recordsvc.ColIsSuperPrimary: values.Bool(true),
	})
}

// CreatePhone adds a phone sub-record with the primary and super-primary
// markers set, returning the sub-record id.
func (a *Actor) CreatePhone(ctx context.Context, recordID int64, number string) (int64, error) {
	return a.createData(ctx, recordID, values.Values{
		recordsvc.ColKind:           values.String(recordsvc.KindPhone),
		recordsvc.ColContent:        values.String(number),
		recordsvc.ColIsPrimary:      values.Bool(true),
		recordsvc.ColIsSuperPrimary: values.Bool(true),
	})
}

func (a *Actor) createData(ctx context.Context, recordID int64, vals values.Values) (int64, error) {
	created, err := a.res.Insert(ctx, a.records().WithID(recordID).Child("data"), vals)
	if err != nil {
		return 0, fmt.Errorf("create data for record %d: %w", recordID, err)
	}
	return createdID(created)
}

// UpdateException upserts the directed restriction rule between two
// applications. A later write for the same pair replaces the earlier rule;
// there is never more than one effective rule per directed pair.
func (a *Actor) UpdateException(ctx context.Context, providerPkg, clientPkg string, allow bool) error {
	_, err := a.res.Update(ctx, address.New(a.authority, "restriction_exceptions"), values.Values{
		recordsvc.ColProviderPackage: values.String(providerPkg),
		recordsvc.ColClientPackage:   values.String(clientPkg),
		recordsvc.ColAllowAccess:     values.Bool(allow),
	}, nil)
	if err != nil {
		return fmt.Errorf("update exception %s -> %s: %w", providerPkg, clientPkg, err)
	}
	return nil
}

// AggregateForRecord returns the aggregate a record belongs to. A record
// with no aggregate breaks a service invariant, so that case surfaces as a
// hard error wrapping provider.ErrNotFound rather than an empty result.
func (a *Actor) AggregateForRecord(ctx context.Context, recordID int64) (int64, error) {
	cur, err := a.res.Query(ctx, a.records().WithID(recordID), []string{recordsvc.ColAggregateID}, nil)
	if err != nil {
		return 0, fmt.Errorf("aggregate for record %d: %w", recordID, err)
	}
	defer cur.Close()

	if !cur.Next() {
		return 0, fmt.Errorf("record %d has no aggregate: %w", recordID, provider.ErrNotFound)
	}
	aggID, err := cur.Int64(recordsvc.ColAggregateID)
	if err != nil {
		return 0, fmt.Errorf("aggregate for record %d: %w", recordID, err)
	}
	return aggID, nil
}

// DataCountForAggregate returns how many data rows hang off an aggregate's
// records. An aggregate with no data yields 0; this operation never fails
// on an empty result.
func (a *Actor) DataCountForAggregate(ctx context.Context, aggID int64) (int, error) {
	cur, err := a.res.Query(ctx, a.aggregates().WithID(aggID).Child("data"), []string{recordsvc.ColID}, nil)
	if err != nil {
		return 0, fmt.Errorf("data count for aggregate %d: %w", aggID, err)
	}
	defer cur.Close()
	return cur.Count(), nil
}

// SetSuperPrimaryPhone marks one phone sub-record primary and super-primary,
// promoting it to its aggregate's primary phone. Markers on other phones
// are not unset; that is the caller's responsibility.
func (a *Actor) SetSuperPrimaryPhone(ctx context.Context, dataID int64) error {
	_, err := a.res.Update(ctx, address.New(a.authority, "data").WithID(dataID), values.Values{
		recordsvc.ColIsPrimary:      values.Bool(true),
		recordsvc.ColIsSuperPrimary: values.Bool(true),
	}, nil)
	if err != nil {
		return fmt.Errorf("set super primary phone %d: %w", dataID, err)
	}
	return nil
}

// PrimaryPhoneID returns the sub-record id of an aggregate's primary phone,
// or -1 when the aggregate row is missing or has no primary phone. Both
// cases are legitimate probe results, never errors.
func (a *Actor) PrimaryPhoneID(ctx context.Context, aggID int64) (int64, error) {
	cur, err := a.res.Query(ctx, a.aggregates().WithID(aggID), []string{recordsvc.ColPrimaryPhoneID}, nil)
	if err != nil {
		return 0, fmt.Errorf("primary phone for aggregate %d: %w", aggID, err)
	}
	defer cur.Close()

	if !cur.Next() {
		return -1, nil
	}
	cell, err := cur.Value(recordsvc.ColPrimaryPhoneID)
	if err != nil {
		return 0, fmt.Errorf("primary phone for aggregate %d: %w", aggID, err)
	}
	phoneID, ok := cell.(values.Int)
	if !ok {
		return -1, nil
	}
	return int64(phoneID), nil
}

// CreateGroup creates a group owned by this actor and returns its id.
func (a *Actor) CreateGroup(ctx context.Context, name string) (int64, error) {
	created, err := a.res.Insert(ctx, address.New(a.authority, "groups"), values.Values{
		recordsvc.ColTitle: values.String(name),
	})
	if err != nil {
		return 0, fmt.Errorf("create group %q: %w", name, err)
	}
	return createdID(created)
}

// CreateGroupMembership links a record into a group and returns the
// membership row id. The record may belong to another actor; whether that
// should be denied is the service's decision, not the harness's.
func (a *Actor) CreateGroupMembership(ctx context.Context, recordID, groupID int64) (int64, error) {
	created, err := a.res.Insert(ctx, address.New(a.authority, "data"), values.Values{
		recordsvc.ColRecordID: values.Int(recordID),
		recordsvc.ColKind:     values.String(recordsvc.KindMembership),
		recordsvc.ColRefID:    values.Int(groupID),
	})
	if err != nil {
		return 0, fmt.Errorf("create membership record %d in group %d: %w", recordID, groupID, err)
	}
	return createdID(created)
}

// createdID extracts the row id an insert appended to the collection
// address.
func createdID(created address.Address) (int64, error) {
	id, ok := created.ID()
	if !ok {
		return 0, fmt.Errorf("insert returned non-row address %s", created)
	}
	return id, nil
}
