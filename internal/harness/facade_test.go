package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crosshatch/internal/address"
	"github.com/roach88/crosshatch/internal/directory"
	"github.com/roach88/crosshatch/internal/provider"
	"github.com/roach88/crosshatch/internal/query"
	"github.com/roach88/crosshatch/internal/recordsvc"
)

func newActorPair(t *testing.T) (*Actor, *Actor) {
	t.Helper()
	env := newTestEnv(t)
	green, err := NewActor(env, directory.PackageGreen, testFactory(), recordsvc.DefaultAuthority)
	require.NoError(t, err)
	red, err := NewActor(env, directory.PackageRed, testFactory(), recordsvc.DefaultAuthority)
	require.NoError(t, err)
	return green, red
}

func TestCreateContactAssignsAggregateSynchronously(t *testing.T) {
	green, _ := newActorPair(t)
	ctx := context.Background()

	recordID, err := green.CreateContact(ctx, false)
	require.NoError(t, err)
	require.Positive(t, recordID)

	aggID, err := green.AggregateForRecord(ctx, recordID)
	require.NoError(t, err, "a fresh record must already have its aggregate")
	assert.Positive(t, aggID)
}

func TestAggregateForRecordMissingIsHardNotFound(t *testing.T) {
	green, _ := newActorPair(t)

	_, err := green.AggregateForRecord(context.Background(), 4242)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestDataCountForAggregate(t *testing.T) {
	green, _ := newActorPair(t)
	ctx := context.Background()

	recordID, err := green.CreateContact(ctx, false)
	require.NoError(t, err)
	aggID, err := green.AggregateForRecord(ctx, recordID)
	require.NoError(t, err)

	count, err := green.DataCountForAggregate(ctx, aggID)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "fresh aggregate has no data")

	_, err = green.CreateName(ctx, recordID, "Smith")
	require.NoError(t, err)
	_, err = green.CreatePhone(ctx, recordID, "555-0100")
	require.NoError(t, err)

	count, err = green.DataCountForAggregate(ctx, aggID)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one name and one phone sub-record")

	// Absent aggregates count zero; this is never an error.
	count, err = green.DataCountForAggregate(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSuperPrimaryPhonePromotion(t *testing.T) {
	green, _ := newActorPair(t)
	ctx := context.Background()

	recordID, err := green.CreateContact(ctx, false)
	require.NoError(t, err)
	aggID, err := green.AggregateForRecord(ctx, recordID)
	require.NoError(t, err)

	firstPhone, err := green.CreatePhone(ctx, recordID, "555-0100")
	require.NoError(t, err)
	secondPhone, err := green.CreatePhone(ctx, recordID, "555-0101")
	require.NoError(t, err)

	// The most recent super-primary insert holds the slot.
	phoneID, err := green.PrimaryPhoneID(ctx, aggID)
	require.NoError(t, err)
	assert.Equal(t, secondPhone, phoneID)

	require.NoError(t, green.SetSuperPrimaryPhone(ctx, firstPhone))
	phoneID, err = green.PrimaryPhoneID(ctx, aggID)
	require.NoError(t, err)
	assert.Equal(t, firstPhone, phoneID)
}

func TestPrimaryPhoneIDSentinel(t *testing.T) {
	green, _ := newActorPair(t)
	ctx := context.Background()

	// Missing aggregate row.
	phoneID, err := green.PrimaryPhoneID(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), phoneID)

	// Aggregate present but no phone promoted.
	recordID, err := green.CreateContact(ctx, false)
	require.NoError(t, err)
	aggID, err := green.AggregateForRecord(ctx, recordID)
	require.NoError(t, err)

	phoneID, err = green.PrimaryPhoneID(ctx, aggID)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), phoneID)
}

func TestUpdateExceptionUpserts(t *testing.T) {
	green, _ := newActorPair(t)
	ctx := context.Background()

	require.NoError(t, green.UpdateException(ctx, directory.PackageGreen, directory.PackageRed, false))
	require.NoError(t, green.UpdateException(ctx, directory.PackageGreen, directory.PackageRed, true))

	// Exactly one effective rule for the directed pair, with the latest
	// allow value.
	cur, err := green.Resolver().Query(ctx,
		address.New(recordsvc.DefaultAuthority, "restriction_exceptions"),
		nil,
		query.And{Filters: []query.Filter{
			query.EqString(recordsvc.ColProviderPackage, directory.PackageGreen),
			query.EqString(recordsvc.ColClientPackage, directory.PackageRed),
		}},
	)
	require.NoError(t, err)
	defer cur.Close()

	require.Equal(t, 1, cur.Count())
	require.True(t, cur.Next())
	allow, err := cur.Bool(recordsvc.ColAllowAccess)
	require.NoError(t, err)
	assert.True(t, allow)
}

func TestRestrictedRecordEndToEnd(t *testing.T) {
	green, red := newActorPair(t)
	ctx := context.Background()

	recordID, err := green.CreateContactWithName(ctx, true, "Smith")
	require.NoError(t, err)

	aggID, err := green.AggregateForRecord(ctx, recordID)
	require.NoError(t, err)

	count, err := green.DataCountForAggregate(ctx, aggID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "only the name sub-record exists")

	// The restricted record is invisible to red until an exception is
	// granted; the probe returns empty results, never errors.
	count, err = red.DataCountForAggregate(ctx, aggID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	_, err = red.AggregateForRecord(ctx, recordID)
	assert.ErrorIs(t, err, provider.ErrNotFound)

	require.NoError(t, green.UpdateException(ctx, directory.PackageGreen, directory.PackageRed, true))
	count, err = red.DataCountForAggregate(ctx, aggID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "the exception makes green's data visible to red")

	// Revoking flips the same rule back; no second row appears.
	require.NoError(t, green.UpdateException(ctx, directory.PackageGreen, directory.PackageRed, false))
	count, err = red.DataCountForAggregate(ctx, aggID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCrossActorGroupMembership(t *testing.T) {
	green, red := newActorPair(t)
	ctx := context.Background()

	recordID, err := green.CreateContactWithName(ctx, true, "Smith")
	require.NoError(t, err)

	groupID, err := red.CreateGroup(ctx, "Friends")
	require.NoError(t, err)

	// The membership write crosses identities; denial would be the
	// service's call, and this service allows writes.
	memberID, err := red.CreateGroupMembership(ctx, recordID, groupID)
	require.NoError(t, err)
	assert.Positive(t, memberID)

	// The membership row is queryable afterwards by the record's owner.
	cur, err := green.Resolver().Query(ctx,
		address.New(recordsvc.DefaultAuthority, "data"),
		[]string{recordsvc.ColID, recordsvc.ColKind, recordsvc.ColRefID},
		query.EqString(recordsvc.ColKind, recordsvc.KindMembership),
	)
	require.NoError(t, err)
	defer cur.Close()

	require.Equal(t, 1, cur.Count())
	require.True(t, cur.Next())
	refID, err := cur.Int64(recordsvc.ColRefID)
	require.NoError(t, err)
	assert.Equal(t, groupID, refID)
}
