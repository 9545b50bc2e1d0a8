package recordsvc

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/crosshatch/internal/address"
	"github.com/roach88/crosshatch/internal/directory"
	"github.com/roach88/crosshatch/internal/identity"
	"github.com/roach88/crosshatch/internal/storage"
	"github.com/roach88/crosshatch/internal/values"
)

type testEnv struct {
	dir      *directory.Directory
	stateDir string
	logger   *slog.Logger
}

func (e *testEnv) Directory() *directory.Directory { return e.dir }
func (e *testEnv) StateDir() string                { return e.stateDir }
func (e *testEnv) Logger() *slog.Logger            { return e.logger }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		dir:      directory.WellKnown(),
		stateDir: t.TempDir(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// newTestService opens a service over a fresh environment with a
// deterministic key generator.
func newTestService(t *testing.T) *Service {
	t.Helper()
	return newTestServiceOver(t, newTestEnv(t))
}

func newTestServiceOver(t *testing.T, env *testEnv) *Service {
	t.Helper()
	binding := storage.Bind(identity.NewContext(env, directory.PackageGrey))
	svc, err := New(binding, WithKeyGenerator(NewSequenceGenerator("key")))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

// as stamps a request context with a simulated caller.
func as(pkg string) context.Context {
	return identity.WithCaller(context.Background(), pkg)
}

func recordsAddr() address.Address    { return address.New(DefaultAuthority, "records") }
func dataAddr() address.Address       { return address.New(DefaultAuthority, "data") }
func groupsAddr() address.Address     { return address.New(DefaultAuthority, "groups") }
func exceptionsAddr() address.Address { return address.New(DefaultAuthority, "restriction_exceptions") }

func recordAddr(id int64) address.Address {
	return recordsAddr().WithID(id)
}

func aggregateAddr(id int64) address.Address {
	return address.New(DefaultAuthority, "aggregates").WithID(id)
}

// mustInsertRecord creates a record as pkg and returns its id.
func mustInsertRecord(t *testing.T, svc *Service, pkg string, restricted bool) int64 {
	t.Helper()
	created, err := svc.Insert(as(pkg), recordsAddr(), values.Values{
		ColIsRestricted: values.Bool(restricted),
	})
	if err != nil {
		t.Fatalf("insert record failed: %v", err)
	}
	id, ok := created.ID()
	if !ok {
		t.Fatalf("created address %s has no id", created)
	}
	return id
}

// mustInsertData creates a data row for a record and returns its id.
func mustInsertData(t *testing.T, svc *Service, pkg string, recordID int64, vals values.Values) int64 {
	t.Helper()
	withRecord := vals.Clone()
	withRecord[ColRecordID] = values.Int(recordID)
	created, err := svc.Insert(as(pkg), dataAddr(), withRecord)
	if err != nil {
		t.Fatalf("insert data failed: %v", err)
	}
	id, ok := created.ID()
	if !ok {
		t.Fatalf("created address %s has no id", created)
	}
	return id
}

// aggregateOf reads a record's aggregate id as its owner.
func aggregateOf(t *testing.T, svc *Service, pkg string, recordID int64) int64 {
	t.Helper()
	cur, err := svc.Query(as(pkg), recordAddr(recordID), []string{ColAggregateID}, nil)
	if err != nil {
		t.Fatalf("query record failed: %v", err)
	}
	defer cur.Close()
	if !cur.Next() {
		t.Fatalf("record %d not visible to %s", recordID, pkg)
	}
	aggID, err := cur.Int64(ColAggregateID)
	if err != nil {
		t.Fatalf("read aggregate id: %v", err)
	}
	return aggID
}

// countRows counts rows an address yields for a caller.
func countRows(t *testing.T, svc *Service, pkg string, addr address.Address) int {
	t.Helper()
	n, err := Count(as(pkg), svc, addr, nil)
	if err != nil {
		t.Fatalf("count %s failed: %v", addr, err)
	}
	return n
}
