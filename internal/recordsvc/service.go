package recordsvc

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/crosshatch/internal/identity"
	"github.com/roach88/crosshatch/internal/provider"
	"github.com/roach88/crosshatch/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on data.record_id
const currentSchemaVersion = 1

// DefaultAuthority is the authority the service is conventionally attached
// at. Attachment is the caller's job; the service itself only sees
// addresses relative to whatever authority was chosen.
const DefaultAuthority = "records"

// DefaultDatabaseName is the database file name resolved through the
// storage binding (and therefore prefixed on disk).
const DefaultDatabaseName = "records.db"

// Column names shared with harness code that builds payloads, filters, and
// projections against this service.
const (
	ColID              = "id"
	ColOwnerPackage    = "owner_package"
	ColIsRestricted    = "is_restricted"
	ColAggregateID     = "aggregate_id"
	ColRecordID        = "record_id"
	ColKind            = "kind"
	ColContent         = "content"
	ColRefID           = "ref_id"
	ColIsPrimary       = "is_primary"
	ColIsSuperPrimary  = "is_super_primary"
	ColLookupKey       = "lookup_key"
	ColPrimaryPhoneID  = "primary_phone_id"
	ColProviderPackage = "provider_package"
	ColClientPackage   = "client_package"
	ColAllowAccess     = "allow_access"
	ColTitle           = "title"
)

// Data row kinds.
const (
	KindName       = "name"
	KindPhone      = "phone"
	KindMembership = "membership"
)

// Service is the record service. It implements provider.Provider and is
// shared by every actor attached to the same authority in one environment.
type Service struct {
	db      *sql.DB
	binding *storage.Binding
	keys    KeyGenerator
	log     *slog.Logger
}

// Option configures a Service at construction.
type Option func(*config)

type config struct {
	keys   KeyGenerator
	dbName string
}

// WithKeyGenerator substitutes the aggregate lookup key generator.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(c *config) { c.keys = g }
}

// WithDatabaseName overrides the database file name resolved through the
// storage binding.
func WithDatabaseName(name string) Option {
	return func(c *config) { c.dbName = name }
}

// Factory adapts New to the provider.Factory contract.
func Factory(opts ...Option) provider.Factory {
	return func(b *storage.Binding) (provider.Provider, error) {
		return New(b, opts...)
	}
}

// New opens (or creates) the service's database through the storage binding
// and returns a ready service. The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Opening is idempotent - a second instance over the same binding sees the
// same state.
func New(binding *storage.Binding, opts ...Option) (*Service, error) {
	cfg := config{
		keys:   UUIDv7Generator{},
		dbName: DefaultDatabaseName,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	path := binding.DatabasePath(cfg.dbName)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	svc := &Service{
		db:      db,
		binding: binding,
		keys:    cfg.keys,
		log:     binding.Logger().With("component", "recordsvc"),
	}
	svc.log.Debug("service opened", "path", path)
	return svc, nil
}

// Close closes the database connection.
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return runMigrations(db)
}

func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		// Databases created before v1 predate the data.record_id index;
		// CREATE INDEX IF NOT EXISTS is a no-op for new ones.
		if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_data_record ON data(record_id)"); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// caller resolves the simulated calling package from the request context.
// The numeric id is looked up for diagnostics only; an unknown identity is
// tolerated and logged, never an error.
func (s *Service) caller(ctx context.Context) (string, error) {
	name, ok := identity.CallerFrom(ctx)
	if !ok {
		return "", fmt.Errorf("request carries no caller identity")
	}
	if uid := s.binding.Identity().UIDOf(name); uid == identity.UnknownUID {
		s.log.Debug("caller not in identity directory", "package", name)
	}
	return name, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Service) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
