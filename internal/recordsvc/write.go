package recordsvc

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/crosshatch/internal/address"
	"github.com/roach88/crosshatch/internal/query"
	"github.com/roach88/crosshatch/internal/values"
)

// Writable columns per insert route. Owner columns are always derived from
// the caller identity, never accepted in a payload.
var (
	recordInsertCols = map[string]bool{
		ColIsRestricted: true,
	}
	dataInsertCols = map[string]bool{
		ColRecordID:       true,
		ColKind:           true,
		ColContent:        true,
		ColRefID:          true,
		ColIsPrimary:      true,
		ColIsSuperPrimary: true,
	}
	groupInsertCols = map[string]bool{
		ColTitle: true,
	}
	exceptionCols = map[string]bool{
		ColProviderPackage: true,
		ColClientPackage:   true,
		ColAllowAccess:     true,
	}

	recordUpdateCols = map[string]bool{
		ColIsRestricted: true,
	}
	dataUpdateCols = map[string]bool{
		ColContent:        true,
		ColRefID:          true,
		ColIsPrimary:      true,
		ColIsSuperPrimary: true,
	}
	dataBulkUpdateCols = map[string]bool{
		ColContent:   true,
		ColRefID:     true,
		ColIsPrimary: true,
	}
	groupUpdateCols = map[string]bool{
		ColTitle: true,
	}
)

// Insert creates a row at the addressed collection and returns the created
// row's address.
func (s *Service) Insert(ctx context.Context, addr address.Address, vals values.Values) (address.Address, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return address.Address{}, fmt.Errorf("insert %s: %w", addr, err)
	}

	var id int64
	switch pattern := addr.Pattern(); pattern {
	case "records":
		id, err = s.insertRecord(ctx, caller, vals)

	case "records/#/data":
		recordID, _ := addr.IDAt(1)
		withRecord := vals.Clone()
		withRecord[ColRecordID] = values.Int(recordID)
		id, err = s.insertData(ctx, withRecord)

	case "data":
		id, err = s.insertData(ctx, vals)

	case "groups":
		id, err = s.insertGroup(ctx, caller, vals)

	case "restriction_exceptions":
		id, err = s.upsertException(ctx, vals)

	default:
		return address.Address{}, fmt.Errorf("insert %s: unsupported address", addr)
	}
	if err != nil {
		return address.Address{}, fmt.Errorf("insert %s: %w", addr, err)
	}

	s.log.Debug("row inserted", "address", addr.String(), "caller", caller, "id", id)
	return addr.WithID(id), nil
}

// insertRecord creates a record and, in the same transaction, the aggregate
// it belongs to. A record is never observable without its aggregate.
func (s *Service) insertRecord(ctx context.Context, caller string, vals values.Values) (int64, error) {
	if err := checkColumns(vals, recordInsertCols); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx,
		"INSERT INTO aggregates (lookup_key) VALUES (?)",
		s.keys.Generate(),
	)
	if err != nil {
		return 0, fmt.Errorf("create aggregate: %w", err)
	}
	aggID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("aggregate id: %w", err)
	}

	res, err = tx.ExecContext(ctx,
		"INSERT INTO records (owner_package, is_restricted, aggregate_id) VALUES (?, ?, ?)",
		caller, truthy(vals[ColIsRestricted]), aggID,
	)
	if err != nil {
		return 0, fmt.Errorf("create record: %w", err)
	}
	recordID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return recordID, nil
}

// insertData creates a data row. When the row is a phone marked
// super-primary it is promoted to its aggregate's primary phone in the same
// transaction.
func (s *Service) insertData(ctx context.Context, vals values.Values) (int64, error) {
	if err := checkColumns(vals, dataInsertCols); err != nil {
		return 0, err
	}
	if _, ok := vals[ColRecordID]; !ok {
		return 0, fmt.Errorf("missing %s", ColRecordID)
	}
	kind, ok := vals[ColKind].(values.String)
	if !ok {
		return 0, fmt.Errorf("missing %s", ColKind)
	}

	cols, params, err := assignments(vals, dataInsertCols)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO data (%s) VALUES (%s)", strings.Join(cols, ", "), placeholders),
		params...,
	)
	if err != nil {
		return 0, fmt.Errorf("create data row: %w", err)
	}
	dataID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("data id: %w", err)
	}

	if string(kind) == KindPhone && truthy(vals[ColIsSuperPrimary]) != 0 {
		if err := promotePrimaryPhone(ctx, tx, dataID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return dataID, nil
}

func (s *Service) insertGroup(ctx context.Context, caller string, vals values.Values) (int64, error) {
	if err := checkColumns(vals, groupInsertCols); err != nil {
		return 0, err
	}
	title, ok := vals[ColTitle].(values.String)
	if !ok {
		return 0, fmt.Errorf("missing %s", ColTitle)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO groups (owner_package, title) VALUES (?, ?)",
		caller, string(title),
	)
	if err != nil {
		return 0, fmt.Errorf("create group: %w", err)
	}
	return res.LastInsertId()
}

// upsertException writes the single effective restriction rule for a
// directed package pair. A later write for the same pair replaces the
// earlier one's allow_access.
func (s *Service) upsertException(ctx context.Context, vals values.Values) (int64, error) {
	if err := checkColumns(vals, exceptionCols); err != nil {
		return 0, err
	}
	providerPkg, ok := vals[ColProviderPackage].(values.String)
	if !ok {
		return 0, fmt.Errorf("missing %s", ColProviderPackage)
	}
	clientPkg, ok := vals[ColClientPackage].(values.String)
	if !ok {
		return 0, fmt.Errorf("missing %s", ColClientPackage)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO restriction_exceptions (provider_package, client_package, allow_access)
		VALUES (?, ?, ?)
		ON CONFLICT(provider_package, client_package)
		DO UPDATE SET allow_access = excluded.allow_access
	`,
		string(providerPkg), string(clientPkg), truthy(vals[ColAllowAccess]),
	)
	if err != nil {
		return 0, fmt.Errorf("upsert exception: %w", err)
	}

	// LastInsertId is unreliable after DO UPDATE; read the row back.
	var id int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM restriction_exceptions WHERE provider_package = ? AND client_package = ?",
		string(providerPkg), string(clientPkg),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("select exception: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Update modifies addressed rows and returns how many changed. Writes are
// never visibility-filtered; staging cross-package state is a legitimate
// test move.
func (s *Service) Update(ctx context.Context, addr address.Address, vals values.Values, filter query.Filter) (int64, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", addr, err)
	}

	var count int64
	switch pattern := addr.Pattern(); pattern {
	case "records/#":
		id, _ := addr.IDAt(1)
		count, err = s.updateByID(ctx, "records", id, vals, recordUpdateCols)

	case "data/#":
		id, _ := addr.IDAt(1)
		count, err = s.updateDataRow(ctx, id, vals)

	case "data":
		count, err = s.updateWhere(ctx, "data", vals, dataBulkUpdateCols, filter)

	case "groups/#":
		id, _ := addr.IDAt(1)
		count, err = s.updateByID(ctx, "groups", id, vals, groupUpdateCols)

	case "restriction_exceptions":
		// The exception surface is an upsert keyed on the package pair,
		// driven through update like any other rule change.
		_, err = s.upsertException(ctx, vals)
		count = 1

	default:
		return 0, fmt.Errorf("update %s: unsupported address", addr)
	}
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", addr, err)
	}

	s.log.Debug("rows updated", "address", addr.String(), "caller", caller, "count", count)
	return count, nil
}

func (s *Service) updateByID(ctx context.Context, table string, id int64, vals values.Values, allowed map[string]bool) (int64, error) {
	set, params, err := setClause(vals, allowed)
	if err != nil {
		return 0, err
	}
	params = append(params, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, set),
		params...,
	)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return res.RowsAffected()
}

// updateDataRow updates one data row and handles super-primary promotion:
// marking a phone row super-primary makes it its aggregate's primary phone.
// Nothing is auto-unset on other rows.
func (s *Service) updateDataRow(ctx context.Context, id int64, vals values.Values) (int64, error) {
	set, params, err := setClause(vals, dataUpdateCols)
	if err != nil {
		return 0, err
	}
	params = append(params, id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE data SET "+set+" WHERE id = ?", params...)
	if err != nil {
		return 0, fmt.Errorf("update data row: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if count > 0 && truthy(vals[ColIsSuperPrimary]) != 0 {
		var kind string
		if err := tx.QueryRowContext(ctx, "SELECT kind FROM data WHERE id = ?", id).Scan(&kind); err != nil {
			return 0, fmt.Errorf("read data kind: %w", err)
		}
		if kind == KindPhone {
			if err := promotePrimaryPhone(ctx, tx, id); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return count, nil
}

func (s *Service) updateWhere(ctx context.Context, table string, vals values.Values, allowed map[string]bool, filter query.Filter) (int64, error) {
	set, params, err := setClause(vals, allowed)
	if err != nil {
		return 0, err
	}

	where, whereParams, err := query.Compile(filter)
	if err != nil {
		return 0, fmt.Errorf("compile filter: %w", err)
	}
	params = append(params, whereParams...)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, set, where),
		params...,
	)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return res.RowsAffected()
}

// promotePrimaryPhone points the aggregate of the data row's record at this
// row as primary phone.
func promotePrimaryPhone(ctx context.Context, tx *sql.Tx, dataID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE aggregates SET primary_phone_id = ?
		WHERE id = (
			SELECT r.aggregate_id FROM records r
			JOIN data d ON d.record_id = r.id
			WHERE d.id = ?
		)
	`, dataID, dataID)
	if err != nil {
		return fmt.Errorf("promote primary phone: %w", err)
	}
	return nil
}

// checkColumns rejects payload keys outside the allowlist for a route.
func checkColumns(vals values.Values, allowed map[string]bool) error {
	for _, k := range vals.SortedKeys() {
		if !allowed[k] {
			return fmt.Errorf("column %q not writable here", k)
		}
	}
	return nil
}

// assignments converts a payload to parallel column and parameter lists in
// sorted key order, so generated SQL is stable.
func assignments(vals values.Values, allowed map[string]bool) ([]string, []any, error) {
	if err := checkColumns(vals, allowed); err != nil {
		return nil, nil, err
	}
	if len(vals) == 0 {
		return nil, nil, fmt.Errorf("empty payload")
	}

	keys := vals.SortedKeys()
	params := make([]any, 0, len(keys))
	for _, k := range keys {
		p, err := values.Native(vals[k])
		if err != nil {
			return nil, nil, fmt.Errorf("column %s: %w", k, err)
		}
		params = append(params, p)
	}
	return keys, params, nil
}

func setClause(vals values.Values, allowed map[string]bool) (string, []any, error) {
	cols, params, err := assignments(vals, allowed)
	if err != nil {
		return "", nil, err
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + " = ?"
	}
	return strings.Join(parts, ", "), params, nil
}

// truthy folds the two ways a payload marks a flag (Bool or 0/1 Int) into
// the integer SQLite stores. Absent keys are 0.
func truthy(v values.Value) int64 {
	switch b := v.(type) {
	case values.Bool:
		if b {
			return 1
		}
	case values.Int:
		if b != 0 {
			return 1
		}
	}
	return 0
}
