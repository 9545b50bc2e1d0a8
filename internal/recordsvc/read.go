package recordsvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/crosshatch/internal/address"
	"github.com/roach88/crosshatch/internal/provider"
	"github.com/roach88/crosshatch/internal/query"
	"github.com/roach88/crosshatch/internal/values"
)

// Readable columns per table, used to validate projections.
var (
	recordCols = map[string]bool{
		ColID: true, ColOwnerPackage: true, ColIsRestricted: true, ColAggregateID: true,
	}
	dataCols = map[string]bool{
		ColID: true, ColRecordID: true, ColKind: true, ColContent: true,
		ColRefID: true, ColIsPrimary: true, ColIsSuperPrimary: true,
	}
	aggregateCols = map[string]bool{
		ColID: true, ColLookupKey: true, ColPrimaryPhoneID: true,
	}
	groupCols = map[string]bool{
		ColID: true, ColOwnerPackage: true, ColTitle: true,
	}
	exceptionTableCols = map[string]bool{
		ColID: true, ColProviderPackage: true, ColClientPackage: true, ColAllowAccess: true,
	}
)

var defaultProjections = map[string][]string{
	"records":    {ColID, ColOwnerPackage, ColIsRestricted, ColAggregateID},
	"data":       {ColID, ColRecordID, ColKind, ColContent, ColRefID, ColIsPrimary, ColIsSuperPrimary},
	"aggregates": {ColID, ColLookupKey, ColPrimaryPhoneID},
}

// Query reads rows visible to the calling package. Restricted records (and
// their data and aggregates) are visible to their owner and to callers the
// owner pair has an allow exception for; everything else sees only
// unrestricted rows. The returned cursor is fully materialized, so no
// database resources outlive this call.
func (s *Service) Query(ctx context.Context, addr address.Address, projection []string, filter query.Filter) (*provider.Cursor, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", addr, err)
	}

	var cur *provider.Cursor
	switch pattern := addr.Pattern(); pattern {
	case "records":
		cur, err = s.queryRecords(ctx, caller, 0, false, projection, filter)

	case "records/#":
		id, _ := addr.IDAt(1)
		cur, err = s.queryRecords(ctx, caller, id, true, projection, filter)

	case "records/#/data":
		id, _ := addr.IDAt(1)
		cur, err = s.queryData(ctx, caller, "records.id = ?", id, projection, filter)

	case "data":
		cur, err = s.queryData(ctx, caller, "", 0, projection, filter)

	case "data/#":
		id, _ := addr.IDAt(1)
		cur, err = s.queryData(ctx, caller, "data.id = ?", id, projection, filter)

	case "aggregates/#":
		id, _ := addr.IDAt(1)
		cur, err = s.queryAggregate(ctx, caller, id, projection)

	case "aggregates/#/data":
		id, _ := addr.IDAt(1)
		cur, err = s.queryData(ctx, caller, "records.aggregate_id = ?", id, projection, filter)

	case "groups":
		cur, err = s.queryTable(ctx, "groups", groupCols, projection, filter)

	case "groups/#":
		id, _ := addr.IDAt(1)
		cur, err = s.queryTable(ctx, "groups", groupCols, projection, withIDFilter(filter, id))

	case "restriction_exceptions":
		cur, err = s.queryTable(ctx, "restriction_exceptions", exceptionTableCols, projection, filter)

	default:
		return nil, fmt.Errorf("query %s: unsupported address", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", addr, err)
	}

	s.log.Debug("query served", "address", addr.String(), "caller", caller, "rows", cur.Count())
	return cur, nil
}

// visibleRecords is the restriction predicate over a records alias.
// Exceptions are directional: the record's owner is the provider side.
func visibleRecords(alias, caller string) (string, []any) {
	frag := fmt.Sprintf(`(%[1]s.is_restricted = 0 OR %[1]s.owner_package = ? OR EXISTS (
		SELECT 1 FROM restriction_exceptions e
		WHERE e.provider_package = %[1]s.owner_package
		  AND e.client_package = ?
		  AND e.allow_access = 1))`, alias)
	return frag, []any{caller, caller}
}

func (s *Service) queryRecords(ctx context.Context, caller string, id int64, hasID bool, projection []string, filter query.Filter) (*provider.Cursor, error) {
	cols, err := resolveProjection(projection, "records", recordCols)
	if err != nil {
		return nil, err
	}

	vis, params := visibleRecords("records", caller)
	where := []string{vis}
	if hasID {
		where = append(where, "records.id = ?")
		params = append(params, id)
	}
	if filter != nil {
		frag, filterParams, err := query.Compile(filter)
		if err != nil {
			return nil, fmt.Errorf("compile filter: %w", err)
		}
		where = append(where, frag)
		params = append(params, filterParams...)
	}

	stmt := fmt.Sprintf(
		"SELECT %s FROM records WHERE %s ORDER BY records.id ASC",
		strings.Join(cols, ", "), strings.Join(where, " AND "),
	)
	return s.scanCursor(ctx, stmt, params...)
}

// queryData serves every data route. The join to records carries the
// restriction predicate; constraint narrows by record, data row, or
// aggregate depending on the route.
func (s *Service) queryData(ctx context.Context, caller string, constraint string, constraintArg int64, projection []string, filter query.Filter) (*provider.Cursor, error) {
	cols, err := resolveProjection(projection, "data", dataCols)
	if err != nil {
		return nil, err
	}

	vis, params := visibleRecords("records", caller)
	where := []string{vis}
	if constraint != "" {
		where = append(where, constraint)
		params = append(params, constraintArg)
	}
	if filter != nil {
		frag, filterParams, err := query.Compile(filter)
		if err != nil {
			return nil, fmt.Errorf("compile filter: %w", err)
		}
		where = append(where, frag)
		params = append(params, filterParams...)
	}

	stmt := fmt.Sprintf(
		"SELECT %s FROM data JOIN records ON data.record_id = records.id WHERE %s ORDER BY data.id ASC",
		strings.Join(cols, ", "), strings.Join(where, " AND "),
	)
	return s.scanCursor(ctx, stmt, params...)
}

// queryAggregate reads one aggregate row. The row is visible when any of
// its records is, so a fully restricted aggregate stays hidden and callers
// observe an empty result rather than an error.
func (s *Service) queryAggregate(ctx context.Context, caller string, id int64, projection []string) (*provider.Cursor, error) {
	cols, err := resolveProjection(projection, "aggregates", aggregateCols)
	if err != nil {
		return nil, err
	}

	vis, visParams := visibleRecords("r", caller)
	params := append([]any{id}, visParams...)

	stmt := fmt.Sprintf(`SELECT %s FROM aggregates WHERE aggregates.id = ? AND EXISTS (
		SELECT 1 FROM records r WHERE r.aggregate_id = aggregates.id AND %s)`,
		strings.Join(cols, ", "), vis,
	)
	return s.scanCursor(ctx, stmt, params...)
}

// queryTable is the generic single-table path for routes without
// restriction semantics.
func (s *Service) queryTable(ctx context.Context, table string, allowed map[string]bool, projection []string, filter query.Filter) (*provider.Cursor, error) {
	for _, col := range projection {
		if !allowed[col] {
			return nil, fmt.Errorf("no column %q in %s", col, table)
		}
	}

	stmt, params, err := query.Select{
		Table:   table,
		Columns: projection,
		Filter:  filter,
	}.SQL()
	if err != nil {
		return nil, err
	}
	return s.scanCursor(ctx, stmt, params...)
}

func withIDFilter(filter query.Filter, id int64) query.Filter {
	idEq := query.EqInt(ColID, id)
	if filter == nil {
		return idEq
	}
	return query.And{Filters: []query.Filter{idEq, filter}}
}

// resolveProjection validates requested columns against a table and
// qualifies them, defaulting to the table's full column set.
func resolveProjection(projection []string, table string, allowed map[string]bool) ([]string, error) {
	if len(projection) == 0 {
		projection = defaultProjections[table]
	}
	cols := make([]string, len(projection))
	for i, col := range projection {
		if !allowed[col] {
			return nil, fmt.Errorf("no column %q in %s", col, table)
		}
		cols[i] = fmt.Sprintf("%s.%s AS %s", table, col, col)
	}
	return cols, nil
}

// scanCursor materializes a statement's rows into a cursor. sql.Rows never
// escapes; the cursor owns plain values only.
func (s *Service) scanCursor(ctx context.Context, stmt string, params ...any) (*provider.Cursor, error) {
	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out [][]values.Value
	for rows.Next() {
		raw := make([]any, len(cols))
		for i := range raw {
			raw[i] = new(any)
		}
		if err := rows.Scan(raw...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make([]values.Value, len(cols))
		for i, cell := range raw {
			v, err := cellValue(*(cell.(*any)))
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", cols[i], err)
			}
			row[i] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return provider.NewCursor(cols, out), nil
}

func cellValue(cell any) (values.Value, error) {
	switch v := cell.(type) {
	case nil:
		return values.Null{}, nil
	case int64:
		return values.Int(v), nil
	case string:
		return values.String(v), nil
	case []byte:
		return values.String(string(v)), nil
	case bool:
		return values.Bool(v), nil
	default:
		return nil, fmt.Errorf("unsupported cell type %T", cell)
	}
}

// Count is a convenience for tests and the harness: the number of rows a
// query would return, with the cursor released before returning.
func Count(ctx context.Context, p provider.Provider, addr address.Address, filter query.Filter) (int, error) {
	cur, err := p.Query(ctx, addr, []string{ColID}, filter)
	if err != nil {
		return 0, err
	}
	defer cur.Close()
	return cur.Count(), nil
}
