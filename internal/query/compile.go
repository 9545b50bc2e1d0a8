package query

import (
	"fmt"
	"strings"

	"github.com/roach88/crosshatch/internal/values"
)

// Compile converts a Filter to a parameterized SQL WHERE fragment.
// Returns (sql, params, error). A nil filter compiles to "1 = 1".
func Compile(f Filter) (string, []any, error) {
	if f == nil {
		return "1 = 1", nil, nil
	}

	switch filter := f.(type) {
	case Eq:
		return compileEq(filter)
	case *Eq:
		return compileEq(*filter)
	case And:
		return compileAnd(filter)
	case *And:
		return compileAnd(*filter)
	default:
		return "", nil, fmt.Errorf("unsupported filter type: %T", f)
	}
}

func compileEq(eq Eq) (string, []any, error) {
	if err := ValidateIdent(eq.Column); err != nil {
		return "", nil, err
	}
	param, err := values.Native(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("column %s: %w", eq.Column, err)
	}
	return eq.Column + " = ?", []any{param}, nil
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Filters) == 0 {
		return "1 = 1", nil, nil
	}

	var sqlParts []string
	var allParams []any
	for _, f := range and.Filters {
		sql, params, err := Compile(f)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}
	return strings.Join(sqlParts, " AND "), allParams, nil
}

// Select describes a single-table SELECT. Columns empty means all columns.
// OrderBy empty defaults to the id column.
type Select struct {
	Table   string
	Columns []string
	Filter  Filter
	OrderBy string
}

// SQL assembles the full parameterized statement. The ORDER BY is always
// present and uses COLLATE BINARY so text ordering is stable across SQLite
// builds.
func (s Select) SQL() (string, []any, error) {
	if err := ValidateIdent(s.Table); err != nil {
		return "", nil, fmt.Errorf("table: %w", err)
	}

	projection := "*"
	if len(s.Columns) > 0 {
		for _, col := range s.Columns {
			if err := ValidateIdent(col); err != nil {
				return "", nil, fmt.Errorf("projection: %w", err)
			}
		}
		projection = strings.Join(s.Columns, ", ")
	}

	where := ""
	var params []any
	if s.Filter != nil {
		filterSQL, filterParams, err := Compile(s.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where = " WHERE " + filterSQL
		params = filterParams
	}

	orderBy := s.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}
	if err := ValidateIdent(orderBy); err != nil {
		return "", nil, fmt.Errorf("order by: %w", err)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s COLLATE BINARY ASC",
		projection, s.Table, where, orderBy)
	return sql, params, nil
}

// ValidateIdent rejects anything that is not a plain or table-qualified SQL
// identifier. Filters and projections can originate from scenario files, so
// identifiers are checked before they reach statement text.
func ValidateIdent(s string) error {
	if s == "" {
		return fmt.Errorf("empty identifier")
	}
	for _, part := range strings.Split(s, ".") {
		if !isIdentPart(part) {
			return fmt.Errorf("invalid identifier %q", s)
		}
	}
	return nil
}

func isIdentPart(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
