package provider

import (
	"fmt"

	"github.com/roach88/crosshatch/internal/values"
)

// Cursor holds a materialized query result. It starts positioned before the
// first row; Next advances. Accessors read the current row by column name.
//
// Close is mandatory on all paths. A closed cursor refuses all row reads,
// which makes use-after-release show up as a test failure instead of flaky
// data; Count alone survives Close.
type Cursor struct {
	columns map[string]int
	order   []string
	rows    [][]values.Value
	count   int
	pos     int
	closed  bool
}

// NewCursor builds a cursor over rows aligned with the given column order.
func NewCursor(columns []string, rows [][]values.Value) *Cursor {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}
	return &Cursor{
		columns: index,
		order:   append([]string(nil), columns...),
		rows:    rows,
		count:   len(rows),
		pos:     -1,
	}
}

// Next advances to the next row. It returns false when the rows are
// exhausted or the cursor is closed.
func (c *Cursor) Next() bool {
	if c.closed || c.pos+1 >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

// Count returns the total number of rows regardless of position. The count
// is metadata, not row data, so it stays valid after Close.
func (c *Cursor) Count() int {
	return c.count
}

// Columns returns the column names in result order.
func (c *Cursor) Columns() []string {
	return append([]string(nil), c.order...)
}

// Value returns the current row's cell for a column.
func (c *Cursor) Value(column string) (values.Value, error) {
	if c.closed {
		return nil, fmt.Errorf("cursor is closed")
	}
	if c.pos < 0 {
		return nil, fmt.Errorf("cursor not positioned; call Next first")
	}
	if c.pos >= len(c.rows) {
		return nil, fmt.Errorf("cursor past last row")
	}
	i, ok := c.columns[column]
	if !ok {
		return nil, fmt.Errorf("no column %q in result", column)
	}
	return c.rows[c.pos][i], nil
}

// Int64 reads the current row's cell for a column as an integer.
func (c *Cursor) Int64(column string) (int64, error) {
	v, err := c.Value(column)
	if err != nil {
		return 0, err
	}
	n, ok := v.(values.Int)
	if !ok {
		return 0, fmt.Errorf("column %q holds %T, not an integer", column, v)
	}
	return int64(n), nil
}

// String reads the current row's cell for a column as text.
func (c *Cursor) String(column string) (string, error) {
	v, err := c.Value(column)
	if err != nil {
		return "", err
	}
	s, ok := v.(values.String)
	if !ok {
		return "", fmt.Errorf("column %q holds %T, not text", column, v)
	}
	return string(s), nil
}

// Bool reads the current row's cell for a column as a boolean. Integer
// cells are accepted with SQLite's 0/1 convention.
func (c *Cursor) Bool(column string) (bool, error) {
	v, err := c.Value(column)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case values.Bool:
		return bool(b), nil
	case values.Int:
		return b != 0, nil
	default:
		return false, fmt.Errorf("column %q holds %T, not a boolean", column, v)
	}
}

// Close releases the cursor. Closing twice is an error so tests notice
// sloppy ownership.
func (c *Cursor) Close() error {
	if c.closed {
		return fmt.Errorf("cursor already closed")
	}
	c.closed = true
	c.rows = nil
	return nil
}

// Closed reports whether the cursor has been released.
func (c *Cursor) Closed() bool {
	return c.closed
}
