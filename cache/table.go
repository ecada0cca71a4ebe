package cache

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Kind is the declared type of a column. Values are always normalized to
// string, int64, float64 or nil (missing numeric value).
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
)

func (k Kind) valid() bool {
	return k == KindString || k == KindInt || k == KindFloat
}

type Column struct {
	Name string
	Kind Kind
}

// Table is a small column-typed dataset. Rows hold normalized values only;
// use Append or Coerce rather than writing Rows directly.
type Table struct {
	Columns []Column
	Rows    [][]any
}

func NewTable(cols ...Column) *Table {
	return &Table{Columns: cols}
}

// Append normalizes values against the column kinds and adds a row.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.Columns))
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = Coerce(t.Columns[i].Kind, v)
	}
	t.Rows = append(t.Rows, row)
	return nil
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row i for the named column, or nil.
func (t *Table) Value(i int, name string) any {
	j := t.Index(name)
	if j < 0 || i < 0 || i >= len(t.Rows) {
		return nil
	}
	return t.Rows[i][j]
}

// Derive adds a column computed from each row's record.
func (t *Table) Derive(col Column, fn func(rec map[string]any) any) {
	t.Columns = append(t.Columns, col)
	for i, row := range t.Rows {
		rec := t.record(row)
		t.Rows[i] = append(row, Coerce(col.Kind, fn(rec)))
	}
}

// Rename changes column names in place; unknown names are ignored.
func (t *Table) Rename(names map[string]string) {
	for i, c := range t.Columns {
		if n, ok := names[c.Name]; ok {
			t.Columns[i].Name = n
		}
	}
}

// Retype changes a column's kind and re-coerces its values.
func (t *Table) Retype(name string, kind Kind) {
	j := t.Index(name)
	if j < 0 {
		return
	}
	t.Columns[j].Kind = kind
	for _, row := range t.Rows {
		row[j] = Coerce(kind, row[j])
	}
}

func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, t.record(row))
	}
	return out
}

func (t *Table) record(row []any) map[string]any {
	rec := make(map[string]any, len(t.Columns))
	for i, c := range t.Columns {
		if i < len(row) {
			rec[c.Name] = row[i]
		}
	}
	return rec
}

// FromRecords builds a table from loosely typed records. Columns are sorted
// by name and kinds are inferred from the Go types present.
func FromRecords(records []map[string]any) *Table {
	seen := map[string][]any{}
	for _, rec := range records {
		for k, v := range rec {
			seen[k] = append(seen[k], v)
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)

	t := &Table{}
	for _, n := range names {
		t.Columns = append(t.Columns, Column{Name: n, Kind: InferKind(seen[n])})
	}
	for _, rec := range records {
		row := make([]any, len(names))
		for i, n := range names {
			row[i] = Coerce(t.Columns[i].Kind, rec[n])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// InferKind picks int when every non-nil value is a Go integer, float when
// they are all numbers, and string otherwise. Strings are never parsed, so
// identifiers such as "06001" keep their leading zeros.
func InferKind(values []any) Kind {
	kind := Kind("")
	for _, v := range values {
		var k Kind
		switch v.(type) {
		case nil:
			continue
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			k = KindInt
		case float32, float64, json.Number:
			k = KindFloat
		default:
			return KindString
		}
		if kind == "" || (kind == KindInt && k == KindFloat) {
			kind = k
		}
	}
	if kind == "" {
		return KindString
	}
	return kind
}

// Coerce normalizes v to the representation used for kind. Numeric values
// that cannot be represented become nil; the same function runs when rows
// are built and when they are read back from disk.
func Coerce(kind Kind, v any) any {
	switch kind {
	case KindInt:
		return toInt(v)
	case KindFloat:
		return toFloat(v)
	default:
		return toString(v)
	}
}

func toInt(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return nil
		}
		return int64(n)
	case float32:
		return toInt(float64(n))
	case float64:
		if math.IsNaN(n) || n >= math.MaxInt64 || n < math.MinInt64 || n != math.Trunc(n) {
			return nil
		}
		return int64(n)
	case json.Number:
		return toInt(string(n))
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return toInt(f)
		}
	}
	return nil
}

func toFloat(v any) any {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) {
			return nil
		}
		return n
	case float32:
		return toFloat(float64(n))
	case json.Number:
		return toFloat(string(n))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		return toFloat(f)
	case nil:
		return nil
	}
	if i := toInt(v); i != nil {
		return float64(i.(int64))
	}
	return nil
}

func toString(v any) any {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

// format renders a normalized value as a CSV cell.
func format(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case string:
		return n
	default:
		return fmt.Sprint(n)
	}
}
