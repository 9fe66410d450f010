// Package indicator holds the row-per-(county, year) table shared by the
// backfill passes, the election merge and the bulk loader.
package indicator

import (
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// Key column names. Every input file must carry these.
const (
	ColCode   = "terc_code"
	ColCounty = "county"
	ColYear   = "year"
)

// Key identifies one row of a Table.
type Key struct {
	Code string
	Year int
}

// Row is one (county, year) observation. Values is aligned with the owning
// table's Columns; NaN marks a missing cell.
type Row struct {
	Code   string
	County string
	Year   int
	Values []float64
}

// Key returns the composite key of the row.
func (r Row) Key() Key {
	return Key{Code: r.Code, Year: r.Year}
}

// Table is an ordered set of rows with a fixed list of numeric columns.
// Passes never mutate a table they received; they Clone and return the copy.
type Table struct {
	Columns []string
	Rows    []Row
}

// Missing is the value stored in empty cells.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is an empty cell.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// New returns an empty table with the given numeric columns.
func New(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: slices.Clone(t.Columns),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		r.Values = slices.Clone(r.Values)
		out.Rows[i] = r
	}
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of a numeric column, or -1.
func (t *Table) ColumnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// HasColumn reports whether the numeric column exists.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// MustColumn returns the index of name or a SchemaError.
func (t *Table) MustColumn(name string) (int, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return -1, &SchemaError{Column: name, Reason: "column not found"}
	}
	return idx, nil
}

// AddColumn appends a numeric column filled with missing values and returns
// its index. Adding an existing column is an error.
func (t *Table) AddColumn(name string) (int, error) {
	if name == ColCode || name == ColCounty || name == ColYear {
		return -1, &SchemaError{Column: name, Reason: "reserved key column"}
	}
	if t.HasColumn(name) {
		return -1, &SchemaError{Column: name, Reason: "column already exists"}
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i].Values = append(t.Rows[i].Values, math.NaN())
	}
	return len(t.Columns) - 1, nil
}

// Append adds a row. The row's Values must match the column count.
func (t *Table) Append(r Row) error {
	if len(r.Values) != len(t.Columns) {
		return eris.Errorf("indicator: row %s/%d has %d values, table has %d columns",
			r.Code, r.Year, len(r.Values), len(t.Columns))
	}
	t.Rows = append(t.Rows, r)
	return nil
}

// Index maps each key to its row position.
func (t *Table) Index() map[Key]int {
	idx := make(map[Key]int, len(t.Rows))
	for i, r := range t.Rows {
		idx[r.Key()] = i
	}
	return idx
}

// Validate checks the (terc_code, year) uniqueness invariant and row widths.
func (t *Table) Validate() error {
	seen := make(map[Key]struct{}, len(t.Rows))
	for _, r := range t.Rows {
		if r.Code == "" {
			return &SchemaError{Column: ColCode, Reason: "empty code"}
		}
		if len(r.Values) != len(t.Columns) {
			return &SchemaError{Column: ColCode, Reason: "row width mismatch for " + r.Code}
		}
		if _, dup := seen[r.Key()]; dup {
			return &SchemaError{Column: ColCode, Reason: "duplicate key " + r.Code + "/" + itoa(r.Year)}
		}
		seen[r.Key()] = struct{}{}
	}
	return nil
}

// Sort orders rows by (terc_code, year).
func (t *Table) Sort() {
	slices.SortStableFunc(t.Rows, func(a, b Row) int {
		if c := strings.Compare(a.Code, b.Code); c != 0 {
			return c
		}
		return a.Year - b.Year
	})
}

// Codes returns the distinct entity codes in first-seen order.
func (t *Table) Codes() []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, r := range t.Rows {
		if _, ok := seen[r.Code]; ok {
			continue
		}
		seen[r.Code] = struct{}{}
		codes = append(codes, r.Code)
	}
	return codes
}

// Group returns the row positions of every entity, each list ordered by year.
func (t *Table) Group() map[string][]int {
	groups := make(map[string][]int)
	for i, r := range t.Rows {
		groups[r.Code] = append(groups[r.Code], i)
	}
	for _, g := range groups {
		slices.SortStableFunc(g, func(a, b int) int {
			return t.Rows[a].Year - t.Rows[b].Year
		})
	}
	return groups
}

// Value returns the cell at (key, column) and whether the row exists.
func (t *Table) Value(k Key, column string) (float64, bool) {
	ci := t.ColumnIndex(column)
	if ci < 0 {
		return math.NaN(), false
	}
	for _, r := range t.Rows {
		if r.Code == k.Code && r.Year == k.Year {
			return r.Values[ci], true
		}
	}
	return math.NaN(), false
}

// NonNegative reports whether every observed value of column is >= 0.
// Missing cells are ignored.
func (t *Table) NonNegative(column string) bool {
	ci := t.ColumnIndex(column)
	if ci < 0 {
		return false
	}
	for _, r := range t.Rows {
		v := r.Values[ci]
		if !math.IsNaN(v) && v < 0 {
			return false
		}
	}
	return true
}

// Updates maps cell keys to replacement values for one column.
type Updates map[Key]float64

// Merge copies every entry of other into u.
func (u Updates) Merge(other Updates) {
	for k, v := range other {
		u[k] = v
	}
}
