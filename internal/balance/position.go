// Package balance implements the balance-sheet mutation engine: the
// position table, the item selector, the metric abstraction, the P&L,
// cashflow and OCI ledgers, and the validation pass that enforces the
// accounting invariants after every projection step.
package balance

import (
	"math"

	"github.com/rkooijman/bankproj/internal/timeutil"
)

// epsilon guards ratio denominators against empty or zero selections.
const epsilon = 1e-12

// Position is one row of the table: an instrument or an aggregated cohort.
// Label values are classification and grouping strings, dates carry the
// schedule, numeric values back the stored metrics. A zero date is null.
type Position struct {
	Labels map[string]string
	Dates  map[string]timeutil.Date
	Values map[string]float64
}

// NewPosition builds an empty row with allocated column maps.
func NewPosition() *Position {
	return &Position{
		Labels: make(map[string]string),
		Dates:  make(map[string]timeutil.Date),
		Values: make(map[string]float64),
	}
}

// Label returns a label column value, empty when absent.
func (p *Position) Label(col string) string { return p.Labels[col] }

// Date returns a date column value, null (zero) when absent.
func (p *Position) Date(col string) timeutil.Date { return p.Dates[col] }

// Value returns a numeric column value, zero when absent.
func (p *Position) Value(col string) float64 { return p.Values[col] }

// Clone deep-copies the row.
func (p *Position) Clone() *Position {
	out := &Position{
		Labels: make(map[string]string, len(p.Labels)),
		Dates:  make(map[string]timeutil.Date, len(p.Dates)),
		Values: make(map[string]float64, len(p.Values)),
	}
	for k, v := range p.Labels {
		out.Labels[k] = v
	}
	for k, v := range p.Dates {
		out.Dates[k] = v
	}
	for k, v := range p.Values {
		out.Values[k] = v
	}
	return out
}

// Table is an ordered collection of positions sharing one schema. Rows are
// mutated in place by rule application and never physically deleted.
type Table struct {
	rows []*Position
}

// NewTable wraps rows into a table.
func NewTable(rows ...*Position) *Table {
	return &Table{rows: rows}
}

// Len is the row count.
func (t *Table) Len() int { return len(t.rows) }

// Rows exposes the backing slice. Callers must not reorder it.
func (t *Table) Rows() []*Position { return t.rows }

// Row returns the i-th position.
func (t *Table) Row(i int) *Position { return t.rows[i] }

// Append adds rows to the end of the table.
func (t *Table) Append(rows ...*Position) {
	t.rows = append(t.rows, rows...)
}

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	rows := make([]*Position, len(t.rows))
	for i, r := range t.rows {
		rows[i] = r.Clone()
	}
	return &Table{rows: rows}
}

// Mask is a boolean row selection aligned with a table's row order.
type Mask []bool

// Count is the number of selected rows.
func (m Mask) Count() int {
	n := 0
	for _, b := range m {
		if b {
			n++
		}
	}
	return n
}

// Any reports whether at least one row is selected.
func (m Mask) Any() bool {
	for _, b := range m {
		if b {
			return true
		}
	}
	return false
}

// And intersects two masks.
func (m Mask) And(other Mask) Mask {
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] && other[i]
	}
	return out
}

// isNull reports the null convention for numeric cells: a missing column
// or a NaN value.
func isNull(values map[string]float64, col string) bool {
	v, ok := values[col]
	return !ok || math.IsNaN(v)
}
