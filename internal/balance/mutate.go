package balance

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/timeutil"
)

// ValueExpr computes a numeric column's new value from the row's state
// before any write of the same mutation.
type ValueExpr func(p *Position) float64

// DateExpr computes a date column's new value from the pre-mutation row.
type DateExpr func(p *Position) timeutil.Date

// Literal lifts a constant into a ValueExpr.
func Literal(v float64) ValueExpr {
	return func(*Position) float64 { return v }
}

// Mutation is a set of column updates applied to the selected rows. Every
// expression is evaluated against the pre-mutation row state before any
// column is written, so updates may read each other's source columns.
type Mutation struct {
	Values map[string]ValueExpr
	Dates  map[string]DateExpr
	Labels map[string]string
}

// MutateOptions steers MutateMetric composition and the offset bookkeeping
// of both Mutate and MutateMetric. At most one offset mechanism may be set.
type MutateOptions struct {
	// Relative adds the amount to the current aggregate instead of setting
	// it; Multiplicative scales the current aggregate.
	Relative       bool
	Multiplicative bool

	// OffsetPnL books minus the book-value delta to the P&L ledger;
	// OffsetLiquidity books it to the cashflow ledger; CounterItem shifts a
	// second item's quantity by minus the delta.
	OffsetPnL       bool
	OffsetLiquidity bool
	CounterItem     *Item
}

func (o MutateOptions) offsetCount() int {
	n := 0
	if o.OffsetPnL {
		n++
	}
	if o.OffsetLiquidity {
		n++
	}
	if o.CounterItem != nil {
		n++
	}
	return n
}

// Mutate applies column updates to the rows matching item, leaving all
// other rows untouched, and settles the book-value delta through the
// requested offset.
func (bs *BalanceSheet) Mutate(item Item, m Mutation, reason Reason, opts MutateOptions) error {
	if opts.offsetCount() > 1 {
		return errors.Wrapf(ErrConflictingOffsets, "mutate %s", item)
	}
	for col := range m.Values {
		if !bs.cfg.IsValueColumn(col) {
			return errors.Wrapf(ErrSchema, "unknown numeric column %q", col)
		}
	}
	for col := range m.Dates {
		if !bs.cfg.IsDateColumn(col) {
			return errors.Wrapf(ErrSchema, "unknown date column %q", col)
		}
	}
	for col := range m.Labels {
		if !bs.cfg.IsLabelColumn(col) {
			return errors.Wrapf(ErrSchema, "unknown label column %q", col)
		}
	}

	mask := item.MaskOf(bs.table)
	if !mask.Any() {
		return errors.Wrapf(ErrNoMatchingPositions, "mutate %s", item)
	}

	needDelta := opts.offsetCount() == 1
	deltas := make([]float64, bs.table.Len())
	if needDelta {
		for i, row := range bs.table.Rows() {
			if mask[i] {
				deltas[i] = -bookValueValue(row)
			}
		}
	}

	bs.applyMutation(mask, m)

	if !needDelta {
		return nil
	}
	totalDelta := 0.0
	for i, row := range bs.table.Rows() {
		if mask[i] {
			deltas[i] += bookValueValue(row)
			totalDelta += deltas[i]
		}
	}

	switch {
	case opts.OffsetPnL:
		groups := bs.groupDeltas(mask, deltas, bs.cfg.PnLAggregationLabels)
		return errors.Wrap(bs.AddPnL(groups, reason), "offset pnl")
	case opts.OffsetLiquidity:
		groups := negateGroups(bs.groupDeltas(mask, deltas, bs.cfg.CashflowAggregationLabels))
		return errors.Wrap(bs.AddLiquidity(groups, reason), "offset liquidity")
	default:
		err := bs.MutateMetric(*opts.CounterItem, "Quantity", -totalDelta, reason, MutateOptions{Relative: true})
		return errors.Wrapf(err, "counter item %s", *opts.CounterItem)
	}
}

// applyMutation evaluates every expression for every selected row before
// writing any column, so all expressions see the pre-mutation state.
func (bs *BalanceSheet) applyMutation(mask Mask, m Mutation) {
	type pending struct {
		row    *Position
		values map[string]float64
		dates  map[string]timeutil.Date
	}
	var writes []pending
	for i, row := range bs.table.Rows() {
		if !mask[i] {
			continue
		}
		p := pending{row: row}
		if len(m.Values) > 0 {
			p.values = make(map[string]float64, len(m.Values))
			for col, expr := range m.Values {
				p.values[col] = expr(row)
			}
		}
		if len(m.Dates) > 0 {
			p.dates = make(map[string]timeutil.Date, len(m.Dates))
			for col, expr := range m.Dates {
				p.dates[col] = expr(row)
			}
		}
		writes = append(writes, p)
	}
	for _, w := range writes {
		for col, v := range w.values {
			w.row.Values[col] = v
		}
		for col, d := range w.dates {
			w.row.Dates[col] = d
		}
		for col, v := range m.Labels {
			w.row.Labels[col] = v
		}
	}
}

// groupDeltas buckets per-row book-value deltas by aggregation labels,
// income-positive.
func (bs *BalanceSheet) groupDeltas(mask Mask, deltas []float64, labels []string) []GroupedAmount {
	var order []string
	grouped := make(map[string]*GroupedAmount)
	for i, row := range bs.table.Rows() {
		if !mask[i] || deltas[i] == 0 {
			continue
		}
		key := ""
		for _, col := range labels {
			key += col + "=" + row.Label(col) + "|"
		}
		g, ok := grouped[key]
		if !ok {
			g = &GroupedAmount{Labels: make(map[string]string, len(labels))}
			for _, col := range labels {
				g.Labels[col] = row.Label(col)
			}
			grouped[key] = g
			order = append(order, key)
		}
		g.Amount += deltas[i]
	}
	out := make([]GroupedAmount, len(order))
	for i, key := range order {
		out[i] = *grouped[key]
	}
	return out
}

// GroupAmounts buckets per-row amounts (indexed by table row) by the given
// aggregation labels, dropping zero rows. Projection rules use it to turn
// row-level income or cashflow into ledger bookings.
func (bs *BalanceSheet) GroupAmounts(mask Mask, amounts []float64, labels []string) []GroupedAmount {
	return bs.groupDeltas(mask, amounts, labels)
}

func negateGroups(groups []GroupedAmount) []GroupedAmount {
	for i := range groups {
		groups[i].Amount = -groups[i].Amount
	}
	return groups
}

// MutateMetric drives a mutable metric's aggregate over item to a target
// amount: absolute by default, shifted when Relative, scaled when
// Multiplicative, settled through at most one offset.
func (bs *BalanceSheet) MutateMetric(item Item, metricName string, amount float64, reason Reason, opts MutateOptions) error {
	metric, err := bs.metrics.Mutable(metricName)
	if err != nil {
		return errors.Wrapf(err, "mutate %s", item)
	}
	mask := item.MaskOf(bs.table)
	if !mask.Any() {
		return errors.Wrapf(ErrNoMatchingPositions, "mutate %s of %s", metricName, item)
	}

	target := amount
	if opts.Relative || opts.Multiplicative {
		current := metric.Aggregate(bs.table, mask)
		if opts.Relative {
			target = current + amount
		} else {
			target = current * amount
		}
	}

	values := metric.MutationValues(bs.table, mask, target)
	byRow := make(map[*Position]float64, mask.Count())
	for i, row := range bs.table.Rows() {
		if mask[i] {
			byRow[row] = values[i]
		}
	}
	mutation := Mutation{Values: map[string]ValueExpr{
		metric.Column(): func(p *Position) float64 { return byRow[p] },
	}}
	return bs.Mutate(item, mutation, reason, opts)
}
