package balance

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rkooijman/bankproj/internal/timeutil"
)

// Entry is one ledger row: a signed amount attributed to a reason, tagged
// with the aggregation labels of the rows it was booked against and the
// booking date. Amounts are decimal so ledger totals reconcile exactly.
type Entry struct {
	Reason Reason
	Labels map[string]string
	Amount decimal.Decimal
	Date   timeutil.Date
}

// Ledger is the append-only audit trail of one entry kind. The engine
// keeps three: P&L (expense-positive), cashflow (inflow-positive) and OCI.
// Entries accumulate over the whole run; per-increment reports select by
// booking date.
type Ledger struct {
	name    string
	entries []Entry
}

// NewLedger creates an empty named ledger.
func NewLedger(name string) *Ledger {
	return &Ledger{name: name}
}

// Name is the ledger's kind label.
func (l *Ledger) Name() string { return l.name }

// Append records entries. Entries are never removed or modified.
func (l *Ledger) Append(entries ...Entry) {
	l.entries = append(l.entries, entries...)
}

// Entries exposes the full trail in booking order.
func (l *Ledger) Entries() []Entry { return l.entries }

// Len is the entry count.
func (l *Ledger) Len() int { return len(l.entries) }

// Total sums every entry exactly.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l.entries {
		total = total.Add(e.Amount)
	}
	return total
}

// TotalFloat is Total converted for tolerance comparisons.
func (l *Ledger) TotalFloat() float64 {
	f, _ := l.Total().Float64()
	return f
}

// OnDate selects the entries booked on one date.
func (l *Ledger) OnDate(d timeutil.Date) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.Date.Equal(d) {
			out = append(out, e)
		}
	}
	return out
}

// Group is one aggregated ledger output row.
type Group struct {
	Labels map[string]string
	Reason Reason
	Amount decimal.Decimal
}

// GroupBy aggregates entries by the given label columns plus the reason
// key, in first-appearance order.
func (l *Ledger) GroupBy(labels []string, entries []Entry) []Group {
	var order []string
	grouped := make(map[string]*Group)
	for _, e := range entries {
		key := groupKey(e, labels)
		g, ok := grouped[key]
		if !ok {
			g = &Group{Labels: make(map[string]string, len(labels)), Reason: e.Reason}
			for _, col := range labels {
				g.Labels[col] = e.Labels[col]
			}
			grouped[key] = g
			order = append(order, key)
		}
		g.Amount = g.Amount.Add(e.Amount)
	}
	out := make([]Group, len(order))
	for i, key := range order {
		out[i] = *grouped[key]
	}
	return out
}

func groupKey(e Entry, labels []string) string {
	parts := make([]string, 0, len(labels)+1)
	for _, col := range labels {
		parts = append(parts, col+"="+e.Labels[col])
	}
	parts = append(parts, e.Reason.Key())
	return strings.Join(parts, "|")
}

// Clone deep-copies the ledger.
func (l *Ledger) Clone() *Ledger {
	out := &Ledger{name: l.name, entries: make([]Entry, len(l.entries))}
	for i, e := range l.entries {
		labels := make(map[string]string, len(e.Labels))
		for k, v := range e.Labels {
			labels[k] = v
		}
		out.entries[i] = Entry{Reason: e.Reason, Labels: labels, Amount: e.Amount, Date: e.Date}
	}
	return out
}

// SortedLabelKeys lists the label columns present across entries, for
// report headers.
func SortedLabelKeys(entries []Entry) []string {
	seen := make(map[string]bool)
	for _, e := range entries {
		for k := range e.Labels {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
