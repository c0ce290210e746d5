package projection

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// MutationRule applies an ad-hoc metric mutation from a scenario: a target
// amount for a metric over a selection, optionally gated to the increment
// containing Date, settled through at most one offset mechanism. The sheet
// is re-validated immediately so an unbalanced scenario input fails at the
// mutation that caused it.
type MutationRule struct {
	Item           balance.Item
	Metric         string
	Amount         float64
	Relative       bool
	Multiplicative bool

	OffsetPnL       bool
	OffsetLiquidity bool
	CounterItem     *balance.Item

	// Date gates the mutation to a single increment; zero applies it on
	// every increment.
	Date timeutil.Date
	Rule string
}

func (r MutationRule) Apply(bs *balance.BalanceSheet, increment timeutil.TimeIncrement, _ *marketdata.Rates) error {
	if !r.Date.IsZero() && !increment.Contains(r.Date) {
		return nil
	}

	name := r.Rule
	if name == "" {
		name = "Mutation"
	}
	reason := balance.NewReason("Scenario", name)
	if !r.Date.IsZero() {
		reason = reason.WithDate(r.Date)
	}
	opts := balance.MutateOptions{
		Relative:        r.Relative,
		Multiplicative:  r.Multiplicative,
		OffsetPnL:       r.OffsetPnL,
		OffsetLiquidity: r.OffsetLiquidity,
		CounterItem:     r.CounterItem,
	}
	if err := bs.MutateMetric(r.Item, r.Metric, r.Amount, reason, opts); err != nil {
		return errors.Wrapf(err, "mutation rule %s", name)
	}
	return errors.Wrapf(bs.Validate(), "after mutation rule %s", name)
}
