package projection

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// CostIncome books a one-off operating cost or income on its scheduled
// date, hitting both cash and P&L. Negative amounts are costs.
type CostIncome struct {
	Amount float64
	Date   timeutil.Date
	// Labels tag the ledger entries for aggregation, e.g. the ItemType.
	Labels map[string]string
	Rule   string
}

func (r CostIncome) Apply(bs *balance.BalanceSheet, increment timeutil.TimeIncrement, _ *marketdata.Rates) error {
	if r.Date.IsZero() {
		return errors.New("cost/income rule requires a date")
	}
	if !increment.Contains(r.Date) {
		return nil
	}

	name := r.Rule
	if name == "" {
		name = "Cost/Income"
	}
	reason := balance.NewReason("Cost/Income", name).WithDate(r.Date)
	if err := bs.AddSingleLiquidity(r.Amount, reason, r.Labels); err != nil {
		return err
	}
	return bs.AddSinglePnL(r.Amount, reason, r.Labels)
}
