package projection

import (
	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// Tax charges the step's gross income at the configured rate and credits a
// benefit on the step's gross losses, both settled in cash. When Rate is
// zero the rate stored on the pnl account position is used.
type Tax struct {
	Rate float64
}

func (r Tax) Apply(bs *balance.BalanceSheet, increment timeutil.TimeIncrement, _ *marketdata.Rates) error {
	rate := r.Rate
	if rate == 0 {
		mask := bs.PnLAccount().MaskOf(bs.Table())
		for i, p := range bs.Table().Rows() {
			if mask[i] {
				rate = p.Value("TaxRate")
				break
			}
		}
	}
	if rate == 0 {
		return nil
	}

	// Ledger entries carry the opposite sign of the income they book, so
	// income booked this step shows up as negative amounts.
	var grossIncome, grossLoss float64
	for _, entry := range bs.PnLLedger().OnDate(increment.To) {
		amount, _ := entry.Amount.Float64()
		if amount < 0 {
			grossIncome -= amount
		} else {
			grossLoss += amount
		}
	}

	labels := map[string]string{"ItemType": "Tax"}
	if grossIncome > 0 {
		expense := -rate * grossIncome
		reason := balance.NewReason("Tax", "Tax expense")
		if err := bs.AddSinglePnL(expense, reason, labels); err != nil {
			return err
		}
		if err := bs.AddSingleLiquidity(expense, reason, labels); err != nil {
			return err
		}
	}
	if grossLoss > 0 {
		benefit := rate * grossLoss
		reason := balance.NewReason("Tax", "Tax benefit")
		if err := bs.AddSinglePnL(benefit, reason, labels); err != nil {
			return err
		}
		if err := bs.AddSingleLiquidity(benefit, reason, labels); err != nil {
			return err
		}
	}
	return nil
}
