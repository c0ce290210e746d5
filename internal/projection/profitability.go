package projection

import (
	"math"

	"github.com/rkooijman/bankproj/config"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// ProfitabilityRow reports annualized returns over one reporting outlook:
// net income against day-weighted average assets and equity.
type ProfitabilityRow struct {
	Outlook           string
	TotalAssets       float64
	TotalEquity       float64
	NetIncome         float64
	NetInterestIncome float64
	ReturnOnAssets    float64
	ReturnOnEquity    float64
	NetInterestMargin float64
}

// interestRules are the P&L reasons counted as net interest income.
var interestRules = map[string]bool{
	"Accrual":         true,
	"Coupon payment":  true,
	"Interest Income": true,
}

// calculateProfitability computes one row per configured outlook whose
// window fits inside the projected horizon. Only month-end horizon ends
// produce output.
func calculateProfitability(cfg *config.Config, steps []StepResult) []ProfitabilityRow {
	if len(steps) == 0 {
		return nil
	}
	current := steps[len(steps)-1].Date
	if !current.IsEndOfMonth() {
		return nil
	}

	var out []ProfitabilityRow
	for _, outlook := range cfg.Outlooks {
		if outlook.Months <= 0 {
			continue
		}
		start := current.AddMonths(-outlook.Months).EndOfMonth()
		startIndex := -1
		for i := range steps {
			if steps[i].Date.Equal(start) {
				startIndex = i
				break
			}
		}
		if startIndex < 0 {
			continue
		}
		totalDays := float64(timeutil.DaysBetween(start, current))
		if totalDays <= 0 {
			continue
		}

		var waAssets, waEquity float64
		for i := startIndex; i < len(steps)-1; i++ {
			weight := float64(timeutil.DaysBetween(steps[i].Date, steps[i+1].Date)) / totalDays
			waAssets += steps[i].Metrics["Total Assets"] * weight
			waEquity += steps[i].Metrics["Total Equity"] * weight
		}

		// Ledger amounts carry the opposite sign of the income they book.
		var netIncome, interestIncome float64
		for i := startIndex + 1; i < len(steps); i++ {
			for _, g := range steps[i].PnL {
				amount, _ := g.Amount.Float64()
				netIncome -= amount
				if rule, ok := g.Reason.Get("rule"); ok && interestRules[rule] {
					interestIncome -= amount
				}
			}
		}

		row := ProfitabilityRow{
			Outlook:           outlook.Name,
			TotalAssets:       waAssets,
			TotalEquity:       waEquity,
			NetIncome:         netIncome,
			NetInterestIncome: interestIncome,
		}
		if waAssets != 0 {
			row.ReturnOnAssets = annualize(netIncome/waAssets, outlook.Months)
			row.NetInterestMargin = annualize(interestIncome/waAssets, outlook.Months)
		}
		if waEquity != 0 {
			row.ReturnOnEquity = annualize(netIncome/waEquity, outlook.Months)
		}
		out = append(out, row)
	}
	return out
}

func annualize(value float64, months int) float64 {
	return math.Pow(1+value, 12/float64(months)) - 1
}
