package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rkooijman/bankproj/config"
	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

func date(y int, m time.Month, d int) timeutil.Date { return timeutil.NewDate(y, m, d) }

// testPosition builds a schema-complete row defaulting to a synthetic
// perpetual account; tests override the instrument attributes they need.
func testPosition(cfg *config.Config, side, itemType string, quantity float64) *balance.Position {
	p := balance.NewPosition()
	p.Labels["BalanceSheetSide"] = side
	p.Labels["ItemType"] = itemType
	p.Labels["Currency"] = "EUR"
	p.Labels["Book"] = "old"
	p.Labels["AccountingMethod"] = "AmortizedCost"
	p.Labels["ValuationMethod"] = "none"
	p.Labels["RedemptionType"] = "perpetual"
	p.Labels["CouponFrequency"] = "Never"
	p.Labels["CouponType"] = "none"
	p.Labels["AccrualMethod"] = "None"
	p.Labels["DaycountBasis"] = "Actual/365.25"
	p.Labels["ReferenceRate"] = ""
	p.Labels["ValuationCurve"] = ""
	p.Labels["HQLAClass"] = "N/a"
	p.Labels["IFRS9Stage"] = "N/a"
	for _, col := range cfg.ValueColumns {
		p.Values[col] = 0
	}
	p.Values["Quantity"] = quantity
	p.Values["CleanPrice"] = 1
	p.Dates["OriginationDate"] = date(2024, time.January, 1)
	return p
}

// bulletLoan pays quarterly fixed coupons and repays at maturity. The
// coupon schedule is anchored on the projection start so the opening
// accrued interest of zero is already consistent.
func bulletLoan(cfg *config.Config, quantity float64) *balance.Position {
	p := testPosition(cfg, "Assets", "Loans", quantity)
	p.Labels["RedemptionType"] = "bullet"
	p.Labels["CouponFrequency"] = "Quarterly"
	p.Labels["CouponType"] = "fixed"
	p.Labels["AccrualMethod"] = "Recalculate"
	p.Values["InterestRate"] = 0.04
	p.Dates["MaturityDate"] = date(2026, time.December, 31)
	p.Dates["PreviousCouponDate"] = date(2024, time.December, 31)
	p.Dates["NextCouponDate"] = date(2025, time.March, 31)
	return p
}

func annuityLoan(cfg *config.Config, quantity float64) *balance.Position {
	p := testPosition(cfg, "Assets", "Mortgages", quantity)
	p.Labels["RedemptionType"] = "annuity"
	p.Labels["CouponFrequency"] = "Monthly"
	p.Labels["CouponType"] = "fixed"
	p.Labels["AccrualMethod"] = "Recalculate"
	p.Values["InterestRate"] = 0.06
	p.Dates["MaturityDate"] = date(2025, time.December, 15)
	p.Dates["PreviousCouponDate"] = date(2024, time.December, 15)
	p.Dates["NextCouponDate"] = date(2025, time.January, 15)
	return p
}

// newSheet builds a balanced opening sheet dated 2024-12-31: the given
// rows funded by retained earnings, plus the synthetic accounts.
func newSheet(t *testing.T, cfg *config.Config, rows ...*balance.Position) *balance.BalanceSheet {
	t.Helper()
	var funding float64
	for _, p := range rows {
		var bv float64
		if p.Labels["AccountingMethod"] == "AmortizedCost" {
			bv = p.Values["Quantity"] + p.Values["AccruedInterest"] +
				p.Values["Agio"] + p.Values["Impairment"]
		} else {
			bv = p.Values["Quantity"]*p.Values["CleanPrice"] +
				p.Values["AccruedInterest"] + p.Values["Agio"]
		}
		switch p.Labels["BalanceSheetSide"] {
		case "Assets":
			funding += bv
		case "Liabilities":
			funding -= bv
		}
	}
	all := append([]*balance.Position{}, rows...)
	all = append(all,
		testPosition(cfg, "Equity", "Retained earnings", funding),
		testPosition(cfg, "Assets", "Cash", 0),
		testPosition(cfg, "Equity", "Unaudited earnings", 0),
		testPosition(cfg, "Equity", "Other comprehensive income", 0),
		testPosition(cfg, "Liabilities", "Dividends payable", 0),
	)
	bs, err := balance.NewBalanceSheet(cfg, balance.NewTable(all...), date(2024, time.December, 31), nil)
	require.NoError(t, err)
	return bs
}

func itemOf(pairs ...string) balance.Item {
	item := balance.Item{}
	for i := 0; i+1 < len(pairs); i += 2 {
		item = item.WithIdentifier(pairs[i], pairs[i+1])
	}
	return item
}

func requireAmount(t *testing.T, bs *balance.BalanceSheet, item balance.Item, metric string, expected float64) {
	t.Helper()
	got, err := bs.GetAmount(item, metric)
	require.NoError(t, err)
	require.InDelta(t, expected, got, 1e-6)
}

// monthlyHorizon builds a month-end horizon starting 2024-12-31.
func monthlyHorizon(t *testing.T, months int) timeutil.TimeHorizon {
	t.Helper()
	horizon, err := timeutil.FromCounts(date(2024, time.December, 31), timeutil.HorizonCounts{Months: months})
	require.NoError(t, err)
	return horizon
}

// sumCashflows totals the named cashflow rule across all steps.
func sumCashflows(steps []StepResult, rule string) float64 {
	var total float64
	for _, step := range steps {
		for _, g := range step.Cashflows {
			if r, ok := g.Reason.Get("rule"); ok && r == rule {
				amount, _ := g.Amount.Float64()
				total += amount
			}
		}
	}
	return total
}
