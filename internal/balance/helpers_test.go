package balance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rkooijman/bankproj/config"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

func date(y int, m time.Month, d int) timeutil.Date { return timeutil.NewDate(y, m, d) }

// testPosition builds a schema-complete row. Defaults describe a synthetic
// perpetual account; override per test.
func testPosition(cfg *config.Config, side, itemType string, quantity float64) *Position {
	p := NewPosition()
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

func testLoan(cfg *config.Config, quantity float64) *Position {
	p := testPosition(cfg, "Assets", "Loans", quantity)
	p.Labels["RedemptionType"] = "bullet"
	p.Labels["CouponFrequency"] = "Quarterly"
	p.Labels["CouponType"] = "fixed"
	p.Labels["AccrualMethod"] = "Recalculate"
	p.Values["InterestRate"] = 0.04
	p.Dates["MaturityDate"] = date(2027, time.January, 15)
	p.Dates["PreviousCouponDate"] = date(2024, time.October, 15)
	p.Dates["NextCouponDate"] = date(2025, time.January, 15)
	return p
}

// newTestSheet builds a balanced opening sheet: a loan funded by deposits
// and retained earnings, plus the synthetic accounts.
func newTestSheet(t *testing.T) *BalanceSheet {
	t.Helper()
	cfg := config.Default()
	table := NewTable(
		testLoan(cfg, 1000),
		testPosition(cfg, "Liabilities", "Deposits", 800),
		testPosition(cfg, "Equity", "Retained earnings", 200),
		testPosition(cfg, "Assets", "Cash", 0),
		testPosition(cfg, "Equity", "Unaudited earnings", 0),
		testPosition(cfg, "Equity", "Other comprehensive income", 0),
		testPosition(cfg, "Liabilities", "Dividends payable", 0),
	)
	bs, err := NewBalanceSheet(cfg, table, date(2024, time.December, 31), nil)
	require.NoError(t, err)
	return bs
}

func requireAmount(t *testing.T, bs *BalanceSheet, item Item, metric string, expected float64) {
	t.Helper()
	got, err := bs.GetAmount(item, metric)
	require.NoError(t, err)
	require.InDelta(t, expected, got, 1e-6)
}

func itemOf(pairs ...string) Item {
	item := Item{}
	for i := 0; i+1 < len(pairs); i += 2 {
		item = item.WithIdentifier(pairs[i], pairs[i+1])
	}
	return item
}
