package projection

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rkooijman/bankproj/config"
	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

func janStep() timeutil.TimeIncrement {
	return timeutil.TimeIncrement{From: date(2024, time.December, 31), To: date(2025, time.January, 31)}
}

func TestAccrualSkipsZeroLengthIncrement(t *testing.T) {
	cfg := config.Default()
	bs := newSheet(t, cfg, bulletLoan(cfg, 1_000_000))

	inc := timeutil.TimeIncrement{From: bs.Date(), To: bs.Date()}
	require.NoError(t, Accrual{}.Apply(bs, inc, nil))

	require.Zero(t, bs.PnLLedger().Len())
	requireAmount(t, bs, itemOf("ItemType", "Loans"), "AccruedInterest", 0)
}

func TestAccrualRecalculateBuildsAccruedInterest(t *testing.T) {
	cfg := config.Default()
	bs := newSheet(t, cfg, bulletLoan(cfg, 1_000_000))
	bs.SetDate(date(2025, time.January, 31))

	require.NoError(t, Accrual{}.Apply(bs, janStep(), nil))

	// 31 of the 90 days of the Dec 31 to Mar 31 coupon period have passed.
	delta := 1_000_000 * 0.04 * 0.25 * 31.0 / 90.0
	requireAmount(t, bs, itemOf("ItemType", "Loans"), "AccruedInterest", delta)
	requireAmount(t, bs, itemOf("ItemType", "Loans"), "Quantity", 1_000_000)
	requireAmount(t, bs, bs.PnLAccount(), "Quantity", delta)
	require.NoError(t, bs.Validate())
}

func TestAccrualDailyAccumulatingFoldsIntoPrincipal(t *testing.T) {
	cfg := config.Default()
	savings := testPosition(cfg, "Liabilities", "Savings", 500_000)
	savings.Labels["CouponFrequency"] = "Monthly"
	savings.Labels["AccrualMethod"] = "DailyAccumulating"
	savings.Values["InterestRate"] = 0.02
	bs := newSheet(t, cfg, savings)
	bs.SetDate(date(2025, time.January, 31))

	require.NoError(t, Accrual{}.Apply(bs, janStep(), nil))

	delta := 500_000 * 0.02 * 31.0 / 365.25
	requireAmount(t, bs, itemOf("ItemType", "Savings"), "Quantity", 500_000+delta)
	requireAmount(t, bs, itemOf("ItemType", "Savings"), "AccruedInterest", 0)
	requireAmount(t, bs, bs.PnLAccount(), "Quantity", -delta)
	require.NoError(t, bs.Validate())
}

func TestCouponPaymentPaysAndRefixesFloating(t *testing.T) {
	cfg := config.Default()
	loan := testPosition(cfg, "Assets", "Loans", 200_000)
	loan.Labels["RedemptionType"] = "bullet"
	loan.Labels["CouponFrequency"] = "Quarterly"
	loan.Labels["CouponType"] = "floating"
	loan.Labels["AccrualMethod"] = "Recalculate"
	loan.Labels["ReferenceRate"] = "Euribor 3m"
	loan.Values["InterestRate"] = 0.04
	loan.Values["Spread"] = 0.015
	loan.Values["AccruedInterest"] = 1_700
	loan.Dates["MaturityDate"] = date(2026, time.October, 15)
	loan.Dates["PreviousCouponDate"] = date(2024, time.October, 15)
	loan.Dates["NextCouponDate"] = date(2025, time.January, 15)
	bs := newSheet(t, cfg, loan)
	bs.SetDate(date(2025, time.January, 31))

	curves, err := marketdata.NewCurveData([]marketdata.CurvePoint{
		{Date: date(2024, time.December, 31), Name: "Euribor", Type: "spot", Tenor: "3m", Rate: 0.03},
	})
	require.NoError(t, err)
	rates, err := curves.RatesAt(date(2025, time.January, 31))
	require.NoError(t, err)

	require.NoError(t, CouponPayment{}.Apply(bs, janStep(), rates))

	payment := 200_000 * 0.04 * 0.25
	requireAmount(t, bs, itemOf("ItemType", "Loans"), "AccruedInterest", 1_700-payment)
	requireAmount(t, bs, bs.CashAccount(), "Quantity", payment)
	require.InDelta(t, payment, bs.CashflowLedger().TotalFloat(), 1e-6)

	var pos *balance.Position
	for _, p := range bs.Table().Rows() {
		if p.Label("ItemType") == "Loans" {
			pos = p
		}
	}
	require.NotNil(t, pos)
	require.InDelta(t, 0.045, pos.Value("InterestRate"), 1e-9)
	require.True(t, pos.Date("PreviousCouponDate").Equal(date(2025, time.January, 15)))
	require.True(t, pos.Date("NextCouponDate").Equal(date(2025, time.April, 15)))
	require.NoError(t, bs.Validate())
}

func TestAgioRedemptionAmortizesLinearly(t *testing.T) {
	cfg := config.Default()
	bond := testPosition(cfg, "Assets", "Bonds", 90_000)
	bond.Labels["RedemptionType"] = "bullet"
	bond.Values["Agio"] = 1_800
	bond.Dates["MaturityDate"] = date(2025, time.December, 31)
	perpetual := testPosition(cfg, "Assets", "Participations", 10_000)
	perpetual.Values["Agio"] = 500
	bs := newSheet(t, cfg, bond, perpetual)
	bs.SetDate(date(2025, time.January, 31))

	require.NoError(t, AgioRedemption{}.Apply(bs, janStep(), nil))

	// 31 of 365 days to maturity elapsed; no maturity means no release.
	requireAmount(t, bs, itemOf("ItemType", "Bonds"), "Agio", 1_800*334.0/365.0)
	requireAmount(t, bs, itemOf("ItemType", "Participations"), "Agio", 500)
	requireAmount(t, bs, bs.PnLAccount(), "Quantity", -1_800*31.0/365.0)
	require.NoError(t, bs.Validate())
}

func TestDrawDownConvertsUndrawnCommitments(t *testing.T) {
	cfg := config.Default()
	facility := testPosition(cfg, "Assets", "Facilities", 40_000)
	facility.Values["Undrawn"] = 100_000
	facility.Values["CCF"] = 0.5
	bs := newSheet(t, cfg, facility)
	bs.SetDate(date(2025, time.January, 31))

	inc := janStep()
	require.NoError(t, DrawDown{}.Apply(bs, inc, nil))

	draw := 0.5 * inc.PortionYear() * 100_000
	requireAmount(t, bs, itemOf("ItemType", "Facilities"), "Quantity", 40_000+draw)
	requireAmount(t, bs, itemOf("ItemType", "Facilities"), "Undrawn", 100_000-draw)
	requireAmount(t, bs, bs.CashAccount(), "Quantity", -draw)
	require.NoError(t, bs.Validate())
}

func TestDrawDownOverridesAndTopsUp(t *testing.T) {
	cfg := config.Default()
	facility := testPosition(cfg, "Assets", "Facilities", 40_000)
	facility.Values["Undrawn"] = 100_000
	facility.Values["CCF"] = 0.5
	bs := newSheet(t, cfg, facility)
	bs.SetDate(date(2025, time.January, 31))

	rule := DrawDown{
		DrawDownRates: []ItemRate{{Item: itemOf("ItemType", "Facilities"), Rate: 0.10}},
		TopUpRates:    []ItemRate{{Item: itemOf("ItemType", "Facilities"), Rate: 0.25}},
	}
	require.NoError(t, rule.Apply(bs, janStep(), nil))

	requireAmount(t, bs, itemOf("ItemType", "Facilities"), "Quantity", 50_000)
	requireAmount(t, bs, itemOf("ItemType", "Facilities"), "Undrawn", 100_000-10_000+10_000)
	requireAmount(t, bs, bs.CashAccount(), "Quantity", -10_000)
	require.NoError(t, bs.Validate())
}

func TestValuationRepricesFairValuePnL(t *testing.T) {
	cfg := config.Default()
	bond := testPosition(cfg, "Assets", "Bonds", 100_000)
	bond.Labels["RedemptionType"] = "bullet"
	bond.Labels["AccountingMethod"] = "FairValuePnL"
	bond.Labels["ValuationMethod"] = "discounted"
	bond.Labels["ValuationCurve"] = "EUR govt"
	bond.Values["CleanPrice"] = 0.95
	bond.Dates["MaturityDate"] = date(2026, time.December, 31)
	bs := newSheet(t, cfg, bond)
	bs.SetDate(date(2025, time.January, 31))

	curves, err := marketdata.NewCurveData([]marketdata.CurvePoint{
		{Date: date(2024, time.December, 31), Name: "EUR govt", Type: "zero", Maturity: "1y", Rate: 0.03},
		{Date: date(2024, time.December, 31), Name: "EUR govt", Type: "zero", Maturity: "5y", Rate: 0.03},
	})
	require.NoError(t, err)
	rates, err := curves.RatesAt(date(2025, time.January, 31))
	require.NoError(t, err)

	require.NoError(t, Valuation{}.Apply(bs, janStep(), rates))

	years := float64(timeutil.DaysBetween(date(2025, time.January, 31), date(2026, time.December, 31))) / 365.25
	price := math.Exp(-0.03 * years)
	requireAmount(t, bs, itemOf("ItemType", "Bonds"), "CleanPrice", price)
	requireAmount(t, bs, bs.PnLAccount(), "Quantity", 100_000*(price-0.95))
	require.Zero(t, bs.OCILedger().Len())
	require.NoError(t, bs.Validate())
}

func TestValuationBooksFairValueOCI(t *testing.T) {
	cfg := config.Default()
	bond := testPosition(cfg, "Assets", "Bonds", 50_000)
	bond.Labels["AccountingMethod"] = "FairValueOCI"
	bond.Labels["ValuationMethod"] = "baseline"
	bond.Values["AccruedInterest"] = 1_000
	bond.Values["CleanPrice"] = 0.98
	bs := newSheet(t, cfg, bond)
	bs.SetDate(date(2025, time.January, 31))

	require.NoError(t, Valuation{}.Apply(bs, janStep(), nil))

	// Baseline dirty price 1 + AI/Q nets back to a clean price of par.
	requireAmount(t, bs, itemOf("ItemType", "Bonds"), "CleanPrice", 1)
	requireAmount(t, bs, bs.OCIAccount(), "Quantity", 50_000*(1-0.98))
	require.Zero(t, bs.PnLLedger().Len())
	require.NoError(t, bs.Validate())
}
