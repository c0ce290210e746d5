package projection

import (
	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/conventions"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// Rule transforms a balance sheet over one projection step. Rules mutate
// the sheet in place and book any resulting P&L, cashflow or OCI entries
// through the sheet's ledgers so the accounting identity survives every
// application.
type Rule interface {
	Apply(bs *balance.BalanceSheet, increment timeutil.TimeIncrement, rates *marketdata.Rates) error
}

// signResolver memoizes the book-value sign per balance-sheet side for the
// rows of one rule application. Value-dependent sides (derivatives,
// collateral) are resolved per row.
type signResolver struct {
	bs          *balance.BalanceSheet
	marketValue balance.Metric
	unmatched   int
}

func newSignResolver(bs *balance.BalanceSheet) *signResolver {
	mv, _ := bs.Metrics().Get("MarketValue")
	return &signResolver{bs: bs, marketValue: mv}
}

func (r *signResolver) sign(p *balance.Position) float64 {
	row := conventions.SideRow{
		Quantity:    p.Value("Quantity"),
		MarketValue: r.marketValue.Value(p),
	}
	s, ok := conventions.SignFor(p.Label("BalanceSheetSide"), row)
	if !ok {
		r.unmatched++
	}
	return s
}

func (r *signResolver) flush() {
	if r.unmatched > 0 {
		r.bs.CountUnmatched("balance sheet side", r.unmatched)
		r.unmatched = 0
	}
}

// withMaturity selects the rows a run-off style rule operates on: every
// position carrying a maturity date.
func withMaturity() balance.Item {
	return balance.NewItem(nil).WithPredicate(func(p *balance.Position) bool {
		return !p.Date("MaturityDate").IsZero()
	})
}

// accrualRowOf projects the position fields the accrual methods read.
func accrualRowOf(p *balance.Position) conventions.AccrualRow {
	return conventions.AccrualRow{
		Principal:      p.Value("Quantity"),
		InterestRate:   p.Value("InterestRate"),
		PreviousCoupon: p.Date("PreviousCouponDate"),
		NextCoupon:     p.Date("NextCouponDate"),
	}
}

// redemptionRowOf projects the position fields the redemption types read.
func redemptionRowOf(p *balance.Position) conventions.RedemptionRow {
	_, hasRate := lookupValue(p, "InterestRate")
	return conventions.RedemptionRow{
		Maturity:        p.Date("MaturityDate"),
		NextCoupon:      p.Date("NextCouponDate"),
		CouponFrequency: p.Label("CouponFrequency"),
		InterestRate:    p.Value("InterestRate"),
		HasInterestRate: hasRate,
	}
}

func lookupValue(p *balance.Position, col string) (float64, bool) {
	v, ok := p.Values[col]
	if !ok || v != v {
		return 0, false
	}
	return v, true
}

func bookPnL(bs *balance.BalanceSheet, mask balance.Mask, amounts []float64, reason balance.Reason) error {
	groups := bs.GroupAmounts(mask, amounts, bs.Config().PnLAggregationLabels)
	if len(groups) == 0 {
		return nil
	}
	return bs.AddPnL(groups, reason)
}

func bookCashflow(bs *balance.BalanceSheet, mask balance.Mask, amounts []float64, reason balance.Reason) error {
	groups := bs.GroupAmounts(mask, amounts, bs.Config().CashflowAggregationLabels)
	if len(groups) == 0 {
		return nil
	}
	return bs.AddLiquidity(groups, reason)
}

func bookOCI(bs *balance.BalanceSheet, mask balance.Mask, amounts []float64, reason balance.Reason) error {
	groups := bs.GroupAmounts(mask, amounts, bs.Config().PnLAggregationLabels)
	if len(groups) == 0 {
		return nil
	}
	return bs.AddOCI(groups, reason)
}
