package projection

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// Production originates new business on its scheduled date: new positions
// are stamped from the template rows selected by Base, sized by the
// requested metric amounts, and funded through the cash account. Day-one
// impairment goes straight to P&L.
type Production struct {
	Base    balance.Item
	Labels  map[string]string
	Metrics map[string]float64
	Date    timeutil.Date
	// MaturityYears sets the cohort maturity relative to Date; zero means
	// no maturity.
	MaturityYears int
}

func (r Production) Apply(bs *balance.BalanceSheet, increment timeutil.TimeIncrement, _ *marketdata.Rates) error {
	if r.Date.IsZero() {
		return errors.New("production rule requires a date")
	}
	if !increment.Contains(r.Date) {
		return nil
	}

	var maturity timeutil.Date
	if r.MaturityYears > 0 {
		maturity = r.Date.AddMonths(12 * r.MaturityYears)
	}

	mask := r.Base.MaskOf(bs.Table())
	signs := newSignResolver(bs)
	sign, labels := 1.0, map[string]string{}
	for i, p := range bs.Table().Rows() {
		if !mask[i] {
			continue
		}
		sign = signs.sign(p)
		for _, col := range bs.Config().PnLAggregationLabels {
			labels[col] = p.Label(col)
		}
		break
	}
	signs.flush()
	for col, v := range r.Labels {
		if _, ok := labels[col]; ok {
			labels[col] = v
		}
	}

	reason := balance.NewReason("Production", "Production").WithDate(r.Date)
	req := balance.AddItemRequest{
		Base:        r.Base,
		Labels:      r.Labels,
		Metrics:     r.Metrics,
		Origination: r.Date,
		Maturity:    maturity,
	}
	if imp := r.Metrics["Impairment"]; imp != 0 {
		req.PnLs = []balance.GroupedAmount{{Labels: labels, Amount: sign * imp}}
	}
	outflow := r.Metrics["Quantity"] + r.Metrics["AccruedInterest"] + r.Metrics["Agio"]
	if outflow != 0 {
		req.Cashflows = []balance.GroupedAmount{{Labels: labels, Amount: -sign * outflow}}
	}
	return errors.Wrap(bs.AddItem(req, reason), "production")
}
