package projection

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/conventions"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/registry"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// Valuation reprices fair-valued positions against the market snapshot.
// The model dirty price plus the position's stored valuation error gives
// the new dirty price; the resulting book-value change goes to P&L for
// FairValuePnL positions and to OCI for FairValueOCI positions.
// Amortized-cost positions are never repriced.
type Valuation struct{}

func (Valuation) Apply(bs *balance.BalanceSheet, increment timeutil.TimeIncrement, rates *marketdata.Rates) error {
	item := balance.NewItem(nil)
	mask := item.MaskOf(bs.Table())
	signs := newSignResolver(bs)
	rows := bs.Table().Rows()

	newPrice := make(map[*balance.Position]float64, len(rows))
	pnlAmounts := make([]float64, len(rows))
	ociAmounts := make([]float64, len(rows))

	var unmatchedMethod int
	for i, p := range rows {
		newPrice[p] = p.Value("CleanPrice")

		accounting := registry.CleanIdentifier(p.Label("AccountingMethod"))
		if accounting != "fairvaluepnl" && accounting != "fairvalueoci" {
			continue
		}
		method, ok := conventions.ValuationMethods.Lookup(p.Label("ValuationMethod"))
		if !ok {
			unmatchedMethod++
			continue
		}
		price, ok := method.DirtyPrice(conventions.ValuationRow{
			Quantity:        p.Value("Quantity"),
			AccruedInterest: p.Value("AccruedInterest"),
			Maturity:        p.Date("MaturityDate"),
			ValuationCurve:  p.Label("ValuationCurve"),
		}, increment.To, rates)
		if !ok {
			continue
		}
		quantity := p.Value("Quantity")
		if quantity == 0 {
			continue
		}

		dirty := price + p.Value("ValuationError")
		clean := dirty - (p.Value("AccruedInterest")+p.Value("Agio"))/quantity
		delta := quantity * (clean - p.Value("CleanPrice"))
		if delta == 0 {
			continue
		}
		newPrice[p] = clean
		if accounting == "fairvaluepnl" {
			pnlAmounts[i] = signs.sign(p) * delta
		} else {
			ociAmounts[i] = signs.sign(p) * delta
		}
	}
	signs.flush()
	if unmatchedMethod > 0 {
		bs.CountUnmatched("valuation method", unmatchedMethod)
	}

	mutation := balance.Mutation{
		Values: map[string]balance.ValueExpr{
			"CleanPrice": func(p *balance.Position) float64 { return newPrice[p] },
		},
	}
	if err := bs.Mutate(item, mutation, balance.NewReason("Valuation", "Revaluation"), balance.MutateOptions{}); err != nil {
		return errors.Wrap(err, "valuation")
	}
	if err := bookPnL(bs, mask, pnlAmounts, balance.NewReason("Valuation", "Revaluation")); err != nil {
		return err
	}
	return bookOCI(bs, mask, ociAmounts, balance.NewReason("Valuation", "Revaluation"))
}
