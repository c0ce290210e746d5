package projection

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// ItemRate pairs a selector with a per-year rate, used to override the
// default draw-down behavior for parts of the sheet.
type ItemRate struct {
	Item balance.Item
	Rate float64
}

// DrawDown converts undrawn commitments into on-balance exposure. By
// default a facility draws CCF times the elapsed year fraction of its
// undrawn amount; scenario overrides can pin the draw rate or top the
// facility back up proportionally to its quantity.
type DrawDown struct {
	DrawDownRates []ItemRate
	TopUpRates    []ItemRate
}

func (r DrawDown) Apply(bs *balance.BalanceSheet, increment timeutil.TimeIncrement, _ *marketdata.Rates) error {
	if increment.From.Equal(increment.To) {
		return nil
	}

	item := balance.NewItem(nil)
	mask := item.MaskOf(bs.Table())
	signs := newSignResolver(bs)
	rows := bs.Table().Rows()

	newQuantity := make(map[*balance.Position]float64, len(rows))
	newUndrawn := make(map[*balance.Position]float64, len(rows))
	cashflow := make([]float64, len(rows))

	for i, p := range rows {
		undrawn := p.Value("Undrawn")
		newQuantity[p] = p.Value("Quantity")
		newUndrawn[p] = undrawn

		draw := p.Value("CCF") * increment.PortionYear() * undrawn
		for _, override := range r.DrawDownRates {
			if override.Item.Matches(p) {
				draw = undrawn * override.Rate
			}
		}
		topUp := 0.0
		for _, override := range r.TopUpRates {
			if override.Item.Matches(p) {
				topUp += p.Value("Quantity") * override.Rate
			}
		}
		if draw == 0 && topUp == 0 {
			continue
		}
		newQuantity[p] += draw
		newUndrawn[p] = undrawn - draw + topUp
		cashflow[i] = -signs.sign(p) * draw
	}
	signs.flush()

	mutation := balance.Mutation{
		Values: map[string]balance.ValueExpr{
			"Quantity": func(p *balance.Position) float64 { return newQuantity[p] },
			"Undrawn":  func(p *balance.Position) float64 { return newUndrawn[p] },
		},
	}
	if err := bs.Mutate(item, mutation, balance.NewReason("DrawDown", "Draw downs"), balance.MutateOptions{}); err != nil {
		return errors.Wrap(err, "draw down")
	}
	return bookCashflow(bs, mask, cashflow, balance.NewReason("DrawDown", "Draw downs"))
}
