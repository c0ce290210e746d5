package projection

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/conventions"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// Accrual books the interest earned over the step per each position's
// accrual method. Accumulating methods fold the interest into principal,
// the others build up the accrued-interest column until a coupon pays out.
type Accrual struct{}

func (Accrual) Apply(bs *balance.BalanceSheet, increment timeutil.TimeIncrement, _ *marketdata.Rates) error {
	if increment.From.Equal(increment.To) {
		return nil
	}

	item := balance.NewItem(nil)
	mask := item.MaskOf(bs.Table())
	signs := newSignResolver(bs)
	rows := bs.Table().Rows()

	newQuantity := make(map[*balance.Position]float64, len(rows))
	newAccrued := make(map[*balance.Position]float64, len(rows))
	income := make([]float64, len(rows))

	var unmatchedAcc, unmatchedFreq int
	for i, p := range rows {
		newQuantity[p] = p.Value("Quantity")
		newAccrued[p] = p.Value("AccruedInterest")

		method, ok := conventions.AccrualMethods.Lookup(p.Label("AccrualMethod"))
		if !ok {
			unmatchedAcc++
			continue
		}
		freq, freqOK := conventions.Frequencies.Lookup(p.Label("CouponFrequency"))
		if !freqOK {
			unmatchedFreq++
		}

		delta := method.Delta(accrualRowOf(p), freq, increment)
		if delta == 0 {
			continue
		}
		if method.Accumulating() {
			newQuantity[p] += delta
		} else {
			newAccrued[p] += delta
		}
		income[i] = signs.sign(p) * delta
	}
	signs.flush()
	if unmatchedAcc > 0 {
		bs.CountUnmatched("accrual method", unmatchedAcc)
	}
	if unmatchedFreq > 0 {
		bs.CountUnmatched("coupon frequency", unmatchedFreq)
	}

	mutation := balance.Mutation{
		Values: map[string]balance.ValueExpr{
			"Quantity":        func(p *balance.Position) float64 { return newQuantity[p] },
			"AccruedInterest": func(p *balance.Position) float64 { return newAccrued[p] },
		},
	}
	if err := bs.Mutate(item, mutation, balance.NewReason("Accrual", "Accrual"), balance.MutateOptions{}); err != nil {
		return errors.Wrap(err, "accrual")
	}
	return bookPnL(bs, mask, income, balance.NewReason("Accrual", "Accrual"))
}
