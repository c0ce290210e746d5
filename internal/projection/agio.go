package projection

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// AgioRedemption releases premiums and discounts to P&L following a linear
// amortization to maturity. Positions without a maturity keep their agio;
// matured positions release it in full.
type AgioRedemption struct{}

func (AgioRedemption) Apply(bs *balance.BalanceSheet, increment timeutil.TimeIncrement, _ *marketdata.Rates) error {
	if increment.From.Equal(increment.To) {
		return nil
	}

	item := balance.NewItem(nil)
	mask := item.MaskOf(bs.Table())
	signs := newSignResolver(bs)
	rows := bs.Table().Rows()

	newAgio := make(map[*balance.Position]float64, len(rows))
	income := make([]float64, len(rows))

	for i, p := range rows {
		agio := p.Value("Agio")
		newAgio[p] = agio
		if agio == 0 {
			continue
		}
		maturity := p.Date("MaturityDate")
		if maturity.IsZero() {
			continue
		}
		next := agio
		if maturity.After(increment.To) {
			total := timeutil.DaysBetween(increment.From, maturity)
			if total > 0 {
				next = agio * float64(timeutil.DaysBetween(increment.To, maturity)) / float64(total)
			}
		} else {
			next = 0
		}
		newAgio[p] = next
		income[i] = signs.sign(p) * (next - agio)
	}
	signs.flush()

	mutation := balance.Mutation{
		Values: map[string]balance.ValueExpr{
			"Agio": func(p *balance.Position) float64 { return newAgio[p] },
		},
	}
	if err := bs.Mutate(item, mutation, balance.NewReason("AgioRedemption", "Agio"), balance.MutateOptions{}); err != nil {
		return errors.Wrap(err, "agio redemption")
	}
	return bookPnL(bs, mask, income, balance.NewReason("AgioRedemption", "Agio"))
}
