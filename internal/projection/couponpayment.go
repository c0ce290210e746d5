package projection

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/conventions"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// CouponPayment pays out every coupon falling due in the step, rolls the
// coupon schedule forward and refixes the interest rate per the position's
// coupon type against the market snapshot. Matured positions settle their
// final coupon at the maturity date.
type CouponPayment struct{}

func (CouponPayment) Apply(bs *balance.BalanceSheet, increment timeutil.TimeIncrement, rates *marketdata.Rates) error {
	if increment.From.Equal(increment.To) {
		return nil
	}

	item := balance.NewItem(nil)
	mask := item.MaskOf(bs.Table())
	signs := newSignResolver(bs)
	rows := bs.Table().Rows()

	newAccrued := make(map[*balance.Position]float64, len(rows))
	newRate := make(map[*balance.Position]float64, len(rows))
	newPrev := make(map[*balance.Position]timeutil.Date, len(rows))
	newNext := make(map[*balance.Position]timeutil.Date, len(rows))
	cashflow := make([]float64, len(rows))

	var unmatchedFreq, unmatchedType int
	for i, p := range rows {
		newAccrued[p] = p.Value("AccruedInterest")
		newRate[p] = p.Value("InterestRate")
		newPrev[p] = p.Date("PreviousCouponDate")
		newNext[p] = p.Date("NextCouponDate")

		maturity := p.Date("MaturityDate")
		matured := !maturity.IsZero() && !maturity.After(increment.To)
		next := p.Date("NextCouponDate")
		if next.IsZero() && !matured {
			continue
		}

		freq, freqOK := conventions.Frequencies.Lookup(p.Label("CouponFrequency"))
		if !freqOK {
			unmatchedFreq++
		}
		accMethod, accOK := conventions.AccrualMethods.Lookup(p.Label("AccrualMethod"))
		accumulating := accOK && accMethod.Accumulating()

		due := 0
		if freqOK && !next.IsZero() {
			limit := increment.To
			if !maturity.IsZero() {
				limit = timeutil.MinDate(maturity, increment.To)
			}
			due = freq.NumberDue(next, limit)
		}
		var payments float64
		if freqOK {
			payments = p.Value("Quantity") * p.Value("InterestRate") * freq.PortionYear() * float64(due)
		}

		switch {
		case matured:
			newPrev[p] = maturity
			newNext[p] = timeutil.Date{}
		case due > 0 && freqOK:
			newNext[p] = conventions.NextCouponAfter(freq, next, increment.To, maturity)
			newPrev[p] = conventions.PreviousCouponOnOrBefore(freq, next, increment.To, p.Date("OriginationDate"))
		}

		if due > 0 {
			couponType, typeOK := conventions.CouponTypes.Lookup(p.Label("CouponType"))
			if !typeOK {
				unmatchedType++
			} else {
				floating, hasFloating := 0.0, false
				if rates != nil {
					floating, hasFloating = rates.FloatingRate(p.Label("ReferenceRate"))
				}
				newRate[p] = couponType.Rate(conventions.CouponRateInputs{
					CurrentRate:  p.Value("InterestRate"),
					Spread:       p.Value("Spread"),
					FloatingRate: floating,
					HasFloating:  hasFloating,
				})
			}
		}

		if !accumulating && payments != 0 {
			newAccrued[p] -= payments
			cashflow[i] = signs.sign(p) * payments
		}
	}
	signs.flush()
	if unmatchedFreq > 0 {
		bs.CountUnmatched("coupon frequency", unmatchedFreq)
	}
	if unmatchedType > 0 {
		bs.CountUnmatched("coupon type", unmatchedType)
	}

	mutation := balance.Mutation{
		Values: map[string]balance.ValueExpr{
			"AccruedInterest": func(p *balance.Position) float64 { return newAccrued[p] },
			"InterestRate":    func(p *balance.Position) float64 { return newRate[p] },
		},
		Dates: map[string]balance.DateExpr{
			"PreviousCouponDate": func(p *balance.Position) timeutil.Date { return newPrev[p] },
			"NextCouponDate":     func(p *balance.Position) timeutil.Date { return newNext[p] },
		},
	}
	if err := bs.Mutate(item, mutation, balance.NewReason("CouponPayment", "Coupon payment"), balance.MutateOptions{}); err != nil {
		return errors.Wrap(err, "coupon payment")
	}
	return bookCashflow(bs, mask, cashflow, balance.NewReason("CouponPayment", "Coupon payment"))
}
