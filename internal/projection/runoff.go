package projection

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/conventions"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// Runoff winds down every maturing position over the step: principal
// redeems per the position's redemption schedule plus behavioral
// prepayment, coupons due in the step pay out, accrued interest is rebuilt
// for the new coupon period and agio amortizes linearly to maturity.
// Matured positions leave the sheet entirely, releasing their impairment.
type Runoff struct{}

func (Runoff) Apply(bs *balance.BalanceSheet, increment timeutil.TimeIncrement, _ *marketdata.Rates) error {
	item := withMaturity()
	mask := item.MaskOf(bs.Table())
	if !mask.Any() {
		return nil
	}

	signs := newSignResolver(bs)
	rows := bs.Table().Rows()
	n := bs.Table().Len()

	newQuantity := make(map[*balance.Position]float64, mask.Count())
	newAccrued := make(map[*balance.Position]float64, mask.Count())
	newAgio := make(map[*balance.Position]float64, mask.Count())
	newImpairment := make(map[*balance.Position]float64, mask.Count())
	newCoupon := make(map[*balance.Position]timeutil.Date, mask.Count())

	interestIncome := make([]float64, n)
	impairmentPnL := make([]float64, n)
	couponCF := make([]float64, n)
	repaymentCF := make([]float64, n)
	prepaymentCF := make([]float64, n)

	var unmatchedFreq, unmatchedRed, unmatchedAcc int
	for i, p := range rows {
		if !mask[i] {
			continue
		}
		maturity := p.Date("MaturityDate")
		matured := !maturity.After(increment.To)

		freq, freqOK := conventions.Frequencies.Lookup(p.Label("CouponFrequency"))
		if !freqOK {
			unmatchedFreq++
		}
		red, redOK := conventions.RedemptionTypes.Lookup(p.Label("RedemptionType"))
		if !redOK {
			unmatchedRed++
		}
		accMethod, accOK := conventions.AccrualMethods.Lookup(p.Label("AccrualMethod"))
		if !accOK {
			unmatchedAcc++
		}
		accumulating := accOK && accMethod.Accumulating()

		next := p.Date("NextCouponDate")
		due := 0
		if freqOK && !next.IsZero() {
			due = freq.NumberDue(next, timeutil.MinDate(maturity, increment.To))
		}
		var payments float64
		if freqOK {
			payments = p.Value("Quantity") * p.Value("InterestRate") * freq.PortionYear() * float64(due)
		}

		repayment := 0.0
		switch {
		case matured:
			repayment = 1
		case redOK:
			if f, ok := red.Factor(redemptionRowOf(p), freq, increment.To); ok {
				repayment = f
			}
		}
		prepayment := p.Value("PrepaymentRate") * increment.PortionYear()
		redeemed := 1 - (1-repayment)*(1-prepayment)

		quantity := p.Value("Quantity")
		q := quantity * (1 - redeemed)
		if accumulating {
			q += payments
		}
		newQuantity[p] = q

		imp := 0.0
		if !matured {
			imp = p.Value("Impairment") * (1 - redeemed)
		}
		newImpairment[p] = imp

		rolled := next
		if due > 0 && freqOK {
			rolled = freq.AdvanceNext(next, due)
		}
		if matured {
			rolled = timeutil.Date{}
		}
		newCoupon[p] = rolled

		accrued := 0.0
		if !matured && freqOK && !rolled.IsZero() {
			accrued = q * p.Value("InterestRate") * freq.PortionYear() *
				freq.PortionPassed(rolled, increment.To)
		}
		newAccrued[p] = accrued

		// Agio amortizes linearly over the remaining life.
		agio := 0.0
		if !matured {
			total := timeutil.DaysBetween(increment.From, maturity)
			if total > 0 {
				agio = p.Value("Agio") * float64(timeutil.DaysBetween(increment.To, maturity)) / float64(total)
			} else {
				agio = p.Value("Agio")
			}
		}
		newAgio[p] = agio

		s := signs.sign(p)
		interestIncome[i] = s * (accrued - p.Value("AccruedInterest") + payments + agio - p.Value("Agio"))
		impairmentPnL[i] = s * (imp - p.Value("Impairment"))
		if !accumulating {
			couponCF[i] = s * payments
		}
		repaymentCF[i] = s * quantity * repayment
		prepaymentCF[i] = s * quantity * (1 - repayment) * prepayment
	}
	signs.flush()
	if unmatchedFreq > 0 {
		bs.CountUnmatched("coupon frequency", unmatchedFreq)
	}
	if unmatchedRed > 0 {
		bs.CountUnmatched("redemption type", unmatchedRed)
	}
	if unmatchedAcc > 0 {
		bs.CountUnmatched("accrual method", unmatchedAcc)
	}

	mutation := balance.Mutation{
		Values: map[string]balance.ValueExpr{
			"Quantity":        func(p *balance.Position) float64 { return newQuantity[p] },
			"AccruedInterest": func(p *balance.Position) float64 { return newAccrued[p] },
			"Agio":            func(p *balance.Position) float64 { return newAgio[p] },
			"Impairment":      func(p *balance.Position) float64 { return newImpairment[p] },
		},
		Dates: map[string]balance.DateExpr{
			"NextCouponDate": func(p *balance.Position) timeutil.Date { return newCoupon[p] },
		},
	}
	if err := bs.Mutate(item, mutation, balance.NewReason("Runoff", "Runoff"), balance.MutateOptions{}); err != nil {
		return errors.Wrap(err, "runoff")
	}

	if err := bookPnL(bs, mask, interestIncome, balance.NewReason("Runoff", "Interest Income")); err != nil {
		return err
	}
	if err := bookPnL(bs, mask, impairmentPnL, balance.NewReason("Runoff", "Impairment")); err != nil {
		return err
	}
	if err := bookCashflow(bs, mask, couponCF, balance.NewReason("Runoff", "Coupon payment")); err != nil {
		return err
	}
	if err := bookCashflow(bs, mask, repaymentCF, balance.NewReason("Runoff", "Principal Repayment")); err != nil {
		return err
	}
	return bookCashflow(bs, mask, prepaymentCF, balance.NewReason("Runoff", "Principal Prepayment"))
}
