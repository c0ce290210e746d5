package conventions

import (
	"math"

	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/registry"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// ValuationRow carries the per-position fields a valuation method reads.
type ValuationRow struct {
	Quantity        float64
	AccruedInterest float64
	Maturity        timeutil.Date
	ValuationCurve  string
}

// ValuationMethod produces a dirty price for a position as of a date. The
// bool result is false when the method produces no price (the position is
// not revalued).
type ValuationMethod interface {
	DirtyPrice(row ValuationRow, asOf timeutil.Date, rates *marketdata.Rates) (float64, bool)
}

type noValuation struct{}

func (noValuation) DirtyPrice(ValuationRow, timeutil.Date, *marketdata.Rates) (float64, bool) {
	return 0, false
}

// baselineValuation prices at par plus the accrued-interest fraction.
type baselineValuation struct{}

func (baselineValuation) DirtyPrice(row ValuationRow, _ timeutil.Date, _ *marketdata.Rates) (float64, bool) {
	if row.Quantity == 0 {
		return 1, true
	}
	return 1 + row.AccruedInterest/row.Quantity, true
}

// discountedValuation discounts the maturity amount with the interpolated
// zero rate of the position's valuation curve.
type discountedValuation struct{}

func (discountedValuation) DirtyPrice(row ValuationRow, asOf timeutil.Date, rates *marketdata.Rates) (float64, bool) {
	if row.Maturity.IsZero() || rates == nil {
		return 0, false
	}
	years := float64(timeutil.DaysBetween(asOf, row.Maturity)) / 365.25
	if years < 0 {
		years = 0
	}
	rate, ok := rates.ZeroRate(row.ValuationCurve, years)
	if !ok {
		return 0, false
	}
	return math.Exp(-rate * years), true
}

// ValuationMethods is the valuation method registry.
var ValuationMethods = newValuationMethods()

func newValuationMethods() *registry.Registry[ValuationMethod] {
	r := registry.New[ValuationMethod]("valuation method")
	r.Register("none", noValuation{})
	r.Register("baseline", baselineValuation{})
	r.Register("discounted", discountedValuation{})
	return r
}
