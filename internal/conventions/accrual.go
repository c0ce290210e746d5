package conventions

import (
	"github.com/rkooijman/bankproj/internal/registry"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// AccrualRow carries the per-position fields an accrual method reads.
type AccrualRow struct {
	Principal      float64
	InterestRate   float64
	PreviousCoupon timeutil.Date
	NextCoupon     timeutil.Date
}

// AccrualMethod computes interest accrued over a projection step.
type AccrualMethod interface {
	// Delta is the interest earned over the increment.
	Delta(row AccrualRow, freq Frequency, inc timeutil.TimeIncrement) float64
	// RecomputedLevel returns the accrued-interest level rebuilt from scratch
	// at asOf; ok is false when the method only accumulates deltas.
	RecomputedLevel(row AccrualRow, freq Frequency, asOf timeutil.Date) (float64, bool)
	// Accumulating reports whether accrual folds into principal instead of
	// the accrued-interest column.
	Accumulating() bool
}

// recalculateAccrual rebuilds accrued interest from the coupon period each
// step, which self-corrects any drift.
type recalculateAccrual struct {
	daycount Daycount
}

func (a recalculateAccrual) level(row AccrualRow, freq Frequency, asOf timeutil.Date) float64 {
	if row.PreviousCoupon.IsZero() || row.NextCoupon.IsZero() || freq == nil {
		return 0
	}
	period := a.daycount.YearFraction(row.PreviousCoupon, row.NextCoupon)
	if period == 0 {
		return 0
	}
	fraction := a.daycount.YearFraction(row.PreviousCoupon, asOf) / period
	return fraction * row.Principal * row.InterestRate * freq.PortionYear()
}

func (a recalculateAccrual) Delta(row AccrualRow, freq Frequency, inc timeutil.TimeIncrement) float64 {
	return a.level(row, freq, inc.To) - a.level(row, freq, inc.From)
}

func (a recalculateAccrual) RecomputedLevel(row AccrualRow, freq Frequency, asOf timeutil.Date) (float64, bool) {
	return a.level(row, freq, asOf), true
}

func (recalculateAccrual) Accumulating() bool { return false }

// dailyAccumulatingAccrual accrues day by day and folds the result into
// principal rather than accrued interest.
type dailyAccumulatingAccrual struct {
	daycount Daycount
}

func (a dailyAccumulatingAccrual) Delta(row AccrualRow, _ Frequency, inc timeutil.TimeIncrement) float64 {
	return row.Principal * row.InterestRate * a.daycount.YearFraction(inc.From, inc.To)
}

func (dailyAccumulatingAccrual) RecomputedLevel(AccrualRow, Frequency, timeutil.Date) (float64, bool) {
	return 0, false
}

func (dailyAccumulatingAccrual) Accumulating() bool { return true }

// noAccrual accrues nothing.
type noAccrual struct{}

func (noAccrual) Delta(AccrualRow, Frequency, timeutil.TimeIncrement) float64 { return 0 }
func (noAccrual) RecomputedLevel(AccrualRow, Frequency, timeutil.Date) (float64, bool) {
	return 0, false
}
func (noAccrual) Accumulating() bool { return false }

// AccrualMethods is the accrual method registry.
var AccrualMethods = newAccrualMethods()

func newAccrualMethods() *registry.Registry[AccrualMethod] {
	r := registry.New[AccrualMethod]("accrual method")
	act36525 := actualOver{denominator: 365.25}
	r.Register("Recalculate", recalculateAccrual{daycount: act36525})
	r.Register("DailyAccumulating", dailyAccumulatingAccrual{daycount: act36525})
	r.Register("None", noAccrual{})
	return r
}
