// Package conventions holds the pluggable financial convention registries:
// coupon frequency, redemption type, accrual method, daycount fraction,
// coupon type, valuation method, balance-sheet side, HQLA class and IFRS 9
// stage. Each registry dispatches on a row's classification value; an
// unmatched value falls through to the operation's default and is counted by
// the caller.
package conventions

import (
	"github.com/rkooijman/bankproj/internal/registry"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// Frequency describes a coupon payment schedule.
type Frequency interface {
	// AdvanceNext steps a coupon date forward by n whole periods.
	AdvanceNext(date timeutil.Date, n int) timeutil.Date
	// NumberDue counts coupons due from couponDate (inclusive) up to and
	// including projectionDate. Zero when the coupon date lies beyond the
	// projection date or the schedule never pays.
	NumberDue(couponDate, projectionDate timeutil.Date) int
	// PortionPassed is the fraction of the current coupon period elapsed at
	// the projection date, given the next coupon date.
	PortionPassed(nextCoupon, projectionDate timeutil.Date) float64
	// PortionYear is the length of one coupon period in years.
	PortionYear() float64
}

// monthlyFrequency covers all schedules expressed in whole months.
type monthlyFrequency struct {
	months int
}

func (f monthlyFrequency) AdvanceNext(date timeutil.Date, n int) timeutil.Date {
	return date.AddMonths(n * f.months)
}

func (f monthlyFrequency) NumberDue(couponDate, projectionDate timeutil.Date) int {
	if couponDate.IsZero() || projectionDate.Before(couponDate) {
		return 0
	}
	due := (projectionDate.Year()-couponDate.Year())*12/f.months +
		(int(projectionDate.Month())-int(couponDate.Month()))/f.months
	if couponDate.Day() <= projectionDate.Day() {
		due++
	}
	if due < 0 {
		return 0
	}
	return due
}

func (f monthlyFrequency) PortionPassed(nextCoupon, projectionDate timeutil.Date) float64 {
	if nextCoupon.IsZero() {
		return 0
	}
	remaining := float64(timeutil.DaysBetween(projectionDate, nextCoupon))
	return 1 - remaining/float64(30*f.months)
}

func (f monthlyFrequency) PortionYear() float64 {
	return float64(f.months) / 12
}

// dailyFrequency covers schedules expressed in whole days.
type dailyFrequency struct {
	days int
}

func (f dailyFrequency) AdvanceNext(date timeutil.Date, n int) timeutil.Date {
	return date.AddDays(n * f.days)
}

func (f dailyFrequency) NumberDue(couponDate, projectionDate timeutil.Date) int {
	if couponDate.IsZero() || projectionDate.Before(couponDate) {
		return 0
	}
	return timeutil.DaysBetween(couponDate, projectionDate)/f.days + 1
}

func (f dailyFrequency) PortionPassed(nextCoupon, projectionDate timeutil.Date) float64 {
	if nextCoupon.IsZero() {
		return 0
	}
	remaining := float64(timeutil.DaysBetween(projectionDate, nextCoupon))
	return (float64(f.days) - remaining) / float64(f.days)
}

func (f dailyFrequency) PortionYear() float64 {
	return float64(f.days) / 365.25
}

// neverFrequency never pays a coupon.
type neverFrequency struct{}

func (neverFrequency) AdvanceNext(date timeutil.Date, _ int) timeutil.Date { return date }
func (neverFrequency) NumberDue(_, _ timeutil.Date) int                    { return 0 }
func (neverFrequency) PortionPassed(_, _ timeutil.Date) float64            { return 0 }
func (neverFrequency) PortionYear() float64                                { return 0 }

// Frequencies is the coupon frequency registry.
var Frequencies = newFrequencies()

func newFrequencies() *registry.Registry[Frequency] {
	r := registry.New[Frequency]("coupon frequency")
	r.Register("Daily", dailyFrequency{days: 1})
	r.Register("Weekly", dailyFrequency{days: 7})
	r.Register("Monthly", monthlyFrequency{months: 1})
	r.Register("Quarterly", monthlyFrequency{months: 3})
	r.Register("SemiAnnual", monthlyFrequency{months: 6})
	r.Register("Annual", monthlyFrequency{months: 12})
	r.Register("Never", neverFrequency{})
	return r
}

// PeriodMonths exposes the period length in months for monthly-family
// frequencies, used by the profitability outlooks. Returns 0 for others.
func PeriodMonths(name string) int {
	freq, ok := Frequencies.Lookup(name)
	if !ok {
		return 0
	}
	if m, ok := freq.(monthlyFrequency); ok {
		return m.months
	}
	return 0
}

// NextCouponAfter walks the schedule forward from anchor until the first
// coupon date strictly after asOf, clamped at maturity (zero result when the
// schedule runs out).
func NextCouponAfter(freq Frequency, anchor, asOf, maturity timeutil.Date) timeutil.Date {
	if anchor.IsZero() || freq.PortionYear() == 0 {
		return timeutil.Date{}
	}
	next := anchor
	for !next.After(asOf) {
		advanced := freq.AdvanceNext(next, 1)
		if advanced.Equal(next) {
			return timeutil.Date{}
		}
		next = advanced
	}
	if !maturity.IsZero() && next.After(maturity) {
		return timeutil.Date{}
	}
	return next
}

// PreviousCouponOnOrBefore walks the schedule from anchor to the last coupon
// date on or before asOf, clamped at origination (zero result when no coupon
// has occurred yet).
func PreviousCouponOnOrBefore(freq Frequency, anchor, asOf, origination timeutil.Date) timeutil.Date {
	if anchor.IsZero() || freq.PortionYear() == 0 {
		return timeutil.Date{}
	}
	prev := anchor
	for prev.After(asOf) {
		stepped := freq.AdvanceNext(prev, -1)
		if stepped.Equal(prev) {
			return timeutil.Date{}
		}
		prev = stepped
	}
	for {
		stepped := freq.AdvanceNext(prev, 1)
		if stepped.Equal(prev) || stepped.After(asOf) {
			break
		}
		prev = stepped
	}
	if !origination.IsZero() && prev.Before(origination) {
		return timeutil.Date{}
	}
	return prev
}

// PeriodRate converts an annual rate into a rate for one coupon period.
func PeriodRate(freq Frequency, annualRate float64) float64 {
	return annualRate * freq.PortionYear()
}
