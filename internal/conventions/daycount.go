package conventions

import (
	"github.com/rkooijman/bankproj/internal/registry"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// Daycount converts a date pair into a year fraction for interest accrual.
type Daycount interface {
	YearFraction(start, end timeutil.Date) float64
}

type actualOver struct {
	denominator float64
}

func (d actualOver) YearFraction(start, end timeutil.Date) float64 {
	return float64(timeutil.DaysBetween(start, end)) / d.denominator
}

// actualActualISDA approximates ISDA Actual/Actual using the end date's year
// to decide the denominator, matching the engine's historical behavior.
type actualActualISDA struct{}

func (actualActualISDA) YearFraction(start, end timeutil.Date) float64 {
	days := float64(timeutil.DaysBetween(start, end))
	if isLeapYear(end.Year()) {
		return days / 366.0
	}
	return days / 365.0
}

func isLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

type thirtyConvention int

const (
	thirtyBondBasis thirtyConvention = iota
	thirtyEuropean
	thirtyISDA
)

// thirty360 implements the 30/360 family: every month counts 30 days, a year
// 360, with per-variant day adjustments.
type thirty360 struct {
	variant thirtyConvention
}

func (t thirty360) YearFraction(start, end timeutil.Date) float64 {
	startDay, endDay := start.Day(), end.Day()

	switch t.variant {
	case thirtyBondBasis:
		if startDay == 31 {
			startDay = 30
		}
		if endDay == 31 && startDay >= 30 {
			endDay = 30
		}
	case thirtyEuropean:
		if startDay == 31 {
			startDay = 30
		}
		if endDay == 31 {
			endDay = 30
		}
	case thirtyISDA:
		if startDay == 31 || (start.Month() == 2 && start.IsEndOfMonth()) {
			startDay = 30
		}
		if endDay == 31 || (end.Month() == 2 && end.IsEndOfMonth()) {
			endDay = 30
		}
	}

	days := (end.Year()-start.Year())*360 +
		(int(end.Month())-int(start.Month()))*30 +
		endDay - startDay
	return float64(days) / 360.0
}

// Daycounts is the daycount fraction registry, keyed by the DaycountBasis
// classification value.
var Daycounts = newDaycounts()

func newDaycounts() *registry.Registry[Daycount] {
	r := registry.New[Daycount]("daycount fraction")
	r.Register("Actual/360", actualOver{denominator: 360})
	r.Register("Actual/365 Fixed", actualOver{denominator: 365})
	r.Register("Actual/365.25", actualOver{denominator: 365.25})
	r.Register("Actual/Actual", actualActualISDA{})
	r.Register("30/360", thirty360{variant: thirtyBondBasis})
	r.Register("30E/360", thirty360{variant: thirtyEuropean})
	r.Register("30E/360 ISDA", thirty360{variant: thirtyISDA})
	return r
}
