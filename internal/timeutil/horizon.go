package timeutil

import (
	"sort"

	"github.com/pkg/errors"
)

// TimeIncrement is one projection step, from the previous projection date to
// the next. The very first increment of a horizon has From == To, capturing
// the initial state before any elapsed-time logic runs.
type TimeIncrement struct {
	From Date
	To   Date
}

// Days returns the number of days covered by the increment.
func (ti TimeIncrement) Days() int {
	return DaysBetween(ti.From, ti.To)
}

// PortionYear returns the increment length as a fraction of an average year.
func (ti TimeIncrement) PortionYear() float64 {
	return float64(ti.Days()) / 365.25
}

// Contains reports whether a dated event falls inside this increment.
// An initial (zero-length) increment contains only its own date.
func (ti TimeIncrement) Contains(d Date) bool {
	if ti.From.Equal(ti.To) {
		return ti.From.Equal(d)
	}
	return ti.From.Before(d) && !ti.To.Before(d)
}

// Overlaps reports whether the increment overlaps the half-open period
// [start, end).
func (ti TimeIncrement) Overlaps(start, end Date) bool {
	return !(ti.To.Before(start) || !ti.From.Before(end))
}

// DaysOverlap counts the days of the increment that fall inside [start, end).
func (ti TimeIncrement) DaysOverlap(start, end Date) int {
	if !ti.Overlaps(start, end) {
		return 0
	}
	overlapStart := ti.From.AddDays(1)
	if start.After(overlapStart) {
		overlapStart = start
	}
	overlapEnd := ti.To
	if end.Before(overlapEnd) {
		overlapEnd = end
	}
	return DaysBetween(overlapStart, overlapEnd) + 1
}

func (ti TimeIncrement) String() string {
	return ti.From.String() + ".." + ti.To.String()
}

// TimeHorizon is an ordered set of projection dates.
type TimeHorizon struct {
	dates []Date
}

// NewTimeHorizon sorts and deduplicates the given dates.
func NewTimeHorizon(dates []Date) (TimeHorizon, error) {
	if len(dates) == 0 {
		return TimeHorizon{}, errors.New("time horizon requires at least one date")
	}
	sorted := make([]Date, 0, len(dates))
	seen := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		if _, ok := seen[d.String()]; ok {
			continue
		}
		seen[d.String()] = struct{}{}
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	return TimeHorizon{dates: sorted}, nil
}

// HorizonCounts configures FromCounts: how many steps of each granularity to
// generate after the start date.
type HorizonCounts struct {
	Days     int
	Weeks    int
	Months   int
	Quarters int
	Years    int
	// EndOfMonth snaps month/quarter/year steps to month end. When nil it is
	// inferred from the start date.
	EndOfMonth *bool
}

// FromCounts builds a horizon of mixed granularities starting at startDate.
func FromCounts(startDate Date, counts HorizonCounts) (TimeHorizon, error) {
	eom := startDate.IsEndOfMonth()
	if counts.EndOfMonth != nil {
		eom = *counts.EndOfMonth
	}

	dates := []Date{startDate}
	for i := 1; i <= counts.Days; i++ {
		dates = append(dates, startDate.AddDays(i))
	}
	for i := 1; i <= counts.Weeks; i++ {
		dates = append(dates, startDate.AddDays(7*i))
	}
	monthly := func(months int) Date {
		d := startDate.AddMonths(months)
		if eom {
			d = d.EndOfMonth()
		}
		return d
	}
	for i := 1; i <= counts.Months; i++ {
		dates = append(dates, monthly(i))
	}
	for i := 1; i <= counts.Quarters; i++ {
		dates = append(dates, monthly(3*i))
	}
	for i := 1; i <= counts.Years; i++ {
		dates = append(dates, monthly(12*i))
	}
	return NewTimeHorizon(dates)
}

func (h TimeHorizon) Len() int        { return len(h.dates) }
func (h TimeHorizon) Dates() []Date   { return h.dates }
func (h TimeHorizon) StartDate() Date { return h.dates[0] }
func (h TimeHorizon) EndDate() Date   { return h.dates[len(h.dates)-1] }

// Increments returns the projection steps: a zero-length initial increment
// followed by one increment per consecutive date pair.
func (h TimeHorizon) Increments() []TimeIncrement {
	out := make([]TimeIncrement, 0, len(h.dates))
	out = append(out, TimeIncrement{From: h.dates[0], To: h.dates[0]})
	for i := 0; i+1 < len(h.dates); i++ {
		out = append(out, TimeIncrement{From: h.dates[i], To: h.dates[i+1]})
	}
	return out
}
