package conventions

import (
	"math"

	"github.com/rkooijman/bankproj/internal/registry"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// RedemptionRow carries the per-position fields a redemption type reads.
type RedemptionRow struct {
	Maturity        timeutil.Date
	NextCoupon      timeutil.Date
	CouponFrequency string
	InterestRate    float64
	HasInterestRate bool
}

// Requirement is one named column requirement of a redemption type,
// evaluated per row during balance-sheet validation.
type Requirement struct {
	Name  string
	Holds func(row RedemptionRow, asOf timeutil.Date) bool
}

// RedemptionType computes the fraction of outstanding principal redeemed by
// a projection date. The bool result is false when the type produces no
// factor itself (manual schedules overridden externally).
type RedemptionType interface {
	Factor(row RedemptionRow, freq Frequency, projectionDate timeutil.Date) (float64, bool)
	Requirements() []Requirement
}

func matured(row RedemptionRow, projectionDate timeutil.Date) bool {
	return !row.Maturity.IsZero() && !row.Maturity.After(projectionDate)
}

var maturityRequired = Requirement{
	Name: "MaturityDate is not null",
	Holds: func(row RedemptionRow, _ timeutil.Date) bool {
		return !row.Maturity.IsZero()
	},
}

// bulletRedemption repays the full principal at maturity.
type bulletRedemption struct{}

func (bulletRedemption) Factor(row RedemptionRow, _ Frequency, projectionDate timeutil.Date) (float64, bool) {
	if matured(row, projectionDate) {
		return 1, true
	}
	return 0, true
}

func (bulletRedemption) Requirements() []Requirement {
	return []Requirement{maturityRequired}
}

// annuityRedemption follows the closed-form annuity amortization schedule.
type annuityRedemption struct{}

func (annuityRedemption) Factor(row RedemptionRow, freq Frequency, projectionDate timeutil.Date) (float64, bool) {
	if matured(row, projectionDate) {
		return 1, true
	}
	if freq == nil {
		return 0, true
	}
	done := freq.NumberDue(row.NextCoupon, projectionDate)
	total := freq.NumberDue(row.NextCoupon, row.Maturity)
	if done <= 0 || total <= 0 {
		return 0, true
	}
	periodRate := PeriodRate(freq, row.InterestRate)
	if periodRate == 0 {
		return float64(done) / float64(total), true
	}
	grown := math.Pow(1+periodRate, float64(done)) - 1
	full := math.Pow(1+periodRate, float64(total)) - 1
	return grown / full, true
}

func (annuityRedemption) Requirements() []Requirement {
	return []Requirement{
		maturityRequired,
		{
			Name: "CouponFrequency is a registered frequency",
			Holds: func(row RedemptionRow, _ timeutil.Date) bool {
				return Frequencies.IsRegistered(row.CouponFrequency)
			},
		},
		{
			Name: "NextCouponDate is not null (or position matured)",
			Holds: func(row RedemptionRow, asOf timeutil.Date) bool {
				return !row.NextCoupon.IsZero() || matured(row, asOf)
			},
		},
		{
			Name: "InterestRate is not null",
			Holds: func(row RedemptionRow, _ timeutil.Date) bool {
				return row.HasInterestRate
			},
		},
	}
}

// linearRedemption amortizes in equal principal parts over the remaining
// coupon payments.
type linearRedemption struct{}

func (linearRedemption) Factor(row RedemptionRow, freq Frequency, projectionDate timeutil.Date) (float64, bool) {
	if matured(row, projectionDate) {
		return 1, true
	}
	if freq == nil {
		return 0, true
	}
	remaining := freq.NumberDue(row.NextCoupon, row.Maturity) - freq.NumberDue(row.NextCoupon, projectionDate)
	if remaining <= 0 {
		return 0, true
	}
	return 1 / float64(remaining), true
}

func (linearRedemption) Requirements() []Requirement {
	return []Requirement{maturityRequired}
}

// perpetualRedemption never repays.
type perpetualRedemption struct{}

func (perpetualRedemption) Factor(RedemptionRow, Frequency, timeutil.Date) (float64, bool) {
	return 0, true
}

func (perpetualRedemption) Requirements() []Requirement {
	return []Requirement{
		{
			Name: "MaturityDate is null for perpetuals",
			Holds: func(row RedemptionRow, _ timeutil.Date) bool {
				return row.Maturity.IsZero()
			},
		},
	}
}

// notionalRedemption settles the notional at maturity only.
type notionalRedemption struct{}

func (notionalRedemption) Factor(row RedemptionRow, _ Frequency, projectionDate timeutil.Date) (float64, bool) {
	if matured(row, projectionDate) {
		return 1, true
	}
	return 0, true
}

func (notionalRedemption) Requirements() []Requirement {
	return []Requirement{maturityRequired}
}

// manualRedemption produces no factor; an external schedule overrides it.
type manualRedemption struct{}

func (manualRedemption) Factor(RedemptionRow, Frequency, timeutil.Date) (float64, bool) {
	return 0, false
}

func (manualRedemption) Requirements() []Requirement { return nil }

// RedemptionTypes is the redemption type registry.
var RedemptionTypes = newRedemptionTypes()

func newRedemptionTypes() *registry.Registry[RedemptionType] {
	r := registry.New[RedemptionType]("redemption type")
	r.Register("bullet", bulletRedemption{})
	r.Register("annuity", annuityRedemption{})
	r.Register("linear", linearRedemption{})
	r.Register("perpetual", perpetualRedemption{})
	r.Register("notional", notionalRedemption{})
	r.Register("manual", manualRedemption{})
	return r
}
