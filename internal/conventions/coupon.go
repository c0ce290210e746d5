package conventions

import (
	"github.com/rkooijman/bankproj/internal/registry"
)

// CouponRateInputs carries the fields a coupon type reads when its rate is
// refixed at a payment date.
type CouponRateInputs struct {
	CurrentRate  float64
	Spread       float64
	FloatingRate float64
	HasFloating  bool
}

// CouponType determines the interest rate applied after a coupon refix.
type CouponType interface {
	Rate(in CouponRateInputs) float64
}

type fixedCoupon struct{}

func (fixedCoupon) Rate(in CouponRateInputs) float64 { return in.CurrentRate }

// floatingCoupon refixes to the reference rate plus spread; when the market
// snapshot has no rate for the reference the current rate is kept.
type floatingCoupon struct{}

func (floatingCoupon) Rate(in CouponRateInputs) float64 {
	if !in.HasFloating {
		return in.CurrentRate
	}
	return in.FloatingRate + in.Spread
}

type zeroCoupon struct{}

func (zeroCoupon) Rate(CouponRateInputs) float64 { return 0 }

// CouponTypes is the coupon type registry.
var CouponTypes = newCouponTypes()

func newCouponTypes() *registry.Registry[CouponType] {
	r := registry.New[CouponType]("coupon type")
	r.Register("fixed", fixedCoupon{})
	r.Register("floating", floatingCoupon{})
	r.Register("zero", zeroCoupon{})
	r.Register("none", zeroCoupon{})
	return r
}
