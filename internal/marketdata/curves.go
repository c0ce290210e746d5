// Package marketdata provides the market snapshot consumed by projection
// rules: named yield curves with spot and zero rates, resolved per
// projection date.
package marketdata

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/registry"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// Curve point types.
const (
	TypeSpot = "spot"
	TypeZero = "zero"
)

// CurvePoint is one quoted rate on a named curve.
type CurvePoint struct {
	Date timeutil.Date
	Name string
	Type string // spot or zero
	// Tenor identifies spot quotes (e.g. "3m"); Maturity identifies zero
	// quotes and is parsed into MaturityYears.
	Tenor         string
	Maturity      string
	Rate          float64
	MaturityYears float64
}

// CurveData is the full curve history a scenario carries; RatesAt resolves
// the snapshot for a projection date.
type CurveData struct {
	points []CurvePoint
}

// NewCurveData normalizes identifiers and derives maturity years for zero
// points.
func NewCurveData(points []CurvePoint) (*CurveData, error) {
	normalized := make([]CurvePoint, len(points))
	for i, p := range points {
		p.Name = registry.CleanIdentifier(p.Name)
		p.Type = strings.ToLower(strings.TrimSpace(p.Type))
		p.Tenor = strings.ToLower(strings.TrimSpace(p.Tenor))
		p.Maturity = strings.ToLower(strings.TrimSpace(p.Maturity))
		if p.Type == TypeZero && p.Maturity != "" {
			years, err := ParseTenor(p.Maturity)
			if err != nil {
				return nil, errors.Wrapf(err, "curve %s", p.Name)
			}
			p.MaturityYears = years
		}
		normalized[i] = p
	}
	return &CurveData{points: normalized}, nil
}

// Combine merges two curve histories.
func (c *CurveData) Combine(other *CurveData) *CurveData {
	if other == nil {
		return c
	}
	merged := make([]CurvePoint, 0, len(c.points)+len(other.points))
	merged = append(merged, c.points...)
	merged = append(merged, other.points...)
	return &CurveData{points: merged}
}

// RatesAt returns the snapshot quoted on the latest curve date at or before
// the given date. An empty history, or one that only starts later, is an
// error.
func (c *CurveData) RatesAt(date timeutil.Date) (*Rates, error) {
	var latest timeutil.Date
	for _, p := range c.points {
		if !p.Date.After(date) && p.Date.After(latest) {
			latest = p.Date
		}
	}
	if latest.IsZero() {
		return nil, errors.Errorf("no curve data available for date %s", date)
	}
	var points []CurvePoint
	for _, p := range c.points {
		if p.Date.Equal(latest) {
			points = append(points, p)
		}
	}
	return newRates(points), nil
}

// Rates is the resolved market snapshot for one date.
type Rates struct {
	spot map[string]float64        // name+tenor -> rate
	zero map[string][]CurvePoint   // name -> points sorted by maturity
}

func newRates(points []CurvePoint) *Rates {
	r := &Rates{
		spot: make(map[string]float64),
		zero: make(map[string][]CurvePoint),
	}
	for _, p := range points {
		switch p.Type {
		case TypeSpot:
			r.spot[p.Name+p.Tenor] = p.Rate
		case TypeZero:
			r.zero[p.Name] = append(r.zero[p.Name], p)
		}
	}
	for name := range r.zero {
		pts := r.zero[name]
		sort.Slice(pts, func(i, j int) bool { return pts[i].MaturityYears < pts[j].MaturityYears })
		r.zero[name] = pts
	}
	return r
}

// FloatingRate maps a reference-rate label (name plus tenor, e.g.
// "euribor3m") to the snapshot's spot rate.
func (r *Rates) FloatingRate(reference string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	rate, ok := r.spot[registry.CleanIdentifier(reference)]
	return rate, ok
}

// ZeroRate linearly interpolates the named zero curve at the given maturity
// in years, clamping beyond the first and last quoted points.
func (r *Rates) ZeroRate(name string, years float64) (float64, bool) {
	if r == nil {
		return 0, false
	}
	pts := r.zero[registry.CleanIdentifier(name)]
	if len(pts) == 0 {
		return 0, false
	}
	if years <= pts[0].MaturityYears {
		return pts[0].Rate, true
	}
	last := pts[len(pts)-1]
	if years >= last.MaturityYears {
		return last.Rate, true
	}
	idx := sort.Search(len(pts), func(i int) bool { return pts[i].MaturityYears >= years })
	lo, hi := pts[idx-1], pts[idx]
	weight := (years - lo.MaturityYears) / (hi.MaturityYears - lo.MaturityYears)
	return lo.Rate + weight*(hi.Rate-lo.Rate), true
}

// MarketData bundles everything a scenario knows about markets.
type MarketData struct {
	Curves *CurveData
}

// NewMarketData wraps curve history; a nil argument yields an empty history.
func NewMarketData(curves *CurveData) *MarketData {
	if curves == nil {
		curves = &CurveData{}
	}
	return &MarketData{Curves: curves}
}

// Combine merges two market data sets.
func (m *MarketData) Combine(other *MarketData) *MarketData {
	if other == nil {
		return m
	}
	return &MarketData{Curves: m.Curves.Combine(other.Curves)}
}

// RatesAt resolves the market snapshot for a date.
func (m *MarketData) RatesAt(date timeutil.Date) (*Rates, error) {
	return m.Curves.RatesAt(date)
}

var tenorUnitYears = map[string]float64{
	"d": 1.0 / 365.25,
	"w": 7.0 / 365.25,
	"m": 1.0 / 12,
	"y": 1.0,
}

// ParseTenor converts a tenor label such as "3m" or "10y" into years.
func ParseTenor(tenor string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(tenor))
	var digits, unit strings.Builder
	for _, ch := range s {
		switch {
		case ch >= '0' && ch <= '9':
			digits.WriteRune(ch)
		case ch >= 'a' && ch <= 'z':
			unit.WriteRune(ch)
		}
	}
	factor, ok := tenorUnitYears[unit.String()]
	if !ok {
		return 0, errors.Errorf("unknown tenor unit in %q", tenor)
	}
	num, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, errors.Errorf("invalid tenor %q", tenor)
	}
	return float64(num) * factor, nil
}
