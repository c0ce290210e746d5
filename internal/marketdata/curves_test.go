package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rkooijman/bankproj/internal/timeutil"
)

func date(y int, m time.Month, d int) timeutil.Date { return timeutil.NewDate(y, m, d) }

func TestParseTenor(t *testing.T) {
	cases := []struct {
		tenor string
		years float64
	}{
		{"3m", 0.25},
		{"1y", 1.0},
		{"6M", 0.5},
		{"7d", 7.0 / 365.25},
		{"2w", 14.0 / 365.25},
	}
	for _, tc := range cases {
		years, err := ParseTenor(tc.tenor)
		require.NoError(t, err, tc.tenor)
		require.InDelta(t, tc.years, years, 1e-9, tc.tenor)
	}

	_, err := ParseTenor("5x")
	require.Error(t, err)
}

func TestRatesAtPicksLatestOnOrBefore(t *testing.T) {
	curves, err := NewCurveData([]CurvePoint{
		{Date: date(2025, time.January, 1), Name: "euribor", Type: TypeSpot, Tenor: "3m", Rate: 0.02},
		{Date: date(2025, time.March, 1), Name: "euribor", Type: TypeSpot, Tenor: "3m", Rate: 0.03},
		{Date: date(2025, time.June, 1), Name: "euribor", Type: TypeSpot, Tenor: "3m", Rate: 0.04},
	})
	require.NoError(t, err)

	rates, err := curves.RatesAt(date(2025, time.April, 15))
	require.NoError(t, err)
	rate, ok := rates.FloatingRate("euribor 3m")
	require.True(t, ok)
	require.InDelta(t, 0.03, rate, 1e-12)

	_, err = curves.RatesAt(date(2024, time.December, 31))
	require.Error(t, err)
}

func TestFloatingRateMissIsSilent(t *testing.T) {
	curves, err := NewCurveData([]CurvePoint{
		{Date: date(2025, time.January, 1), Name: "euribor", Type: TypeSpot, Tenor: "3m", Rate: 0.02},
	})
	require.NoError(t, err)
	rates, err := curves.RatesAt(date(2025, time.January, 1))
	require.NoError(t, err)

	_, ok := rates.FloatingRate("sofr1m")
	require.False(t, ok)
}

func TestZeroRateInterpolation(t *testing.T) {
	curves, err := NewCurveData([]CurvePoint{
		{Date: date(2025, time.January, 1), Name: "swap", Type: TypeZero, Maturity: "1y", Rate: 0.02},
		{Date: date(2025, time.January, 1), Name: "swap", Type: TypeZero, Maturity: "3y", Rate: 0.04},
	})
	require.NoError(t, err)
	rates, err := curves.RatesAt(date(2025, time.January, 1))
	require.NoError(t, err)

	mid, ok := rates.ZeroRate("swap", 2.0)
	require.True(t, ok)
	require.InDelta(t, 0.03, mid, 1e-12)

	below, _ := rates.ZeroRate("swap", 0.5)
	require.InDelta(t, 0.02, below, 1e-12)

	above, _ := rates.ZeroRate("swap", 10)
	require.InDelta(t, 0.04, above, 1e-12)

	_, ok = rates.ZeroRate("govt", 1)
	require.False(t, ok)
}

func TestCombine(t *testing.T) {
	a, err := NewCurveData([]CurvePoint{
		{Date: date(2025, time.January, 1), Name: "euribor", Type: TypeSpot, Tenor: "3m", Rate: 0.02},
	})
	require.NoError(t, err)
	b, err := NewCurveData([]CurvePoint{
		{Date: date(2025, time.January, 1), Name: "euribor", Type: TypeSpot, Tenor: "6m", Rate: 0.025},
	})
	require.NoError(t, err)

	rates, err := NewMarketData(a).Combine(NewMarketData(b)).RatesAt(date(2025, time.February, 1))
	require.NoError(t, err)
	r3, ok := rates.FloatingRate("euribor3m")
	require.True(t, ok)
	require.InDelta(t, 0.02, r3, 1e-12)
	r6, ok := rates.FloatingRate("euribor6m")
	require.True(t, ok)
	require.InDelta(t, 0.025, r6, 1e-12)
}
