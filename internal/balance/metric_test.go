package balance

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestStoredAmountAggregateAndDistribution(t *testing.T) {
	bs := newTestSheet(t)
	metrics := bs.Metrics()

	quantity, err := metrics.Mutable("Quantity")
	require.NoError(t, err)

	all := Mask(make([]bool, bs.Table().Len()))
	for i := range all {
		all[i] = true
	}
	require.InDelta(t, 2000, quantity.Aggregate(bs.Table(), all), 1e-9)

	// distribution is proportional to quantity
	mask := itemOf("BalanceSheetSide", "Liabilities").MaskOf(bs.Table())
	values := quantity.MutationValues(bs.Table(), mask, 400)
	total := 0.0
	for i := range values {
		if mask[i] {
			total += values[i]
		}
	}
	require.InDelta(t, 400, total, 1e-6)
	// deposits carry all the weight against the zero-quantity dividend row
	require.InDelta(t, 400, values[1], 1e-6)
}

func TestStoredWeightAggregate(t *testing.T) {
	bs := newTestSheet(t)

	rate, err := bs.Metrics().Get("InterestRate")
	require.NoError(t, err)

	assets := itemOf("BalanceSheetSide", "Assets").MaskOf(bs.Table())
	// loan 1000 at 4%, cash 0 at 0%: quantity-weighted average stays 4%
	require.InDelta(t, 0.04, rate.Aggregate(bs.Table(), assets), 1e-9)
}

func TestDerivedWeightRoundTrip(t *testing.T) {
	bs := newTestSheet(t)

	coverage, err := bs.Metrics().Mutable("CoverageRate")
	require.NoError(t, err)
	require.Equal(t, "Impairment", coverage.Column())

	mask := itemOf("ItemType", "Loans").MaskOf(bs.Table())
	values := coverage.MutationValues(bs.Table(), mask, -0.02)
	for i, row := range bs.Table().Rows() {
		if mask[i] {
			row.Values["Impairment"] = values[i]
		}
	}
	require.InDelta(t, -0.02, coverage.Aggregate(bs.Table(), mask), 1e-6)

	impairment, err := bs.Metrics().Get("Impairment")
	require.NoError(t, err)
	require.InDelta(t, -20, impairment.Aggregate(bs.Table(), mask), 1e-4)
}

func TestDerivedAmountHitsTarget(t *testing.T) {
	bs := newTestSheet(t)

	encumbered, err := bs.Metrics().Mutable("Encumbered")
	require.NoError(t, err)

	mask := itemOf("ItemType", "Loans").MaskOf(bs.Table())
	values := encumbered.MutationValues(bs.Table(), mask, 250)
	for i, row := range bs.Table().Rows() {
		if mask[i] {
			row.Values[encumbered.Column()] = values[i]
		}
	}
	require.InDelta(t, 250, encumbered.Aggregate(bs.Table(), mask), 1e-6)
}

func TestDerivedMetricsAreReadOnly(t *testing.T) {
	bs := newTestSheet(t)

	for _, name := range []string{"BookValue", "DirtyPrice", "MarketValue", "Exposure", "HQLA"} {
		_, err := bs.Metrics().Mutable(name)
		require.Error(t, err, name)
		require.True(t, errors.Is(err, ErrDerivedMetric), name)
	}
}

func TestBookValueFormulas(t *testing.T) {
	cfg := newTestSheet(t).Config()

	amortized := testLoan(cfg, 1000)
	amortized.Values["Agio"] = 5
	amortized.Values["AccruedInterest"] = 10
	amortized.Values["Impairment"] = -15
	require.InDelta(t, 1000, bookValueValue(amortized), 1e-12)

	fair := testLoan(cfg, 1000)
	fair.Labels["AccountingMethod"] = "FairValuePnL"
	fair.Values["CleanPrice"] = 0.98
	fair.Values["AccruedInterest"] = 10
	fair.Values["Agio"] = 2
	require.InDelta(t, 992, bookValueValue(fair), 1e-12)
}

func TestSignedBookValue(t *testing.T) {
	cfg := newTestSheet(t).Config()

	deposit := testPosition(cfg, "Liabilities", "Deposits", 800)
	v, ok := SignedBookValue(deposit)
	require.True(t, ok)
	require.InDelta(t, -800, v, 1e-12)

	unknown := testPosition(cfg, "OffBalance", "Guarantees", 100)
	v, ok = SignedBookValue(unknown)
	require.False(t, ok)
	require.InDelta(t, 100, v, 1e-12)
}

func TestHQLAMetric(t *testing.T) {
	cfg := newTestSheet(t).Config()

	bond := testPosition(cfg, "Assets", "Bonds", 500)
	bond.Labels["HQLAClass"] = "Level 2A"
	require.InDelta(t, 0.85*500, hqlaValue(bond), 1e-9)

	bond.Values["EncumberedWeight"] = 0.4
	require.InDelta(t, 0.4*0.85*500, bond.Value("EncumberedWeight")*hqlaValue(bond), 1e-9)
}

func TestStoredColumnsCoverSchema(t *testing.T) {
	bs := newTestSheet(t)
	cols := bs.Metrics().StoredColumns()
	require.ElementsMatch(t, bs.Config().ValueColumns, cols)
}
