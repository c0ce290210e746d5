package balance

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/rkooijman/bankproj/internal/timeutil"
)

func TestOpeningSheetBalances(t *testing.T) {
	bs := newTestSheet(t)
	requireAmount(t, bs, Item{}, "BookValueSigned", 0)
	require.NoError(t, bs.Validate())
}

func TestValidateIsIdempotent(t *testing.T) {
	bs := newTestSheet(t)
	require.NoError(t, bs.Validate())
	require.NoError(t, bs.Validate())
	require.Equal(t, 0, bs.PnLLedger().Len())
	require.Equal(t, 0, bs.CashflowLedger().Len())
}

func TestMutateMetricAbsoluteSetsAggregate(t *testing.T) {
	bs := newTestSheet(t)
	loans := itemOf("ItemType", "Loans")

	err := bs.MutateMetric(loans, "Quantity", 750, NewReason("test", "set"), MutateOptions{OffsetLiquidity: true})
	require.NoError(t, err)
	requireAmount(t, bs, loans, "Quantity", 750)

	// absolute again, regardless of prior value
	err = bs.MutateMetric(loans, "Quantity", 600, NewReason("test", "set"), MutateOptions{OffsetLiquidity: true})
	require.NoError(t, err)
	requireAmount(t, bs, loans, "Quantity", 600)
	require.NoError(t, bs.Validate())
}

func TestMutateMetricRelativeAndMultiplicative(t *testing.T) {
	bs := newTestSheet(t)
	loans := itemOf("ItemType", "Loans")

	require.NoError(t, bs.MutateMetric(loans, "Quantity", -100, NewReason("test", "shift"),
		MutateOptions{Relative: true, OffsetLiquidity: true}))
	requireAmount(t, bs, loans, "Quantity", 900)

	require.NoError(t, bs.MutateMetric(loans, "Quantity", 0.5, NewReason("test", "scale"),
		MutateOptions{Multiplicative: true, OffsetLiquidity: true}))
	requireAmount(t, bs, loans, "Quantity", 450)
	require.NoError(t, bs.Validate())
}

func TestOffsetLiquidityMovesCash(t *testing.T) {
	bs := newTestSheet(t)
	loans := itemOf("ItemType", "Loans")

	cashBefore, err := bs.GetAmount(bs.CashAccount(), "BookValue")
	require.NoError(t, err)

	require.NoError(t, bs.MutateMetric(loans, "Quantity", -100, NewReason("test", "redeem"),
		MutateOptions{Relative: true, OffsetLiquidity: true}))

	cashAfter, err := bs.GetAmount(bs.CashAccount(), "BookValue")
	require.NoError(t, err)
	// cash moves by exactly minus the book-value delta on the loans
	require.InDelta(t, 100, cashAfter-cashBefore, 1e-6)
	require.InDelta(t, 100, bs.CashflowLedger().TotalFloat(), 1e-6)
	require.NoError(t, bs.Validate())
}

func TestOffsetPnLKeepsSheetBalanced(t *testing.T) {
	bs := newTestSheet(t)
	loans := itemOf("ItemType", "Loans")

	require.NoError(t, bs.MutateMetric(loans, "Impairment", -30, NewReason("test", "impair"),
		MutateOptions{Relative: true, OffsetPnL: true}))

	requireAmount(t, bs, loans, "Impairment", -30)
	pnlBV, err := bs.GetAmount(bs.PnLAccount(), "BookValue")
	require.NoError(t, err)
	require.InDelta(t, -30, pnlBV, 1e-6)
	require.InDelta(t, 30, bs.PnLLedger().TotalFloat(), 1e-6)
	require.NoError(t, bs.Validate())
}

func TestCounterItemOffset(t *testing.T) {
	bs := newTestSheet(t)
	loans := itemOf("ItemType", "Loans")
	deposits := itemOf("ItemType", "Deposits")

	// quantity moves to the counter item with the opposite sign; the
	// ledgers stay untouched
	require.NoError(t, bs.MutateMetric(loans, "Quantity", 50, NewReason("test", "transfer"),
		MutateOptions{Relative: true, CounterItem: &deposits}))

	requireAmount(t, bs, loans, "Quantity", 1050)
	requireAmount(t, bs, deposits, "Quantity", 750)
	require.Equal(t, 0, bs.PnLLedger().Len())
	require.Equal(t, 0, bs.CashflowLedger().Len())
}

func TestConflictingOffsetsRejected(t *testing.T) {
	bs := newTestSheet(t)
	loans := itemOf("ItemType", "Loans")
	deposits := itemOf("ItemType", "Deposits")

	err := bs.MutateMetric(loans, "Quantity", 10, NewReason("test", "bad"),
		MutateOptions{Relative: true, OffsetPnL: true, OffsetLiquidity: true})
	require.True(t, errors.Is(err, ErrConflictingOffsets))

	err = bs.MutateMetric(loans, "Quantity", 10, NewReason("test", "bad"),
		MutateOptions{Relative: true, OffsetPnL: true, CounterItem: &deposits})
	require.True(t, errors.Is(err, ErrConflictingOffsets))
}

func TestMutateEmptySelectorRejected(t *testing.T) {
	bs := newTestSheet(t)

	err := bs.MutateMetric(itemOf("ItemType", "Mortgages"), "Quantity", 10,
		NewReason("test", "none"), MutateOptions{Relative: true})
	require.True(t, errors.Is(err, ErrNoMatchingPositions))
}

func TestMutateUnknownColumn(t *testing.T) {
	bs := newTestSheet(t)

	err := bs.Mutate(itemOf("ItemType", "Loans"), Mutation{
		Values: map[string]ValueExpr{"Duration": Literal(5)},
	}, NewReason("test", "bad"), MutateOptions{})
	require.True(t, errors.Is(err, ErrSchema))
}

func TestMutateExpressionsSeePreMutationState(t *testing.T) {
	bs := newTestSheet(t)
	loans := itemOf("ItemType", "Loans")

	// both expressions read Quantity; the write of Quantity must not leak
	// into the AccruedInterest expression
	err := bs.Mutate(loans, Mutation{
		Values: map[string]ValueExpr{
			"Quantity":        func(p *Position) float64 { return p.Value("Quantity") * 2 },
			"AccruedInterest": func(p *Position) float64 { return p.Value("Quantity") * 0.01 },
		},
	}, NewReason("test", "twophase"), MutateOptions{})
	require.NoError(t, err)

	requireAmount(t, bs, loans, "Quantity", 2000)
	requireAmount(t, bs, loans, "AccruedInterest", 10)
}

func TestAddSinglePnLReconciles(t *testing.T) {
	bs := newTestSheet(t)

	require.NoError(t, bs.AddSinglePnL(25, NewReason("test", "income"), map[string]string{"ItemType": "Loans"}))

	pnlBV, err := bs.GetAmount(bs.PnLAccount(), "BookValue")
	require.NoError(t, err)
	require.InDelta(t, 25, pnlBV, 1e-6)
	require.InDelta(t, -25, bs.PnLLedger().TotalFloat(), 1e-6)

	// the sheet is now unbalanced until the matching cash leg is booked
	require.Error(t, bs.Validate())
	require.NoError(t, bs.AddSingleLiquidity(25, NewReason("test", "income"), map[string]string{"ItemType": "Loans"}))
	require.NoError(t, bs.Validate())
}

func TestValidateRejectsUnknownClassification(t *testing.T) {
	bs := newTestSheet(t)
	bs.Table().Row(0).Labels["RedemptionType"] = "interest only"

	err := bs.Validate()
	require.True(t, errors.Is(err, ErrSchema))
	require.Contains(t, err.Error(), "RedemptionType")
	require.Contains(t, err.Error(), "interest only")
}

func TestValidateRejectsMissingColumn(t *testing.T) {
	bs := newTestSheet(t)
	delete(bs.Table().Row(0).Values, "Agio")

	err := bs.Validate()
	require.True(t, errors.Is(err, ErrSchema))
	require.Contains(t, err.Error(), "Agio")
}

func TestValidateRejectsExtraColumn(t *testing.T) {
	bs := newTestSheet(t)
	bs.Table().Row(0).Values["Duration"] = 3.5

	err := bs.Validate()
	require.True(t, errors.Is(err, ErrSchema))
	require.Contains(t, err.Error(), "Duration")
}

func TestValidateRejectsNullNonNull(t *testing.T) {
	bs := newTestSheet(t)
	bs.Table().Row(0).Dates["OriginationDate"] = timeutil.Date{}

	err := bs.Validate()
	require.True(t, errors.Is(err, ErrSchema))
	require.Contains(t, err.Error(), "OriginationDate")
}

func TestValidateRedemptionRequirements(t *testing.T) {
	bs := newTestSheet(t)
	// a bullet loan without a maturity violates the bullet requirements
	delete(bs.Table().Row(0).Dates, "MaturityDate")

	err := bs.Validate()
	require.True(t, errors.Is(err, ErrSchema))
	require.Contains(t, err.Error(), "MaturityDate")
	require.Contains(t, err.Error(), "1 rows")
}

func TestValidateReconciliationFailure(t *testing.T) {
	bs := newTestSheet(t)
	// unbalanced write with no offset
	bs.Table().Row(0).Values["Quantity"] = 1500

	err := bs.Validate()
	require.True(t, errors.Is(err, ErrReconciliation))
}

func TestCopyIsDeep(t *testing.T) {
	bs := newTestSheet(t)
	branch := bs.Copy()

	require.NoError(t, branch.MutateMetric(itemOf("ItemType", "Loans"), "Quantity", -500,
		NewReason("test", "branch"), MutateOptions{Relative: true, OffsetLiquidity: true}))

	requireAmount(t, bs, itemOf("ItemType", "Loans"), "Quantity", 1000)
	requireAmount(t, branch, itemOf("ItemType", "Loans"), "Quantity", 500)
	require.Equal(t, 0, bs.CashflowLedger().Len())
	require.Equal(t, 1, branch.CashflowLedger().Len())
}

func TestAggregate(t *testing.T) {
	bs := newTestSheet(t)

	rows := bs.Aggregate([]string{"BalanceSheetSide"})
	require.Len(t, rows, 3)

	bySide := make(map[string]AggregateRow)
	for _, r := range rows {
		bySide[r.Labels["BalanceSheetSide"]] = r
	}
	require.InDelta(t, 1000, bySide["Assets"].BookValue, 1e-6)
	require.InDelta(t, 800, bySide["Liabilities"].BookValue, 1e-6)
	require.InDelta(t, 200, bySide["Equity"].BookValue, 1e-6)
}

func TestAddItem(t *testing.T) {
	bs := newTestSheet(t)

	req := AddItemRequest{
		Base:        itemOf("ItemType", "Loans"),
		Labels:      map[string]string{"ItemType": "Mortgages"},
		Metrics:     map[string]float64{"Quantity": 300, "InterestRate": 0.035},
		Origination: date(2025, time.January, 31),
		Maturity:    date(2030, time.January, 31),
	}
	require.NoError(t, bs.AddItem(req, NewReason("scenario", "production")))

	mortgages := itemOf("ItemType", "Mortgages")
	requireAmount(t, bs, mortgages, "Quantity", 300)
	requireAmount(t, bs, mortgages, "InterestRate", 0.035)

	// new rows inherit the template's other labels
	requireAmount(t, bs, itemOf("BalanceSheetSide", "Assets"), "Quantity", 1300)
}

func TestAddItemEmptySelector(t *testing.T) {
	bs := newTestSheet(t)

	err := bs.AddItem(AddItemRequest{
		Base:    itemOf("ItemType", "Mortgages"),
		Metrics: map[string]float64{"Quantity": 100},
	}, NewReason("scenario", "production"))
	require.True(t, errors.Is(err, ErrNoMatchingPositions))
}

func TestAddItemRequiresQuantity(t *testing.T) {
	bs := newTestSheet(t)

	err := bs.AddItem(AddItemRequest{
		Base:    itemOf("ItemType", "Loans"),
		Metrics: map[string]float64{"InterestRate": 0.03},
	}, NewReason("scenario", "production"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Quantity")
}

func TestAddItemConflictingMetrics(t *testing.T) {
	bs := newTestSheet(t)

	err := bs.AddItem(AddItemRequest{
		Base:    itemOf("ItemType", "Loans"),
		Metrics: map[string]float64{"Quantity": 100, "Impairment": -5, "CoverageRate": -0.05},
	}, NewReason("scenario", "production"))
	require.True(t, errors.Is(err, ErrConflictingMetrics))
}

func TestDispatchCounters(t *testing.T) {
	bs := newTestSheet(t)
	bs.CountUnmatched("balance sheet side", 2)
	bs.CountUnmatched("balance sheet side", 1)
	bs.CountUnmatched("frequency", 0)

	counts := bs.DrainUnmatched()
	require.Equal(t, 3, counts["balance sheet side"])
	_, ok := counts["frequency"]
	require.False(t, ok)
	require.Empty(t, bs.DrainUnmatched())
}
