package balance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItemMatching(t *testing.T) {
	bs := newTestSheet(t)

	loans := itemOf("ItemType", "Loans")
	require.Equal(t, 1, loans.MaskOf(bs.Table()).Count())

	// identifier values match through cleaning
	require.Equal(t, 1, itemOf("ItemType", "loans").MaskOf(bs.Table()).Count())

	everything := Item{}
	require.Equal(t, bs.Table().Len(), everything.MaskOf(bs.Table()).Count())

	assets := itemOf("BalanceSheetSide", "Assets")
	require.Equal(t, 2, assets.MaskOf(bs.Table()).Count())
}

func TestItemAnd(t *testing.T) {
	bs := newTestSheet(t)

	assets := itemOf("BalanceSheetSide", "Assets")
	loans := itemOf("ItemType", "Loans")

	both, err := assets.And(loans)
	require.NoError(t, err)
	require.Equal(t, 1, both.MaskOf(bs.Table()).Count())

	// same identifier, same value: no conflict
	again, err := both.And(itemOf("ItemType", "loans"))
	require.NoError(t, err)
	require.Equal(t, 1, again.MaskOf(bs.Table()).Count())

	// same identifier, different value: conflict
	_, err = loans.And(itemOf("ItemType", "Deposits"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "conflicting values")
}

func TestItemOr(t *testing.T) {
	bs := newTestSheet(t)

	either := itemOf("ItemType", "Loans").Or(itemOf("ItemType", "Deposits"))
	require.Equal(t, 2, either.MaskOf(bs.Table()).Count())
}

func TestItemPredicate(t *testing.T) {
	bs := newTestSheet(t)

	big := Item{}.WithPredicate(func(p *Position) bool { return p.Value("Quantity") >= 800 })
	require.Equal(t, 2, big.MaskOf(bs.Table()).Count())

	bigLoans := itemOf("ItemType", "Loans").WithPredicate(func(p *Position) bool {
		return p.Value("Quantity") >= 800
	})
	require.Equal(t, 1, bigLoans.MaskOf(bs.Table()).Count())
}

func TestItemImmutability(t *testing.T) {
	base := itemOf("BalanceSheetSide", "Assets")
	derived := base.WithIdentifier("ItemType", "Loans")

	require.Len(t, base.Identifiers(), 1)
	require.Len(t, derived.Identifiers(), 2)

	_, ok := base.Identifier("ItemType")
	require.False(t, ok)
}

func TestItemWithoutIdentifier(t *testing.T) {
	item := itemOf("BalanceSheetSide", "Assets", "ItemType", "Loans")
	stripped := item.WithoutIdentifier("ItemType")
	require.Equal(t, []string{"BalanceSheetSide"}, stripped.Identifiers())
}

func TestItemString(t *testing.T) {
	require.Equal(t, "all positions", Item{}.String())
	require.Equal(t, "ItemType=Loans", itemOf("ItemType", "Loans").String())
}
