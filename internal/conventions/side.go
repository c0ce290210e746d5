package conventions

import (
	"github.com/rkooijman/bankproj/internal/registry"
)

// SideRow carries the per-position fields a balance-sheet side reads when
// its sign is value-dependent.
type SideRow struct {
	Quantity    float64
	MarketValue float64
}

// Side classifies a position's balance-sheet category and yields the sign
// applied to its book value in the self-balancing identity: +1 for asset
// exposure, -1 for funding.
type Side interface {
	Sign(row SideRow) float64
}

type assetSide struct{}

func (assetSide) Sign(SideRow) float64 { return 1 }

type fundingSide struct{}

func (fundingSide) Sign(SideRow) float64 { return -1 }

// marketValueSide is used for derivatives, whose side follows the sign of
// their market value.
type marketValueSide struct{}

func (marketValueSide) Sign(row SideRow) float64 {
	if row.MarketValue >= 0 {
		return 1
	}
	return -1
}

// quantitySide is used for collateral, whose side follows the sign of the
// posted quantity.
type quantitySide struct{}

func (quantitySide) Sign(row SideRow) float64 {
	if row.Quantity >= 0 {
		return 1
	}
	return -1
}

// Sides is the balance-sheet side registry.
var Sides = newSides()

func newSides() *registry.Registry[Side] {
	r := registry.New[Side]("balance sheet side")
	r.Register("Assets", assetSide{})
	r.Register("Liabilities", fundingSide{})
	r.Register("Equity", fundingSide{})
	r.Register("Derivatives", marketValueSide{})
	r.Register("Collateral", quantitySide{})
	return r
}

// SignFor resolves the book-value sign for a side name, defaulting to +1
// for unmatched values (the caller counts the misses).
func SignFor(side string, row SideRow) (float64, bool) {
	impl, ok := Sides.Lookup(side)
	if !ok {
		return 1, false
	}
	return impl.Sign(row), true
}
