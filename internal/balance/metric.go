package balance

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/conventions"
	"github.com/rkooijman/bankproj/internal/registry"
)

// Metric is a stateless descriptor of a named financial quantity: how to
// read it per row and how to aggregate it over a row selection.
type Metric interface {
	Name() string
	// Value reads the metric on one row.
	Value(p *Position) float64
	// Aggregate folds the metric over the selected rows.
	Aggregate(t *Table, mask Mask) float64
}

// MutableMetric additionally knows how to turn a target aggregate into
// per-row values of its backing column.
type MutableMetric interface {
	Metric
	// Column is the stored column the mutation writes.
	Column() string
	// MutationValues produces per masked row the column value that makes
	// the metric's aggregate over mask equal amount. Unmasked entries of
	// the result are meaningless.
	MutationValues(t *Table, mask Mask, amount float64) []float64
}

// allocation resolves a row's distribution weight. The epsilon keeps empty
// selections from dividing by zero.
type allocation func(p *Position) float64

func columnAllocation(col string) allocation {
	return func(p *Position) float64 { return p.Value(col) + epsilon }
}

func quantityAllocation() allocation { return columnAllocation("Quantity") }

func maskedAllocationSum(t *Table, mask Mask, alloc allocation) float64 {
	total := 0.0
	for i, row := range t.Rows() {
		if mask[i] {
			total += alloc(row)
		}
	}
	return total
}

// StoredAmount is a directly stored additive quantity. Mutation distributes
// the target amount across the selection proportionally to the allocation
// column.
type StoredAmount struct {
	name   string
	column string
	alloc  allocation
}

// NewStoredAmount builds a stored amount allocated by quantity.
func NewStoredAmount(name, column string) StoredAmount {
	return StoredAmount{name: name, column: column, alloc: quantityAllocation()}
}

func (m StoredAmount) Name() string              { return m.name }
func (m StoredAmount) Column() string            { return m.column }
func (m StoredAmount) Value(p *Position) float64 { return p.Value(m.column) }

func (m StoredAmount) Aggregate(t *Table, mask Mask) float64 {
	total := 0.0
	for i, row := range t.Rows() {
		if mask[i] {
			total += row.Value(m.column)
		}
	}
	return total
}

func (m StoredAmount) MutationValues(t *Table, mask Mask, amount float64) []float64 {
	allocSum := maskedAllocationSum(t, mask, m.alloc)
	out := make([]float64, t.Len())
	for i, row := range t.Rows() {
		if mask[i] {
			out[i] = amount * m.alloc(row) / allocSum
		}
	}
	return out
}

// StoredWeight is a directly stored intensive quantity aggregated as a
// weighted average. Mutation overwrites every selected row with the literal
// target value.
type StoredWeight struct {
	name   string
	column string
	weight allocation
}

// NewStoredWeight builds a stored weight averaged by quantity.
func NewStoredWeight(name, column string) StoredWeight {
	return StoredWeight{name: name, column: column, weight: quantityAllocation()}
}

// NewStoredWeightOver builds a stored weight averaged by another metric's
// per-row value.
func NewStoredWeightOver(name, column string, weightOf Metric) StoredWeight {
	return StoredWeight{name: name, column: column, weight: func(p *Position) float64 {
		return weightOf.Value(p) + epsilon
	}}
}

func (m StoredWeight) Name() string              { return m.name }
func (m StoredWeight) Column() string            { return m.column }
func (m StoredWeight) Value(p *Position) float64 { return p.Value(m.column) }

func (m StoredWeight) Aggregate(t *Table, mask Mask) float64 {
	num, den := 0.0, 0.0
	for i, row := range t.Rows() {
		if mask[i] {
			w := m.weight(row)
			num += row.Value(m.column) * w
			den += w
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func (m StoredWeight) MutationValues(t *Table, mask Mask, amount float64) []float64 {
	out := make([]float64, t.Len())
	for i := range out {
		if mask[i] {
			out[i] = amount
		}
	}
	return out
}

// DerivedAmount is weight-column times allocation, mutated by back-solving
// the weight column so the aggregate hits the target.
type DerivedAmount struct {
	name         string
	weightColumn string
	alloc        allocation
}

// NewDerivedAmount builds a derived amount over the quantity allocation.
func NewDerivedAmount(name, weightColumn string) DerivedAmount {
	return DerivedAmount{name: name, weightColumn: weightColumn, alloc: quantityAllocation()}
}

// NewDerivedAmountOver builds a derived amount over another metric's value.
func NewDerivedAmountOver(name, weightColumn string, allocOf Metric) DerivedAmount {
	return DerivedAmount{name: name, weightColumn: weightColumn, alloc: func(p *Position) float64 {
		return allocOf.Value(p) + epsilon
	}}
}

func (m DerivedAmount) Name() string   { return m.name }
func (m DerivedAmount) Column() string { return m.weightColumn }

func (m DerivedAmount) Value(p *Position) float64 {
	return p.Value(m.weightColumn) * m.alloc(p)
}

func (m DerivedAmount) Aggregate(t *Table, mask Mask) float64 {
	total := 0.0
	for i, row := range t.Rows() {
		if mask[i] {
			total += m.Value(row)
		}
	}
	return total
}

func (m DerivedAmount) MutationValues(t *Table, mask Mask, amount float64) []float64 {
	allocSum := maskedAllocationSum(t, mask, m.alloc)
	weight := amount / allocSum
	out := make([]float64, t.Len())
	for i := range out {
		if mask[i] {
			out[i] = weight
		}
	}
	return out
}

// DerivedWeight is amount-column divided by weight, mutated by writing
// amount-column = target times the row weight.
type DerivedWeight struct {
	name         string
	amountColumn string
	weight       allocation
}

// NewDerivedWeight builds a derived weight over the quantity weighting.
func NewDerivedWeight(name, amountColumn string) DerivedWeight {
	return DerivedWeight{name: name, amountColumn: amountColumn, weight: quantityAllocation()}
}

func (m DerivedWeight) Name() string   { return m.name }
func (m DerivedWeight) Column() string { return m.amountColumn }

func (m DerivedWeight) Value(p *Position) float64 {
	return p.Value(m.amountColumn) / m.weight(p)
}

func (m DerivedWeight) Aggregate(t *Table, mask Mask) float64 {
	num, den := 0.0, 0.0
	for i, row := range t.Rows() {
		if mask[i] {
			num += row.Value(m.amountColumn)
			den += m.weight(row)
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func (m DerivedWeight) MutationValues(t *Table, mask Mask, amount float64) []float64 {
	out := make([]float64, t.Len())
	for i, row := range t.Rows() {
		if mask[i] {
			out[i] = amount * m.weight(row)
		}
	}
	return out
}

// derived is a read-only computed metric. Aggregation is a plain sum unless
// a custom aggregate is supplied (ratio metrics such as DirtyPrice).
type derived struct {
	name      string
	value     func(p *Position) float64
	aggregate func(t *Table, mask Mask) float64
}

func (m derived) Name() string              { return m.name }
func (m derived) Value(p *Position) float64 { return m.value(p) }

func (m derived) Aggregate(t *Table, mask Mask) float64 {
	if m.aggregate != nil {
		return m.aggregate(t, mask)
	}
	total := 0.0
	for i, row := range t.Rows() {
		if mask[i] {
			total += m.value(row)
		}
	}
	return total
}

// Per-row value expressions of the standard derived metrics.

func dirtyPriceValue(p *Position) float64 {
	return p.Value("CleanPrice") + p.Value("AccruedInterest")/(p.Value("Quantity")+epsilon)
}

func marketValueValue(p *Position) float64 {
	return p.Value("CleanPrice")*p.Value("Quantity") + p.Value("AccruedInterest")
}

// amortizedCost is the cleaned AccountingMethod value selecting the
// amortized-cost book value formula.
const amortizedCost = "amortizedcost"

// bookValueValue is the unsigned accounting valuation of a row.
func bookValueValue(p *Position) float64 {
	if registry.CleanIdentifier(p.Label("AccountingMethod")) == amortizedCost {
		return p.Value("Quantity") + p.Value("Agio") + p.Value("AccruedInterest") + p.Value("Impairment")
	}
	return p.Value("Quantity")*p.Value("CleanPrice") + p.Value("AccruedInterest") + p.Value("Agio")
}

// SignedBookValue applies the balance-sheet side sign to the unsigned book
// value; ok is false when the side label is not registered (the row counts
// as asset-signed and the caller records the miss).
func SignedBookValue(p *Position) (float64, bool) {
	sign, ok := conventions.SignFor(p.Label("BalanceSheetSide"), conventions.SideRow{
		Quantity:    p.Value("Quantity"),
		MarketValue: marketValueValue(p),
	})
	return sign * bookValueValue(p), ok
}

func exposureValue(p *Position) float64 {
	return p.Value("Quantity") + p.Value("CCF")*p.Value("Undrawn") + p.Value("OffBalance")
}

func hqlaValue(p *Position) float64 {
	class, ok := conventions.HQLAClasses.Lookup(p.Label("HQLAClass"))
	if !ok {
		return 0
	}
	return class.Contribution() * bookValueValue(p)
}

// MetricSet is the metric registry a balance sheet dispatches on.
type MetricSet struct {
	reg *registry.Registry[Metric]
}

// DefaultMetrics registers the standard metric catalogue.
func DefaultMetrics() *MetricSet {
	r := registry.New[Metric]("balance sheet metric")

	quantity := NewStoredAmount("Quantity", "Quantity")
	r.Register("Quantity", quantity)
	r.Register("Impairment", NewStoredAmount("Impairment", "Impairment"))
	r.Register("AccruedInterest", NewStoredAmount("AccruedInterest", "AccruedInterest"))
	r.Register("Undrawn", NewStoredAmount("Undrawn", "Undrawn"))
	r.Register("Agio", NewStoredAmount("Agio", "Agio"))

	r.Register("CleanPrice", NewStoredWeight("CleanPrice", "CleanPrice"))
	r.Register("OffBalance", NewStoredWeight("OffBalance", "OffBalance"))
	r.Register("ValuationError", NewStoredWeight("ValuationError", "ValuationError"))
	r.Register("Spread", NewStoredWeight("Spread", "Spread"))
	r.Register("InterestRate", NewStoredWeight("InterestRate", "InterestRate"))
	r.Register("PrepaymentRate", NewStoredWeight("PrepaymentRate", "PrepaymentRate"))
	r.Register("TaxRate", NewStoredWeight("TaxRate", "TaxRate"))

	undrawn := NewStoredAmount("Undrawn", "Undrawn")
	r.Register("CCF", NewStoredWeightOver("CCF", "CCF", undrawn))

	r.Register("CoverageRate", NewDerivedWeight("CoverageRate", "Impairment"))
	r.Register("AccruedInterestWeight", NewDerivedWeight("AccruedInterestWeight", "AccruedInterest"))
	r.Register("AgioWeight", NewDerivedWeight("AgioWeight", "Agio"))
	r.Register("UndrawnPortion", NewDerivedWeight("UndrawnPortion", "Undrawn"))

	exposure := derived{name: "Exposure", value: exposureValue}
	r.Register("Exposure", exposure)
	r.Register("TREAWeight", NewStoredWeightOver("TREAWeight", "TREAWeight", exposure))
	r.Register("TREA", NewDerivedAmountOver("TREA", "TREAWeight", exposure))

	r.Register("EncumberedWeight", NewStoredWeight("EncumberedWeight", "EncumberedWeight"))
	r.Register("Encumbered", NewDerivedAmount("Encumbered", "EncumberedWeight"))
	r.Register("StableFundingWeight", NewStoredWeight("StableFundingWeight", "StableFundingWeight"))
	r.Register("StableFunding", NewDerivedAmount("StableFunding", "StableFundingWeight"))
	r.Register("StressedOutflowWeight", NewStoredWeight("StressedOutflowWeight", "StressedOutflowWeight"))
	r.Register("StressedOutflow", NewDerivedAmount("StressedOutflow", "StressedOutflowWeight"))

	r.Register("DirtyPrice", derived{
		name:  "DirtyPrice",
		value: dirtyPriceValue,
		aggregate: func(t *Table, mask Mask) float64 {
			num, den := 0.0, 0.0
			for i, row := range t.Rows() {
				if mask[i] {
					num += row.Value("CleanPrice")*row.Value("Quantity") + row.Value("AccruedInterest")
					den += row.Value("Quantity")
				}
			}
			return num / (den + epsilon)
		},
	})
	r.Register("MarketValue", derived{name: "MarketValue", value: marketValueValue})
	r.Register("BookValue", derived{name: "BookValue", value: bookValueValue})
	r.Register("BookValueSigned", derived{name: "BookValueSigned", value: func(p *Position) float64 {
		v, _ := SignedBookValue(p)
		return v
	}})
	r.Register("HQLA", derived{name: "HQLA", value: hqlaValue})
	r.Register("EncumberedHQLA", derived{name: "EncumberedHQLA", value: func(p *Position) float64 {
		return p.Value("EncumberedWeight") * hqlaValue(p)
	}})
	r.Register("UnencumberedHQLA", derived{name: "UnencumberedHQLA", value: func(p *Position) float64 {
		return (1 - p.Value("EncumberedWeight")) * hqlaValue(p)
	}})

	return &MetricSet{reg: r}
}

// Get resolves a metric by name; unregistered names are fatal.
func (s *MetricSet) Get(name string) (Metric, error) {
	return s.reg.Get(name)
}

// Mutable resolves a metric that can be written; read-only metrics fail
// with ErrDerivedMetric.
func (s *MetricSet) Mutable(name string) (MutableMetric, error) {
	metric, err := s.reg.Get(name)
	if err != nil {
		return nil, err
	}
	mutable, ok := metric.(MutableMetric)
	if !ok {
		return nil, errors.Wrap(ErrDerivedMetric, metric.Name())
	}
	return mutable, nil
}

// Names lists the registered metric names.
func (s *MetricSet) Names() []string { return s.reg.Names() }

// StoredColumns lists the physical columns backing stored metrics, which
// defines the numeric part of the position schema.
func (s *MetricSet) StoredColumns() []string {
	var cols []string
	seen := make(map[string]bool)
	for _, name := range s.reg.Names() {
		metric, _ := s.reg.Get(name)
		switch m := metric.(type) {
		case StoredAmount:
			if !seen[m.Column()] {
				seen[m.Column()] = true
				cols = append(cols, m.Column())
			}
		case StoredWeight:
			if !seen[m.Column()] {
				seen[m.Column()] = true
				cols = append(cols, m.Column())
			}
		}
	}
	return cols
}
