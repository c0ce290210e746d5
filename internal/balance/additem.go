package balance

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/timeutil"
)

// AddItemRequest describes new business to append to the sheet. Template
// rows are selected by Base; their constant non-numeric attributes carry
// over, overridden by Labels. Metrics maps metric names to the aggregate
// amounts of the new cohort and must include Quantity.
type AddItemRequest struct {
	Base        Item
	Labels      map[string]string
	Metrics     map[string]float64
	Origination timeutil.Date
	Maturity    timeutil.Date

	// Optional ledger bookings accompanying the production.
	PnLs      []GroupedAmount
	Cashflows []GroupedAmount
}

// AddItem creates one new position per distinct attribute group of the
// template rows, sized by the requested metrics.
func (bs *BalanceSheet) AddItem(req AddItemRequest, reason Reason) error {
	mask := req.Base.MaskOf(bs.table)
	if !mask.Any() {
		return errors.Wrapf(ErrNoMatchingPositions, "add item from %s", req.Base)
	}

	quantityMetric, _ := bs.metrics.Get("Quantity")
	if templateQuantity := quantityMetric.Aggregate(bs.table, mask); templateQuantity == 0 {
		return errors.Wrapf(ErrNoMatchingPositions,
			"add item from %s: template rows sum to zero quantity", req.Base)
	}
	if _, ok := req.Metrics["Quantity"]; !ok {
		return errors.Errorf("add item from %s: an explicit Quantity metric is required", req.Base)
	}

	mutables, err := bs.resolveProductionMetrics(req.Metrics)
	if err != nil {
		return errors.Wrapf(err, "add item from %s", req.Base)
	}

	groups, order := bs.groupTemplates(mask, req.Labels)

	newRows := make([]*Position, 0, len(order))
	startIdx := bs.table.Len()
	for _, key := range order {
		template := groups[key]
		row := bs.newProductionRow(template, req)
		newRows = append(newRows, row)
	}
	bs.table.Append(newRows...)

	// Size the cohort: each requested metric's aggregate over the new rows
	// is set to the requested amount.
	newMask := make(Mask, bs.table.Len())
	for i := startIdx; i < bs.table.Len(); i++ {
		newMask[i] = true
	}
	bs.applyProductionMetric(newMask, mutables["Quantity"], req.Metrics["Quantity"])
	for name, metric := range mutables {
		if name == "Quantity" {
			continue
		}
		bs.applyProductionMetric(newMask, metric, req.Metrics[name])
	}

	if len(req.PnLs) > 0 {
		if err := bs.AddPnL(req.PnLs, reason); err != nil {
			return errors.Wrap(err, "add item pnl")
		}
	}
	if len(req.Cashflows) > 0 {
		if err := bs.AddLiquidity(req.Cashflows, reason); err != nil {
			return errors.Wrap(err, "add item cashflow")
		}
	}
	return nil
}

// resolveProductionMetrics maps the requested metric names to mutable
// metrics, rejecting pairs that write the same column (for instance
// Impairment together with CoverageRate).
func (bs *BalanceSheet) resolveProductionMetrics(requested map[string]float64) (map[string]MutableMetric, error) {
	out := make(map[string]MutableMetric, len(requested))
	byColumn := make(map[string]string, len(requested))
	for name := range requested {
		metric, err := bs.metrics.Mutable(name)
		if err != nil {
			return nil, err
		}
		if other, ok := byColumn[metric.Column()]; ok {
			return nil, errors.Wrapf(ErrConflictingMetrics, "%s and %s both write %s",
				other, name, metric.Column())
		}
		byColumn[metric.Column()] = name
		out[name] = metric
	}
	return out, nil
}

// groupTemplates buckets the selected rows by their label attributes after
// applying the new label overrides.
func (bs *BalanceSheet) groupTemplates(mask Mask, overrides map[string]string) (map[string]*Position, []string) {
	groups := make(map[string]*Position)
	var order []string
	for i, row := range bs.table.Rows() {
		if !mask[i] {
			continue
		}
		labels := make(map[string]string, len(row.Labels))
		for _, col := range bs.cfg.LabelColumns {
			labels[col] = row.Label(col)
		}
		for col, v := range overrides {
			labels[col] = v
		}
		key := ""
		for _, col := range bs.cfg.LabelColumns {
			key += labels[col] + "|"
		}
		if _, ok := groups[key]; !ok {
			template := NewPosition()
			template.Labels = labels
			groups[key] = template
			order = append(order, key)
		}
	}
	return groups, order
}

// newProductionRow builds one empty-sized new position from a template
// attribute group.
func (bs *BalanceSheet) newProductionRow(template *Position, req AddItemRequest) *Position {
	row := NewPosition()
	for k, v := range template.Labels {
		row.Labels[k] = v
	}
	for _, col := range bs.cfg.ValueColumns {
		row.Values[col] = 0
	}
	row.Values["CleanPrice"] = 1
	row.Dates["OriginationDate"] = req.Origination
	row.Dates["MaturityDate"] = req.Maturity
	return row
}

func (bs *BalanceSheet) applyProductionMetric(mask Mask, metric MutableMetric, amount float64) {
	values := metric.MutationValues(bs.table, mask, amount)
	for i, row := range bs.table.Rows() {
		if mask[i] {
			row.Values[metric.Column()] = values[i]
		}
	}
}
