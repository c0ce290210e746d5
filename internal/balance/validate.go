package balance

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/config"
	"github.com/rkooijman/bankproj/internal/conventions"
	"github.com/rkooijman/bankproj/internal/registry"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// sampleRows caps how many offending rows a validation message lists.
const sampleRows = 3

// Validate checks the sheet in a fixed order: non-emptiness,
// classification-domain membership, the exact column schema, non-null
// constraints, redemption-type column requirements and finally the three
// reconciliation invariants. The first failing check aborts with the
// offending columns and values listed; validation never mutates state.
func (bs *BalanceSheet) Validate() error {
	if bs.table.Len() == 0 {
		return errors.Wrap(ErrSchema, "balance sheet has no positions")
	}
	if err := bs.validateClassifications(); err != nil {
		return err
	}
	if err := bs.validateSchema(); err != nil {
		return err
	}
	if err := bs.validateNonNull(); err != nil {
		return err
	}
	if err := bs.validateRedemptionRequirements(); err != nil {
		return err
	}
	return bs.validateReconciliation()
}

func (bs *BalanceSheet) validateClassifications() error {
	domains := make(map[string]map[string]bool, len(bs.cfg.Classifications))
	for col, values := range bs.cfg.Classifications {
		domain := make(map[string]bool, len(values))
		for _, v := range values {
			domain[registry.CleanIdentifier(v)] = true
		}
		domains[col] = domain
	}

	invalid := make(map[string]map[string]bool)
	for _, row := range bs.table.Rows() {
		for col, domain := range domains {
			value := row.Label(col)
			if value == "" {
				continue // null, handled by the non-null check
			}
			if !domain[registry.CleanIdentifier(value)] {
				if invalid[col] == nil {
					invalid[col] = make(map[string]bool)
				}
				invalid[col][value] = true
			}
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	var parts []string
	for _, col := range sortedKeys(invalid) {
		values := make([]string, 0, len(invalid[col]))
		for v := range invalid[col] {
			values = append(values, fmt.Sprintf("%q", v))
		}
		sort.Strings(values)
		parts = append(parts, fmt.Sprintf("%s: %s", col, strings.Join(values, ", ")))
	}
	return errors.Wrapf(ErrSchema, "values outside classification domain: %s", strings.Join(parts, "; "))
}

func (bs *BalanceSheet) validateSchema() error {
	labelSet := toSet(bs.cfg.LabelColumns)
	valueSet := toSet(bs.cfg.ValueColumns)
	dateSet := toSet(bs.cfg.DateColumns)

	for i, row := range bs.table.Rows() {
		if missing := missingColumns(bs.cfg.LabelColumns, stringKeys(row.Labels)); len(missing) > 0 {
			return errors.Wrapf(ErrSchema, "row %d: missing label columns %s", i, strings.Join(missing, ", "))
		}
		if extra := extraColumns(labelSet, stringKeys(row.Labels)); len(extra) > 0 {
			return errors.Wrapf(ErrSchema, "row %d: unexpected label columns %s", i, strings.Join(extra, ", "))
		}
		if missing := missingColumns(bs.cfg.ValueColumns, floatKeys(row.Values)); len(missing) > 0 {
			return errors.Wrapf(ErrSchema, "row %d: missing numeric columns %s", i, strings.Join(missing, ", "))
		}
		if extra := extraColumns(valueSet, floatKeys(row.Values)); len(extra) > 0 {
			return errors.Wrapf(ErrSchema, "row %d: unexpected numeric columns %s", i, strings.Join(extra, ", "))
		}
		if extra := extraColumns(dateSet, dateKeys(row.Dates)); len(extra) > 0 {
			return errors.Wrapf(ErrSchema, "row %d: unexpected date columns %s", i, strings.Join(extra, ", "))
		}
	}
	return nil
}

func (bs *BalanceSheet) validateNonNull() error {
	for i, row := range bs.table.Rows() {
		for _, col := range bs.cfg.NonNullLabels {
			if row.Label(col) == "" {
				return errors.Wrapf(ErrSchema, "row %d: null value in non-null label column %s", i, col)
			}
		}
		for _, col := range bs.cfg.NonNullDates {
			if row.Date(col).IsZero() {
				return errors.Wrapf(ErrSchema, "row %d: null value in non-null date column %s", i, col)
			}
		}
		for _, col := range bs.cfg.ValueColumns {
			if math.IsNaN(row.Value(col)) {
				return errors.Wrapf(ErrSchema, "row %d: NaN in numeric column %s", i, col)
			}
		}
	}
	return nil
}

// validateRedemptionRequirements aggregates the per-redemption-type column
// requirements into per-rule failure counts with sample offending rows.
func (bs *BalanceSheet) validateRedemptionRequirements() error {
	type failure struct {
		count   int
		samples []int
	}
	failures := make(map[string]*failure)
	var order []string

	for i, row := range bs.table.Rows() {
		redemption, ok := conventions.RedemptionTypes.Lookup(row.Label("RedemptionType"))
		if !ok {
			continue // outside the domain check's scope here, dispatch defaults
		}
		redemptionRow := redemptionRowOf(row)
		for _, req := range redemption.Requirements() {
			if req.Holds(redemptionRow, bs.date) {
				continue
			}
			key := row.Label("RedemptionType") + ": " + req.Name
			f, ok := failures[key]
			if !ok {
				f = &failure{}
				failures[key] = f
				order = append(order, key)
			}
			f.count++
			if len(f.samples) < sampleRows {
				f.samples = append(f.samples, i)
			}
		}
	}
	if len(failures) == 0 {
		return nil
	}
	parts := make([]string, 0, len(order))
	for _, key := range order {
		f := failures[key]
		parts = append(parts, fmt.Sprintf("%s (%d rows, e.g. %v)", key, f.count, f.samples))
	}
	return errors.Wrapf(ErrSchema, "redemption requirements violated: %s", strings.Join(parts, "; "))
}

// redemptionRowOf projects a position onto the fields redemption types and
// their requirements read.
func redemptionRowOf(p *Position) conventions.RedemptionRow {
	return conventions.RedemptionRow{
		Maturity:        p.Date("MaturityDate"),
		NextCoupon:      p.Date("NextCouponDate"),
		CouponFrequency: p.Label("CouponFrequency"),
		InterestRate:    p.Value("InterestRate"),
		HasInterestRate: !isNull(p.Values, "InterestRate"),
	}
}

// validateReconciliation enforces the three accounting identities within
// the configured tolerance.
func (bs *BalanceSheet) validateReconciliation() error {
	signedTotal := 0.0
	for _, row := range bs.table.Rows() {
		v, _ := SignedBookValue(row)
		signedTotal += v
	}
	if math.Abs(signedTotal) > config.Tolerance {
		return errors.Wrapf(ErrReconciliation,
			"balance sheet does not balance: signed book value totals %.4f, expected 0.00", signedTotal)
	}

	pnlBV, err := bs.GetAmount(bs.pnlAccount, "BookValue")
	if err != nil {
		return err
	}
	if diff := pnlBV + bs.pnl.TotalFloat(); math.Abs(diff) > config.Tolerance {
		return errors.Wrapf(ErrReconciliation,
			"pnl account book value %.4f does not offset pnl ledger total %.4f", pnlBV, bs.pnl.TotalFloat())
	}

	cashBV, err := bs.GetAmount(bs.cashAccount, "BookValue")
	if err != nil {
		return err
	}
	if diff := cashBV - bs.cashflow.TotalFloat(); math.Abs(diff) > config.Tolerance {
		return errors.Wrapf(ErrReconciliation,
			"cash account book value %.4f does not match cashflow ledger total %.4f", cashBV, bs.cashflow.TotalFloat())
	}
	return nil
}

func toSet(cols []string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	return set
}

func missingColumns(required []string, present []string) []string {
	set := make(map[string]bool, len(present))
	for _, c := range present {
		set[c] = true
	}
	var missing []string
	for _, c := range required {
		if !set[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

func extraColumns(allowed map[string]bool, present []string) []string {
	var extra []string
	for _, c := range present {
		if !allowed[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return extra
}

func stringKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func floatKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func dateKeys(m map[string]timeutil.Date) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
