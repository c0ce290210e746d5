package projection

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// Audit closes the audited part of unaudited earnings into retained
// earnings. The audit happens at each month-end of AuditMonth inside the
// step and covers earnings originated up to the books' closing month,
// ClosingMonth end-of-month (AuditMonth - ClosingMonth) months earlier.
type Audit struct {
	ClosingMonth int
	AuditMonth   int
}

func (r Audit) Apply(bs *balance.BalanceSheet, increment timeutil.TimeIncrement, _ *marketdata.Rates) error {
	var auditDate timeutil.Date
	for current := increment.To; current.After(increment.From); current = current.AddMonths(-1).EndOfMonth() {
		if int(current.Month()) == r.AuditMonth && current.IsEndOfMonth() {
			auditDate = current
			break
		}
	}
	if auditDate.IsZero() {
		return nil
	}
	monthsBack := ((r.AuditMonth-r.ClosingMonth)%12 + 12) % 12
	closingDate := auditDate.AddMonths(-monthsBack).EndOfMonth()

	item := bs.PnLAccount().WithPredicate(func(p *balance.Position) bool {
		origination := p.Date("OriginationDate")
		return origination.IsZero() || !origination.After(closingDate)
	})
	if !item.MaskOf(bs.Table()).Any() {
		return nil
	}
	audited, err := bs.GetAmount(item, "Quantity")
	if err != nil {
		return errors.Wrap(err, "audit")
	}
	if audited == 0 {
		return nil
	}

	reason := balance.NewReason("Audit", "Profit appropriation").WithDate(auditDate)
	pnlType, _ := bs.PnLAccount().Identifier("ItemType")
	if err := bs.AddSinglePnL(-audited, reason, map[string]string{"ItemType": pnlType}); err != nil {
		return errors.Wrap(err, "audit")
	}
	err = bs.MutateMetric(bs.RetainedEarningsAccount(), "Quantity", audited, reason,
		balance.MutateOptions{Relative: true})
	return errors.Wrap(err, "audit")
}
