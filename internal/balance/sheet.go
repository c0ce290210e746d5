package balance

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rkooijman/bankproj/config"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// BalanceSheet owns one position table dated to a projection date, the
// three ledgers and the synthetic bookkeeping accounts. Exactly one
// balance sheet is mutated in place per scenario per step; Copy branches
// an independent scenario.
//
// Ledger sign conventions follow the reconciliation identities: P&L
// entries carry the opposite sign of their equity impact (booking income x
// appends -x and credits the pnl account by x), cashflow entries are
// inflow-positive.
type BalanceSheet struct {
	cfg     *config.Config
	metrics *MetricSet
	table   *Table
	date    timeutil.Date

	cashAccount     Item
	pnlAccount      Item
	ociAccount      Item
	retainedAccount Item
	dividendAccount Item

	pnl      *Ledger
	cashflow *Ledger
	oci      *Ledger

	unmatched map[string]int
	logger    *zap.Logger
}

// NewBalanceSheet wires a table to the configured accounts and validates
// the opening state.
func NewBalanceSheet(cfg *config.Config, table *Table, date timeutil.Date, logger *zap.Logger) (*BalanceSheet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bs := &BalanceSheet{
		cfg:             cfg,
		metrics:         DefaultMetrics(),
		table:           table,
		date:            date,
		cashAccount:     NewItem(map[string]string{"ItemType": cfg.Accounts.Cash}),
		pnlAccount:      NewItem(map[string]string{"ItemType": cfg.Accounts.PnL}),
		ociAccount:      NewItem(map[string]string{"ItemType": cfg.Accounts.OCI}),
		retainedAccount: NewItem(map[string]string{"ItemType": cfg.Accounts.RetainedEarnings}),
		dividendAccount: NewItem(map[string]string{"ItemType": cfg.Accounts.Dividend}),
		pnl:             NewLedger("pnl"),
		cashflow:        NewLedger("cashflow"),
		oci:             NewLedger("oci"),
		unmatched:       make(map[string]int),
		logger:          logger,
	}
	if err := bs.Validate(); err != nil {
		return nil, errors.Wrap(err, "opening balance sheet")
	}
	return bs, nil
}

// Config exposes the injected configuration.
func (bs *BalanceSheet) Config() *config.Config { return bs.cfg }

// Metrics exposes the metric registry.
func (bs *BalanceSheet) Metrics() *MetricSet { return bs.metrics }

// Table exposes the position table.
func (bs *BalanceSheet) Table() *Table { return bs.table }

// Date is the projection date the sheet is currently valued at.
func (bs *BalanceSheet) Date() timeutil.Date { return bs.date }

// SetDate re-dates the sheet to a new projection date.
func (bs *BalanceSheet) SetDate(d timeutil.Date) { bs.date = d }

// CashAccount is the synthetic cash position selector.
func (bs *BalanceSheet) CashAccount() Item { return bs.cashAccount }

// PnLAccount is the synthetic unaudited-earnings position selector.
func (bs *BalanceSheet) PnLAccount() Item { return bs.pnlAccount }

// OCIAccount is the synthetic other-comprehensive-income selector.
func (bs *BalanceSheet) OCIAccount() Item { return bs.ociAccount }

// RetainedEarningsAccount is the retained-earnings selector.
func (bs *BalanceSheet) RetainedEarningsAccount() Item { return bs.retainedAccount }

// DividendAccount is the dividends-payable selector.
func (bs *BalanceSheet) DividendAccount() Item { return bs.dividendAccount }

// PnLLedger exposes the P&L audit trail.
func (bs *BalanceSheet) PnLLedger() *Ledger { return bs.pnl }

// CashflowLedger exposes the cashflow audit trail.
func (bs *BalanceSheet) CashflowLedger() *Ledger { return bs.cashflow }

// OCILedger exposes the OCI audit trail.
func (bs *BalanceSheet) OCILedger() *Ledger { return bs.oci }

// GetAmount aggregates a named metric over the selected rows.
func (bs *BalanceSheet) GetAmount(item Item, metricName string) (float64, error) {
	metric, err := bs.metrics.Get(metricName)
	if err != nil {
		return 0, err
	}
	return metric.Aggregate(bs.table, item.MaskOf(bs.table)), nil
}

// CountUnmatched records rows whose classification value fell through a
// registry dispatch to the default.
func (bs *BalanceSheet) CountUnmatched(registryName string, rows int) {
	if rows > 0 {
		bs.unmatched[registryName] += rows
	}
}

// DrainUnmatched returns and resets the unmatched-dispatch counters.
func (bs *BalanceSheet) DrainUnmatched() map[string]int {
	out := bs.unmatched
	bs.unmatched = make(map[string]int)
	return out
}

// GroupedAmount is one aggregation-label bucket a rule books against a
// ledger. Amounts are income-positive for P&L and OCI, inflow-positive for
// cashflow.
type GroupedAmount struct {
	Labels map[string]string
	Amount float64
}

// AddPnL books grouped income against the P&L ledger and credits the pnl
// account with the total.
func (bs *BalanceSheet) AddPnL(groups []GroupedAmount, reason Reason) error {
	return bs.bookLedger(bs.pnl, bs.pnlAccount, groups, reason, -1)
}

// AddSinglePnL books one income amount with explicit labels.
func (bs *BalanceSheet) AddSinglePnL(amount float64, reason Reason, labels map[string]string) error {
	return bs.AddPnL([]GroupedAmount{{Labels: labels, Amount: amount}}, reason)
}

// AddLiquidity books grouped cash inflows against the cashflow ledger and
// credits the cash account with the total.
func (bs *BalanceSheet) AddLiquidity(groups []GroupedAmount, reason Reason) error {
	return bs.bookLedger(bs.cashflow, bs.cashAccount, groups, reason, +1)
}

// AddSingleLiquidity books one cash inflow with explicit labels.
func (bs *BalanceSheet) AddSingleLiquidity(amount float64, reason Reason, labels map[string]string) error {
	return bs.AddLiquidity([]GroupedAmount{{Labels: labels, Amount: amount}}, reason)
}

// AddOCI books grouped comprehensive income against the OCI ledger and
// credits the OCI account with the total.
func (bs *BalanceSheet) AddOCI(groups []GroupedAmount, reason Reason) error {
	return bs.bookLedger(bs.oci, bs.ociAccount, groups, reason, -1)
}

// AddSingleOCI books one comprehensive-income amount.
func (bs *BalanceSheet) AddSingleOCI(amount float64, reason Reason, labels map[string]string) error {
	return bs.AddOCI([]GroupedAmount{{Labels: labels, Amount: amount}}, reason)
}

// bookLedger appends entries carrying entrySign times the credited amount
// and mutates the account quantity by the credited total.
func (bs *BalanceSheet) bookLedger(ledger *Ledger, account Item, groups []GroupedAmount, reason Reason, entrySign float64) error {
	total := 0.0
	entries := make([]Entry, 0, len(groups))
	for _, g := range groups {
		if g.Amount == 0 {
			continue
		}
		labels := make(map[string]string, len(g.Labels))
		for k, v := range g.Labels {
			labels[k] = v
		}
		entries = append(entries, Entry{
			Reason: reason,
			Labels: labels,
			Amount: decimal.NewFromFloat(entrySign * g.Amount),
			Date:   bs.date,
		})
		total += g.Amount
	}
	if len(entries) == 0 {
		return nil
	}
	if err := bs.shiftQuantity(account, total); err != nil {
		return errors.Wrapf(err, "book %s", ledger.Name())
	}
	ledger.Append(entries...)
	return nil
}

// shiftQuantity mutates an item's quantity relatively without offsets.
func (bs *BalanceSheet) shiftQuantity(item Item, amount float64) error {
	return bs.MutateMetric(item, "Quantity", amount, NewReason("balance", "account shift"), MutateOptions{Relative: true})
}

// Copy deep-copies the balance sheet to branch an independent scenario.
func (bs *BalanceSheet) Copy() *BalanceSheet {
	unmatched := make(map[string]int, len(bs.unmatched))
	for k, v := range bs.unmatched {
		unmatched[k] = v
	}
	return &BalanceSheet{
		cfg:             bs.cfg,
		metrics:         bs.metrics,
		table:           bs.table.Clone(),
		date:            bs.date,
		cashAccount:     bs.cashAccount,
		pnlAccount:      bs.pnlAccount,
		ociAccount:      bs.ociAccount,
		retainedAccount: bs.retainedAccount,
		dividendAccount: bs.dividendAccount,
		pnl:             bs.pnl.Clone(),
		cashflow:        bs.cashflow.Clone(),
		oci:             bs.oci.Clone(),
		unmatched:       unmatched,
		logger:          bs.logger,
	}
}

// AggregateRow is one output row of the per-increment balance sheet table.
type AggregateRow struct {
	Labels    map[string]string
	Quantity  float64
	BookValue float64
}

// Aggregate groups the position table by the given labels, summing quantity
// and unsigned book value per group in first-appearance order.
func (bs *BalanceSheet) Aggregate(labels []string) []AggregateRow {
	var order []string
	grouped := make(map[string]*AggregateRow)
	for _, row := range bs.table.Rows() {
		key := ""
		for _, col := range labels {
			key += col + "=" + row.Label(col) + "|"
		}
		agg, ok := grouped[key]
		if !ok {
			agg = &AggregateRow{Labels: make(map[string]string, len(labels))}
			for _, col := range labels {
				agg.Labels[col] = row.Label(col)
			}
			grouped[key] = agg
			order = append(order, key)
		}
		agg.Quantity += row.Value("Quantity")
		agg.BookValue += bookValueValue(row)
	}
	out := make([]AggregateRow, len(order))
	for i, key := range order {
		out[i] = *grouped[key]
	}
	return out
}
