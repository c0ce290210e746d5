// Package config holds the immutable process configuration: the position
// schema (label, date and numeric columns), classification domains,
// aggregation label sets, synthetic account identities and profitability
// outlooks. A Config is built once at startup and injected into the
// balance sheet and projection constructors; it is never re-read mid-run.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Tolerance is the absolute tolerance of the reconciliation invariants.
const Tolerance = 0.01

// Accounts names the item types of the synthetic bookkeeping positions.
type Accounts struct {
	Cash             string `yaml:"cash"`
	PnL              string `yaml:"pnl"`
	RetainedEarnings string `yaml:"retained_earnings"`
	OCI              string `yaml:"oci"`
	Dividend         string `yaml:"dividend"`
}

// Outlook is one profitability reporting window.
type Outlook struct {
	Name   string `yaml:"name"`
	Months int    `yaml:"months"`
}

// Config is the full process configuration. Treat as read-only after Load.
type Config struct {
	// BalanceSheetLabels are the label columns an Item may select on.
	BalanceSheetLabels []string `yaml:"balance_sheet_labels"`

	// Aggregation label sets for per-increment output tables.
	BalanceSheetAggregationLabels []string `yaml:"balance_sheet_aggregation_labels"`
	PnLAggregationLabels          []string `yaml:"pnl_aggregation_labels"`
	CashflowAggregationLabels     []string `yaml:"cashflow_aggregation_labels"`

	// Classifications maps a label column to its registered value domain.
	Classifications map[string][]string `yaml:"classifications"`

	// Exact position schema. Every row carries exactly these label and
	// numeric columns; date columns may be null unless listed non-null.
	LabelColumns []string `yaml:"label_columns"`
	DateColumns  []string `yaml:"date_columns"`
	ValueColumns []string `yaml:"value_columns"`

	NonNullLabels []string `yaml:"non_null_labels"`
	NonNullDates  []string `yaml:"non_null_dates"`

	Accounts Accounts  `yaml:"accounts"`
	Outlooks []Outlook `yaml:"outlooks"`
}

// Default is the built-in schema, mirrored by the YAML config file format.
func Default() *Config {
	return &Config{
		BalanceSheetLabels:            []string{"BalanceSheetSide", "ItemType", "Currency", "Book"},
		BalanceSheetAggregationLabels: []string{"BalanceSheetSide", "ItemType"},
		PnLAggregationLabels:          []string{"ItemType"},
		CashflowAggregationLabels:     []string{"ItemType"},
		Classifications: map[string][]string{
			"BalanceSheetSide": {"Assets", "Liabilities", "Equity", "Derivatives", "Collateral"},
			"AccountingMethod": {"AmortizedCost", "FairValuePnL", "FairValueOCI"},
			"ValuationMethod":  {"none", "baseline", "discounted"},
			"RedemptionType":   {"bullet", "annuity", "linear", "perpetual", "notional", "manual"},
			"CouponFrequency":  {"Daily", "Weekly", "Monthly", "Quarterly", "SemiAnnual", "Annual", "Never"},
			"CouponType":       {"fixed", "floating", "zero", "none"},
			"AccrualMethod":    {"Recalculate", "DailyAccumulating", "None"},
			"DaycountBasis":    {"Actual/360", "Actual/365 Fixed", "Actual/365.25", "Actual/Actual", "30/360", "30E/360", "30E/360 ISDA"},
			"HQLAClass":        {"Level 1", "Level 2A", "Level 2B corporate", "Level 2B equity", "Non-HQLA", "N/a"},
			"IFRS9Stage":       {"1", "2", "3", "Poci", "N/a"},
			"Book":             {"old", "new"},
		},
		LabelColumns: []string{
			"BalanceSheetSide", "ItemType", "Currency", "Book",
			"AccountingMethod", "ValuationMethod", "RedemptionType",
			"CouponFrequency", "CouponType", "AccrualMethod", "DaycountBasis",
			"ReferenceRate", "ValuationCurve", "HQLAClass", "IFRS9Stage",
		},
		DateColumns: []string{
			"OriginationDate", "MaturityDate", "PreviousCouponDate", "NextCouponDate",
		},
		ValueColumns: []string{
			"Quantity", "Impairment", "AccruedInterest", "Undrawn", "Agio",
			"CleanPrice", "OffBalance", "ValuationError",
			"Spread", "InterestRate", "PrepaymentRate", "CCF",
			"TREAWeight", "EncumberedWeight", "StableFundingWeight", "StressedOutflowWeight",
			"TaxRate",
		},
		NonNullLabels: []string{
			"BalanceSheetSide", "ItemType", "AccountingMethod", "ValuationMethod",
			"RedemptionType", "CouponFrequency", "AccrualMethod",
		},
		NonNullDates: []string{"OriginationDate"},
		Accounts: Accounts{
			Cash:             "Cash",
			PnL:              "Unaudited earnings",
			RetainedEarnings: "Retained earnings",
			OCI:              "Other comprehensive income",
			Dividend:         "Dividends payable",
		},
		Outlooks: []Outlook{
			{Name: "quarterly", Months: 3},
			{Name: "annual", Months: 12},
		},
	}
}

// Load reads a YAML configuration file. Fields absent from the file keep
// their Default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate checks internal consistency of the configuration.
func (c *Config) Validate() error {
	labels := make(map[string]bool, len(c.LabelColumns))
	for _, col := range c.LabelColumns {
		labels[col] = true
	}
	for col := range c.Classifications {
		if !labels[col] {
			return errors.Errorf("classification column %q is not a label column", col)
		}
	}
	for _, col := range c.BalanceSheetLabels {
		if !labels[col] {
			return errors.Errorf("balance sheet label %q is not a label column", col)
		}
	}
	for _, col := range c.NonNullLabels {
		if !labels[col] {
			return errors.Errorf("non-null label %q is not a label column", col)
		}
	}
	dates := make(map[string]bool, len(c.DateColumns))
	for _, col := range c.DateColumns {
		dates[col] = true
	}
	for _, col := range c.NonNullDates {
		if !dates[col] {
			return errors.Errorf("non-null date %q is not a date column", col)
		}
	}
	for _, outlook := range c.Outlooks {
		if outlook.Months <= 0 {
			return errors.Errorf("outlook %q must cover at least one month", outlook.Name)
		}
	}
	return nil
}

// IsLabelColumn reports whether col is part of the label schema.
func (c *Config) IsLabelColumn(col string) bool {
	return contains(c.LabelColumns, col)
}

// IsDateColumn reports whether col is part of the date schema.
func (c *Config) IsDateColumn(col string) bool {
	return contains(c.DateColumns, col)
}

// IsValueColumn reports whether col is part of the numeric schema.
func (c *Config) IsValueColumn(col string) bool {
	return contains(c.ValueColumns, col)
}

func contains(cols []string, col string) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}
