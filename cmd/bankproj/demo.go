package main

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/config"
	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/projection"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// demoPosition builds a schema-complete row with the synthetic account
// defaults; callers override the instrument attributes.
func demoPosition(cfg *config.Config, asOf timeutil.Date, side, itemType string, quantity float64) *balance.Position {
	p := balance.NewPosition()
	p.Labels["BalanceSheetSide"] = side
	p.Labels["ItemType"] = itemType
	p.Labels["Currency"] = "EUR"
	p.Labels["Book"] = "old"
	p.Labels["AccountingMethod"] = "AmortizedCost"
	p.Labels["ValuationMethod"] = "none"
	p.Labels["RedemptionType"] = "perpetual"
	p.Labels["CouponFrequency"] = "Never"
	p.Labels["CouponType"] = "none"
	p.Labels["AccrualMethod"] = "None"
	p.Labels["DaycountBasis"] = "Actual/365.25"
	p.Labels["ReferenceRate"] = ""
	p.Labels["ValuationCurve"] = ""
	p.Labels["HQLAClass"] = "N/a"
	p.Labels["IFRS9Stage"] = "N/a"
	for _, col := range cfg.ValueColumns {
		p.Values[col] = 0
	}
	p.Values["Quantity"] = quantity
	p.Values["CleanPrice"] = 1
	p.Dates["OriginationDate"] = asOf.AddMonths(-12)
	return p
}

// demoSheet builds a small but representative opening balance sheet: an
// amortized-cost loan book, a fair-value bond portfolio, accumulating
// savings funding and the synthetic accounts, funded through retained
// earnings so the opening state balances.
func demoSheet(cfg *config.Config, asOf timeutil.Date) (*balance.BalanceSheet, error) {
	loans := demoPosition(cfg, asOf, "Assets", "Loans", 800_000_000)
	loans.Labels["RedemptionType"] = "bullet"
	loans.Labels["CouponFrequency"] = "Quarterly"
	loans.Labels["CouponType"] = "fixed"
	loans.Labels["AccrualMethod"] = "Recalculate"
	loans.Values["InterestRate"] = 0.04
	loans.Values["Impairment"] = -4_000_000
	loans.Values["PrepaymentRate"] = 0.02
	loans.Dates["MaturityDate"] = asOf.AddMonths(24)
	loans.Dates["PreviousCouponDate"] = asOf
	loans.Dates["NextCouponDate"] = asOf.AddMonths(3)

	mortgages := demoPosition(cfg, asOf, "Assets", "Mortgages", 1_200_000_000)
	mortgages.Labels["RedemptionType"] = "annuity"
	mortgages.Labels["CouponFrequency"] = "Monthly"
	mortgages.Labels["CouponType"] = "fixed"
	mortgages.Labels["AccrualMethod"] = "Recalculate"
	mortgages.Values["InterestRate"] = 0.035
	mortgages.Values["PrepaymentRate"] = 0.05
	mortgages.Dates["MaturityDate"] = asOf.AddMonths(300)
	mortgages.Dates["PreviousCouponDate"] = asOf
	mortgages.Dates["NextCouponDate"] = asOf.AddMonths(1)

	bonds := demoPosition(cfg, asOf, "Assets", "Bonds", 300_000_000)
	bonds.Labels["AccountingMethod"] = "FairValueOCI"
	bonds.Labels["ValuationMethod"] = "discounted"
	bonds.Labels["ValuationCurve"] = "EUR govt"
	bonds.Labels["RedemptionType"] = "bullet"
	bonds.Labels["CouponFrequency"] = "Annual"
	bonds.Labels["CouponType"] = "fixed"
	bonds.Labels["AccrualMethod"] = "Recalculate"
	bonds.Labels["HQLAClass"] = "Level 1"
	bonds.Values["InterestRate"] = 0.025
	bonds.Values["CleanPrice"] = 0.97
	bonds.Dates["MaturityDate"] = asOf.AddMonths(60)
	bonds.Dates["PreviousCouponDate"] = asOf
	bonds.Dates["NextCouponDate"] = asOf.AddMonths(12)

	savings := demoPosition(cfg, asOf, "Liabilities", "Savings", 1_500_000_000)
	savings.Labels["CouponFrequency"] = "Monthly"
	savings.Labels["AccrualMethod"] = "DailyAccumulating"
	savings.Values["InterestRate"] = 0.015

	funding := demoPosition(cfg, asOf, "Liabilities", "Wholesale funding", 500_000_000)
	funding.Labels["RedemptionType"] = "bullet"
	funding.Labels["CouponFrequency"] = "SemiAnnual"
	funding.Labels["CouponType"] = "floating"
	funding.Labels["AccrualMethod"] = "Recalculate"
	funding.Labels["ReferenceRate"] = "Euribor 3m"
	funding.Values["InterestRate"] = 0.03
	funding.Values["Spread"] = 0.01
	funding.Dates["MaturityDate"] = asOf.AddMonths(48)
	funding.Dates["PreviousCouponDate"] = asOf
	funding.Dates["NextCouponDate"] = asOf.AddMonths(6)

	cash := demoPosition(cfg, asOf, "Assets", cfg.Accounts.Cash, 100_000_000)
	cash.Labels["HQLAClass"] = "Level 1"

	rows := []*balance.Position{loans, mortgages, bonds, savings, funding, cash}
	var equity float64
	for _, p := range rows {
		bv := p.Values["Quantity"] + p.Values["AccruedInterest"] + p.Values["Agio"] + p.Values["Impairment"]
		if p.Labels["AccountingMethod"] != "AmortizedCost" {
			bv = p.Values["Quantity"]*p.Values["CleanPrice"] + p.Values["AccruedInterest"] + p.Values["Agio"]
		}
		if p.Labels["BalanceSheetSide"] == "Liabilities" {
			bv = -bv
		}
		equity += bv
	}
	rows = append(rows,
		demoPosition(cfg, asOf, "Equity", cfg.Accounts.RetainedEarnings, equity),
		demoPosition(cfg, asOf, "Equity", cfg.Accounts.PnL, 0),
		demoPosition(cfg, asOf, "Equity", cfg.Accounts.OCI, 0),
		demoPosition(cfg, asOf, "Liabilities", cfg.Accounts.Dividend, 0),
	)

	bs, err := balance.NewBalanceSheet(cfg, balance.NewTable(rows...), asOf, nil)
	return bs, errors.Wrap(err, "demo balance sheet")
}

// demoMarket quotes a flat money-market fixing and a gently upward sloping
// government curve at the opening date.
func demoMarket(asOf timeutil.Date) (*marketdata.MarketData, error) {
	curves, err := marketdata.NewCurveData([]marketdata.CurvePoint{
		{Date: asOf, Name: "Euribor", Type: marketdata.TypeSpot, Tenor: "3m", Rate: 0.028},
		{Date: asOf, Name: "EUR govt", Type: marketdata.TypeZero, Maturity: "1y", Rate: 0.025},
		{Date: asOf, Name: "EUR govt", Type: marketdata.TypeZero, Maturity: "5y", Rate: 0.029},
		{Date: asOf, Name: "EUR govt", Type: marketdata.TypeZero, Maturity: "10y", Rate: 0.032},
	})
	if err != nil {
		return nil, errors.Wrap(err, "demo market data")
	}
	return marketdata.NewMarketData(curves), nil
}

// demoScenarios pairs the baseline run-off scenario with a parallel rate
// shock derived from it.
func demoScenarios(asOf timeutil.Date) ([]*projection.Scenario, error) {
	market, err := demoMarket(asOf)
	if err != nil {
		return nil, err
	}
	base := projection.NewScenario("base", market,
		projection.NamedRule{Name: "accrual", Rule: projection.Accrual{}},
		projection.NamedRule{Name: "runoff", Rule: projection.Runoff{}},
		projection.NamedRule{Name: "valuation", Rule: projection.Valuation{}},
		projection.NamedRule{Name: "tax", Rule: projection.Tax{Rate: 0.25}},
		projection.NamedRule{Name: "audit", Rule: projection.Audit{ClosingMonth: 12, AuditMonth: 5}},
	)

	shocked, err := marketdata.NewCurveData([]marketdata.CurvePoint{
		{Date: asOf.AddDays(1), Name: "Euribor", Type: marketdata.TypeSpot, Tenor: "3m", Rate: 0.048},
		{Date: asOf.AddDays(1), Name: "EUR govt", Type: marketdata.TypeZero, Maturity: "1y", Rate: 0.045},
		{Date: asOf.AddDays(1), Name: "EUR govt", Type: marketdata.TypeZero, Maturity: "5y", Rate: 0.049},
		{Date: asOf.AddDays(1), Name: "EUR govt", Type: marketdata.TypeZero, Maturity: "10y", Rate: 0.052},
	})
	if err != nil {
		return nil, errors.Wrap(err, "rate shock curve")
	}
	stress := base.Combine(projection.NewScenario("rates-up", marketdata.NewMarketData(shocked)))

	return []*projection.Scenario{base, stress}, nil
}
