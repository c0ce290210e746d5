// Command bankproj projects a bank balance sheet over a time horizon under
// one or more scenarios and reports the resulting balance sheet, P&L,
// cashflows and profitability per step.
//
// Usage:
//
//	bankproj run --horizon-months 12
//	bankproj run --config config.yaml --start 2024-12-31 --wal-dir ./wal/runs
//	bankproj validate --config config.yaml
package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rkooijman/bankproj/config"
	"github.com/rkooijman/bankproj/internal/projection"
	"github.com/rkooijman/bankproj/internal/storage/runs"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

var (
	runConfigPath    string
	runStart         string
	runHorizonMonths int
	runWALDir        string

	validateConfigPath string
	validateStart      string
)

var rootCmd = &cobra.Command{
	Use:   "bankproj",
	Short: "Bank balance sheet projection engine",
	Long: `bankproj projects a bank balance sheet over a monthly horizon under
named scenarios: run-off, accrual, coupon payments, revaluation, tax and
profit appropriation, with per-step reconciliation of the balance sheet
against its P&L, cashflow and OCI ledgers.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Project the demo balance sheet over the horizon",
	RunE:  runRun,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Build the opening balance sheet and check its reconciliation",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)

	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Path to a YAML configuration file (defaults to the built-in configuration)")
	runCmd.Flags().StringVar(&runStart, "start", "", "Opening date in 2006-01-02 form (defaults to the last completed month end)")
	runCmd.Flags().IntVar(&runHorizonMonths, "horizon-months", 12, "Number of monthly projection steps")
	runCmd.Flags().StringVar(&runWALDir, "wal-dir", "", "Directory for run persistence (empty disables persistence)")

	validateCmd.Flags().StringVar(&validateConfigPath, "config", "", "Path to a YAML configuration file (defaults to the built-in configuration)")
	validateCmd.Flags().StringVar(&validateStart, "start", "", "Opening date in 2006-01-02 form (defaults to the last completed month end)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func openingDate(flag string) (timeutil.Date, error) {
	if flag != "" {
		return timeutil.ParseDate(flag)
	}
	today := timeutil.FromTime(time.Now())
	if today.IsEndOfMonth() {
		return today, nil
	}
	return today.AddMonths(-1).EndOfMonth(), nil
}

func runRun(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig(runConfigPath)
	if err != nil {
		return err
	}
	asOf, err := openingDate(runStart)
	if err != nil {
		return err
	}

	bs, err := demoSheet(cfg, asOf)
	if err != nil {
		return err
	}
	scenarios, err := demoScenarios(asOf)
	if err != nil {
		return err
	}
	horizon, err := timeutil.FromCounts(asOf, timeutil.HorizonCounts{Months: runHorizonMonths})
	if err != nil {
		return err
	}

	result, err := projection.New(scenarios, horizon, logger).Run(cmd.Context(), bs)
	if err != nil {
		return err
	}

	if runWALDir != "" {
		store, err := runs.NewWALStore(runWALDir)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveResult(result); err != nil {
			return err
		}
		logger.Info("run persisted", zap.String("dir", runWALDir), zap.Uint64("index", store.CurrentIndex()))
	}

	return printSummary(os.Stdout, result)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(validateConfigPath)
	if err != nil {
		return err
	}
	asOf, err := openingDate(validateStart)
	if err != nil {
		return err
	}

	bs, err := demoSheet(cfg, asOf)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "SIDE\tITEM\tQUANTITY\tBOOK VALUE\n")
	for _, row := range bs.Aggregate(cfg.BalanceSheetAggregationLabels) {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\n",
			row.Labels["BalanceSheetSide"], row.Labels["ItemType"], row.Quantity, row.BookValue)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nbalance sheet as of %s reconciles\n", asOf)
	return nil
}

func printSummary(out *os.File, result *projection.Result) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "SCENARIO\tDATE\tTOTAL ASSETS\tTOTAL EQUITY\tTREA\tHQLA\n")
	for _, scenario := range result.Scenarios {
		last := scenario.Steps[len(scenario.Steps)-1]
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.0f\t%.0f\t%.0f\n",
			scenario.Name, last.Date,
			last.Metrics["Total Assets"], last.Metrics["Total Equity"],
			last.Metrics["TREA"], last.Metrics["HQLA"])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "SCENARIO\tOUTLOOK\tNET INCOME\tROA\tROE\tNIM\n")
	for _, scenario := range result.Scenarios {
		for _, row := range scenario.Profitability {
			fmt.Fprintf(w, "%s\t%s\t%.0f\t%.2f%%\t%.2f%%\t%.2f%%\n",
				scenario.Name, row.Outlook, row.NetIncome,
				100*row.ReturnOnAssets, 100*row.ReturnOnEquity, 100*row.NetInterestMargin)
		}
	}
	return w.Flush()
}
