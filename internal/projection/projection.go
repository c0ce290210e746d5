package projection

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// StepResult is the aggregated output of one scenario increment.
type StepResult struct {
	Scenario  string
	Increment timeutil.TimeIncrement
	Date      timeutil.Date

	BalanceSheet []balance.AggregateRow
	PnL          []balance.Group
	Cashflows    []balance.Group
	OCI          []balance.Group
	Metrics      map[string]float64
	Unmatched    map[string]int
}

// ScenarioResult collates one scenario's steps over the horizon.
type ScenarioResult struct {
	Name          string
	Steps         []StepResult
	Profitability []ProfitabilityRow
}

// Result holds every scenario's projected output, in scenario order.
type Result struct {
	Scenarios []ScenarioResult
}

// Scenario returns one scenario's result by name.
func (r *Result) Scenario(name string) (ScenarioResult, bool) {
	for _, s := range r.Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return ScenarioResult{}, false
}

// Projection drives the scenarios over the time horizon. Each scenario
// owns a private deep copy of the opening sheet; within a scenario the
// increments run strictly in order because every rule consumes the
// previous step's mutated output.
type Projection struct {
	scenarios []*Scenario
	horizon   timeutil.TimeHorizon
	logger    *zap.Logger
}

func New(scenarios []*Scenario, horizon timeutil.TimeHorizon, logger *zap.Logger) *Projection {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projection{scenarios: scenarios, horizon: horizon, logger: logger}
}

// Run projects the opening balance sheet under every scenario, one
// goroutine per scenario. The first failing scenario aborts the run and
// its error carries the scenario and increment that was executing.
func (p *Projection) Run(ctx context.Context, opening *balance.BalanceSheet) (*Result, error) {
	if len(p.scenarios) == 0 {
		return nil, errors.New("projection requires at least one scenario")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]ScenarioResult, len(p.scenarios))
	errs := make([]error, len(p.scenarios))

	var wg sync.WaitGroup
	for i, scenario := range p.scenarios {
		wg.Add(1)
		go func(i int, scenario *Scenario) {
			defer wg.Done()
			res, err := p.runScenario(ctx, scenario, opening.Copy())
			results[i] = res
			errs[i] = err
			if err != nil {
				cancel()
			}
		}(i, scenario)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return &Result{Scenarios: results}, nil
}

func (p *Projection) runScenario(ctx context.Context, scenario *Scenario, bs *balance.BalanceSheet) (ScenarioResult, error) {
	log := p.logger.With(zap.String("scenario", scenario.Name()))
	increments := p.horizon.Increments()
	result := ScenarioResult{Name: scenario.Name(), Steps: make([]StepResult, 0, len(increments))}

	for i, increment := range increments {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrapf(err, "scenario %s increment %s", scenario.Name(), increment)
		}
		log.Info("projecting increment",
			zap.Int("step", i+1),
			zap.Int("total", len(increments)),
			zap.String("from", increment.From.String()),
			zap.String("to", increment.To.String()))

		bs.SetDate(increment.To)
		rates := p.resolveRates(scenario, increment.To, log)

		if err := scenario.Apply(bs, increment, rates); err != nil {
			return result, errors.Wrapf(err, "scenario %s increment %s", scenario.Name(), increment)
		}

		step := p.collectStep(bs, scenario.Name(), increment)
		for registry, rows := range step.Unmatched {
			log.Warn("unmatched convention dispatch",
				zap.String("registry", registry),
				zap.Int("rows", rows),
				zap.String("date", increment.To.String()))
		}
		result.Steps = append(result.Steps, step)

		if err := bs.Validate(); err != nil {
			return result, errors.Wrapf(err, "scenario %s increment %s", scenario.Name(), increment)
		}
	}

	result.Profitability = calculateProfitability(bs.Config(), result.Steps)
	return result, nil
}

func (p *Projection) resolveRates(scenario *Scenario, date timeutil.Date, log *zap.Logger) *marketdata.Rates {
	market := scenario.MarketData()
	if market == nil {
		return nil
	}
	rates, err := market.RatesAt(date)
	if err != nil {
		log.Debug("no market snapshot", zap.String("date", date.String()), zap.Error(err))
		return nil
	}
	return rates
}

// collectStep aggregates the sheet and the step's ledger entries. Ledgers
// accumulate over the whole run, so the step's bookings are selected by
// their booking date.
func (p *Projection) collectStep(bs *balance.BalanceSheet, scenario string, increment timeutil.TimeIncrement) StepResult {
	cfg := bs.Config()
	date := increment.To
	return StepResult{
		Scenario:     scenario,
		Increment:    increment,
		Date:         date,
		BalanceSheet: bs.Aggregate(cfg.BalanceSheetAggregationLabels),
		PnL:          bs.PnLLedger().GroupBy(cfg.PnLAggregationLabels, bs.PnLLedger().OnDate(date)),
		Cashflows:    bs.CashflowLedger().GroupBy(cfg.CashflowAggregationLabels, bs.CashflowLedger().OnDate(date)),
		OCI:          bs.OCILedger().GroupBy(cfg.PnLAggregationLabels, bs.OCILedger().OnDate(date)),
		Metrics:      reportMetrics(bs),
		Unmatched:    bs.DrainUnmatched(),
	}
}

// reportMetrics computes the registry of headline metrics published with
// every step.
func reportMetrics(bs *balance.BalanceSheet) map[string]float64 {
	all := balance.NewItem(nil)
	assets := balance.NewItem(map[string]string{"BalanceSheetSide": "Assets"})
	equity := balance.NewItem(map[string]string{"BalanceSheetSide": "Equity"})

	out := make(map[string]float64, 6)
	for name, pair := range map[string]struct {
		item   balance.Item
		metric string
	}{
		"Total Assets": {assets, "BookValue"},
		"Total Equity": {equity, "BookValue"},
		"TREA":         {all, "TREA"},
		"HQLA":         {all, "HQLA"},
		"Exposure":     {all, "Exposure"},
	} {
		if v, err := bs.GetAmount(pair.item, pair.metric); err == nil {
			out[name] = v
		}
	}
	return out
}
