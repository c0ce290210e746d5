package projection

import (
	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/marketdata"
	"github.com/rkooijman/bankproj/internal/timeutil"
)

// NamedRule is one rule of a scenario, addressable by name so scenarios
// can override each other's rules when combined.
type NamedRule struct {
	Name string
	Rule Rule
}

// Scenario bundles an ordered rule set with the market data the rules
// price against. A scenario is itself a Rule: applying it applies the
// rules in order.
type Scenario struct {
	name   string
	rules  []NamedRule
	market *marketdata.MarketData
}

func NewScenario(name string, market *marketdata.MarketData, rules ...NamedRule) *Scenario {
	return &Scenario{name: name, rules: rules, market: market}
}

func (s *Scenario) Name() string { return s.name }

func (s *Scenario) Rules() []NamedRule { return s.rules }

func (s *Scenario) MarketData() *marketdata.MarketData { return s.market }

func (s *Scenario) Apply(bs *balance.BalanceSheet, increment timeutil.TimeIncrement, rates *marketdata.Rates) error {
	for _, nr := range s.rules {
		if err := nr.Rule.Apply(bs, increment, rates); err != nil {
			return errors.Wrapf(err, "rule %s", nr.Name)
		}
	}
	return nil
}

// Combine merges two scenarios: same-name rules of other replace ours in
// place, new rules append in other's order, and the market data snapshots
// are combined.
func (s *Scenario) Combine(other *Scenario) *Scenario {
	name := s.name
	if other.name != "" {
		name = other.name
	}

	rules := make([]NamedRule, len(s.rules))
	copy(rules, s.rules)
	index := make(map[string]int, len(rules))
	for i, nr := range rules {
		index[nr.Name] = i
	}
	for _, nr := range other.rules {
		if i, ok := index[nr.Name]; ok {
			rules[i] = nr
			continue
		}
		index[nr.Name] = len(rules)
		rules = append(rules, nr)
	}

	market := s.market
	switch {
	case market == nil:
		market = other.market
	case other.market != nil:
		market = market.Combine(other.market)
	}
	return &Scenario{name: name, rules: rules, market: market}
}
