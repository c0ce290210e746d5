// Package runs persists projection output in a write-ahead log so finished
// runs survive restarts and can be replayed into reports.
package runs

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"

	"github.com/rkooijman/bankproj/internal/balance"
	"github.com/rkooijman/bankproj/internal/projection"
)

const (
	DefaultDir   = "./wal/runs"
	segmentLimit = 1000
	maxSegments  = 100

	stepKeyPrefix          = "step_"
	profitabilityKeyPrefix = "profitability_"
)

// RecordType discriminates the stored record kinds.
type RecordType string

const (
	RecordTypeStep          RecordType = "step"
	RecordTypeProfitability RecordType = "profitability"
)

// GroupRecord is the serialized form of one aggregated ledger group.
type GroupRecord struct {
	Labels map[string]string `json:"labels"`
	Reason string            `json:"reason"`
	Amount decimal.Decimal   `json:"amount"`
}

// StepRecord is the serialized output of one projected increment.
type StepRecord struct {
	Scenario     string                 `json:"scenario"`
	From         string                 `json:"from"`
	To           string                 `json:"to"`
	BalanceSheet []balance.AggregateRow `json:"balance_sheet"`
	PnL          []GroupRecord          `json:"pnl"`
	Cashflows    []GroupRecord          `json:"cashflows"`
	OCI          []GroupRecord          `json:"oci"`
	Metrics      map[string]float64     `json:"metrics"`
}

// NewStepRecord flattens a step result for storage.
func NewStepRecord(step projection.StepResult) StepRecord {
	return StepRecord{
		Scenario:     step.Scenario,
		From:         step.Increment.From.String(),
		To:           step.Increment.To.String(),
		BalanceSheet: step.BalanceSheet,
		PnL:          newGroupRecords(step.PnL),
		Cashflows:    newGroupRecords(step.Cashflows),
		OCI:          newGroupRecords(step.OCI),
		Metrics:      step.Metrics,
	}
}

func newGroupRecords(groups []balance.Group) []GroupRecord {
	if len(groups) == 0 {
		return nil
	}
	out := make([]GroupRecord, len(groups))
	for i, g := range groups {
		out[i] = GroupRecord{Labels: g.Labels, Reason: g.Reason.String(), Amount: g.Amount}
	}
	return out
}

// ProfitabilityRecord is one stored profitability outlook of a scenario.
type ProfitabilityRecord struct {
	Scenario string                      `json:"scenario"`
	Row      projection.ProfitabilityRow `json:"row"`
}

// RunRecord is one replayed WAL entry.
type RunRecord struct {
	Index         uint64
	Type          RecordType
	Step          *StepRecord
	Profitability *ProfitabilityRecord
}

// WALStore persists projection records in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed run store.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "run_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init run WAL")
	}

	return &WALStore{wal: wal}, nil
}

// SaveStep writes one step record to WAL.
func (s *WALStore) SaveStep(record StepRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("run store is not initialized")
	}
	if record.Scenario == "" {
		return fmt.Errorf("step record scenario is required")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal step record")
	}

	key := fmt.Sprintf("%s%s_%s", stepKeyPrefix, record.Scenario, record.To)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// SaveProfitability writes one profitability record to WAL.
func (s *WALStore) SaveProfitability(record ProfitabilityRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("run store is not initialized")
	}
	if record.Scenario == "" {
		return fmt.Errorf("profitability record scenario is required")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal profitability record")
	}

	key := fmt.Sprintf("%s%s_%s", profitabilityKeyPrefix, record.Scenario, record.Row.Outlook)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// SaveResult persists a full projection result, every step and
// profitability row of every scenario in order.
func (s *WALStore) SaveResult(result *projection.Result) error {
	if result == nil {
		return errors.New("nil projection result")
	}
	for _, scenario := range result.Scenarios {
		for _, step := range scenario.Steps {
			if err := s.SaveStep(NewStepRecord(step)); err != nil {
				return errors.Wrapf(err, "save scenario %s", scenario.Name)
			}
		}
		for _, row := range scenario.Profitability {
			record := ProfitabilityRecord{Scenario: scenario.Name, Row: row}
			if err := s.SaveProfitability(record); err != nil {
				return errors.Wrapf(err, "save scenario %s", scenario.Name)
			}
		}
	}
	return nil
}

// RecordsAfter returns all run records written after the provided WAL index.
func (s *WALStore) RecordsAfter(index uint64) ([]RunRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("run store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]RunRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}

		if strings.HasPrefix(key, stepKeyPrefix) {
			var record StepRecord
			if err := json.Unmarshal(payload, &record); err != nil {
				return nil, errors.Wrap(err, "decode step record")
			}
			records = append(records, RunRecord{Index: idx, Type: RecordTypeStep, Step: &record})
		} else if strings.HasPrefix(key, profitabilityKeyPrefix) {
			var record ProfitabilityRecord
			if err := json.Unmarshal(payload, &record); err != nil {
				return nil, errors.Wrap(err, "decode profitability record")
			}
			records = append(records, RunRecord{Index: idx, Type: RecordTypeProfitability, Profitability: &record})
		}
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("run store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
