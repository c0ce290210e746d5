package balance

import "github.com/pkg/errors"

// Sentinel errors of the mutation engine. Callers match with errors.Is
// after unwrapping the context added by the failing operation.
var (
	// ErrNoMatchingPositions marks a selector that matched zero rows where
	// at least one was required.
	ErrNoMatchingPositions = errors.New("no positions match the selector")

	// ErrConflictingOffsets marks a mutation requesting more than one
	// offset mechanism.
	ErrConflictingOffsets = errors.New("more than one offset mechanism requested")

	// ErrConflictingMetrics marks an add-item call supplying two metrics
	// that write the same underlying column.
	ErrConflictingMetrics = errors.New("conflicting metrics write the same column")

	// ErrDerivedMetric marks a mutation attempt on a read-only metric.
	ErrDerivedMetric = errors.New("derived metric cannot be modified")

	// ErrSchema marks a schema violation: missing or extra column, null in
	// a non-null column, or a classification value outside its domain.
	ErrSchema = errors.New("schema violation")

	// ErrReconciliation marks an accounting identity broken beyond the
	// configured tolerance. Never auto-corrected.
	ErrReconciliation = errors.New("reconciliation failure")
)
