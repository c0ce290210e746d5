package balance

import (
	"strings"

	"github.com/rkooijman/bankproj/internal/timeutil"
)

// Reason attributes a ledger entry to its origin: the module and rule that
// booked it plus optional extra labels. It is an ordered key/value bag used
// only as a grouping key, never for control flow.
type Reason struct {
	pairs []reasonPair
}

type reasonPair struct {
	key   string
	value string
}

// NewReason builds the standard module/rule attribution.
func NewReason(module, rule string) Reason {
	return Reason{pairs: []reasonPair{
		{key: "module", value: module},
		{key: "rule", value: rule},
	}}
}

// With returns a copy with one extra label appended. A repeated key
// overwrites the earlier value in place.
func (r Reason) With(key, value string) Reason {
	out := Reason{pairs: append([]reasonPair(nil), r.pairs...)}
	for i, p := range out.pairs {
		if p.key == key {
			out.pairs[i].value = value
			return out
		}
	}
	out.pairs = append(out.pairs, reasonPair{key: key, value: value})
	return out
}

// WithDate attaches the booking context date.
func (r Reason) WithDate(d timeutil.Date) Reason {
	return r.With("date", d.String())
}

// Get looks up one attribution label.
func (r Reason) Get(key string) (string, bool) {
	for _, p := range r.pairs {
		if p.key == key {
			return p.value, true
		}
	}
	return "", false
}

// Key is the canonical grouping key: ordered key=value pairs.
func (r Reason) Key() string {
	var b strings.Builder
	for i, p := range r.pairs {
		if i > 0 {
			b.WriteString("|")
		}
		b.WriteString(p.key)
		b.WriteString("=")
		b.WriteString(p.value)
	}
	return b.String()
}

// Equal is structural equality: same pairs in the same order.
func (r Reason) Equal(other Reason) bool {
	if len(r.pairs) != len(other.pairs) {
		return false
	}
	for i, p := range r.pairs {
		if other.pairs[i] != p {
			return false
		}
	}
	return true
}

// String renders the reason for logs and errors.
func (r Reason) String() string { return r.Key() }
