package balance

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/rkooijman/bankproj/internal/registry"
)

// Predicate is a free row condition attached to an Item beyond its
// identifier equalities.
type Predicate func(p *Position) bool

// Item is an immutable declarative row selector: label identifier
// equalities plus an optional predicate. The zero Item selects every row.
// Identifier values are compared through identifier cleaning, so
// "Amortized Cost" selects rows labelled "amortizedcost".
type Item struct {
	keys        []string
	identifiers map[string]string
	predicate   Predicate
}

// NewItem builds a selector from label/value pairs.
func NewItem(identifiers map[string]string) Item {
	item := Item{}
	keys := make([]string, 0, len(identifiers))
	for k := range identifiers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		item = item.WithIdentifier(k, identifiers[k])
	}
	return item
}

// WithIdentifier returns a copy with one more identifier equality. An
// existing identifier for the same label is overwritten.
func (i Item) WithIdentifier(label, value string) Item {
	out := i.clone()
	if _, ok := out.identifiers[label]; !ok {
		out.keys = append(out.keys, label)
	}
	out.identifiers[label] = value
	return out
}

// WithoutIdentifier returns a copy with the identifier removed.
func (i Item) WithoutIdentifier(label string) Item {
	out := Item{
		keys:        make([]string, 0, len(i.keys)),
		identifiers: make(map[string]string, len(i.identifiers)),
		predicate:   i.predicate,
	}
	for _, k := range i.keys {
		if k == label {
			continue
		}
		out.keys = append(out.keys, k)
		out.identifiers[k] = i.identifiers[k]
	}
	return out
}

// WithPredicate returns a copy whose predicate additionally requires pred.
func (i Item) WithPredicate(pred Predicate) Item {
	out := i.clone()
	if prev := out.predicate; prev != nil {
		out.predicate = func(p *Position) bool { return prev(p) && pred(p) }
	} else {
		out.predicate = pred
	}
	return out
}

// And intersects two selectors. The same identifier bound to two different
// values is a conflict.
func (i Item) And(other Item) (Item, error) {
	out := i.clone()
	for _, k := range other.keys {
		value := other.identifiers[k]
		if existing, ok := out.identifiers[k]; ok {
			if registry.CleanIdentifier(existing) != registry.CleanIdentifier(value) {
				return Item{}, errors.Errorf(
					"conflicting values %q and %q for identifier %s", existing, value, k)
			}
			continue
		}
		out.keys = append(out.keys, k)
		out.identifiers[k] = value
	}
	if other.predicate != nil {
		out = out.WithPredicate(other.predicate)
	}
	return out, nil
}

// Or returns a selector matching rows selected by either operand.
func (i Item) Or(other Item) Item {
	return Item{
		predicate: func(p *Position) bool { return i.Matches(p) || other.Matches(p) },
	}
}

// Matches evaluates the selector against one row.
func (i Item) Matches(p *Position) bool {
	for _, k := range i.keys {
		if registry.CleanIdentifier(p.Label(k)) != registry.CleanIdentifier(i.identifiers[k]) {
			return false
		}
	}
	if i.predicate != nil && !i.predicate(p) {
		return false
	}
	return true
}

// MaskOf evaluates the selector over a whole table.
func (i Item) MaskOf(t *Table) Mask {
	mask := make(Mask, t.Len())
	for idx, row := range t.Rows() {
		mask[idx] = i.Matches(row)
	}
	return mask
}

// Identifiers exposes the identifier equalities in insertion order.
func (i Item) Identifiers() []string { return append([]string(nil), i.keys...) }

// Identifier returns the value bound to a label.
func (i Item) Identifier(label string) (string, bool) {
	v, ok := i.identifiers[label]
	return v, ok
}

// String renders the selector for error messages.
func (i Item) String() string {
	if len(i.keys) == 0 && i.predicate == nil {
		return "all positions"
	}
	var b strings.Builder
	for n, k := range i.keys {
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(i.identifiers[k])
	}
	if i.predicate != nil {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString("predicate")
	}
	return b.String()
}

func (i Item) clone() Item {
	out := Item{
		keys:        append([]string(nil), i.keys...),
		identifiers: make(map[string]string, len(i.identifiers)),
		predicate:   i.predicate,
	}
	for k, v := range i.identifiers {
		out.identifiers[k] = v
	}
	return out
}
