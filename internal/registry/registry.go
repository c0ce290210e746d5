// Package registry provides the name-keyed dispatch tables backing the
// financial convention registries. Names are cleaned before use so that
// "Semi-Annual", "semi annual" and "semiannual" address the same entry.
package registry

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Registry maps cleaned identifiers to implementations of one convention.
type Registry[T any] struct {
	name  string
	items map[string]T
	order []string
}

// New creates an empty registry. The name is used in log and error messages.
func New[T any](name string) *Registry[T] {
	return &Registry[T]{
		name:  name,
		items: make(map[string]T),
	}
}

// Register adds an implementation under the cleaned name. Re-registering a
// name overwrites the previous entry and logs a warning.
func (r *Registry[T]) Register(name string, item T) {
	key := CleanIdentifier(name)
	if _, ok := r.items[key]; ok {
		zap.L().Warn("duplicate registration",
			zap.String("registry", r.name),
			zap.String("name", key))
	} else {
		r.order = append(r.order, key)
	}
	r.items[key] = item
}

// Get returns the implementation registered under name. Looking up an
// unregistered name is an error.
func (r *Registry[T]) Get(name string) (T, error) {
	item, ok := r.items[CleanIdentifier(name)]
	if !ok {
		return item, errors.Errorf("%s %q is not registered", r.name, name)
	}
	return item, nil
}

// Lookup is the per-row dispatch form: a miss is reported through the bool,
// never as an error, so callers can fall through to their default.
func (r *Registry[T]) Lookup(name string) (T, bool) {
	item, ok := r.items[CleanIdentifier(name)]
	return item, ok
}

// IsRegistered reports whether the cleaned name has an entry.
func (r *Registry[T]) IsRegistered(name string) bool {
	_, ok := r.items[CleanIdentifier(name)]
	return ok
}

// Names returns the cleaned names in registration order.
func (r *Registry[T]) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Name returns the registry's own name.
func (r *Registry[T]) Name() string { return r.name }

var identifierCleaner = strings.NewReplacer("_", "", " ", "", "-", "", "/", "", "\\", "", ".", "")

// CleanIdentifier normalizes an identifier for registry and column matching.
func CleanIdentifier(identifier string) string {
	return identifierCleaner.Replace(strings.ToLower(strings.TrimSpace(identifier)))
}

// FindIdentifier resolves identifier against a list of canonical names,
// matching on the cleaned form and returning the canonical spelling.
func FindIdentifier(identifier string, canonical []string) (string, bool) {
	cleaned := CleanIdentifier(identifier)
	for _, c := range canonical {
		if cleaned == CleanIdentifier(c) {
			return c, true
		}
	}
	return "", false
}
