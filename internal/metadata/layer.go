// Package metadata implements the chained, shadowing key/value lookup that
// backs document metadata. Layers are immutable; stacks are persistent linked
// lists, so pushing an overlay shares every layer below it.
package metadata

import (
	"sort"

	"golang.org/x/text/cases"
)

// FoldKey returns the case-insensitive form of key used for all lookups.
func FoldKey(key string) string {
	return cases.Fold().String(key)
}

type entry struct {
	key   string
	value any
}

// Layer is an immutable set of key/value pairs with case-insensitive keys.
type Layer struct {
	values map[string]entry
}

// NewLayer copies m into a new layer. When two keys fold to the same form the
// lexically smallest spelling wins so construction stays deterministic.
func NewLayer(m map[string]any) *Layer {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(map[string]entry, len(m))
	for _, k := range keys {
		folded := FoldKey(k)
		if _, exists := values[folded]; exists {
			continue
		}
		values[folded] = entry{key: k, value: m[k]}
	}
	return &Layer{values: values}
}

// Len returns the number of keys in the layer.
func (l *Layer) Len() int {
	if l == nil {
		return 0
	}
	return len(l.values)
}

func (l *Layer) lookup(folded string) (entry, bool) {
	if l == nil {
		return entry{}, false
	}
	e, ok := l.values[folded]
	return e, ok
}
