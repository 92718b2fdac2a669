package metadata

import (
	"fmt"
	"sort"
)

// Reader is the read-only view over metadata handed to modules and lazy values.
type Reader interface {
	// Lookup resolves key, evaluating lazy values.
	Lookup(key string) (value any, found bool, err error)
	// Get is Lookup without the error; evaluation failures read as missing.
	Get(key string) (any, bool)
	Keys() []string
}

// Stack is a persistent chain of layers, most recently pushed first.
// The nil *Stack is a valid empty stack.
type Stack struct {
	layer    *Layer
	parent   *Stack
	settings bool
	depth    int
}

// New builds a stack from layers given bottom first.
func New(layers ...*Layer) *Stack {
	var s *Stack
	for _, l := range layers {
		s = s.Push(l)
	}
	return s
}

// NewSettingsStack starts a stack whose bottom layer holds global settings.
// WithoutSettings views skip that layer.
func NewSettingsStack(settings *Layer) *Stack {
	if settings == nil {
		settings = NewLayer(nil)
	}
	return &Stack{layer: settings, settings: true, depth: 1}
}

// Push returns a new stack with l on top. s is left untouched and shared.
func (s *Stack) Push(l *Layer) *Stack {
	if l == nil {
		return s
	}
	return &Stack{layer: l, parent: s, depth: s.Depth() + 1}
}

// PushMap is Push(NewLayer(m)).
func (s *Stack) PushMap(m map[string]any) *Stack {
	return s.Push(NewLayer(m))
}

// Depth returns the number of layers.
func (s *Stack) Depth() int {
	if s == nil {
		return 0
	}
	return s.depth
}

// Parent returns the stack below the top layer.
func (s *Stack) Parent() *Stack {
	if s == nil {
		return nil
	}
	return s.parent
}

// Raw returns the stored value for key without evaluating lazy values.
func (s *Stack) Raw(key string) (any, bool) {
	e, ok := s.find(FoldKey(key), true)
	return e.value, ok
}

// Lookup walks layers top-down; the first layer holding key wins.
func (s *Stack) Lookup(key string) (any, bool, error) {
	return resolve(s, s.find, key)
}

// Get implements Reader.
func (s *Stack) Get(key string) (any, bool) {
	v, ok, err := s.Lookup(key)
	if err != nil {
		return nil, false
	}
	return v, ok
}

// Keys returns every visible key using the spelling of the shadowing layer.
func (s *Stack) Keys() []string {
	return keys(s, true)
}

// ToMap resolves every visible key.
func (s *Stack) ToMap() (map[string]any, error) {
	return toMap(s)
}

// WithoutSettings returns a view that ignores the global-settings layer.
func (s *Stack) WithoutSettings() Reader {
	return settingsFree{s: s}
}

func (s *Stack) find(folded string, includeSettings bool) (entry, bool) {
	for n := s; n != nil; n = n.parent {
		if n.settings && !includeSettings {
			continue
		}
		if e, ok := n.layer.lookup(folded); ok {
			return e, true
		}
	}
	return entry{}, false
}

type settingsFree struct{ s *Stack }

func (v settingsFree) Lookup(key string) (any, bool, error) {
	return resolve(v, v.find, key)
}

func (v settingsFree) Get(key string) (any, bool) {
	val, ok, err := v.Lookup(key)
	if err != nil {
		return nil, false
	}
	return val, ok
}

func (v settingsFree) Keys() []string { return keys(v.s, false) }

func (v settingsFree) find(folded string, _ bool) (entry, bool) {
	return v.s.find(folded, false)
}

func resolve(r Reader, find func(string, bool) (entry, bool), key string) (any, bool, error) {
	e, ok := find(FoldKey(key), true)
	if !ok {
		return nil, false, nil
	}
	if lazy, isLazy := e.value.(*Lazy); isLazy {
		v, err := lazy.Evaluate(r)
		if err != nil {
			return nil, true, fmt.Errorf("evaluate metadata %q: %w", key, err)
		}
		return v, true, nil
	}
	return e.value, true, nil
}

func keys(s *Stack, includeSettings bool) []string {
	seen := make(map[string]struct{})
	var out []string
	for n := s; n != nil; n = n.parent {
		if n.settings && !includeSettings {
			continue
		}
		if n.layer == nil {
			continue
		}
		for folded, e := range n.layer.values {
			if _, dup := seen[folded]; dup {
				continue
			}
			seen[folded] = struct{}{}
			out = append(out, e.key)
		}
	}
	sort.Strings(out)
	return out
}

func toMap(r Reader) (map[string]any, error) {
	out := make(map[string]any)
	for _, k := range r.Keys() {
		v, _, err := r.Lookup(k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
