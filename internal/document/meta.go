package document

import "git.home.luguber.info/inful/sitepipe/internal/metadata"

// Meta reads a document's metadata. After the document is disposed, plain
// values and memoized lazy values stay readable; anything that would need
// evaluation fails with ErrDisposed.
type Meta struct {
	d            *Document
	skipSettings bool
}

var _ metadata.Reader = (*Meta)(nil)

func (m *Meta) view() metadata.Reader {
	if m.skipSettings {
		return m.d.meta.WithoutSettings()
	}
	return m.d.meta
}

// Lookup implements metadata.Reader.
func (m *Meta) Lookup(key string) (any, bool, error) {
	if m.d.disposed.Load() {
		raw, ok := m.d.meta.Raw(key)
		if lazy, isLazy := raw.(*metadata.Lazy); ok && isLazy && !lazy.Evaluated() {
			return nil, true, ErrDisposed
		}
	}
	return m.view().Lookup(key)
}

// Get implements metadata.Reader.
func (m *Meta) Get(key string) (any, bool) {
	v, ok, err := m.Lookup(key)
	if err != nil {
		return nil, false
	}
	return v, ok
}

// Keys implements metadata.Reader.
func (m *Meta) Keys() []string { return m.view().Keys() }

// WithoutSettings returns a view that skips the global-settings layer.
func (m *Meta) WithoutSettings() *Meta {
	return &Meta{d: m.d, skipSettings: true}
}

// ToMap resolves every visible key.
func (m *Meta) ToMap() (map[string]any, error) {
	out := make(map[string]any)
	for _, k := range m.Keys() {
		v, _, err := m.Lookup(k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// String reads key as a string.
func (m *Meta) String(key string) (string, bool) { return metadata.GetString(m, key) }

// Bool reads key as a bool.
func (m *Meta) Bool(key string) (bool, bool) { return metadata.GetBool(m, key) }

// Int reads key as an int.
func (m *Meta) Int(key string) (int, bool) { return metadata.GetInt(m, key) }
