package metadata

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackShadowsTopDown(t *testing.T) {
	s := New(
		NewLayer(map[string]any{"title": "base", "lang": "en"}),
		NewLayer(map[string]any{"Title": "overlay"}),
	)

	v, ok := s.Get("TITLE")
	require.True(t, ok)
	assert.Equal(t, "overlay", v)

	v, ok = s.Get("lang")
	require.True(t, ok)
	assert.Equal(t, "en", v)

	_, ok = s.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, s.Depth())
}

func TestPushNeverMutatesLowerStack(t *testing.T) {
	base := New(NewLayer(map[string]any{"a": 1}))
	over := base.PushMap(map[string]any{"a": 2, "b": 3})

	v, _ := base.Get("a")
	assert.Equal(t, 1, v)
	_, ok := base.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 1, base.Depth())

	v, _ = over.Get("a")
	assert.Equal(t, 2, v)
	assert.Same(t, base, over.Parent())
}

func TestNilStackIsEmpty(t *testing.T) {
	var s *Stack
	_, ok := s.Get("x")
	assert.False(t, ok)
	assert.Empty(t, s.Keys())
	assert.Equal(t, 0, s.Depth())

	pushed := s.PushMap(map[string]any{"x": "y"})
	v, ok := pushed.Get("x")
	require.True(t, ok)
	assert.Equal(t, "y", v)
}

func TestWithoutSettingsSkipsSettingsLayer(t *testing.T) {
	s := NewSettingsStack(NewLayer(map[string]any{"site": "example", "title": "default"})).
		PushMap(map[string]any{"title": "doc"})

	v, ok := s.Get("site")
	require.True(t, ok)
	assert.Equal(t, "example", v)

	view := s.WithoutSettings()
	_, ok = view.Get("site")
	assert.False(t, ok)
	v, ok = view.Get("title")
	require.True(t, ok)
	assert.Equal(t, "doc", v)
	assert.Equal(t, []string{"title"}, view.Keys())
}

func TestKeysUseShadowingSpelling(t *testing.T) {
	s := New(
		NewLayer(map[string]any{"title": 1, "x": 2}),
		NewLayer(map[string]any{"TITLE": 3}),
	)
	assert.Equal(t, []string{"TITLE", "x"}, s.Keys())

	m, err := s.ToMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"TITLE": 3, "x": 2}, m)
}

func TestLazyValues(t *testing.T) {
	var calls atomic.Int32
	s := New(NewLayer(map[string]any{
		"name": "world",
		"greeting": Deferred(func(r Reader) (any, error) {
			calls.Add(1)
			name, _ := GetString(r, "name")
			return "hello " + name, nil
		}),
		"once": Memoized(func(Reader) (any, error) {
			calls.Add(1)
			return 42, nil
		}),
	}))

	for range 2 {
		v, ok := s.Get("greeting")
		require.True(t, ok)
		assert.Equal(t, "hello world", v)
		v, ok = s.Get("once")
		require.True(t, ok)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, int32(3), calls.Load())

	raw, ok := s.Raw("once")
	require.True(t, ok)
	assert.True(t, raw.(*Lazy).Evaluated())
	raw, _ = s.Raw("greeting")
	assert.False(t, raw.(*Lazy).Evaluated())
}

func TestLazyErrorSurfacesFromLookup(t *testing.T) {
	boom := errors.New("boom")
	s := New(NewLayer(map[string]any{
		"bad": Memoized(func(Reader) (any, error) { return nil, boom }),
	}))

	_, found, err := s.Lookup("bad")
	assert.True(t, found)
	require.ErrorIs(t, err, boom)

	_, ok := s.Get("bad")
	assert.False(t, ok)

	_, err = s.ToMap()
	require.ErrorIs(t, err, boom)
}

func TestTypedGetters(t *testing.T) {
	s := New(NewLayer(map[string]any{
		"s":     "text",
		"b":     "true",
		"bb":    false,
		"n":     float64(7),
		"frac":  1.5,
		"ns":    " 12 ",
		"bytes": []byte("raw"),
	}))

	str, ok := GetString(s, "s")
	assert.True(t, ok)
	assert.Equal(t, "text", str)
	str, _ = GetString(s, "bytes")
	assert.Equal(t, "raw", str)

	b, ok := GetBool(s, "b")
	assert.True(t, ok)
	assert.True(t, b)
	b, ok = GetBool(s, "bb")
	assert.True(t, ok)
	assert.False(t, b)

	n, ok := GetInt(s, "n")
	assert.True(t, ok)
	assert.Equal(t, 7, n)
	_, ok = GetInt(s, "frac")
	assert.False(t, ok)
	n, ok = GetInt(s, "ns")
	assert.True(t, ok)
	assert.Equal(t, 12, n)
}
