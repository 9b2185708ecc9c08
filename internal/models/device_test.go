package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMap_ScanValueRoundTrip(t *testing.T) {
	var m JSONMap
	raw, err := JSONMap{"a": "1", "b": float64(2)}.Value()
	require.NoError(t, err)

	require.NoError(t, m.Scan(raw))
	assert.Equal(t, "1", m["a"])
	assert.Equal(t, float64(2), m["b"])
}

func TestJSONMap_Scan_NilValueYieldsEmptyMap(t *testing.T) {
	m := JSONMap{"stale": "data"}
	require.NoError(t, m.Scan(nil))
	assert.Empty(t, m)
}

func TestJSONMap_Scan_AcceptsStringInput(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan(`{"k":"v"}`))
	assert.Equal(t, "v", m["k"])
}

func TestJSONMap_Scan_RejectsUnsupportedType(t *testing.T) {
	var m JSONMap
	assert.Error(t, m.Scan(42))
}

func TestJSONMap_Value_NilMapYieldsEmptyObject(t *testing.T) {
	var m JSONMap
	v, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)
}

func TestJSONMap_Get(t *testing.T) {
	m := JSONMap{"name": "bob", "count": 5}
	assert.Equal(t, "bob", m.Get("name"))
	assert.Equal(t, "", m.Get("count"))
	assert.Equal(t, "", m.Get("missing"))
}

func TestJSONSlice_ScanValueRoundTrip(t *testing.T) {
	var s JSONSlice
	raw, err := JSONSlice{"a", "b"}.Value()
	require.NoError(t, err)

	require.NoError(t, s.Scan(raw))
	assert.Equal(t, JSONSlice{"a", "b"}, s)
}

func TestJSONSlice_Scan_NilValueYieldsEmptySlice(t *testing.T) {
	s := JSONSlice{"stale"}
	require.NoError(t, s.Scan(nil))
	assert.Empty(t, s)
}

func TestJSONSlice_Value_NilSliceYieldsEmptyArray(t *testing.T) {
	var s JSONSlice
	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}
