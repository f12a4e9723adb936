package addressmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRejectsDuplicate(t *testing.T) {
	var m Map[string]
	require.True(t, m.Store(0x1000, "a"))
	assert.False(t, m.Store(0x1000, "b"))
}

func TestRetrieve(t *testing.T) {
	var m Map[string]
	m.Store(0x2000, "b")
	m.Store(0x1000, "a")
	m.Store(0x3000, "c")

	v, addr, ok := m.Retrieve(0x1500)
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, uint64(0x1000), addr)

	v, _, ok = m.Retrieve(0x2000)
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, _, ok = m.Retrieve(0x0fff)
	assert.False(t, ok)

	var empty Map[string]
	_, _, ok = empty.Retrieve(1)
	assert.False(t, ok)
}

func TestWriteToReadFromRoundTrip(t *testing.T) {
	var m Map[string]
	m.Store(0x1000, "a")
	m.Store(0x2000, "b")

	var words []uint64
	var strs []string
	writeU32 := func(v uint64) error { words = append(words, v); return nil }
	writeU64 := func(v uint64) error { words = append(words, v); return nil }
	writeEntry := func(v string) error { strs = append(strs, v); return nil }
	require.NoError(t, m.WriteTo(writeU32, writeU64, writeEntry))

	wpos, spos := 0, 0
	readU32 := func() (uint64, error) { v := words[wpos]; wpos++; return v, nil }
	readU64 := func() (uint64, error) { v := words[wpos]; wpos++; return v, nil }
	readEntry := func() (string, error) { v := strs[spos]; spos++; return v, nil }

	var m2 Map[string]
	require.NoError(t, m2.ReadFrom(readU32, readU64, readEntry))
	assert.True(t, m.Equals(&m2, func(a, b string) bool { return a == b }))
}
