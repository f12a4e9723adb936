package containedrange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eqInt(a, b int) bool { return a == b }

func TestStoreRangeDisjointSiblings(t *testing.T) {
	var m Map[int]
	require.True(t, m.StoreRange(0x1000, 0x10, 1))
	require.True(t, m.StoreRange(0x2000, 0x10, 2))

	v, ok := m.RetrieveRange(0x1005)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = m.RetrieveRange(0x2005)
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = m.RetrieveRange(0x1500)
	assert.False(t, ok)
}

func TestStoreRangeRecursesIntoContainer(t *testing.T) {
	var m Map[int]
	require.True(t, m.StoreRange(0x1000, 0x100, 1))  // outer
	require.True(t, m.StoreRange(0x1010, 0x10, 2))   // inner, nested in outer

	v, ok := m.RetrieveRange(0x1015)
	require.True(t, ok)
	assert.Equal(t, 2, v, "innermost match wins")

	v, ok = m.RetrieveRange(0x1005)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = m.RetrieveRange(0x2000)
	assert.False(t, ok)
}

func TestStoreRangeAdoptsContiguousSiblings(t *testing.T) {
	var m Map[int]
	require.True(t, m.StoreRange(0x1000, 0x10, 1))  // [0x1000, 0x100f]
	require.True(t, m.StoreRange(0x1020, 0x10, 2))  // [0x1020, 0x102f]
	// Contains both prior ranges plus the gap between them.
	require.True(t, m.StoreRange(0x1000, 0x100, 3))

	v, ok := m.RetrieveRange(0x1005)
	require.True(t, ok)
	assert.Equal(t, 1, v, "adopted child still wins over its new parent")

	v, ok = m.RetrieveRange(0x1025)
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = m.RetrieveRange(0x1018)
	require.True(t, ok)
	assert.Equal(t, 3, v, "falls in the gap, owned by the adopting parent")
}

func TestStoreRangeRejectsPartialOverlap(t *testing.T) {
	var m Map[int]
	require.True(t, m.StoreRange(0x1000, 0x10, 1))

	assert.False(t, m.StoreRange(0x1008, 0x10, 2), "overlaps tail, not contained")
	assert.False(t, m.StoreRange(0x0ff8, 0x10, 3), "overlaps head, not contained")

	// One sibling strictly contained, one only partially overlapping:
	// the whole store must be rejected, with no partial mutation.
	require.True(t, m.StoreRange(0x1020, 0x10, 4))
	assert.False(t, m.StoreRange(0x1000, 0x28, 5))

	v, ok := m.RetrieveRange(0x1000)
	require.True(t, ok)
	assert.Equal(t, 1, v, "rejected store left existing entries untouched")
}

func TestStoreRangeRejectsZeroSizeAndOverflow(t *testing.T) {
	var m Map[int]
	assert.False(t, m.StoreRange(0x1000, 0, 1))
	assert.False(t, m.StoreRange(^uint64(0)-2, 10, 1))
}

func TestEquals(t *testing.T) {
	var a, b Map[int]
	a.StoreRange(0x1000, 0x100, 1)
	a.StoreRange(0x1010, 0x10, 2)
	b.StoreRange(0x1000, 0x100, 1)
	b.StoreRange(0x1010, 0x10, 2)
	assert.True(t, a.Equals(&b, eqInt))

	b.StoreRange(0x2000, 0x10, 3)
	assert.False(t, a.Equals(&b, eqInt))
}

func TestWriteToReadFromRoundTrip(t *testing.T) {
	var m Map[int]
	require.True(t, m.StoreRange(0x1000, 0x100, 1))
	require.True(t, m.StoreRange(0x1010, 0x10, 2))
	require.True(t, m.StoreRange(0x2000, 0x10, 3))

	var words []uint64
	writeU32 := func(v uint64) error { words = append(words, v); return nil }
	writeU64 := func(v uint64) error { words = append(words, v); return nil }
	writeEntry := func(v int) error { words = append(words, uint64(v)); return nil }
	require.NoError(t, m.WriteTo(writeU32, writeU64, writeEntry))

	pos := 0
	readU32 := func() (uint64, error) { v := words[pos]; pos++; return v, nil }
	readU64 := func() (uint64, error) { v := words[pos]; pos++; return v, nil }
	readEntry := func() (int, error) { v := words[pos]; pos++; return int(v), nil }

	var m2 Map[int]
	require.NoError(t, m2.ReadFrom(readU32, readU64, readEntry))
	assert.True(t, m.Equals(&m2, eqInt))
}
