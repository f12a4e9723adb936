package rangemap

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRangeRejectsOverlap(t *testing.T) {
	var m Map[string]
	require.True(t, m.StoreRange(0x1000, 0x10, "a"))
	require.False(t, m.StoreRange(0x1008, 0x10, "b"), "overlap at tail")
	require.False(t, m.StoreRange(0x0ff8, 0x10, "c"), "overlap at head")
	require.False(t, m.StoreRange(0x1000, 0x10, "d"), "exact duplicate")
	require.False(t, m.StoreRange(0x1002, 0x4, "e"), "fully nested")
	require.True(t, m.StoreRange(0x1010, 0x10, "f"), "adjacent is fine")
}

func TestStoreRangeRejectsZeroSize(t *testing.T) {
	var m Map[int]
	assert.False(t, m.StoreRange(0x1000, 0, 1))
}

func TestStoreRangeRejectsOverflow(t *testing.T) {
	var m Map[int]
	assert.False(t, m.StoreRange(^uint64(0)-2, 10, 1))
}

func TestRetrieveRange(t *testing.T) {
	var m Map[string]
	require.True(t, m.StoreRange(0x1000, 0x10, "a"))
	require.True(t, m.StoreRange(0x2000, 0x10, "b"))

	v, base, size, ok := m.RetrieveRange(0x1005)
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, uint64(0x1000), base)
	assert.Equal(t, uint64(0x10), size)

	_, _, _, ok = m.RetrieveRange(0x1fff)
	assert.False(t, ok)

	_, _, _, ok = m.RetrieveRange(0x3000)
	assert.False(t, ok)
}

func TestRetrieveNearestRange(t *testing.T) {
	var m Map[string]
	require.True(t, m.StoreRange(0x1000, 0x100, "f"))

	v, base, size, ok := m.RetrieveNearestRange(0x1040)
	require.True(t, ok)
	assert.Equal(t, "f", v)
	assert.True(t, 0x1040 >= base && 0x1040 < base+size)

	v, base, _, ok = m.RetrieveNearestRange(0x1200)
	require.True(t, ok)
	assert.Equal(t, "f", v)
	assert.Equal(t, uint64(0x1000), base)

	_, _, _, ok = m.RetrieveNearestRange(0x0fff)
	assert.False(t, ok)
}

func TestEquals(t *testing.T) {
	var a, b Map[int]
	a.StoreRange(0x10, 0x10, 1)
	b.StoreRange(0x10, 0x10, 1)
	assert.True(t, a.Equals(&b, func(x, y int) bool { return x == y }))

	b.StoreRange(0x30, 0x10, 2)
	assert.False(t, a.Equals(&b, func(x, y int) bool { return x == y }))
}

func TestWriteToReadFromRoundTrip(t *testing.T) {
	var m Map[int]
	require.True(t, m.StoreRange(0x10, 0x10, 1))
	require.True(t, m.StoreRange(0x30, 0x10, 2))

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
	assert.True(t, m.Equals(&m2, func(a, b int) bool { return a == b }))
}

func TestStoreRangeRandom(t *testing.T) {
	var m Map[int]
	const universe = 64
	present := make([]int, universe) // 0 means absent, else the stored id+1

	for i := 0; i < 2000; i++ {
		base := rand.Intn(universe)
		size := 1 + rand.Intn(universe-base)
		overlap := false
		for a := base; a < base+size; a++ {
			if present[a] != 0 {
				overlap = true
				break
			}
		}
		id := i + 1
		ok := m.StoreRange(uint64(base), uint64(size), id)
		if overlap {
			require.False(t, ok, "expected overlap rejection at %d+%d", base, size)
			continue
		}
		require.True(t, ok, "expected store to succeed at %d+%d", base, size)
		for a := base; a < base+size; a++ {
			present[a] = id
		}
	}

	for a := 0; a < universe; a++ {
		v, base, size, ok := m.RetrieveRange(uint64(a))
		if present[a] == 0 {
			assert.False(t, ok, "addr %d", a)
			continue
		}
		require.True(t, ok, "addr %d", a)
		assert.Equal(t, present[a], v)
		assert.True(t, uint64(a) >= base && uint64(a) < base+size)
	}
}
