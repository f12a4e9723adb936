// Package rangemap implements a map of non-overlapping [base, base+size)
// intervals, keyed internally by the inclusive high endpoint of each
// interval so that both exact and nearest-range lookups are a single
// binary search.
package rangemap

import "sort"

// entry is one stored interval. high is base+size-1; storing it
// explicitly (rather than recomputing it) lets Map stay sorted by high
// endpoint, which is what RetrieveRange's binary search needs.
type entry[E any] struct {
	base  uint64
	high  uint64
	value E
}

// Map holds non-overlapping [base, base+size) intervals, each mapped to
// a value of type E. The zero value is an empty Map.
type Map[E any] struct {
	entries []entry[E]
}

// lowerBound returns the index of the first entry whose high endpoint
// is >= addr, or len(m.entries) if none.
func (m *Map[E]) lowerBound(addr uint64) int {
	return sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].high >= addr
	})
}

// StoreRange inserts [base, base+size) mapped to value. It returns false
// without modifying m if size is 0, if base+size-1 overflows, or if the
// new interval overlaps any interval already stored.
func (m *Map[E]) StoreRange(base, size uint64, value E) bool {
	if size == 0 {
		return false
	}
	high := base + size - 1
	if high < base {
		// base+size-1 overflowed.
		return false
	}

	i := m.lowerBound(base)
	if i < len(m.entries) {
		cand := &m.entries[i]
		if cand.base <= base {
			// cand already contains base.
			return false
		}
		if cand.base <= high {
			// cand's base falls inside the new range.
			return false
		}
	}

	m.entries = append(m.entries, entry[E]{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = entry[E]{base: base, high: high, value: value}
	return true
}

// RetrieveRange returns the value, base, and size of the single interval
// containing addr, or ok=false if no interval contains addr.
func (m *Map[E]) RetrieveRange(addr uint64) (value E, base, size uint64, ok bool) {
	i := m.lowerBound(addr)
	if i >= len(m.entries) {
		return value, 0, 0, false
	}
	e := &m.entries[i]
	if e.base > addr {
		return value, 0, 0, false
	}
	return e.value, e.base, e.high - e.base + 1, true
}

// RetrieveNearestRange returns the value, base, and size of the stored
// interval with the greatest base <= addr. The caller must independently
// check whether addr actually falls within [base, base+size) — the
// "nearest" interval may end before addr.
func (m *Map[E]) RetrieveNearestRange(addr uint64) (value E, base, size uint64, ok bool) {
	// The entries below addr's lower-bound position either contain addr
	// (in which case that's the nearest range) or end before addr. Either
	// way, the highest-based candidate is the one at or just before
	// lowerBound(addr).
	i := m.lowerBound(addr)
	if i < len(m.entries) && m.entries[i].base <= addr {
		e := &m.entries[i]
		return e.value, e.base, e.high - e.base + 1, true
	}
	if i == 0 {
		return value, 0, 0, false
	}
	e := &m.entries[i-1]
	return e.value, e.base, e.high - e.base + 1, true
}

// Len returns the number of stored intervals.
func (m *Map[E]) Len() int {
	return len(m.entries)
}

// Range calls f for every stored interval in increasing order of base.
// It stops early if f returns false.
func (m *Map[E]) Range(f func(base, size uint64, value E) bool) {
	for _, e := range m.entries {
		if !f(e.base, e.high-e.base+1, e.value) {
			return
		}
	}
}

// WriteTo serializes m as a count-prefixed list of (high, base, entry)
// triples in stored (ascending-by-high) order.
func (m *Map[E]) WriteTo(writeU32, writeU64 func(uint64) error, writeEntry func(E) error) error {
	if err := writeU32(uint64(len(m.entries))); err != nil {
		return err
	}
	for _, e := range m.entries {
		if err := writeU64(e.high); err != nil {
			return err
		}
		if err := writeU64(e.base); err != nil {
			return err
		}
		if err := writeEntry(e.value); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrom deserializes m per the format WriteTo produces.
func (m *Map[E]) ReadFrom(readU32, readU64 func() (uint64, error), readEntry func() (E, error)) error {
	count, err := readU32()
	if err != nil {
		return err
	}
	entries := make([]entry[E], count)
	for i := range entries {
		high, err := readU64()
		if err != nil {
			return err
		}
		base, err := readU64()
		if err != nil {
			return err
		}
		value, err := readEntry()
		if err != nil {
			return err
		}
		entries[i] = entry[E]{base: base, high: high, value: value}
	}
	m.entries = entries
	return nil
}

// Equals reports whether m and other hold the same intervals in the same
// order, using eq to compare values.
func (m *Map[E]) Equals(other *Map[E], eq func(a, b E) bool) bool {
	if len(m.entries) != len(other.entries) {
		return false
	}
	for i, e := range m.entries {
		o := other.entries[i]
		if e.base != o.base || e.high != o.high || !eq(e.value, o.value) {
			return false
		}
	}
	return true
}
