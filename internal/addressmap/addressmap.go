// Package addressmap implements a dense, ordered point map keyed by
// address, supporting "largest key <= query" retrieval.
package addressmap

import "sort"

type entry[E any] struct {
	addr  uint64
	value E
}

// Map is a point map keyed by address. The zero value is an empty Map.
type Map[E any] struct {
	entries []entry[E]
}

// Store inserts value at addr. It returns false without modifying m if
// addr is already present.
func (m *Map[E]) Store(addr uint64, value E) bool {
	i := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].addr >= addr
	})
	if i < len(m.entries) && m.entries[i].addr == addr {
		return false
	}
	m.entries = append(m.entries, entry[E]{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = entry[E]{addr: addr, value: value}
	return true
}

// Retrieve returns the value stored at the largest key <= addr, or
// ok=false if m is empty or addr precedes every stored key.
func (m *Map[E]) Retrieve(addr uint64) (value E, storedAddr uint64, ok bool) {
	i := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].addr > addr
	})
	if i == 0 {
		return value, 0, false
	}
	e := &m.entries[i-1]
	return e.value, e.addr, true
}

// Len returns the number of stored entries.
func (m *Map[E]) Len() int {
	return len(m.entries)
}

// Range calls f for every stored entry in increasing order of address.
// It stops early if f returns false.
func (m *Map[E]) Range(f func(addr uint64, value E) bool) {
	for _, e := range m.entries {
		if !f(e.addr, e.value) {
			return
		}
	}
}

// WriteTo serializes m as a count-prefixed list of (addr, entry) pairs
// in stored (ascending-by-address) order.
func (m *Map[E]) WriteTo(writeU32, writeU64 func(uint64) error, writeEntry func(E) error) error {
	if err := writeU32(uint64(len(m.entries))); err != nil {
		return err
	}
	for _, e := range m.entries {
		if err := writeU64(e.addr); err != nil {
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
		addr, err := readU64()
		if err != nil {
			return err
		}
		value, err := readEntry()
		if err != nil {
			return err
		}
		entries[i] = entry[E]{addr: addr, value: value}
	}
	m.entries = entries
	return nil
}

// Equals reports whether m and other hold the same entries in the same
// order, using eq to compare values.
func (m *Map[E]) Equals(other *Map[E], eq func(a, b E) bool) bool {
	if len(m.entries) != len(other.entries) {
		return false
	}
	for i, e := range m.entries {
		o := other.entries[i]
		if e.addr != o.addr || !eq(e.value, o.value) {
			return false
		}
	}
	return true
}
