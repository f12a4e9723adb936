// Package containedrange implements a containment tree of intervals:
// two intervals stored in the same Map must be disjoint or one must
// strictly contain the other. Retrieval returns the innermost interval
// enclosing a query address.
package containedrange

import "sort"

// node is one interval in the tree. The implicit root node (Map.root)
// has base == high == 0 and an unused zero-value entry; it exists only
// to hold the top-level children.
type node[E any] struct {
	base     uint64
	high     uint64
	entry    E
	children []*node[E] // kept sorted ascending by .high
}

// Map is a containment tree keyed by [base, base+size) intervals. The
// zero value is an empty Map.
type Map[E any] struct {
	root node[E]
}

// StoreRange inserts [base, base+size) mapped to value. It returns
// false, without modifying m, if size is 0, if base+size-1 overflows,
// or if the new interval partially overlaps (neither contains nor is
// contained by) any interval already stored at the same level.
func (m *Map[E]) StoreRange(base, size uint64, value E) bool {
	if size == 0 {
		return false
	}
	high := base + size - 1
	if high < base {
		return false
	}
	return storeInto(&m.root, base, high, value)
}

func storeInto[E any](parent *node[E], base, high uint64, value E) bool {
	children := parent.children

	// children entirely below base (high < base) can't intersect
	// [base, high] at all; find the first one that might.
	idxFrom := sort.Search(len(children), func(i int) bool {
		return children[i].high >= base
	})
	idxTo := idxFrom
	for idxTo < len(children) && children[idxTo].base <= high {
		idxTo++
	}
	overlap := children[idxFrom:idxTo]

	switch len(overlap) {
	case 0:
		// Case (a): no intersecting child. Insert a new leaf here.
		n := &node[E]{base: base, high: high, entry: value}
		parent.children = insertAt(children, idxFrom, n)
		return true

	case 1:
		child := overlap[0]
		if child.base <= base && high <= child.high {
			// Case (b): child contains the new range. Recurse.
			return storeInto(child, base, high, value)
		}
		if base <= child.base && child.high <= high {
			// Case (c) with a single adopted child.
			return adopt(parent, idxFrom, idxTo, base, high, value)
		}
		// Case (d): partial overlap.
		return false

	default:
		// More than one intersecting child can only be valid if the new
		// range strictly contains every one of them (case c); any other
		// shape is a partial overlap (case d).
		for _, c := range overlap {
			if !(base <= c.base && c.high <= high) {
				return false
			}
		}
		return adopt(parent, idxFrom, idxTo, base, high, value)
	}
}

// insertAt returns children with n inserted at index i, preserving
// order.
func insertAt[E any](children []*node[E], i int, n *node[E]) []*node[E] {
	out := make([]*node[E], 0, len(children)+1)
	out = append(out, children[:i]...)
	out = append(out, n)
	out = append(out, children[i:]...)
	return out
}

// adopt creates a new node covering [base, high], moves
// parent.children[idxFrom:idxTo] under it, and splices the new node
// into parent.children in their place.
func adopt[E any](parent *node[E], idxFrom, idxTo int, base, high uint64, value E) bool {
	adopted := make([]*node[E], idxTo-idxFrom)
	copy(adopted, parent.children[idxFrom:idxTo])
	n := &node[E]{base: base, high: high, entry: value, children: adopted}

	out := make([]*node[E], 0, len(parent.children)-len(adopted)+1)
	out = append(out, parent.children[:idxFrom]...)
	out = append(out, n)
	out = append(out, parent.children[idxTo:]...)
	parent.children = out
	return true
}

// RetrieveRange returns the entry of the innermost interval containing
// addr, or ok=false if no interval contains addr.
func (m *Map[E]) RetrieveRange(addr uint64) (value E, ok bool) {
	cur := &m.root
	for {
		children := cur.children
		i := sort.Search(len(children), func(i int) bool {
			return children[i].high >= addr
		})
		if i >= len(children) || children[i].base > addr {
			break
		}
		cur = children[i]
		value, ok = cur.entry, true
	}
	return value, ok
}

// Equals reports whether m and other hold structurally identical trees,
// using eq to compare entries.
func (m *Map[E]) Equals(other *Map[E], eq func(a, b E) bool) bool {
	return nodeEquals(&m.root, &other.root, eq)
}

func nodeEquals[E any](a, b *node[E], eq func(a, b E) bool) bool {
	if len(a.children) != len(b.children) {
		return false
	}
	for i, ca := range a.children {
		cb := b.children[i]
		if ca.base != cb.base || ca.high != cb.high || !eq(ca.entry, cb.entry) {
			return false
		}
		if !nodeEquals(ca, cb, eq) {
			return false
		}
	}
	return true
}

// WriteTo serializes m per the contained_range_map wire format: u32
// has_children, then (if 1) a count-prefixed list of (u64 high, node)
// pairs, where each node is (u64 base, entry, has_children, ...)
// recursively. The root itself has no base or entry on the wire — it
// is a sentinel that only ever holds top-level siblings — so
// writeEntry is only ever called with a real, non-zero-value entry.
func (m *Map[E]) WriteTo(writeU32, writeU64 func(uint64) error, writeEntry func(E) error) error {
	return writeChildren(m.root.children, writeU32, writeU64, writeEntry)
}

func writeChildren[E any](children []*node[E], writeU32, writeU64 func(uint64) error, writeEntry func(E) error) error {
	if len(children) == 0 {
		return writeU32(0)
	}
	if err := writeU32(1); err != nil {
		return err
	}
	if err := writeU32(uint64(len(children))); err != nil {
		return err
	}
	for _, c := range children {
		if err := writeU64(c.high); err != nil {
			return err
		}
		if err := writeNode(c, writeU32, writeU64, writeEntry); err != nil {
			return err
		}
	}
	return nil
}

func writeNode[E any](n *node[E], writeU32, writeU64 func(uint64) error, writeEntry func(E) error) error {
	if err := writeU64(n.base); err != nil {
		return err
	}
	if err := writeEntry(n.entry); err != nil {
		return err
	}
	return writeChildren(n.children, writeU32, writeU64, writeEntry)
}

// ReadFrom deserializes m per the same format WriteTo produces.
func (m *Map[E]) ReadFrom(readU32, readU64 func() (uint64, error), readEntry func() (E, error)) error {
	children, err := readChildren[E](readU32, readU64, readEntry)
	if err != nil {
		return err
	}
	m.root = node[E]{children: children}
	return nil
}

func readChildren[E any](readU32, readU64 func() (uint64, error), readEntry func() (E, error)) ([]*node[E], error) {
	hasChildren, err := readU32()
	if err != nil {
		return nil, err
	}
	if hasChildren == 0 {
		return nil, nil
	}
	count, err := readU32()
	if err != nil {
		return nil, err
	}
	children := make([]*node[E], count)
	for i := range children {
		high, err := readU64()
		if err != nil {
			return nil, err
		}
		child, err := readNode[E](readU32, readU64, readEntry)
		if err != nil {
			return nil, err
		}
		child.high = high
		children[i] = child
	}
	return children, nil
}

func readNode[E any](readU32, readU64 func() (uint64, error), readEntry func() (E, error)) (*node[E], error) {
	base, err := readU64()
	if err != nil {
		return nil, err
	}
	entry, err := readEntry()
	if err != nil {
		return nil, err
	}
	children, err := readChildren[E](readU32, readU64, readEntry)
	if err != nil {
		return nil, err
	}
	return &node[E]{base: base, entry: entry, children: children}, nil
}
