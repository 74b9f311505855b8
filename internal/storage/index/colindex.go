package index

import (
	"sort"

	"relcore/internal/storage/page"
)

// ColIndex is an ordered set of Entry, keyed by the composite comparator
// described in spec.md §4.7. Implemented as a sorted slice with
// binary-search insert/delete: simpler than a balanced tree to reason about
// correctly within this project's scope, and every operation the executor
// needs (range, first/last, equality) only requires O(log n) lookup plus an
// O(n) slice splice on mutation — acceptable for the single-user, one
// statement at a time model spec.md §5 describes. See DESIGN.md.
type ColIndex struct {
	TableID int
	Cols    [MaxCols]int
	Len     int
	Unique  bool

	entries []Entry
	reader  RowReader
}

// New creates an empty ColIndex over the given (ordered) column ids.
func New(tableID int, cols []int, unique bool, reader RowReader) *ColIndex {
	if len(cols) < 1 || len(cols) > MaxCols {
		panic("index: composite index must cover 1..3 columns")
	}
	ci := &ColIndex{TableID: tableID, Len: len(cols), Unique: unique, reader: reader}
	copy(ci.Cols[:], cols)
	return ci
}

// Bind attaches (or replaces) the RowReader used for deep-comparison
// fallback, e.g. after loading a ColIndex from disk and re-resolving its
// owning table.
func (ci *ColIndex) Bind(reader RowReader) { ci.reader = reader }

// Size returns the number of entries in the index (not to be confused with
// ci.Len, the index's composite key width — both fields use the spec's own
// terminology).
func (ci *ColIndex) Size() int { return len(ci.entries) }

// Entries returns a snapshot of all entries in sorted order.
func (ci *ColIndex) Entries() []Entry {
	out := make([]Entry, len(ci.entries))
	copy(out, ci.entries)
	return out
}

// searchEntry returns the insertion point for e (the first index whose
// entry is >= e under the composite comparator).
func (ci *ColIndex) searchEntry(e Entry) int {
	return sort.Search(len(ci.entries), func(i int) bool {
		return compareEntries(ci.entries[i], e, ci.reader) >= 0
	})
}

// ContainsKey reports whether any entry (regardless of RID) matches the
// given composite key — used to enforce Unique before an insert/update
// commits.
func (ci *ColIndex) ContainsKey(k Key) (Entry, bool) {
	matches := ci.Range(k, OpEQ)
	if len(matches) == 0 {
		return Entry{}, false
	}
	return matches[0], true
}

// Insert adds e to the set, preserving sort order.
func (ci *ColIndex) Insert(e Entry) {
	i := ci.searchEntry(e)
	ci.entries = append(ci.entries, Entry{})
	copy(ci.entries[i+1:], ci.entries[i:])
	ci.entries[i] = e
}

// Delete removes the entry with the given rid. Returns false if no such
// entry exists.
func (ci *ColIndex) Delete(rid page.RowID) bool {
	for i, ent := range ci.entries {
		if ent.RID == rid {
			ci.entries = append(ci.entries[:i], ci.entries[i+1:]...)
			return true
		}
	}
	return false
}

// First returns the smallest entry, if any.
func (ci *ColIndex) First() (Entry, bool) {
	if len(ci.entries) == 0 {
		return Entry{}, false
	}
	return ci.entries[0], true
}

// Last returns the largest entry, if any.
func (ci *ColIndex) Last() (Entry, bool) {
	if len(ci.entries) == 0 {
		return Entry{}, false
	}
	return ci.entries[len(ci.entries)-1], true
}

// RangeOp names a comparison operator for a range query.
type RangeOp int

const (
	OpEQ RangeOp = iota
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
)

// lowerBound returns the first index i such that entries[i] >= key under
// the same prefix comparator Range uses (i.e. the smallest i with
// compareKeyToEntry(key, entries[i]) <= 0).
func (ci *ColIndex) lowerBound(key Key) int {
	return sort.Search(len(ci.entries), func(i int) bool {
		return compareKeyToEntry(key, ci.entries[i], ci.reader) <= 0
	})
}

// upperBound returns the first index i such that entries[i] > key (the
// smallest i with compareKeyToEntry(key, entries[i]) < 0).
func (ci *ColIndex) upperBound(key Key) int {
	return sort.Search(len(ci.entries), func(i int) bool {
		return compareKeyToEntry(key, ci.entries[i], ci.reader) < 0
	})
}

// hasNullAt reports whether e has a NULL in any of the first n composite
// positions — such an entry never satisfies any comparison against a
// non-null key (SQL's null-compares-to-unknown rule), even though nulls
// sort as the greatest value for ordering purposes.
func hasNullAt(e Entry, n int) bool {
	for i := 0; i < n; i++ {
		if e.IsNull[i] {
			return true
		}
	}
	return false
}

// excludeNull drops any entry with a NULL among key.Len positions. LT/LE
// never need this (nulls sort greatest, so they never fall before a
// non-null key), but GT/GE/NE would otherwise wrongly include the
// null-sorts-last tail.
func excludeNull(entries []Entry, keyLen int) []Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if !hasNullAt(e, keyLen) {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Range returns every entry satisfying `key OP op`. For EQ/NE it compares
// the full composite key (up to key.Len positions); for LT/LE/GT/GE it
// compares lexicographically over the same prefix. entries is sorted by
// the same position-wise order compareKeyToEntry applies, so every op
// resolves to a contiguous slice found by binary search rather than a
// linear scan; GT/GE/NE additionally filter out the null-sorts-greatest
// tail, since those rows never satisfy a comparison against a literal.
func (ci *ColIndex) Range(key Key, op RangeOp) []Entry {
	clone := func(s []Entry) []Entry {
		if len(s) == 0 {
			return nil
		}
		out := make([]Entry, len(s))
		copy(out, s)
		return out
	}
	switch op {
	case OpEQ:
		lo, hi := ci.lowerBound(key), ci.upperBound(key)
		return clone(ci.entries[lo:hi])
	case OpNE:
		lo, hi := ci.lowerBound(key), ci.upperBound(key)
		out := make([]Entry, 0, len(ci.entries)-(hi-lo))
		out = append(out, ci.entries[:lo]...)
		out = append(out, excludeNull(clone(ci.entries[hi:]), key.Len)...)
		if len(out) == 0 {
			return nil
		}
		return out
	case OpLT:
		return clone(ci.entries[:ci.lowerBound(key)])
	case OpLE:
		return clone(ci.entries[:ci.upperBound(key)])
	case OpGT:
		return excludeNull(clone(ci.entries[ci.upperBound(key):]), key.Len)
	case OpGE:
		return excludeNull(clone(ci.entries[ci.lowerBound(key):]), key.Len)
	default:
		return nil
	}
}
