// Package index implements the composite secondary index described in
// spec.md §4.7: an ordered set of EntryRef keyed by a composite comparator
// that prefers a cheap 4-byte "fast compare" summary per column and only
// falls back to reading the actual row (through the owning table) on ties.
//
// Grounded on the teacher's internal/storage/pager/btree.go ordered-key
// idiom (comparator-driven placement, ScanRange-style range walks), adapted
// from an on-disk B+Tree to an in-memory ordered set of EntryRef — spec.md's
// index is a set of composite keys, not a tree of pages.
package index

import (
	"relcore/internal/storage/page"
	"relcore/internal/storage/record"
)

// MaxCols is the maximum number of columns a composite index may cover.
const MaxCols = 3

// Entry is one member of a ColIndex's ordered set: a composite key plus the
// row it identifies. FastCmp carries a cheap per-column comparison summary;
// IsNull marks which columns (by position) are NULL in this entry.
type Entry struct {
	Cols    [MaxCols]int
	Len     int
	RID     page.RowID
	FastCmp [MaxCols][4]byte
	IsNull  [MaxCols]bool
}

// RowReader resolves a column's current value for a row id, used only when
// the fast-compare summary ties and a deep comparison is required. Table
// implements this; ColIndex never imports the table package (a weak,
// re-resolved reference per spec.md §9, not ownership).
type RowReader interface {
	ReadColumn(rid page.RowID, col int) (v record.Value, isNull bool, err error)
}

// Key is a bare composite value (not yet attached to a row) used to drive
// equality/range lookups from the executor.
type Key struct {
	Values [MaxCols]record.Value
	IsNull [MaxCols]bool
	Len    int
}

// MakeEntry builds an Entry for rid from its composite column values.
func MakeEntry(cols []int, rid page.RowID, values []record.Value, isNull []bool) Entry {
	var e Entry
	e.Len = len(cols)
	copy(e.Cols[:], cols)
	e.RID = rid
	for i := 0; i < e.Len; i++ {
		e.IsNull[i] = isNull[i]
		if !isNull[i] {
			e.FastCmp[i] = record.FastCmp(values[i])
		}
	}
	return e
}

// MakeKey builds a bare lookup Key from composite values.
func MakeKey(values []record.Value, isNull []bool) Key {
	var k Key
	k.Len = len(values)
	for i := 0; i < k.Len; i++ {
		k.IsNull[i] = isNull[i]
		if !isNull[i] {
			k.Values[i] = values[i]
		}
	}
	return k
}
