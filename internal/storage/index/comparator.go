package index

import (
	"bytes"

	"relcore/internal/storage/record"
)

func fastCmpOf(v record.Value) [4]byte { return record.FastCmp(v) }

// compareEntries implements the full composite comparator from spec.md
// §4.7 for two entries of the same index (same Len, same Cols): compare
// position by position using the fast-compare shortcut, falling back to a
// deep read through the RowReader on ties, and finally breaking ties by
// RID so every entry has a strict total order (required for a correct
// ordered set).
func compareEntries(a, b Entry, reader RowReader) int {
	for i := 0; i < a.Len; i++ {
		if c := comparePosition(a, b, i, reader); c != 0 {
			return c
		}
	}
	switch {
	case a.RID < b.RID:
		return -1
	case a.RID > b.RID:
		return 1
	default:
		return 0
	}
}

// comparePosition compares a and b at composite position i, honoring
// null-sorts-greater and the fast-compare-then-deep-read fallback.
func comparePosition(a, b Entry, i int, reader RowReader) int {
	aNull, bNull := a.IsNull[i], b.IsNull[i]
	if aNull && bNull {
		return 0
	}
	if aNull {
		return 1
	}
	if bNull {
		return -1
	}
	if c := bytes.Compare(a.FastCmp[i][:], b.FastCmp[i][:]); c != 0 {
		return c
	}
	if reader == nil {
		return 0
	}
	av, aIsNull, errA := reader.ReadColumn(a.RID, a.Cols[i])
	bv, bIsNull, errB := reader.ReadColumn(b.RID, b.Cols[i])
	if errA != nil || errB != nil {
		return 0
	}
	if aIsNull || bIsNull {
		// Should not happen given IsNull agreed above, but stay total.
		return 0
	}
	return av.Compare(bv)
}

// compareKeyToEntry compares a bare lookup Key against an Entry over
// key.Len positions (a prefix of the entry's full composite key).
func compareKeyToEntry(k Key, e Entry, reader RowReader) int {
	for i := 0; i < k.Len; i++ {
		kNull, eNull := k.IsNull[i], e.IsNull[i]
		if kNull && eNull {
			continue
		}
		if kNull {
			return 1
		}
		if eNull {
			return -1
		}
		kfc := fastCmpOf(k.Values[i])
		if c := bytes.Compare(kfc[:], e.FastCmp[i][:]); c != 0 {
			return c
		}
		if reader == nil {
			continue
		}
		ev, eIsNull, err := reader.ReadColumn(e.RID, e.Cols[i])
		if err != nil || eIsNull {
			continue
		}
		if c := k.Values[i].Compare(ev); c != 0 {
			return c
		}
	}
	return 0
}
