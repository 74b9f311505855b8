package table

import (
	"relcore/internal/storage/index"
	"relcore/internal/storage/page"
)

// FilterRows evaluates pred against every occupied slot, scanning pages
// brute-force rather than going through an index — the baseline the
// executor falls back to when a predicate isn't simple enough for
// index-assisted evaluation.
func (t *Table) FilterRows(pred func([]Cell) bool) ([]page.RowID, error) {
	rids, err := t.scanAllRows()
	if err != nil {
		return nil, err
	}
	var out []page.RowID
	for _, rid := range rids {
		row, err := t.SelectRow(rid)
		if err != nil {
			return nil, err
		}
		if pred(row) {
			out = append(out, rid)
		}
	}
	return out, nil
}

// IndexOn returns the index covering exactly cols, if one is registered.
func (t *Table) IndexOn(cols ColVec) (*index.ColIndex, bool) {
	ci, ok := t.indices[cols.Key()]
	return ci, ok
}

// MatchLike implements SQL LIKE pattern matching: '%' matches any run of
// characters (including none), '_' matches exactly one character. Used by
// the executor to evaluate ast.Like terms.
func MatchLike(pattern, s string) bool {
	return matchLike([]rune(pattern), []rune(s))
}

func matchLike(pat, s []rune) bool {
	if len(pat) == 0 {
		return len(s) == 0
	}
	switch pat[0] {
	case '%':
		if matchLike(pat[1:], s) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if matchLike(pat[1:], s[i+1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return matchLike(pat[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != pat[0] {
			return false
		}
		return matchLike(pat[1:], s[1:])
	}
}
