package engine

import (
	"fmt"

	"relcore/internal/ast"
	"relcore/internal/dberrors"
	"relcore/internal/storage/page"
	"relcore/internal/storage/table"
)

// scope binds the one or two tables named in a Select/Update/Delete's FROM
// (or implicit single table) to the aliases a Condition's ColRefs use to
// address them.
type scope struct {
	left, right     *table.Table
	leftRef, rightRef ast.TableRef
}

func newScope(left *table.Table, leftRef ast.TableRef) *scope {
	return &scope{left: left, leftRef: leftRef}
}

func (s *scope) withRight(right *table.Table, rightRef ast.TableRef) *scope {
	return &scope{left: s.left, leftRef: s.leftRef, right: right, rightRef: rightRef}
}

func (s *scope) isJoin() bool { return s.right != nil }

// side resolves a ColRef.Table (possibly empty) to 0 (left) or 1 (right).
func (s *scope) side(tbl string) (int, error) {
	if tbl == "" {
		return 0, nil
	}
	if tbl == s.leftRef.Name || tbl == s.leftRef.Alias {
		return 0, nil
	}
	if s.isJoin() && (tbl == s.rightRef.Name || tbl == s.rightRef.Alias) {
		return 1, nil
	}
	return 0, fmt.Errorf("%w: unknown table reference %q", dberrors.ErrObjectNotFound, tbl)
}

func (s *scope) tableForSide(side int) *table.Table {
	if side == 1 {
		return s.right
	}
	return s.left
}

// colIndex resolves a ColRef to a column index within the table its Table
// field (defaulted via side()) names.
func (s *scope) colIndex(ref ast.ColRef) (side int, col int, err error) {
	side, err = s.side(ref.Table)
	if err != nil {
		return 0, 0, err
	}
	t := s.tableForSide(side)
	col = t.Meta.ColByName(ref.Column)
	if col < 0 {
		return 0, 0, fmt.Errorf("%w: column %q", dberrors.ErrObjectNotFound, ref.Column)
	}
	return side, col, nil
}

// universe materialises every row-id pair reachable in this scope: all rows
// for a single table, or the full Cartesian product for a two-table join
// (spec.md §4.9: "acceptable because the design caps joins at two tables").
func (s *scope) universe() (RowSet, error) {
	leftRows, err := s.left.Rows()
	if err != nil {
		return nil, err
	}
	out := newRowSet()
	if !s.isJoin() {
		for _, l := range leftRows {
			out.add(Pair{Left: l, Right: page.RowID(page.None)})
		}
		return out, nil
	}
	rightRows, err := s.right.Rows()
	if err != nil {
		return nil, err
	}
	for _, l := range leftRows {
		for _, r := range rightRows {
			out.add(Pair{Left: l, Right: r})
		}
	}
	return out, nil
}
