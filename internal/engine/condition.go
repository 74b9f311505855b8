package engine

import (
	"fmt"

	"relcore/internal/ast"
	"relcore/internal/dberrors"
	"relcore/internal/storage/page"
	"relcore/internal/storage/record"
	"relcore/internal/storage/table"
)

// evalCondition evaluates a WHERE clause to a Logic value within scope, per
// spec.md §4.9/§9: True/False map directly to Neg(∅)/Pos(∅), Not flips the
// tag, And/Or combine via the complementary-set algebra, and a bare Term is
// built from one table's filter_rows, Cartesian-extended against the other
// table when the query joins two and the predicate only constrains one
// side.
func evalCondition(cond ast.Condition, s *scope) (Logic, error) {
	if cond == nil {
		return LogicTrue(), nil
	}
	switch c := cond.(type) {
	case ast.CondTrue:
		return LogicTrue(), nil
	case ast.CondFalse:
		return LogicFalse(), nil
	case ast.Not:
		inner, err := evalCondition(c.Expr, s)
		if err != nil {
			return Logic{}, err
		}
		return Not(inner), nil
	case ast.Binary:
		lhs, err := evalCondition(c.LHS, s)
		if err != nil {
			return Logic{}, err
		}
		rhs, err := evalCondition(c.RHS, s)
		if err != nil {
			return Logic{}, err
		}
		if c.Op == ast.And {
			return And(lhs, rhs), nil
		}
		return Or(lhs, rhs), nil
	case ast.Term:
		return evalTerm(c.Expr, s)
	default:
		return Logic{}, fmt.Errorf("%w: unknown condition shape %T", dberrors.ErrInternal, cond)
	}
}

func evalTerm(expr ast.CalcExpr, s *scope) (Logic, error) {
	switch e := expr.(type) {
	case ast.Compare:
		return evalCompare(e, s)
	case ast.Like:
		return evalLike(e, s)
	case ast.IsNull:
		return Logic{}, fmt.Errorf("%w: IS NULL", dberrors.ErrNotImplemented)
	case ast.In:
		return Logic{}, fmt.Errorf("%w: IN", dberrors.ErrNotImplemented)
	default:
		return Logic{}, fmt.Errorf("%w: unknown CalcExpr shape %T", dberrors.ErrInternal, expr)
	}
}

// evalLike builds Pos(S) for `col LIKE pattern`/`col NOT LIKE pattern`.
// LIKE never has an index-assisted path (a secondary index orders by
// fast_cmp, not by substring structure), so this always falls back to
// table.FilterRows.
func evalLike(e ast.Like, s *scope) (Logic, error) {
	side, col, err := s.colIndex(e.Col)
	if err != nil {
		return Logic{}, err
	}
	t := s.tableForSide(side)

	pred := func(row []table.Cell) bool {
		c := row[col]
		if c.Null {
			return false
		}
		matched := table.MatchLike(e.Pattern, c.V.String())
		if e.Negate {
			return !matched
		}
		return matched
	}
	rids, err := t.FilterRows(pred)
	if err != nil {
		return Logic{}, err
	}

	set := newRowSet()
	if !s.isJoin() {
		for _, r := range rids {
			set.add(pairForSide(side, r, page.RowID(page.None)))
		}
		return Pos(set), nil
	}
	other := s.tableForSide(1 - side)
	otherRows, err := other.Rows()
	if err != nil {
		return Logic{}, err
	}
	for _, r := range rids {
		for _, o := range otherRows {
			set.add(pairForSide(side, r, o))
		}
	}
	return Pos(set), nil
}

func evalCompare(cmp ast.Compare, s *scope) (Logic, error) {
	lhsRef, lhsIsCol := cmp.LHS.(ast.ColRef)
	rhsRef, rhsIsCol := cmp.RHS.(ast.ColRef)

	switch {
	case lhsIsCol && !rhsIsCol:
		lit := cmp.RHS.(ast.Lit)
		return evalColumnVsLiteral(lhsRef, cmp.Op, lit, s)
	case !lhsIsCol && rhsIsCol:
		lit := cmp.LHS.(ast.Lit)
		return evalColumnVsLiteral(rhsRef, flipOp(cmp.Op), lit, s)
	case lhsIsCol && rhsIsCol:
		return evalColumnVsColumn(lhsRef, cmp.Op, rhsRef, s)
	default:
		lhs := cmp.LHS.(ast.Lit)
		rhs := cmp.RHS.(ast.Lit)
		if compareLits(lhs, cmp.Op, rhs) {
			return LogicTrue(), nil
		}
		return LogicFalse(), nil
	}
}

func flipOp(op ast.CompareOp) ast.CompareOp {
	switch op {
	case ast.OpLT:
		return ast.OpGT
	case ast.OpLE:
		return ast.OpGE
	case ast.OpGT:
		return ast.OpLT
	case ast.OpGE:
		return ast.OpLE
	default:
		return op
	}
}

func compareLits(a ast.Lit, op ast.CompareOp, b ast.Lit) bool {
	if a.Null || b.Null {
		return false
	}
	return applyOp(a.Value.Compare(b.Value), op)
}

func applyOp(cmp int, op ast.CompareOp) bool {
	switch op {
	case ast.OpEQ:
		return cmp == 0
	case ast.OpNE:
		return cmp != 0
	case ast.OpLT:
		return cmp < 0
	case ast.OpLE:
		return cmp <= 0
	case ast.OpGT:
		return cmp > 0
	case ast.OpGE:
		return cmp >= 0
	default:
		return false
	}
}

func cellOp(c table.Cell, op ast.CompareOp, v record.Value) bool {
	if c.Null {
		return false
	}
	return applyOp(c.V.Compare(v), op)
}

// evalColumnVsLiteral builds Pos(S) for `col OP literal`, using col's index
// for an O(log n) lookup when op is equality and one exists, else a
// brute-force Table.FilterRows scan — then Cartesian-extends S against the
// other table's full row set when the query joins two tables and this
// predicate only constrains one side (spec.md §4.9).
func evalColumnVsLiteral(ref ast.ColRef, op ast.CompareOp, lit ast.Lit, s *scope) (Logic, error) {
	side, col, err := s.colIndex(ref)
	if err != nil {
		return Logic{}, err
	}
	t := s.tableForSide(side)

	var rids []page.RowID
	usedIndex := false
	if op == ast.OpEQ && !lit.Null {
		if ci, ok := t.IndexOn(table.ColVec{col}); ok {
			for _, e := range ci.Range(indexKeyFor(lit.Value), indexOpFor(op)) {
				rids = append(rids, e.RID)
			}
			usedIndex = true
		}
	}
	if !usedIndex {
		pred := func(row []table.Cell) bool {
			return cellOp(row[col], op, lit.Value)
		}
		rids, err = t.FilterRows(pred)
		if err != nil {
			return Logic{}, err
		}
	}

	set := newRowSet()
	if !s.isJoin() {
		for _, r := range rids {
			set.add(pairForSide(side, r, page.RowID(page.None)))
		}
		return Pos(set), nil
	}
	other := s.tableForSide(1 - side)
	otherRows, err := other.Rows()
	if err != nil {
		return Logic{}, err
	}
	for _, r := range rids {
		for _, o := range otherRows {
			set.add(pairForSide(side, r, o))
		}
	}
	return Pos(set), nil
}

func pairForSide(side int, mine, other page.RowID) Pair {
	if side == 0 {
		return Pair{Left: mine, Right: other}
	}
	return Pair{Left: other, Right: mine}
}

// evalColumnVsColumn handles both same-table column-to-column comparisons
// (a streaming scan, per spec.md §4.9) and cross-table joins (a nested
// loop, or for equality a probe of the left table's index on its compared
// column from each right-table row).
func evalColumnVsColumn(lref ast.ColRef, op ast.CompareOp, rref ast.ColRef, s *scope) (Logic, error) {
	lside, lcol, err := s.colIndex(lref)
	if err != nil {
		return Logic{}, err
	}
	rside, rcol, err := s.colIndex(rref)
	if err != nil {
		return Logic{}, err
	}

	if lside == rside {
		t := s.tableForSide(lside)
		pred := func(row []table.Cell) bool {
			return !row[lcol].Null && !row[rcol].Null && applyOp(row[lcol].V.Compare(row[rcol].V), op)
		}
		rids, err := t.FilterRows(pred)
		if err != nil {
			return Logic{}, err
		}
		set := newRowSet()
		for _, r := range rids {
			set.add(pairForSide(lside, r, page.RowID(page.None)))
		}
		if s.isJoin() {
			// A single-table predicate in a join still needs extending
			// against the untouched side's full row set.
			other := s.tableForSide(1 - lside)
			otherRows, err := other.Rows()
			if err != nil {
				return Logic{}, err
			}
			ext := newRowSet()
			for p := range set {
				for _, o := range otherRows {
					if lside == 0 {
						ext.add(Pair{Left: p.Left, Right: o})
					} else {
						ext.add(Pair{Left: o, Right: p.Right})
					}
				}
			}
			return Pos(ext), nil
		}
		return Pos(set), nil
	}

	// Cross-table join predicate, oriented so that left/leftCol always name
	// the left FROM table (the operator is flipped when lref names the right
	// one). For equality, the left table's index on leftCol, if any, is
	// probed with each right row's value; otherwise a nested loop runs.
	left, right := s.left, s.right
	leftCol, rightCol := lcol, rcol
	leftOp := op
	if lside == 1 {
		leftCol, rightCol = rcol, lcol
		leftOp = flipOp(op)
	}

	set := newRowSet()
	if leftOp == ast.OpEQ {
		if ci, ok := left.IndexOn(table.ColVec{leftCol}); ok {
			rightRows, err := right.Rows()
			if err != nil {
				return Logic{}, err
			}
			for _, rr := range rightRows {
				rv, err := right.Select(rr, rightCol)
				if err != nil {
					return Logic{}, err
				}
				if rv.Null {
					continue
				}
				for _, e := range ci.Range(indexKeyFor(rv.V), indexOpFor(ast.OpEQ)) {
					set.add(Pair{Left: e.RID, Right: rr})
				}
			}
			return Pos(set), nil
		}
	}

	leftRows, err := left.Rows()
	if err != nil {
		return Logic{}, err
	}
	rightRows, err := right.Rows()
	if err != nil {
		return Logic{}, err
	}
	for _, lr := range leftRows {
		lv, err := left.Select(lr, leftCol)
		if err != nil {
			return Logic{}, err
		}
		if lv.Null {
			continue
		}
		for _, rr := range rightRows {
			rv, err := right.Select(rr, rightCol)
			if err != nil {
				return Logic{}, err
			}
			if rv.Null {
				continue
			}
			if applyOp(lv.V.Compare(rv.V), leftOp) {
				set.add(Pair{Left: lr, Right: rr})
			}
		}
	}
	return Pos(set), nil
}
