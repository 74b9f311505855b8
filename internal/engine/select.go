package engine

import (
	"fmt"
	"sort"

	"relcore/internal/ast"
	"relcore/internal/dberrors"
	"relcore/internal/storage/table"
)

// Result is the materialised output of a Select: one name per projected
// column plus the row data.
type Result struct {
	Columns []string
	Rows    [][]table.Cell
}

func (e *Executor) execSelect(st ast.Select) (*Result, error) {
	if len(st.GroupBy) > 0 {
		return nil, fmt.Errorf("%w: GROUP BY", dberrors.ErrNotImplemented)
	}
	if st.Limit != nil {
		return nil, fmt.Errorf("%w: LIMIT", dberrors.ErrNotImplemented)
	}
	if st.Offset != nil {
		return nil, fmt.Errorf("%w: OFFSET", dberrors.ErrNotImplemented)
	}
	if len(st.From) < 1 || len(st.From) > 2 {
		return nil, fmt.Errorf("%w: SELECT supports one or two FROM tables", dberrors.ErrNotImplemented)
	}

	left, err := e.cat.TableByName(st.From[0].Name)
	if err != nil {
		return nil, err
	}
	sc := newScope(left, st.From[0])
	if len(st.From) == 2 {
		right, err := e.cat.TableByName(st.From[1].Name)
		if err != nil {
			return nil, err
		}
		sc = sc.withRight(right, st.From[1])
	}

	logic, err := evalCondition(st.Where, sc)
	if err != nil {
		return nil, err
	}
	universe, err := sc.universe()
	if err != nil {
		return nil, err
	}
	matched := logic.Materialize(universe)
	pairs := sortedPairs(matched)

	return e.project(st.Selectors, sc, pairs)
}

// sortedPairs gives deterministic, reproducible output ordering (by left
// RowID then right RowID) since RowSet is a Go map and iteration order is
// otherwise undefined.
func sortedPairs(s RowSet) []Pair {
	out := make([]Pair, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Left != out[j].Left {
			return out[i].Left < out[j].Left
		}
		return out[i].Right < out[j].Right
	})
	return out
}

func (e *Executor) project(selectors []ast.Selector, sc *scope, pairs []Pair) (*Result, error) {
	hasAggregate := false
	for _, sel := range selectors {
		switch sel.(type) {
		case ast.SelectAggregate, ast.SelectCountAll:
			hasAggregate = true
		}
	}

	if hasAggregate {
		return e.projectAggregate(selectors, sc, pairs)
	}

	var cols []string
	var colRefs [][2]int // side, col
	if len(selectors) == 1 {
		if _, ok := selectors[0].(ast.SelectAll); ok {
			cols, colRefs = allColumns(sc)
		}
	}
	if colRefs == nil {
		for _, sel := range selectors {
			single, ok := sel.(ast.SelectSingle)
			if !ok {
				return nil, fmt.Errorf("%w: mixed selector list", dberrors.ErrNotImplemented)
			}
			side, col, err := sc.colIndex(single.Col)
			if err != nil {
				return nil, err
			}
			cols = append(cols, single.Col.Column)
			colRefs = append(colRefs, [2]int{side, col})
		}
	}

	rows := make([][]table.Cell, 0, len(pairs))
	for _, p := range pairs {
		row := make([]table.Cell, len(colRefs))
		for i, cr := range colRefs {
			rid := p.Left
			t := sc.left
			if cr[0] == 1 {
				rid = p.Right
				t = sc.right
			}
			c, err := t.Select(rid, cr[1])
			if err != nil {
				return nil, err
			}
			row[i] = c
		}
		rows = append(rows, row)
	}
	return &Result{Columns: cols, Rows: rows}, nil
}

func allColumns(sc *scope) ([]string, [][2]int) {
	var cols []string
	var refs [][2]int
	for i, c := range sc.left.Meta.Columns {
		cols = append(cols, c.Name)
		refs = append(refs, [2]int{0, i})
	}
	if sc.isJoin() {
		for i, c := range sc.right.Meta.Columns {
			cols = append(cols, c.Name)
			refs = append(refs, [2]int{1, i})
		}
	}
	return cols, refs
}

func (e *Executor) projectAggregate(selectors []ast.Selector, sc *scope, pairs []Pair) (*Result, error) {
	cols := make([]string, len(selectors))
	row := make([]table.Cell, len(selectors))
	for i, sel := range selectors {
		switch s := sel.(type) {
		case ast.SelectCountAll:
			cols[i] = "COUNT(*)"
			row[i] = table.Cell{V: countAll(len(pairs))}
		case ast.SelectAggregate:
			side, col, err := sc.colIndex(s.Col)
			if err != nil {
				return nil, err
			}
			values := make([]table.Cell, len(pairs))
			for j, p := range pairs {
				rid := p.Left
				t := sc.left
				if side == 1 {
					rid = p.Right
					t = sc.right
				}
				c, err := t.Select(rid, col)
				if err != nil {
					return nil, err
				}
				values[j] = c
			}
			v, err := evalAggregate(s.Op, values)
			if err != nil {
				return nil, err
			}
			cols[i] = aggName(s.Op, s.Col.Column)
			row[i] = table.Cell{V: v}
		default:
			return nil, fmt.Errorf("%w: cannot mix aggregates with plain columns", dberrors.ErrNotImplemented)
		}
	}
	return &Result{Columns: cols, Rows: [][]table.Cell{row}}, nil
}

func aggName(op ast.AggOp, col string) string {
	names := map[ast.AggOp]string{ast.AggCount: "COUNT", ast.AggSum: "SUM", ast.AggAvg: "AVG", ast.AggMin: "MIN", ast.AggMax: "MAX"}
	return fmt.Sprintf("%s(%s)", names[op], col)
}
