package engine

import (
	"fmt"

	"relcore/internal/ast"
	"relcore/internal/dberrors"
	"relcore/internal/storage/table"
)

func (e *Executor) execInsert(st ast.Insert) error {
	t, err := e.cat.TableByName(st.Table)
	if err != nil {
		return err
	}
	for _, row := range st.Values {
		cells, err := literalsToCells(row)
		if err != nil {
			return err
		}
		if _, err := t.Insert(cells); err != nil {
			return err
		}
	}
	return e.cat.PersistTable(st.Table)
}

func literalsToCells(exprs []ast.Expr) ([]table.Cell, error) {
	cells := make([]table.Cell, len(exprs))
	for i, ex := range exprs {
		lit, ok := ex.(ast.Lit)
		if !ok {
			return nil, fmt.Errorf("%w: INSERT values must be literals", dberrors.ErrNotImplemented)
		}
		if lit.Null {
			cells[i] = table.NullCell()
		} else {
			cells[i] = table.NonNull(lit.Value)
		}
	}
	return cells, nil
}

func (e *Executor) execUpdate(st ast.Update) error {
	t, err := e.cat.TableByName(st.Table)
	if err != nil {
		return err
	}
	col := t.Meta.ColByName(st.Column)
	if col < 0 {
		return fmt.Errorf("%w: column %q", dberrors.ErrObjectNotFound, st.Column)
	}
	lit, ok := st.Value.(ast.Lit)
	if !ok {
		return fmt.Errorf("%w: UPDATE SET value must be a literal", dberrors.ErrNotImplemented)
	}
	newVal := table.NullCell()
	if !lit.Null {
		newVal = table.NonNull(lit.Value)
	}

	sc := newScope(t, ast.TableRef{Name: st.Table})
	logic, err := evalCondition(st.Where, sc)
	if err != nil {
		return err
	}
	universe, err := sc.universe()
	if err != nil {
		return err
	}
	matched := logic.Materialize(universe)

	for p := range matched {
		if err := t.Update(p.Left, col, newVal); err != nil {
			return err
		}
	}
	return e.cat.PersistTable(st.Table)
}

func (e *Executor) execDelete(st ast.Delete) error {
	t, err := e.cat.TableByName(st.Table)
	if err != nil {
		return err
	}
	sc := newScope(t, ast.TableRef{Name: st.Table})
	logic, err := evalCondition(st.Where, sc)
	if err != nil {
		return err
	}
	universe, err := sc.universe()
	if err != nil {
		return err
	}
	matched := logic.Materialize(universe)

	for p := range matched {
		if err := t.Delete(p.Left); err != nil {
			return err
		}
	}
	return e.cat.PersistTable(st.Table)
}
