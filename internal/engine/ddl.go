package engine

import (
	"fmt"

	"relcore/internal/ast"
	"relcore/internal/dberrors"
	"relcore/internal/storage/record"
	"relcore/internal/storage/table"
)

func (e *Executor) execCreateTable(st ast.CreateTB) error {
	cols := make([]record.Column, len(st.Fields))
	for i, f := range st.Fields {
		cols[i] = record.Column{Name: f.Name, Typ: f.Type, Len: f.Len}
	}
	t, err := e.cat.CreateTable(st.Name, cols)
	if err != nil {
		return err
	}

	var primary table.ColVec
	var uniques []table.ColVec
	for i, f := range st.Fields {
		var c table.Constraint
		if f.NotNull {
			c |= table.NotNull
		}
		if f.Unique {
			c |= table.Unique
			uniques = append(uniques, table.ColVec{i})
		}
		if f.PrimaryKey {
			c |= table.PrimaryKey
			primary = append(primary, i)
		}
		t.Meta.ColConstraints[i] = c
	}
	t.Meta.Primary = primary
	t.Meta.UniqueSets = uniques

	if err := e.buildDeclaredUniqueIndices(t); err != nil {
		return err
	}

	for _, fk := range st.ForeignKeys {
		if err := e.addForeignKey(t, fk); err != nil {
			return err
		}
	}

	return e.cat.PersistTable(st.Name)
}

// buildDeclaredUniqueIndices builds a unique index over the primary key and
// over each single-column UNIQUE declaration, per spec.md §3 invariants 5
// and 6 ("a unique index exists over the primary key" / "over C'"). A
// column already covered by another declared unique set (e.g. a column
// that is both PRIMARY KEY and UNIQUE) only needs the one index.
func (e *Executor) buildDeclaredUniqueIndices(t *table.Table) error {
	var sets []table.ColVec
	if len(t.Meta.Primary) > 0 {
		sets = append(sets, t.Meta.Primary)
	}
	sets = append(sets, t.Meta.UniqueSets...)
	for _, cols := range sets {
		if _, ok := t.IndexOn(cols); ok {
			continue
		}
		if err := t.CreateIndex(cols, true); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) addForeignKey(t *table.Table, fk ast.ForeignKeyDef) error {
	cols := make(table.ColVec, len(fk.Columns))
	for i, n := range fk.Columns {
		cols[i] = t.Meta.ColByName(n)
		if cols[i] < 0 {
			return fmt.Errorf("%w: column %q", dberrors.ErrObjectNotFound, n)
		}
	}
	foreign, err := e.cat.TableByName(fk.RefTable)
	if err != nil {
		return err
	}
	refCols := make(table.ColVec, len(fk.RefColumns))
	for i, n := range fk.RefColumns {
		refCols[i] = foreign.Meta.ColByName(n)
		if refCols[i] < 0 {
			return fmt.Errorf("%w: column %q", dberrors.ErrObjectNotFound, n)
		}
	}

	// spec.md §4.6: "build (or reuse) a unique index on the referenced
	// columns" -- a foreign key lookup and its cascades need O(log n)
	// access, and the referenced columns must in fact be unique.
	if _, ok := foreign.IndexOn(refCols); !ok {
		if err := foreign.CreateIndex(refCols, true); err != nil {
			return err
		}
	}

	def := table.ForeignKeyDef{Cols: cols, ForeignTable: foreign.Meta.ID, ForeignCols: refCols}

	// spec.md §4.6: adding a foreign key against an already-populated table
	// must verify every current row already references an existing target
	// before the constraint is accepted.
	if err := t.VerifyForeignKey(def); err != nil {
		return err
	}

	for _, c := range cols {
		t.Meta.ColConstraints[c] |= table.ForeignKey
	}
	t.Meta.ForeignKey[cols.Key()] = def
	foreign.Meta.AsForeignKey[refCols.Key()] = append(foreign.Meta.AsForeignKey[refCols.Key()], table.RefSpec{RefTable: t.Meta.ID, RefCols: cols})
	for _, c := range refCols {
		foreign.Meta.ColConstraints[c] |= table.ReferencedAsFK
	}
	return e.cat.PersistTable(fk.RefTable)
}

func (e *Executor) execAlter(st ast.Alter) error {
	t, err := e.cat.TableByName(st.Table)
	if err != nil {
		return err
	}
	switch st.Kind {
	case ast.AlterCreateIdx:
		cols := colIdxOf(st.Table, st.Columns, e)
		if err := e.cat.CreateIndex(st.Table, cols, st.Unique); err != nil {
			return err
		}
	case ast.AlterDropIdx:
		cols := colIdxOf(st.Table, st.Columns, e)
		if err := e.cat.DropIndex(st.Table, cols); err != nil {
			return err
		}
	case ast.AlterAddPrimary:
		if len(t.Meta.Primary) > 0 {
			return fmt.Errorf("%w: table %q already has a primary key", dberrors.ErrConstraintViolation, st.Table)
		}
		cols := colIdxOf(st.Table, st.Columns, e)
		for _, c := range cols {
			t.Meta.ColConstraints[c] |= table.PrimaryKey
		}
		t.Meta.Primary = cols
		if _, ok := t.IndexOn(cols); !ok {
			if err := t.CreateIndex(cols, true); err != nil {
				return err
			}
		}
	case ast.AlterAddForeign:
		if st.FK == nil {
			return fmt.Errorf("%w: ALTER ADD FOREIGN missing definition", dberrors.ErrInternal)
		}
		if err := e.addForeignKey(t, *st.FK); err != nil {
			return err
		}
	case ast.AlterDropForeign:
		cols := colIdxOf(st.Table, st.Columns, e)
		delete(t.Meta.ForeignKey, cols.Key())
	default:
		return fmt.Errorf("%w: unknown ALTER kind %v", dberrors.ErrInternal, st.Kind)
	}
	return e.cat.PersistTable(st.Table)
}

func (e *Executor) execShow(st ast.Show) (*Result, error) {
	switch st.Kind {
	case ast.ShowDatabases:
		names, err := e.cat.ListDatabases()
		if err != nil {
			return nil, err
		}
		return namesToResult("database", names), nil
	case ast.ShowTables:
		names, err := e.cat.ListTables()
		if err != nil {
			return nil, err
		}
		return namesToResult("table", names), nil
	default:
		return nil, fmt.Errorf("%w: unknown SHOW kind %v", dberrors.ErrInternal, st.Kind)
	}
}

func namesToResult(col string, names []string) *Result {
	rows := make([][]table.Cell, len(names))
	for i, n := range names {
		rows[i] = []table.Cell{{V: record.StringValue(n)}}
	}
	return &Result{Columns: []string{col}, Rows: rows}
}

func (e *Executor) execDesc(st ast.Desc) (*Result, error) {
	t, err := e.cat.TableByName(st.Table)
	if err != nil {
		return nil, err
	}
	rows := make([][]table.Cell, len(t.Meta.Columns))
	for i, c := range t.Meta.Columns {
		rows[i] = []table.Cell{
			{V: record.StringValue(c.Name)},
			{V: record.StringValue(c.Typ.String())},
			{V: record.StringValue(constraintSummary(t.Meta.ColConstraints[i]))},
		}
	}
	return &Result{Columns: []string{"column", "type", "constraints"}, Rows: rows}, nil
}

func constraintSummary(c table.Constraint) string {
	s := ""
	if c.Has(table.PrimaryKey) {
		s += "PRIMARY KEY "
	}
	if c.Has(table.Unique) {
		s += "UNIQUE "
	}
	if c.Has(table.NotNull) {
		s += "NOT NULL "
	}
	if c.Has(table.ForeignKey) {
		s += "FOREIGN KEY "
	}
	if c.Has(table.ReferencedAsFK) {
		s += "REFERENCED "
	}
	return s
}
