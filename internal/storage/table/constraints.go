package table

import (
	"fmt"

	"relcore/internal/dberrors"
	"relcore/internal/storage/index"
	"relcore/internal/storage/page"
	"relcore/internal/storage/record"
)

// checkUniqueAll verifies every declared unique set (including the primary
// key, which is implicitly unique) rejects no existing row other than
// skipRID (used by Update, which excludes the row being modified).
func (t *Table) checkUniqueAll(cells []Cell, skipRID page.RowID) error {
	sets := t.allUniqueSets()
	for _, cols := range sets {
		if err := t.checkOneUniqueSet(cols, cells, skipRID); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) allUniqueSets() []ColVec {
	sets := make([]ColVec, 0, len(t.Meta.UniqueSets)+1)
	sets = append(sets, t.Meta.UniqueSets...)
	if len(t.Meta.Primary) > 0 {
		sets = append(sets, t.Meta.Primary)
	}
	return sets
}

func (t *Table) checkOneUniqueSet(cols ColVec, cells []Cell, skipRID page.RowID) error {
	for _, c := range cols {
		if cells[c].Null {
			// A NULL participant means this particular row can never
			// collide on this unique set (SQL null-distinct semantics).
			return nil
		}
	}
	k := buildKey(cols, cells)
	if ci, ok := t.indices[cols.Key()]; ok {
		if e, found := ci.ContainsKey(k); found && e.RID != skipRID {
			return fmt.Errorf("%w: duplicate value for unique columns %v", dberrors.ErrConstraintViolation, cols)
		}
		return nil
	}
	rids, err := t.Rows()
	if err != nil {
		return err
	}
	for _, rid := range rids {
		if rid == skipRID {
			continue
		}
		row, err := t.SelectCols(rid, cols)
		if err != nil {
			return err
		}
		if cellsMatch(row, cols, cells) {
			return fmt.Errorf("%w: duplicate value for unique columns %v", dberrors.ErrConstraintViolation, cols)
		}
	}
	return nil
}

func cellsMatch(existing []Cell, cols ColVec, candidate []Cell) bool {
	for i, c := range cols {
		e := existing[i]
		n := candidate[c]
		if e.Null || n.Null {
			return false
		}
		if !e.V.Equal(n.V) {
			return false
		}
	}
	return true
}

// checkUniqueAffecting re-runs only the unique sets that include col, for
// use by Update.
func (t *Table) checkUniqueAffecting(col int, newRow []Cell, rid page.RowID) error {
	for _, cols := range t.allUniqueSets() {
		if !colVecContains(cols, col) {
			continue
		}
		if err := t.checkOneUniqueSet(cols, newRow, rid); err != nil {
			return err
		}
	}
	return nil
}

func colVecContains(cols ColVec, col int) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}

// checkForeignKeysAll verifies every FK declaration projects (when non-null)
// onto an existing row in the foreign table's primary/unique key.
func (t *Table) checkForeignKeysAll(cells []Cell) error {
	for _, fk := range t.Meta.ForeignKey {
		if err := t.checkOneForeignKey(fk, cells); err != nil {
			return err
		}
	}
	return nil
}

// VerifyForeignKey checks that every row currently in t already satisfies
// fk, without registering it. Used by ALTER ... ADD FOREIGN KEY against an
// already-populated table (spec.md §4.6: a new foreign key must verify
// current rows reference existing targets before it is accepted).
func (t *Table) VerifyForeignKey(fk ForeignKeyDef) error {
	rids, err := t.Rows()
	if err != nil {
		return err
	}
	for _, rid := range rids {
		cells, err := t.SelectRow(rid)
		if err != nil {
			return err
		}
		if err := t.checkOneForeignKey(fk, cells); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) checkForeignKeysAffecting(col int, newRow []Cell) error {
	for _, fk := range t.Meta.ForeignKey {
		if !colVecContains(fk.Cols, col) {
			continue
		}
		if err := t.checkOneForeignKey(fk, newRow); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) checkOneForeignKey(fk ForeignKeyDef, cells []Cell) error {
	for _, c := range fk.Cols {
		if cells[c].Null {
			return nil
		}
	}
	if t.resolver == nil {
		return fmt.Errorf("%w: no resolver bound for foreign key check", dberrors.ErrInternal)
	}
	foreign, err := t.resolver.TableByID(fk.ForeignTable)
	if err != nil {
		return fmt.Errorf("%w: foreign table %d: %v", dberrors.ErrConstraintViolation, fk.ForeignTable, err)
	}
	k := buildKey(fk.Cols, cells)
	if ci, ok := foreign.indices[fk.ForeignCols.Key()]; ok {
		if _, found := ci.ContainsKey(k); found {
			return nil
		}
		return fmt.Errorf("%w: no matching row in referenced table for foreign key %v", dberrors.ErrConstraintViolation, fk.Cols)
	}
	rids, err := foreign.Rows()
	if err != nil {
		return err
	}
	for _, rid := range rids {
		row, err := foreign.SelectCols(rid, fk.ForeignCols)
		if err != nil {
			return err
		}
		if cellsMatch(row, fk.ForeignCols, cells) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching row in referenced table for foreign key %v", dberrors.ErrConstraintViolation, fk.Cols)
}

// insertIntoAllIndices adds rid to every index this table maintains.
func (t *Table) insertIntoAllIndices(rid page.RowID, cells []Cell) {
	for key, ci := range t.indices {
		cols := colVecFromKey(key, ci.Len)
		e := entryFor(cols, rid, cells)
		ci.Insert(e)
	}
}

func (t *Table) deleteFromAllIndices(rid page.RowID, cells []Cell) {
	for _, ci := range t.indices {
		ci.Delete(rid)
	}
}

func (t *Table) removeFromIndicesAffecting(col int, rid page.RowID, oldRow []Cell) {
	for key, ci := range t.indices {
		cols := colVecFromKey(key, ci.Len)
		if colVecContains(cols, col) {
			ci.Delete(rid)
		}
	}
}

func (t *Table) reinsertIntoIndicesAffecting(col int, rid page.RowID, newRow []Cell) {
	for key, ci := range t.indices {
		cols := colVecFromKey(key, ci.Len)
		if colVecContains(cols, col) {
			ci.Insert(entryFor(cols, rid, newRow))
		}
	}
}

func entryFor(cols ColVec, rid page.RowID, cells []Cell) index.Entry {
	values := make([]record.Value, len(cols))
	nulls := make([]bool, len(cols))
	for i, c := range cols {
		values[i] = cells[c].V
		nulls[i] = cells[c].Null
	}
	return index.MakeEntry([]int(cols), rid, values, nulls)
}

func buildKey(cols ColVec, cells []Cell) index.Key {
	values := make([]record.Value, len(cols))
	nulls := make([]bool, len(cols))
	for i, c := range cols {
		values[i] = cells[c].V
		nulls[i] = cells[c].Null
	}
	return index.MakeKey(values, nulls)
}

// colVecFromKey rebuilds the column vector an index was created over from
// its packed map key (see ColVec.Key) and declared width.
func colVecFromKey(key string, n int) ColVec {
	cols := make(ColVec, n)
	for i := 0; i < n; i++ {
		cols[i] = int(key[i])
	}
	return cols
}

// cascadeDelete propagates the deletion of a row to every table that
// declares a foreign key referencing this table's now-removed values,
// collecting every affected child row first and applying the cascade only
// after every lookup has succeeded (spec.md §5/§9's two-phase discipline:
// collect, then apply, so a re-entrant borrow of the same table never
// happens mid-scan).
func (t *Table) cascadeDelete(deletedCells []Cell) error {
	type pending struct {
		tbl *Table
		rid page.RowID
	}
	var plan []pending

	for key, refs := range t.Meta.AsForeignKey {
		localCols := colVecFromKey(key, len(refs[0].RefCols))
		for _, ref := range refs {
			if t.resolver == nil {
				continue
			}
			child, err := t.resolver.TableByID(ref.RefTable)
			if err != nil {
				return fmt.Errorf("%w: resolving child table %d for cascade: %v", dberrors.ErrInternal, ref.RefTable, err)
			}
			rids, err := child.Rows()
			if err != nil {
				return err
			}
			for _, rid := range rids {
				row, err := child.SelectCols(rid, ref.RefCols)
				if err != nil {
					return err
				}
				if cellsMatchValues(row, localCols, deletedCells) {
					plan = append(plan, pending{tbl: child, rid: rid})
				}
			}
		}
	}

	for _, p := range plan {
		if err := p.tbl.Delete(p.rid); err != nil {
			return fmt.Errorf("%w: cascade delete: %v", dberrors.ErrConstraintViolation, err)
		}
	}
	return nil
}

// cascadeUpdate propagates a change to column col to every child row whose
// foreign key projected onto the old value, using the same collect-then-
// apply discipline as cascadeDelete.
func (t *Table) cascadeUpdate(col int, oldVal Cell, newVal Cell) error {
	type pending struct {
		tbl *Table
		rid page.RowID
		col int
	}
	var plan []pending

	for key, refs := range t.Meta.AsForeignKey {
		localCols := colVecFromKey(key, len(refs[0].RefCols))
		if !colVecContains(localCols, col) {
			continue
		}
		idx := indexOf(localCols, col)
		for _, ref := range refs {
			if t.resolver == nil {
				continue
			}
			child, err := t.resolver.TableByID(ref.RefTable)
			if err != nil {
				return fmt.Errorf("%w: resolving child table %d for cascade: %v", dberrors.ErrInternal, ref.RefTable, err)
			}
			rids, err := child.Rows()
			if err != nil {
				return err
			}
			for _, rid := range rids {
				cur, err := child.Select(rid, ref.RefCols[idx])
				if err != nil {
					return err
				}
				if !cur.Null && !oldVal.Null && cur.V.Equal(oldVal.V) {
					plan = append(plan, pending{tbl: child, rid: rid, col: ref.RefCols[idx]})
				}
			}
		}
	}

	for _, p := range plan {
		if err := p.tbl.Update(p.rid, p.col, newVal); err != nil {
			return fmt.Errorf("%w: cascade update: %v", dberrors.ErrConstraintViolation, err)
		}
	}
	return nil
}

func indexOf(cols ColVec, col int) int {
	for i, c := range cols {
		if c == col {
			return i
		}
	}
	return -1
}

func cellsMatchValues(row []Cell, cols ColVec, full []Cell) bool {
	for i, c := range cols {
		a := row[i]
		b := full[c]
		if a.Null || b.Null {
			return false
		}
		if !a.V.Equal(b.V) {
			return false
		}
	}
	return true
}

// CreateIndex builds a new secondary index over cols from the table's
// current contents and registers it. Per spec.md §4.6, when unique is true
// a collision among the backfilled rows aborts the whole operation: no
// index is produced and the duplicate is reported as a constraint
// violation, exactly as a duplicate INSERT would be.
func (t *Table) CreateIndex(cols ColVec, unique bool) error {
	if _, exists := t.indices[cols.Key()]; exists {
		return fmt.Errorf("%w: index on %v already exists", dberrors.ErrObjectExists, cols)
	}
	ci := index.New(t.Meta.ID, []int(cols), unique, t)
	rids, err := t.Rows()
	if err != nil {
		return err
	}
	for _, rid := range rids {
		row, err := t.SelectRow(rid)
		if err != nil {
			return err
		}
		if unique && !anyNull(cols, row) {
			if _, found := ci.ContainsKey(buildKey(cols, row)); found {
				return fmt.Errorf("%w: duplicate value for unique columns %v", dberrors.ErrConstraintViolation, cols)
			}
		}
		ci.Insert(entryFor(cols, rid, row))
	}
	t.indices[cols.Key()] = ci
	t.Meta.IndexRecord[cols.Key()] = IndexSpec{Cols: cols, Unique: unique}
	return nil
}

func anyNull(cols ColVec, cells []Cell) bool {
	for _, c := range cols {
		if cells[c].Null {
			return true
		}
	}
	return false
}

// DropIndex removes a previously created secondary index.
func (t *Table) DropIndex(cols ColVec) error {
	key := cols.Key()
	if _, ok := t.indices[key]; !ok {
		return fmt.Errorf("%w: no index on %v", dberrors.ErrObjectNotFound, cols)
	}
	delete(t.indices, key)
	delete(t.Meta.IndexRecord, key)
	return nil
}
