package table

import (
	"errors"
	"path/filepath"
	"testing"

	"relcore/internal/dberrors"
	"relcore/internal/storage/bufferpool"
	"relcore/internal/storage/record"
)

// fakeResolver resolves table ids against a fixed map, standing in for
// catalog.Catalog in these unit tests.
type fakeResolver struct {
	byID map[int]*Table
}

func (r *fakeResolver) TableByID(id int) (*Table, error) {
	tbl, ok := r.byID[id]
	if !ok {
		return nil, errors.New("unknown table")
	}
	return tbl, nil
}

// parentChildFixture builds a two-table parent/child schema:
//
//	parent(id INT PRIMARY KEY, name VARCHAR(8))
//	child(id INT PRIMARY KEY, parent_id INT REFERENCES parent(id))
//
// with the inverse as_foreign_key link wired on parent, exactly as the
// catalog's loadTable would after registering a foreign key.
func parentChildFixture(t *testing.T) (parent, child *Table) {
	t.Helper()
	dir := t.TempDir()
	res := &fakeResolver{byID: make(map[int]*Table)}

	parentCols := []record.Column{
		{Name: "id", Typ: record.TypeInt},
		{Name: "name", Typ: record.TypeVarchar, Len: 8},
	}
	bp1 := bufferpool.New(16)
	parent, err := Create(1, "parent", parentCols, filepath.Join(dir, "parent.data"), bp1, res)
	if err != nil {
		t.Fatalf("Create parent: %v", err)
	}
	parent.Meta.Primary = ColVec{0}
	if err := parent.CreateIndex(ColVec{0}, true); err != nil {
		t.Fatalf("CreateIndex on parent.id: %v", err)
	}
	t.Cleanup(func() { parent.Close() })

	childCols := []record.Column{
		{Name: "id", Typ: record.TypeInt},
		{Name: "parent_id", Typ: record.TypeInt},
	}
	bp2 := bufferpool.New(16)
	child, err = Create(2, "child", childCols, filepath.Join(dir, "child.data"), bp2, res)
	if err != nil {
		t.Fatalf("Create child: %v", err)
	}
	child.Meta.Primary = ColVec{0}
	child.Meta.ForeignKey[(ColVec{1}).Key()] = ForeignKeyDef{
		Cols:         ColVec{1},
		ForeignTable: 1,
		ForeignCols:  ColVec{0},
	}
	t.Cleanup(func() { child.Close() })

	res.byID[1] = parent
	res.byID[2] = child
	parent.Meta.AsForeignKey[(ColVec{0}).Key()] = []RefSpec{
		{RefTable: 2, RefCols: ColVec{1}},
	}

	return parent, child
}

func TestUniqueConstraintRejectsDuplicate(t *testing.T) {
	tbl := newTestTable(t, "people", peopleCols())
	tbl.Meta.UniqueSets = []ColVec{{1}}

	if _, err := tbl.Insert([]Cell{
		NonNull(record.IntValue(1)),
		NonNull(record.StringValue("alice")),
		NonNull(record.FloatValue(0)),
	}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := tbl.Insert([]Cell{
		NonNull(record.IntValue(2)),
		NonNull(record.StringValue("alice")),
		NonNull(record.FloatValue(0)),
	})
	if !errors.Is(err, dberrors.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation on duplicate unique value, got %v", err)
	}
}

func TestUniqueConstraintAllowsMultipleNulls(t *testing.T) {
	// SQL null-distinct semantics: two NULLs in a unique column never
	// collide with each other.
	tbl := newTestTable(t, "people", peopleCols())
	tbl.Meta.UniqueSets = []ColVec{{1}}

	if _, err := tbl.Insert([]Cell{NonNull(record.IntValue(1)), NullCell(), NonNull(record.FloatValue(0))}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := tbl.Insert([]Cell{NonNull(record.IntValue(2)), NullCell(), NonNull(record.FloatValue(0))}); err != nil {
		t.Fatalf("second insert with NULL unique column should succeed: %v", err)
	}
}

func TestForeignKeySatisfiedInsertSucceeds(t *testing.T) {
	parent, child := parentChildFixture(t)

	prid, err := parent.Insert([]Cell{NonNull(record.IntValue(1)), NonNull(record.StringValue("p1"))})
	if err != nil {
		t.Fatalf("insert parent: %v", err)
	}
	_ = prid

	if _, err := child.Insert([]Cell{NonNull(record.IntValue(10)), NonNull(record.IntValue(1))}); err != nil {
		t.Fatalf("child insert referencing an existing parent row should succeed: %v", err)
	}
}

func TestForeignKeyViolationRejectsInsert(t *testing.T) {
	_, child := parentChildFixture(t)

	_, err := child.Insert([]Cell{NonNull(record.IntValue(10)), NonNull(record.IntValue(999))})
	if !errors.Is(err, dberrors.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for dangling foreign key, got %v", err)
	}
}

func TestForeignKeyAllowsNullReference(t *testing.T) {
	_, child := parentChildFixture(t)
	if _, err := child.Insert([]Cell{NonNull(record.IntValue(10)), NullCell()}); err != nil {
		t.Fatalf("a NULL foreign key column should bypass the check, got %v", err)
	}
}

func TestCascadeDeleteRemovesChildRows(t *testing.T) {
	parent, child := parentChildFixture(t)

	prid, err := parent.Insert([]Cell{NonNull(record.IntValue(1)), NonNull(record.StringValue("p1"))})
	if err != nil {
		t.Fatalf("insert parent: %v", err)
	}
	crid, err := child.Insert([]Cell{NonNull(record.IntValue(10)), NonNull(record.IntValue(1))})
	if err != nil {
		t.Fatalf("insert child: %v", err)
	}

	if err := parent.Delete(prid); err != nil {
		t.Fatalf("delete parent: %v", err)
	}

	if _, err := child.SelectRow(crid); !errors.Is(err, dberrors.ErrObjectNotFound) {
		t.Fatalf("expected the child row to be cascade-deleted, got err=%v", err)
	}
	rows, err := child.Rows()
	if err != nil {
		t.Fatalf("child.Rows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no live child rows after cascade delete, got %v", rows)
	}
}

func TestCascadeUpdatePropagatesNewValue(t *testing.T) {
	parent, child := parentChildFixture(t)

	prid, err := parent.Insert([]Cell{NonNull(record.IntValue(1)), NonNull(record.StringValue("p1"))})
	if err != nil {
		t.Fatalf("insert parent: %v", err)
	}
	crid, err := child.Insert([]Cell{NonNull(record.IntValue(10)), NonNull(record.IntValue(1))})
	if err != nil {
		t.Fatalf("insert child: %v", err)
	}

	if err := parent.Update(prid, 0, NonNull(record.IntValue(2))); err != nil {
		t.Fatalf("update parent key: %v", err)
	}

	row, err := child.SelectRow(crid)
	if err != nil {
		t.Fatalf("SelectRow child: %v", err)
	}
	if row[1].V.Int() != 2 {
		t.Fatalf("expected cascade update to propagate new parent key 2, got %d", row[1].V.Int())
	}
}

func TestCreateIndexBackfillsExistingRows(t *testing.T) {
	tbl := newTestTable(t, "people", peopleCols())
	for i := int32(0); i < 3; i++ {
		if _, err := tbl.Insert([]Cell{
			NonNull(record.IntValue(i)),
			NonNull(record.StringValue("x")),
			NonNull(record.FloatValue(0)),
		}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if err := tbl.CreateIndex(ColVec{0}, true); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	ci, ok := tbl.IndexOn(ColVec{0})
	if !ok {
		t.Fatalf("expected an index on column 0")
	}
	if ci.Size() != 3 {
		t.Fatalf("expected the new index to be backfilled with 3 entries, got %d", ci.Size())
	}
}

func TestCreateIndexUniqueRejectsExistingDuplicates(t *testing.T) {
	tbl := newTestTable(t, "people", peopleCols())
	for i := 0; i < 2; i++ {
		if _, err := tbl.Insert([]Cell{
			NonNull(record.IntValue(int32(i))),
			NonNull(record.StringValue("dup")),
			NonNull(record.FloatValue(0)),
		}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	err := tbl.CreateIndex(ColVec{1}, true)
	if !errors.Is(err, dberrors.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for a unique index over duplicate values, got %v", err)
	}
	if _, ok := tbl.IndexOn(ColVec{1}); ok {
		t.Fatalf("a rejected unique index must not be registered")
	}
}

func TestCreateIndexUniqueAllowsMultipleNullsInBackfill(t *testing.T) {
	tbl := newTestTable(t, "people", peopleCols())
	for i := 0; i < 2; i++ {
		if _, err := tbl.Insert([]Cell{
			NonNull(record.IntValue(int32(i))),
			NullCell(),
			NonNull(record.FloatValue(0)),
		}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if err := tbl.CreateIndex(ColVec{1}, true); err != nil {
		t.Fatalf("a unique index backfilled from all-NULL rows should succeed: %v", err)
	}
}

func TestVerifyForeignKeyRejectsExistingViolation(t *testing.T) {
	parent, child := parentChildFixture(t)
	fk := ForeignKeyDef{Cols: ColVec{1}, ForeignTable: 1, ForeignCols: ColVec{0}}

	if _, err := parent.Insert([]Cell{NonNull(record.IntValue(1)), NonNull(record.StringValue("p1"))}); err != nil {
		t.Fatalf("insert parent: %v", err)
	}

	// Drop the FK from Meta temporarily so Insert doesn't itself reject this
	// row, simulating a row that predates the constraint (e.g. one present
	// before ALTER ... ADD FOREIGN KEY is run).
	delete(child.Meta.ForeignKey, (ColVec{1}).Key())
	if _, err := child.Insert([]Cell{NonNull(record.IntValue(10)), NonNull(record.IntValue(999))}); err != nil {
		t.Fatalf("insert with the FK unregistered should succeed: %v", err)
	}
	child.Meta.ForeignKey[(ColVec{1}).Key()] = fk

	if err := child.VerifyForeignKey(fk); !errors.Is(err, dberrors.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for a row with no matching parent, got %v", err)
	}
}

func TestVerifyForeignKeyAcceptsConsistentRows(t *testing.T) {
	parent, child := parentChildFixture(t)
	fk := ForeignKeyDef{Cols: ColVec{1}, ForeignTable: 1, ForeignCols: ColVec{0}}

	if _, err := parent.Insert([]Cell{NonNull(record.IntValue(1)), NonNull(record.StringValue("p1"))}); err != nil {
		t.Fatalf("insert parent: %v", err)
	}
	if _, err := child.Insert([]Cell{NonNull(record.IntValue(10)), NonNull(record.IntValue(1))}); err != nil {
		t.Fatalf("insert matching child: %v", err)
	}
	if _, err := child.Insert([]Cell{NonNull(record.IntValue(11)), NullCell()}); err != nil {
		t.Fatalf("insert null-ref child: %v", err)
	}

	if err := child.VerifyForeignKey(fk); err != nil {
		t.Fatalf("VerifyForeignKey over already-consistent rows should succeed: %v", err)
	}
}

func TestDropIndexRemovesIt(t *testing.T) {
	tbl := newTestTable(t, "people", peopleCols())
	if err := tbl.CreateIndex(ColVec{0}, false); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := tbl.DropIndex(ColVec{0}); err != nil {
		t.Fatalf("DropIndex: %v", err)
	}
	if _, ok := tbl.IndexOn(ColVec{0}); ok {
		t.Fatalf("expected no index on column 0 after DropIndex")
	}
	if err := tbl.DropIndex(ColVec{0}); !errors.Is(err, dberrors.ErrObjectNotFound) {
		t.Fatalf("dropping a non-existent index should report ErrObjectNotFound, got %v", err)
	}
}

func TestIndexMaintainedAcrossUpdateAndDelete(t *testing.T) {
	tbl := newTestTable(t, "people", peopleCols())
	if err := tbl.CreateIndex(ColVec{0}, true); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	rid, err := tbl.Insert([]Cell{
		NonNull(record.IntValue(1)),
		NonNull(record.StringValue("alice")),
		NonNull(record.FloatValue(0)),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	ci, _ := tbl.IndexOn(ColVec{0})
	if _, found := ci.ContainsKey(buildKey(ColVec{0}, []Cell{NonNull(record.IntValue(1))})); !found {
		t.Fatalf("expected the index to contain the inserted key")
	}

	if err := tbl.Update(rid, 0, NonNull(record.IntValue(2))); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, found := ci.ContainsKey(buildKey(ColVec{0}, []Cell{NonNull(record.IntValue(1))})); found {
		t.Fatalf("old key 1 should no longer be in the index after update")
	}
	if _, found := ci.ContainsKey(buildKey(ColVec{0}, []Cell{NonNull(record.IntValue(2))})); !found {
		t.Fatalf("new key 2 should be in the index after update")
	}

	if err := tbl.Delete(rid); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ci.Size() != 0 {
		t.Fatalf("expected the index to be empty after delete, got size %d", ci.Size())
	}
}
