package table

import (
	"errors"
	"path/filepath"
	"testing"

	"relcore/internal/dberrors"
	"relcore/internal/storage/bufferpool"
	"relcore/internal/storage/page"
	"relcore/internal/storage/record"
)

func newTestTable(t *testing.T, name string, cols []record.Column) *Table {
	t.Helper()
	dir := t.TempDir()
	bp := bufferpool.New(16)
	tbl, err := Create(1, name, cols, filepath.Join(dir, name+".data"), bp, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

func peopleCols() []record.Column {
	return []record.Column{
		{Name: "id", Typ: record.TypeInt},
		{Name: "name", Typ: record.TypeVarchar, Len: 16},
		{Name: "score", Typ: record.TypeFloat},
	}
}

func TestInsertSelectRowRoundTrip(t *testing.T) {
	tbl := newTestTable(t, "people", peopleCols())

	rid, err := tbl.Insert([]Cell{
		NonNull(record.IntValue(1)),
		NonNull(record.StringValue("alice")),
		NonNull(record.FloatValue(9.5)),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	row, err := tbl.SelectRow(rid)
	if err != nil {
		t.Fatalf("SelectRow: %v", err)
	}
	if row[0].V.Int() != 1 || row[1].V.String() != "alice" || row[2].V.Float() != 9.5 {
		t.Fatalf("unexpected row: %+v", row)
	}
	for _, c := range row {
		if c.Null {
			t.Fatalf("no cell should be null: %+v", row)
		}
	}
}

func TestInsertRejectsWrongArity(t *testing.T) {
	tbl := newTestTable(t, "people", peopleCols())
	_, err := tbl.Insert([]Cell{NonNull(record.IntValue(1))})
	if !errors.Is(err, dberrors.ErrTypeError) {
		t.Fatalf("expected ErrTypeError for wrong arity, got %v", err)
	}
}

func TestInsertRejectsNotNullViolation(t *testing.T) {
	cols := peopleCols()
	cols[0].Typ = record.TypeInt
	tbl := newTestTable(t, "people", cols)
	tbl.Meta.ColConstraints[0] = NotNull

	_, err := tbl.Insert([]Cell{
		NullCell(),
		NonNull(record.StringValue("bob")),
		NonNull(record.FloatValue(1)),
	})
	if !errors.Is(err, dberrors.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestInsertRejectsNullPrimaryKey(t *testing.T) {
	tbl := newTestTable(t, "people", peopleCols())
	tbl.Meta.Primary = ColVec{0}

	_, err := tbl.Insert([]Cell{
		NullCell(),
		NonNull(record.StringValue("bob")),
		NonNull(record.FloatValue(1)),
	})
	if !errors.Is(err, dberrors.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for null primary key, got %v", err)
	}
}

func TestDeleteClearsSlotAndRows(t *testing.T) {
	tbl := newTestTable(t, "people", peopleCols())
	rid, err := tbl.Insert([]Cell{
		NonNull(record.IntValue(1)),
		NonNull(record.StringValue("alice")),
		NonNull(record.FloatValue(1)),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tbl.Delete(rid); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := tbl.SelectRow(rid); !errors.Is(err, dberrors.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound after delete, got %v", err)
	}
	rows, err := tbl.Rows()
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected 0 live rows after delete, got %v", rows)
	}
}

func TestUpdateChangesColumnInPlace(t *testing.T) {
	tbl := newTestTable(t, "people", peopleCols())
	rid, err := tbl.Insert([]Cell{
		NonNull(record.IntValue(1)),
		NonNull(record.StringValue("alice")),
		NonNull(record.FloatValue(1)),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tbl.Update(rid, 1, NonNull(record.StringValue("alicia"))); err != nil {
		t.Fatalf("Update: %v", err)
	}
	row, err := tbl.SelectRow(rid)
	if err != nil {
		t.Fatalf("SelectRow: %v", err)
	}
	if row[1].V.String() != "alicia" {
		t.Fatalf("expected updated name, got %q", row[1].V.String())
	}
	if row[0].V.Int() != 1 || row[2].V.Float() != 1 {
		t.Fatalf("other columns should be untouched: %+v", row)
	}
}

func TestUpdateRejectsNotNullViolation(t *testing.T) {
	tbl := newTestTable(t, "people", peopleCols())
	tbl.Meta.ColConstraints[1] = NotNull
	rid, err := tbl.Insert([]Cell{
		NonNull(record.IntValue(1)),
		NonNull(record.StringValue("alice")),
		NonNull(record.FloatValue(1)),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tbl.Update(rid, 1, NullCell()); !errors.Is(err, dberrors.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

// Inserting enough rows to overflow a single page's maxSlots must allocate a
// second page and keep rest_slot accounting and full/available chain
// placement consistent (spec.md rest_slot and page-chain invariants).
func TestInsertAcrossPageBoundaryUpdatesRestSlotAndChains(t *testing.T) {
	tbl := newTestTable(t, "people", peopleCols())
	maxSlots := tbl.MaxSlots()
	startRest := tbl.Meta.RestSlot
	if startRest != maxSlots {
		t.Fatalf("freshly created table should have rest_slot == maxSlots, got %d want %d", startRest, maxSlots)
	}

	for i := 0; i < maxSlots; i++ {
		_, err := tbl.Insert([]Cell{
			NonNull(record.IntValue(int32(i))),
			NonNull(record.StringValue("x")),
			NonNull(record.FloatValue(0)),
		})
		if err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
	if tbl.Meta.RestSlot != 0 {
		t.Fatalf("after filling the first page, rest_slot should be 0, got %d", tbl.Meta.RestSlot)
	}
	if tbl.Meta.AvailablePages != page.None {
		t.Fatalf("the filled page should have moved off available_pages, got %d", tbl.Meta.AvailablePages)
	}
	if tbl.Meta.FullPages != 1 {
		t.Fatalf("the filled page should be page 1 on full_pages, got %d", tbl.Meta.FullPages)
	}
	if tbl.Meta.MaxPagenum != 1 {
		t.Fatalf("expected only page 1 to have been allocated so far, got MaxPagenum=%d", tbl.Meta.MaxPagenum)
	}

	// One more insert must allocate a second page.
	rid, err := tbl.Insert([]Cell{
		NonNull(record.IntValue(999)),
		NonNull(record.StringValue("y")),
		NonNull(record.FloatValue(0)),
	})
	if err != nil {
		t.Fatalf("Insert overflow row: %v", err)
	}
	if tbl.Meta.MaxPagenum != 2 {
		t.Fatalf("expected a second page to be allocated, MaxPagenum=%d", tbl.Meta.MaxPagenum)
	}
	if tbl.Meta.RestSlot != maxSlots-1 {
		t.Fatalf("rest_slot after overflow insert: got %d, want %d", tbl.Meta.RestSlot, maxSlots-1)
	}

	rows, err := tbl.Rows()
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != maxSlots+1 {
		t.Fatalf("expected %d live rows, got %d", maxSlots+1, len(rows))
	}

	if err := tbl.Delete(rid); err != nil {
		t.Fatalf("Delete overflow row: %v", err)
	}
}
