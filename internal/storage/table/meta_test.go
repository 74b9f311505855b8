package table

import (
	"testing"

	"relcore/internal/storage/page"
	"relcore/internal/storage/record"
)

func TestMetaMarshalUnmarshalRoundTrip(t *testing.T) {
	cols := []record.Column{
		{Name: "id", Typ: record.TypeInt},
		{Name: "parent_id", Typ: record.TypeInt},
		{Name: "label", Typ: record.TypeVarchar, Len: 12},
	}
	m := NewMeta(7, "widgets", cols)
	m.ColConstraints[0] = NotNull | PrimaryKey
	m.Primary = ColVec{0}
	m.UniqueSets = []ColVec{{2}}
	m.ForeignKey[ColVec{1}.Key()] = ForeignKeyDef{
		Cols:         ColVec{1},
		ForeignTable: 3,
		ForeignCols:  ColVec{0},
	}
	m.IndexRecord[ColVec{2}.Key()] = IndexSpec{Cols: ColVec{2}, Unique: true}
	m.AvailablePages = 4
	m.FullPages = 2
	m.MaxPagenum = 5
	m.RestSlot = 123

	data := m.Marshal()
	got, err := UnmarshalMeta(data)
	if err != nil {
		t.Fatalf("UnmarshalMeta: %v", err)
	}

	if got.ID != m.ID || got.Name != m.Name {
		t.Fatalf("ID/Name mismatch: got %d/%q, want %d/%q", got.ID, got.Name, m.ID, m.Name)
	}
	if len(got.Columns) != len(m.Columns) {
		t.Fatalf("column count mismatch: got %d, want %d", len(got.Columns), len(m.Columns))
	}
	for i, c := range m.Columns {
		if got.Columns[i] != c {
			t.Fatalf("column %d mismatch: got %+v, want %+v", i, got.Columns[i], c)
		}
		if got.ColConstraints[i] != m.ColConstraints[i] {
			t.Fatalf("column %d constraint mismatch: got %v, want %v", i, got.ColConstraints[i], m.ColConstraints[i])
		}
	}
	if got.Primary.Key() != m.Primary.Key() {
		t.Fatalf("primary key mismatch: got %v, want %v", got.Primary, m.Primary)
	}
	if len(got.UniqueSets) != 1 || got.UniqueSets[0].Key() != m.UniqueSets[0].Key() {
		t.Fatalf("unique sets mismatch: got %v, want %v", got.UniqueSets, m.UniqueSets)
	}
	fk, ok := got.ForeignKey[ColVec{1}.Key()]
	if !ok || fk.ForeignTable != 3 || fk.ForeignCols.Key() != (ColVec{0}).Key() {
		t.Fatalf("foreign key mismatch: got %+v", fk)
	}
	idx, ok := got.IndexRecord[ColVec{2}.Key()]
	if !ok || !idx.Unique {
		t.Fatalf("index record mismatch: got %+v", idx)
	}
	if got.AvailablePages != page.PageNum(4) || got.FullPages != page.PageNum(2) || got.MaxPagenum != page.PageNum(5) || got.RestSlot != 123 {
		t.Fatalf("page bookkeeping mismatch: got %+v", got)
	}
}

func TestColByName(t *testing.T) {
	m := NewMeta(1, "t", []record.Column{
		{Name: "a", Typ: record.TypeInt},
		{Name: "b", Typ: record.TypeInt},
	})
	if m.ColByName("b") != 1 {
		t.Fatalf("expected ColByName(b) == 1, got %d", m.ColByName("b"))
	}
	if m.ColByName("missing") != -1 {
		t.Fatalf("expected ColByName(missing) == -1, got %d", m.ColByName("missing"))
	}
}
