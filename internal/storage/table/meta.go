// Package table implements the Table component of spec.md §4.6: row
// storage over pages threaded through available/full chains, constraint
// enforcement (unique, primary, foreign key with cascading update/delete),
// and the brute-force/index-assisted predicate evaluator the executor
// drives through filter_rows.
//
// Grounded on the teacher's internal/storage/pager/catalog.go (CatalogEntry
// column metadata shape) and jordy-godjo-GoBuffer_DB/Projet_BDDA's
// relation/manager.go (available/full page bookkeeping alongside row CRUD).
package table

import (
	"relcore/internal/storage/page"
	"relcore/internal/storage/record"
)

// Constraint is a per-column bitset, per spec.md §3.
type Constraint uint8

const (
	NotNull Constraint = 1 << iota
	Unique
	PrimaryKey
	ForeignKey
	ReferencedAsFK
)

func (c Constraint) Has(f Constraint) bool { return c&f != 0 }

// ColVec is an ordered vector of column ids, used as the key for composite
// constraints (unique sets, primary key, foreign keys, persisted indices).
type ColVec []int

// Key renders a ColVec into a stable map key.
func (v ColVec) Key() string {
	b := make([]byte, len(v))
	for i, c := range v {
		b[i] = byte(c)
	}
	return string(b)
}

// ForeignKeyDef names the table/column vector a local ColVec must project
// into.
type ForeignKeyDef struct {
	Cols         ColVec
	ForeignTable int
	ForeignCols  ColVec
}

// RefSpec is one entry in a referenced column's inverse (as_foreign_key)
// set: a table and the column vector in that table declaring the FK back
// to us.
type RefSpec struct {
	RefTable int
	RefCols  ColVec
}

// IndexSpec names a persisted secondary index.
type IndexSpec struct {
	Cols   ColVec
	Unique bool
}

// Meta is the persisted TableMeta described in spec.md §3.
type Meta struct {
	ID      int
	Name    string
	Columns []record.Column

	ColConstraints []Constraint // per column, indexed like Columns

	UniqueSets []ColVec
	Primary    ColVec // empty if the table has no primary key

	ForeignKey   map[string]ForeignKeyDef // keyed by Cols.Key()
	AsForeignKey map[string][]RefSpec     // keyed by (local) referenced Cols.Key()

	IndexRecord map[string]IndexSpec // keyed by Cols.Key()

	AvailablePages page.PageNum
	FullPages      page.PageNum
	MaxPagenum     page.PageNum
	RestSlot       int
}

// NewMeta builds an empty Meta for a freshly created table.
func NewMeta(id int, name string, cols []record.Column) *Meta {
	return &Meta{
		ID:             id,
		Name:           name,
		Columns:        cols,
		ColConstraints: make([]Constraint, len(cols)),
		ForeignKey:     make(map[string]ForeignKeyDef),
		AsForeignKey:   make(map[string][]RefSpec),
		IndexRecord:    make(map[string]IndexSpec),
		AvailablePages: page.None,
		FullPages:      page.None,
	}
}

// ColByName returns the column index for name, or -1 if absent.
func (m *Meta) ColByName(name string) int {
	for i, c := range m.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}
