package table

import (
	"fmt"

	"relcore/internal/dberrors"
	"relcore/internal/storage/bufferpool"
	"relcore/internal/storage/index"
	"relcore/internal/storage/page"
	"relcore/internal/storage/record"
)

// Resolver gives a Table a weak, re-resolvable path to other tables for
// foreign-key checks and cascades (spec.md §9: "a weak reference, not
// ownership" — never serialize it, re-resolve on load). The catalog is the
// only implementer.
type Resolver interface {
	TableByID(id int) (*Table, error)
}

// Table is the runtime view of one table: its metadata, its row layout, and
// the buffer pool through which every page read/write passes.
type Table struct {
	Meta     *Meta
	Layout   record.Layout
	bp       *bufferpool.BufferPool
	dataPath string
	indices  map[string]*index.ColIndex
	resolver Resolver
	maxSlots int
}

// Create initializes a brand-new table: opens its data file through bp
// (which pre-extends it to 2 pages per spec.md §4.1), reserves page 1 as
// the table's first available page, and leaves page 0 as the zeroed
// sentinel/root described in spec.md §9.
func Create(id int, name string, cols []record.Column, dataPath string, bp *bufferpool.BufferPool, resolver Resolver) (*Table, error) {
	if err := bp.Open(dataPath); err != nil {
		return nil, err
	}
	layout := record.NewLayout(cols)
	maxSlots := layout.MaxSlotsPerPage(page.PayloadSize, page.SlotBitmapBytes)
	if maxSlots <= 0 {
		return nil, fmt.Errorf("%w: row is too wide for a single page", dberrors.ErrConstraintViolation)
	}
	meta := NewMeta(id, name, cols)
	t := &Table{Meta: meta, Layout: layout, bp: bp, dataPath: dataPath, indices: make(map[string]*index.ColIndex), resolver: resolver, maxSlots: maxSlots}

	if err := t.allocatePage(); err != nil {
		return nil, err
	}
	return t, nil
}

// Open re-attaches a loaded Meta (and, separately, its indices) to a live
// Table, binding this table as the RowReader for each index's deep-compare
// fallback.
func Open(meta *Meta, dataPath string, bp *bufferpool.BufferPool, resolver Resolver, indices map[string]*index.ColIndex) (*Table, error) {
	if err := bp.Open(dataPath); err != nil {
		return nil, err
	}
	layout := record.NewLayout(meta.Columns)
	maxSlots := layout.MaxSlotsPerPage(page.PayloadSize, page.SlotBitmapBytes)
	t := &Table{Meta: meta, Layout: layout, bp: bp, dataPath: dataPath, indices: indices, resolver: resolver, maxSlots: maxSlots}
	for _, ci := range indices {
		ci.Bind(t)
	}
	return t, nil
}

// Close writes back every dirty buffer belonging to this table's file.
func (t *Table) Close() error {
	return t.bp.Close(t.dataPath)
}

// DataPath returns the backing file path.
func (t *Table) DataPath() string { return t.dataPath }

// MaxSlots returns the number of row slots a single page can hold under
// this table's layout.
func (t *Table) MaxSlots() int { return t.maxSlots }

// Indices returns the live index set, keyed by ColVec.Key().
func (t *Table) Indices() map[string]*index.ColIndex { return t.indices }

func (t *Table) readPage(pn page.PageNum, fn func(*page.Page)) error {
	return t.bp.Read(t.dataPath, pn, fn)
}

func (t *Table) modifyPage(pn page.PageNum, fn func(*page.Page)) error {
	return t.bp.Modify(t.dataPath, pn, fn)
}

// allocatePage grows the data file by one page, initializes it as an empty
// slotted page, and links it into the available_pages chain: as its head
// when the chain is empty, otherwise right after the current head.
func (t *Table) allocatePage() error {
	newPN := t.Meta.MaxPagenum
	if t.Meta.MaxPagenum == 0 {
		newPN = 1 // page 0 is the reserved sentinel.
	} else {
		newPN = t.Meta.MaxPagenum + 1
	}
	if err := t.bp.Reserve(t.dataPath, newPN+1); err != nil {
		return err
	}
	if err := t.modifyPage(newPN, func(p *page.Page) {
		p.Init(newPN)
	}); err != nil {
		return err
	}
	if t.Meta.AvailablePages == page.None {
		t.Meta.AvailablePages = newPN
	} else {
		lst := page.NewList(t.Meta.AvailablePages, t.mustGet, t.mustPut)
		lst.Insert(newPN)
	}
	t.Meta.MaxPagenum = newPN
	t.Meta.RestSlot += t.maxSlots
	return nil
}

// mustGet/mustPut adapt buffer-pool access to the synchronous page.Page
// accessor shape PageList expects. Errors are folded into dberrors.ErrInternal
// panics: a read/write failure against an already-open file here means the
// on-disk structure is corrupt, which spec.md §7 calls out as fatal.
func (t *Table) mustGet(pn page.PageNum) *page.Page {
	var out *page.Page
	if err := t.readPage(pn, func(p *page.Page) { out = p }); err != nil {
		panic(fmt.Errorf("%w: read page %d: %v", dberrors.ErrInternal, pn, err))
	}
	return out
}

func (t *Table) mustPut(pn page.PageNum, p *page.Page) {
	if err := t.modifyPage(pn, func(dst *page.Page) { copy(dst.Bytes(), p.Bytes()) }); err != nil {
		panic(fmt.Errorf("%w: write page %d: %v", dberrors.ErrInternal, pn, err))
	}
}
