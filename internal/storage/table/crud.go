package table

import (
	"fmt"

	"relcore/internal/dberrors"
	"relcore/internal/storage/index"
	"relcore/internal/storage/page"
	"relcore/internal/storage/record"
)

// Cell is one row value: either a concrete record.Value or SQL NULL.
type Cell struct {
	V    record.Value
	Null bool
}

// NonNull wraps a concrete value as a non-null Cell.
func NonNull(v record.Value) Cell { return Cell{V: v} }

// NullCell is the SQL NULL cell.
func NullCell() Cell { return Cell{Null: true} }

func valuesOf(cells []Cell) []record.Value {
	out := make([]record.Value, len(cells))
	for i, c := range cells {
		out[i] = c.V
	}
	return out
}

func nullsOf(cells []Cell) []bool {
	out := make([]bool, len(cells))
	for i, c := range cells {
		out[i] = c.Null
	}
	return out
}

// Insert validates row, enforces every constraint, writes it into the head
// of the available_pages chain, updates every index, and returns its RowID.
// Per spec.md §4.6: validate everything first, then write bytes, then
// update indices — so a failed validation never leaves a partial write.
func (t *Table) Insert(cells []Cell) (page.RowID, error) {
	if len(cells) != len(t.Meta.Columns) {
		return 0, fmt.Errorf("%w: expected %d values, got %d", dberrors.ErrTypeError, len(t.Meta.Columns), len(cells))
	}
	if err := t.validateRow(cells); err != nil {
		return 0, err
	}
	if err := t.checkUniqueAll(cells, page.RowID(page.None)); err != nil {
		return 0, err
	}
	if err := t.checkForeignKeysAll(cells); err != nil {
		return 0, err
	}

	buf, err := t.Layout.Encode(valuesOf(cells), nullsOf(cells))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", dberrors.ErrTypeError, err)
	}

	if t.Meta.AvailablePages == page.None {
		if err := t.allocatePage(); err != nil {
			return 0, fmt.Errorf("%w: %v", dberrors.ErrCapacityExceeded, err)
		}
	}
	pn := t.Meta.AvailablePages

	var slot int
	var full bool
	err = t.modifyPage(pn, func(p *page.Page) {
		slot = firstFreeSlot(p, t.maxSlots)
		off := page.SlotOffset(slot, t.Layout.SlotSize)
		copy(p.Bytes()[off:off+t.Layout.SlotSize], buf)
		p.SetSlotOccupied(slot, true)
		full = p.IsFull(t.maxSlots)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", dberrors.ErrIOError, err)
	}
	t.Meta.RestSlot--
	if full {
		t.moveAvailableToFull(pn)
	}

	rid := page.MakeRowID(pn, slot)
	t.insertIntoAllIndices(rid, cells)
	return rid, nil
}

func (t *Table) validateRow(cells []Cell) error {
	for i, c := range cells {
		if c.Null {
			if t.Meta.ColConstraints[i].Has(NotNull) {
				return fmt.Errorf("%w: column %s is NOT NULL", dberrors.ErrConstraintViolation, t.Meta.Columns[i].Name)
			}
			continue
		}
		if err := record.CheckType(t.Meta.Columns[i], c.V); err != nil {
			return fmt.Errorf("%w: %v", dberrors.ErrTypeError, err)
		}
	}
	for _, pk := range t.Meta.Primary {
		if cells[pk].Null {
			return fmt.Errorf("%w: primary key column %s cannot be NULL", dberrors.ErrConstraintViolation, t.Meta.Columns[pk].Name)
		}
	}
	return nil
}

func firstFreeSlot(p *page.Page, maxSlots int) int {
	for i := 0; i < maxSlots; i++ {
		if !p.SlotOccupied(i) {
			return i
		}
	}
	return -1
}

func (t *Table) moveAvailableToFull(pn page.PageNum) {
	lst := page.NewList(pn, t.mustGet, t.mustPut)
	next, ok := lst.Remove()
	if t.Meta.AvailablePages == pn {
		if ok {
			t.Meta.AvailablePages = next
		} else {
			t.Meta.AvailablePages = page.None
		}
	}
	t.linkIntoFull(pn)
}

func (t *Table) linkIntoFull(pn page.PageNum) {
	// pn has already been spliced out of whatever chain it was in by the
	// caller and re-linked to itself; attach it to full_pages.
	if t.Meta.FullPages == page.None {
		t.Meta.FullPages = pn
		return
	}
	lst := page.NewList(t.Meta.FullPages, t.mustGet, t.mustPut)
	lst.Insert(pn)
}

func (t *Table) moveFullToAvailable(pn page.PageNum) {
	lst := page.NewList(pn, t.mustGet, t.mustPut)
	next, ok := lst.Remove()
	if t.Meta.FullPages == pn {
		if ok {
			t.Meta.FullPages = next
		} else {
			t.Meta.FullPages = page.None
		}
	}
	if t.Meta.AvailablePages == page.None {
		t.Meta.AvailablePages = pn
	} else {
		lst2 := page.NewList(t.Meta.AvailablePages, t.mustGet, t.mustPut)
		lst2.Insert(pn)
	}
}

// readSlotBytes returns the raw slot bytes for rid, or an error if the slot
// is unoccupied or the row id is out of range.
func (t *Table) readSlotBytes(rid page.RowID) ([]byte, error) {
	pn, slot := rid.Split()
	if pn == 0 || pn > t.Meta.MaxPagenum {
		return nil, fmt.Errorf("%w: row %d out of range", dberrors.ErrObjectNotFound, rid)
	}
	var out []byte
	err := t.readPage(pn, func(p *page.Page) {
		if !p.SlotOccupied(slot) {
			return
		}
		off := page.SlotOffset(slot, t.Layout.SlotSize)
		out = make([]byte, t.Layout.SlotSize)
		copy(out, p.Bytes()[off:off+t.Layout.SlotSize])
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dberrors.ErrIOError, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: row %d", dberrors.ErrObjectNotFound, rid)
	}
	return out, nil
}

// SelectRow re-materialises every column of rid.
func (t *Table) SelectRow(rid page.RowID) ([]Cell, error) {
	buf, err := t.readSlotBytes(rid)
	if err != nil {
		return nil, err
	}
	values, nulls, err := t.Layout.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dberrors.ErrInternal, err)
	}
	cells := make([]Cell, len(values))
	for i := range values {
		cells[i] = Cell{V: values[i], Null: nulls[i]}
	}
	return cells, nil
}

// SelectCols re-materialises just the given columns of rid, in order.
func (t *Table) SelectCols(rid page.RowID, cols []int) ([]Cell, error) {
	row, err := t.SelectRow(rid)
	if err != nil {
		return nil, err
	}
	out := make([]Cell, len(cols))
	for i, c := range cols {
		out[i] = row[c]
	}
	return out, nil
}

// Select returns a single column's value for rid.
func (t *Table) Select(rid page.RowID, col int) (Cell, error) {
	buf, err := t.readSlotBytes(rid)
	if err != nil {
		return Cell{}, err
	}
	v, isNull, err := t.Layout.DecodeColumn(buf, col)
	if err != nil {
		return Cell{}, fmt.Errorf("%w: %v", dberrors.ErrInternal, err)
	}
	return Cell{V: v, Null: isNull}, nil
}

// ReadColumn implements index.RowReader.
func (t *Table) ReadColumn(rid page.RowID, col int) (record.Value, bool, error) {
	c, err := t.Select(rid, col)
	if err != nil {
		return record.Value{}, false, err
	}
	return c.V, c.Null, nil
}

// Rows iterates every live RowID. If any index exists it is used as a
// convenient ordered source; otherwise pages are scanned brute-force,
// skipping cleared bits in each page's slot bitmap, per spec.md §4.6.
func (t *Table) Rows() ([]page.RowID, error) {
	for _, ci := range t.indices {
		out := make([]page.RowID, 0, ci.Size())
		for _, e := range ci.Entries() {
			out = append(out, e.RID)
		}
		return out, nil
	}
	return t.scanAllRows()
}

func (t *Table) scanAllRows() ([]page.RowID, error) {
	var out []page.RowID
	seen := map[page.PageNum]bool{}
	walk := func(head page.PageNum) error {
		if head == page.None {
			return nil
		}
		pn := head
		for {
			if seen[pn] {
				break
			}
			seen[pn] = true
			var next page.PageNum
			err := t.readPage(pn, func(p *page.Page) {
				for i := 0; i < t.maxSlots; i++ {
					if p.SlotOccupied(i) {
						out = append(out, page.MakeRowID(pn, i))
					}
				}
				next = p.Next()
			})
			if err != nil {
				return err
			}
			if next == pn {
				break
			}
			pn = next
		}
		return nil
	}
	if err := walk(t.Meta.AvailablePages); err != nil {
		return nil, err
	}
	if err := walk(t.Meta.FullPages); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete clears rid's slot bit, moves its page back onto available_pages if
// it was full, removes rid from every index, and cascades the delete to
// every table that declares a foreign key referencing this one (spec.md
// §4.6). Cascade failures surface to the caller without rollback, per
// spec.md §5.
func (t *Table) Delete(rid page.RowID) error {
	cells, err := t.SelectRow(rid)
	if err != nil {
		return err
	}
	pn, slot := rid.Split()

	var wasFull bool
	err = t.modifyPage(pn, func(p *page.Page) {
		wasFull = p.IsFull(t.maxSlots)
		p.SetSlotOccupied(slot, false)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", dberrors.ErrIOError, err)
	}
	t.Meta.RestSlot++
	if wasFull {
		t.moveFullToAvailable(pn)
	}

	t.deleteFromAllIndices(rid, cells)

	return t.cascadeDelete(cells)
}

// Update enforces the same uniqueness/FK checks as Insert, restricted to
// constraints touching col, removes rid from affected indices, writes the
// new column bytes in place, re-inserts into those indices, and propagates
// the change to any table whose foreign key references col (cascading
// update).
func (t *Table) Update(rid page.RowID, col int, newVal Cell) error {
	oldRow, err := t.SelectRow(rid)
	if err != nil {
		return err
	}
	if newVal.Null {
		if t.Meta.ColConstraints[col].Has(NotNull) {
			return fmt.Errorf("%w: column %s is NOT NULL", dberrors.ErrConstraintViolation, t.Meta.Columns[col].Name)
		}
		for _, pk := range t.Meta.Primary {
			if pk == col {
				return fmt.Errorf("%w: primary key column %s cannot be NULL", dberrors.ErrConstraintViolation, t.Meta.Columns[col].Name)
			}
		}
	} else if err := record.CheckType(t.Meta.Columns[col], newVal.V); err != nil {
		return fmt.Errorf("%w: %v", dberrors.ErrTypeError, err)
	}

	newRow := make([]Cell, len(oldRow))
	copy(newRow, oldRow)
	newRow[col] = newVal

	if err := t.checkUniqueAffecting(col, newRow, rid); err != nil {
		return err
	}
	if err := t.checkForeignKeysAffecting(col, newRow); err != nil {
		return err
	}

	t.removeFromIndicesAffecting(col, rid, oldRow)

	pn, slot := rid.Split()
	err = t.modifyPage(pn, func(p *page.Page) {
		off := page.SlotOffset(slot, t.Layout.SlotSize)
		slotBuf := p.Bytes()[off : off+t.Layout.SlotSize]
		t.Layout.EncodeColumn(slotBuf, col, newVal.V, newVal.Null)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", dberrors.ErrIOError, err)
	}

	t.reinsertIntoIndicesAffecting(col, rid, newRow)

	return t.cascadeUpdate(col, oldRow[col], newVal)
}

// ReserveFor pre-extends the backing file to hold at least n additional
// slots, for bulk loading.
func (t *Table) ReserveFor(nSlots int) error {
	for t.Meta.RestSlot < nSlots {
		if err := t.allocatePage(); err != nil {
			return err
		}
	}
	return nil
}

// Table implements index.RowReader (via ReadColumn), so an index can deep-read
// its owning table without importing table from index.
var _ index.RowReader = (*Table)(nil)
