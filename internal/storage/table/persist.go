package table

import (
	"encoding/binary"
	"fmt"

	"relcore/internal/storage/page"
	"relcore/internal/storage/record"
)

// Marshal encodes a Meta into the binary .metadata format described in
// spec.md §6.1: a compact, self-describing header followed by one fixed
// record per column and then the constraint tables. Grounded in the
// teacher's row_codec.go fixed-width binary.LittleEndian idiom, extended to
// cover catalog-level constraint bookkeeping the teacher's codec never had
// to (it had no foreign keys).
func (m *Meta) Marshal() []byte {
	buf := make([]byte, 0, 256)
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(m.ID))
	buf = append(buf, hdr[:]...)
	buf = appendString(buf, m.Name)

	buf = appendUint32(buf, uint32(len(m.Columns)))
	for i, c := range m.Columns {
		buf = appendString(buf, c.Name)
		buf = append(buf, byte(c.Typ))
		buf = appendUint32(buf, uint32(c.Len))
		buf = append(buf, byte(m.ColConstraints[i]))
	}

	buf = appendColVec(buf, m.Primary)

	buf = appendUint32(buf, uint32(len(m.UniqueSets)))
	for _, u := range m.UniqueSets {
		buf = appendColVec(buf, u)
	}

	buf = appendUint32(buf, uint32(len(m.ForeignKey)))
	for _, fk := range m.ForeignKey {
		buf = appendColVec(buf, fk.Cols)
		buf = appendUint32(buf, uint32(fk.ForeignTable))
		buf = appendColVec(buf, fk.ForeignCols)
	}

	buf = appendUint32(buf, uint32(len(m.IndexRecord)))
	for _, idx := range m.IndexRecord {
		buf = appendColVec(buf, idx.Cols)
		if idx.Unique {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	buf = appendUint32(buf, uint32(m.AvailablePages))
	buf = appendUint32(buf, uint32(m.FullPages))
	buf = appendUint32(buf, uint32(m.MaxPagenum))
	buf = appendUint32(buf, uint32(m.RestSlot))
	return buf
}

// UnmarshalMeta decodes a Meta previously written by Marshal. AsForeignKey
// (the reverse-reference map) is rebuilt by the catalog once every table's
// Meta in a database has been loaded, since it depends on cross-table
// knowledge this function alone does not have.
func UnmarshalMeta(data []byte) (*Meta, error) {
	r := &reader{buf: data}
	m := &Meta{
		ForeignKey:   make(map[string]ForeignKeyDef),
		AsForeignKey: make(map[string][]RefSpec),
		IndexRecord:  make(map[string]IndexSpec),
	}
	m.ID = int(r.u32())
	m.Name = r.str()

	nCols := int(r.u32())
	m.Columns = make([]record.Column, nCols)
	m.ColConstraints = make([]Constraint, nCols)
	for i := 0; i < nCols; i++ {
		name := r.str()
		typ := record.Type(r.byte())
		ln := int(r.u32())
		m.Columns[i] = record.Column{Name: name, Typ: typ, Len: ln}
		m.ColConstraints[i] = Constraint(r.byte())
	}

	m.Primary = r.colVec()

	nUnique := int(r.u32())
	m.UniqueSets = make([]ColVec, nUnique)
	for i := range m.UniqueSets {
		m.UniqueSets[i] = r.colVec()
	}

	nFK := int(r.u32())
	for i := 0; i < nFK; i++ {
		cols := r.colVec()
		ft := int(r.u32())
		fcols := r.colVec()
		fk := ForeignKeyDef{Cols: cols, ForeignTable: ft, ForeignCols: fcols}
		m.ForeignKey[cols.Key()] = fk
	}

	nIdx := int(r.u32())
	for i := 0; i < nIdx; i++ {
		cols := r.colVec()
		unique := r.byte() != 0
		m.IndexRecord[cols.Key()] = IndexSpec{Cols: cols, Unique: unique}
	}

	m.AvailablePages = page.PageNum(r.u32())
	m.FullPages = page.PageNum(r.u32())
	m.MaxPagenum = page.PageNum(r.u32())
	m.RestSlot = int(r.u32())

	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendColVec(buf []byte, v ColVec) []byte {
	buf = append(buf, byte(len(v)))
	for _, c := range v {
		buf = append(buf, byte(c))
	}
	return buf
}

// reader walks a Marshal-encoded buffer sequentially, latching the first
// error encountered so every call site can ignore per-field error checks.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("table: truncated metadata at offset %d (need %d, have %d)", r.off, n, len(r.buf)-r.off)
		return false
	}
	return true
}

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) byte() byte {
	if !r.need(1) {
		return 0
	}
	b := r.buf[r.off]
	r.off++
	return b
}

func (r *reader) str() string {
	n := int(r.u32())
	if !r.need(n) {
		return ""
	}
	s := string(r.buf[r.off : r.off+n])
	r.off += n
	return s
}

func (r *reader) colVec() ColVec {
	n := int(r.byte())
	v := make(ColVec, n)
	for i := 0; i < n; i++ {
		v[i] = int(r.byte())
	}
	return v
}
