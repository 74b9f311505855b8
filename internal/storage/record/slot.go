package record

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Layout computes the fixed geometry implied by a table's column list:
// the null-bitmap width, total slot size, and the max number of slots a
// page can hold (capped by the 56-byte slot-bitmap's 448-slot limit).
type Layout struct {
	Columns       []Column
	NullBitBytes  int
	SlotSize      int
	colOffset     []int // byte offset of column i within a slot, after the null bitmap
}

// NewLayout derives a Layout from a column list.
func NewLayout(cols []Column) Layout {
	nb := (len(cols) + 7) / 8
	offs := make([]int, len(cols))
	size := nb
	for i, c := range cols {
		offs[i] = size
		size += c.Size()
	}
	return Layout{Columns: cols, NullBitBytes: nb, SlotSize: size, colOffset: offs}
}

// MaxSlotsPerPage returns the number of slots of this layout's size that fit
// in one page's payload, capped at the slot-bitmap's hard limit.
func (l Layout) MaxSlotsPerPage(payloadSize, bitmapCap int) int {
	max := payloadSize / l.SlotSize
	if max > bitmapCap {
		max = bitmapCap
	}
	return max
}

func (l Layout) nullBit(slot []byte, i int) bool {
	return slot[i/8]&(1<<uint(i%8)) != 0
}

func (l Layout) setNullBit(slot []byte, i int, isNull bool) {
	mask := byte(1 << uint(i%8))
	if isNull {
		slot[i/8] |= mask
	} else {
		slot[i/8] &^= mask
	}
}

// Encode writes row (len(row) == len(nulls) == len(l.Columns), nulls[i]
// marking column i as SQL NULL) into a freshly allocated slot-sized buffer.
func (l Layout) Encode(row []Value, nulls []bool) ([]byte, error) {
	if len(row) != len(l.Columns) || len(nulls) != len(l.Columns) {
		return nil, fmt.Errorf("record: row has %d values, layout has %d columns", len(row), len(l.Columns))
	}
	buf := make([]byte, l.SlotSize)
	for i, c := range l.Columns {
		l.setNullBit(buf, i, nulls[i])
		if nulls[i] {
			continue
		}
		if err := encodeColumn(buf[l.colOffset[i]:l.colOffset[i]+c.Size()], c, row[i]); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// Decode reads a slot-sized buffer back into a row of Values plus a
// per-column null mask.
func (l Layout) Decode(buf []byte) ([]Value, []bool, error) {
	if len(buf) != l.SlotSize {
		return nil, nil, fmt.Errorf("record: slot buffer has %d bytes, want %d", len(buf), l.SlotSize)
	}
	row := make([]Value, len(l.Columns))
	nulls := make([]bool, len(l.Columns))
	for i, c := range l.Columns {
		nulls[i] = l.nullBit(buf, i)
		if nulls[i] {
			continue
		}
		v, err := decodeColumn(buf[l.colOffset[i]:l.colOffset[i]+c.Size()], c)
		if err != nil {
			return nil, nil, err
		}
		row[i] = v
	}
	return row, nulls, nil
}

// DecodeColumn reads just column idx out of a slot buffer, skipping the
// others — used by Table.Select(rid, col) to avoid decoding a whole row.
func (l Layout) DecodeColumn(buf []byte, idx int) (Value, bool, error) {
	if l.nullBit(buf, idx) {
		return Value{}, true, nil
	}
	c := l.Columns[idx]
	v, err := decodeColumn(buf[l.colOffset[idx]:l.colOffset[idx]+c.Size()], c)
	return v, false, err
}

// EncodeColumn overwrites just column idx's bytes (and null bit) within an
// existing slot buffer, in place — used by Table.Update for single-column
// writes.
func (l Layout) EncodeColumn(buf []byte, idx int, v Value, isNull bool) error {
	l.setNullBit(buf, idx, isNull)
	if isNull {
		c := l.Columns[idx]
		for j := l.colOffset[idx]; j < l.colOffset[idx]+c.Size(); j++ {
			buf[j] = 0
		}
		return nil
	}
	c := l.Columns[idx]
	return encodeColumn(buf[l.colOffset[idx]:l.colOffset[idx]+c.Size()], c, v)
}

func encodeColumn(dst []byte, c Column, v Value) error {
	if err := CheckType(c, v); err != nil {
		return err
	}
	switch c.Typ {
	case TypeInt, TypeDate:
		binary.LittleEndian.PutUint32(dst, uint32(v.Int()))
	case TypeFloat:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(v.Float()))
	case TypeChar, TypeVarchar:
		for i := range dst {
			dst[i] = 0
		}
		copy(dst, v.String())
		// dst is n+1 bytes; the byte at v.String()'s length (or dst[n]) is
		// already zero, acting as the NUL terminator.
	}
	return nil
}

func decodeColumn(src []byte, c Column) (Value, error) {
	switch c.Typ {
	case TypeInt:
		return IntValue(int32(binary.LittleEndian.Uint32(src))), nil
	case TypeDate:
		return DateValue(int32(binary.LittleEndian.Uint32(src))), nil
	case TypeFloat:
		return FloatValue(math.Float32frombits(binary.LittleEndian.Uint32(src))), nil
	case TypeChar, TypeVarchar:
		n := 0
		for n < len(src) && src[n] != 0 {
			n++
		}
		return StringValue(string(src[:n])), nil
	default:
		return Value{}, fmt.Errorf("record: unknown column type %v", c.Typ)
	}
}
