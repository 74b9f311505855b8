package index

import (
	"encoding/binary"
	"fmt"

	"relcore/internal/storage/page"
)

// Marshal encodes a ColIndex into the compact binary format persisted as
// tb<id>-col<c1>_<c2>.bp.index (spec.md §6.1). Grounded in the teacher's
// row_codec.go fixed binary.LittleEndian idiom.
func (ci *ColIndex) Marshal() []byte {
	buf := make([]byte, 0, 16+len(ci.entries)*32)
	var hdr [14]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(ci.TableID))
	hdr[4] = byte(ci.Cols[0])
	hdr[5] = byte(ci.Cols[1])
	hdr[6] = byte(ci.Cols[2])
	hdr[7] = byte(ci.Len)
	if ci.Unique {
		hdr[8] = 1
	}
	binary.LittleEndian.PutUint32(hdr[9:], uint32(len(ci.entries)))
	buf = append(buf, hdr[:13]...)

	for _, e := range ci.entries {
		var eb [4 + 3 + 1 + 12 + 1]byte
		off := 0
		binary.LittleEndian.PutUint32(eb[off:], uint32(e.RID))
		off += 4
		eb[off] = byte(e.Cols[0])
		eb[off+1] = byte(e.Cols[1])
		eb[off+2] = byte(e.Cols[2])
		off += 3
		eb[off] = byte(e.Len)
		off++
		var nullBits byte
		for i := 0; i < MaxCols; i++ {
			copy(eb[off+i*4:], e.FastCmp[i][:])
			if e.IsNull[i] {
				nullBits |= 1 << uint(i)
			}
		}
		off += MaxCols * 4
		eb[off] = nullBits
		buf = append(buf, eb[:]...)
	}
	return buf
}

// Unmarshal decodes a ColIndex previously written by Marshal. The caller
// must Bind a RowReader before using comparisons that require deep reads.
func Unmarshal(data []byte) (*ColIndex, error) {
	if len(data) < 13 {
		return nil, fmt.Errorf("index: truncated header (%d bytes)", len(data))
	}
	ci := &ColIndex{}
	ci.TableID = int(binary.LittleEndian.Uint32(data[0:]))
	ci.Cols[0] = int(data[4])
	ci.Cols[1] = int(data[5])
	ci.Cols[2] = int(data[6])
	ci.Len = int(data[7])
	ci.Unique = data[8] != 0
	count := int(binary.LittleEndian.Uint32(data[9:]))

	off := 13
	const entrySize = 4 + 3 + 1 + 12 + 1
	ci.entries = make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		if off+entrySize > len(data) {
			return nil, fmt.Errorf("index: truncated entry %d", i)
		}
		var e Entry
		e.RID = page.RowID(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		e.Cols[0] = int(data[off])
		e.Cols[1] = int(data[off+1])
		e.Cols[2] = int(data[off+2])
		off += 3
		e.Len = int(data[off])
		off++
		for j := 0; j < MaxCols; j++ {
			copy(e.FastCmp[j][:], data[off+j*4:off+j*4+4])
		}
		off += MaxCols * 4
		nullBits := data[off]
		off++
		for j := 0; j < MaxCols; j++ {
			e.IsNull[j] = nullBits&(1<<uint(j)) != 0
		}
		ci.entries = append(ci.entries, e)
	}
	return ci, nil
}
