package catalog

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"relcore/internal/dberrors"
)

// writeTableMeta serialises a name↔id map to <dir>/database.tablemeta: a
// uint32 count followed by (uint32 id, uint32 name length, name bytes)
// triples, matching the fixed binary.LittleEndian idiom used throughout this
// module.
func writeTableMeta(dir string, nameToID map[string]int) error {
	buf := make([]byte, 0, 64)
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(nameToID)))
	buf = append(buf, countBuf[:]...)
	for name, id := range nameToID {
		var idBuf [4]byte
		binary.LittleEndian.PutUint32(idBuf[:], uint32(id))
		buf = append(buf, idBuf[:]...)

		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(name)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, name...)
	}
	path := filepath.Join(dir, tableMetaFile)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", dberrors.ErrIOError, path, err)
	}
	return nil
}

// readTableMeta loads the name↔id map from <dir>/database.tablemeta. A
// missing file is treated as an empty map rather than an error.
func readTableMeta(dir string) (map[string]int, error) {
	path := filepath.Join(dir, tableMetaFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]int), nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", dberrors.ErrIOError, path, err)
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: truncated %s", dberrors.ErrInternal, path)
	}
	count := int(binary.LittleEndian.Uint32(data[0:]))
	out := make(map[string]int, count)
	off := 4
	for i := 0; i < count; i++ {
		if off+8 > len(data) {
			return nil, fmt.Errorf("%w: truncated %s at entry %d", dberrors.ErrInternal, path, i)
		}
		id := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		nameLen := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if off+nameLen > len(data) {
			return nil, fmt.Errorf("%w: truncated %s name at entry %d", dberrors.ErrInternal, path, i)
		}
		name := string(data[off : off+nameLen])
		off += nameLen
		out[name] = id
	}
	return out, nil
}
