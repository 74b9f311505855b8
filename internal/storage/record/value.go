// Package record implements the fixed-width, slotted row layout described in
// spec.md §3/§4.5: typed column encode/decode into a per-table slot size,
// a leading null bitmap, and the slot/page arithmetic that derives
// max-slots-per-page from a table's column list.
//
// Grounded on the teacher's internal/storage/pager/row_codec.go (the
// tag-switch + binary.LittleEndian idiom) and slotted_page.go (the
// Wrap*/Init* constructor pattern over a raw []byte), re-derived for the
// spec's fixed-width, bitmap-addressed slots rather than that file's
// variable-length, length-prefixed slot directory.
package record

import (
	"fmt"
	"math"
	"strings"
)

// Type identifies a column's declared SQL type.
type Type uint8

const (
	TypeInt Type = iota
	TypeFloat
	TypeDate
	TypeChar
	TypeVarchar
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeFloat:
		return "FLOAT"
	case TypeDate:
		return "DATE"
	case TypeChar:
		return "CHAR"
	case TypeVarchar:
		return "VARCHAR"
	default:
		return "UNKNOWN"
	}
}

// Column describes one column's declared type and, for CHAR/VARCHAR, its
// maximum length n (n <= 255).
type Column struct {
	Name string
	Typ  Type
	Len  int // only meaningful for TypeChar/TypeVarchar
}

// Size returns the on-disk width of this column's slot, excluding the
// shared null bitmap.
func (c Column) Size() int {
	switch c.Typ {
	case TypeInt, TypeFloat, TypeDate:
		return 4
	case TypeChar, TypeVarchar:
		return c.Len + 1
	default:
		panic(fmt.Sprintf("record: unknown column type %v", c.Typ))
	}
}

// Value is a tagged union over the four supported SQL value domains. It has
// no NULL state of its own: SQL NULL is carried by a separate flag beside
// the Value (the nulls slice given to Layout.Encode, table.Cell.Null).
type Value struct {
	typ Type
	i   int32
	f   float32
	s   string
}

func IntValue(v int32) Value     { return Value{typ: TypeInt, i: v} }
func FloatValue(v float32) Value { return Value{typ: TypeFloat, f: v} }
func DateValue(v int32) Value    { return Value{typ: TypeDate, i: v} }
func StringValue(v string) Value { return Value{typ: TypeVarchar, s: v} }

func (v Value) Type() Type     { return v.typ }
func (v Value) Int() int32     { return v.i }
func (v Value) Float() float32 { return v.f }
func (v Value) Date() int32    { return v.i }
func (v Value) String() string { return v.s }

// Equal reports whether two values of the same underlying domain are equal.
func (v Value) Equal(o Value) bool {
	switch v.typ {
	case TypeInt, TypeDate:
		return v.i == o.i
	case TypeFloat:
		return v.f == o.f
	case TypeChar, TypeVarchar:
		return v.s == o.s
	default:
		return false
	}
}

// Compare returns -1, 0, or 1 comparing v to o, both assumed to be of the
// same declared column type. Strings compare byte-wise (matches the
// NUL-terminated on-disk representation's natural order for ASCII data).
func (v Value) Compare(o Value) int {
	switch v.typ {
	case TypeInt, TypeDate:
		switch {
		case v.i < o.i:
			return -1
		case v.i > o.i:
			return 1
		default:
			return 0
		}
	case TypeFloat:
		switch {
		case v.f < o.f:
			return -1
		case v.f > o.f:
			return 1
		default:
			return 0
		}
	default:
		return strings.Compare(v.s, o.s)
	}
}

// CheckType reports whether v is compatible with column c's declared type
// and width (for CHAR/VARCHAR, that it fits in c.Len bytes).
func CheckType(c Column, v Value) error {
	wantKind := c.Typ
	if (wantKind == TypeChar || wantKind == TypeVarchar) && (v.typ == TypeChar || v.typ == TypeVarchar) {
		if len(v.s) > c.Len {
			return fmt.Errorf("record: value %q exceeds column %s(%d)", v.s, c.Name, c.Len)
		}
		return nil
	}
	if v.typ != wantKind {
		return fmt.Errorf("record: value of type %s is not compatible with column %s of type %s", v.typ, c.Name, wantKind)
	}
	return nil
}

// FastCmp produces the 4-byte order-preserving summary used by the index's
// fast-compare shortcut (spec.md §3/§4.7): big-endian int/date bits with the
// sign bit flipped, float bits mapped so byte order matches numeric order,
// or the first four bytes of a string (NUL-padded).
func FastCmp(v Value) [4]byte {
	var out [4]byte
	switch v.typ {
	case TypeInt, TypeDate:
		putInt32BE(out[:], v.i)
	case TypeFloat:
		out = floatOrderBytes(v.f)
	default:
		copy(out[:], padRight(v.s, 4))
	}
	return out
}

// floatOrderBytes maps an IEEE-754 bit pattern to a big-endian byte sequence
// whose unsigned ordering matches float ordering (assuming no NaN): for
// non-negative floats, flip the sign bit; for negative floats, invert every
// bit so that more-negative values sort first.
func floatOrderBytes(f float32) [4]byte {
	u := math.Float32bits(f)
	if u&0x80000000 != 0 {
		u = ^u
	} else {
		u |= 0x80000000
	}
	var out [4]byte
	out[0] = byte(u >> 24)
	out[1] = byte(u >> 16)
	out[2] = byte(u >> 8)
	out[3] = byte(u)
	return out
}

func putInt32BE(b []byte, v int32) {
	u := uint32(v) ^ 0x80000000 // shift so signed order matches unsigned byte order
	b[0] = byte(u >> 24)
	b[1] = byte(u >> 16)
	b[2] = byte(u >> 8)
	b[3] = byte(u)
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat("\x00", n-len(s))
}
