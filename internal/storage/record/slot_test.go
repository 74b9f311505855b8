package record

import "testing"

func testLayout() Layout {
	return NewLayout([]Column{
		{Name: "id", Typ: TypeInt},
		{Name: "score", Typ: TypeFloat},
		{Name: "name", Typ: TypeVarchar, Len: 8},
		{Name: "born", Typ: TypeDate},
	})
}

// Every row this layout encodes must decode back to the exact same values
// and null mask (spec.md's round-trip invariant).
func TestLayoutEncodeDecodeRoundTrip(t *testing.T) {
	l := testLayout()
	row := []Value{IntValue(42), FloatValue(3.5), StringValue("alice"), DateValue(20240101)}
	nulls := []bool{false, false, false, false}

	buf, err := l.Encode(row, nulls)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(buf) != l.SlotSize {
		t.Fatalf("encoded buffer is %d bytes, layout slot size is %d", len(buf), l.SlotSize)
	}

	gotRow, gotNulls, err := l.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range row {
		if gotNulls[i] != nulls[i] {
			t.Fatalf("col %d: null mismatch", i)
		}
		if !gotRow[i].Equal(row[i]) {
			t.Fatalf("col %d: got %v, want %v", i, gotRow[i], row[i])
		}
	}
}

func TestLayoutNullBitmap(t *testing.T) {
	l := testLayout()
	row := []Value{IntValue(1), {}, StringValue("x"), {}}
	nulls := []bool{false, true, false, true}

	buf, err := l.Encode(row, nulls)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	gotRow, gotNulls, err := l.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotNulls[1] != true || gotNulls[3] != true {
		t.Fatalf("expected columns 1 and 3 to decode as null, got %v", gotNulls)
	}
	if gotNulls[0] != false || !gotRow[0].Equal(IntValue(1)) {
		t.Fatalf("col 0 should be non-null 1, got null=%v val=%v", gotNulls[0], gotRow[0])
	}
	if gotNulls[2] != false || !gotRow[2].Equal(StringValue("x")) {
		t.Fatalf("col 2 should be non-null x, got null=%v val=%v", gotNulls[2], gotRow[2])
	}
}

func TestLayoutDecodeColumnMatchesDecode(t *testing.T) {
	l := testLayout()
	row := []Value{IntValue(7), FloatValue(1.25), StringValue("bob"), DateValue(999)}
	nulls := []bool{false, false, false, false}
	buf, err := l.Encode(row, nulls)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := range row {
		v, isNull, err := l.DecodeColumn(buf, i)
		if err != nil {
			t.Fatalf("DecodeColumn(%d): %v", i, err)
		}
		if isNull {
			t.Fatalf("col %d: expected non-null", i)
		}
		if !v.Equal(row[i]) {
			t.Fatalf("col %d: DecodeColumn got %v, want %v", i, v, row[i])
		}
	}
}

// EncodeColumn must rewrite only the targeted column's bytes, leaving every
// other column's encoded value and null bit untouched.
func TestLayoutEncodeColumnInPlace(t *testing.T) {
	l := testLayout()
	row := []Value{IntValue(1), FloatValue(2.0), StringValue("carol"), DateValue(5)}
	nulls := []bool{false, false, false, false}
	buf, err := l.Encode(row, nulls)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if err := l.EncodeColumn(buf, 2, StringValue("dave"), false); err != nil {
		t.Fatalf("EncodeColumn: %v", err)
	}
	gotRow, gotNulls, err := l.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotNulls[2] || !gotRow[2].Equal(StringValue("dave")) {
		t.Fatalf("col 2 should now be non-null \"dave\", got null=%v val=%v", gotNulls[2], gotRow[2])
	}
	if !gotRow[0].Equal(IntValue(1)) || !gotRow[1].Equal(FloatValue(2.0)) || !gotRow[3].Equal(DateValue(5)) {
		t.Fatalf("other columns must survive EncodeColumn untouched, got %v", gotRow)
	}

	if err := l.EncodeColumn(buf, 0, Value{}, true); err != nil {
		t.Fatalf("EncodeColumn to null: %v", err)
	}
	_, isNull, err := l.DecodeColumn(buf, 0)
	if err != nil {
		t.Fatalf("DecodeColumn: %v", err)
	}
	if !isNull {
		t.Fatalf("col 0 should now be null")
	}
}

func TestLayoutSlotSizeAccountsForNullBitmapAndColumnWidths(t *testing.T) {
	l := testLayout()
	wantBitmapBytes := (4 + 7) / 8
	wantSize := wantBitmapBytes + 4 + 4 + (8 + 1) + 4
	if l.NullBitBytes != wantBitmapBytes {
		t.Fatalf("NullBitBytes: got %d, want %d", l.NullBitBytes, wantBitmapBytes)
	}
	if l.SlotSize != wantSize {
		t.Fatalf("SlotSize: got %d, want %d", l.SlotSize, wantSize)
	}
}

func TestEncodeRejectsWrongType(t *testing.T) {
	l := testLayout()
	row := []Value{StringValue("not an int"), FloatValue(1), StringValue("x"), DateValue(1)}
	nulls := []bool{false, false, false, false}
	if _, err := l.Encode(row, nulls); err == nil {
		t.Fatalf("expected Encode to reject a string value in an INT column")
	}
}
