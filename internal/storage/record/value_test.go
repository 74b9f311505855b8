package record

import "testing"

func TestValueCompareOrdering(t *testing.T) {
	if c := IntValue(1).Compare(IntValue(2)); c != -1 {
		t.Fatalf("1 vs 2: got %d, want -1", c)
	}
	if c := IntValue(2).Compare(IntValue(2)); c != 0 {
		t.Fatalf("2 vs 2: got %d, want 0", c)
	}
	if c := IntValue(3).Compare(IntValue(2)); c != 1 {
		t.Fatalf("3 vs 2: got %d, want 1", c)
	}
	if c := FloatValue(-1.5).Compare(FloatValue(1.5)); c != -1 {
		t.Fatalf("-1.5 vs 1.5: got %d, want -1", c)
	}
	if c := StringValue("abc").Compare(StringValue("abd")); c != -1 {
		t.Fatalf("abc vs abd: got %d, want -1", c)
	}
}

func TestValueEqual(t *testing.T) {
	if !IntValue(5).Equal(IntValue(5)) {
		t.Fatalf("expected 5 == 5")
	}
	if IntValue(5).Equal(IntValue(6)) {
		t.Fatalf("expected 5 != 6")
	}
	if !StringValue("hi").Equal(StringValue("hi")) {
		t.Fatalf("expected hi == hi")
	}
}

func TestCheckType(t *testing.T) {
	col := Column{Name: "n", Typ: TypeVarchar, Len: 3}
	if err := CheckType(col, StringValue("abc")); err != nil {
		t.Fatalf("abc should fit VARCHAR(3): %v", err)
	}
	if err := CheckType(col, StringValue("abcd")); err == nil {
		t.Fatalf("abcd should not fit VARCHAR(3)")
	}
	if err := CheckType(Column{Typ: TypeInt}, StringValue("x")); err == nil {
		t.Fatalf("string value should not satisfy an INT column")
	}
}

// FastCmp's 4-byte summary must preserve the same relative order as the full
// Compare for values that differ within the summary's precision (spec.md
// §4.7's "fast_cmp with deep-read fallback" invariant).
func TestFastCmpOrderPreserving(t *testing.T) {
	cases := []struct {
		a, b Value
	}{
		{IntValue(-5), IntValue(5)},
		{IntValue(100), IntValue(200)},
		{FloatValue(-2.5), FloatValue(2.5)},
		{FloatValue(1.0), FloatValue(2.0)},
		{StringValue("abcd"), StringValue("abce")},
	}
	for _, c := range cases {
		wantSign := c.a.Compare(c.b)
		fa, fb := FastCmp(c.a), FastCmp(c.b)
		gotSign := 0
		switch {
		case string(fa[:]) < string(fb[:]):
			gotSign = -1
		case string(fa[:]) > string(fb[:]):
			gotSign = 1
		}
		if gotSign != wantSign {
			t.Fatalf("FastCmp order mismatch for %v vs %v: full compare=%d, fast_cmp order=%d", c.a, c.b, wantSign, gotSign)
		}
	}
}
