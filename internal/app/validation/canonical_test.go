package validation

import (
	"testing"
	"time"
)

func TestCanonicalValue_NumericForms(t *testing.T) {
	// The same logical value arrives as different Go types per side.
	cases := []struct {
		name string
		a, b any
	}{
		{"int64 vs decimal bytes", int64(5), []byte("5.0000")},
		{"float vs decimal text", 12.34, "12.3400"},
		{"int vs float", int64(7), 7.0},
		{"zero forms", int64(0), []byte("0.0000")},
		{"negative", int64(-3), "-3.000"},
	}
	for _, tc := range cases {
		if got, want := canonicalValue(tc.a), canonicalValue(tc.b); got != want {
			t.Errorf("%s: %q != %q", tc.name, got, want)
		}
	}
}

func TestCanonicalValue_Null(t *testing.T) {
	if canonicalValue(nil) != "NULL" {
		t.Errorf("expected NULL, got %q", canonicalValue(nil))
	}
}

func TestCanonicalValue_Bool(t *testing.T) {
	// Target BIT scans as bool, source BOOLEAN as int64.
	if canonicalValue(true) != canonicalValue(int64(1)) {
		t.Error("true and 1 should canonicalize identically")
	}
	if canonicalValue(false) != canonicalValue(int64(0)) {
		t.Error("false and 0 should canonicalize identically")
	}
}

func TestCanonicalValue_Time(t *testing.T) {
	// Target DATETIME2 scans as time.Time, source stores text.
	ts := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	if got := canonicalValue(ts); got != "2024-01-02 15:04:05" {
		t.Errorf("expected bare timestamp, got %q", got)
	}
	withFraction := time.Date(2024, 1, 2, 15, 4, 5, 123000000, time.UTC)
	if got := canonicalValue(withFraction); got != "2024-01-02 15:04:05.123" {
		t.Errorf("expected fractional timestamp, got %q", got)
	}
}

func TestCanonicalValue_BinaryNotNumeric(t *testing.T) {
	raw := []byte{0x00, 0xff, 0x10}
	if got := canonicalValue(raw); got != "0x00ff10" {
		t.Errorf("expected hex form, got %q", got)
	}
}

func TestCanonicalValue_PlainText(t *testing.T) {
	if got := canonicalValue("hello world"); got != "hello world" {
		t.Errorf("expected text unchanged, got %q", got)
	}
}

func TestHashRows_OrderIndependent(t *testing.T) {
	a := [][]any{{int64(1), "a"}, {int64(2), "b"}, {int64(3), "c"}}
	b := [][]any{{int64(3), "c"}, {int64(1), "a"}, {int64(2), "b"}}
	if hashRows(a) != hashRows(b) {
		t.Error("hash should not depend on sample order")
	}
}

func TestHashRows_DetectsDifference(t *testing.T) {
	a := [][]any{{int64(1), "a"}}
	b := [][]any{{int64(1), "b"}}
	if hashRows(a) == hashRows(b) {
		t.Error("different content should hash differently")
	}
}

func TestHashRows_CrossTypeEquality(t *testing.T) {
	source := [][]any{{int64(1), "12.34", int64(1)}}
	target := [][]any{{int64(1), []byte("12.3400"), true}}
	if hashRows(source) != hashRows(target) {
		t.Error("equivalent values should hash identically across type representations")
	}
}

func TestHashRows_Empty(t *testing.T) {
	if hashRows(nil) != hashRows([][]any{}) {
		t.Error("nil and empty should hash identically")
	}
}

func TestCanonicalRow_SeparatorCollisions(t *testing.T) {
	// Adjacent cells must not merge: ("ab", "c") != ("a", "bc").
	a := canonicalRow([]any{"ab", "c"})
	b := canonicalRow([]any{"a", "bc"})
	if a == b {
		t.Error("rows with shifted content should differ")
	}
}
