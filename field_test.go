package iso8583

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func mustValue(t *testing.T, typ FieldType, value any, length int) *FieldValue {
	t.Helper()
	var (
		v   *FieldValue
		err error
	)
	if length > 0 || typ.NeedsLength() {
		v, err = NewFieldValueWithLength(typ, value, length)
	} else {
		v, err = NewFieldValue(typ, value)
	}
	if err != nil {
		t.Fatalf("new %s value %v: %v", typ, value, err)
	}
	return v
}

func TestNewFieldValueErrors(t *testing.T) {
	tests := []struct {
		name   string
		typ    FieldType
		value  any
		length int
		want   error
	}{
		{"llvar over category maximum", LLVar, strings.Repeat("x", 100), 0, ErrInvalidValue},
		{"llllbin over category maximum", LLLLBin, make([]byte, 10000), 0, ErrInvalidValue},
		{"numeric without length", Numeric, "1", 0, ErrInvalidLength},
		{"alpha with zero length", Alpha, "x", 0, ErrInvalidLength},
		{"negative length", LLVar, "x", -1, ErrInvalidLength},
		{"numeric with letters", Numeric, "12a", 3, ErrInvalidValue},
		{"numeric longer than length", Numeric, "1234", 3, ErrInvalidValue},
		{"negative numeric", Numeric, -5, 3, ErrInvalidValue},
		{"nil value", LLVar, nil, 0, ErrInvalidValue},
		{"date from text", Date4, "0315", 0, ErrInvalidValue},
		{"bin from non hex", LLLBin, "XYZ", 0, ErrInvalidValue},
		{"binary larger than length", Binary, []byte{1, 2, 3}, 2, ErrInvalidValue},
		{"amount with three decimals", Amount, "1.234", 0, ErrInvalidValue},
		{"amount out of range", Amount, int64(1e12), 0, ErrInvalidValue},
		{"llvar length mismatch", LLVar, "abc", 5, ErrInvalidLength},
		{"bcd bytes length too short", LLBCD, []byte{0x12, 0x34}, 2, ErrInvalidLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.length != 0 || tt.typ.NeedsLength() {
				_, err = NewFieldValueWithLength(tt.typ, tt.value, tt.length)
			} else {
				_, err = NewFieldValue(tt.typ, tt.value)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrConstruction) {
				t.Errorf("error %v is not a construction error", err)
			}
		})
	}

	if _, err := NewFieldValue(FieldType(99), "x"); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("unknown type error = %v", err)
	}
}

func TestLLVarCategoryBoundary(t *testing.T) {
	v, err := NewFieldValue(LLVar, strings.Repeat("a", 99))
	if err != nil {
		t.Fatalf("99 characters: %v", err)
	}
	if v.Length() != 99 {
		t.Errorf("Length() = %d, want 99", v.Length())
	}
	if _, err := NewFieldValue(LLVar, strings.Repeat("a", 100)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("100 characters: error = %v, want ErrInvalidValue", err)
	}
}

func TestInferredLength(t *testing.T) {
	tests := []struct {
		name  string
		typ   FieldType
		value any
		want  int
	}{
		{"var runes", LLVar, "héllo", 5},
		{"var bytes", LLLVar, []byte("héllo"), 6},
		{"bin bytes", LLBin, []byte{1, 2, 3}, 3},
		{"bin even hex", LLLBin, "ABCD", 2},
		{"bin odd hex", LLLBin, "ABC", 2},
		{"bcd bytes", LLBCD, []byte{0x12, 0x34}, 4},
		{"bcd text", LLLBCD, "12345", 5},
		{"amount", Amount, int64(5), 12},
		{"date", Date10, time.Now(), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustValue(t, tt.typ, tt.value, 0).Length(); got != tt.want {
				t.Errorf("Length() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	plus2 := time.FixedZone("UTC+2", 2*60*60)
	tests := []struct {
		name string
		v    func(t *testing.T) *FieldValue
		want string
	}{
		{"alpha truncated", func(t *testing.T) *FieldValue { return mustValue(t, Alpha, "ABCDEFG", 4) }, "ABCD"},
		{"alpha padded", func(t *testing.T) *FieldValue { return mustValue(t, Alpha, "AB", 4) }, "AB  "},
		{"numeric padded", func(t *testing.T) *FieldValue { return mustValue(t, Numeric, 42, 6) }, "000042"},
		{"amount from decimal", func(t *testing.T) *FieldValue { return mustValue(t, Amount, "10.5", 0) }, "000000001050"},
		{"amount minor units", func(t *testing.T) *FieldValue { return mustValue(t, Amount, int64(1), 0) }, "000000000001"},
		{"binary padded", func(t *testing.T) *FieldValue { return mustValue(t, Binary, []byte{0xab}, 2) }, "AB00"},
		{"bin bytes", func(t *testing.T) *FieldValue { return mustValue(t, LLBin, []byte{0x0a, 0xbc}, 0) }, "0ABC"},
		{"bin odd hex text", func(t *testing.T) *FieldValue { return mustValue(t, LLBin, "abc", 0) }, "0ABC"},
		{"bcd pad nibble dropped", func(t *testing.T) *FieldValue { return mustValue(t, LLBCD, []byte{0x12, 0x34, 0x50}, 5) }, "12345"},
		{"bcd natural length", func(t *testing.T) *FieldValue { return mustValue(t, LLBCD, []byte{0x12, 0x34}, 0) }, "1234"},
		{"bcd full length kept", func(t *testing.T) *FieldValue { return mustValue(t, LLBCD, []byte{0x12, 0x34, 0x50}, 6) }, "123450"},
		{"date10", func(t *testing.T) *FieldValue {
			return mustValue(t, Date10, time.Date(2024, 3, 15, 13, 45, 30, 0, time.UTC), 0)
		}, "0315134530"},
		{"date in timezone", func(t *testing.T) *FieldValue {
			return mustValue(t, Date4, time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC), 0).WithTimezone(plus2)
		}, "0316"},
		{"date exp", func(t *testing.T) *FieldValue {
			return mustValue(t, DateExp, time.Date(2027, 11, 1, 0, 0, 0, 0, time.UTC), 0)
		}, "2711"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v(t).Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWireBytes(t *testing.T) {
	long := strings.Repeat("z", 300)
	tests := []struct {
		name       string
		v          func(t *testing.T) *FieldValue
		binary     bool
		hexLengths bool
		want       []byte
	}{
		{"llvar text", func(t *testing.T) *FieldValue { return mustValue(t, LLVar, "BANK01", 0) }, false, false, []byte("06BANK01")},
		{"llvar binary", func(t *testing.T) *FieldValue { return mustValue(t, LLVar, "BANK01", 0) }, true, false, append([]byte{0x06}, "BANK01"...)},
		{"lllvar bcd prefix", func(t *testing.T) *FieldValue { return mustValue(t, LLLVar, long, 0) }, true, false, append([]byte{0x03, 0x00}, long...)},
		{"lllvar hex prefix", func(t *testing.T) *FieldValue { return mustValue(t, LLLVar, long, 0) }, true, true, append([]byte{0x01, 0x2c}, long...)},
		{"lllvar text prefix", func(t *testing.T) *FieldValue { return mustValue(t, LLLVar, long, 0) }, false, true, []byte("300" + long)},
		{"numeric odd bcd", func(t *testing.T) *FieldValue { return mustValue(t, Numeric, "12345", 5) }, true, false, []byte{0x01, 0x23, 0x45}},
		{"numeric text", func(t *testing.T) *FieldValue { return mustValue(t, Numeric, "12345", 7) }, false, false, []byte("0012345")},
		{"amount bcd", func(t *testing.T) *FieldValue { return mustValue(t, Amount, int64(1050), 0) }, true, false, []byte{0, 0, 0, 0, 0x10, 0x50}},
		{"llbcd binary left aligned", func(t *testing.T) *FieldValue { return mustValue(t, LLBCD, "12345", 0) }, true, false, []byte{0x05, 0x12, 0x34, 0x50}},
		{"llbcd text", func(t *testing.T) *FieldValue { return mustValue(t, LLBCD, "12345", 0) }, false, false, []byte("0512345")},
		{"llbin text counts bytes", func(t *testing.T) *FieldValue { return mustValue(t, LLBin, []byte{1, 2}, 0) }, false, false, []byte("020102")},
		{"llllbin binary", func(t *testing.T) *FieldValue { return mustValue(t, LLLLBin, []byte{1, 2}, 0) }, true, false, []byte{0x00, 0x02, 1, 2}},
		{"binary raw padded", func(t *testing.T) *FieldValue { return mustValue(t, Binary, []byte{0xff}, 3) }, true, false, []byte{0xff, 0, 0}},
		{"alpha bytes padded", func(t *testing.T) *FieldValue { return mustValue(t, Alpha, []byte("AB"), 4) }, false, false, []byte("AB  ")},
		{"date4 bcd", func(t *testing.T) *FieldValue {
			return mustValue(t, Date4, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 0)
		}, true, false, []byte{0x03, 0x15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v(t).WireBytes(tt.binary, tt.hexLengths)
			if err != nil {
				t.Fatalf("WireBytes: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("WireBytes() = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestCharacterEncoding(t *testing.T) {
	v := mustValue(t, LLVar, "héllo", 0)

	latin, err := v.WireBytes(false, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte("05h\xe9llo"); !bytes.Equal(latin, want) {
		t.Errorf("ISO-8859-1 wire = % X, want % X", latin, want)
	}

	utf, err := v.WithCharacterEncoding("UTF-8")
	if err != nil {
		t.Fatal(err)
	}
	got, err := utf.WireBytes(false, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte("05héllo"); !bytes.Equal(got, want) {
		t.Errorf("UTF-8 wire = % X, want % X", got, want)
	}

	if _, err := v.WithCharacterEncoding("no-such-charset"); !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("unknown encoding error = %v", err)
	}
	if _, err := mustValue(t, LLVar, "日本", 0).WireBytes(false, false); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("unencodable text error = %v, want ErrInvalidValue", err)
	}
}

func TestFieldValueEqual(t *testing.T) {
	a := mustValue(t, Amount, "10.50", 0)
	b := mustValue(t, Amount, int64(1050), 0)
	if !a.Equal(b) {
		t.Errorf("%v and %v should be equal", a, b)
	}
	if a.Equal(mustValue(t, Numeric, "000000001050", 12)) {
		t.Error("values of different types compared equal")
	}
	if a.Equal(nil) {
		t.Error("value equals nil")
	}
	if c := a.Clone(); !c.Equal(a) || c == a {
		t.Error("Clone should return an equal copy")
	}
}

func TestFieldValueFromTextInvertsRender(t *testing.T) {
	when := time.Date(2024, 3, 15, 13, 45, 30, 0, time.UTC)
	tests := []struct {
		typ    FieldType
		value  any
		length int
	}{
		{Alpha, "AB", 4},
		{Numeric, 42, 6},
		{Binary, []byte{0xCA, 0xFE}, 4},
		{Date4, when, 0},
		{Date6, when, 0},
		{Date10, when, 0},
		{Date12, when, 0},
		{Date14, when, 0},
		{Time, when, 0},
		{DateExp, when, 0},
		{Amount, int64(10000), 0},
		{LLVar, "héllo", 0},
		{LLLVar, "ISO 8583", 0},
		{LLLLVar, "x", 0},
		{LLBin, "CAFE", 0},
		{LLLBin, []byte{1, 2, 3}, 0},
		{LLLLBin, "ABC", 0},
		{LLBCD, "12345", 0},
		{LLLBCD, "4761", 0},
		{LLLLBCD, []byte{0x98, 0x70}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			v := mustValue(t, tt.typ, tt.value, tt.length)
			back, err := FieldValueFromText(tt.typ, v.Render(), v.Length(), time.UTC)
			if err != nil {
				t.Fatalf("FieldValueFromText(%q): %v", v.Render(), err)
			}
			if !back.Equal(v) {
				t.Errorf("FieldValueFromText(%q) rendered %q (length %d), want length %d",
					v.Render(), back.Render(), back.Length(), v.Length())
			}
		})
	}
}

func TestFieldValueFromText(t *testing.T) {
	tests := []struct {
		typ    FieldType
		text   string
		length int
		want   string
	}{
		{Alpha, "00", 2, "00"},
		{Numeric, "42", 6, "000042"},
		{Amount, "12.34", 0, "000000001234"},
		{Amount, "000000010000", 0, "000000010000"},
		{Amount, "100", 0, "000000010000"},
		{Date4, "0315", 0, "0315"},
		{Date14, "20240315134530", 0, "20240315134530"},
		{Time, "235959", 0, "235959"},
		{LLBin, "CAFE", 0, "CAFE"},
		{LLLBCD, "4761", 0, "4761"},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			v, err := FieldValueFromText(tt.typ, tt.text, tt.length, time.UTC)
			if err != nil {
				t.Fatalf("FieldValueFromText: %v", err)
			}
			if got := v.Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := FieldValueFromText(Date4, "1399", 0, nil); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("invalid date error = %v", err)
	}
}
