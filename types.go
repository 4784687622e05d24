package iso8583

import (
	"strings"

	"github.com/pkg/errors"
)

// FieldType is the closed set of ISO8583 field kinds. The zero value is not a
// valid type.
type FieldType int

const (
	Alpha FieldType = iota + 1
	Numeric
	Binary
	Date4
	Date6
	Date10
	Date12
	Date14
	Time
	DateExp
	Amount
	LLVar
	LLLVar
	LLLLVar
	LLBin
	LLLBin
	LLLLBin
	LLBCD
	LLLBCD
	LLLLBCD
)

// Category groups field types by how their length is determined.
type Category int

const (
	CategoryFixedAlpha Category = iota + 1
	CategoryFixedNumeric
	CategoryFixedBinary
	CategoryDateTime
	CategoryLLVar
	CategoryLLLVar
	CategoryLLLLVar
	CategoryLLBin
	CategoryLLLBin
	CategoryLLLLBin
	CategoryLLBCD
	CategoryLLLBCD
	CategoryLLLLBCD
)

type contentKind int

const (
	contentText contentKind = iota
	contentNumeric
	contentBinary
	contentDate
	contentAmount
	contentBCD
)

// numericPacking is how digits are laid out in binary mode.
type numericPacking int

const (
	packNone      numericPacking = iota
	packBCDRight                 // odd digit counts get a leading zero nibble
	packBCDLeft                  // odd digit counts get a trailing zero nibble
)

// descriptor drives every type-dependent decision of the codec.
type descriptor struct {
	name         string
	category     Category
	prefixDigits int
	content      contentKind
	packing      numericPacking
	fixed        int    // fixed length, 0 when explicit or variable
	layout       string // time layout for date kinds
}

var descriptors = map[FieldType]descriptor{
	Alpha:   {name: "ALPHA", category: CategoryFixedAlpha, content: contentText},
	Numeric: {name: "NUMERIC", category: CategoryFixedNumeric, content: contentNumeric, packing: packBCDRight},
	Binary:  {name: "BINARY", category: CategoryFixedBinary, content: contentBinary},

	Date4:   {name: "DATE4", category: CategoryDateTime, content: contentDate, packing: packBCDRight, fixed: 4, layout: "0102"},
	Date6:   {name: "DATE6", category: CategoryDateTime, content: contentDate, packing: packBCDRight, fixed: 6, layout: "060102"},
	Date10:  {name: "DATE10", category: CategoryDateTime, content: contentDate, packing: packBCDRight, fixed: 10, layout: "0102150405"},
	Date12:  {name: "DATE12", category: CategoryDateTime, content: contentDate, packing: packBCDRight, fixed: 12, layout: "060102150405"},
	Date14:  {name: "DATE14", category: CategoryDateTime, content: contentDate, packing: packBCDRight, fixed: 14, layout: "20060102150405"},
	Time:    {name: "TIME", category: CategoryDateTime, content: contentDate, packing: packBCDRight, fixed: 6, layout: "150405"},
	DateExp: {name: "DATE_EXP", category: CategoryDateTime, content: contentDate, packing: packBCDRight, fixed: 4, layout: "0601"},
	Amount:  {name: "AMOUNT", category: CategoryFixedNumeric, content: contentAmount, packing: packBCDRight, fixed: 12},

	LLVar:   {name: "LLVAR", category: CategoryLLVar, prefixDigits: 2, content: contentText},
	LLLVar:  {name: "LLLVAR", category: CategoryLLLVar, prefixDigits: 3, content: contentText},
	LLLLVar: {name: "LLLLVAR", category: CategoryLLLLVar, prefixDigits: 4, content: contentText},
	LLBin:   {name: "LLBIN", category: CategoryLLBin, prefixDigits: 2, content: contentBinary},
	LLLBin:  {name: "LLLBIN", category: CategoryLLLBin, prefixDigits: 3, content: contentBinary},
	LLLLBin: {name: "LLLLBIN", category: CategoryLLLLBin, prefixDigits: 4, content: contentBinary},
	LLBCD:   {name: "LLBCD", category: CategoryLLBCD, prefixDigits: 2, content: contentBCD, packing: packBCDLeft},
	LLLBCD:  {name: "LLLBCD", category: CategoryLLLBCD, prefixDigits: 3, content: contentBCD, packing: packBCDLeft},
	LLLLBCD: {name: "LLLLBCD", category: CategoryLLLLBCD, prefixDigits: 4, content: contentBCD, packing: packBCDLeft},
}

// FieldTypes returns every valid field type in declaration order.
func FieldTypes() []FieldType {
	types := make([]FieldType, 0, len(descriptors))
	for t := Alpha; t <= LLLLBCD; t++ {
		types = append(types, t)
	}
	return types
}

func (t FieldType) desc() (descriptor, bool) {
	d, ok := descriptors[t]
	return d, ok
}

// Valid reports whether t is one of the declared field types.
func (t FieldType) Valid() bool {
	_, ok := descriptors[t]
	return ok
}

func (t FieldType) String() string {
	if d, ok := t.desc(); ok {
		return d.name
	}
	return "UNKNOWN"
}

// NeedsLength reports whether values of this type must be constructed with an
// explicit length.
func (t FieldType) NeedsLength() bool {
	return t == Alpha || t == Numeric || t == Binary
}

// FixedLength returns the implied length of fixed date/time and amount types.
func (t FieldType) FixedLength() (int, bool) {
	d, ok := t.desc()
	if !ok || d.fixed == 0 {
		return 0, false
	}
	return d.fixed, true
}

func (t FieldType) Category() Category {
	return descriptors[t].category
}

// IsVariable reports whether the type carries a length prefix on the wire.
func (t FieldType) IsVariable() bool {
	return descriptors[t].prefixDigits > 0
}

// PrefixDigits is the number of decimal digits of the length prefix, 0 for
// fixed types.
func (t FieldType) PrefixDigits() int {
	return descriptors[t].prefixDigits
}

// MaxVariableLength is the largest declared length the prefix can carry
// (99, 999 or 9999), 0 for fixed types.
func (t FieldType) MaxVariableLength() int {
	switch t.PrefixDigits() {
	case 2:
		return 99
	case 3:
		return 999
	case 4:
		return 9999
	}
	return 0
}

// IsDate reports whether the type holds a time.Time value.
func (t FieldType) IsDate() bool {
	return descriptors[t].content == contentDate
}

// ParseFieldType resolves the names used by String, case-insensitively.
func ParseFieldType(s string) (FieldType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for t, d := range descriptors {
		if d.name == name {
			return t, nil
		}
	}
	return 0, errors.Wrapf(ErrUnsupportedType, "%q", s)
}

func (t FieldType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, errors.Wrapf(ErrUnsupportedType, "%d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
