package iso8583

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// FieldValue is an immutable typed value stored in a message field. Its
// length is the data length and never includes a length prefix; for BCD
// kinds it counts digits.
type FieldValue struct {
	typ     FieldType
	value   any
	length  int
	charset charset
	tz      *time.Location
}

// NewFieldValue creates a value whose length is implied by its type or
// inferred from the value itself.
func NewFieldValue(t FieldType, value any) (*FieldValue, error) {
	if t.NeedsLength() {
		return nil, errors.Wrapf(ErrInvalidLength, "%s values need an explicit length", t)
	}
	return newFieldValue(t, value, 0)
}

// NewFieldValueWithLength creates a value with an explicit length. For
// variable types a zero length means "infer from the value".
func NewFieldValueWithLength(t FieldType, value any, length int) (*FieldValue, error) {
	if length < 0 || (length == 0 && t.NeedsLength()) {
		return nil, errors.Wrapf(ErrInvalidLength, "length must be greater than zero for %s (value %v)", t, value)
	}
	return newFieldValue(t, value, length)
}

func newFieldValue(t FieldType, value any, length int) (*FieldValue, error) {
	d, ok := t.desc()
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedType, "%d", int(t))
	}
	if value == nil {
		return nil, errors.Wrapf(ErrInvalidValue, "missing value for %s", t)
	}

	v := &FieldValue{typ: t, value: value, length: length, charset: defaultCharset}
	var err error
	switch d.content {
	case contentText:
		err = v.initText(d)
	case contentNumeric:
		err = v.initNumeric()
	case contentAmount:
		err = v.initAmount()
	case contentDate:
		if _, ok := value.(time.Time); !ok {
			return nil, errors.Wrapf(ErrInvalidValue, "%s needs a time.Time, got %T", t, value)
		}
		v.length = d.fixed
	case contentBinary:
		err = v.initBinary(d)
	case contentBCD:
		err = v.initBCD()
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (v *FieldValue) initText(d descriptor) error {
	var natural int
	switch s := v.value.(type) {
	case string:
		natural = utf8.RuneCountInString(s)
	case []byte:
		natural = len(s)
	default:
		return errors.Wrapf(ErrInvalidValue, "%s needs a string or []byte, got %T", v.typ, v.value)
	}
	if d.prefixDigits == 0 {
		return nil
	}
	return v.resolveVariableLength(natural, natural)
}

// resolveVariableLength infers or checks the declared length of a variable
// value. Explicit lengths must lie in [least, natural].
func (v *FieldValue) resolveVariableLength(natural, least int) error {
	if v.length == 0 {
		v.length = natural
		if max := v.typ.MaxVariableLength(); v.length > max {
			return errors.Wrapf(ErrInvalidValue, "%s can only hold values up to %d, got %d", v.typ, max, v.length)
		}
		return nil
	}
	if v.length < least || v.length > natural {
		return errors.Wrapf(ErrInvalidLength, "%s length %d does not fit a value of length %d", v.typ, v.length, natural)
	}
	if max := v.typ.MaxVariableLength(); v.length > max {
		return errors.Wrapf(ErrInvalidLength, "%s can only hold values up to %d, got %d", v.typ, max, v.length)
	}
	return nil
}

func (v *FieldValue) initNumeric() error {
	digits, err := numericDigits(v.value)
	if err != nil {
		return errors.Wrapf(err, "%s", v.typ)
	}
	if len(digits) > v.length {
		return errors.Wrapf(ErrInvalidValue, "numeric value %q is larger than length %d", digits, v.length)
	}
	return nil
}

func numericDigits(value any) (string, error) {
	switch n := value.(type) {
	case string:
		if !isDigits(n) {
			return "", errors.Wrapf(ErrInvalidValue, "non-numeric value %q", n)
		}
		return n, nil
	case int:
		if n < 0 {
			return "", errors.Wrapf(ErrInvalidValue, "negative value %d", n)
		}
		return strconv.Itoa(n), nil
	case int64:
		if n < 0 {
			return "", errors.Wrapf(ErrInvalidValue, "negative value %d", n)
		}
		return strconv.FormatInt(n, 10), nil
	case uint64:
		return strconv.FormatUint(n, 10), nil
	}
	return "", errors.Wrapf(ErrInvalidValue, "unsupported numeric value type %T", value)
}

const maxAmount = 999999999999

// initAmount normalizes the value to minor units. Integers are minor units,
// strings are decimal major units with at most two fraction digits.
func (v *FieldValue) initAmount() error {
	var minor int64
	switch a := v.value.(type) {
	case int:
		minor = int64(a)
	case int64:
		minor = a
	case string:
		var err error
		if minor, err = parseAmount(a); err != nil {
			return err
		}
	default:
		return errors.Wrapf(ErrInvalidValue, "AMOUNT needs an integer or decimal string, got %T", v.value)
	}
	if minor < 0 || minor > maxAmount {
		return errors.Wrapf(ErrInvalidValue, "amount %d out of range", minor)
	}
	v.value = minor
	v.length = descriptors[Amount].fixed
	return nil
}

func parseAmount(s string) (int64, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(s), ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 || !isDigits(whole) || !isDigits(frac) {
		return 0, errors.Wrapf(ErrInvalidValue, "invalid amount %q", s)
	}
	frac += strings.Repeat("0", 2-len(frac))
	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidValue, "invalid amount %q", s)
	}
	return n, nil
}

func (v *FieldValue) initBinary(d descriptor) error {
	var natural int
	switch b := v.value.(type) {
	case []byte:
		natural = len(b)
	case string:
		if !isHex(b) {
			return errors.Wrapf(ErrInvalidValue, "%s needs hex text, got %q", v.typ, b)
		}
		natural = (len(b) + 1) / 2
	default:
		return errors.Wrapf(ErrInvalidValue, "%s needs []byte or hex text, got %T", v.typ, v.value)
	}
	if d.prefixDigits == 0 {
		if natural > v.length {
			return errors.Wrapf(ErrInvalidValue, "binary value of %d bytes is larger than length %d", natural, v.length)
		}
		return nil
	}
	return v.resolveVariableLength(natural, natural)
}

func (v *FieldValue) initBCD() error {
	switch b := v.value.(type) {
	case []byte:
		// the last nibble of the packed bytes may be padding
		return v.resolveVariableLength(len(b)*2, len(b)*2-1)
	case string:
		if !isHex(b) {
			return errors.Wrapf(ErrInvalidValue, "%s needs digits, got %q", v.typ, b)
		}
		return v.resolveVariableLength(len(b), len(b))
	}
	return errors.Wrapf(ErrInvalidValue, "%s needs []byte or digit text, got %T", v.typ, v.value)
}

func (v *FieldValue) Type() FieldType {
	return v.typ
}

// Length returns the declared data length.
func (v *FieldValue) Length() int {
	return v.length
}

// Value returns the raw value without formatting. AMOUNT values are int64
// minor units.
func (v *FieldValue) Value() any {
	return v.value
}

func (v *FieldValue) CharacterEncoding() string {
	return v.charset.String()
}

func (v *FieldValue) Timezone() *time.Location {
	return v.tz
}

// WithCharacterEncoding returns a copy that encodes text with the named
// character encoding.
func (v *FieldValue) WithCharacterEncoding(name string) (*FieldValue, error) {
	cs, err := lookupCharset(name)
	if err != nil {
		return nil, err
	}
	return v.withCharset(cs), nil
}

func (v *FieldValue) withCharset(cs charset) *FieldValue {
	c := *v
	c.charset = cs
	return &c
}

// WithTimezone returns a copy that renders dates in loc.
func (v *FieldValue) WithTimezone(loc *time.Location) *FieldValue {
	c := *v
	c.tz = loc
	return &c
}

// Clone returns a copy referencing the same raw value.
func (v *FieldValue) Clone() *FieldValue {
	c := *v
	return &c
}

// Equal reports whether both values have the same type, length and rendering.
func (v *FieldValue) Equal(other *FieldValue) bool {
	if v == nil || other == nil {
		return v == other
	}
	return v.typ == other.typ && v.length == other.length && v.Render() == other.Render()
}

func (v *FieldValue) String() string {
	return v.Render()
}

// Render returns the text form of the value: padded for ALPHA and NUMERIC,
// formatted for dates, uppercase hex for binary kinds.
func (v *FieldValue) Render() string {
	d := descriptors[v.typ]
	switch d.content {
	case contentText:
		s := v.text()
		if v.typ == Alpha {
			return padRight(s, v.length, ' ')
		}
		return s
	case contentNumeric:
		digits, _ := numericDigits(v.value)
		return padLeft(digits, v.length, '0')
	case contentAmount:
		return fmt.Sprintf("%0*d", v.length, v.value.(int64))
	case contentDate:
		t := v.value.(time.Time)
		if v.tz != nil {
			t = t.In(v.tz)
		}
		return t.Format(d.layout)
	case contentBinary:
		h := v.hexText()
		if len(h)%2 == 1 {
			h = "0" + h
		}
		if v.typ == Binary {
			return padRight(h, v.length*2, '0')
		}
		return h
	case contentBCD:
		if b, ok := v.value.([]byte); ok {
			return renderPackedBCD(b, v.length)
		}
		return strings.ToUpper(v.value.(string))
	}
	return fmt.Sprint(v.value)
}

// renderPackedBCD is the hex form of packed digits. A declared length exactly
// one short of the nibble count means the final nibble is padding and is
// dropped; any other length renders every nibble.
func renderPackedBCD(b []byte, length int) string {
	s := hexUpper(b)
	if length == len(s)-1 {
		return s[:length]
	}
	return s
}

func (v *FieldValue) text() string {
	switch s := v.value.(type) {
	case string:
		return s
	case []byte:
		return v.charset.decode(s)
	}
	return fmt.Sprint(v.value)
}

func (v *FieldValue) hexText() string {
	switch b := v.value.(type) {
	case []byte:
		return hexUpper(b)
	case string:
		return strings.ToUpper(b)
	}
	return ""
}

// rawBytes returns binary content as bytes, decoding hex text.
func (v *FieldValue) rawBytes() ([]byte, error) {
	switch b := v.value.(type) {
	case []byte:
		return b, nil
	case string:
		out, err := decodeHex(b)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidValue, err.Error())
		}
		return out, nil
	}
	return nil, errors.Wrapf(ErrInvalidValue, "%T is not binary", v.value)
}

// WireBytes serializes the value as it appears in a message: length prefix
// and payload for variable types, packed BCD for numeric and date types in
// binary mode, encoded text otherwise.
func (v *FieldValue) WireBytes(binary, hexLengthHeader bool) ([]byte, error) {
	d := descriptors[v.typ]
	if d.prefixDigits > 0 {
		payload, err := v.variablePayload(d, binary)
		if err != nil {
			return nil, err
		}
		out := appendLengthPrefix(make([]byte, 0, len(payload)+d.prefixDigits), v.length, d.prefixDigits, binary, hexLengthHeader)
		return append(out, payload...), nil
	}

	if binary {
		switch d.content {
		case contentNumeric, contentAmount, contentDate:
			return packBCD(v.Render(), false)
		case contentBinary:
			b, err := v.rawBytes()
			if err != nil {
				return nil, err
			}
			if missing := v.length - len(b); missing > 0 {
				b = append(append(make([]byte, 0, v.length), b...), make([]byte, missing)...)
			}
			return b, nil
		}
	}
	if b, ok := v.value.([]byte); ok && d.content == contentText && len(b) == v.length {
		return b, nil
	}
	return v.charset.encode(v.Render())
}

func (v *FieldValue) variablePayload(d descriptor, binary bool) ([]byte, error) {
	switch d.content {
	case contentBinary:
		if binary {
			return v.rawBytes()
		}
		return []byte(v.Render()), nil
	case contentBCD:
		if !binary {
			return []byte(v.Render()), nil
		}
		if b, ok := v.value.([]byte); ok {
			return b, nil
		}
		return packBCD(v.value.(string), true)
	}
	if b, ok := v.value.([]byte); ok {
		return b, nil
	}
	return v.charset.encode(v.text())
}

// FieldValueFromText builds a value from its rendered text form, the inverse
// of Render. Dates are read in loc (time.Local when nil).
func FieldValueFromText(t FieldType, text string, length int, loc *time.Location) (*FieldValue, error) {
	if !t.Valid() {
		return nil, errors.Wrapf(ErrUnsupportedType, "%d", int(t))
	}
	if t.IsDate() {
		if loc == nil {
			loc = time.Local
		}
		ts, err := parseDateDigits(t, text, loc, time.Now().In(loc))
		if err != nil {
			return nil, errors.Wrap(ErrInvalidValue, err.Error())
		}
		return newFieldValue(t, ts, 0)
	}
	// the rendered AMOUNT is minor units; shorter or decimal text is major units
	if t == Amount && len(text) == descriptors[Amount].fixed && isDigits(text) {
		minor, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidValue, err.Error())
		}
		return newFieldValue(t, minor, 0)
	}
	if t.NeedsLength() || length > 0 {
		return NewFieldValueWithLength(t, text, length)
	}
	return NewFieldValue(t, text)
}

func padRight(s string, n int, pad byte) string {
	count := utf8.RuneCountInString(s)
	if count >= n {
		return truncateRunes(s, n)
	}
	return s + strings.Repeat(string(pad), n-count)
}

func padLeft(s string, n int, pad byte) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat(string(pad), n-len(s)) + s
}
