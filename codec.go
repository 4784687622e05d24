package iso8583

import (
	"time"

	"github.com/pkg/errors"
)

// FieldCodec reads one field of a known type from a buffer. Codecs are
// values; the factory stamps its encoding and length header settings into
// each registered codec when it is frozen.
type FieldCodec struct {
	typ        FieldType
	length     int
	charset    charset
	hexLengths bool
	tz         *time.Location
}

// CodecFor returns the codec for t. length is required for ALPHA, NUMERIC
// and BINARY and ignored for every other type.
func CodecFor(t FieldType, length int) (FieldCodec, error) {
	d, ok := t.desc()
	if !ok {
		return FieldCodec{}, errors.Wrapf(ErrUnsupportedType, "%d", int(t))
	}
	switch {
	case t.NeedsLength():
		if length <= 0 {
			return FieldCodec{}, errors.Wrapf(ErrInvalidGuide, "%s needs a length greater than zero", t)
		}
	case d.fixed > 0:
		length = d.fixed
	default:
		length = 0
	}
	return FieldCodec{typ: t, length: length, charset: defaultCharset}, nil
}

func (c FieldCodec) Type() FieldType {
	return c.typ
}

// Length is the fixed data length, 0 for variable types.
func (c FieldCodec) Length() int {
	return c.length
}

func (c FieldCodec) Timezone() *time.Location {
	return c.tz
}

// WithTimezone returns a codec whose date values are read and rendered in loc.
func (c FieldCodec) WithTimezone(loc *time.Location) FieldCodec {
	c.tz = loc
	return c
}

// configure applies factory-wide settings. A codec-level timezone wins.
func (c FieldCodec) configure(cs charset, hexLengths bool, tz *time.Location) FieldCodec {
	c.charset = cs
	c.hexLengths = hexLengths
	if c.tz == nil {
		c.tz = tz
	}
	return c
}

// Parse reads a field at buf[off] and returns it with the number of bytes
// consumed.
func (c FieldCodec) Parse(buf []byte, off int, binary bool) (*FieldValue, int, error) {
	if binary {
		return c.ParseBinary(buf, off)
	}
	return c.ParseText(buf, off)
}

// ParseText reads a field encoded with ASCII digits and text.
func (c FieldCodec) ParseText(buf []byte, off int) (*FieldValue, int, error) {
	d, ok := c.typ.desc()
	if !ok {
		return nil, 0, errors.Wrapf(ErrUnsupportedType, "%d", int(c.typ))
	}
	if off < 0 || off > len(buf) {
		return nil, 0, errors.Wrapf(ErrInsufficientData, "offset %d outside buffer of %d bytes", off, len(buf))
	}

	if d.prefixDigits > 0 {
		l, width, err := readLengthPrefix(buf, off, d.prefixDigits, false, c.hexLengths)
		if err != nil {
			return nil, 0, err
		}
		v, n, err := c.readVariable(d, buf, off+width, l, false)
		return v, width + n, err
	}

	switch d.content {
	case contentText:
		return c.readAlpha(buf, off)
	case contentBinary:
		raw, err := take(buf, off, c.length*2)
		if err != nil {
			return nil, 0, err
		}
		b, err := decodeHex(string(raw))
		if err != nil {
			return nil, 0, errors.Wrap(ErrInvalidFieldData, err.Error())
		}
		v, err := c.value(b, c.length)
		return v, len(raw), err
	}

	n := c.length
	raw, err := take(buf, off, n)
	if err != nil {
		return nil, 0, err
	}
	v, err := c.digitsValue(d, string(raw))
	return v, n, err
}

// ParseBinary reads a field whose numbers and dates are packed BCD and whose
// binary data is raw.
func (c FieldCodec) ParseBinary(buf []byte, off int) (*FieldValue, int, error) {
	d, ok := c.typ.desc()
	if !ok {
		return nil, 0, errors.Wrapf(ErrUnsupportedType, "%d", int(c.typ))
	}
	if off < 0 || off > len(buf) {
		return nil, 0, errors.Wrapf(ErrInsufficientData, "offset %d outside buffer of %d bytes", off, len(buf))
	}

	if d.prefixDigits > 0 {
		l, width, err := readLengthPrefix(buf, off, d.prefixDigits, true, c.hexLengths)
		if err != nil {
			return nil, 0, err
		}
		v, n, err := c.readVariable(d, buf, off+width, l, true)
		return v, width + n, err
	}

	switch d.content {
	case contentText:
		return c.readAlpha(buf, off)
	case contentBinary:
		raw, err := take(buf, off, c.length)
		if err != nil {
			return nil, 0, err
		}
		v, err := c.value(clone(raw), c.length)
		return v, c.length, err
	}

	n := bcdBytes(c.length)
	raw, err := take(buf, off, n)
	if err != nil {
		return nil, 0, err
	}
	v, err := c.digitsValue(d, unpackBCD(raw, c.length, false))
	return v, n, err
}

func (c FieldCodec) readAlpha(buf []byte, off int) (*FieldValue, int, error) {
	s, n, err := c.charset.readChars(buf, off, c.length)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "reading %d characters", c.length)
	}
	v, err := c.value(s, c.length)
	return v, n, err
}

// readVariable reads the payload of a prefixed field declared as l long.
func (c FieldCodec) readVariable(d descriptor, buf []byte, off, l int, binary bool) (*FieldValue, int, error) {
	switch d.content {
	case contentBinary:
		if binary {
			raw, err := take(buf, off, l)
			if err != nil {
				return nil, 0, err
			}
			v, err := c.value(clone(raw), l)
			return v, l, err
		}
		raw, err := take(buf, off, l*2)
		if err != nil {
			return nil, 0, err
		}
		b, err := decodeHex(string(raw))
		if err != nil {
			return nil, 0, errors.Wrap(ErrInvalidFieldData, err.Error())
		}
		v, err := c.value(b, l)
		return v, len(raw), err

	case contentBCD:
		if binary {
			n := bcdBytes(l)
			raw, err := take(buf, off, n)
			if err != nil {
				return nil, 0, err
			}
			v, err := c.value(clone(raw), l)
			return v, n, err
		}
		raw, err := take(buf, off, l)
		if err != nil {
			return nil, 0, err
		}
		b, err := packBCD(string(raw), true)
		if err != nil {
			return nil, 0, errors.Wrap(ErrInvalidFieldData, err.Error())
		}
		v, err := c.value(b, l)
		return v, l, err
	}

	s, n, err := c.charset.readChars(buf, off, l)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "reading %d characters", l)
	}
	v, err := c.value(s, l)
	return v, n, err
}

// digitsValue interprets the digit string of a NUMERIC, AMOUNT or date field.
func (c FieldCodec) digitsValue(d descriptor, digits string) (*FieldValue, error) {
	if !isDigits(digits) {
		return nil, errors.Wrapf(ErrInvalidFieldData, "%s expects digits, got %q", c.typ, digits)
	}
	switch d.content {
	case contentAmount:
		n, _ := parseASCIIToInt([]byte(digits))
		return c.value(int64(n), 0)
	case contentDate:
		loc := c.tz
		if loc == nil {
			loc = time.Local
		}
		t, err := parseDateDigits(c.typ, digits, loc, time.Now().In(loc))
		if err != nil {
			return nil, err
		}
		return c.value(t, 0)
	}
	return c.value(digits, c.length)
}

// value builds the parsed FieldValue and stamps the codec's settings on it.
func (c FieldCodec) value(raw any, length int) (*FieldValue, error) {
	v, err := newFieldValue(c.typ, raw, length)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidFieldData, err.Error())
	}
	v.charset = c.charset
	v.tz = c.tz
	return v, nil
}

// parseDateDigits reads the digits of a date type. Types without a year use
// the year of now. DATE6 years up to 50 are 20xx and later ones 19xx; DATE12
// and DATE_EXP years are always 20xx.
func parseDateDigits(t FieldType, digits string, loc *time.Location, now time.Time) (time.Time, error) {
	d := descriptors[t]
	if len(digits) != d.fixed || !isDigits(digits) {
		return time.Time{}, errors.Wrapf(ErrInvalidFieldData, "%s expects %d digits, got %q", t, d.fixed, digits)
	}
	num := func(i, j int) int {
		n, _ := parseASCIIToInt([]byte(digits[i:j]))
		return n
	}

	year, month, day := now.Year(), int(now.Month()), now.Day()
	hour, minute, sec := 0, 0, 0
	switch t {
	case Date4:
		month, day = num(0, 2), num(2, 4)
	case Date6:
		year, month, day = num(0, 2), num(2, 4), num(4, 6)
		if year <= 50 {
			year += 2000
		} else {
			year += 1900
		}
	case Date10:
		month, day = num(0, 2), num(2, 4)
		hour, minute, sec = num(4, 6), num(6, 8), num(8, 10)
	case Date12:
		year, month, day = 2000+num(0, 2), num(2, 4), num(4, 6)
		hour, minute, sec = num(6, 8), num(8, 10), num(10, 12)
	case Date14:
		year, month, day = num(0, 4), num(4, 6), num(6, 8)
		hour, minute, sec = num(8, 10), num(10, 12), num(12, 14)
	case Time:
		hour, minute, sec = num(0, 2), num(2, 4), num(4, 6)
	case DateExp:
		year, month, day = 2000+num(0, 2), num(2, 4), 1
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, errors.Wrapf(ErrInvalidFieldData, "%s value %q is not a valid date", t, digits)
	}
	ts := time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc)
	if int(ts.Month()) != month || ts.Day() != day {
		return time.Time{}, errors.Wrapf(ErrInvalidFieldData, "%s value %q is not a valid date", t, digits)
	}
	return ts, nil
}

// appendLengthPrefix writes l as a length header of the given digit count:
// ASCII digits in text mode, BCD in binary mode, or a raw big-endian integer
// when hexLengths is set in binary mode.
func appendLengthPrefix(dst []byte, l, digits int, binary, hexLengths bool) []byte {
	if !binary {
		var tmp [4]byte
		writeIntToASCII(tmp[:digits], l, digits)
		return append(dst, tmp[:digits]...)
	}
	if hexLengths {
		if digits == 2 {
			return append(dst, byte(l))
		}
		return append(dst, byte(l>>8), byte(l))
	}
	switch digits {
	case 2:
		return append(dst, bcdByte(l))
	case 3:
		return append(dst, byte(l/100), bcdByte(l%100))
	}
	return append(dst, bcdByte(l/100), bcdByte(l%100))
}

// readLengthPrefix is the inverse of appendLengthPrefix. It returns the
// declared length and the width of the header in bytes.
func readLengthPrefix(buf []byte, off, digits int, binary, hexLengths bool) (int, int, error) {
	if !binary {
		raw, err := take(buf, off, digits)
		if err != nil {
			return 0, 0, errors.Wrap(err, "reading length prefix")
		}
		l, ok := parseASCIIToInt(raw)
		if !ok {
			return 0, 0, errors.Wrapf(ErrInvalidLengthPrefix, "%q", raw)
		}
		return l, digits, nil
	}

	width := bcdBytes(digits)
	raw, err := take(buf, off, width)
	if err != nil {
		return 0, 0, errors.Wrap(err, "reading length prefix")
	}
	if hexLengths {
		if width == 1 {
			return int(raw[0]), width, nil
		}
		return int(raw[0])<<8 | int(raw[1]), width, nil
	}

	if digits == 2 {
		l, ok := parseBCDByte(raw[0])
		if !ok {
			return 0, 0, errors.Wrapf(ErrInvalidLengthPrefix, "% X", raw)
		}
		return l, width, nil
	}
	hi, ok1 := parseBCDByte(raw[0])
	lo, ok2 := parseBCDByte(raw[1])
	if digits == 3 {
		hi, ok1 = int(raw[0]&0x0f), raw[0]&0x0f <= 9
	}
	if !ok1 || !ok2 {
		return 0, 0, errors.Wrapf(ErrInvalidLengthPrefix, "% X", raw)
	}
	return hi*100 + lo, width, nil
}

// take returns buf[off:off+n] or ErrInsufficientData.
func take(buf []byte, off, n int) ([]byte, error) {
	if n < 0 || off < 0 || off+n > len(buf) {
		return nil, errors.Wrapf(ErrInsufficientData, "need %d bytes at offset %d, have %d", n, off, len(buf)-off)
	}
	return buf[off : off+n], nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
