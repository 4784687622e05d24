package iso8583

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const fieldSlots = MaxFieldNumber - MinFieldNumber + 1

// messagePool holds reusable Message objects to reduce allocations.
var messagePool = sync.Pool{
	New: func() interface{} {
		return &Message{}
	},
}

// Message is a mutable ISO8583 message: a type code plus up to 127 fields
// (2-128). A Message is not safe for concurrent mutation.
type Message struct {
	typ            int
	fields         [fieldSlots]*FieldValue
	binaryFields   bool
	forceSecondary bool
	hexLengths     bool
	charset        charset
}

// NewMessage returns an empty message of the given type with default flags:
// text mode, primary bitmap only, ISO-8859-1 text.
func NewMessage(typ int) *Message {
	m := messagePool.Get().(*Message)
	m.reset()
	m.typ = typ
	return m
}

// Release returns the message to the pool. The message must not be used
// afterwards.
func (m *Message) Release() {
	m.reset()
	messagePool.Put(m)
}

func (m *Message) reset() {
	*m = Message{charset: defaultCharset}
}

// Type returns the message type code, e.g. 0x0200.
func (m *Message) Type() int {
	return m.typ
}

func (m *Message) SetType(typ int) {
	m.typ = typ
}

func (m *Message) BinaryFields() bool {
	return m.binaryFields
}

// SetBinaryFields switches between text and binary encoding of the type code,
// numbers, dates and length headers.
func (m *Message) SetBinaryFields(binary bool) {
	m.binaryFields = binary
}

func (m *Message) ForceSecondaryBitmap() bool {
	return m.forceSecondary
}

// SetForceSecondaryBitmap makes Serialize always emit a 128-bit bitmap.
func (m *Message) SetForceSecondaryBitmap(force bool) {
	m.forceSecondary = force
}

func (m *Message) HexLengthHeaders() bool {
	return m.hexLengths
}

// SetHexLengthHeaders writes binary mode length headers as raw integers
// instead of BCD.
func (m *Message) SetHexLengthHeaders(hex bool) {
	m.hexLengths = hex
}

func (m *Message) CharacterEncoding() string {
	return m.charset.String()
}

// SetCharacterEncoding changes the text encoding of the message and of every
// field already set.
func (m *Message) SetCharacterEncoding(name string) error {
	cs, err := lookupCharset(name)
	if err != nil {
		return err
	}
	m.applyCharset(cs)
	return nil
}

func (m *Message) applyCharset(cs charset) {
	m.charset = cs
	for i, v := range m.fields {
		if v != nil {
			m.fields[i] = v.withCharset(cs)
		}
	}
}

func checkIndex(i int) error {
	if i < MinFieldNumber || i > MaxFieldNumber {
		return errors.Wrapf(ErrIndexOutOfRange, "field %d", i)
	}
	return nil
}

// Field returns the value stored at index i, or nil when absent or out of
// range.
func (m *Message) Field(i int) *FieldValue {
	if checkIndex(i) != nil {
		return nil
	}
	return m.fields[i-MinFieldNumber]
}

// Value returns the raw value at index i, or nil.
func (m *Message) Value(i int) any {
	if v := m.Field(i); v != nil {
		return v.Value()
	}
	return nil
}

// HasField reports whether index i holds a value.
func (m *Message) HasField(i int) bool {
	return m.Field(i) != nil
}

// SetField stores v at index i, or removes the field when v is nil. The
// stored value takes on the message's character encoding.
func (m *Message) SetField(i int, v *FieldValue) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	if v != nil {
		v = v.withCharset(m.charset)
	}
	m.fields[i-MinFieldNumber] = v
	return nil
}

// SetValue builds a value of type t and stores it at index i. A nil value
// removes the field. length is required for ALPHA, NUMERIC and BINARY and
// optional otherwise.
func (m *Message) SetValue(i int, value any, t FieldType, length int) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	if value == nil {
		return m.SetField(i, nil)
	}
	var (
		v   *FieldValue
		err error
	)
	if length > 0 || t.NeedsLength() {
		v, err = NewFieldValueWithLength(t, value, length)
	} else {
		v, err = NewFieldValue(t, value)
	}
	if err != nil {
		return errors.Wrapf(err, "field %d", i)
	}
	return m.SetField(i, v)
}

// UpdateValue replaces the raw value at index i keeping its type, timezone
// and, for fixed types, its length.
func (m *Message) UpdateValue(i int, value any) error {
	cur := m.Field(i)
	if cur == nil {
		return errors.Wrapf(ErrInvalidValue, "field %d is not set", i)
	}
	length := 0
	if cur.typ.NeedsLength() {
		length = cur.length
	}
	v, err := newFieldValue(cur.typ, value, length)
	if err != nil {
		return errors.Wrapf(err, "field %d", i)
	}
	v.tz = cur.tz
	return m.SetField(i, v)
}

// RemoveFields clears every listed index. Out of range indices are ignored.
func (m *Message) RemoveFields(indices ...int) {
	for _, i := range indices {
		if checkIndex(i) == nil {
			m.fields[i-MinFieldNumber] = nil
		}
	}
}

// HasEveryField reports whether all listed indices hold values.
func (m *Message) HasEveryField(indices ...int) bool {
	for _, i := range indices {
		if !m.HasField(i) {
			return false
		}
	}
	return true
}

// HasAnyField reports whether at least one listed index holds a value.
func (m *Message) HasAnyField(indices ...int) bool {
	for _, i := range indices {
		if m.HasField(i) {
			return true
		}
	}
	return false
}

// CopyFieldsFrom copies the listed fields present in src.
func (m *Message) CopyFieldsFrom(src *Message, indices ...int) {
	for _, i := range indices {
		if v := src.Field(i); v != nil {
			m.fields[i-MinFieldNumber] = v.withCharset(m.charset)
		}
	}
}

// CopyAllFieldsFrom copies every field present in src.
func (m *Message) CopyAllFieldsFrom(src *Message) {
	m.CopyFieldsFrom(src, src.PresentFields()...)
}

// PresentFields lists the indices holding values in ascending order.
func (m *Message) PresentFields() []int {
	out := make([]int, 0, 16)
	for slot, v := range m.fields {
		if v != nil {
			out = append(out, slot+MinFieldNumber)
		}
	}
	return out
}

// Bitmap computes the presence bitmap. It has 128 bits when any field above
// 64 is set or the secondary bitmap is forced.
func (m *Message) Bitmap() Bitmap {
	var bm Bitmap
	if m.forceSecondary {
		_ = bm.SetField(1)
	}
	for slot, v := range m.fields {
		if v != nil {
			_ = bm.SetField(slot + MinFieldNumber)
		}
	}
	return bm
}

// Clone returns an independent copy. Field values are immutable and shared.
func (m *Message) Clone() *Message {
	c := *m
	return &c
}

// Serialize writes the type code, the bitmap and every present field in
// ascending index order.
func (m *Message) Serialize() ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := m.writeType(buf); err != nil {
		return nil, err
	}
	bm := m.Bitmap()
	_, _ = buf.Write(bm.Bytes())
	for slot, v := range m.fields {
		if v == nil {
			continue
		}
		b, err := v.WireBytes(m.binaryFields, m.hexLengths)
		if err != nil {
			return nil, &FieldError{Field: slot + MinFieldNumber, Offset: buf.Len(), Err: err}
		}
		_, _ = buf.Write(b)
	}
	return clone(buf.B), nil
}

func (m *Message) writeType(buf io.Writer) error {
	if m.typ < 0 || m.typ > 0xFFFF {
		return errors.Wrapf(ErrInvalidValue, "message type %d does not fit in 16 bits", m.typ)
	}
	if m.binaryFields {
		_, _ = buf.Write([]byte{byte(m.typ >> 8), byte(m.typ)})
		return nil
	}
	_, _ = buf.Write([]byte(fmt.Sprintf("%04X", m.typ)))
	return nil
}

// FieldBytes returns the wire form of field i as Serialize would write it.
func (m *Message) FieldBytes(i int) ([]byte, error) {
	v := m.Field(i)
	if v == nil {
		return nil, errors.Wrapf(ErrInvalidValue, "field %d is not set", i)
	}
	return v.WireBytes(m.binaryFields, m.hexLengths)
}

// DebugString is a readable dump: type in hex, bitmap nibbles, then each
// field's rendering. Variable fields are preceded by their rendered length.
func (m *Message) DebugString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04X", m.typ)
	bm := m.Bitmap()
	sb.WriteString(bm.Hex())
	for _, v := range m.fields {
		if v == nil {
			continue
		}
		s := v.Render()
		if digits := v.typ.PrefixDigits(); digits > 0 {
			sb.WriteString(padLeft(strconv.Itoa(utf8.RuneCountInString(s)), digits, '0'))
		}
		sb.WriteString(s)
	}
	return sb.String()
}

// Describe renders one line per field with its index, type, length and value.
func (m *Message) Describe() string {
	var sb strings.Builder
	bm := m.Bitmap()
	fmt.Fprintf(&sb, "Message type %04X, %s, bitmap %s\n", m.typ, m.mode(), bm.Hex())
	for _, i := range m.PresentFields() {
		v := m.Field(i)
		fmt.Fprintf(&sb, "  %03d %-8s <%04d> [%s]\n", i, v.typ, v.length, v.Render())
	}
	return sb.String()
}

func (m *Message) mode() string {
	if m.binaryFields {
		return "binary"
	}
	return "text"
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (m *Message) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 3)
	attrs = append(attrs, slog.String("type", fmt.Sprintf("%04X", m.typ)))
	attrs = append(attrs, slog.String("mode", m.mode()))

	fieldArgs := make([]any, 0, 16)
	for _, i := range m.PresentFields() {
		fieldArgs = append(fieldArgs, slog.String(strconv.Itoa(i), m.Field(i).Render()))
	}
	attrs = append(attrs, slog.Group("fields", fieldArgs...))
	return slog.GroupValue(attrs...)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (m *Message) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", fmt.Sprintf("%04X", m.typ)).
		Str("mode", m.mode()).
		Ints("fields", m.PresentFields())
}
