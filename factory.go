package iso8583

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// FactoryBuilder collects parsing guides and templates and freezes them into
// a Factory. It is not safe for concurrent use.
type FactoryBuilder struct {
	settings  settings
	guides    map[int]*ParsingGuide
	templates map[int]*Message
	frozen    bool
}

// NewFactoryBuilder returns a builder with the given defaults.
func NewFactoryBuilder(opts ...FactoryOption) *FactoryBuilder {
	b := &FactoryBuilder{
		settings:  defaultSettings(),
		guides:    make(map[int]*ParsingGuide),
		templates: make(map[int]*Message),
	}
	for _, opt := range opts {
		opt(&b.settings)
	}
	return b
}

func checkType(typ int) error {
	if typ < 0 || typ > 0xFFFF {
		return errors.Wrapf(ErrInvalidGuide, "message type %d does not fit in 16 bits", typ)
	}
	return nil
}

// RegisterGuide declares the codecs for a message type, replacing any guide
// registered before for the same type.
func (b *FactoryBuilder) RegisterGuide(typ int, codecs map[int]FieldCodec) error {
	if b.frozen {
		return ErrFrozen
	}
	if err := checkType(typ); err != nil {
		return err
	}
	g, err := newParsingGuide(typ, codecs)
	if err != nil {
		return err
	}
	b.guides[typ] = g
	b.settings.log.Debug().Str("type", hexType(typ)).Ints("fields", g.order).Msg("registered parsing guide")
	return nil
}

// RegisterParsingGuide declares a guide from field specs.
func (b *FactoryBuilder) RegisterParsingGuide(typ int, spec GuideSpec) error {
	if b.frozen {
		return ErrFrozen
	}
	codecs, err := spec.Codecs()
	if err != nil {
		return errors.Wrapf(err, "type %04X", typ)
	}
	return b.RegisterGuide(typ, codecs)
}

// RegisterTemplate stores a copy of tmpl as the starting point for new
// messages and responses of its type.
func (b *FactoryBuilder) RegisterTemplate(tmpl *Message) error {
	if b.frozen {
		return ErrFrozen
	}
	if tmpl == nil {
		return errors.Wrap(ErrInvalidGuide, "nil template")
	}
	if err := checkType(tmpl.Type()); err != nil {
		return err
	}
	b.templates[tmpl.Type()] = tmpl.Clone()
	return nil
}

// Freeze returns an immutable Factory. The builder rejects further
// registrations afterwards.
func (b *FactoryBuilder) Freeze() (*Factory, error) {
	if b.frozen {
		return nil, ErrFrozen
	}
	cs, err := lookupCharset(b.settings.encoding)
	if err != nil {
		return nil, err
	}

	f := &Factory{
		settings:  b.settings,
		charset:   cs,
		guides:    make(map[int]*ParsingGuide, len(b.guides)),
		templates: make(map[int]*Message, len(b.templates)),
	}
	for typ, g := range b.guides {
		f.guides[typ] = g.configure(b.settings, cs)
	}
	for typ, tmpl := range b.templates {
		t := tmpl.Clone()
		f.stamp(t)
		t.applyCharset(cs)
		f.templates[typ] = t
	}
	b.frozen = true
	return f, nil
}

// Factory creates, parses and serializes messages using frozen parsing guides
// and templates. It is immutable and safe for concurrent use.
type Factory struct {
	settings
	charset   charset
	guides    map[int]*ParsingGuide
	templates map[int]*Message
}

func (f *Factory) stamp(m *Message) {
	m.binaryFields = f.binaryFields
	m.forceSecondary = f.forceSecondary
	m.hexLengths = f.hexLengths
	m.charset = f.charset
}

func (f *Factory) BinaryFields() bool {
	return f.binaryFields
}

func (f *Factory) CharacterEncoding() string {
	return f.charset.String()
}

// Guide returns the parsing guide registered for typ.
func (f *Factory) Guide(typ int) (*ParsingGuide, bool) {
	g, ok := f.guides[typ]
	return g, ok
}

// MessageTypes lists the types with a parsing guide in ascending order.
func (f *Factory) MessageTypes() []int {
	types := make([]int, 0, len(f.guides))
	for typ := range f.guides {
		types = append(types, typ)
	}
	sort.Ints(types)
	return types
}

// NewMessage returns a message of type typ carrying the factory defaults and,
// when one is registered, the fields of the template for typ.
func (f *Factory) NewMessage(typ int) *Message {
	m := NewMessage(typ)
	f.stamp(m)
	if tmpl, ok := f.templates[typ]; ok {
		m.fields = tmpl.fields
	}
	return m
}

// Serialize writes m with its own flags.
func (f *Factory) Serialize(m *Message) ([]byte, error) {
	return m.Serialize()
}

// CreateResponse builds the response to req: type plus 0x10, flags copied
// from req. With a template registered for the response type, the template
// fields come first and only the request fields at template indices replace
// them, unless copyAllFields asks for every request field. Without a
// template every request field is copied.
func (f *Factory) CreateResponse(req *Message, copyAllFields bool) *Message {
	resp := NewMessage(req.typ + 0x10)
	resp.binaryFields = req.binaryFields
	resp.forceSecondary = req.forceSecondary
	resp.hexLengths = req.hexLengths
	resp.charset = req.charset

	tmpl, ok := f.templates[resp.typ]
	if !ok || copyAllFields {
		if ok {
			resp.CopyAllFieldsFrom(tmpl)
		}
		resp.CopyAllFieldsFrom(req)
		return resp
	}

	resp.CopyAllFieldsFrom(tmpl)
	for _, i := range tmpl.PresentFields() {
		resp.CopyFieldsFrom(req, i)
	}
	return resp
}

// ParseMessage decodes a message starting at buf[offset]. A field flagged in
// the bitmap but missing from the guide fails the whole parse. The last
// declared field may be flagged without data; it is then dropped with a
// warning.
func (f *Factory) ParseMessage(buf []byte, offset int) (*Message, error) {
	if offset < 0 || offset > len(buf) {
		return nil, errors.Wrapf(ErrInsufficientData, "offset %d outside buffer of %d bytes", offset, len(buf))
	}
	data := buf[offset:]

	typeLen := 4
	if f.binaryFields {
		typeLen = 2
	}
	if need := typeLen + BitmapSize; len(data) < need {
		return nil, errors.Wrapf(ErrInsufficientData, "message needs at least %d bytes, got %d", need, len(data))
	}

	typ, err := f.decodeType(data[:typeLen])
	if err != nil {
		return nil, err
	}
	bm, pos, err := decodeBitmap(data, typeLen)
	if err != nil {
		return nil, err
	}

	guide, ok := f.guides[typ]
	if !ok {
		f.log.Warn().Str("type", hexType(typ)).Msg("no parsing guide")
		return nil, errors.Wrapf(ErrNoParsingGuide, "%s", hexType(typ))
	}
	if missing := guide.unspecified(&bm); len(missing) > 0 {
		for _, i := range missing {
			f.log.Warn().Str("type", hexType(typ)).Int("field", i).Msg("field flagged in bitmap but not in parsing guide")
		}
		return nil, errors.Wrapf(ErrUnspecifiedField, "type %s fields %v", hexType(typ), missing)
	}

	m := NewMessage(typ)
	f.stamp(m)
	last := guide.Last()
	for _, i := range guide.order {
		if !bm.IsFieldSet(i) {
			continue
		}
		if pos >= len(data) && i == last {
			f.log.Warn().Str("type", hexType(typ)).Int("field", i).Msg("last field flagged but no data left, ignoring it")
			break
		}
		v, n, err := guide.codecs[i].Parse(data, pos, f.binaryFields)
		if err != nil {
			m.Release()
			return nil, &FieldError{Field: i, Offset: offset + pos, Err: err}
		}
		m.fields[i-MinFieldNumber] = v
		pos += n
	}
	return m, nil
}

func (f *Factory) decodeType(b []byte) (int, error) {
	if f.binaryFields {
		return int(b[0])<<8 | int(b[1]), nil
	}
	typ, err := strconv.ParseUint(string(b), 16, 16)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidFieldData, "message type %q", b)
	}
	return int(typ), nil
}

func hexType(typ int) string {
	return hexUpper([]byte{byte(typ >> 8), byte(typ)})
}
