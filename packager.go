package iso8583

import (
	"sort"
	"time"

	"github.com/pkg/errors"
)

// FieldSpec declares one field of a parsing guide.
type FieldSpec struct {
	Type     FieldType
	Length   int
	Timezone *time.Location
}

// GuideSpec maps field indices to their declarations.
type GuideSpec map[int]FieldSpec

// Codecs resolves every declaration into a codec.
func (gs GuideSpec) Codecs() (map[int]FieldCodec, error) {
	codecs := make(map[int]FieldCodec, len(gs))
	for i, spec := range gs {
		c, err := CodecFor(spec.Type, spec.Length)
		if err != nil {
			return nil, errors.Wrapf(err, "field %d", i)
		}
		if spec.Timezone != nil {
			c = c.WithTimezone(spec.Timezone)
		}
		codecs[i] = c
	}
	return codecs, nil
}

// ParsingGuide is the frozen field layout of one message type. It is
// immutable and safe for concurrent use.
type ParsingGuide struct {
	typ    int
	codecs map[int]FieldCodec
	order  []int
}

func newParsingGuide(typ int, codecs map[int]FieldCodec) (*ParsingGuide, error) {
	if len(codecs) == 0 {
		return nil, errors.Wrapf(ErrInvalidGuide, "type %04X has no fields", typ)
	}
	g := &ParsingGuide{typ: typ, codecs: make(map[int]FieldCodec, len(codecs))}
	for i, c := range codecs {
		if err := checkIndex(i); err != nil {
			return nil, errors.Wrapf(ErrInvalidGuide, "type %04X: field %d out of range", typ, i)
		}
		if !c.typ.Valid() {
			return nil, errors.Wrapf(ErrInvalidGuide, "type %04X: field %d has no codec", typ, i)
		}
		g.codecs[i] = c
		g.order = append(g.order, i)
	}
	sort.Ints(g.order)
	return g, nil
}

func (g *ParsingGuide) configure(s settings, cs charset) *ParsingGuide {
	out := &ParsingGuide{typ: g.typ, codecs: make(map[int]FieldCodec, len(g.codecs)), order: g.order}
	for i, c := range g.codecs {
		out.codecs[i] = c.configure(cs, s.hexLengths, s.tz)
	}
	return out
}

// Type is the message type this guide parses.
func (g *ParsingGuide) Type() int {
	return g.typ
}

// Order returns the declared indices in ascending order.
func (g *ParsingGuide) Order() []int {
	return append([]int(nil), g.order...)
}

// Codec returns the codec declared for index i.
func (g *ParsingGuide) Codec(i int) (FieldCodec, bool) {
	c, ok := g.codecs[i]
	return c, ok
}

func (g *ParsingGuide) Has(i int) bool {
	_, ok := g.codecs[i]
	return ok
}

// Last is the highest declared index.
func (g *ParsingGuide) Last() int {
	return g.order[len(g.order)-1]
}

// unspecified lists the data fields flagged in bm that the guide does not
// declare.
func (g *ParsingGuide) unspecified(bm *Bitmap) []int {
	var missing []int
	for _, i := range bm.PresentFields() {
		if !g.Has(i) {
			missing = append(missing, i)
		}
	}
	return missing
}
