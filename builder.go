package iso8583

import (
	"sync"
	"time"
)

// Builder pool for reuse
var builderPool = sync.Pool{
	New: func() interface{} {
		return &Builder{
			errors: make([]error, 0, 4),
		}
	},
}

// Builder assembles a message fluently and reports the first error on Build.
type Builder struct {
	msg    *Message
	errors []error
}

// NewBuilder starts from f.NewMessage(typ), so factory defaults and templates
// apply. A nil factory starts from a bare message.
func NewBuilder(f *Factory, typ int) *Builder {
	b := builderPool.Get().(*Builder)
	if f != nil {
		b.msg = f.NewMessage(typ)
	} else {
		b.msg = NewMessage(typ)
	}
	b.errors = b.errors[:0]
	return b
}

// Release returns the builder to the pool
func (b *Builder) Release() {
	if b.msg != nil {
		b.msg = nil
	}
	b.errors = b.errors[:0]
	builderPool.Put(b)
}

func (b *Builder) Field(i int, v *FieldValue) *Builder {
	if err := b.msg.SetField(i, v); err != nil {
		b.errors = append(b.errors, err)
	}
	return b
}

func (b *Builder) Value(i int, value any, t FieldType, length int) *Builder {
	if err := b.msg.SetValue(i, value, t, length); err != nil {
		b.errors = append(b.errors, err)
	}
	return b
}

func (b *Builder) PAN(pan string) *Builder {
	return b.Value(2, pan, LLVar, 0)
}

func (b *Builder) ProcessingCode(code string) *Builder {
	return b.Value(3, code, Numeric, 6)
}

// Amount sets field 4 in minor units.
func (b *Builder) Amount(minor int64) *Builder {
	return b.Value(4, minor, Amount, 0)
}

func (b *Builder) TransmissionTime(t time.Time) *Builder {
	return b.Value(7, t, Date10, 0)
}

func (b *Builder) STAN(stan int) *Builder {
	return b.Value(11, stan, Numeric, 6)
}

func (b *Builder) Build() (*Message, error) {
	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}
	msg := b.msg
	b.msg = nil // Transfer ownership
	return msg, nil
}

func (b *Builder) MustBuild() *Message {
	if len(b.errors) > 0 {
		panic(b.errors[0])
	}
	msg := b.msg
	b.msg = nil // Transfer ownership
	return msg
}
