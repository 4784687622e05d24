package iso8583

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error categories. Every error returned by this package matches exactly one
// of them through errors.Is.
var (
	ErrConfig          = errors.New("iso8583: configuration error")
	ErrParse           = errors.New("iso8583: parse error")
	ErrConstruction    = errors.New("iso8583: construction error")
	ErrUnsupportedType = errors.New("iso8583: unsupported field type")
)

var (
	ErrInvalidValue    = newKindError("invalid value", ErrConstruction)
	ErrInvalidLength   = newKindError("invalid length", ErrConstruction)
	ErrIndexOutOfRange = newKindError("field index must be between 2 and 128", ErrConstruction)

	ErrInsufficientData    = newKindError("insufficient data", ErrParse)
	ErrInvalidLengthPrefix = newKindError("invalid length prefix", ErrParse)
	ErrInvalidFieldData    = newKindError("invalid field data", ErrParse)
	ErrNoParsingGuide      = newKindError("no parsing guide for message type", ErrParse)
	ErrUnspecifiedField    = newKindError("field unspecified in parsing guide", ErrParse)

	ErrInvalidGuide    = newKindError("invalid parsing guide", ErrConfig)
	ErrUnknownEncoding = newKindError("unknown character encoding", ErrConfig)
	ErrFrozen          = newKindError("factory builder already frozen", ErrConfig)
)

// kindError is a sentinel that also reports its category.
type kindError struct {
	msg  string
	kind error
}

func newKindError(msg string, kind error) *kindError {
	return &kindError{msg: msg, kind: kind}
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

// FieldError locates a failure at a field index and buffer offset.
type FieldError struct {
	Field  int
	Offset int
	Err    error
}

func (fe *FieldError) Error() string {
	return fmt.Sprintf("field %d at offset %d: %v", fe.Field, fe.Offset, fe.Err)
}

func (fe *FieldError) Unwrap() error {
	return fe.Err
}
