package iso8583

import (
	"time"

	"github.com/rs/zerolog"
)

// settings are the factory-wide defaults stamped onto every message and codec.
type settings struct {
	binaryFields   bool
	forceSecondary bool
	hexLengths     bool
	encoding       string
	tz             *time.Location
	log            zerolog.Logger
}

func defaultSettings() settings {
	return settings{
		encoding: DefaultEncoding,
		log:      zerolog.Nop(),
	}
}

// FactoryOption represents a functional option for factory configuration
type FactoryOption func(*settings)

// WithBinaryFields selects binary mode: 2-byte type code, BCD numbers and
// dates, raw binary data.
func WithBinaryFields(binary bool) FactoryOption {
	return func(s *settings) {
		s.binaryFields = binary
	}
}

// WithForceSecondaryBitmap makes new messages always carry a 128-bit bitmap.
func WithForceSecondaryBitmap(force bool) FactoryOption {
	return func(s *settings) {
		s.forceSecondary = force
	}
}

// WithHexLengthHeaders writes binary mode length headers as raw big-endian
// integers.
func WithHexLengthHeaders(hex bool) FactoryOption {
	return func(s *settings) {
		s.hexLengths = hex
	}
}

// WithCharacterEncoding sets the text encoding by name, e.g. "UTF-8". Unknown
// names are reported by Freeze.
func WithCharacterEncoding(name string) FactoryOption {
	return func(s *settings) {
		s.encoding = name
	}
}

// WithTimezone sets the default timezone of date fields.
func WithTimezone(loc *time.Location) FactoryOption {
	return func(s *settings) {
		s.tz = loc
	}
}

// WithLogger sets the logger used for parse warnings.
func WithLogger(log zerolog.Logger) FactoryOption {
	return func(s *settings) {
		s.log = log
	}
}
