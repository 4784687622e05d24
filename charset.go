package iso8583

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is the character encoding used for text payloads unless a
// message or factory overrides it.
const DefaultEncoding = "ISO-8859-1"

// charset pairs an encoding with the name it was requested by.
type charset struct {
	name string
	enc  encoding.Encoding
}

var defaultCharset = charset{name: DefaultEncoding, enc: charmap.ISO8859_1}

func lookupCharset(name string) (charset, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "ISO-8859-1", "ISO8859-1", "LATIN1", "LATIN-1":
		return defaultCharset, nil
	case "US-ASCII", "ASCII":
		// ASCII is a subset of Latin-1
		return charset{name: name, enc: charmap.ISO8859_1}, nil
	case "UTF-8", "UTF8":
		return charset{name: name, enc: unicode.UTF8}, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return charset{}, errors.Wrapf(ErrUnknownEncoding, "%q", name)
	}
	return charset{name: name, enc: enc}, nil
}

func (c charset) encoding() encoding.Encoding {
	if c.enc == nil {
		return defaultCharset.enc
	}
	return c.enc
}

func (c charset) String() string {
	if c.enc == nil {
		return defaultCharset.name
	}
	return c.name
}

func (c charset) encode(s string) ([]byte, error) {
	b, err := c.encoding().NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidValue, "cannot encode %q as %s: %v", s, c, err)
	}
	return b, nil
}

func (c charset) decode(b []byte) string {
	out, err := c.encoding().NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// readChars decodes exactly n characters starting at buf[off] and returns the
// text with the number of bytes it occupies. Multi-byte encodings can make the
// byte count larger than n.
func (c charset) readChars(buf []byte, off, n int) (string, int, error) {
	if n == 0 {
		return "", 0, nil
	}
	if off+n > len(buf) {
		return "", 0, ErrInsufficientData
	}
	s := c.decode(buf[off : off+n])
	if utf8.RuneCountInString(s) == n {
		// n bytes can end inside a character that decodes to U+FFFD
		if raw, err := c.encode(s); err == nil && bytes.Equal(raw, buf[off:off+n]) {
			return s, n, nil
		}
	}

	s = c.decode(buf[off:])
	if utf8.RuneCountInString(s) < n {
		return "", 0, ErrInsufficientData
	}
	s = truncateRunes(s, n)
	raw, err := c.encode(s)
	if err != nil {
		return "", 0, errors.Wrap(ErrInvalidFieldData, err.Error())
	}
	return s, len(raw), nil
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
