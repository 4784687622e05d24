package iso8583

import "github.com/pkg/errors"

// packBCD packs hex digit characters two per byte. With an odd number of
// digits the spare nibble is zero and sits at the end when leftAligned, or at
// the start otherwise.
func packBCD(digits string, leftAligned bool) ([]byte, error) {
	if len(digits)%2 == 1 {
		if leftAligned {
			digits += "0"
		} else {
			digits = "0" + digits
		}
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		hi, ok1 := hexNibble(digits[i*2])
		lo, ok2 := hexNibble(digits[i*2+1])
		if !ok1 || !ok2 {
			return nil, errors.Wrapf(ErrInvalidValue, "cannot pack %q as BCD", digits)
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

// unpackBCD expands b into exactly n hex digit characters, dropping the pad
// nibble of an odd count from the side packBCD put it on.
func unpackBCD(b []byte, n int, leftAligned bool) string {
	s := hexUpper(b)
	if len(s) == n {
		return s
	}
	if leftAligned {
		return s[:n]
	}
	return s[len(s)-n:]
}

// bcdBytes is the packed size of n digits.
func bcdBytes(n int) int {
	return (n + 1) / 2
}

// bcdByte packs 0..99 into one byte.
func bcdByte(v int) byte {
	return byte((v/10)%10<<4 | v%10)
}

// parseBCDByte reads one packed byte as 0..99.
func parseBCDByte(b byte) (int, bool) {
	hi, lo := int(b>>4), int(b&0x0f)
	if hi > 9 || lo > 9 {
		return 0, false
	}
	return hi*10 + lo, true
}
