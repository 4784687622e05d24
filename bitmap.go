package iso8583

import (
	"github.com/pkg/errors"
)

const (
	// BitmapSize is the size of one bitmap block in bytes.
	BitmapSize = 8
	// MaxFieldNumber is the highest field a secondary bitmap can flag.
	MaxFieldNumber = 128
	// MinFieldNumber is the lowest data field; field 1 is the secondary
	// bitmap indicator.
	MinFieldNumber = 2
)

// Bitmap is the presence vector of a message. Bits are numbered by field,
// most significant bit first, so field 1 is the top bit of the first byte.
type Bitmap struct {
	bits         [BitmapSize * 2]byte
	hasSecondary bool
}

func bitPosition(fieldNum int) (byteIndex int, mask byte) {
	byteIndex = (fieldNum - 1) / 8
	bitIndex := 7 - ((fieldNum - 1) % 8)
	return byteIndex, 1 << bitIndex
}

// SetField sets the bit for fieldNum (1-128). Fields above 64 also set the
// secondary bitmap indicator.
func (bm *Bitmap) SetField(fieldNum int) error {
	if fieldNum < 1 || fieldNum > MaxFieldNumber {
		return errors.Wrapf(ErrIndexOutOfRange, "bit %d", fieldNum)
	}
	i, mask := bitPosition(fieldNum)
	bm.bits[i] |= mask
	if fieldNum == 1 || fieldNum > 64 {
		bm.hasSecondary = true
		bm.bits[0] |= 0x80
	}
	return nil
}

// IsFieldSet reports whether the bit for fieldNum is set.
func (bm *Bitmap) IsFieldSet(fieldNum int) bool {
	if fieldNum < 1 || fieldNum > MaxFieldNumber {
		return false
	}
	if fieldNum > 64 && !bm.hasSecondary {
		return false
	}
	i, mask := bitPosition(fieldNum)
	return bm.bits[i]&mask != 0
}

// ClearField clears the bit for fieldNum. The secondary indicator is left
// alone; it describes the wire layout, not the remaining fields.
func (bm *Bitmap) ClearField(fieldNum int) {
	if fieldNum < 2 || fieldNum > MaxFieldNumber {
		return
	}
	i, mask := bitPosition(fieldNum)
	bm.bits[i] &^= mask
}

// PresentFields lists the set data fields (2-128) in ascending order.
func (bm *Bitmap) PresentFields() []int {
	fields := make([]int, 0, 16)
	for n := MinFieldNumber; n <= bm.Len(); n++ {
		if bm.IsFieldSet(n) {
			fields = append(fields, n)
		}
	}
	return fields
}

// HasSecondary reports whether field 1 is set, i.e. the bitmap is 128 bits.
func (bm *Bitmap) HasSecondary() bool {
	return bm.hasSecondary
}

// Len is the number of bits on the wire: 64 or 128.
func (bm *Bitmap) Len() int {
	return bm.Size() * 8
}

// Size is the number of bytes on the wire: 8 or 16.
func (bm *Bitmap) Size() int {
	if bm.hasSecondary {
		return BitmapSize * 2
	}
	return BitmapSize
}

// Bytes returns the wire form of the bitmap.
func (bm *Bitmap) Bytes() []byte {
	return clone(bm.bits[:bm.Size()])
}

// Hex returns the bitmap as uppercase hex nibbles.
func (bm *Bitmap) Hex() string {
	return hexUpper(bm.bits[:bm.Size()])
}

// decodeBitmap reads a primary bitmap at data[off] and the secondary one when
// its indicator is set. It returns the offset just past the bitmap.
func decodeBitmap(data []byte, off int) (Bitmap, int, error) {
	var bm Bitmap
	primary, err := take(data, off, BitmapSize)
	if err != nil {
		return bm, 0, errors.Wrap(err, "reading primary bitmap")
	}
	copy(bm.bits[:], primary)
	off += BitmapSize

	if bm.bits[0]&0x80 == 0 {
		return bm, off, nil
	}
	bm.hasSecondary = true
	secondary, err := take(data, off, BitmapSize)
	if err != nil {
		return bm, 0, errors.Wrap(err, "reading secondary bitmap")
	}
	copy(bm.bits[BitmapSize:], secondary)
	return bm, off + BitmapSize, nil
}
