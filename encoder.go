package bacnet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

func writeTag(buf *bytes.Buffer, number byte, context bool, length uint32) {
	var first byte
	if context {
		first = 0x08
	}

	var ext []byte
	if number <= 14 {
		first |= number << 4
	} else {
		first |= 0xF0
		ext = append(ext, number)
	}

	switch {
	case length <= 4:
		first |= byte(length)
	case length < 254:
		first |= 5
		ext = append(ext, byte(length))
	case length <= math.MaxUint16:
		first |= 5
		ext = append(ext, 254, byte(length>>8), byte(length))
	default:
		first |= 5
		ext = append(ext, 255)
		ext = binary.BigEndian.AppendUint32(ext, length)
	}

	buf.WriteByte(first)
	buf.Write(ext)
}

func writeOpeningTag(buf *bytes.Buffer, number byte) {
	if number <= 14 {
		buf.WriteByte(number<<4 | 0x0E)
		return
	}
	buf.WriteByte(0xFE)
	buf.WriteByte(number)
}

func writeClosingTag(buf *bytes.Buffer, number byte) {
	if number <= 14 {
		buf.WriteByte(number<<4 | 0x0F)
		return
	}
	buf.WriteByte(0xFF)
	buf.WriteByte(number)
}

func unsignedBytes(v uint64) []byte {
	n := 1
	for n < 8 && v>>(8*n) != 0 {
		n++
	}
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

func signedBytes(v int64) []byte {
	n := 1
	for n < 8 {
		lim := int64(1) << (8*n - 1)
		if v >= -lim && v < lim {
			break
		}
		n++
	}
	out := make([]byte, n)
	u := uint64(v)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(u)
		u >>= 8
	}
	return out
}

func writeContextUnsigned(buf *bytes.Buffer, number byte, v uint64) {
	b := unsignedBytes(v)
	writeTag(buf, number, true, uint32(len(b)))
	buf.Write(b)
}

func writeContextObjectIdentifier(buf *bytes.Buffer, number byte, o ObjectIdentifier) {
	writeTag(buf, number, true, 4)
	binary.Write(buf, binary.BigEndian, o.encode())
}

func writePropertyReference(buf *bytes.Buffer, propertyTag byte, ref PropertyReference) {
	writeContextUnsigned(buf, propertyTag, uint64(ref.Property))
	if ref.Index != nil {
		writeContextUnsigned(buf, propertyTag+1, uint64(*ref.Index))
	}
}

func encodeApplicationValue(buf *bytes.Buffer, v Value) error {
	switch v.Kind {
	case KindNull:
		writeTag(buf, TAG_NULL, false, 0)
	case KindBoolean:
		var b uint32
		if v.Bool {
			b = 1
		}
		writeTag(buf, TAG_BOOLEAN, false, b)
	case KindUnsigned:
		b := unsignedBytes(v.Unsigned)
		writeTag(buf, TAG_UNSIGNED_INT, false, uint32(len(b)))
		buf.Write(b)
	case KindSigned:
		b := signedBytes(v.Signed)
		writeTag(buf, TAG_SIGNED_INT, false, uint32(len(b)))
		buf.Write(b)
	case KindReal:
		writeTag(buf, TAG_REAL, false, 4)
		binary.Write(buf, binary.BigEndian, float32(v.Float))
	case KindDouble:
		writeTag(buf, TAG_DOUBLE, false, 8)
		binary.Write(buf, binary.BigEndian, v.Float)
	case KindOctetString:
		writeTag(buf, TAG_OCTET_STRING, false, uint32(len(v.Octets)))
		buf.Write(v.Octets)
	case KindCharacterString:
		writeTag(buf, TAG_CHARACTER_STRING, false, uint32(len(v.Text)+1))
		buf.WriteByte(0) // UTF-8
		buf.WriteString(v.Text)
	case KindBitString:
		unused := (8 - len(v.Bits)%8) % 8
		packed := make([]byte, (len(v.Bits)+7)/8)
		for i, bit := range v.Bits {
			if bit {
				packed[i/8] |= 0x80 >> (i % 8)
			}
		}
		writeTag(buf, TAG_BIT_STRING, false, uint32(len(packed)+1))
		buf.WriteByte(byte(unused))
		buf.Write(packed)
	case KindEnumerated:
		b := unsignedBytes(v.Unsigned)
		writeTag(buf, TAG_ENUMERATED, false, uint32(len(b)))
		buf.Write(b)
	case KindDate:
		writeTag(buf, TAG_DATE, false, 4)
		buf.Write([]byte{v.Date.Year, v.Date.Month, v.Date.Day, v.Date.Weekday})
	case KindTime:
		writeTag(buf, TAG_TIME, false, 4)
		buf.Write([]byte{v.Time.Hour, v.Time.Minute, v.Time.Second, v.Time.Hundredths})
	case KindObjectIdentifier:
		writeTag(buf, TAG_OBJECT_IDENTIFIER, false, 4)
		binary.Write(buf, binary.BigEndian, v.Object.encode())
	case KindList:
		for _, item := range v.Items {
			if err := encodeApplicationValue(buf, item); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: cannot encode %s value", ErrInvalidValue, v.Kind)
	}
	return nil
}
