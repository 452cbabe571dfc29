package bacnet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf16"
)

// tag is a decoded BACnet tag header. For application booleans length holds
// the value itself.
type tag struct {
	number  byte
	context bool
	opening bool
	closing bool
	length  uint32
}

func readTag(r *bytes.Reader) (tag, error) {
	b, err := r.ReadByte()
	if err != nil {
		return tag{}, err
	}

	t := tag{number: b >> 4, context: b&0x08 != 0}
	if t.number == 0x0F {
		if t.number, err = r.ReadByte(); err != nil {
			return tag{}, fmt.Errorf("failed to read extended tag number: %w", err)
		}
	}

	lvt := b & 0x07
	switch {
	case t.context && lvt == 6:
		t.opening = true
	case t.context && lvt == 7:
		t.closing = true
	case lvt == 5:
		ext, err := r.ReadByte()
		if err != nil {
			return tag{}, fmt.Errorf("failed to read extended length: %w", err)
		}
		switch ext {
		case 254:
			var n uint16
			if err := binary.Read(r, binary.BigEndian, &n); err != nil {
				return tag{}, fmt.Errorf("failed to read 16-bit length: %w", err)
			}
			t.length = uint32(n)
		case 255:
			if err := binary.Read(r, binary.BigEndian, &t.length); err != nil {
				return tag{}, fmt.Errorf("failed to read 32-bit length: %w", err)
			}
		default:
			t.length = uint32(ext)
		}
	default:
		t.length = uint32(lvt)
	}

	// A boolean carries its value in the length field.
	if !t.context && t.number == TAG_BOOLEAN {
		return t, nil
	}
	if !t.opening && !t.closing && int64(t.length) > int64(r.Len()) {
		return tag{}, fmt.Errorf("tag %d length %d exceeds remaining %d bytes: %w", t.number, t.length, r.Len(), io.ErrUnexpectedEOF)
	}
	return t, nil
}

func peekTag(r *bytes.Reader) (tag, error) {
	offset := r.Size() - int64(r.Len())
	t, err := readTag(r)
	r.Seek(offset, io.SeekStart)
	return t, err
}

func expectContextTag(r *bytes.Reader, number byte) (tag, error) {
	t, err := readTag(r)
	if err != nil {
		return tag{}, err
	}
	if !t.context || t.opening || t.closing || t.number != number {
		return tag{}, fmt.Errorf("expected context tag %d, got %+v", number, t)
	}
	return t, nil
}

func expectOpeningTag(r *bytes.Reader, number byte) error {
	t, err := readTag(r)
	if err != nil {
		return err
	}
	if !t.opening || t.number != number {
		return fmt.Errorf("expected opening tag %d, got %+v", number, t)
	}
	return nil
}

func expectClosingTag(r *bytes.Reader, number byte) error {
	t, err := readTag(r)
	if err != nil {
		return err
	}
	if !t.closing || t.number != number {
		return fmt.Errorf("expected closing tag %d, got %+v", number, t)
	}
	return nil
}

func readContent(r *bytes.Reader, length uint32) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readUnsigned(r *bytes.Reader, length uint32) (uint64, error) {
	if length == 0 || length > 8 {
		return 0, fmt.Errorf("invalid unsigned length %d", length)
	}
	buf, err := readContent(r, length)
	if err != nil {
		return 0, err
	}
	var val uint64
	for _, b := range buf {
		val = (val << 8) | uint64(b)
	}
	return val, nil
}

func readSigned(r *bytes.Reader, length uint32) (int64, error) {
	u, err := readUnsigned(r, length)
	if err != nil {
		return 0, err
	}
	shift := 64 - 8*length
	return int64(u<<shift) >> shift, nil
}

func readContextUnsigned(r *bytes.Reader, number byte) (uint64, error) {
	t, err := expectContextTag(r, number)
	if err != nil {
		return 0, err
	}
	return readUnsigned(r, t.length)
}

func readContextObjectIdentifier(r *bytes.Reader, number byte) (ObjectIdentifier, error) {
	t, err := expectContextTag(r, number)
	if err != nil {
		return ObjectIdentifier{}, err
	}
	if t.length != 4 {
		return ObjectIdentifier{}, fmt.Errorf("object identifier length %d", t.length)
	}
	var raw uint32
	if err := binary.Read(r, binary.BigEndian, &raw); err != nil {
		return ObjectIdentifier{}, err
	}
	return decodeObjectIdentifier(raw), nil
}

func decodeApplicationValue(r *bytes.Reader) (Value, error) {
	t, err := readTag(r)
	if err != nil {
		return Value{}, err
	}
	if t.context {
		return Value{}, fmt.Errorf("expected application tag, got context tag %d", t.number)
	}
	return decodeApplicationData(r, t)
}

func decodeApplicationData(r *bytes.Reader, t tag) (Value, error) {
	switch t.number {
	case TAG_NULL:
		return NullValue(), nil
	case TAG_BOOLEAN:
		return BooleanValue(t.length != 0), nil
	case TAG_UNSIGNED_INT:
		val, err := readUnsigned(r, t.length)
		if err != nil {
			return Value{}, err
		}
		return UnsignedValue(val), nil
	case TAG_SIGNED_INT:
		val, err := readSigned(r, t.length)
		if err != nil {
			return Value{}, err
		}
		return SignedValue(val), nil
	case TAG_REAL:
		if t.length != 4 {
			return Value{}, fmt.Errorf("real length %d", t.length)
		}
		var val float32
		if err := binary.Read(r, binary.BigEndian, &val); err != nil {
			return Value{}, err
		}
		return RealValue(val), nil
	case TAG_DOUBLE:
		if t.length != 8 {
			return Value{}, fmt.Errorf("double length %d", t.length)
		}
		var bits uint64
		if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
			return Value{}, err
		}
		return DoubleValue(math.Float64frombits(bits)), nil
	case TAG_OCTET_STRING:
		buf, err := readContent(r, t.length)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindOctetString, Octets: buf}, nil
	case TAG_CHARACTER_STRING:
		if t.length == 0 {
			return Value{}, fmt.Errorf("character string without encoding byte")
		}
		buf, err := readContent(r, t.length)
		if err != nil {
			return Value{}, err
		}
		return StringValue(decodeCharacterString(buf[0], buf[1:])), nil
	case TAG_BIT_STRING:
		return decodeBitString(r, t.length)
	case TAG_ENUMERATED:
		val, err := readUnsigned(r, t.length)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindEnumerated, Unsigned: val}, nil
	case TAG_DATE:
		buf, err := readContent(r, t.length)
		if err != nil || len(buf) != 4 {
			return Value{}, fmt.Errorf("invalid date: %v", err)
		}
		return Value{Kind: KindDate, Date: Date{Year: buf[0], Month: buf[1], Day: buf[2], Weekday: buf[3]}}, nil
	case TAG_TIME:
		buf, err := readContent(r, t.length)
		if err != nil || len(buf) != 4 {
			return Value{}, fmt.Errorf("invalid time: %v", err)
		}
		return Value{Kind: KindTime, Time: Time{Hour: buf[0], Minute: buf[1], Second: buf[2], Hundredths: buf[3]}}, nil
	case TAG_OBJECT_IDENTIFIER:
		if t.length != 4 {
			return Value{}, fmt.Errorf("object identifier length %d", t.length)
		}
		var raw uint32
		if err := binary.Read(r, binary.BigEndian, &raw); err != nil {
			return Value{}, err
		}
		return ObjectValue(decodeObjectIdentifier(raw)), nil
	default:
		return Value{}, fmt.Errorf("reserved application tag %d", t.number)
	}
}

func decodeCharacterString(charset byte, data []byte) string {
	switch charset {
	case 4: // UCS-2
		units := make([]uint16, len(data)/2)
		for i := range units {
			units[i] = binary.BigEndian.Uint16(data[2*i:])
		}
		return string(utf16.Decode(units))
	case 5: // ISO 8859-1
		runes := make([]rune, len(data))
		for i, b := range data {
			runes[i] = rune(b)
		}
		return string(runes)
	default:
		return string(data)
	}
}

func decodeBitString(r *bytes.Reader, length uint32) (Value, error) {
	if length == 0 {
		return Value{}, fmt.Errorf("bit string without unused-bits byte")
	}
	buf, err := readContent(r, length)
	if err != nil {
		return Value{}, err
	}
	unused := int(buf[0])
	if unused > 7 || (len(buf) == 1 && unused != 0) {
		return Value{}, fmt.Errorf("invalid unused bit count %d", unused)
	}
	count := 8*(len(buf)-1) - unused
	bits := make([]bool, count)
	for i := range bits {
		bits[i] = buf[1+i/8]&(0x80>>(i%8)) != 0
	}
	return Value{Kind: KindBitString, Bits: bits}, nil
}

// decodeValues reads elements until the closing tag with the given number and
// consumes that closing tag. Nested constructed data becomes KindList values
// and context-tagged primitives keep their raw content.
func decodeValues(r *bytes.Reader, closing byte) ([]Value, error) {
	var values []Value
	for {
		t, err := readTag(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read value tag: %w", err)
		}
		switch {
		case t.closing && t.number == closing:
			return values, nil
		case t.closing:
			return nil, fmt.Errorf("unexpected closing tag %d", t.number)
		case t.opening:
			nested, err := decodeValues(r, t.number)
			if err != nil {
				return nil, err
			}
			values = append(values, Value{Kind: KindList, Items: nested, Tag: t.number})
		case t.context:
			raw, err := readContent(r, t.length)
			if err != nil {
				return nil, err
			}
			values = append(values, Value{Kind: KindContext, Tag: t.number, Octets: raw})
		default:
			v, err := decodeApplicationData(r, t)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
	}
}

var arrayProperties = map[PropertyIdentifier]bool{
	PROP_OBJECT_LIST:                     true,
	PROP_PRIORITY_ARRAY:                  true,
	PROP_STATE_TEXT:                      true,
	PROP_PROPERTY_LIST:                   true,
	PROP_EVENT_TIME_STAMPS:               true,
	PROP_DATE_LIST:                       true,
	PROP_RECIPIENT_LIST:                  true,
	PROP_ACTIVE_COV_SUBSCRIPTIONS:        true,
	PROP_DEVICE_ADDRESS_BINDING:          true,
	PROP_LIST_OF_OBJECT_PROPERTY_REFS:    true,
	PROP_TIME_SYNCHRONIZATION_RECIPIENTS: true,
	PROP_CONFIGURATION_FILES:             true,
	PROP_ALARM_VALUES:                    true,
	PROP_FAULT_VALUES:                    true,
	PROP_WEEKLY_SCHEDULE:                 true,
	PROP_EXCEPTION_SCHEDULE:              true,
}

// collapse turns the element list of one property value into a Value. Whole
// arrays stay lists even with a single element.
func collapse(ref PropertyReference, values []Value) Value {
	if len(values) == 1 && (ref.Index != nil || !arrayProperties[ref.Property]) {
		return values[0]
	}
	return ListValue(values...)
}
