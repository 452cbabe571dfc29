package bacnet

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which field of a Value is meaningful.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindUnsigned
	KindSigned
	KindReal
	KindDouble
	KindOctetString
	KindCharacterString
	KindBitString
	KindEnumerated
	KindDate
	KindTime
	KindObjectIdentifier
	KindList
	KindContext
)

var kindNames = [...]string{
	KindNull:             "null",
	KindBoolean:          "boolean",
	KindUnsigned:         "unsigned",
	KindSigned:           "signed",
	KindReal:             "real",
	KindDouble:           "double",
	KindOctetString:      "octet-string",
	KindCharacterString:  "character-string",
	KindBitString:        "bit-string",
	KindEnumerated:       "enumerated",
	KindDate:             "date",
	KindTime:             "time",
	KindObjectIdentifier: "object-identifier",
	KindList:             "list",
	KindContext:          "context",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a decoded property value.
//
// Real values keep their single precision: Float holds the float32 widened to
// float64 exactly, so 0x428adc28 on the wire reads back as 69.42999267578125.
type Value struct {
	Kind     Kind
	Bool     bool
	Unsigned uint64 // unsigned and enumerated
	Signed   int64
	Float    float64 // real and double
	Text     string  // character string, or the name of a known enumeration
	Octets   []byte  // octet string, or the raw content of a context tag
	Bits     []bool
	Date     Date
	Time     Time
	Object   ObjectIdentifier
	Items    []Value
	Tag      byte // context tag number when Kind is KindContext
}

func NullValue() Value               { return Value{Kind: KindNull} }
func BooleanValue(b bool) Value      { return Value{Kind: KindBoolean, Bool: b} }
func UnsignedValue(u uint64) Value   { return Value{Kind: KindUnsigned, Unsigned: u} }
func SignedValue(i int64) Value      { return Value{Kind: KindSigned, Signed: i} }
func RealValue(f float32) Value      { return Value{Kind: KindReal, Float: float64(f)} }
func DoubleValue(f float64) Value    { return Value{Kind: KindDouble, Float: f} }
func StringValue(s string) Value     { return Value{Kind: KindCharacterString, Text: s} }
func EnumeratedValue(u uint32) Value { return Value{Kind: KindEnumerated, Unsigned: uint64(u)} }
func ListValue(items ...Value) Value { return Value{Kind: KindList, Items: items} }
func ObjectValue(o ObjectIdentifier) Value {
	return Value{Kind: KindObjectIdentifier, Object: o}
}

// Date is a BACnet date. Unspecified fields hold 255.
type Date struct {
	Year    byte // years since 1900
	Month   byte
	Day     byte
	Weekday byte
}

func (d Date) String() string {
	year := "*"
	if d.Year != 0xFF {
		year = strconv.Itoa(1900 + int(d.Year))
	}
	return year + "-" + twoDigits(d.Month) + "-" + twoDigits(d.Day)
}

// Time is a BACnet time of day. Unspecified fields hold 255.
type Time struct {
	Hour       byte
	Minute     byte
	Second     byte
	Hundredths byte
}

func (t Time) String() string {
	return twoDigits(t.Hour) + ":" + twoDigits(t.Minute) + ":" + twoDigits(t.Second) + "." + twoDigits(t.Hundredths)
}

func twoDigits(b byte) string {
	if b == 0xFF {
		return "*"
	}
	if b < 10 {
		return "0" + strconv.Itoa(int(b))
	}
	return strconv.Itoa(int(b))
}

// nameEnumerations attaches names to enumerated values of properties with a
// known enumeration.
func nameEnumerations(objectType ObjectType, property PropertyIdentifier, v Value) Value {
	names := enumerationNames(objectType, property)
	if names == nil {
		return v
	}
	return applyNames(names, v)
}

func applyNames(names map[uint32]string, v Value) Value {
	switch v.Kind {
	case KindEnumerated:
		v.Text = names[uint32(v.Unsigned)]
	case KindList:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = applyNames(names, item)
		}
		v.Items = items
	}
	return v
}

var ErrInvalidValue = errors.New("invalid value")

type datatype uint8

const (
	dtUnknown datatype = iota
	dtReal
	dtDouble
	dtUnsigned
	dtSigned
	dtBoolean
	dtEnumerated
	dtCharacterString
)

func propertyDatatype(objectType ObjectType, property PropertyIdentifier) datatype {
	switch property {
	case PROP_PRESENT_VALUE, PROP_RELINQUISH_DEFAULT:
		switch {
		case isAnalogObject(objectType):
			return dtReal
		case isBinaryObject(objectType):
			return dtEnumerated
		case isMultiStateObject(objectType), objectType == OBJECT_POSITIVE_INTEGER_VALUE:
			return dtUnsigned
		case objectType == OBJECT_INTEGER_VALUE:
			return dtSigned
		case objectType == OBJECT_LARGE_ANALOG_VALUE:
			return dtDouble
		case objectType == OBJECT_CHARACTERSTRING_VALUE:
			return dtCharacterString
		}
	case PROP_COV_INCREMENT, PROP_HIGH_LIMIT, PROP_LOW_LIMIT, PROP_DEADBAND,
		PROP_MIN_PRES_VALUE, PROP_MAX_PRES_VALUE, PROP_RESOLUTION, PROP_SETPOINT,
		PROP_PROPORTIONAL_CONSTANT, PROP_INTEGRAL_CONSTANT, PROP_DERIVATIVE_CONSTANT,
		PROP_BIAS, PROP_MAXIMUM_OUTPUT, PROP_MINIMUM_OUTPUT:
		return dtReal
	case PROP_OUT_OF_SERVICE:
		return dtBoolean
	case PROP_OBJECT_NAME, PROP_DESCRIPTION, PROP_LOCATION, PROP_ACTIVE_TEXT,
		PROP_INACTIVE_TEXT, PROP_PROFILE_NAME, PROP_MODEL_NAME, PROP_VENDOR_NAME:
		return dtCharacterString
	case PROP_NOTIFICATION_CLASS, PROP_NUMBER_OF_STATES, PROP_APDU_TIMEOUT,
		PROP_NUMBER_OF_APDU_RETRIES, PROP_TIME_DELAY, PROP_UPDATE_INTERVAL,
		PROP_MINIMUM_ON_TIME, PROP_MINIMUM_OFF_TIME, PROP_LOG_INTERVAL, PROP_BUFFER_SIZE:
		return dtUnsigned
	case PROP_UTC_OFFSET:
		return dtSigned
	}
	if enumerationNames(objectType, property) != nil {
		return dtEnumerated
	}
	return dtUnknown
}

// IsNullLiteral reports whether v is the string "null", ignoring case and
// surrounding space.
func IsNullLiteral(v any) bool {
	s, ok := v.(string)
	return ok && strings.EqualFold(strings.TrimSpace(s), "null")
}

// EncodeValueFor converts a loosely typed value (as decoded from JSON or given on
// a command line) into the native datatype of the property. nil and any
// IsNullLiteral string become Null. Properties without a known datatype are encoded after the
// kind of v.
func EncodeValueFor(objectType ObjectType, property PropertyIdentifier, v any) (Value, error) {
	if v == nil {
		return NullValue(), nil
	}
	if IsNullLiteral(v) {
		return NullValue(), nil
	}
	if val, ok := v.(Value); ok {
		return val, nil
	}

	switch propertyDatatype(objectType, property) {
	case dtReal:
		f, ok := toFloat(v)
		if !ok {
			return Value{}, fmt.Errorf("%w: %v is not a number", ErrInvalidValue, v)
		}
		if !math.IsNaN(f) && !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
			return Value{}, fmt.Errorf("%w: %v does not fit a real", ErrInvalidValue, v)
		}
		return RealValue(float32(f)), nil
	case dtDouble:
		f, ok := toFloat(v)
		if !ok {
			return Value{}, fmt.Errorf("%w: %v is not a number", ErrInvalidValue, v)
		}
		return DoubleValue(f), nil
	case dtUnsigned:
		u, ok := toUnsigned(v)
		if !ok {
			return Value{}, fmt.Errorf("%w: %v is not an unsigned integer", ErrInvalidValue, v)
		}
		return UnsignedValue(u), nil
	case dtSigned:
		i, ok := toSigned(v)
		if !ok {
			return Value{}, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, v)
		}
		return SignedValue(i), nil
	case dtBoolean:
		b, ok := toBool(v)
		if !ok {
			return Value{}, fmt.Errorf("%w: %v is not a boolean", ErrInvalidValue, v)
		}
		return BooleanValue(b), nil
	case dtCharacterString:
		s, ok := v.(string)
		if !ok {
			return Value{}, fmt.Errorf("%w: %v is not a string", ErrInvalidValue, v)
		}
		return StringValue(s), nil
	case dtEnumerated:
		return toEnumerated(enumerationNames(objectType, property), v)
	}

	return encodeByKind(v)
}

func encodeByKind(v any) (Value, error) {
	switch x := v.(type) {
	case bool:
		return BooleanValue(x), nil
	case string:
		return StringValue(x), nil
	case float32:
		return RealValue(x), nil
	}
	if i, ok := toSigned(v); ok {
		if i >= 0 {
			return UnsignedValue(uint64(i)), nil
		}
		return SignedValue(i), nil
	}
	if f, ok := toFloat(v); ok {
		return RealValue(float32(f)), nil
	}
	return Value{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, v)
}

func toEnumerated(names map[uint32]string, v any) (Value, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return EnumeratedValue(1), nil
		}
		return EnumeratedValue(0), nil
	case string:
		s := strings.TrimSpace(x)
		for n, name := range names {
			if strings.EqualFold(name, s) {
				return EnumeratedValue(n), nil
			}
		}
	}
	u, ok := toUnsigned(v)
	if !ok || u > math.MaxUint32 {
		return Value{}, fmt.Errorf("%w: %v is not a known enumeration value", ErrInvalidValue, v)
	}
	return EnumeratedValue(uint32(u)), nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func toSigned(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float64:
		if x != math.Trunc(x) || math.Abs(x) > 1<<53 {
			return 0, false
		}
		return int64(x), true
	case json.Number:
		i, err := x.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toUnsigned(v any) (uint64, bool) {
	i, ok := toSigned(v)
	if !ok || i < 0 {
		return 0, false
	}
	return uint64(i), true
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	if u, ok := toUnsigned(v); ok && u <= 1 {
		return u == 1, true
	}
	return false, false
}
