package gateway

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	bacnet "github.com/maxzerker/bacnet-rpc"
)

const (
	MessageReadOK         = "BACnet read request successfully invoked"
	MessageWriteOK        = "BACnet write request successfully invoked"
	MessageReadMultipleOK = "BACnet read multiple request successfully invoked"
	MessageWhoIsOK        = "BACnet who-is request successfully invoked"
)

// NullSentinel is the literal echoed as written_value after a relinquish.
const NullSentinel = "null"

// Result is the envelope every operation returns.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`

	failure *Failure
}

// Failure returns the classified failure, or nil on success.
func (r Result) Failure() *Failure {
	return r.failure
}

func succeeded(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}

// Failed classifies err into a failure envelope with no data.
func Failed(err error) Result {
	f := Classify(err)
	return Result{Message: f.Error(), failure: f}
}

type ReadData struct {
	DeviceInstance     uint32 `json:"device_instance"`
	ObjectIdentifier   string `json:"object_identifier"`
	PropertyIdentifier string `json:"property_identifier"`
	ReadResult         any    `json:"read_result"`
}

type WriteData struct {
	DeviceInstance     uint32 `json:"device_instance"`
	ObjectIdentifier   string `json:"object_identifier"`
	PropertyIdentifier string `json:"property_identifier"`
	WrittenValue       any    `json:"written_value"`
	Priority           *int   `json:"priority"`
}

type ReadMultipleData struct {
	DeviceInstance uint32       `json:"device_instance"`
	Requests       []BatchEntry `json:"requests"`
}

// BatchEntry is one item of a batch read. Exactly one of Value and Error is
// set.
type BatchEntry struct {
	ObjectIdentifier   string  `json:"object_identifier"`
	PropertyIdentifier string  `json:"property_identifier"`
	Value              *string `json:"value,omitempty"`
	Error              *string `json:"error,omitempty"`
}

// DeviceIdentification is one device that answered a Who-Is.
type DeviceIdentification struct {
	DeviceIdentifier      string `json:"i-am-device-identifier"`
	MaxAPDULengthAccepted uint32 `json:"max-apdu-length-accepted"`
	SegmentationSupported string `json:"segmentation-supported"`
	VendorID              uint32 `json:"vendor-id"`
}

func identification(d bacnet.DeviceInfo) DeviceIdentification {
	return DeviceIdentification{
		DeviceIdentifier:      bacnet.ObjectIdentifier{Type: bacnet.OBJECT_DEVICE, Instance: d.DeviceID}.String(),
		MaxAPDULengthAccepted: d.MaxAPDU,
		SegmentationSupported: d.SegmentationName(),
		VendorID:              d.VendorID,
	}
}

// JSONValue converts a decoded value into something encoding/json renders
// faithfully. Non-finite reals become "NaN", "Inf" and "-Inf".
func JSONValue(v bacnet.Value) any {
	switch v.Kind {
	case bacnet.KindNull:
		return nil
	case bacnet.KindBoolean:
		return v.Bool
	case bacnet.KindUnsigned:
		return v.Unsigned
	case bacnet.KindSigned:
		return v.Signed
	case bacnet.KindReal, bacnet.KindDouble:
		switch {
		case math.IsNaN(v.Float):
			return "NaN"
		case math.IsInf(v.Float, 1):
			return "Inf"
		case math.IsInf(v.Float, -1):
			return "-Inf"
		}
		return v.Float
	case bacnet.KindOctetString:
		return hex.EncodeToString(v.Octets)
	case bacnet.KindCharacterString:
		return v.Text
	case bacnet.KindBitString:
		bits := make([]int, len(v.Bits))
		for i, b := range v.Bits {
			if b {
				bits[i] = 1
			}
		}
		return bits
	case bacnet.KindEnumerated:
		if v.Text != "" {
			return v.Text
		}
		return v.Unsigned
	case bacnet.KindDate:
		return v.Date.String()
	case bacnet.KindTime:
		return v.Time.String()
	case bacnet.KindObjectIdentifier:
		return v.Object.String()
	case bacnet.KindList:
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			items[i] = JSONValue(item)
		}
		return items
	case bacnet.KindContext:
		return map[string]any{"tag": v.Tag, "data": hex.EncodeToString(v.Octets)}
	}
	return nil
}

// FormatValue renders a decoded value as text for batch results, keeping the
// exact protocol numeric formatting: reals print with the shortest
// representation of their precision and non-finite reals as "nan", "inf" and
// "-inf".
func FormatValue(v bacnet.Value) string {
	return formatValue(v, false)
}

func formatValue(v bacnet.Value, nested bool) string {
	switch v.Kind {
	case bacnet.KindNull:
		return "None"
	case bacnet.KindBoolean:
		if v.Bool {
			return "True"
		}
		return "False"
	case bacnet.KindUnsigned:
		return strconv.FormatUint(v.Unsigned, 10)
	case bacnet.KindSigned:
		return strconv.FormatInt(v.Signed, 10)
	case bacnet.KindReal, bacnet.KindDouble:
		return formatFloat(v.Float)
	case bacnet.KindOctetString:
		return hex.EncodeToString(v.Octets)
	case bacnet.KindCharacterString:
		if nested {
			return strconv.Quote(v.Text)
		}
		return v.Text
	case bacnet.KindBitString:
		bits := make([]string, len(v.Bits))
		for i, b := range v.Bits {
			bits[i] = "0"
			if b {
				bits[i] = "1"
			}
		}
		return "[" + strings.Join(bits, ", ") + "]"
	case bacnet.KindEnumerated:
		if v.Text != "" {
			return v.Text
		}
		return strconv.FormatUint(v.Unsigned, 10)
	case bacnet.KindDate:
		return v.Date.String()
	case bacnet.KindTime:
		return v.Time.String()
	case bacnet.KindObjectIdentifier:
		return v.Object.String()
	case bacnet.KindList:
		items := make([]string, len(v.Items))
		for i, item := range v.Items {
			items[i] = formatValue(item, true)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case bacnet.KindContext:
		return "[" + strconv.Itoa(int(v.Tag)) + "]" + hex.EncodeToString(v.Octets)
	}
	return ""
}

// formatFloat prints the shortest decimal that reads back as f, always with a
// fractional part or an exponent, switching to exponent form outside
// [1e-4, 1e16).
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	if abs := math.Abs(f); abs < 1e-4 || abs >= 1e16 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
