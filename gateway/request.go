package gateway

import (
	"bytes"
	"encoding/json"
	"net"
	"strconv"

	bacnet "github.com/maxzerker/bacnet-rpc"
)

const (
	MinPriority = 1
	MaxPriority = 16
)

type ReadRequest struct {
	DeviceInstance     int64  `json:"device_instance"`
	ObjectIdentifier   string `json:"object_identifier"`
	PropertyIdentifier string `json:"property_identifier"`
}

// WriteRequest writes Value at Priority. The string "null" (any case) or a
// JSON null relinquishes the command at Priority, which is then required. A
// nil Value means the value was left out and the request is malformed.
type WriteRequest struct {
	DeviceInstance     int64  `json:"device_instance"`
	ObjectIdentifier   string `json:"object_identifier"`
	PropertyIdentifier string `json:"property_identifier"`
	Value              any    `json:"value"`
	Priority           *int   `json:"priority,omitempty"`
}

// UnmarshalJSON keeps an explicit "value": null apart from a missing value.
// Numbers decode as json.Number.
func (r *WriteRequest) UnmarshalJSON(data []byte) error {
	type plain WriteRequest
	var raw struct {
		plain
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = WriteRequest(raw.plain)
	r.Value = nil

	switch {
	case raw.Value == nil:
	case bytes.Equal(bytes.TrimSpace(raw.Value), []byte("null")):
		r.Value = NullSentinel
	default:
		dec := json.NewDecoder(bytes.NewReader(raw.Value))
		dec.UseNumber()
		if err := dec.Decode(&r.Value); err != nil {
			return err
		}
	}
	return nil
}

// Relinquish reports whether the request releases a command instead of
// writing a value.
func (r WriteRequest) Relinquish() bool {
	return bacnet.IsNullLiteral(r.Value)
}

type BatchItem struct {
	ObjectIdentifier   string `json:"object_identifier"`
	PropertyIdentifier string `json:"property_identifier"`
}

type ReadMultipleRequest struct {
	DeviceInstance int64       `json:"device_instance"`
	Requests       []BatchItem `json:"requests"`
}

// WhoIsRequest scans the inclusive instance range [StartInstance, EndInstance].
type WhoIsRequest struct {
	StartInstance *int64 `json:"start_instance"`
	EndInstance   *int64 `json:"end_instance"`
}

func parseDeviceInstance(n int64) (uint32, error) {
	if n < 0 || n > int64(bacnet.MaxInstance) {
		return 0, malformed(CauseInvalidDeviceInstance)
	}
	return uint32(n), nil
}

func parseObject(s string) (bacnet.ObjectIdentifier, error) {
	object, err := bacnet.ParseObjectIdentifier(s)
	if err != nil {
		return bacnet.ObjectIdentifier{}, malformed(CauseInvalidObjectIdentifier)
	}
	return object, nil
}

// parseProperty accepts a property that names a single value; all, required
// and optional only make sense inside ReadPropertyMultiple.
func parseProperty(s string) (bacnet.PropertyReference, error) {
	ref, err := bacnet.ParsePropertyReference(s)
	if err != nil || ref.Property.IsSpecial() {
		return bacnet.PropertyReference{}, malformed(CauseInvalidPropertyIdentifier)
	}
	return ref, nil
}

func parsePriority(p *int, relinquish bool) (uint8, error) {
	if p == nil {
		if relinquish {
			return 0, malformed(CausePriorityRequired)
		}
		return 0, nil
	}
	if *p < MinPriority || *p > MaxPriority {
		return 0, malformed(CausePriorityOutOfRange)
	}
	return uint8(*p), nil
}

// parseRange requires both bounds or neither; neither asks every instance.
// Validate checks the range without touching the network.
func (r WhoIsRequest) Validate() error {
	_, _, err := parseRange(r)
	return err
}

func parseRange(req WhoIsRequest) (low, high uint32, err error) {
	if req.StartInstance == nil && req.EndInstance == nil {
		return 0, bacnet.MaxInstance, nil
	}
	if req.StartInstance == nil || req.EndInstance == nil {
		return 0, 0, malformed(CauseInvalidRange)
	}
	start, end := *req.StartInstance, *req.EndInstance
	if start < 0 || end > int64(bacnet.MaxInstance) || end < start {
		return 0, 0, malformed(CauseInvalidRange)
	}
	return uint32(start), uint32(end), nil
}

// parseAddress accepts "host" or "host:port"; the port defaults to 47808.
func parseAddress(s string) (*net.UDPAddr, error) {
	if s == "" {
		return nil, nil
	}
	if ip := net.ParseIP(s); ip != nil {
		return &net.UDPAddr{IP: ip, Port: bacnet.BACNET_DEFAULT_PORT}, nil
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return nil, malformed(CauseInvalidAddress)
	}
	ip := net.ParseIP(host)
	n, err := strconv.ParseUint(port, 10, 16)
	if ip == nil || err != nil || n == 0 {
		return nil, malformed(CauseInvalidAddress)
	}
	return &net.UDPAddr{IP: ip, Port: int(n)}, nil
}
