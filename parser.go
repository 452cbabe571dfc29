package bacnet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
)

var errNotApplicationMessage = errors.New("not an application layer message")

// apdu is a decoded application layer PDU header plus its service data.
type apdu struct {
	pduType  byte
	flags    byte
	invokeID byte
	service  byte
	reason   byte
	data     []byte
}

func (a *apdu) segmented() bool {
	return a.flags&APDU_FLAG_SEGMENTED != 0
}

type frame struct {
	source Address
	apdu   apdu
}

func parseFrame(data []byte, from *net.UDPAddr) (frame, error) {
	r := bytes.NewReader(data)

	// BVLC
	bvlcHeader := BVLCHeader{}
	if err := binary.Read(r, binary.BigEndian, &bvlcHeader); err != nil {
		return frame{}, fmt.Errorf("error reading BVLC header: %w", err)
	}
	if bvlcHeader.Type != BVLC_TYPE_BACNET_IP {
		return frame{}, fmt.Errorf("not a BACnet/IP packet, type 0x%x", bvlcHeader.Type)
	}
	if int(bvlcHeader.Length) != len(data) {
		return frame{}, fmt.Errorf("BVLC length %d does not match datagram length %d", bvlcHeader.Length, len(data))
	}

	source := Address{UDP: from}
	switch bvlcHeader.Function {
	case BVLC_ORIGINAL_UNICAST_NPDU, BVLC_ORIGINAL_BROADCAST_NPDU:
	case BVLC_FORWARDED_NPDU:
		var origin struct {
			IP   [4]byte
			Port uint16
		}
		if err := binary.Read(r, binary.BigEndian, &origin); err != nil {
			return frame{}, fmt.Errorf("error reading forwarded address: %w", err)
		}
		source.UDP = &net.UDPAddr{IP: net.IPv4(origin.IP[0], origin.IP[1], origin.IP[2], origin.IP[3]), Port: int(origin.Port)}
	default:
		return frame{}, fmt.Errorf("BVLC function 0x%02x: %w", bvlcHeader.Function, errNotApplicationMessage)
	}

	// NPDU
	npduHeader := NPDU{}
	if err := binary.Read(r, binary.BigEndian, &npduHeader); err != nil {
		return frame{}, fmt.Errorf("error reading NPDU header: %w", err)
	}
	if npduHeader.Version != 1 {
		return frame{}, fmt.Errorf("unsupported NPDU version %d", npduHeader.Version)
	}
	if npduHeader.Control&NPDU_CONTROL_DEST_SPECIFIER != 0 {
		if _, _, err := readNetworkAddress(r); err != nil {
			return frame{}, fmt.Errorf("error reading NPDU destination: %w", err)
		}
	}
	if npduHeader.Control&NPDU_CONTROL_SOURCE_SPECIFIER != 0 {
		snet, sadr, err := readNetworkAddress(r)
		if err != nil {
			return frame{}, fmt.Errorf("error reading NPDU source: %w", err)
		}
		source.Net, source.Mac = snet, sadr
	}
	if npduHeader.Control&NPDU_CONTROL_DEST_SPECIFIER != 0 {
		if _, err := r.ReadByte(); err != nil {
			return frame{}, fmt.Errorf("error reading hop count: %w", err)
		}
	}
	if npduHeader.Control&NPDU_CONTROL_NETWORK_LAYER_MESSAGE != 0 {
		return frame{}, errNotApplicationMessage
	}

	// APDU
	parsed, err := parseAPDU(data[len(data)-r.Len():])
	if err != nil {
		return frame{}, err
	}
	return frame{source: source, apdu: parsed}, nil
}

func readNetworkAddress(r *bytes.Reader) (uint16, []byte, error) {
	var network uint16
	if err := binary.Read(r, binary.BigEndian, &network); err != nil {
		return 0, nil, err
	}
	length, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	mac, err := readContent(r, uint32(length))
	if err != nil {
		return 0, nil, err
	}
	return network, mac, nil
}

func parseAPDU(data []byte) (apdu, error) {
	if len(data) < 2 {
		return apdu{}, fmt.Errorf("APDU too short: %d bytes", len(data))
	}
	a := apdu{pduType: data[0] & 0xF0, flags: data[0] & 0x0F}

	need := func(n int) error {
		if len(data) < n {
			return fmt.Errorf("APDU type 0x%02x too short: %d bytes", a.pduType, len(data))
		}
		return nil
	}

	switch a.pduType {
	case APDU_UNCONFIRMED_REQUEST:
		a.service = data[1]
		a.data = data[2:]
	case APDU_CONFIRMED_REQUEST:
		if err := need(4); err != nil {
			return apdu{}, err
		}
		a.invokeID, a.service, a.data = data[2], data[3], data[4:]
	case APDU_SIMPLE_ACK:
		if err := need(3); err != nil {
			return apdu{}, err
		}
		a.invokeID, a.service = data[1], data[2]
	case APDU_COMPLEX_ACK:
		if a.segmented() {
			if err := need(5); err != nil {
				return apdu{}, err
			}
			a.invokeID, a.service, a.data = data[1], data[4], data[5:]
			break
		}
		if err := need(3); err != nil {
			return apdu{}, err
		}
		a.invokeID, a.service, a.data = data[1], data[2], data[3:]
	case APDU_ERROR:
		if err := need(3); err != nil {
			return apdu{}, err
		}
		a.invokeID, a.service, a.data = data[1], data[2], data[3:]
	case APDU_REJECT, APDU_ABORT:
		if err := need(3); err != nil {
			return apdu{}, err
		}
		a.invokeID, a.reason = data[1], data[2]
	case APDU_SEGMENT_ACK:
		if err := need(2); err != nil {
			return apdu{}, err
		}
		a.invokeID = data[1]
	default:
		return apdu{}, fmt.Errorf("unknown APDU type 0x%02x", data[0])
	}
	return a, nil
}

func parseIAm(data []byte, addr Address) (DeviceInfo, error) {
	r := bytes.NewReader(data)

	objectValue, err := decodeApplicationValue(r)
	if err != nil || objectValue.Kind != KindObjectIdentifier {
		return DeviceInfo{}, fmt.Errorf("failed to read I-Am object identifier: %v", err)
	}
	if objectValue.Object.Type != OBJECT_DEVICE {
		return DeviceInfo{}, fmt.Errorf("I-Am for non-device object %s", objectValue.Object)
	}

	maxAPDU, err := decodeApplicationValue(r)
	if err != nil || maxAPDU.Kind != KindUnsigned {
		return DeviceInfo{}, fmt.Errorf("failed to read I-Am max APDU: %v", err)
	}

	segmentation, err := decodeApplicationValue(r)
	if err != nil || segmentation.Kind != KindEnumerated {
		return DeviceInfo{}, fmt.Errorf("failed to read I-Am segmentation: %v", err)
	}

	vendorID, err := decodeApplicationValue(r)
	if err != nil || vendorID.Kind != KindUnsigned {
		return DeviceInfo{}, fmt.Errorf("failed to read I-Am vendor id: %v", err)
	}

	return DeviceInfo{
		DeviceID:     objectValue.Object.Instance,
		Address:      addr,
		MaxAPDU:      uint32(maxAPDU.Unsigned),
		Segmentation: uint32(segmentation.Unsigned),
		VendorID:     uint32(vendorID.Unsigned),
	}, nil
}

// parseWhoIs returns the optional instance limits of a Who-Is request.
func parseWhoIs(data []byte) (low, high *uint32, err error) {
	if len(data) == 0 {
		return nil, nil, nil
	}
	r := bytes.NewReader(data)
	l, err := readContextUnsigned(r, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read Who-Is low limit: %w", err)
	}
	h, err := readContextUnsigned(r, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read Who-Is high limit: %w", err)
	}
	lo, hi := uint32(l), uint32(h)
	return &lo, &hi, nil
}

func parseError(data []byte) (class, code uint32, err error) {
	r := bytes.NewReader(data)
	classValue, err := decodeApplicationValue(r)
	if err != nil || classValue.Kind != KindEnumerated {
		return 0, 0, fmt.Errorf("failed to read error class: %v", err)
	}
	codeValue, err := decodeApplicationValue(r)
	if err != nil || codeValue.Kind != KindEnumerated {
		return 0, 0, fmt.Errorf("failed to read error code: %v", err)
	}
	return uint32(classValue.Unsigned), uint32(codeValue.Unsigned), nil
}

func parseReadPropertyAck(data []byte, object ObjectIdentifier, ref PropertyReference) (Value, error) {
	r := bytes.NewReader(data)

	ackObject, err := readContextObjectIdentifier(r, 0)
	if err != nil {
		return Value{}, fmt.Errorf("error reading object identifier: %w", err)
	}
	if ackObject != object {
		return Value{}, fmt.Errorf("ack for %s, requested %s", ackObject, object)
	}

	property, err := readContextUnsigned(r, 1)
	if err != nil {
		return Value{}, fmt.Errorf("error reading property identifier: %w", err)
	}
	ackRef := PropertyReference{Property: PropertyIdentifier(property)}

	next, err := peekTag(r)
	if err != nil {
		return Value{}, fmt.Errorf("error reading property value: %w", err)
	}
	if next.context && !next.opening && next.number == 2 {
		index, err := readContextUnsigned(r, 2)
		if err != nil {
			return Value{}, fmt.Errorf("error reading array index: %w", err)
		}
		i := uint32(index)
		ackRef.Index = &i
	}
	if !ackRef.equal(ref) {
		return Value{}, fmt.Errorf("ack for %s, requested %s", ackRef, ref)
	}

	if err := expectOpeningTag(r, 3); err != nil {
		return Value{}, err
	}
	values, err := decodeValues(r, 3)
	if err != nil {
		return Value{}, err
	}
	return nameEnumerations(object.Type, ref.Property, collapse(ref, values)), nil
}

func parseReadPropertyMultipleAck(data []byte) ([]ReadAccessResult, error) {
	r := bytes.NewReader(data)
	var results []ReadAccessResult

	for r.Len() > 0 {
		object, err := readContextObjectIdentifier(r, 0)
		if err != nil {
			return nil, fmt.Errorf("error reading object identifier: %w", err)
		}
		if err := expectOpeningTag(r, 1); err != nil {
			return nil, err
		}

		result := ReadAccessResult{Object: object}
		for {
			next, err := peekTag(r)
			if err != nil {
				return nil, fmt.Errorf("error reading result list: %w", err)
			}
			if next.closing && next.number == 1 {
				readTag(r)
				break
			}

			item, err := parsePropertyResult(r, object)
			if err != nil {
				return nil, err
			}
			result.Results = append(result.Results, item)
		}
		results = append(results, result)
	}
	return results, nil
}

func parsePropertyResult(r *bytes.Reader, object ObjectIdentifier) (PropertyResult, error) {
	property, err := readContextUnsigned(r, 2)
	if err != nil {
		return PropertyResult{}, fmt.Errorf("error reading property identifier: %w", err)
	}
	ref := PropertyReference{Property: PropertyIdentifier(property)}

	t, err := readTag(r)
	if err != nil {
		return PropertyResult{}, fmt.Errorf("error reading property result: %w", err)
	}
	if t.context && !t.opening && !t.closing && t.number == 3 {
		index, err := readUnsigned(r, t.length)
		if err != nil {
			return PropertyResult{}, fmt.Errorf("error reading array index: %w", err)
		}
		i := uint32(index)
		ref.Index = &i
		if t, err = readTag(r); err != nil {
			return PropertyResult{}, fmt.Errorf("error reading property result: %w", err)
		}
	}
	if !t.opening {
		return PropertyResult{}, fmt.Errorf("expected opening tag 4 or 5, got %+v", t)
	}

	switch t.number {
	case 4:
		values, err := decodeValues(r, 4)
		if err != nil {
			return PropertyResult{}, err
		}
		value := nameEnumerations(object.Type, ref.Property, collapse(ref, values))
		return PropertyResult{Property: ref, Value: value}, nil
	case 5:
		classValue, err := decodeApplicationValue(r)
		if err != nil {
			return PropertyResult{}, fmt.Errorf("error reading error class: %w", err)
		}
		codeValue, err := decodeApplicationValue(r)
		if err != nil {
			return PropertyResult{}, fmt.Errorf("error reading error code: %w", err)
		}
		if err := expectClosingTag(r, 5); err != nil {
			return PropertyResult{}, err
		}
		accessErr := &ErrorPDU{
			Service: SERVICE_CONFIRMED_READ_PROPERTY_MULTIPLE,
			Class:   uint32(classValue.Unsigned),
			Code:    uint32(codeValue.Unsigned),
		}
		return PropertyResult{Property: ref, Err: accessErr}, nil
	default:
		return PropertyResult{}, fmt.Errorf("unexpected opening tag %d in property result", t.number)
	}
}
