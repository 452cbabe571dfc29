package bacnet

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
)

// ReadAccessSpec asks for several properties of one object in a
// ReadPropertyMultiple request.
type ReadAccessSpec struct {
	Object     ObjectIdentifier
	Properties []PropertyReference
}

// ReadAccessResult holds the per-property outcomes for one object.
type ReadAccessResult struct {
	Object  ObjectIdentifier
	Results []PropertyResult
}

// PropertyResult carries either a value or the access error the device reported.
type PropertyResult struct {
	Property PropertyReference
	Value    Value
	Err      *ErrorPDU
}

func encodeFrame(function byte, dest Address, expectingReply bool, apdu []byte) []byte {
	var npduBuffer bytes.Buffer

	// NPDU
	npdu := NPDU{
		Version: 1,
		Control: NPDU_CONTROL_NORMAL_MESSAGE,
	}
	if expectingReply {
		npdu.Control |= NPDU_CONTROL_EXPECTING_REPLY
	}
	if dest.Net != 0 {
		npdu.Control |= NPDU_CONTROL_DEST_SPECIFIER
	}
	binary.Write(&npduBuffer, binary.BigEndian, &npdu)
	if dest.Net != 0 {
		binary.Write(&npduBuffer, binary.BigEndian, dest.Net)
		npduBuffer.WriteByte(byte(len(dest.Mac)))
		npduBuffer.Write(dest.Mac)
		npduBuffer.WriteByte(255) // hop count
	}

	var buffer bytes.Buffer
	// BVLC Header
	bvlc := BVLCHeader{
		Type:     BVLC_TYPE_BACNET_IP,
		Function: function,
		Length:   uint16(4 + npduBuffer.Len() + len(apdu)),
	}
	binary.Write(&buffer, binary.BigEndian, &bvlc)
	buffer.Write(npduBuffer.Bytes())
	buffer.Write(apdu)
	return buffer.Bytes()
}

func encodeConfirmedRequest(invokeID, service byte, payload []byte) []byte {
	apdu := make([]byte, 0, 4+len(payload))
	// No segmented replies accepted, up to 1476 octets.
	apdu = append(apdu, APDU_CONFIRMED_REQUEST, 0x05, invokeID, service)
	return append(apdu, payload...)
}

func encodeWhoIs(low, high *uint32) []byte {
	var apduBuffer bytes.Buffer
	apduBuffer.WriteByte(APDU_UNCONFIRMED_REQUEST)
	apduBuffer.WriteByte(SERVICE_UNCONFIRMED_WHO_IS)
	if low != nil && high != nil {
		writeContextUnsigned(&apduBuffer, 0, uint64(*low))
		writeContextUnsigned(&apduBuffer, 1, uint64(*high))
	}
	return apduBuffer.Bytes()
}

func encodeReadProperty(object ObjectIdentifier, ref PropertyReference) []byte {
	var buf bytes.Buffer
	writeContextObjectIdentifier(&buf, 0, object)
	writePropertyReference(&buf, 1, ref)
	return buf.Bytes()
}

func encodeWriteProperty(object ObjectIdentifier, ref PropertyReference, value Value, priority uint8) ([]byte, error) {
	var buf bytes.Buffer
	writeContextObjectIdentifier(&buf, 0, object)
	writePropertyReference(&buf, 1, ref)
	writeOpeningTag(&buf, 3)
	if err := encodeApplicationValue(&buf, value); err != nil {
		return nil, err
	}
	writeClosingTag(&buf, 3)
	if priority != 0 {
		writeContextUnsigned(&buf, 4, uint64(priority))
	}
	return buf.Bytes(), nil
}

func encodeReadPropertyMultiple(specs []ReadAccessSpec) []byte {
	var buf bytes.Buffer
	for _, spec := range specs {
		writeContextObjectIdentifier(&buf, 0, spec.Object)
		writeOpeningTag(&buf, 1)
		for _, ref := range spec.Properties {
			writePropertyReference(&buf, 0, ref)
		}
		writeClosingTag(&buf, 1)
	}
	return buf.Bytes()
}

// ReadPropertyMultipleSize is the APDU size of a ReadPropertyMultiple request
// for specs.
func ReadPropertyMultipleSize(specs []ReadAccessSpec) int {
	return 4 + len(encodeReadPropertyMultiple(specs))
}

// ReadProperty reads one property of one object.
func (c *Client) ReadProperty(ctx context.Context, device uint32, object ObjectIdentifier, ref PropertyReference) (Value, error) {
	addr, err := c.Resolve(ctx, device)
	if err != nil {
		return Value{}, err
	}

	reply, err := c.confirmedRequest(ctx, addr, SERVICE_CONFIRMED_READ_PROPERTY, encodeReadProperty(object, ref))
	if err != nil {
		return Value{}, err
	}
	if reply.pduType != APDU_COMPLEX_ACK {
		return Value{}, fmt.Errorf("%w: ReadProperty answered with APDU type 0x%02x", ErrMalformedReply, reply.pduType)
	}

	value, err := parseReadPropertyAck(reply.data, object, ref)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}
	c.log.Debug("read property",
		slog.Uint64("device", uint64(device)),
		slog.String("object", object.String()),
		slog.String("property", ref.String()))
	return value, nil
}

// WriteProperty writes value to one property. A zero priority is left out of
// the request.
func (c *Client) WriteProperty(ctx context.Context, device uint32, object ObjectIdentifier, ref PropertyReference, value Value, priority uint8) error {
	payload, err := encodeWriteProperty(object, ref, value, priority)
	if err != nil {
		return err
	}

	addr, err := c.Resolve(ctx, device)
	if err != nil {
		return err
	}

	reply, err := c.confirmedRequest(ctx, addr, SERVICE_CONFIRMED_WRITE_PROPERTY, payload)
	if err != nil {
		return err
	}
	if reply.pduType != APDU_SIMPLE_ACK {
		return fmt.Errorf("%w: WriteProperty answered with APDU type 0x%02x", ErrMalformedReply, reply.pduType)
	}
	c.log.Debug("wrote property",
		slog.Uint64("device", uint64(device)),
		slog.String("object", object.String()),
		slog.String("property", ref.String()),
		slog.Int("priority", int(priority)))
	return nil
}

// ReadPropertyMultiple sends one ReadPropertyMultiple request. Results come
// back in the order the device encoded them.
func (c *Client) ReadPropertyMultiple(ctx context.Context, device uint32, specs []ReadAccessSpec) ([]ReadAccessResult, error) {
	addr, err := c.Resolve(ctx, device)
	if err != nil {
		return nil, err
	}

	reply, err := c.confirmedRequest(ctx, addr, SERVICE_CONFIRMED_READ_PROPERTY_MULTIPLE, encodeReadPropertyMultiple(specs))
	if err != nil {
		return nil, err
	}
	if reply.pduType != APDU_COMPLEX_ACK {
		return nil, fmt.Errorf("%w: ReadPropertyMultiple answered with APDU type 0x%02x", ErrMalformedReply, reply.pduType)
	}

	results, err := parseReadPropertyMultipleAck(reply.data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}
	return results, nil
}
