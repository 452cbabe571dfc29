package gateway

import (
	"context"
	"time"

	bacnet "github.com/maxzerker/bacnet-rpc"
)

// Read reads one property. An empty property identifier reads present-value.
func (s *Service) Read(ctx context.Context, req ReadRequest) Result {
	e := Event{Operation: OpRead, Started: time.Now(), Object: req.ObjectIdentifier, Property: req.PropertyIdentifier}
	if req.PropertyIdentifier == "" {
		req.PropertyIdentifier = bacnet.PROP_PRESENT_VALUE.String()
		e.Property = req.PropertyIdentifier
	}

	device, err := parseDeviceInstance(req.DeviceInstance)
	if err != nil {
		return s.finish(e, Failed(err))
	}
	e.Device = device
	object, err := parseObject(req.ObjectIdentifier)
	if err != nil {
		return s.finish(e, Failed(err))
	}
	ref, err := parseProperty(req.PropertyIdentifier)
	if err != nil {
		return s.finish(e, Failed(err))
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	value, err := s.transport.ReadProperty(ctx, device, object, ref)
	if err != nil {
		return s.finish(e, Failed(err))
	}

	e.Items = 1
	return s.finish(e, succeeded(MessageReadOK, ReadData{
		DeviceInstance:     device,
		ObjectIdentifier:   object.String(),
		PropertyIdentifier: ref.String(),
		ReadResult:         JSONValue(value),
	}))
}

// Write writes a value, or relinquishes the command at the given priority
// when the value is null. A missing value is rejected. Without a priority a
// value write leaves the slot to the device, which applies its lowest
// precedence.
func (s *Service) Write(ctx context.Context, req WriteRequest) Result {
	e := Event{Operation: OpWrite, Started: time.Now(), Object: req.ObjectIdentifier, Property: req.PropertyIdentifier}

	device, err := parseDeviceInstance(req.DeviceInstance)
	if err != nil {
		return s.finish(e, Failed(err))
	}
	e.Device = device
	object, err := parseObject(req.ObjectIdentifier)
	if err != nil {
		return s.finish(e, Failed(err))
	}
	ref, err := parseProperty(req.PropertyIdentifier)
	if err != nil {
		return s.finish(e, Failed(err))
	}
	if req.Value == nil {
		return s.finish(e, Failed(malformed(CauseMissingValue)))
	}
	relinquish := req.Relinquish()
	priority, err := parsePriority(req.Priority, relinquish)
	if err != nil {
		return s.finish(e, Failed(err))
	}

	value, written := bacnet.NullValue(), any(NullSentinel)
	if !relinquish {
		value, err = bacnet.EncodeValueFor(object.Type, ref.Property, req.Value)
		if err != nil {
			return s.finish(e, Failed(malformed(CauseInvalidValue)))
		}
		written = req.Value
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.transport.WriteProperty(ctx, device, object, ref, value, priority); err != nil {
		return s.finish(e, Failed(err))
	}

	e.Items = 1
	return s.finish(e, succeeded(MessageWriteOK, WriteData{
		DeviceInstance:     device,
		ObjectIdentifier:   object.String(),
		PropertyIdentifier: ref.String(),
		WrittenValue:       written,
		Priority:           req.Priority,
	}))
}
