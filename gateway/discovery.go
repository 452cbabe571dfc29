package gateway

import (
	"context"
	"net"
	"time"
)

// WhoIs broadcasts a Who-Is for the range and returns every device that
// answered within the discovery window, in arrival order and without
// duplicates. Silence is an empty, successful result.
//
// A range scan reaches every device on the network; keep it to about once an
// hour in steady operation.
func (s *Service) WhoIs(ctx context.Context, req WhoIsRequest) ([]DeviceIdentification, error) {
	e := Event{Operation: OpWhoIs, Started: time.Now()}
	low, high, err := parseRange(req)
	if err != nil {
		return nil, s.finishDiscovery(e, nil, err)
	}
	return s.discover(ctx, e, low, high, nil)
}

// WhoIsDevice looks for a single device, unicasting to address when given.
func (s *Service) WhoIsDevice(ctx context.Context, instance int64, address string) ([]DeviceIdentification, error) {
	e := Event{Operation: OpWhoIs, Started: time.Now()}
	device, err := parseDeviceInstance(instance)
	if err != nil {
		return nil, s.finishDiscovery(e, nil, err)
	}
	e.Device = device
	dest, err := parseAddress(address)
	if err != nil {
		return nil, s.finishDiscovery(e, nil, err)
	}
	return s.discover(ctx, e, device, device, dest)
}

func (s *Service) discover(ctx context.Context, e Event, low, high uint32, dest *net.UDPAddr) ([]DeviceIdentification, error) {
	replies, stop := s.transport.ListenIAm(low, high)
	defer stop()

	if err := s.transport.SendWhoIs(&low, &high, dest); err != nil {
		return nil, s.finishDiscovery(e, nil, err)
	}

	window := time.NewTimer(s.options.DiscoveryWindow)
	defer window.Stop()

	seen := make(map[uint32]bool)
	devices := []DeviceIdentification{}
	for {
		select {
		case d := <-replies:
			if seen[d.DeviceID] {
				continue
			}
			seen[d.DeviceID] = true
			devices = append(devices, identification(d))
		case <-window.C:
			return devices, s.finishDiscovery(e, devices, nil)
		case <-ctx.Done():
			return devices, s.finishDiscovery(e, devices, nil)
		}
	}
}

func (s *Service) finishDiscovery(e Event, devices []DeviceIdentification, err error) error {
	e.Items = len(devices)
	if err != nil {
		return s.finish(e, Failed(err)).Failure()
	}
	s.finish(e, succeeded(MessageWhoIsOK, devices))
	return nil
}
