package gateway

import (
	"context"
	"net"
	"sync"

	bacnet "github.com/maxzerker/bacnet-rpc"
)

type writeCall struct {
	device   uint32
	object   bacnet.ObjectIdentifier
	ref      bacnet.PropertyReference
	value    bacnet.Value
	priority uint8
}

type whoIsCall struct {
	low, high uint32
	dest      *net.UDPAddr
}

// fakeTransport records every primitive and answers from canned functions.
type fakeTransport struct {
	mu sync.Mutex

	read     func(device uint32, object bacnet.ObjectIdentifier, ref bacnet.PropertyReference) (bacnet.Value, error)
	writeErr error
	rpm      func(specs []bacnet.ReadAccessSpec) ([]bacnet.ReadAccessResult, error)
	maxAPDU  int
	iAms     []bacnet.DeviceInfo
	sendErr  error

	reads     int
	writes    []writeCall
	rpmSpecs  [][]bacnet.ReadAccessSpec
	whoIs     []whoIsCall
	listeners []chan bacnet.DeviceInfo
	stopped   int
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads + len(f.writes) + len(f.rpmSpecs) + len(f.whoIs)
}

func (f *fakeTransport) ReadProperty(_ context.Context, device uint32, object bacnet.ObjectIdentifier, ref bacnet.PropertyReference) (bacnet.Value, error) {
	f.mu.Lock()
	f.reads++
	f.mu.Unlock()
	return f.read(device, object, ref)
}

func (f *fakeTransport) WriteProperty(_ context.Context, device uint32, object bacnet.ObjectIdentifier, ref bacnet.PropertyReference, value bacnet.Value, priority uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, writeCall{device: device, object: object, ref: ref, value: value, priority: priority})
	return f.writeErr
}

func (f *fakeTransport) ReadPropertyMultiple(_ context.Context, _ uint32, specs []bacnet.ReadAccessSpec) ([]bacnet.ReadAccessResult, error) {
	f.mu.Lock()
	f.rpmSpecs = append(f.rpmSpecs, specs)
	f.mu.Unlock()
	return f.rpm(specs)
}

func (f *fakeTransport) ListenIAm(low, high uint32) (<-chan bacnet.DeviceInfo, func()) {
	ch := make(chan bacnet.DeviceInfo, 16)
	f.mu.Lock()
	f.listeners = append(f.listeners, ch)
	f.mu.Unlock()
	return ch, func() {
		f.mu.Lock()
		f.stopped++
		f.mu.Unlock()
	}
}

func (f *fakeTransport) SendWhoIs(low, high *uint32, dest *net.UDPAddr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.whoIs = append(f.whoIs, whoIsCall{low: *low, high: *high, dest: dest})
	if f.sendErr != nil {
		return f.sendErr
	}
	for _, d := range f.iAms {
		if d.DeviceID < *low || d.DeviceID > *high {
			continue
		}
		for _, ch := range f.listeners {
			ch <- d
		}
	}
	return nil
}

func (f *fakeTransport) MaxAPDU(uint32) int {
	if f.maxAPDU == 0 {
		return bacnet.MinUnsegmentedAPDU
	}
	return f.maxAPDU
}
