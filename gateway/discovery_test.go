package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bacnet "github.com/maxzerker/bacnet-rpc"
)

func int64Ptr(n int64) *int64 { return &n }

func TestWhoIsDeduplicatesInArrivalOrder(t *testing.T) {
	transport := &fakeTransport{iAms: []bacnet.DeviceInfo{
		{DeviceID: 201201, MaxAPDU: 1476, Segmentation: bacnet.SEGMENTATION_BOTH, VendorID: 15},
		{DeviceID: 7, MaxAPDU: 480, Segmentation: bacnet.SEGMENTATION_NONE, VendorID: 260},
		{DeviceID: 201201, MaxAPDU: 1024, Segmentation: bacnet.SEGMENTATION_NONE, VendorID: 15},
		{DeviceID: 400000, MaxAPDU: 480, Segmentation: bacnet.SEGMENTATION_NONE, VendorID: 1},
	}}
	svc, events := newTestService(t, transport)

	devices, err := svc.WhoIs(context.Background(), WhoIsRequest{StartInstance: int64Ptr(1), EndInstance: int64Ptr(300000)})
	require.NoError(t, err)
	require.Len(t, devices, 2)

	raw, err := json.Marshal(devices)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"i-am-device-identifier": "device,201201", "max-apdu-length-accepted": 1476, "segmentation-supported": "segmented-both", "vendor-id": 15},
		{"i-am-device-identifier": "device,7", "max-apdu-length-accepted": 480, "segmentation-supported": "no-segmentation", "vendor-id": 260}
	]`, string(raw))

	require.Len(t, transport.whoIs, 1)
	assert.Equal(t, whoIsCall{low: 1, high: 300000}, transport.whoIs[0])
	assert.Equal(t, 1, transport.stopped)

	require.Len(t, *events, 1)
	assert.Equal(t, OpWhoIs, (*events)[0].Operation)
	assert.Equal(t, 2, (*events)[0].Items)
}

func TestWhoIsSilenceIsEmpty(t *testing.T) {
	transport := &fakeTransport{}
	svc, _ := newTestService(t, transport)

	devices, err := svc.WhoIs(context.Background(), WhoIsRequest{StartInstance: int64Ptr(0), EndInstance: int64Ptr(int64(bacnet.MaxInstance))})
	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)

	raw, err := json.Marshal(devices)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestWhoIsWaitsForWindow(t *testing.T) {
	transport := &fakeTransport{}
	svc := NewService(transport, Options{DiscoveryWindow: 80 * time.Millisecond})

	start := time.Now()
	_, err := svc.WhoIs(context.Background(), WhoIsRequest{StartInstance: int64Ptr(1), EndInstance: int64Ptr(2)})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWhoIsStopsOnCancel(t *testing.T) {
	transport := &fakeTransport{iAms: []bacnet.DeviceInfo{{DeviceID: 3}}}
	svc := NewService(transport, Options{DiscoveryWindow: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	devices, err := svc.WhoIs(ctx, WhoIsRequest{StartInstance: int64Ptr(1), EndInstance: int64Ptr(5)})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "device,3", devices[0].DeviceIdentifier)
}

func TestWhoIsWithoutBoundsAsksEveryInstance(t *testing.T) {
	transport := &fakeTransport{}
	svc, _ := newTestService(t, transport)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	devices, err := svc.WhoIs(ctx, WhoIsRequest{})
	require.NoError(t, err)
	assert.Empty(t, devices)

	require.Len(t, transport.whoIs, 1)
	assert.Equal(t, uint32(0), transport.whoIs[0].low)
	assert.Equal(t, bacnet.MaxInstance, transport.whoIs[0].high)
}

func TestWhoIsInvalidRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end *int64
	}{
		{"end before start", int64Ptr(10), int64Ptr(9)},
		{"negative start", int64Ptr(-1), int64Ptr(9)},
		{"end too large", int64Ptr(0), int64Ptr(4194304)},
		{"missing end", int64Ptr(0), nil},
		{"missing start", nil, int64Ptr(5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{}
			svc, _ := newTestService(t, transport)

			req := WhoIsRequest{StartInstance: tt.start, EndInstance: tt.end}
			assert.Equal(t, "request, invalid-range", req.Validate().Error())

			devices, err := svc.WhoIs(context.Background(), req)
			assert.Nil(t, devices)
			require.Error(t, err)
			assert.Equal(t, "request, invalid-range", err.Error())
			assert.True(t, Classify(err).Malformed())
			assert.Zero(t, transport.calls())
		})
	}
}

func TestWhoIsRequestValidate(t *testing.T) {
	assert.NoError(t, WhoIsRequest{}.Validate())
	assert.NoError(t, WhoIsRequest{StartInstance: int64Ptr(0), EndInstance: int64Ptr(int64(bacnet.MaxInstance))}.Validate())
	assert.NoError(t, WhoIsRequest{StartInstance: int64Ptr(5), EndInstance: int64Ptr(5)}.Validate())
}

func TestWhoIsDevice(t *testing.T) {
	transport := &fakeTransport{iAms: []bacnet.DeviceInfo{
		{DeviceID: 10, MaxAPDU: 480, Segmentation: bacnet.SEGMENTATION_NONE, VendorID: 5},
		{DeviceID: 11, MaxAPDU: 480, Segmentation: bacnet.SEGMENTATION_NONE, VendorID: 5},
	}}
	svc, _ := newTestService(t, transport)

	devices, err := svc.WhoIsDevice(context.Background(), 10, "192.168.1.20")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "device,10", devices[0].DeviceIdentifier)

	require.Len(t, transport.whoIs, 1)
	call := transport.whoIs[0]
	assert.Equal(t, uint32(10), call.low)
	assert.Equal(t, uint32(10), call.high)
	require.NotNil(t, call.dest)
	assert.Equal(t, "192.168.1.20:47808", call.dest.String())
}

func TestWhoIsDeviceRejects(t *testing.T) {
	transport := &fakeTransport{}
	svc, _ := newTestService(t, transport)

	_, err := svc.WhoIsDevice(context.Background(), 4194304, "")
	assert.Equal(t, "request, invalid-device-instance", err.Error())

	_, err = svc.WhoIsDevice(context.Background(), 1, "not an address")
	assert.Equal(t, "request, invalid-address", err.Error())
	assert.Zero(t, transport.calls())
}

func TestWhoIsSendFailure(t *testing.T) {
	transport := &fakeTransport{sendErr: bacnet.ErrClientClosed}
	svc, _ := newTestService(t, transport)

	_, err := svc.WhoIs(context.Background(), WhoIsRequest{StartInstance: int64Ptr(1), EndInstance: int64Ptr(2)})
	require.Error(t, err)
	assert.Equal(t, "device, communication-failure", err.Error())
}

func TestParseAddress(t *testing.T) {
	addr, err := parseAddress("10.0.0.5:47809")
	require.NoError(t, err)
	assert.Equal(t, 47809, addr.Port)

	addr, err = parseAddress("")
	require.NoError(t, err)
	assert.Nil(t, addr)

	for _, bad := range []string{"10.0.0.5:0", "10.0.0.5:x", "host.example:47808", "10.0.0"} {
		_, err := parseAddress(bad)
		assert.Error(t, err, bad)
	}
}
