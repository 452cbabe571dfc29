package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bacnet "github.com/maxzerker/bacnet-rpc"
	"github.com/maxzerker/bacnet-rpc/gateway"
	"github.com/maxzerker/bacnet-rpc/internal/config"
)

type stubGateway struct {
	reads     []gateway.ReadRequest
	writes    []gateway.WriteRequest
	batches   []gateway.ReadMultipleRequest
	whoIs     []gateway.WhoIsRequest
	addresses []string

	result  gateway.Result
	devices []gateway.DeviceIdentification
	err     error
	panic   bool
}

func (g *stubGateway) Read(_ context.Context, req gateway.ReadRequest) gateway.Result {
	if g.panic {
		panic("boom")
	}
	g.reads = append(g.reads, req)
	return g.result
}

func (g *stubGateway) Write(_ context.Context, req gateway.WriteRequest) gateway.Result {
	g.writes = append(g.writes, req)
	return g.result
}

func (g *stubGateway) ReadMultiple(_ context.Context, req gateway.ReadMultipleRequest) gateway.Result {
	g.batches = append(g.batches, req)
	return g.result
}

func (g *stubGateway) WhoIs(_ context.Context, req gateway.WhoIsRequest) ([]gateway.DeviceIdentification, error) {
	g.whoIs = append(g.whoIs, req)
	return g.devices, g.err
}

func (g *stubGateway) WhoIsDevice(_ context.Context, _ int64, address string) ([]gateway.DeviceIdentification, error) {
	g.addresses = append(g.addresses, address)
	return g.devices, g.err
}

// countingTransport stands in for the BACnet client behind a real
// gateway.Service and only counts what reaches it.
type countingTransport struct {
	calls int
}

func (c *countingTransport) ReadProperty(context.Context, uint32, bacnet.ObjectIdentifier, bacnet.PropertyReference) (bacnet.Value, error) {
	c.calls++
	return bacnet.NullValue(), nil
}

func (c *countingTransport) WriteProperty(context.Context, uint32, bacnet.ObjectIdentifier, bacnet.PropertyReference, bacnet.Value, uint8) error {
	c.calls++
	return nil
}

func (c *countingTransport) ReadPropertyMultiple(context.Context, uint32, []bacnet.ReadAccessSpec) ([]bacnet.ReadAccessResult, error) {
	c.calls++
	return nil, nil
}

func (c *countingTransport) ListenIAm(uint32, uint32) (<-chan bacnet.DeviceInfo, func()) {
	ch := make(chan bacnet.DeviceInfo)
	return ch, func() {}
}

func (c *countingTransport) SendWhoIs(*uint32, *uint32, *net.UDPAddr) error {
	c.calls++
	return nil
}

func (c *countingTransport) MaxAPDU(uint32) int { return 1476 }

func newTestServer(gw Gateway, mutate ...func(*Options)) http.Handler {
	options := Options{Username: "admin", Password: "secret", Version: "1.2.3"}
	for _, m := range mutate {
		m(&options)
	}
	return New(gw, options).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth("admin", "secret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthIsPublic(t *testing.T) {
	h := newTestServer(&stubGateway{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := decodeEnvelope(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestAuthentication(t *testing.T) {
	gw := &stubGateway{}
	h := newTestServer(gw)

	tests := []struct {
		name     string
		user     string
		password string
		set      bool
	}{
		{name: "missing", set: false},
		{name: "wrong password", user: "admin", password: "nope", set: true},
		{name: "wrong user", user: "root", password: "secret", set: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/bacnet/201201/analog-input,2", nil)
			if tt.set {
				req.SetBasicAuth(tt.user, tt.password)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
			body := decodeEnvelope(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "security, authentication-failed", body["message"])
			assert.Nil(t, body["data"])
		})
	}
	assert.Empty(t, gw.reads)
}

func TestReadRoutes(t *testing.T) {
	tests := []struct {
		target   string
		object   string
		property string
	}{
		{target: "/bacnet/201201/analog-input,2", object: "analog-input,2", property: ""},
		{target: "/bacnet/201201/analog-input,2/", object: "analog-input,2", property: ""},
		{target: "/bacnet/201201/analog-input,2?property_identifier=units", object: "analog-input,2", property: "units"},
		{target: "/bacnet/201201/analog-value,1/priority-array", object: "analog-value,1", property: "priority-array"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			gw := &stubGateway{result: gateway.Result{Success: true, Message: gateway.MessageReadOK}}
			w := do(t, newTestServer(gw), http.MethodGet, tt.target, "")

			assert.Equal(t, http.StatusOK, w.Code)
			require.Len(t, gw.reads, 1)
			assert.Equal(t, int64(201201), gw.reads[0].DeviceInstance)
			assert.Equal(t, tt.object, gw.reads[0].ObjectIdentifier)
			assert.Equal(t, tt.property, gw.reads[0].PropertyIdentifier)
		})
	}
}

func TestReadBadDeviceInstance(t *testing.T) {
	gw := &stubGateway{}
	w := do(t, newTestServer(gw), http.MethodGet, "/bacnet/abc/analog-input,2", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request, invalid-device-instance", decodeEnvelope(t, w)["message"])
	assert.Empty(t, gw.reads)
}

func TestResultStatusCodes(t *testing.T) {
	tests := []struct {
		name    string
		message string
		status  int
	}{
		{name: "malformed request", message: "request, priority-out-of-range", status: http.StatusBadRequest},
		{name: "device error", message: "property, unknown-property", status: http.StatusOK},
		{name: "timeout", message: "device, no-response", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, cause, _ := strings.Cut(tt.message, ", ")
			gw := &stubGateway{result: gateway.Failed(&gateway.Failure{Category: category, Cause: cause})}

			w := do(t, newTestServer(gw), http.MethodPost, "/bacnet/write",
				`{"device_instance": 201201, "object_identifier": "analog-value,1", "property_identifier": "present-value", "value": 5, "priority": 17}`)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decodeEnvelope(t, w)["message"])
		})
	}
}

func TestWriteDecodesBody(t *testing.T) {
	gw := &stubGateway{result: gateway.Result{Success: true, Message: gateway.MessageWriteOK}}
	w := do(t, newTestServer(gw), http.MethodPost, "/bacnet/write",
		`{"device_instance": 201201, "object_identifier": "analog-value,1", "property_identifier": "present-value", "value": 21.5, "priority": 8}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, gw.writes, 1)
	req := gw.writes[0]
	assert.Equal(t, int64(201201), req.DeviceInstance)
	assert.Equal(t, json.Number("21.5"), req.Value)
	require.NotNil(t, req.Priority)
	assert.Equal(t, 8, *req.Priority)
}

func TestWriteExplicitNullRelinquishes(t *testing.T) {
	gw := &stubGateway{result: gateway.Result{Success: true, Message: gateway.MessageWriteOK}}
	w := do(t, newTestServer(gw), http.MethodPost, "/bacnet/write",
		`{"device_instance": 201201, "object_identifier": "analog-value,1", "property_identifier": "present-value", "value": null, "priority": 8}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, gw.writes, 1)
	assert.Equal(t, gateway.NullSentinel, gw.writes[0].Value)
	assert.True(t, gw.writes[0].Relinquish())
}

func TestWriteMissingValueNeverReachesDevice(t *testing.T) {
	transport := &countingTransport{}
	service := gateway.NewService(transport, gateway.Options{})
	w := do(t, newTestServer(service), http.MethodPost, "/bacnet/write",
		`{"device_instance": 201201, "object_identifier": "analog-value,301", "property_identifier": "present-value", "priority": 8}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "request, missing-value", body["message"])
	assert.Zero(t, transport.calls)
}

func TestInvalidJSON(t *testing.T) {
	for _, target := range []string{"/bacnet/write", "/bacnet/read_multiple", "/bacnet/whois"} {
		t.Run(target, func(t *testing.T) {
			gw := &stubGateway{}
			w := do(t, newTestServer(gw), http.MethodPost, target, `{"device_instance": `)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "request, invalid-json", decodeEnvelope(t, w)["message"])
			assert.Empty(t, gw.writes)
			assert.Empty(t, gw.batches)
			assert.Empty(t, gw.whoIs)
		})
	}
}

func TestBodyTooLarge(t *testing.T) {
	body := `{"device_instance": 1, "requests": [` + strings.Repeat(`{"object_identifier": "analog-input,1", "property_identifier": "present-value"},`, 20000) + `]}`
	w := do(t, newTestServer(&stubGateway{}), http.MethodPost, "/bacnet/read_multiple", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request, body-too-large", decodeEnvelope(t, w)["message"])
}

func TestReadMultiple(t *testing.T) {
	gw := &stubGateway{result: gateway.Result{Success: true, Message: gateway.MessageReadMultipleOK}}
	w := do(t, newTestServer(gw), http.MethodPost, "/bacnet/read_multiple",
		`{"device_instance": 201201, "requests": [{"object_identifier": "analog-input,2", "property_identifier": "present-value"}, {"object_identifier": "analog-value,1", "property_identifier": "units"}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, gw.batches, 1)
	assert.Len(t, gw.batches[0].Requests, 2)
	assert.Equal(t, "units", gw.batches[0].Requests[1].PropertyIdentifier)
}

func TestWhoIsReturnsArray(t *testing.T) {
	gw := &stubGateway{devices: []gateway.DeviceIdentification{{
		DeviceIdentifier:      "device,201201",
		MaxAPDULengthAccepted: 1476,
		SegmentationSupported: "segmentedBoth",
		VendorID:              15,
	}}}
	w := do(t, newTestServer(gw), http.MethodPost, "/bacnet/whois", `{"start_instance": 201200, "end_instance": 201300}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var devices []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &devices))
	require.Len(t, devices, 1)
	assert.Equal(t, "device,201201", devices[0]["i-am-device-identifier"])
	assert.EqualValues(t, 1476, devices[0]["max-apdu-length-accepted"])

	require.Len(t, gw.whoIs, 1)
	require.NotNil(t, gw.whoIs[0].StartInstance)
	assert.Equal(t, int64(201200), *gw.whoIs[0].StartInstance)
}

func TestWhoIsSilence(t *testing.T) {
	w := do(t, newTestServer(&stubGateway{}), http.MethodPost, "/bacnet/whois", `{}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestWhoIsEmptyBody(t *testing.T) {
	gw := &stubGateway{}
	w := do(t, newTestServer(gw), http.MethodPost, "/bacnet/whois", "")

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, gw.whoIs, 1)
	assert.Nil(t, gw.whoIs[0].StartInstance)
	assert.Nil(t, gw.whoIs[0].EndInstance)
}

func TestWhoIsFailure(t *testing.T) {
	gw := &stubGateway{err: &gateway.Failure{Category: gateway.CategoryResources, Cause: "no-space-for-object"}}
	w := do(t, newTestServer(gw), http.MethodPost, "/bacnet/whois", `{"start_instance": 5, "end_instance": 10}`)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "resources, no-space-for-object", body["message"])
}

func TestWhoIsInvalidRange(t *testing.T) {
	gw := &stubGateway{}
	w := do(t, newTestServer(gw), http.MethodPost, "/bacnet/whois", `{"start_instance": 10, "end_instance": 5}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request, invalid-range", decodeEnvelope(t, w)["message"])
	assert.Empty(t, gw.whoIs)
}

func TestWhoIsChunkedEmptyBody(t *testing.T) {
	gw := &stubGateway{}
	req := httptest.NewRequest(http.MethodPost, "/bacnet/whois", strings.NewReader(""))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.SetBasicAuth("admin", "secret")
	w := httptest.NewRecorder()
	newTestServer(gw).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, gw.whoIs, 1)
	assert.Nil(t, gw.whoIs[0].StartInstance)
	assert.Nil(t, gw.whoIs[0].EndInstance)
}

func TestWhoIsInvalidRangeKeepsDiscoveryToken(t *testing.T) {
	gw := &stubGateway{}
	h := newTestServer(gw, func(o *Options) { o.DiscoveryMinInterval = time.Hour })

	bad := do(t, h, http.MethodPost, "/bacnet/whois", `{"start_instance": 10}`)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "request, invalid-range", decodeEnvelope(t, bad)["message"])

	good := do(t, h, http.MethodPost, "/bacnet/whois", `{"start_instance": 5, "end_instance": 10}`)
	assert.Equal(t, http.StatusOK, good.Code)
	assert.Len(t, gw.whoIs, 1)
}

func TestWhoIsThrottled(t *testing.T) {
	gw := &stubGateway{}
	h := newTestServer(gw, func(o *Options) { o.DiscoveryMinInterval = time.Hour })

	first := do(t, h, http.MethodPost, "/bacnet/whois", `{}`)
	second := do(t, h, http.MethodPost, "/bacnet/whois", `{}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "services, discovery-throttled", decodeEnvelope(t, second)["message"])
	assert.Len(t, gw.whoIs, 1)

	// single device lookups are not throttled
	third := do(t, h, http.MethodGet, "/bacnet/whois/201201", "")
	assert.Equal(t, http.StatusOK, third.Code)
}

func TestWhoIsDeviceAddress(t *testing.T) {
	gw := &stubGateway{}
	w := do(t, newTestServer(gw), http.MethodGet, "/bacnet/whois/201201?address=192.168.1.20:47809", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"192.168.1.20:47809"}, gw.addresses)
}

func TestRequestID(t *testing.T) {
	h := newTestServer(&stubGateway{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}

func TestPanicRecovery(t *testing.T) {
	w := do(t, newTestServer(&stubGateway{panic: true}), http.MethodGet, "/bacnet/1/analog-input,1", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "services, internal-error", decodeEnvelope(t, w)["message"])
}

func TestConfigIsRedacted(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Password = "hunter2"
	h := newTestServer(&stubGateway{}, func(o *Options) { o.Config = cfg })

	w := do(t, h, http.MethodGet, "/bacnet/config", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
	body := decodeEnvelope(t, w)
	bacnetSection, ok := body["bacnet"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "3s", bacnetSection["apdu_timeout"])
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("bacnet_rpc_up 1\n"))
	})

	without := httptest.NewRecorder()
	newTestServer(&stubGateway{}).ServeHTTP(without, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, without.Code)

	with := httptest.NewRecorder()
	newTestServer(&stubGateway{}, func(o *Options) { o.Metrics = metrics }).
		ServeHTTP(with, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, with.Code)
	assert.Contains(t, with.Body.String(), "bacnet_rpc_up")
}
