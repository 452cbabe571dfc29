package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bacnet "github.com/maxzerker/bacnet-rpc"
)

// echoDevice answers every requested property with a value, except unknown
// vendor properties which get an access error.
func echoDevice(specs []bacnet.ReadAccessSpec) ([]bacnet.ReadAccessResult, error) {
	results := make([]bacnet.ReadAccessResult, len(specs))
	for i, spec := range specs {
		results[i].Object = spec.Object
		for _, ref := range spec.Properties {
			pr := bacnet.PropertyResult{Property: ref}
			switch ref.Property {
			case bacnet.PROP_PRESENT_VALUE:
				pr.Value = bacnet.RealValue(21.5)
			case bacnet.PROP_OUT_OF_SERVICE:
				pr.Value = bacnet.BooleanValue(false)
			case bacnet.PROP_OBJECT_NAME:
				pr.Value = bacnet.StringValue(fmt.Sprintf("point %d", spec.Object.Instance))
			default:
				pr.Err = &bacnet.ErrorPDU{Service: bacnet.SERVICE_CONFIRMED_READ_PROPERTY_MULTIPLE, Class: 2, Code: 32}
			}
			results[i].Results = append(results[i].Results, pr)
		}
	}
	return results, nil
}

func TestReadMultipleIsolatesItemErrors(t *testing.T) {
	transport := &fakeTransport{rpm: echoDevice}
	svc, events := newTestService(t, transport)

	result := svc.ReadMultiple(context.Background(), ReadMultipleRequest{
		DeviceInstance: 201201,
		Requests: []BatchItem{
			{ObjectIdentifier: "analog-input,1", PropertyIdentifier: "present-value"},
			{ObjectIdentifier: "analog-input,1", PropertyIdentifier: "9999"},
			{ObjectIdentifier: "analog-value,3", PropertyIdentifier: "out-of-service"},
			{ObjectIdentifier: "analog-input,1", PropertyIdentifier: "object-name"},
		},
	})
	require.True(t, result.Success, result.Message)
	assert.Equal(t, MessageReadMultipleOK, result.Message)

	raw, err := json.Marshal(result.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"device_instance": 201201,
		"requests": [
			{"object_identifier": "analog-input,1", "property_identifier": "present-value", "value": "21.5"},
			{"object_identifier": "analog-input,1", "property_identifier": "9999", "error": "property, unknown-property"},
			{"object_identifier": "analog-value,3", "property_identifier": "out-of-service", "value": "False"},
			{"object_identifier": "analog-input,1", "property_identifier": "object-name", "value": "point 1"}
		]
	}`, string(raw))

	// consecutive items on one object share a spec; the repeat after another
	// object starts a new one
	require.Len(t, transport.rpmSpecs, 1)
	specs := transport.rpmSpecs[0]
	require.Len(t, specs, 3)
	assert.Len(t, specs[0].Properties, 2)
	assert.Len(t, specs[1].Properties, 1)
	assert.Len(t, specs[2].Properties, 1)

	require.Len(t, *events, 1)
	assert.Equal(t, 4, (*events)[0].Items)
}

func TestReadMultipleEntriesCarryValueOrError(t *testing.T) {
	transport := &fakeTransport{rpm: echoDevice}
	svc, _ := newTestService(t, transport)

	items := []BatchItem{
		{ObjectIdentifier: "analog-input,1", PropertyIdentifier: "units"},
		{ObjectIdentifier: "analog-input,2", PropertyIdentifier: "present-value"},
		{ObjectIdentifier: "analog-input,3", PropertyIdentifier: "description"},
	}
	result := svc.ReadMultiple(context.Background(), ReadMultipleRequest{DeviceInstance: 1, Requests: items})
	require.True(t, result.Success)

	entries := result.Data.(ReadMultipleData).Requests
	require.Len(t, entries, len(items))
	for i, entry := range entries {
		assert.Equal(t, items[i].ObjectIdentifier, entry.ObjectIdentifier)
		assert.Equal(t, items[i].PropertyIdentifier, entry.PropertyIdentifier)
		assert.True(t, (entry.Value == nil) != (entry.Error == nil), "entry %d", i)
	}
}

func TestReadMultipleReorderedReply(t *testing.T) {
	transport := &fakeTransport{
		rpm: func(specs []bacnet.ReadAccessSpec) ([]bacnet.ReadAccessResult, error) {
			results, _ := echoDevice(specs)
			results[0], results[1] = results[1], results[0]
			return results, nil
		},
	}
	svc, _ := newTestService(t, transport)

	result := svc.ReadMultiple(context.Background(), ReadMultipleRequest{
		DeviceInstance: 1,
		Requests: []BatchItem{
			{ObjectIdentifier: "analog-input,1", PropertyIdentifier: "object-name"},
			{ObjectIdentifier: "analog-input,2", PropertyIdentifier: "object-name"},
		},
	})
	require.True(t, result.Success)
	entries := result.Data.(ReadMultipleData).Requests
	assert.Equal(t, "point 1", *entries[0].Value)
	assert.Equal(t, "point 2", *entries[1].Value)
}

func TestReadMultipleMissingResult(t *testing.T) {
	transport := &fakeTransport{
		rpm: func(specs []bacnet.ReadAccessSpec) ([]bacnet.ReadAccessResult, error) {
			results, _ := echoDevice(specs)
			return results[:1], nil
		},
	}
	svc, _ := newTestService(t, transport)

	result := svc.ReadMultiple(context.Background(), ReadMultipleRequest{
		DeviceInstance: 1,
		Requests: []BatchItem{
			{ObjectIdentifier: "analog-input,1", PropertyIdentifier: "present-value"},
			{ObjectIdentifier: "analog-input,2", PropertyIdentifier: "present-value"},
		},
	})
	require.True(t, result.Success)
	entries := result.Data.(ReadMultipleData).Requests
	require.Len(t, entries, 2)
	assert.NotNil(t, entries[0].Value)
	require.NotNil(t, entries[1].Error)
	assert.Equal(t, "device, missing-result", *entries[1].Error)
}

func TestReadMultipleWholeFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unsupported service", &bacnet.RejectError{Reason: 9}, "services, unrecognized-service"},
		{"timeout", bacnet.ErrTimeout, "device, no-response"},
		{"reply too big", &bacnet.AbortError{Reason: bacnet.ABORT_SEGMENTATION_NOT_SUPPORTED}, "services, segmentation-not-supported"},
		{"out of resources", &bacnet.AbortError{Reason: bacnet.ABORT_OUT_OF_RESOURCES}, "resources, out-of-resources"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{
				rpm: func([]bacnet.ReadAccessSpec) ([]bacnet.ReadAccessResult, error) { return nil, tt.err },
			}
			svc, _ := newTestService(t, transport)

			result := svc.ReadMultiple(context.Background(), ReadMultipleRequest{
				DeviceInstance: 1,
				Requests:       []BatchItem{{ObjectIdentifier: "analog-input,1", PropertyIdentifier: "present-value"}},
			})
			assert.False(t, result.Success)
			assert.Equal(t, tt.want, result.Message)
		})
	}
}

func TestReadMultipleMalformed(t *testing.T) {
	many := make([]BatchItem, 200)
	for i := range many {
		many[i] = BatchItem{ObjectIdentifier: fmt.Sprintf("analog-input,%d", i), PropertyIdentifier: "present-value"}
	}

	tests := []struct {
		name string
		req  ReadMultipleRequest
		want string
	}{
		{"empty", ReadMultipleRequest{DeviceInstance: 1}, "request, empty-batch"},
		{"bad device", ReadMultipleRequest{DeviceInstance: -5, Requests: many[:1]}, "request, invalid-device-instance"},
		{"bad object", ReadMultipleRequest{DeviceInstance: 1, Requests: []BatchItem{
			{ObjectIdentifier: "analog-input,1", PropertyIdentifier: "present-value"},
			{ObjectIdentifier: "analog-input;2", PropertyIdentifier: "present-value"},
		}}, "request, invalid-object-identifier"},
		{"bad property", ReadMultipleRequest{DeviceInstance: 1, Requests: []BatchItem{
			{ObjectIdentifier: "analog-input,1", PropertyIdentifier: ""},
		}}, "request, invalid-property-identifier"},
		{"too many items", ReadMultipleRequest{DeviceInstance: 1, Requests: many}, "request, too-many-items"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{rpm: echoDevice}
			svc, _ := newTestService(t, transport)

			result := svc.ReadMultiple(context.Background(), tt.req)
			assert.Equal(t, tt.want, result.Message)
			assert.True(t, result.Failure().Malformed())
			assert.Zero(t, transport.calls())
		})
	}
}

func TestReadMultipleLimitFollowsDevice(t *testing.T) {
	items := make([]BatchItem, 60)
	for i := range items {
		items[i] = BatchItem{ObjectIdentifier: fmt.Sprintf("analog-input,%d", i), PropertyIdentifier: "present-value"}
	}
	req := ReadMultipleRequest{DeviceInstance: 1, Requests: items}

	small := &fakeTransport{rpm: echoDevice}
	svc, _ := newTestService(t, small)
	assert.Equal(t, "request, too-many-items", svc.ReadMultiple(context.Background(), req).Message)

	large := &fakeTransport{rpm: echoDevice, maxAPDU: bacnet.MaxAPDUAccepted}
	svc, _ = newTestService(t, large)
	assert.True(t, svc.ReadMultiple(context.Background(), req).Success)
}
