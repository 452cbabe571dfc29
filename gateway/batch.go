package gateway

import (
	"context"
	"log/slog"
	"time"

	bacnet "github.com/maxzerker/bacnet-rpc"
)

// slot locates a batch item inside the read-access specs.
type slot struct {
	spec, property int
}

// ReadMultiple reads every item with one ReadPropertyMultiple request. The
// entries come back in request order; an item the device could not read
// carries its error while the others keep their values.
func (s *Service) ReadMultiple(ctx context.Context, req ReadMultipleRequest) Result {
	e := Event{Operation: OpReadMultiple, Started: time.Now(), Items: len(req.Requests)}

	device, err := parseDeviceInstance(req.DeviceInstance)
	if err != nil {
		return s.finish(e, Failed(err))
	}
	e.Device = device
	if len(req.Requests) == 0 {
		return s.finish(e, Failed(malformed(CauseEmptyBatch)))
	}

	specs, slots, err := groupItems(req.Requests)
	if err != nil {
		return s.finish(e, Failed(err))
	}
	if size, limit := bacnet.ReadPropertyMultipleSize(specs), s.transport.MaxAPDU(device); size > limit {
		s.log.Debug("batch exceeds device max APDU",
			slog.Uint64("device", uint64(device)),
			slog.Int("size", size),
			slog.Int("limit", limit))
		return s.finish(e, Failed(malformed(CauseTooManyItems)))
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	results, err := s.transport.ReadPropertyMultiple(ctx, device, specs)
	if err != nil {
		return s.finish(e, Failed(err))
	}

	entries := make([]BatchEntry, len(slots))
	used := make(map[slot]bool, len(slots))
	for i, sl := range slots {
		spec := specs[sl.spec]
		ref := spec.Properties[sl.property]
		entry := BatchEntry{ObjectIdentifier: spec.Object.String(), PropertyIdentifier: ref.String()}

		result, found := lookupResult(results, used, sl, spec.Object, ref)
		switch {
		case !found:
			entry.Error = stringPtr((&Failure{Category: CategoryDevice, Cause: "missing-result"}).Error())
		case result.Err != nil:
			entry.Error = stringPtr(Classify(result.Err).Error())
		default:
			entry.Value = stringPtr(FormatValue(result.Value))
		}
		entries[i] = entry
	}

	return s.finish(e, succeeded(MessageReadMultipleOK, ReadMultipleData{
		DeviceInstance: device,
		Requests:       entries,
	}))
}

// groupItems folds consecutive items on the same object into one access spec.
func groupItems(items []BatchItem) ([]bacnet.ReadAccessSpec, []slot, error) {
	var specs []bacnet.ReadAccessSpec
	slots := make([]slot, len(items))
	for i, item := range items {
		object, err := parseObject(item.ObjectIdentifier)
		if err != nil {
			return nil, nil, err
		}
		ref, err := parseProperty(item.PropertyIdentifier)
		if err != nil {
			return nil, nil, err
		}

		if n := len(specs); n == 0 || specs[n-1].Object != object {
			specs = append(specs, bacnet.ReadAccessSpec{Object: object})
		}
		last := &specs[len(specs)-1]
		last.Properties = append(last.Properties, ref)
		slots[i] = slot{spec: len(specs) - 1, property: len(last.Properties) - 1}
	}
	return specs, slots, nil
}

// lookupResult takes the result at the same position when it matches, then
// falls back to the first unused result for the same object and property.
func lookupResult(results []bacnet.ReadAccessResult, used map[slot]bool, want slot, object bacnet.ObjectIdentifier, ref bacnet.PropertyReference) (bacnet.PropertyResult, bool) {
	if want.spec < len(results) && !used[want] {
		r := results[want.spec]
		if r.Object == object && want.property < len(r.Results) && sameReference(r.Results[want.property].Property, ref) {
			used[want] = true
			return r.Results[want.property], true
		}
	}
	for i, r := range results {
		if r.Object != object {
			continue
		}
		for j, pr := range r.Results {
			at := slot{spec: i, property: j}
			if !used[at] && sameReference(pr.Property, ref) {
				used[at] = true
				return pr, true
			}
		}
	}
	return bacnet.PropertyResult{}, false
}

func sameReference(a, b bacnet.PropertyReference) bool {
	if a.Property != b.Property || (a.Index == nil) != (b.Index == nil) {
		return false
	}
	return a.Index == nil || *a.Index == *b.Index
}

func stringPtr(s string) *string { return &s }
