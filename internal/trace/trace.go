// Package trace records completed gateway operations to a CBOR file.
//
// The file is a plain sequence of CBOR-encoded records, appended as
// operations finish, so it can be read back with Read even while the gateway
// is still writing to it.
package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/maxzerker/bacnet-rpc/gateway"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create trace CBOR encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create trace CBOR decoder mode: %v", err))
	}
}

// Record is one completed operation.
type Record struct {
	ID        string        `cbor:"1,keyasint" json:"id"`
	Timestamp time.Time     `cbor:"2,keyasint" json:"timestamp"`
	Operation string        `cbor:"3,keyasint" json:"operation"`
	Device    uint32        `cbor:"4,keyasint" json:"device"`
	Object    string        `cbor:"5,keyasint,omitempty" json:"object,omitempty"`
	Property  string        `cbor:"6,keyasint,omitempty" json:"property,omitempty"`
	Items     int           `cbor:"7,keyasint,omitempty" json:"items,omitempty"`
	Success   bool          `cbor:"8,keyasint" json:"success"`
	Category  string        `cbor:"9,keyasint,omitempty" json:"category,omitempty"`
	Cause     string        `cbor:"10,keyasint,omitempty" json:"cause,omitempty"`
	Duration  time.Duration `cbor:"11,keyasint" json:"duration"`
}

func recordOf(e gateway.Event) Record {
	return Record{
		ID:        uuid.NewString(),
		Timestamp: e.Started,
		Operation: e.Operation,
		Device:    e.Device,
		Object:    e.Object,
		Property:  e.Property,
		Items:     e.Items,
		Success:   e.Success,
		Category:  e.Category,
		Cause:     e.Cause,
		Duration:  e.Duration,
	}
}

// Writer appends a Record per observed event. It is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	closer  io.Closer
	encoder *cbor.Encoder
	closed  bool
}

// Create opens path for appending, creating it when missing.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &Writer{closer: f, encoder: encMode.NewEncoder(f)}, nil
}

// NewWriter writes records to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{encoder: encMode.NewEncoder(w)}
}

// Observe implements gateway.Observer. Encoding errors are dropped; the
// trace must never fail a request.
func (w *Writer) Observe(e gateway.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	_ = w.encoder.Encode(recordOf(e))
}

// Close closes the underlying file. Later events are ignored.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Read decodes every record in r.
func Read(r io.Reader) ([]Record, error) {
	dec := decMode.NewDecoder(r)
	var records []Record
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, fmt.Errorf("decode trace record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
}

var _ gateway.Observer = (*Writer)(nil)
