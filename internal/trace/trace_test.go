package trace

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxzerker/bacnet-rpc/gateway"
)

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	started := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	w.Observe(gateway.Event{
		Operation: gateway.OpRead,
		Device:    201201,
		Object:    "analog-input,2",
		Property:  "present-value",
		Items:     1,
		Success:   true,
		Started:   started,
		Duration:  35 * time.Millisecond,
	})
	w.Observe(gateway.Event{
		Operation: gateway.OpWrite,
		Device:    201201,
		Category:  "property",
		Cause:     "write-access-denied",
		Started:   started,
	})

	records, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.NotEmpty(t, first.ID)
	assert.True(t, first.Timestamp.Equal(started))
	assert.Equal(t, "analog-input,2", first.Object)
	assert.Equal(t, 35*time.Millisecond, first.Duration)
	assert.True(t, first.Success)

	second := records[1]
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, second.Success)
	assert.Equal(t, "write-access-denied", second.Cause)
}

func TestReadTruncated(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).Observe(gateway.Event{Operation: gateway.OpWhoIs, Items: 3})
	NewWriter(&buf).Observe(gateway.Event{Operation: gateway.OpWhoIs, Items: 4})

	raw := buf.Bytes()
	records, err := Read(bytes.NewReader(raw[:len(raw)-2]))
	assert.Error(t, err)
	assert.Len(t, records, 1)
}

func TestCreateAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.cbor")

	for i := 0; i < 2; i++ {
		w, err := Create(path)
		require.NoError(t, err)
		w.Observe(gateway.Event{Operation: gateway.OpRead, Device: uint32(i)})
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())
		w.Observe(gateway.Event{Operation: gateway.OpRead, Device: 99})
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := Read(f)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint32(1), records[1].Device)
}

func TestConcurrentObserve(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Observe(gateway.Event{Operation: gateway.OpRead})
		}()
	}
	wg.Wait()

	records, err := Read(&buf)
	require.NoError(t, err)
	assert.Len(t, records, 20)
}
