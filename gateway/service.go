package gateway

import (
	"context"
	"log/slog"
	"net"
	"time"

	bacnet "github.com/maxzerker/bacnet-rpc"
)

// DefaultDiscoveryWindow is how long a Who-Is round collects I-Am replies.
const DefaultDiscoveryWindow = 5 * time.Second

// Transport is the BACnet capability the gateway drives. *bacnet.Client
// implements it.
type Transport interface {
	ReadProperty(ctx context.Context, device uint32, object bacnet.ObjectIdentifier, ref bacnet.PropertyReference) (bacnet.Value, error)
	WriteProperty(ctx context.Context, device uint32, object bacnet.ObjectIdentifier, ref bacnet.PropertyReference, value bacnet.Value, priority uint8) error
	ReadPropertyMultiple(ctx context.Context, device uint32, specs []bacnet.ReadAccessSpec) ([]bacnet.ReadAccessResult, error)
	ListenIAm(low, high uint32) (<-chan bacnet.DeviceInfo, func())
	SendWhoIs(low, high *uint32, dest *net.UDPAddr) error
	MaxAPDU(device uint32) int
}

type Options struct {
	Logger   *slog.Logger
	Observer Observer
	// DiscoveryWindow is how long a Who-Is round collects replies.
	DiscoveryWindow time.Duration
	// Timeout bounds a whole operation, address resolution and retries
	// included. Zero leaves the bound to the transport.
	Timeout time.Duration
}

type Service struct {
	transport Transport
	options   Options
	log       *slog.Logger
}

func NewService(transport Transport, options Options) *Service {
	if options.DiscoveryWindow <= 0 {
		options.DiscoveryWindow = DefaultDiscoveryWindow
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		transport: transport,
		options:   options,
		log:       logger.With(slog.String("component", "gateway")),
	}
}

// DiscoveryWindow reports the configured Who-Is collection window.
func (s *Service) DiscoveryWindow() time.Duration {
	return s.options.DiscoveryWindow
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.options.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.options.Timeout)
}

// finish logs the outcome and hands it to the observer.
func (s *Service) finish(e Event, result Result) Result {
	e.Duration = time.Since(e.Started)
	e.Success = result.Success
	if f := result.Failure(); f != nil {
		e.Category, e.Cause = f.Category, f.Cause
		s.log.Info("operation failed",
			slog.String("operation", e.Operation),
			slog.Uint64("device", uint64(e.Device)),
			slog.String("object", e.Object),
			slog.String("property", e.Property),
			slog.String("message", result.Message))
	} else {
		s.log.Debug("operation completed",
			slog.String("operation", e.Operation),
			slog.Uint64("device", uint64(e.Device)),
			slog.Int("items", e.Items),
			slog.Duration("duration", e.Duration))
	}
	if s.options.Observer != nil {
		s.options.Observer.Observe(e)
	}
	return result
}
