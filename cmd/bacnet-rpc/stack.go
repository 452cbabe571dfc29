package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/pflag"

	bacnet "github.com/maxzerker/bacnet-rpc"
	"github.com/maxzerker/bacnet-rpc/gateway"
	"github.com/maxzerker/bacnet-rpc/internal/capture"
	"github.com/maxzerker/bacnet-rpc/internal/config"
	"github.com/maxzerker/bacnet-rpc/internal/logging"
	"github.com/maxzerker/bacnet-rpc/internal/metrics"
	"github.com/maxzerker/bacnet-rpc/internal/trace"
)

var (
	configPath   string
	ifaceName    string
	localAddress string
	bacnetPort   int
	broadcast    string
	logLevel     string
	logFormat    string
	timeout      time.Duration
	opTimeout    time.Duration
	tracePath    string
	capturePath  string
)

func addSharedFlags(flags *pflag.FlagSet) {
	flags.SortFlags = false
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	flags.StringVarP(&ifaceName, "interface", "i", "", "derive local and broadcast addresses from this interface")
	flags.StringVar(&localAddress, "local-address", "", "IP address to bind the BACnet socket to")
	flags.IntVarP(&bacnetPort, "port", "p", bacnet.BACNET_DEFAULT_PORT, "BACnet/IP UDP port")
	flags.StringVarP(&broadcast, "broadcast", "b", "", "broadcast address for Who-Is")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "", "log format: text or json")
	flags.DurationVarP(&timeout, "timeout", "t", 0, "APDU timeout per attempt")
	flags.DurationVar(&opTimeout, "operation-timeout", 0, "bound on a whole operation, retries included")
	flags.StringVar(&tracePath, "trace", "", "append a CBOR record of every operation to this file")
	flags.StringVar(&capturePath, "capture", "", "write every BACnet datagram to this pcap file")
}

// loadConfig reads the configuration file and lays explicitly set flags
// over it.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if flags.Changed("interface") {
		cfg.BACnet.Interface = ifaceName
	}
	if flags.Changed("local-address") {
		cfg.BACnet.LocalAddress = localAddress
	}
	if flags.Changed("port") {
		cfg.BACnet.Port = bacnetPort
	}
	if flags.Changed("broadcast") {
		cfg.BACnet.BroadcastAddress = broadcast
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if flags.Changed("timeout") {
		cfg.BACnet.APDUTimeout = timeout
	}
	if flags.Changed("operation-timeout") {
		cfg.BACnet.OperationTimeout = opTimeout
	}
	if flags.Changed("trace") {
		cfg.Trace.Path = tracePath
	}
	if flags.Changed("capture") {
		cfg.Capture.Path = capturePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// stack is everything a command needs to talk BACnet.
type stack struct {
	cfg     *config.Config
	log     *slog.Logger
	client  *bacnet.Client
	service *gateway.Service
	metrics *metrics.Metrics

	closers []io.Closer
}

func newStack(cfg *config.Config, logOut io.Writer) (*stack, error) {
	s := &stack{
		cfg: cfg,
		log: logging.New(cfg.Logging.Level, cfg.Logging.Format, logOut),
	}
	if err := s.open(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *stack) open() error {
	cfg := s.cfg

	local, bcast, err := bindAddresses(cfg.BACnet)
	if err != nil {
		return err
	}
	devices, err := cfg.BACnet.DeviceAddresses()
	if err != nil {
		return err
	}

	var taps []bacnet.TapFunc
	var observers []gateway.Observer
	if cfg.Metrics.Enabled {
		s.metrics = metrics.New(func() int {
			if s.client == nil {
				return 0
			}
			return s.client.Pending()
		})
		taps = append(taps, s.metrics.Tap)
		observers = append(observers, s.metrics)
	}
	if cfg.Capture.Path != "" {
		w, err := capture.Create(cfg.Capture.Path, s.log)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, w)
		taps = append(taps, w.Tap)
		s.log.Info("capturing BACnet traffic", slog.String("path", cfg.Capture.Path))
	}
	if cfg.Trace.Path != "" {
		w, err := trace.Create(cfg.Trace.Path)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, w)
		observers = append(observers, w)
		s.log.Info("tracing operations", slog.String("path", cfg.Trace.Path))
	}

	client, err := bacnet.NewClient(bacnet.ClientOptions{
		LocalAddr:     local,
		BroadcastAddr: bcast,
		Timeout:       cfg.BACnet.APDUTimeout,
		Retries:       cfg.BACnet.APDURetries,
		ResolveWindow: cfg.BACnet.ResolveWindow,
		Devices:       devices,
		Logger:        s.log,
		Tap:           chainTaps(taps),
	})
	if err != nil {
		return fmt.Errorf("failed to create BACnet client: %w", err)
	}
	s.client = client

	s.service = gateway.NewService(s.client, serviceOptions(cfg.BACnet, s.log, gateway.Observers(observers...)))
	s.log.Info("BACnet client ready",
		slog.String("local", s.client.LocalAddr().String()),
		slog.String("broadcast", s.client.BroadcastAddr().String()),
		slog.Int("static_devices", len(devices)))
	return nil
}

func serviceOptions(cfg config.BACnetConfig, logger *slog.Logger, observer gateway.Observer) gateway.Options {
	return gateway.Options{
		Logger:          logger,
		Observer:        observer,
		DiscoveryWindow: cfg.DiscoveryWindow,
		Timeout:         cfg.OperationTimeout,
	}
}

// Close shuts the client first so no datagram is tapped after its sink is
// closed.
func (s *stack) Close() error {
	var errs []error
	if s.client != nil {
		errs = append(errs, s.client.Close())
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return errors.Join(errs...)
}

func bindAddresses(cfg config.BACnetConfig) (local, bcast *net.UDPAddr, err error) {
	if cfg.Interface != "" {
		local, bcast, err = bacnet.InterfaceAddrs(cfg.Interface, cfg.Port)
		if err != nil {
			return nil, nil, err
		}
	} else {
		local = &net.UDPAddr{IP: net.ParseIP(cfg.LocalAddress), Port: cfg.Port}
	}
	if cfg.BroadcastAddress != "" {
		bcast = &net.UDPAddr{IP: net.ParseIP(cfg.BroadcastAddress), Port: cfg.Port}
	}
	return local, bcast, nil
}

func chainTaps(taps []bacnet.TapFunc) bacnet.TapFunc {
	switch len(taps) {
	case 0:
		return nil
	case 1:
		return taps[0]
	}
	return func(dir bacnet.Direction, local, remote *net.UDPAddr, payload []byte) {
		for _, tap := range taps {
			tap(dir, local, remote, payload)
		}
	}
}
