package config

// Configuration loading and validation for bacnet-rpc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	bacnet "github.com/maxzerker/bacnet-rpc"
)

const (
	EnvUsername = "BASIC_AUTH_USERNAME"
	EnvPassword = "BASIC_AUTH_PASSWORD"

	redacted = "********"
)

// HTTPConfig is the web-facing side of the gateway.
type HTTPConfig struct {
	Listen   string `yaml:"listen" json:"listen"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	TLS      bool   `yaml:"tls" json:"tls"`
	CertFile string `yaml:"cert_file" json:"cert_file"`
	KeyFile  string `yaml:"key_file" json:"key_file"`
	// DiscoveryMinInterval throttles range Who-Is calls; zero disables it.
	DiscoveryMinInterval time.Duration `yaml:"discovery_min_interval" json:"discovery_min_interval"`
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DeviceConfig pins a device to an address so it is never looked up by Who-Is.
type DeviceConfig struct {
	Instance uint32 `yaml:"instance" json:"instance"`
	Address  string `yaml:"address" json:"address"` // "ip" or "ip:port"
}

// BACnetConfig is the BACnet/IP side of the gateway.
type BACnetConfig struct {
	Interface        string        `yaml:"interface,omitempty" json:"interface,omitempty"` // derive addresses from this interface
	LocalAddress     string        `yaml:"local_address" json:"local_address"`
	Port             int           `yaml:"port" json:"port"`
	BroadcastAddress string        `yaml:"broadcast_address,omitempty" json:"broadcast_address,omitempty"`
	APDUTimeout      time.Duration `yaml:"apdu_timeout" json:"apdu_timeout"`
	APDURetries      int           `yaml:"apdu_retries" json:"apdu_retries"`
	ResolveWindow    time.Duration `yaml:"resolve_window" json:"resolve_window"`
	DiscoveryWindow  time.Duration `yaml:"discovery_window" json:"discovery_window"`
	// OperationTimeout bounds one gateway operation end to end, retries
	// included. Zero leaves it to apdu_timeout and apdu_retries.
	OperationTimeout time.Duration  `yaml:"operation_timeout" json:"operation_timeout"`
	Devices          []DeviceConfig `yaml:"devices,omitempty" json:"devices,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // text or json
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// TraceConfig enables the CBOR transaction trace file.
type TraceConfig struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// CaptureConfig enables the pcap capture of BACnet/IP datagrams.
type CaptureConfig struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// Config is the complete gateway configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http" json:"http"`
	BACnet  BACnetConfig  `yaml:"bacnet" json:"bacnet"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Trace   TraceConfig   `yaml:"trace" json:"trace"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Listen:          "0.0.0.0:5000",
			Username:        "admin",
			Password:        "secret",
			CertFile:        "./certs/certificate.pem",
			KeyFile:         "./certs/private.key",
			ShutdownTimeout: 10 * time.Second,
		},
		BACnet: BACnetConfig{
			LocalAddress:    "0.0.0.0",
			Port:            bacnet.BACNET_DEFAULT_PORT,
			APDUTimeout:     bacnet.DefaultTimeout,
			APDURetries:     bacnet.DefaultRetries,
			ResolveWindow:   bacnet.DefaultResolveWindow,
			DiscoveryWindow: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. Credentials from the environment override the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse YAML %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides the credentials with BASIC_AUTH_USERNAME and
// BASIC_AUTH_PASSWORD when they are set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvUsername); v != "" {
		c.HTTP.Username = v
	}
	if v := getenv(EnvPassword); v != "" {
		c.HTTP.Password = v
	}
}

// Validate checks the configuration and reports every problem it finds.
func (c *Config) Validate() error {
	var errs []error

	if _, _, err := net.SplitHostPort(c.HTTP.Listen); err != nil {
		errs = append(errs, fmt.Errorf("http.listen %q: %w", c.HTTP.Listen, err))
	}
	if c.HTTP.Username == "" || c.HTTP.Password == "" {
		errs = append(errs, errors.New("http.username and http.password are required"))
	}
	if c.HTTP.TLS && (c.HTTP.CertFile == "" || c.HTTP.KeyFile == "") {
		errs = append(errs, errors.New("http.tls requires http.cert_file and http.key_file"))
	}
	if c.HTTP.DiscoveryMinInterval < 0 {
		errs = append(errs, errors.New("http.discovery_min_interval must not be negative"))
	}

	if c.BACnet.Interface == "" && net.ParseIP(c.BACnet.LocalAddress) == nil {
		errs = append(errs, fmt.Errorf("bacnet.local_address %q is not an IP address", c.BACnet.LocalAddress))
	}
	if c.BACnet.Port < 0 || c.BACnet.Port > 65535 {
		errs = append(errs, fmt.Errorf("bacnet.port %d out of range", c.BACnet.Port))
	}
	if c.BACnet.BroadcastAddress != "" && net.ParseIP(c.BACnet.BroadcastAddress) == nil {
		errs = append(errs, fmt.Errorf("bacnet.broadcast_address %q is not an IP address", c.BACnet.BroadcastAddress))
	}
	if c.BACnet.APDUTimeout <= 0 {
		errs = append(errs, errors.New("bacnet.apdu_timeout must be positive"))
	}
	if c.BACnet.OperationTimeout < 0 {
		errs = append(errs, errors.New("bacnet.operation_timeout must not be negative"))
	}
	if c.BACnet.APDURetries < 0 {
		errs = append(errs, errors.New("bacnet.apdu_retries must not be negative"))
	}
	if c.BACnet.ResolveWindow <= 0 || c.BACnet.DiscoveryWindow <= 0 {
		errs = append(errs, errors.New("bacnet.resolve_window and bacnet.discovery_window must be positive"))
	}
	if _, err := c.BACnet.DeviceAddresses(); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// DeviceAddresses resolves the pinned devices.
func (b BACnetConfig) DeviceAddresses() (map[uint32]*net.UDPAddr, error) {
	out := make(map[uint32]*net.UDPAddr, len(b.Devices))
	for i, d := range b.Devices {
		if d.Instance > bacnet.MaxInstance {
			return nil, fmt.Errorf("bacnet.devices[%d]: instance %d out of range", i, d.Instance)
		}
		addr, err := ParseDeviceAddress(d.Address)
		if err != nil {
			return nil, fmt.Errorf("bacnet.devices[%d]: %w", i, err)
		}
		out[d.Instance] = addr
	}
	return out, nil
}

// ParseDeviceAddress parses "ip" or "ip:port"; the port defaults to 47808.
func ParseDeviceAddress(s string) (*net.UDPAddr, error) {
	if ip := net.ParseIP(s); ip != nil {
		return &net.UDPAddr{IP: ip, Port: bacnet.BACNET_DEFAULT_PORT}, nil
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return nil, fmt.Errorf("address %q: %w", s, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("address %q: %s is not an IP address", s, host)
	}
	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil || n == 0 {
		return nil, fmt.Errorf("address %q: invalid port %q", s, port)
	}
	return &net.UDPAddr{IP: ip, Port: int(n)}, nil
}

// Redacted returns a copy safe to show to clients.
func (c *Config) Redacted() Config {
	out := *c
	if out.HTTP.Password != "" {
		out.HTTP.Password = redacted
	}
	out.BACnet.Devices = append([]DeviceConfig(nil), c.BACnet.Devices...)
	return out
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
