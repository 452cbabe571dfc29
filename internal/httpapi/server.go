// Package httpapi serves the gateway over HTTP(S) as JSON.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/maxzerker/bacnet-rpc/gateway"
	"github.com/maxzerker/bacnet-rpc/internal/config"
)

const (
	HeaderRequestID = "X-Request-ID"

	maxBodyBytes = 1 << 20
	realm        = `Basic realm="bacnet-rpc"`
)

// Gateway is the operation surface the server exposes. *gateway.Service
// implements it.
type Gateway interface {
	Read(ctx context.Context, req gateway.ReadRequest) gateway.Result
	Write(ctx context.Context, req gateway.WriteRequest) gateway.Result
	ReadMultiple(ctx context.Context, req gateway.ReadMultipleRequest) gateway.Result
	WhoIs(ctx context.Context, req gateway.WhoIsRequest) ([]gateway.DeviceIdentification, error)
	WhoIsDevice(ctx context.Context, instance int64, address string) ([]gateway.DeviceIdentification, error)
}

type Options struct {
	Username string
	Password string
	Version  string
	// Config is served, password redacted, at /bacnet/config.
	Config *config.Config
	// Metrics is served unauthenticated at /metrics when set.
	Metrics http.Handler
	// DiscoveryMinInterval throttles range Who-Is; zero disables it.
	DiscoveryMinInterval time.Duration
	Logger               *slog.Logger
}

type Server struct {
	gw        Gateway
	options   Options
	mux       *http.ServeMux
	discovery *rate.Limiter
	log       *slog.Logger
}

func New(gw Gateway, options Options) *Server {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		gw:      gw,
		options: options,
		mux:     http.NewServeMux(),
		log:     logger.With(slog.String("component", "http")),
	}
	if options.DiscoveryMinInterval > 0 {
		s.discovery = rate.NewLimiter(rate.Every(options.DiscoveryMinInterval), 1)
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.options.Metrics != nil {
		s.mux.Handle("GET /metrics", s.options.Metrics)
	}

	s.mux.Handle("GET /bacnet/config", s.auth(s.handleConfig))
	s.mux.Handle("POST /bacnet/whois", s.auth(s.handleWhoIs))
	s.mux.Handle("GET /bacnet/whois/{device_instance}", s.auth(s.handleWhoIsDevice))
	s.mux.Handle("POST /bacnet/write", s.auth(s.handleWrite))
	s.mux.Handle("POST /bacnet/read_multiple", s.auth(s.handleReadMultiple))
	s.mux.Handle("GET /bacnet/{device_instance}/{object_identifier}", s.auth(s.handleRead))
	s.mux.Handle("GET /bacnet/{device_instance}/{object_identifier}/{$}", s.auth(s.handleRead))
	s.mux.Handle("GET /bacnet/{device_instance}/{object_identifier}/{property_identifier}", s.auth(s.handleRead))
}

// Handler returns the routes wrapped in request id, recovery and access
// logging middleware.
func (s *Server) Handler() http.Handler {
	return s.requestID(s.accessLog(s.recoverPanics(s.mux)))
}

func (s *Server) auth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.options.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.options.Password)) == 1
		if !ok || !userOK || !passOK {
			w.Header().Set("WWW-Authenticate", realm)
			writeFailure(w, http.StatusUnauthorized, &gateway.Failure{Category: gateway.CategorySecurity, Cause: "authentication-failed"})
			return
		}
		next(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	version := s.options.Version
	if version == "" {
		version = "dev"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	if s.options.Config == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	view := s.options.Config.Redacted()
	data, err := view.Marshal()
	if err != nil {
		s.log.Error("failed to render config", slog.Any("error", err))
		writeFailure(w, http.StatusInternalServerError, internalError)
		return
	}
	// round trip through YAML so durations render as "3s", not nanoseconds
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		s.log.Error("failed to render config", slog.Any("error", err))
		writeFailure(w, http.StatusInternalServerError, internalError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	device, ok := pathDevice(w, r)
	if !ok {
		return
	}
	property := r.PathValue("property_identifier")
	if property == "" {
		property = r.URL.Query().Get("property_identifier")
	}
	writeResult(w, s.gw.Read(r.Context(), gateway.ReadRequest{
		DeviceInstance:     device,
		ObjectIdentifier:   r.PathValue("object_identifier"),
		PropertyIdentifier: property,
	}))
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req gateway.WriteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeResult(w, s.gw.Write(r.Context(), req))
}

func (s *Server) handleReadMultiple(w http.ResponseWriter, r *http.Request) {
	var req gateway.ReadMultipleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeResult(w, s.gw.ReadMultiple(r.Context(), req))
}

func (s *Server) handleWhoIs(w http.ResponseWriter, r *http.Request) {
	// an empty body, chunked or not, asks the whole instance range
	var req gateway.WhoIsRequest
	if err := readJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeDecodeError(w, err)
		return
	}
	// a malformed range must not spend the discovery token
	if err := req.Validate(); err != nil {
		writeResult(w, gateway.Failed(err))
		return
	}
	if s.discovery != nil && !s.discovery.Allow() {
		writeFailure(w, http.StatusTooManyRequests, &gateway.Failure{Category: gateway.CategoryServices, Cause: "discovery-throttled"})
		return
	}
	devices, err := s.gw.WhoIs(r.Context(), req)
	writeDevices(w, devices, err)
}

func (s *Server) handleWhoIsDevice(w http.ResponseWriter, r *http.Request) {
	device, ok := pathDevice(w, r)
	if !ok {
		return
	}
	devices, err := s.gw.WhoIsDevice(r.Context(), device, r.URL.Query().Get("address"))
	writeDevices(w, devices, err)
}

func pathDevice(w http.ResponseWriter, r *http.Request) (int64, bool) {
	device, err := strconv.ParseInt(r.PathValue("device_instance"), 10, 64)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, &gateway.Failure{Category: gateway.CategoryRequest, Cause: gateway.CauseInvalidDeviceInstance})
		return 0, false
	}
	return device, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := readJSON(w, r, v); err != nil {
		writeDecodeError(w, err)
		return false
	}
	return true
}

// readJSON decodes one JSON document from a size limited body. An empty
// body yields io.EOF.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(v)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	cause := "invalid-json"
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		cause = "body-too-large"
	}
	writeFailure(w, http.StatusBadRequest, &gateway.Failure{Category: gateway.CategoryRequest, Cause: cause})
}
