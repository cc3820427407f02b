// Package server is the HTTP dispatch layer: thin handlers that translate
// requests into calls on the scan orchestrator, the profile reconciler and
// the router client, and translate their results into JSON.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/matztam/mikrotik-wifi-manager/internal/config"
	"github.com/matztam/mikrotik-wifi-manager/internal/observability"
	"github.com/matztam/mikrotik-wifi-manager/internal/profiles"
	"github.com/matztam/mikrotik-wifi-manager/internal/scan"
	"github.com/matztam/mikrotik-wifi-manager/internal/settings"
	"github.com/matztam/mikrotik-wifi-manager/pkg/routeros"
)

const Version = "0.1.0"

func Logger(cfg config.Config) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	logger := log.Logger.Level(cfg.LogLevel).With().Timestamp().Logger()
	return &logger
}

// scanService is the orchestrator surface the handlers need.
type scanService interface {
	Start(ctx context.Context, band string) (scan.StartAck, error)
	Result(ctx context.Context) scan.Outcome
	ConfirmDelivery()
}

// reconcilerService is the profile surface the handlers need.
type reconcilerService interface {
	Reconcile(ctx context.Context, in profiles.Intent) (string, error)
	FindManaged(ctx context.Context, profileName, ssid string) (routeros.SecurityProfile, bool, error)
	DeleteManaged(ctx context.Context, name string) error
}

// routerAPI is the slice of the router client used directly by handlers.
type routerAPI interface {
	ListWirelessInterfaces(ctx context.Context) ([]routeros.WirelessInterface, error)
	FindWirelessInterface(ctx context.Context, name string) (routeros.WirelessInterface, bool, error)
	PatchWirelessInterface(ctx context.Context, id string, patch routeros.WirelessInterfacePatch) error
	RegistrationTable(ctx context.Context) ([]byte, error)
}

// configSink receives the effective router credentials after a settings
// update.
type configSink interface {
	SetConfig(cfg routeros.Config)
}

type Server struct {
	settings *settings.Store
	scans    scanService
	recon    reconcilerService
	router   routerAPI
	sink     configSink
	logger   zerolog.Logger
}

// Deps wires the server from concrete components.
type Deps struct {
	Config   config.Config
	Settings *settings.Store
	Client   *routeros.Client
	Orch     *scan.Orchestrator
	Recon    *profiles.Reconciler
	Metrics  *observability.Metrics
	Logger   *zerolog.Logger
}

func NewRouter(d Deps) http.Handler {
	s := &Server{
		settings: d.Settings,
		scans:    d.Orch,
		recon:    d.Recon,
		router:   d.Client,
		sink:     d.Client,
		logger:   d.Logger.With().Str("component", "http").Logger(),
	}
	return s.routes(d.Logger, d.Metrics)
}

func (s *Server) routes(logger *zerolog.Logger, metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(zerologMiddleware(logger))

	// The UI may be served from anywhere on the LAN.
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	r.Use(c.Handler)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true, "version": Version})
	})
	r.Get("/api/config", s.handleConfig)
	r.Get("/api/status", s.handleStatus)

	r.Post("/api/scan/start", s.handleScanStart)
	r.Get("/api/scan/result", s.handleScanResult)

	r.Post("/api/connect", s.handleConnect)
	r.Post("/api/disconnect", s.handleDisconnect)
	r.Post("/api/profile/delete", s.handleProfileDelete)

	r.Get("/api/settings", s.handleSettingsGet)
	r.Post("/api/settings", s.handleSettingsUpdate)

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// encodeJSON surfaces the encoder error for callers that must know whether
// the response body actually went out.
func encodeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}
