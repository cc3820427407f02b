package main

import (
	"fmt"
	"net/http"

	"github.com/matztam/mikrotik-wifi-manager/internal/config"
	"github.com/matztam/mikrotik-wifi-manager/internal/observability"
	"github.com/matztam/mikrotik-wifi-manager/internal/profiles"
	"github.com/matztam/mikrotik-wifi-manager/internal/scan"
	"github.com/matztam/mikrotik-wifi-manager/internal/server"
	"github.com/matztam/mikrotik-wifi-manager/internal/settings"
	"github.com/matztam/mikrotik-wifi-manager/internal/tmpdisk"
	"github.com/matztam/mikrotik-wifi-manager/pkg/routeros"
)

func main() {
	cfg := config.FromEnv()
	logger := server.Logger(cfg)

	store := settings.NewStore(cfg.SettingsPath(), *logger)
	router := store.Get().Router

	client := routeros.NewClient(routeros.Config{
		Address:  router.Address,
		Username: router.Username,
		Password: router.Password,
		Token:    router.Token,
	}, *logger)

	metrics := observability.NewMetrics()
	client.OnRequest(metrics.ObserveRouterRequest)

	orch := scan.NewOrchestrator(client, tmpdisk.NewManager(client, *logger), store, metrics, *logger)

	r := server.NewRouter(server.Deps{
		Config:   cfg,
		Settings: store,
		Client:   client,
		Orch:     orch,
		Recon:    profiles.NewReconciler(client, *logger),
		Metrics:  metrics,
		Logger:   logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	logger.Info().Msgf("wifimand listening on http://%s", addr)

	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
