package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/matztam/mikrotik-wifi-manager/internal/settings"
	"github.com/matztam/mikrotik-wifi-manager/pkg/httpx"
	"github.com/matztam/mikrotik-wifi-manager/pkg/routeros"
)

// hostInfo is the small host block shown on the settings page. Nil on
// platforms where probing fails.
type hostInfo struct {
	Hostname      string `json:"hostname"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernel_version"`
}

func probeHost() *hostInfo {
	info, err := host.Info()
	if err != nil {
		return nil
	}
	return &hostInfo{
		Hostname:      info.Hostname,
		UptimeSeconds: info.Uptime,
		Platform:      info.Platform,
		KernelVersion: info.KernelVersion,
	}
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"settings": s.settings.Get().Redacted(),
		"host":     probeHost(),
	})
}

// handleSettingsUpdate applies a partial settings patch. Router credential
// changes are pushed into the live client so the next request uses them.
func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
		return
	}

	changes, err := s.settings.Apply(patch)
	if err != nil {
		if errors.Is(err, settings.ErrInvalidDuration) || errors.Is(err, settings.ErrInvalidPoll) || errors.Is(err, settings.ErrInvalidGrace) {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeValidation, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("settings persist failed")
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "could not persist settings")
		return
	}

	if changes.Router {
		router := s.settings.Get().Router
		s.sink.SetConfig(routeros.Config{
			Address:  router.Address,
			Username: router.Username,
			Password: router.Password,
			Token:    router.Token,
		})
	}

	writeJSON(w, struct {
		OK bool `json:"ok"`
		settings.Changes
	}{true, changes})
}
