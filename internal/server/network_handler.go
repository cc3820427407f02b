package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/matztam/mikrotik-wifi-manager/internal/profiles"
	"github.com/matztam/mikrotik-wifi-manager/pkg/httpx"
	"github.com/matztam/mikrotik-wifi-manager/pkg/routeros"
)

// handleConnect reconciles the security profile for the requested network
// and points the station interface at it.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SSID             string `json:"ssid"`
		Password         string `json:"password"`
		RequiresPassword *bool  `json:"requiresPassword"`
		Band             string `json:"band"`
		ProfileName      string `json:"profileName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
		return
	}
	if body.SSID == "" {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeValidation, "ssid is required")
		return
	}
	// Secured unless the caller says otherwise: joining an open network is
	// the explicit case.
	secured := true
	if body.RequiresPassword != nil {
		secured = *body.RequiresPassword
	}

	name, err := s.recon.Reconcile(r.Context(), profiles.Intent{
		SSID:             body.SSID,
		Password:         body.Password,
		RequiresPassword: secured,
		ProfileName:      body.ProfileName,
	})
	if errors.Is(err, profiles.ErrPasswordRequired) {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeValidation, "password is required for a secured network")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("ssid", body.SSID).Msg("profile reconciliation failed")
		httpx.WriteError(w, http.StatusBadGateway, httpx.CodeUpstreamFailed, "could not prepare security profile")
		return
	}

	cfg := s.settings.Get()
	iface, found, err := s.router.FindWirelessInterface(r.Context(), cfg.Router.WLANInterface)
	if err != nil {
		httpx.WriteError(w, http.StatusBadGateway, httpx.CodeUpstreamFailed, "router unreachable")
		return
	}
	if !found {
		httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, "wireless interface not found")
		return
	}

	band := body.Band
	if band == "" {
		band = cfg.Bands.Band2GHz
	}
	patch := routeros.WirelessInterfacePatch{
		Mode:            "station",
		SSID:            body.SSID,
		Band:            band,
		SecurityProfile: name,
		Disabled:        "no",
	}
	if err := s.router.PatchWirelessInterface(r.Context(), iface.ID, patch); err != nil {
		httpx.WriteError(w, http.StatusBadGateway, httpx.CodeUpstreamFailed, "interface update failed")
		return
	}

	s.logger.Info().Str("ssid", body.SSID).Str("profile", name).Msg("station connect applied")
	writeJSON(w, map[string]any{"success": true, "profile": name})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	ifaceName := s.settings.Get().Router.WLANInterface
	iface, found, err := s.router.FindWirelessInterface(r.Context(), ifaceName)
	if err != nil {
		httpx.WriteError(w, http.StatusBadGateway, httpx.CodeUpstreamFailed, "router unreachable")
		return
	}
	if !found {
		httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, "wireless interface not found")
		return
	}
	if err := s.router.PatchWirelessInterface(r.Context(), iface.ID, routeros.WirelessInterfacePatch{Disabled: "yes"}); err != nil {
		httpx.WriteError(w, http.StatusBadGateway, httpx.CodeUpstreamFailed, "interface update failed")
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

// handleProfileDelete removes a managed profile. Profiles without the
// provenance tag are never matched, so user-created profiles survive.
func (s *Server) handleProfileDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProfileName string `json:"profileName"`
		SSID        string `json:"ssid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
		return
	}
	if body.ProfileName == "" && body.SSID == "" {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeValidation, "profileName or ssid is required")
		return
	}

	p, found, err := s.recon.FindManaged(r.Context(), body.ProfileName, body.SSID)
	if err != nil {
		httpx.WriteError(w, http.StatusBadGateway, httpx.CodeUpstreamFailed, "router unreachable")
		return
	}
	if !found {
		httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, "no managed profile matches")
		return
	}
	if err := s.recon.DeleteManaged(r.Context(), p.Name); err != nil {
		httpx.WriteError(w, http.StatusBadGateway, httpx.CodeUpstreamFailed, "profile delete failed")
		return
	}
	s.logger.Info().Str("profile", p.Name).Msg("managed profile deleted")
	writeJSON(w, map[string]any{"success": true, "deleted": p.Name})
}

// handleStatus reports the wireless interfaces and the registration table.
// The registration table is passed through untouched; its schema varies
// across RouterOS versions.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ifaces, err := s.router.ListWirelessInterfaces(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusBadGateway, httpx.CodeUpstreamFailed, "router unreachable")
		return
	}
	registration := json.RawMessage("[]")
	if raw, err := s.router.RegistrationTable(r.Context()); err == nil && len(raw) > 0 {
		registration = raw
	}
	writeJSON(w, map[string]any{"interfaces": ifaces, "registration": registration})
}
