package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/matztam/mikrotik-wifi-manager/internal/scan"
	"github.com/matztam/mikrotik-wifi-manager/pkg/httpx"
)

func (s *Server) handleScanStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Band string `json:"band"`
	}
	// An empty body selects the default band.
	_ = json.NewDecoder(r.Body).Decode(&body)
	band := body.Band
	if band == "" {
		band = r.URL.Query().Get("band")
	}

	ack, err := s.scans.Start(r.Context(), band)
	switch {
	case err == nil:
		writeJSON(w, ack)
	case errors.Is(err, scan.ErrAlreadyScanning):
		// Not an error from the poller's point of view: the client just
		// keeps polling the session that is already running.
		writeJSON(w, ack)
	case errors.Is(err, scan.ErrInterfaceNotFound):
		httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, "wireless interface not found")
	case errors.Is(err, scan.ErrStorageUnavailable):
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "scan storage unavailable")
	default:
		s.logger.Error().Err(err).Msg("scan start failed")
		httpx.WriteError(w, http.StatusBadGateway, httpx.CodeUpstreamFailed, "router unreachable")
	}
}

func (s *Server) handleScanResult(w http.ResponseWriter, r *http.Request) {
	out := s.scans.Result(r.Context())
	switch out.Status {
	case scan.StatusReady:
		payload := struct {
			Status scan.Status `json:"status"`
			*scan.Result
		}{scan.StatusReady, out.Result}
		// The payload exists only in memory at this point; confirm its
		// delivery only once the body was fully written, so a dropped
		// connection leaves it retrievable by the next poll.
		if err := encodeJSON(w, payload); err == nil {
			s.scans.ConfirmDelivery()
		} else {
			s.logger.Warn().Err(err).Msg("result response lost, keeping payload for one retry")
		}
	case scan.StatusPending:
		writeJSON(w, map[string]any{"status": scan.StatusPending})
	case scan.StatusTimeout:
		writeJSON(w, map[string]any{"status": scan.StatusTimeout, "error": "scan timed out"})
	default:
		writeJSON(w, map[string]any{"status": scan.StatusNoResult, "error": "no scan in progress"})
	}
}
