package server

import (
	"net/http"

	"github.com/matztam/mikrotik-wifi-manager/internal/scan"
)

// frontendConfig is everything the UI needs to render band pickers, drive
// the poll loop and scale the signal bar, derived from current settings.
type frontendConfig struct {
	Band2GHz      string `json:"band_2ghz"`
	Band5GHz      string `json:"band_5ghz"`
	WLANInterface string `json:"wlan_interface"`

	ScanDurationMs     int64  `json:"scan_duration_ms"`
	ScanMinReadyMs     int64  `json:"scan_min_ready_ms"`
	ScanResultGraceMs  int64  `json:"scan_result_grace_ms"`
	ScanTimeoutMs      int64  `json:"scan_timeout_ms"`
	ScanPollIntervalMs int64  `json:"scan_poll_interval_ms"`
	ScanCSVFilename    string `json:"scan_csv_filename"`

	SignalMinDBm int `json:"signal_min_dbm"`
	SignalMaxDBm int `json:"signal_max_dbm"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.settings.Get()
	timing := scan.TimingFromSettings(cfg.Scan)
	writeJSON(w, frontendConfig{
		Band2GHz:           cfg.Bands.Band2GHz,
		Band5GHz:           cfg.Bands.Band5GHz,
		WLANInterface:      cfg.Router.WLANInterface,
		ScanDurationMs:     timing.Duration.Milliseconds(),
		ScanMinReadyMs:     timing.MinReady.Milliseconds(),
		ScanResultGraceMs:  int64(cfg.Scan.GraceMs),
		ScanTimeoutMs:      timing.Timeout.Milliseconds(),
		ScanPollIntervalMs: timing.PollInterval.Milliseconds(),
		ScanCSVFilename:    scan.CSVFilename,
		SignalMinDBm:       scan.SignalMinDBm,
		SignalMaxDBm:       scan.SignalMaxDBm,
	})
}
