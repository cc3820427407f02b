// Package settings owns the runtime settings document: router endpoint and
// credentials, band strings, and scan timing. The document survives
// restarts; process-level knobs stay in internal/config.
package settings

import (
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/matztam/mikrotik-wifi-manager/internal/fsatomic"
)

type Router struct {
	Address       string `json:"address"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	Token         string `json:"token"`
	WLANInterface string `json:"wlan_interface"`
}

type Bands struct {
	Band2GHz string `json:"band_2ghz"`
	Band5GHz string `json:"band_5ghz"`
}

type Scan struct {
	DurationSeconds int `json:"duration_seconds"`
	GraceMs         int `json:"grace_ms"`
	PollIntervalMs  int `json:"poll_interval_ms"`
}

type Settings struct {
	Router Router `json:"router"`
	Bands  Bands  `json:"bands"`
	Scan   Scan   `json:"scan"`
}

// Defaults mirrors the device's factory configuration.
func Defaults() Settings {
	return Settings{
		Router: Router{
			WLANInterface: "wlan1",
		},
		Bands: Bands{
			Band2GHz: "2ghz-b/g/n",
			Band5GHz: "5ghz-a/n/ac",
		},
		Scan: Scan{
			DurationSeconds: 5,
			GraceMs:         5000,
			PollIntervalMs:  1000,
		},
	}
}

// Store serializes access to the settings document and persists every
// accepted update atomically.
type Store struct {
	path   string
	logger zerolog.Logger

	mu      sync.Mutex
	current Settings
}

// NewStore loads the document at path, falling back to defaults when the
// file is missing or unreadable. A fresh default document is written on
// first run so the operator has a file to inspect.
func NewStore(path string, logger zerolog.Logger) *Store {
	s := &Store{
		path:    path,
		logger:  logger.With().Str("component", "settings").Logger(),
		current: Defaults(),
	}
	loaded := Defaults()
	exists, err := fsatomic.LoadJSON(path, &loaded)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("path", path).Msg("settings unreadable, using defaults")
	case !exists:
		if err := fsatomic.WithLock(path, func() error {
			return fsatomic.SaveJSON(path, s.current, 0)
		}); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("cannot persist default settings")
		}
	default:
		if loaded.Scan.DurationSeconds <= 0 {
			loaded.Scan.DurationSeconds = Defaults().Scan.DurationSeconds
		}
		if loaded.Scan.GraceMs < 0 {
			loaded.Scan.GraceMs = Defaults().Scan.GraceMs
		}
		if loaded.Scan.PollIntervalMs <= 0 {
			loaded.Scan.PollIntervalMs = Defaults().Scan.PollIntervalMs
		}
		s.current = loaded
	}
	return s
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Patch carries a partial settings update; nil sections and nil fields are
// left untouched. "Missing key keeps the old value" is explicit here, not
// an accident of JSON defaults.
type Patch struct {
	Router *RouterPatch `json:"router"`
	Bands  *BandsPatch  `json:"bands"`
	Scan   *ScanPatch   `json:"scan"`
}

type RouterPatch struct {
	Address       *string `json:"address"`
	Username      *string `json:"username"`
	Password      *string `json:"password"`
	Token         *string `json:"token"`
	WLANInterface *string `json:"wlan_interface"`
}

type BandsPatch struct {
	Band2GHz *string `json:"band_2ghz"`
	Band5GHz *string `json:"band_5ghz"`
}

type ScanPatch struct {
	DurationSeconds *int `json:"duration_seconds"`
	GraceMs         *int `json:"grace_ms"`
	PollIntervalMs  *int `json:"poll_interval_ms"`
}

// Changes reports which sections an update actually touched.
type Changes struct {
	Router bool `json:"router_changed"`
	Bands  bool `json:"bands_changed"`
	Scan   bool `json:"scan_changed"`
}

var (
	ErrInvalidDuration = errors.New("scan duration must be positive")
	ErrInvalidPoll     = errors.New("poll interval must be positive")
	ErrInvalidGrace    = errors.New("result grace must not be negative")
)

// Apply validates and applies a patch, persisting the result. Validation
// happens before anything is mutated so a rejected patch leaves the store
// unchanged.
func (s *Store) Apply(p Patch) (Changes, error) {
	if p.Scan != nil {
		if p.Scan.DurationSeconds != nil && *p.Scan.DurationSeconds <= 0 {
			return Changes{}, ErrInvalidDuration
		}
		if p.Scan.PollIntervalMs != nil && *p.Scan.PollIntervalMs <= 0 {
			return Changes{}, ErrInvalidPoll
		}
		if p.Scan.GraceMs != nil && *p.Scan.GraceMs < 0 {
			return Changes{}, ErrInvalidGrace
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	var ch Changes

	if p.Router != nil {
		setTrimmed(&next.Router.Address, p.Router.Address, &ch.Router)
		setTrimmed(&next.Router.Username, p.Router.Username, &ch.Router)
		setRaw(&next.Router.Password, p.Router.Password, &ch.Router)
		setRaw(&next.Router.Token, p.Router.Token, &ch.Router)
		setTrimmed(&next.Router.WLANInterface, p.Router.WLANInterface, &ch.Router)
	}
	if p.Bands != nil {
		setTrimmed(&next.Bands.Band2GHz, p.Bands.Band2GHz, &ch.Bands)
		setTrimmed(&next.Bands.Band5GHz, p.Bands.Band5GHz, &ch.Bands)
	}
	if p.Scan != nil {
		setInt(&next.Scan.DurationSeconds, p.Scan.DurationSeconds, &ch.Scan)
		setInt(&next.Scan.GraceMs, p.Scan.GraceMs, &ch.Scan)
		setInt(&next.Scan.PollIntervalMs, p.Scan.PollIntervalMs, &ch.Scan)
	}

	if !ch.Router && !ch.Bands && !ch.Scan {
		return ch, nil
	}

	if err := fsatomic.WithLock(s.path, func() error {
		return fsatomic.SaveJSON(s.path, next, 0)
	}); err != nil {
		return Changes{}, err
	}
	s.current = next
	return ch, nil
}

func setTrimmed(dst *string, src *string, changed *bool) {
	if src == nil {
		return
	}
	v := strings.TrimSpace(*src)
	if *dst != v {
		*dst = v
		*changed = true
	}
}

func setRaw(dst *string, src *string, changed *bool) {
	if src == nil {
		return
	}
	if *dst != *src {
		*dst = *src
		*changed = true
	}
}

func setInt(dst *int, src *int, changed *bool) {
	if src == nil {
		return
	}
	if *dst != *src {
		*dst = *src
		*changed = true
	}
}
