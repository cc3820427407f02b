// Package scan owns the remote wireless-scan lifecycle. The router performs
// the scan asynchronously and writes a CSV artifact to ephemeral storage;
// there is no push channel, so delivery is a polling state machine:
//
//	Idle → Triggering → CoolingDown → Polling → {Delivered | TimedOut} → Idle
//
// The origin device runs a single-threaded request loop and must never
// block for the multi-second duration of a real scan, so every poll does at
// most one bounded remote call.
package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matztam/mikrotik-wifi-manager/internal/profiles"
	"github.com/matztam/mikrotik-wifi-manager/internal/settings"
	"github.com/matztam/mikrotik-wifi-manager/pkg/routeros"
)

// CSVFilename is the artifact name the router is asked to write.
const CSVFilename = "wifi-scan.csv"

// Signal strength display range handed to the frontend.
const (
	SignalMinDBm = -90
	SignalMaxDBm = -30
)

// bandSettleDelay gives the radio time to retune after a band switch
// before the scan is triggered.
const bandSettleDelay = 500 * time.Millisecond

// RouterAPI is the slice of the router client the orchestrator drives.
type RouterAPI interface {
	FindWirelessInterface(ctx context.Context, name string) (routeros.WirelessInterface, bool, error)
	PatchWirelessInterface(ctx context.Context, id string, patch routeros.WirelessInterfacePatch) error
	TriggerScan(ctx context.Context, ifaceName string, durationSec int, saveFile string)
	ListFiles(ctx context.Context) ([]routeros.File, error)
	RemoveFile(ctx context.Context, id string) error
	ListSecurityProfiles(ctx context.Context) ([]routeros.SecurityProfile, error)
}

// Storage manages the ephemeral volume backing the artifact.
type Storage interface {
	Ensure(ctx context.Context) error
	Remove(ctx context.Context)
}

// SettingsSource yields the current runtime settings. Timing parameters are
// snapshotted at session start; later settings changes never touch an
// in-flight session.
type SettingsSource interface {
	Get() settings.Settings
}

// Observer receives lifecycle events (metrics hook).
type Observer interface {
	ScanStarted()
	ScanDelivered()
	ScanTimedOut()
}

// Timing is the per-session schedule, derived once from settings.
type Timing struct {
	Duration     time.Duration
	MinReady     time.Duration
	Timeout      time.Duration
	PollInterval time.Duration
}

// TimingFromSettings derives the session schedule: the router needs the
// full scan duration before the artifact can exist, plus a grace window
// and one poll interval before the session is declared dead.
func TimingFromSettings(sc settings.Scan) Timing {
	duration := time.Duration(sc.DurationSeconds) * time.Second
	poll := time.Duration(sc.PollIntervalMs) * time.Millisecond
	grace := time.Duration(sc.GraceMs) * time.Millisecond
	return Timing{
		Duration:     duration,
		MinReady:     duration,
		Timeout:      duration + grace + poll,
		PollInterval: poll,
	}
}

// StartAck acknowledges a scan start so the client knows when to begin
// polling.
type StartAck struct {
	Status         string `json:"status"`
	ScanID         string `json:"scan_id,omitempty"`
	DurationMs     int64  `json:"duration_ms,omitempty"`
	MinReadyMs     int64  `json:"min_ready_ms,omitempty"`
	TimeoutMs      int64  `json:"timeout_ms,omitempty"`
	PollIntervalMs int64  `json:"poll_interval_ms,omitempty"`
	CSVFilename    string `json:"csv_filename,omitempty"`
}

// Result bundles a completed scan: the raw artifact, the band it covered,
// and the managed profiles so the frontend can flag known networks.
type Result struct {
	ScanID   string           `json:"scan_id"`
	CSV      string           `json:"csv"`
	Band     string           `json:"band"`
	Profiles []profiles.Known `json:"profiles"`
}

// Status of a result poll that did not produce a payload.
type Status string

const (
	StatusReady    Status = "ready"
	StatusPending  Status = "pending"
	StatusTimeout  Status = "timeout"
	StatusNoResult Status = "no_result"
)

// Outcome is the answer to one result poll. Result is set iff Status is
// StatusReady.
type Outcome struct {
	Status Status
	Result *Result
}

var (
	// ErrAlreadyScanning rejects a start while a session is live.
	ErrAlreadyScanning = errors.New("a scan is already in progress")
	// ErrInterfaceNotFound means the configured WLAN interface does not
	// exist on the router.
	ErrInterfaceNotFound = errors.New("configured wireless interface not found")
	// ErrStorageUnavailable means the ephemeral volume could not be
	// confirmed before the scan.
	ErrStorageUnavailable = errors.New("ephemeral storage unavailable")
)

// session is the single live scan record. All fields are guarded by the
// orchestrator mutex; there is at most one active session process-wide.
type session struct {
	id        string
	active    bool
	band      string
	artifact  string
	startedAt time.Time
	timing    Timing

	// cached holds a delivered-but-unconfirmed payload for exactly one
	// later retrieval, covering a lost HTTP response.
	cached *Result
}

type Orchestrator struct {
	api      RouterAPI
	storage  Storage
	settings SettingsSource
	observer Observer
	logger   zerolog.Logger

	mu   sync.Mutex
	sess session

	// test seams
	now    func() time.Time
	settle func(time.Duration)
}

func NewOrchestrator(api RouterAPI, storage Storage, src SettingsSource, obs Observer, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		api:      api,
		storage:  storage,
		settings: src,
		observer: obs,
		logger:   logger.With().Str("component", "scan").Logger(),
		now:      time.Now,
		settle:   time.Sleep,
	}
}

// Start triggers a scan for band (empty selects the 2 GHz default) and
// acknowledges immediately; the trigger call itself is fire-and-forget.
// The whole transition runs under the session mutex, mirroring the origin
// device where every handler runs to completion without preemption.
func (o *Orchestrator) Start(ctx context.Context, band string) (StartAck, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sess.active {
		return StartAck{Status: "already_scanning"}, ErrAlreadyScanning
	}

	cfg := o.settings.Get()
	if band == "" {
		band = cfg.Bands.Band2GHz
	}

	iface, found, err := o.api.FindWirelessInterface(ctx, cfg.Router.WLANInterface)
	if err != nil {
		return StartAck{}, err
	}
	if !found {
		return StartAck{}, ErrInterfaceNotFound
	}

	if band != "" && iface.Band != band {
		if err := o.api.PatchWirelessInterface(ctx, iface.ID, routeros.WirelessInterfacePatch{Band: band}); err != nil {
			o.logger.Warn().Err(err).Str("band", band).Msg("band switch failed, scanning anyway")
		}
		o.settle(bandSettleDelay)
	}

	if err := o.storage.Ensure(ctx); err != nil {
		o.logger.Error().Err(err).Msg("ephemeral storage unavailable")
		return StartAck{}, ErrStorageUnavailable
	}

	timing := TimingFromSettings(cfg.Scan)
	o.sess = session{
		id:        uuid.NewString(),
		active:    true,
		band:      band,
		artifact:  CSVFilename,
		startedAt: o.now(),
		timing:    timing,
	}

	o.api.TriggerScan(ctx, cfg.Router.WLANInterface, cfg.Scan.DurationSeconds, o.sess.artifact)
	if o.observer != nil {
		o.observer.ScanStarted()
	}
	o.logger.Info().Str("scan_id", o.sess.id).Str("band", band).Dur("duration", timing.Duration).Msg("scan started")

	return StartAck{
		Status:         "started",
		ScanID:         o.sess.id,
		DurationMs:     timing.Duration.Milliseconds(),
		MinReadyMs:     timing.MinReady.Milliseconds(),
		TimeoutMs:      timing.Timeout.Milliseconds(),
		PollIntervalMs: timing.PollInterval.Milliseconds(),
		CSVFilename:    o.sess.artifact,
	}, nil
}

// Result answers one poll. Before MinReady it is pending without any
// remote call; past the deadline the session is abandoned and cleaned up;
// in between it makes exactly one non-blocking probe for the artifact.
func (o *Orchestrator) Result(ctx context.Context) Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sess.cached != nil {
		res := o.sess.cached
		o.sess.cached = nil
		return Outcome{Status: StatusReady, Result: res}
	}

	if !o.sess.active {
		return Outcome{Status: StatusNoResult}
	}

	elapsed := o.now().Sub(o.sess.startedAt)
	if elapsed < o.sess.timing.MinReady {
		return Outcome{Status: StatusPending}
	}
	if elapsed > o.sess.timing.Timeout {
		o.logger.Warn().Str("scan_id", o.sess.id).Dur("elapsed", elapsed).Msg("scan timed out")
		o.storage.Remove(ctx)
		o.sess = session{}
		if o.observer != nil {
			o.observer.ScanTimedOut()
		}
		return Outcome{Status: StatusTimeout}
	}

	artifact, ok := o.probe(ctx)
	if !ok {
		return Outcome{Status: StatusPending}
	}

	res := &Result{
		ScanID:   o.sess.id,
		CSV:      artifact.Contents,
		Band:     o.sess.band,
		Profiles: o.knownProfiles(ctx),
	}

	if artifact.ID != "" {
		if err := o.api.RemoveFile(ctx, artifact.ID); err != nil {
			o.logger.Warn().Err(err).Str("file", artifact.Name).Msg("artifact cleanup failed")
		}
	}
	o.storage.Remove(ctx)

	o.sess = session{cached: res}
	if o.observer != nil {
		o.observer.ScanDelivered()
	}
	return Outcome{Status: StatusReady, Result: res}
}

// ConfirmDelivery purges the cached payload once the dispatch layer has
// written the response body without error. An unconfirmed payload is
// served exactly once by the next Result call.
func (o *Orchestrator) ConfirmDelivery() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sess.cached = nil
}

// probe makes the single non-blocking artifact check for this poll.
// Listing failures count as "not ready yet": the next poll retries.
func (o *Orchestrator) probe(ctx context.Context) (routeros.File, bool) {
	files, err := o.api.ListFiles(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("file listing unusable, treating as not ready")
		return routeros.File{}, false
	}
	for _, f := range files {
		if f.Name == o.sess.artifact && f.Contents != "" {
			return f, true
		}
	}
	return routeros.File{}, false
}

func (o *Orchestrator) knownProfiles(ctx context.Context) []profiles.Known {
	list, err := o.api.ListSecurityProfiles(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("profile listing unusable, result carries no annotations")
		return []profiles.Known{}
	}
	return profiles.ManagedView(list)
}
