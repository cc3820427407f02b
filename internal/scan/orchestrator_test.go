package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matztam/mikrotik-wifi-manager/internal/settings"
	"github.com/matztam/mikrotik-wifi-manager/pkg/routeros"
)

type fakeRouter struct {
	iface    routeros.WirelessInterface
	found    bool
	findErr  error
	patchErr error

	files        []routeros.File
	listFilesErr error
	profiles     []routeros.SecurityProfile
	profilesErr  error

	patches      []routeros.WirelessInterfacePatch
	triggers     []string
	removedFiles []string

	listCalls int
}

func (f *fakeRouter) FindWirelessInterface(context.Context, string) (routeros.WirelessInterface, bool, error) {
	return f.iface, f.found, f.findErr
}

func (f *fakeRouter) PatchWirelessInterface(_ context.Context, _ string, p routeros.WirelessInterfacePatch) error {
	f.patches = append(f.patches, p)
	return f.patchErr
}

func (f *fakeRouter) TriggerScan(_ context.Context, ifaceName string, _ int, _ string) {
	f.triggers = append(f.triggers, ifaceName)
}

func (f *fakeRouter) ListFiles(context.Context) ([]routeros.File, error) {
	f.listCalls++
	return f.files, f.listFilesErr
}

func (f *fakeRouter) RemoveFile(_ context.Context, id string) error {
	f.removedFiles = append(f.removedFiles, id)
	return nil
}

func (f *fakeRouter) ListSecurityProfiles(context.Context) ([]routeros.SecurityProfile, error) {
	return f.profiles, f.profilesErr
}

type fakeStorage struct {
	ensureErr error
	ensured   int
	removed   int
}

func (f *fakeStorage) Ensure(context.Context) error { f.ensured++; return f.ensureErr }
func (f *fakeStorage) Remove(context.Context)       { f.removed++ }

type fixedSettings struct{ s settings.Settings }

func (f fixedSettings) Get() settings.Settings { return f.s }

type countingObserver struct {
	started, delivered, timedOut int
}

func (c *countingObserver) ScanStarted()   { c.started++ }
func (c *countingObserver) ScanDelivered() { c.delivered++ }
func (c *countingObserver) ScanTimedOut()  { c.timedOut++ }

type harness struct {
	orch    *Orchestrator
	router  *fakeRouter
	storage *fakeStorage
	obs     *countingObserver
	clock   time.Time
	settled []time.Duration
}

func newHarness(t *testing.T, mutate func(*settings.Settings)) *harness {
	t.Helper()
	cfg := settings.Defaults()
	if mutate != nil {
		mutate(&cfg)
	}
	h := &harness{
		router:  &fakeRouter{iface: routeros.WirelessInterface{ID: "*1", Name: cfg.Router.WLANInterface, Band: cfg.Bands.Band2GHz}, found: true},
		storage: &fakeStorage{},
		obs:     &countingObserver{},
		clock:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.orch = NewOrchestrator(h.router, h.storage, fixedSettings{cfg}, h.obs, zerolog.Nop())
	h.orch.now = func() time.Time { return h.clock }
	h.orch.settle = func(d time.Duration) { h.settled = append(h.settled, d) }
	return h
}

func (h *harness) advance(d time.Duration) { h.clock = h.clock.Add(d) }

func TestStartAcknowledgesSchedule(t *testing.T) {
	h := newHarness(t, nil)

	ack, err := h.orch.Start(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "started", ack.Status)
	assert.NotEmpty(t, ack.ScanID)
	assert.Equal(t, int64(5000), ack.DurationMs)
	assert.Equal(t, int64(5000), ack.MinReadyMs)
	assert.Equal(t, int64(11000), ack.TimeoutMs, "duration + grace + one poll interval")
	assert.Equal(t, int64(1000), ack.PollIntervalMs)
	assert.Equal(t, CSVFilename, ack.CSVFilename)

	require.Len(t, h.router.triggers, 1)
	assert.Equal(t, "wlan1", h.router.triggers[0])
	assert.Equal(t, 1, h.storage.ensured)
	assert.Equal(t, 1, h.obs.started)
}

func TestStartDefaultBandSkipsSwitch(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.orch.Start(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, h.router.patches, "interface already on the requested band")
	assert.Empty(t, h.settled)
}

func TestStartSwitchesBandAndSettles(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.orch.Start(context.Background(), "5ghz-a/n/ac")
	require.NoError(t, err)

	require.Len(t, h.router.patches, 1)
	assert.Equal(t, "5ghz-a/n/ac", h.router.patches[0].Band)
	require.Len(t, h.settled, 1)
	assert.Equal(t, 500*time.Millisecond, h.settled[0])
}

func TestStartProceedsWhenBandSwitchFails(t *testing.T) {
	h := newHarness(t, nil)
	h.router.patchErr = errors.New("boom")

	ack, err := h.orch.Start(context.Background(), "5ghz-a/n/ac")
	require.NoError(t, err)
	assert.Equal(t, "started", ack.Status)
	require.Len(t, h.router.triggers, 1)
}

func TestStartRejectsConcurrentSession(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.orch.Start(context.Background(), "")
	require.NoError(t, err)

	ack, err := h.orch.Start(context.Background(), "")
	require.ErrorIs(t, err, ErrAlreadyScanning)
	assert.Equal(t, "already_scanning", ack.Status)
	assert.Len(t, h.router.triggers, 1, "second start must not reach the router")
	assert.Equal(t, 1, h.obs.started)
}

func TestStartInterfaceMissing(t *testing.T) {
	h := newHarness(t, nil)
	h.router.found = false

	_, err := h.orch.Start(context.Background(), "")
	require.ErrorIs(t, err, ErrInterfaceNotFound)
	assert.Empty(t, h.router.triggers)
}

func TestStartInterfaceLookupErrorPropagates(t *testing.T) {
	h := newHarness(t, nil)
	boom := errors.New("connection refused")
	h.router.findErr = boom

	_, err := h.orch.Start(context.Background(), "")
	require.ErrorIs(t, err, boom)
	assert.Empty(t, h.router.triggers)
}

func TestStartAbortsWhenStorageUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	h.storage.ensureErr = errors.New("listing failed")

	_, err := h.orch.Start(context.Background(), "")
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Empty(t, h.router.triggers, "no trigger without confirmed storage")

	h.storage.ensureErr = nil
	_, err = h.orch.Start(context.Background(), "")
	require.NoError(t, err, "failed start must not leave a stuck session")
}

func TestResultWithoutSession(t *testing.T) {
	h := newHarness(t, nil)

	out := h.orch.Result(context.Background())
	assert.Equal(t, StatusNoResult, out.Status)
	assert.Nil(t, out.Result)
	assert.Zero(t, h.router.listCalls)
}

func TestResultPendingBeforeMinReady(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.orch.Start(context.Background(), "")
	require.NoError(t, err)

	h.advance(1 * time.Second)
	out := h.orch.Result(context.Background())
	assert.Equal(t, StatusPending, out.Status)
	assert.Zero(t, h.router.listCalls, "cooldown polls must not touch the router")
}

func TestResultPendingWhenArtifactAbsent(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.orch.Start(context.Background(), "")
	require.NoError(t, err)

	h.advance(6 * time.Second)
	out := h.orch.Result(context.Background())
	assert.Equal(t, StatusPending, out.Status)
	assert.Equal(t, 1, h.router.listCalls)
}

func TestResultPendingWhenArtifactEmpty(t *testing.T) {
	h := newHarness(t, nil)
	h.router.files = []routeros.File{{ID: "*F", Name: CSVFilename, Contents: ""}}
	_, err := h.orch.Start(context.Background(), "")
	require.NoError(t, err)

	h.advance(6 * time.Second)
	out := h.orch.Result(context.Background())
	assert.Equal(t, StatusPending, out.Status)
}

func TestResultPendingWhenListingFails(t *testing.T) {
	h := newHarness(t, nil)
	h.router.listFilesErr = errors.New("timeout")
	_, err := h.orch.Start(context.Background(), "")
	require.NoError(t, err)

	h.advance(6 * time.Second)
	out := h.orch.Result(context.Background())
	assert.Equal(t, StatusPending, out.Status, "a flaky listing retries on the next poll")
}

func TestResultDeliveryAndConfirmedPurge(t *testing.T) {
	h := newHarness(t, nil)
	h.router.files = []routeros.File{
		{ID: "*F", Name: CSVFilename, Contents: "SSID,SIGNAL\nhome,-52\n"},
		{ID: "*G", Name: "other.txt", Contents: "x"},
	}
	h.router.profiles = []routeros.SecurityProfile{
		{Name: "client-home", Comment: "wifi-manager:ssid=home", Mode: "dynamic-keys", AuthenticationTypes: "wpa2-psk"},
		{Name: "default", Comment: ""},
	}

	ack, err := h.orch.Start(context.Background(), "5ghz-a/n/ac")
	require.NoError(t, err)

	h.advance(6 * time.Second)
	out := h.orch.Result(context.Background())
	require.Equal(t, StatusReady, out.Status)
	require.NotNil(t, out.Result)
	assert.Equal(t, ack.ScanID, out.Result.ScanID)
	assert.Equal(t, "SSID,SIGNAL\nhome,-52\n", out.Result.CSV)
	assert.Equal(t, "5ghz-a/n/ac", out.Result.Band)
	require.Len(t, out.Result.Profiles, 1)
	assert.Equal(t, "home", out.Result.Profiles[0].SSID)

	assert.Equal(t, []string{"*F"}, h.router.removedFiles, "only the scan artifact is removed")
	assert.Equal(t, 1, h.storage.removed)
	assert.Equal(t, 1, h.obs.delivered)

	h.orch.ConfirmDelivery()
	out = h.orch.Result(context.Background())
	assert.Equal(t, StatusNoResult, out.Status, "a confirmed result is gone")

	_, err = h.orch.Start(context.Background(), "")
	require.NoError(t, err, "delivery ends the session")
}

func TestResultUnconfirmedServedExactlyOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.router.files = []routeros.File{{ID: "*F", Name: CSVFilename, Contents: "csv"}}
	_, err := h.orch.Start(context.Background(), "")
	require.NoError(t, err)

	h.advance(6 * time.Second)
	first := h.orch.Result(context.Background())
	require.Equal(t, StatusReady, first.Status)

	// Response write failed, ConfirmDelivery never ran.
	second := h.orch.Result(context.Background())
	require.Equal(t, StatusReady, second.Status)
	assert.Equal(t, first.Result.CSV, second.Result.CSV)

	third := h.orch.Result(context.Background())
	assert.Equal(t, StatusNoResult, third.Status)
	assert.Equal(t, 1, h.router.listCalls, "cache hits make no remote calls")
}

func TestResultDeliveredWithoutProfileAnnotations(t *testing.T) {
	h := newHarness(t, nil)
	h.router.files = []routeros.File{{ID: "*F", Name: CSVFilename, Contents: "csv"}}
	h.router.profilesErr = errors.New("timeout")
	_, err := h.orch.Start(context.Background(), "")
	require.NoError(t, err)

	h.advance(6 * time.Second)
	out := h.orch.Result(context.Background())
	require.Equal(t, StatusReady, out.Status)
	assert.Empty(t, out.Result.Profiles)
}

func TestResultTimeout(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.orch.Start(context.Background(), "")
	require.NoError(t, err)

	h.advance(12 * time.Second)
	out := h.orch.Result(context.Background())
	assert.Equal(t, StatusTimeout, out.Status)
	assert.Zero(t, h.router.listCalls, "an expired session is not probed")
	assert.Equal(t, 1, h.storage.removed)
	assert.Equal(t, 1, h.obs.timedOut)

	out = h.orch.Result(context.Background())
	assert.Equal(t, StatusNoResult, out.Status)
	assert.Equal(t, 1, h.storage.removed, "cleanup runs once")

	_, err = h.orch.Start(context.Background(), "")
	require.NoError(t, err, "timeout frees the session slot")
}

// Full poll sequence at realistic offsets against a 5 s scan with a 5 s
// grace window and 1 s poll interval.
func TestResultPollSequence(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.orch.Start(context.Background(), "5ghz-a/n/ac")
	require.NoError(t, err)

	h.advance(1 * time.Second)
	assert.Equal(t, StatusPending, h.orch.Result(context.Background()).Status)
	assert.Zero(t, h.router.listCalls)

	h.router.files = []routeros.File{{ID: "*F", Name: CSVFilename, Contents: "csv"}}
	h.advance(5 * time.Second)
	out := h.orch.Result(context.Background())
	require.Equal(t, StatusReady, out.Status)
	assert.Equal(t, "5ghz-a/n/ac", out.Result.Band)

	h.orch.ConfirmDelivery()
	assert.Equal(t, StatusNoResult, h.orch.Result(context.Background()).Status)
}

func TestTimingFromSettings(t *testing.T) {
	tm := TimingFromSettings(settings.Scan{DurationSeconds: 3, GraceMs: 2000, PollIntervalMs: 500})
	assert.Equal(t, 3*time.Second, tm.Duration)
	assert.Equal(t, 3*time.Second, tm.MinReady)
	assert.Equal(t, 5500*time.Millisecond, tm.Timeout)
	assert.Equal(t, 500*time.Millisecond, tm.PollInterval)
}
