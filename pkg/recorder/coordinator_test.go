package recorder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/motiontrack/pkg/capture"
	"github.com/offlinefirst/motiontrack/pkg/devices"
	"github.com/offlinefirst/motiontrack/pkg/runmanifest"
	"github.com/offlinefirst/motiontrack/pkg/sessionstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type fakeChannel struct {
	capture.Lifecycle
	id       string
	kind     capture.Kind
	pause    bool
	startErr error

	mu      sync.Mutex
	init    capture.InitOptions
	starts  int
	stops   int
	pauses  int
	resumes int
}

func newFake(id string) *fakeChannel {
	return &fakeChannel{id: id, kind: capture.KindDisplay}
}

func (f *fakeChannel) ID() string          { return f.id }
func (f *fakeChannel) Kind() capture.Kind  { return f.kind }
func (f *fakeChannel) SupportsPause() bool { return f.pause }

func (f *fakeChannel) Initialize(_ context.Context, opts capture.InitOptions) error {
	f.mu.Lock()
	f.init = opts
	f.mu.Unlock()
	return f.Transition(capture.StateInitialized)
}

func (f *fakeChannel) Start(context.Context) error {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
	if f.startErr != nil {
		f.Fail()
		return f.startErr
	}
	if err := os.WriteFile(f.path(), []byte("partial"), 0o644); err != nil {
		return err
	}
	return f.Transition(capture.StateActive)
}

func (f *fakeChannel) Pause(context.Context) error {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
	return f.Transition(capture.StatePaused)
}

func (f *fakeChannel) Resume(context.Context) error {
	f.mu.Lock()
	f.resumes++
	f.mu.Unlock()
	return f.Transition(capture.StateActive)
}

func (f *fakeChannel) Stop(context.Context) (capture.Output, error) {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	if f.State() != capture.StateFailed {
		_ = f.Transition(capture.StateStopped)
	}
	return capture.Output{ChannelID: f.id, Kind: f.kind.String(), Files: []string{f.path()}}, nil
}

func (f *fakeChannel) path() string {
	return filepath.Join(f.init.OutputDir, "recording-"+f.id+".bin")
}

func (f *fakeChannel) counts() (starts, stops, pauses, resumes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops, f.pauses, f.resumes
}

type fakeIndex struct {
	mu      sync.Mutex
	entries []sessionstore.Entry
}

func (f *fakeIndex) Record(_ context.Context, e sessionstore.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func newCoordinator(t *testing.T, clock *fakeClock, index Index, channels ...*fakeChannel) *Coordinator {
	t.Helper()
	coord, err := New(Options{
		Inventory: devices.Static{
			DisplayList: []devices.Device{{ID: "display-1"}},
			AudioList:   []devices.Device{{ID: "default"}},
			CameraList:  []devices.Device{{ID: "default"}},
		},
		Build: func(Config) ([]capture.Channel, error) {
			out := make([]capture.Channel, len(channels))
			for i, ch := range channels {
				out[i] = ch
			}
			return out, nil
		},
		Index:    index,
		Clock:    clock.Now,
		NewID:    func() string { return "session-1" },
		Hostname: "test-host",
	})
	require.NoError(t, err)
	return coord
}

func testClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)}
}

func TestStartFailureRollsBackStartedChannels(t *testing.T) {
	outputDir := t.TempDir()
	first, second, third := newFake("first"), newFake("second"), newFake("third")
	cause := errors.New("device busy")
	third.startErr = cause
	coord := newCoordinator(t, testClock(), nil, first, second, third)

	_, err := coord.StartRecording(context.Background(), Config{OutputDir: outputDir, DisplayID: "display-1"})
	require.Error(t, err)

	var startErr *capture.ChannelStartError
	require.True(t, errors.As(err, &startErr))
	assert.Equal(t, "third", startErr.Channel)
	assert.True(t, errors.Is(err, capture.ErrChannelStart))
	assert.True(t, errors.Is(err, cause))

	for _, ch := range []*fakeChannel{first, second} {
		_, stops, _, _ := ch.counts()
		assert.Equal(t, 1, stops, "channel %s", ch.id)
	}
	_, thirdStops, _, _ := third.counts()
	assert.Zero(t, thirdStops)

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial session may remain")
	assert.Equal(t, StateFailed, coord.State())

	_, err = coord.StopRecording(context.Background())
	assert.True(t, errors.Is(err, capture.ErrNotRecording))
}

func TestRestartAfterFailedStart(t *testing.T) {
	outputDir := t.TempDir()
	broken := newFake("broken")
	broken.startErr = errors.New("nope")
	coord := newCoordinator(t, testClock(), nil, broken)
	_, err := coord.StartRecording(context.Background(), Config{OutputDir: outputDir, DisplayID: "display-1"})
	require.Error(t, err)

	healthy := newFake("healthy")
	coord.build = func(Config) ([]capture.Channel, error) { return []capture.Channel{healthy}, nil }
	_, err = coord.StartRecording(context.Background(), Config{OutputDir: outputDir, DisplayID: "display-1"})
	require.NoError(t, err)
	assert.Equal(t, StateActive, coord.State())
}

func TestLifecycleSharesTimeOriginAndWritesManifest(t *testing.T) {
	clock := testClock()
	index := &fakeIndex{}
	screen := newFake("display")
	mic := newFake("microphone")
	mic.kind = capture.KindMicrophone
	mic.pause = true
	coord := newCoordinator(t, clock, index, screen, mic)
	outputDir := t.TempDir()
	origin := clock.Now()

	info, err := coord.StartRecording(context.Background(), Config{OutputDir: outputDir, DisplayID: "display-1", Pointer: true})
	require.NoError(t, err)
	assert.Equal(t, "session-1", info.SessionID)
	assert.Equal(t, origin, info.TimeOrigin)
	assert.Equal(t, origin, screen.init.TimeOrigin)
	assert.Equal(t, origin, mic.init.TimeOrigin)
	assert.Equal(t, info.Dir, screen.init.OutputDir)

	_, err = coord.StartRecording(context.Background(), Config{OutputDir: outputDir, DisplayID: "display-1"})
	assert.True(t, errors.Is(err, capture.ErrAlreadyRecording))

	clock.Advance(2 * time.Second)
	require.NoError(t, coord.PauseRecording(context.Background()))
	assert.Equal(t, StatePaused, coord.State())
	clock.Advance(3 * time.Second)
	assert.Equal(t, 2*time.Second, coord.Duration())
	require.NoError(t, coord.ResumeRecording(context.Background()))
	clock.Advance(time.Second)

	_, _, screenPauses, _ := screen.counts()
	_, _, micPauses, micResumes := mic.counts()
	assert.Zero(t, screenPauses, "channels without pause support keep recording")
	assert.Equal(t, 1, micPauses)
	assert.Equal(t, 1, micResumes)

	bundle, err := coord.StopRecording(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateIdle, coord.State())
	assert.Equal(t, 3*time.Second, bundle.Duration)
	assert.Equal(t, "completed", bundle.State)
	require.Len(t, bundle.Outputs, 2)

	man, err := runmanifest.Load(bundle.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, "session-1", man.SessionID)
	assert.Equal(t, "completed", man.Status.State)
	assert.Equal(t, 3000.0, man.DurationMs)
	require.Len(t, man.Pauses, 1)
	assert.Equal(t, 2000.0, man.Pauses[0].StartMs)
	assert.Equal(t, 5000.0, man.Pauses[0].EndMs)
	require.Len(t, man.Channels, 2)
	assert.Equal(t, "recording-display.bin", man.Channels[0].Files[0])

	again, err := coord.StopRecording(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bundle, again)
	_, stops, _, _ := screen.counts()
	assert.Equal(t, 1, stops, "repeated stop must not stop channels again")

	require.Len(t, index.entries, 1)
	assert.Equal(t, "session-1", index.entries[0].SessionID)
	assert.Equal(t, 2, index.entries[0].Files)
}

func TestConfigValidationAgainstInventory(t *testing.T) {
	outputDir := t.TempDir()
	coord := newCoordinator(t, testClock(), nil, newFake("display"))

	cases := map[string]Config{
		"unknown display": {OutputDir: outputDir, DisplayID: "display-9"},
		"unknown mic":     {OutputDir: outputDir, DisplayID: "display-1", Microphone: DeviceConfig{Enabled: true, DeviceID: "usb"}},
		"unknown camera":  {OutputDir: outputDir, DisplayID: "display-1", Webcam: DeviceConfig{Enabled: true, DeviceID: "usb"}},
		"no output dir":   {DisplayID: "display-1"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := coord.StartRecording(context.Background(), cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, capture.ErrConfig))
			assert.Equal(t, StateIdle, coord.State())
		})
	}
	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOperationsRequireSession(t *testing.T) {
	coord := newCoordinator(t, testClock(), nil, newFake("display"))
	ctx := context.Background()
	assert.True(t, errors.Is(coord.PauseRecording(ctx), capture.ErrNotRecording))
	assert.True(t, errors.Is(coord.ResumeRecording(ctx), capture.ErrNotRecording))
	_, err := coord.StopRecording(ctx)
	assert.True(t, errors.Is(err, capture.ErrNotRecording))
	assert.Zero(t, coord.Duration())
}

func TestResumeWhileActiveIsRejected(t *testing.T) {
	coord := newCoordinator(t, testClock(), nil, newFake("display"))
	_, err := coord.StartRecording(context.Background(), Config{OutputDir: t.TempDir(), DisplayID: "display-1"})
	require.NoError(t, err)
	assert.True(t, errors.Is(coord.ResumeRecording(context.Background()), capture.ErrInvalidTransition))
}

func TestChannelFaultFailsSession(t *testing.T) {
	clock := testClock()
	screen := newFake("display")
	coord := newCoordinator(t, clock, nil, screen)
	_, err := coord.StartRecording(context.Background(), Config{OutputDir: t.TempDir(), DisplayID: "display-1"})
	require.NoError(t, err)

	screen.Fail()
	screen.init.OnFault(errors.New("display: capture lost"))
	require.Eventually(t, func() bool { return coord.State() == StateFailed }, time.Second, time.Millisecond)
	assert.Error(t, coord.PauseRecording(context.Background()))

	bundle, err := coord.StopRecording(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "failed", bundle.State)
	assert.Equal(t, StateIdle, coord.State())

	man, err := runmanifest.Load(bundle.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, "fault", man.Status.Termination)
	assert.Contains(t, man.Status.Errors, "display: capture lost")
	assert.Equal(t, "failed", man.Channels[0].State)
}

func TestDuplicateChannelIDsRejected(t *testing.T) {
	outputDir := t.TempDir()
	coord := newCoordinator(t, testClock(), nil, newFake("same"), newFake("same"))
	_, err := coord.StartRecording(context.Background(), Config{OutputDir: outputDir, DisplayID: "display-1"})
	assert.True(t, errors.Is(err, capture.ErrConfig))
	entries, _ := os.ReadDir(outputDir)
	assert.Empty(t, entries)
}
