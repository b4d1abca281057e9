// Package pointer implements the pointer and click capture channel: a fixed
// rate polling loop for position, a button listener, and the cursor catalog,
// flushed as JSON streams when the channel stops.
package pointer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/offlinefirst/motiontrack/pkg/capture"
	"github.com/offlinefirst/motiontrack/pkg/cursors"
	"github.com/offlinefirst/motiontrack/pkg/logging"
	"github.com/offlinefirst/motiontrack/pkg/permissions"
	"github.com/offlinefirst/motiontrack/pkg/track"
)

// DefaultPollHz is the sampling rate of the polling loop.
const DefaultPollHz = 120

// Options configure a pointer channel.
type Options struct {
	ID       string
	PollHz   float64
	Platform Platform
	Lookup   permissions.LookupEnvFunc
	Clock    func() time.Time
	Sleeper  func(context.Context, time.Duration) error
	Logger   *slog.Logger
}

// Paths are the files a pointer channel writes for one segment.
type Paths struct {
	Moves      string
	Clicks     string
	Catalog    string
	CursorsDir string
}

// PathsFor derives the artifact names for segment n under dir.
func PathsFor(dir string, n int) Paths {
	prefix := filepath.Join(dir, fmt.Sprintf("recording-%d", n))
	return Paths{
		Moves:      prefix + "-mouse-moves.json",
		Clicks:     prefix + "-mouse-clicks.json",
		Catalog:    prefix + "-cursors.json",
		CursorsDir: prefix + "-cursors",
	}
}

// Channel samples the pointer at a fixed rate and records button
// transitions.
type Channel struct {
	capture.Lifecycle

	id       string
	interval time.Duration
	platform Platform
	lookup   permissions.LookupEnvFunc
	clock    func() time.Time
	sleeper  func(context.Context, time.Duration) error
	logger   *slog.Logger

	init       capture.InitOptions
	paths      Paths
	catalog    *cursors.Catalog
	moves      buffer[track.Sample]
	clicks     buffer[track.Click]
	controller *capture.Controller

	cancel      context.CancelFunc
	unsubscribe func()
	done        chan struct{}
	faultOnce   sync.Once
	teardown    sync.Once

	stopMu  sync.Mutex
	stopped bool
	output  capture.Output
	stopErr error
}

var _ capture.Channel = (*Channel)(nil)

// New validates options and constructs an uninitialised channel.
func New(opts Options) (*Channel, error) {
	pollHz := opts.PollHz
	if pollHz == 0 {
		pollHz = DefaultPollHz
	}
	if pollHz < 0 || pollHz > 1000 {
		return nil, capture.NewConfigError("poll_hz", "must be within (0, 1000], got %g", pollHz)
	}
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = "pointer"
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = defaultSleeper
	}
	platform := opts.Platform
	if platform == nil {
		platform = NewSynthetic(clock, 750*time.Millisecond)
	}
	return &Channel{
		id:       id,
		interval: time.Duration(float64(time.Second) / pollHz),
		platform: platform,
		lookup:   opts.Lookup,
		clock:    clock,
		sleeper:  sleeper,
		logger:   logging.ForChannel(opts.Logger, id, capture.KindPointer.String()),
	}, nil
}

func (c *Channel) ID() string              { return c.id }
func (c *Channel) Kind() capture.Kind      { return capture.KindPointer }
func (c *Channel) SupportsPause() bool     { return true }
func (c *Channel) Interval() time.Duration { return c.interval }

// Paths returns the artifact locations chosen at Initialize.
func (c *Channel) Paths() Paths {
	return c.paths
}

// Catalog exposes the session cursor catalog. It is nil before Initialize.
func (c *Channel) Catalog() *cursors.Catalog {
	return c.catalog
}

// Initialize allocates output paths and verifies the directory is writable.
func (c *Channel) Initialize(ctx context.Context, opts capture.InitOptions) error {
	if state := c.State(); state != capture.StateUninitialized {
		return &capture.TransitionError{From: state, To: capture.StateInitialized}
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		c.Fail()
		return capture.NewConfigError("output_dir", "must not be empty")
	}
	if err := capture.ProbeWritable(opts.OutputDir); err != nil {
		c.Fail()
		return capture.NewConfigError("output_dir", "%s is not writable: %v", opts.OutputDir, err)
	}
	if opts.TimeOrigin.IsZero() {
		opts.TimeOrigin = c.clock()
	}
	c.init = opts
	c.paths = PathsFor(opts.OutputDir, opts.SegmentIndex)
	c.catalog = cursors.NewCatalog(c.paths.CursorsDir)
	return c.Transition(capture.StateInitialized)
}

// Start checks input-monitoring consent, registers the button listener and
// launches the polling loop.
func (c *Channel) Start(ctx context.Context) error {
	if state := c.State(); state != capture.StateInitialized {
		return &capture.TransitionError{From: state, To: capture.StateActive}
	}
	probe := permissions.ProbeAccessibility(c.lookup)
	if probe.Denied() {
		c.Fail()
		return &capture.PermissionError{Channel: c.id, Capability: string(permissions.Accessibility), Message: probe.Message}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	unsubscribe, err := c.platform.SubscribeButtons(loopCtx, c.onButton)
	if err != nil {
		cancel()
		c.Fail()
		return fmt.Errorf("subscribe button listener: %w", err)
	}

	c.controller = capture.NewController(c.clock)
	c.cancel = cancel
	c.unsubscribe = unsubscribe
	c.done = make(chan struct{})
	if err := c.Transition(capture.StateActive); err != nil {
		cancel()
		unsubscribe()
		close(c.done)
		return err
	}
	go c.run(loopCtx)
	c.logger.Info("pointer capture started", "interval", c.interval, "dir", c.init.OutputDir)
	return nil
}

// Pause suspends polling. The button listener stays registered.
func (c *Channel) Pause(ctx context.Context) error {
	if err := c.Transition(capture.StatePaused); err != nil {
		return err
	}
	c.controller.Pause("pause requested")
	return nil
}

// Resume restarts polling after Pause.
func (c *Channel) Resume(ctx context.Context) error {
	if err := c.Transition(capture.StateActive); err != nil {
		return err
	}
	c.controller.Resume("resume requested")
	return nil
}

// Stop ends polling, joins the loop and flushes the three streams. Repeated
// calls return the first result.
func (c *Channel) Stop(ctx context.Context) (capture.Output, error) {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()
	if c.stopped {
		return c.output, c.stopErr
	}
	if c.done == nil {
		state := c.State()
		return capture.Output{}, &capture.TransitionError{From: state, To: capture.StateStopped}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.teardown.Do(func() {
		c.controller.Kill(nil)
		c.cancel()
		c.unsubscribe()
	})
	select {
	case <-c.done:
	case <-ctx.Done():
		return capture.Output{}, ctx.Err()
	}

	output, err := c.flush()
	c.stopped = true
	c.output = output
	c.stopErr = err
	if c.State() != capture.StateFailed {
		if terr := c.Transition(capture.StateStopped); terr != nil {
			c.logger.Warn("unexpected state at stop", "state", c.State(), "error", terr)
		}
	}
	c.logger.Info("pointer capture stopped",
		"samples", c.moves.len(),
		"clicks", c.clicks.len(),
		"cursors", len(c.catalog.IDs()),
		"error", err,
	)
	return output, err
}

func (c *Channel) run(ctx context.Context) {
	err := c.loop(ctx)
	close(c.done)
	if err != nil {
		c.fault(err)
	}
}

// loop returns nil when stopped and an error when the platform fails.
func (c *Channel) loop(ctx context.Context) error {
	for {
		if err := c.controller.Wait(ctx); err != nil {
			return nil
		}
		started := c.clock()
		if err := c.sample(started); err != nil {
			return err
		}
		if err := c.sleeper(ctx, c.interval-c.clock().Sub(started)); err != nil {
			return nil
		}
	}
}

func (c *Channel) sample(at time.Time) error {
	x, y, err := c.platform.Position()
	if err != nil {
		return fmt.Errorf("read pointer position: %w", err)
	}
	id, err := c.platform.CurrentCursor()
	if err != nil {
		c.logger.Debug("cursor lookup failed", "error", err)
		id = ""
	}
	if id != "" {
		c.register(id)
	}
	c.moves.append(track.Sample{
		X:               x,
		Y:               y,
		CursorID:        id,
		ActiveModifiers: normalizeModifiers(c.platform.Modifiers()),
		ProcessTimeMs:   capture.SinceOriginMs(c.init.TimeOrigin, at),
		WallClockMs:     at.UnixMilli(),
	})
	return nil
}

func (c *Channel) register(id string) {
	if c.catalog.Known(id) {
		return
	}
	if _, ok := c.catalog.LookupOrRegister(id, c.platform.CaptureCursor); !ok {
		c.logger.Warn("cursor image unavailable", "cursor", id, "error", c.catalog.Failure(id))
	}
}

func (c *Channel) onButton(ev ButtonEvent) {
	if !ev.Button.Valid() {
		c.logger.Warn("dropping click with unknown button", "button", string(ev.Button))
		return
	}
	if ev.Phase != track.PhaseDown && ev.Phase != track.PhaseUp {
		c.logger.Warn("dropping click with unknown phase", "phase", string(ev.Phase))
		return
	}
	count := ev.ClickCount
	if count < 1 {
		count = 1
	}
	at := ev.At
	if at.IsZero() {
		at = c.clock()
	}
	mods := ev.Modifiers
	if mods == nil {
		mods = c.platform.Modifiers()
	}
	c.clicks.append(track.Click{
		X:               ev.X,
		Y:               ev.Y,
		Button:          ev.Button,
		Phase:           ev.Phase,
		ClickCount:      count,
		ActiveModifiers: normalizeModifiers(mods),
		ProcessTimeMs:   capture.SinceOriginMs(c.init.TimeOrigin, at),
		WallClockMs:     at.UnixMilli(),
	})
}

func (c *Channel) fault(err error) {
	c.faultOnce.Do(func() {
		if !c.Fail() {
			return
		}
		c.logger.Error("pointer capture failed", "error", err)
		if c.init.OnFault != nil {
			c.init.OnFault(fmt.Errorf("%s: %w", c.id, err))
		}
	})
}

func (c *Channel) flush() (capture.Output, error) {
	output := capture.Output{
		ChannelID: c.id,
		Kind:      capture.KindPointer.String(),
		Segments:  c.controller.Segments(c.init.TimeOrigin, c.init.SegmentIndex),
	}
	clicks := c.clicks.snapshot()
	sort.SliceStable(clicks, func(i, j int) bool {
		return clicks[i].ProcessTimeMs < clicks[j].ProcessTimeMs
	})

	var errs []error
	write := func(path string, v any) {
		if err := track.WriteJSON(path, v); err != nil {
			errs = append(errs, &capture.SerializationError{Channel: c.id, Path: path, Err: err})
			return
		}
		output.Files = append(output.Files, path)
	}
	write(c.paths.Moves, c.moves.snapshot())
	write(c.paths.Clicks, clicks)
	write(c.paths.Catalog, c.catalog.Snapshot())
	if info, err := os.Stat(c.paths.CursorsDir); err == nil && info.IsDir() {
		output.Files = append(output.Files, c.paths.CursorsDir)
	}
	return output, errors.Join(errs...)
}

func normalizeModifiers(mods []string) []string {
	if mods == nil {
		return []string{}
	}
	return mods
}

func defaultSleeper(ctx context.Context, wait time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
