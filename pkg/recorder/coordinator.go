// Package recorder coordinates the capture channels of a recording session:
// it validates the request, hands every channel one shared time origin,
// starts them in order, rolls back on failure and collects their output.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/offlinefirst/motiontrack/pkg/capture"
	"github.com/offlinefirst/motiontrack/pkg/devices"
	"github.com/offlinefirst/motiontrack/pkg/logging"
	"github.com/offlinefirst/motiontrack/pkg/runmanifest"
	"github.com/offlinefirst/motiontrack/pkg/sessionstore"
)

// State is the coordinator's session state.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateActive   State = "active"
	StatePaused   State = "paused"
	StateStopping State = "stopping"
	StateFailed   State = "failed"
)

// Index receives an entry for every finished session.
type Index interface {
	Record(ctx context.Context, e sessionstore.Entry) error
}

// Options configure a Coordinator.
type Options struct {
	Inventory  devices.Inventory
	Build      BuildFunc
	Index      Index
	Logger     *slog.Logger
	Clock      func() time.Time
	NewID      func() string
	Hostname   string
	AppVersion string
}

// Info identifies a running session.
type Info struct {
	SessionID  string
	RunID      string
	Dir        string
	TimeOrigin time.Time
}

// Bundle describes a finished session.
type Bundle struct {
	Info
	ManifestPath string
	State        string
	Duration     time.Duration
	Outputs      []capture.Output
}

// Coordinator owns at most one recording session at a time.
type Coordinator struct {
	inventory  devices.Inventory
	build      BuildFunc
	index      Index
	logger     *slog.Logger
	clock      func() time.Time
	newID      func() string
	hostname   string
	appVersion string

	mu      sync.Mutex
	state   State
	session *session
	last    *Bundle
	lastErr error
}

type session struct {
	Info
	cfg      Config
	layout   runmanifest.Layout
	manifest runmanifest.Manifest
	channels []capture.Channel
	started  []capture.Channel

	pausedAt    time.Time
	pausedTotal time.Duration
	pauses      []capture.Segment
	faults      []error
}

// New constructs an idle coordinator.
func New(opts Options) (*Coordinator, error) {
	if opts.Build == nil {
		return nil, errors.New("channel builder must not be nil")
	}
	inventory := opts.Inventory
	if inventory == nil {
		inventory = devices.Default()
	}
	logger := logging.OrDiscard(opts.Logger)
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	hostname := opts.Hostname
	if hostname == "" {
		if name, err := os.Hostname(); err == nil {
			hostname = name
		}
	}
	return &Coordinator{
		inventory:  inventory,
		build:      opts.Build,
		index:      opts.Index,
		logger:     logger,
		clock:      clock,
		newID:      newID,
		hostname:   hostname,
		appVersion: opts.AppVersion,
		state:      StateIdle,
	}, nil
}

// State returns the current session state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the running session, if any.
func (c *Coordinator) Session() (Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Info{}, false
	}
	return c.session.Info, true
}

// Duration reports recorded time excluding paused spans. Once stopped it
// reports the final duration of the last session.
func (c *Coordinator) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		if c.last != nil {
			return c.last.Duration
		}
		return 0
	}
	return c.session.duration(c.clock())
}

// StartRecording validates cfg, initialises every channel with a shared time
// origin and starts them in order. If any channel fails, the channels already
// started are stopped and the session directory is removed.
func (c *Coordinator) StartRecording(ctx context.Context, cfg Config) (Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle:
	case StateFailed:
		if c.session != nil {
			c.finish(ctx)
		}
	default:
		return Info{}, fmt.Errorf("%w: session is %s", capture.ErrAlreadyRecording, c.state)
	}
	previous := c.state
	c.state = StateStarting

	if err := cfg.Validate(ctx, c.inventory); err != nil {
		c.state = previous
		return Info{}, err
	}

	origin := c.clock()
	runID, err := runmanifest.ResolveRunID(cfg.OutputDir, origin)
	if err != nil {
		c.state = previous
		return Info{}, capture.NewConfigError("output_dir", "%v", err)
	}
	layout := runmanifest.BuildLayout(cfg.OutputDir, runID)
	if err := runmanifest.EnsureFilesystem(layout); err != nil {
		c.state = previous
		return Info{}, capture.NewConfigError("output_dir", "%v", err)
	}

	s := &session{
		Info: Info{
			SessionID:  c.newID(),
			RunID:      runID,
			Dir:        layout.Root,
			TimeOrigin: origin,
		},
		cfg:    cfg,
		layout: layout,
	}
	logger := logging.ForSession(c.logger, s.SessionID, s.RunID)

	channels, err := c.build(cfg)
	if err == nil {
		err = checkUniqueIDs(channels)
	}
	if err != nil {
		c.discard(logger, s)
		c.state = StateFailed
		return Info{}, err
	}
	s.channels = channels

	for _, ch := range channels {
		err := ch.Initialize(ctx, capture.InitOptions{
			OutputDir:    layout.Root,
			SegmentIndex: cfg.SegmentIndex,
			TimeOrigin:   origin,
			OnFault:      c.faultHandler(s.SessionID, ch.ID()),
		})
		if err != nil {
			return Info{}, c.rollback(ctx, logger, s, ch, err)
		}
	}
	for _, ch := range channels {
		if err := ch.Start(ctx); err != nil {
			return Info{}, c.rollback(ctx, logger, s, ch, err)
		}
		s.started = append(s.started, ch)
		logger.Debug("channel started", "channel", ch.ID(), "kind", ch.Kind().String())
	}

	s.manifest = runmanifest.New(runmanifest.Options{
		SessionID:    s.SessionID,
		RunID:        runID,
		CreatedAt:    origin,
		TimeOrigin:   origin,
		Hostname:     c.hostname,
		AppVersion:   c.appVersion,
		SegmentIndex: cfg.SegmentIndex,
		Settings:     cfg.settings(),
	})
	startedAt := origin.UTC()
	s.manifest.Status.StartedAt = &startedAt
	s.manifest.Status.State = "recording"
	s.transition(StateActive, "start", origin)
	if err := runmanifest.Save(s.manifest, layout.ManifestPath); err != nil {
		logger.Warn("write initial manifest", "error", err)
	}

	c.session = s
	c.state = StateActive
	logger.Info("recording started", "dir", layout.Root, "channels", len(channels))
	return s.Info, nil
}

// PauseRecording pauses every channel that supports it. Channels without
// pause support keep recording.
func (c *Coordinator) PauseRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return c.notActive("pause")
	}
	s := c.session
	var errs []error
	for _, ch := range s.started {
		if !ch.SupportsPause() {
			continue
		}
		if err := ch.Pause(ctx); err != nil {
			errs = append(errs, fmt.Errorf("pause %s: %w", ch.ID(), err))
		}
	}
	now := c.clock()
	s.pausedAt = now
	s.transition(StatePaused, "pause", now)
	c.state = StatePaused
	c.logger.Info("recording paused", "session", s.SessionID)
	return errors.Join(errs...)
}

// ResumeRecording resumes the channels paused by PauseRecording.
func (c *Coordinator) ResumeRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused {
		return c.notActive("resume")
	}
	s := c.session
	var errs []error
	for _, ch := range s.started {
		if !ch.SupportsPause() || ch.State() != capture.StatePaused {
			continue
		}
		if err := ch.Resume(ctx); err != nil {
			errs = append(errs, fmt.Errorf("resume %s: %w", ch.ID(), err))
		}
	}
	now := c.clock()
	s.closePause(now)
	s.transition(StateActive, "resume", now)
	c.state = StateActive
	c.logger.Info("recording resumed", "session", s.SessionID)
	return errors.Join(errs...)
}

// StopRecording stops every channel, writes the session manifest and returns
// the bundle. Calling it again after the session ended returns the same
// bundle and error.
func (c *Coordinator) StopRecording(ctx context.Context) (Bundle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateActive, StatePaused:
	case StateFailed:
		if c.session == nil {
			return Bundle{}, fmt.Errorf("%w: last start failed", capture.ErrNotRecording)
		}
	case StateIdle:
		if c.last != nil {
			return *c.last, c.lastErr
		}
		return Bundle{}, capture.ErrNotRecording
	default:
		return Bundle{}, fmt.Errorf("%w: session is %s", capture.ErrInvalidTransition, c.state)
	}
	bundle, err := c.finish(ctx)
	return bundle, err
}

// finish stops the current session's channels and records the result. The
// caller holds c.mu.
func (c *Coordinator) finish(ctx context.Context) (Bundle, error) {
	s := c.session
	logger := logging.ForSession(c.logger, s.SessionID, s.RunID)
	failed := c.state == StateFailed
	c.state = StateStopping

	now := c.clock()
	s.closePause(now)
	s.transition(StateStopping, "stop", now)

	var errs []error
	outputs := make([]capture.Output, 0, len(s.started))
	for _, ch := range s.started {
		out, err := ch.Stop(ctx)
		if out.ChannelID == "" {
			out.ChannelID = ch.ID()
			out.Kind = ch.Kind().String()
		}
		outputs = append(outputs, out)
		s.manifest.AddChannel(s.layout, out, ch.State(), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", ch.ID(), err))
			logger.Warn("channel stop failed", "channel", ch.ID(), "error", err)
		}
	}

	ended := c.clock()
	duration := s.duration(ended)
	endedUTC := ended.UTC()
	s.manifest.DurationMs = float64(duration) / float64(time.Millisecond)
	s.manifest.Pauses = s.pauses
	s.manifest.Status.EndedAt = &endedUTC
	s.manifest.Status.Termination = "stopped"
	state := "completed"
	if failed {
		state = "failed"
		s.manifest.Status.Termination = "fault"
	}
	for _, f := range s.faults {
		s.manifest.Status.Errors = append(s.manifest.Status.Errors, f.Error())
	}
	for _, err := range errs {
		s.manifest.Status.Errors = append(s.manifest.Status.Errors, err.Error())
	}
	if len(errs) > 0 && !failed {
		state = "completed_with_errors"
	}
	s.manifest.Status.State = state
	s.manifest.Status.Summary = fmt.Sprintf("%d channel(s), %.1fs recorded", len(outputs), duration.Seconds())
	s.transition(StateIdle, state, ended)
	if err := runmanifest.Save(s.manifest, s.layout.ManifestPath); err != nil {
		errs = append(errs, err)
	}

	bundle := Bundle{
		Info:         s.Info,
		ManifestPath: s.layout.ManifestPath,
		State:        state,
		Duration:     duration,
		Outputs:      outputs,
	}
	err := errors.Join(errs...)
	c.recordIndex(ctx, logger, bundle, ended, err)

	c.session = nil
	c.last = &bundle
	c.lastErr = err
	c.state = StateIdle
	logger.Info("recording stopped", "state", state, "duration", duration, "error", err)
	return bundle, err
}

func (c *Coordinator) recordIndex(ctx context.Context, logger *slog.Logger, b Bundle, ended time.Time, stopErr error) {
	if c.index == nil {
		return
	}
	files := 0
	for _, out := range b.Outputs {
		files += len(out.Files)
	}
	entry := sessionstore.Entry{
		SessionID:    b.SessionID,
		RunID:        b.RunID,
		Dir:          b.Dir,
		ManifestPath: b.ManifestPath,
		State:        b.State,
		StartedAt:    b.TimeOrigin,
		EndedAt:      ended,
		DurationMs:   float64(b.Duration) / float64(time.Millisecond),
		Channels:     len(b.Outputs),
		Files:        files,
	}
	if stopErr != nil {
		entry.Error = stopErr.Error()
	}
	if err := c.index.Record(ctx, entry); err != nil {
		logger.Warn("index session", "error", err)
	}
}

// rollback undoes a failed start. Only channels whose Start succeeded are
// stopped; the session directory and everything in it is removed.
func (c *Coordinator) rollback(ctx context.Context, logger *slog.Logger, s *session, failing capture.Channel, cause error) error {
	startErr := &capture.ChannelStartError{Channel: failing.ID(), Kind: failing.Kind(), Err: cause}
	logger.Error("channel failed to start; rolling back", "channel", failing.ID(), "started", len(s.started), "error", cause)

	var stopErrs []error
	for i := len(s.started) - 1; i >= 0; i-- {
		ch := s.started[i]
		if _, err := ch.Stop(ctx); err != nil {
			stopErrs = append(stopErrs, fmt.Errorf("rollback stop %s: %w", ch.ID(), err))
		}
	}
	c.discard(logger, s)
	c.state = StateFailed
	c.last = nil
	c.lastErr = startErr

	if len(stopErrs) > 0 {
		return errors.Join(append([]error{startErr}, stopErrs...)...)
	}
	return startErr
}

func (c *Coordinator) discard(logger *slog.Logger, s *session) {
	if err := os.RemoveAll(s.layout.Root); err != nil {
		logger.Warn("remove partial session", "dir", s.layout.Root, "error", err)
	}
}

// faultHandler returns the OnFault callback for one channel. Faults are
// handled on their own goroutine so channels may report them while the
// coordinator holds its lock.
func (c *Coordinator) faultHandler(sessionID, channelID string) func(error) {
	return func(err error) {
		go c.handleFault(sessionID, channelID, err)
	}
}

func (c *Coordinator) handleFault(sessionID, channelID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	if s == nil || s.SessionID != sessionID {
		return
	}
	s.faults = append(s.faults, err)
	if c.state != StateActive && c.state != StatePaused {
		return
	}
	now := c.clock()
	s.closePause(now)
	s.transition(StateFailed, channelID+" fault", now)
	c.state = StateFailed
	c.logger.Error("channel fault; session failed", "session", sessionID, "channel", channelID, "error", err)
}

func (c *Coordinator) notActive(op string) error {
	if c.session == nil {
		return fmt.Errorf("%s: %w", op, capture.ErrNotRecording)
	}
	return fmt.Errorf("%s: %w: session is %s", op, capture.ErrInvalidTransition, c.state)
}

func (s *session) transition(state State, reason string, at time.Time) {
	s.manifest.Status.Timeline = append(s.manifest.Status.Timeline, runmanifest.TimelineEntry{
		State:     string(state),
		Reason:    reason,
		Timestamp: at.UTC(),
	})
}

func (s *session) closePause(now time.Time) {
	if s.pausedAt.IsZero() {
		return
	}
	s.pausedTotal += now.Sub(s.pausedAt)
	s.pauses = append(s.pauses, capture.Segment{
		Index:   len(s.pauses),
		StartMs: capture.SinceOriginMs(s.TimeOrigin, s.pausedAt),
		EndMs:   capture.SinceOriginMs(s.TimeOrigin, now),
	})
	s.pausedAt = time.Time{}
}

func (s *session) duration(now time.Time) time.Duration {
	d := now.Sub(s.TimeOrigin) - s.pausedTotal
	if !s.pausedAt.IsZero() {
		d -= now.Sub(s.pausedAt)
	}
	if d < 0 {
		return 0
	}
	return d
}

func checkUniqueIDs(channels []capture.Channel) error {
	seen := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		if _, dup := seen[ch.ID()]; dup {
			return capture.NewConfigError("channels", "duplicate channel id %q", ch.ID())
		}
		seen[ch.ID()] = struct{}{}
	}
	if len(channels) == 0 {
		return capture.NewConfigError("channels", "no channels configured")
	}
	return nil
}
