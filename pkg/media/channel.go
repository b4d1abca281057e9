// Package media provides capture channels for the display, microphone,
// system audio and webcam, each writing one container file per segment
// through a Backend.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/offlinefirst/motiontrack/pkg/capture"
	"github.com/offlinefirst/motiontrack/pkg/logging"
	"github.com/offlinefirst/motiontrack/pkg/permissions"
)

// Options configure a media channel.
type Options struct {
	ID             string
	Kind           capture.Kind
	DeviceID       string
	PauseSupported bool
	// Backend defaults to the provider selected by DetectEnvironment.
	Backend Backend
	Lookup  permissions.LookupEnvFunc
	Clock   func() time.Time
	Logger  *slog.Logger
}

// Extension returns the container extension for kind.
func Extension(kind capture.Kind) string {
	switch kind {
	case capture.KindMicrophone, capture.KindSystemAudio:
		return "m4a"
	default:
		return "mp4"
	}
}

// FileName returns the artifact name for kind in segment n.
func FileName(kind capture.Kind, n int) string {
	return fmt.Sprintf("recording-%d-%s.%s", n, kind, Extension(kind))
}

// Channel records one media source.
type Channel struct {
	capture.Lifecycle

	id             string
	kind           capture.Kind
	deviceID       string
	pauseSupported bool
	backend        Backend
	lookup         permissions.LookupEnvFunc
	clock          func() time.Time
	logger         *slog.Logger

	init       capture.InitOptions
	path       string
	stream     Stream
	controller *capture.Controller
	faultOnce  sync.Once

	stopMu  sync.Mutex
	stopped bool
	output  capture.Output
	stopErr error
}

var _ capture.Channel = (*Channel)(nil)

// New validates options and constructs an uninitialised channel.
func New(opts Options) (*Channel, error) {
	if opts.Kind == capture.KindPointer {
		return nil, capture.NewConfigError("kind", "pointer is not a media kind")
	}
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = opts.Kind.String()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Channel{
		id:             id,
		kind:           opts.Kind,
		deviceID:       opts.DeviceID,
		pauseSupported: opts.PauseSupported,
		backend:        opts.Backend,
		lookup:         opts.Lookup,
		clock:          clock,
		logger:         logging.ForChannel(opts.Logger, id, opts.Kind.String()),
	}, nil
}

func (c *Channel) ID() string          { return c.id }
func (c *Channel) Kind() capture.Kind  { return c.kind }
func (c *Channel) SupportsPause() bool { return c.pauseSupported }

// Path returns the output file chosen at Initialize.
func (c *Channel) Path() string {
	return c.path
}

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
	c.path = filepath.Join(opts.OutputDir, FileName(c.kind, opts.SegmentIndex))
	return c.Transition(capture.StateInitialized)
}

func (c *Channel) Start(ctx context.Context) error {
	if state := c.State(); state != capture.StateInitialized {
		return &capture.TransitionError{From: state, To: capture.StateActive}
	}
	capability := CapabilityFor(c.kind)
	if probe := permissions.Probe(capability, c.lookup); probe.Denied() {
		c.Fail()
		return &capture.PermissionError{Channel: c.id, Capability: string(capability), Message: probe.Message}
	}
	backend := c.backend
	if backend == nil {
		var err error
		backend, err = NewBackend(SelectedProvider(c.lookup), c.clock)
		if err != nil {
			c.Fail()
			return err
		}
	}
	stream, err := backend.Open(ctx, Target{
		Kind:     c.kind,
		DeviceID: c.deviceID,
		Path:     c.path,
		Origin:   c.init.TimeOrigin,
		Fault:    c.fault,
	})
	if err != nil {
		c.Fail()
		return fmt.Errorf("open %s stream: %w", backend.Name(), err)
	}
	c.stream = stream
	c.controller = capture.NewController(c.clock)
	if err := c.Transition(capture.StateActive); err != nil {
		return err
	}
	c.logger.Info("media capture started", "backend", backend.Name(), "device", c.deviceID, "path", c.path)
	return nil
}

// Pause suspends the stream in place. Channels without pause support reject
// the call; the coordinator never forwards it to them.
func (c *Channel) Pause(ctx context.Context) error {
	if !c.pauseSupported {
		return fmt.Errorf("%s: pause unsupported", c.id)
	}
	if err := c.Transition(capture.StatePaused); err != nil {
		return err
	}
	if err := c.stream.Pause(); err != nil {
		c.fault(err)
		return err
	}
	c.controller.Pause("pause requested")
	return nil
}

func (c *Channel) Resume(ctx context.Context) error {
	if !c.pauseSupported {
		return fmt.Errorf("%s: resume unsupported", c.id)
	}
	if err := c.Transition(capture.StateActive); err != nil {
		return err
	}
	if err := c.stream.Resume(); err != nil {
		c.fault(err)
		return err
	}
	c.controller.Resume("resume requested")
	return nil
}

// Stop finalises the output file. Repeated calls return the first result.
func (c *Channel) Stop(ctx context.Context) (capture.Output, error) {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()
	if c.stopped {
		return c.output, c.stopErr
	}
	if c.stream == nil {
		return capture.Output{}, &capture.TransitionError{From: c.State(), To: capture.StateStopped}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.controller.Kill(nil)
	output := capture.Output{
		ChannelID: c.id,
		Kind:      c.kind.String(),
		Segments:  c.controller.Segments(c.init.TimeOrigin, c.init.SegmentIndex),
	}
	var err error
	if ferr := c.stream.Finish(ctx); ferr != nil {
		err = &capture.SerializationError{Channel: c.id, Path: c.path, Err: ferr}
	} else {
		output.Files = []string{c.path}
	}

	c.stopped = true
	c.output = output
	c.stopErr = err
	if c.State() != capture.StateFailed {
		_ = c.Transition(capture.StateStopped)
	}
	c.logger.Info("media capture stopped", "path", c.path, "error", err)
	return output, err
}

func (c *Channel) fault(err error) {
	c.faultOnce.Do(func() {
		if !c.Fail() {
			return
		}
		c.logger.Error("media capture failed", "error", err)
		if c.init.OnFault != nil {
			c.init.OnFault(fmt.Errorf("%s: %w", c.id, err))
		}
	})
}
