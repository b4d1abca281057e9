package media

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/offlinefirst/motiontrack/pkg/capture"
)

// Target describes one media capture request.
type Target struct {
	Kind     capture.Kind
	DeviceID string
	Path     string
	Origin   time.Time
	// Fault is invoked by the backend if capture breaks after Open returned.
	Fault func(error)
}

// Stream is an open capture writing into Target.Path.
type Stream interface {
	Pause() error
	Resume() error
	// Finish stops capture and finalises the file.
	Finish(ctx context.Context) error
}

// Backend opens capture streams.
type Backend interface {
	Name() string
	Open(ctx context.Context, target Target) (Stream, error)
}

// BackendFactory builds the backend for a provider name.
type BackendFactory func(provider string, clock func() time.Time) (Backend, error)

var (
	factoryMu sync.Mutex
	factory   BackendFactory = defaultFactory
)

// SetBackendFactory overrides backend construction. nil restores the
// default.
func SetBackendFactory(f BackendFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if f == nil {
		f = defaultFactory
	}
	factory = f
}

// NewBackend builds the backend for provider using the current factory.
func NewBackend(provider string, clock func() time.Time) (Backend, error) {
	factoryMu.Lock()
	f := factory
	factoryMu.Unlock()
	return f(provider, clock)
}

func defaultFactory(provider string, clock func() time.Time) (Backend, error) {
	if provider != ProviderStub {
		return nil, newBackendError(fmt.Sprintf("%s backend is not linked into this build", provider))
	}
	if clock == nil {
		clock = time.Now
	}
	return &stubBackend{clock: clock}, nil
}

// stubBackend writes a text placeholder describing the capture timeline.
type stubBackend struct {
	clock func() time.Time
}

func (b *stubBackend) Name() string {
	return ProviderStub
}

func (b *stubBackend) Open(ctx context.Context, target Target) (Stream, error) {
	if ctx != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	f, err := os.OpenFile(target.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s output: %w", target.Kind, err)
	}
	s := &stubStream{file: f, w: bufio.NewWriter(f), clock: b.clock, origin: target.Origin}
	s.line("synthetic %s capture device=%q origin=%s", target.Kind, target.DeviceID, target.Origin.UTC().Format(time.RFC3339Nano))
	return s, nil
}

type stubStream struct {
	mu     sync.Mutex
	file   *os.File
	w      *bufio.Writer
	clock  func() time.Time
	origin time.Time
	closed bool
}

func (s *stubStream) Pause() error {
	return s.event("pause")
}

func (s *stubStream) Resume() error {
	return s.event("resume")
}

func (s *stubStream) Finish(ctx context.Context) error {
	if err := s.event("end"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if err := s.w.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("flush placeholder: %w", err)
	}
	return s.file.Close()
}

func (s *stubStream) event(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%s after finish", name)
	}
	s.line("%s at %.3fms", name, capture.SinceOriginMs(s.origin, s.clock()))
	return nil
}

func (s *stubStream) line(format string, args ...any) {
	fmt.Fprintf(s.w, format+"\n", args...)
}
