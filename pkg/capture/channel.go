// Package capture defines the lifecycle contract shared by every capture
// source in a recording session, the state machine behind it, and the error
// taxonomy the coordinator relies on.
package capture

import (
	"context"
	"time"
)

// Kind identifies the capture source behind a channel.
type Kind int

const (
	KindDisplay Kind = iota
	KindMicrophone
	KindSystemAudio
	KindWebcam
	KindPointer
)

func (k Kind) String() string {
	switch k {
	case KindDisplay:
		return "display"
	case KindMicrophone:
		return "microphone"
	case KindSystemAudio:
		return "system-audio"
	case KindWebcam:
		return "webcam"
	case KindPointer:
		return "pointer"
	default:
		return "unknown"
	}
}

// InitOptions is handed to every channel of a session before it starts.
type InitOptions struct {
	OutputDir    string
	SegmentIndex int
	// TimeOrigin is shared by all channels of the session; every timestamp a
	// channel records is measured from it.
	TimeOrigin time.Time
	// OnFault is called at most once when the channel fails while active.
	OnFault func(error)
}

// Segment is a contiguous span of one channel's output, in milliseconds since
// the session time origin.
type Segment struct {
	Index   int     `json:"index"`
	StartMs float64 `json:"start_ms"`
	EndMs   float64 `json:"end_ms"`
}

// Output lists what a channel produced once stopped.
type Output struct {
	ChannelID string    `json:"channel_id"`
	Kind      string    `json:"kind"`
	Files     []string  `json:"files"`
	Segments  []Segment `json:"segments,omitempty"`
}

// Channel is one independently threaded capture source. A channel belongs to
// exactly one session and is driven only by that session's coordinator.
type Channel interface {
	ID() string
	Kind() Kind
	// Initialize allocates output paths and validates write access.
	Initialize(ctx context.Context, opts InitOptions) error
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	// Stop ends capture, joins any capture goroutine and flushes output.
	// Calling Stop on a stopped channel returns the same output again.
	Stop(ctx context.Context) (Output, error)
	// SupportsPause reports whether Pause suspends capture in place.
	SupportsPause() bool
	State() State
}
