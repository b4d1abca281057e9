package pointer

import (
	"context"
	"time"

	"github.com/offlinefirst/motiontrack/pkg/cursors"
	"github.com/offlinefirst/motiontrack/pkg/track"
)

// ButtonEvent is a button transition delivered by the platform listener.
type ButtonEvent struct {
	X          float64
	Y          float64
	Button     track.Button
	Phase      track.Phase
	ClickCount int
	Modifiers  []string
	At         time.Time
}

// Platform is the operating-system boundary for pointer capture.
type Platform interface {
	// Position returns the global pointer location in screen points.
	Position() (x, y float64, err error)
	// CurrentCursor returns an opaque identifier for the visible cursor
	// shape, or "" when it cannot be determined.
	CurrentCursor() (string, error)
	Modifiers() []string
	CaptureCursor(id string) (cursors.Image, error)
	// SubscribeButtons registers a global button listener. emit may be called
	// from any goroutine until unsubscribe returns.
	SubscribeButtons(ctx context.Context, emit func(ButtonEvent)) (unsubscribe func(), err error)
}
