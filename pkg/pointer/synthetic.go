package pointer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
	"time"

	"github.com/offlinefirst/motiontrack/pkg/cursors"
	"github.com/offlinefirst/motiontrack/pkg/track"
)

// Synthetic is a deterministic Platform that traces a Lissajous path across a
// 1920x1080 screen and clicks at a fixed cadence. It stands in when no native
// pointer backend is linked.
type Synthetic struct {
	clock         func() time.Time
	start         time.Time
	clickInterval time.Duration
}

// NewSynthetic builds a synthetic platform. Zero clickInterval disables
// clicks.
func NewSynthetic(clock func() time.Time, clickInterval time.Duration) *Synthetic {
	if clock == nil {
		clock = time.Now
	}
	return &Synthetic{clock: clock, start: clock(), clickInterval: clickInterval}
}

func (s *Synthetic) Position() (float64, float64, error) {
	t := s.clock().Sub(s.start).Seconds()
	return 960 + 400*math.Cos(0.8*t), 540 + 250*math.Sin(1.3*t), nil
}

func (s *Synthetic) CurrentCursor() (string, error) {
	x, _, _ := s.Position()
	if x >= 960 {
		return "arrow", nil
	}
	return "pointing-hand", nil
}

func (s *Synthetic) Modifiers() []string {
	return []string{}
}

func (s *Synthetic) CaptureCursor(id string) (cursors.Image, error) {
	const size = 16
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	shade := color.NRGBA{A: 255}
	if id == "pointing-hand" {
		shade = color.NRGBA{R: 40, G: 40, B: 40, A: 255}
	}
	for y := 0; y < size; y++ {
		for x := 0; x <= y/2; x++ {
			img.Set(x, y, shade)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return cursors.Image{}, fmt.Errorf("encode cursor %q: %w", id, err)
	}
	hotspotX := 0.0
	if id == "pointing-hand" {
		hotspotX = 5
	}
	return cursors.Image{PNG: buf.Bytes(), HotspotX: hotspotX, Width: size, Height: size}, nil
}

func (s *Synthetic) SubscribeButtons(ctx context.Context, emit func(ButtonEvent)) (func(), error) {
	if s.clickInterval <= 0 {
		return func() {}, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.clickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				x, y, _ := s.Position()
				for _, phase := range []track.Phase{track.PhaseDown, track.PhaseUp} {
					emit(ButtonEvent{X: x, Y: y, Button: track.ButtonPrimary, Phase: phase, ClickCount: 1, At: s.clock()})
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}
