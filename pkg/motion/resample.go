package motion

import (
	"math"

	"github.com/offlinefirst/motiontrack/pkg/track"
)

// Resample steps a fresh engine once per output frame and returns one frame
// per slot of the 1000/outputFPS millisecond grid.
//
// The tracker starts at rest on the first sample. The target for each frame is the latest sample whose process time does not
// exceed the frame time; before the first sample the first sample is used.
// The result depends only on the arguments.
func Resample(samples []track.Sample, cfg Config, outputFPS float64) ([]Frame, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(outputFPS) || math.IsInf(outputFPS, 0) || outputFPS <= 0 {
		return nil, &FrameRateError{Value: outputFPS}
	}
	if len(samples) == 0 {
		return []Frame{}, nil
	}
	if err := track.CheckOrder(samples); err != nil {
		return nil, err
	}

	frameDurationMs := 1000.0 / outputFPS
	count := FrameCount(samples[len(samples)-1].ProcessTimeMs, outputFPS)
	dt := frameDurationMs / 1000.0

	engine := &Engine{cfg: cfg}
	engine.snap(samples[0])
	frames := make([]Frame, 0, count)
	idx := 0
	for f := 0; f < count; f++ {
		frameTimeMs := float64(f) * frameDurationMs
		for idx+1 < len(samples) && samples[idx+1].ProcessTimeMs <= frameTimeMs {
			idx++
		}
		target := samples[idx]
		engine.advance(target, dt)
		frames = append(frames, engine.frame(target, frameTimeMs))
	}
	return frames, nil
}

// FrameCount returns ceil(durationMs / (1000/outputFPS)), never less than one.
func FrameCount(durationMs, outputFPS float64) int {
	frameDurationMs := 1000.0 / outputFPS
	count := int(math.Ceil(durationMs / frameDurationMs))
	if count < 1 {
		return 1
	}
	return count
}
