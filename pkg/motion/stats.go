package motion

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises how much a smoothed track deviates from its raw input.
type Stats struct {
	Frames         int     `json:"frames"`
	RawJitter      float64 `json:"rawJitter"`
	SmoothedJitter float64 `json:"smoothedJitter"`
	MeanLag        float64 `json:"meanLag"`
	MaxLag         float64 `json:"maxLag"`
}

// Summarize computes jitter as the standard deviation of the second
// difference of each axis, combined over x and y, and lag as the distance
// between the smoothed and raw positions.
func Summarize(frames []Frame) Stats {
	st := Stats{Frames: len(frames)}
	if len(frames) == 0 {
		return st
	}

	rawX := make([]float64, len(frames))
	rawY := make([]float64, len(frames))
	smoothX := make([]float64, len(frames))
	smoothY := make([]float64, len(frames))
	lag := make([]float64, len(frames))
	for i, f := range frames {
		rawX[i], rawY[i] = f.RawX, f.RawY
		smoothX[i], smoothY[i] = f.SmoothedX, f.SmoothedY
		lag[i] = floats.Distance([]float64{f.RawX, f.RawY}, []float64{f.SmoothedX, f.SmoothedY}, 2)
	}

	st.RawJitter = jitter(rawX, rawY)
	st.SmoothedJitter = jitter(smoothX, smoothY)
	st.MeanLag = stat.Mean(lag, nil)
	st.MaxLag = floats.Max(lag)
	return st
}

func jitter(xs, ys []float64) float64 {
	dx := secondDifference(xs)
	dy := secondDifference(ys)
	if len(dx) < 2 {
		return 0
	}
	vx := stat.Variance(dx, nil)
	vy := stat.Variance(dy, nil)
	return math.Sqrt(vx + vy)
}

func secondDifference(values []float64) []float64 {
	if len(values) < 3 {
		return nil
	}
	out := make([]float64, len(values)-2)
	for i := 1; i < len(values)-1; i++ {
		out[i-1] = values[i+1] - 2*values[i] + values[i-1]
	}
	return out
}
