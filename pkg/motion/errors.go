package motion

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTeleportThreshold is matched by TeleportThresholdError.
	ErrInvalidTeleportThreshold = errors.New("invalid teleport threshold")
	// ErrInvalidFrameRate is matched by FrameRateError.
	ErrInvalidFrameRate = errors.New("invalid output frame rate")
)

// TeleportThresholdError reports a non-positive teleport threshold.
type TeleportThresholdError struct {
	Value float64
}

func (e *TeleportThresholdError) Error() string {
	return fmt.Sprintf("teleport threshold %g must be positive", e.Value)
}

func (e *TeleportThresholdError) Is(target error) bool {
	return target == ErrInvalidTeleportThreshold
}

// FrameRateError reports an unusable output frame rate.
type FrameRateError struct {
	Value float64
}

func (e *FrameRateError) Error() string {
	return fmt.Sprintf("output fps %g must be a positive finite number", e.Value)
}

func (e *FrameRateError) Is(target error) bool {
	return target == ErrInvalidFrameRate
}
