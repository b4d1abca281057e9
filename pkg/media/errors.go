package media

import (
	"errors"
	"strings"
)

// ErrBackendUnavailable indicates no backend can serve the requested kind.
var ErrBackendUnavailable = errors.New("media backend unavailable")

type backendError struct {
	message string
}

func (e *backendError) Error() string {
	return e.message
}

func (e *backendError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

func newBackendError(message string) error {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		trimmed = ErrBackendUnavailable.Error()
	}
	return &backendError{message: trimmed}
}
