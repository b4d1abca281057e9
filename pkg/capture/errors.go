package capture

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig marks configuration problems detected before capture starts.
	ErrConfig = errors.New("invalid capture configuration")
	// ErrPermission marks capabilities the operating system refused.
	ErrPermission = errors.New("capture permission denied")
	// ErrChannelStart marks a channel that could not be started.
	ErrChannelStart = errors.New("channel failed to start")
	// ErrSerialization marks a failure writing a channel's output.
	ErrSerialization = errors.New("channel output could not be written")
	// ErrInvalidTransition marks an illegal lifecycle transition.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	// ErrNotRecording is returned when no session is in progress.
	ErrNotRecording = errors.New("not recording")
	// ErrAlreadyRecording is returned when a session is already in progress.
	ErrAlreadyRecording = errors.New("already recording")
)

// ConfigError names the setting that was rejected.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError builds a ConfigError.
func NewConfigError(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// PermissionError reports which capability the platform denied.
type PermissionError struct {
	Channel    string
	Capability string
	Message    string
}

func (e *PermissionError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "permission denied"
	}
	return fmt.Sprintf("%s: %s %s", e.Channel, e.Capability, msg)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrPermission
}

// ChannelStartError wraps the cause of a failed start with the channel
// identity. It matches both ErrChannelStart and the underlying cause.
type ChannelStartError struct {
	Channel string
	Kind    Kind
	Err     error
}

func (e *ChannelStartError) Error() string {
	return fmt.Sprintf("start %s channel %q: %v", e.Kind, e.Channel, e.Err)
}

func (e *ChannelStartError) Unwrap() error {
	return e.Err
}

func (e *ChannelStartError) Is(target error) bool {
	return target == ErrChannelStart
}

// SerializationError reports a failed flush of one output file.
type SerializationError struct {
	Channel string
	Path    string
	Err     error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("flush %s output %s: %v", e.Channel, e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

func (e *SerializationError) Is(target error) bool {
	return target == ErrSerialization
}

// TransitionError reports an illegal state change.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
