// Package runmanifest lays out session directories and reads and writes the
// manifest describing what a recording session produced.
package runmanifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/offlinefirst/motiontrack/pkg/capture"
)

// SchemaVersion captures the manifest version for compatibility checks.
const SchemaVersion = 1

// ManifestName is the manifest file name inside a session directory.
const ManifestName = "manifest.json"

// Layout represents the absolute filesystem locations for a session.
type Layout struct {
	Root         string
	ManifestPath string
}

// Settings records what the session was asked to capture.
type Settings struct {
	DisplayID    string  `json:"display_id"`
	Pointer      bool    `json:"pointer"`
	SystemAudio  bool    `json:"system_audio"`
	Microphone   bool    `json:"microphone"`
	MicrophoneID string  `json:"microphone_id,omitempty"`
	Webcam       bool    `json:"webcam"`
	WebcamID     string  `json:"webcam_id,omitempty"`
	PollHz       float64 `json:"poll_hz,omitempty"`
}

// Status summarises the lifecycle of a session.
type Status struct {
	State       string          `json:"state"`
	Summary     string          `json:"summary,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
	Termination string          `json:"termination,omitempty"`
	Timeline    []TimelineEntry `json:"timeline,omitempty"`
	Errors      []string        `json:"errors,omitempty"`
}

// TimelineEntry records a session state change for diagnostics.
type TimelineEntry struct {
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChannelEntry describes the output of one channel.
type ChannelEntry struct {
	ID       string            `json:"id"`
	Kind     string            `json:"kind"`
	State    string            `json:"state"`
	Files    []string          `json:"files"`
	Segments []capture.Segment `json:"segments,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Manifest is the durable metadata describing a recording session.
type Manifest struct {
	SchemaVersion int               `json:"schema_version"`
	SessionID     string            `json:"session_id"`
	RunID         string            `json:"run_id"`
	CreatedAt     time.Time         `json:"created_at"`
	TimeOrigin    time.Time         `json:"time_origin"`
	Hostname      string            `json:"hostname"`
	AppVersion    string            `json:"app_version"`
	SegmentIndex  int               `json:"segment_index"`
	DurationMs    float64           `json:"duration_ms"`
	Settings      Settings          `json:"settings"`
	Channels      []ChannelEntry    `json:"channels"`
	Pauses        []capture.Segment `json:"pauses,omitempty"`
	Status        Status            `json:"status"`
}

// Options captures the knobs for creating a new manifest.
type Options struct {
	SessionID    string
	RunID        string
	CreatedAt    time.Time
	TimeOrigin   time.Time
	Hostname     string
	AppVersion   string
	SegmentIndex int
	Settings     Settings
}

// New constructs a manifest using the supplied options.
func New(opts Options) Manifest {
	return Manifest{
		SchemaVersion: SchemaVersion,
		SessionID:     opts.SessionID,
		RunID:         opts.RunID,
		CreatedAt:     opts.CreatedAt.UTC(),
		TimeOrigin:    opts.TimeOrigin.UTC(),
		Hostname:      opts.Hostname,
		AppVersion:    opts.AppVersion,
		SegmentIndex:  opts.SegmentIndex,
		Settings:      opts.Settings,
		Channels:      []ChannelEntry{},
		Status:        Status{State: "pending"},
	}
}

// AddChannel appends the output of a stopped channel, relativising file
// paths against the session root.
func (m *Manifest) AddChannel(layout Layout, out capture.Output, state capture.State, err error) {
	entry := ChannelEntry{
		ID:       out.ChannelID,
		Kind:     out.Kind,
		State:    string(state),
		Files:    make([]string, 0, len(out.Files)),
		Segments: out.Segments,
	}
	for _, f := range out.Files {
		entry.Files = append(entry.Files, layout.Relative(f))
	}
	if err != nil {
		entry.Error = err.Error()
	}
	m.Channels = append(m.Channels, entry)
}

// BuildLayout creates an absolute filesystem layout for a session.
func BuildLayout(sessionsDir, runID string) Layout {
	root := filepath.Join(sessionsDir, runID)
	return Layout{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestName),
	}
}

// Relative returns path relative to the session root when it lies inside it.
func (l Layout) Relative(path string) string {
	rel, err := filepath.Rel(l.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// EnsureFilesystem prepares the directory for a session layout.
func EnsureFilesystem(layout Layout) error {
	if err := os.MkdirAll(layout.Root, 0o755); err != nil {
		return fmt.Errorf("create session root: %w", err)
	}
	return nil
}

// Save writes the manifest JSON to disk with indentation for readability.
func Save(man Manifest, path string) error {
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads a manifest JSON file from disk.
func Load(path string) (Manifest, error) {
	var man Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return man, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &man); err != nil {
		return man, fmt.Errorf("decode manifest: %w", err)
	}
	return man, nil
}

// ResolveRunID chooses a directory name derived from the timestamp and avoids collisions.
func ResolveRunID(sessionsDir string, now time.Time) (string, error) {
	if strings.TrimSpace(sessionsDir) == "" {
		return "", errors.New("sessions directory must not be empty")
	}

	base := now.UTC().Format("20060102_150405")
	candidate := base
	suffix := 1
	for {
		_, err := os.Stat(filepath.Join(sessionsDir, candidate))
		if err == nil {
			candidate = fmt.Sprintf("%s_%02d", base, suffix)
			suffix++
			continue
		}
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		return "", fmt.Errorf("inspect sessions directory: %w", err)
	}
}
