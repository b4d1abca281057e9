package runmanifest

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/offlinefirst/motiontrack/pkg/capture"
)

func TestBuildLayoutAndRelative(t *testing.T) {
	layout := BuildLayout("/tmp/sessions", "20240512_093000")

	if layout.Root != filepath.Join("/tmp/sessions", "20240512_093000") {
		t.Fatalf("unexpected root: %s", layout.Root)
	}
	if filepath.Base(layout.ManifestPath) != ManifestName {
		t.Fatalf("expected manifest.json, got %s", layout.ManifestPath)
	}
	inside := filepath.Join(layout.Root, "recording-0-display.mp4")
	if got := layout.Relative(inside); got != "recording-0-display.mp4" {
		t.Fatalf("expected relative path, got %s", got)
	}
	outside := "/elsewhere/file.json"
	if got := layout.Relative(outside); got != outside {
		t.Fatalf("expected outside path unchanged, got %s", got)
	}
}

func TestEnsureFilesystemCreatesRoot(t *testing.T) {
	layout := BuildLayout(t.TempDir(), "session")
	if err := EnsureFilesystem(layout); err != nil {
		t.Fatalf("EnsureFilesystem failed: %v", err)
	}
	info, err := os.Stat(layout.Root)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s: %v", layout.Root, err)
	}
}

func TestNewManifest(t *testing.T) {
	now := time.Date(2024, 5, 12, 9, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	man := New(Options{
		SessionID:  "abc",
		RunID:      "run",
		CreatedAt:  now,
		TimeOrigin: now,
		Hostname:   "host",
		AppVersion: "test",
		Settings:   Settings{DisplayID: "display-1", Pointer: true},
	})

	if man.SchemaVersion != SchemaVersion {
		t.Fatalf("unexpected schema version: %d", man.SchemaVersion)
	}
	if man.CreatedAt.Location() != time.UTC || man.TimeOrigin.Location() != time.UTC {
		t.Fatalf("expected UTC timestamps")
	}
	if man.Status.State != "pending" {
		t.Fatalf("expected pending state, got %s", man.Status.State)
	}
	if man.Channels == nil {
		t.Fatalf("expected empty channel list rather than nil")
	}
}

func TestAddChannelAndRoundTrip(t *testing.T) {
	dir := t.TempDir()
	layout := BuildLayout(dir, "run")
	if err := EnsureFilesystem(layout); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	now := time.Now().UTC().Round(time.Second)
	man := New(Options{SessionID: "abc", RunID: "run", CreatedAt: now, TimeOrigin: now})

	man.AddChannel(layout, capture.Output{
		ChannelID: "pointer",
		Kind:      "pointer",
		Files:     []string{filepath.Join(layout.Root, "recording-0-mouse-moves.json")},
		Segments:  []capture.Segment{{Index: 0, StartMs: 0, EndMs: 1500}},
	}, capture.StateStopped, nil)
	man.AddChannel(layout, capture.Output{ChannelID: "microphone", Kind: "microphone"}, capture.StateFailed, errors.New("flush failed"))

	if err := Save(man, layout.ManifestPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(layout.ManifestPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.SessionID != "abc" || len(loaded.Channels) != 2 {
		t.Fatalf("unexpected manifest: %+v", loaded)
	}
	if loaded.Channels[0].Files[0] != "recording-0-mouse-moves.json" {
		t.Fatalf("expected relative file, got %s", loaded.Channels[0].Files[0])
	}
	if loaded.Channels[0].Segments[0].EndMs != 1500 {
		t.Fatalf("expected segment to round trip, got %+v", loaded.Channels[0].Segments)
	}
	if loaded.Channels[1].Error != "flush failed" || loaded.Channels[1].State != "failed" {
		t.Fatalf("expected failed channel entry, got %+v", loaded.Channels[1])
	}
}

func TestResolveRunID(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)

	if err := os.MkdirAll(filepath.Join(dir, now.Format("20060102_150405")), 0o755); err != nil {
		t.Fatalf("prep existing session: %v", err)
	}

	id, err := ResolveRunID(dir, now)
	if err != nil {
		t.Fatalf("ResolveRunID failed: %v", err)
	}
	expected := now.Format("20060102_150405") + "_01"
	if id != expected {
		t.Fatalf("expected %s, got %s", expected, id)
	}
}

func TestResolveRunIDEmptySessionsDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("path validation differs on windows")
	}
	if _, err := ResolveRunID(" ", time.Now()); err == nil {
		t.Fatalf("expected error for empty sessions dir")
	}
}
