package capture

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProbeWritableLeavesNothingBehind(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	if err := ProbeWritable(dir); err != nil {
		t.Fatalf("ProbeWritable: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir after probe, found %d entries", len(entries))
	}
}

func TestProbeWritableRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := ProbeWritable(file); err == nil {
		t.Fatal("expected error probing a regular file")
	}
}
