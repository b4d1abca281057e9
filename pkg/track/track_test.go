package track

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestCheckOrder(t *testing.T) {
	ordered := []Sample{{ProcessTimeMs: 0}, {ProcessTimeMs: 8}, {ProcessTimeMs: 8}, {ProcessTimeMs: 20}}
	if err := CheckOrder(ordered); err != nil {
		t.Fatalf("expected ordered stream to pass: %v", err)
	}

	unordered := []Sample{{ProcessTimeMs: 0}, {ProcessTimeMs: 10}, {ProcessTimeMs: 5}}
	if err := CheckOrder(unordered); !errors.Is(err, ErrUnordered) {
		t.Fatalf("expected ErrUnordered, got %v", err)
	}
}

func TestSampleFileUsesCamelCaseFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moves.json")
	in := []Sample{{X: 1, Y: 2, CursorID: "arrow", ActiveModifiers: []string{ModifierShift}, ProcessTimeMs: 8.5, WallClockMs: 1700000000000}}
	if err := WriteJSON(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := ReadSamples(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != 1 || out[0].CursorID != "arrow" || out[0].WallClockMs != 1700000000000 {
		t.Fatalf("unexpected samples: %+v", out)
	}
}

func TestReadClicksMissingFile(t *testing.T) {
	if _, err := ReadClicks(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestButtonValid(t *testing.T) {
	for _, b := range []Button{ButtonPrimary, ButtonSecondary, ButtonAuxiliary} {
		if !b.Valid() {
			t.Fatalf("expected %s to be valid", b)
		}
	}
	if Button("left").Valid() {
		t.Fatalf("expected unknown button to be invalid")
	}
}
