package buildinfo

import "testing"

func TestSetVersionOverridesDefault(t *testing.T) {
	orig := version
	t.Cleanup(func() { version = orig })

	SetVersion("")
	if version != orig {
		t.Fatalf("empty version must be ignored, got %q", version)
	}
	SetVersion("v1.2.3")
	if got := Version(); got != "v1.2.3" {
		t.Fatalf("Version() = %q, want v1.2.3", got)
	}
}
