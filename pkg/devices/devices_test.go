package devices

import (
	"context"
	"reflect"
	"testing"
)

func TestDefaultInventory(t *testing.T) {
	inv := DefaultWithLookup(func(string) (string, bool) { return "", false })
	displays, err := inv.Displays(context.Background())
	if err != nil {
		t.Fatalf("displays: %v", err)
	}
	if !Contains(displays, "display-1") {
		t.Fatalf("expected display-1 in %+v", displays)
	}
	mics, _ := inv.AudioInputs(context.Background())
	cams, _ := inv.Cameras(context.Background())
	if !Contains(mics, "default") || !Contains(cams, "default") {
		t.Fatalf("expected default microphone and camera, got %+v %+v", mics, cams)
	}
}

func TestDefaultInventoryHonoursEnv(t *testing.T) {
	env := map[string]string{"MOTIONTRACK_DISPLAYS": "display-2, display-1,,display-3"}
	inv := DefaultWithLookup(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	displays, _ := inv.Displays(context.Background())
	got := IDs(displays)
	want := []string{"display-1", "display-2", "display-3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestStaticReturnsCopies(t *testing.T) {
	inv := Static{DisplayList: []Device{{ID: "a"}}}
	list, _ := inv.Displays(context.Background())
	list[0].ID = "mutated"
	again, _ := inv.Displays(context.Background())
	if again[0].ID != "a" {
		t.Fatalf("expected inventory to be unaffected by caller mutation")
	}
}
