// Package cursors keeps the per-session registry of cursor shapes observed
// while sampling the pointer.
package cursors

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/offlinefirst/motiontrack/pkg/track"
)

// Descriptor points at the persisted image for one cursor shape.
type Descriptor struct {
	ID        string  `json:"id"`
	ImagePath string  `json:"imagePath"`
	HotspotX  float64 `json:"hotspotX"`
	HotspotY  float64 `json:"hotspotY"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
}

// Image is the raw material returned by a CaptureFunc.
type Image struct {
	PNG      []byte
	HotspotX float64
	HotspotY float64
	Width    int
	Height   int
}

// CaptureFunc extracts the image for a cursor id that has not been seen yet.
type CaptureFunc func(id string) (Image, error)

// ErrEmptyImage is returned when a capture yields no PNG bytes.
var ErrEmptyImage = errors.New("cursor capture returned empty image")

type entry struct {
	ready chan struct{}
	desc  Descriptor
	ok    bool
	err   error
}

// Catalog maps cursor ids to descriptors. Entries are created at most once
// per id and never replaced; ids whose capture failed stay known so they are
// not captured again.
type Catalog struct {
	dir string

	mu      sync.Mutex
	entries map[string]*entry
}

// NewCatalog returns an empty catalog persisting images under dir.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir, entries: make(map[string]*entry)}
}

// Dir returns the image directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// LookupOrRegister returns the descriptor for id, invoking capture the first
// time id is seen. The boolean is false when the id is known but its image
// could not be captured; callers fall back to a generic cursor.
func (c *Catalog) LookupOrRegister(id string, capture CaptureFunc) (Descriptor, bool) {
	c.mu.Lock()
	if e, found := c.entries[id]; found {
		c.mu.Unlock()
		<-e.ready
		return e.desc, e.ok
	}
	e := &entry{ready: make(chan struct{})}
	c.entries[id] = e
	c.mu.Unlock()

	if capture == nil {
		e.err = errors.New("no capture function")
	} else {
		e.desc, e.err = c.persist(id, capture)
		e.ok = e.err == nil
	}
	close(e.ready)
	return e.desc, e.ok
}

// Lookup returns the descriptor for id without capturing. It waits for a
// capture of the same id that is still in flight.
func (c *Catalog) Lookup(id string) (Descriptor, bool) {
	c.mu.Lock()
	e, found := c.entries[id]
	c.mu.Unlock()
	if !found {
		return Descriptor{}, false
	}
	<-e.ready
	return e.desc, e.ok
}

// Known reports whether id has been seen, regardless of capture outcome.
func (c *Catalog) Known(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, found := c.entries[id]
	return found
}

// Failure returns the capture error recorded for id, if any.
func (c *Catalog) Failure(id string) error {
	c.mu.Lock()
	e, found := c.entries[id]
	c.mu.Unlock()
	if !found {
		return nil
	}
	<-e.ready
	return e.err
}

// Snapshot returns the available descriptors keyed by id.
func (c *Catalog) Snapshot() map[string]Descriptor {
	c.mu.Lock()
	ids := make([]string, 0, len(c.entries))
	entries := make([]*entry, 0, len(c.entries))
	for id, e := range c.entries {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	c.mu.Unlock()

	out := make(map[string]Descriptor, len(ids))
	for i, e := range entries {
		<-e.ready
		if e.ok {
			out[ids[i]] = e.desc
		}
	}
	return out
}

// IDs returns every known id in sorted order.
func (c *Catalog) IDs() []string {
	c.mu.Lock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Save writes the available descriptors to path.
func (c *Catalog) Save(path string) error {
	return track.WriteJSON(path, c.Snapshot())
}

// Load reads a catalog file written by Save.
func Load(path string) (map[string]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cursor catalog: %w", err)
	}
	out := make(map[string]Descriptor)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode cursor catalog: %w", err)
	}
	return out, nil
}

func (c *Catalog) persist(id string, capture CaptureFunc) (Descriptor, error) {
	img, err := capture(id)
	if err != nil {
		return Descriptor{}, fmt.Errorf("capture cursor %q: %w", id, err)
	}
	if len(img.PNG) == 0 {
		return Descriptor{}, ErrEmptyImage
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return Descriptor{}, fmt.Errorf("ensure cursor dir: %w", err)
	}
	path := filepath.Join(c.dir, fileName(id))
	if err := os.WriteFile(path, img.PNG, 0o644); err != nil {
		return Descriptor{}, fmt.Errorf("write cursor image: %w", err)
	}
	return Descriptor{
		ID:        id,
		ImagePath: path,
		HotspotX:  img.HotspotX,
		HotspotY:  img.HotspotY,
		Width:     img.Width,
		Height:    img.Height,
	}, nil
}

// fileName maps id to a file name; distinct ids never share a name.
func fileName(id string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
	if safe == "" {
		safe = "cursor"
	}
	sum := sha256.Sum256([]byte(id))
	return safe + "-" + hex.EncodeToString(sum[:])[:8] + ".png"
}
