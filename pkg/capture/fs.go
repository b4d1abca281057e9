package capture

import (
	"errors"
	"fmt"
	"os"
)

// ProbeWritable creates dir if needed and proves a file can be created and
// removed inside it.
func ProbeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	closeErr := f.Close()
	removeErr := os.Remove(name)
	if closeErr != nil || removeErr != nil {
		return fmt.Errorf("write probe %s: %w", name, errors.Join(closeErr, removeErr))
	}
	return nil
}
