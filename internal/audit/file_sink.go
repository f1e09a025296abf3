package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink is a simple file-backed sink for dev/testing. Each event is written
// as an indented JSON file named by timestamp and id.
type FileSink struct {
	dir string
}

// NewFileSink returns a FileSink and ensures the archive directory exists.
func NewFileSink(dir string) *FileSink {
	_ = os.MkdirAll(dir, 0o755)
	return &FileSink{dir: dir}
}

func (f *FileSink) Append(ctx context.Context, ev *Event) error {
	b, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	name := fmt.Sprintf("audit_%s_%s.json", ev.TS.UTC().Format("20060102T150405.000000000Z"), ev.ID)
	return os.WriteFile(filepath.Join(f.dir, name), b, 0o644)
}
