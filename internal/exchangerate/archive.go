package exchangerate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrNoTimestamp is returned when a payload without an update time is archived.
var ErrNoTimestamp = errors.New("payload has no update timestamp")

// Archive keeps raw payloads on disk, one file per UTC day of the provider
// update: Dir/YYYY-MM-DD.json. A later payload of the same day replaces the
// earlier file.
type Archive struct {
	Dir string
}

// PathFor returns the archive path of a payload updated at ts.
func (a Archive) PathFor(ts time.Time) string {
	return filepath.Join(a.Dir, ts.UTC().Format(time.DateOnly)+".json")
}

// Save writes resp atomically and returns its path.
func (a Archive) Save(resp *LatestResponse) (string, error) {
	if resp == nil {
		return "", errors.New("archive: nil payload")
	}
	if resp.TimeLastUpdateUnix <= 0 {
		return "", ErrNoTimestamp
	}

	b, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	path := a.PathFor(time.Unix(resp.TimeLastUpdateUnix, 0))

	tmp, err := os.CreateTemp(a.Dir, ".payload-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close payload: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod payload: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename payload: %w", err)
	}
	return path, nil
}

// Files lists the archived payloads in name (day) order.
// A missing directory yields no files.
func (a Archive) Files() ([]string, error) {
	entries, err := os.ReadDir(a.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archive dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" || e.Name()[0] == '.' {
			continue
		}
		files = append(files, filepath.Join(a.Dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
