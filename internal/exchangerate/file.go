package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FileSource serves a saved "latest" payload from disk.
type FileSource struct {
	Path string
}

// FetchLatest reads and decodes the payload. The base code of the file must
// match base when both are set.
func (s FileSource) FetchLatest(ctx context.Context, base string) (*LatestResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	var payload LatestResponse
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload %s: %w", s.Path, err)
	}
	if base != "" && payload.BaseCode != "" && !strings.EqualFold(base, payload.BaseCode) {
		return nil, fmt.Errorf("payload %s is quoted in %s, want %s", s.Path, payload.BaseCode, base)
	}
	return &payload, nil
}
