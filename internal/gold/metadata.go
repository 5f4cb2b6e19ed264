package gold

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fx-trend-lab/internal/domain"
)

// ErrMalformedMetadata is returned when a metadata file cannot be parsed.
var ErrMalformedMetadata = errors.New("malformed currency metadata")

// ReadMetadataTSV parses tab-separated metadata: a header line followed by
// code, currency name and country name columns.
func ReadMetadataTSV(r io.Reader) ([]*domain.CurrencyMetadata, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = 3
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedMetadata, err)
	}

	var out []*domain.CurrencyMetadata
	seen := make(map[string]bool)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
		}

		code := strings.ToUpper(strings.TrimSpace(rec[0]))
		if code == "" {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: empty code", ErrMalformedMetadata, line)
		}
		if seen[code] {
			continue
		}
		seen[code] = true

		out = append(out, &domain.CurrencyMetadata{
			Code:    code,
			Name:    strings.TrimSpace(rec[1]),
			Country: strings.TrimSpace(rec[2]),
		})
	}
	return out, nil
}

// LoadMetadataTSV reads a metadata file from path.
func LoadMetadataTSV(path string) ([]*domain.CurrencyMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()

	items, err := ReadMetadataTSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return items, nil
}
