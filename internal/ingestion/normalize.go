package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/exchangerate"
)

// ErrSchemaMismatch is returned when a payload lacks required fields.
// It is fatal for the run: nothing downstream is computed.
var ErrSchemaMismatch = errors.New("payload schema mismatch")

// Reasons recorded for rejected rates.
const (
	ReasonNotANumber  = "not a number"
	ReasonNonPositive = "rate <= 0"
	ReasonOutOfRange  = "rate out of float64 range"
	ReasonBadCurrency = "invalid currency code"
)

// InvalidRate is one rate excluded from ingestion.
type InvalidRate struct {
	Currency string
	Raw      string
	Reason   string
}

// IngestReport holds per-run ingestion counters.
type IngestReport struct {
	Fetched    int // rates present in the payload
	Accepted   int // rates converted into observations
	Invalid    []InvalidRate
	Duplicates int // rows dropped by Merge
	Added      int // new observations persisted
}

// Normalize converts a latest-rates payload into observations sorted by
// currency. Invalid rates are excluded and recorded in the report.
func Normalize(resp *exchangerate.LatestResponse) ([]*domain.Observation, IngestReport, error) {
	var report IngestReport

	if err := checkSchema(resp); err != nil {
		return nil, report, err
	}

	base := strings.ToUpper(strings.TrimSpace(resp.BaseCode))
	ts := time.Unix(resp.TimeLastUpdateUnix, 0).UTC()

	codes := make([]string, 0, len(resp.ConversionRates))
	for code := range resp.ConversionRates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	report.Fetched = len(codes)
	obs := make([]*domain.Observation, 0, len(codes))

	for _, code := range codes {
		raw := resp.ConversionRates[code]
		currency := strings.ToUpper(strings.TrimSpace(code))

		if !validCode(currency) {
			report.Invalid = append(report.Invalid, InvalidRate{Currency: code, Raw: string(raw), Reason: ReasonBadCurrency})
			continue
		}

		rate, reason := parseRate(raw)
		if reason != "" {
			report.Invalid = append(report.Invalid, InvalidRate{Currency: currency, Raw: string(raw), Reason: reason})
			continue
		}

		obs = append(obs, &domain.Observation{
			Currency:     currency,
			Timestamp:    ts,
			Rate:         rate,
			BaseCurrency: base,
		})
	}

	report.Accepted = len(obs)
	return obs, report, nil
}

func checkSchema(resp *exchangerate.LatestResponse) error {
	switch {
	case resp == nil:
		return fmt.Errorf("%w: empty payload", ErrSchemaMismatch)
	case resp.Result != exchangerate.ResultSuccess:
		return fmt.Errorf("%w: result %q", ErrSchemaMismatch, resp.Result)
	case strings.TrimSpace(resp.BaseCode) == "":
		return fmt.Errorf("%w: missing base_code", ErrSchemaMismatch)
	case resp.TimeLastUpdateUnix <= 0:
		return fmt.Errorf("%w: missing time_last_update_unix", ErrSchemaMismatch)
	case resp.ConversionRates == nil:
		return fmt.Errorf("%w: missing conversion_rates", ErrSchemaMismatch)
	}
	return nil
}

// parseRate decodes a JSON number (or numeric string) into a positive float.
// A non-empty reason means the rate is rejected.
func parseRate(raw []byte) (float64, string) {
	s := string(bytes.Trim(bytes.TrimSpace(raw), `"`))
	if s == "" || s == "null" {
		return 0, ReasonNotANumber
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ReasonNotANumber
	}
	if !d.IsPositive() {
		return 0, ReasonNonPositive
	}

	f, _ := d.Float64()
	if f <= 0 || f > maxRate {
		return 0, ReasonOutOfRange
	}
	return f, ""
}

// maxRate bounds accepted rates well below float64 overflow.
const maxRate = 1e15

func validCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
