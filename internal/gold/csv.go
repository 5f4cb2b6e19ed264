package gold

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"fx-trend-lab/internal/domain"
)

var csvHeader = []string{
	"currency", "timestamp", "rate", "base_currency",
	"var_1d", "var_7d", "var_30d",
	"ma_7d", "ma_30d",
	"volatility_7d", "volatility_30d",
	"diff_ma_7d", "diff_ma_30d",
	"consecutive_run_length",
	"trend", "trend_intensity", "momentum",
	"position_vs_ma7", "position_vs_ma30", "volatility_bucket",
	"currency_name", "country_name",
}

// RenderCSV writes rows as CSV with a header. Undefined values are empty cells.
func RenderCSV(w io.Writer, rows []*domain.FeatureRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range rows {
		rec := []string{
			r.Currency,
			r.Timestamp.UTC().Format(time.RFC3339),
			formatFloat(r.Rate),
			r.BaseCurrency,
			formatNullable(r.Var1d),
			formatNullable(r.Var7d),
			formatNullable(r.Var30d),
			formatFloat(r.MA7d),
			formatFloat(r.MA30d),
			formatNullable(r.Volatility7d),
			formatNullable(r.Volatility30d),
			formatFloat(r.DiffMA7d),
			formatFloat(r.DiffMA30d),
			strconv.Itoa(r.ConsecutiveRunLength),
			r.Trend.String(),
			r.TrendIntensity.String(),
			r.Momentum.String(),
			r.PositionVsMA7.String(),
			r.PositionVsMA30.String(),
			r.VolatilityBucket.String(),
			r.CurrencyName,
			r.CountryName,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSV writes rows to path, creating parent directories.
// The file is replaced atomically.
func WriteCSV(path string, rows []*domain.FeatureRow) error {
	if path == "" {
		return fmt.Errorf("write csv: empty path")
	}

	var buf bytes.Buffer
	if err := RenderCSV(&buf, rows); err != nil {
		return fmt.Errorf("render csv: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close csv: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod csv: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename csv: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
