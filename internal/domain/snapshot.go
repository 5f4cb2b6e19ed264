package domain

import "time"

// Snapshot is the latest published set of feature rows for the watch-list.
type Snapshot struct {
	Timestamp   time.Time     `json:"timestamp"`
	GeneratedAt time.Time     `json:"generated_at"`
	Rows        []SnapshotRow `json:"rows"`
}

// SnapshotRow is the dashboard view of one FeatureRow.
type SnapshotRow struct {
	Currency         string   `json:"currency"`
	CountryName      string   `json:"country_name"`
	Rate             float64  `json:"rate"`
	Var1d            *float64 `json:"var_1d"`
	MA7d             float64  `json:"ma_7d"`
	Trend            string   `json:"trend"`
	TrendIntensity   string   `json:"trend_intensity"`
	Momentum         string   `json:"momentum"`
	PositionVsMA7    string   `json:"position_vs_ma7"`
	VolatilityBucket string   `json:"volatility_bucket"`
}
