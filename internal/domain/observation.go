package domain

import "time"

// Observation is one exchange-rate sample for a quote currency.
// Corresponds to observations table in PostgreSQL.
type Observation struct {
	Currency     string    // ISO 4217 quote currency code
	Timestamp    time.Time // upstream update instant, UTC
	Rate         float64   // units of Currency per one BaseCurrency, > 0
	BaseCurrency string    // ISO 4217 base currency code
}

// Key returns the uniqueness key of the observation.
func (o *Observation) Key() ObservationKey {
	return ObservationKey{Currency: o.Currency, Timestamp: o.Timestamp.UTC().UnixMilli()}
}

// ObservationKey identifies an observation: (currency, timestamp).
type ObservationKey struct {
	Currency  string
	Timestamp int64 // Unix milliseconds
}
