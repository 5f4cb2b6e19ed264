package domain

// CurrencyMetadata maps a currency code to display names.
// Corresponds to currency_metadata table in PostgreSQL.
type CurrencyMetadata struct {
	Code    string // ISO 4217 code, PK
	Name    string // currency display name
	Country string // country name (English)
}
