package exchangerate

import (
	"encoding/json"
	"fmt"
)

// LatestResponse is the payload of the v6 "latest" endpoint.
// Rates are kept raw so the normalizer can reject unparseable values one by
// one instead of failing the whole payload.
type LatestResponse struct {
	Result             string                     `json:"result"`
	ErrorType          string                     `json:"error-type,omitempty"`
	BaseCode           string                     `json:"base_code"`
	TimeLastUpdateUnix int64                      `json:"time_last_update_unix"`
	TimeNextUpdateUnix int64                      `json:"time_next_update_unix,omitempty"`
	ConversionRates    map[string]json.RawMessage `json:"conversion_rates"`
}

// ResultSuccess is the value of Result on a successful response.
const ResultSuccess = "success"

// APIError is an error reported by the API in a well-formed response body.
// API errors are not retried.
type APIError struct {
	StatusCode int
	Type       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchangerate API error (status %d): %s", e.StatusCode, e.Type)
}
