// Package sufficiency reports whether the observation history is deep and
// fresh enough for every derived field of the watch-list currencies.
package sufficiency

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/storage"
)

// Depths needed for the 7- and 30-observation variations to be defined.
const (
	MinObservations7d  = 8
	MinObservations30d = 31
)

// DefaultMaxAge is the oldest latest-observation age that still passes.
const DefaultMaxAge = 48 * time.Hour

// Check represents one sufficiency criterion.
type Check struct {
	Name      string `json:"name"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
	Pass      bool   `json:"pass"`
}

// CurrencyCoverage describes the stored history of one currency.
type CurrencyCoverage struct {
	Currency     string    `json:"currency"`
	Observations int       `json:"observations"`
	First        time.Time `json:"first,omitzero"`
	Last         time.Time `json:"last,omitzero"`
	Gaps         int       `json:"gaps"` // missing calendar days between first and last
}

// Result contains every check and the per-currency coverage.
type Result struct {
	Checks     []Check            `json:"checks"`
	AllPass    bool               `json:"all_pass"`
	Currencies []CurrencyCoverage `json:"currencies"`
	Errors     []string           `json:"errors,omitempty"` // data integrity errors
}

// Checker validates history sufficiency.
type Checker struct {
	store     storage.ObservationStore
	watchList []string
	maxAge    time.Duration
	now       func() time.Time
}

// NewChecker creates a checker over the watch-list currencies.
// An empty watch list checks every stored currency.
func NewChecker(store storage.ObservationStore, watchList []string) *Checker {
	return &Checker{
		store:     store,
		watchList: append([]string(nil), watchList...),
		maxAge:    DefaultMaxAge,
		now:       time.Now,
	}
}

// WithMaxAge overrides the freshness bound.
func (c *Checker) WithMaxAge(d time.Duration) *Checker {
	c.maxAge = d
	return c
}

// WithClock overrides the time source.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

// Check performs all sufficiency checks.
func (c *Checker) Check(ctx context.Context) (*Result, error) {
	obs, err := c.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}

	byCurrency := make(map[string][]*domain.Observation)
	for _, o := range obs {
		byCurrency[o.Currency] = append(byCurrency[o.Currency], o)
	}

	currencies := c.watchList
	if len(currencies) == 0 {
		for code := range byCurrency {
			currencies = append(currencies, code)
		}
		sort.Strings(currencies)
	}

	result := &Result{AllPass: true, Errors: []string{}}
	var missing, duplicates, gaps int
	minDepth := -1
	var oldest time.Time

	for _, code := range currencies {
		cov, dups := coverage(code, byCurrency[code])
		result.Currencies = append(result.Currencies, cov)

		if cov.Observations == 0 {
			missing++
			minDepth = 0
			continue
		}
		if minDepth < 0 || cov.Observations < minDepth {
			minDepth = cov.Observations
		}
		if oldest.IsZero() || cov.Last.Before(oldest) {
			oldest = cov.Last
		}
		gaps += cov.Gaps
		for _, ts := range dups {
			duplicates++
			result.Errors = append(result.Errors, fmt.Sprintf("duplicate observation %s at %s", code, ts.Format(time.RFC3339)))
		}
	}
	if minDepth < 0 {
		minDepth = 0
	}

	add := func(ch Check) {
		result.Checks = append(result.Checks, ch)
		if !ch.Pass {
			result.AllPass = false
		}
	}

	// Check 1: every watch-list currency has history
	add(Check{
		Name:      "watch_list_coverage",
		Threshold: "0 missing",
		Actual:    fmt.Sprintf("%d missing of %d", missing, len(currencies)),
		Pass:      missing == 0 && len(currencies) > 0,
	})

	// Check 2: 7-observation variation defined
	add(Check{
		Name:      "history_depth_7d",
		Threshold: fmt.Sprintf(">= %d observations", MinObservations7d),
		Actual:    fmt.Sprintf("%d", minDepth),
		Pass:      minDepth >= MinObservations7d,
	})

	// Check 3: 30-observation variation defined
	add(Check{
		Name:      "history_depth_30d",
		Threshold: fmt.Sprintf(">= %d observations", MinObservations30d),
		Actual:    fmt.Sprintf("%d", minDepth),
		Pass:      minDepth >= MinObservations30d,
	})

	// Check 4: freshness of the stalest currency
	age := "n/a"
	fresh := false
	if !oldest.IsZero() {
		d := c.now().Sub(oldest)
		age = d.Round(time.Minute).String()
		fresh = d <= c.maxAge
	}
	add(Check{
		Name:      "freshness",
		Threshold: "<= " + c.maxAge.String(),
		Actual:    age,
		Pass:      fresh,
	})

	// Check 5: no missing calendar days
	add(Check{
		Name:      "daily_gaps",
		Threshold: "0",
		Actual:    fmt.Sprintf("%d", gaps),
		Pass:      gaps == 0,
	})

	// Check 6: (currency, timestamp) is unique
	add(Check{
		Name:      "duplicate_keys",
		Threshold: "0",
		Actual:    fmt.Sprintf("%d", duplicates),
		Pass:      duplicates == 0,
	})

	return result, nil
}

// coverage summarizes obs of one currency, ordered by timestamp, and returns
// the timestamps that appear more than once.
func coverage(code string, obs []*domain.Observation) (CurrencyCoverage, []time.Time) {
	cov := CurrencyCoverage{Currency: code, Observations: len(obs)}
	if len(obs) == 0 {
		return cov, nil
	}
	cov.First = obs[0].Timestamp
	cov.Last = obs[len(obs)-1].Timestamp

	var dups []time.Time
	for i := 1; i < len(obs); i++ {
		prev, cur := obs[i-1].Timestamp, obs[i].Timestamp
		if cur.Equal(prev) {
			dups = append(dups, cur)
			continue
		}
		if days := int(domain.DayOf(cur).Sub(domain.DayOf(prev)).Hours() / 24); days > 1 {
			cov.Gaps += days - 1
		}
	}
	return cov, dups
}
