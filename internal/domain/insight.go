package domain

import "time"

// DailyInsight is the narration artifact for one calendar day.
// Corresponds to daily_insights table in PostgreSQL.
type DailyInsight struct {
	Date          time.Time // calendar day (UTC midnight), PK
	Text          string    // generated markdown paragraph
	PromptVersion string    // prompt template version
	Currencies    []string  // watch-list currencies covered
	CreatedAt     time.Time // record creation time
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
