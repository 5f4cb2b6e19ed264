package narration

import (
	"fmt"
	"strings"
	"time"

	"fx-trend-lab/internal/domain"
)

// PromptVersion identifies the prompt template stored with each insight.
const PromptVersion = "v1.0"

// FormatLine renders one row as a prompt line.
// The country falls back to the currency name, then the code, on a metadata gap.
func FormatLine(r *domain.FeatureRow) string {
	label := r.CountryName
	if label == "" {
		label = r.CurrencyName
	}
	if label == "" {
		label = r.Currency
	}
	return fmt.Sprintf("%s (%s): trend %s, intensity %s, %s of 7-day average, volatility %s",
		label,
		r.Currency,
		r.Trend,
		r.TrendIntensity,
		r.PositionVsMA7,
		r.VolatilityBucket,
	)
}

// BuildPrompt renders the generation prompt for day.
func BuildPrompt(day time.Time, lines []string) string {
	var sb strings.Builder

	sb.WriteString("You are a financial analyst specialized in foreign exchange. ")
	sb.WriteString("Based on the exchange-rate data below, write one paragraph analyzing the situation of the main currencies.\n\n")
	fmt.Fprintf(&sb, "Analysis date: %s\n\n", domain.DayOf(day).Format("2006-01-02"))

	sb.WriteString("Currency data:\n")
	for _, line := range lines {
		sb.WriteString("- ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString("\nInstructions:\n")
	sb.WriteString("- Write a paragraph of 3-4 sentences\n")
	sb.WriteString("- Focus on the most relevant currencies (USD, EUR, GBP first)\n")
	sb.WriteString("- Mention interesting trends or standout patterns\n")
	sb.WriteString("- Use professional but accessible language\n")
	sb.WriteString("- Avoid repeating obvious information\n")
	sb.WriteString("- Highlight contrasts between currencies when relevant\n")
	sb.WriteString("- Use markdown: **bold** for important countries or currencies, *italics* for trends\n\n")
	sb.WriteString("Answer only with the markdown paragraph, without introductions or extra explanations.")

	return sb.String()
}
