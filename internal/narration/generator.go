package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyResponse is returned when a generator produces no text.
var ErrEmptyResponse = errors.New("narration: empty response")

// Request is the input of one generation.
type Request struct {
	Day    time.Time
	Lines  []string
	Prompt string
}

// Generator turns a request into summary text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// TemplateGenerator renders the prompt lines as markdown without a model call.
type TemplateGenerator struct{}

// Name returns the generator label.
func (TemplateGenerator) Name() string { return "template" }

// Generate returns a markdown list of the lines.
func (TemplateGenerator) Generate(_ context.Context, req Request) (string, error) {
	if len(req.Lines) == 0 {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Exchange-rate overview for %s**\n\n", req.Day.UTC().Format("2006-01-02"))
	for _, line := range req.Lines {
		sb.WriteString("- ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

var _ Generator = TemplateGenerator{}
