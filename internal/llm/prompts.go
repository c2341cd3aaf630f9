package llm

import (
	"embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed prompts
var promptFiles embed.FS

// emptySection stands in for any prompt section without data.
const emptySection = "empty"

func loadPrompt(name string) (string, error) {
	content, err := promptFiles.ReadFile(fmt.Sprintf("prompts/%s.md", name))
	if err != nil {
		return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
	}
	return string(content), nil
}

// PromptInput carries the per-run data rendered into the analysis prompt.
type PromptInput struct {
	Symbol     string
	Exchange   string
	Days       int
	OCRText    string
	Statistics string
	Trend      string
	Chart      string
}

func (in PromptInput) variables() map[string]any {
	orEmpty := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return emptySection
		}
		return s
	}
	exchange := in.Exchange
	if exchange == "" {
		exchange = "unknown exchange"
	}
	return map[string]any{
		"symbol":         in.Symbol,
		"exchange":       exchange,
		"days":           strconv.Itoa(in.Days),
		"processed_data": orEmpty(in.OCRText),
		"statistics":     orEmpty(in.Statistics),
		"trend":          orEmpty(in.Trend),
		"chart":          orEmpty(in.Chart),
	}
}
