package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/QuantLens/internal/dataflows"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.=^-]+$`)

func validateTicker(val interface{}) error {
	str, ok := val.(string)
	if !ok {
		return fmt.Errorf("invalid ticker input")
	}
	str = dataflows.NormalizeSymbol(str)
	if err := dataflows.ValidateSymbol(str); err != nil {
		return err
	}
	if !tickerPattern.MatchString(str) {
		return fmt.Errorf("invalid ticker format (use letters, numbers, dots, hyphens, = and ^ only)")
	}
	return nil
}

// PromptForTicker asks for the ticker to analyze.
func PromptForTicker() (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Enter the ticker symbol (e.g., SPY, AAPL, ES=F, 700.HK):",
		Help:    "Yahoo Finance ticker; Hong Kong and China listings use Longport when configured",
	}

	if err := survey.AskOne(prompt, &ticker, survey.WithValidator(validateTicker)); err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ToUpper(ticker)), nil
}

// PromptForChart asks whether to capture the TradingView chart.
func PromptForChart() (bool, error) {
	var chart bool
	prompt := &survey.Confirm{
		Message: "Capture the saved TradingView chart for this ticker?",
		Default: false,
	}
	if err := survey.AskOne(prompt, &chart); err != nil {
		return false, err
	}
	return chart, nil
}
