package dataflows

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrEmptySymbol = errors.New("symbol cannot be empty")

const maxSymbolLen = 12

var exchangeNames = map[string]string{
	"NMS": "NASDAQ",
	"NYQ": "NYSE",
	"ASE": "AMEX",
	"CME": "Chicago Mercantile Exchange",
	"NYM": "NYMEX",
	"CBT": "CBOT",
	"ICE": "ICE Futures",
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}

func ValidateSymbol(symbol string) error {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return ErrEmptySymbol
	}
	if len(symbol) > maxSymbolLen {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	return nil
}

// YahooSymbol returns the Yahoo ticker; crypto symbols are quoted against USD.
func YahooSymbol(symbol string, crypto bool) string {
	symbol = NormalizeSymbol(symbol)
	if crypto && !strings.HasSuffix(symbol, "-USD") {
		return symbol + "-USD"
	}
	return symbol
}

// IsLongportSymbol reports whether the ticker is a Hong Kong or mainland China listing.
func IsLongportSymbol(symbol string) bool {
	symbol = NormalizeSymbol(symbol)
	for _, suffix := range []string{".HK", ".SH", ".SZ"} {
		if strings.HasSuffix(symbol, suffix) {
			return true
		}
	}
	return false
}

// ExchangeName maps a Yahoo exchange code to its display name. Unknown codes pass
// through unchanged.
func ExchangeName(code string) string {
	if name, ok := exchangeNames[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

// ChartURL returns the saved TradingView chart layout for symbol.
func ChartURL(chartID, symbol string) string {
	return fmt.Sprintf("https://www.tradingview.com/chart/%s/?symbol=%s",
		url.PathEscape(chartID), url.QueryEscape(NormalizeSymbol(symbol)))
}
