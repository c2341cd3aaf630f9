package dataflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dyike/QuantLens/config"
	"github.com/dyike/QuantLens/internal/stats"
	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// tradingDaysPerWeek converts a calendar window into a candlestick count.
const tradingDaysPerWeek = 5

// maxCandlesticks is the largest count the candlestick endpoint accepts.
const maxCandlesticks = 1000

type LongportClient struct {
	quoteCtx *quote.QuoteContext
	logger   zerolog.Logger
}

func NewLongportClient(cfg *config.Config, logger zerolog.Logger) (*LongportClient, error) {
	if !cfg.HasLongport() {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{
		quoteCtx: quoteContext,
		logger:   logger.With().Str("source", "longport").Logger(),
	}, nil
}

// History returns daily closes covering roughly the last days calendar days.
func (lpc *LongportClient) History(ctx context.Context, symbol string, days int) (stats.PriceSeries, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	symbol = NormalizeSymbol(symbol)

	sticks, err := lpc.quoteCtx.Candlesticks(ctx, symbol, quote.PeriodDay, int32(candlestickCount(days)), quote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("failed to get candlesticks for %s: %w", symbol, err)
	}
	lpc.logger.Debug().Str("symbol", symbol).Int("bars", len(sticks)).Msg("candlesticks fetched")

	cutoff := time.Now().AddDate(0, 0, -days)
	obs := make([]stats.Observation, 0, len(sticks))
	for _, stick := range sticks {
		if stick == nil {
			continue
		}
		date := time.Unix(stick.Timestamp, 0).UTC()
		if date.Before(cutoff) {
			continue
		}
		if stick.Close == nil || stick.Close.IsZero() {
			obs = append(obs, stats.Gap(date))
			continue
		}
		obs = append(obs, stats.Observation{Date: date, Close: decimal.NewNullDecimal(*stick.Close)})
	}
	return stats.NewPriceSeries(obs), nil
}

// Exchange returns the listing market reported by the static-info endpoint.
func (lpc *LongportClient) Exchange(ctx context.Context, symbol string) (string, error) {
	if lpc.quoteCtx == nil {
		return "", errors.New("quote context is nil")
	}
	infos, err := lpc.quoteCtx.StaticInfo(ctx, []string{NormalizeSymbol(symbol)})
	if err != nil {
		return "", fmt.Errorf("failed to get static info for %s: %w", symbol, err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return "", fmt.Errorf("no static info for %s", symbol)
	}
	return infos[0].Exchange, nil
}

func (lpc *LongportClient) Close() error {
	if lpc.quoteCtx == nil {
		return nil
	}
	return lpc.quoteCtx.Close()
}

// candlestickCount sizes a request so that it spans days calendar days.
func candlestickCount(days int) int {
	n := days*tradingDaysPerWeek/7 + tradingDaysPerWeek
	if n > maxCandlesticks {
		n = maxCandlesticks
	}
	return n
}
