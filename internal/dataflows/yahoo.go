package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dyike/QuantLens/config"
	"github.com/dyike/QuantLens/internal/stats"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// YahooClient reads daily closes and listing data from Yahoo Finance.
type YahooClient struct {
	cache  *CacheManager
	retry  *RetryConfig
	logger zerolog.Logger
	now    func() time.Time
}

func NewYahooClient(cfg *config.Config, logger zerolog.Logger) *YahooClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "yahoo_finance")
	return &YahooClient{
		cache:  NewCacheManager(cacheDir, cfg.CacheTTL, cfg.CacheEnabled),
		retry:  DefaultRetryConfig(),
		logger: logger.With().Str("source", "yahoo").Logger(),
		now:    time.Now,
	}
}

// History returns the daily closes of the last days calendar days. Bars Yahoo reports
// without a close come back as gaps.
func (yc *YahooClient) History(ctx context.Context, symbol string, days int) (stats.PriceSeries, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	symbol = NormalizeSymbol(symbol)

	end := yc.now()
	start := end.AddDate(0, 0, -days)
	cacheKey := map[string]any{
		"symbol": symbol,
		"start":  start.Format(time.DateOnly),
		"end":    end.Format(time.DateOnly),
	}

	var cached stats.PriceSeries
	if yc.cache.Get("yahoo", "history", cacheKey, &cached) {
		yc.logger.Debug().Str("symbol", symbol).Int("bars", len(cached)).Msg("history cache hit")
		return cached, nil
	}

	var obs []stats.Observation
	err := WithRetry(ctx, yc.retry, func() error {
		iter := chart.Get(&chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		})

		obs = obs[:0]
		for iter.Next() {
			bar := iter.Bar()
			date := time.Unix(int64(bar.Timestamp), 0).UTC()
			if bar.Close.IsZero() {
				obs = append(obs, stats.Gap(date))
				continue
			}
			obs = append(obs, stats.Observation{Date: date, Close: decimal.NewNullDecimal(bar.Close)})
		}
		if err := iter.Err(); err != nil {
			yc.logger.Warn().Err(err).Str("symbol", symbol).Msg("history fetch failed")
			return fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	series := stats.NewPriceSeries(obs)
	if err := yc.cache.Set("yahoo", "history", cacheKey, series); err != nil {
		yc.logger.Warn().Err(err).Msg("history cache write failed")
	}
	return series, nil
}

// Exchange returns the display name of the exchange symbol is listed on.
func (yc *YahooClient) Exchange(ctx context.Context, symbol string) (string, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return "", err
	}
	symbol = NormalizeSymbol(symbol)

	var cached string
	if yc.cache.Get("yahoo", "exchange", symbol, &cached) {
		return cached, nil
	}

	var name string
	err := WithRetry(ctx, yc.retry, func() error {
		q, err := quote.Get(symbol)
		if err != nil {
			return fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}
		if q == nil {
			return fmt.Errorf("no quote for %s", symbol)
		}
		name = ExchangeName(q.ExchangeID)
		if name == "" {
			name = q.FullExchangeName
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := yc.cache.Set("yahoo", "exchange", symbol, name); err != nil {
		yc.logger.Warn().Err(err).Msg("exchange cache write failed")
	}
	return name, nil
}
