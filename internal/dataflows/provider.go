package dataflows

import (
	"context"

	"github.com/dyike/QuantLens/config"
	"github.com/dyike/QuantLens/internal/stats"
	"github.com/rs/zerolog"
)

// HistoryProvider supplies daily close prices.
type HistoryProvider interface {
	History(ctx context.Context, symbol string, days int) (stats.PriceSeries, error)
	Exchange(ctx context.Context, symbol string) (string, error)
}

// Router sends Hong Kong and mainland listings to Longport when it is configured and
// everything else to Yahoo.
type Router struct {
	yahoo    HistoryProvider
	longport HistoryProvider
	logger   zerolog.Logger
}

// NewRouter builds the default provider set for cfg. A Longport login failure is logged
// and the router falls back to Yahoo for every symbol.
func NewRouter(cfg *config.Config, logger zerolog.Logger) *Router {
	r := &Router{
		yahoo:  NewYahooClient(cfg, logger),
		logger: logger,
	}
	if cfg.HasLongport() {
		lp, err := NewLongportClient(cfg, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("longport unavailable, using yahoo for all symbols")
		} else {
			r.longport = lp
		}
	}
	return r
}

func NewRouterWith(yahoo, longport HistoryProvider, logger zerolog.Logger) *Router {
	return &Router{yahoo: yahoo, longport: longport, logger: logger}
}

func (r *Router) pick(symbol string) HistoryProvider {
	if r.longport != nil && IsLongportSymbol(symbol) {
		return r.longport
	}
	return r.yahoo
}

func (r *Router) History(ctx context.Context, symbol string, days int) (stats.PriceSeries, error) {
	return r.pick(symbol).History(ctx, symbol, days)
}

func (r *Router) Exchange(ctx context.Context, symbol string) (string, error) {
	return r.pick(symbol).Exchange(ctx, symbol)
}

// Close releases the Longport connection, if any.
func (r *Router) Close() error {
	if c, ok := r.longport.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
