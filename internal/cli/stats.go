package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyike/QuantLens/internal/dataflows"
	"github.com/dyike/QuantLens/internal/stats"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		days    int
		crypto  bool
		asJSON  bool
		noTrend bool
	)
	cmd := &cobra.Command{
		Use:   "stats SYMBOL",
		Short: "Compute volatility statistics without the AI analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := a.cfg
			if days <= 0 {
				days = cfg.LookbackDays
			}
			symbol := dataflows.YahooSymbol(args[0], crypto)
			if err := dataflows.ValidateSymbol(symbol); err != nil {
				return err
			}

			history := a.newHistory(cfg, a.logger)
			series, err := history.History(ctx, symbol, days)
			if err != nil {
				a.logger.Warn().Err(err).Str("symbol", symbol).Msg("history fetch failed")
				series = nil
			}
			report := stats.Compute(symbol, series, days)

			var trend *stats.TrendSnapshot
			if !noTrend {
				if long, err := history.History(ctx, symbol, cfg.ChartDays); err == nil {
					trend, _ = stats.Trend(long, cfg.EMAPeriods)
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					stats.VolatilityReport
					Trend *stats.TrendSnapshot `json:"trend,omitempty"`
				}{report, trend})
			}

			printReport(out, report)
			printTrend(out, trend)
			if !report.OK() {
				return fmt.Errorf("no statistics for %s", symbol)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Lookback in calendar days (config default when 0)")
	cmd.Flags().BoolVar(&crypto, "crypto", false, "Treat the symbol as a cryptocurrency quoted in USD")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&noTrend, "no-trend", false, "Skip the EMA trend")
	return cmd
}
