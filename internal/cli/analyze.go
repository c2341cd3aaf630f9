package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/QuantLens/internal/analysis"
	"github.com/dyike/QuantLens/internal/capture"
	"github.com/dyike/QuantLens/internal/llm"
	"github.com/dyike/QuantLens/internal/ocr"
	"github.com/dyike/QuantLens/internal/report"
	"github.com/dyike/QuantLens/internal/storage"
)

type analyzeOptions struct {
	days    int
	crypto  bool
	chart   bool
	noLLM   bool
	timeout time.Duration
}

func newAnalyzeCmd(a *app) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [SYMBOL]",
		Short: "Run a full analysis for a ticker",
		Long: `Fetch price history, compute volatility statistics and EMA trends, optionally capture
the saved TradingView chart, and stream an AI analysis with numbered citations.
Example: quantlens analyze SPY --days=90 --chart`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var symbol string
			if len(args) == 1 {
				symbol = args[0]
			} else {
				if !a.interactive() {
					return fmt.Errorf("symbol is required")
				}
				var err error
				if symbol, err = PromptForTicker(); err != nil {
					return err
				}
				if !cmd.Flags().Changed("chart") && a.cfg.TradingViewChartID != "" {
					if opts.chart, err = PromptForChart(); err != nil {
						return err
					}
				}
			}
			return a.runAnalyze(cmd.Context(), cmd.OutOrStdout(), symbol, opts)
		},
	}

	cmd.Flags().IntVar(&opts.days, "days", 0, "Statistics lookback in calendar days (config default when 0)")
	cmd.Flags().BoolVar(&opts.crypto, "crypto", false, "Treat the symbol as a cryptocurrency quoted in USD")
	cmd.Flags().BoolVar(&opts.chart, "chart", false, "Capture and OCR the saved TradingView chart")
	cmd.Flags().BoolVar(&opts.noLLM, "no-llm", false, "Skip the AI analysis")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Overall time limit")
	return cmd
}

func (a *app) runAnalyze(ctx context.Context, w io.Writer, symbol string, opts *analyzeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	cfg := a.cfg
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	history := a.newHistory(cfg, a.logger)
	if c, ok := history.(io.Closer); ok {
		defer c.Close()
	}

	deps := analysis.Deps{
		History: history,
		Reports: report.NewWriter(cfg.ResultsDir),
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		a.logger.Warn().Err(err).Msg("run history disabled")
	} else {
		defer store.Close()
		deps.Store = store
	}

	if opts.chart {
		deps.Capturer = capture.New(capture.Options{
			Headless: cfg.Headless,
			Timeout:  cfg.ScreenshotTimeout,
			Settle:   3 * time.Second,
		}, a.logger)
		deps.OCR = ocr.NewTesseract(cfg.TesseractPath, a.logger)
	}

	if !opts.noLLM {
		if err := llm.InitDebug(ctx, cfg, a.logger); err != nil {
			a.logger.Warn().Err(err).Msg("eino debug unavailable")
		}
		chatModel, err := llm.NewChatModel(ctx, cfg)
		if err != nil {
			return fmt.Errorf("%w (use --no-llm to skip the analysis)", err)
		}
		analyst, err := llm.NewAnalyst(ctx, chatModel, a.logger)
		if err != nil {
			return err
		}
		deps.Analyzer = analyst
	}

	printTitle(w, fmt.Sprintf("Analyzing %s", symbol))
	res, err := analysis.NewRunner(cfg, deps, a.logger).Run(ctx, analysis.Request{
		Symbol:  symbol,
		Days:    opts.days,
		Crypto:  opts.crypto,
		Chart:   opts.chart,
		SkipLLM: opts.noLLM,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	printResult(w, res)
	return nil
}

func printResult(w io.Writer, res *analysis.Result) {
	if res.Exchange != "" {
		printField(w, "Exchange", res.Exchange)
	}
	printReport(w, res.Stats)
	printTrend(w, res.Trend)
	if res.ChartURL != "" {
		printField(w, "Chart", res.ChartURL)
	}

	if res.Document != nil {
		printSection(w, "Analysis")
		if res.Document.Failed() {
			fmt.Fprintln(w, errorStyle.Render(res.Document.String()))
		} else {
			fmt.Fprintln(w, res.Document.String())
		}
	}

	fmt.Fprintln(w)
	if res.Paths.Markdown != "" {
		printField(w, "Report", res.Paths.Markdown)
		printField(w, "HTML", res.Paths.HTML)
	}
	printField(w, "Run ID", res.ID)
}
