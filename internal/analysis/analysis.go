// Package analysis runs one end-to-end market analysis: price history, volatility
// statistics, trend, optional chart capture, the streamed model answer and the report.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyike/QuantLens/config"
	"github.com/dyike/QuantLens/internal/dataflows"
	"github.com/dyike/QuantLens/internal/llm"
	"github.com/dyike/QuantLens/internal/markdown"
	"github.com/dyike/QuantLens/internal/ocr"
	"github.com/dyike/QuantLens/internal/report"
	"github.com/dyike/QuantLens/internal/stats"
	"github.com/dyike/QuantLens/internal/storage"
	"github.com/dyike/QuantLens/internal/stream"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// encodeStats renders the statistics record for the prompt.
var encodeStats = func(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// Capturer saves a screenshot of a chart page.
type Capturer interface {
	Screenshot(ctx context.Context, url, path string) error
}

// Analyzer streams the model answer for a prompt.
type Analyzer interface {
	Stream(ctx context.Context, in llm.PromptInput) (*llm.MessageSource, error)
}

// RunStore persists run records.
type RunStore interface {
	SaveRun(ctx context.Context, run storage.RunRecord) error
}

// Deps are the collaborators of a Runner. History is required; the chart pieces and the
// analyzer are optional and their steps are skipped when nil.
type Deps struct {
	History  dataflows.HistoryProvider
	Capturer Capturer
	OCR      ocr.Extractor
	Analyzer Analyzer
	Store    RunStore
	Reports  *report.Writer
}

type Request struct {
	Symbol  string
	Days    int // statistics lookback; zero uses the configured default
	Crypto  bool
	Chart   bool // capture the TradingView chart and OCR it
	SkipLLM bool
}

type Result struct {
	ID       string
	Symbol   string
	Exchange string
	Stats    stats.VolatilityReport
	Trend    *stats.TrendSnapshot
	ChartURL string
	OCRText  string
	Document *stream.Document
	Paths    report.Paths
}

type Runner struct {
	cfg    *config.Config
	deps   Deps
	logger zerolog.Logger
	now    func() time.Time
}

func NewRunner(cfg *config.Config, deps Deps, logger zerolog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With().Str("component", "analysis").Logger(),
		now:    time.Now,
	}
}

// Run executes req. Missing price data and chart failures are reported inside the
// result; only invalid input, a missing provider and storage or report write failures
// return an error.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := dataflows.ValidateSymbol(req.Symbol); err != nil {
		return nil, err
	}
	if r.deps.History == nil {
		return nil, fmt.Errorf("no price history provider configured")
	}
	days := req.Days
	if days <= 0 {
		days = r.cfg.LookbackDays
	}

	symbol := dataflows.YahooSymbol(req.Symbol, req.Crypto)
	started := r.now()
	res := &Result{ID: uuid.NewString(), Symbol: symbol}
	log := r.logger.With().Str("run_id", res.ID).Str("symbol", symbol).Logger()
	log.Info().Int("days", days).Msg("analysis started")

	if err := r.save(ctx, res, days, storage.StatusRunning, "", ""); err != nil {
		return nil, err
	}

	exchange, err := r.deps.History.Exchange(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Msg("exchange lookup failed")
	}
	res.Exchange = exchange

	res.Stats = r.statistics(ctx, log, symbol, days)
	res.Trend = r.trend(ctx, log, symbol)

	if req.Chart {
		res.ChartURL, res.OCRText = r.chart(ctx, log, symbol, started)
	}

	if !req.SkipLLM && r.deps.Analyzer != nil {
		doc := r.analyze(ctx, log, res, days)
		res.Document = &doc
	}

	if r.deps.Reports != nil {
		paths, err := r.deps.Reports.Write(report.Report{
			Symbol:    symbol,
			Exchange:  res.Exchange,
			CreatedAt: started,
			Stats:     res.Stats,
			Trend:     res.Trend,
			ChartURL:  res.ChartURL,
			Analysis:  res.Document,
		})
		if err != nil {
			_ = r.save(ctx, res, days, storage.StatusFailed, "", err.Error())
			return nil, err
		}
		res.Paths = paths
	}

	status, failure, body := storage.StatusCompleted, "", ""
	if res.Document != nil {
		body = res.Document.String()
		if res.Document.Failed() {
			status, failure = storage.StatusFailed, res.Document.Failure
		}
	}
	if err := r.save(ctx, res, days, status, body, failure); err != nil {
		return nil, err
	}

	log.Info().Str("status", status).Dur("elapsed", r.now().Sub(started)).Msg("analysis finished")
	return res, nil
}

func (r *Runner) statistics(ctx context.Context, log zerolog.Logger, symbol string, days int) stats.VolatilityReport {
	series, err := r.deps.History.History(ctx, symbol, days)
	if err != nil {
		log.Warn().Err(err).Msg("history fetch failed")
		return stats.Compute(symbol, nil, days)
	}
	return stats.Compute(symbol, series, days)
}

func (r *Runner) trend(ctx context.Context, log zerolog.Logger, symbol string) *stats.TrendSnapshot {
	series, err := r.deps.History.History(ctx, symbol, r.cfg.ChartDays)
	if err != nil {
		log.Warn().Err(err).Msg("trend history fetch failed")
		return nil
	}
	snap, err := stats.Trend(series, r.cfg.EMAPeriods)
	if err != nil {
		log.Warn().Err(err).Msg("trend unavailable")
		return nil
	}
	return snap
}

func (r *Runner) chart(ctx context.Context, log zerolog.Logger, symbol string, at time.Time) (string, string) {
	if r.cfg.TradingViewChartID == "" || r.deps.Capturer == nil {
		log.Warn().Msg("chart capture not configured")
		return "", ""
	}
	url := dataflows.ChartURL(r.cfg.TradingViewChartID, symbol)
	shot := filepath.Join(r.cfg.ResultsDir, symbol, at.Format("20060102-150405")+".png")
	if err := r.deps.Capturer.Screenshot(ctx, url, shot); err != nil {
		log.Warn().Err(err).Msg("chart capture failed")
		return url, ""
	}
	if r.deps.OCR == nil {
		return url, ""
	}
	text, err := r.deps.OCR.Extract(ctx, shot)
	if err != nil {
		log.Warn().Err(err).Msg("chart OCR failed")
		return url, ""
	}
	return url, text
}

func (r *Runner) analyze(ctx context.Context, log zerolog.Logger, res *Result, days int) stream.Document {
	in := llm.PromptInput{
		Symbol:     res.Symbol,
		Exchange:   res.Exchange,
		Days:       days,
		OCRText:    res.OCRText,
		Statistics: statisticsText(log, res.Stats),
		Chart:      res.ChartURL,
	}
	if res.Trend != nil {
		in.Trend = res.Trend.String()
	}

	src, err := r.deps.Analyzer.Stream(ctx, in)
	if err != nil {
		log.Error().Err(err).Msg("analysis stream failed to start")
		return stream.Start().Fail(err)
	}
	defer src.Close()

	doc := stream.Consume(src)
	if doc.Failed() {
		log.Error().Str("failure", doc.Failure).Msg("analysis stream failed")
		return doc
	}
	doc.Body = markdown.Clean(doc.Body)
	log.Info().Int("references", len(doc.References)).Msg("analysis received")
	return doc
}

// statisticsText falls back to the report's error, or a fixed notice, when the record
// cannot be encoded.
func statisticsText(log zerolog.Logger, vr stats.VolatilityReport) string {
	data, err := encodeStats(vr)
	if err == nil {
		return string(data)
	}
	log.Warn().Err(err).Msg("failed to encode statistics for the prompt")
	if vr.Error != "" {
		return vr.Error
	}
	return "Statistics unavailable for " + vr.Symbol
}

func (r *Runner) save(ctx context.Context, res *Result, days int, status, body, failure string) error {
	if r.deps.Store == nil {
		return nil
	}
	statsJSON := ""
	if res.Stats.Symbol != "" {
		data, err := json.Marshal(res.Stats)
		if err != nil {
			r.logger.Warn().Err(err).Str("run_id", res.ID).Msg("failed to encode statistics for storage")
		} else {
			statsJSON = string(data)
		}
	}
	err := r.deps.Store.SaveRun(ctx, storage.RunRecord{
		ID:         res.ID,
		Symbol:     res.Symbol,
		Days:       days,
		Status:     status,
		StatsJSON:  statsJSON,
		Report:     strings.TrimSpace(body),
		ReportPath: res.Paths.Markdown,
		Error:      failure,
	})
	if err != nil {
		return fmt.Errorf("record run %s: %w", res.ID, err)
	}
	return nil
}
