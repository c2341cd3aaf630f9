package analysis

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/dyike/QuantLens/config"
	"github.com/dyike/QuantLens/internal/llm"
	"github.com/dyike/QuantLens/internal/report"
	"github.com/dyike/QuantLens/internal/stats"
	"github.com/dyike/QuantLens/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	series stats.PriceSeries
	err    error
}

func (f *fakeHistory) History(_ context.Context, _ string, _ int) (stats.PriceSeries, error) {
	return f.series, f.err
}

func (f *fakeHistory) Exchange(_ context.Context, _ string) (string, error) {
	return "NYSE", nil
}

type fakeAnalyzer struct {
	chunks []*schema.Message
	err    error
	got    llm.PromptInput
}

func (f *fakeAnalyzer) Stream(_ context.Context, in llm.PromptInput) (*llm.MessageSource, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return llm.NewMessageSource(schema.StreamReaderFromArray(f.chunks)), nil
}

type fakeCapturer struct{ url string }

func (f *fakeCapturer) Screenshot(_ context.Context, url, path string) error {
	f.url = url
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("png"), 0o644)
}

type fakeOCR struct{}

func (fakeOCR) Extract(_ context.Context, _ string) (string, error) {
	return "SPY 1D EMA 20 510.2", nil
}

type memStore struct {
	runs []storage.RunRecord
}

func (m *memStore) SaveRun(_ context.Context, run storage.RunRecord) error {
	m.runs = append(m.runs, run)
	return nil
}

func rising(n int) stats.PriceSeries {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(stats.PriceSeries, n)
	for i := range series {
		series[i] = stats.Point(day.AddDate(0, 0, i), 100+float64(i))
	}
	return series
}

func newTestRunner(t *testing.T, deps Deps) (*Runner, *config.Config) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.EMAPeriods = []int{5, 10}
	if deps.Reports == nil {
		deps.Reports = report.NewWriter(cfg.ResultsDir)
	}
	return NewRunner(cfg, deps, zerolog.Nop()), cfg
}

func TestRunEndToEnd(t *testing.T) {
	store := &memStore{}
	analyzer := &fakeAnalyzer{chunks: []*schema.Message{
		{Role: schema.Assistant, Content: "Trend Analysis: SPY is rising, see https://a.example/x"},
		{Role: schema.Assistant, Content: " and more."},
	}}
	runner, _ := newTestRunner(t, Deps{
		History:  &fakeHistory{series: rising(30)},
		Analyzer: analyzer,
		Store:    store,
	})

	res, err := runner.Run(context.Background(), Request{Symbol: "spy", Days: 30})
	require.NoError(t, err)

	assert.Equal(t, "SPY", res.Symbol)
	assert.Equal(t, "NYSE", res.Exchange)
	require.True(t, res.Stats.OK())
	assert.Equal(t, 30, res.Stats.Metrics.Observations)
	require.NotNil(t, res.Trend)
	assert.Len(t, res.Trend.EMAs, 2)

	require.NotNil(t, res.Document)
	assert.False(t, res.Document.Failed())
	assert.True(t, strings.HasPrefix(res.Document.Body, "### Trend Analysis\n"), res.Document.Body)
	assert.Contains(t, res.Document.Body, "[1]")
	assert.NotContains(t, res.Document.Body, "https://")
	require.Len(t, res.Document.References, 1)

	assert.Equal(t, "SPY", analyzer.got.Symbol)
	assert.Contains(t, analyzer.got.Statistics, `"observations": 30`)
	assert.Contains(t, analyzer.got.Trend, "EMA5=")

	_, err = os.Stat(res.Paths.Markdown)
	assert.NoError(t, err)
	_, err = os.Stat(res.Paths.HTML)
	assert.NoError(t, err)

	require.Len(t, store.runs, 2)
	assert.Equal(t, storage.StatusRunning, store.runs[0].Status)
	last := store.runs[1]
	assert.Equal(t, res.ID, last.ID)
	assert.Equal(t, storage.StatusCompleted, last.Status)
	assert.Contains(t, last.Report, "--- References ---")
	assert.Equal(t, res.Paths.Markdown, last.ReportPath)
}

func TestRunWithoutData(t *testing.T) {
	store := &memStore{}
	analyzer := &fakeAnalyzer{}
	runner, _ := newTestRunner(t, Deps{
		History:  &fakeHistory{err: errors.New("no such ticker")},
		Analyzer: analyzer,
		Store:    store,
	})

	res, err := runner.Run(context.Background(), Request{Symbol: "ZZZZ"})
	require.NoError(t, err)

	assert.False(t, res.Stats.OK())
	assert.Equal(t, "No data available for ZZZZ", res.Stats.Error)
	assert.Equal(t, 90, res.Stats.Days)
	assert.Nil(t, res.Trend)
	assert.Contains(t, analyzer.got.Statistics, "No data available for ZZZZ")
	assert.Empty(t, analyzer.got.Trend)
}

func TestRunStatisticsEncodeFailure(t *testing.T) {
	restore := encodeStats
	encodeStats = func(any) ([]byte, error) { return nil, errors.New("encoder broke") }
	t.Cleanup(func() { encodeStats = restore })

	var logs bytes.Buffer
	analyzer := &fakeAnalyzer{chunks: []*schema.Message{{Role: schema.Assistant, Content: "ok"}}}
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.EMAPeriods = []int{5, 10}
	runner := NewRunner(cfg, Deps{
		History:  &fakeHistory{series: rising(30)},
		Analyzer: analyzer,
		Reports:  report.NewWriter(cfg.ResultsDir),
	}, zerolog.New(&logs))

	res, err := runner.Run(context.Background(), Request{Symbol: "SPY", Days: 30})
	require.NoError(t, err)

	assert.True(t, res.Stats.OK())
	assert.Equal(t, "Statistics unavailable for SPY", analyzer.got.Statistics)
	assert.Contains(t, logs.String(), "encoder broke")
	assert.Contains(t, logs.String(), "failed to encode statistics for the prompt")
}

func TestRunStreamFailure(t *testing.T) {
	store := &memStore{}
	runner, _ := newTestRunner(t, Deps{
		History:  &fakeHistory{series: rising(10)},
		Analyzer: &fakeAnalyzer{err: errors.New("401 unauthorized")},
		Store:    store,
	})

	res, err := runner.Run(context.Background(), Request{Symbol: "SPY"})
	require.NoError(t, err)
	require.NotNil(t, res.Document)
	assert.Equal(t, "Error occurred: 401 unauthorized", res.Document.String())

	last := store.runs[len(store.runs)-1]
	assert.Equal(t, storage.StatusFailed, last.Status)
	assert.Equal(t, "401 unauthorized", last.Error)
}

func TestRunSkipLLM(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	runner, _ := newTestRunner(t, Deps{
		History:  &fakeHistory{series: rising(10)},
		Analyzer: analyzer,
	})

	res, err := runner.Run(context.Background(), Request{Symbol: "BTC", Crypto: true, SkipLLM: true})
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", res.Symbol)
	assert.Nil(t, res.Document)
	assert.Empty(t, analyzer.got.Symbol)
}

func TestRunWithChart(t *testing.T) {
	capturer := &fakeCapturer{}
	analyzer := &fakeAnalyzer{}
	runner, cfg := newTestRunner(t, Deps{
		History:  &fakeHistory{series: rising(10)},
		Capturer: capturer,
		OCR:      fakeOCR{},
		Analyzer: analyzer,
	})
	cfg.TradingViewChartID = "CvaXuplE"

	res, err := runner.Run(context.Background(), Request{Symbol: "SPY", Chart: true})
	require.NoError(t, err)
	assert.Equal(t, "https://www.tradingview.com/chart/CvaXuplE/?symbol=SPY", capturer.url)
	assert.Equal(t, capturer.url, res.ChartURL)
	assert.Equal(t, "SPY 1D EMA 20 510.2", res.OCRText)
	assert.Equal(t, "SPY 1D EMA 20 510.2", analyzer.got.OCRText)
}

func TestRunRejectsBadInput(t *testing.T) {
	runner, _ := newTestRunner(t, Deps{History: &fakeHistory{}})
	_, err := runner.Run(context.Background(), Request{Symbol: " "})
	assert.Error(t, err)

	bare, _ := newTestRunner(t, Deps{})
	_, err = bare.Run(context.Background(), Request{Symbol: "SPY"})
	assert.Error(t, err)
}
