package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/QuantLens/config"
	"github.com/dyike/QuantLens/internal/dataflows"
	"github.com/dyike/QuantLens/internal/stats"
)

type fakeHistory struct {
	series stats.PriceSeries
	err    error
}

func (f fakeHistory) History(_ context.Context, _ string, _ int) (stats.PriceSeries, error) {
	return f.series, f.err
}

func (f fakeHistory) Exchange(_ context.Context, _ string) (string, error) {
	return "NYSE Arca", nil
}

func rising(n int) stats.PriceSeries {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(stats.PriceSeries, n)
	for i := range series {
		series[i] = stats.Point(day.AddDate(0, 0, i), 100+float64(i))
	}
	return series
}

// testEnv writes a config rooted in a temp dir and returns its path.
func testEnv(t *testing.T) (string, *config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfigWithRoot(root)
	path := filepath.Join(root, "config.json")
	require.NoError(t, config.WriteFile(path, *cfg))
	return path, cfg
}

func testApp(h dataflows.HistoryProvider) *app {
	a := newApp()
	a.newHistory = func(*config.Config, zerolog.Logger) dataflows.HistoryProvider { return h }
	a.interactive = func() bool { return false }
	return a
}

func runCLI(t *testing.T, a *app, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	path, _ := testEnv(t)
	out, err := runCLI(t, testApp(fakeHistory{}), "", "version", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "QuantLens dev\n", out)
}

func TestCleanFromStdin(t *testing.T) {
	path, _ := testEnv(t)
	out, err := runCLI(t, testApp(fakeHistory{}), "Trend Analysis: up", "clean", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "### Trend Analysis\nup\n", out)
}

func TestCleanFromFile(t *testing.T) {
	path, _ := testEnv(t)
	input := filepath.Join(t.TempDir(), "answer.txt")
	require.NoError(t, os.WriteFile(input, []byte("Price sits at $ 310 today."), 0o644))

	out, err := runCLI(t, testApp(fakeHistory{}), "", "clean", input, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "Price sits at $310 today.\n", out)
}

func TestCleanListsRules(t *testing.T) {
	path, _ := testEnv(t)
	out, err := runCLI(t, testApp(fakeHistory{}), "", "clean", "--rules", "--config", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "1. normalize-characters", strings.TrimSpace(lines[0]))
	assert.Equal(t, "10. finalize", strings.TrimSpace(lines[9]))
}

func TestStatsJSON(t *testing.T) {
	path, _ := testEnv(t)
	out, err := runCLI(t, testApp(fakeHistory{series: rising(30)}), "", "stats", "spy", "--days", "30", "--json", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"symbol": "SPY"`)
	assert.Contains(t, out, `"days": 30`)
	assert.Contains(t, out, `"observations": 30`)
	assert.Contains(t, out, `"trend"`)
}

func TestStatsText(t *testing.T) {
	path, _ := testEnv(t)
	out, err := runCLI(t, testApp(fakeHistory{series: rising(30)}), "", "stats", "SPY", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Statistics for SPY (90 days)")
	assert.Contains(t, out, "129.00")
	assert.Contains(t, out, "EMA 20")
}

func TestStatsNoData(t *testing.T) {
	path, _ := testEnv(t)
	out, err := runCLI(t, testApp(fakeHistory{err: errors.New("404")}), "", "stats", "ZZZZ", "--config", path)
	require.Error(t, err)
	assert.Contains(t, out, "No data available for ZZZZ")
}

func TestAnalyzeWithoutLLMThenHistory(t *testing.T) {
	path, cfg := testEnv(t)
	a := testApp(fakeHistory{series: rising(40)})

	out, err := runCLI(t, a, "", "analyze", "SPY", "--no-llm", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Analyzing SPY")
	assert.Contains(t, out, "NYSE Arca")
	assert.Contains(t, out, "Run ID")

	reports, err := filepath.Glob(filepath.Join(cfg.ResultsDir, "SPY", "*.md"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	out, err = runCLI(t, testApp(fakeHistory{}), "", "history", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "SPY")
	assert.Contains(t, out, "completed")
}

func TestAnalyzeNeedsSymbolWhenNotInteractive(t *testing.T) {
	path, _ := testEnv(t)
	_, err := runCLI(t, testApp(fakeHistory{}), "", "analyze", "--no-llm", "--config", path)
	assert.EqualError(t, err, "symbol is required")
}

func TestAnalyzeNeedsCredentials(t *testing.T) {
	path, _ := testEnv(t)
	for _, key := range []string{"PERPLEXITY_API_KEY", "DEEPSEEK_API_KEY", "OPENAI_API_KEY", "LLM_PROVIDER"} {
		t.Setenv(key, "")
	}
	_, err := runCLI(t, testApp(fakeHistory{series: rising(5)}), "", "analyze", "SPY", "--config", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrNoCredentials)
}

func TestHistoryEmptyAndMissingRun(t *testing.T) {
	path, _ := testEnv(t)
	out, err := runCLI(t, testApp(fakeHistory{}), "", "history", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No analysis runs recorded yet.")

	_, err = runCLI(t, testApp(fakeHistory{}), "", "history", "--id", "missing", "--config", path)
	assert.EqualError(t, err, "run missing not found")
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	out, err := runCLI(t, testApp(fakeHistory{}), "", "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, err = runCLI(t, testApp(fakeHistory{}), "", "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	out, err = runCLI(t, testApp(fakeHistory{}), "", "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "sonar-pro")
	assert.Contains(t, out, "20, 50, 100")
}

func TestConfigValidate(t *testing.T) {
	path, _ := testEnv(t)
	out, err := runCLI(t, testApp(fakeHistory{}), "", "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "settings: ok")
	assert.Contains(t, out, "directories: ok")
}

func TestValidateTicker(t *testing.T) {
	assert.NoError(t, validateTicker("es=f"))
	assert.NoError(t, validateTicker("^GSPC"))
	assert.NoError(t, validateTicker("700.hk"))
	assert.Error(t, validateTicker(""))
	assert.Error(t, validateTicker("SPY!"))
	assert.Error(t, validateTicker(42))
}
