// Package capture takes screenshots of saved TradingView chart layouts with a
// headless Chrome instance.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// ChartCanvas matches the main price pane of a TradingView chart.
const ChartCanvas = `canvas[data-name="pane-canvas"]`

type Options struct {
	Headless bool
	Timeout  time.Duration
	// Settle is how long to wait after the canvas appears so indicators can draw.
	Settle   time.Duration
	Selector string
	Width    int
	Height   int
	// ExecPath overrides the Chrome binary; empty uses the chromedp lookup.
	ExecPath string
}

func DefaultOptions() Options {
	return Options{
		Headless: true,
		Timeout:  60 * time.Second,
		Settle:   3 * time.Second,
		Selector: ChartCanvas,
		Width:    1920,
		Height:   1080,
	}
}

type Capturer struct {
	opts   Options
	logger zerolog.Logger
}

func New(opts Options, logger zerolog.Logger) *Capturer {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Selector == "" {
		opts.Selector = def.Selector
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	return &Capturer{opts: opts, logger: logger.With().Str("component", "capture").Logger()}
}

func (c *Capturer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.WindowSize(c.opts.Width, c.opts.Height),
	)
	if c.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ExecPath))
	}
	return opts
}

// Screenshot loads url, waits for the chart canvas and stores a full-page PNG at path.
func (c *Capturer) Screenshot(ctx context.Context, url, path string) error {
	if url == "" {
		return errors.New("capture url is empty")
	}
	if path == "" {
		return errors.New("capture path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, c.opts.Timeout)
	defer cancel()

	start := time.Now()
	c.logger.Info().Str("url", url).Msg("waiting for chart canvas")

	var buf []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(c.opts.Selector, chromedp.ByQuery),
		chromedp.Sleep(c.opts.Settle),
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return fmt.Errorf("capture %s: %w", url, err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("save screenshot: %w", err)
	}

	c.logger.Info().
		Str("path", path).
		Int("bytes", len(buf)).
		Dur("elapsed", time.Since(start)).
		Msg("chart screenshot saved")
	return nil
}
