// Package export turns composed HTML reports into shareable artifacts.
// Rendering runs a headless Chromium; callers keep a raw-HTML path for
// when no browser is available.
package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PageConfig controls the printed page geometry.
type PageConfig struct {
	PageSize  string  // A4, Letter, Legal, A3, A5
	Landscape bool
	Margin    float64 // inches, applied to all four sides
	Scale     float64
}

// DefaultPageConfig is the portrait A4 layout reports print with.
func DefaultPageConfig() PageConfig {
	return PageConfig{PageSize: "A4", Margin: 0.25, Scale: 1.0}
}

// Exporter renders an HTML document into a binary artifact.
type Exporter interface {
	Render(ctx context.Context, html string, cfg PageConfig) ([]byte, error)
}

// ChromeExporter renders PDFs through headless Chromium. The browser
// binary is resolved from CHROME_BIN when set.
type ChromeExporter struct {
	Timeout time.Duration
}

func (e ChromeExporter) Render(ctx context.Context, html string, cfg PageConfig) ([]byte, error) {
	timeout := e.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if chromePath := os.Getenv("CHROME_BIN"); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	width, height := paperSize(cfg.PageSize)
	scale := cfg.Scale
	if scale == 0 {
		scale = 1.0
	}

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))
	var pdf []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		// Arabic web fonts must be resolved before printing.
		chromedp.Evaluate(`document.fonts.ready`, nil),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPaperWidth(width).
				WithPaperHeight(height).
				WithMarginTop(cfg.Margin).
				WithMarginBottom(cfg.Margin).
				WithMarginLeft(cfg.Margin).
				WithMarginRight(cfg.Margin).
				WithLandscape(cfg.Landscape).
				WithPrintBackground(true).
				WithScale(scale).
				WithPreferCSSPageSize(false).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("render pdf: empty result")
	}
	return pdf, nil
}

// paperSize returns paper dimensions in inches.
func paperSize(pageSize string) (width, height float64) {
	switch pageSize {
	case "Letter":
		return 8.5, 11
	case "Legal":
		return 8.5, 14
	case "A3":
		return 11.69, 16.54
	case "A5":
		return 5.83, 8.27
	default:
		return 8.27, 11.69
	}
}

// Save writes an artifact into dir and returns its full path. The
// extension is appended to the already-sanitized name.
func Save(dir, name, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, name+"."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}
