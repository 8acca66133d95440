package page

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

var ErrBrowserUnavailable = errors.New("no headless browser available")

var browserNames = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
}

// FindBrowser returns configured when it exists, otherwise the first Chrome
// or Chromium executable on PATH.
func FindBrowser(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("%w: %s", ErrBrowserUnavailable, configured)
		}
		return configured, nil
	}
	for _, name := range browserNames {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrBrowserUnavailable
}

type RenderOptions struct {
	ExecPath  string
	UserAgent string
	// WaitSelector is polled until it matches or Timeout elapses.
	WaitSelector string
	Timeout      time.Duration
	// SettleDelay is slept when WaitSelector never appeared.
	SettleDelay time.Duration
}

// Renderer loads the listing in headless Chrome so script-built markup is
// present before extraction.
type Renderer struct {
	opts   RenderOptions
	logger *zap.Logger
}

func NewRenderer(opts RenderOptions, logger *zap.Logger) (*Renderer, error) {
	execPath, err := FindBrowser(opts.ExecPath)
	if err != nil {
		return nil, err
	}
	opts.ExecPath = execPath
	return &Renderer{opts: opts, logger: logger}, nil
}

func (r *Renderer) Document(ctx context.Context, url string) (*goquery.Document, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(r.opts.ExecPath),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(r.opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Start the browser on the parent context so per-step timeouts do not kill it.
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	navCtx, cancelNav := context.WithTimeout(browserCtx, r.opts.Timeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(url))
	cancelNav()
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", url, err)
	}

	if r.opts.WaitSelector != "" {
		waitCtx, cancelWait := context.WithTimeout(browserCtx, r.opts.Timeout)
		err = chromedp.Run(waitCtx, chromedp.WaitReady(r.opts.WaitSelector, chromedp.ByQuery))
		cancelWait()
		if err != nil {
			r.logger.Debug("Wait selector not found, settling",
				zap.String("selector", r.opts.WaitSelector),
				zap.Duration("settle", r.opts.SettleDelay),
			)
			if err := sleep(ctx, r.opts.SettleDelay); err != nil {
				return nil, err
			}
		}
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("reading rendered HTML: %w", err)
	}

	r.logger.Debug("Rendered page", zap.String("url", url), zap.Int("bytes", len(html)))
	return Normalize(strings.NewReader(html), "text/html; charset=utf-8")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
