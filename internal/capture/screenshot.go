// Package capture produces the visual evidence of a run: full-page
// screenshots through a headless browser and validated image downloads.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"garimpo/internal/core"
	"garimpo/internal/logger"
	"garimpo/internal/metrics"
	"garimpo/internal/session"
)

const (
	viewportWidth    = 1920
	viewportHeight   = 1080
	renderWait       = 3 * time.Second
	scrollPause      = 1 * time.Second
	perURLTimeout    = 30 * time.Second
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// cleanupScript hides the overlay chrome (cookie banners, modals, floating
// popups) that would otherwise dominate the capture.
const cleanupScript = `
(function() {
	const needles = ['cookie', 'consent', 'gdpr', 'lgpd', 'modal', 'popup',
		'overlay', 'newsletter', 'banner', 'subscribe', 'paywall'];
	document.querySelectorAll('div, section, aside').forEach(el => {
		const marker = ((el.className || '') + ' ' + (el.id || '')).toLowerCase();
		if (needles.some(n => marker.includes(n))) {
			el.style.display = 'none';
		}
	});
	document.body.style.overflow = 'auto';
	return true;
})()
`

// Target is one URL to capture plus the metadata carried onto the Screenshot
// record.
type Target struct {
	URL           string
	Title         string
	Platform      core.Platform
	ViralScore    float64
	ViralCategory core.ViralCategory
}

// Capturer drives one headless browser session. Captures are sequential; the
// browser context is not safe for concurrent navigation.
type Capturer struct {
	paths *session.Paths
}

// NewCapturer builds a capturer writing under the given session.
func NewCapturer(paths *session.Paths) *Capturer {
	return &Capturer{paths: paths}
}

// CaptureScreenshots navigates each target in order and saves full-page PNGs
// as {prefix}_{nn}.png. Individual failures are logged and skipped; the
// returned slice holds only verified files.
func (c *Capturer) CaptureScreenshots(ctx context.Context, targets []Target, prefix string) []core.Screenshot {
	if len(targets) == 0 {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(desktopUserAgent),
		chromedp.WindowSize(viewportWidth, viewportHeight),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	dir := c.paths.FilesDir()
	if prefix == "viral_content" {
		dir = c.paths.ViralScreenshotsDir()
	}

	var shots []core.Screenshot
	for i, target := range targets {
		select {
		case <-ctx.Done():
			logger.Warn("screenshot phase cancelled", "captured", len(shots), "pending", len(targets)-i)
			return shots
		default:
		}

		path := filepath.Join(dir, fmt.Sprintf("%s_%02d.png", prefix, i+1))
		shot, err := c.captureOne(browserCtx, target, path)
		if err != nil {
			logger.Warn("screenshot failed", "url", target.URL, "error", err.Error())
			continue
		}
		shots = append(shots, shot)
		metrics.ScreenshotsCaptured.Inc()
	}
	return shots
}

func (c *Capturer) captureOne(browserCtx context.Context, target Target, path string) (core.Screenshot, error) {
	tabCtx, cancel := context.WithTimeout(browserCtx, perURLTimeout)
	defer cancel()

	var buf []byte
	var finalURL string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(target.URL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Sleep(renderWait),
		chromedp.Evaluate(cleanupScript, nil),
		// Half-page scroll and back to trigger lazy-loaded media.
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
		chromedp.Sleep(scrollPause),
		chromedp.Evaluate(`window.scrollTo(0, 0)`, nil),
		chromedp.Sleep(scrollPause),
		chromedp.Location(&finalURL),
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return core.Screenshot{}, err
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return core.Screenshot{}, fmt.Errorf("failed to write screenshot: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		os.Remove(path)
		return core.Screenshot{}, fmt.Errorf("screenshot file empty or missing: %s", path)
	}

	logger.Info("screenshot captured", "url", target.URL, "path", path, "bytes", info.Size())
	return core.Screenshot{
		RelativePath:  c.paths.Relative(path),
		AbsolutePath:  path,
		SourceURL:     target.URL,
		FinalURL:      finalURL,
		Title:         target.Title,
		Platform:      target.Platform,
		ViralScore:    target.ViralScore,
		ViralCategory: target.ViralCategory,
		CapturedAt:    time.Now().UTC(),
		FileSizeBytes: info.Size(),
	}, nil
}
