package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"garimpo/internal/core"
	"garimpo/internal/logger"
	"garimpo/internal/metrics"
	"garimpo/internal/session"
)

const (
	// DefaultMinImageBytes rejects tracking pixels and broken thumbnails.
	DefaultMinImageBytes = 10 * 1024

	maxConcurrentDownloads = 4
	downloadSpacing        = 500 * time.Millisecond
	maxImageBytes          = 20 * 1024 * 1024
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

var unsafeTitleChars = regexp.MustCompile(`[^a-z0-9]+`)

// ImageRequest is one image URL plus the title used for the local filename.
type ImageRequest struct {
	URL   string
	Title string
}

// Downloader fetches remote images with validation and pacing.
type Downloader struct {
	paths    *session.Paths
	client   *http.Client
	limiter  *rate.Limiter
	minBytes int64
}

// NewDownloader builds a downloader. minBytes <= 0 uses the default floor.
func NewDownloader(paths *session.Paths, minBytes int64) *Downloader {
	if minBytes <= 0 {
		minBytes = DefaultMinImageBytes
	}
	return &Downloader{
		paths:    paths,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(downloadSpacing), 1),
		minBytes: minBytes,
	}
}

// DownloadImages fetches every valid request, bounded in parallelism and
// paced. Failures are logged and skipped; results keep request order.
func (d *Downloader) DownloadImages(ctx context.Context, requests []ImageRequest) []core.LocalImage {
	results := make([]*core.LocalImage, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDownloads)
	var mu sync.Mutex

	for i, req := range requests {
		i, req := i, req
		if !ValidImageURL(req.URL) {
			logger.Debug("image url rejected by pattern", "url", req.URL)
			continue
		}
		g.Go(func() error {
			if err := d.limiter.Wait(gctx); err != nil {
				return nil
			}
			img, err := d.downloadOne(gctx, req, i)
			if err != nil {
				logger.Warn("image download failed", "url", req.URL, "error", err.Error())
				return nil
			}
			mu.Lock()
			results[i] = &img
			mu.Unlock()
			metrics.ImagesDownloaded.Inc()
			return nil
		})
	}
	g.Wait()

	var out []core.LocalImage
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (d *Downloader) downloadOne(ctx context.Context, req ImageRequest, index int) (core.LocalImage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return core.LocalImage{}, err
	}
	httpReq.Header.Set("User-Agent", desktopUserAgent)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return core.LocalImage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.LocalImage{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	mimeType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		return core.LocalImage{}, fmt.Errorf("not an image: %s", mimeType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return core.LocalImage{}, err
	}
	if int64(len(data)) < d.minBytes {
		return core.LocalImage{}, fmt.Errorf("image too small: %d bytes", len(data))
	}

	path := filepath.Join(d.paths.ImagesDir(),
		fmt.Sprintf("%03d_%s%s", index, SafeTitle(req.Title), imageExtension(req.URL)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return core.LocalImage{}, fmt.Errorf("failed to write image: %w", err)
	}

	return core.LocalImage{
		SourceURL:     req.URL,
		LocalPath:     path,
		FileSizeBytes: int64(len(data)),
		MIMEType:      mimeType,
		DownloadedAt:  time.Now().UTC(),
	}, nil
}

// ValidImageURL accepts http(s) URLs that look like image links by extension
// or by a recognizable image-host path.
func ValidImageURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	lowerPath := strings.ToLower(parsed.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return true
		}
	}
	// Thumbnail/CDN hosts serve images without extensions.
	host := strings.ToLower(parsed.Hostname())
	for _, known := range []string{"img.youtube.com", "i.ytimg.com", "cdninstagram", "fbcdn", "twimg.com", "tiktokcdn"} {
		if strings.Contains(host, known) {
			return true
		}
	}
	return false
}

// SafeTitle reduces a title to a short lowercase token usable in a filename.
func SafeTitle(title string) string {
	safe := unsafeTitleChars.ReplaceAllString(strings.ToLower(title), "_")
	safe = strings.Trim(safe, "_")
	if len(safe) > 40 {
		safe = safe[:40]
	}
	if safe == "" {
		safe = "imagem"
	}
	return safe
}

func imageExtension(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(filepath.Ext(parsed.Path))
	for _, known := range imageExtensions {
		if ext == known {
			return ext
		}
	}
	return ".jpg"
}
