package extractor

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync/atomic"
	"time"
)

// userAgents rotate across requests so a burst of fetches does not present a
// single fingerprint.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

const (
	maxRetries   = 3
	retryBase    = 1 * time.Second
	maxBodyBytes = 5 << 20 // 5 MiB fetch ceiling per page
)

// Session is the shared HTTP session for the extraction pipeline: one
// connection pool, a rotating User-Agent and a tolerant retry policy
// (retries on 429 and 5xx with exponential backoff).
type Session struct {
	client         *http.Client
	insecureClient *http.Client
	uaCursor       atomic.Uint64
}

// NewSession builds a session with the given per-request timeout.
func NewSession(timeout time.Duration) *Session {
	insecureTransport := http.DefaultTransport.(*http.Transport).Clone()
	insecureTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	return &Session{
		client:         &http.Client{Timeout: timeout},
		insecureClient: &http.Client{Timeout: timeout, Transport: insecureTransport},
	}
}

func (s *Session) nextUserAgent() string {
	n := s.uaCursor.Add(1)
	return userAgents[int(n)%len(userAgents)]
}

// Get fetches a URL with retries and returns the body. TLS verification is
// on; use GetInsecure only for the certificate-error retry path.
func (s *Session) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return s.get(ctx, s.client, url, headers)
}

// GetInsecure fetches with TLS verification disabled. Only the extraction
// fallback uses it, and never for authenticated requests.
func (s *Session) GetInsecure(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return s.get(ctx, s.insecureClient, url, headers)
}

func (s *Session) get(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * retryBase
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
		}
		req.Header.Set("User-Agent", s.nextUserAgent())
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.5")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("fetch %s failed after %d attempts: %w", url, maxRetries, lastErr)
}
