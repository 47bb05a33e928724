// Package providers holds one client per external API plus the registry that
// dispatches to them. Every client normalizes its responses to
// core.SearchResult and shares the credential pool, the per-provider rate
// limiters and the failure classification below.
package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"garimpo/internal/core"
	"garimpo/internal/keypool"
	"garimpo/internal/logger"
	"garimpo/internal/metrics"
)

// Limits bounds one search call.
type Limits struct {
	MaxResults int
	Since      time.Duration // only results newer than this window
}

// Searcher is the uniform capability every provider client implements.
type Searcher interface {
	Search(ctx context.Context, query string, limits Limits) (core.ProviderResponse, error)
	Name() string
}

// maxKeyAttempts bounds how many credentials one logical call may burn
// through: the original plus one rotation.
const maxKeyAttempts = 2

const rateLimitBackoff = 300 * time.Millisecond

// doWithRotation runs an HTTP request built per credential, classifying
// failures against the key pool: 401/403/400 mark AUTH, 429 marks RATE_LIMIT
// with a small backoff, 5xx and transport errors mark SERVER_ERROR/NETWORK.
// Each classification rotates to the next credential, at most once.
func doWithRotation(ctx context.Context, client *http.Client, pool *keypool.Pool, provider string,
	build func(key string) (*http.Request, error)) ([]byte, error) {

	var lastErr error
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, handle, ok := pool.NextKey(provider)
		if !ok {
			if lastErr != nil {
				return nil, fmt.Errorf("%s: no credentials available: %w", provider, lastErr)
			}
			return nil, fmt.Errorf("%s: no credentials available", provider)
		}

		req, err := build(key)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to build request: %w", provider, err)
		}
		req = req.WithContext(ctx)

		resp, err := client.Do(req)
		if err != nil {
			pool.MarkFailed(handle, keypool.ReasonNetwork)
			metrics.APICalls.WithLabelValues(provider, "network_error").Inc()
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				lastErr = err
				continue
			}
			metrics.APICalls.WithLabelValues(provider, "ok").Inc()
			return body, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			pool.MarkFailed(handle, keypool.ReasonRateLimit)
			metrics.APICalls.WithLabelValues(provider, "rate_limited").Inc()
			lastErr = fmt.Errorf("%s: rate limited (429)", provider)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(rateLimitBackoff):
			}

		case resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden ||
			resp.StatusCode == http.StatusBadRequest:
			resp.Body.Close()
			pool.MarkFailed(handle, keypool.ReasonAuth)
			metrics.APICalls.WithLabelValues(provider, "auth_error").Inc()
			lastErr = fmt.Errorf("%s: credential rejected (status %d)", provider, resp.StatusCode)

		case resp.StatusCode >= 500:
			resp.Body.Close()
			pool.MarkFailed(handle, keypool.ReasonServerError)
			metrics.APICalls.WithLabelValues(provider, "server_error").Inc()
			lastErr = fmt.Errorf("%s: server error (status %d)", provider, resp.StatusCode)

		default:
			resp.Body.Close()
			metrics.APICalls.WithLabelValues(provider, "unexpected_status").Inc()
			return nil, fmt.Errorf("%s: unexpected status %d", provider, resp.StatusCode)
		}
	}

	logger.Warn("provider exhausted credential attempts", "provider", provider, "error", lastErr.Error())
	return nil, lastErr
}
