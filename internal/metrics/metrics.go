// Package metrics exposes the in-process Prometheus counters for provider
// traffic, key rotation and visual capture.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APICalls counts outbound provider calls by provider and outcome.
	APICalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garimpo",
		Name:      "api_calls_total",
		Help:      "Outbound provider API calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	// KeyRotations counts credential hand-outs per provider.
	KeyRotations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garimpo",
		Name:      "key_rotations_total",
		Help:      "Credential rotations per provider.",
	}, []string{"provider"})

	// KeyFailures counts credentials marked failed, by provider and reason.
	KeyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garimpo",
		Name:      "key_failures_total",
		Help:      "Credentials placed in cooldown, by provider and reason.",
	}, []string{"provider", "reason"})

	// ScreenshotsCaptured counts successful screenshot captures.
	ScreenshotsCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "garimpo",
		Name:      "screenshots_captured_total",
		Help:      "Screenshots successfully written to disk.",
	})

	// ImagesDownloaded counts images that passed size and MIME validation.
	ImagesDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "garimpo",
		Name:      "images_downloaded_total",
		Help:      "Viral images downloaded and validated.",
	})

	// PagesExtracted counts pages that survived the extraction pipeline,
	// by extraction method.
	PagesExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garimpo",
		Name:      "pages_extracted_total",
		Help:      "Pages extracted, by winning strategy.",
	}, []string{"method"})
)
