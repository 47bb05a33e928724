// Package keypool manages the API credentials for every provider: round-robin
// hand-out, failure marking and time-bounded cooldowns. Provider selection is
// the orchestrator's job; the pool never crosses providers.
package keypool

import (
	"sync"
	"time"

	"garimpo/internal/logger"
	"garimpo/internal/metrics"
)

// FailureReason classifies why a credential was marked failed. All reasons
// currently trigger the same cooldown; the classification feeds telemetry.
type FailureReason string

const (
	ReasonAuth        FailureReason = "AUTH"
	ReasonRateLimit   FailureReason = "RATE_LIMIT"
	ReasonServerError FailureReason = "SERVER_ERROR"
	ReasonNetwork     FailureReason = "NETWORK"
	ReasonOther       FailureReason = "OTHER"
)

// Handle identifies one credential inside the pool for failure marking.
type Handle struct {
	Provider string
	Index    int
}

// ProviderStats is the per-provider counter snapshot.
type ProviderStats struct {
	Rotations int `json:"rotations"`
	Failures  int `json:"failures"`
	Active    int `json:"active"`
	Total     int `json:"total"`
}

type credential struct {
	key         string
	coolingDown bool
	availableAt time.Time
}

type providerPool struct {
	creds     []credential
	cursor    int
	rotations int
	failures  int
}

// Pool holds credentials for all providers. Safe for concurrent use.
type Pool struct {
	mu       sync.Mutex
	pools    map[string]*providerPool
	cooldown time.Duration
	now      func() time.Time
}

// New builds a pool from the discovered credential sets. Cooldown applies
// uniformly to every failure reason.
func New(keys map[string][]string, cooldown time.Duration) *Pool {
	pools := make(map[string]*providerPool, len(keys))
	for provider, list := range keys {
		pp := &providerPool{creds: make([]credential, 0, len(list))}
		for _, k := range list {
			pp.creds = append(pp.creds, credential{key: k})
		}
		pools[provider] = pp
	}
	return &Pool{pools: pools, cooldown: cooldown, now: time.Now}
}

// HasProvider reports whether any credentials were configured for a provider,
// regardless of cooldown state.
func (p *Pool) HasProvider(provider string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	pp, ok := p.pools[provider]
	return ok && len(pp.creds) > 0
}

// NextKey returns the next credential whose cooldown is not active, advancing
// the round-robin cursor. The boolean is false when the provider is unknown
// or every credential is cooling down; the caller must then treat the
// provider as unavailable for this run.
func (p *Pool) NextKey(provider string) (string, Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pp, ok := p.pools[provider]
	if !ok || len(pp.creds) == 0 {
		return "", Handle{}, false
	}

	now := p.now()
	for i := 0; i < len(pp.creds); i++ {
		idx := (pp.cursor + i) % len(pp.creds)
		cred := &pp.creds[idx]
		if cred.coolingDown {
			if now.Before(cred.availableAt) {
				continue
			}
			// Lazy reactivation at hand-out time.
			cred.coolingDown = false
		}
		pp.cursor = (idx + 1) % len(pp.creds)
		pp.rotations++
		metrics.KeyRotations.WithLabelValues(provider).Inc()
		return cred.key, Handle{Provider: provider, Index: idx}, true
	}

	return "", Handle{}, false
}

// MarkFailed places the credential behind the handle in cooldown.
func (p *Pool) MarkFailed(h Handle, reason FailureReason) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pp, ok := p.pools[h.Provider]
	if !ok || h.Index < 0 || h.Index >= len(pp.creds) {
		return
	}

	cred := &pp.creds[h.Index]
	cred.coolingDown = true
	cred.availableAt = p.now().Add(p.cooldown)
	pp.failures++
	metrics.KeyFailures.WithLabelValues(h.Provider, string(reason)).Inc()
	logger.Warn("credential placed in cooldown",
		"provider", h.Provider, "key_index", h.Index, "reason", string(reason),
		"available_at", cred.availableAt)
}

// Stats returns a snapshot of per-provider counters.
func (p *Pool) Stats() map[string]ProviderStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	out := make(map[string]ProviderStats, len(p.pools))
	for provider, pp := range p.pools {
		active := 0
		for _, cred := range pp.creds {
			if !cred.coolingDown || !now.Before(cred.availableAt) {
				active++
			}
		}
		out[provider] = ProviderStats{
			Rotations: pp.rotations,
			Failures:  pp.failures,
			Active:    active,
			Total:     len(pp.creds),
		}
	}
	return out
}

// Sweep reactivates every credential whose cooldown has lapsed. Reactivation
// is already lazy at NextKey time; the sweep keeps the active counts in
// Stats honest between hand-outs.
func (p *Pool) Sweep() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for _, pp := range p.pools {
		for i := range pp.creds {
			if pp.creds[i].coolingDown && !now.Before(pp.creds[i].availableAt) {
				pp.creds[i].coolingDown = false
			}
		}
	}
}
