package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"garimpo/internal/core"
	"garimpo/internal/keypool"
	"garimpo/internal/logger"
)

// Registry holds the registered provider clients and wraps every dispatch in
// a per-provider circuit breaker and token-bucket rate limiter. Provider
// selection and cross-provider fallback live here, never inside a client.
type Registry struct {
	pool     *keypool.Pool
	clients  map[string]Searcher
	order    []string
	breakers map[string]*gobreaker.CircuitBreaker
	limiters map[string]*rate.Limiter

	mu        sync.Mutex
	callCount map[string]int
}

// NewRegistry builds an empty registry over the shared key pool.
func NewRegistry(pool *keypool.Pool) *Registry {
	return &Registry{
		pool:      pool,
		clients:   make(map[string]Searcher),
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		limiters:  make(map[string]*rate.Limiter),
		callCount: make(map[string]int),
	}
}

// Register adds a client. Registration order is provider priority: it breaks
// ties at aggregation time. rps is the client-side inter-call budget.
func (r *Registry) Register(client Searcher, rps float64) {
	name := client.Name()
	r.clients[name] = client
	r.order = append(r.order, name)
	r.limiters[name] = rate.NewLimiter(rate.Limit(rps), 1)
	r.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider breaker state change", "provider", name,
				"from", from.String(), "to", to.String())
		},
	})
}

// keylessClient marks providers that operate without credentials.
type keylessClient interface {
	Keyless() bool
}

func (r *Registry) needsKeys(name string) bool {
	if kc, ok := r.clients[name].(keylessClient); ok && kc.Keyless() {
		return false
	}
	return true
}

// Available returns the names of providers that have credentials (or need
// none) and a closed breaker, in priority order.
func (r *Registry) Available() []string {
	var out []string
	for _, name := range r.order {
		if r.needsKeys(name) && !r.pool.HasProvider(name) {
			continue
		}
		if r.breakers[name].State() == gobreaker.StateOpen {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Priority returns the registration rank of a provider; unknown providers
// sort last.
func (r *Registry) Priority(name string) int {
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return len(r.order)
}

// Client returns a registered client by name.
func (r *Registry) Client(name string) (Searcher, bool) {
	c, ok := r.clients[name]
	return c, ok
}

// CallCounts returns how many dispatches each provider received.
func (r *Registry) CallCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.callCount))
	for k, v := range r.callCount {
		out[k] = v
	}
	return out
}

// Search dispatches one query to one provider through its limiter and
// breaker. The Brazilian query enhancement is applied here, at the dispatch
// layer. The returned response is always usable; transport errors degrade to
// soft failures.
func (r *Registry) Search(ctx context.Context, name, query string, limits Limits) core.ProviderResponse {
	client, ok := r.clients[name]
	if !ok {
		return core.HardFailure(name, "provider not registered")
	}
	if r.needsKeys(name) && !r.pool.HasProvider(name) {
		return core.HardFailure(name, "no credentials configured")
	}

	if err := r.limiters[name].Wait(ctx); err != nil {
		return core.SoftFailure(name, "cancelled while rate limited")
	}

	r.mu.Lock()
	r.callCount[name]++
	r.mu.Unlock()
	enhanced := EnhanceQuery(query)

	result, err := r.breakers[name].Execute(func() (interface{}, error) {
		resp, err := client.Search(ctx, enhanced, limits)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		logger.Warn("provider search failed", "provider", name, "error", err.Error())
		return core.SoftFailure(name, err.Error())
	}

	resp := result.(core.ProviderResponse)
	if resp.Kind == core.ResponseSuccess && len(resp.Results) == 0 {
		return core.SoftFailure(name, "empty_response")
	}
	return resp
}

// EnhanceQuery appends Brazil and recent-year hints when the query carries
// neither, so providers bias toward fresh Brazilian results.
func EnhanceQuery(query string) string {
	lower := strings.ToLower(query)

	hasBrazil := strings.Contains(lower, "brasil") || strings.Contains(lower, "brazil") ||
		strings.Contains(lower, "brasileiro") || strings.Contains(lower, "brasileira")
	hasYear := false
	currentYear := time.Now().Year()
	for y := currentYear - 1; y <= currentYear; y++ {
		if strings.Contains(lower, fmt.Sprintf("%d", y)) {
			hasYear = true
			break
		}
	}

	enhanced := query
	if !hasBrazil {
		enhanced += " Brasil"
	}
	if !hasYear {
		enhanced += fmt.Sprintf(" %d", currentYear)
	}
	return enhanced
}
