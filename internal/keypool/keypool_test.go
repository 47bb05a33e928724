package keypool

import (
	"sync"
	"testing"
	"time"
)

func newTestPool(keys map[string][]string, cooldown time.Duration, now *time.Time) *Pool {
	p := New(keys, cooldown)
	p.now = func() time.Time { return *now }
	return p
}

func TestRotationIsCyclic(t *testing.T) {
	now := time.Now()
	p := newTestPool(map[string][]string{"exa": {"k1", "k2", "k3"}}, 5*time.Minute, &now)

	var got []string
	for i := 0; i < 6; i++ {
		key, _, ok := p.NextKey("exa")
		if !ok {
			t.Fatalf("NextKey failed at call %d", i)
		}
		got = append(got, key)
	}

	want := []string{"k1", "k2", "k3", "k1", "k2", "k3"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestCooldownWindow(t *testing.T) {
	now := time.Now()
	p := newTestPool(map[string][]string{"exa": {"k1"}}, 5*time.Minute, &now)

	_, h, ok := p.NextKey("exa")
	if !ok {
		t.Fatal("expected a key")
	}
	p.MarkFailed(h, ReasonRateLimit)

	if _, _, ok := p.NextKey("exa"); ok {
		t.Error("credential handed out while cooldown active")
	}

	// Just before expiry: still unavailable.
	now = now.Add(5*time.Minute - time.Second)
	if _, _, ok := p.NextKey("exa"); ok {
		t.Error("credential handed out one second before cooldown expiry")
	}

	// Just after expiry: available again.
	now = now.Add(2 * time.Second)
	if _, _, ok := p.NextKey("exa"); !ok {
		t.Error("credential not reactivated after cooldown")
	}
}

func TestSkipsCoolingCredential(t *testing.T) {
	now := time.Now()
	p := newTestPool(map[string][]string{"exa": {"k1", "k2"}}, time.Minute, &now)

	_, h, _ := p.NextKey("exa") // k1
	p.MarkFailed(h, ReasonAuth)

	key, _, ok := p.NextKey("exa")
	if !ok || key != "k2" {
		t.Errorf("expected k2 while k1 cools, got %q ok=%v", key, ok)
	}
	key, _, ok = p.NextKey("exa")
	if !ok || key != "k2" {
		t.Errorf("expected k2 again, got %q ok=%v", key, ok)
	}
}

func TestUnknownProvider(t *testing.T) {
	now := time.Now()
	p := newTestPool(map[string][]string{}, time.Minute, &now)
	if _, _, ok := p.NextKey("nope"); ok {
		t.Error("expected no key for unknown provider")
	}
	if p.HasProvider("nope") {
		t.Error("HasProvider should be false for unknown provider")
	}
}

func TestStatsAndSweep(t *testing.T) {
	now := time.Now()
	p := newTestPool(map[string][]string{"exa": {"k1", "k2"}}, time.Minute, &now)

	_, h, _ := p.NextKey("exa")
	p.MarkFailed(h, ReasonServerError)

	stats := p.Stats()["exa"]
	if stats.Rotations != 1 || stats.Failures != 1 || stats.Active != 1 || stats.Total != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	now = now.Add(2 * time.Minute)
	p.Sweep()
	if active := p.Stats()["exa"].Active; active != 2 {
		t.Errorf("expected 2 active after sweep, got %d", active)
	}
}

func TestConcurrentNextKey(t *testing.T) {
	now := time.Now()
	p := newTestPool(map[string][]string{"exa": {"a", "b", "c", "d"}}, time.Minute, &now)

	var wg sync.WaitGroup
	counts := make([]int, 100)
	var mu sync.Mutex
	seen := map[string]int{}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key, _, ok := p.NextKey("exa")
			if !ok {
				return
			}
			mu.Lock()
			seen[key]++
			counts[i] = 1
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	// Round-robin over 4 keys and 100 calls: each key handed out 25 times.
	for _, k := range []string{"a", "b", "c", "d"} {
		if seen[k] != 25 {
			t.Errorf("key %s handed out %d times, expected 25", k, seen[k])
		}
	}
}
