package proxy

import (
	"testing"
	"time"
)

func host(t *testing.T, p *Pool) string {
	t.Helper()
	u := p.Next()
	if u == nil {
		t.Fatal("Expected a proxy, got nil")
	}
	return u.Host
}

func TestPool_Rotation(t *testing.T) {
	pool, err := NewPool([]string{"http://p1:8080", "http://p2:8080", "socks5://p3:1080"}, time.Minute)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	want := []string{"p1:8080", "p2:8080", "p3:1080", "p1:8080"}
	for _, w := range want {
		if got := host(t, pool); got != w {
			t.Errorf("Expected %s, got %s", w, got)
		}
	}
}

func TestPool_SkipsFailedUntilCooldown(t *testing.T) {
	pool, _ := NewPool([]string{"http://p1:1", "http://p2:1", "http://p3:1"}, time.Minute)
	now := time.Unix(1000, 0)
	pool.now = func() time.Time { return now }

	p1 := pool.Next()
	pool.MarkFailed(pool.proxies[1])

	if got := host(t, pool); got != "p3:1" {
		t.Errorf("Expected p3 (skipping p2), got %s", got)
	}
	if got := host(t, pool); got != p1.Host {
		t.Errorf("Expected p1, got %s", got)
	}
	if got := host(t, pool); got != "p3:1" {
		t.Errorf("Expected p3 again, got %s", got)
	}

	now = now.Add(2 * time.Minute)
	if got := host(t, pool); got != "p1:1" {
		t.Errorf("Expected p1, got %s", got)
	}
	if got := host(t, pool); got != "p2:1" {
		t.Errorf("Expected p2 back after cooldown, got %s", got)
	}
}

func TestPool_AllFailedStillReturnsProxy(t *testing.T) {
	pool, _ := NewPool([]string{"http://p1:1", "http://p2:1"}, time.Hour)
	pool.MarkFailed(pool.proxies[0])
	pool.MarkFailed(pool.proxies[1])

	if pool.Next() == nil {
		t.Error("Expected a proxy even when all are cooling down")
	}

	pool.MarkHealthy(pool.proxies[0])
	if _, ok := pool.failed[pool.proxies[0].String()]; ok {
		t.Error("MarkHealthy should clear the failure")
	}
}

func TestPool_EmptyAndInvalid(t *testing.T) {
	pool, err := NewPool(nil, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if pool.Next() != nil || pool.Len() != 0 {
		t.Error("Empty pool should yield direct connections")
	}

	if _, err := NewPool([]string{"ftp://p1:21"}, 0); err == nil {
		t.Error("Expected error for unsupported scheme")
	}
	if _, err := NewPool([]string{"not a url"}, 0); err == nil {
		t.Error("Expected error for missing host")
	}
}
