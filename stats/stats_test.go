// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// fakeClient is a ClientStats with fixed counters.
type fakeClient struct {
	requests int64
	failures int64
}

func (c *fakeClient) Requests() int64 { return c.requests }
func (c *fakeClient) Failures() int64 { return c.failures }

// fakeCache is a CacheStats with fixed counters.
type fakeCache struct {
	size    int
	bits    int64
	fetches int64
}

func (c *fakeCache) Size() int       { return c.size }
func (c *fakeCache) BitsUsed() int64 { return c.bits }
func (c *fakeCache) Fetches() int64  { return c.fetches }

// TestMetrics ensures the client counters and registered cache counters are
// reported and that cache values refresh on scrape.
func TestMetrics(t *testing.T) {
	client := &fakeClient{requests: 7, failures: 2}
	m := New(prometheus.NewRegistry(), client)

	if got := testutil.ToFloat64(m.RequestsIssued); got != 7 {
		t.Fatalf("got %v requests, want 7", got)
	}
	if got := testutil.ToFloat64(m.RequestFailures); got != 2 {
		t.Fatalf("got %v failures, want 2", got)
	}

	cache := &fakeCache{size: 3, bits: 96, fetches: 4}
	m.TrackCache("dice", cache)

	// Scraping the tracked caches gauge refreshes the per cache vectors.
	if got := testutil.ToFloat64(m.TrackedCaches); got != 1 {
		t.Fatalf("got %v tracked caches, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheItems.WithLabelValues("dice")); got != 3 {
		t.Fatalf("got %v cached items, want 3", got)
	}
	if got := testutil.ToFloat64(m.CacheBitsUsed.WithLabelValues("dice")); got != 96 {
		t.Fatalf("got %v bits used, want 96", got)
	}

	cache.size = 1
	cache.bits = 128
	testutil.ToFloat64(m.TrackedCaches)
	if got := testutil.ToFloat64(m.CacheItems.WithLabelValues("dice")); got != 1 {
		t.Fatalf("got %v cached items after refresh, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheBitsUsed.WithLabelValues("dice")); got != 128 {
		t.Fatalf("got %v bits used after refresh, want 128", got)
	}

	m.ForgetCache("dice")
	if got := testutil.ToFloat64(m.TrackedCaches); got != 0 {
		t.Fatalf("got %v tracked caches after forget, want 0", got)
	}
}
