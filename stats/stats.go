// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stats exposes the usage counters of an RPC client and its
// prefetching caches as prometheus metrics.
package stats

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ClientStats is the subset of the RPC client the metrics read from.  It is
// satisfied by *rpcclient.Client.
type ClientStats interface {
	// Requests returns the total number of requests issued.
	Requests() int64

	// Failures returns the number of issued requests that failed.
	Failures() int64
}

// CacheStats is the subset of a prefetching cache the metrics read from.  It
// is satisfied by *prefetch.Cache of any element type.
type CacheStats interface {
	// Size returns the number of items currently queued.
	Size() int

	// BitsUsed returns the total bits consumed by completed fetches.
	BitsUsed() int64

	// Fetches returns the number of completed fetches.
	Fetches() int64
}

// Metrics registers and serves prometheus metrics for a client and any
// number of named caches.  Caches may be registered after creation and from
// multiple goroutines.
type Metrics struct {
	mtx    sync.Mutex
	caches map[string]CacheStats

	// RequestsIssued and RequestFailures report the client's cumulative
	// request counters.
	RequestsIssued  prometheus.CounterFunc
	RequestFailures prometheus.CounterFunc

	// CacheItems, CacheBitsUsed, and CacheFetches report per cache
	// counters, partitioned by the name the cache was registered under.
	// They are refreshed from the registered caches every scrape.
	CacheItems    *prometheus.GaugeVec
	CacheBitsUsed *prometheus.GaugeVec
	CacheFetches  *prometheus.GaugeVec

	// TrackedCaches reports the number of registered caches and doubles
	// as the scrape hook that refreshes the per cache vectors.
	TrackedCaches prometheus.GaugeFunc
}

// New creates the metrics for the provided client and registers them with
// the provided registerer, typically prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, client ClientStats) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{caches: make(map[string]CacheStats)}

	m.RequestsIssued = factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "rngclient_requests_total",
		Help: "total JSON-RPC requests issued to the rngsource service",
	}, func() float64 {
		return float64(client.Requests())
	})
	m.RequestFailures = factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "rngclient_request_failures_total",
		Help: "issued requests that failed, including errors reported by the service",
	}, func() float64 {
		return float64(client.Failures())
	})

	m.CacheItems = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rngclient_cache_items",
		Help: "items currently queued in each prefetching cache",
	}, []string{"cache"})
	m.CacheBitsUsed = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rngclient_cache_bits_used",
		Help: "total bits consumed by each cache's completed fetches",
	}, []string{"cache"})
	m.CacheFetches = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rngclient_cache_fetches",
		Help: "completed fetches of each prefetching cache",
	}, []string{"cache"})

	// Refreshing the per cache vectors from a gauge function keeps their
	// values current on every scrape without a background updater.
	m.TrackedCaches = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "rngclient_tracked_caches",
		Help: "prefetching caches currently registered for metrics",
	}, func() float64 {
		m.mtx.Lock()
		defer m.mtx.Unlock()
		for name, cache := range m.caches {
			m.CacheItems.WithLabelValues(name).Set(float64(cache.Size()))
			m.CacheBitsUsed.WithLabelValues(name).Set(float64(cache.BitsUsed()))
			m.CacheFetches.WithLabelValues(name).Set(float64(cache.Fetches()))
		}
		return float64(len(m.caches))
	})

	return m
}

// TrackCache registers a cache under the provided name so its counters are
// reported.  Registering a second cache under an existing name replaces the
// first.
func (m *Metrics) TrackCache(name string, cache CacheStats) {
	m.mtx.Lock()
	m.caches[name] = cache
	m.mtx.Unlock()
}

// ForgetCache stops reporting the cache registered under the provided name.
func (m *Metrics) ForgetCache(name string) {
	m.mtx.Lock()
	delete(m.caches, name)
	m.mtx.Unlock()
	m.CacheItems.DeleteLabelValues(name)
	m.CacheBitsUsed.DeleteLabelValues(name)
	m.CacheFetches.DeleteLabelValues(name)
}
