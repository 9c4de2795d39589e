// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package prefetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// retryBaseDelay is the base duration of time to back off after a
	// transient fetch failure.  The delay grows linearly with the number
	// of successive failures.
	retryBaseDelay = 50 * time.Millisecond

	// maxRetryDelay is the max duration of time the backoff after
	// successive transient fetch failures is allowed to grow to.
	maxRetryDelay = 5 * time.Second
)

// Result is the outcome of one committed upstream fetch: the flat sequence
// of fetched values along with the resource cost the upstream source
// reported for producing them.
type Result[E any] struct {
	// Data holds the fetched values in the order the upstream source
	// produced them.
	Data []E

	// BitsUsed is the resource cost of the fetch as reported by the
	// upstream source.
	BitsUsed int64
}

// Config holds the configuration options related to a cache instance.
type Config[E any] struct {
	// Fetch issues a single upstream request in its current form and
	// returns the flat fetched values along with their reported cost.
	// The refill goroutine guarantees at most one call is in flight at a
	// time.
	//
	// A fetch error implementing InsufficientResourceError drives the
	// adaptive bulk shrinking; any other error is treated as transient
	// and retried.
	//
	// This field is required.
	Fetch func() (Result[E], error)

	// Resize rewrites the total value count of the request descriptor the
	// Fetch closure issues.  It is invoked only by the refill goroutine
	// when an insufficient-resource report forces the bulk request to
	// shrink, so implementations need not be safe for concurrent use.
	//
	// This field is required when BulkCount is positive.
	Resize func(total int)

	// ItemSize is the number of values each queued item contains.
	ItemSize int

	// BulkCount is the number of items a single upstream request produces
	// when positive.  Zero disables bulk mode, in which case each fetch
	// produces exactly one item.  Must be smaller than CacheSize so a
	// full bulk response always fits in the queue.
	BulkCount int

	// CacheSize bounds the queue to this many items.
	CacheSize int

	// ItemBits is the estimated resource cost of a single item.  It is
	// used to recompute the bulk count when the upstream source reports
	// its remaining allowance.
	ItemBits int64
}

// Cache is a self-replenishing bounded FIFO cache of items fetched from a
// remote source.  Items are slices of exactly ItemSize values.  All methods
// are safe for concurrent use.
//
// The refill goroutine started by New runs for the lifetime of the process
// and is intentionally never joined.
type Cache[E any] struct {
	bitsUsed atomic.Int64
	fetches  atomic.Int64
	paused   atomic.Bool

	// cfg specifies the configuration of the cache and is set at creation
	// time and treated as immutable after that, with the exception of the
	// request descriptor behind the Fetch and Resize closures which is
	// owned exclusively by the refill goroutine.
	cfg Config[E]

	// bulk is the current bulk request size.  It is owned by the refill
	// goroutine and shrinks when the upstream source reports an
	// insufficient allowance.
	bulk int

	// queue holds the cached items in FIFO order.  The channel capacity
	// bounds the cache.
	queue chan []E

	// wake signals the refill goroutine that queue space has opened or
	// that the pause state changed.
	wake chan struct{}

	// fatal holds the first non-recoverable fetch error.  fatalc is
	// closed once fatal is set so blocked consumers observe it.
	mtx    sync.Mutex
	fatal  error
	fatalc chan struct{}
}

// New returns a cache that immediately begins replenishing itself with the
// provided configuration.
func New[E any](cfg Config[E]) (*Cache[E], error) {
	if cfg.Fetch == nil {
		return nil, makeError(ErrFetchNil, "config: fetch cannot be nil")
	}
	if cfg.ItemSize <= 0 {
		return nil, makeError(ErrBadItemSize,
			"config: item size must be positive")
	}
	if cfg.CacheSize <= 0 {
		return nil, makeError(ErrBadCacheSize,
			"config: cache size must be positive")
	}
	if cfg.BulkCount < 0 || cfg.BulkCount >= cfg.CacheSize {
		str := fmt.Sprintf("config: bulk count %d must be smaller than "+
			"cache size %d", cfg.BulkCount, cfg.CacheSize)
		return nil, makeError(ErrBadCacheSize, str)
	}
	if cfg.BulkCount > 0 && cfg.Resize == nil {
		return nil, makeError(ErrResizeNil,
			"config: resize cannot be nil in bulk mode")
	}

	c := &Cache[E]{
		cfg:    cfg, // Copy so caller can't mutate.
		bulk:   cfg.BulkCount,
		queue:  make(chan []E, cfg.CacheSize),
		wake:   make(chan struct{}, 1),
		fatalc: make(chan struct{}),
	}
	go c.refill()
	return c, nil
}

// refill keeps the queue topped up.  It must be run as a goroutine and is
// the single producer of the queue: strictly one fetch is in flight at any
// time.
func (c *Cache[E]) refill() {
	var failures int
	for {
		// Suspend while paused.  Stop and Resume signal the wake
		// channel, so the pause state is re-evaluated on every wake.
		for c.paused.Load() {
			<-c.wake
		}

		// Suspend until a consumer frees room for the next response.
		// A bulk fetch needs room for the full split response.
		room := c.cfg.CacheSize
		if c.bulk > 0 {
			room -= c.bulk
		}
		if len(c.queue) >= room {
			<-c.wake
			continue
		}

		res, err := c.cfg.Fetch()
		if err != nil {
			var insufficient InsufficientResourceError
			if errors.As(err, &insufficient) {
				if c.shrink(insufficient.AvailableUnits()) {
					continue
				}
				c.setFatal(err)
				return
			}

			failures++
			delay := time.Duration(failures) * retryBaseDelay
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			log.Warnf("Fetch failed: %v -- retrying in %v", err, delay)
			time.Sleep(delay)
			continue
		}
		failures = 0

		// The entire cost of the fetch is attributed to this single
		// fetch, never split across the items it produced.
		c.bitsUsed.Add(res.BitsUsed)
		c.fetches.Add(1)

		if c.bulk == 0 {
			c.queue <- res.Data
			continue
		}

		// Split the flat bulk response into items of exactly ItemSize
		// contiguous values each, preserving the original order.  The
		// room check above guarantees every split item fits, though
		// items become individually visible as they are appended.
		data := res.Data
		for len(data) >= c.cfg.ItemSize {
			item := data[:c.cfg.ItemSize:c.cfg.ItemSize]
			data = data[c.cfg.ItemSize:]
			c.queue <- item
		}
		if len(data) != 0 {
			log.Warnf("Discarding %d values of a bulk response that "+
				"is not a multiple of the item size %d", len(data),
				c.cfg.ItemSize)
		}
	}
}

// shrink recomputes the bulk count from the reported remaining allowance and
// rewrites the request descriptor in place.  It returns false when shrinking
// is impossible: the allowance is unknown, the cache is not in bulk mode, or
// the bulk count is already at its minimum.
func (c *Cache[E]) shrink(available int64) bool {
	if c.bulk <= 1 || available <= 0 || c.cfg.ItemBits <= 0 {
		return false
	}
	newBulk := available / c.cfg.ItemBits
	if newBulk < 1 || newBulk >= int64(c.bulk) {
		return false
	}

	log.Debugf("Shrinking bulk request from %d to %d items (%d units "+
		"reported available)", c.bulk, newBulk, available)
	c.bulk = int(newBulk)
	c.cfg.Resize(c.bulk * c.cfg.ItemSize)
	return true
}

// setFatal records the first non-recoverable fetch error so it is surfaced
// to consumers instead of being swallowed.
func (c *Cache[E]) setFatal(err error) {
	c.mtx.Lock()
	if c.fatal == nil {
		c.fatal = err
		close(c.fatalc)
	}
	c.mtx.Unlock()
	log.Errorf("Refill stopped: %v", err)
}

// fatalError returns the recorded non-recoverable fetch error, if any.
func (c *Cache[E]) fatalError() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.fatal
}

// signalRoom wakes the refill goroutine after queue space has opened.  The
// signal channel is buffered, so signaling never blocks and coalesces with
// an already-pending wake.
func (c *Cache[E]) signalRoom() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Get returns the oldest available item without blocking.  When no item is
// queued it returns ErrEmpty, or the recorded fatal fetch error once the
// refill loop has stopped.
func (c *Cache[E]) Get() ([]E, error) {
	select {
	case item := <-c.queue:
		c.signalRoom()
		return item, nil
	default:
		if err := c.fatalError(); err != nil {
			return nil, err
		}
		return nil, makeError(ErrEmpty, "cache is empty")
	}
}

// GetOrWait blocks until an item is available and returns it.  The wait is
// interrupted by cancellation of the provided context, in which case
// ErrInterrupted is returned, or by a fatal fetch error, which is returned
// once all queued items have been consumed.
//
// Note that a paused cache stops producing, so a GetOrWait against a paused
// and empty cache blocks until the cache is resumed or the context is
// canceled.
func (c *Cache[E]) GetOrWait(ctx context.Context) ([]E, error) {
	select {
	case item := <-c.queue:
		c.signalRoom()
		return item, nil
	case <-c.fatalc:
		// Serve anything that was queued before the refill loop
		// stopped.
		select {
		case item := <-c.queue:
			c.signalRoom()
			return item, nil
		default:
			return nil, c.fatalError()
		}
	case <-ctx.Done():
		str := fmt.Sprintf("wait interrupted: %v", ctx.Err())
		return nil, makeError(ErrInterrupted, str)
	}
}

// Stop pauses the background refill.  New fetches are halted until Resume
// is called, though already-queued items remain available for retrieval.
func (c *Cache[E]) Stop() {
	c.paused.Store(true)
	c.signalRoom()
}

// Resume re-enables the background refill after a Stop.
func (c *Cache[E]) Resume() {
	c.paused.Store(false)
	c.signalRoom()
}

// IsPaused returns whether the background refill is currently paused.
func (c *Cache[E]) IsPaused() bool {
	return c.paused.Load()
}

// Size returns the number of items currently queued.
func (c *Cache[E]) Size() int {
	return len(c.queue)
}

// BitsUsed returns the total resource cost of all committed fetches over the
// lifetime of the cache.  The counter is monotonically non-decreasing and is
// never reset.
func (c *Cache[E]) BitsUsed() int64 {
	return c.bitsUsed.Load()
}

// Fetches returns the total number of committed fetches over the lifetime of
// the cache.  The counter is monotonically non-decreasing and is never
// reset.
func (c *Cache[E]) Fetches() int64 {
	return c.fetches.Load()
}
