// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package prefetch implements a self-replenishing bounded cache of values
fetched from a remote source.

Each cache owns a single long-lived background goroutine that keeps a FIFO
queue of items topped up by issuing requests against a caller-supplied fetch
function, so consumers can obtain pre-fetched values with minimal latency.
A cache may operate in bulk mode, in which case a single upstream request
produces several queue items that are split client-side, amortizing the
request overhead.

When the upstream source reports that its resource allowance cannot satisfy
the current request size, the cache adaptively shrinks the bulk request and
rewrites its request descriptor in place before retrying.  Transient fetch
failures are absorbed by the refill loop and retried with a bounded backoff,
so consumers only ever observe values, an empty-cache condition, or a fatal
resource exhaustion error.

The background goroutine is intentionally detached: it lives for the
lifetime of the owning process and is never joined.  Pausing the cache with
Stop halts new fetches without discarding queued items, and Resume restarts
them.
*/
package prefetch
