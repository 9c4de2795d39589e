// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package rpcclient implements a JSON-RPC client for the rngsource true
randomness service.

# Overview

The client provides statically typed functions for each of the service's
value generation methods along with its usage accounting and ticket
bookkeeping methods.  Parameters are validated before a request is issued,
so malformed calls fail fast without consuming any of the API key's request
allowance.

Two transports are supported.  In HTTP POST mode, the default, each request
is issued as an individual HTTP POST to the service's JSON-RPC endpoint.
Alternatively the client can speak JSON-RPC over a persistent websocket
connection, in which case concurrent requests are multiplexed over the
single connection and matched to their responses by id.  The websocket
transport does not automatically reconnect; a client whose connection has
been lost must be recreated with New.

Every response from the service reports an advisory delay, which the client
honors by gating the next outgoing request, and the usage accounting fields
needed to track the API key's remaining daily bit and request allowances.

# Prefetching and bit extraction

Beyond the direct methods, the client can construct self-replenishing caches
of pre-fetched values (see the New*Cache functions and the prefetch package)
and sequential bit extractors drawing from a cache of random blobs (see
NewReader and the rand package), both of which keep consuming code decoupled
from request latency.

# Errors

Errors returned by the service are surfaced as *rngjson.RPCError so the
numeric code can be examined, with one exception: an insufficient-bits
report is converted to an *InsufficientBitsError carrying the remaining
allowance, which the prefetch machinery uses to adaptively shrink its bulk
requests.
*/
package rpcclient
