// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package rand implements a sequential bit extractor over blobs of true random
data pulled from a self-replenishing prefetch cache.

A Reader consumes opaque byte blobs and exposes a single extraction
primitive, Next, which returns an unsigned integer of an arbitrary width up
to 32 bits while consuming exactly that many bits from the blob stream.
Bits are consumed least-significant-first within each byte, with leftover
sub-byte bits carried across calls, so no entropy is discarded or duplicated
even when a read spans a blob boundary.

All derived operations -- bounded integers via rejection sampling, wider
integers, floats, shuffles, and the math/rand/v2 source adapter -- are built
by composition on top of Next.

Reader methods are not safe for concurrent access: a reader's blob cursor
and bit buffer are owned by a single caller, and concurrent use requires
external serialization.
*/
package rand
