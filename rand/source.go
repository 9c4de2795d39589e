// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rand

import (
	"context"
	mathrand "math/rand/v2"
)

// source adapts a Reader to the math/rand/v2 Source interface.
type source struct {
	ctx context.Context
	r   *Reader
}

// Uint64 returns a uniform random uint64 extracted from the blob stream.
// Because the Source interface offers no error return, any extraction
// failure, such as an exhausted upstream quota, results in a panic.  Callers
// needing to handle failures should use the Reader methods directly.
func (s *source) Uint64() uint64 {
	v, err := s.r.Uint64(s.ctx)
	if err != nil {
		panic("rand: source extraction failed: " + err.Error())
	}
	return v
}

// Source returns a math/rand/v2 source drawing from the reader, suitable for
// seeding a *math/rand/v2.Rand with true random values.  The provided
// context bounds every extraction made through the source.
//
// The returned source inherits the reader's concurrency contract: it must
// not be used from more than one goroutine without external serialization.
func (r *Reader) Source(ctx context.Context) mathrand.Source {
	return &source{ctx: ctx, r: r}
}
