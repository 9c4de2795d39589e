// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rand

import (
	"context"
	"errors"

	"github.com/rngsource/rngclient/prefetch"
)

// bitMask maps a requested bit width in [0,32] to a mask that zeroes all
// bits beyond that width, guaranteeing Next never returns a value that
// exceeds 2^bits - 1.
var bitMask = func() (masks [33]uint32) {
	for i := 1; i < 33; i++ {
		masks[i] = masks[i-1]<<1 | 1
	}
	return
}()

// Err identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type Err string

// Error satisfies the error interface and prints human-readable errors.
func (e Err) Error() string { return string(e) }

var (
	// ErrCacheNil indicates a reader was configured without a blob cache.
	ErrCacheNil = Err("ErrCacheNil")

	// ErrQuotaExhausted indicates the upstream allowance is spent and no
	// blob remains queued, so no further bits can be extracted.
	ErrQuotaExhausted = Err("ErrQuotaExhausted")
)

// Config holds the configuration options related to a Reader.
type Config struct {
	// Cache supplies the blobs the reader extracts bits from.  Each
	// cached item is a batch of one or more blobs which the reader
	// consumes in order.
	//
	// This field is required.
	Cache *prefetch.Cache[[]byte]

	// Quota reports the upstream allowance in bits.  It is consulted only
	// as an exhaustion heuristic when the cache runs empty and the result
	// may be stale relative to live fetch activity; it never gates
	// correctness.  May be nil, in which case the reader always waits for
	// the cache.
	Quota func(ctx context.Context) (int64, error)
}

// Reader is a sequential bit extractor bound to exactly one blob cache.
// Reader methods are not safe for concurrent access.
type Reader struct {
	cfg Config

	// pending holds blobs from the last cache item that have not yet been
	// consumed.
	pending [][]byte

	// cur is the blob currently being consumed and pos is the cursor of
	// the next unread byte within it.  The blob is owned exclusively by
	// the reader and replaced wholesale on exhaustion.
	cur []byte
	pos int

	// bitBuf carries the low bitLen bits left over from a partially
	// consumed byte across extraction calls.  bitLen is always in [0,7]
	// between calls.
	bitBuf uint32
	bitLen uint
}

// NewReader returns a reader extracting bits from blobs supplied by the
// provided cache.
func NewReader(cfg Config) (*Reader, error) {
	if cfg.Cache == nil {
		return nil, ErrCacheNil
	}
	return &Reader{cfg: cfg}, nil
}

// moveToNextBlob replaces the exhausted current blob with the next one,
// blocking on the cache when none is immediately available.  It fails only
// when the cache has stopped producing: either the upstream quota is
// exhausted with nothing queued, or the cache surfaced a fatal error.
func (r *Reader) moveToNextBlob(ctx context.Context) error {
	for len(r.pending) == 0 {
		item, err := r.cfg.Cache.Get()
		switch {
		case err == nil:
		case errors.Is(err, prefetch.ErrEmpty):
			// Nothing queued.  Consult the quota heuristic before
			// committing to a blocking wait: a spent allowance means
			// the cache will never produce again.
			if r.cfg.Quota != nil {
				left, qerr := r.cfg.Quota(ctx)
				if qerr == nil && left <= 0 {
					log.Debugf("Upstream allowance spent with "+
						"no blobs queued (%d bits left)", left)
					return ErrQuotaExhausted
				}
			}
			item, err = r.cfg.Cache.GetOrWait(ctx)
			if err != nil {
				return err
			}
		default:
			return err
		}
		r.pending = item
	}

	r.cur = r.pending[0]
	r.pending = r.pending[1:]
	r.pos = 0
	return nil
}

// nextByte consumes and returns the next whole byte of the blob stream,
// fetching a fresh blob when the current one is exhausted.
func (r *Reader) nextByte(ctx context.Context) (byte, error) {
	for r.pos >= len(r.cur) {
		if err := r.moveToNextBlob(ctx); err != nil {
			return 0, err
		}
	}
	b := r.cur[r.pos]
	r.pos++
	return b, nil
}

// subBits returns the next bits low-order bits of the stream from the
// sub-byte buffer, pulling a fresh byte from the blob stream and shifting
// the leftover bits forward when the buffer cannot satisfy the request.
// bits must be in [1,7].
func (r *Reader) subBits(ctx context.Context, bits uint) (uint32, error) {
	if r.bitLen < bits {
		b, err := r.nextByte(ctx)
		if err != nil {
			return 0, err
		}
		r.bitBuf |= uint32(b) << r.bitLen
		r.bitLen += 8
	}
	v := r.bitBuf & bitMask[bits]
	r.bitBuf >>= bits
	r.bitLen -= bits
	return v, nil
}

// Next returns an unsigned integer whose low bits bits are uniformly random
// with all higher bits zero, consuming exactly bits bits from the blob
// stream.  Whole bytes are taken directly from the current blob in
// little-endian order and any remainder comes from the sub-byte buffer, so
// a partially consumed byte carries over to the following call.
//
// Next blocks while a new blob must be fetched and none is yet available.
// It panics if bits exceeds 32.
func (r *Reader) Next(ctx context.Context, bits uint) (uint32, error) {
	if bits > 32 {
		panic("rand: invalid bit count to Next")
	}

	full, rem := bits/8, bits%8
	var v uint32
	for i := uint(0); i < full; i++ {
		b, err := r.nextByte(ctx)
		if err != nil {
			return 0, err
		}
		v |= uint32(b) << (8 * i)
	}
	if rem > 0 {
		sub, err := r.subBits(ctx, rem)
		if err != nil {
			return 0, err
		}
		v |= sub << (8 * full)
	}
	return v & bitMask[bits], nil
}

// Read fills s with len(s) bytes extracted from the blob stream.  It
// consumes whole bytes and leaves any buffered sub-byte bits untouched.
// Read blocks while new blobs must be fetched.
func (r *Reader) Read(ctx context.Context, s []byte) (int, error) {
	for i := range s {
		b, err := r.nextByte(ctx)
		if err != nil {
			return i, err
		}
		s[i] = b
	}
	return len(s), nil
}

// RemainingQuota reports the upstream bit allowance via the configured quota
// query.  The result is a last-observed value and may be stale relative to
// live fetch activity.
func (r *Reader) RemainingQuota(ctx context.Context) (int64, error) {
	if r.cfg.Quota == nil {
		return 0, errors.New("rand: no quota query configured")
	}
	return r.cfg.Quota(ctx)
}
