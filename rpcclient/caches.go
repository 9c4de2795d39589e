// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"math/bits"

	"github.com/google/uuid"

	"github.com/rngsource/rngclient/prefetch"
	"github.com/rngsource/rngclient/rand"
	"github.com/rngsource/rngclient/rngjson"
)

const (
	// gaussianBitsEstimate is the estimated number of bits the service
	// consumes to produce a single Gaussian sample.
	gaussianBitsEstimate = 30

	// uuidBits is the number of random bits in a version 4 UUID.
	uuidBits = 122

	// readerCacheSize is the number of blobs the cache backing a Reader
	// holds.
	readerCacheSize = 8

	// readerBlobBits is the size in bits of each blob fetched for a
	// Reader.
	readerBlobBits = 512
)

// bulkFor returns the number of items a single upstream request should
// produce for a cache of the provided size.  Caches too small for bulk
// fetching fall back to one item per request.
func bulkFor(cacheSize int) int {
	if cacheSize < 2 {
		return 0
	}
	return cacheSize / 2
}

// checkCacheSize validates the cache size shared by all cache constructors.
func checkCacheSize(cacheSize int) error {
	if cacheSize < 1 {
		str := fmt.Sprintf("cache size of %d is not positive", cacheSize)
		return makeError(ErrInvalidParam, str)
	}
	return nil
}

// newCache assembles a prefetching cache around the provided request
// descriptor.  The fetch closure issues the descriptor's method with its
// current n and maps the result envelope into the form the cache consumes,
// while the resize closure rewrites n when the cache adaptively shrinks its
// bulk requests.  The descriptor must request bulk*itemSize values when bulk
// is positive and itemSize values otherwise.
func newCache[E any](c *Client, method string, params interface{}, setN func(int), fetchN func() int, itemSize, bulk, cacheSize int, itemBits int64) (*prefetch.Cache[E], error) {
	fetch := func() (prefetch.Result[E], error) {
		res, err := generate[E](context.Background(), c, method, params)
		if err != nil {
			return prefetch.Result[E]{}, err
		}
		if len(res.Random.Data) != fetchN() {
			str := fmt.Sprintf("service returned %d values instead "+
				"of the requested %d", len(res.Random.Data),
				fetchN())
			return prefetch.Result[E]{}, makeError(ErrInvalidResult,
				str)
		}
		return prefetch.Result[E]{
			Data:     res.Random.Data,
			BitsUsed: res.BitsUsed,
		}, nil
	}
	return prefetch.New(prefetch.Config[E]{
		Fetch:     fetch,
		Resize:    setN,
		ItemSize:  itemSize,
		BulkCount: bulk,
		CacheSize: cacheSize,
		ItemBits:  itemBits,
	})
}

// NewIntegerCache creates a self-replenishing cache of true random integer
// batches.  Each item produced by the cache is a batch of n integers in the
// inclusive range [min, max], and the cache holds at most cacheSize items.
func (c *Client) NewIntegerCache(cacheSize, n, min, max int) (*prefetch.Cache[int], error) {
	if err := checkCacheSize(cacheSize); err != nil {
		return nil, err
	}
	if err := checkN(n); err != nil {
		return nil, err
	}
	if err := checkRange(min, max); err != nil {
		return nil, err
	}

	bulk := bulkFor(cacheSize)
	params := &rngjson.GenerateIntegersParams{
		APIKey:      c.config.APIKey,
		N:           n,
		Min:         min,
		Max:         max,
		Replacement: true,
		Base:        10,
	}
	if bulk > 0 {
		params.N = bulk * n
	}
	itemBits := int64(n) * int64(bits.Len64(uint64(max-min)))
	return newCache[int](c, rngjson.MethodGenerateIntegers, params,
		func(total int) { params.N = total },
		func() int { return params.N },
		n, bulk, cacheSize, itemBits)
}

// NewDecimalFractionCache creates a self-replenishing cache of true random
// decimal fraction batches.  Each item is a batch of n fractions from the
// uniform distribution across [0, 1) with decimalPlaces decimal places.
func (c *Client) NewDecimalFractionCache(cacheSize, n, decimalPlaces int) (*prefetch.Cache[float64], error) {
	if err := checkCacheSize(cacheSize); err != nil {
		return nil, err
	}
	if err := checkN(n); err != nil {
		return nil, err
	}
	if decimalPlaces < minDecimalPlaces || decimalPlaces > maxDecimalPlaces {
		str := fmt.Sprintf("decimal places of %d is outside the valid "+
			"range [%d, %d]", decimalPlaces, minDecimalPlaces,
			maxDecimalPlaces)
		return nil, makeError(ErrInvalidParam, str)
	}

	bulk := bulkFor(cacheSize)
	params := &rngjson.GenerateDecimalFractionsParams{
		APIKey:        c.config.APIKey,
		N:             n,
		DecimalPlaces: decimalPlaces,
		Replacement:   true,
	}
	if bulk > 0 {
		params.N = bulk * n
	}
	itemBits := int64(math.Ceil(float64(n*decimalPlaces) * math.Log2(10)))
	return newCache[float64](c, rngjson.MethodGenerateDecimalFractions,
		params,
		func(total int) { params.N = total },
		func() int { return params.N },
		n, bulk, cacheSize, itemBits)
}

// NewGaussianCache creates a self-replenishing cache of true random Gaussian
// sample batches.  Each item is a batch of n samples from a Gaussian
// distribution with the provided mean and standard deviation, rounded to
// significantDigits significant digits.
func (c *Client) NewGaussianCache(cacheSize, n int, mean, stddev float64, significantDigits int) (*prefetch.Cache[float64], error) {
	if err := checkCacheSize(cacheSize); err != nil {
		return nil, err
	}
	if err := checkN(n); err != nil {
		return nil, err
	}
	if significantDigits < minSignificantDigits ||
		significantDigits > maxSignificantDigits {

		str := fmt.Sprintf("significant digits of %d is outside the "+
			"valid range [%d, %d]", significantDigits,
			minSignificantDigits, maxSignificantDigits)
		return nil, makeError(ErrInvalidParam, str)
	}

	bulk := bulkFor(cacheSize)
	params := &rngjson.GenerateGaussiansParams{
		APIKey:            c.config.APIKey,
		N:                 n,
		Mean:              mean,
		StandardDeviation: stddev,
		SignificantDigits: significantDigits,
	}
	if bulk > 0 {
		params.N = bulk * n
	}
	itemBits := int64(n) * gaussianBitsEstimate
	return newCache[float64](c, rngjson.MethodGenerateGaussians, params,
		func(total int) { params.N = total },
		func() int { return params.N },
		n, bulk, cacheSize, itemBits)
}

// NewStringCache creates a self-replenishing cache of true random string
// batches.  Each item is a batch of n strings of the provided length with
// every position sampled uniformly from the provided character set.
func (c *Client) NewStringCache(cacheSize, n, length int, characters string) (*prefetch.Cache[string], error) {
	if err := checkCacheSize(cacheSize); err != nil {
		return nil, err
	}
	if err := checkN(n); err != nil {
		return nil, err
	}
	if length < 1 || length > maxStringLength {
		str := fmt.Sprintf("length of %d is outside the valid range "+
			"[1, %d]", length, maxStringLength)
		return nil, makeError(ErrInvalidParam, str)
	}
	if len(characters) < 1 || len(characters) > maxCharacters {
		str := fmt.Sprintf("character set size of %d is outside the "+
			"valid range [1, %d]", len(characters), maxCharacters)
		return nil, makeError(ErrInvalidParam, str)
	}

	bulk := bulkFor(cacheSize)
	params := &rngjson.GenerateStringsParams{
		APIKey:      c.config.APIKey,
		N:           n,
		Length:      length,
		Characters:  characters,
		Replacement: true,
	}
	if bulk > 0 {
		params.N = bulk * n
	}
	itemBits := int64(n) * int64(length) *
		int64(bits.Len64(uint64(len(characters)-1)))
	return newCache[string](c, rngjson.MethodGenerateStrings, params,
		func(total int) { params.N = total },
		func() int { return params.N },
		n, bulk, cacheSize, itemBits)
}

// NewUUIDCache creates a self-replenishing cache of version 4 true random
// UUID batches of n UUIDs each.
func (c *Client) NewUUIDCache(cacheSize, n int) (*prefetch.Cache[uuid.UUID], error) {
	if err := checkCacheSize(cacheSize); err != nil {
		return nil, err
	}
	if err := checkN(n); err != nil {
		return nil, err
	}

	bulk := bulkFor(cacheSize)
	params := &rngjson.GenerateUUIDsParams{
		APIKey: c.config.APIKey,
		N:      n,
	}
	if bulk > 0 {
		params.N = bulk * n
	}
	itemBits := int64(n) * uuidBits
	return newCache[uuid.UUID](c, rngjson.MethodGenerateUUIDs, params,
		func(total int) { params.N = total },
		func() int { return params.N },
		n, bulk, cacheSize, itemBits)
}

// NewBlobCache creates a self-replenishing cache of true random blob
// batches.  Each item is a batch of n blobs of size bits each, with size a
// multiple of 8.
func (c *Client) NewBlobCache(cacheSize, n, size int) (*prefetch.Cache[[]byte], error) {
	if err := checkCacheSize(cacheSize); err != nil {
		return nil, err
	}
	if err := checkN(n); err != nil {
		return nil, err
	}
	if size < minBlobSize || size > maxBlobSize {
		str := fmt.Sprintf("blob size of %d is outside the valid "+
			"range [%d, %d]", size, minBlobSize, maxBlobSize)
		return nil, makeError(ErrInvalidParam, str)
	}
	if size%blobSizeMultiple != 0 {
		str := fmt.Sprintf("blob size of %d is not a multiple of %d",
			size, blobSizeMultiple)
		return nil, makeError(ErrInvalidParam, str)
	}

	bulk := bulkFor(cacheSize)
	params := &rngjson.GenerateBlobsParams{
		APIKey: c.config.APIKey,
		N:      n,
		Size:   size,
		Format: rngjson.BlobFormatBase64,
	}
	if bulk > 0 {
		params.N = bulk * n
	}

	// The service returns blobs base64 encoded, so the fetch closure
	// decodes each one before handing the batch to the cache.
	fetch := func() (prefetch.Result[[]byte], error) {
		res, err := generate[string](context.Background(), c,
			rngjson.MethodGenerateBlobs, params)
		if err != nil {
			return prefetch.Result[[]byte]{}, err
		}
		if len(res.Random.Data) != params.N {
			str := fmt.Sprintf("service returned %d blobs instead "+
				"of the requested %d", len(res.Random.Data),
				params.N)
			return prefetch.Result[[]byte]{},
				makeError(ErrInvalidResult, str)
		}
		blobs := make([][]byte, 0, len(res.Random.Data))
		for _, encoded := range res.Random.Data {
			blob, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				str := fmt.Sprintf("failed to decode blob: %v",
					err)
				return prefetch.Result[[]byte]{},
					makeError(ErrInvalidResult, str)
			}
			blobs = append(blobs, blob)
		}
		return prefetch.Result[[]byte]{
			Data:     blobs,
			BitsUsed: res.BitsUsed,
		}, nil
	}

	itemBits := int64(n) * int64(size)
	return prefetch.New(prefetch.Config[[]byte]{
		Fetch:     fetch,
		Resize:    func(total int) { params.N = total },
		ItemSize:  n,
		BulkCount: bulk,
		CacheSize: cacheSize,
		ItemBits:  itemBits,
	})
}

// NewReader creates a sequential bit extractor backed by a self-replenishing
// cache of true random blobs fetched with the client.  The reader consults
// the key's remaining bit allowance via Usage before blocking on an empty
// cache so an exhausted allowance is reported instead of waiting forever.
func (c *Client) NewReader() (*rand.Reader, error) {
	cache, err := c.NewBlobCache(readerCacheSize, 1, readerBlobBits)
	if err != nil {
		return nil, err
	}
	return rand.NewReader(rand.Config{
		Cache: cache,
		Quota: func(ctx context.Context) (int64, error) {
			usage, err := c.Usage(ctx)
			if err != nil {
				return 0, err
			}
			return usage.BitsLeft, nil
		},
	})
}
