package core

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/huangsam/simchange/core/detect"
	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/schema"
	"github.com/vmihailenco/msgpack/v5"
)

// currentCacheVersion defines the version of the cached result encoding
const currentCacheVersion = 1

// cacheKeyParams is everything besides the data that decides a detection result.
// Workers is absent because results do not depend on it.
type cacheKeyParams struct {
	Version int                    `msgpack:"v"`
	Params  schema.DetectionParams `msgpack:"p"`
	Groups  [][]int                `msgpack:"g"`
	Seeds   []uint64               `msgpack:"s"`
	Oracle  string                 `msgpack:"o"`
}

// cachedDetect serves a detection from the result cache, computing and storing it on a miss.
func cachedDetect(ctx context.Context, src contract.SeriesSource, params detect.Params, store contract.CacheStore) (*schema.DetectionResult, error) {
	if store == nil {
		return detect.Detect(ctx, src, params)
	}

	key, err := generateCacheKey(src, params)
	if err != nil {
		return nil, err
	}

	if result := checkCacheHit(store, key); result != nil {
		if params.Logger != nil {
			params.Logger.Infow("result cache hit", "key", key[:12])
		}
		return result, nil
	}

	return computeAndStore(ctx, src, params, store, key)
}

// checkCacheHit attempts to retrieve and decode a cached result
func checkCacheHit(store contract.CacheStore, key string) *schema.DetectionResult {
	data, version, _, err := store.Get(key)
	if err != nil || version != currentCacheVersion {
		return nil // Cache miss or version mismatch
	}

	var result schema.DetectionResult
	if err := msgpack.Unmarshal(data, &result); err != nil {
		return nil
	}
	if result.Changes == nil {
		result.Changes = schema.ChangeSet{}
	}
	return &result
}

// computeAndStore runs the detection and stores the result in the cache
func computeAndStore(ctx context.Context, src contract.SeriesSource, params detect.Params, store contract.CacheStore, key string) (*schema.DetectionResult, error) {
	result, err := detect.Detect(ctx, src, params)
	if err != nil {
		return nil, err
	}

	if data, err := msgpack.Marshal(result); err == nil {
		if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
			contract.LogWarn("Failed to store result in cache", err)
		}
	}
	return result, nil
}

// generateCacheKey hashes the series values and the result-relevant parameters.
func generateCacheKey(src contract.SeriesSource, params detect.Params) (string, error) {
	h := sha256.New()

	numSeries, numFrames := src.Shape()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(numSeries))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(numFrames))
	h.Write(buf[:])

	for i := range numSeries {
		values, err := src.Series(i)
		if err != nil {
			return "", fmt.Errorf("failed to read series %d for cache key: %w", i, err)
		}
		for _, v := range values {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}

	oracle := ""
	if params.Oracle != nil {
		oracle = fmt.Sprintf("%T", params.Oracle)
	}
	encoded, err := msgpack.Marshal(cacheKeyParams{
		Version: currentCacheVersion,
		Params:  params.Summary(),
		Groups:  params.Groups,
		Seeds:   params.Seeds,
		Oracle:  oracle,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	h.Write(encoded)

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
