// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/usecase"
)

// CachingRawStore decorates a RawStore with Redis caching.
// Documents are immutable once written, so Get results are cached for docTTL.
// Key listings that include the current day expire at the next fetch slot.
type CachingRawStore struct {
	inner     usecase.RawStore
	rdb       *redis.Client
	docTTL    time.Duration
	slot      time.Duration
	loc       *time.Location
	namespace string
	now       func() time.Time
}

var _ usecase.RawStore = (*CachingRawStore)(nil)

// NewCachingRawStore decorates a RawStore with Redis caching.
// If docTTL is 0, it defaults to 24 hours. slot is the fetch cadence (default 5 minutes).
// If namespace is empty, it uses "rawstore".
func NewCachingRawStore(rdb *redis.Client, inner usecase.RawStore, docTTL, slot time.Duration, loc *time.Location, namespace string) *CachingRawStore {
	if docTTL <= 0 {
		docTTL = 24 * time.Hour
	}
	if slot <= 0 {
		slot = 5 * time.Minute
	}
	if loc == nil {
		loc = time.UTC
	}
	if namespace == "" {
		namespace = "rawstore"
	}
	return &CachingRawStore{
		inner:     inner,
		rdb:       rdb,
		docTTL:    docTTL,
		slot:      slot,
		loc:       loc,
		namespace: namespace,
		now:       time.Now,
	}
}

// Put writes through to the underlying store and invalidates cached key listings.
func (c *CachingRawStore) Put(ctx context.Context, doc entity.RawFetchDocument) (string, error) {
	key, err := c.inner.Put(ctx, doc)
	if err != nil {
		return "", err
	}
	if c.rdb == nil {
		return key, nil
	}
	_ = c.deleteByPattern(ctx, c.namespace+":keys:*") // Best effort: don't fail if cache deletion fails
	return key, nil
}

// ListKeys returns keys for the date range, checking cache first.
func (c *CachingRawStore) ListKeys(ctx context.Context, from, to string) ([]string, error) {
	if c.rdb == nil {
		return c.inner.ListKeys(ctx, from, to)
	}

	ck := fmt.Sprintf("%s:keys:%s:%s", c.namespace, safe(from), safe(to))
	if b, err := c.rdb.Get(ctx, ck).Bytes(); err == nil && len(b) > 0 {
		var out []string
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		_ = c.rdb.Del(ctx, ck).Err()
	}

	out, err := c.inner.ListKeys(ctx, from, to)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, ck, b, c.listTTL(to)).Err()
	}
	return out, nil
}

// Get returns a document, checking cache first then falling back to the store.
func (c *CachingRawStore) Get(ctx context.Context, key string) (entity.RawFetchDocument, error) {
	if c.rdb == nil {
		return c.inner.Get(ctx, key)
	}

	ck := c.namespace + ":doc:" + safe(key)
	if b, err := c.rdb.Get(ctx, ck).Bytes(); err == nil && len(b) > 0 {
		var doc entity.RawFetchDocument
		if err := json.Unmarshal(b, &doc); err == nil {
			return doc, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, ck).Err()
	}

	doc, err := c.inner.Get(ctx, key)
	if err != nil {
		return entity.RawFetchDocument{}, err
	}
	if b, err := json.Marshal(doc); err == nil {
		_ = c.rdb.Set(ctx, ck, b, c.docTTL).Err()
	}
	return doc, nil
}

// listTTL keeps past ranges for docTTL and ranges reaching today until the next fetch slot.
func (c *CachingRawStore) listTTL(to string) time.Duration {
	now := c.now().In(c.loc)
	if to != "" && to < now.Format(time.DateOnly) {
		return c.docTTL
	}
	return TimeUntilNextSlot(now, c.slot)
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingRawStore) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
