package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/agristream/livescript/internal/domain"
)

const cacheKeyPrefix = "livescript:kb:"

// CachedSearcher serves repeated queries from Redis. Cache failures are
// logged and fall through to the wrapped searcher; upstream errors are
// never cached.
type CachedSearcher struct {
	Next  Searcher
	Redis *redis.Client
	TTL   time.Duration
}

// NewCachedSearcher wraps next with a Redis cache.
func NewCachedSearcher(next Searcher, rdb *redis.Client, ttl time.Duration) *CachedSearcher {
	return &CachedSearcher{Next: next, Redis: rdb, TTL: ttl}
}

// cacheKey is stable for the same query regardless of collection order.
func cacheKey(q Query) string {
	ids := make([]string, 0, len(q.Collections))
	for _, c := range q.Collections {
		ids = append(ids, c.ID+"="+c.DatasetID)
	}
	sort.Strings(ids)
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(q.Text)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(ids, ",")))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(q.TopK) + "|" + strconv.FormatFloat(q.MinScore, 'f', -1, 64)))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Search implements Searcher.
func (c *CachedSearcher) Search(ctx context.Context, q Query) ([]domain.ReferenceFragment, error) {
	key := cacheKey(q)

	raw, err := c.Redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var hit []domain.ReferenceFragment
		if jerr := json.Unmarshal(raw, &hit); jerr == nil {
			return hit, nil
		}
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Msg("knowledge cache read failed")
	}

	out, err := c.Next.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.ReferenceFragment{}
	}
	if b, jerr := json.Marshal(out); jerr == nil {
		if serr := c.Redis.Set(ctx, key, b, c.TTL).Err(); serr != nil {
			log.Warn().Err(serr).Msg("knowledge cache write failed")
		}
	}
	return out, nil
}
