package providers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"studyrag/internal/util"
	"studyrag/internal/vector"

	goredis "github.com/redis/go-redis/v9"
)

type cacheClient interface {
	MGet(ctx context.Context, keys ...string) *goredis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
}

// CachingEmbedder stores vectors in Redis keyed by namespace, dimension and
// input hash. Redis failures degrade to calling the inner provider.
type CachingEmbedder struct {
	inner     EmbeddingProvider
	rdb       cacheClient
	ttl       time.Duration
	namespace string
}

func NewCachingEmbedder(inner EmbeddingProvider, rdb cacheClient, ttl time.Duration, namespace string) *CachingEmbedder {
	return &CachingEmbedder{inner: inner, rdb: rdb, ttl: ttl, namespace: namespace}
}

func NewRedisClient(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (c *CachingEmbedder) key(dim int, input string) string {
	return "studyrag:emb:" + c.namespace + ":" + strconv.Itoa(dim) + ":" + util.SHA256Hex([]byte(input))
}

func (c *CachingEmbedder) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	if len(req.Inputs) == 0 {
		return c.inner.Embed(ctx, req)
	}
	keys := make([]string, len(req.Inputs))
	for i, in := range req.Inputs {
		keys[i] = c.key(req.Dimension, in)
	}
	out := make([][]float32, len(req.Inputs))
	var missing []int
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil || len(vals) != len(keys) {
		vals = make([]interface{}, len(keys))
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, i)
			continue
		}
		vec, err := vector.DecodeBlob([]byte(s))
		if err != nil || len(vec) == 0 {
			missing = append(missing, i)
			continue
		}
		out[i] = vec
	}
	if len(missing) == 0 {
		return out, ProviderInfo{Name: c.namespace, Model: "redis-cache", Key: "cache"}, nil
	}

	sub := req
	sub.Inputs = make([]string, len(missing))
	for j, i := range missing {
		sub.Inputs[j] = req.Inputs[i]
	}
	vecs, info, err := c.inner.Embed(ctx, sub)
	if err != nil {
		return nil, info, err
	}
	if len(vecs) != len(missing) {
		return nil, info, fmt.Errorf("embedding count mismatch: got %d want %d", len(vecs), len(missing))
	}
	for j, i := range missing {
		out[i] = vecs[j]
		_ = c.rdb.Set(ctx, keys[i], vector.EncodeBlob(vecs[j]), c.ttl).Err()
	}
	return out, info, nil
}
