package rag

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/kg-road/roadrag/internal/types"
)

const schemaKey = "schema"

// SchemaCache memoizes a SchemaProvider. Concurrent misses share a single
// upstream call. Failures are not cached.
type SchemaCache struct {
	provider SchemaProvider
	cache    *gocache.Cache
	group    singleflight.Group
}

// NewSchemaCache wraps provider. A ttl of zero keeps the schema until
// Invalidate is called.
func NewSchemaCache(provider SchemaProvider, ttl time.Duration) *SchemaCache {
	expiration := gocache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 2 * ttl
	}
	return &SchemaCache{
		provider: provider,
		cache:    gocache.New(expiration, cleanup),
	}
}

// DescribeSchema returns the cached schema, loading it on a miss.
func (c *SchemaCache) DescribeSchema(ctx context.Context) (string, error) {
	if v, ok := c.cache.Get(schemaKey); ok {
		return v.(string), nil
	}

	v, err, _ := c.group.Do(schemaKey, func() (any, error) {
		if v, ok := c.cache.Get(schemaKey); ok {
			return v, nil
		}
		schema, err := c.provider.DescribeSchema(ctx)
		if err != nil {
			return nil, types.WrapRetryableError(ErrCodeSchemaFailed, "failed to describe graph schema", err)
		}
		c.cache.SetDefault(schemaKey, schema)
		return schema, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached schema.
func (c *SchemaCache) Invalidate() {
	c.cache.Delete(schemaKey)
}
