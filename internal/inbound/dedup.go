package inbound

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "docrelay/pkg/domain"
)

// DedupIndex is a fast-path duplicate check on the content hash. The store's
// FindByContentHash remains authoritative; the index only short-circuits the
// common case before a database round trip.
type DedupIndex interface {
	// MarkSeen records the hash and reports whether it was already present.
	MarkSeen(ctx context.Context, orgID id.OrgID, contentHash string) (bool, error)
}

const (
	dedupKeyPrefix = "inbound:hash:"
	dedupTTL       = 30 * 24 * time.Hour
)

// RedisDedup shares the hash index across instances.
type RedisDedup struct {
	client *redis.Client
}

func NewRedisDedup(client *redis.Client) *RedisDedup {
	return &RedisDedup{client: client}
}

func (d *RedisDedup) MarkSeen(ctx context.Context, orgID id.OrgID, contentHash string) (bool, error) {
	key := dedupKeyPrefix + orgID.String() + ":" + contentHash
	created, err := d.client.SetNX(ctx, key, "1", dedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("mark content hash: %w", err)
	}
	return !created, nil
}
