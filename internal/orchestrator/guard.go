package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	id "docrelay/pkg/domain"
)

// SendGuard makes the send phase replay-safe: a retried orchestration for an
// already-attempted correlation id must not reach the transport twice.
type SendGuard interface {
	// Acquire claims the send slot for a correlation id. It returns false
	// when a prior run already claimed it.
	Acquire(ctx context.Context, correlationID id.CorrelationID) (bool, error)
}

// InMemoryGuard is the single-process guard.
type InMemoryGuard struct {
	mu   sync.Mutex
	seen map[id.CorrelationID]bool
}

func NewInMemoryGuard() *InMemoryGuard {
	return &InMemoryGuard{seen: make(map[id.CorrelationID]bool)}
}

func (g *InMemoryGuard) Acquire(_ context.Context, correlationID id.CorrelationID) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen[correlationID] {
		return false, nil
	}
	g.seen[correlationID] = true
	return true, nil
}

const (
	sendGuardKeyPrefix = "send:guard:"
	sendGuardTTL       = 24 * time.Hour
)

// RedisGuard shares the send slot across instances via SETNX.
type RedisGuard struct {
	client *redis.Client
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

func (g *RedisGuard) Acquire(ctx context.Context, correlationID id.CorrelationID) (bool, error) {
	key := sendGuardKeyPrefix + correlationID.String()
	ok, err := g.client.SetNX(ctx, key, "1", sendGuardTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire send guard: %w", err)
	}
	return ok, nil
}
