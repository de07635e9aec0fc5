// Package cache keeps short-lived snapshots of each restaurant's open orders
// so polling clients do not hit the database on every tick.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adisyon/api/internal/ledger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is kept well below the client poll interval so a missed
// invalidation heals before the next poll.
const DefaultTTL = 5 * time.Second

// Redis stores open-order snapshots as JSON values.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedis creates a Redis snapshot cache. A non-positive ttl uses DefaultTTL.
func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// NewClient parses a redis:// URL and checks the connection.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func openOrdersKey(restaurantID uuid.UUID) string {
	return fmt.Sprintf("open_orders:restaurant:%s", restaurantID)
}

// GetOpenOrders returns (nil, nil) on a miss.
func (r *Redis) GetOpenOrders(ctx context.Context, restaurantID uuid.UUID) ([]*ledger.Order, error) {
	data, err := r.client.Get(ctx, openOrdersKey(restaurantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	orders := []*ledger.Order{}
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return orders, nil
}

func (r *Redis) SetOpenOrders(ctx context.Context, restaurantID uuid.UUID, orders []*ledger.Order) error {
	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, openOrdersKey(restaurantID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, restaurantID uuid.UUID) error {
	if err := r.client.Del(ctx, openOrdersKey(restaurantID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// Noop never stores anything. Used when Redis is not configured.
type Noop struct{}

func (Noop) GetOpenOrders(context.Context, uuid.UUID) ([]*ledger.Order, error) { return nil, nil }
func (Noop) SetOpenOrders(context.Context, uuid.UUID, []*ledger.Order) error    { return nil }
func (Noop) Invalidate(context.Context, uuid.UUID) error                        { return nil }
