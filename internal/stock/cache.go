package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultSnapshotKey = "partsync:snapshot"

// SnapshotCache persists the last synced product snapshot in Redis so a
// restarted engine can serve the previous state until the first sync lands.
type SnapshotCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewSnapshotCache constructs a SnapshotCache. A zero ttl keeps snapshots
// until overwritten.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, key: defaultSnapshotKey, ttl: ttl}
}

// Save stores the snapshot.
func (c *SnapshotCache) Save(ctx context.Context, products []Product) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("stock: marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("stock: save snapshot: %w", err)
	}
	return nil
}

// Load retrieves the stored snapshot. A missing key yields (nil, nil).
func (c *SnapshotCache) Load(ctx context.Context) ([]Product, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stock: load snapshot: %w", err)
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("stock: decode snapshot: %w", err)
	}
	return products, nil
}
