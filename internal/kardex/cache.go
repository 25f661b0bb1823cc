package kardex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// BalanceCache keeps current product balances in Redis so stock displays do
// not hit the ledger table on every read. Nil receiver and nil client are
// both tolerated; every miss falls through to the repository.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBalanceCache instantiates the cache helper.
func NewBalanceCache(client *redis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl}
}

func balanceKey(productID int64) string {
	return fmt.Sprintf("kardex:balance:%d", productID)
}

// Get returns the cached balance and whether it was present.
func (c *BalanceCache) Get(ctx context.Context, productID int64) (decimal.Decimal, bool, error) {
	if c == nil || c.client == nil {
		return decimal.Zero, false, nil
	}
	raw, err := c.client.Get(ctx, balanceKey(productID)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		// Corrupt entry; drop it and treat as a miss.
		_ = c.client.Del(ctx, balanceKey(productID)).Err()
		return decimal.Zero, false, nil
	}
	return balance, true, nil
}

// Set stores the balance with the configured TTL.
func (c *BalanceCache) Set(ctx context.Context, productID int64, balance decimal.Decimal) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, balanceKey(productID), balance.String(), c.ttl).Err()
}

// Invalidate drops the cached balance; called after every ledger write.
func (c *BalanceCache) Invalidate(ctx context.Context, productID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, balanceKey(productID)).Err()
}
