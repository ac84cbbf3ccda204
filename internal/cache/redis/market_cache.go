package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openpoly/clobclient/internal/domain"
)

const marketTTL = 5 * time.Minute

// MarketCache implements domain.MarketCache using Redis with JSON-serialized
// market metadata and a token-to-market index. Order building consults it
// for tick size and neg-risk so hot paths skip the REST round trip; entries
// expire so grid changes propagate within the TTL.
//
// Key schema:
//
//	clob:market:{id}            - JSON market metadata
//	clob:market:token:{tokenID} - string value of the market ID
type MarketCache struct {
	rdb *redis.Client
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{rdb: c.Underlying()}
}

func marketKey(id string) string       { return "clob:market:" + id }
func marketTokenKey(tok string) string { return "clob:market:token:" + tok }

// Set stores a market with the cache TTL and indexes both of its token IDs.
func (mc *MarketCache) Set(ctx context.Context, market domain.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", market.ID, err)
	}

	pipe := mc.rdb.TxPipeline()
	pipe.Set(ctx, marketKey(market.ID), data, marketTTL)
	for _, tokenID := range market.TokenIDs {
		if tokenID == "" {
			continue
		}
		pipe.Set(ctx, marketTokenKey(tokenID), market.ID, marketTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set market %s: %w", market.ID, err)
	}
	return nil
}

// Get retrieves a market by its ID, returning domain.ErrNotFound on a miss.
func (mc *MarketCache) Get(ctx context.Context, id string) (domain.Market, error) {
	data, err := mc.rdb.Get(ctx, marketKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %s: %w", id, err)
	}
	var market domain.Market
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %s: %w", id, err)
	}
	return market, nil
}

// GetByToken retrieves a market via the token index, returning
// domain.ErrNotFound when either the index entry or the market is missing.
func (mc *MarketCache) GetByToken(ctx context.Context, tokenID string) (domain.Market, error) {
	id, err := mc.rdb.Get(ctx, marketTokenKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get token index %s: %w", tokenID, err)
	}
	return mc.Get(ctx, id)
}

// Invalidate removes a market and its token index entries.
func (mc *MarketCache) Invalidate(ctx context.Context, id string) error {
	market, err := mc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	keys := []string{marketKey(id)}
	for _, tokenID := range market.TokenIDs {
		if tokenID != "" {
			keys = append(keys, marketTokenKey(tokenID))
		}
	}
	if err := mc.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", id, err)
	}
	return nil
}
