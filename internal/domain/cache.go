package domain

import "context"

// MarketCache provides fast market metadata lookups so per-order tick-size
// and neg-risk resolution can skip the REST round trip.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id string) (Market, error)
	GetByToken(ctx context.Context, tokenID string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}
