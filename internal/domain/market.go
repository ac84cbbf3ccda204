package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market holds the per-market metadata the order engine needs: which
// exchange domain to sign under (NegRisk) and which price grid applies
// (TickSize). The remaining fields are descriptive.
type Market struct {
	ID          string
	Question    string
	Slug        string
	ConditionID string
	TokenIDs    [2]string
	Outcomes    [2]string
	TickSize    decimal.Decimal
	NegRisk     bool
	Active      bool
	Closed      bool
	UpdatedAt   time.Time
}

// PriceLevel is one level of an order book: a price and the total size
// resting at that price.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook is a snapshot of resting liquidity for one token. Bids and asks
// are returned in venue order; consumers that walk the book sort as needed.
type OrderBook struct {
	Market    string
	AssetID   string
	Timestamp string
	Bids      []PriceLevel
	Asks      []PriceLevel
}
