package polymarket

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openpoly/clobclient/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// apiCreds is the /auth response shape.
type apiCreds struct {
	ApiKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

func (c apiCreds) toDomain() domain.ApiCreds {
	return domain.ApiCreds{Key: c.ApiKey, Secret: c.Secret, Passphrase: c.Passphrase}
}

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg,omitempty"`
	OrderID     string `json:"orderID,omitempty"`
	Status      string `json:"status,omitempty"`
	TransactID  string `json:"transactID,omitempty"`
	ShouldRetry bool   `json:"shouldRetry,omitempty"`
}

// ToDomainOrderResult converts an APIOrderResult to a domain.OrderResult.
func (r *APIOrderResult) ToDomainOrderResult() domain.OrderResult {
	return domain.OrderResult{
		Success:     r.Success,
		OrderID:     r.OrderID,
		Status:      r.Status,
		Message:     r.ErrorMsg,
		ShouldRetry: r.ShouldRetry,
	}
}

// APIOrder represents an open order as returned by the CLOB API.
type APIOrder struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	MarketID      string `json:"market"`
	AssetID       string `json:"asset_id"`
	Side          string `json:"side"`
	OriginalSize  string `json:"original_size"`
	SizeMatched   string `json:"size_matched"`
	Price         string `json:"price"`
	Owner         string `json:"owner"`
	Expiration    string `json:"expiration"`
	OrderType     string `json:"order_type"`
	SignatureType int    `json:"signature_type"`
	CreatedAt     int64  `json:"created_at"`
}

// bookLevel is one price level in a /book response; the API sends decimal
// strings.
type bookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// bookResponse is the /book response shape.
type bookResponse struct {
	Market    string      `json:"market"`
	AssetID   string      `json:"asset_id"`
	Timestamp string      `json:"timestamp"`
	Bids      []bookLevel `json:"bids"`
	Asks      []bookLevel `json:"asks"`
}

func (b *bookResponse) toDomain() (domain.OrderBook, error) {
	book := domain.OrderBook{
		Market:    b.Market,
		AssetID:   b.AssetID,
		Timestamp: b.Timestamp,
	}
	var err error
	if book.Bids, err = toLevels(b.Bids); err != nil {
		return domain.OrderBook{}, err
	}
	if book.Asks, err = toLevels(b.Asks); err != nil {
		return domain.OrderBook{}, err
	}
	return book, nil
}

func toLevels(in []bookLevel) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, 0, len(in))
	for _, lvl := range in {
		price, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			return nil, err
		}
		size, err := decimal.NewFromString(lvl.Size)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	return out, nil
}

// tickSizeResponse is the /tick-size response shape.
type tickSizeResponse struct {
	MinimumTickSize json.Number `json:"minimum_tick_size"`
}

// negRiskResponse is the /neg-risk response shape.
type negRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

// midpointResponse is the /midpoint response shape.
type midpointResponse struct {
	Mid string `json:"mid"`
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Gamma API. Only fields
// the order engine consumes are mapped.
type APIMarket struct {
	ID              string   `json:"id"`
	Question        string   `json:"question"`
	ConditionID     string   `json:"conditionId"`
	Slug            string   `json:"slug"`
	Active          flexBool `json:"active"`
	Closed          bool     `json:"closed"`
	NegRisk         bool     `json:"negRisk"`
	Outcomes        string   `json:"outcomes"`        // JSON-encoded: "[\"Yes\",\"No\"]"
	ClobTokenIDs    string   `json:"clobTokenIds"`    // JSON-encoded: "[\"123\",\"456\"]"
	OrderPriceMinTickSize json.Number `json:"orderPriceMinTickSize"`
	UpdatedAt       string   `json:"updatedAt"`
}

// ToDomainMarket converts an APIMarket to a domain.Market, decoding the
// JSON-encoded outcome and token-ID arrays Gamma nests inside strings.
func (m *APIMarket) ToDomainMarket() domain.Market {
	market := domain.Market{
		ID:          m.ID,
		Question:    m.Question,
		Slug:        m.Slug,
		ConditionID: m.ConditionID,
		NegRisk:     m.NegRisk,
		Active:      bool(m.Active),
		Closed:      m.Closed,
	}
	var outcomes []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err == nil && len(outcomes) >= 2 {
		market.Outcomes = [2]string{outcomes[0], outcomes[1]}
	}
	var tokens []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &tokens); err == nil && len(tokens) >= 2 {
		market.TokenIDs = [2]string{tokens[0], tokens[1]}
	}
	if tick, err := decimal.NewFromString(m.OrderPriceMinTickSize.String()); err == nil {
		market.TickSize = tick
	}
	if t, err := time.Parse(time.RFC3339, m.UpdatedAt); err == nil {
		market.UpdatedAt = t
	}
	return market
}
