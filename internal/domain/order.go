package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ZeroAddress is the taker placeholder for public (open) orders.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Side indicates whether an order buys or sells outcome tokens. The string
// values match the CLOB API wire format.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Uint8 returns the numeric side value used inside the signed order struct
// (0 for BUY, 1 for SELL).
func (s Side) Uint8() uint8 {
	if s == SideSell {
		return 1
	}
	return 0
}

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType indicates the time-in-force policy for order submission. It is
// part of the REST payload, not of the signed struct.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good-Till-Cancelled
	OrderTypeGTD OrderType = "GTD" // Good-Till-Date
	OrderTypeFOK OrderType = "FOK" // Fill-Or-Kill
	OrderTypeFAK OrderType = "FAK" // Fill-And-Kill
)

// SignatureType selects the wallet scheme the exchange uses to verify an
// order signature. The set is fixed by the venue contracts.
type SignatureType int

const (
	// SignatureEOA is a plain externally-owned-account signature; the EOA
	// both holds the funds and signs.
	SignatureEOA SignatureType = 0
	// SignaturePolyProxy means funds are held by a deployed Polymarket proxy
	// wallet while the controlling EOA signs.
	SignaturePolyProxy SignatureType = 1
	// SignaturePolyGnosisSafe means funds are held by a Gnosis-Safe-style
	// contract wallet while an owner EOA signs.
	SignaturePolyGnosisSafe SignatureType = 2
)

// Valid reports whether the value is one of the venue-supported types.
func (t SignatureType) Valid() bool {
	switch t {
	case SignatureEOA, SignaturePolyProxy, SignaturePolyGnosisSafe:
		return true
	}
	return false
}

// RequiresFunder reports whether this signature type needs a separate funder
// address (the proxy or Safe holding the collateral).
func (t SignatureType) RequiresFunder() bool {
	return t == SignaturePolyProxy || t == SignaturePolyGnosisSafe
}

func (t SignatureType) String() string {
	switch t {
	case SignatureEOA:
		return "EOA"
	case SignaturePolyProxy:
		return "POLY_PROXY"
	case SignaturePolyGnosisSafe:
		return "POLY_GNOSIS_SAFE"
	}
	return "UNKNOWN"
}

// OrderArgs are the caller-supplied parameters for a limit order. Price and
// size are decimals so no precision is lost before base-unit conversion.
type OrderArgs struct {
	TokenID string
	Price   decimal.Decimal
	Size    decimal.Decimal
	Side    Side
}

// MarketOrderArgs are the caller-supplied parameters for a market order.
// Amount is the share quantity to match against book liquidity; the price
// comes from walking the book rather than from the caller.
type MarketOrderArgs struct {
	TokenID string
	Amount  decimal.Decimal
	Side    Side
}

// ExtraOrderArgs carry the optional order fields. The zero value is the
// venue default: no fee, nonce 0, public order, no expiration.
type ExtraOrderArgs struct {
	FeeRateBps int64
	Nonce      *big.Int // nil means 0
	Taker      string   // empty means ZeroAddress
	Expiration int64    // Unix seconds; 0 means never (required for GTD)
}

// CreateOrderOptions select the rounding grid and the exchange contract used
// as the EIP-712 verifying contract.
type CreateOrderOptions struct {
	TickSize decimal.Decimal
	NegRisk  bool
}

// SignedOrder is the fully built, signed order payload ready for HTTP
// submission. Field names and encodings match the CLOB API exactly: big
// numbers travel as decimal strings, side as "BUY"/"SELL", signature as
// 0x-prefixed hex over 65 bytes.
type SignedOrder struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          Side   `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// ApiCreds are the L2 credentials issued by the venue after L1 wallet
// authentication. Immutable once obtained; replaced wholesale on re-derive.
type ApiCreds struct {
	Key        string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Empty reports whether the credentials are unset.
func (c ApiCreds) Empty() bool {
	return c.Key == "" || c.Secret == "" || c.Passphrase == ""
}

// OrderResult wraps the API response after order submission.
type OrderResult struct {
	Success     bool
	OrderID     string
	Status      string
	Message     string
	ShouldRetry bool
}
