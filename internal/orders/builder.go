package orders

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/openpoly/clobclient/internal/crypto"
	"github.com/openpoly/clobclient/internal/domain"
)

// Exchange contract addresses on Polygon mainnet (chain 137). The neg-risk
// exchange verifies orders for neg-risk markets; everything else goes
// through the CTF exchange.
const (
	CTFExchangeAddress     = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	NegRiskExchangeAddress = "0xC5d563A36AE78145C45a50134d48A1215220f80a"
)

// ContractConfig holds the exchange contract addresses orders are signed
// against. Only Polygon mainnet ships built in; other chains must supply
// their addresses explicitly.
type ContractConfig struct {
	Exchange        common.Address
	NegRiskExchange common.Address
}

// ContractConfigForChain returns the built-in contract configuration for a
// chain, or an error for chains without one.
func ContractConfigForChain(chainID int64) (ContractConfig, error) {
	if chainID == 137 {
		return ContractConfig{
			Exchange:        common.HexToAddress(CTFExchangeAddress),
			NegRiskExchange: common.HexToAddress(NegRiskExchangeAddress),
		}, nil
	}
	return ContractConfig{}, fmt.Errorf("orders: no built-in contract config for chain %d", chainID)
}

// VerifyingContract picks the EIP-712 verifying contract per the negRisk
// flag.
func (c ContractConfig) VerifyingContract(negRisk bool) common.Address {
	if negRisk {
		return c.NegRiskExchange
	}
	return c.Exchange
}

// OrderBuilder creates and signs CLOB orders. It is immutable after
// construction: the signature type, funder, and chain never change, so a
// single builder is safe for concurrent use.
type OrderBuilder struct {
	signer    crypto.DigestSigner
	sigType   domain.SignatureType
	maker     common.Address // economic owner: funder for proxy types, EOA otherwise
	chainID   int64
	contracts ContractConfig
}

// NewOrderBuilder resolves the maker/signer addresses for the signature
// type. Proxy and Safe types require a funder (the wallet actually holding
// collateral); passing nil for those fails with domain.ErrMissingFunder
/// before anything can be signed. EOA ignores the funder: the signing key
// both owns and signs.
func NewOrderBuilder(signer crypto.DigestSigner, sigType domain.SignatureType, funder *common.Address, chainID int64, contracts ContractConfig) (*OrderBuilder, error) {
	if !sigType.Valid() {
		return nil, fmt.Errorf("orders: %w: unknown signature type %d", domain.ErrInvalidOrderArgs, sigType)
	}
	maker := signer.Address()
	if sigType.RequiresFunder() {
		if funder == nil || *funder == (common.Address{}) {
			return nil, fmt.Errorf("orders: %w: signature type %s", domain.ErrMissingFunder, sigType)
		}
		maker = *funder
	}
	return &OrderBuilder{
		signer:    signer,
		sigType:   sigType,
		maker:     maker,
		chainID:   chainID,
		contracts: contracts,
	}, nil
}

// Maker returns the resolved economic-owner address orders carry.
func (b *OrderBuilder) Maker() common.Address {
	return b.maker
}

// SignatureType returns the builder's fixed signature type.
func (b *OrderBuilder) SignatureType() domain.SignatureType {
	return b.sigType
}

// BuildOrder validates, converts, hashes, and signs a limit order. All
// validation happens before the signature is produced; no partially signed
// state is ever returned.
func (b *OrderBuilder) BuildOrder(args domain.OrderArgs, extras domain.ExtraOrderArgs, opts domain.CreateOrderOptions) (domain.SignedOrder, error) {
	if args.TokenID == "" || !args.Side.Valid() {
		return domain.SignedOrder{}, fmt.Errorf("orders: %w: tokenID and side are required", domain.ErrInvalidOrderArgs)
	}
	if err := ValidateOrderArgs(args.Price, args.Size, opts.TickSize); err != nil {
		return domain.SignedOrder{}, err
	}
	maker, taker, err := OrderAmounts(args.Side, args.Price, args.Size, opts.TickSize)
	if err != nil {
		return domain.SignedOrder{}, err
	}
	if extras.Expiration < 0 {
		return domain.SignedOrder{}, fmt.Errorf("orders: %w: negative expiration", domain.ErrInvalidOrderArgs)
	}
	return b.signOrder(args.TokenID, args.Side, maker, taker, extras.Expiration, extras, opts.NegRisk)
}

// BuildMarketOrder builds an order priced by walking the book (see
// CalculateMarketPrice). Market orders carry expiration 0 and are submitted
// FOK/FAK by the caller. The marketable price must already be tick-aligned;
// RoundToTick helps callers get there.
func (b *OrderBuilder) BuildMarketOrder(args domain.MarketOrderArgs, price decimal.Decimal, extras domain.ExtraOrderArgs, opts domain.CreateOrderOptions) (domain.SignedOrder, error) {
	if args.TokenID == "" || !args.Side.Valid() {
		return domain.SignedOrder{}, fmt.Errorf("orders: %w: tokenID and side are required", domain.ErrInvalidOrderArgs)
	}
	if err := ValidateOrderArgs(price, args.Amount, opts.TickSize); err != nil {
		return domain.SignedOrder{}, err
	}
	maker, taker, err := OrderAmounts(args.Side, price, args.Amount, opts.TickSize)
	if err != nil {
		return domain.SignedOrder{}, err
	}
	return b.signOrder(args.TokenID, args.Side, maker, taker, 0, extras, opts.NegRisk)
}

// RoundToTick snaps a price onto the tick grid, rounding toward the less
// aggressive side (down for BUY, up for SELL stays within the book walk
// result, so down is always safe here): prices are rounded down to the
// nearest multiple of tick and clamped inside (0, 1).
func RoundToTick(price, tick decimal.Decimal) decimal.Decimal {
	if tick.Sign() <= 0 {
		return price
	}
	snapped := price.Div(tick).Floor().Mul(tick)
	if snapped.Sign() <= 0 {
		return tick
	}
	if snapped.GreaterThanOrEqual(one) {
		return one.Sub(tick)
	}
	return snapped
}

func (b *OrderBuilder) signOrder(tokenID string, side domain.Side, makerAmt, takerAmt *big.Int, expiration int64, extras domain.ExtraOrderArgs, negRisk bool) (domain.SignedOrder, error) {
	salt, err := randomSalt()
	if err != nil {
		return domain.SignedOrder{}, err
	}
	taker := extras.Taker
	if taker == "" {
		taker = domain.ZeroAddress
	}
	if !common.IsHexAddress(taker) {
		return domain.SignedOrder{}, fmt.Errorf("orders: %w: invalid taker address %q", domain.ErrInvalidOrderArgs, taker)
	}
	nonce := big.NewInt(0)
	if extras.Nonce != nil {
		if extras.Nonce.Sign() < 0 {
			return domain.SignedOrder{}, fmt.Errorf("orders: %w: negative nonce", domain.ErrInvalidOrderArgs)
		}
		nonce = extras.Nonce
	}
	if extras.FeeRateBps < 0 {
		return domain.SignedOrder{}, fmt.Errorf("orders: %w: negative feeRateBps", domain.ErrInvalidOrderArgs)
	}
	if _, ok := new(big.Int).SetString(tokenID, 10); !ok {
		return domain.SignedOrder{}, fmt.Errorf("orders: %w: tokenID %q is not a decimal string", domain.ErrInvalidOrderArgs, tokenID)
	}

	payload := crypto.OrderPayload{
		Salt:          strconv.FormatInt(salt, 10),
		Maker:         b.maker.Hex(),
		Signer:        b.signer.Address().Hex(),
		Taker:         common.HexToAddress(taker).Hex(),
		TokenID:       tokenID,
		MakerAmount:   makerAmt.String(),
		TakerAmount:   takerAmt.String(),
		Expiration:    strconv.FormatInt(expiration, 10),
		Nonce:         nonce.String(),
		FeeRateBps:    strconv.FormatInt(extras.FeeRateBps, 10),
		Side:          side.Uint8(),
		SignatureType: uint8(b.sigType),
	}

	verifying := b.contracts.VerifyingContract(negRisk)
	signature, err := crypto.SignOrder(b.signer, b.chainID, verifying, payload)
	if err != nil {
		return domain.SignedOrder{}, fmt.Errorf("orders: sign order: %w", err)
	}

	return domain.SignedOrder{
		Salt:          salt,
		Maker:         payload.Maker,
		Signer:        payload.Signer,
		Taker:         payload.Taker,
		TokenID:       payload.TokenID,
		MakerAmount:   payload.MakerAmount,
		TakerAmount:   payload.TakerAmount,
		Expiration:    payload.Expiration,
		Nonce:         payload.Nonce,
		FeeRateBps:    payload.FeeRateBps,
		Side:          side,
		SignatureType: int(b.sigType),
		Signature:     signature,
	}, nil
}

// randomSalt draws a fresh positive salt so independently built orders are
// never identical even for identical arguments.
func randomSalt() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("orders: generating salt: %w", err)
	}
	return int64(binary.BigEndian.Uint64(buf[:]) >> 1), nil
}
