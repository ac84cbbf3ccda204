package orders

import (
	"encoding/hex"
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpoly/clobclient/internal/crypto"
	"github.com/openpoly/clobclient/internal/domain"
)

// Well-known development key pair, never used with real funds.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testSigner(t *testing.T) *crypto.KeySigner {
	t.Helper()
	signer, err := crypto.NewKeySigner(testKeyHex)
	require.NoError(t, err)
	return signer
}

func testContracts(t *testing.T) ContractConfig {
	t.Helper()
	contracts, err := ContractConfigForChain(137)
	require.NoError(t, err)
	return contracts
}

func eoaBuilder(t *testing.T) *OrderBuilder {
	t.Helper()
	b, err := NewOrderBuilder(testSigner(t), domain.SignatureEOA, nil, 137, testContracts(t))
	require.NoError(t, err)
	return b
}

func TestContractConfigForChain(t *testing.T) {
	contracts, err := ContractConfigForChain(137)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(CTFExchangeAddress), contracts.Exchange)
	assert.Equal(t, common.HexToAddress(NegRiskExchangeAddress), contracts.NegRiskExchange)

	assert.Equal(t, contracts.Exchange, contracts.VerifyingContract(false))
	assert.Equal(t, contracts.NegRiskExchange, contracts.VerifyingContract(true))

	_, err = ContractConfigForChain(80002)
	assert.Error(t, err)
}

func TestNewOrderBuilder_EOA(t *testing.T) {
	b := eoaBuilder(t)
	assert.Equal(t, testSigner(t).Address(), b.Maker())
	assert.Equal(t, domain.SignatureEOA, b.SignatureType())

	// A funder is ignored for EOA; the key both owns and signs.
	funder := common.HexToAddress("0x60594a405d53811d3BC4766596EFD80fd545A270")
	b2, err := NewOrderBuilder(testSigner(t), domain.SignatureEOA, &funder, 137, testContracts(t))
	require.NoError(t, err)
	assert.Equal(t, testSigner(t).Address(), b2.Maker())
}

func TestNewOrderBuilder_ProxyTypesRequireFunder(t *testing.T) {
	for _, sigType := range []domain.SignatureType{domain.SignaturePolyProxy, domain.SignaturePolyGnosisSafe} {
		_, err := NewOrderBuilder(testSigner(t), sigType, nil, 137, testContracts(t))
		assert.ErrorIs(t, err, domain.ErrMissingFunder, sigType.String())

		zero := common.Address{}
		_, err = NewOrderBuilder(testSigner(t), sigType, &zero, 137, testContracts(t))
		assert.ErrorIs(t, err, domain.ErrMissingFunder, sigType.String())

		funder := common.HexToAddress("0x60594a405d53811d3BC4766596EFD80fd545A270")
		b, err := NewOrderBuilder(testSigner(t), sigType, &funder, 137, testContracts(t))
		require.NoError(t, err)
		assert.Equal(t, funder, b.Maker())
	}
}

func TestNewOrderBuilder_InvalidSignatureType(t *testing.T) {
	_, err := NewOrderBuilder(testSigner(t), domain.SignatureType(9), nil, 137, testContracts(t))
	assert.ErrorIs(t, err, domain.ErrInvalidOrderArgs)
}

func TestBuildOrder(t *testing.T) {
	b := eoaBuilder(t)

	signed, err := b.BuildOrder(domain.OrderArgs{
		TokenID: "1234",
		Price:   d("0.50"),
		Size:    d("10"),
		Side:    domain.SideBuy,
	}, domain.ExtraOrderArgs{}, domain.CreateOrderOptions{TickSize: d("0.01")})
	require.NoError(t, err)

	addr := testSigner(t).Address().Hex()
	assert.Equal(t, addr, signed.Maker)
	assert.Equal(t, addr, signed.Signer)
	assert.Equal(t, domain.ZeroAddress, signed.Taker)
	assert.Equal(t, "1234", signed.TokenID)
	assert.Equal(t, "5000000", signed.MakerAmount)
	assert.Equal(t, "10000000", signed.TakerAmount)
	assert.Equal(t, "0", signed.Expiration)
	assert.Equal(t, "0", signed.Nonce)
	assert.Equal(t, "0", signed.FeeRateBps)
	assert.Equal(t, domain.SideBuy, signed.Side)
	assert.Equal(t, 0, signed.SignatureType)
	assert.Positive(t, signed.Salt)
	assert.Len(t, signed.Signature, 132)
}

func TestBuildOrder_SignatureRecovers(t *testing.T) {
	b := eoaBuilder(t)

	signed, err := b.BuildOrder(domain.OrderArgs{
		TokenID: "1234",
		Price:   d("0.50"),
		Size:    d("10"),
		Side:    domain.SideBuy,
	}, domain.ExtraOrderArgs{}, domain.CreateOrderOptions{TickSize: d("0.01")})
	require.NoError(t, err)

	digest, err := crypto.OrderDigest(137, testContracts(t).Exchange, crypto.OrderPayload{
		Salt:          strconv.FormatInt(signed.Salt, 10),
		Maker:         signed.Maker,
		Signer:        signed.Signer,
		Taker:         signed.Taker,
		TokenID:       signed.TokenID,
		MakerAmount:   signed.MakerAmount,
		TakerAmount:   signed.TakerAmount,
		Expiration:    signed.Expiration,
		Nonce:         signed.Nonce,
		FeeRateBps:    signed.FeeRateBps,
		Side:          signed.Side.Uint8(),
		SignatureType: uint8(signed.SignatureType),
	})
	require.NoError(t, err)

	raw, err := hex.DecodeString(signed.Signature[2:])
	require.NoError(t, err)
	require.Len(t, raw, 65)
	raw[64] -= 27
	pub, err := ethcrypto.SigToPub(digest, raw)
	require.NoError(t, err)
	assert.Equal(t, testSigner(t).Address(), ethcrypto.PubkeyToAddress(*pub))
}

func TestBuildOrder_Extras(t *testing.T) {
	b := eoaBuilder(t)
	taker := "0x60594a405d53811d3BC4766596EFD80fd545A270"

	signed, err := b.BuildOrder(domain.OrderArgs{
		TokenID: "1234",
		Price:   d("0.50"),
		Size:    d("10"),
		Side:    domain.SideSell,
	}, domain.ExtraOrderArgs{
		FeeRateBps: 30,
		Taker:      taker,
		Expiration: 1800000000,
	}, domain.CreateOrderOptions{TickSize: d("0.01")})
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress(taker).Hex(), signed.Taker)
	assert.Equal(t, "30", signed.FeeRateBps)
	assert.Equal(t, "1800000000", signed.Expiration)
	assert.Equal(t, domain.SideSell, signed.Side)
	assert.Equal(t, "10000000", signed.MakerAmount)
	assert.Equal(t, "5000000", signed.TakerAmount)
}

func TestBuildOrder_Rejections(t *testing.T) {
	b := eoaBuilder(t)
	opts := domain.CreateOrderOptions{TickSize: d("0.01")}
	valid := domain.OrderArgs{TokenID: "1234", Price: d("0.50"), Size: d("10"), Side: domain.SideBuy}

	missingToken := valid
	missingToken.TokenID = ""
	_, err := b.BuildOrder(missingToken, domain.ExtraOrderArgs{}, opts)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderArgs)

	offGrid := valid
	offGrid.Price = d("0.505")
	_, err = b.BuildOrder(offGrid, domain.ExtraOrderArgs{}, opts)
	assert.ErrorIs(t, err, domain.ErrInvalidTickSize)

	_, err = b.BuildOrder(valid, domain.ExtraOrderArgs{Expiration: -1}, opts)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderArgs)

	_, err = b.BuildOrder(valid, domain.ExtraOrderArgs{Taker: "not-an-address"}, opts)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderArgs)

	nonDecimalToken := valid
	nonDecimalToken.TokenID = "0xabc"
	_, err = b.BuildOrder(nonDecimalToken, domain.ExtraOrderArgs{}, opts)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderArgs)
}

func TestBuildOrder_FreshSalts(t *testing.T) {
	b := eoaBuilder(t)
	args := domain.OrderArgs{TokenID: "1234", Price: d("0.50"), Size: d("10"), Side: domain.SideBuy}
	opts := domain.CreateOrderOptions{TickSize: d("0.01")}

	first, err := b.BuildOrder(args, domain.ExtraOrderArgs{}, opts)
	require.NoError(t, err)
	second, err := b.BuildOrder(args, domain.ExtraOrderArgs{}, opts)
	require.NoError(t, err)

	assert.NotEqual(t, first.Salt, second.Salt)
	assert.NotEqual(t, first.Signature, second.Signature)
}

func TestBuildMarketOrder(t *testing.T) {
	b := eoaBuilder(t)

	signed, err := b.BuildMarketOrder(domain.MarketOrderArgs{
		TokenID: "1234",
		Amount:  d("25"),
		Side:    domain.SideBuy,
	}, d("0.53"), domain.ExtraOrderArgs{}, domain.CreateOrderOptions{TickSize: d("0.01")})
	require.NoError(t, err)

	assert.Equal(t, "13250000", signed.MakerAmount)
	assert.Equal(t, "25000000", signed.TakerAmount)
	// Market orders never rest on the book.
	assert.Equal(t, "0", signed.Expiration)
}

func TestBuildMarketOrder_Rejections(t *testing.T) {
	b := eoaBuilder(t)
	opts := domain.CreateOrderOptions{TickSize: d("0.01")}

	_, err := b.BuildMarketOrder(domain.MarketOrderArgs{TokenID: "", Amount: d("25"), Side: domain.SideBuy},
		d("0.53"), domain.ExtraOrderArgs{}, opts)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderArgs)

	// Off-grid price must be snapped by the caller first.
	_, err = b.BuildMarketOrder(domain.MarketOrderArgs{TokenID: "1234", Amount: d("25"), Side: domain.SideBuy},
		d("0.5312"), domain.ExtraOrderArgs{}, opts)
	assert.ErrorIs(t, err, domain.ErrInvalidTickSize)
}

func TestRoundToTick(t *testing.T) {
	assert.True(t, RoundToTick(d("0.531"), d("0.01")).Equal(d("0.53")))
	assert.True(t, RoundToTick(d("0.53"), d("0.01")).Equal(d("0.53")))
	assert.True(t, RoundToTick(d("0.539999"), d("0.01")).Equal(d("0.53")))

	// Clamped inside the open interval.
	assert.True(t, RoundToTick(d("0.004"), d("0.01")).Equal(d("0.01")))
	assert.True(t, RoundToTick(d("1.2"), d("0.01")).Equal(d("0.99")))

	// Degenerate tick passes through.
	assert.True(t, RoundToTick(d("0.531"), d("0")).Equal(d("0.531")))
}

