package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known development key pair, never used with real funds.
const (
	testKeyHex  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testKeyAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

const (
	ctfExchange     = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	negRiskExchange = "0xC5d563A36AE78145C45a50134d48A1215220f80a"
)

func TestAuthDomainSeparator(t *testing.T) {
	sep := AuthDomainSeparator(137)
	assert.Equal(t,
		"cfc66be2a3b30464cb3b588324101f660c9a205fa76e8e5f83ee16a528e1c4cb",
		hex.EncodeToString(sep),
	)

	// Chain ID is part of the separator.
	assert.NotEqual(t, sep, AuthDomainSeparator(80002))
}

func TestExchangeDomainSeparator(t *testing.T) {
	ctf := ExchangeDomainSeparator(137, common.HexToAddress(ctfExchange))
	assert.Equal(t,
		"1a573e3617c78403b5b4b892827992f027b03d4eaf570048b8ee8cdd84d151be",
		hex.EncodeToString(ctf),
	)

	neg := ExchangeDomainSeparator(137, common.HexToAddress(negRiskExchange))
	assert.Equal(t,
		"82cb6aa85babb812f4b521a12b10f0cbc68d2b44be7bc02c047004f544adb49f",
		hex.EncodeToString(neg),
	)

	assert.NotEqual(t, ctf, neg)
}

func TestAuthDigest(t *testing.T) {
	addr := common.HexToAddress("0x60594a405d53811d3BC4766596EFD80fd545A270")

	digest := AuthDigest(137, addr, 10000000, 0)
	assert.Equal(t,
		"215623589de13fbae1a095f2b5b8990390bd4c57c523f6445abe74526d4601d1",
		hex.EncodeToString(digest),
	)

	// Every input feeds the digest.
	assert.NotEqual(t, digest, AuthDigest(137, addr, 10000001, 0))
	assert.NotEqual(t, digest, AuthDigest(137, addr, 10000000, 1))
	assert.NotEqual(t, digest, AuthDigest(80002, addr, 10000000, 0))
}

func testOrderPayload() OrderPayload {
	return OrderPayload{
		Salt:          "479249096354",
		Maker:         "0x60594a405d53811d3BC4766596EFD80fd545A270",
		Signer:        "0x60594a405d53811d3BC4766596EFD80fd545A270",
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       "1234",
		MakerAmount:   "5000000",
		TakerAmount:   "10000000",
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          0,
		SignatureType: 0,
	}
}

func TestOrderDigest(t *testing.T) {
	digest, err := OrderDigest(137, common.HexToAddress(ctfExchange), testOrderPayload())
	require.NoError(t, err)
	assert.Equal(t,
		"ce525fe233991b026f64a75366fa5c111bb6b8397cb615fb3aa20b49d5f11bf8",
		hex.EncodeToString(digest),
	)
}

func TestOrderDigest_NegRiskContract(t *testing.T) {
	digest, err := OrderDigest(137, common.HexToAddress(negRiskExchange), testOrderPayload())
	require.NoError(t, err)
	assert.Equal(t,
		"7f1d762314b1fa516f9acb7b4e656a30842588acf0a467eece20cbb4a30903c8",
		hex.EncodeToString(digest),
	)
}

func TestOrderDigest_FieldSensitivity(t *testing.T) {
	base, err := OrderDigest(137, common.HexToAddress(ctfExchange), testOrderPayload())
	require.NoError(t, err)

	mutations := map[string]func(*OrderPayload){
		"salt":        func(o *OrderPayload) { o.Salt = "479249096355" },
		"tokenId":     func(o *OrderPayload) { o.TokenID = "1235" },
		"makerAmount": func(o *OrderPayload) { o.MakerAmount = "5000001" },
		"takerAmount": func(o *OrderPayload) { o.TakerAmount = "10000001" },
		"expiration":  func(o *OrderPayload) { o.Expiration = "1800000000" },
		"nonce":       func(o *OrderPayload) { o.Nonce = "1" },
		"feeRateBps":  func(o *OrderPayload) { o.FeeRateBps = "100" },
		"side":        func(o *OrderPayload) { o.Side = 1 },
		"sigType":     func(o *OrderPayload) { o.SignatureType = 2 },
	}
	for name, mutate := range mutations {
		payload := testOrderPayload()
		mutate(&payload)
		digest, err := OrderDigest(137, common.HexToAddress(ctfExchange), payload)
		require.NoError(t, err, name)
		assert.NotEqual(t, base, digest, "mutating %s must change the digest", name)
	}
}

func TestOrderDigest_InvalidNumericField(t *testing.T) {
	payload := testOrderPayload()
	payload.MakerAmount = "not-a-number"
	_, err := OrderDigest(137, common.HexToAddress(ctfExchange), payload)
	assert.Error(t, err)

	payload = testOrderPayload()
	payload.Salt = "-1"
	_, err = OrderDigest(137, common.HexToAddress(ctfExchange), payload)
	assert.Error(t, err)
}

func TestNewKeySigner(t *testing.T) {
	signer, err := NewKeySigner(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testKeyAddr), signer.Address())

	// 0x prefix is accepted too.
	prefixed, err := NewKeySigner("0x" + testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), prefixed.Address())
}

func TestNewKeySigner_InvalidKey(t *testing.T) {
	_, err := NewKeySigner("zz")
	assert.Error(t, err)

	_, err = NewKeySigner("")
	assert.Error(t, err)
}

func TestKeySigner_SignDigest(t *testing.T) {
	signer, err := NewKeySigner(testKeyHex)
	require.NoError(t, err)

	digest := AuthDigest(137, signer.Address(), 10000000, 0)
	sig, err := signer.SignDigest(digest)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	// Same digest, same signature.
	again, err := signer.SignDigest(digest)
	require.NoError(t, err)
	assert.Equal(t, sig, again)

	// The signature must recover to the signer's address.
	recovery := make([]byte, 65)
	copy(recovery, sig)
	recovery[64] -= 27
	pub, err := ethcrypto.SigToPub(digest, recovery)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), ethcrypto.PubkeyToAddress(*pub))
}

func TestSignAuthMessage(t *testing.T) {
	signer, err := NewKeySigner(testKeyHex)
	require.NoError(t, err)

	sig, err := SignAuthMessage(signer, 137, 10000000, 0)
	require.NoError(t, err)
	require.Len(t, sig, 132) // 0x + 65 bytes hex

	raw, err := hex.DecodeString(sig[2:])
	require.NoError(t, err)
	raw[64] -= 27
	digest := AuthDigest(137, signer.Address(), 10000000, 0)
	pub, err := ethcrypto.SigToPub(digest, raw)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), ethcrypto.PubkeyToAddress(*pub))
}

func TestSignOrder(t *testing.T) {
	signer, err := NewKeySigner(testKeyHex)
	require.NoError(t, err)

	payload := testOrderPayload()
	payload.Maker = signer.Address().Hex()
	payload.Signer = signer.Address().Hex()

	sig, err := SignOrder(signer, 137, common.HexToAddress(ctfExchange), payload)
	require.NoError(t, err)
	require.Len(t, sig, 132)

	raw, err := hex.DecodeString(sig[2:])
	require.NoError(t, err)
	raw[64] -= 27
	digest, err := OrderDigest(137, common.HexToAddress(ctfExchange), payload)
	require.NoError(t, err)
	pub, err := ethcrypto.SigToPub(digest, raw)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), ethcrypto.PubkeyToAddress(*pub))
}

func BenchmarkSignOrder(b *testing.B) {
	signer, _ := NewKeySigner(testKeyHex)
	payload := testOrderPayload()
	contract := common.HexToAddress(ctfExchange)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = SignOrder(signer, 137, contract, payload)
	}
}
