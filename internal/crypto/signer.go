package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/openpoly/clobclient/internal/domain"
)

// --------------------------------------------------------------------------
// EIP-712 type hashes (pre-computed keccak256 of the canonical type strings).
// The strings must match the on-chain verifier byte for byte; any reorder or
// type change produces a digest the venue rejects.
// --------------------------------------------------------------------------

var (
	// EIP712Domain(string name,string version,uint256 chainId)
	authDomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId)"),
	)

	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	exchangeDomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)

	// ClobAuth(address address,string timestamp,uint256 nonce,string message)
	clobAuthTypeHash = ethcrypto.Keccak256(
		[]byte("ClobAuth(address address,string timestamp,uint256 nonce,string message)"),
	)

	// Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)
	orderTypeHash = ethcrypto.Keccak256(
		[]byte("Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)"),
	)
)

const (
	authDomainName      = "ClobAuthDomain"
	exchangeDomainName  = "Polymarket CTF Exchange"
	domainVersion       = "1"
	clobAuthMessageText = "This message attests that I control the given wallet"
)

// DigestSigner is the wallet-key capability injected into the engine: it
// signs an arbitrary 32-byte digest and reports the EOA address the key
// controls. Implementations must return 65-byte (r||s||v) signatures with v
// in {27, 28}. Keeping this an interface means the engine never owns raw key
// material and hardware-backed signers can plug in.
type DigestSigner interface {
	SignDigest(digest []byte) ([]byte, error)
	Address() common.Address
}

// KeySigner is the in-process DigestSigner backed by a secp256k1 private key.
type KeySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewKeySigner creates a KeySigner from a hex-encoded private key (with or
// without 0x prefix).
func NewKeySigner(privateKeyHex string) (*KeySigner, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	return &KeySigner{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the Ethereum address derived from the signer's private key.
func (s *KeySigner) Address() common.Address {
	return s.address
}

// SignDigest signs a 32-byte digest, returning r||s||v with v in {27, 28}.
func (s *KeySigner) SignDigest(digest []byte) ([]byte, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: %w: %v", domain.ErrSigningFailed, err)
	}
	// go-ethereum returns v in {0,1}; the venue expects {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// OrderPayload carries the 12 fields of the order struct that gets hashed
// and signed. Addresses and large numbers are strings to preserve precision
// across JSON boundaries.
type OrderPayload struct {
	Salt          string
	Maker         string
	Signer        string
	Taker         string
	TokenID       string
	MakerAmount   string
	TakerAmount   string
	Expiration    string
	Nonce         string
	FeeRateBps    string
	Side          uint8 // 0 = BUY, 1 = SELL
	SignatureType uint8 // 0 = EOA, 1 = POLY_PROXY, 2 = POLY_GNOSIS_SAFE
}

// AuthDomainSeparator returns the ClobAuth domain separator for a chain:
// keccak256(abi.encode(typeHash, nameHash, versionHash, chainId)).
func AuthDomainSeparator(chainID int64) []byte {
	return ethcrypto.Keccak256(concatBytes(
		authDomainTypeHash,
		ethcrypto.Keccak256([]byte(authDomainName)),
		ethcrypto.Keccak256([]byte(domainVersion)),
		bigIntTo32Bytes(big.NewInt(chainID)),
	))
}

// ExchangeDomainSeparator returns the exchange domain separator. The
// verifying contract is the CTF exchange or the neg-risk exchange, chosen by
// the caller per order.
func ExchangeDomainSeparator(chainID int64, verifyingContract common.Address) []byte {
	return ethcrypto.Keccak256(concatBytes(
		exchangeDomainTypeHash,
		ethcrypto.Keccak256([]byte(exchangeDomainName)),
		ethcrypto.Keccak256([]byte(domainVersion)),
		bigIntTo32Bytes(big.NewInt(chainID)),
		common.LeftPadBytes(verifyingContract.Bytes(), 32),
	))
}

// AuthDigest computes the EIP-712 digest of the ClobAuth message that L1
// credential derivation signs. Per the venue convention the timestamp is
// hashed as its decimal string representation.
func AuthDigest(chainID int64, address common.Address, timestamp int64, nonce int64) []byte {
	structHash := ethcrypto.Keccak256(concatBytes(
		clobAuthTypeHash,
		common.LeftPadBytes(address.Bytes(), 32),
		ethcrypto.Keccak256([]byte(strconv.FormatInt(timestamp, 10))),
		bigIntTo32Bytes(big.NewInt(nonce)),
		ethcrypto.Keccak256([]byte(clobAuthMessageText)),
	))
	return eip712Hash(AuthDomainSeparator(chainID), structHash)
}

// OrderDigest computes the EIP-712 digest of an order struct under the
// exchange domain selected by the verifying contract.
func OrderDigest(chainID int64, verifyingContract common.Address, o OrderPayload) ([]byte, error) {
	structHash, err := orderStructHash(o)
	if err != nil {
		return nil, err
	}
	return eip712Hash(ExchangeDomainSeparator(chainID, verifyingContract), structHash), nil
}

// SignAuthMessage signs the ClobAuth message with the given signer and
// returns the hex-encoded 65-byte signature used in L1 headers.
func SignAuthMessage(signer DigestSigner, chainID int64, timestamp, nonce int64) (string, error) {
	digest := AuthDigest(chainID, signer.Address(), timestamp, nonce)
	sig, err := signer.SignDigest(digest)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// SignOrder hashes the order payload and signs the digest, returning the
// hex-encoded 65-byte signature the submission payload carries.
func SignOrder(signer DigestSigner, chainID int64, verifyingContract common.Address, o OrderPayload) (string, error) {
	digest, err := OrderDigest(chainID, verifyingContract, o)
	if err != nil {
		return "", err
	}
	sig, err := signer.SignDigest(digest)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// eip712Hash computes the final EIP-712 digest:
//
//	keccak256("\x19\x01" || domainSeparator || structHash)
func eip712Hash(domainSep, structHash []byte) []byte {
	return ethcrypto.Keccak256(concatBytes(
		[]byte{0x19, 0x01},
		domainSep,
		structHash,
	))
}

// orderStructHash encodes and hashes an OrderPayload: the type hash followed
// by each field as a 32-byte ABI word, in declaration order.
func orderStructHash(o OrderPayload) ([]byte, error) {
	salt, err := parseUint256(o.Salt, "salt")
	if err != nil {
		return nil, err
	}
	tokenID, err := parseUint256(o.TokenID, "tokenId")
	if err != nil {
		return nil, err
	}
	makerAmt, err := parseUint256(o.MakerAmount, "makerAmount")
	if err != nil {
		return nil, err
	}
	takerAmt, err := parseUint256(o.TakerAmount, "takerAmount")
	if err != nil {
		return nil, err
	}
	expiration, err := parseUint256(o.Expiration, "expiration")
	if err != nil {
		return nil, err
	}
	nonce, err := parseUint256(o.Nonce, "nonce")
	if err != nil {
		return nil, err
	}
	feeRate, err := parseUint256(o.FeeRateBps, "feeRateBps")
	if err != nil {
		return nil, err
	}

	return ethcrypto.Keccak256(concatBytes(
		orderTypeHash,
		bigIntTo32Bytes(salt),
		common.LeftPadBytes(common.HexToAddress(o.Maker).Bytes(), 32),
		common.LeftPadBytes(common.HexToAddress(o.Signer).Bytes(), 32),
		common.LeftPadBytes(common.HexToAddress(o.Taker).Bytes(), 32),
		bigIntTo32Bytes(tokenID),
		bigIntTo32Bytes(makerAmt),
		bigIntTo32Bytes(takerAmt),
		bigIntTo32Bytes(expiration),
		bigIntTo32Bytes(nonce),
		bigIntTo32Bytes(feeRate),
		bigIntTo32Bytes(big.NewInt(int64(o.Side))),
		bigIntTo32Bytes(big.NewInt(int64(o.SignatureType))),
	)), nil
}

func parseUint256(s, field string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("crypto/signer: invalid %s %q", field, s)
	}
	return n, nil
}

// bigIntTo32Bytes returns a 32-byte big-endian representation of n.
func bigIntTo32Bytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

// concatBytes concatenates multiple byte slices into one.
func concatBytes(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}
