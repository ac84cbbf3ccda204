package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/openpoly/clobclient/internal/domain"
)

// L1 and L2 header names per the CLOB API.
const (
	HeaderAddress    = "POLY_ADDRESS"
	HeaderSignature  = "POLY_SIGNATURE"
	HeaderTimestamp  = "POLY_TIMESTAMP"
	HeaderNonce      = "POLY_NONCE"
	HeaderApiKey     = "POLY_API_KEY"
	HeaderPassphrase = "POLY_PASSPHRASE"
)

// RequestSigner computes L2 authentication headers for CLOB API requests.
// The signature is base64(HMAC-SHA256(secret, timestamp+method+path+body))
// where the secret is base64-decoded from the credentials before use. The
// signer holds no mutable state and is safe for concurrent use.
type RequestSigner struct {
	creds  domain.ApiCreds
	secret []byte // decoded HMAC key
}

// NewRequestSigner validates the credentials and decodes the secret. It
// fails with domain.ErrMissingCredentials when any field is empty and
// rejects secrets that are not valid base64 or keys that are not UUIDs (the
// venue issues UUID API keys; catching a swapped field here beats a 401
// later).
func NewRequestSigner(creds domain.ApiCreds) (*RequestSigner, error) {
	if creds.Empty() {
		return nil, fmt.Errorf("crypto/hmac: %w", domain.ErrMissingCredentials)
	}
	if _, err := uuid.Parse(creds.Key); err != nil {
		return nil, fmt.Errorf("crypto/hmac: api key is not a UUID: %w", err)
	}
	secret, err := base64.StdEncoding.DecodeString(creds.Secret)
	if err != nil {
		// Some tooling hands out URL-safe encodings of the same secret.
		secret, err = base64.URLEncoding.DecodeString(creds.Secret)
		if err != nil {
			return nil, fmt.Errorf("crypto/hmac: secret is not valid base64: %w", err)
		}
	}
	return &RequestSigner{creds: creds, secret: secret}, nil
}

// Creds returns the credentials the signer was built from.
func (r *RequestSigner) Creds() domain.ApiCreds {
	return r.creds
}

// Headers returns the L2 header set for one request, using the current Unix
// time. The signature is recomputed per call since timestamp and body vary.
func (r *RequestSigner) Headers(address, method, path, body string) map[string]string {
	return r.HeadersAt(address, method, path, body, time.Now().Unix())
}

// HeadersAt is like Headers with a caller-supplied Unix timestamp, for
// deterministic testing.
func (r *RequestSigner) HeadersAt(address, method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)
	sig := hmacSHA256Base64(r.secret, ts+method+path+body)
	return map[string]string{
		HeaderAddress:    address,
		HeaderApiKey:     r.creds.Key,
		HeaderTimestamp:  ts,
		HeaderPassphrase: r.creds.Passphrase,
		HeaderSignature:  sig,
	}
}

// hmacSHA256Base64 computes HMAC-SHA256 of message using key and returns the
// result base64 standard-encoded.
func hmacSHA256Base64(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
