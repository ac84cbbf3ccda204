// Package polymarket contains the REST clients for the Polymarket CLOB and
// Gamma APIs. The CLOB client layers the two authentication regimes: L1
// (wallet-signature headers, used once to obtain credentials) and L2 (HMAC
// headers on every authenticated call).
package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openpoly/clobclient/internal/crypto"
	"github.com/openpoly/clobclient/internal/domain"
)

// ClobClient is the REST client for the Polymarket CLOB API.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	signer     crypto.DigestSigner
	chainID    int64
	authNonce  int64

	mu        sync.RWMutex
	reqSigner *crypto.RequestSigner
}

// NewClobClient creates a CLOB client. baseURL is the API root, e.g.
// "https://clob.polymarket.com". The client starts without L2 credentials;
// call CreateOrDeriveApiKey (or SetCreds with stored credentials) before any
// authenticated operation.
func NewClobClient(baseURL string, signer crypto.DigestSigner, chainID int64) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer:  signer,
		chainID: chainID,
	}
}

// WithAuthNonce sets the nonce used in L1 auth messages. Different nonces
// yield independent credential sets for the same wallet; the default 0
// matches the venue default.
func (c *ClobClient) WithAuthNonce(nonce int64) *ClobClient {
	c.authNonce = nonce
	return c
}

// SetCreds installs externally supplied L2 credentials (e.g. loaded from the
// environment) without an L1 round trip.
func (c *ClobClient) SetCreds(creds domain.ApiCreds) error {
	rs, err := crypto.NewRequestSigner(creds)
	if err != nil {
		return fmt.Errorf("polymarket/clob: %w", err)
	}
	c.mu.Lock()
	c.reqSigner = rs
	c.mu.Unlock()
	return nil
}

// Creds returns the active credentials, or ErrMissingCredentials when none
// are installed.
func (c *ClobClient) Creds() (domain.ApiCreds, error) {
	c.mu.RLock()
	rs := c.reqSigner
	c.mu.RUnlock()
	if rs == nil {
		return domain.ApiCreds{}, fmt.Errorf("polymarket/clob: %w", domain.ErrMissingCredentials)
	}
	return rs.Creds(), nil
}

// --------------------------------------------------------------------------
// L1: credential creation and derivation
// --------------------------------------------------------------------------

// CreateApiKey asks the venue to mint new credentials for (address, nonce).
// When credentials already exist the venue refuses; that surfaces as
// domain.ErrApiKeyExists so callers can fall back to DeriveApiKey. On
// success the credentials are installed on the client and returned.
func (c *ClobClient) CreateApiKey(ctx context.Context) (domain.ApiCreds, error) {
	return c.authRequest(ctx, http.MethodPost, "/auth/api-key")
}

// DeriveApiKey recovers the existing credentials for (address, nonce). The
// call is idempotent: the venue keys credentials on the auth signature, so
// the same wallet and nonce always map to the same credentials.
func (c *ClobClient) DeriveApiKey(ctx context.Context) (domain.ApiCreds, error) {
	return c.authRequest(ctx, http.MethodGet, "/auth/derive-api-key")
}

// CreateOrDeriveApiKey tries to create credentials and falls back to
// deriving when they already exist. This is the call most clients want.
func (c *ClobClient) CreateOrDeriveApiKey(ctx context.Context) (domain.ApiCreds, error) {
	creds, err := c.CreateApiKey(ctx)
	if err == nil {
		return creds, nil
	}
	if !errors.Is(err, domain.ErrApiKeyExists) {
		return domain.ApiCreds{}, err
	}
	return c.DeriveApiKey(ctx)
}

// authRequest performs one L1-authenticated call: it signs the ClobAuth
// EIP-712 message with the wallet key and sends the signature in the
// POLY_ADDRESS / POLY_SIGNATURE / POLY_TIMESTAMP / POLY_NONCE header set.
func (c *ClobClient) authRequest(ctx context.Context, method, path string) (domain.ApiCreds, error) {
	address := c.signer.Address().Hex()
	timestamp := time.Now().Unix()

	sig, err := crypto.SignAuthMessage(c.signer, c.chainID, timestamp, c.authNonce)
	if err != nil {
		return domain.ApiCreds{}, fmt.Errorf("polymarket/clob: sign auth message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return domain.ApiCreds{}, fmt.Errorf("polymarket/clob: create auth request: %w", err)
	}
	req.Header.Set(crypto.HeaderAddress, address)
	req.Header.Set(crypto.HeaderSignature, sig)
	req.Header.Set(crypto.HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(crypto.HeaderNonce, strconv.FormatInt(c.authNonce, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ApiCreds{}, fmt.Errorf("polymarket/clob: auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ApiCreds{}, fmt.Errorf("polymarket/clob: read auth response: %w", err)
	}

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusConflict {
		// The venue reports an existing key as a client error.
		return domain.ApiCreds{}, fmt.Errorf("polymarket/clob: %w: %s", domain.ErrApiKeyExists, string(respBody))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return domain.ApiCreds{}, fmt.Errorf("polymarket/clob: auth failed (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var payload apiCreds
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return domain.ApiCreds{}, fmt.Errorf("polymarket/clob: decode auth response: %w", err)
	}
	creds := payload.toDomain()
	if err := c.SetCreds(creds); err != nil {
		return domain.ApiCreds{}, err
	}
	return creds, nil
}

// --------------------------------------------------------------------------
// L2: authenticated order operations
// --------------------------------------------------------------------------

// PostOrder submits a signed order with the given time-in-force and returns
// the venue's result. The order payload is sent exactly as signed; the venue
// re-derives the EIP-712 digest and rejects any mismatch.
func (c *ClobClient) PostOrder(ctx context.Context, order domain.SignedOrder, orderType domain.OrderType) (domain.OrderResult, error) {
	if orderType == "" {
		orderType = domain.OrderTypeGTC
	}
	body := map[string]any{
		"order":     order,
		"owner":     mustOwner(c),
		"orderType": string(orderType),
	}

	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodPost, "/order", body)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: post order: %w", err)
	}

	var apiResult APIOrderResult
	if err := json.Unmarshal(respBody, &apiResult); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}

	result := apiResult.ToDomainOrderResult()
	if !result.Success {
		return result, fmt.Errorf("polymarket/clob: order rejected: %s", result.Message)
	}
	return result, nil
}

// CancelOrder cancels a single order by its ID.
func (c *ClobClient) CancelOrder(ctx context.Context, orderID string) error {
	body := map[string]any{"orderID": orderID}

	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodDelete, "/order", body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: cancel order %s: %w", orderID, err)
	}
	return decodeCancelResult(respBody, "cancel")
}

// CancelAll cancels all open orders for the authenticated wallet.
func (c *ClobClient) CancelAll(ctx context.Context) error {
	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodDelete, "/cancel-all", nil)
	if err != nil {
		return fmt.Errorf("polymarket/clob: cancel all: %w", err)
	}
	return decodeCancelResult(respBody, "cancel-all")
}

// GetOrder retrieves a single order by ID.
func (c *ClobClient) GetOrder(ctx context.Context, orderID string) (APIOrder, error) {
	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodGet, "/data/order/"+url.PathEscape(orderID), nil)
	if err != nil {
		return APIOrder{}, fmt.Errorf("polymarket/clob: get order %s: %w", orderID, err)
	}
	var order APIOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return APIOrder{}, fmt.Errorf("polymarket/clob: decode order: %w", err)
	}
	return order, nil
}

// GetOpenOrders returns all open orders for the authenticated wallet.
func (c *ClobClient) GetOpenOrders(ctx context.Context) ([]APIOrder, error) {
	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodGet, "/data/orders", nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: get open orders: %w", err)
	}
	var orders []APIOrder
	if err := json.Unmarshal(respBody, &orders); err != nil {
		return nil, fmt.Errorf("polymarket/clob: decode orders: %w", err)
	}
	return orders, nil
}

// --------------------------------------------------------------------------
// Public market-data queries the order engine depends on
// --------------------------------------------------------------------------

// GetTickSize returns the minimum price increment for a token.
func (c *ClobClient) GetTickSize(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	respBody, err := c.doPublicRequest(ctx, "/tick-size?token_id="+url.QueryEscape(tokenID))
	if err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: get tick size: %w", err)
	}
	var payload tickSizeResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: decode tick size: %w", err)
	}
	tick, err := decimal.NewFromString(payload.MinimumTickSize.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: parse tick size %q: %w", payload.MinimumTickSize, err)
	}
	return tick, nil
}

// GetNegRisk reports whether a token belongs to a neg-risk market, which
// selects the alternate exchange contract for signing.
func (c *ClobClient) GetNegRisk(ctx context.Context, tokenID string) (bool, error) {
	respBody, err := c.doPublicRequest(ctx, "/neg-risk?token_id="+url.QueryEscape(tokenID))
	if err != nil {
		return false, fmt.Errorf("polymarket/clob: get neg risk: %w", err)
	}
	var payload negRiskResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return false, fmt.Errorf("polymarket/clob: decode neg risk: %w", err)
	}
	return payload.NegRisk, nil
}

// GetOrderBook returns the current book snapshot for a token.
func (c *ClobClient) GetOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	respBody, err := c.doPublicRequest(ctx, "/book?token_id="+url.QueryEscape(tokenID))
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: get book: %w", err)
	}
	var payload bookResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}
	book, err := payload.toDomain()
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: parse book levels: %w", err)
	}
	return book, nil
}

// GetMidpoint returns the book midpoint price for a token.
func (c *ClobClient) GetMidpoint(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	respBody, err := c.doPublicRequest(ctx, "/midpoint?token_id="+url.QueryEscape(tokenID))
	if err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: get midpoint: %w", err)
	}
	var payload midpointResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: decode midpoint: %w", err)
	}
	mid, err := decimal.NewFromString(payload.Mid)
	if err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: parse midpoint %q: %w", payload.Mid, err)
	}
	return mid, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doAuthenticatedRequest builds, HMAC-signs, sends, and reads an L2 request.
// It fails with ErrMissingCredentials before credentials are installed. The
// HMAC covers the exact body bytes sent.
func (c *ClobClient) doAuthenticatedRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	c.mu.RLock()
	rs := c.reqSigner
	c.mu.RUnlock()
	if rs == nil {
		return nil, fmt.Errorf("%w", domain.ErrMissingCredentials)
	}

	var bodyReader io.Reader
	var bodyStr string
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range rs.Headers(c.signer.Address().Hex(), method, path, bodyStr) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// doPublicRequest sends an unauthenticated GET and reads the body.
func (c *ClobClient) doPublicRequest(ctx context.Context, pathAndQuery string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathAndQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

func decodeCancelResult(respBody []byte, op string) error {
	var result struct {
		Success  bool   `json:"success"`
		ErrorMsg string `json:"errorMsg"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("polymarket/clob: decode %s response: %w", op, err)
	}
	if !result.Success {
		return fmt.Errorf("polymarket/clob: %s failed: %s", op, result.ErrorMsg)
	}
	return nil
}

// mustOwner returns the owner field of order submissions: the active API
// key. PostOrder is only reachable with credentials installed, so the empty
// fallback never ships in practice.
func mustOwner(c *ClobClient) string {
	creds, err := c.Creds()
	if err != nil {
		return ""
	}
	return creds.Key
}
