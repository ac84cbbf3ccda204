package domain

import "errors"

var (
	ErrInvalidOrderArgs      = errors.New("invalid order arguments")
	ErrInvalidTickSize       = errors.New("price not aligned to tick size")
	ErrInvalidAmount         = errors.New("amount rounding exceeds tolerance")
	ErrMissingFunder         = errors.New("funder address required for proxy signature type")
	ErrMissingCredentials    = errors.New("api credentials not established")
	ErrApiKeyExists          = errors.New("api key already exists")
	ErrSigningFailed         = errors.New("signing failed")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrRateLimited           = errors.New("rate limited")
)
