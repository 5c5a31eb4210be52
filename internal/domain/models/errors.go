package models

import "errors"

var (
	ErrPaymentRejected   = errors.New("payment rejected")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownAsset      = errors.New("unknown asset")
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrNoClassifier      = errors.New("no classifier for asset")
	ErrNoSnapshot        = errors.New("market snapshot unavailable")
	ErrAgentUnavailable  = errors.New("agent wallet not configured")
	ErrAgentBusy         = errors.New("agent run already in progress")
)
