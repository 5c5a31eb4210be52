package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"X402/internal/domain/models"
	dservice "X402/internal/domain/service"
	"X402/pkg/chain"
	applogger "X402/pkg/logger"

	"github.com/ethereum/go-ethereum/core/types"
)

var (
	errTxFailed     = errors.New("transaction reverted")
	errWrongToken   = errors.New("transaction does not target the payment token")
	errWrongPayee   = errors.New("transfer destination is not the payee")
	errShortPayment = errors.New("transfer amount below price")
)

// ChainVerifier checks ERC-20 transfer receipts against a challenge.
type ChainVerifier struct {
	node          chain.TxReader
	timeout       time.Duration
	interval      time.Duration
	enforceAmount bool
	log           *applogger.Logger
}

var _ dservice.PaymentVerifier = (*ChainVerifier)(nil)

// Option configures a ChainVerifier.
type Option func(*ChainVerifier)

// WithConfirmTimeout bounds how long Verify waits for the receipt.
func WithConfirmTimeout(d time.Duration) Option {
	return func(v *ChainVerifier) { v.timeout = d }
}

// WithPollInterval sets the receipt polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(v *ChainVerifier) { v.interval = d }
}

// WithEnforceAmount additionally requires amount >= price.
func WithEnforceAmount(on bool) Option {
	return func(v *ChainVerifier) { v.enforceAmount = on }
}

func NewChainVerifier(node chain.TxReader, l *applogger.Logger, opts ...Option) *ChainVerifier {
	v := &ChainVerifier{
		node:     node,
		timeout:  30 * time.Second,
		interval: time.Second,
		log:      l.With("payment_verifier"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify reports whether proof names a successful transfer of the payment
// token to the payee. Every failure path, including timeout, is false.
func (v *ChainVerifier) Verify(ctx context.Context, proof string, want models.Challenge) bool {
	if err := v.check(ctx, proof, want); err != nil {
		v.log.Info("payment not verified", applogger.String("proof", proof), applogger.Error(err))
		return false
	}
	return true
}

func (v *ChainVerifier) check(ctx context.Context, proof string, want models.Challenge) error {
	hash, err := chain.ParseTxHash(proof)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	receipt, err := chain.WaitReceipt(ctx, v.node, hash, v.interval)
	if err != nil {
		return fmt.Errorf("wait receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return errTxFailed
	}

	tx, _, err := v.node.TransactionByHash(ctx, hash)
	if err != nil {
		return fmt.Errorf("fetch transaction: %w", err)
	}
	// common.Address equality is byte-wise, so hex case never matters
	if tx.To() == nil || *tx.To() != want.TokenAddress {
		return errWrongToken
	}

	to, amount, err := chain.DecodeTransfer(tx.Data())
	if err != nil {
		return err
	}
	if to != want.PayeeAddress {
		return errWrongPayee
	}
	if v.enforceAmount && want.Price != nil && amount.Cmp(want.Price) < 0 {
		return errShortPayment
	}
	return nil
}
