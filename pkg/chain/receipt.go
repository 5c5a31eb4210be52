package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// WaitReceipt polls for the receipt of hash until it is mined or ctx ends.
// Lookup errors (including not found) are retried; the caller bounds the
// wait through ctx.
func WaitReceipt(ctx context.Context, r TxReader, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		receipt, err := r.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, fmt.Errorf("wait receipt %s: %w (last error: %v)", hash.Hex(), ctx.Err(), lastErr)
			}
			return nil, fmt.Errorf("wait receipt %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
