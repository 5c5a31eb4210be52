package chain

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pendingReader struct {
	calls      atomic.Int32
	minedAfter int32
}

func (p *pendingReader) TransactionByHash(context.Context, common.Hash) (*types.Transaction, bool, error) {
	return nil, false, ethereum.NotFound
}

func (p *pendingReader) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	n := p.calls.Add(1)
	if p.minedAfter > 0 && n >= p.minedAfter {
		return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
	}
	return nil, ethereum.NotFound
}

func TestWaitReceiptMined(t *testing.T) {
	r := &pendingReader{minedAfter: 3}
	rc, err := WaitReceipt(context.Background(), r, common.Hash{1}, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, rc.Status)
	assert.Equal(t, int32(3), r.calls.Load())
}

func TestWaitReceiptTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := WaitReceipt(ctx, &pendingReader{}, common.Hash{2}, 2*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
