package payment

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"X402/internal/domain/models"
	"X402/pkg/chain"
	applogger "X402/pkg/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	token = common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e")
	payee = common.HexToAddress("0x1111111111111111111111111111111111111111")
	price = big.NewInt(1_000_000)
	want  = models.Challenge{Price: price, PayeeAddress: payee, TokenAddress: token}
)

type fakeChain struct {
	tx      *types.Transaction
	receipt *types.Receipt
	txErr   error
}

func (f *fakeChain) TransactionByHash(context.Context, common.Hash) (*types.Transaction, bool, error) {
	if f.txErr != nil {
		return nil, false, f.txErr
	}
	return f.tx, false, nil
}

func (f *fakeChain) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	if f.receipt == nil {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func transferTx(t *testing.T, to *common.Address, payTo common.Address, amount *big.Int) *types.Transaction {
	t.Helper()
	data, err := chain.EncodeTransfer(payTo, amount)
	require.NoError(t, err)
	return types.NewTx(&types.LegacyTx{Nonce: 1, To: to, Gas: 100000, GasPrice: big.NewInt(1), Data: data})
}

func okReceipt() *types.Receipt { return &types.Receipt{Status: types.ReceiptStatusSuccessful} }

const proof = "0x8f0c3b8e9f0a7d6c5b4a39281706f5e4d3c2b1a09f8e7d6c5b4a392817060504"

func newVerifier(node chain.TxReader, opts ...Option) *ChainVerifier {
	opts = append([]Option{WithConfirmTimeout(200 * time.Millisecond), WithPollInterval(10 * time.Millisecond)}, opts...)
	return NewChainVerifier(node, applogger.Nop(), opts...)
}

func TestVerifyAcceptsTransfer(t *testing.T) {
	node := &fakeChain{tx: transferTx(t, &token, payee, price), receipt: okReceipt()}
	assert.True(t, newVerifier(node).Verify(context.Background(), proof, want))
}

func TestVerifyRejects(t *testing.T) {
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	cases := []struct {
		name  string
		node  *fakeChain
		proof string
	}{
		{"malformed proof", &fakeChain{tx: transferTx(t, &token, payee, price), receipt: okReceipt()}, "not-a-hash"},
		{"reverted", &fakeChain{tx: transferTx(t, &token, payee, price), receipt: &types.Receipt{Status: types.ReceiptStatusFailed}}, proof},
		{"never mined", &fakeChain{tx: transferTx(t, &token, payee, price)}, proof},
		{"wrong token", &fakeChain{tx: transferTx(t, &other, payee, price), receipt: okReceipt()}, proof},
		{"contract creation", &fakeChain{tx: transferTx(t, nil, payee, price), receipt: okReceipt()}, proof},
		{"wrong payee", &fakeChain{tx: transferTx(t, &token, other, price), receipt: okReceipt()}, proof},
		{"lookup error", &fakeChain{receipt: okReceipt(), txErr: errors.New("rpc down")}, proof},
		{"not a transfer", &fakeChain{
			tx:      types.NewTx(&types.LegacyTx{To: &token, Data: []byte{0x09, 0x5e, 0xa7, 0xb3}}),
			receipt: okReceipt(),
		}, proof},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, newVerifier(tc.node).Verify(context.Background(), tc.proof, want))
		})
	}
}

func TestVerifyAmountIsOptional(t *testing.T) {
	node := &fakeChain{tx: transferTx(t, &token, payee, big.NewInt(1)), receipt: okReceipt()}

	assert.True(t, newVerifier(node).Verify(context.Background(), proof, want))
	assert.False(t, newVerifier(node, WithEnforceAmount(true)).Verify(context.Background(), proof, want))

	node.tx = transferTx(t, &token, payee, big.NewInt(2_500_000))
	assert.True(t, newVerifier(node, WithEnforceAmount(true)).Verify(context.Background(), proof, want))
}

func TestVerifyTimeoutIsBounded(t *testing.T) {
	node := &fakeChain{tx: transferTx(t, &token, payee, price)}
	start := time.Now()
	assert.False(t, newVerifier(node).Verify(context.Background(), proof, want))
	assert.Less(t, time.Since(start), 2*time.Second)
}
