package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTransferLayout(t *testing.T) {
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	data, err := EncodeTransfer(to, big.NewInt(1_000_000))
	require.NoError(t, err)

	require.Len(t, data, 4+32+32)
	assert.Equal(t, TransferSelector, data[:4])
	// address is left padded into the first word
	assert.Equal(t, to.Bytes(), data[4+12:4+32])
	assert.Equal(t, big.NewInt(1_000_000), new(big.Int).SetBytes(data[36:68]))
}

func TestDecodeTransferRoundTrip(t *testing.T) {
	to := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	amount := new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil)
	data, err := EncodeTransfer(to, amount)
	require.NoError(t, err)

	gotTo, gotAmount, err := DecodeTransfer(data)
	require.NoError(t, err)
	assert.Equal(t, to, gotTo)
	assert.Equal(t, 0, amount.Cmp(gotAmount))
}

func TestDecodeTransferRejects(t *testing.T) {
	cases := map[string][]byte{
		"empty":          nil,
		"short selector": {0xa9, 0x05},
		"other selector": append([]byte{0x09, 0x5e, 0xa7, 0xb3}, make([]byte, 64)...),
		"truncated args": append(append([]byte{}, TransferSelector...), make([]byte, 20)...),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := DecodeTransfer(data)
			assert.ErrorIs(t, err, ErrNotTransfer)
		})
	}
}

type fakeCaller struct {
	out  []byte
	call ethereum.CallMsg
}

func (f *fakeCaller) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeCaller) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.call = call
	return f.out, nil
}

func TestTokenBalance(t *testing.T) {
	token := common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e")
	owner := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	f := &fakeCaller{out: common.LeftPadBytes(big.NewInt(2_500_000).Bytes(), 32)}

	bal, err := TokenBalance(context.Background(), f, token, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2_500_000), bal.Int64())
	require.NotNil(t, f.call.To)
	assert.Equal(t, token, *f.call.To)
	assert.Equal(t, []byte{0x70, 0xa0, 0x82, 0x31}, f.call.Data[:4])
}

func TestParseTxHash(t *testing.T) {
	h := "0xab000000000000000000000000000000000000000000000000000000000000cd"
	got, err := ParseTxHash(h)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(h), got)

	got, err = ParseTxHash(h[2:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(h), got)

	for _, bad := range []string{"", "0x", "0x1234", "not-a-hash", h + "00"} {
		_, err := ParseTxHash(bad)
		assert.ErrorIs(t, err, ErrInvalidHash, bad)
	}
}
