package chain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20JSON = `[
 {"type":"function","name":"transfer","stateMutability":"nonpayable",
  "inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],
  "outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"balanceOf","stateMutability":"view",
  "inputs":[{"name":"owner","type":"address"}],
  "outputs":[{"name":"","type":"uint256"}]}
]`

// TransferSelector is the 4-byte selector of transfer(address,uint256).
var TransferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

var ErrNotTransfer = errors.New("call data is not an ERC-20 transfer")

var erc20ABI = mustParseABI(erc20JSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parse erc20 abi: %v", err))
	}
	return parsed
}

// EncodeTransfer builds call data for transfer(to, amount).
func EncodeTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("pack transfer: %w", err)
	}
	return data, nil
}

// DecodeTransfer extracts destination and amount from transfer call data.
func DecodeTransfer(data []byte) (common.Address, *big.Int, error) {
	if len(data) < 4 || !bytes.Equal(data[:4], TransferSelector) {
		return common.Address{}, nil, ErrNotTransfer
	}
	args, err := erc20ABI.Methods["transfer"].Inputs.Unpack(data[4:])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: %v", ErrNotTransfer, err)
	}
	to, ok := args[0].(common.Address)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("%w: bad address argument", ErrNotTransfer)
	}
	amount, ok := args[1].(*big.Int)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("%w: bad amount argument", ErrNotTransfer)
	}
	return to, amount, nil
}

// TokenBalance calls balanceOf(owner) on token.
func TokenBalance(ctx context.Context, r BalanceReader, token, owner common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	out, err := r.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}
	vals, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	bal, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result %T", vals[0])
	}
	return bal, nil
}
