package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet signs and broadcasts ERC-20 transfers from one key.
type Wallet struct {
	key      *ecdsa.PrivateKey
	address  common.Address
	chainID  *big.Int
	gasLimit uint64
	node     TxSender
}

// NewWallet parses a hex private key (0x prefix optional).
func NewWallet(node TxSender, privateKeyHex string, chainID int64, gasLimit uint64) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Wallet{
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey),
		chainID:  big.NewInt(chainID),
		gasLimit: gasLimit,
		node:     node,
	}, nil
}

// Address returns the sender address.
func (w *Wallet) Address() common.Address { return w.address }

// BuildTransfer creates an unsigned legacy transaction calling
// token.transfer(to, amount).
func (w *Wallet) BuildTransfer(ctx context.Context, token, to common.Address, amount *big.Int) (*types.Transaction, error) {
	data, err := EncodeTransfer(to, amount)
	if err != nil {
		return nil, err
	}
	nonce, err := w.node.PendingNonceAt(ctx, w.address)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := w.node.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &token,
		Value:    big.NewInt(0),
		Gas:      w.gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	}), nil
}

// Sign signs tx for the configured chain.
func (w *Wallet) Sign(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	return signed, nil
}

// Broadcast submits a signed transaction and returns its hash.
func (w *Wallet) Broadcast(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	if err := w.node.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	return tx.Hash(), nil
}
