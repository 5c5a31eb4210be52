package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	HeaderPrice   = "x-402-price"
	HeaderAddress = "x-402-address"
	HeaderToken   = "x-402-token"
)

// Challenge is the payment request returned to unauthenticated callers.
// Price is in token minor units.
type Challenge struct {
	Price        *big.Int       `json:"price"`
	PayeeAddress common.Address `json:"payee_address"`
	TokenAddress common.Address `json:"token_address"`
}
