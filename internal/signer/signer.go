package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Signer is one account's signing capability. A Signer is owned by exactly
// one workflow at a time and is never shared across goroutines.
type Signer interface {
	Address() common.Address
	SignTx(chainID *big.Int, tx *types.Transaction) (*types.Transaction, error)
	SignMessage(msg []byte) (string, error)
}
