package workflow

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/signer"
)

// Backend is the slice of the chain adapter the workflow steps need.
// *chain.Client satisfies it; tests substitute fakes.
type Backend interface {
	ChainID() *big.Int
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	PendingNonce(ctx context.Context, addr common.Address) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	WaitReceipt(ctx context.Context, txHash common.Hash, timeout time.Duration) error
}

// AccountAPI is the slice of the Pharos API client the workflow needs.
type AccountAPI interface {
	Login(ctx context.Context, acct signer.Signer) (string, error)
	CheckIn(ctx context.Context, address, token string) error
}

// receiptTimeout bounds receipt polling for every submitted transaction.
const receiptTimeout = 300 * time.Second

// txIntent is an in-memory transaction plan. Nonce and gas price are read
// immediately before the transaction is built, never ahead of time.
type txIntent struct {
	to       common.Address
	data     []byte
	value    *big.Int
	gasLimit uint64
}

// submitAndConfirm builds, signs, submits and confirms one transaction for
// acct. It returns nil only when the receipt reports success.
func (e *Engine) submitAndConfirm(ctx context.Context, acct signer.Signer, intent txIntent, action string) error {
	nonce, err := e.backend.PendingNonce(ctx, acct.Address())
	if err != nil {
		return err
	}
	gasPrice, err := e.backend.GasPrice(ctx)
	if err != nil {
		return err
	}

	value := intent.value
	if value == nil {
		value = new(big.Int)
	}
	to := intent.to
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      intent.gasLimit,
		To:       &to,
		Value:    value,
		Data:     intent.data,
	})
	signed, err := acct.SignTx(e.backend.ChainID(), tx)
	if err != nil {
		return err
	}
	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return err
	}
	addr := acct.Address().Hex()
	e.log.Info(addr, "%s transaction sent, hash %s...", action, shortHash(signed.Hash().Hex()))

	e.log.Dim(addr, "waiting for %s confirmation", action)
	if err := e.backend.WaitReceipt(ctx, signed.Hash(), receiptTimeout); err != nil {
		return err
	}
	return nil
}
