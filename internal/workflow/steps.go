package workflow

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/registry"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/signer"
)

var (
	erc20ABI   = mustABI(registry.ERC20MinimalABI)
	routerABI  = mustABI(registry.SwapRouterABI)
	managerABI = mustABI(registry.PositionManagerABI)
)

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type increaseLiquidityParams struct {
	TokenId        *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Deadline       *big.Int
}

// approveToken grants spender an allowance of amount over token, skipping
// the transaction entirely when the current allowance already covers it.
// All failures are logged and returned, never propagated as panics: one
// account's fault must not disturb the concurrent run.
func (e *Engine) approveToken(ctx context.Context, acct signer.Signer, token, spender string, amount *big.Int) error {
	addr := acct.Address().Hex()
	e.log.Info(addr, "approving %s... for token %s...", shortToken(spender), shortToken(token))

	tokenAddr := common.HexToAddress(token)
	spenderAddr := common.HexToAddress(spender)
	allowance, err := e.backend.Allowance(ctx, tokenAddr, acct.Address(), spenderAddr)
	if err != nil {
		e.log.Fail(addr, "allowance read failed: %v", err)
		return err
	}
	if allowance.Cmp(amount) >= 0 {
		e.log.Success(addr, "allowance is sufficient, skipping approval")
		return nil
	}

	data, err := erc20ABI.Pack("approve", spenderAddr, amount)
	if err != nil {
		e.log.Fail(addr, "approval failed: %v", err)
		return err
	}
	intent := txIntent{to: tokenAddr, data: data, gasLimit: e.cfg.ApproveGasLimit}
	if err := e.submitAndConfirm(ctx, acct, intent, "approval"); err != nil {
		e.log.Fail(addr, "approval failed: %v", err)
		return err
	}
	e.log.Success(addr, "approval confirmed")
	return nil
}

// performSwap executes one exactInputSingle swap through router. When the
// input side is the native asset the amount rides along as transaction value
// instead of requiring a prior approval.
func (e *Engine) performSwap(ctx context.Context, acct signer.Signer, router, tokenIn, tokenOut string, amountIn *big.Int, fromNative bool) error {
	addr := acct.Address().Hex()

	deadline := time.Now().Add(time.Duration(e.cfg.Swap.DeadlineMin) * time.Minute).Unix()
	params := exactInputSingleParams{
		TokenIn:           common.HexToAddress(tokenIn),
		TokenOut:          common.HexToAddress(tokenOut),
		Fee:               big.NewInt(e.cfg.Swap.FeeTier),
		Recipient:         acct.Address(),
		Deadline:          big.NewInt(deadline),
		AmountIn:          amountIn,
		AmountOutMinimum:  new(big.Int).Set(e.minOut),
		SqrtPriceLimitX96: new(big.Int),
	}
	data, err := routerABI.Pack("exactInputSingle", params)
	if err != nil {
		e.log.Fail(addr, "swap failed: %v", err)
		return err
	}

	intent := txIntent{to: common.HexToAddress(router), data: data, gasLimit: e.cfg.Swap.GasLimit}
	if fromNative {
		intent.value = new(big.Int).Set(amountIn)
	}
	if err := e.submitAndConfirm(ctx, acct, intent, "swap"); err != nil {
		e.log.Fail(addr, "swap failed: %v", err)
		return err
	}
	e.log.Success(addr, "swap confirmed")
	return nil
}

// increaseLiquidity tops up an existing position. The two amounts are
// ordered by the pair's canonical token ordering (lexicographically smaller
// address is asset 0) to match the on-chain pool.
func (e *Engine) increaseLiquidity(ctx context.Context, acct signer.Signer, tokenID uint64, tokenA, tokenB string, amountA, amountB *big.Int) error {
	addr := acct.Address().Hex()

	amount0, amount1 := amountA, amountB
	if strings.ToLower(tokenA) >= strings.ToLower(tokenB) {
		amount0, amount1 = amountB, amountA
	}
	deadline := time.Now().Add(time.Duration(e.cfg.Swap.DeadlineMin) * time.Minute).Unix()
	params := increaseLiquidityParams{
		TokenId:        new(big.Int).SetUint64(tokenID),
		Amount0Desired: amount0,
		Amount1Desired: amount1,
		Amount0Min:     new(big.Int),
		Amount1Min:     new(big.Int),
		Deadline:       big.NewInt(deadline),
	}
	data, err := managerABI.Pack("increaseLiquidity", params)
	if err != nil {
		e.log.Fail(addr, "increaseLiquidity failed: %v", err)
		return err
	}

	intent := txIntent{to: common.HexToAddress(e.cfg.Liquidity.Manager), data: data, gasLimit: e.cfg.Liquidity.GasLimit}
	if err := e.submitAndConfirm(ctx, acct, intent, "increaseLiquidity"); err != nil {
		e.log.Fail(addr, "increaseLiquidity failed: %v", err)
		return err
	}
	e.log.Success(addr, "liquidity added")
	return nil
}

// tokenBalance reads a balance, degrading to zero on read failure so a
// flaky balance call only skips the dependent leg.
func (e *Engine) tokenBalance(ctx context.Context, acct signer.Signer, token string) *big.Int {
	balance, err := e.backend.TokenBalance(ctx, common.HexToAddress(token), acct.Address())
	if err != nil {
		e.log.Fail(acct.Address().Hex(), "balance read for %s... failed: %v", shortToken(token), err)
		return new(big.Int)
	}
	return balance
}
