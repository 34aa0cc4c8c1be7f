package workflow

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/journal"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/signer"
)

// loginSettleDelay matches the pause the API expects between a fresh login
// and the first authenticated call.
const loginSettleDelay = 2 * time.Second

// Outcome summarizes one account's run for the cycle.
type Outcome struct {
	Address    string
	Status     string
	Iterations int
	Err        error
}

// RunAccount drives one account through the full workflow: authenticate,
// check in, run the swap iterations, then the liquidity phase. The session
// token lives only for this invocation. A terminal authentication failure
// aborts the account for this cycle; step failures skip their dependent
// steps and the workflow continues.
func (e *Engine) RunAccount(ctx context.Context, privateKey string, index, total, loops int) Outcome {
	acct, err := signer.NewLocalSigner(privateKey)
	if err != nil {
		e.log.Fail("", "account %d/%d has an invalid private key: %v", index, total, err)
		return Outcome{Status: journal.StatusKeyInvalid, Err: err}
	}
	addr := acct.Address().Hex()
	e.log.Rule("account %d/%d | %s...", index, total, shortToken(addr))

	token, err := e.api.Login(ctx, acct)
	if err != nil {
		e.log.Fail(addr, "login failed: %v", err)
		return Outcome{Address: addr, Status: journal.StatusAuthFailed, Err: err}
	}
	e.log.Success(addr, "login successful")
	e.sleep(loginSettleDelay)

	if err := e.api.CheckIn(ctx, addr, token); err != nil {
		e.log.Warn(addr, "daily check-in failed: %v", err)
	} else {
		e.log.Success(addr, "daily check-in done")
	}

	completed := 0
	for i := 0; i < loops; i++ {
		e.log.Info(addr, "swap iteration %d/%d", i+1, loops)
		e.runIteration(ctx, acct, addr)
		completed++
		if i < loops-1 {
			e.pause(e.cfg.Timers.BetweenIterations)
		}
	}

	if e.cfg.Liquidity.Enabled {
		e.runLiquidityPhase(ctx, acct, addr)
	}

	return Outcome{Address: addr, Status: journal.StatusCompleted, Iterations: completed}
}

// runIteration performs one round of target-token round trips plus the
// secondary-market leg.
func (e *Engine) runIteration(ctx context.Context, acct signer.Signer, addr string) {
	if e.cfg.Swap.Enabled {
		amount := e.randomAmount(e.cfg.Swap.MaxAmountPHRS)
		amountWei := toWei(amount)
		e.log.Dim(addr, "swap amount this round: %.8f PHRS", amount)

		for _, target := range e.cfg.Swap.TargetTokens {
			e.roundTrip(ctx, acct, addr, target, amountWei)
		}
	}

	if e.cfg.Faroswap.Enabled {
		amount := e.randomAmount(e.cfg.Faroswap.MaxAmountPHRS)
		e.log.Dim(addr, "secondary-market swap amount: %.8f PHRS", amount)
		_ = e.performSwap(ctx, acct, e.cfg.Faroswap.Router, e.cfg.Swap.WrappedNative, e.cfg.Faroswap.QuoteToken, toWei(amount), true)
		e.pause(e.cfg.Timers.AfterFaroswap)
	}
}

// roundTrip swaps native into target and, when anything arrived, approves
// and swaps the whole balance back. Each failure skips the remaining legs
// of this trip only.
func (e *Engine) roundTrip(ctx context.Context, acct signer.Signer, addr, target string, amountWei *big.Int) {
	e.log.Info(addr, "round trip for token %s...", shortToken(target))
	if err := e.performSwap(ctx, acct, e.cfg.Swap.Router, e.cfg.Swap.WrappedNative, target, amountWei, true); err != nil {
		return
	}
	e.pause(e.cfg.Timers.BetweenSwaps)

	balance := e.tokenBalance(ctx, acct, target)
	if balance.Sign() == 0 {
		e.log.Warn(addr, "no balance of %s... to swap back, skipping", shortToken(target))
		return
	}
	if err := e.approveToken(ctx, acct, target, e.cfg.Swap.Router, balance); err != nil {
		return
	}
	e.pause(e.cfg.Timers.BetweenSwaps)

	_ = e.performSwap(ctx, acct, e.cfg.Swap.Router, target, e.cfg.Swap.WrappedNative, balance, false)
	e.pause(e.cfg.Timers.AfterReverseSwap)
}

// runLiquidityPhase swaps native into the first target token and adds the
// received amount plus a native slice to the mapped position. A missing
// position id ends the phase, not the cycle.
func (e *Engine) runLiquidityPhase(ctx context.Context, acct signer.Signer, addr string) {
	e.log.Info(addr, "liquidity phase")
	e.pause(e.cfg.Timers.BeforeLiquidity)

	if len(e.cfg.Swap.TargetTokens) == 0 {
		e.log.Warn(addr, "no target tokens to add liquidity, skipping")
		return
	}
	target := e.cfg.Swap.TargetTokens[0]
	tokenID, ok := e.cfg.Liquidity.PositionIDs[strings.ToLower(target)]
	if !ok || tokenID == 0 {
		e.log.Fail(addr, "no position id mapped for pair %s, skipping liquidity", shortToken(target))
		return
	}

	nativeWei := toWei(e.cfg.Liquidity.AmountPHRS)
	initial := e.tokenBalance(ctx, acct, target)
	if err := e.performSwap(ctx, acct, e.cfg.Swap.Router, e.cfg.Swap.WrappedNative, target, nativeWei, true); err != nil {
		e.log.Fail(addr, "initial swap for liquidity failed, skipping liquidity")
		return
	}
	e.pause(e.cfg.Timers.BetweenSwaps)

	received := new(big.Int).Sub(e.tokenBalance(ctx, acct, target), initial)
	if received.Sign() <= 0 {
		e.log.Warn(addr, "no target token received for liquidity, skipping")
		return
	}

	if err := e.approveToken(ctx, acct, e.cfg.Swap.WrappedNative, e.cfg.Liquidity.Manager, nativeWei); err != nil {
		return
	}
	e.pause(e.cfg.Timers.BetweenApprovals)
	if err := e.approveToken(ctx, acct, target, e.cfg.Liquidity.Manager, received); err != nil {
		return
	}
	e.pause(e.cfg.Timers.BetweenSwaps)

	_ = e.increaseLiquidity(ctx, acct, tokenID, e.cfg.Swap.WrappedNative, target, nativeWei, received)
}
