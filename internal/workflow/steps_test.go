package workflow

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/config"
	boterr "github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/errors"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/out"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/registry"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/signer"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// fakeBackend records submitted transactions and serves scripted reads.
// Balance reads are consumed in order; the last value is sticky.
type fakeBackend struct {
	mu         sync.Mutex
	nonce      uint64
	allowance  *big.Int
	balances   []*big.Int
	balanceIdx int
	sent       []*types.Transaction

	allowanceErr error
	balanceErr   error
	sendErr      error
	receiptErr   error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{allowance: new(big.Int)}
}

func (f *fakeBackend) ChainID() *big.Int { return big.NewInt(688688) }

func (f *fakeBackend) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	if len(f.balances) == 0 {
		return new(big.Int), nil
	}
	idx := f.balanceIdx
	if idx >= len(f.balances) {
		idx = len(f.balances) - 1
	} else {
		f.balanceIdx++
	}
	return new(big.Int).Set(f.balances[idx]), nil
}

func (f *fakeBackend) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allowanceErr != nil {
		return nil, f.allowanceErr
	}
	return new(big.Int).Set(f.allowance), nil
}

func (f *fakeBackend) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.nonce
	f.nonce++
	return n, nil
}

func (f *fakeBackend) GasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) WaitReceipt(ctx context.Context, txHash common.Hash, timeout time.Duration) error {
	return f.receiptErr
}

func (f *fakeBackend) sentTxs() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.sent...)
}

// fakeAPI counts calls and returns scripted results.
type fakeAPI struct {
	mu           sync.Mutex
	loginErr     error
	checkInErr   error
	logins       int
	checkIns     int
	panicOnLogin bool
}

func (f *fakeAPI) Login(ctx context.Context, acct signer.Signer) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.panicOnLogin {
		panic("login exploded")
	}
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return "jwt", nil
}

func (f *fakeAPI) CheckIn(ctx context.Context, address, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkIns++
	return f.checkInErr
}

func testSettings() config.Settings {
	return config.Settings{
		Workers:         5,
		ApproveGasLimit: 100_000,
		Swap: config.SwapSettings{
			Enabled:       true,
			Router:        registry.ZenithRouter,
			WrappedNative: registry.WrappedPHRS,
			TargetTokens:  []string{registry.USDC},
			MaxAmountPHRS: 0.0001,
			FeeTier:       3000,
			DeadlineMin:   20,
			AmountOutMin:  "0",
			GasLimit:      400_000,
		},
		Faroswap: config.FaroswapSettings{
			Router:        registry.FaroswapRouter,
			QuoteToken:    registry.USDT,
			MaxAmountPHRS: 0.0001,
		},
		Liquidity: config.LiquiditySettings{
			Manager:     registry.PositionManager,
			AmountPHRS:  0.0001,
			PositionIDs: map[string]uint64{},
			GasLimit:    800_000,
		},
	}
}

func newTestEngine(backend Backend, api AccountAPI, cfg config.Settings) *Engine {
	e := NewEngine(backend, api, cfg, out.NewLogger(io.Discard))
	e.sleep = func(time.Duration) {}
	e.randFloat = func() float64 { return 0.5 }
	return e
}

func mustSigner(t *testing.T) signer.Signer {
	t.Helper()
	acct, err := signer.NewLocalSigner(testKey)
	if err != nil {
		t.Fatalf("NewLocalSigner failed: %v", err)
	}
	return acct
}

// unpackInput decodes one packed method call and returns its single tuple
// argument for field inspection.
func unpackInput(t *testing.T, parsed abi.ABI, name string, data []byte) reflect.Value {
	t.Helper()
	method, ok := parsed.Methods[name]
	if !ok {
		t.Fatalf("unknown method %s", name)
	}
	if !bytes.Equal(data[:4], method.ID) {
		t.Fatalf("selector mismatch for %s", name)
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack %s: %v", name, err)
	}
	if len(values) != 1 {
		t.Fatalf("expected one tuple argument, got %d", len(values))
	}
	return reflect.ValueOf(values[0])
}

func fieldBig(t *testing.T, tuple reflect.Value, name string) *big.Int {
	t.Helper()
	field := tuple.FieldByName(name)
	if !field.IsValid() {
		t.Fatalf("tuple has no field %s", name)
	}
	value, ok := field.Interface().(*big.Int)
	if !ok {
		t.Fatalf("field %s is not *big.Int", name)
	}
	return value
}

func TestApproveTokenSkipsWhenAllowanceCovers(t *testing.T) {
	backend := newFakeBackend()
	backend.allowance = big.NewInt(100)
	engine := newTestEngine(backend, &fakeAPI{}, testSettings())

	err := engine.approveToken(context.Background(), mustSigner(t), registry.USDC, registry.ZenithRouter, big.NewInt(100))
	if err != nil {
		t.Fatalf("approveToken failed: %v", err)
	}
	if len(backend.sentTxs()) != 0 {
		t.Fatal("allowance exactly covering the amount must not submit a transaction")
	}
}

func TestApproveTokenSubmitsWhenInsufficient(t *testing.T) {
	backend := newFakeBackend()
	backend.allowance = big.NewInt(99)
	cfg := testSettings()
	engine := newTestEngine(backend, &fakeAPI{}, cfg)

	err := engine.approveToken(context.Background(), mustSigner(t), registry.USDC, registry.ZenithRouter, big.NewInt(100))
	if err != nil {
		t.Fatalf("approveToken failed: %v", err)
	}
	sent := backend.sentTxs()
	if len(sent) != 1 {
		t.Fatalf("expected one approval transaction, got %d", len(sent))
	}
	tx := sent[0]
	if tx.To().Hex() != common.HexToAddress(registry.USDC).Hex() {
		t.Fatalf("approval sent to %s, want the token contract", tx.To().Hex())
	}
	if tx.Gas() != cfg.ApproveGasLimit {
		t.Fatalf("unexpected gas limit: %d", tx.Gas())
	}
	approveID := erc20ABI.Methods["approve"].ID
	if !bytes.Equal(tx.Data()[:4], approveID) {
		t.Fatal("calldata does not start with the approve selector")
	}
}

func TestApproveTokenReturnsFailures(t *testing.T) {
	backend := newFakeBackend()
	backend.sendErr = boterr.New(boterr.CodeUnavailable, "node down")
	engine := newTestEngine(backend, &fakeAPI{}, testSettings())

	err := engine.approveToken(context.Background(), mustSigner(t), registry.USDC, registry.ZenithRouter, big.NewInt(1))
	if boterr.CodeOf(err) != boterr.CodeUnavailable {
		t.Fatalf("expected send failure to propagate, got %v", err)
	}
}

func TestPerformSwapNativeAttachesValue(t *testing.T) {
	backend := newFakeBackend()
	cfg := testSettings()
	engine := newTestEngine(backend, &fakeAPI{}, cfg)

	amount := big.NewInt(1_000_000)
	err := engine.performSwap(context.Background(), mustSigner(t), cfg.Swap.Router, cfg.Swap.WrappedNative, registry.USDC, amount, true)
	if err != nil {
		t.Fatalf("performSwap failed: %v", err)
	}
	sent := backend.sentTxs()
	if len(sent) != 1 {
		t.Fatalf("expected one transaction, got %d", len(sent))
	}
	tx := sent[0]
	if tx.To().Hex() != common.HexToAddress(cfg.Swap.Router).Hex() {
		t.Fatalf("swap sent to %s, want the router", tx.To().Hex())
	}
	if tx.Value().Cmp(amount) != 0 {
		t.Fatalf("native swap must carry the amount as value, got %s", tx.Value())
	}
	if tx.Gas() != cfg.Swap.GasLimit {
		t.Fatalf("unexpected gas limit: %d", tx.Gas())
	}
}

func TestPerformSwapTokenSideCarriesNoValue(t *testing.T) {
	backend := newFakeBackend()
	cfg := testSettings()
	engine := newTestEngine(backend, &fakeAPI{}, cfg)

	err := engine.performSwap(context.Background(), mustSigner(t), cfg.Swap.Router, registry.USDC, cfg.Swap.WrappedNative, big.NewInt(500), false)
	if err != nil {
		t.Fatalf("performSwap failed: %v", err)
	}
	sent := backend.sentTxs()
	if len(sent) != 1 {
		t.Fatalf("expected one transaction, got %d", len(sent))
	}
	if sent[0].Value().Sign() != 0 {
		t.Fatalf("token-side swap must not carry value, got %s", sent[0].Value())
	}
}

func TestPerformSwapParams(t *testing.T) {
	backend := newFakeBackend()
	cfg := testSettings()
	cfg.Swap.AmountOutMin = "123"
	engine := newTestEngine(backend, &fakeAPI{}, cfg)

	amount := big.NewInt(777)
	before := time.Now().Add(time.Duration(cfg.Swap.DeadlineMin) * time.Minute).Unix()
	if err := engine.performSwap(context.Background(), mustSigner(t), cfg.Swap.Router, cfg.Swap.WrappedNative, registry.USDC, amount, true); err != nil {
		t.Fatalf("performSwap failed: %v", err)
	}
	after := time.Now().Add(time.Duration(cfg.Swap.DeadlineMin) * time.Minute).Unix()

	params := unpackInput(t, routerABI, "exactInputSingle", backend.sentTxs()[0].Data())
	if got := fieldBig(t, params, "AmountIn"); got.Cmp(amount) != 0 {
		t.Fatalf("unexpected amountIn: %s", got)
	}
	if got := fieldBig(t, params, "AmountOutMinimum"); got.Cmp(big.NewInt(123)) != 0 {
		t.Fatalf("unexpected amountOutMinimum: %s", got)
	}
	if got := fieldBig(t, params, "Fee"); got.Cmp(big.NewInt(3000)) != 0 {
		t.Fatalf("unexpected fee tier: %s", got)
	}
	if got := fieldBig(t, params, "SqrtPriceLimitX96"); got.Sign() != 0 {
		t.Fatalf("price limit must be zero, got %s", got)
	}
	deadline := fieldBig(t, params, "Deadline").Int64()
	if deadline < before || deadline > after {
		t.Fatalf("deadline %d outside expected window [%d, %d]", deadline, before, after)
	}
}

func TestIncreaseLiquidityCanonicalOrdering(t *testing.T) {
	// USDC sorts below wrapped PHRS, so the USDC amount must land in
	// amount0Desired whichever way the pair is passed.
	wphrsAmount := big.NewInt(111)
	usdcAmount := big.NewInt(222)

	for _, swapped := range []bool{false, true} {
		backend := newFakeBackend()
		engine := newTestEngine(backend, &fakeAPI{}, testSettings())

		var err error
		if swapped {
			err = engine.increaseLiquidity(context.Background(), mustSigner(t), 42, registry.USDC, registry.WrappedPHRS, usdcAmount, wphrsAmount)
		} else {
			err = engine.increaseLiquidity(context.Background(), mustSigner(t), 42, registry.WrappedPHRS, registry.USDC, wphrsAmount, usdcAmount)
		}
		if err != nil {
			t.Fatalf("increaseLiquidity (swapped=%v) failed: %v", swapped, err)
		}

		params := unpackInput(t, managerABI, "increaseLiquidity", backend.sentTxs()[0].Data())
		if got := fieldBig(t, params, "TokenId"); got.Cmp(big.NewInt(42)) != 0 {
			t.Fatalf("unexpected token id: %s", got)
		}
		if got := fieldBig(t, params, "Amount0Desired"); got.Cmp(usdcAmount) != 0 {
			t.Fatalf("swapped=%v: amount0Desired = %s, want the lower-address token amount %s", swapped, got, usdcAmount)
		}
		if got := fieldBig(t, params, "Amount1Desired"); got.Cmp(wphrsAmount) != 0 {
			t.Fatalf("swapped=%v: amount1Desired = %s, want %s", swapped, got, wphrsAmount)
		}
	}
}

func TestTokenBalanceDegradesToZero(t *testing.T) {
	backend := newFakeBackend()
	backend.balanceErr = boterr.New(boterr.CodeUnavailable, "flaky node")
	engine := newTestEngine(backend, &fakeAPI{}, testSettings())

	balance := engine.tokenBalance(context.Background(), mustSigner(t), registry.USDC)
	if balance.Sign() != 0 {
		t.Fatalf("expected zero balance on read failure, got %s", balance)
	}
}

func TestRandomAmountFloor(t *testing.T) {
	engine := newTestEngine(newFakeBackend(), &fakeAPI{}, testSettings())
	engine.randFloat = func() float64 { return 0 }
	if got := engine.randomAmount(0.001); got != 0.00001 {
		t.Fatalf("expected the dust floor, got %v", got)
	}
	engine.randFloat = func() float64 { return 1 }
	if got := engine.randomAmount(0.001); got != 0.001 {
		t.Fatalf("expected the configured max, got %v", got)
	}
}

func TestToWei(t *testing.T) {
	want := big.NewInt(100_000_000_000_000)
	if got := toWei(0.0001); got.Cmp(want) != 0 {
		t.Fatalf("toWei(0.0001) = %s, want %s", got, want)
	}
}
