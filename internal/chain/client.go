package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	boterr "github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/errors"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/registry"
)

const receiptPollInterval = 2 * time.Second

// Client is the shared adapter over one RPC connection. It carries no
// per-call mutable state, so all account workflows use the same instance
// concurrently; ethclient issues independent request/response pairs.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	erc20   abi.ABI
}

// Dial connects to the RPC endpoint and probes the chain id. An unreachable
// endpoint is a startup-fatal condition.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, boterr.Wrap(boterr.CodeUnavailable, "connect rpc", err)
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, boterr.Wrap(boterr.CodeUnavailable, "read chain id", err)
	}
	return &Client{eth: eth, chainID: chainID, erc20: erc20ABI}, nil
}

func (c *Client) Close() {
	if c != nil && c.eth != nil {
		c.eth.Close()
	}
}

func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// TokenBalance reads an ERC20 balance via eth_call.
func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return c.callUint(ctx, token, "balanceOf", owner)
}

// Allowance reads the ERC20 allowance granted by owner to spender.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return c.callUint(ctx, token, "allowance", owner, spender)
}

func (c *Client) callUint(ctx context.Context, target common.Address, method string, args ...any) (*big.Int, error) {
	data, err := c.erc20.Pack(method, args...)
	if err != nil {
		return nil, boterr.Wrap(boterr.CodeInternal, fmt.Sprintf("pack %s calldata", method), err)
	}
	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &target, Data: data}, nil)
	if err != nil {
		return nil, boterr.Wrap(boterr.CodeUnavailable, fmt.Sprintf("call %s", method), err)
	}
	values, err := c.erc20.Unpack(method, raw)
	if err != nil {
		return nil, boterr.Wrap(boterr.CodeUnavailable, fmt.Sprintf("decode %s result", method), err)
	}
	if len(values) != 1 {
		return nil, boterr.New(boterr.CodeUnavailable, fmt.Sprintf("unexpected %s result arity", method))
	}
	out, ok := values[0].(*big.Int)
	if !ok {
		return nil, boterr.New(boterr.CodeUnavailable, fmt.Sprintf("unexpected %s result type", method))
	}
	return out, nil
}

// PendingNonce reads the account's next nonce. Nonces are scoped per account,
// so no cross-account coordination is needed.
func (c *Client) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, boterr.Wrap(boterr.CodeUnavailable, "fetch nonce", err)
	}
	return nonce, nil
}

// GasPrice reads a fresh gas price. Callers read this immediately before
// building each transaction; the value is never cached.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, boterr.Wrap(boterr.CodeUnavailable, "fetch gas price", err)
	}
	return price, nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.eth.SendTransaction(ctx, tx); err != nil {
		return boterr.Wrap(boterr.CodeUnavailable, "broadcast transaction", err)
	}
	return nil
}

// WaitReceipt polls for the transaction receipt until timeout. The three
// outcomes are nil (confirmed success), CodeReverted (receipt found with
// failure status) and CodeTxTimeout (not found before the bound).
func (c *Client) WaitReceipt(ctx context.Context, txHash common.Hash, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.eth.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return nil
			}
			return boterr.New(boterr.CodeReverted, "transaction reverted on-chain")
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			// Ignore transient RPC polling failures until timeout.
		}
		select {
		case <-waitCtx.Done():
			return boterr.Wrap(boterr.CodeTxTimeout, "timed out waiting for receipt", waitCtx.Err())
		case <-ticker.C:
		}
	}
}

var erc20ABI = mustABI(registry.ERC20MinimalABI)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
