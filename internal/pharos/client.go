package pharos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	boterr "github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/errors"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/httpx"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/registry"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/retry"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/signer"
)

// DefaultRetry is the login retry budget: rate-limit and malformed-response
// failures are retried up to 10 times with a fixed 10s delay.
var DefaultRetry = retry.Options{Attempts: 10, Delay: 10 * time.Second}

// Client talks to the Pharos testnet API. One instance is shared by all
// account workflows; it holds no per-account state.
type Client struct {
	http      *httpx.Client
	base      string
	retryOpts retry.Options
}

func New(httpClient *httpx.Client, base string, retryOpts retry.Options) *Client {
	if retryOpts.Attempts <= 0 {
		retryOpts = DefaultRetry
	}
	return &Client{
		http:      httpClient,
		base:      strings.TrimRight(base, "/"),
		retryOpts: retryOpts,
	}
}

type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		JWT string `json:"jwt"`
	} `json:"data"`
}

// Login signs the fixed challenge with the account key and exchanges it for a
// session token. Rate-limit signals and malformed responses are retried;
// any other rejection is terminal and the caller must abort the account's
// workflow for this cycle.
func (c *Client) Login(ctx context.Context, acct signer.Signer) (string, error) {
	sig, err := acct.SignMessage([]byte(registry.LoginChallenge))
	if err != nil {
		return "", boterr.Wrap(boterr.CodeAuth, "sign login challenge", err)
	}

	query := url.Values{}
	query.Set("address", acct.Address().Hex())
	query.Set("signature", sig)
	query.Set("wallet", registry.WalletName)
	loginURL := c.base + registry.LoginPath + "?" + query.Encode()

	headers := registry.BaseHeaders()
	headers["Authorization"] = "Bearer null"

	return retry.Do(ctx, c.retryOpts, func(ctx context.Context) (string, error) {
		resp, err := c.http.Do(ctx, http.MethodPost, loginURL, headers, nil)
		if err != nil {
			return "", err
		}
		var payload apiResponse
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			return "", boterr.Wrap(boterr.CodeUnavailable, fmt.Sprintf("invalid login response (status %d)", resp.StatusCode), err)
		}
		if resp.StatusCode == http.StatusOK && payload.Code == 0 {
			if strings.TrimSpace(payload.Data.JWT) == "" {
				return "", boterr.New(boterr.CodeAuth, "login response carried no session token")
			}
			return payload.Data.JWT, nil
		}
		if isRateLimitMsg(payload.Msg) {
			return "", boterr.New(boterr.CodeRateLimited, fmt.Sprintf("login rate limited: %s", payload.Msg))
		}
		return "", boterr.New(boterr.CodeAuth, fmt.Sprintf("login rejected: %q", payload.Msg))
	})
}

// CheckIn performs the daily check-in. A response indicating the check-in was
// already done today counts as success; any other failure is reported to the
// caller, which logs it and continues the workflow.
func (c *Client) CheckIn(ctx context.Context, address, token string) error {
	query := url.Values{}
	query.Set("address", address)
	checkInURL := c.base + registry.CheckInPath + "?" + query.Encode()

	headers := registry.BaseHeaders()
	headers["Authorization"] = "Bearer " + token

	resp, err := c.http.Do(ctx, http.MethodPost, checkInURL, headers, nil)
	if err != nil {
		return err
	}
	var payload apiResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return boterr.Wrap(boterr.CodeUnavailable, fmt.Sprintf("invalid check-in response (status %d)", resp.StatusCode), err)
	}
	if resp.StatusCode == http.StatusOK && payload.Code == 0 {
		return nil
	}
	if strings.Contains(strings.ToLower(payload.Msg), "already") {
		return nil
	}
	return boterr.New(boterr.CodeUnavailable, fmt.Sprintf("check-in failed: %q", payload.Msg))
}

func isRateLimitMsg(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(msg, "1040") || strings.Contains(lower, "too many connections")
}
