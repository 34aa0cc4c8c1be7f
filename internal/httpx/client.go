package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	boterr "github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/errors"
)

// Client issues single JSON requests. Retry policy lives with the caller so
// each step can apply its own attempt budget and classification.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "pharos-bot/1.0",
	}
}

// Response carries the raw outcome of one HTTP exchange. Body is fully read
// and the connection released before Do returns.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do performs one request and returns the raw response. Transport-level
// failures map to CodeUnavailable; HTTP status interpretation is left to the
// caller since the Pharos API signals errors inside 200 payloads.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return Response{}, boterr.Wrap(boterr.CodeInternal, "build request", err)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, mapNetError(err)
	}
	buf, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return Response{StatusCode: resp.StatusCode, Header: resp.Header}, boterr.Wrap(boterr.CodeUnavailable, "read response body", readErr)
	}
	return Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: buf}, nil
}

// DoJSON performs one request and decodes a JSON payload, mapping common HTTP
// statuses to the bot's error codes.
func (c *Client) DoJSON(ctx context.Context, method, url string, headers map[string]string, body []byte, out any) error {
	resp, err := c.Do(ctx, method, url, headers, body)
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return boterr.New(boterr.CodeRateLimited, "remote rate limited request")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return boterr.New(boterr.CodeAuth, "remote rejected credentials")
	case resp.StatusCode >= http.StatusInternalServerError:
		return boterr.New(boterr.CodeUnavailable, fmt.Sprintf("remote unavailable (status %d)", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return boterr.New(boterr.CodeUnavailable, fmt.Sprintf("remote returned unexpected status %d", resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return boterr.New(boterr.CodeUnavailable, "remote returned empty response")
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return boterr.Wrap(boterr.CodeUnavailable, "decode response JSON", err)
	}
	return nil
}

func mapNetError(err error) error {
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return boterr.Wrap(boterr.CodeUnavailable, "request timeout", err)
	}
	return boterr.Wrap(boterr.CodeUnavailable, "request failed", err)
}
