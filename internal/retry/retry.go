package retry

import (
	"context"
	"fmt"
	"time"

	boterr "github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/errors"
)

// Options bound a retried operation: a fixed number of attempts with a fixed
// delay between transient failures. Sleep is injectable so tests run without
// real delays.
type Options struct {
	Attempts int
	Delay    time.Duration
	Sleep    func(time.Duration)
}

// Transient reports whether err is worth retrying: rate-limit signals and
// connectivity/malformed-response failures. Everything else is terminal.
func Transient(err error) bool {
	switch boterr.CodeOf(err) {
	case boterr.CodeRateLimited, boterr.CodeUnavailable:
		return true
	}
	return false
}

// Do invokes op up to opts.Attempts times, sleeping opts.Delay between
// transient failures. Terminal failures return immediately. Exhausting all
// attempts returns a CodeExhausted error wrapping the last transient failure,
// distinguishable from an immediate terminal one. No sleep follows the final
// attempt or a success.
func Do[T any](ctx context.Context, opts Options, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = func(d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		}
	}

	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, boterr.Wrap(boterr.CodeUnavailable, "retry cancelled", err)
		}
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		if !Transient(err) {
			return zero, err
		}
		lastErr = err
		if attempt < opts.Attempts {
			sleep(opts.Delay)
		}
	}
	return zero, boterr.Wrap(boterr.CodeExhausted, fmt.Sprintf("gave up after %d attempts", opts.Attempts), lastErr)
}
