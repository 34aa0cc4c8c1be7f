package workflow

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/journal"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/out"
)

// Coordinator fans one Account Workflow per key out over a bounded worker
// pool, waits for the whole cycle to finish, then sleeps until the next one.
type Coordinator struct {
	engine   *Engine
	keys     []string
	workers  int
	loops    int
	interval time.Duration
	log      *out.Logger
	journal  *journal.Store // optional

	// countdown renders the inter-cycle wait; injectable for tests.
	countdown func(ctx context.Context, d time.Duration) error
}

func NewCoordinator(engine *Engine, keys []string, workers, loops int, interval time.Duration, log *out.Logger, store *journal.Store, w io.Writer) *Coordinator {
	if workers <= 0 {
		workers = 5
	}
	return &Coordinator{
		engine:   engine,
		keys:     keys,
		workers:  workers,
		loops:    loops,
		interval: interval,
		log:      log,
		journal:  store,
		countdown: func(ctx context.Context, d time.Duration) error {
			return out.RunCountdown(ctx, w, d)
		},
	}
}

// Run repeats cycles until ctx is cancelled. The process has no other
// normal termination path.
func (c *Coordinator) Run(ctx context.Context) error {
	for cycle := 1; ; cycle++ {
		c.log.Banner("starting cycle #%d at %s", cycle, time.Now().Format("2006-01-02 15:04:05"))
		outcomes := c.RunCycle(ctx, cycle)
		c.summarize(cycle, outcomes)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.countdown(ctx, c.interval); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// RunCycle processes every account once with bounded parallelism and
// returns one outcome per account, in key order. Accounts fail
// independently; nothing an account does can abort its siblings.
func (c *Coordinator) RunCycle(ctx context.Context, cycle int) []Outcome {
	outcomes := make([]Outcome, len(c.keys))
	jobs := make(chan int)

	workers := c.workers
	if workers > len(c.keys) {
		workers = len(c.keys)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = c.runOne(ctx, idx)
			}
		}()
	}
	for idx := range c.keys {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	if c.journal != nil {
		started := time.Now().UTC().Format(time.RFC3339)
		for _, outcome := range outcomes {
			entry := journal.Entry{
				Cycle:      cycle,
				Address:    outcome.Address,
				Status:     outcome.Status,
				Iterations: outcome.Iterations,
				StartedAt:  started,
				FinishedAt: time.Now().UTC().Format(time.RFC3339),
			}
			if outcome.Err != nil {
				entry.Detail = outcome.Err.Error()
			}
			if entry.Address == "" {
				entry.Address = "unknown"
			}
			if err := c.journal.Record(entry); err != nil {
				c.log.Warn("", "journal write failed: %v", err)
			}
		}
	}
	return outcomes
}

// runOne is the per-account task boundary: a panic inside one workflow is
// contained here and recorded as that account's failure for the cycle.
func (c *Coordinator) runOne(ctx context.Context, idx int) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("account task panicked: %v", r)
			c.log.Fail(outcome.Address, "%v", err)
			outcome = Outcome{Address: outcome.Address, Status: journal.StatusPanicked, Err: err}
		}
	}()
	return c.engine.RunAccount(ctx, c.keys[idx], idx+1, len(c.keys), c.loops)
}

func (c *Coordinator) summarize(cycle int, outcomes []Outcome) {
	completed, failed := 0, 0
	for _, outcome := range outcomes {
		if outcome.Status == journal.StatusCompleted {
			completed++
		} else {
			failed++
		}
	}
	c.log.Banner("cycle #%d finished: %d completed, %d failed", cycle, completed, failed)
}
