package workflow

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/journal"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/out"
)

const secondTestKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func newTestCoordinator(engine *Engine, keys []string, store *journal.Store) *Coordinator {
	return NewCoordinator(engine, keys, 5, 1, time.Hour, out.NewLogger(io.Discard), store, io.Discard)
}

func TestRunCycleAccountsFailIndependently(t *testing.T) {
	backend := newFakeBackend()
	api := &fakeAPI{}
	cfg := testSettings()
	cfg.Swap.Enabled = false
	engine := newTestEngine(backend, api, cfg)

	keys := []string{testKey, "broken-key", secondTestKey}
	coordinator := newTestCoordinator(engine, keys, nil)
	outcomes := coordinator.RunCycle(context.Background(), 1)

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Status != journal.StatusCompleted {
		t.Fatalf("first account: unexpected status %s", outcomes[0].Status)
	}
	if outcomes[1].Status != journal.StatusKeyInvalid {
		t.Fatalf("second account: unexpected status %s", outcomes[1].Status)
	}
	if outcomes[2].Status != journal.StatusCompleted {
		t.Fatalf("third account must be unaffected by its sibling, got %s", outcomes[2].Status)
	}
	if api.logins != 2 {
		t.Fatalf("expected 2 logins, got %d", api.logins)
	}
}

func TestRunCycleContainsPanics(t *testing.T) {
	backend := newFakeBackend()
	api := &fakeAPI{panicOnLogin: true}
	engine := newTestEngine(backend, api, testSettings())

	coordinator := newTestCoordinator(engine, []string{testKey}, nil)
	outcomes := coordinator.RunCycle(context.Background(), 1)

	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Status != journal.StatusPanicked {
		t.Fatalf("unexpected status: %s", outcomes[0].Status)
	}
	if outcomes[0].Err == nil {
		t.Fatal("panic outcome must carry an error")
	}
}

func TestRunCycleRecordsJournalEntries(t *testing.T) {
	dir := t.TempDir()
	store, err := journal.Open(filepath.Join(dir, "journal.db"), filepath.Join(dir, "journal.db.lock"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()

	backend := newFakeBackend()
	cfg := testSettings()
	cfg.Swap.Enabled = false
	engine := newTestEngine(backend, &fakeAPI{}, cfg)

	coordinator := newTestCoordinator(engine, []string{testKey}, store)
	coordinator.RunCycle(context.Background(), 7)

	entries, err := store.List(7, 10)
	if err != nil {
		t.Fatalf("list journal: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(entries))
	}
	if entries[0].Status != journal.StatusCompleted {
		t.Fatalf("unexpected recorded status: %s", entries[0].Status)
	}
	if entries[0].Address == "" || entries[0].Address == "unknown" {
		t.Fatalf("entry must carry the account address, got %q", entries[0].Address)
	}
}

func TestRunStopsWhenCountdownFails(t *testing.T) {
	backend := newFakeBackend()
	api := &fakeAPI{}
	cfg := testSettings()
	cfg.Swap.Enabled = false
	engine := newTestEngine(backend, api, cfg)

	coordinator := newTestCoordinator(engine, []string{testKey}, nil)
	coordinator.countdown = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	err := coordinator.Run(context.Background())
	if err != context.Canceled {
		t.Fatalf("expected the countdown error to propagate, got %v", err)
	}
	if api.logins != 1 {
		t.Fatalf("expected exactly one completed cycle, got %d logins", api.logins)
	}
}

func TestRunHonorsCancelledContext(t *testing.T) {
	backend := newFakeBackend()
	cfg := testSettings()
	cfg.Swap.Enabled = false
	engine := newTestEngine(backend, &fakeAPI{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	coordinator := newTestCoordinator(engine, []string{testKey}, nil)
	coordinator.countdown = func(context.Context, time.Duration) error {
		cancel()
		return nil
	}

	if err := coordinator.Run(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
