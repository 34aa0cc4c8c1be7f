package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/chain"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/config"
	boterr "github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/errors"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/httpx"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/journal"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/out"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/pharos"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/signer"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/version"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/workflow"
)

const apiTimeout = 20 * time.Second

type Runner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func NewRunner() *Runner {
	return NewRunnerWithStreams(os.Stdin, os.Stdout, os.Stderr)
}

func NewRunnerWithStreams(stdin io.Reader, stdout, stderr io.Writer) *Runner {
	return &Runner{stdin: stdin, stdout: stdout, stderr: stderr}
}

func (r *Runner) Run(args []string) int {
	root := r.newRootCommand()
	root.SetArgs(args)
	root.SetIn(r.stdin)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		fmt.Fprintf(r.stderr, "error: %v\n", err)
		return boterr.ExitCode(err)
	}
	return 0
}

func (r *Runner) newRootCommand() *cobra.Command {
	var flags config.GlobalFlags

	cmd := &cobra.Command{
		Use:     version.CLIName,
		Short:   "Automates Pharos testnet check-ins, swaps and liquidity top-ups",
		Version: version.Version,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return boterr.Wrap(boterr.CodeUsage, "parse flags", err)
	})

	registerGlobalFlags(cmd.PersistentFlags(), &flags)

	cmd.AddCommand(r.newRunCommand(&flags))
	cmd.AddCommand(r.newJournalCommand(&flags))
	return cmd
}

func registerGlobalFlags(fs *pflag.FlagSet, flags *config.GlobalFlags) {
	fs.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	fs.StringVar(&flags.KeyFile, "key-file", "", "Path to the private key list (one hex key per line)")
	fs.StringVar(&flags.RPCURL, "rpc-url", "", "Chain RPC endpoint")
	fs.IntVar(&flags.Workers, "workers", 0, "Concurrent account workflows")
	fs.BoolVar(&flags.Journal, "journal", false, "Record per-account cycle outcomes to sqlite")
	fs.StringVar(&flags.JournalPath, "journal-path", "", "Journal database path")
}

func (r *Runner) newRunCommand(flags *config.GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run workflow cycles for every configured account",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(*flags)
			if err != nil {
				return boterr.Wrap(boterr.CodeUsage, "load configuration", err)
			}
			return r.runBot(cmd.Context(), settings, flags.Loops)
		},
	}
	cmd.Flags().IntVar(&flags.Loops, "loops", 0, "Swap iterations per account (prompts when omitted)")
	return cmd
}

func (r *Runner) runBot(ctx context.Context, settings config.Settings, loops int) error {
	log := out.NewLogger(r.stdout)
	log.Banner("%s %s", version.CLIName, version.Version)

	keys, err := signer.LoadKeyLines(settings.KeyFile)
	if err != nil {
		return boterr.Wrap(boterr.CodeUsage, "load private keys", err)
	}
	log.Info("", "loaded %d private keys", len(keys))

	if loops <= 0 {
		loops, err = r.promptLoopCount()
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.Dial(ctx, settings.RPCURL)
	if err != nil {
		return err
	}
	defer client.Close()
	log.Success("", "connected to RPC node, chain id %s", client.ChainID())

	var store *journal.Store
	if settings.Journal.Enabled {
		store, err = journal.Open(settings.Journal.Path, settings.Journal.LockPath)
		if err != nil {
			return boterr.Wrap(boterr.CodeInternal, "open journal", err)
		}
		defer store.Close()
	}

	api := pharos.New(httpx.New(apiTimeout), settings.APIBase, pharos.DefaultRetry)
	engine := workflow.NewEngine(client, api, settings, log)
	interval := time.Duration(settings.Timers.NextRunSeconds) * time.Second
	coordinator := workflow.NewCoordinator(engine, keys, settings.Workers, loops, interval, log, store, r.stdout)

	log.Info("", "each account runs %d swap iterations with %d parallel workers", loops, settings.Workers)
	return coordinator.Run(ctx)
}

// promptLoopCount asks for the per-account iteration count, re-prompting on
// invalid or non-positive input.
func (r *Runner) promptLoopCount() (int, error) {
	scanner := bufio.NewScanner(r.stdin)
	for {
		fmt.Fprint(r.stdout, "Enter the number of swap loops per account: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, boterr.Wrap(boterr.CodeUsage, "read loop count", err)
			}
			return 0, boterr.New(boterr.CodeUsage, "no loop count provided")
		}
		n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil {
			fmt.Fprintln(r.stdout, "Invalid input. Please enter a number.")
			continue
		}
		if n <= 0 {
			fmt.Fprintln(r.stdout, "Number of loops must be greater than 0.")
			continue
		}
		return n, nil
	}
}

func (r *Runner) newJournalCommand(flags *config.GlobalFlags) *cobra.Command {
	var cycle, limit int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recorded per-account cycle outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(*flags)
			if err != nil {
				return boterr.Wrap(boterr.CodeUsage, "load configuration", err)
			}
			store, err := journal.Open(settings.Journal.Path, settings.Journal.LockPath)
			if err != nil {
				return boterr.Wrap(boterr.CodeInternal, "open journal", err)
			}
			defer store.Close()

			entries, err := store.List(cycle, limit)
			if err != nil {
				return boterr.Wrap(boterr.CodeInternal, "list journal entries", err)
			}
			for _, entry := range entries {
				detail := ""
				if entry.Detail != "" {
					detail = " (" + entry.Detail + ")"
				}
				fmt.Fprintf(r.stdout, "cycle %d  %s  %s  iterations=%d%s\n", entry.Cycle, entry.Address, entry.Status, entry.Iterations, detail)
			}
			if len(entries) == 0 {
				fmt.Fprintln(r.stdout, "no journal entries")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&cycle, "cycle", 0, "Filter to one cycle (0 means all)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show")
	return cmd
}
