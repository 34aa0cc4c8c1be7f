package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/registry"
)

type GlobalFlags struct {
	ConfigPath  string
	KeyFile     string
	RPCURL      string
	Workers     int
	Loops       int
	Journal     bool
	JournalPath string
}

// DelayRange bounds a randomized pause, in seconds. Tests set both ends to zero.
type DelayRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type SwapSettings struct {
	Enabled       bool
	Router        string
	WrappedNative string
	TargetTokens  []string
	MaxAmountPHRS float64
	FeeTier       int64
	DeadlineMin   int
	// AmountOutMin is the minimum-output policy in base units. The default of
	// "0" replicates the upstream behavior and carries no slippage protection.
	AmountOutMin string
	GasLimit     uint64
}

type FaroswapSettings struct {
	Enabled       bool
	Router        string
	QuoteToken    string
	MaxAmountPHRS float64
}

type LiquiditySettings struct {
	Enabled     bool
	Manager     string
	AmountPHRS  float64
	PositionIDs map[string]uint64
	GasLimit    uint64
}

type TimerSettings struct {
	BetweenSwaps      DelayRange
	AfterReverseSwap  DelayRange
	AfterFaroswap     DelayRange
	BetweenIterations DelayRange
	BeforeLiquidity   DelayRange
	BetweenApprovals  DelayRange
	NextRunSeconds    int
}

type JournalSettings struct {
	Enabled  bool
	Path     string
	LockPath string
}

// Settings is the process-wide Configuration Set. It is never mutated after
// Load returns, so all account workflows share it without synchronization.
type Settings struct {
	KeyFile string
	RPCURL  string
	APIBase string
	Workers int

	// ApproveGasLimit is the fixed gas limit for ERC20 approvals; swaps and
	// liquidity calls carry their own larger limits.
	ApproveGasLimit uint64

	Swap      SwapSettings
	Faroswap  FaroswapSettings
	Liquidity LiquiditySettings
	Timers    TimerSettings
	Journal   JournalSettings
}

type fileConfig struct {
	KeyFile         string  `yaml:"key_file"`
	RPCURL          string  `yaml:"rpc_url"`
	APIBase         string  `yaml:"api_base"`
	Workers         *int    `yaml:"workers"`
	ApproveGasLimit *uint64 `yaml:"approve_gas_limit"`
	Swap    struct {
		Enabled       *bool    `yaml:"enabled"`
		Router        string   `yaml:"router"`
		WrappedNative string   `yaml:"wrapped_native"`
		TargetTokens  []string `yaml:"target_tokens"`
		MaxAmountPHRS *float64 `yaml:"max_amount_phrs"`
		FeeTier       *int64   `yaml:"fee_tier"`
		DeadlineMin   *int     `yaml:"deadline_minutes"`
		AmountOutMin  string   `yaml:"amount_out_min"`
		GasLimit      *uint64  `yaml:"gas_limit"`
	} `yaml:"swap"`
	Faroswap struct {
		Enabled       *bool    `yaml:"enabled"`
		Router        string   `yaml:"router"`
		QuoteToken    string   `yaml:"quote_token"`
		MaxAmountPHRS *float64 `yaml:"max_amount_phrs"`
	} `yaml:"faroswap"`
	Liquidity struct {
		Enabled     *bool             `yaml:"enabled"`
		Manager     string            `yaml:"manager"`
		AmountPHRS  *float64          `yaml:"amount_phrs"`
		PositionIDs map[string]uint64 `yaml:"position_ids"`
		GasLimit    *uint64           `yaml:"gas_limit"`
	} `yaml:"liquidity"`
	Timers struct {
		BetweenSwaps      *DelayRange `yaml:"between_swaps"`
		AfterReverseSwap  *DelayRange `yaml:"after_reverse_swap"`
		AfterFaroswap     *DelayRange `yaml:"after_faroswap"`
		BetweenIterations *DelayRange `yaml:"between_iterations"`
		BeforeLiquidity   *DelayRange `yaml:"before_liquidity"`
		BetweenApprovals  *DelayRange `yaml:"between_approvals"`
		NextRunSeconds    *int        `yaml:"next_run_seconds"`
	} `yaml:"timers"`
	Journal struct {
		Enabled  *bool  `yaml:"enabled"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"journal"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings := defaultSettings()

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)
	applyFlags(flags, &settings)

	if settings.Workers <= 0 {
		settings.Workers = 5
	}
	if settings.Timers.NextRunSeconds <= 0 {
		settings.Timers.NextRunSeconds = 24 * 60 * 60
	}
	if strings.TrimSpace(settings.Swap.AmountOutMin) == "" {
		settings.Swap.AmountOutMin = "0"
	}
	if err := validate(settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func defaultSettings() Settings {
	return Settings{
		KeyFile:         "privatekey.txt",
		RPCURL:          registry.DefaultRPCURL,
		APIBase:         registry.APIBaseURL,
		Workers:         5,
		ApproveGasLimit: 100_000,
		Swap: SwapSettings{
			Enabled:       true,
			Router:        registry.ZenithRouter,
			WrappedNative: registry.WrappedPHRS,
			TargetTokens:  append([]string(nil), registry.DefaultTargetTokens...),
			MaxAmountPHRS: 0.0001,
			FeeTier:       3000,
			DeadlineMin:   20,
			AmountOutMin:  "0",
			GasLimit:      400_000,
		},
		Faroswap: FaroswapSettings{
			Enabled:       true,
			Router:        registry.FaroswapRouter,
			QuoteToken:    registry.USDT,
			MaxAmountPHRS: 0.0001,
		},
		Liquidity: LiquiditySettings{
			Enabled:     true,
			Manager:     registry.PositionManager,
			AmountPHRS:  0.0001,
			PositionIDs: clonePositionIDs(registry.DefaultPositionIDs),
			GasLimit:    800_000,
		},
		Timers: TimerSettings{
			BetweenSwaps:      DelayRange{Min: 10, Max: 25},
			AfterReverseSwap:  DelayRange{Min: 5, Max: 10},
			AfterFaroswap:     DelayRange{Min: 10, Max: 20},
			BetweenIterations: DelayRange{Min: 45, Max: 90},
			BeforeLiquidity:   DelayRange{Min: 15, Max: 30},
			BetweenApprovals:  DelayRange{Min: 3, Max: 6},
			NextRunSeconds:    24 * 60 * 60,
		},
		Journal: JournalSettings{
			Enabled:  false,
			Path:     defaultJournalPath(),
			LockPath: defaultJournalPath() + ".lock",
		},
	}
}

func clonePositionIDs(src map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[strings.ToLower(k)] = v
	}
	return out
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "pharos-bot", "config.yaml"), nil
}

func defaultJournalPath() string {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "pharos-journal.db"
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "pharos-bot", "journal.db")
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.KeyFile != "" {
		settings.KeyFile = cfg.KeyFile
	}
	if cfg.RPCURL != "" {
		settings.RPCURL = cfg.RPCURL
	}
	if cfg.APIBase != "" {
		settings.APIBase = strings.TrimRight(cfg.APIBase, "/")
	}
	if cfg.Workers != nil {
		settings.Workers = *cfg.Workers
	}
	if cfg.ApproveGasLimit != nil {
		settings.ApproveGasLimit = *cfg.ApproveGasLimit
	}

	if cfg.Swap.Enabled != nil {
		settings.Swap.Enabled = *cfg.Swap.Enabled
	}
	if cfg.Swap.Router != "" {
		settings.Swap.Router = cfg.Swap.Router
	}
	if cfg.Swap.WrappedNative != "" {
		settings.Swap.WrappedNative = cfg.Swap.WrappedNative
	}
	if cfg.Swap.TargetTokens != nil {
		settings.Swap.TargetTokens = cfg.Swap.TargetTokens
	}
	if cfg.Swap.MaxAmountPHRS != nil {
		settings.Swap.MaxAmountPHRS = *cfg.Swap.MaxAmountPHRS
	}
	if cfg.Swap.FeeTier != nil {
		settings.Swap.FeeTier = *cfg.Swap.FeeTier
	}
	if cfg.Swap.DeadlineMin != nil {
		settings.Swap.DeadlineMin = *cfg.Swap.DeadlineMin
	}
	if cfg.Swap.AmountOutMin != "" {
		settings.Swap.AmountOutMin = cfg.Swap.AmountOutMin
	}
	if cfg.Swap.GasLimit != nil {
		settings.Swap.GasLimit = *cfg.Swap.GasLimit
	}

	if cfg.Faroswap.Enabled != nil {
		settings.Faroswap.Enabled = *cfg.Faroswap.Enabled
	}
	if cfg.Faroswap.Router != "" {
		settings.Faroswap.Router = cfg.Faroswap.Router
	}
	if cfg.Faroswap.QuoteToken != "" {
		settings.Faroswap.QuoteToken = cfg.Faroswap.QuoteToken
	}
	if cfg.Faroswap.MaxAmountPHRS != nil {
		settings.Faroswap.MaxAmountPHRS = *cfg.Faroswap.MaxAmountPHRS
	}

	if cfg.Liquidity.Enabled != nil {
		settings.Liquidity.Enabled = *cfg.Liquidity.Enabled
	}
	if cfg.Liquidity.Manager != "" {
		settings.Liquidity.Manager = cfg.Liquidity.Manager
	}
	if cfg.Liquidity.AmountPHRS != nil {
		settings.Liquidity.AmountPHRS = *cfg.Liquidity.AmountPHRS
	}
	if cfg.Liquidity.PositionIDs != nil {
		settings.Liquidity.PositionIDs = clonePositionIDs(cfg.Liquidity.PositionIDs)
	}
	if cfg.Liquidity.GasLimit != nil {
		settings.Liquidity.GasLimit = *cfg.Liquidity.GasLimit
	}

	if cfg.Timers.BetweenSwaps != nil {
		settings.Timers.BetweenSwaps = *cfg.Timers.BetweenSwaps
	}
	if cfg.Timers.AfterReverseSwap != nil {
		settings.Timers.AfterReverseSwap = *cfg.Timers.AfterReverseSwap
	}
	if cfg.Timers.AfterFaroswap != nil {
		settings.Timers.AfterFaroswap = *cfg.Timers.AfterFaroswap
	}
	if cfg.Timers.BetweenIterations != nil {
		settings.Timers.BetweenIterations = *cfg.Timers.BetweenIterations
	}
	if cfg.Timers.BeforeLiquidity != nil {
		settings.Timers.BeforeLiquidity = *cfg.Timers.BeforeLiquidity
	}
	if cfg.Timers.BetweenApprovals != nil {
		settings.Timers.BetweenApprovals = *cfg.Timers.BetweenApprovals
	}
	if cfg.Timers.NextRunSeconds != nil {
		settings.Timers.NextRunSeconds = *cfg.Timers.NextRunSeconds
	}

	if cfg.Journal.Enabled != nil {
		settings.Journal.Enabled = *cfg.Journal.Enabled
	}
	if cfg.Journal.Path != "" {
		settings.Journal.Path = cfg.Journal.Path
	}
	if cfg.Journal.LockPath != "" {
		settings.Journal.LockPath = cfg.Journal.LockPath
	}
	if cfg.Journal.Path != "" && cfg.Journal.LockPath == "" {
		settings.Journal.LockPath = cfg.Journal.Path + ".lock"
	}

	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("PHAROS_KEY_FILE"); v != "" {
		settings.KeyFile = v
	}
	if v := os.Getenv("PHAROS_RPC_URL"); v != "" {
		settings.RPCURL = v
	}
	if v := os.Getenv("PHAROS_API_BASE"); v != "" {
		settings.APIBase = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("PHAROS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Workers = n
		}
	}
	if v := os.Getenv("PHAROS_JOURNAL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.Journal.Enabled = b
		}
	}
	if v := os.Getenv("PHAROS_JOURNAL_PATH"); v != "" {
		settings.Journal.Path = v
		settings.Journal.LockPath = v + ".lock"
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) {
	if strings.TrimSpace(flags.KeyFile) != "" {
		settings.KeyFile = flags.KeyFile
	}
	if strings.TrimSpace(flags.RPCURL) != "" {
		settings.RPCURL = flags.RPCURL
	}
	if flags.Workers > 0 {
		settings.Workers = flags.Workers
	}
	if flags.Journal {
		settings.Journal.Enabled = true
	}
	if strings.TrimSpace(flags.JournalPath) != "" {
		settings.Journal.Path = flags.JournalPath
		settings.Journal.LockPath = flags.JournalPath + ".lock"
	}
}

func validate(settings Settings) error {
	if strings.TrimSpace(settings.RPCURL) == "" {
		return fmt.Errorf("rpc url must not be empty")
	}
	if strings.TrimSpace(settings.APIBase) == "" {
		return fmt.Errorf("api base must not be empty")
	}
	if settings.Swap.MaxAmountPHRS <= 0 {
		return fmt.Errorf("swap.max_amount_phrs must be positive")
	}
	if settings.Liquidity.Enabled && settings.Liquidity.AmountPHRS <= 0 {
		return fmt.Errorf("liquidity.amount_phrs must be positive")
	}
	if v, ok := new(big.Int).SetString(strings.TrimSpace(settings.Swap.AmountOutMin), 10); !ok || v.Sign() < 0 {
		return fmt.Errorf("swap.amount_out_min must be a non-negative integer in base units")
	}
	for _, r := range []DelayRange{
		settings.Timers.BetweenSwaps,
		settings.Timers.AfterReverseSwap,
		settings.Timers.AfterFaroswap,
		settings.Timers.BetweenIterations,
		settings.Timers.BeforeLiquidity,
		settings.Timers.BetweenApprovals,
	} {
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("delay ranges must satisfy 0 <= min <= max")
		}
	}
	return nil
}
