package workflow

import (
	"math/big"
	"math/rand"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/config"
	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/out"
)

// Engine runs one account's workflow at a time per goroutine. The engine
// itself is shared: it only holds the read-only configuration and the shared
// backend/API handles, so concurrent RunAccount calls are safe.
type Engine struct {
	backend Backend
	api     AccountAPI
	cfg     config.Settings
	log     *out.Logger

	minOut *big.Int

	// sleep and randFloat are injectable so tests run with zero delays.
	sleep     func(time.Duration)
	randFloat func() float64
}

func NewEngine(backend Backend, api AccountAPI, cfg config.Settings, log *out.Logger) *Engine {
	minOut, ok := new(big.Int).SetString(strings.TrimSpace(cfg.Swap.AmountOutMin), 10)
	if !ok {
		minOut = new(big.Int)
	}
	return &Engine{
		backend:   backend,
		api:       api,
		cfg:       cfg,
		log:       log,
		minOut:    minOut,
		sleep:     time.Sleep,
		randFloat: rand.Float64,
	}
}

// pause blocks for a uniformly random duration drawn from r.
func (e *Engine) pause(r config.DelayRange) {
	span := r.Max - r.Min
	if span < 0 {
		span = 0
	}
	seconds := r.Min + e.randFloat()*span
	if seconds <= 0 {
		return
	}
	e.sleep(time.Duration(seconds * float64(time.Second)))
}

// randomAmount draws a swap amount in PHRS below max, floored at a dust
// threshold so amounts never round to zero wei.
func (e *Engine) randomAmount(max float64) float64 {
	lower := 0.00001
	if max < lower {
		lower = max
	}
	return lower + e.randFloat()*(max-lower)
}

// toWei converts a PHRS amount to base units.
func toWei(amount float64) *big.Int {
	scaled := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(1e18))
	wei, _ := scaled.Int(nil)
	return wei
}

func shortHash(hex string) string {
	if len(hex) <= 15 {
		return hex
	}
	return hex[:15]
}

func shortToken(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:10]
}

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
