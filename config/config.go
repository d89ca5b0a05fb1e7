// Package config holds the tunables of the pricing engine. Every component
// receives its section at construction; nothing here is read globally.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "OPTBOOK_"

// Kernel names accepted by ModelConfig.Kernel.
const (
	KernelAuto         = "auto" // by exercise style: bsm for European, crr for American
	KernelBlackScholes = "bsm"
	KernelBinomial     = "crr"
	KernelMerton       = "merton"
	KernelMonteCarlo   = "mc"
)

// Greeks methods accepted by GreeksConfig.Method.
const (
	MethodAuto             = "auto"
	MethodAnalytic         = "analytic"
	MethodFiniteDifference = "finite_difference"
)

// Config holds engine configuration
type Config struct {
	Model  ModelConfig
	Greeks GreeksConfig
	Solver SolverConfig
	Batch  BatchConfig
	Risk   RiskConfig
	Log    LogConfig
}

// ModelConfig selects the pricing kernel and its parameters.
type ModelConfig struct {
	Kernel string

	TreeSteps int // binomial steps

	MonteCarloPaths   int
	MonteCarloSeed    uint64
	MonteCarloWorkers int

	JumpIntensity float64 // jumps per year
	JumpMean      float64 // mean log jump size
	JumpVol       float64 // log jump size volatility
	MertonTerms   int     // Poisson terms summed
}

// GreeksConfig controls how sensitivities are produced.
type GreeksConfig struct {
	Method string

	// Bump = BumpRelative * max(|x|, floor).
	BumpRelative float64
	// Spot step of a sampling kernel, relative to the spot. Lattice kernels
	// step by their node spacing instead.
	GammaBumpRelative float64
	VolFloor     float64
	RateFloor    float64
	TimeFloor    float64

	// Delta reported for an expired contract struck exactly at the spot
	// (and for the forward-at-the-money point of a zero-volatility contract).
	ATMDeltaTieBreak float64
}

// SolverConfig bounds the implied volatility search.
type SolverConfig struct {
	VolLower       float64
	VolUpper       float64
	PriceTolerance float64
	MaxIterations  int
}

// BatchConfig controls vectorized and parallel portfolio evaluation.
type BatchConfig struct {
	Workers   int
	ChunkSize int
	MinBatch  int // below this many rows the book is priced item by item
}

// RiskConfig drives scenario value at risk.
type RiskConfig struct {
	Horizon    float64 // years
	Steps      int     // simulation steps over the horizon
	Paths      int
	Seed       uint64
	Confidence float64
}

// LogConfig is passed to logger.New.
type LogConfig struct {
	Level  string
	Pretty bool
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Kernel:            KernelAuto,
			TreeSteps:         500,
			MonteCarloPaths:   200000,
			MonteCarloSeed:    42,
			MonteCarloWorkers: runtime.GOMAXPROCS(0),
			JumpIntensity:     0.1,
			JumpMean:          -0.05,
			JumpVol:           0.1,
			MertonTerms:       50,
		},
		Greeks: GreeksConfig{
			Method:            MethodAuto,
			BumpRelative:      1e-4,
			GammaBumpRelative: 1e-2,
			VolFloor:          1e-2,
			RateFloor:         1e-2,
			TimeFloor:         1e-2,
			ATMDeltaTieBreak:  0.5,
		},
		Solver: SolverConfig{
			VolLower:       1e-6,
			VolUpper:       5.0,
			PriceTolerance: 1e-6,
			MaxIterations:  100,
		},
		Batch: BatchConfig{
			Workers:   runtime.GOMAXPROCS(0),
			ChunkSize: 256,
			MinBatch:  8,
		},
		Risk: RiskConfig{
			Horizon:    1.0 / 252,
			Steps:      1,
			Paths:      2000,
			Seed:       7,
			Confidence: 0.99,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch c.Model.Kernel {
	case KernelAuto, KernelBlackScholes, KernelBinomial, KernelMerton, KernelMonteCarlo:
	default:
		return fmt.Errorf("unknown kernel %q", c.Model.Kernel)
	}
	if c.Model.TreeSteps < 3 {
		return fmt.Errorf("tree steps must be at least 3, got %d", c.Model.TreeSteps)
	}
	if c.Model.MonteCarloPaths < 2 {
		return fmt.Errorf("monte carlo paths must be at least 2, got %d", c.Model.MonteCarloPaths)
	}
	if c.Model.MonteCarloWorkers < 1 {
		return fmt.Errorf("monte carlo workers must be positive, got %d", c.Model.MonteCarloWorkers)
	}
	if c.Model.JumpIntensity < 0 || c.Model.JumpVol < 0 || c.Model.MertonTerms < 1 {
		return fmt.Errorf("invalid jump parameters: intensity=%g vol=%g terms=%d",
			c.Model.JumpIntensity, c.Model.JumpVol, c.Model.MertonTerms)
	}

	switch c.Greeks.Method {
	case MethodAuto, MethodAnalytic, MethodFiniteDifference:
	default:
		return fmt.Errorf("unknown greeks method %q", c.Greeks.Method)
	}
	if c.Greeks.BumpRelative <= 0 || c.Greeks.GammaBumpRelative <= 0 || c.Greeks.GammaBumpRelative >= 0.5 || c.Greeks.VolFloor <= 0 || c.Greeks.RateFloor <= 0 || c.Greeks.TimeFloor <= 0 {
		return fmt.Errorf("bump sizes must be positive")
	}
	if c.Greeks.ATMDeltaTieBreak < 0 || c.Greeks.ATMDeltaTieBreak > 1 {
		return fmt.Errorf("atm delta tie-break must lie in [0, 1], got %g", c.Greeks.ATMDeltaTieBreak)
	}

	if c.Solver.VolLower <= 0 || c.Solver.VolUpper <= c.Solver.VolLower {
		return fmt.Errorf("invalid volatility bracket [%g, %g]", c.Solver.VolLower, c.Solver.VolUpper)
	}
	if c.Solver.PriceTolerance <= 0 {
		return fmt.Errorf("price tolerance must be positive, got %g", c.Solver.PriceTolerance)
	}
	if c.Solver.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be positive, got %d", c.Solver.MaxIterations)
	}

	if c.Batch.Workers < 1 || c.Batch.ChunkSize < 1 || c.Batch.MinBatch < 0 {
		return fmt.Errorf("invalid batch settings: workers=%d chunk=%d min=%d",
			c.Batch.Workers, c.Batch.ChunkSize, c.Batch.MinBatch)
	}

	if !(c.Risk.Horizon >= 0) || c.Risk.Steps < 1 || c.Risk.Paths < 1 {
		return fmt.Errorf("invalid risk settings: horizon=%g steps=%d paths=%d", c.Risk.Horizon, c.Risk.Steps, c.Risk.Paths)
	}
	if !(c.Risk.Confidence > 0 && c.Risk.Confidence < 1) {
		return fmt.Errorf("risk confidence must lie in (0, 1), got %g", c.Risk.Confidence)
	}
	return nil
}

// Load returns Default overridden by an optional .env file and OPTBOOK_*
// environment variables.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		// A missing default .env is not an error.
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Default()
	var errs []string
	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.ToLower(v)
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	setUint := func(key string, dst *uint64) {
		if v, ok := lookup(key); ok {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", envPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", envPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	setString("KERNEL", &cfg.Model.Kernel)
	setInt("TREE_STEPS", &cfg.Model.TreeSteps)
	setInt("MC_PATHS", &cfg.Model.MonteCarloPaths)
	setUint("MC_SEED", &cfg.Model.MonteCarloSeed)
	setInt("MC_WORKERS", &cfg.Model.MonteCarloWorkers)
	setFloat("JUMP_INTENSITY", &cfg.Model.JumpIntensity)
	setFloat("JUMP_MEAN", &cfg.Model.JumpMean)
	setFloat("JUMP_VOL", &cfg.Model.JumpVol)
	setInt("MERTON_TERMS", &cfg.Model.MertonTerms)

	setString("GREEKS_METHOD", &cfg.Greeks.Method)
	setFloat("BUMP_RELATIVE", &cfg.Greeks.BumpRelative)
	setFloat("GAMMA_BUMP_RELATIVE", &cfg.Greeks.GammaBumpRelative)
	setFloat("ATM_DELTA_TIE_BREAK", &cfg.Greeks.ATMDeltaTieBreak)

	setFloat("VOL_LOWER", &cfg.Solver.VolLower)
	setFloat("VOL_UPPER", &cfg.Solver.VolUpper)
	setFloat("PRICE_TOLERANCE", &cfg.Solver.PriceTolerance)
	setInt("MAX_ITERATIONS", &cfg.Solver.MaxIterations)

	setInt("WORKERS", &cfg.Batch.Workers)
	setInt("CHUNK_SIZE", &cfg.Batch.ChunkSize)
	setInt("MIN_BATCH", &cfg.Batch.MinBatch)

	setFloat("RISK_HORIZON", &cfg.Risk.Horizon)
	setInt("RISK_STEPS", &cfg.Risk.Steps)
	setInt("RISK_PATHS", &cfg.Risk.Paths)
	setUint("RISK_SEED", &cfg.Risk.Seed)
	setFloat("RISK_CONFIDENCE", &cfg.Risk.Confidence)

	setString("LOG_LEVEL", &cfg.Log.Level)
	setBool("LOG_PRETTY", &cfg.Log.Pretty)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
