package detect

import (
	"fmt"
	"math"

	"github.com/huangsam/simchange/core/algo"
	"github.com/huangsam/simchange/schema"
	"go.uber.org/zap"
)

// Params configures one detection run.
type Params struct {
	Lam      float64     // penalty scale, > 0
	Alpha    float64     // cross-group exponent in (0, 1]
	Beta     float64     // within-group exponent in (0, 1]
	LamMin   float64     // floor for iteration-0 penalties, 0 disables it
	Groups   [][]int     // nil means one group with every series
	Seeds    []uint64    // per-series RNG seeds, nil means the series index
	MaxIters int         // 0 means schema.DefaultMaxIters
	Workers  int         // 0 means 1
	Oracle   algo.Oracle // nil means algo.LaplaceOracle
	Logger   *zap.SugaredLogger
}

// DefaultParams returns the parameters used when nothing else is configured.
func DefaultParams() Params {
	return Params{
		Lam:      schema.DefaultLam,
		Alpha:    schema.DefaultAlpha,
		Beta:     schema.DefaultBeta,
		LamMin:   schema.DefaultLamMin,
		MaxIters: schema.DefaultMaxIters,
		Workers:  1,
	}
}

// Summary returns the serializable part of the parameters.
func (p Params) Summary() schema.DetectionParams {
	return schema.DetectionParams{
		Lam:      p.Lam,
		Alpha:    p.Alpha,
		Beta:     p.Beta,
		LamMin:   p.LamMin,
		MaxIters: p.MaxIters,
	}
}

func (p Params) withDefaults() Params {
	if p.MaxIters == 0 {
		p.MaxIters = schema.DefaultMaxIters
	}
	if p.Workers == 0 {
		p.Workers = 1
	}
	if p.Oracle == nil {
		p.Oracle = algo.LaplaceOracle{}
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop().Sugar()
	}
	return p
}

// validate checks everything that can be checked before a run starts.
func (p Params) validate(numSeries, numFrames int) error {
	switch {
	case numSeries < 1:
		return fmt.Errorf("%w: no series to analyze", ErrConfiguration)
	case numFrames < 2:
		return fmt.Errorf("%w: need at least 2 frames, got %d", ErrConfiguration, numFrames)
	case !(p.Lam > 0) || math.IsInf(p.Lam, 0):
		return fmt.Errorf("%w: lam must be positive and finite, got %v", ErrConfiguration, p.Lam)
	case !(p.Alpha > 0 && p.Alpha <= 1):
		return fmt.Errorf("%w: alpha must be in (0,1], got %v", ErrConfiguration, p.Alpha)
	case !(p.Beta > 0 && p.Beta <= 1):
		return fmt.Errorf("%w: beta must be in (0,1], got %v", ErrConfiguration, p.Beta)
	case !(p.LamMin >= 0) || math.IsInf(p.LamMin, 0):
		return fmt.Errorf("%w: lam-min must be non-negative, got %v", ErrConfiguration, p.LamMin)
	case p.MaxIters < 1:
		return fmt.Errorf("%w: max-iters must be at least 1, got %d", ErrConfiguration, p.MaxIters)
	case p.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrConfiguration, p.Workers)
	case len(p.Seeds) != 0 && len(p.Seeds) != numSeries:
		return fmt.Errorf("%w: got %d seeds for %d series", ErrConfiguration, len(p.Seeds), numSeries)
	}
	return nil
}

func (p Params) seed(i int) uint64 {
	if len(p.Seeds) == 0 {
		return uint64(i)
	}
	return p.Seeds[i]
}
