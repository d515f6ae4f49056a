package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/schema"
)

// SweepResultBuilder builds a lambda sweep using a builder pattern.
type SweepResultBuilder struct {
	ctx     context.Context
	cfg     *contract.Config
	src     contract.LabeledSource
	mgr     contract.CacheManager
	entries []schema.SweepEntry
	result  *schema.SweepResult
}

// NewSweepResultBuilder creates a new builder for sweep results.
func NewSweepResultBuilder(ctx context.Context, cfg *contract.Config, src contract.LabeledSource, mgr contract.CacheManager) *SweepResultBuilder {
	return &SweepResultBuilder{ctx: ctx, cfg: cfg, src: src, mgr: mgr}
}

// ValidatePrerequisites checks that there is something to sweep.
func (b *SweepResultBuilder) ValidatePrerequisites() (*SweepResultBuilder, error) {
	if len(b.cfg.Lams) == 0 {
		return nil, errors.New("sweep requires --lams, e.g. --lams 4,8,16,32")
	}
	if b.cfg.TargetTimes > 0 && b.cfg.TargetChanges > 0 {
		return nil, errors.New("--target-times and --target-changes are mutually exclusive")
	}
	return b, nil
}

// RunDetections runs one detection per lam, in the order given.
func (b *SweepResultBuilder) RunDetections() (*SweepResultBuilder, error) {
	numSeries, numFrames := b.src.Shape()
	if !shouldSuppressHeader(b.ctx) {
		logSweepHeader(headerWriter, b.cfg, numSeries, numFrames)
	}
	ctx := WithSuppressHeader(b.ctx)

	b.entries = make([]schema.SweepEntry, 0, len(b.cfg.Lams))
	for _, lam := range b.cfg.Lams {
		result, err := DetectChanges(ctx, b.cfg.CloneWithLam(lam), b.src, b.mgr)
		if err != nil {
			return nil, fmt.Errorf("sweep failed at lam %g: %w", lam, err)
		}
		b.entries = append(b.entries, schema.SweepEntry{Lam: lam, Result: result})
	}
	return b, nil
}

// SelectEntry picks the entry closest to the configured target, if any.
func (b *SweepResultBuilder) SelectEntry() *SweepResultBuilder {
	selected := -1
	switch {
	case b.cfg.TargetTimes > 0:
		selected = SelectByChangeTimes(b.entries, b.cfg.TargetTimes)
	case b.cfg.TargetChanges > 0:
		selected = SelectByChanges(b.entries, b.cfg.TargetChanges)
	}
	b.result = &schema.SweepResult{Entries: b.entries, Selected: selected}
	return b
}

// GetResult returns the built SweepResult.
func (b *SweepResultBuilder) GetResult() *schema.SweepResult {
	return b.result
}

// SweepChanges runs a full sweep over cfg.Lams on src.
func SweepChanges(ctx context.Context, cfg *contract.Config, src contract.LabeledSource, mgr contract.CacheManager) (*schema.SweepResult, error) {
	builder := NewSweepResultBuilder(ctx, cfg, src, mgr)
	if _, err := builder.ValidatePrerequisites(); err != nil {
		return nil, err
	}
	if _, err := builder.RunDetections(); err != nil {
		return nil, err
	}
	return builder.SelectEntry().GetResult(), nil
}
