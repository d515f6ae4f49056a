// Package core has core logic for running detections, sweeps and result selection.
package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/simchange/core/detect"
	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/internal/dataset"
	"github.com/huangsam/simchange/internal/outwriter"
	"github.com/huangsam/simchange/schema"
	"go.uber.org/zap"
)

// ExecutorFunc defines the function signature for executing different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// headerWriter receives the detection headers. Results go to stdout, headers to stderr.
var headerWriter io.Writer = os.Stderr

// ExecuteDetect runs one detection on cfg.DataPath and prints the result.
func ExecuteDetect(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	return executeDetect(ctx, cfg, mgr, outwriter.NewOutWriter())
}

func executeDetect(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, w contract.ResultWriter) error {
	start := time.Now()

	src, err := dataset.Open(cfg.DataPath, cfg.Layout)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	result, err := DetectChanges(ctx, cfg, src, mgr)
	if err != nil {
		return err
	}

	filtered, err := FilterChanges(result, src.Labels(), cfg.Labels)
	if err != nil {
		return err
	}
	return w.WriteDetection(filtered, src.Labels(), cfg, time.Since(start))
}

// ExecuteSweep runs one detection per lam in cfg.Lams and prints the sweep.
func ExecuteSweep(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	return executeSweep(ctx, cfg, mgr, outwriter.NewOutWriter())
}

func executeSweep(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, w contract.ResultWriter) error {
	start := time.Now()

	src, err := dataset.Open(cfg.DataPath, cfg.Layout)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	sweep, err := SweepChanges(ctx, cfg, src, mgr)
	if err != nil {
		return err
	}

	for i := range sweep.Entries {
		filtered, err := FilterChanges(sweep.Entries[i].Result, src.Labels(), cfg.Labels)
		if err != nil {
			return err
		}
		sweep.Entries[i].Result = filtered
	}
	return w.WriteSweep(sweep, src.Labels(), cfg, time.Since(start))
}

// DetectChanges runs one detection on src with result caching and run tracking
// when mgr provides the stores.
func DetectChanges(ctx context.Context, cfg *contract.Config, src contract.LabeledSource, mgr contract.CacheManager) (*schema.DetectionResult, error) {
	numSeries, numFrames := src.Shape()
	if !shouldSuppressHeader(ctx) {
		logDetectHeader(headerWriter, cfg, numSeries, numFrames)
	}

	logger := contract.NewLogger(cfg.Verbose)
	defer func() { _ = logger.Sync() }()

	if cfg.Verbose {
		logSeriesSummary(logger, src)
	}

	params := detectParams(cfg, logger)

	var results contract.CacheStore
	var runs contract.RunStore
	if mgr != nil {
		results = mgr.GetResultStore()
		runs = mgr.GetRunStore()
	}

	if runs == nil {
		return cachedDetect(ctx, src, params, results)
	}
	return trackedDetect(ctx, cfg, src, params, results, runs)
}

// detectParams maps the validated config onto engine parameters.
func detectParams(cfg *contract.Config, logger *zap.SugaredLogger) detect.Params {
	return detect.Params{
		Lam:      cfg.Lam,
		Alpha:    cfg.Alpha,
		Beta:     cfg.Beta,
		LamMin:   cfg.LamMin,
		Groups:   cfg.Groups,
		Seeds:    cfg.Seeds,
		MaxIters: cfg.MaxIters,
		Workers:  cfg.Workers,
		Logger:   logger,
	}
}

// trackedDetect records the run and its changes around a cached detection.
// Tracking failures are reported as warnings and never fail the detection.
func trackedDetect(ctx context.Context, cfg *contract.Config, src contract.LabeledSource, params detect.Params, results contract.CacheStore, runs contract.RunStore) (*schema.DetectionResult, error) {
	numSeries, numFrames := src.Shape()

	runID, err := runs.BeginRun(time.Now(), numSeries, numFrames, params.Summary(), runConfigParams(cfg))
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		runID = 0
	}
	if runID > 0 {
		params.Logger = params.Logger.With("run_id", runID)
	}

	result, err := cachedDetect(ctx, src, params, results)
	if err != nil {
		return nil, err
	}

	if runID > 0 {
		if err := runs.RecordChanges(runID, TranslateChanges(result.Changes, src.Labels())); err != nil {
			contract.LogWarn("Failed to record changes", err)
		}
		if err := runs.EndRun(runID, time.Now(), result); err != nil {
			contract.LogWarn("Failed to finalize run tracking", err)
		}
	}
	return result, nil
}

// runConfigParams captures the config that does not fit the run table columns.
func runConfigParams(cfg *contract.Config) map[string]any {
	return map[string]any{
		"data_path": cfg.DataPath,
		"layout":    string(cfg.Layout),
		"groups":    cfg.Groups,
		"seeds":     cfg.Seeds,
		"max_iters": cfg.MaxIters,
		"workers":   cfg.Workers,
	}
}

// logSeriesSummary logs the input shape and flags constant series, which never change.
func logSeriesSummary(logger *zap.SugaredLogger, src contract.LabeledSource) {
	summary, err := dataset.Describe(src)
	if err != nil {
		logger.Warnw("could not summarize input", "error", err)
		return
	}
	logger.Infow("input loaded", "series", summary.NumSeries, "frames", summary.NumFrames, "constant", summary.Constant)
	for _, s := range summary.Series {
		if s.Constant() {
			logger.Infow("constant series will not change", "series", s.Index, "label", schema.SeriesLabel(src.Labels(), s.Index))
		}
	}
}

// TranslateChanges converts a change set to label form using the given labels.
func TranslateChanges(changes schema.ChangeSet, labels []string) []schema.LabeledChange {
	return changes.Label(labels)
}

// FilterChanges keeps only the series named in keep. An empty keep returns result unchanged.
// Names that match no label are an error.
func FilterChanges(result *schema.DetectionResult, labels, keep []string) (*schema.DetectionResult, error) {
	if len(keep) == 0 {
		return result, nil
	}

	index := make(map[string]int, len(labels))
	for i := range result.NumSeries {
		index[schema.SeriesLabel(labels, i)] = i
	}

	wanted := make(map[int]struct{}, len(keep))
	for _, name := range keep {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("unknown series label %q", name)
		}
		wanted[i] = struct{}{}
	}

	filtered := *result
	filtered.Changes = result.Changes.Filter(func(i int) bool {
		_, ok := wanted[i]
		return ok
	})
	return &filtered, nil
}
