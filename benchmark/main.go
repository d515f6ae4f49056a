// Package main provides a performance benchmarking tool for the simchange CLI.
// It generates synthetic datasets of increasing size, then times detect and sweep
// runs on each, treating the first successful cached run as cold and averaging
// the rest as warm. Results are written as CSV for performance tracking.
//
// Prerequisites:
// - simchange binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory for the generated datasets and cache files
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset     string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// DatasetSpec describes one synthetic dataset.
type DatasetSpec struct {
	Name      string
	NumSeries int
	NumFrames int
	Changes   int // number of shared change times
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	Datasets    []DatasetSpec
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		Workers:     8,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Datasets: []DatasetSpec{
			{Name: "small", NumSeries: 20, NumFrames: 200, Changes: 3},
			{Name: "medium", NumSeries: 200, NumFrames: 1000, Changes: 8},
			{Name: "large", NumSeries: 1000, NumFrames: 5000, Changes: 20},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the simchange binary exists and the work dir is usable
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("simchange"); err != nil {
		return fmt.Errorf("simchange binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// generateDataset writes a series-per-row CSV where the first half of the series
// shift together at evenly spaced times and the rest is noise.
func generateDataset(ds DatasetSpec, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(uint64(ds.NumSeries), uint64(ds.NumFrames))}
	writer := csv.NewWriter(file)
	defer writer.Flush()

	step := ds.NumFrames / (ds.Changes + 1)
	record := make([]string, ds.NumFrames+1)
	for i := range ds.NumSeries {
		record[0] = fmt.Sprintf("s%04d", i)
		level := 0.0
		for k := range ds.NumFrames {
			if i < ds.NumSeries/2 && k > 0 && k%step == 0 {
				level += 3
			}
			record[k+1] = strconv.FormatFloat(level+noise.Rand(), 'g', 8, 64)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write series %d: %w", i, err)
		}
	}
	return nil
}

// runBenchmarks executes all benchmark tests across configured datasets
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Datasets), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, ds := range config.Datasets {
		fmt.Printf("Benchmarking %s (%d series x %d frames)\n", ds.Name, ds.NumSeries, ds.NumFrames)

		csvPath := filepath.Join(config.WorkDir, ds.Name+".csv")
		if err := generateDataset(ds, csvPath); err != nil {
			fmt.Printf("  Skipping %s: %v\n", ds.Name, err)
			continue
		}
		parquetPath := filepath.Join(config.WorkDir, ds.Name+".parquet")
		if output, err := exec.Command("simchange", "convert", csvPath, "--output-file", parquetPath).CombinedOutput(); err != nil {
			fmt.Printf("  Skipping %s: convert failed: %v\nOutput: %s\n", ds.Name, err, string(output))
			continue
		}

		results = append(results,
			runBenchmarkSuite(config, ds.Name, "detect", []string{csvPath}),
			runBenchmarkSuite(config, ds.Name, "detect-parquet", []string{parquetPath}),
			runBenchmarkSuite(config, ds.Name, "sweep", []string{csvPath, "--lams", "8,16,32,64", "--target-times", strconv.Itoa(ds.Changes)}),
		)
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, dataset, label string, args []string) BenchmarkResult {
	command := strings.TrimSuffix(label, "-parquet")
	fmt.Printf("Running %s on %s\n", label, dataset)

	cacheFile := filepath.Join(config.WorkDir, fmt.Sprintf("%s-%s.cache.db", dataset, label))
	_ = os.Remove(cacheFile)

	runPhase := func(cacheArgs []string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		fullArgs := append(append([]string{command}, args...), cacheArgs...)
		fullArgs = append(fullArgs, "--workers", strconv.Itoa(config.Workers), "--color", "no")
		cold, times := runBenchmark(config, command, fullArgs, numRuns)
		if len(times) == 0 {
			return cold, "TIMEOUT"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase([]string{"--cache-backend", "none"}, config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs
	coldTime, warmAvg := runPhase([]string{"--cache-backend", "sqlite", "--cache-db-connect", cacheFile}, config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:     dataset,
		Command:     label,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a simchange command multiple times and returns cold time and warm times.
// With no cache every run costs the same, so the cold time is only reported for cached runs.
func runBenchmark(config BenchmarkConfig, command string, args []string, numRuns int) (coldTime float64, warmTimes []float64) {
	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "simchange", args...).CombinedOutput()
		elapsed := time.Since(start).Seconds()
		cancel()

		if err == nil && isSuccess(output, command) {
			times = append(times, elapsed)
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte, command string) bool {
	outputStr := string(output)
	completionPhrase := "Detection completed in"
	if command == "sweep" {
		completionPhrase = "values completed in"
	}
	return strings.Contains(outputStr, completionPhrase) && strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("simchange_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"dataset", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Dataset, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range []string{"detect", "detect-parquet", "sweep"} {
		fmt.Printf("%s:\n", command)
		for _, result := range results {
			if result.Command == command {
				fmt.Printf("  %-8s: No-cache: %s, Cold: %s, Warm: %s\n", result.Dataset, result.NoCacheTime, result.ColdTime, result.WarmTime)
			}
		}
	}
}
