package contract

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/simchange/schema"
)

// Default values for configuration.
const (
	DefaultWorkers   = 1
	DefaultPrecision = 2
	MaxPrecision     = 6
	MaxWorkers       = 1024
	MaxSeriesIndex   = 1 << 20
)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for a detection.
// This struct remains the "final, validated" config.
type Config struct {
	DataPath string
	Layout   schema.DataLayout

	Lam      float64
	Alpha    float64
	Beta     float64
	LamMin   float64
	Groups   [][]int  // nil means one group with every series
	Seeds    []uint64 // nil means the series index
	MaxIters int
	Workers  int
	Verbose  bool

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int      // Terminal width override (0 = auto-detect)
	UseColors  bool     // Enable colored labels in table output
	Labels     []string // keep only these series in the output

	Lams          []float64 // sweep values, empty outside sweep
	TargetTimes   int       // select the sweep entry closest to this many change times
	TargetChanges int       // select the sweep entry closest to this many changes

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	RunsBackend   schema.DatabaseBackend
	RunsDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	DataPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Lam            float64 `mapstructure:"lam"`
	Alpha          float64 `mapstructure:"alpha"`
	Beta           float64 `mapstructure:"beta"`
	LamMin         float64 `mapstructure:"lam-min"`
	Groups         string  `mapstructure:"groups"`
	Seeds          string  `mapstructure:"seeds"`
	MaxIters       int     `mapstructure:"max-iters"`
	Workers        int     `mapstructure:"workers"`
	Verbose        bool    `mapstructure:"verbose"`
	Layout         string  `mapstructure:"layout"`
	Output         string  `mapstructure:"output"`
	OutputFile     string  `mapstructure:"output-file"`
	Precision      int     `mapstructure:"precision"`
	Width          int     `mapstructure:"width"`
	Color          string  `mapstructure:"color"`
	Labels         string  `mapstructure:"labels"`
	CacheBackend   string  `mapstructure:"cache-backend"`
	CacheDBConnect string  `mapstructure:"cache-db-connect"`
	RunsBackend    string  `mapstructure:"runs-backend"`
	RunsDBConnect  string  `mapstructure:"runs-db-connect"`

	// --- Fields from sweepCmd.Flags() ---
	Lams          string `mapstructure:"lams"`
	TargetTimes   int    `mapstructure:"target-times"`
	TargetChanges int    `mapstructure:"target-changes"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Groups != nil {
		clone.Groups = make([][]int, len(c.Groups))
		for g, members := range c.Groups {
			clone.Groups[g] = slices.Clone(members)
		}
	}
	clone.Seeds = slices.Clone(c.Seeds)
	clone.Labels = slices.Clone(c.Labels)
	clone.Lams = slices.Clone(c.Lams)
	return &clone
}

// CloneWithLam creates a copy of the Config with a different penalty scale.
func (c *Config) CloneWithLam(lam float64) *Config {
	clone := c.Clone()
	clone.Lam = lam
	return clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processPenaltyParams(cfg, input); err != nil {
		return err
	}
	if err := processSweep(cfg, input); err != nil {
		return err
	}
	return validateBackendConfigs(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseBackend validates a backend name. An empty name is allowed and means unset.
func ParseBackend(name string) (schema.DatabaseBackend, error) {
	backend := schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(name)))
	if backend == "" {
		return "", nil
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql, none", name)
	}
	return backend, nil
}

// validateBackendConfigs validates cache and run store backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	var err error
	if cfg.CacheBackend, err = ParseBackend(input.CacheBackend); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	if cfg.RunsBackend, err = ParseBackend(input.RunsBackend); err != nil {
		return fmt.Errorf("runs: %w", err)
	}
	if cfg.RunsBackend == "" {
		return nil
	}
	cfg.RunsDBConnect = input.RunsDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RunsBackend, cfg.RunsDBConnect); err != nil {
		return err
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.RunsBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		runsPath := cfg.RunsDBConnect
		if runsPath == "" {
			runsPath = GetRunsDBFilePath()
		}
		if cachePath == runsPath {
			return fmt.Errorf("cache and run storage must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the data, loop and output fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.DataPath = strings.TrimSpace(input.DataPathStr)
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Verbose = input.Verbose

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.MaxIters < 1 {
		return fmt.Errorf("max-iters must be at least 1 (received %d)", input.MaxIters)
	}
	cfg.MaxIters = input.MaxIters

	if input.Workers <= 0 || input.Workers > MaxWorkers {
		return fmt.Errorf("workers must be greater than 0 and cannot exceed %d (received %d)", MaxWorkers, input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 0 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 0 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	cfg.Layout = schema.DataLayout(strings.ToLower(input.Layout))
	if cfg.Layout == "" {
		cfg.Layout = schema.SeriesPerRow
	}
	if _, ok := schema.ValidDataLayouts[cfg.Layout]; !ok {
		return fmt.Errorf("invalid layout '%s'. must be series, frames", input.Layout)
	}

	cfg.Labels = ParseLabels(input.Labels)
	return nil
}

// processPenaltyParams validates the penalty scale, the exponents and the group structure.
func processPenaltyParams(cfg *Config, input *ConfigRawInput) error {
	if err := validatePenalties(input.Lam, input.Alpha, input.Beta, input.LamMin); err != nil {
		return err
	}
	cfg.Lam, cfg.Alpha, cfg.Beta, cfg.LamMin = input.Lam, input.Alpha, input.Beta, input.LamMin

	groups, err := ParseGroups(input.Groups)
	if err != nil {
		return fmt.Errorf("invalid --groups: %w", err)
	}
	cfg.Groups = groups

	seeds, err := ParseSeeds(input.Seeds)
	if err != nil {
		return fmt.Errorf("invalid --seeds: %w", err)
	}
	cfg.Seeds = seeds
	return nil
}

func validatePenalties(lam, alpha, beta, lamMin float64) error {
	if !(lam > 0) || math.IsInf(lam, 0) {
		return fmt.Errorf("lam must be positive (received %v)", lam)
	}
	if !(alpha > 0 && alpha <= 1) {
		return fmt.Errorf("alpha must be in (0, 1] (received %v)", alpha)
	}
	if !(beta > 0 && beta <= 1) {
		return fmt.Errorf("beta must be in (0, 1] (received %v)", beta)
	}
	if !(lamMin >= 0) || math.IsInf(lamMin, 0) {
		return fmt.Errorf("lam-min must be non-negative (received %v)", lamMin)
	}
	return nil
}

// processSweep handles the multi-lambda sweep parameters.
func processSweep(cfg *Config, input *ConfigRawInput) error {
	lams, err := ParseFloatList(input.Lams)
	if err != nil {
		return fmt.Errorf("invalid --lams: %w", err)
	}
	cfg.Lams = lams
	cfg.TargetTimes = input.TargetTimes
	cfg.TargetChanges = input.TargetChanges
	return validateSweep(cfg)
}

func validateSweep(cfg *Config) error {
	for _, lam := range cfg.Lams {
		if !(lam > 0) || math.IsInf(lam, 0) {
			return fmt.Errorf("every sweep lam must be positive (received %v)", lam)
		}
	}
	if cfg.TargetTimes < 0 || cfg.TargetChanges < 0 {
		return fmt.Errorf("selection targets cannot be negative")
	}
	if cfg.TargetTimes > 0 && cfg.TargetChanges > 0 {
		return fmt.Errorf("--target-times and --target-changes are mutually exclusive")
	}
	return nil
}

// RevalidateDetect checks a config whose detection fields were overridden after
// ProcessAndValidate, as MCP tool calls do.
func RevalidateDetect(cfg *Config) error {
	if strings.TrimSpace(cfg.DataPath) == "" {
		return fmt.Errorf("a data path is required")
	}
	layout, ok := ValidDataLayout(cfg.Layout)
	if !ok {
		return fmt.Errorf("invalid layout '%s'. must be series, frames", cfg.Layout)
	}
	cfg.Layout = layout
	if err := validatePenalties(cfg.Lam, cfg.Alpha, cfg.Beta, cfg.LamMin); err != nil {
		return err
	}
	if cfg.MaxIters < 1 {
		return fmt.Errorf("max-iters must be at least 1 (received %d)", cfg.MaxIters)
	}
	return validateSweep(cfg)
}

// ValidDataLayout normalizes a layout name and reports whether it is supported.
func ValidDataLayout(layout schema.DataLayout) (schema.DataLayout, bool) {
	layout = schema.DataLayout(strings.ToLower(strings.TrimSpace(string(layout))))
	_, ok := schema.ValidDataLayouts[layout]
	return layout, ok
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// ParseGroups parses a group specification such as "0-4;5,7;2,8-9".
// Groups are separated by ';', members by ',', and "a-b" is an inclusive range.
// An empty string returns nil, meaning a single group of every series.
func ParseGroups(s string) ([][]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var groups [][]int
	for part := range strings.SplitSeq(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var members []int
		for item := range strings.SplitSeq(part, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			lo, hi, err := parseRange(item)
			if err != nil {
				return nil, err
			}
			for i := lo; i <= hi; i++ {
				members = append(members, i)
			}
		}
		slices.Sort(members)
		members = slices.Compact(members)
		if len(members) == 0 {
			return nil, fmt.Errorf("empty group in %q", s)
		}
		groups = append(groups, members)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no groups in %q", s)
	}
	return groups, nil
}

func parseRange(item string) (int, int, error) {
	loStr, hiStr, isRange := strings.Cut(item, "-")
	lo, err := strconv.Atoi(strings.TrimSpace(loStr))
	if err != nil || lo < 0 || lo > MaxSeriesIndex {
		return 0, 0, fmt.Errorf("invalid series index '%s'", item)
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := strconv.Atoi(strings.TrimSpace(hiStr))
	if err != nil || hi < lo || hi > MaxSeriesIndex {
		return 0, 0, fmt.Errorf("invalid series range '%s'", item)
	}
	return lo, hi, nil
}

// ParseSeeds parses a comma-separated list of unsigned seeds.
func ParseSeeds(s string) ([]uint64, error) {
	var seeds []uint64
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed '%s': %w", part, err)
		}
		seeds = append(seeds, v)
	}
	return seeds, nil
}

// ParseFloatList parses a comma-separated list of floats.
func ParseFloatList(s string) ([]float64, error) {
	var out []float64
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number '%s': %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseLabels splits a comma-separated label list, dropping blanks.
func ParseLabels(s string) []string {
	var labels []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			labels = append(labels, part)
		}
	}
	return labels
}
