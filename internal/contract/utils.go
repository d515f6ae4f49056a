package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/simchange/schema"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Color variables for console output.
var (
	ConvergedColor = color.New(color.FgGreen, color.Bold) // ConvergedColor marks a fixed point.
	MaxItersColor  = color.New(color.FgYellow)            // MaxItersColor marks a run that hit its iteration limit.
	EmptyColor     = color.New(color.FgCyan)              // EmptyColor marks a run where nothing changed.
	warnColor      = color.New(color.FgYellow, color.Bold)
	fatalColor     = color.New(color.FgRed, color.Bold)
)

// GetColorStatus returns a colored run status for console output (table).
func GetColorStatus(status schema.RunStatus) string {
	text := string(status)
	switch status {
	case schema.StatusConverged:
		return ConvergedColor.Sprint(text)
	case schema.StatusMaxIters:
		return MaxItersColor.Sprint(text)
	default:
		return EmptyColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It returns os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "%s %s: %v\n", fatalColor.Sprint("Fatal"), msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "%s %s: %v\n", warnColor.Sprint("Warn"), msg, err)
}

// NewLogger returns the engine progress logger. Verbose runs log at info level
// to stderr in development format; otherwise logging is discarded.
func NewLogger(verbose bool) *zap.SugaredLogger {
	if !verbose {
		return zap.NewNop().Sugar()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		LogWarn("Cannot build logger, progress is disabled", err)
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// GetCacheDBFilePath returns the path to the SQLite DB file for result caching.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".simchange_cache.db"
	}
	return filepath.Join(homeDir, ".simchange_cache.db")
}

// GetRunsDBFilePath returns the path to the SQLite DB file for run tracking.
func GetRunsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".simchange_runs.db"
	}
	return filepath.Join(homeDir, ".simchange_runs.db")
}

// TruncateLabel truncates a series label to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and at least one character.
func TruncateLabel(label string, maxWidth int) string {
	runes := []rune(label)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return label
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
