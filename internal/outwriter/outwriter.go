// Package outwriter has output and writer logic.
package outwriter

import (
	"os"
	"time"

	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
type OutWriter struct{}

var _ contract.ResultWriter = &OutWriter{} // Compile-time check

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteDetection prints a detection result using the configured output format.
func (ow *OutWriter) WriteDetection(result *schema.DetectionResult, labels []string, cfg *contract.Config, duration time.Duration) error {
	return WriteDetectionResult(result, labels, cfg, duration)
}

// WriteSweep prints a lambda sweep using the configured output format.
func (ow *OutWriter) WriteSweep(sweep *schema.SweepResult, labels []string, cfg *contract.Config, duration time.Duration) error {
	return WriteSweepResult(sweep, labels, cfg, duration)
}

// getMaxTableLabelWidth calculates the maximum width of the series column in
// table output based on terminal width.
func getMaxTableLabelWidth(cfg *contract.Config) int {
	termWidth := cfg.Width
	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Time + Count columns plus borders and padding
	available := termWidth - 30
	if available < 15 {
		return 15
	}
	if available > 100 {
		return 100
	}
	return available
}
