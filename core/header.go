package core

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/huangsam/simchange/internal/contract"
)

// logDetectHeader prints a concise, 2-line header before a detection.
func logDetectHeader(w io.Writer, cfg *contract.Config, numSeries, numFrames int) {
	name := filepath.Base(cfg.DataPath)
	if name == "" || name == "." {
		name = "input"
	}
	_, _ = fmt.Fprintf(w, "🔎 Data: %s (%d series x %d frames)\n", name, numSeries, numFrames)
	_, _ = fmt.Fprintf(w, "⚙️  lam=%g alpha=%g beta=%g lam-min=%g groups=%d workers=%d\n",
		cfg.Lam, cfg.Alpha, cfg.Beta, cfg.LamMin, groupCount(cfg, numSeries), cfg.Workers)
}

// logSweepHeader prints the header of a lambda sweep.
func logSweepHeader(w io.Writer, cfg *contract.Config, numSeries, numFrames int) {
	name := filepath.Base(cfg.DataPath)
	if name == "" || name == "." {
		name = "input"
	}
	_, _ = fmt.Fprintf(w, "🔎 Data: %s (%d series x %d frames)\n", name, numSeries, numFrames)
	_, _ = fmt.Fprintf(w, "📈 Sweep: %d lam values %v\n", len(cfg.Lams), cfg.Lams)
}

// groupCount reports how many groups a run uses. No groups means one group of everything.
func groupCount(cfg *contract.Config, numSeries int) int {
	if len(cfg.Groups) == 0 && numSeries > 0 {
		return 1
	}
	return len(cfg.Groups)
}
