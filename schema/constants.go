package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// RunStatus represents how a detection run ended.
	RunStatus string

	// DataLayout represents how a text matrix maps onto series and frames.
	DataLayout string

	// DatabaseBackend represents the database backend for caching and run tracking.
	DatabaseBackend string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All run statuses.
const (
	StatusConverged RunStatus = "converged" // fixed point or cycle
	StatusEmpty     RunStatus = "empty"     // no change survived
	StatusMaxIters  RunStatus = "max_iters" // stopped without a fixed point
)

// All data layouts supported.
const (
	SeriesPerRow DataLayout = "series" // default
	FramesPerRow DataLayout = "frames"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Defaults for the detection parameters.
const (
	DefaultLam      = 32.0
	DefaultAlpha    = 0.7
	DefaultBeta     = 1.0
	DefaultLamMin   = 8.0
	DefaultMaxIters = 100
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDataLayouts lists all valid data layouts.
var ValidDataLayouts = map[DataLayout]struct{}{
	SeriesPerRow: {},
	FramesPerRow: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
