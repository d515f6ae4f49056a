package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/schema"
)

// Table names for run tracking.
const (
	runsTable    = "simchange_runs"
	changesTable = "simchange_changes"
)

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore opens the run store for the backend and makes sure its tables exist.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (contract.RunStore, error) {
	if backend == schema.NoneBackend {
		return &RunStoreImpl{backend: backend}, nil
	}

	db, err := openDatabase(backend, connStr, contract.GetRunsDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := createRunTables(db, backend); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &RunStoreImpl{db: db, backend: backend}, nil
}

// createRunTables applies every up migration of the backend directly.
// The statements are idempotent, so a later migrate run on the same database is a no-op.
func createRunTables(db *sql.DB, backend schema.DatabaseBackend) error {
	dir := path.Join("migrations", string(backend))
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations for %s: %w", backend, err)
	}

	var ups []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			ups = append(ups, entry.Name())
		}
	}
	sort.Slice(ups, func(i, j int) bool { return migrationVersion(ups[i]) < migrationVersion(ups[j]) })

	for _, name := range ups {
		query, err := fs.ReadFile(migrationsFS, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(query)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
	}
	return nil
}

// migrationVersion extracts the numeric prefix of a migration file name.
func migrationVersion(name string) int {
	var v int
	_, _ = fmt.Sscanf(name, "%d_", &v)
	return v
}

// BeginRun inserts a run row and returns its ID.
func (rs *RunStoreImpl) BeginRun(startTime time.Time, numSeries, numFrames int, params schema.DetectionParams, configParams map[string]any) (int64, error) {
	if rs.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	columns := "run_uuid, start_time, num_series, num_frames, lam, alpha, beta, lam_min, config_params"
	args := []any{
		uuid.NewString(), formatTime(startTime, rs.backend), numSeries, numFrames,
		params.Lam, params.Alpha, params.Beta, params.LamMin, string(configJSON),
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteTableName(runsTable, rs.backend), columns, placeholderList(rs.backend, len(args)))

	var runID int64
	switch rs.backend {
	case schema.PostgreSQLBackend:
		err = rs.db.QueryRow(query+" RETURNING run_id", args...).Scan(&runID)
	default: // SQLite and MySQL
		var result sql.Result
		result, err = rs.db.Exec(query, args...)
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// EndRun records how the run finished.
func (rs *RunStoreImpl) EndRun(runID int64, endTime time.Time, result *schema.DetectionResult) error {
	if rs.db == nil {
		return nil
	}
	if result == nil {
		return fmt.Errorf("run %d has no result", runID)
	}

	query := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, iterations = %s, status = %s, change_times = %s, total_changes = %s WHERE run_id = %s`,
		quoteTableName(runsTable, rs.backend),
		placeholder(rs.backend, 1), placeholder(rs.backend, 2), placeholder(rs.backend, 3),
		placeholder(rs.backend, 4), placeholder(rs.backend, 5), placeholder(rs.backend, 6),
		placeholder(rs.backend, 7))

	res, err := rs.db.Exec(query,
		formatTime(endTime, rs.backend),
		result.Elapsed.Milliseconds(),
		result.Iterations,
		string(result.Status),
		len(result.Changes),
		result.Changes.NumChanges(),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run %d: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %d not found", runID)
	}
	return nil
}

// RecordChanges stores one row per (time, series) pair in a single transaction.
func (rs *RunStoreImpl) RecordChanges(runID int64, changes []schema.LabeledChange) error {
	if rs.db == nil || len(changes) == 0 {
		return nil
	}

	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf("INSERT INTO %s (run_id, change_time, series_index, series_label) VALUES (%s)",
		quoteTableName(changesTable, rs.backend), placeholderList(rs.backend, 4))
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare change insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, change := range changes {
		for k, series := range change.Series {
			label := ""
			if k < len(change.Labels) {
				label = change.Labels[k]
			}
			if _, err := stmt.Exec(runID, change.Time, series, label); err != nil {
				return fmt.Errorf("failed to record change (%d, %d): %w", change.Time, series, err)
			}
		}
	}

	return tx.Commit()
}

// Close closes the underlying DB connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns run counts, run age bounds and per-table row counts.
func (rs *RunStoreImpl) GetStatus() (schema.RunsStatus, error) {
	status := schema.RunsStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.db == nil {
		return status, nil
	}

	runs := quoteTableName(runsTable, rs.backend)
	if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		last := timeColumn{backend: rs.backend}
		row := rs.db.QueryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", runs))
		if err := row.Scan(&status.LastRunID, last.dest()); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		lastTime, err := last.value()
		if err != nil {
			return status, err
		}
		if lastTime != nil {
			status.LastRunTime = *lastTime
		}

		oldest := timeColumn{backend: rs.backend}
		row = rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runs))
		if err := row.Scan(oldest.dest()); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		oldestTime, err := oldest.value()
		if err != nil {
			return status, err
		}
		if oldestTime != nil {
			status.OldestRunTime = *oldestTime
		}
	}

	for _, table := range []string{runsTable, changesTable} {
		var count int64
		if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, rs.backend))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalChanges = int(status.TableSizes[changesTable])

	return status, nil
}

// GetAllRuns returns every run ordered by ID.
func (rs *RunStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, run_uuid, start_time, end_time, run_duration_ms, num_series, num_frames,
		lam, alpha, beta, lam_min, iterations, status, change_times, total_changes, config_params
		FROM %s ORDER BY run_id`, quoteTableName(runsTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []schema.RunRecord
	for rows.Next() {
		var (
			rec                                         schema.RunRecord
			duration, iterations, changeTimes, totalChg sql.NullInt32
			status, configParams                        sql.NullString
		)
		start := timeColumn{backend: rs.backend}
		end := timeColumn{backend: rs.backend}

		if err := rows.Scan(&rec.RunID, &rec.RunUUID, start.dest(), end.dest(), &duration,
			&rec.NumSeries, &rec.NumFrames, &rec.Lam, &rec.Alpha, &rec.Beta, &rec.LamMin,
			&iterations, &status, &changeTimes, &totalChg, &configParams); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		startTime, err := start.value()
		if err != nil {
			return nil, err
		}
		if startTime != nil {
			rec.StartTime = *startTime
		}
		if rec.EndTime, err = end.value(); err != nil {
			return nil, err
		}
		rec.RunDurationMs = nullInt32(duration)
		rec.Iterations = nullInt32(iterations)
		rec.ChangeTimes = nullInt32(changeTimes)
		rec.TotalChanges = nullInt32(totalChg)
		rec.Status = nullString(status)
		rec.ConfigParams = nullString(configParams)

		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetAllChanges returns every recorded change ordered by run, time and series.
func (rs *RunStoreImpl) GetAllChanges() ([]schema.ChangeRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, change_time, series_index, series_label FROM %s
		ORDER BY run_id, change_time, series_index`, quoteTableName(changesTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []schema.ChangeRecord
	for rows.Next() {
		var rec schema.ChangeRecord
		if err := rows.Scan(&rec.RunID, &rec.ChangeTime, &rec.SeriesIndex, &rec.SeriesLabel); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullInt32(v sql.NullInt32) *int32 {
	if !v.Valid {
		return nil
	}
	return &v.Int32
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
