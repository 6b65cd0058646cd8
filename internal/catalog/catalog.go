// Package catalog persists a record of every finished computation to a
// SQLite database so operators can list prior runs and the HTTP API can
// serve them without recomputing.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wetlandtools/hydroperiod/pkg/migrate"
	_ "modernc.org/sqlite"
)

// IF NOT EXISTS keeps catalogs created before schema versioning usable.
var migrations = []migrate.Migration{
	{
		Version: 1,
		Name:    "create runs",
		Up: `CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			input_dir TEXT NOT NULL,
			sample_count INTEGER NOT NULL,
			start_date TEXT,
			end_date TEXT,
			span_days INTEGER NOT NULL DEFAULT 0,
			rows INTEGER NOT NULL,
			cols INTEGER NOT NULL,
			policy TEXT NOT NULL,
			total_pixels INTEGER NOT NULL,
			invalid_pixels INTEGER NOT NULL,
			never_wet_pixels INTEGER NOT NULL,
			wet_pixels INTEGER NOT NULL,
			min_days REAL NOT NULL DEFAULT 0,
			max_days REAL NOT NULL DEFAULT 0,
			mean_days REAL NOT NULL DEFAULT 0,
			stddev_days REAL NOT NULL DEFAULT 0,
			median_days REAL NOT NULL DEFAULT 0,
			raster_path TEXT,
			visualization_path TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
		Down: `DROP INDEX IF EXISTS idx_runs_created_at;
		DROP TABLE IF EXISTS runs`,
	},
}

// ErrNotFound reports a run ID absent from the catalog.
var ErrNotFound = errors.New("run not found")

// Run is one catalog record: the input window, the policy applied, and the
// summary of the finished duration raster, plus where its artifacts were
// written.
type Run struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	InputDir    string    `json:"input_dir"`
	SampleCount int       `json:"sample_count"`
	StartDate   string    `json:"start_date,omitempty"`
	EndDate     string    `json:"end_date,omitempty"`
	SpanDays    int       `json:"span_days"`
	Rows        int       `json:"rows"`
	Cols        int       `json:"cols"`
	Policy      string    `json:"policy"`

	TotalPixels   int `json:"total_pixels"`
	InvalidPixels int `json:"invalid_pixels"`
	NeverWet      int `json:"never_wet_pixels"`
	WetPixels     int `json:"wet_pixels"`

	MinDays    float64 `json:"min_days"`
	MaxDays    float64 `json:"max_days"`
	MeanDays   float64 `json:"mean_days"`
	StdDevDays float64 `json:"stddev_days"`
	MedianDays float64 `json:"median_days"`

	RasterPath        string `json:"raster_path,omitempty"`
	VisualizationPath string `json:"visualization_path,omitempty"`
}

// Catalog wraps the runs database.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}

	c := &Catalog{db: db}
	if err := migrate.New(db, migrations).Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return c, nil
}

// Close closes the database connection
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// RecordRun inserts a run record, assigning a fresh UUID and timestamp when
// the caller left them empty. The assigned values are written back into run.
func (c *Catalog) RecordRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO runs (
			id, created_at, input_dir, sample_count, start_date, end_date,
			span_days, rows, cols, policy,
			total_pixels, invalid_pixels, never_wet_pixels, wet_pixels,
			min_days, max_days, mean_days, stddev_days, median_days,
			raster_path, visualization_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(query,
		run.ID, run.CreatedAt.Format(time.RFC3339), run.InputDir, run.SampleCount,
		nullString(run.StartDate), nullString(run.EndDate),
		run.SpanDays, run.Rows, run.Cols, run.Policy,
		run.TotalPixels, run.InvalidPixels, run.NeverWet, run.WetPixels,
		run.MinDays, run.MaxDays, run.MeanDays, run.StdDevDays, run.MedianDays,
		nullString(run.RasterPath), nullString(run.VisualizationPath),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}
	return nil
}

const runColumns = `
	id, created_at, input_dir, sample_count, start_date, end_date,
	span_days, rows, cols, policy,
	total_pixels, invalid_pixels, never_wet_pixels, wet_pixels,
	min_days, max_days, mean_days, stddev_days, median_days,
	raster_path, visualization_path
`

// GetRun retrieves a single run by ID.
func (c *Catalog) GetRun(id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`
	run, err := scanRun(c.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns runs newest first, at most limit of them; limit <= 0
// means no cap.
func (c *Catalog) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recent record, or ErrNotFound on an empty
// catalog.
func (c *Catalog) LatestRun() (*Run, error) {
	runs, err := c.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	return &runs[0], nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt string
	var startDate, endDate, rasterPath, visualizationPath sql.NullString

	err := row.Scan(
		&run.ID, &createdAt, &run.InputDir, &run.SampleCount, &startDate, &endDate,
		&run.SpanDays, &run.Rows, &run.Cols, &run.Policy,
		&run.TotalPixels, &run.InvalidPixels, &run.NeverWet, &run.WetPixels,
		&run.MinDays, &run.MaxDays, &run.MeanDays, &run.StdDevDays, &run.MedianDays,
		&rasterPath, &visualizationPath,
	)
	if err != nil {
		return nil, err
	}

	run.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	run.StartDate = startDate.String
	run.EndDate = endDate.String
	run.RasterPath = rasterPath.String
	run.VisualizationPath = visualizationPath.String
	return &run, nil
}

// nullString converts empty strings to NULL for storage
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
