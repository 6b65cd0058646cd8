package config

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/wetlandtools/hydroperiod/pkg/migrate"
	_ "modernc.org/sqlite"
)

// IF NOT EXISTS keeps databases created before schema versioning usable.
var migrations = []migrate.Migration{
	{
		Version: 1,
		Name:    "create config tables",
		Up: `CREATE TABLE IF NOT EXISTS configs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			created_at TEXT,
			updated_at TEXT
		);
		CREATE TABLE IF NOT EXISTS pipeline_configs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			config_id INTEGER NOT NULL REFERENCES configs(id),
			input_directory TEXT NOT NULL,
			date_layout TEXT,
			extensions TEXT,
			policy TEXT,
			output_directory TEXT NOT NULL,
			raster_format TEXT,
			visualization INTEGER NOT NULL DEFAULT 0,
			catalog_path TEXT
		);
		CREATE TABLE IF NOT EXISTS server_configs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			config_id INTEGER NOT NULL REFERENCES configs(id),
			listen_addr TEXT,
			port INTEGER,
			rescan_interval TEXT
		)`,
		Down: `DROP TABLE IF EXISTS server_configs;
		DROP TABLE IF EXISTS pipeline_configs;
		DROP TABLE IF EXISTS configs`,
	},
}

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	p := &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}
	if err := migrate.New(db, migrations).Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return p, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	input, err := s.GetInputConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load input config: %w", err)
	}
	config.Input = *input

	compute, err := s.GetComputeConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load compute config: %w", err)
	}
	config.Compute = *compute

	output, err := s.GetOutputConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load output config: %w", err)
	}
	config.Output = *output

	catalog, err := s.GetCatalogConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog config: %w", err)
	}
	config.Catalog = *catalog

	server, err := s.GetServerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	config.Server = server

	return config, nil
}

// queryPipeline fetches the default pipeline row once per getter.
func (s *SQLiteProvider) queryPipeline() (input InputData, compute ComputeData, output OutputData, catalog CatalogData, err error) {
	query := `
		SELECT input_directory, date_layout, extensions, policy,
		       output_directory, raster_format, visualization, catalog_path
		FROM pipeline_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var dateLayout, extensions, policy, rasterFormat, catalogPath sql.NullString
	var visualization bool

	err = s.db.QueryRow(query).Scan(
		&input.Directory, &dateLayout, &extensions, &policy,
		&output.Directory, &rasterFormat, &visualization, &catalogPath,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			err = fmt.Errorf("no pipeline configuration found")
		}
		return
	}

	input.DateLayout = dateLayout.String
	if extensions.Valid && extensions.String != "" {
		input.Extensions = strings.Split(extensions.String, ",")
	}
	compute.Policy = policy.String
	output.RasterFormat = rasterFormat.String
	output.Visualization = visualization
	catalog.Path = catalogPath.String
	return
}

// GetInputConfig returns the input section from the database
func (s *SQLiteProvider) GetInputConfig() (*InputData, error) {
	input, _, _, _, err := s.queryPipeline()
	if err != nil {
		return nil, err
	}
	return &input, nil
}

// GetComputeConfig returns the compute section from the database
func (s *SQLiteProvider) GetComputeConfig() (*ComputeData, error) {
	_, compute, _, _, err := s.queryPipeline()
	if err != nil {
		return nil, err
	}
	return &compute, nil
}

// GetOutputConfig returns the output section from the database
func (s *SQLiteProvider) GetOutputConfig() (*OutputData, error) {
	_, _, output, _, err := s.queryPipeline()
	if err != nil {
		return nil, err
	}
	return &output, nil
}

// GetCatalogConfig returns the catalog section from the database
func (s *SQLiteProvider) GetCatalogConfig() (*CatalogData, error) {
	_, _, _, catalog, err := s.queryPipeline()
	if err != nil {
		return nil, err
	}
	return &catalog, nil
}

// GetServerConfig returns the server section from the database. A missing
// row means the server is not configured, which is not an error.
func (s *SQLiteProvider) GetServerConfig() (*ServerData, error) {
	query := `
		SELECT listen_addr, port, rescan_interval
		FROM server_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var listenAddr, rescanInterval sql.NullString
	var port sql.NullInt64

	err := s.db.QueryRow(query).Scan(&listenAddr, &port, &rescanInterval)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query server config: %w", err)
	}

	return &ServerData{
		ListenAddr:     listenAddr.String,
		Port:           int(port.Int64),
		RescanInterval: rescanInterval.String,
	}, nil
}

// IsReadOnly returns false since SQLite configuration can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig saves complete configuration to the database
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	configID, err := s.insertConfig(tx, "default")
	if err != nil {
		return fmt.Errorf("failed to insert config: %w", err)
	}

	if err := s.clearExistingConfig(tx, configID); err != nil {
		return fmt.Errorf("failed to clear existing config: %w", err)
	}

	if err := s.insertPipelineConfig(tx, configID, configData); err != nil {
		return fmt.Errorf("failed to insert pipeline config: %w", err)
	}

	if configData.Server != nil {
		if err := s.insertServerConfig(tx, configID, configData.Server); err != nil {
			return fmt.Errorf("failed to insert server config: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteProvider) insertConfig(tx *sql.Tx, name string) (int64, error) {
	query := `INSERT OR REPLACE INTO configs (name, created_at, updated_at) VALUES (?, datetime('now'), datetime('now'))`
	result, err := tx.Exec(query, name)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteProvider) clearExistingConfig(tx *sql.Tx, configID int64) error {
	queries := []string{
		"DELETE FROM pipeline_configs WHERE config_id = ?",
		"DELETE FROM server_configs WHERE config_id = ?",
	}

	for _, query := range queries {
		if _, err := tx.Exec(query, configID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteProvider) insertPipelineConfig(tx *sql.Tx, configID int64, config *ConfigData) error {
	query := `
		INSERT INTO pipeline_configs (
			config_id, input_directory, date_layout, extensions, policy,
			output_directory, raster_format, visualization, catalog_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.Exec(query,
		configID,
		config.Input.Directory,
		nullString(config.Input.DateLayout),
		nullString(strings.Join(config.Input.Extensions, ",")),
		nullString(config.Compute.Policy),
		config.Output.Directory,
		nullString(config.Output.RasterFormat),
		config.Output.Visualization,
		nullString(config.Catalog.Path),
	)
	return err
}

func (s *SQLiteProvider) insertServerConfig(tx *sql.Tx, configID int64, server *ServerData) error {
	query := `
		INSERT INTO server_configs (
			config_id, listen_addr, port, rescan_interval
		) VALUES (?, ?, ?, ?)
	`

	_, err := tx.Exec(query,
		configID,
		nullString(server.ListenAddr),
		server.Port,
		nullString(server.RescanInterval),
	)
	return err
}

// nullString converts empty strings to NULL for storage
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
