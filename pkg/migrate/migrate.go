// Package migrate applies versioned schema migrations to a SQL
// database. Callers declare their migrations in code and the applied
// version is tracked in a schema_migrations table.
package migrate

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration is a single versioned schema change. Versions are expected
// to be contiguous starting at 1.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Migrator applies migrations against a database connection.
type Migrator struct {
	db         *sql.DB
	migrations []Migration
}

// New creates a migrator for the given migration set.
func New(db *sql.DB, migrations []Migration) *Migrator {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return &Migrator{db: db, migrations: sorted}
}

// Up applies all pending migrations in version order.
func (m *Migrator) Up() error {
	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(mig.Up, mig.Version); err != nil {
			return fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// Down reverts applied migrations newer than targetVersion, newest
// first.
func (m *Migrator) Down(targetVersion int) error {
	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}
	if targetVersion >= current {
		return fmt.Errorf("target version %d must be below current version %d", targetVersion, current)
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		mig := m.migrations[i]
		if mig.Version > current || mig.Version <= targetVersion {
			continue
		}
		if mig.Down == "" {
			return fmt.Errorf("migration %d (%s) has no down script", mig.Version, mig.Name)
		}
		if err := m.apply(mig.Down, mig.Version-1); err != nil {
			return fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// CurrentVersion reports the version the database is at, 0 when no
// migration has been applied.
func (m *Migrator) CurrentVersion() (int, error) {
	if err := m.ensureVersionTable(); err != nil {
		return 0, err
	}

	var version int
	err := m.db.QueryRow("SELECT version FROM schema_migrations LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// apply runs a migration script and records the resulting version in
// the same transaction.
func (m *Migrator) apply(script string, resulting int) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(script); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec("DELETE FROM schema_migrations"); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", resulting); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (m *Migrator) ensureVersionTable() error {
	if _, err := m.db.Exec("CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}
