/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// Status describes where a database stands against the embedded migrations.
type Status struct {
	Version uint
	Latest  uint
	Dirty   bool
}

// Current reports whether no migration is pending.
func (s Status) Current() bool { return !s.Dirty && s.Version == s.Latest }

// MigrateUp applies all pending migrations.
func MigrateUp(db *DB) error {
	m, err := newMigrate(db.DB, db.dialect)
	if err != nil {
		return err
	}
	// Closing m would close db; the caller owns it.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the given number of migration steps.
func MigrateDown(db *DB, steps int) error {
	if steps <= 0 {
		return nil
	}
	m, err := newMigrate(db.DB, db.dialect)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

// MigrationStatus reads the schema version and compares it with the newest
// embedded migration.
func MigrationStatus(db *DB) (Status, error) {
	m, err := newMigrate(db.DB, db.dialect)
	if err != nil {
		return Status{}, err
	}
	var st Status
	st.Version, st.Dirty, err = m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, fmt.Errorf("read schema version: %w", err)
	}
	src, err := iofs.New(migrationFiles, migrationDir(db.dialect))
	if err != nil {
		return Status{}, fmt.Errorf("read migration files: %w", err)
	}
	defer src.Close()
	if st.Latest, err = latestVersion(src); err != nil {
		return Status{}, err
	}
	return st, nil
}

func migrationDir(d Dialect) string {
	if d == Postgres {
		return "migrations/postgres"
	}
	return "migrations/sqlite"
}

func newMigrate(db *sql.DB, d Dialect) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, migrationDir(d))
	if err != nil {
		return nil, fmt.Errorf("create source driver: %w", err)
	}
	var (
		name string
		drv  database.Driver
	)
	switch d {
	case Postgres:
		name = "pgx5"
		drv, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	default:
		name = "sqlite"
		drv, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	}
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, name, drv)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// latestVersion walks the source to its last migration.
func latestVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("no migrations: %w", err)
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			return v, nil
		}
		v = next
	}
}
