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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "carouselstudio/internal/log"

	// Postgres through database/sql, registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver (CGO-free), registered as "sqlite".
	_ "modernc.org/sqlite"
)

// Dialect selects SQL flavour differences (placeholders, locking, timestamps).
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// DefaultFileName is the SQLite database file inside the config dir.
const DefaultFileName = "carousel.sqlite"

// tsLayout keeps SQLite timestamps lexically sortable.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB is a migrated database handle.
type DB struct {
	*sql.DB
	dialect Dialect
}

// Dialect reports which SQL flavour the handle speaks.
func (d *DB) Dialect() Dialect { return d.dialect }

// ParseDialect maps a driver name from config to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return "", fmt.Errorf("storage: unsupported driver %q", driver)
	}
}

// Open connects to the database and applies pending migrations. For SQLite,
// dsn is a file path; its directory is created if needed.
func Open(ctx context.Context, d Dialect, dsn string) (*DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("dialect", string(d)))
	var (
		db  *DB
		err error
	)
	switch d {
	case SQLite:
		db, err = openSQLite(ctx, dsn)
	case Postgres:
		db, err = openPostgres(ctx, dsn)
	default:
		err = fmt.Errorf("storage: unsupported dialect %q", d)
	}
	if err != nil {
		l.Error("open failed", slog.Any("err", err))
		return nil, err
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		l.Error("migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("database ready")
	return db, nil
}

func openSQLite(ctx context.Context, path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.ToSlash(path))
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; keeps transactions and pragmas on a single connection.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := sqldb.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	return &DB{DB: sqldb, dialect: SQLite}, nil
}

func openPostgres(ctx context.Context, dsn string) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("storage: postgres dsn is required")
	}
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{DB: sqldb, dialect: Postgres}, nil
}

// rebind rewrites ? placeholders as $1..$n for Postgres.
func (d *DB) rebind(q string) string {
	if d.dialect != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// lockRow is appended to a single-row SELECT inside a transaction. SQLite
// serializes writers already.
func (d *DB) lockRow() string {
	if d.dialect == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

func (d *DB) timeArg(t time.Time) any {
	if d.dialect == Postgres {
		return t.UTC()
	}
	return t.UTC().Format(tsLayout)
}

// timeCol scans timestamps stored natively (Postgres) or as text (SQLite).
type timeCol struct{ t *time.Time }

func (c timeCol) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c.t = time.Time{}
	case time.Time:
		*c.t = v.UTC()
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	case int64:
		*c.t = time.UnixMilli(v).UTC()
	default:
		return fmt.Errorf("storage: cannot scan %T into time", src)
	}
	return nil
}

func (c timeCol) parse(s string) error {
	for _, layout := range []string{tsLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			*c.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("storage: bad timestamp %q", s)
}

// inTx runs fn in a transaction, rolling back on error.
func (d *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
