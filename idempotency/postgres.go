// fedicore is the ActivityPub inbox/collection dispatch core of a
// federation server framework.
// Copyright (C) 2024 The fedicore Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package idempotency

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
)

// Postgres is a database/sql-backed fedicore.Store using the pgx stdlib
// driver, matching models/test/main.go's sql.Open("pgx", dsn) connection
// style. The backing table is created by Migrate; callers run it once at
// deployment time, same as apcore's own migration step.
type Postgres struct {
	db    *sql.DB
	table string
}

// OpenPostgres opens a connection pool against dsn using the pgx stdlib
// driver and returns a Store backed by the named table.
func OpenPostgres(dsn, table string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("idempotency: opening postgres: %w", err)
	}
	if table == "" {
		table = "idempotency_keys"
	}
	return &Postgres{db: db, table: table}, nil
}

// Migrate creates the backing table if it does not already exist.
func (p *Postgres) Migrate(c context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key text PRIMARY KEY,
		value boolean NOT NULL,
		expires_at timestamptz NOT NULL
	)`, p.table)
	_, err := p.db.ExecContext(c, stmt)
	return err
}

// Get reports whether key is recorded and not yet expired, pruning the row
// lazily if it has.
func (p *Postgres) Get(c context.Context, key []string) (bool, error) {
	k := joinKey(key)

	var value bool
	var expiresAt time.Time
	query := fmt.Sprintf(`SELECT value, expires_at FROM %s WHERE key = $1`, p.table)
	err := p.db.QueryRowContext(c, query, k).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("idempotency: querying %q: %w", k, err)
	}
	if time.Now().After(expiresAt) {
		del := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, p.table)
		if _, derr := p.db.ExecContext(c, del, k); derr != nil {
			return false, fmt.Errorf("idempotency: pruning expired %q: %w", k, derr)
		}
		return false, nil
	}
	return value, nil
}

// Set upserts key with value and an expiration ttl from now.
func (p *Postgres) Set(c context.Context, key []string, value bool, ttl time.Duration) error {
	k := joinKey(key)
	stmt := fmt.Sprintf(`INSERT INTO %s (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`, p.table)
	_, err := p.db.ExecContext(c, stmt, k, value, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("idempotency: upserting %q: %w", k, err)
	}
	return nil
}
