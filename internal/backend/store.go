/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend keeps page documents in PostgreSQL for setups where several
// workstations share one page library. Each save bumps the page version and
// appends the previous document to page_history.
package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"balloonstudio/internal/domain"
	applog "balloonstudio/internal/log"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrVersionConflict is returned by SavePage when the stored version moved on.
var ErrVersionConflict = errors.New("page was modified concurrently")

// PageInfo is a listing row.
type PageInfo struct {
	ID        string
	ImageRef  string
	Width     int
	Height    int
	Balloons  int
	Version   int64
	UpdatedAt time.Time
}

// PGStore is a page repository over database/sql with the pgx driver.
type PGStore struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenPG connects to dsn and verifies the connection.
func OpenPG(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return NewPGStore(db), nil
}

// NewPGStore wraps an open pool.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db, log: applog.WithComponent("backend")}
}

// Close releases the pool.
func (s *PGStore) Close() error { return s.db.Close() }

// Migrate applies pending schema migrations.
func (s *PGStore) Migrate(ctx context.Context) error {
	return applyMigrations(ctx, s.db, applog.WithOperation(s.log, "migrate"))
}

// SavePage stores page and returns its new version. expect is the version the
// caller loaded; 0 skips the check. A mismatch yields ErrVersionConflict.
func (s *PGStore) SavePage(ctx context.Context, page domain.Page, expect int64) (int64, error) {
	if page.ID == "" {
		return 0, errors.New("save page: id is required")
	}
	doc, err := json.Marshal(page)
	if err != nil {
		return 0, fmt.Errorf("save page: marshal: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save page: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var cur int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM pages WHERE id = $1 FOR UPDATE`, page.ID).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		cur = 0
	case err != nil:
		return 0, fmt.Errorf("save page: lock: %w", err)
	}
	if expect != 0 && expect != cur {
		return 0, fmt.Errorf("save page %s: %w (have %d, stored %d)", page.ID, ErrVersionConflict, expect, cur)
	}

	next := cur + 1
	if cur == 0 {
		_, err = tx.ExecContext(ctx, `INSERT INTO pages(id, image_ref, width, height, doc, version) VALUES ($1, $2, $3, $4, $5, $6)`,
			page.ID, page.ImageRef, page.Width, page.Height, string(doc), next)
	} else {
		if _, err = tx.ExecContext(ctx, `INSERT INTO page_history(page_id, version, doc) SELECT id, version, doc FROM pages WHERE id = $1`, page.ID); err != nil {
			return 0, fmt.Errorf("save page: history: %w", err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE pages SET image_ref=$2, width=$3, height=$4, doc=$5, version=$6, updated_at=now() WHERE id=$1`,
			page.ID, page.ImageRef, page.Width, page.Height, string(doc), next)
	}
	if err != nil {
		return 0, fmt.Errorf("save page: write: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save page: commit: %w", err)
	}
	s.log.Debug("page saved", slog.String("page", page.ID), slog.Int64("version", next))
	return next, nil
}

// LoadPage returns the stored page and its version. Unknown ids wrap domain.ErrNotFound.
func (s *PGStore) LoadPage(ctx context.Context, id string) (domain.Page, int64, error) {
	var (
		raw     []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT doc, version FROM pages WHERE id = $1`, id).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Page{}, 0, fmt.Errorf("load page %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Page{}, 0, fmt.Errorf("load page %s: %w", id, err)
	}
	var page domain.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return domain.Page{}, 0, fmt.Errorf("load page %s: decode: %w", id, err)
	}
	return page, version, nil
}

// LoadPageVersion returns an older version from page_history, or the current
// page when version is the latest.
func (s *PGStore) LoadPageVersion(ctx context.Context, id string, version int64) (domain.Page, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM pages WHERE id = $1 AND version = $2
		UNION ALL
		SELECT doc FROM page_history WHERE page_id = $1 AND version = $2
		LIMIT 1`, id, version).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Page{}, fmt.Errorf("load page %s@%d: %w", id, version, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Page{}, fmt.Errorf("load page %s@%d: %w", id, version, err)
	}
	var page domain.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return domain.Page{}, fmt.Errorf("load page %s@%d: decode: %w", id, version, err)
	}
	return page, nil
}

// ListPages returns every page, most recently updated first.
func (s *PGStore) ListPages(ctx context.Context) ([]PageInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, image_ref, width, height,
		COALESCE(jsonb_array_length(doc->'balloons'), 0), version, updated_at
		FROM pages ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()
	var out []PageInfo
	for rows.Next() {
		var p PageInfo
		if err := rows.Scan(&p.ID, &p.ImageRef, &p.Width, &p.Height, &p.Balloons, &p.Version, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list pages: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePage removes a page and its history.
func (s *PGStore) DeletePage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete page %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
