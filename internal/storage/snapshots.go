/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"balloonstudio/internal/domain"
)

// tsLayout is fixed width so stored timestamps order lexicographically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// DefaultSnapshotLimit bounds ListSnapshots when no limit is given.
const DefaultSnapshotLimit = 50

// language=SQL
const insertSnapshotSQL = `INSERT INTO snapshots(page_id, ts, label, doc) VALUES (?, ?, ?, ?)`

// language=SQL
const listSnapshotsSQL = `SELECT id, ts, label, doc FROM snapshots WHERE page_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
const pruneSnapshotsSQL = `DELETE FROM snapshots WHERE page_id = ? AND id NOT IN (
	SELECT id FROM snapshots WHERE page_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// Snapshot is a stored copy of a page at a point in time.
type Snapshot struct {
	ID    int64
	TS    time.Time
	Label string
	Page  domain.Page
}

// SaveSnapshot stores page under its id. label is free text, typically the
// history label of the edit that produced it.
func (ix *Index) SaveSnapshot(ctx context.Context, page domain.Page, label string, ts time.Time) (int64, error) {
	if page.ID == "" {
		return 0, errors.New("snapshot: page id is required")
	}
	blob, err := json.Marshal(page)
	if err != nil {
		return 0, fmt.Errorf("snapshot: marshal page: %w", err)
	}
	res, err := ix.db.ExecContext(ctx, insertSnapshotSQL, page.ID, ts.UTC().Format(tsLayout), label, blob)
	if err != nil {
		return 0, fmt.Errorf("snapshot: insert: %w", err)
	}
	return res.LastInsertId()
}

// LatestSnapshot returns the newest snapshot of a page; ok is false when none exists.
func (ix *Index) LatestSnapshot(ctx context.Context, pageID string) (snap Snapshot, ok bool, err error) {
	list, err := ix.ListSnapshots(ctx, pageID, 1)
	if err != nil || len(list) == 0 {
		return Snapshot{}, false, err
	}
	return list[0], true, nil
}

// ListSnapshots returns up to limit snapshots of a page, newest first.
func (ix *Index) ListSnapshots(ctx context.Context, pageID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = DefaultSnapshotLimit
	}
	rows, err := ix.db.QueryContext(ctx, listSnapshotsSQL, pageID, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list: %w", err)
	}
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		var (
			s    Snapshot
			ts   string
			blob []byte
		)
		if err := rows.Scan(&s.ID, &ts, &s.Label, &blob); err != nil {
			return nil, fmt.Errorf("snapshot: scan: %w", err)
		}
		if err := json.Unmarshal(blob, &s.Page); err != nil {
			ix.log.Warn("skipping unreadable snapshot", slog.Int64("id", s.ID), slog.Any("err", err))
			continue
		}
		s.TS, _ = time.Parse(tsLayout, ts)
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneSnapshots keeps the newest keep snapshots of a page and deletes the
// rest. keep <= 0 deletes nothing.
func (ix *Index) PruneSnapshots(ctx context.Context, pageID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := ix.db.ExecContext(ctx, pruneSnapshotsSQL, pageID, pageID, keep)
	if err != nil {
		return 0, fmt.Errorf("snapshot: prune: %w", err)
	}
	return res.RowsAffected()
}
