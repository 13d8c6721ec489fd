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
	"fmt"
	"strings"

	"balloonstudio/internal/domain"
)

// TextHit is one balloon whose text matched a search.
type TextHit struct {
	PageID    string
	BalloonID string
	Snippet   string
}

// IndexPage replaces the searchable text of a page with its current balloons.
// Masks are skipped; their text is raw detector output.
func (ix *Index) IndexPage(ctx context.Context, page domain.Page) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index page: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM fts_balloons WHERE page_id = ?`, page.ID); err != nil {
		return fmt.Errorf("index page: clear: %w", err)
	}
	for _, b := range page.Balloons {
		if b.Kind == domain.KindMask || strings.TrimSpace(b.Text) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO fts_balloons(text, page_id, balloon_id) VALUES (?, ?, ?)`, b.Text, page.ID, b.ID); err != nil {
			return fmt.Errorf("index page: insert %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

// SearchText finds balloons containing every word of query. Matched words are
// wrapped in brackets in the snippet.
func (ix *Index) SearchText(ctx context.Context, query string, limit int) ([]TextHit, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := ix.db.QueryContext(ctx, `SELECT page_id, balloon_id, snippet(fts_balloons, 0, '[', ']', '…', 10)
		FROM fts_balloons WHERE fts_balloons MATCH ? ORDER BY rank LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()
	var out []TextHit
	for rows.Next() {
		var h TextHit
		if err := rows.Scan(&h.PageID, &h.BalloonID, &h.Snippet); err != nil {
			return nil, fmt.Errorf("search: scan: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ftsQuery quotes each word so user input never reaches the FTS5 query syntax.
func ftsQuery(q string) string {
	words := strings.Fields(q)
	for i, w := range words {
		words[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"`
	}
	return strings.Join(words, " ")
}
