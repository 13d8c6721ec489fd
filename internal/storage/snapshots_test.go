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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestIndex(t *testing.T, dir string) *Index {
	t.Helper()
	ix, err := OpenIndex(context.Background(), dir)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestSnapshotsCRUD(t *testing.T) {
	ix := openTestIndex(t, t.TempDir())
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, ok, err := ix.LatestSnapshot(ctx, "p1"); err != nil || ok {
		t.Fatalf("empty index: ok=%v err=%v", ok, err)
	}
	page := samplePage()
	for i := 0; i < 6; i++ {
		page.Balloons[0].Text = string(rune('a' + i))
		if _, err := ix.SaveSnapshot(ctx, page, "Edit", base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("SaveSnapshot %d: %v", i, err)
		}
	}
	latest, ok, err := ix.LatestSnapshot(ctx, "p1")
	if err != nil || !ok || latest.Page.Balloons[0].Text != "f" || !latest.TS.Equal(base.Add(5*time.Second)) {
		t.Fatalf("LatestSnapshot got %+v ok=%v err=%v", latest, ok, err)
	}
	list, err := ix.ListSnapshots(ctx, "p1", 10)
	if err != nil || len(list) != 6 {
		t.Fatalf("ListSnapshots got %d err %v", len(list), err)
	}
	n, err := ix.PruneSnapshots(ctx, "p1", 3)
	if err != nil || n != 3 {
		t.Fatalf("PruneSnapshots n=%d err=%v", n, err)
	}
	list, err = ix.ListSnapshots(ctx, "p1", 10)
	if err != nil || len(list) != 3 || list[2].Page.Balloons[0].Text != "d" {
		t.Fatalf("after prune got %d err %v", len(list), err)
	}
	if other, _ := ix.ListSnapshots(ctx, "p2", 10); len(other) != 0 {
		t.Fatalf("snapshots leaked across pages: %d", len(other))
	}
}

func TestSubSecondOrdering(t *testing.T) {
	ix := openTestIndex(t, t.TempDir())
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 5, 0, time.UTC)
	page := samplePage()
	page.Balloons[0].Text = "later"
	if _, err := ix.SaveSnapshot(ctx, page, "", base.Add(100*time.Millisecond)); err != nil {
		t.Fatalf("save: %v", err)
	}
	page.Balloons[0].Text = "earlier"
	if _, err := ix.SaveSnapshot(ctx, page, "", base); err != nil {
		t.Fatalf("save: %v", err)
	}
	latest, _, err := ix.LatestSnapshot(ctx, "p1")
	if err != nil || latest.Page.Balloons[0].Text != "later" {
		t.Fatalf("expected the later snapshot first, got %+v err %v", latest.Page.Balloons, err)
	}
}

func TestIndexSchemaMigrated(t *testing.T) {
	ix := openTestIndex(t, t.TempDir())
	v, err := ix.SchemaVersion(context.Background())
	if err != nil || v != schemaVersion {
		t.Fatalf("schema version %d err %v", v, err)
	}
}

func TestCorruptIndexIsRebuilt(t *testing.T) {
	dir := t.TempDir()
	path := IndexPath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte("not a database "), 512), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ix := openTestIndex(t, dir)
	if _, err := ix.SaveSnapshot(context.Background(), samplePage(), "", time.Now()); err != nil {
		t.Fatalf("rebuilt index unusable: %v", err)
	}
	ents, err := os.ReadDir(filepath.Join(dir, StateDirName, BackupsDirName))
	if err != nil || len(ents) == 0 {
		t.Fatalf("expected a backup of the broken index, err %v", err)
	}
}
