package storage

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"balloonstudio/internal/domain"
)

func samplePage() domain.Page {
	return domain.Page{
		ID:       "p1",
		ImageRef: "p1.png",
		Width:    800,
		Height:   1200,
		Balloons: []domain.Balloon{{
			ID: "balloon-a", Kind: domain.KindBalloon, Shape: domain.ShapeRectangle,
			Box: domain.Box{YMin: 100, XMin: 100, YMax: 200, XMax: 300}, Text: "Hello",
		}},
		Panels: []domain.Panel{{ID: "panel-1", Order: 1, Box: domain.Box{YMin: 0, XMin: 0, YMax: 500, XMax: 500}}},
	}
}

func TestSaveAndOpenDocument(t *testing.T) {
	img := filepath.Join(t.TempDir(), "p1.png")
	page := samplePage()
	if err := SaveDocument(img, page); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	doc, err := OpenDocument(img)
	if err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}
	if doc.Recovered || doc.Format != DocumentFormat || doc.Version != DocumentVersion {
		t.Fatalf("unexpected envelope: %+v", doc)
	}
	if doc.Page.ID != "p1" || len(doc.Page.Balloons) != 1 || doc.Page.Balloons[0].Text != "Hello" || doc.Page.Width != 800 {
		t.Fatalf("page mismatch: %+v", doc.Page)
	}
	if _, err := Backups(img); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("first save should not create backups, got %v", err)
	}
}

func TestSaveKeepsBackupOfPreviousDocument(t *testing.T) {
	img := filepath.Join(t.TempDir(), "p1.png")
	page := samplePage()
	if err := SaveDocument(img, page); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	page.Balloons[0].Text = "Changed"
	if err := SaveDocument(img, page); err != nil {
		t.Fatalf("save 2: %v", err)
	}
	list, err := Backups(img)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one backup, got %v err %v", list, err)
	}
	data, _ := os.ReadFile(list[0])
	var bak Document
	if err := json.Unmarshal(data, &bak); err != nil || bak.Page.Balloons[0].Text != "Hello" {
		t.Fatalf("backup should hold the previous page: %+v err %v", bak.Page, err)
	}
}

func TestOpenFallsBackToBackupOnCorruption(t *testing.T) {
	img := filepath.Join(t.TempDir(), "p1.png")
	page := samplePage()
	if err := SaveDocument(img, page); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	if err := SaveDocument(img, page); err != nil {
		t.Fatalf("save 2: %v", err)
	}
	if err := os.WriteFile(SidecarPath(img), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	doc, err := OpenDocument(img)
	if err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}
	if !doc.Recovered || doc.Page.ID != "p1" {
		t.Fatalf("expected recovered page, got %+v", doc)
	}
}

func TestOpenMissingDocument(t *testing.T) {
	_, err := OpenDocument(filepath.Join(t.TempDir(), "none.png"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestOpenRejectsNewerVersion(t *testing.T) {
	img := filepath.Join(t.TempDir(), "p1.png")
	data := []byte(`{"format":"balloonstudio.page","version":99,"page":{"id":"p1"}}`)
	if err := os.WriteFile(SidecarPath(img), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := OpenDocument(img); !errors.Is(err, ErrUnsupportedDocument) {
		t.Fatalf("expected ErrUnsupportedDocument, got %v", err)
	}
}

func TestBackupsArePruned(t *testing.T) {
	img := filepath.Join(t.TempDir(), "p1.png")
	page := samplePage()
	for i := 0; i < MaxBackups+4; i++ {
		if err := SaveDocument(img, page); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	list, err := Backups(img)
	if err != nil || len(list) != MaxBackups {
		t.Fatalf("expected %d backups, got %d err %v", MaxBackups, len(list), err)
	}
}
