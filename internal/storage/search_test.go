package storage

import (
	"context"
	"strings"
	"testing"

	"balloonstudio/internal/domain"
)

func TestIndexPageAndSearch(t *testing.T) {
	ix := openTestIndex(t, t.TempDir())
	ctx := context.Background()
	page := samplePage()
	page.Balloons = append(page.Balloons,
		domain.Balloon{ID: "balloon-b", Kind: domain.KindBalloon, Text: "Hello there, friend"},
		domain.Balloon{ID: "mask-1", Kind: domain.KindMask, Text: "hello from the detector"},
	)
	if err := ix.IndexPage(ctx, page); err != nil {
		t.Fatalf("IndexPage: %v", err)
	}
	hits, err := ix.SearchText(ctx, "hello", 0)
	if err != nil || len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %+v err %v", hits, err)
	}
	for _, h := range hits {
		if h.PageID != "p1" || h.BalloonID == "mask-1" || !strings.Contains(h.Snippet, "[Hello]") {
			t.Fatalf("unexpected hit %+v", h)
		}
	}
	hits, err = ix.SearchText(ctx, "hello friend", 0)
	if err != nil || len(hits) != 1 || hits[0].BalloonID != "balloon-b" {
		t.Fatalf("all words must match: %+v err %v", hits, err)
	}

	page.Balloons = page.Balloons[:1]
	page.Balloons[0].Text = "Goodbye"
	if err := ix.IndexPage(ctx, page); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if hits, _ := ix.SearchText(ctx, "hello", 0); len(hits) != 0 {
		t.Fatalf("reindex should replace old text, got %+v", hits)
	}
}

func TestSearchQuotesInput(t *testing.T) {
	ix := openTestIndex(t, t.TempDir())
	if _, err := ix.SearchText(context.Background(), `AND "OR" NEAR(`, 0); err != nil {
		t.Fatalf("operators in input must not break the query: %v", err)
	}
	if hits, err := ix.SearchText(context.Background(), "   ", 0); err != nil || hits != nil {
		t.Fatalf("blank query: %v %v", hits, err)
	}
}
