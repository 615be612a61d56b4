package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/ivy/internal/models"
	"github.com/dyike/ivy/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "ivy.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newCandidate(symbol string, score float64) *models.StockCandidate {
	c := models.NewStockCandidate(symbol, symbol+" Corp", decimal.RequireFromString("123.4567"), decimal.RequireFromString("120.01"))
	c.DiscoveryScore = score
	return c
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	c := newCandidate("nvda", 42.5)
	c.Sector = "Technology"
	mc, vol := 1.2e12, int64(4_000_000)
	c.MarketCap = &mc
	c.Volume = &vol

	if err := s.Insert(ctx, c); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := s.Get(ctx, "NVDA")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Symbol != "NVDA" || got.CompanyName != "NVDA Corp" || got.Sector != "Technology" {
		t.Fatalf("unexpected descriptive fields: %+v", got)
	}
	if !got.CurrentPrice.Equal(c.CurrentPrice) || !got.PreviousClose.Equal(c.PreviousClose) {
		t.Fatalf("prices changed: %s / %s", got.CurrentPrice, got.PreviousClose)
	}
	if got.MarketCap == nil || *got.MarketCap != mc || got.Volume == nil || *got.Volume != vol {
		t.Fatalf("optional metrics lost: %+v", got)
	}
	if got.PERatio != nil || got.ViewedAt != nil {
		t.Fatalf("absent fields should stay nil: %+v", got)
	}
	if !got.IsUnviewed() || got.DiscoveryScore != 42.5 {
		t.Fatalf("status/score lost: %s %v", got.Status, got.DiscoveryScore)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "NOPE"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.Insert(ctx, newCandidate("AMD", 10)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctx, newCandidate("AMD", 90)); err != nil {
		t.Fatalf("second Insert: %v", err)
	}
	got, _ := s.Get(ctx, "AMD")
	if got.DiscoveryScore != 10 {
		t.Fatalf("Insert overwrote existing record: score %v", got.DiscoveryScore)
	}
	if n, _ := s.Count(ctx, ""); n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}
}

func TestSaveUpdatesStatusAndTimestamps(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := newCandidate("TSLA", 50)
	if err := s.Insert(ctx, c); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	now := time.Date(2026, 10, 19, 14, 3, 7, 123456789, time.UTC)
	c.Status = models.StatusLiked
	c.LikedAt = &now
	c.ViewedAt = &now
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "TSLA")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.IsLiked() || got.LikedAt == nil || !got.LikedAt.Equal(now) || !got.ViewedAt.Equal(now) {
		t.Fatalf("liked state not persisted: %+v", got)
	}

	c.Status = models.StatusUnviewed
	c.LikedAt = nil
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ = s.Get(ctx, "TSLA")
	if !got.IsUnviewed() || got.LikedAt != nil || got.ViewedAt == nil {
		t.Fatalf("unlike not persisted: %+v", got)
	}
}

func TestSaveRejectsInvalidStatus(t *testing.T) {
	s := openTestStore(t)
	c := newCandidate("BAD", 1)
	c.Status = "maybe"
	if err := s.Save(context.Background(), c); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestQueryFilterAndSort(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a, b, c, d := newCandidate("A", 30), newCandidate("B", 90), newCandidate("C", 60), newCandidate("D", 90)
	if err := s.Insert(ctx, a, b, c, d); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	aLiked, cLiked := base, base.Add(time.Hour)
	a.Status, a.LikedAt = models.StatusLiked, &aLiked
	c.Status, c.LikedAt = models.StatusLiked, &cLiked
	if err := s.Save(ctx, a, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tests := []struct {
		name  string
		query storage.Query
		want  []string
	}{
		{"all in insertion order", storage.Query{}, []string{"A", "B", "C", "D"}},
		{"liked newest first", storage.Query{Status: models.StatusLiked, Sort: storage.SortLikedAtDesc}, []string{"C", "A"}},
		{"unviewed by score with stable ties", storage.Query{Status: models.StatusUnviewed, Sort: storage.SortScoreDesc}, []string{"B", "D"}},
		{"limit", storage.Query{Sort: storage.SortScoreDesc, Limit: 2}, []string{"B", "D"}},
		{"no disliked", storage.Query{Status: models.StatusDisliked}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.query)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rows, want %v", len(got), tt.want)
			}
			for i, w := range tt.want {
				if got[i].Symbol != w {
					t.Fatalf("row %d = %s, want %s", i, got[i].Symbol, w)
				}
			}
		})
	}
}

func TestSymbolsCountReset(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.Insert(ctx, newCandidate("PLTR", 1), newCandidate("COIN", 2)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	syms, err := s.Symbols(ctx)
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if _, ok := syms["PLTR"]; !ok || len(syms) != 2 {
		t.Fatalf("unexpected symbols %v", syms)
	}
	if n, _ := s.Count(ctx, models.StatusUnviewed); n != 2 {
		t.Fatalf("expected 2 unviewed, got %d", n)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n, _ := s.Count(ctx, ""); n != 0 {
		t.Fatalf("expected empty store after reset, got %d", n)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ivy.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Insert(ctx, newCandidate("SHOP", 7)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(ctx, "SHOP"); err != nil {
		t.Fatalf("record lost after reopen: %v", err)
	}
}
