package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"decision-engine/internal/engine"
	"decision-engine/internal/scoring"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "decisions.db"), true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAnalysisRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	options := []scoring.Option{
		{Name: "Stay", Pros: []string{"calm"}, Cons: []string{"dull"}},
		{Name: "Go", Pros: []string{"new", "fun"}, Cons: []string{"risk"}},
	}
	ranked := scoring.Score(options, scoring.Weighting{Importance: scoring.ImportanceMedium, Timeframe: scoring.TimeframeMedium})
	row := &Analysis{
		Text:             "  Should I stay or go?  ",
		Importance:       "medium",
		Timeframe:        "medium",
		Confidence:       0.5,
		Valid:            true,
		RecommendedIndex: scoring.RecommendedIndex(ranked),
		Recommended:      ranked[0].Option.Name,
	}
	row.SetOptions(options)
	row.SetRanked(ranked)

	if err := db.SaveAnalysis(ctx, row); err != nil {
		t.Fatalf("save: %v", err)
	}
	if row.ID == "" {
		t.Fatalf("expected generated id")
	}

	got, err := db.GetAnalysis(ctx, row.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Text != "Should I stay or go?" || got.Recommended != "Go" || got.RecommendedIndex != 1 {
		t.Fatalf("unexpected row %+v", got)
	}
	if diff := cmp.Diff(options, got.Options()); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ranked, got.Ranked()); diff != "" {
		t.Fatalf("ranked mismatch (-want +got):\n%s", diff)
	}

	if err := db.DeleteAnalysis(ctx, row.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetAnalysis(ctx, row.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := db.DeleteAnalysis(ctx, row.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListAnalysesFiltersAndPaginates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seed := []Analysis{
		{Text: "Should I quit my job?", Importance: "high", Timeframe: "short", Confidence: 0.8, Valid: true},
		{Text: "Tea or coffee?", Importance: "low", Timeframe: "short", Confidence: 0.4, Valid: true},
		{Text: "move", Importance: "medium", Timeframe: "medium", Confidence: 0.1},
	}
	for i := range seed {
		if err := db.SaveAnalysis(ctx, &seed[i]); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	rows, total, err := db.ListAnalyses(ctx, AnalysisQuery{ValidOnly: true, Sort: "confidence_desc"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(rows) != 2 || rows[0].Text != "Should I quit my job?" {
		t.Fatalf("unexpected valid listing total=%d rows=%+v", total, rows)
	}

	rows, total, err = db.ListAnalyses(ctx, AnalysisQuery{Query: "coffee"})
	if err != nil || total != 1 || rows[0].Importance != "low" {
		t.Fatalf("unexpected search result %v %d %+v", err, total, rows)
	}

	rows, total, err = db.ListAnalyses(ctx, AnalysisQuery{Sort: "confidence_asc", Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if total != 3 || len(rows) != 1 || rows[0].Text != "Tea or coffee?" {
		t.Fatalf("unexpected page total=%d rows=%+v", total, rows)
	}
}

func TestResponseCache(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, ok, err := db.GetResponse(ctx, "abc", time.Hour); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := db.PutResponse(ctx, "abc", "first"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.PutResponse(ctx, "abc", "second"); err != nil {
		t.Fatalf("put again: %v", err)
	}
	content, ok, err := db.GetResponse(ctx, "abc", time.Hour)
	if err != nil || !ok || content != "second" {
		t.Fatalf("expected refreshed hit, got %q ok=%v err=%v", content, ok, err)
	}

	if err := db.GORM().Model(&CachedResponse{}).Where("prompt_hash = ?", "abc").
		UpdateColumn("updated_at", time.Now().Add(-2*time.Hour)).Error; err != nil {
		t.Fatalf("age row: %v", err)
	}
	if _, ok, _ := db.GetResponse(ctx, "abc", time.Hour); ok {
		t.Fatalf("expected stale entry to miss")
	}
	pruned, err := db.PruneResponses(ctx, time.Now().Add(-time.Hour))
	if err != nil || pruned != 1 {
		t.Fatalf("expected one pruned row, got %d err=%v", pruned, err)
	}
}

func TestNewAnalysisFromResult(t *testing.T) {
	eng := engine.New(nil, nil, 0)
	result, err := eng.Analyze(context.Background(), engine.Request{Text: "Should I learn guitar or piano?"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	selected := 0
	row := NewAnalysis(result, engine.ModeLocal, &selected)
	if row.Mode != "local" || !row.Valid || row.SelectedIndex == nil || *row.SelectedIndex != 0 {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.Recommended != result.Ranked[0].Option.Name || row.RecommendedIndex != result.RecommendedIndex {
		t.Fatalf("recommendation not carried over: %+v", row)
	}
	if diff := cmp.Diff(result.Options, row.Options()); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}

	db := openTestDB(t)
	if err := db.SaveAnalysis(context.Background(), row); err != nil {
		t.Fatalf("save: %v", err)
	}
}
