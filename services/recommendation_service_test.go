package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"property_recommend/config"
	"property_recommend/models"
	"property_recommend/repository"
)

type failingCatalog struct{}

func (failingCatalog) ListProperties(context.Context) ([]models.PropertyRecord, error) {
	return nil, errors.New("catalog unavailable")
}

func (failingCatalog) GetByIDs(context.Context, []string) ([]models.PropertyRecord, error) {
	return nil, errors.New("catalog unavailable")
}

func newTestService(t *testing.T, catalog repository.PropertySource) (*RecommendationService, *repository.ProfileRepository) {
	t.Helper()
	cfg := config.Default()
	profiles := repository.NewProfileRepository(repository.NewMemoryProfileStore(), cfg.Profile)
	if catalog == nil {
		catalog = repository.NewStaticCatalog(randomProperties(30, 5))
	}
	svc := NewRecommendationService(cfg, profiles, catalog, repository.NewMemoryRecommendationCache(), nil)
	return svc, profiles
}

func TestAnalyzeProfileNewUser(t *testing.T) {
	svc, profiles := newTestService(t, nil)
	ctx := context.Background()

	prefs, err := svc.AnalyzeProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("AnalyzeProfile: %v", err)
	}
	if !prefs.Budget.IsUnbounded() || len(prefs.PropertyTypes) != 0 {
		t.Errorf("prefs = %+v, want empty", prefs)
	}
	if _, err := profiles.GetOrCreate(ctx, "u1"); err != nil {
		t.Fatalf("profile not created: %v", err)
	}
}

func TestAnalyzeProfileStoresPreferences(t *testing.T) {
	svc, profiles := newTestService(t, nil)
	ctx := context.Background()

	if err := profiles.RecordSearch(ctx, "u1", "villa", models.SearchFilters{PropertyTypes: []string{"villa"}}, 3); err != nil {
		t.Fatal(err)
	}
	if err := profiles.RecordView(ctx, "u1", "p1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AnalyzeProfile(ctx, "u1"); err != nil {
		t.Fatalf("AnalyzeProfile: %v", err)
	}

	p, _ := profiles.GetOrCreate(ctx, "u1")
	if len(p.Preferences.PropertyTypes) != 1 || p.Preferences.PropertyTypes[0] != "villa" {
		t.Errorf("stored preferences = %+v", p.Preferences)
	}
}

func TestRecommendForUserAndCache(t *testing.T) {
	svc, profiles := newTestService(t, nil)
	ctx := context.Background()
	_ = profiles.RecordView(ctx, "u1", "p3")

	first, err := svc.RecommendForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("RecommendForUser: %v", err)
	}
	if len(first.ForYou) == 0 {
		t.Fatal("no recommendations")
	}
	for _, id := range first.BasedOnSearches {
		if id == "p3" {
			t.Error("viewed property recommended in based on searches")
		}
	}

	cached, err := svc.CachedRecommendations(ctx, "u1")
	if err != nil {
		t.Fatalf("CachedRecommendations: %v", err)
	}
	if !cached.GeneratedAt.Equal(first.GeneratedAt) {
		t.Errorf("expected cached result, generated at %v vs %v", cached.GeneratedAt, first.GeneratedAt)
	}

	svc.Invalidate(ctx, "u1")
	time.Sleep(2 * time.Millisecond)
	again, err := svc.CachedRecommendations(ctx, "u1")
	if err != nil {
		t.Fatalf("CachedRecommendations after invalidate: %v", err)
	}
	if again.GeneratedAt.Equal(first.GeneratedAt) {
		t.Error("expected regenerated result after invalidate")
	}
}

func TestScoreForUser(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	all, err := svc.ScoreForUser(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("ScoreForUser: %v", err)
	}
	if len(all) == 0 {
		t.Fatal("no scores")
	}

	some, err := svc.ScoreForUser(ctx, "u1", []string{"p1", "p2", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(some) != 2 {
		t.Errorf("len = %d, want 2 (unknown id skipped)", len(some))
	}
}

func TestMarketInsights(t *testing.T) {
	svc, _ := newTestService(t, nil)
	got, err := svc.MarketInsights(context.Background(), "u1")
	if err != nil {
		t.Fatalf("MarketInsights: %v", err)
	}
	if got.TotalListings != 30 {
		t.Errorf("total = %d, want 30", got.TotalListings)
	}
}

func TestCatalogFailure(t *testing.T) {
	svc, _ := newTestService(t, failingCatalog{})
	if _, err := svc.RecommendForUser(context.Background(), "u1"); err == nil {
		t.Error("expected error from failing catalog")
	}
}

func TestRefreshActive(t *testing.T) {
	svc, profiles := newTestService(t, nil)
	ctx := context.Background()
	for _, cid := range []string{"u1", "u2", "u3"} {
		if err := profiles.RecordView(ctx, cid, "p1"); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := svc.RefreshActive(ctx, time.Now().Add(-time.Hour), 2)
	if err != nil {
		t.Fatalf("RefreshActive: %v", err)
	}
	if stats.Processed != 3 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 3 processed", stats)
	}

	stats, _ = svc.RefreshActive(ctx, time.Now().Add(time.Hour), 2)
	if stats.Processed != 0 {
		t.Errorf("future cutoff processed %d users", stats.Processed)
	}
}

func TestRefreshActiveContinuesAfterFailures(t *testing.T) {
	cfg := config.Default()
	profiles := repository.NewProfileRepository(repository.NewMemoryProfileStore(), cfg.Profile)
	ctx := context.Background()
	for _, cid := range []string{"u1", "u2"} {
		_ = profiles.RecordView(ctx, cid, "p1")
	}
	svc := NewRecommendationService(cfg, profiles, failingCatalog{}, nil, nil)

	stats, err := svc.RefreshActive(ctx, time.Now().Add(-time.Hour), 4)
	if err != nil {
		t.Fatalf("RefreshActive: %v", err)
	}
	if stats.Processed != 2 || stats.Failed != 2 {
		t.Errorf("stats = %+v, want 2 processed 2 failed", stats)
	}
}
