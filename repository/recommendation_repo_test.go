package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"property_recommend/db"
	"property_recommend/models"
)

func TestRecommendationCaches(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	sqlCache := NewSQLRecommendationCache(conn, DialectSQLite)
	if err := sqlCache.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	caches := map[string]RecommendationCache{
		"memory": NewMemoryRecommendationCache(),
		"sqlite": sqlCache,
	}
	for name, cache := range caches {
		t.Run(name, func(t *testing.T) {
			if _, err := cache.Get(ctx, "u1", time.Hour); !errors.Is(err, ErrCacheMiss) {
				t.Fatalf("empty cache: err = %v", err)
			}

			res := &models.RecommendationResult{
				ForYou:      []string{"p1", "p2"},
				Trending:    []string{"p2"},
				Insights:    models.MarketInsights{AveragePrice: 42, PopularLocations: []string{"Canggu"}},
				GeneratedAt: time.Now(),
			}
			if err := cache.Put(ctx, "u1", res); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := cache.Get(ctx, "u1", time.Hour)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if len(got.ForYou) != 2 || got.Insights.AveragePrice != 42 {
				t.Errorf("cached = %+v", got)
			}

			stale := &models.RecommendationResult{GeneratedAt: time.Now().Add(-2 * time.Hour)}
			_ = cache.Put(ctx, "u2", stale)
			if _, err := cache.Get(ctx, "u2", time.Hour); !errors.Is(err, ErrCacheMiss) {
				t.Errorf("stale entry: err = %v, want ErrCacheMiss", err)
			}

			if err := cache.Invalidate(ctx, "u1"); err != nil {
				t.Fatal(err)
			}
			if _, err := cache.Get(ctx, "u1", time.Hour); !errors.Is(err, ErrCacheMiss) {
				t.Errorf("after invalidate: err = %v", err)
			}
		})
	}
}
