package services

import (
	"context"
	"time"

	"property_recommend/models"
)

// ProfileRepo 推荐服务需要的画像读写能力，由 repository.ProfileRepository 实现
type ProfileRepo interface {
	GetOrCreate(ctx context.Context, cid string) (*models.UserProfile, error)
	UpdatePreferences(ctx context.Context, cid string, prefs models.UserPreferences) error
	List(ctx context.Context, since time.Time) ([]string, error)
}

// Recommendations 对外暴露的推荐能力，HTTP 层和调度器都依赖它
type Recommendations interface {
	AnalyzeProfile(ctx context.Context, cid string) (models.UserPreferences, error)
	RecommendForUser(ctx context.Context, cid string) (*models.RecommendationResult, error)
	CachedRecommendations(ctx context.Context, cid string) (*models.RecommendationResult, error)
	ScoreForUser(ctx context.Context, cid string, propertyIDs []string) ([]models.PropertyScore, error)
	MarketInsights(ctx context.Context, cid string) (models.MarketInsights, error)
	RefreshActive(ctx context.Context, since time.Time, concurrency int) (RefreshStats, error)
	Invalidate(ctx context.Context, cid string)
}

// Engines 每个进程一份的计算引擎，显式传递给使用方
type Engines struct {
	Features    *FeatureExtractor
	Profiler    *PreferenceProfiler
	Scoring     *ScoringEngine
	Similarity  *SimilarityEngine
	Insights    *InsightsAggregator
	Recommender *Recommender
}
