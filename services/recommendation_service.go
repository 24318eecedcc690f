package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"property_recommend/config"
	"property_recommend/logger"
	"property_recommend/metrics"
	"property_recommend/models"
	"property_recommend/repository"
)

// NewEngines 根据配置构建全部计算引擎
func NewEngines(cfg *config.Config) *Engines {
	features := NewFeatureExtractor(cfg.Scoring.Features)
	scoring := NewScoringEngine(cfg.Scoring, features)
	similarity := NewSimilarityEngine(cfg.Recommend, features)
	insights := NewInsightsAggregator(cfg.Recommend)
	return &Engines{
		Features:    features,
		Profiler:    NewPreferenceProfiler(features, cfg.Profile.MaxFeatures),
		Scoring:     scoring,
		Similarity:  similarity,
		Insights:    insights,
		Recommender: NewRecommender(cfg.Recommend, scoring, similarity, insights),
	}
}

// RecommendationService 组合画像、房源数据、计算引擎和缓存
type RecommendationService struct {
	profiles ProfileRepo
	catalog  repository.PropertySource
	cache    repository.RecommendationCache
	engines  *Engines
	cacheTTL time.Duration

	// 每个用户的失效代数，生成期间代数变化的结果不能留在缓存里
	genMu sync.Mutex
	gens  map[string]uint64
}

func NewRecommendationService(cfg *config.Config, profiles ProfileRepo, catalog repository.PropertySource, cache repository.RecommendationCache, engines *Engines) *RecommendationService {
	if cache == nil {
		cache = repository.NewMemoryRecommendationCache()
	}
	if engines == nil {
		engines = NewEngines(cfg)
	}
	return &RecommendationService{
		profiles: profiles,
		catalog:  catalog,
		cache:    cache,
		engines:  engines,
		cacheTTL: time.Duration(cfg.Recommend.CacheTTLMinutes) * time.Minute,
		gens:     make(map[string]uint64),
	}
}

func (s *RecommendationService) generation(cid string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[cid]
}

func (s *RecommendationService) bumpGeneration(cid string) {
	s.genMu.Lock()
	s.gens[cid]++
	s.genMu.Unlock()
}

// analyze 读取画像，解析浏览和收藏的房源，计算偏好并保存
func (s *RecommendationService) analyze(ctx context.Context, cid string) (*models.UserProfile, models.UserPreferences, error) {
	profile, err := s.profiles.GetOrCreate(ctx, cid)
	if err != nil {
		return nil, models.UserPreferences{}, err
	}

	viewed, err := s.catalog.GetByIDs(ctx, profile.ViewedProperties)
	if err != nil {
		return nil, models.UserPreferences{}, fmt.Errorf("load viewed properties: %w", err)
	}
	saved, err := s.catalog.GetByIDs(ctx, profile.FavoriteProperties)
	if err != nil {
		return nil, models.UserPreferences{}, fmt.Errorf("load favorite properties: %w", err)
	}

	prefs := s.engines.Profiler.Profile(profile.SearchHistory, viewed, saved)
	if err := s.profiles.UpdatePreferences(ctx, cid, prefs); err != nil {
		// 偏好只是派生数据，保存失败不影响本次结果
		logger.Warn("Failed to store preferences", "cid", cid, "error", err)
	}
	profile.Preferences = prefs
	return profile, prefs, nil
}

// AnalyzeProfile 根据行为历史重新计算用户偏好
func (s *RecommendationService) AnalyzeProfile(ctx context.Context, cid string) (models.UserPreferences, error) {
	_, prefs, err := s.analyze(ctx, cid)
	return prefs, err
}

// RecommendForUser 重新生成推荐并写入缓存
func (s *RecommendationService) RecommendForUser(ctx context.Context, cid string) (*models.RecommendationResult, error) {
	start := time.Now()
	gen := s.generation(cid)
	profile, prefs, err := s.analyze(ctx, cid)
	if err != nil {
		return nil, err
	}

	all, err := s.catalog.ListProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}

	res := s.engines.Recommender.Recommend(all, prefs, profile.HistoryIDs())
	if err := s.cache.Put(ctx, cid, &res); err != nil {
		logger.Warn("Failed to cache recommendations", "cid", cid, "error", err)
	}
	// Invalidate 先增加代数再删缓存，所以写入之后再比较代数即可
	if s.generation(cid) != gen {
		logger.Debug("Profile changed during generation, dropping cached result", "cid", cid)
		if err := s.cache.Invalidate(ctx, cid); err != nil {
			logger.Warn("Failed to invalidate recommendation cache", "cid", cid, "error", err)
		}
	}

	metrics.RecordRecommendation("fresh", time.Since(start))
	logger.Info("Recommendations generated",
		"cid", cid,
		"candidates", len(all),
		"for_you", len(res.ForYou),
		"duration_ms", time.Since(start).Milliseconds())
	return &res, nil
}

// CachedRecommendations 优先返回未过期的缓存
func (s *RecommendationService) CachedRecommendations(ctx context.Context, cid string) (*models.RecommendationResult, error) {
	res, err := s.cache.Get(ctx, cid, s.cacheTTL)
	if err == nil {
		metrics.RecordRecommendation("cache", 0)
		return res, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		logger.Warn("Recommendation cache read failed, regenerating", "cid", cid, "error", err)
	}
	return s.RecommendForUser(ctx, cid)
}

// Invalidate 用户行为变化后丢弃旧的推荐
func (s *RecommendationService) Invalidate(ctx context.Context, cid string) {
	s.bumpGeneration(cid)
	if err := s.cache.Invalidate(ctx, cid); err != nil {
		logger.Warn("Failed to invalidate recommendation cache", "cid", cid, "error", err)
	}
}

// ScoreForUser 对指定房源（为空时为全部在售房源）打分
func (s *RecommendationService) ScoreForUser(ctx context.Context, cid string, propertyIDs []string) ([]models.PropertyScore, error) {
	_, prefs, err := s.analyze(ctx, cid)
	if err != nil {
		return nil, err
	}

	var props []models.PropertyRecord
	if len(propertyIDs) == 0 {
		props, err = s.catalog.ListProperties(ctx)
	} else {
		props, err = s.catalog.GetByIDs(ctx, propertyIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("load properties: %w", err)
	}
	return s.engines.Scoring.ScoreAll(props, prefs), nil
}

func (s *RecommendationService) MarketInsights(ctx context.Context, cid string) (models.MarketInsights, error) {
	_, prefs, err := s.analyze(ctx, cid)
	if err != nil {
		return models.MarketInsights{}, err
	}
	all, err := s.catalog.ListProperties(ctx)
	if err != nil {
		return models.MarketInsights{}, fmt.Errorf("list properties: %w", err)
	}
	return s.engines.Insights.Insights(all, prefs), nil
}

// RefreshStats 批量刷新的统计
type RefreshStats struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// RefreshActive 并发刷新最近活跃用户的推荐，单个用户失败不影响其他用户
func (s *RecommendationService) RefreshActive(ctx context.Context, since time.Time, concurrency int) (RefreshStats, error) {
	cids, err := s.profiles.List(ctx, since)
	if err != nil {
		return RefreshStats{}, fmt.Errorf("list active profiles: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	logger.Info("Refreshing recommendations", "users", len(cids), "concurrency", concurrency)

	var processed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, cid := range cids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, err := s.RecommendForUser(gctx, cid)
			processed.Add(1)
			metrics.RecordRefresh(err)
			if err != nil {
				failed.Add(1)
				logger.Error("生成用户推荐内容失败", "cid", cid, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := RefreshStats{Processed: int(processed.Load()), Failed: int(failed.Load())}
	logger.Info("所有用户推荐内容生成完成", "processed", stats.Processed, "failed", stats.Failed)
	return stats, ctx.Err()
}
