package models

import "time"

// ScoreBreakdown 各维度得分，均在 0-100
type ScoreBreakdown struct {
	PriceMatch      float64 `json:"price_match"`
	LocationMatch   float64 `json:"location_match"`
	TypeMatch       float64 `json:"type_match"`
	FeatureMatch    float64 `json:"feature_match"`
	PopularityBonus float64 `json:"popularity_bonus"`
}

// PropertyScore 单个候选房源的打分结果，每次请求重新计算
type PropertyScore struct {
	PropertyID string         `json:"property_id"`
	TotalScore float64        `json:"total_score"`
	Breakdown  ScoreBreakdown `json:"breakdown"`
	Confidence float64        `json:"confidence"`
	Reasons    []string       `json:"reasons"`
}

// SimilarProperty 与锚点房源的相似度
type SimilarProperty struct {
	PropertyID string  `json:"property_id"`
	Similarity float64 `json:"similarity"`
}

// MarketInsights 基于候选集合的市场统计
type MarketInsights struct {
	AveragePrice     float64  `json:"average_price"`
	PopularLocations []string `json:"popular_locations"`
	TrendingFeatures []string `json:"trending_features"`
	TotalListings    int      `json:"total_listings"`
	MinPrice         float64  `json:"min_price"`
	MaxPrice         float64  `json:"max_price"`
	WithinBudget     int      `json:"within_budget"`
}

// RecommendationResult 分类推荐结果，所有 ID 均来自传入的候选集合
type RecommendationResult struct {
	ForYou          []string       `json:"for_you"`
	Trending        []string       `json:"trending"`
	SimilarToViewed []string       `json:"similar_to_viewed"`
	BasedOnSearches []string       `json:"based_on_searches"`
	Insights        MarketInsights `json:"insights"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// AllIDs 所有分类中出现的房源 ID（可能重复）
func (r RecommendationResult) AllIDs() []string {
	ids := make([]string, 0, len(r.ForYou)+len(r.Trending)+len(r.SimilarToViewed)+len(r.BasedOnSearches))
	ids = append(ids, r.ForYou...)
	ids = append(ids, r.Trending...)
	ids = append(ids, r.SimilarToViewed...)
	ids = append(ids, r.BasedOnSearches...)
	return ids
}
