package services

import (
	"sort"
	"time"

	"property_recommend/config"
	"property_recommend/models"
)

// Recommender 组合打分、相似度、趋势和历史排除，生成分类推荐
// 所有输出 ID 都来自传入的候选集合
type Recommender struct {
	scoring    *ScoringEngine
	similarity *SimilarityEngine
	insights   *InsightsAggregator
	cfg        config.RecommendConfig
	now        func() time.Time
}

func NewRecommender(cfg config.RecommendConfig, scoring *ScoringEngine, similarity *SimilarityEngine, insights *InsightsAggregator) *Recommender {
	def := config.DefaultRecommend()
	if cfg.ForYouLimit <= 0 {
		cfg.ForYouLimit = def.ForYouLimit
	}
	if cfg.TrendingLimit <= 0 {
		cfg.TrendingLimit = def.TrendingLimit
	}
	if cfg.SimilarLimit <= 0 {
		cfg.SimilarLimit = def.SimilarLimit
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = def.SearchLimit
	}
	return &Recommender{
		scoring:    scoring,
		similarity: similarity,
		insights:   insights,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (r *Recommender) Recommend(all []models.PropertyRecord, prefs models.UserPreferences, historyIDs []string) models.RecommendationResult {
	scores := r.scoring.ScoreAll(all, prefs)

	res := models.RecommendationResult{
		ForYou:          topIDs(scores, r.cfg.ForYouLimit),
		Trending:        r.Trending(all),
		SimilarToViewed: []string{},
		BasedOnSearches: r.basedOnSearches(scores, historyIDs),
		Insights:        r.insights.Insights(all, prefs),
		GeneratedAt:     r.now(),
	}

	if len(scores) > 0 {
		anchorID := scores[0].PropertyID
		for _, p := range all {
			if p.ID == anchorID {
				for _, s := range r.similarity.RankSimilar(p, all, r.cfg.SimilarLimit) {
					res.SimilarToViewed = append(res.SimilarToViewed, s.PropertyID)
				}
				break
			}
		}
	}
	return res
}

func topIDs(scores []models.PropertyScore, n int) []string {
	if n > len(scores) {
		n = len(scores)
	}
	ids := make([]string, 0, n)
	for _, s := range scores[:n] {
		ids = append(ids, s.PropertyID)
	}
	return ids
}

// basedOnSearches 排除浏览过或收藏过的房源后取前 N
// 每个房源的得分互相独立，过滤已排序的结果等价于对剩余房源重新打分排序
func (r *Recommender) basedOnSearches(scores []models.PropertyScore, historyIDs []string) []string {
	seen := make(map[string]struct{}, len(historyIDs))
	for _, id := range historyIDs {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, r.cfg.SearchLimit)
	for _, s := range scores {
		if len(ids) == r.cfg.SearchLimit {
			break
		}
		if _, ok := seen[s.PropertyID]; ok {
			continue
		}
		ids = append(ids, s.PropertyID)
	}
	return ids
}

// TrendingWeight hot×3 + featured×2 + premium×1
func TrendingWeight(p models.PropertyRecord) int {
	w := 0
	if p.IsHot {
		w += 3
	}
	if p.IsFeatured {
		w += 2
	}
	if p.IsPremium {
		w++
	}
	return w
}

// Trending 带标记的房源按权重排序；开启补齐时用未标记的最新房源补足数量
func (r *Recommender) Trending(all []models.PropertyRecord) []string {
	candidates := make([]models.PropertyRecord, 0, len(all))
	for _, p := range all {
		if TrendingWeight(p) > 0 || r.cfg.TrendingBackfill {
			candidates = append(candidates, p)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		wi, wj := TrendingWeight(candidates[i]), TrendingWeight(candidates[j])
		if wi != wj {
			return wi > wj
		}
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	n := min(r.cfg.TrendingLimit, len(candidates))
	ids := make([]string, 0, n)
	for _, p := range candidates[:n] {
		ids = append(ids, p.ID)
	}
	return ids
}
