package services

import (
	"math"
	"sort"
	"strings"

	"property_recommend/config"
	"property_recommend/models"
)

// SimilarityEngine 两个房源之间 [0,1] 的加权相似度
// 只做目标对候选的线性比较，不计算全量两两相似度
type SimilarityEngine struct {
	weights          config.SimilarityWeights
	locationBaseline float64
	features         *FeatureExtractor
}

func NewSimilarityEngine(cfg config.RecommendConfig, features *FeatureExtractor) *SimilarityEngine {
	def := config.DefaultRecommend()
	w := cfg.Similarity
	if w.Price < 0 || w.Location < 0 || w.Type < 0 || w.Size < 0 || w.Feature < 0 {
		w = def.Similarity
	}
	if sum := w.Price + w.Location + w.Type + w.Size + w.Feature; sum > 0 {
		w = config.SimilarityWeights{
			Price:    w.Price / sum,
			Location: w.Location / sum,
			Type:     w.Type / sum,
			Size:     w.Size / sum,
			Feature:  w.Feature / sum,
		}
	} else {
		w = def.Similarity
	}
	baseline := cfg.LocationBaseline
	if baseline <= 0 || baseline > 1 {
		baseline = def.LocationBaseline
	}
	if features == nil {
		features = NewFeatureExtractor(config.DefaultScoring().Features)
	}
	return &SimilarityEngine{weights: w, locationBaseline: baseline, features: features}
}

func (s *SimilarityEngine) Similarity(a, b models.PropertyRecord) float64 {
	return s.similarity(a, s.features.set(a), b)
}

func (s *SimilarityEngine) similarity(a models.PropertyRecord, aTags map[string]struct{}, b models.PropertyRecord) float64 {
	w := s.weights
	total := priceSimilarity(a, b)*w.Price +
		s.locationSimilarity(a.Location, b.Location)*w.Location +
		typeSimilarity(a, b)*w.Type +
		sizeSimilarity(a.Size(), b.Size())*w.Size +
		jaccard(aTags, s.features.set(b))*w.Feature
	return clamp(total, 0, 1)
}

// RankSimilar 按与 anchor 的相似度降序排列候选，anchor 本身被排除
func (s *SimilarityEngine) RankSimilar(anchor models.PropertyRecord, candidates []models.PropertyRecord, limit int) []models.SimilarProperty {
	anchorTags := s.features.set(anchor)
	out := make([]models.SimilarProperty, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == anchor.ID {
			continue
		}
		out = append(out, models.SimilarProperty{
			PropertyID: c.ID,
			Similarity: math.Round(s.similarity(anchor, anchorTags, c)*1000) / 1000,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].PropertyID < out[j].PropertyID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// priceSimilarity 任一方缺少价格时取中间值
func priceSimilarity(a, b models.PropertyRecord) float64 {
	if !a.HasPrice() || !b.HasPrice() {
		return 0.5
	}
	avg := (a.Price + b.Price) / 2
	return clamp(1-math.Abs(a.Price-b.Price)/avg, 0, 1)
}

func (s *SimilarityEngine) locationSimilarity(a, b models.Location) float64 {
	la, lb := a.String(), b.String()
	if la != "" && strings.EqualFold(la, lb) {
		return 1
	}
	return s.locationBaseline
}

func typeSimilarity(a, b models.PropertyRecord) float64 {
	if a.HasType() && a.NormalizedType() == b.NormalizedType() {
		return 1
	}
	return 0
}

func sizeSimilarity(a, b float64) float64 {
	switch {
	case a <= 0 && b <= 0:
		return 0.5
	case a <= 0 || b <= 0:
		return 0
	}
	return clamp(1-math.Abs(a-b)/math.Max(a, b), 0, 1)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
