package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"property_recommend/config"
	"property_recommend/metrics"
	"property_recommend/models"
)

const (
	reasonPrice    = "Price strongly matches your budget"
	reasonLocation = "Located in one of your preferred areas"
	reasonType     = "Matches your preferred property type"
	reasonPopular  = "Popular listing on the market"
	reasonFallback = "A reasonable match based on the available details"
)

// ScoringEngine 加权多维度打分，每次调用都是纯计算
type ScoringEngine struct {
	cfg      config.ScoringConfig
	weights  config.ScoreWeights
	features *FeatureExtractor
}

func NewScoringEngine(cfg config.ScoringConfig, features *FeatureExtractor) *ScoringEngine {
	def := config.DefaultScoring()
	if cfg.PriceDecaySlope <= 0 {
		cfg.PriceDecaySlope = def.PriceDecaySlope
	}
	if cfg.MissingPriceScore <= 0 {
		cfg.MissingPriceScore = def.MissingPriceScore
	}
	if cfg.LocationBaseline <= 0 {
		cfg.LocationBaseline = def.LocationBaseline
	}
	if cfg.TypeBaseline <= 0 {
		cfg.TypeBaseline = def.TypeBaseline
	}
	if cfg.ConfidenceBase <= 0 {
		cfg.ConfidenceBase = def.ConfidenceBase
	}
	if cfg.ConfidenceStep <= 0 {
		cfg.ConfidenceStep = def.ConfidenceStep
	}
	if cfg.StrongMatchPercent <= 0 {
		cfg.StrongMatchPercent = def.StrongMatchPercent
	}
	if cfg.Popularity == (config.PopularityConfig{}) {
		cfg.Popularity = def.Popularity
	}
	if features == nil {
		features = NewFeatureExtractor(cfg.Features)
	}
	return &ScoringEngine{
		cfg:      cfg,
		weights:  cfg.Weights.Normalize(),
		features: features,
	}
}

// prefMatcher 一次批量打分只构建一次
type prefMatcher struct {
	prefs     models.UserPreferences
	types     map[string]struct{}
	locations []string
	features  map[string]struct{}
}

func newPrefMatcher(prefs models.UserPreferences) *prefMatcher {
	// 零值或颠倒的预算在这里统一修正
	prefs.Budget = models.NewBudget(prefs.Budget.Min, prefs.Budget.Max)
	m := &prefMatcher{
		prefs:    prefs,
		types:    make(map[string]struct{}, len(prefs.PropertyTypes)),
		features: make(map[string]struct{}, len(prefs.Features)),
	}
	for _, t := range prefs.PropertyTypes {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			m.types[t] = struct{}{}
		}
	}
	for _, l := range prefs.Locations {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			m.locations = append(m.locations, l)
		}
	}
	for _, f := range prefs.Features {
		m.features[f] = struct{}{}
	}
	return m
}

// Score 单个房源打分，缺失字段只降低对应维度和置信度
func (e *ScoringEngine) Score(p models.PropertyRecord, prefs models.UserPreferences) models.PropertyScore {
	return e.score(p, newPrefMatcher(prefs))
}

// ScoreAll 批量打分，按总分降序，总分相同按房源 ID 升序
func (e *ScoringEngine) ScoreAll(props []models.PropertyRecord, prefs models.UserPreferences) []models.PropertyScore {
	start := time.Now()
	m := newPrefMatcher(prefs)
	scores := make([]models.PropertyScore, len(props))
	for i, p := range props {
		scores[i] = e.score(p, m)
	}
	SortScores(scores)
	metrics.RecordScoring(len(props), time.Since(start))
	return scores
}

// SortScores 排序规则与 ScoreAll 一致
func SortScores(scores []models.PropertyScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].TotalScore != scores[j].TotalScore {
			return scores[i].TotalScore > scores[j].TotalScore
		}
		return scores[i].PropertyID < scores[j].PropertyID
	})
}

func (e *ScoringEngine) score(p models.PropertyRecord, m *prefMatcher) models.PropertyScore {
	tags := e.features.Extract(p)
	matched := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := m.features[t]; ok {
			matched = append(matched, t)
		}
	}

	b := models.ScoreBreakdown{
		PriceMatch:      e.priceScore(p, m.prefs.Budget),
		LocationMatch:   e.locationScore(p.Location, m.locations),
		TypeMatch:       e.typeScore(p, m.types),
		FeatureMatch:    clamp(float64(len(matched))/math.Max(float64(len(m.features)), 1)*100, 0, 100),
		PopularityBonus: e.popularityScore(p),
	}

	w := e.weights
	total := b.PriceMatch*w.Price +
		b.LocationMatch*w.Location +
		b.TypeMatch*w.Type +
		b.FeatureMatch*w.Feature +
		b.PopularityBonus*w.Popularity

	return models.PropertyScore{
		PropertyID: p.ID,
		TotalScore: round1(clamp(total, 0, 100)),
		Breakdown:  b,
		Confidence: e.confidence(p, m.prefs),
		Reasons:    e.reasons(p, b, matched),
	}
}

func (e *ScoringEngine) priceScore(p models.PropertyRecord, budget models.Budget) float64 {
	if !p.HasPrice() {
		return clamp(e.cfg.MissingPriceScore, 0, 100)
	}
	price := p.Price
	switch {
	case budget.Contains(price):
		return 100
	case price < budget.Min:
		return clamp(100-((budget.Min-price)/budget.Min)*e.cfg.PriceDecaySlope, 0, 100)
	default:
		return clamp(100-((price-budget.Max)/budget.Max)*e.cfg.PriceDecaySlope, 0, 100)
	}
}

// locationScore 完整地址或任一层级与偏好地区互相包含即视为匹配
func (e *ScoringEngine) locationScore(loc models.Location, preferred []string) float64 {
	if matchesLocation(loc, preferred) {
		return 100
	}
	return clamp(e.cfg.LocationBaseline, 0, 100)
}

func matchesLocation(loc models.Location, preferred []string) bool {
	if len(preferred) == 0 {
		return false
	}
	candidates := []string{strings.ToLower(loc.String())}
	for _, part := range loc.Parts() {
		candidates = append(candidates, strings.ToLower(part))
	}
	for _, want := range preferred {
		for _, have := range candidates {
			if have == "" {
				continue
			}
			if strings.Contains(have, want) || strings.Contains(want, have) {
				return true
			}
		}
	}
	return false
}

func (e *ScoringEngine) typeScore(p models.PropertyRecord, types map[string]struct{}) float64 {
	if _, ok := types[p.NormalizedType()]; ok && p.HasType() {
		return 100
	}
	return clamp(e.cfg.TypeBaseline, 0, 100)
}

func (e *ScoringEngine) popularityScore(p models.PropertyRecord) float64 {
	pc := e.cfg.Popularity
	s := pc.Base
	if p.IsPremium {
		s += pc.Premium
	}
	if p.IsHot {
		s += pc.Hot
	}
	if p.IsFeatured {
		s += pc.Featured
	}
	if p.HasImage() {
		s += pc.Image
	}
	return clamp(s, 0, 100)
}

// confidence 每个有效信号增加一个步长
func (e *ScoringEngine) confidence(p models.PropertyRecord, prefs models.UserPreferences) float64 {
	signals := []bool{
		p.HasPrice(),
		p.HasType(),
		p.Location.IsComplete(),
		p.HasImage(),
		len(prefs.PropertyTypes) > 0,
		len(prefs.Locations) > 0,
	}
	c := e.cfg.ConfidenceBase
	for _, ok := range signals {
		if ok {
			c += e.cfg.ConfidenceStep
		}
	}
	return math.Round(clamp(c, 0, 1)*100) / 100
}

func (e *ScoringEngine) reasons(p models.PropertyRecord, b models.ScoreBreakdown, matched []string) []string {
	strong := e.cfg.StrongMatchPercent
	reasons := make([]string, 0, 5)
	if p.HasPrice() && b.PriceMatch > strong {
		reasons = append(reasons, reasonPrice)
	}
	if b.LocationMatch > strong {
		reasons = append(reasons, reasonLocation)
	}
	if b.TypeMatch > strong {
		reasons = append(reasons, reasonType)
	}
	if len(matched) > 0 {
		reasons = append(reasons, fmt.Sprintf("Has features you like: %s", strings.Join(matched, ", ")))
	}
	if b.PopularityBonus > strong {
		reasons = append(reasons, reasonPopular)
	}
	if len(reasons) == 0 {
		reasons = append(reasons, reasonFallback)
	}
	return reasons
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round1 保留一位小数
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
