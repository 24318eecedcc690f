package services

import (
	"math"
	"strings"

	"property_recommend/models"
)

// PreferenceProfiler 把行为历史转换成偏好快照，无副作用
type PreferenceProfiler struct {
	features    *FeatureExtractor
	maxFeatures int
}

func NewPreferenceProfiler(features *FeatureExtractor, maxFeatures int) *PreferenceProfiler {
	if maxFeatures <= 0 {
		maxFeatures = 5
	}
	return &PreferenceProfiler{features: features, maxFeatures: maxFeatures}
}

// Profile 没有任何输入时返回全区间预算和空集合
func (pp *PreferenceProfiler) Profile(searches []models.SearchEvent, viewed, saved []models.PropertyRecord) models.UserPreferences {
	prefs := models.EmptyPreferences()
	prefs.Budget = budgetFrom(searches, viewed)
	prefs.PropertyTypes, prefs.Locations = filterTerms(searches)
	prefs.Features = pp.features.TopFeatures(uniqueProperties(viewed, saved), pp.maxFeatures)
	prefs.Priorities = derivePriorities(searches, saved)
	return prefs
}

// ProfileEvents 事件联合类型入口，浏览和收藏事件按 catalog 解析，未知房源跳过
func (pp *PreferenceProfiler) ProfileEvents(events []models.BehavioralEvent, catalog map[string]models.PropertyRecord) models.UserPreferences {
	var (
		searches []models.SearchEvent
		viewed   []models.PropertyRecord
		saved    []models.PropertyRecord
	)
	for _, ev := range events {
		switch e := ev.(type) {
		case models.SearchEvent:
			e.Filters = e.Filters.Normalize()
			searches = append(searches, e)
		case models.ViewEvent:
			if p, ok := catalog[e.PropertyID]; ok {
				viewed = append(viewed, p)
			}
		case models.SaveEvent:
			if p, ok := catalog[e.PropertyID]; ok {
				saved = append(saved, p)
			}
		}
	}
	return pp.Profile(searches, viewed, saved)
}

// budgetFrom 先取筛选条件里的价格区间，再用浏览价格的均值±标准差收窄
// 两个区间没有交集时以筛选条件为准
func budgetFrom(searches []models.SearchEvent, viewed []models.PropertyRecord) models.Budget {
	lo, hi := 0.0, models.UnboundedBudget
	var haveMin, haveMax bool
	for _, s := range searches {
		if v := s.Filters.MinPrice; v != nil && models.ValidAmount(*v) {
			if !haveMin || *v < lo {
				lo = *v
			}
			haveMin = true
		}
		if v := s.Filters.MaxPrice; v != nil && models.ValidAmount(*v) {
			if !haveMax || *v > hi {
				hi = *v
			}
			haveMax = true
		}
	}
	if lo > hi {
		lo, hi = hi, lo
	}

	prices := make([]float64, 0, len(viewed))
	for _, p := range viewed {
		if p.HasPrice() {
			prices = append(prices, p.Price)
		}
	}
	if len(prices) == 0 {
		return models.NewBudget(lo, hi)
	}

	mean, sd := meanStdDev(prices)
	vlo, vhi := math.Max(mean-sd, 0), mean+sd
	nlo, nhi := math.Max(lo, vlo), math.Min(hi, vhi)
	if nlo > nhi {
		return models.NewBudget(lo, hi)
	}
	return models.NewBudget(nlo, nhi)
}

func meanStdDev(values []float64) (float64, float64) {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}

func filterTerms(searches []models.SearchEvent) (types, locations []string) {
	types, locations = []string{}, []string{}
	seenType := make(map[string]bool)
	seenLoc := make(map[string]bool)
	for _, s := range searches {
		for _, t := range s.Filters.PropertyTypes {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" && !seenType[t] {
				seenType[t] = true
				types = append(types, t)
			}
		}
		for _, l := range s.Filters.Locations {
			l = strings.TrimSpace(l)
			key := strings.ToLower(l)
			if l != "" && !seenLoc[key] {
				seenLoc[key] = true
				locations = append(locations, l)
			}
		}
	}
	return types, locations
}

func uniqueProperties(lists ...[]models.PropertyRecord) []models.PropertyRecord {
	seen := make(map[string]bool)
	out := make([]models.PropertyRecord, 0)
	for _, list := range lists {
		for _, p := range list {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	return out
}

// derivePriorities 每次搜索用到某个维度就加 1，收藏的房源计入特征维度
func derivePriorities(searches []models.SearchEvent, saved []models.PropertyRecord) models.Priorities {
	p := models.DefaultPriorities()
	for _, s := range searches {
		if s.Filters.HasPrice() {
			p.Price++
		}
		if len(s.Filters.Locations) > 0 {
			p.Location++
		}
		if s.Filters.HasSize() {
			p.Size++
		}
	}
	p.Features += len(saved)
	return p.Clamp()
}
