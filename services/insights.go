package services

import (
	"math"
	"sort"

	"property_recommend/config"
	"property_recommend/models"
)

// InsightsAggregator 基于候选集合的市场统计，趋势特征是配置中的固定列表
type InsightsAggregator struct {
	trendingFeatures []string
	topLocations     int
}

func NewInsightsAggregator(cfg config.RecommendConfig) *InsightsAggregator {
	def := config.DefaultRecommend()
	features := cfg.TrendingFeatures
	if len(features) == 0 {
		features = def.TrendingFeatures
	}
	top := cfg.PopularLocations
	if top <= 0 {
		top = def.PopularLocations
	}
	return &InsightsAggregator{
		trendingFeatures: append([]string{}, features...),
		topLocations:     top,
	}
}

func (a *InsightsAggregator) Insights(all []models.PropertyRecord, prefs models.UserPreferences) models.MarketInsights {
	budget := models.NewBudget(prefs.Budget.Min, prefs.Budget.Max)
	out := models.MarketInsights{
		PopularLocations: []string{},
		TrendingFeatures: append([]string{}, a.trendingFeatures...),
		TotalListings:    len(all),
	}

	var sum float64
	var priced int
	minPrice, maxPrice := math.Inf(1), 0.0
	counts := make(map[string]int)
	for _, p := range all {
		if p.HasPrice() {
			sum += p.Price
			priced++
			minPrice = math.Min(minPrice, p.Price)
			maxPrice = math.Max(maxPrice, p.Price)
			if budget.Contains(p.Price) {
				out.WithinBudget++
			}
		}
		if loc := p.Location.Primary(); loc != "" {
			counts[loc]++
		}
	}
	if priced > 0 {
		out.AveragePrice = math.Round(sum/float64(priced)*100) / 100
		out.MinPrice = minPrice
		out.MaxPrice = maxPrice
	}

	for loc := range counts {
		out.PopularLocations = append(out.PopularLocations, loc)
	}
	sort.Slice(out.PopularLocations, func(i, j int) bool {
		li, lj := out.PopularLocations[i], out.PopularLocations[j]
		if counts[li] != counts[lj] {
			return counts[li] > counts[lj]
		}
		return li < lj
	})
	if len(out.PopularLocations) > a.topLocations {
		out.PopularLocations = out.PopularLocations[:a.topLocations]
	}
	return out
}
