package services

import (
	"sort"

	"property_recommend/config"
	"property_recommend/models"
)

// 从属性推导出的定性标签
const (
	TagLargeLand     = "large land"
	TagLargeBuilding = "large building"
	TagManyBedrooms  = "many bedrooms"
	TagManyBathrooms = "many bathrooms"
	TagPremium       = "premium listing"
	TagHot           = "hot property"
)

// FeatureExtractor 打分与相似度共用的特征提取
type FeatureExtractor struct {
	cfg config.FeatureConfig
}

func NewFeatureExtractor(cfg config.FeatureConfig) *FeatureExtractor {
	def := config.DefaultScoring().Features
	if cfg.LargeLandArea <= 0 {
		cfg.LargeLandArea = def.LargeLandArea
	}
	if cfg.LargeBuildingArea <= 0 {
		cfg.LargeBuildingArea = def.LargeBuildingArea
	}
	if cfg.ManyBedrooms <= 0 {
		cfg.ManyBedrooms = def.ManyBedrooms
	}
	if cfg.ManyBathrooms <= 0 {
		cfg.ManyBathrooms = def.ManyBathrooms
	}
	if len(cfg.TypeTags) == 0 {
		cfg.TypeTags = def.TypeTags
	}
	return &FeatureExtractor{cfg: cfg}
}

// Extract 缺失或异常的数值不产生标签
func (f *FeatureExtractor) Extract(p models.PropertyRecord) []string {
	tags := make([]string, 0, 6)
	if models.ValidAmount(p.LandArea) && p.LandArea > f.cfg.LargeLandArea {
		tags = append(tags, TagLargeLand)
	}
	if models.ValidAmount(p.BuildingArea) && p.BuildingArea > f.cfg.LargeBuildingArea {
		tags = append(tags, TagLargeBuilding)
	}
	if p.Bedrooms >= f.cfg.ManyBedrooms {
		tags = append(tags, TagManyBedrooms)
	}
	if p.Bathrooms >= f.cfg.ManyBathrooms {
		tags = append(tags, TagManyBathrooms)
	}
	if tag, ok := f.cfg.TypeTags[p.NormalizedType()]; ok && tag != "" {
		tags = append(tags, tag)
	}
	if p.IsPremium {
		tags = append(tags, TagPremium)
	}
	if p.IsHot {
		tags = append(tags, TagHot)
	}
	return tags
}

func (f *FeatureExtractor) set(p models.PropertyRecord) map[string]struct{} {
	tags := f.Extract(p)
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

// TopFeatures 按出现次数取前 n 个标签，次数相同按字母序
func (f *FeatureExtractor) TopFeatures(props []models.PropertyRecord, n int) []string {
	counts := make(map[string]int)
	for _, p := range props {
		for _, t := range f.Extract(p) {
			counts[t]++
		}
	}
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if n > 0 && len(tags) > n {
		tags = tags[:n]
	}
	return tags
}
