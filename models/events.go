package models

import (
	"strings"
	"time"
)

// SearchFilters 搜索时显式选择的筛选条件
type SearchFilters struct {
	MinPrice        *float64 `json:"min_price,omitempty"`
	MaxPrice        *float64 `json:"max_price,omitempty"`
	PropertyTypes   []string `json:"property_types,omitempty"`
	Locations       []string `json:"locations,omitempty"`
	MinBedrooms     int      `json:"min_bedrooms,omitempty"`
	MinBathrooms    int      `json:"min_bathrooms,omitempty"`
	MinLandArea     float64  `json:"min_land_area,omitempty"`
	MinBuildingArea float64  `json:"min_building_area,omitempty"`
}

// Normalize 在写入时统一清洗筛选条件，打分逻辑不再做类型判断
func (f SearchFilters) Normalize() SearchFilters {
	out := SearchFilters{
		MinBedrooms:     max(f.MinBedrooms, 0),
		MinBathrooms:    max(f.MinBathrooms, 0),
		PropertyTypes:   normalizeTerms(f.PropertyTypes, true),
		Locations:       normalizeTerms(f.Locations, false),
		MinLandArea:     f.MinLandArea,
		MinBuildingArea: f.MinBuildingArea,
	}
	if !ValidAmount(out.MinLandArea) {
		out.MinLandArea = 0
	}
	if !ValidAmount(out.MinBuildingArea) {
		out.MinBuildingArea = 0
	}
	if f.MinPrice != nil && ValidAmount(*f.MinPrice) {
		v := *f.MinPrice
		out.MinPrice = &v
	}
	if f.MaxPrice != nil && ValidAmount(*f.MaxPrice) {
		v := *f.MaxPrice
		out.MaxPrice = &v
	}
	if out.MinPrice != nil && out.MaxPrice != nil && *out.MinPrice > *out.MaxPrice {
		out.MinPrice, out.MaxPrice = out.MaxPrice, out.MinPrice
	}
	return out
}

func (f SearchFilters) HasPrice() bool {
	return f.MinPrice != nil || f.MaxPrice != nil
}

func (f SearchFilters) HasSize() bool {
	return f.MinBedrooms > 0 || f.MinBathrooms > 0 || f.MinLandArea > 0 || f.MinBuildingArea > 0
}

func normalizeTerms(in []string, lower bool) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if lower {
			s = strings.ToLower(s)
		}
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// EventKind 行为事件类型
type EventKind string

const (
	EventSearch EventKind = "search"
	EventView   EventKind = "view"
	EventSave   EventKind = "save"
)

// BehavioralEvent 画像分析入口使用的事件联合类型，只有本包内的三种事件实现它
type BehavioralEvent interface {
	Kind() EventKind
	isBehavioralEvent()
}

type SearchEvent struct {
	Query        string        `json:"query"`
	Filters      SearchFilters `json:"filters"`
	Timestamp    time.Time     `json:"timestamp"`
	ResultsCount int           `json:"results_count"`
}

type ViewEvent struct {
	PropertyID string    `json:"property_id"`
	Timestamp  time.Time `json:"timestamp"`
}

type SaveEvent struct {
	PropertyID string    `json:"property_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewSearchEvent 构造搜索事件并清洗输入
func NewSearchEvent(query string, filters SearchFilters, resultsCount int, at time.Time) SearchEvent {
	return SearchEvent{
		Query:        strings.TrimSpace(query),
		Filters:      filters.Normalize(),
		Timestamp:    at,
		ResultsCount: max(resultsCount, 0),
	}
}

func (SearchEvent) Kind() EventKind { return EventSearch }
func (ViewEvent) Kind() EventKind   { return EventView }
func (SaveEvent) Kind() EventKind   { return EventSave }

func (SearchEvent) isBehavioralEvent() {}
func (ViewEvent) isBehavioralEvent()   {}
func (SaveEvent) isBehavioralEvent()   {}
