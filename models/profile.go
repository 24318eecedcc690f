package models

import (
	"slices"
	"time"
)

// SavedSearch 用户保存的搜索条件
type SavedSearch struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Query         string        `json:"query"`
	Filters       SearchFilters `json:"filters"`
	NotifyEnabled bool          `json:"notify_enabled"`
	LastNotified  *time.Time    `json:"last_notified,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// UserProfile 每个用户一份的行为画像，列表均为最近在前
type UserProfile struct {
	CID                string          `json:"cid"`
	Preferences        UserPreferences `json:"preferences"`
	SearchHistory      []SearchEvent   `json:"search_history"`
	ViewedProperties   []string        `json:"viewed_properties"`
	FavoriteProperties []string        `json:"favorite_properties"`
	SavedSearches      []SavedSearch   `json:"saved_searches"`
	LastActivity       time.Time       `json:"last_activity"`
	CreatedAt          time.Time       `json:"created_at"`
}

// NewUserProfile 首次访问时创建的空画像
func NewUserProfile(cid string, now time.Time) *UserProfile {
	return &UserProfile{
		CID:                cid,
		Preferences:        EmptyPreferences(),
		SearchHistory:      []SearchEvent{},
		ViewedProperties:   []string{},
		FavoriteProperties: []string{},
		SavedSearches:      []SavedSearch{},
		LastActivity:       now,
		CreatedAt:          now,
	}
}

// Clone 深拷贝，存储后端之间不共享切片
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.Preferences = p.Preferences.Clone()
	c.SearchHistory = make([]SearchEvent, len(p.SearchHistory))
	for i, s := range p.SearchHistory {
		s.Filters = cloneFilters(s.Filters)
		c.SearchHistory[i] = s
	}
	c.ViewedProperties = append([]string{}, p.ViewedProperties...)
	c.FavoriteProperties = append([]string{}, p.FavoriteProperties...)
	c.SavedSearches = make([]SavedSearch, len(p.SavedSearches))
	for i, s := range p.SavedSearches {
		s.Filters = cloneFilters(s.Filters)
		if s.LastNotified != nil {
			t := *s.LastNotified
			s.LastNotified = &t
		}
		c.SavedSearches[i] = s
	}
	return &c
}

func cloneFilters(f SearchFilters) SearchFilters {
	c := f
	if f.MinPrice != nil {
		v := *f.MinPrice
		c.MinPrice = &v
	}
	if f.MaxPrice != nil {
		v := *f.MaxPrice
		c.MaxPrice = &v
	}
	c.PropertyTypes = slices.Clone(f.PropertyTypes)
	c.Locations = slices.Clone(f.Locations)
	return c
}

func (p *UserProfile) IsFavorite(propertyID string) bool {
	return slices.Contains(p.FavoriteProperties, propertyID)
}

// HistoryIDs 浏览与收藏的并集，用于推荐时排除
func (p *UserProfile) HistoryIDs() []string {
	seen := make(map[string]bool, len(p.ViewedProperties)+len(p.FavoriteProperties))
	ids := make([]string, 0, len(p.ViewedProperties)+len(p.FavoriteProperties))
	for _, list := range [][]string{p.ViewedProperties, p.FavoriteProperties} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// ProfileSnapshotVersion 导出格式版本
const ProfileSnapshotVersion = 1

// ProfileSnapshot 导出/导入使用的扁平自描述记录
type ProfileSnapshot struct {
	Version            int             `json:"version"`
	CID                string          `json:"cid"`
	ExportedAt         time.Time       `json:"exported_at"`
	Preferences        UserPreferences `json:"preferences"`
	SearchHistory      []SearchEvent   `json:"search_history"`
	ViewedProperties   []string        `json:"viewed_properties"`
	FavoriteProperties []string        `json:"favorite_properties"`
	SavedSearches      []SavedSearch   `json:"saved_searches"`
	LastActivity       time.Time       `json:"last_activity"`
	CreatedAt          time.Time       `json:"created_at"`
}

func (p *UserProfile) Snapshot(now time.Time) ProfileSnapshot {
	c := p.Clone()
	return ProfileSnapshot{
		Version:            ProfileSnapshotVersion,
		CID:                c.CID,
		ExportedAt:         now,
		Preferences:        c.Preferences,
		SearchHistory:      c.SearchHistory,
		ViewedProperties:   c.ViewedProperties,
		FavoriteProperties: c.FavoriteProperties,
		SavedSearches:      c.SavedSearches,
		LastActivity:       c.LastActivity,
		CreatedAt:          c.CreatedAt,
	}
}

// Profile 将快照还原为画像，nil 切片替换为空切片
func (s ProfileSnapshot) Profile() *UserProfile {
	p := &UserProfile{
		CID:                s.CID,
		Preferences:        s.Preferences,
		SearchHistory:      s.SearchHistory,
		ViewedProperties:   s.ViewedProperties,
		FavoriteProperties: s.FavoriteProperties,
		SavedSearches:      s.SavedSearches,
		LastActivity:       s.LastActivity,
		CreatedAt:          s.CreatedAt,
	}
	if p.SearchHistory == nil {
		p.SearchHistory = []SearchEvent{}
	}
	if p.ViewedProperties == nil {
		p.ViewedProperties = []string{}
	}
	if p.FavoriteProperties == nil {
		p.FavoriteProperties = []string{}
	}
	if p.SavedSearches == nil {
		p.SavedSearches = []SavedSearch{}
	}
	if p.Preferences.PropertyTypes == nil {
		p.Preferences.PropertyTypes = []string{}
	}
	if p.Preferences.Locations == nil {
		p.Preferences.Locations = []string{}
	}
	if p.Preferences.Features == nil {
		p.Preferences.Features = []string{}
	}
	if p.Preferences.Budget.Max < p.Preferences.Budget.Min || p.Preferences.Budget.Max == 0 {
		p.Preferences.Budget = NewBudget(p.Preferences.Budget.Min, p.Preferences.Budget.Max)
	}
	p.Preferences.Priorities = p.Preferences.Priorities.Clamp()
	return p
}
