package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"property_recommend/config"
	"property_recommend/logger"
	"property_recommend/metrics"
	"property_recommend/models"
)

var (
	ErrInvalidPropertyID   = errors.New("invalid property id")
	ErrUnsupportedSnapshot = errors.New("unsupported profile snapshot version")
)

// ProfileRepository 画像状态的唯一写入方
// 同一用户的读-改-写在按用户的锁内完成，不同用户之间互不阻塞
type ProfileRepository struct {
	store ProfileStore
	cfg   config.ProfileConfig
	locks *keyedMutex
	now   func() time.Time
}

func NewProfileRepository(store ProfileStore, cfg config.ProfileConfig) *ProfileRepository {
	def := config.DefaultProfile()
	if cfg.MaxSearchHistory <= 0 {
		cfg.MaxSearchHistory = def.MaxSearchHistory
	}
	if cfg.MaxViewed <= 0 {
		cfg.MaxViewed = def.MaxViewed
	}
	if cfg.MaxSavedSearches <= 0 {
		cfg.MaxSavedSearches = def.MaxSavedSearches
	}
	return &ProfileRepository{
		store: store,
		cfg:   cfg,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
}

func validCID(cid string) (string, error) {
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return "", ErrInvalidCID
	}
	return cid, nil
}

// loadOrNew 调用方必须持有该用户的锁
func (r *ProfileRepository) loadOrNew(ctx context.Context, cid string) (*models.UserProfile, bool, error) {
	p, err := r.store.Load(ctx, cid)
	if errors.Is(err, ErrProfileNotFound) {
		return models.NewUserProfile(cid, r.now()), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load profile %s: %w", cid, err)
	}
	return p, false, nil
}

// GetOrCreate 获取用户画像，首次访问时创建
func (r *ProfileRepository) GetOrCreate(ctx context.Context, cid string) (p *models.UserProfile, err error) {
	defer func() { metrics.RecordProfileOp("get", err) }()

	cid, err = validCID(cid)
	if err != nil {
		return nil, err
	}
	unlock := r.locks.Lock(cid)
	defer unlock()

	p, created, err := r.loadOrNew(ctx, cid)
	if err != nil {
		return nil, err
	}
	if created {
		if err := r.store.Save(ctx, p); err != nil {
			return nil, fmt.Errorf("save profile %s: %w", cid, err)
		}
		logger.Debug("created profile", "cid", cid)
	}
	return p.Clone(), nil
}

// update 在用户锁内执行 load -> mutate -> save，并刷新最近活跃时间
func (r *ProfileRepository) update(ctx context.Context, op, cid string, mutate func(p *models.UserProfile) error) error {
	return r.modify(ctx, op, cid, true, mutate)
}

// modify touch 为 false 时不视为用户行为，不更新最近活跃时间
func (r *ProfileRepository) modify(ctx context.Context, op, cid string, touch bool, mutate func(p *models.UserProfile) error) (err error) {
	defer func() { metrics.RecordProfileOp(op, err) }()

	cid, err = validCID(cid)
	if err != nil {
		return err
	}
	unlock := r.locks.Lock(cid)
	defer unlock()

	p, _, err := r.loadOrNew(ctx, cid)
	if err != nil {
		return err
	}
	if err := mutate(p); err != nil {
		return err
	}
	if touch {
		p.LastActivity = r.now()
	}
	if err := r.store.Save(ctx, p); err != nil {
		return fmt.Errorf("save profile %s: %w", cid, err)
	}
	return nil
}

// RecordSearch 记录一次搜索，最新的在前
func (r *ProfileRepository) RecordSearch(ctx context.Context, cid, query string, filters models.SearchFilters, resultsCount int) error {
	return r.update(ctx, "record_search", cid, func(p *models.UserProfile) error {
		ev := models.NewSearchEvent(query, filters, resultsCount, r.now())
		p.SearchHistory = truncate(slices.Insert(p.SearchHistory, 0, ev), r.cfg.MaxSearchHistory)
		return nil
	})
}

// RecordView 记录浏览，重复浏览的房源移到最前
func (r *ProfileRepository) RecordView(ctx context.Context, cid, propertyID string) error {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return ErrInvalidPropertyID
	}
	return r.update(ctx, "record_view", cid, func(p *models.UserProfile) error {
		viewed := slices.DeleteFunc(p.ViewedProperties, func(id string) bool { return id == propertyID })
		p.ViewedProperties = truncate(slices.Insert(viewed, 0, propertyID), r.cfg.MaxViewed)
		return nil
	})
}

// RemoveView 删除一条浏览记录
func (r *ProfileRepository) RemoveView(ctx context.Context, cid, propertyID string) (removed bool, err error) {
	err = r.update(ctx, "remove_view", cid, func(p *models.UserProfile) error {
		before := len(p.ViewedProperties)
		p.ViewedProperties = slices.DeleteFunc(p.ViewedProperties, func(id string) bool { return id == propertyID })
		removed = len(p.ViewedProperties) != before
		return nil
	})
	return removed, err
}

// ClearSearchHistory 清空搜索历史
func (r *ProfileRepository) ClearSearchHistory(ctx context.Context, cid string) error {
	return r.update(ctx, "clear_search_history", cid, func(p *models.UserProfile) error {
		p.SearchHistory = []models.SearchEvent{}
		return nil
	})
}

// ToggleFavorite 切换收藏状态，返回切换后的状态
func (r *ProfileRepository) ToggleFavorite(ctx context.Context, cid, propertyID string) (favorite bool, err error) {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return false, ErrInvalidPropertyID
	}
	err = r.update(ctx, "toggle_favorite", cid, func(p *models.UserProfile) error {
		if p.IsFavorite(propertyID) {
			p.FavoriteProperties = slices.DeleteFunc(p.FavoriteProperties, func(id string) bool { return id == propertyID })
			favorite = false
			return nil
		}
		p.FavoriteProperties = slices.Insert(p.FavoriteProperties, 0, propertyID)
		favorite = true
		return nil
	})
	return favorite, err
}

// SaveSearch 保存搜索条件，超出上限时丢弃最早的
func (r *ProfileRepository) SaveSearch(ctx context.Context, cid, name, query string, filters models.SearchFilters) (*models.SavedSearch, error) {
	name = strings.TrimSpace(name)
	query = strings.TrimSpace(query)
	if name == "" {
		name = query
	}
	if name == "" {
		name = "Untitled search"
	}

	var saved models.SavedSearch
	err := r.update(ctx, "save_search", cid, func(p *models.UserProfile) error {
		saved = models.SavedSearch{
			ID:            uuid.NewString(),
			Name:          name,
			Query:         query,
			Filters:       filters.Normalize(),
			NotifyEnabled: true,
			CreatedAt:     r.now(),
		}
		p.SavedSearches = truncate(slices.Insert(p.SavedSearches, 0, saved), r.cfg.MaxSavedSearches)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteSavedSearch 删除保存的搜索，不存在时返回 false
func (r *ProfileRepository) DeleteSavedSearch(ctx context.Context, cid, searchID string) (deleted bool, err error) {
	err = r.update(ctx, "delete_saved_search", cid, func(p *models.UserProfile) error {
		before := len(p.SavedSearches)
		p.SavedSearches = slices.DeleteFunc(p.SavedSearches, func(s models.SavedSearch) bool { return s.ID == searchID })
		deleted = len(p.SavedSearches) != before
		return nil
	})
	return deleted, err
}

func (r *ProfileRepository) updateSavedSearch(ctx context.Context, op, cid, searchID string, fn func(s *models.SavedSearch)) (found bool, err error) {
	err = r.update(ctx, op, cid, func(p *models.UserProfile) error {
		i := slices.IndexFunc(p.SavedSearches, func(s models.SavedSearch) bool { return s.ID == searchID })
		if i < 0 {
			return nil
		}
		fn(&p.SavedSearches[i])
		found = true
		return nil
	})
	return found, err
}

// MarkSavedSearchNotified 记录保存的搜索最近一次通知的时间
func (r *ProfileRepository) MarkSavedSearchNotified(ctx context.Context, cid, searchID string, at time.Time) (bool, error) {
	return r.updateSavedSearch(ctx, "mark_notified", cid, searchID, func(s *models.SavedSearch) {
		s.LastNotified = &at
	})
}

func (r *ProfileRepository) SetSavedSearchNotify(ctx context.Context, cid, searchID string, enabled bool) (bool, error) {
	return r.updateSavedSearch(ctx, "set_notify", cid, searchID, func(s *models.SavedSearch) {
		s.NotifyEnabled = enabled
	})
}

// UpdatePreferences 保存最近一次分析得到的偏好，属于派生数据，不更新最近活跃时间
func (r *ProfileRepository) UpdatePreferences(ctx context.Context, cid string, prefs models.UserPreferences) error {
	return r.modify(ctx, "update_preferences", cid, false, func(p *models.UserProfile) error {
		p.Preferences = prefs.Clone()
		return nil
	})
}

// List 最近活跃时间不早于 since 的用户
func (r *ProfileRepository) List(ctx context.Context, since time.Time) ([]string, error) {
	return r.store.List(ctx, since)
}

// Export 导出为扁平的 JSON 快照
func (r *ProfileRepository) Export(ctx context.Context, cid string) (string, error) {
	p, err := r.GetOrCreate(ctx, cid)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(p.Snapshot(r.now()))
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	metrics.RecordProfileOp("export", nil)
	return string(b), nil
}

// Import 用快照覆盖用户画像
// 快照中的用户与 cid 不一致时返回 false 且不修改任何数据；数据本身无法解析时返回错误
func (r *ProfileRepository) Import(ctx context.Context, cid, data string) (ok bool, err error) {
	defer func() { metrics.RecordProfileOp("import", err) }()

	cid, err = validCID(cid)
	if err != nil {
		return false, err
	}
	var snap models.ProfileSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return false, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version > models.ProfileSnapshotVersion {
		return false, fmt.Errorf("%w: %d", ErrUnsupportedSnapshot, snap.Version)
	}
	if snap.CID != cid {
		metrics.ProfileImportRejected.Inc()
		logger.Warn("profile import rejected: identity mismatch", "cid", cid, "snapshot_cid", snap.CID)
		return false, nil
	}

	p := snap.Profile()
	p.SearchHistory = truncate(p.SearchHistory, r.cfg.MaxSearchHistory)
	p.ViewedProperties = truncate(dedupe(p.ViewedProperties), r.cfg.MaxViewed)
	p.FavoriteProperties = dedupe(p.FavoriteProperties)
	p.SavedSearches = truncate(p.SavedSearches, r.cfg.MaxSavedSearches)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}
	p.LastActivity = r.now()

	unlock := r.locks.Lock(cid)
	defer unlock()
	if err := r.store.Save(ctx, p); err != nil {
		return false, fmt.Errorf("save profile %s: %w", cid, err)
	}
	return true, nil
}

func truncate[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	return slices.DeleteFunc(ids, func(id string) bool {
		if seen[id] {
			return true
		}
		seen[id] = true
		return false
	})
}
