package services

import (
	"context"
	"time"

	"property_recommend/models"
	"property_recommend/repository"
)

// ProfileService 用户行为写入入口，行为变化后让缓存的推荐失效
type ProfileService struct {
	repo *repository.ProfileRepository
	recs *RecommendationService
}

func NewProfileService(repo *repository.ProfileRepository, recs *RecommendationService) *ProfileService {
	return &ProfileService{repo: repo, recs: recs}
}

func (s *ProfileService) invalidate(ctx context.Context, cid string, err error) {
	if err == nil && s.recs != nil {
		s.recs.Invalidate(ctx, cid)
	}
}

func (s *ProfileService) LoadUserProfile(ctx context.Context, cid string) (*models.UserProfile, error) {
	return s.repo.GetOrCreate(ctx, cid)
}

func (s *ProfileService) RecordSearch(ctx context.Context, cid string, req models.RecordSearchRequest) error {
	err := s.repo.RecordSearch(ctx, cid, req.Query, req.Filters, req.ResultsCount)
	s.invalidate(ctx, cid, err)
	return err
}

func (s *ProfileService) RecordView(ctx context.Context, cid, propertyID string) error {
	err := s.repo.RecordView(ctx, cid, propertyID)
	s.invalidate(ctx, cid, err)
	return err
}

func (s *ProfileService) RemoveView(ctx context.Context, cid, propertyID string) (bool, error) {
	removed, err := s.repo.RemoveView(ctx, cid, propertyID)
	s.invalidate(ctx, cid, err)
	return removed, err
}

func (s *ProfileService) ClearSearchHistory(ctx context.Context, cid string) error {
	err := s.repo.ClearSearchHistory(ctx, cid)
	s.invalidate(ctx, cid, err)
	return err
}

func (s *ProfileService) ToggleFavorite(ctx context.Context, cid, propertyID string) (bool, error) {
	favorite, err := s.repo.ToggleFavorite(ctx, cid, propertyID)
	s.invalidate(ctx, cid, err)
	return favorite, err
}

// SaveSearch 保存的搜索不参与偏好计算，不需要让推荐失效
func (s *ProfileService) SaveSearch(ctx context.Context, cid string, req models.SaveSearchRequest) (*models.SavedSearch, error) {
	return s.repo.SaveSearch(ctx, cid, req.Name, req.Query, req.Filters)
}

func (s *ProfileService) DeleteSavedSearch(ctx context.Context, cid, searchID string) (bool, error) {
	return s.repo.DeleteSavedSearch(ctx, cid, searchID)
}

func (s *ProfileService) SetSavedSearchNotify(ctx context.Context, cid, searchID string, enabled bool) (bool, error) {
	return s.repo.SetSavedSearchNotify(ctx, cid, searchID, enabled)
}

func (s *ProfileService) MarkSavedSearchNotified(ctx context.Context, cid, searchID string) (bool, error) {
	return s.repo.MarkSavedSearchNotified(ctx, cid, searchID, time.Now())
}

func (s *ProfileService) Export(ctx context.Context, cid string) (string, error) {
	return s.repo.Export(ctx, cid)
}

// Import 导入成功后旧的推荐不再有效
func (s *ProfileService) Import(ctx context.Context, cid, data string) (bool, error) {
	ok, err := s.repo.Import(ctx, cid, data)
	if ok {
		s.invalidate(ctx, cid, err)
	}
	return ok, err
}
