package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"property_recommend/logger"
	"property_recommend/models"
	"property_recommend/utils"
)

func writeRecommendError(w http.ResponseWriter, err error, code int) {
	if utils.IsInvalidInput(err) {
		utils.WriteCustomErrorResponse(w, models.CodeInvalidParams, err.Error(), map[string]interface{}{})
		return
	}
	utils.WriteCustomErrorResponse(w, code, err.Error(), map[string]interface{}{})
}

// GetUserRecommendationHandler godoc
// @Summary 获取用户推荐内容
// @Description 返回未过期的缓存推荐，没有缓存时重新生成
// @Tags 推荐内容
// @Produce json
// @Param cid path string true "用户ID"
// @Success 200 {object} models.APIResponse{data=models.RecommendationResult} "成功"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/recommendation/{cid} [get]
func (a *API) GetUserRecommendationHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}

	res, err := a.recs.CachedRecommendations(r.Context(), cid)
	if err != nil {
		writeRecommendError(w, err, models.CodeRecommendGenError)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// RefreshUserRecommendationHandler godoc
// @Summary 强制刷新用户推荐内容
// @Description 不使用缓存，重新分析用户偏好并生成推荐
// @Tags 推荐内容
// @Produce json
// @Param cid path string true "用户ID"
// @Success 200 {object} models.APIResponse{data=models.RecommendationResult} "成功"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/recommendation/refresh/{cid} [post]
func (a *API) RefreshUserRecommendationHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}

	res, err := a.recs.RecommendForUser(r.Context(), cid)
	if err != nil {
		writeRecommendError(w, err, models.CodeRecommendGenError)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// RefreshActiveRecommendationsHandler godoc
// @Summary 为最近活跃的用户刷新推荐内容
// @Description 刷新最近 lookback_hours 小时内有行为的用户，单个用户失败不影响其他用户
// @Tags 推荐内容
// @Produce json
// @Success 200 {object} models.APIResponse "成功"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/recommendation/refresh [post]
func (a *API) RefreshActiveRecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	since := time.Now().Add(-time.Duration(a.cfg.Scheduler.LookbackHours) * time.Hour)
	stats, err := a.recs.RefreshActive(r.Context(), since, a.cfg.Recommend.RefreshConcurrent)
	if err != nil {
		logger.Error("刷新活跃用户推荐失败", "error", err)
		utils.WriteCustomErrorResponse(w, models.CodeRecommendGenError, err.Error(), stats)
		return
	}
	utils.WriteSuccessResponse(w, stats)
}

// ScoreHandler godoc
// @Summary 为房源打分
// @Description 按用户偏好为指定房源打分，property_ids 为空时对全部在售房源打分，结果按总分降序
// @Tags 推荐内容
// @Accept json
// @Produce json
// @Param cid path string true "用户ID"
// @Param body body models.ScoreRequest false "房源ID列表"
// @Success 200 {object} models.APIResponse{data=[]models.PropertyScore} "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Router /api/score/{cid} [post]
func (a *API) ScoreHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}
	var req models.ScoreRequest
	if !utils.DecodeJSON(w, r, &req, true) {
		return
	}

	scores, err := a.recs.ScoreForUser(r.Context(), cid, utils.DeduplicateSlice(req.PropertyIDs))
	if err != nil {
		writeRecommendError(w, err, models.CodeCatalogError)
		return
	}
	utils.WriteSuccessResponse(w, scores)
}

// InsightsHandler godoc
// @Summary 市场概况
// @Description 基于在售房源的价格、热门地区和符合预算的房源数量
// @Tags 推荐内容
// @Produce json
// @Param cid path string true "用户ID"
// @Success 200 {object} models.APIResponse{data=models.MarketInsights} "成功"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/insights/{cid} [get]
func (a *API) InsightsHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}

	insights, err := a.recs.MarketInsights(r.Context(), cid)
	if err != nil {
		writeRecommendError(w, err, models.CodeCatalogError)
		return
	}
	utils.WriteSuccessResponse(w, insights)
}
