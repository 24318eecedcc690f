package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"property_recommend/models"
	"property_recommend/utils"
)

// GetUserProfileHandler godoc
// @Summary 获取用户画像
// @Description 获取指定用户的画像，首次访问时自动创建
// @Tags 用户画像
// @Produce json
// @Param cid path string true "用户ID"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Router /api/profile/{cid} [get]
func (a *API) GetUserProfileHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}

	profile, err := a.profiles.LoadUserProfile(r.Context(), cid)
	if err != nil {
		utils.HandleServiceError(w, err, models.CodeNoUserProfile)
		return
	}
	utils.WriteSuccessResponse(w, profile)
}

// RecordSearchHandler godoc
// @Summary 记录搜索行为
// @Tags 用户画像
// @Accept json
// @Produce json
// @Param cid path string true "用户ID"
// @Param body body models.RecordSearchRequest true "搜索内容"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Router /api/profile/{cid}/search [post]
func (a *API) RecordSearchHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}
	var req models.RecordSearchRequest
	if !utils.DecodeJSON(w, r, &req, false) {
		return
	}

	if err := a.profiles.RecordSearch(r.Context(), cid, req); err != nil {
		utils.HandleServiceError(w, err, models.CodeNoUserProfile)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"cid": cid})
}

// ClearSearchHistoryHandler godoc
// @Summary 清空搜索历史
// @Tags 用户画像
// @Produce json
// @Param cid path string true "用户ID"
// @Success 200 {object} models.APIResponse "成功"
// @Router /api/profile/{cid}/search [delete]
func (a *API) ClearSearchHistoryHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}
	if err := a.profiles.ClearSearchHistory(r.Context(), cid); err != nil {
		utils.HandleServiceError(w, err, models.CodeNoUserProfile)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"cid": cid})
}

// RecordViewHandler godoc
// @Summary 记录浏览行为
// @Tags 用户画像
// @Accept json
// @Produce json
// @Param cid path string true "用户ID"
// @Param body body models.RecordViewRequest true "浏览的房源"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Router /api/profile/{cid}/view [post]
func (a *API) RecordViewHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}
	var req models.RecordViewRequest
	if !utils.DecodeJSON(w, r, &req, false) {
		return
	}

	if err := a.profiles.RecordView(r.Context(), cid, req.PropertyID); err != nil {
		utils.HandleServiceError(w, err, models.CodeNoUserProfile)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"cid": cid, "property_id": req.PropertyID})
}

// RemoveViewHandler godoc
// @Summary 删除一条浏览记录
// @Tags 用户画像
// @Produce json
// @Param cid path string true "用户ID"
// @Param pid path string true "房源ID"
// @Success 200 {object} models.APIResponse "成功"
// @Router /api/profile/{cid}/view/{pid} [delete]
func (a *API) RemoveViewHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}
	pid := chi.URLParam(r, "pid")

	removed, err := a.profiles.RemoveView(r.Context(), cid, pid)
	if err != nil {
		utils.HandleServiceError(w, err, models.CodeNoUserProfile)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"property_id": pid, "removed": removed})
}

// ToggleFavoriteHandler godoc
// @Summary 切换收藏状态
// @Description 已收藏则取消，未收藏则加入收藏，返回切换后的状态
// @Tags 用户画像
// @Produce json
// @Param cid path string true "用户ID"
// @Param pid path string true "房源ID"
// @Success 200 {object} models.APIResponse{data=models.FavoriteResponse} "成功"
// @Router /api/profile/{cid}/favorite/{pid} [post]
func (a *API) ToggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}
	pid := chi.URLParam(r, "pid")

	favorite, err := a.profiles.ToggleFavorite(r.Context(), cid, pid)
	if err != nil {
		utils.HandleServiceError(w, err, models.CodeNoUserProfile)
		return
	}
	utils.WriteSuccessResponse(w, models.FavoriteResponse{PropertyID: pid, Favorite: favorite})
}

// SaveSearchHandler godoc
// @Summary 保存搜索条件
// @Tags 保存的搜索
// @Accept json
// @Produce json
// @Param cid path string true "用户ID"
// @Param body body models.SaveSearchRequest true "搜索条件"
// @Success 200 {object} models.APIResponse{data=models.SavedSearch} "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Router /api/profile/{cid}/saved-search [post]
func (a *API) SaveSearchHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}
	var req models.SaveSearchRequest
	if !utils.DecodeJSON(w, r, &req, false) {
		return
	}

	saved, err := a.profiles.SaveSearch(r.Context(), cid, req)
	if err != nil {
		utils.HandleServiceError(w, err, models.CodeNoUserProfile)
		return
	}
	utils.WriteSuccessResponse(w, saved)
}

// DeleteSavedSearchHandler godoc
// @Summary 删除保存的搜索
// @Tags 保存的搜索
// @Produce json
// @Param cid path string true "用户ID"
// @Param sid path string true "保存的搜索ID"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 400 {object} models.APIResponse "保存的搜索不存在"
// @Router /api/profile/{cid}/saved-search/{sid} [delete]
func (a *API) DeleteSavedSearchHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}
	sid := chi.URLParam(r, "sid")

	deleted, err := a.profiles.DeleteSavedSearch(r.Context(), cid, sid)
	if err != nil {
		utils.HandleServiceError(w, err, models.CodeSavedSearchNotFound)
		return
	}
	if !deleted {
		utils.WriteErrorResponse(w, models.CodeSavedSearchNotFound, map[string]interface{}{"id": sid})
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"id": sid})
}

// SetSavedSearchNotifyHandler godoc
// @Summary 开关保存的搜索的通知
// @Tags 保存的搜索
// @Accept json
// @Produce json
// @Param cid path string true "用户ID"
// @Param sid path string true "保存的搜索ID"
// @Param body body models.SavedSearchNotifyRequest true "是否通知"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 400 {object} models.APIResponse "保存的搜索不存在"
// @Router /api/profile/{cid}/saved-search/{sid}/notify [put]
func (a *API) SetSavedSearchNotifyHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}
	sid := chi.URLParam(r, "sid")
	var req models.SavedSearchNotifyRequest
	if !utils.DecodeJSON(w, r, &req, false) {
		return
	}

	found, err := a.profiles.SetSavedSearchNotify(r.Context(), cid, sid, *req.Enabled)
	if err != nil {
		utils.HandleServiceError(w, err, models.CodeSavedSearchNotFound)
		return
	}
	if !found {
		utils.WriteErrorResponse(w, models.CodeSavedSearchNotFound, map[string]interface{}{"id": sid})
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"id": sid, "notify_enabled": *req.Enabled})
}

// MarkSavedSearchNotifiedHandler godoc
// @Summary 记录保存的搜索已通知
// @Description 通知服务推送完成后回调，记录最近一次通知时间
// @Tags 保存的搜索
// @Produce json
// @Param cid path string true "用户ID"
// @Param sid path string true "保存的搜索ID"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 400 {object} models.APIResponse "保存的搜索不存在"
// @Router /api/profile/{cid}/saved-search/{sid}/notified [post]
func (a *API) MarkSavedSearchNotifiedHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}
	sid := chi.URLParam(r, "sid")

	found, err := a.profiles.MarkSavedSearchNotified(r.Context(), cid, sid)
	if err != nil {
		utils.HandleServiceError(w, err, models.CodeSavedSearchNotFound)
		return
	}
	if !found {
		utils.WriteErrorResponse(w, models.CodeSavedSearchNotFound, map[string]interface{}{"id": sid})
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"id": sid})
}

// ExportProfileHandler godoc
// @Summary 导出用户画像
// @Description 导出为扁平的 JSON 快照，可用于 import 接口
// @Tags 用户画像
// @Produce json
// @Param cid path string true "用户ID"
// @Success 200 {object} models.APIResponse "成功"
// @Router /api/profile/{cid}/export [get]
func (a *API) ExportProfileHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}

	data, err := a.profiles.Export(r.Context(), cid)
	if err != nil {
		utils.HandleServiceError(w, err, models.CodeNoUserProfile)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"cid": cid, "data": data})
}

// ImportProfileHandler godoc
// @Summary 导入用户画像
// @Description 用快照覆盖用户画像，快照所属用户必须与路径中的用户一致
// @Tags 用户画像
// @Accept json
// @Produce json
// @Param cid path string true "用户ID"
// @Param body body models.ImportProfileRequest true "画像快照"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误或用户不匹配"
// @Router /api/profile/{cid}/import [post]
func (a *API) ImportProfileHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}
	var req models.ImportProfileRequest
	if !utils.DecodeJSON(w, r, &req, false) {
		return
	}

	ok, err := a.profiles.Import(r.Context(), cid, req.Data)
	if err != nil {
		utils.WriteCustomErrorResponse(w, models.CodeInvalidParams, err.Error(), map[string]interface{}{})
		return
	}
	if !ok {
		utils.WriteErrorResponse(w, models.CodeProfileMismatch, map[string]interface{}{"cid": cid})
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"cid": cid, "imported": true})
}

// AnalyzePreferencesHandler godoc
// @Summary 分析用户偏好
// @Description 根据搜索、浏览和收藏历史重新计算用户偏好
// @Tags 用户画像
// @Produce json
// @Param cid path string true "用户ID"
// @Success 200 {object} models.APIResponse{data=models.UserPreferences} "成功"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/profile/{cid}/preferences [get]
func (a *API) AnalyzePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if !utils.ValidateCID(w, cid) {
		return
	}

	prefs, err := a.recs.AnalyzeProfile(r.Context(), cid)
	if err != nil {
		writeRecommendError(w, err, models.CodeProfileGenError)
		return
	}
	utils.WriteSuccessResponse(w, prefs)
}
