package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"property_recommend/config"
	_ "property_recommend/docs" // 导入 swagger 文档
	"property_recommend/services"
	"property_recommend/utils"
)

// API HTTP 层只做参数解析和响应转换，业务逻辑都在 services 中
type API struct {
	cfg      *config.Config
	profiles *services.ProfileService
	recs     services.Recommendations
}

func NewAPI(cfg *config.Config, profiles *services.ProfileService, recs services.Recommendations) *API {
	return &API{cfg: cfg, profiles: profiles, recs: recs}
}

// HealthHandler godoc
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} models.APIResponse "成功"
// @Router /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, map[string]interface{}{"status": "ok"})
}

func RegisterRoutes(r chi.Router, api *API) {
	// Swagger 文档
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // Swagger JSON 的 URL
	))
	r.Get("/health", HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/profile/{cid}", func(r chi.Router) {
		r.Get("/", api.GetUserProfileHandler)
		r.Post("/search", api.RecordSearchHandler)
		r.Delete("/search", api.ClearSearchHistoryHandler)
		r.Post("/view", api.RecordViewHandler)
		r.Delete("/view/{pid}", api.RemoveViewHandler)
		r.Post("/favorite/{pid}", api.ToggleFavoriteHandler)
		r.Post("/saved-search", api.SaveSearchHandler)
		r.Delete("/saved-search/{sid}", api.DeleteSavedSearchHandler)
		r.Put("/saved-search/{sid}/notify", api.SetSavedSearchNotifyHandler)
		r.Post("/saved-search/{sid}/notified", api.MarkSavedSearchNotifiedHandler)
		r.Get("/export", api.ExportProfileHandler)
		r.Post("/import", api.ImportProfileHandler)
		r.Get("/preferences", api.AnalyzePreferencesHandler)
	})

	r.Get("/api/recommendation/{cid}", api.GetUserRecommendationHandler)
	r.Post("/api/recommendation/refresh/{cid}", api.RefreshUserRecommendationHandler)
	r.Post("/api/recommendation/refresh", api.RefreshActiveRecommendationsHandler)
	r.Post("/api/score/{cid}", api.ScoreHandler)
	r.Get("/api/insights/{cid}", api.InsightsHandler)
}
