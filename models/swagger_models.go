package models

// APIResponse 通用API响应
type APIResponse struct {
	Code    int         `json:"code" example:"0"`
	Message string      `json:"message" example:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// RecordSearchRequest 记录搜索行为的请求体
type RecordSearchRequest struct {
	Query        string        `json:"query" validate:"max=500" example:"villa canggu"`
	Filters      SearchFilters `json:"filters"`
	ResultsCount int           `json:"results_count" validate:"gte=0" example:"12"`
}

// RecordViewRequest 记录浏览行为的请求体
type RecordViewRequest struct {
	PropertyID string `json:"property_id" validate:"required,max=64" example:"prop_001"`
}

// SaveSearchRequest 保存搜索条件的请求体
type SaveSearchRequest struct {
	Name    string        `json:"name" validate:"max=100" example:"Canggu villas"`
	Query   string        `json:"query" validate:"max=500" example:"villa canggu"`
	Filters SearchFilters `json:"filters"`
}

// SavedSearchNotifyRequest 开关保存搜索的通知
type SavedSearchNotifyRequest struct {
	Enabled *bool `json:"enabled" validate:"required" example:"true"`
}

// ImportProfileRequest 导入画像快照的请求体
type ImportProfileRequest struct {
	Data string `json:"data" validate:"required"`
}

// ScoreRequest 为房源打分的请求体，property_ids 为空时对全部在售房源打分
type ScoreRequest struct {
	PropertyIDs []string `json:"property_ids" validate:"max=1000,dive,required" example:"prop_001,prop_002"`
}

// FavoriteResponse 切换收藏后的状态
type FavoriteResponse struct {
	PropertyID string `json:"property_id" example:"prop_001"`
	Favorite   bool   `json:"favorite" example:"true"`
}
