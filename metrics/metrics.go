package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 打分
	ScoringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_scoring_duration_seconds",
			Help:    "Duration of batch candidate scoring in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ScoredCandidates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_scored_candidates_total",
			Help: "Total number of candidates scored",
		},
	)

	// 用户画像
	ProfileOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_profile_operations_total",
			Help: "Total number of profile repository operations",
		},
		[]string{"operation", "status"},
	)

	ProfileImportRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_profile_import_rejected_total",
			Help: "Profile imports rejected because the snapshot identity did not match",
		},
	)

	// 推荐
	RecommendationBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_builds_total",
			Help: "Total number of recommendation results served, by source",
		},
		[]string{"source"}, // "fresh", "cache"
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_build_duration_seconds",
			Help:    "Duration of building a full recommendation result",
			Buckets: prometheus.DefBuckets,
		},
	)

	RefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_refresh_users_total",
			Help: "Users processed by batch recommendation refresh",
		},
		[]string{"status"},
	)
)

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordScoring 记录一次批量打分
func RecordScoring(candidates int, duration time.Duration) {
	ScoringDuration.Observe(duration.Seconds())
	ScoredCandidates.Add(float64(candidates))
}

func RecordProfileOp(operation string, err error) {
	ProfileOperations.WithLabelValues(operation, statusLabel(err)).Inc()
}

func RecordRecommendation(source string, duration time.Duration) {
	RecommendationBuilds.WithLabelValues(source).Inc()
	if source == "fresh" {
		RecommendationDuration.Observe(duration.Seconds())
	}
}

func RecordRefresh(err error) {
	RefreshRuns.WithLabelValues(statusLabel(err)).Inc()
}
