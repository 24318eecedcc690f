package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"property_recommend/models"
)

var ErrCacheMiss = errors.New("recommendation cache miss")

// RecommendationCache 按用户缓存最近一次生成的推荐结果
type RecommendationCache interface {
	// Get 返回未过期的缓存结果，过期或不存在时返回 ErrCacheMiss
	Get(ctx context.Context, cid string, maxAge time.Duration) (*models.RecommendationResult, error)
	Put(ctx context.Context, cid string, result *models.RecommendationResult) error
	// Invalidate 用户行为变化后丢弃缓存
	Invalidate(ctx context.Context, cid string) error
}

func fresh(generatedAt time.Time, maxAge time.Duration) bool {
	return maxAge <= 0 || time.Since(generatedAt) <= maxAge
}

// MemoryRecommendationCache 进程内缓存
type MemoryRecommendationCache struct {
	mu      sync.RWMutex
	results map[string]models.RecommendationResult
}

func NewMemoryRecommendationCache() *MemoryRecommendationCache {
	return &MemoryRecommendationCache{results: make(map[string]models.RecommendationResult)}
}

func (c *MemoryRecommendationCache) Get(_ context.Context, cid string, maxAge time.Duration) (*models.RecommendationResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.results[cid]
	if !ok || !fresh(res.GeneratedAt, maxAge) {
		return nil, ErrCacheMiss
	}
	return &res, nil
}

func (c *MemoryRecommendationCache) Put(_ context.Context, cid string, result *models.RecommendationResult) error {
	if result == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[cid] = *result
	return nil
}

func (c *MemoryRecommendationCache) Invalidate(_ context.Context, cid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.results, cid)
	return nil
}

// SQLRecommendationCache 使用 recommendation_cache 表
type SQLRecommendationCache struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLRecommendationCache(db *sql.DB, dialect Dialect) *SQLRecommendationCache {
	return &SQLRecommendationCache{db: db, dialect: dialect}
}

func (c *SQLRecommendationCache) EnsureSchema(ctx context.Context) error {
	if c.dialect == DialectMySQL {
		_, err := c.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS recommendation_cache (
				cid VARCHAR(128) NOT NULL PRIMARY KEY,
				recommendations MEDIUMTEXT NOT NULL,
				algorithm VARCHAR(64) NOT NULL DEFAULT '',
				generated_at BIGINT NOT NULL
			) DEFAULT CHARSET=utf8mb4`)
		return err
	}
	_, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS recommendation_cache (
			cid TEXT PRIMARY KEY,
			recommendations TEXT NOT NULL,
			algorithm TEXT NOT NULL DEFAULT '',
			generated_at INTEGER NOT NULL
		)`)
	return err
}

func (c *SQLRecommendationCache) Get(ctx context.Context, cid string, maxAge time.Duration) (*models.RecommendationResult, error) {
	var raw string
	var generatedAt int64
	err := c.db.QueryRowContext(ctx, `
		SELECT recommendations, generated_at
		FROM recommendation_cache
		WHERE cid = ?
	`, cid).Scan(&raw, &generatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	if !fresh(time.Unix(generatedAt, 0), maxAge) {
		return nil, ErrCacheMiss
	}

	var result models.RecommendationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("decode cached recommendations: %w", err)
	}
	return &result, nil
}

func (c *SQLRecommendationCache) Put(ctx context.Context, cid string, result *models.RecommendationResult) error {
	if result == nil {
		return nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}
	// 两种方言都支持 REPLACE INTO
	_, err = c.db.ExecContext(ctx, `
		REPLACE INTO recommendation_cache (cid, recommendations, algorithm, generated_at)
		VALUES (?, ?, ?, ?)
	`, cid, string(b), "profile_based", result.GeneratedAt.Unix())
	return err
}

func (c *SQLRecommendationCache) Invalidate(ctx context.Context, cid string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM recommendation_cache WHERE cid = ?`, cid)
	return err
}
