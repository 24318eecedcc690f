package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"property_recommend/logger"
	"property_recommend/models"
)

// PropertySource 房源数据来源，本服务只读
type PropertySource interface {
	// ListProperties 返回全部在售房源，作为推荐候选集合
	ListProperties(ctx context.Context) ([]models.PropertyRecord, error)
	// GetByIDs 按传入顺序返回存在的房源（包括已售），不存在的 ID 被忽略
	GetByIDs(ctx context.Context, ids []string) ([]models.PropertyRecord, error)
}

// StaticCatalog 固定的内存房源列表
type StaticCatalog struct {
	mu    sync.RWMutex
	items []models.PropertyRecord
	byID  map[string]int
}

func NewStaticCatalog(items []models.PropertyRecord) *StaticCatalog {
	c := &StaticCatalog{}
	c.Replace(items)
	return c
}

// Replace 整体替换房源列表
func (c *StaticCatalog) Replace(items []models.PropertyRecord) {
	byID := make(map[string]int, len(items))
	for i, p := range items {
		byID[p.ID] = i
	}
	c.mu.Lock()
	c.items = items
	c.byID = byID
	c.mu.Unlock()
}

func (c *StaticCatalog) ListProperties(_ context.Context) ([]models.PropertyRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.PropertyRecord, 0, len(c.items))
	for _, p := range c.items {
		if !p.IsSold {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *StaticCatalog) GetByIDs(_ context.Context, ids []string) ([]models.PropertyRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.PropertyRecord, 0, len(ids))
	for _, id := range ids {
		if i, ok := c.byID[id]; ok {
			out = append(out, c.items[i])
		}
	}
	return out, nil
}

// FileCatalog 从 JSON 文件加载房源，文件修改后自动重新加载
type FileCatalog struct {
	path    string
	mu      sync.Mutex
	modTime time.Time
	static  *StaticCatalog
}

func NewFileCatalog(path string) (*FileCatalog, error) {
	c := &FileCatalog{path: path, static: NewStaticCatalog(nil)}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadPropertiesFromFile 读取 JSON 数组格式的房源文件
func LoadPropertiesFromFile(path string) ([]models.PropertyRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read properties file: %w", err)
	}

	var props []models.PropertyRecord
	if err := json.Unmarshal(b, &props); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	return props, nil
}

func (c *FileCatalog) reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("stat properties file: %w", err)
	}
	if !c.modTime.IsZero() && !info.ModTime().After(c.modTime) {
		return nil
	}
	props, err := LoadPropertiesFromFile(c.path)
	if err != nil {
		return err
	}
	c.static.Replace(props)
	c.modTime = info.ModTime()
	logger.Info("catalog loaded", "path", c.path, "count", len(props))
	return nil
}

func (c *FileCatalog) refresh() {
	if err := c.reload(); err != nil {
		logger.Warn("catalog reload failed, serving previous data", "path", c.path, "error", err)
	}
}

func (c *FileCatalog) ListProperties(ctx context.Context) ([]models.PropertyRecord, error) {
	c.refresh()
	return c.static.ListProperties(ctx)
}

func (c *FileCatalog) GetByIDs(ctx context.Context, ids []string) ([]models.PropertyRecord, error) {
	c.refresh()
	return c.static.GetByIDs(ctx, ids)
}
