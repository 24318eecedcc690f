package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"property_recommend/models"
)

// RedisProfileStore 多实例共享的画像存储
// 画像 JSON 存在 <prefix>data:<cid>，活跃时间存在有序集合 <prefix>index:active 里
// 两类 key 分属不同命名空间，任何用户 ID 都不会与索引冲突
type RedisProfileStore struct {
	client *goredis.Client
	prefix string
}

func NewRedisProfileStore(client *goredis.Client, prefix string) *RedisProfileStore {
	if prefix == "" {
		prefix = "profile:"
	}
	return &RedisProfileStore{client: client, prefix: prefix}
}

func (s *RedisProfileStore) key(cid string) string {
	return s.prefix + "data:" + cid
}

func (s *RedisProfileStore) activeKey() string {
	return s.prefix + "index:active"
}

func (s *RedisProfileStore) Load(ctx context.Context, cid string) (*models.UserProfile, error) {
	raw, err := s.client.Get(ctx, s.key(cid)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get profile: %w", err)
	}
	p := &models.UserProfile{}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", cid, err)
	}
	return p, nil
}

func (s *RedisProfileStore) Save(ctx context.Context, p *models.UserProfile) error {
	if p == nil || p.CID == "" {
		return ErrInvalidCID
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(p.CID), data, 0)
	pipe.ZAdd(ctx, s.activeKey(), goredis.Z{Score: float64(p.LastActivity.Unix()), Member: p.CID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save profile: %w", err)
	}
	return nil
}

func (s *RedisProfileStore) List(ctx context.Context, since time.Time) ([]string, error) {
	lower := "-inf"
	if !since.IsZero() {
		lower = fmt.Sprintf("%d", since.Unix())
	}
	cids, err := s.client.ZRangeByScore(ctx, s.activeKey(), &goredis.ZRangeBy{Min: lower, Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list profiles: %w", err)
	}
	out := cids[:0]
	for _, cid := range cids {
		if strings.TrimSpace(cid) != "" {
			out = append(out, cid)
		}
	}
	sort.Strings(out)
	return out, nil
}
