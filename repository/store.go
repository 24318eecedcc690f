package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"property_recommend/models"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidCID      = errors.New("invalid CID")
)

// ProfileStore 用户画像的持久化后端，只负责整份画像的读写
type ProfileStore interface {
	Load(ctx context.Context, cid string) (*models.UserProfile, error)
	Save(ctx context.Context, p *models.UserProfile) error
	// List 返回最近活跃时间不早于 since 的用户，since 为零值时返回全部
	List(ctx context.Context, since time.Time) ([]string, error)
}

// MemoryProfileStore 进程内存储，读写都做深拷贝
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*models.UserProfile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]*models.UserProfile)}
}

func (s *MemoryProfileStore) Load(_ context.Context, cid string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[cid]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryProfileStore) Save(_ context.Context, p *models.UserProfile) error {
	if p == nil || p.CID == "" {
		return ErrInvalidCID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.CID] = p.Clone()
	return nil
}

func (s *MemoryProfileStore) List(_ context.Context, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cids := make([]string, 0, len(s.profiles))
	for cid, p := range s.profiles {
		if activeSince(p, since) {
			cids = append(cids, cid)
		}
	}
	sort.Strings(cids)
	return cids, nil
}

func activeSince(p *models.UserProfile, since time.Time) bool {
	return since.IsZero() || !p.LastActivity.Before(since)
}

// keyedMutex 按用户加锁，锁在无人使用时释放
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock 获取 key 对应的锁，返回解锁函数
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
