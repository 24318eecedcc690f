package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"property_recommend/models"
)

const badgerProfilePrefix = "profile:"

// BadgerProfileStore 嵌入式 KV 后端，适合单实例部署
type BadgerProfileStore struct {
	db *badger.DB
}

func NewBadgerProfileStore(db *badger.DB) *BadgerProfileStore {
	return &BadgerProfileStore{db: db}
}

func (s *BadgerProfileStore) Load(_ context.Context, cid string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerProfilePrefix + cid))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrProfileNotFound
		}
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *BadgerProfileStore) Save(_ context.Context, p *models.UserProfile) error {
	if p == nil || p.CID == "" {
		return ErrInvalidCID
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerProfilePrefix+p.CID), data)
	})
}

func (s *BadgerProfileStore) List(_ context.Context, since time.Time) ([]string, error) {
	cids := make([]string, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerProfilePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if since.IsZero() {
				cids = append(cids, string(item.Key()[len(badgerProfilePrefix):]))
				continue
			}
			var p models.UserProfile
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			if activeSince(&p, since) {
				cids = append(cids, p.CID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(cids)
	return cids, nil
}
