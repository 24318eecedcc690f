package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dgraph-io/badger/v4"
	goredis "github.com/redis/go-redis/v9"

	"property_recommend/config"
	"property_recommend/db"
	"property_recommend/models"
)

func newSQLiteProfileStore(t *testing.T) *SQLProfileStore {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "profiles.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	s := NewSQLProfileStore(conn, DialectSQLite)
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return s
}

func newBadgerProfileStore(t *testing.T) *BadgerProfileStore {
	t.Helper()
	kv, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return NewBadgerProfileStore(kv)
}

func newRedisProfileStore(t *testing.T) *RedisProfileStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisProfileStore(client, "test:profile:")
}

func profileStores(t *testing.T) map[string]ProfileStore {
	return map[string]ProfileStore{
		"memory": NewMemoryProfileStore(),
		"sqlite": newSQLiteProfileStore(t),
		"badger": newBadgerProfileStore(t),
		"redis":  newRedisProfileStore(t),
	}
}

func TestProfileStores(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for name, store := range profileStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Load(ctx, "nobody"); !errors.Is(err, ErrProfileNotFound) {
				t.Fatalf("Load missing: err = %v, want ErrProfileNotFound", err)
			}

			old := models.NewUserProfile("u-old", base.Add(-48*time.Hour))
			recent := models.NewUserProfile("u-recent", base)
			recent.FavoriteProperties = []string{"p1", "p2"}
			recent.Preferences.PropertyTypes = []string{"villa"}
			for _, p := range []*models.UserProfile{old, recent} {
				if err := store.Save(ctx, p); err != nil {
					t.Fatalf("Save %s: %v", p.CID, err)
				}
			}

			got, err := store.Load(ctx, "u-recent")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(got.FavoriteProperties) != 2 || got.FavoriteProperties[0] != "p1" {
				t.Errorf("favorites = %v, want [p1 p2]", got.FavoriteProperties)
			}
			if !got.Preferences.Budget.IsUnbounded() {
				t.Errorf("budget = %+v, want unbounded", got.Preferences.Budget)
			}

			all, err := store.List(ctx, time.Time{})
			if err != nil {
				t.Fatalf("List all: %v", err)
			}
			if len(all) != 2 {
				t.Errorf("List all = %v, want 2 entries", all)
			}

			active, err := store.List(ctx, base.Add(-time.Hour))
			if err != nil {
				t.Fatalf("List since: %v", err)
			}
			if len(active) != 1 || active[0] != "u-recent" {
				t.Errorf("List since = %v, want [u-recent]", active)
			}
		})
	}
}

func TestProfileStoresReservedLookingIDs(t *testing.T) {
	ctx := context.Background()

	for name, store := range profileStores(t) {
		t.Run(name, func(t *testing.T) {
			r := NewProfileRepository(store, config.DefaultProfile())
			if err := r.RecordView(ctx, "u1", "p1"); err != nil {
				t.Fatalf("RecordView u1: %v", err)
			}
			for _, cid := range []string{"active", "index:active", "data:u1"} {
				if _, err := r.GetOrCreate(ctx, cid); err != nil {
					t.Fatalf("GetOrCreate %q: %v", cid, err)
				}
				if err := r.RecordView(ctx, cid, "p2"); err != nil {
					t.Fatalf("RecordView %q: %v", cid, err)
				}
			}

			u1, err := r.GetOrCreate(ctx, "u1")
			if err != nil {
				t.Fatalf("GetOrCreate u1: %v", err)
			}
			if len(u1.ViewedProperties) != 1 || u1.ViewedProperties[0] != "p1" {
				t.Errorf("u1 viewed = %v, want [p1]", u1.ViewedProperties)
			}

			all, err := r.List(ctx, time.Time{})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			want := []string{"active", "data:u1", "index:active", "u1"}
			if len(all) != len(want) {
				t.Fatalf("List = %v, want %v", all, want)
			}
			for i := range want {
				if all[i] != want[i] {
					t.Errorf("List = %v, want %v", all, want)
					break
				}
			}
		})
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryProfileStore()
	p := models.NewUserProfile("u1", time.Now())
	if err := s.Save(ctx, p); err != nil {
		t.Fatal(err)
	}
	p.FavoriteProperties = append(p.FavoriteProperties, "leaked")

	got, _ := s.Load(ctx, "u1")
	if len(got.FavoriteProperties) != 0 {
		t.Errorf("stored profile shares memory with caller: %v", got.FavoriteProperties)
	}
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("same")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if len(k.locks) != 0 {
		t.Errorf("locks map has %d entries after release, want 0", len(k.locks))
	}
}
