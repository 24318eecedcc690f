package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"property_recommend/config"
	"property_recommend/db"
	"property_recommend/logger"
	"property_recommend/repository"
)

// storage 根据配置选择的画像存储、房源来源和推荐缓存
type storage struct {
	profiles repository.ProfileStore
	catalog  repository.PropertySource
	cache    repository.RecommendationCache
	closers  []func() error
	mysql    *sql.DB
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("关闭存储失败", "error", err)
		}
	}
}

// mysqlDB 画像和房源共用一个 MySQL 连接池
func (s *storage) mysqlDB(cfg *config.Config) (*sql.DB, error) {
	if s.mysql != nil {
		return s.mysql, nil
	}
	conn, err := db.OpenMySQL(cfg.DB)
	if err != nil {
		return nil, err
	}
	logger.Info("MySQL连接成功",
		"max_open_conns", cfg.DB.MaxOpenConns,
		"max_idle_conns", cfg.DB.MaxIdleConns,
		"conn_max_lifetime", cfg.DB.ConnMaxLifetime)
	s.mysql = conn
	s.closers = append(s.closers, conn.Close)
	return conn, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (st *storage, err error) {
	st = &storage{}
	defer func() {
		if err != nil {
			st.Close()
		}
	}()

	if err := st.openProfiles(ctx, cfg); err != nil {
		return nil, fmt.Errorf("open profile store (%s): %w", cfg.Storage.Backend, err)
	}
	if err := st.openCatalog(ctx, cfg); err != nil {
		return nil, fmt.Errorf("open catalog (%s): %w", cfg.Catalog.Source, err)
	}
	return st, nil
}

func (s *storage) openProfiles(ctx context.Context, cfg *config.Config) error {
	s.cache = repository.NewMemoryRecommendationCache()

	switch cfg.Storage.Backend {
	case "memory":
		s.profiles = repository.NewMemoryProfileStore()
	case "mysql", "sqlite":
		var (
			conn    *sql.DB
			dialect repository.Dialect
			err     error
		)
		if cfg.Storage.Backend == "mysql" {
			conn, err = s.mysqlDB(cfg)
			dialect = repository.DialectMySQL
		} else {
			conn, err = db.OpenSQLite(cfg.Storage.SQLitePath)
			dialect = repository.DialectSQLite
			if err == nil {
				s.closers = append(s.closers, conn.Close)
			}
		}
		if err != nil {
			return err
		}
		store := repository.NewSQLProfileStore(conn, dialect)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		cache := repository.NewSQLRecommendationCache(conn, dialect)
		if err := cache.EnsureSchema(ctx); err != nil {
			return err
		}
		s.profiles, s.cache = store, cache
	case "badger":
		kv, err := db.OpenBadger(cfg.Storage.BadgerPath)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, kv.Close)
		s.profiles = repository.NewBadgerProfileStore(kv)
	case "redis":
		client, err := db.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, client.Close)
		s.profiles = repository.NewRedisProfileStore(client, cfg.Redis.KeyPrefix)
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	logger.Info("画像存储初始化成功", "backend", cfg.Storage.Backend)
	return nil
}

func (s *storage) openCatalog(ctx context.Context, cfg *config.Config) error {
	switch cfg.Catalog.Source {
	case "file":
		if _, err := os.Stat(cfg.Catalog.FilePath); errors.Is(err, os.ErrNotExist) {
			logger.Warn("房源文件不存在，使用空的房源数据", "path", cfg.Catalog.FilePath)
			s.catalog = repository.NewStaticCatalog(nil)
			return nil
		}
		c, err := repository.NewFileCatalog(cfg.Catalog.FilePath)
		if err != nil {
			return err
		}
		s.catalog = c
	case "mysql":
		conn, err := s.mysqlDB(cfg)
		if err != nil {
			return err
		}
		src := repository.NewSQLPropertySource(conn, repository.DialectMySQL)
		if err := src.EnsureSchema(ctx); err != nil {
			return err
		}
		s.catalog = src
	case "sqlite":
		conn, err := db.OpenSQLite(cfg.Catalog.SQLitePath)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, conn.Close)
		src := repository.NewSQLPropertySource(conn, repository.DialectSQLite)
		if err := src.EnsureSchema(ctx); err != nil {
			return err
		}
		// 首次启动时用房源文件初始化数据库
		if props, err := repository.LoadPropertiesFromFile(cfg.Catalog.FilePath); err == nil {
			if err := src.UpsertMany(ctx, props); err != nil {
				return err
			}
			logger.Info("房源数据已导入SQLite", "count", len(props))
		}
		s.catalog = src
	default:
		return fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
	logger.Info("房源数据源初始化成功", "source", cfg.Catalog.Source)
	return nil
}
