package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"property_recommend/models"
)

// Dialect SQL 方言，决定建表语句和 upsert 写法
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

// SQLProfileStore 将画像以 JSON 形式保存在 user_profiles 表
type SQLProfileStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLProfileStore(db *sql.DB, dialect Dialect) *SQLProfileStore {
	return &SQLProfileStore{db: db, dialect: dialect}
}

// EnsureSchema 创建 user_profiles 表
func (s *SQLProfileStore) EnsureSchema(ctx context.Context) error {
	if s.dialect == DialectMySQL {
		_, err := s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS user_profiles (
				cid VARCHAR(128) NOT NULL PRIMARY KEY,
				profile_json MEDIUMTEXT NOT NULL,
				keywords TEXT,
				last_activity BIGINT NOT NULL,
				updated_at BIGINT NOT NULL,
				created_at BIGINT NOT NULL,
				INDEX idx_user_profiles_last_activity (last_activity)
			) DEFAULT CHARSET=utf8mb4`)
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_profiles (
			cid TEXT PRIMARY KEY,
			profile_json TEXT NOT NULL,
			keywords TEXT,
			last_activity INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_user_profiles_last_activity ON user_profiles(last_activity)`)
	return err
}

func (s *SQLProfileStore) Load(ctx context.Context, cid string) (*models.UserProfile, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT profile_json FROM user_profiles WHERE cid=?`, cid).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	p := &models.UserProfile{}
	if err := json.Unmarshal([]byte(raw), p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", cid, err)
	}
	return p, nil
}

func (s *SQLProfileStore) Save(ctx context.Context, p *models.UserProfile) error {
	if p == nil || p.CID == "" {
		return ErrInvalidCID
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.CID, err)
	}

	var upsert string
	if s.dialect == DialectMySQL {
		upsert = `
			INSERT INTO user_profiles (cid, profile_json, keywords, last_activity, updated_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE profile_json=VALUES(profile_json), keywords=VALUES(keywords),
				last_activity=VALUES(last_activity), updated_at=VALUES(updated_at)`
	} else {
		upsert = `
			INSERT INTO user_profiles (cid, profile_json, keywords, last_activity, updated_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(cid) DO UPDATE SET profile_json=excluded.profile_json, keywords=excluded.keywords,
				last_activity=excluded.last_activity, updated_at=excluded.updated_at`
	}

	_, err = s.db.ExecContext(ctx, upsert,
		p.CID, string(b), profileKeywords(p), p.LastActivity.Unix(), time.Now().Unix(), p.CreatedAt.Unix())
	return err
}

// List 最近活跃的用户列表
func (s *SQLProfileStore) List(ctx context.Context, since time.Time) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if since.IsZero() {
		rows, err = s.db.QueryContext(ctx, `SELECT cid FROM user_profiles ORDER BY cid`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT cid FROM user_profiles WHERE last_activity >= ? ORDER BY cid`, since.Unix())
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cids := make([]string, 0)
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, err
		}
		cids = append(cids, cid)
	}
	return cids, rows.Err()
}

// profileKeywords 偏好摘要，方便在数据库里直接查看
func profileKeywords(p *models.UserProfile) string {
	parts := make([]string, 0, len(p.Preferences.PropertyTypes)+len(p.Preferences.Locations)+len(p.Preferences.Features))
	parts = append(parts, p.Preferences.PropertyTypes...)
	parts = append(parts, p.Preferences.Locations...)
	parts = append(parts, p.Preferences.Features...)
	return strings.Join(parts, ",")
}
