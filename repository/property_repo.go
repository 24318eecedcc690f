package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"property_recommend/logger"
	"property_recommend/models"
)

// SQLPropertySource 从 properties 表读取房源
type SQLPropertySource struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLPropertySource(db *sql.DB, dialect Dialect) *SQLPropertySource {
	return &SQLPropertySource{db: db, dialect: dialect}
}

const propertyColumns = `id, title, price, property_type, region, sub_region, district, village,
	land_area, building_area, bedrooms, bathrooms, is_premium, is_hot, is_featured, is_sold,
	image_urls_json, created_at, updated_at`

func (s *SQLPropertySource) EnsureSchema(ctx context.Context) error {
	if s.dialect == DialectMySQL {
		_, err := s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS properties (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				title VARCHAR(255) NOT NULL DEFAULT '',
				price DOUBLE NULL,
				property_type VARCHAR(32) NOT NULL DEFAULT '',
				region VARCHAR(128) NOT NULL DEFAULT '',
				sub_region VARCHAR(128) NOT NULL DEFAULT '',
				district VARCHAR(128) NOT NULL DEFAULT '',
				village VARCHAR(128) NOT NULL DEFAULT '',
				land_area DOUBLE NULL,
				building_area DOUBLE NULL,
				bedrooms INT NOT NULL DEFAULT 0,
				bathrooms INT NOT NULL DEFAULT 0,
				is_premium TINYINT(1) NOT NULL DEFAULT 0,
				is_hot TINYINT(1) NOT NULL DEFAULT 0,
				is_featured TINYINT(1) NOT NULL DEFAULT 0,
				is_sold TINYINT(1) NOT NULL DEFAULT 0,
				image_urls_json TEXT,
				created_at BIGINT NOT NULL DEFAULT 0,
				updated_at BIGINT NOT NULL DEFAULT 0,
				INDEX idx_properties_sold (is_sold)
			) DEFAULT CHARSET=utf8mb4`)
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS properties (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			price REAL,
			property_type TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '',
			sub_region TEXT NOT NULL DEFAULT '',
			district TEXT NOT NULL DEFAULT '',
			village TEXT NOT NULL DEFAULT '',
			land_area REAL,
			building_area REAL,
			bedrooms INTEGER NOT NULL DEFAULT 0,
			bathrooms INTEGER NOT NULL DEFAULT 0,
			is_premium INTEGER NOT NULL DEFAULT 0,
			is_hot INTEGER NOT NULL DEFAULT 0,
			is_featured INTEGER NOT NULL DEFAULT 0,
			is_sold INTEGER NOT NULL DEFAULT 0,
			image_urls_json TEXT,
			created_at INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL DEFAULT 0
		)`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_properties_sold ON properties(is_sold)`)
	return err
}

// UpsertMany 批量写入房源，ID 相同的记录被覆盖
func (s *SQLPropertySource) UpsertMany(ctx context.Context, items []models.PropertyRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `REPLACE INTO properties (`+propertyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range items {
		img, _ := json.Marshal(p.ImageURLs)
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Title, nullAmount(p.Price), p.PropertyType,
			p.Location.Region, p.Location.SubRegion, p.Location.District, p.Location.Village,
			nullAmount(p.LandArea), nullAmount(p.BuildingArea), p.Bedrooms, p.Bathrooms,
			p.IsPremium, p.IsHot, p.IsFeatured, p.IsSold,
			string(img), unixOrZero(p.CreatedAt), unixOrZero(p.UpdatedAt),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLPropertySource) ListProperties(ctx context.Context) ([]models.PropertyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE is_sold = 0 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProperties(rows)
}

func (s *SQLPropertySource) GetByIDs(ctx context.Context, ids []string) ([]models.PropertyRecord, error) {
	if len(ids) == 0 {
		return []models.PropertyRecord{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.db.QueryContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found, err := scanProperties(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.PropertyRecord, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]models.PropertyRecord, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
			delete(byID, id)
		}
	}
	return out, nil
}

func scanProperties(rows *sql.Rows) ([]models.PropertyRecord, error) {
	out := make([]models.PropertyRecord, 0)
	for rows.Next() {
		var (
			p                          models.PropertyRecord
			price, landArea, buildArea sql.NullFloat64
			imgJSON                    sql.NullString
			createdAt, updatedAt       int64
		)
		if err := rows.Scan(
			&p.ID, &p.Title, &price, &p.PropertyType,
			&p.Location.Region, &p.Location.SubRegion, &p.Location.District, &p.Location.Village,
			&landArea, &buildArea, &p.Bedrooms, &p.Bathrooms,
			&p.IsPremium, &p.IsHot, &p.IsFeatured, &p.IsSold,
			&imgJSON, &createdAt, &updatedAt,
		); err != nil {
			return nil, err
		}
		p.Price = price.Float64
		p.LandArea = landArea.Float64
		p.BuildingArea = buildArea.Float64
		if imgJSON.Valid && imgJSON.String != "" {
			if err := json.Unmarshal([]byte(imgJSON.String), &p.ImageURLs); err != nil {
				// 图片列表损坏时按无图处理，房源仍然可用
				logger.Warn("invalid image_urls_json, treating property as having no images", "property_id", p.ID, "error", err)
				p.ImageURLs = nil
			}
		}
		if createdAt > 0 {
			p.CreatedAt = time.Unix(createdAt, 0)
		}
		if updatedAt > 0 {
			p.UpdatedAt = time.Unix(updatedAt, 0)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// nullAmount 无效数值写入 NULL
func nullAmount(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: models.ValidAmount(v)}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
