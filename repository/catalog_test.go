package repository

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"property_recommend/db"
	"property_recommend/logger"
	"property_recommend/models"
)

func sampleProperties() []models.PropertyRecord {
	created := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	return []models.PropertyRecord{
		{
			ID: "p1", Title: "Villa Sunset", Price: 3500000000, PropertyType: "villa",
			Location: models.Location{Region: "Bali", SubRegion: "Badung", District: "Canggu"},
			LandArea: 300, BuildingArea: 180, Bedrooms: 3, Bathrooms: 3,
			IsPremium: true, IsHot: true, ImageURLs: []string{"https://img/1.jpg"}, CreatedAt: created,
		},
		{
			ID: "p2", Title: "Rice Field Plot", PropertyType: "land",
			Location: models.Location{Region: "Bali", SubRegion: "Tabanan"},
			LandArea: 1200, CreatedAt: created,
		},
		{
			ID: "p3", Title: "Sold House", Price: 900000000, PropertyType: "house",
			Location: models.Location{Region: "Bali", SubRegion: "Denpasar", District: "Sanur"},
			IsSold: true, CreatedAt: created,
		},
	}
}

func TestStaticCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewStaticCatalog(sampleProperties())

	list, _ := c.ListProperties(ctx)
	if len(list) != 2 {
		t.Errorf("ListProperties len = %d, want 2 (sold excluded)", len(list))
	}

	got, _ := c.GetByIDs(ctx, []string{"p3", "missing", "p1"})
	if len(got) != 2 || got[0].ID != "p3" || got[1].ID != "p1" {
		t.Errorf("GetByIDs = %v", ids(got))
	}
}

func TestFileCatalogReloadsOnChange(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "properties.json")
	if err := os.WriteFile(path, []byte(`[{"id":"a","price":100,"property_type":"villa"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := NewFileCatalog(path)
	if err != nil {
		t.Fatalf("NewFileCatalog: %v", err)
	}
	list, _ := c.ListProperties(ctx)
	if len(list) != 1 || list[0].ID != "a" {
		t.Fatalf("initial list = %v", ids(list))
	}

	if err := os.WriteFile(path, []byte(`[{"id":"a"},{"id":"b"}]`), 0644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	list, _ = c.ListProperties(ctx)
	if len(list) != 2 {
		t.Errorf("reloaded list = %v, want 2 entries", ids(list))
	}

	if err := os.WriteFile(path, []byte(`not json`), 0644); err != nil {
		t.Fatal(err)
	}
	later := future.Add(time.Minute)
	_ = os.Chtimes(path, later, later)
	list, _ = c.ListProperties(ctx)
	if len(list) != 2 {
		t.Errorf("broken file should keep previous data, got %v", ids(list))
	}
}

func TestNewFileCatalogMissingFile(t *testing.T) {
	if _, err := NewFileCatalog(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSQLPropertySource(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	src := NewSQLPropertySource(conn, DialectSQLite)
	if err := src.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := src.UpsertMany(ctx, sampleProperties()); err != nil {
		t.Fatalf("UpsertMany: %v", err)
	}
	// 重复写入覆盖而不是报错
	if err := src.UpsertMany(ctx, sampleProperties()[:1]); err != nil {
		t.Fatalf("UpsertMany again: %v", err)
	}

	list, err := src.ListProperties(ctx)
	if err != nil {
		t.Fatalf("ListProperties: %v", err)
	}
	if len(list) != 2 || list[0].ID != "p1" || list[1].ID != "p2" {
		t.Fatalf("list = %v", ids(list))
	}
	p1 := list[0]
	if p1.Price != 3500000000 || !p1.IsPremium || !p1.IsHot || p1.IsFeatured || p1.Location.District != "Canggu" {
		t.Errorf("p1 = %+v", p1)
	}
	if len(p1.ImageURLs) != 1 || !p1.CreatedAt.Equal(sampleProperties()[0].CreatedAt) {
		t.Errorf("p1 images/created = %v %v", p1.ImageURLs, p1.CreatedAt)
	}
	if list[1].HasPrice() {
		t.Errorf("p2 price should be missing, got %v", list[1].Price)
	}

	got, err := src.GetByIDs(ctx, []string{"p3", "p1", "nope"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "p3" || !got[0].IsSold {
		t.Errorf("GetByIDs = %v", ids(got))
	}
}

func TestSQLPropertySourceMalformedImages(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	src := NewSQLPropertySource(conn, DialectSQLite)
	if err := src.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := src.UpsertMany(ctx, sampleProperties()); err != nil {
		t.Fatalf("UpsertMany: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `UPDATE properties SET image_urls_json = ? WHERE id = ?`, `["a.jpg",`, "p1"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	prev := logger.Logger
	logger.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	t.Cleanup(func() { logger.Logger = prev })

	got, err := src.GetByIDs(ctx, []string{"p1"})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 1 || got[0].HasImage() || len(got[0].ImageURLs) != 0 {
		t.Fatalf("p1 = %+v, want listing without images", got)
	}
	if out := buf.String(); !strings.Contains(out, "level=WARN") || !strings.Contains(out, "property_id=p1") {
		t.Errorf("log = %q, want a warning naming p1", out)
	}
}

func ids(ps []models.PropertyRecord) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
