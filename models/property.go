package models

import (
	"math"
	"strings"
	"time"
)

// Location 房源的行政区划层级
type Location struct {
	Region    string `json:"region" db:"region"`
	SubRegion string `json:"sub_region" db:"sub_region"`
	District  string `json:"district" db:"district"`
	Village   string `json:"village" db:"village"`
}

// Parts 由细到粗返回非空的层级
func (l Location) Parts() []string {
	parts := make([]string, 0, 4)
	for _, s := range []string{l.Village, l.District, l.SubRegion, l.Region} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// String 返回 "village, district, sub-region, region" 形式的完整地址
func (l Location) String() string {
	return strings.Join(l.Parts(), ", ")
}

// IsComplete region、sub-region、district 都存在时视为完整地址，village 可选
func (l Location) IsComplete() bool {
	return strings.TrimSpace(l.Region) != "" &&
		strings.TrimSpace(l.SubRegion) != "" &&
		strings.TrimSpace(l.District) != ""
}

// Primary 最具体的可统计层级：district > sub-region > region > village
func (l Location) Primary() string {
	for _, s := range []string{l.District, l.SubRegion, l.Region, l.Village} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// PropertyRecord 一条房源记录，由外部数据源提供，本服务只读不写
type PropertyRecord struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Price        float64   `json:"price" db:"price"`
	PropertyType string    `json:"property_type" db:"property_type"`
	Location     Location  `json:"location"`
	LandArea     float64   `json:"land_area" db:"land_area"`
	BuildingArea float64   `json:"building_area" db:"building_area"`
	Bedrooms     int       `json:"bedrooms" db:"bedrooms"`
	Bathrooms    int       `json:"bathrooms" db:"bathrooms"`
	IsPremium    bool      `json:"is_premium" db:"is_premium"`
	IsHot        bool      `json:"is_hot" db:"is_hot"`
	IsFeatured   bool      `json:"is_featured" db:"is_featured"`
	IsSold       bool      `json:"is_sold" db:"is_sold"`
	ImageURLs    []string  `json:"image_urls,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidAmount 数值为正且有限时才视为有效，缺失或异常数据一律按缺失处理
func ValidAmount(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (p PropertyRecord) HasPrice() bool {
	return ValidAmount(p.Price)
}

func (p PropertyRecord) HasType() bool {
	return strings.TrimSpace(p.PropertyType) != ""
}

func (p PropertyRecord) HasImage() bool {
	for _, u := range p.ImageURLs {
		if strings.TrimSpace(u) != "" {
			return true
		}
	}
	return false
}

// NormalizedType 小写去空格后的房源类型
func (p PropertyRecord) NormalizedType() string {
	return strings.ToLower(strings.TrimSpace(p.PropertyType))
}

// Size 土地面积与建筑面积之和，缺失的部分按0计算
func (p PropertyRecord) Size() float64 {
	size := 0.0
	if ValidAmount(p.LandArea) {
		size += p.LandArea
	}
	if ValidAmount(p.BuildingArea) {
		size += p.BuildingArea
	}
	return size
}
