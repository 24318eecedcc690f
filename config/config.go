package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	DB        DBConfig        `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Profile   ProfileConfig   `yaml:"profile"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Recommend RecommendConfig `yaml:"recommend"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	Addr           string   `yaml:"-"` // 不从配置文件读取，而是在加载后计算
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      int      `yaml:"rate_limit"`   // 每个IP每分钟请求数，0表示不限流
	RequestSec     int      `yaml:"request_sec"`  // 请求超时，单位：秒
	ResponseSec    int      `yaml:"response_sec"` // 响应超时，单位：秒
	IdleSec        int      `yaml:"idle_sec"`     // 空闲超时，单位：秒
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type DBConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	Charset         string `yaml:"charset"`
	ParseTime       bool   `yaml:"parse_time"`
	DSN             string `yaml:"-"`                 // 不从配置文件读取，而是在加载后计算
	MaxOpenConns    int    `yaml:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 连接最大生命周期（分钟）
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// StorageConfig 用户画像存储后端
type StorageConfig struct {
	Backend    string `yaml:"backend"`     // memory / mysql / sqlite / badger / redis
	SQLitePath string `yaml:"sqlite_path"` // backend=sqlite 时使用
	BadgerPath string `yaml:"badger_path"` // backend=badger 时使用
}

// CatalogConfig 房源数据来源
type CatalogConfig struct {
	Source     string `yaml:"source"` // file / mysql / sqlite
	FilePath   string `yaml:"file_path"`
	SQLitePath string `yaml:"sqlite_path"`
}

// ProfileConfig 用户行为历史的保留上限
type ProfileConfig struct {
	MaxSearchHistory int `yaml:"max_search_history"`
	MaxViewed        int `yaml:"max_viewed"`
	MaxSavedSearches int `yaml:"max_saved_searches"`
	MaxFeatures      int `yaml:"max_features"` // 偏好特征保留数量
}

// ScoreWeights 各维度权重，加载后会归一化
type ScoreWeights struct {
	Price      float64 `yaml:"price"`
	Location   float64 `yaml:"location"`
	Type       float64 `yaml:"type"`
	Feature    float64 `yaml:"feature"`
	Popularity float64 `yaml:"popularity"`
}

// Normalize 返回总和为1的权重副本
func (w ScoreWeights) Normalize() ScoreWeights {
	sum := w.Price + w.Location + w.Type + w.Feature + w.Popularity
	if sum <= 0 {
		return DefaultScoreWeights()
	}
	return ScoreWeights{
		Price:      w.Price / sum,
		Location:   w.Location / sum,
		Type:       w.Type / sum,
		Feature:    w.Feature / sum,
		Popularity: w.Popularity / sum,
	}
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Price: 0.30, Location: 0.25, Type: 0.20, Feature: 0.15, Popularity: 0.10}
}

type PopularityConfig struct {
	Base     float64 `yaml:"base"`
	Premium  float64 `yaml:"premium"`
	Hot      float64 `yaml:"hot"`
	Featured float64 `yaml:"featured"`
	Image    float64 `yaml:"image"`
}

// FeatureConfig 从数值属性推导特征标签的阈值
type FeatureConfig struct {
	LargeLandArea     float64           `yaml:"large_land_area"`
	LargeBuildingArea float64           `yaml:"large_building_area"`
	ManyBedrooms      int               `yaml:"many_bedrooms"`
	ManyBathrooms     int               `yaml:"many_bathrooms"`
	TypeTags          map[string]string `yaml:"type_tags"` // 房源类型 -> 特征标签
}

type ScoringConfig struct {
	Weights            ScoreWeights     `yaml:"weights"`
	PriceDecaySlope    float64          `yaml:"price_decay_slope"`    // 超出预算时每100%偏差扣的分
	MissingPriceScore  float64          `yaml:"missing_price_score"`  // 缺少价格时的价格得分
	LocationBaseline   float64          `yaml:"location_baseline"`    // 地区不匹配时的基础分
	TypeBaseline       float64          `yaml:"type_baseline"`        // 类型不匹配时的基础分
	ConfidenceBase     float64          `yaml:"confidence_base"`      // 置信度基础值
	ConfidenceStep     float64          `yaml:"confidence_step"`      // 每个有效信号增加的置信度
	StrongMatchPercent float64          `yaml:"strong_match_percent"` // 生成推荐理由的阈值
	Popularity         PopularityConfig `yaml:"popularity"`
	Features           FeatureConfig    `yaml:"features"`
}

type SimilarityWeights struct {
	Price    float64 `yaml:"price"`
	Location float64 `yaml:"location"`
	Type     float64 `yaml:"type"`
	Size     float64 `yaml:"size"`
	Feature  float64 `yaml:"feature"`
}

type RecommendConfig struct {
	ForYouLimit       int               `yaml:"for_you_limit"`
	TrendingLimit     int               `yaml:"trending_limit"`
	SimilarLimit      int               `yaml:"similar_limit"`
	SearchLimit       int               `yaml:"search_limit"`
	TrendingBackfill  bool              `yaml:"trending_backfill"`
	LocationBaseline  float64           `yaml:"location_baseline"` // 相似度计算中地区不同的基础分
	Similarity        SimilarityWeights `yaml:"similarity"`
	TrendingFeatures  []string          `yaml:"trending_features"`
	PopularLocations  int               `yaml:"popular_locations"`
	CacheTTLMinutes   int               `yaml:"cache_ttl_minutes"`
	RefreshConcurrent int               `yaml:"refresh_concurrency"` // 批量刷新推荐的并发数
}

type SchedulerConfig struct {
	Enabled            bool `yaml:"enabled"`
	CheckIntervalSec   int  `yaml:"check_interval_sec"`   // 调度器检查间隔（秒）
	RefreshIntervalSec int  `yaml:"refresh_interval_sec"` // 推荐刷新间隔（秒）
	LookbackHours      int  `yaml:"lookback_hours"`       // 只刷新最近活跃的用户
}

// Default 返回带默认值的配置
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	cfg.Recommend.TrendingBackfill = true
	return &cfg
}

func DefaultScoring() ScoringConfig {
	return Default().Scoring
}

func DefaultRecommend() RecommendConfig {
	return Default().Recommend
}

func DefaultProfile() ProfileConfig {
	return Default().Profile
}

func Load() *Config {
	// 首先尝试加载.env文件中的环境变量
	_ = godotenv.Load() // 忽略错误，如果.env文件不存在，继续使用系统环境变量

	cfg, err := LoadFrom("config.yaml")
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error loading config.yaml: %v, falling back to environment variables", err)
		}
		// 如果config.yaml不存在，则完全从环境变量加载配置
		return loadFromEnv()
	}
	log.Println("Loading configuration from config.yaml")
	return cfg
}

// LoadFrom 从指定的yaml文件加载配置
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Config{Recommend: RecommendConfig{TrendingBackfill: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func loadFromEnv() *Config {
	cfg := Config{Recommend: RecommendConfig{TrendingBackfill: true}}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	cfg.Storage.Backend = getenv("STORAGE_BACKEND", "")
	cfg.Catalog.Source = getenv("CATALOG_SOURCE", "")
	cfg.Catalog.FilePath = getenv("CATALOG_FILE", "")
	cfg.Redis.Addr = getenv("REDIS_ADDR", "")
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		cfg.DB.DSN = dsn
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	log.Println("配置从环境变量加载，部分配置可能缺失")
	return &cfg
}

// applyEnvOverrides 从环境变量中加载敏感信息
func applyEnvOverrides(cfg *Config) {
	if envUsername := os.Getenv("DATABASE_USERNAME"); envUsername != "" {
		cfg.DB.Username = envUsername
	}
	if envPassword := os.Getenv("DATABASE_PASSWORD"); envPassword != "" {
		cfg.DB.Password = envPassword
	}
	if envPassword := os.Getenv("REDIS_PASSWORD"); envPassword != "" {
		cfg.Redis.Password = envPassword
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	cfg.Server.Addr = fmt.Sprintf(":%d", cfg.Server.Port)
	if cfg.Server.RequestSec <= 0 {
		cfg.Server.RequestSec = 15
	}
	if cfg.Server.ResponseSec <= 0 {
		cfg.Server.ResponseSec = 30
	}
	if cfg.Server.IdleSec <= 0 {
		cfg.Server.IdleSec = 60
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// 计算 DB.DSN 字段
	if cfg.DB.DSN == "" && cfg.DB.Host != "" {
		if cfg.DB.Charset == "" {
			cfg.DB.Charset = "utf8mb4"
		}
		parseTime := ""
		if cfg.DB.ParseTime {
			parseTime = "&parseTime=true"
		}
		cfg.DB.DSN = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s%s",
			cfg.DB.Username,
			cfg.DB.Password,
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.Database,
			cfg.DB.Charset,
			parseTime)
	}

	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "profile:"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.BadgerPath == "" {
		cfg.Storage.BadgerPath = "data/profiles"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/profiles.db"
	}
	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = "file"
	}
	if cfg.Catalog.FilePath == "" {
		cfg.Catalog.FilePath = "data/properties.json"
	}
	if cfg.Catalog.SQLitePath == "" {
		cfg.Catalog.SQLitePath = "data/properties.db"
	}

	p := &cfg.Profile
	if p.MaxSearchHistory <= 0 {
		p.MaxSearchHistory = 50
	}
	if p.MaxViewed <= 0 {
		p.MaxViewed = 100
	}
	if p.MaxSavedSearches <= 0 {
		p.MaxSavedSearches = 20
	}
	if p.MaxFeatures <= 0 {
		p.MaxFeatures = 5
	}

	s := &cfg.Scoring
	s.Weights = s.Weights.Normalize()
	if s.PriceDecaySlope <= 0 {
		s.PriceDecaySlope = 50
	}
	if s.MissingPriceScore <= 0 {
		s.MissingPriceScore = 50
	}
	if s.LocationBaseline <= 0 {
		s.LocationBaseline = 30
	}
	if s.TypeBaseline <= 0 {
		s.TypeBaseline = 20
	}
	if s.ConfidenceBase <= 0 {
		s.ConfidenceBase = 0.5
	}
	if s.ConfidenceStep <= 0 {
		s.ConfidenceStep = 0.1
	}
	if s.StrongMatchPercent <= 0 {
		s.StrongMatchPercent = 80
	}
	if s.Popularity == (PopularityConfig{}) {
		s.Popularity = PopularityConfig{Base: 50, Premium: 20, Hot: 15, Featured: 10, Image: 5}
	}
	f := &s.Features
	if f.LargeLandArea <= 0 {
		f.LargeLandArea = 200
	}
	if f.LargeBuildingArea <= 0 {
		f.LargeBuildingArea = 150
	}
	if f.ManyBedrooms <= 0 {
		f.ManyBedrooms = 3
	}
	if f.ManyBathrooms <= 0 {
		f.ManyBathrooms = 2
	}
	if len(f.TypeTags) == 0 {
		f.TypeTags = map[string]string{
			"house":     "family house",
			"villa":     "private villa",
			"apartment": "apartment living",
			"boarding":  "boarding rooms",
			"land":      "land plot",
		}
	}

	r := &cfg.Recommend
	if r.ForYouLimit <= 0 {
		r.ForYouLimit = 8
	}
	if r.TrendingLimit <= 0 {
		r.TrendingLimit = 6
	}
	if r.SimilarLimit <= 0 {
		r.SimilarLimit = 6
	}
	if r.SearchLimit <= 0 {
		r.SearchLimit = 6
	}
	if r.LocationBaseline <= 0 {
		r.LocationBaseline = 0.2
	}
	if r.Similarity == (SimilarityWeights{}) {
		r.Similarity = SimilarityWeights{Price: 0.30, Location: 0.25, Type: 0.20, Size: 0.15, Feature: 0.10}
	}
	if len(r.TrendingFeatures) == 0 {
		r.TrendingFeatures = []string{"private pool", "rice field view", "near beach", "strategic location", "ready to move in"}
	}
	if r.PopularLocations <= 0 {
		r.PopularLocations = 3
	}
	if r.CacheTTLMinutes <= 0 {
		r.CacheTTLMinutes = 30
	}
	if r.RefreshConcurrent <= 0 {
		r.RefreshConcurrent = 8
	}

	sc := &cfg.Scheduler
	if sc.CheckIntervalSec <= 0 {
		sc.CheckIntervalSec = 60
	}
	if sc.RefreshIntervalSec <= 0 {
		sc.RefreshIntervalSec = 1800
	}
	if sc.LookbackHours <= 0 {
		sc.LookbackHours = 24
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
