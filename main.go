package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	_ "github.com/swaggo/swag" // 导入 swag
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"property_recommend/config"
	"property_recommend/handlers"
	"property_recommend/logger"
	"property_recommend/repository"
	"property_recommend/scheduler"
	"property_recommend/services"
)

func newRouter(cfg *config.Config, api *handlers.API) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}
	if cfg.Server.RateLimit > 0 {
		r.Use(httprate.LimitByRealIP(cfg.Server.RateLimit, time.Minute))
	}

	handlers.RegisterRoutes(r, api)
	return r
}

func main() {
	cfg := config.Load()

	// 初始化日志系统
	if err := logger.Init(cfg); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	logger.Info("日志系统初始化成功", "level", cfg.Log.Level, "format", cfg.Log.Format, "output", cfg.Log.Output)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("服务异常退出", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("服务已停止")
}

func run(ctx context.Context, cfg *config.Config) error {
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("初始化存储失败: %w", err)
	}
	defer st.Close()

	repo := repository.NewProfileRepository(st.profiles, cfg.Profile)
	recs := services.NewRecommendationService(cfg, repo, st.catalog, st.cache, services.NewEngines(cfg))
	api := handlers.NewAPI(cfg, services.NewProfileService(repo, recs), recs)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newRouter(cfg, api),
		ReadTimeout:  time.Duration(cfg.Server.RequestSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.ResponseSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleSec) * time.Second,
	}

	hook := &sutureslog.Handler{Logger: logger.Logger}
	sup := suture.New("property-recommend", suture.Spec{
		EventHook: hook.MustHook(),
		Timeout:   15 * time.Second,
	})
	sup.Add(&httpService{server: server, shutdownTimeout: 10 * time.Second})
	if cfg.Scheduler.Enabled {
		sup.Add(scheduler.NewScheduler(cfg, recs))
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("服务器启动", "address", serverAddr)
	logger.Info("Swagger文档可访问", "url", fmt.Sprintf("http://%s/swagger/index.html", serverAddr))

	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
