package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"property_recommend/config"
	"property_recommend/logger"
	"property_recommend/services"
)

// 将秒数转换为时间间隔
func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// 任务类型
type TaskType int

const (
	TaskRefreshRecommendations TaskType = iota
)

// 任务状态
type TaskStatus struct {
	LastRun     time.Time
	NextRun     time.Time
	IsRunning   bool
	Interval    time.Duration
	Description string
}

// Refresher 批量刷新推荐的能力，由 services.RecommendationService 实现
type Refresher interface {
	RefreshActive(ctx context.Context, since time.Time, concurrency int) (services.RefreshStats, error)
}

// 任务调度器，实现 suture.Service
type Scheduler struct {
	cfg           config.SchedulerConfig
	concurrency   int
	refresher     Refresher
	checkInterval time.Duration
	tasks         map[TaskType]*TaskStatus
	mutex         sync.Mutex
	wg            sync.WaitGroup
}

// 创建新的调度器
func NewScheduler(cfg *config.Config, refresher Refresher) *Scheduler {
	concurrency := cfg.Recommend.RefreshConcurrent
	if concurrency <= 0 {
		concurrency = 8
	}
	checkInterval := cfg.Scheduler.CheckIntervalSec
	if checkInterval <= 0 {
		checkInterval = 60 // 默认值
	}

	s := &Scheduler{
		cfg:           cfg.Scheduler,
		concurrency:   concurrency,
		refresher:     refresher,
		checkInterval: secondsToDuration(checkInterval),
		tasks:         make(map[TaskType]*TaskStatus),
	}
	s.initTasks(time.Now())
	return s
}

// 初始化任务，启动后第一次检查即执行一次刷新
func (s *Scheduler) initTasks(now time.Time) {
	interval := secondsToDuration(s.cfg.RefreshIntervalSec)
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	s.tasks[TaskRefreshRecommendations] = &TaskStatus{
		LastRun:     now.Add(-interval),
		NextRun:     now,
		Interval:    interval,
		Description: fmt.Sprintf("刷新活跃用户推荐 (每%s, 最近%d小时)", interval, s.cfg.LookbackHours),
	}
	logger.Info("定时任务初始化完成", "task_count", len(s.tasks))
}

// Serve 主循环，ctx 取消后等待正在执行的任务结束
func (s *Scheduler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()
	logger.Info("调度器已启动", "check_interval", s.checkInterval.String())

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			logger.Info("调度器已停止")
			return ctx.Err()
		case now := <-ticker.C:
			s.checkTasks(ctx, now)
		}
	}
}

func (s *Scheduler) String() string {
	return "scheduler"
}

// 检查任务
func (s *Scheduler) checkTasks(ctx context.Context, now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for taskType, status := range s.tasks {
		// 如果任务正在运行，跳过
		if status.IsRunning {
			continue
		}

		// 如果到达或超过下次运行时间，执行任务
		if !now.Before(status.NextRun) {
			status.IsRunning = true
			s.wg.Add(1)
			go s.runTask(ctx, taskType, now)
		}
	}
}

// 运行任务
func (s *Scheduler) runTask(ctx context.Context, taskType TaskType, now time.Time) {
	defer s.wg.Done()
	defer func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		status := s.tasks[taskType]
		status.IsRunning = false
		status.LastRun = now
		status.NextRun = now.Add(status.Interval)

		logger.Info("任务执行完成", "task", status.Description, "next_run", status.NextRun.Format("2006-01-02 15:04:05"))
	}()

	switch taskType {
	case TaskRefreshRecommendations:
		log := logger.With("task", "refresh_recommendations")
		lookback := time.Duration(s.cfg.LookbackHours) * time.Hour
		stats, err := s.refresher.RefreshActive(ctx, now.Add(-lookback), s.concurrency)
		if err != nil {
			log.Error("刷新活跃用户推荐失败", "error", err)
			return
		}
		log.Info("活跃用户推荐刷新完成", "processed", stats.Processed, "failed", stats.Failed)
	}
}

// Status 返回任务状态的副本
func (s *Scheduler) Status() map[TaskType]TaskStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make(map[TaskType]TaskStatus, len(s.tasks))
	for k, v := range s.tasks {
		out[k] = *v
	}
	return out
}
