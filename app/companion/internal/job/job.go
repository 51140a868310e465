// Package job 托管后台定时任务
package job

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"

	"github.com/solpet-labs/solpet/app/companion/internal/service"
	"github.com/solpet-labs/solpet/pkg/logger"
)

// sweepTimeout 单次巡检的最长执行时间
const sweepTimeout = 10 * time.Minute

// Config 定时任务配置
type Config struct {
	// Enabled 是否在进程内调度巡检，外部 cron 调用接口时可关闭
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	// SweepSchedule 巡检的 cron 表达式
	SweepSchedule string `mapstructure:"sweep_schedule" json:"sweep_schedule" yaml:"sweep_schedule"`
}

// DefaultConfig 返回默认配置，每天凌晨 4 点巡检
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		SweepSchedule: "0 4 * * *",
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return errors.Wrapf(err, "invalid sweep schedule %q", c.SweepSchedule)
	}
	return nil
}

// Scheduler 进程内定时任务调度器
type Scheduler struct {
	config     *Config
	cron       *cron.Cron
	inactivity *service.InactivityService
	logger     logger.Logger
}

// NewScheduler 创建调度器
func NewScheduler(cfg *Config, inactivity *service.InactivityService, l logger.Logger) (*Scheduler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.Default()
	}
	return &Scheduler{
		config:     cfg,
		cron:       cron.New(),
		inactivity: inactivity,
		logger:     l.Named("job.scheduler"),
	}, nil
}

// Start 注册并启动定时任务
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("scheduler disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.config.SweepSchedule, s.runSweep); err != nil {
		return errors.Wrap(err, "register sweep job")
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "sweep_schedule", s.config.SweepSchedule)
	return nil
}

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	start := time.Now()
	results, err := s.inactivity.Sweep(ctx)
	if err != nil {
		s.logger.Error("scheduled sweep failed", "error", err)
		return
	}

	var updated, skipped, failed int
	for _, r := range results {
		switch r.Status {
		case service.SweepUpdated:
			updated++
		case service.SweepSkipped:
			skipped++
		case service.SweepError:
			failed++
		}
	}
	s.logger.Info("scheduled sweep finished",
		"assets", len(results),
		"updated", updated,
		"skipped", skipped,
		"errors", failed,
		"duration", time.Since(start),
	)
}
