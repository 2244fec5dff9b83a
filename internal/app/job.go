package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/config"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/provider"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/service"

	"go.uber.org/zap"
)

const (
	JobMaturation = "maturation"
	JobReconcile  = "reconcile"
)

// RunJob 单次执行批处理任务后退出（供外部 cron 调用）
// 存在失败条目时返回 service.ErrPartialFailure
func RunJob(ctx context.Context, cfg *config.Config, job string, log *zap.SugaredLogger) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	container := provider.NewContainer(cfg)
	return runJobWithContainer(ctx, container, job, log)
}

func runJobWithContainer(ctx context.Context, container *provider.Container, job string, log *zap.SugaredLogger) error {
	switch strings.ToLower(strings.TrimSpace(job)) {
	case JobMaturation:
		report, err := container.RunMaturation(ctx)
		if report != nil {
			log.Infow("job_report",
				"job", JobMaturation,
				"processed", report.Processed,
				"total_pending", report.TotalPending,
				"affiliates", len(report.Details),
			)
		}
		return err
	case JobReconcile:
		report, err := container.RunReconcile(ctx, service.ReprocessInput{ProcessAllPending: true})
		if report != nil {
			log.Infow("job_report",
				"job", JobReconcile,
				"total", report.Summary.Total,
				"reprocessed", report.Summary.Reprocessed,
				"errors", report.Summary.Errors,
			)
		}
		return err
	default:
		return fmt.Errorf("unknown job %q (expected %s or %s)", job, JobMaturation, JobReconcile)
	}
}
