package worker

import (
	"context"
	"errors"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/config"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/logger"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务（消费者 + 定时调度）
type Service struct {
	name      string
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	consumer  *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, schedule *config.ScheduleConfig, loc *time.Location, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	svc := &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}
	if schedule != nil && schedule.Enabled {
		scheduler, err := buildScheduler(opt, schedule, loc)
		if err != nil {
			return nil, err
		}
		svc.scheduler = scheduler
	}
	return svc, nil
}

func buildScheduler(opt asynq.RedisClientOpt, schedule *config.ScheduleConfig, loc *time.Location) (*asynq.Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: loc})

	if schedule.MaturationCron != "" {
		task, err := queue.NewMaturationTask(queue.JobTriggerPayload{Trigger: "schedule"})
		if err != nil {
			return nil, err
		}
		entryID, err := scheduler.Register(schedule.MaturationCron, task, asynq.Queue(queue.DefaultQueue), asynq.MaxRetry(0))
		if err != nil {
			return nil, err
		}
		logger.Infow("worker_schedule_registered", "task", queue.TaskMaturation, "cron", schedule.MaturationCron, "entry_id", entryID)
	}
	if schedule.ReconcileCron != "" {
		task, err := queue.NewReconcileTask(queue.ReconcilePayload{Trigger: "schedule", ProcessAllPending: true})
		if err != nil {
			return nil, err
		}
		entryID, err := scheduler.Register(schedule.ReconcileCron, task, asynq.Queue(queue.DefaultQueue), asynq.MaxRetry(0))
		if err != nil {
			return nil, err
		}
		logger.Infow("worker_schedule_registered", "task", queue.TaskReconcile, "cron", schedule.ReconcileCron, "entry_id", entryID)
	}
	return scheduler, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return err
		}
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	if s.scheduler != nil {
		s.scheduler.Shutdown()
	}
	s.server.Shutdown()
	return nil
}
