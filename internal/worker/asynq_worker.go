package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/cache"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/logger"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/provider"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/queue"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskProcessPayment, c.handleProcessPayment)
	mux.HandleFunc(queue.TaskMaturation, c.handleMaturation)
	mux.HandleFunc(queue.TaskReconcile, c.handleReconcile)
}

// handleProcessPayment 存储不可达时返回错误交给 asynq 重试
func (c *Consumer) handleProcessPayment(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_process_payment_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ProcessPaymentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_process_payment_unmarshal_failed", "error", err)
		return errors.Join(err, asynq.SkipRetry)
	}
	paymentID := strings.TrimSpace(payload.PaymentID)
	if paymentID == "" {
		logger.Debugw("worker_process_payment_skip_invalid_payload")
		return nil
	}
	fetchCtx, cancel := c.storeContext(ctx)
	payment, err := c.UnifiedPaymentRepo.GetByID(fetchCtx, paymentID)
	cancel()
	if err != nil {
		logger.Warnw("worker_process_payment_fetch_failed", "payment_id", paymentID, "error", err)
		return err
	}
	if payment == nil {
		logger.Debugw("worker_process_payment_skip_not_found", "payment_id", paymentID)
		return nil
	}
	ledgerCtx, cancel := c.storeContext(ctx)
	result, err := c.CommissionLedgerService.ProcessPayment(ledgerCtx, payment)
	cancel()
	if err != nil {
		logger.Warnw("worker_process_payment_failed", "payment_id", paymentID, "error", err)
		return err
	}
	logger.Infow("worker_process_payment_done",
		"payment_id", paymentID,
		"commissions_count", result.CommissionsCount,
		"created", result.Created,
	)
	return nil
}

// storeContext 与同步入口一致的单步存储超时
func (c *Consumer) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	seconds := 0
	if c.Config != nil {
		seconds = c.Config.Commission.StoreTimeoutSeconds
	}
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}

func (c *Consumer) handleMaturation(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.JobTriggerPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			logger.Warnw("worker_maturation_unmarshal_failed", "error", err)
		}
	}
	report, err := c.RunMaturation(ctx)
	return finishJob("commission_maturation", payload.Trigger, err, func() []interface{} {
		if report == nil {
			return nil
		}
		return []interface{}{"processed", report.Processed, "total_pending", report.TotalPending}
	})
}

func (c *Consumer) handleReconcile(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	payload := queue.ReconcilePayload{ProcessAllPending: true}
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			logger.Warnw("worker_reconcile_unmarshal_failed", "error", err)
			return errors.Join(err, asynq.SkipRetry)
		}
	}
	report, err := c.RunReconcile(ctx, service.ReprocessInput{
		PaymentIDs:        payload.PaymentIDs,
		ProcessAllPending: payload.ProcessAllPending,
	})
	return finishJob("commission_reconcile", payload.Trigger, err, func() []interface{} {
		if report == nil {
			return nil
		}
		return []interface{}{"total", report.Summary.Total, "errors", report.Summary.Errors}
	})
}

// finishJob 批处理任务不走 asynq 重试，下一次调度会再次处理
func finishJob(name, trigger string, err error, fields func() []interface{}) error {
	log := logger.Job(name, "trigger", trigger)
	switch {
	case err == nil:
		log.Infow("worker_job_done", fields()...)
		return nil
	case errors.Is(err, cache.ErrJobLocked):
		log.Infow("worker_job_skip_locked")
		return nil
	case errors.Is(err, service.ErrPartialFailure):
		log.Warnw("worker_job_partial_failure", fields()...)
		return nil
	default:
		log.Errorw("worker_job_failed", "error", err)
		return errors.Join(err, asynq.SkipRetry)
	}
}
