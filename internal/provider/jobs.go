package provider

import (
	"context"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/service"
)

// RunMaturation 持任务锁执行一次结算
// 其他实例持锁时返回 cache.ErrJobLocked
func (c *Container) RunMaturation(ctx context.Context) (*service.MaturationReport, error) {
	var report *service.MaturationReport
	err := c.JobLocker.Run(ctx, constants.JobLockMaturation, func(ctx context.Context) error {
		var runErr error
		report, runErr = c.CommissionMaturationService.Run(ctx)
		return runErr
	})
	return report, err
}

// RunReconcile 持任务锁执行一次补偿
// 指定 payment_ids 的人工补偿不加锁
func (c *Container) RunReconcile(ctx context.Context, input service.ReprocessInput) (*service.ReprocessReport, error) {
	if len(input.PaymentIDs) > 0 {
		return c.CommissionReprocessService.Reprocess(ctx, input)
	}
	var report *service.ReprocessReport
	err := c.JobLocker.Run(ctx, constants.JobLockReconcile, func(ctx context.Context) error {
		var runErr error
		report, runErr = c.CommissionReprocessService.Reprocess(ctx, input)
		return runErr
	})
	return report, err
}
