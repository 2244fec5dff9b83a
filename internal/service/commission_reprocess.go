package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/logger"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/repository"

	"golang.org/x/sync/errgroup"
)

// ReprocessInput 补偿任务输入
type ReprocessInput struct {
	PaymentIDs        []string `json:"payment_ids"`
	ProcessAllPending bool     `json:"process_all_pending"`
}

// ReprocessItem 单笔支付的补偿结果
type ReprocessItem struct {
	PaymentID        string `json:"payment_id"`
	Status           string `json:"status"`
	Message          string `json:"message"`
	CommissionsCount *int   `json:"commissions_count,omitempty"`
}

// ReprocessSummary 补偿汇总
type ReprocessSummary struct {
	Total            int `json:"total"`
	AlreadyProcessed int `json:"already_processed"`
	CommissionsFound int `json:"commissions_found"`
	Reprocessed      int `json:"reprocessed"`
	Errors           int `json:"errors"`
}

// ReprocessReport 补偿任务报告
type ReprocessReport struct {
	Summary ReprocessSummary `json:"summary"`
	Results []ReprocessItem  `json:"results"`
}

// CommissionReprocessOptions 补偿任务参数
type CommissionReprocessOptions struct {
	BatchSize    int
	Workers      int
	StoreTimeout time.Duration
}

// CommissionReprocessService 补偿缺失佣金
type CommissionReprocessService struct {
	paymentRepo    repository.UnifiedPaymentRepository
	commissionRepo repository.CommissionRepository
	ledger         *CommissionLedgerService
	opts           CommissionReprocessOptions
}

// NewCommissionReprocessService 创建补偿服务
func NewCommissionReprocessService(
	paymentRepo repository.UnifiedPaymentRepository,
	commissionRepo repository.CommissionRepository,
	ledger *CommissionLedgerService,
	opts CommissionReprocessOptions,
) *CommissionReprocessService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = constants.CommissionDefaultReconcileBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &CommissionReprocessService{
		paymentRepo:    paymentRepo,
		commissionRepo: commissionRepo,
		ledger:         ledger,
		opts:           opts,
	}
}

// Reprocess 逐笔检查并补写佣金，单笔失败不影响其余
func (s *CommissionReprocessService) Reprocess(ctx context.Context, input ReprocessInput) (*ReprocessReport, error) {
	log := logger.Job("commission_reconcile")
	ids, err := s.selectBatch(ctx, input)
	if err != nil {
		log.Errorw("commission_reconcile_select_failed", "error", err)
		return nil, err
	}

	results := make([]ReprocessItem, len(ids))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.opts.Workers)
	for i, id := range ids {
		group.Go(func() error {
			results[i] = s.reprocessOne(groupCtx, id)
			return nil
		})
	}
	_ = group.Wait()

	report := &ReprocessReport{Results: results}
	report.Summary.Total = len(results)
	for _, item := range results {
		switch item.Status {
		case constants.ReprocessStatusAlreadyProcessed:
			report.Summary.AlreadyProcessed++
		case constants.ReprocessStatusCommissionsFound:
			report.Summary.CommissionsFound++
		case constants.ReprocessStatusReprocessed:
			report.Summary.Reprocessed++
		case constants.ReprocessStatusError:
			report.Summary.Errors++
			log.Warnw("commission_reconcile_item_failed", "payment_id", item.PaymentID, "error", item.Message)
		}
	}

	log.Infow("commission_reconcile_finished",
		"total", report.Summary.Total,
		"already_processed", report.Summary.AlreadyProcessed,
		"commissions_found", report.Summary.CommissionsFound,
		"reprocessed", report.Summary.Reprocessed,
		"errors", report.Summary.Errors,
	)
	if report.Summary.Errors > 0 {
		return report, ErrPartialFailure
	}
	return report, nil
}

func (s *CommissionReprocessService) selectBatch(ctx context.Context, input ReprocessInput) ([]string, error) {
	if len(input.PaymentIDs) > 0 {
		ids := make([]string, 0, len(input.PaymentIDs))
		seen := make(map[string]struct{}, len(input.PaymentIDs))
		for _, raw := range input.PaymentIDs {
			id := strings.TrimSpace(raw)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		return ids, nil
	}
	if !input.ProcessAllPending {
		return nil, newValidationError("payment_ids", "provide payment_ids or process_all_pending")
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	rows, err := s.paymentRepo.ListPendingReconcile(storeCtx, s.opts.BatchSize)
	if err != nil {
		return nil, lookupUnavailable("list pending payments", err)
	}
	return paymentIDs(rows), nil
}

func (s *CommissionReprocessService) reprocessOne(ctx context.Context, paymentID string) ReprocessItem {
	item := ReprocessItem{PaymentID: paymentID}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	payment, err := s.paymentRepo.GetByID(storeCtx, paymentID)
	if err != nil {
		return errorItem(item, lookupUnavailable("load payment", err))
	}
	if payment == nil {
		return errorItem(item, ErrPaymentNotFound)
	}

	existing, err := s.commissionRepo.CountByPayment(storeCtx, payment.ID)
	if err != nil {
		return errorItem(item, lookupUnavailable("check existing commissions", err))
	}
	if existing > 0 {
		count := int(existing)
		item.CommissionsCount = &count
		if payment.Processed {
			item.Status = constants.ReprocessStatusAlreadyProcessed
			item.Message = fmt.Sprintf("payment already processed with %d commissions", count)
			return item
		}
		if _, err := s.ledger.RepairTracking(storeCtx, payment, count); err != nil {
			return errorItem(item, err)
		}
		item.Status = constants.ReprocessStatusCommissionsFound
		item.Message = fmt.Sprintf("found %d existing commissions, tracking repaired", count)
		return item
	}

	if payment.Processed && payment.LastError == nil {
		count := 0
		item.CommissionsCount = &count
		item.Status = constants.ReprocessStatusAlreadyProcessed
		item.Message = "payment already processed with 0 commissions"
		return item
	}

	result, err := s.ledger.ProcessLevels(storeCtx, payment)
	if err != nil {
		return errorItem(item, err)
	}
	count := result.CommissionsCount
	item.CommissionsCount = &count
	item.Status = constants.ReprocessStatusReprocessed
	item.Message = fmt.Sprintf("generated %d commissions", count)
	return item
}

func (s *CommissionReprocessService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.StoreTimeout)
}

func errorItem(item ReprocessItem, err error) ReprocessItem {
	item.Status = constants.ReprocessStatusError
	item.Message = err.Error()
	if errors.Is(err, ErrPaymentNotFound) {
		item.Message = "payment not found"
	}
	return item
}

func paymentIDs(rows []models.UnifiedPayment) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids
}
