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

	"gorm.io/gorm"
)

// LedgerResult 单笔支付的账本处理结果
type LedgerResult struct {
	PaymentID        string `json:"payment_id"`
	CommissionsCount int    `json:"commissions_count"`
	Created          int    `json:"created"`
	Existing         bool   `json:"existing"`
	WasProcessed     bool   `json:"was_processed"`
}

// CommissionLedgerService 佣金账本写入
type CommissionLedgerService struct {
	paymentRepo    repository.UnifiedPaymentRepository
	commissionRepo repository.CommissionRepository
	hierarchy      *HierarchyResolver
	rates          *CommissionRateTable
	now            func() time.Time
}

// NewCommissionLedgerService 创建账本服务
func NewCommissionLedgerService(
	paymentRepo repository.UnifiedPaymentRepository,
	commissionRepo repository.CommissionRepository,
	hierarchy *HierarchyResolver,
	rates *CommissionRateTable,
) *CommissionLedgerService {
	return &CommissionLedgerService{
		paymentRepo:    paymentRepo,
		commissionRepo: commissionRepo,
		hierarchy:      hierarchy,
		rates:          rates,
		now:            time.Now,
	}
}

// ProcessPayment 为一笔已支付账单生成佣金
// 已存在佣金时只修复跟踪字段，不新增记录
func (s *CommissionLedgerService) ProcessPayment(ctx context.Context, payment *models.UnifiedPayment) (*LedgerResult, error) {
	if payment == nil || strings.TrimSpace(payment.ID) == "" {
		return nil, ErrPaymentNotFound
	}
	existing, err := s.commissionRepo.CountByPayment(ctx, payment.ID)
	if err != nil {
		err = lookupUnavailable("check existing commissions", err)
		s.recordFailure(ctx, payment, err)
		return nil, err
	}
	if existing > 0 {
		return s.RepairTracking(ctx, payment, int(existing))
	}
	return s.ProcessLevels(ctx, payment)
}

// RepairTracking 按已有佣金条数回写跟踪字段
func (s *CommissionLedgerService) RepairTracking(ctx context.Context, payment *models.UnifiedPayment, count int) (*LedgerResult, error) {
	result := &LedgerResult{
		PaymentID:        payment.ID,
		CommissionsCount: count,
		Existing:         true,
		WasProcessed:     payment.Processed,
	}
	if payment.Processed && payment.CommissionsGenerated == count && payment.LastError == nil {
		return result, nil
	}

	now := s.now().UTC()
	processedAt := payment.ProcessedAt
	if processedAt == nil {
		processedAt = &now
	}
	if err := s.paymentRepo.UpdateTracking(ctx, payment.ID, repository.PaymentTracking{
		Processed:            true,
		ProcessedAt:          processedAt,
		CommissionsGenerated: count,
		LastError:            nil,
		UpdatedAt:            now,
	}); err != nil {
		return nil, fmt.Errorf("repair payment tracking: %w", err)
	}
	payment.Processed = true
	payment.ProcessedAt = processedAt
	payment.CommissionsGenerated = count
	payment.LastError = nil

	logger.Infow("commission_tracking_repaired",
		"payment_id", payment.ID,
		"commissions_count", count,
	)
	return result, nil
}

// ProcessLevels 解析层级、计算并写入各层佣金，最后回写跟踪字段
// 任一步失败即终止，记录 last_error 并保持 processed=false
func (s *CommissionLedgerService) ProcessLevels(ctx context.Context, payment *models.UnifiedPayment) (*LedgerResult, error) {
	if payment == nil || strings.TrimSpace(payment.ID) == "" {
		return nil, ErrPaymentNotFound
	}
	wasProcessed := payment.Processed
	rows, err := s.planCommissions(ctx, payment)
	if err != nil {
		s.recordFailure(ctx, payment, err)
		return nil, err
	}

	now := s.now().UTC()
	created := 0
	var total int64
	err = s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		commissionRepo := s.commissionRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)
		for i := range rows {
			if err := insertCommission(ctx, commissionRepo, &rows[i]); err != nil {
				if errors.Is(err, ErrDuplicateSkipped) {
					logger.Infow("commission_duplicate_skipped",
						"payment_id", payment.ID,
						"affiliate_id", rows[i].AffiliateID,
						"level", rows[i].Level,
					)
					continue
				}
				return err
			}
			created++
		}
		count, err := commissionRepo.CountByPayment(ctx, payment.ID)
		if err != nil {
			return fmt.Errorf("count commissions: %w", err)
		}
		total = count
		return paymentRepo.UpdateTracking(ctx, payment.ID, repository.PaymentTracking{
			Processed:            true,
			ProcessedAt:          &now,
			CommissionsGenerated: int(count),
			LastError:            nil,
			UpdatedAt:            now,
		})
	})
	if err != nil {
		s.recordFailure(ctx, payment, err)
		return nil, err
	}

	payment.Processed = true
	payment.ProcessedAt = &now
	payment.CommissionsGenerated = int(total)
	payment.LastError = nil

	logger.Infow("commission_payment_processed",
		"payment_id", payment.ID,
		"product_id", payment.ProductID,
		"levels", len(rows),
		"created", created,
		"commissions_count", total,
	)
	return &LedgerResult{
		PaymentID:        payment.ID,
		CommissionsCount: int(total),
		Created:          created,
		WasProcessed:     wasProcessed,
	}, nil
}

func (s *CommissionLedgerService) planCommissions(ctx context.Context, payment *models.UnifiedPayment) ([]models.Commission, error) {
	edges, err := s.hierarchy.ResolveForPayment(ctx, payment)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return []models.Commission{}, nil
	}

	paymentDate := payment.PaymentDate.UTC()
	referenceMonth := time.Date(paymentDate.Year(), paymentDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	commissionType := CommissionTypeForBillingReason(payment.BillingReason)

	rows := make([]models.Commission, 0, len(edges))
	for _, edge := range edges {
		planType, err := s.rates.PlanType(ctx, edge.AffiliateID)
		if err != nil {
			return nil, err
		}
		rate, ok, err := s.rates.Rate(ctx, payment.ProductID, planType, edge.Level)
		if err != nil {
			return nil, err
		}
		if !ok || !rate.IsPositive() {
			logger.Debugw("commission_level_skipped_no_rate",
				"payment_id", payment.ID,
				"affiliate_id", edge.AffiliateID,
				"level", edge.Level,
				"plan_type", planType,
			)
			continue
		}
		amount := models.PercentOf(payment.Amount.Decimal, rate)
		if !amount.Decimal.IsPositive() {
			continue
		}
		rows = append(rows, models.Commission{
			AffiliateID:      edge.AffiliateID,
			ProductID:        payment.ProductID,
			UnifiedPaymentID: payment.ID,
			UnifiedUserID:    payment.UnifiedUserID,
			Amount:           amount,
			Percentage:       models.NewMoneyFromDecimal(rate),
			Level:            edge.Level,
			CommissionType:   commissionType,
			Status:           constants.CommissionStatusPending,
			PaymentDate:      paymentDate,
			ReferenceMonth:   referenceMonth,
		})
	}
	return rows, nil
}

func insertCommission(ctx context.Context, repo repository.CommissionRepository, commission *models.Commission) error {
	inserted, err := repo.CreateIfAbsent(ctx, commission)
	if err != nil {
		return fmt.Errorf("insert commission level %d: %w", commission.Level, err)
	}
	if !inserted {
		return ErrDuplicateSkipped
	}
	return nil
}

func (s *CommissionLedgerService) recordFailure(ctx context.Context, payment *models.UnifiedPayment, cause error) {
	message := cause.Error()
	now := s.now().UTC()
	// 原 ctx 可能已超时，错误仍需落库供补偿任务识别
	if err := s.paymentRepo.RecordError(context.WithoutCancel(ctx), payment.ID, message, now); err != nil {
		logger.Errorw("commission_record_error_failed",
			"payment_id", payment.ID,
			"cause", message,
			"error", err,
		)
	}
	payment.Processed = false
	payment.LastError = &message
	logger.Warnw("commission_payment_failed",
		"payment_id", payment.ID,
		"error", message,
	)
}
