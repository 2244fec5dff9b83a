package service

import (
	"context"
	"strings"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/repository"

	"github.com/shopspring/decimal"
)

// AffiliateBalance 推广者佣金余额
type AffiliateBalance struct {
	AffiliateID    string       `json:"affiliate_id"`
	WithdrawalDay  int          `json:"withdrawal_day"`
	Pending        models.Money `json:"pending"`
	Available      models.Money `json:"available"`
	Paid           models.Money `json:"paid"`
	Rejected       models.Money `json:"rejected"`
	PendingCount   int64        `json:"pending_count"`
	AvailableCount int64        `json:"available_count"`
}

// PaymentDetail 支付及其各层佣金
type PaymentDetail struct {
	Payment     *models.UnifiedPayment `json:"payment"`
	Commissions []models.Commission    `json:"commissions"`
}

// CommissionQueryService 佣金查询
type CommissionQueryService struct {
	commissionRepo repository.CommissionRepository
	paymentRepo    repository.UnifiedPaymentRepository
	affiliateRepo  repository.AffiliateRepository
}

// NewCommissionQueryService 创建查询服务
func NewCommissionQueryService(
	commissionRepo repository.CommissionRepository,
	paymentRepo repository.UnifiedPaymentRepository,
	affiliateRepo repository.AffiliateRepository,
) *CommissionQueryService {
	return &CommissionQueryService{
		commissionRepo: commissionRepo,
		paymentRepo:    paymentRepo,
		affiliateRepo:  affiliateRepo,
	}
}

// ListCommissions 分页查询佣金
func (s *CommissionQueryService) ListCommissions(ctx context.Context, filter repository.CommissionListFilter) ([]models.Commission, int64, error) {
	return s.commissionRepo.List(ctx, filter)
}

// ListPayments 分页查询统一支付
func (s *CommissionQueryService) ListPayments(ctx context.Context, filter repository.UnifiedPaymentListFilter) ([]models.UnifiedPayment, int64, error) {
	return s.paymentRepo.List(ctx, filter)
}

// GetPaymentDetail 支付详情，附带按层级排序的佣金
func (s *CommissionQueryService) GetPaymentDetail(ctx context.Context, paymentID string) (*PaymentDetail, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, newValidationError("payment_id", "is required")
	}
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, lookupUnavailable("load payment", err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	rows, err := s.commissionRepo.ListByPayment(ctx, payment.ID)
	if err != nil {
		return nil, lookupUnavailable("list payment commissions", err)
	}
	return &PaymentDetail{Payment: payment, Commissions: rows}, nil
}

// GetAffiliateBalance 汇总推广者各状态佣金
func (s *CommissionQueryService) GetAffiliateBalance(ctx context.Context, affiliateID string) (*AffiliateBalance, error) {
	affiliateID = strings.TrimSpace(affiliateID)
	if affiliateID == "" {
		return nil, newValidationError("affiliate_id", "is required")
	}
	aggs, err := s.commissionRepo.SumByAffiliate(ctx, affiliateID)
	if err != nil {
		return nil, lookupUnavailable("sum affiliate commissions", err)
	}
	affiliate, err := s.affiliateRepo.GetByID(ctx, affiliateID)
	if err != nil {
		return nil, lookupUnavailable("load affiliate", err)
	}

	zero := models.NewMoneyFromDecimal(decimal.Zero)
	balance := &AffiliateBalance{
		AffiliateID:   affiliateID,
		WithdrawalDay: constants.CommissionDefaultWithdrawalDay,
		Pending:       zero,
		Available:     zero,
		Paid:          zero,
		Rejected:      zero,
	}
	if affiliate != nil {
		balance.WithdrawalDay = normalizeWithdrawalDay(affiliate.WithdrawalDay)
	}
	for _, agg := range aggs {
		amount := models.NewMoneyFromDecimal(agg.Total)
		switch agg.Status {
		case constants.CommissionStatusPending:
			balance.Pending = amount
			balance.PendingCount = agg.Count
		case constants.CommissionStatusAvailable:
			balance.Available = amount
			balance.AvailableCount = agg.Count
		case constants.CommissionStatusPaid:
			balance.Paid = amount
		case constants.CommissionStatusRejected:
			balance.Rejected = amount
		}
	}
	return balance, nil
}
