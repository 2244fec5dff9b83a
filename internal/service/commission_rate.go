package service

import (
	"context"
	"strings"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/repository"

	"github.com/shopspring/decimal"
)

// CommissionRateTable 分级佣金比例查询
type CommissionRateTable struct {
	levelRepo        repository.CommissionLevelRepository
	subscriptionRepo repository.SubscriptionRepository
}

// NewCommissionRateTable 创建比例查询
func NewCommissionRateTable(levelRepo repository.CommissionLevelRepository, subscriptionRepo repository.SubscriptionRepository) *CommissionRateTable {
	return &CommissionRateTable{levelRepo: levelRepo, subscriptionRepo: subscriptionRepo}
}

// PlanType 推广者套餐类型，每次事件重新计算
func (t *CommissionRateTable) PlanType(ctx context.Context, affiliateID string) (string, error) {
	paid, err := t.subscriptionRepo.HasActivePaidSubscription(ctx, affiliateID)
	if err != nil {
		return constants.AffiliatePlanFree, lookupUnavailable("resolve plan type", err)
	}
	if paid {
		return constants.AffiliatePlanPro, nil
	}
	return constants.AffiliatePlanFree, nil
}

// Rate 返回比例；未配置或未启用时 ok=false
func (t *CommissionRateTable) Rate(ctx context.Context, productID, planType string, level int) (decimal.Decimal, bool, error) {
	row, err := t.levelRepo.GetActive(ctx, productID, planType, level)
	if err != nil {
		return decimal.Zero, false, lookupUnavailable("resolve commission rate", err)
	}
	if row == nil {
		return decimal.Zero, false, nil
	}
	return row.Percentage.Decimal, true, nil
}

// ListLevels 产品全部比例配置（含未启用），按套餐与层级排序
func (t *CommissionRateTable) ListLevels(ctx context.Context, productID string) ([]models.ProductCommissionLevel, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, newValidationError("product_id", "is required")
	}
	rows, err := t.levelRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, lookupUnavailable("list commission levels", err)
	}
	return rows, nil
}

// CommissionTypeForBillingReason 由账单原因推导佣金类型
func CommissionTypeForBillingReason(reason string) string {
	switch reason {
	case constants.BillingReasonSubscriptionCreate:
		return constants.CommissionTypeFirstSale
	case constants.BillingReasonOneTimePurchase:
		return constants.CommissionTypeOneTime
	default:
		return constants.CommissionTypeRenewal
	}
}
