package repository

import (
	"context"
	"strings"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"

	"gorm.io/gorm"
)

// SubscriptionRepository 订阅数据访问接口
type SubscriptionRepository interface {
	HasActivePaidSubscription(ctx context.Context, userID string) (bool, error)
}

// GormSubscriptionRepository GORM 实现
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository 创建订阅仓储
func NewSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// HasActivePaidSubscription 是否持有 active/trialing 的非免费套餐订阅
func (r *GormSubscriptionRepository) HasActivePaidSubscription(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Joins("JOIN plans ON plans.id = subscriptions.plan_id").
		Where("subscriptions.user_id = ? AND subscriptions.status IN ? AND plans.is_free = ?",
			userID,
			[]string{constants.SubscriptionStatusActive, constants.SubscriptionStatusTrialing},
			false).
		Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}
