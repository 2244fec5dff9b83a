package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"

	"gorm.io/gorm"
)

// CommissionLevelRepository 分级佣金比例数据访问接口
type CommissionLevelRepository interface {
	GetActive(ctx context.Context, productID, planType string, level int) (*models.ProductCommissionLevel, error)
	ListByProduct(ctx context.Context, productID string) ([]models.ProductCommissionLevel, error)
}

// GormCommissionLevelRepository GORM 实现
type GormCommissionLevelRepository struct {
	db *gorm.DB
}

// NewCommissionLevelRepository 创建比例仓储
func NewCommissionLevelRepository(db *gorm.DB) *GormCommissionLevelRepository {
	return &GormCommissionLevelRepository{db: db}
}

// GetActive 获取启用中的比例，不存在返回 nil
func (r *GormCommissionLevelRepository) GetActive(ctx context.Context, productID, planType string, level int) (*models.ProductCommissionLevel, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" || level < 1 {
		return nil, nil
	}
	var row models.ProductCommissionLevel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND plan_type = ? AND level = ? AND is_active = ?", productID, planType, level, true).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListByProduct 查询产品全部比例配置
func (r *GormCommissionLevelRepository) ListByProduct(ctx context.Context, productID string) ([]models.ProductCommissionLevel, error) {
	var rows []models.ProductCommissionLevel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", strings.TrimSpace(productID)).
		Order("plan_type asc").
		Order("level asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
