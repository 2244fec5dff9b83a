package repository

import (
	"context"
	"strings"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"

	"gorm.io/gorm"
)

// SubAffiliateRepository 推广层级数据访问接口（只读）
type SubAffiliateRepository interface {
	ListAncestors(ctx context.Context, descendantID string, maxDepth int) ([]models.SubAffiliate, error)
}

// GormSubAffiliateRepository GORM 实现
type GormSubAffiliateRepository struct {
	db *gorm.DB
}

// NewSubAffiliateRepository 创建层级仓储
func NewSubAffiliateRepository(db *gorm.DB) *GormSubAffiliateRepository {
	return &GormSubAffiliateRepository{db: db}
}

// ListAncestors 查询下级的祖先链，按层级升序
func (r *GormSubAffiliateRepository) ListAncestors(ctx context.Context, descendantID string, maxDepth int) ([]models.SubAffiliate, error) {
	descendantID = strings.TrimSpace(descendantID)
	if descendantID == "" {
		return []models.SubAffiliate{}, nil
	}
	query := r.db.WithContext(ctx).
		Where("sub_affiliate_id = ? AND level >= 1", descendantID)
	if maxDepth > 0 {
		query = query.Where("level <= ?", maxDepth)
	}
	var rows []models.SubAffiliate
	if err := query.Order("level asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
