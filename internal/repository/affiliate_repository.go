package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"

	"gorm.io/gorm"
)

// AffiliateRepository 推广者数据访问接口
type AffiliateRepository interface {
	GetByID(ctx context.Context, id string) (*models.Affiliate, error)
	GetByCode(ctx context.Context, code string) (*models.Affiliate, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Affiliate, error)
}

// GormAffiliateRepository GORM 推广者仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广者仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// GetByID 按ID获取推广者
func (r *GormAffiliateRepository) GetByID(ctx context.Context, id string) (*models.Affiliate, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByCode 按推荐码获取推广者
func (r *GormAffiliateRepository) GetByCode(ctx context.Context, code string) (*models.Affiliate, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.WithContext(ctx).Where("affiliate_code = ?", normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// ListByIDs 批量获取推广者
func (r *GormAffiliateRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Affiliate, error) {
	if len(ids) == 0 {
		return []models.Affiliate{}, nil
	}
	var rows []models.Affiliate
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
