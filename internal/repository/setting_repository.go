package repository

import (
	"context"
	"errors"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository 设置数据访问接口
type SettingRepository interface {
	GetByKey(ctx context.Context, key string) (*models.AppSetting, error)
	ListByKeys(ctx context.Context, keys []string) ([]models.AppSetting, error)
	Upsert(ctx context.Context, key, value string, updatedAt time.Time) (*models.AppSetting, error)
}

// GormSettingRepository GORM 实现
type GormSettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建设置仓库
func NewSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

// GetByKey 获取设置
func (r *GormSettingRepository) GetByKey(ctx context.Context, key string) (*models.AppSetting, error) {
	var setting models.AppSetting
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// ListByKeys 批量获取设置
func (r *GormSettingRepository) ListByKeys(ctx context.Context, keys []string) ([]models.AppSetting, error) {
	if len(keys) == 0 {
		return []models.AppSetting{}, nil
	}
	var rows []models.AppSetting
	if err := r.db.WithContext(ctx).Where("key IN ?", keys).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert 更新或创建设置
func (r *GormSettingRepository) Upsert(ctx context.Context, key, value string, updatedAt time.Time) (*models.AppSetting, error) {
	setting := &models.AppSetting{
		Key:       key,
		Value:     value,
		UpdatedAt: updatedAt,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(setting).Error; err != nil {
		return nil, err
	}
	return setting, nil
}
