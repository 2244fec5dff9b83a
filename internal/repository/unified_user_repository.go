package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UnifiedUserRepository 统一用户数据访问接口
type UnifiedUserRepository interface {
	GetByID(ctx context.Context, id string) (*models.UnifiedUser, error)
	GetByExternal(ctx context.Context, externalUserID, productID string) (*models.UnifiedUser, error)
	CreateIfAbsent(ctx context.Context, user *models.UnifiedUser) (bool, error)
	Update(ctx context.Context, user *models.UnifiedUser) error
}

// GormUnifiedUserRepository GORM 实现
type GormUnifiedUserRepository struct {
	db *gorm.DB
}

// NewUnifiedUserRepository 创建统一用户仓储
func NewUnifiedUserRepository(db *gorm.DB) *GormUnifiedUserRepository {
	return &GormUnifiedUserRepository{db: db}
}

// GetByID 按ID获取
func (r *GormUnifiedUserRepository) GetByID(ctx context.Context, id string) (*models.UnifiedUser, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var user models.UnifiedUser
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByExternal 按 (external_user_id, product_id) 获取
func (r *GormUnifiedUserRepository) GetByExternal(ctx context.Context, externalUserID, productID string) (*models.UnifiedUser, error) {
	externalUserID = strings.TrimSpace(externalUserID)
	productID = strings.TrimSpace(productID)
	if externalUserID == "" || productID == "" {
		return nil, nil
	}
	var user models.UnifiedUser
	if err := r.db.WithContext(ctx).
		Where("external_user_id = ? AND product_id = ?", externalUserID, productID).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// CreateIfAbsent 创建用户，唯一键冲突时返回 false
func (r *GormUnifiedUserRepository) CreateIfAbsent(ctx context.Context, user *models.UnifiedUser) (bool, error) {
	if user == nil {
		return false, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(user)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Update 更新用户可变字段
func (r *GormUnifiedUserRepository) Update(ctx context.Context, user *models.UnifiedUser) error {
	if user == nil || user.ID == "" {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.UnifiedUser{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"email":          user.Email,
			"name":           user.Name,
			"phone":          user.Phone,
			"cpf":            user.CPF,
			"affiliate_id":   user.AffiliateID,
			"affiliate_code": user.AffiliateCode,
			"updated_at":     user.UpdatedAt,
		}).Error
}
