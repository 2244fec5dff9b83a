package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCommissionGroupChanged 待转可提现的佣金集合在更新时已发生变化
var ErrCommissionGroupChanged = errors.New("commission group changed during update")

// CommissionRepository 佣金账本数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	CountByPayment(ctx context.Context, paymentID string) (int64, error)
	CreateIfAbsent(ctx context.Context, commission *models.Commission) (bool, error)
	ListByPayment(ctx context.Context, paymentID string) ([]models.Commission, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Commission, error)
	MarkAvailable(ctx context.Context, ids []string, now time.Time) (int64, error)
	List(ctx context.Context, filter CommissionListFilter) ([]models.Commission, int64, error)
	SumByAffiliate(ctx context.Context, affiliateID string) ([]CommissionStatusAggregate, error)
}

// GormCommissionRepository GORM 实现
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CountByPayment 统计支付已有佣金条数
func (r *GormCommissionRepository) CountByPayment(ctx context.Context, paymentID string) (int64, error) {
	if strings.TrimSpace(paymentID) == "" {
		return 0, nil
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Commission{}).
		Where("unified_payment_id = ?", paymentID).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CreateIfAbsent 写入佣金，(unified_payment_id, affiliate_id, level) 冲突时返回 false
func (r *GormCommissionRepository) CreateIfAbsent(ctx context.Context, commission *models.Commission) (bool, error) {
	if commission == nil {
		return false, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "unified_payment_id"},
				{Name: "affiliate_id"},
				{Name: "level"},
			},
			DoNothing: true,
		}).
		Create(commission)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByPayment 查询支付对应的全部佣金
func (r *GormCommissionRepository) ListByPayment(ctx context.Context, paymentID string) ([]models.Commission, error) {
	if strings.TrimSpace(paymentID) == "" {
		return []models.Commission{}, nil
	}
	var rows []models.Commission
	if err := r.db.WithContext(ctx).
		Where("unified_payment_id = ?", paymentID).
		Order("level asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPendingBefore 查询 payment_date <= cutoff 的待确认佣金
func (r *GormCommissionRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Commission, error) {
	var rows []models.Commission
	if err := r.db.WithContext(ctx).
		Where("status = ? AND payment_date <= ?", constants.CommissionStatusPending, cutoff).
		Order("affiliate_id asc").
		Order("payment_date asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkAvailable 在一个事务内将指定佣金从 pending 转为 available
// 只要有一条已不是 pending 就整体回滚
func (r *GormCommissionRepository) MarkAvailable(ctx context.Context, ids []string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Commission{}).
			Where("id IN ? AND status = ?", ids, constants.CommissionStatusPending).
			Updates(map[string]interface{}{
				"status":         constants.CommissionStatusAvailable,
				"available_date": now,
				"updated_at":     now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(ids)) {
			return fmt.Errorf("%w: expected %d got %d", ErrCommissionGroupChanged, len(ids), result.RowsAffected)
		}
		affected = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// List 分页查询佣金
func (r *GormCommissionRepository) List(ctx context.Context, filter CommissionListFilter) ([]models.Commission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Commission{})
	if affiliateID := strings.TrimSpace(filter.AffiliateID); affiliateID != "" {
		query = query.Where("affiliate_id = ?", affiliateID)
	}
	if productID := strings.TrimSpace(filter.ProductID); productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	if paymentID := strings.TrimSpace(filter.UnifiedPaymentID); paymentID != "" {
		query = query.Where("unified_payment_id = ?", paymentID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Commission
	if err := query.Order("created_at desc").Order("level asc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SumByAffiliate 按状态汇总推广者佣金
func (r *GormCommissionRepository) SumByAffiliate(ctx context.Context, affiliateID string) ([]CommissionStatusAggregate, error) {
	if strings.TrimSpace(affiliateID) == "" {
		return []CommissionStatusAggregate{}, nil
	}
	var rows []CommissionStatusAggregate
	if err := r.db.WithContext(ctx).Model(&models.Commission{}).
		Select("status, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("affiliate_id = ?", affiliateID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(2)
	}
	return rows, nil
}
