package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UnifiedPaymentRepository 统一支付数据访问接口
type UnifiedPaymentRepository interface {
	WithTx(tx *gorm.DB) UnifiedPaymentRepository

	GetByID(ctx context.Context, id string) (*models.UnifiedPayment, error)
	GetByInvoice(ctx context.Context, invoiceID, productID string) (*models.UnifiedPayment, error)
	CreateIfAbsent(ctx context.Context, payment *models.UnifiedPayment) (bool, error)
	UpdateSyncFields(ctx context.Context, id string, status string, metadata models.JSON, updatedAt time.Time) error
	UpdateTracking(ctx context.Context, id string, tracking PaymentTracking) error
	RecordError(ctx context.Context, id string, message string, updatedAt time.Time) error
	ListPendingReconcile(ctx context.Context, limit int) ([]models.UnifiedPayment, error)
	List(ctx context.Context, filter UnifiedPaymentListFilter) ([]models.UnifiedPayment, int64, error)
}

// GormUnifiedPaymentRepository GORM 实现
type GormUnifiedPaymentRepository struct {
	db *gorm.DB
}

// NewUnifiedPaymentRepository 创建统一支付仓储
func NewUnifiedPaymentRepository(db *gorm.DB) *GormUnifiedPaymentRepository {
	return &GormUnifiedPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUnifiedPaymentRepository) WithTx(tx *gorm.DB) UnifiedPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormUnifiedPaymentRepository{db: tx}
}

// GetByID 按ID获取支付
func (r *GormUnifiedPaymentRepository) GetByID(ctx context.Context, id string) (*models.UnifiedPayment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var payment models.UnifiedPayment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByInvoice 按 (stripe_invoice_id, product_id) 获取支付
func (r *GormUnifiedPaymentRepository) GetByInvoice(ctx context.Context, invoiceID, productID string) (*models.UnifiedPayment, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, nil
	}
	var payment models.UnifiedPayment
	if err := r.db.WithContext(ctx).
		Where("stripe_invoice_id = ? AND product_id = ?", invoiceID, strings.TrimSpace(productID)).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// CreateIfAbsent 创建支付，唯一键冲突时返回 false
func (r *GormUnifiedPaymentRepository) CreateIfAbsent(ctx context.Context, payment *models.UnifiedPayment) (bool, error) {
	if payment == nil {
		return false, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_invoice_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(payment)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateSyncFields 重复同步时只允许更新状态与附加数据
func (r *GormUnifiedPaymentRepository) UpdateSyncFields(ctx context.Context, id string, status string, metadata models.JSON, updatedAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": updatedAt,
	}
	if metadata != nil {
		updates["metadata"] = metadata
	}
	return r.db.WithContext(ctx).Model(&models.UnifiedPayment{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateTracking 写入处理跟踪字段
func (r *GormUnifiedPaymentRepository) UpdateTracking(ctx context.Context, id string, tracking PaymentTracking) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.UnifiedPayment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed":             tracking.Processed,
			"processed_at":          tracking.ProcessedAt,
			"commissions_generated": tracking.CommissionsGenerated,
			"last_error":            tracking.LastError,
			"updated_at":            tracking.UpdatedAt,
		}).Error
}

// RecordError 记录处理失败原因，保持 processed=false
func (r *GormUnifiedPaymentRepository) RecordError(ctx context.Context, id string, message string, updatedAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.UnifiedPayment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed":  false,
			"last_error": message,
			"updated_at": updatedAt,
		}).Error
}

// ListPendingReconcile 查询未处理且无错误的支付，新的在前
func (r *GormUnifiedPaymentRepository) ListPendingReconcile(ctx context.Context, limit int) ([]models.UnifiedPayment, error) {
	query := r.db.WithContext(ctx).
		Where("(processed = ? OR processed IS NULL) AND last_error IS NULL", false).
		Order("created_at desc").
		Order("id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.UnifiedPayment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List 分页查询支付
func (r *GormUnifiedPaymentRepository) List(ctx context.Context, filter UnifiedPaymentListFilter) ([]models.UnifiedPayment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.UnifiedPayment{})
	if productID := strings.TrimSpace(filter.ProductID); productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	if filter.Processed != nil {
		query = query.Where("processed = ?", *filter.Processed)
	}
	if filter.HasError != nil {
		if *filter.HasError {
			query = query.Where("last_error IS NOT NULL")
		} else {
			query = query.Where("last_error IS NULL")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.UnifiedPayment
	if err := query.Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
