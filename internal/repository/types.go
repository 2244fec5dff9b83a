package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionListFilter 查询佣金列表的过滤条件
type CommissionListFilter struct {
	Page             int
	PageSize         int
	AffiliateID      string
	ProductID        string
	UnifiedPaymentID string
	Status           string
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
}

// UnifiedPaymentListFilter 查询统一支付列表的过滤条件
type UnifiedPaymentListFilter struct {
	Page      int
	PageSize  int
	ProductID string
	Processed *bool
	HasError  *bool
}

// CommissionStatusAggregate 按状态聚合的佣金汇总
type CommissionStatusAggregate struct {
	Status string          `gorm:"column:status"`
	Total  decimal.Decimal `gorm:"column:total"`
	Count  int64           `gorm:"column:count"`
}

// PaymentTracking 支付处理跟踪字段
type PaymentTracking struct {
	Processed            bool
	ProcessedAt          *time.Time
	CommissionsGenerated int
	LastError            *string
	UpdatedAt            time.Time
}
