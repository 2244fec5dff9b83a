package models

import (
	"time"

	"gorm.io/gorm"
)

// UnifiedPayment 外部产品上报的已支付账单
type UnifiedPayment struct {
	ID                   string     `gorm:"type:varchar(36);primaryKey" json:"id"`                                                        // 主键
	StripeInvoiceID      *string    `gorm:"type:varchar(128);uniqueIndex:idx_unified_payment_invoice" json:"stripe_invoice_id,omitempty"` // 外部账单ID（可为空）
	ProductID            string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_unified_payment_invoice;index" json:"product_id"`    // 产品ID
	UnifiedUserID        string     `gorm:"type:varchar(36);not null;index" json:"unified_user_id"`                                       // 统一用户ID
	ExternalUserID       string     `gorm:"type:varchar(64);not null;index" json:"external_user_id"`                                      // 外部用户ID
	PlanID               string     `gorm:"type:varchar(64)" json:"plan_id"`                                                              // 套餐ID
	Amount               Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                                          // 金额
	Currency             string     `gorm:"type:varchar(8);not null;default:'BRL'" json:"currency"`                                       // 币种
	BillingReason        string     `gorm:"type:varchar(32)" json:"billing_reason"`                                                       // 账单原因
	Status               string     `gorm:"type:varchar(20);not null;default:'paid'" json:"status"`                                       // 支付状态
	PaymentDate          time.Time  `gorm:"not null;index" json:"payment_date"`                                                           // 支付时间
	AffiliateID          *string    `gorm:"type:varchar(36);index" json:"affiliate_id,omitempty"`                                         // 直接推荐人
	AffiliateCouponID    string     `gorm:"type:varchar(64)" json:"affiliate_coupon_id"`                                                  // 推广优惠券
	Environment          string     `gorm:"type:varchar(16)" json:"environment"`                                                          // 环境 test/production
	Metadata             JSON       `gorm:"type:json" json:"metadata"`                                                                    // 附加数据
	Processed            bool       `gorm:"not null;default:false;index" json:"processed"`                                                // 是否已生成佣金
	ProcessedAt          *time.Time `json:"processed_at,omitempty"`                                                                       // 处理时间
	CommissionsGenerated int        `gorm:"not null;default:0" json:"commissions_generated"`                                              // 佣金条数
	LastError            *string    `gorm:"type:text" json:"last_error"`                                                                  // 最近一次错误
	CreatedAt            time.Time  `gorm:"index" json:"created_at"`                                                                      // 创建时间
	UpdatedAt            time.Time  `json:"updated_at"`                                                                                   // 更新时间
}

// TableName 指定表名
func (UnifiedPayment) TableName() string {
	return "unified_payments"
}

// BeforeCreate 生成主键
func (p *UnifiedPayment) BeforeCreate(_ *gorm.DB) error {
	ensureUUID(&p.ID)
	return nil
}
