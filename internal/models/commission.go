package models

import (
	"time"

	"gorm.io/gorm"
)

// Commission 推广佣金账本记录
// (unified_payment_id, affiliate_id, level) 唯一，重复处理同一笔支付不会产生重复佣金。
type Commission struct {
	ID               string     `gorm:"type:varchar(36);primaryKey" json:"id"`                                                              // 主键
	AffiliateID      string     `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_commission_payment_level" json:"affiliate_id"`       // 推广者
	ProductID        string     `gorm:"type:varchar(64);not null;index" json:"product_id"`                                                  // 产品ID
	UnifiedPaymentID string     `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_commission_payment_level" json:"unified_payment_id"` // 来源支付
	UnifiedUserID    string     `gorm:"type:varchar(36);not null;index" json:"unified_user_id"`                                             // 来源用户
	Amount           Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                                                // 佣金金额
	Percentage       Money      `gorm:"type:decimal(10,2);not null;default:0" json:"percentage"`                                            // 佣金比例
	Level            int        `gorm:"not null;uniqueIndex:idx_commission_payment_level" json:"level"`                                     // 层级
	CommissionType   string     `gorm:"type:varchar(20);not null" json:"commission_type"`                                                   // 佣金类型
	Status           string     `gorm:"type:varchar(20);not null;index" json:"status"`                                                      // 状态
	PaymentDate      time.Time  `gorm:"not null;index" json:"payment_date"`                                                                 // 支付时间
	ReferenceMonth   time.Time  `gorm:"type:date;index" json:"reference_month"`                                                             // 归属月份（月初）
	AvailableDate    *time.Time `gorm:"index" json:"available_date,omitempty"`                                                              // 转可提现时间
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                                                            // 创建时间
	UpdatedAt        time.Time  `json:"updated_at"`                                                                                         // 更新时间
}

// TableName 指定表名
func (Commission) TableName() string {
	return "commissions"
}

// BeforeCreate 生成主键
func (c *Commission) BeforeCreate(_ *gorm.DB) error {
	ensureUUID(&c.ID)
	return nil
}
