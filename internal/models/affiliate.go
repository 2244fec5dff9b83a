package models

import (
	"time"

	"gorm.io/gorm"
)

// Affiliate 推广者档案（含提现日配置）
type Affiliate struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`                          // 主键（与平台用户ID一致）
	AffiliateCode string    `gorm:"type:varchar(32);uniqueIndex" json:"affiliate_code"`             // 推荐码
	Name          string    `gorm:"type:varchar(255)" json:"name"`                                  // 名称
	Status        string    `gorm:"type:varchar(20);not null;default:'active';index" json:"status"` // 状态
	WithdrawalDay int       `gorm:"not null;default:1" json:"withdrawal_day"`                       // 提现日（1=周一 ... 5=周五）
	CreatedAt     time.Time `json:"created_at"`                                                     // 创建时间
	UpdatedAt     time.Time `json:"updated_at"`                                                     // 更新时间
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}

// BeforeCreate 生成主键
func (a *Affiliate) BeforeCreate(_ *gorm.DB) error {
	ensureUUID(&a.ID)
	return nil
}
