package models

import (
	"time"

	"gorm.io/gorm"
)

// UnifiedUser 跨产品统一用户
type UnifiedUser struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`                                                   // 主键
	ExternalUserID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_unified_user_external" json:"external_user_id"` // 外部产品用户ID
	ProductID      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_unified_user_external" json:"product_id"`       // 产品ID
	Email          string    `gorm:"type:varchar(255);not null;index" json:"email"`                                           // 邮箱
	Name           string    `gorm:"type:varchar(255)" json:"name"`                                                           // 姓名
	Phone          string    `gorm:"type:varchar(32)" json:"phone"`                                                           // 手机
	CPF            string    `gorm:"type:varchar(20)" json:"cpf"`                                                             // CPF
	AffiliateID    *string   `gorm:"type:varchar(36);index" json:"affiliate_id,omitempty"`                                    // 推荐人
	AffiliateCode  string    `gorm:"type:varchar(32)" json:"affiliate_code"`                                                  // 推荐码
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                                                 // 创建时间
	UpdatedAt      time.Time `json:"updated_at"`                                                                              // 更新时间
}

// TableName 指定表名
func (UnifiedUser) TableName() string {
	return "unified_users"
}

// BeforeCreate 生成主键
func (u *UnifiedUser) BeforeCreate(_ *gorm.DB) error {
	ensureUUID(&u.ID)
	return nil
}
