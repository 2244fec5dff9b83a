package models

import (
	"time"

	"gorm.io/gorm"
)

// Plan 平台套餐
type Plan struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`              // 主键
	ProductID string    `gorm:"type:varchar(64);index" json:"product_id"`           // 产品ID
	Name      string    `gorm:"type:varchar(128)" json:"name"`                      // 名称
	Price     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 价格
	IsFree    bool      `gorm:"not null;default:false" json:"is_free"`              // 是否免费套餐
	CreatedAt time.Time `json:"created_at"`                                         // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                         // 更新时间
}

// TableName 指定表名
func (Plan) TableName() string {
	return "plans"
}

// Subscription 推广者自身的订阅（用于判定 FREE / PRO）
type Subscription struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`          // 主键
	UserID    string    `gorm:"type:varchar(36);not null;index" json:"user_id"` // 订阅用户
	PlanID    string    `gorm:"type:varchar(64);not null;index" json:"plan_id"` // 套餐
	Status    string    `gorm:"type:varchar(20);not null;index" json:"status"`  // 状态
	CreatedAt time.Time `json:"created_at"`                                     // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                     // 更新时间

	Plan Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"` // 套餐
}

// TableName 指定表名
func (Subscription) TableName() string {
	return "subscriptions"
}

// BeforeCreate 生成主键
func (s *Subscription) BeforeCreate(_ *gorm.DB) error {
	ensureUUID(&s.ID)
	return nil
}
