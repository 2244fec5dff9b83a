package models

import "time"

// ProductCommissionLevel 产品分级佣金比例
type ProductCommissionLevel struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                                                 // 主键
	ProductID  string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_product_commission_level" json:"product_id"` // 产品ID
	PlanType   string    `gorm:"type:varchar(8);not null;uniqueIndex:idx_product_commission_level" json:"plan_type"`   // FREE / PRO
	Level      int       `gorm:"not null;uniqueIndex:idx_product_commission_level" json:"level"`                       // 层级
	Percentage Money     `gorm:"type:decimal(10,2);not null;default:0" json:"percentage"`                              // 比例 0-100
	IsActive   bool      `gorm:"not null;default:true;index" json:"is_active"`                                         // 是否启用
	CreatedAt  time.Time `json:"created_at"`                                                                           // 创建时间
	UpdatedAt  time.Time `json:"updated_at"`                                                                           // 更新时间
}

// TableName 指定表名
func (ProductCommissionLevel) TableName() string {
	return "product_commission_levels"
}
