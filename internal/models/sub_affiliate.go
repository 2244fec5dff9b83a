package models

import "time"

// SubAffiliate 推广层级关系（祖先推广者 -> 下级用户）
type SubAffiliate struct {
	ID                uint      `gorm:"primarykey" json:"id"`                                                                          // 主键
	ParentAffiliateID string    `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_sub_affiliate_edge" json:"parent_affiliate_id"` // 祖先推广者
	SubAffiliateID    string    `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_sub_affiliate_edge" json:"sub_affiliate_id"`    // 下级用户
	Level             int       `gorm:"not null;uniqueIndex:idx_sub_affiliate_edge" json:"level"`                                      // 层级（1 为直推）
	CreatedAt         time.Time `json:"created_at"`                                                                                    // 创建时间
}

// TableName 指定表名
func (SubAffiliate) TableName() string {
	return "sub_affiliates"
}
