package models

import "time"

// AppSetting 系统设置表（键值对存储）
type AppSetting struct {
	Key         string    `gorm:"type:varchar(64);primarykey" json:"key"` // 配置键
	Value       string    `gorm:"type:text" json:"value"`                 // 配置值
	Description string    `gorm:"type:varchar(255)" json:"description"`   // 说明
	UpdatedAt   time.Time `json:"updated_at"`                             // 更新时间
}

// TableName 指定表名
func (AppSetting) TableName() string {
	return "app_settings"
}
