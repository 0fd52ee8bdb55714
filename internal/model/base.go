package model

import "time"

// TimestampModel 创建与更新时间（持久化模型嵌入；服务无用户体系，不记录操作人）
type TimestampModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
