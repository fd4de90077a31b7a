package model

import (
	"time"
)

// ViewingSession 观看会话
// 代表"当前被授权观看的设备"，同一用户至多一条 is_active 记录。
// 新会话建立时旧会话被统一置为非活跃，后登录的设备胜出。
type ViewingSession struct {
	BaseModel
	UserID       string    `gorm:"type:char(36);index:idx_user_active,priority:1;not null" json:"user_id"`
	SessionToken string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"session_token"`
	IPAddress    string    `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent    string    `gorm:"type:varchar(500)" json:"user_agent"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	IsActive     bool      `gorm:"default:true;index:idx_user_active,priority:2" json:"is_active"`
}

// TableName 指定表名
func (ViewingSession) TableName() string {
	return "viewing_sessions"
}

// IsExpired 检查会话是否过期
func (s *ViewingSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsLive 检查会话是否仍然有效
func (s *ViewingSession) IsLive() bool {
	return s.IsActive && !s.IsExpired()
}
