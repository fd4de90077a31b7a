package model

import (
	"time"
)

// VideoAccessToken 视频访问令牌
// 短时效、单次使用、绑定用户与签发 IP 的播放凭证。
// is_used 由条件更新（WHERE is_used = false）置位，保证并发下只消费一次。
type VideoAccessToken struct {
	BaseModel
	TokenHash            string     `gorm:"type:char(64);uniqueIndex;not null" json:"token_hash"`
	UserID               string     `gorm:"type:char(36);index;not null" json:"user_id"`
	ModuleID             string     `gorm:"type:varchar(100);index;not null" json:"module_id"`
	IPAddress            string     `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent            string     `gorm:"type:varchar(500)" json:"user_agent"`
	IssuedAt             time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt            time.Time  `gorm:"not null" json:"expires_at"`
	IsUsed               bool       `gorm:"default:false" json:"is_used"`
	UsedAt               *time.Time `json:"used_at,omitempty"`
	VideoPositionSeconds int        `gorm:"default:0" json:"video_position_seconds"`
}

// TableName 指定表名
func (VideoAccessToken) TableName() string {
	return "video_access_tokens"
}

// IsExpired 检查令牌是否过期
func (t *VideoAccessToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
