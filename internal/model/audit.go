package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 审计事件类型
const (
	EventCourseUnlock       = "course_unlock"       // 课程解锁
	EventTokenGenerated     = "token_generated"     // 令牌签发
	EventVideoAccess        = "video_access"        // 视频访问
	EventSuspiciousActivity = "suspicious_activity" // 可疑行为
)

// AuditEvent 审计事件
// 只追加，不修改、不删除。
type AuditEvent struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:char(36);index;not null" json:"user_id"`
	ModuleID  string    `gorm:"type:varchar(100);index" json:"module_id,omitempty"`
	EventType string    `gorm:"type:varchar(40);index;not null" json:"event_type"`
	Details   string    `gorm:"type:text" json:"details"` // JSON 负载
	IPAddress string    `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent string    `gorm:"type:varchar(500)" json:"user_agent"`
	RiskScore int       `gorm:"default:0" json:"risk_score"` // 0-100
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (AuditEvent) TableName() string {
	return "audit_events"
}

// BeforeCreate 创建前自动生成 UUID
func (e *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
