package model

import (
	"time"
)

// CourseAccess 课程访问记录
// 一个席位绑定一门课程后产生的解锁记录。
// (user_id, module_id, status) 的唯一索引保证同一用户同一课程
// 至多存在一条 active 记录；吊销时改写 status 而非删除。
type CourseAccess struct {
	BaseModel
	UserID               string     `gorm:"type:char(36);not null;uniqueIndex:idx_user_module_status,priority:1" json:"user_id"`
	ModuleID             string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_user_module_status,priority:2" json:"module_id"`
	SeatPackageID        string     `gorm:"type:char(36);index;not null" json:"seat_package_id"`
	Status               string     `gorm:"type:varchar(60);default:active;uniqueIndex:idx_user_module_status,priority:3" json:"status"`
	UnlockedAt           time.Time  `gorm:"not null" json:"unlocked_at"`
	LastAccessedAt       *time.Time `json:"last_accessed_at,omitempty"`
	CertificateGenerated bool       `gorm:"default:false" json:"certificate_generated"`
}

// TableName 指定表名
func (CourseAccess) TableName() string {
	return "course_accesses"
}

// IsActive 检查访问记录是否生效
func (a *CourseAccess) IsActive() bool {
	return a.Status == StatusActive
}
