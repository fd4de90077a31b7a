package model

import (
	"time"
)

// SeatPackage 席位包
// 用户购买的培训席位，每解锁一门课程消耗一个席位。
// used_seats 只增不减，且由条件更新保证不会超过 total_seats。
type SeatPackage struct {
	BaseModel
	UserID      string     `gorm:"type:char(36);index;not null" json:"user_id"`
	TotalSeats  int        `gorm:"not null" json:"total_seats"`
	UsedSeats   int        `gorm:"not null;default:0" json:"used_seats"`
	Status      string     `gorm:"type:varchar(20);default:active;index" json:"status"`
	PurchasedAt time.Time  `gorm:"not null;index" json:"purchased_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// TableName 指定表名
func (SeatPackage) TableName() string {
	return "seat_packages"
}

// Remaining 剩余席位数（派生值，不落库）
func (p *SeatPackage) Remaining() int {
	return p.TotalSeats - p.UsedSeats
}

// IsExpired 检查席位包是否过期
func (p *SeatPackage) IsExpired() bool {
	if p.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*p.ExpiresAt)
}

// IsUsable 检查席位包是否可消耗席位
func (p *SeatPackage) IsUsable() bool {
	return p.Status == StatusActive && !p.IsExpired() && p.Remaining() > 0
}
