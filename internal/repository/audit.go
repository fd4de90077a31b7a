package repository

import (
	"context"

	"github.com/pu-ac-cn/video-access-backend/internal/model"
	"gorm.io/gorm"
)

// AuditEventRepository 审计事件仓储
// 只追加：不提供更新和删除方法。
type AuditEventRepository interface {
	Create(ctx context.Context, event *model.AuditEvent) error
	ListByUserID(ctx context.Context, userID string, limit int) ([]*model.AuditEvent, error)
	CountByType(ctx context.Context, userID, eventType string) (int64, error)
}

type auditEventRepository struct {
	db *gorm.DB
}

// NewAuditEventRepository 创建审计事件仓储
func NewAuditEventRepository(db *gorm.DB) AuditEventRepository {
	return &auditEventRepository{db: db}
}

func (r *auditEventRepository) Create(ctx context.Context, event *model.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *auditEventRepository) ListByUserID(ctx context.Context, userID string, limit int) ([]*model.AuditEvent, error) {
	var events []*model.AuditEvent
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&events).Error
	return events, err
}

func (r *auditEventRepository) CountByType(ctx context.Context, userID, eventType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AuditEvent{}).
		Where("user_id = ? AND event_type = ?", userID, eventType).
		Count(&count).Error
	return count, err
}
