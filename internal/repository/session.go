package repository

import (
	"context"
	"errors"

	"github.com/pu-ac-cn/video-access-backend/internal/model"
	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("观看会话不存在")

// ViewingSessionRepository 观看会话仓储
type ViewingSessionRepository interface {
	// Rotate 在单个事务中先把该用户所有活跃会话置为非活跃，
	// 再插入新会话，保证任意时刻至多一条 is_active 记录。
	Rotate(ctx context.Context, session *model.ViewingSession) error
	GetByToken(ctx context.Context, sessionToken string) (*model.ViewingSession, error)
	ListActiveByUserID(ctx context.Context, userID string) ([]*model.ViewingSession, error)
}

type viewingSessionRepository struct {
	db *gorm.DB
}

// NewViewingSessionRepository 创建观看会话仓储
func NewViewingSessionRepository(db *gorm.DB) ViewingSessionRepository {
	return &viewingSessionRepository{db: db}
}

func (r *viewingSessionRepository) Rotate(ctx context.Context, session *model.ViewingSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 旧会话统一下线，后建立的会话胜出
		if err := tx.Model(&model.ViewingSession{}).
			Where("user_id = ? AND is_active = ?", session.UserID, true).
			UpdateColumn("is_active", false).Error; err != nil {
			return err
		}
		session.IsActive = true
		return tx.Create(session).Error
	})
}

func (r *viewingSessionRepository) GetByToken(ctx context.Context, sessionToken string) (*model.ViewingSession, error) {
	var session model.ViewingSession
	err := r.db.WithContext(ctx).
		Where("session_token = ?", sessionToken).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *viewingSessionRepository) ListActiveByUserID(ctx context.Context, userID string) ([]*model.ViewingSession, error) {
	var sessions []*model.ViewingSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&sessions).Error
	return sessions, err
}
