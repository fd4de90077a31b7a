package repository

import (
	"context"
	"errors"
	"time"

	"github.com/pu-ac-cn/video-access-backend/internal/model"
	"gorm.io/gorm"
)

var ErrTokenNotFound = errors.New("视频访问令牌不存在")

// VideoAccessTokenRepository 视频访问令牌仓储
type VideoAccessTokenRepository interface {
	Create(ctx context.Context, token *model.VideoAccessToken) error
	// GetLive 按哈希与课程查询未使用且未过期的令牌
	GetLive(ctx context.Context, tokenHash, moduleID string) (*model.VideoAccessToken, error)
	// MarkUsed 以条件更新消费令牌（WHERE is_used = false AND 未过期），
	// 受影响行数决定成败：并发竞争同一令牌时恰好一个调用成功。
	MarkUsed(ctx context.Context, tokenHash, moduleID string) error
	// UpdatePosition 更新断点续播位置，仅限令牌归属用户
	UpdatePosition(ctx context.Context, tokenHash, userID string, positionSeconds int) error
}

type videoAccessTokenRepository struct {
	db *gorm.DB
}

// NewVideoAccessTokenRepository 创建视频访问令牌仓储
func NewVideoAccessTokenRepository(db *gorm.DB) VideoAccessTokenRepository {
	return &videoAccessTokenRepository{db: db}
}

func (r *videoAccessTokenRepository) Create(ctx context.Context, token *model.VideoAccessToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *videoAccessTokenRepository) GetLive(ctx context.Context, tokenHash, moduleID string) (*model.VideoAccessToken, error) {
	var token model.VideoAccessToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND module_id = ? AND is_used = ? AND expires_at > ?",
			tokenHash, moduleID, false, time.Now()).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *videoAccessTokenRepository) MarkUsed(ctx context.Context, tokenHash, moduleID string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.VideoAccessToken{}).
		Where("token_hash = ? AND module_id = ? AND is_used = ? AND expires_at > ?",
			tokenHash, moduleID, false, now).
		Updates(map[string]interface{}{
			"is_used": true,
			"used_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *videoAccessTokenRepository) UpdatePosition(ctx context.Context, tokenHash, userID string, positionSeconds int) error {
	result := r.db.WithContext(ctx).
		Model(&model.VideoAccessToken{}).
		Where("token_hash = ? AND user_id = ?", tokenHash, userID).
		UpdateColumn("video_position_seconds", positionSeconds)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}
