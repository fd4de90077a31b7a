package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pu-ac-cn/video-access-backend/internal/model"
	"github.com/pu-ac-cn/video-access-backend/internal/repository"
)

// ViewingSessionService 观看会话服务接口
// 同一用户任意时刻至多一个活跃会话，新会话建立时旧会话被下线。
type ViewingSessionService interface {
	// Start 建立新的观看会话并下线该用户的旧会话
	Start(ctx context.Context, userID, ip, userAgent string) (*model.ViewingSession, error)
	// ListActive 查询用户当前活跃会话
	ListActive(ctx context.Context, userID string) ([]*model.ViewingSession, error)
}

// ViewingSessionServiceConfig 观看会话服务配置
type ViewingSessionServiceConfig struct {
	SessionExpiry time.Duration // 会话有效期，默认 8 小时
}

type viewingSessionService struct {
	repo   repository.ViewingSessionRepository
	config *ViewingSessionServiceConfig
}

// NewViewingSessionService 创建观看会话服务
func NewViewingSessionService(repo repository.ViewingSessionRepository, config *ViewingSessionServiceConfig) ViewingSessionService {
	if config == nil {
		config = &ViewingSessionServiceConfig{}
	}
	if config.SessionExpiry == 0 {
		config.SessionExpiry = 8 * time.Hour // 默认 8 小时
	}
	return &viewingSessionService{
		repo:   repo,
		config: config,
	}
}

func (s *viewingSessionService) Start(ctx context.Context, userID, ip, userAgent string) (*model.ViewingSession, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("生成会话令牌失败: %w", err)
	}

	session := &model.ViewingSession{
		UserID:       userID,
		SessionToken: token,
		IPAddress:    ip,
		UserAgent:    userAgent,
		ExpiresAt:    time.Now().Add(s.config.SessionExpiry),
	}

	// 下线旧会话并插入新会话，由仓储在单个事务中完成
	if err := s.repo.Rotate(ctx, session); err != nil {
		return nil, fmt.Errorf("建立观看会话失败: %w", err)
	}
	return session, nil
}

func (s *viewingSessionService) ListActive(ctx context.Context, userID string) ([]*model.ViewingSession, error) {
	return s.repo.ListActiveByUserID(ctx, userID)
}

// generateSessionToken 生成不透明会话令牌（64 位十六进制）
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
