package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pu-ac-cn/video-access-backend/internal/model"
	"github.com/pu-ac-cn/video-access-backend/internal/repository"
)

// 视频访问令牌相关错误
// 三个拒绝原因对外统一为笼统的提示，见 pkg/response。
var (
	ErrInvalidOrExpiredToken = errors.New("令牌无效或已过期")
	ErrTokenUserMismatch     = errors.New("令牌与用户不匹配")
	ErrTokenIPMismatch       = errors.New("令牌与请求 IP 不匹配")
)

// IP 不匹配事件的风险分
const ipMismatchRiskScore = 75

// WatermarkData 播放水印负载
// 仅用于前端叠加显示，不是安全手段。
type WatermarkData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// IssueResult 令牌签发结果
type IssueResult struct {
	TokenHash    string        `json:"video_token"`
	SessionToken string        `json:"session_token"`
	ExpiresAt    time.Time     `json:"expires_at"`
	Watermark    WatermarkData `json:"watermark_data"`
}

// ValidateResult 令牌验证结果
type ValidateResult struct {
	UserEmail     string `json:"user_email"`
	VideoPosition int    `json:"video_position"`
}

// VideoTokenService 视频访问令牌服务接口
type VideoTokenService interface {
	// Issue 为已解锁课程签发短时效访问令牌
	// 同时轮换观看会话，保证同一用户只有一个活跃观看端。
	Issue(ctx context.Context, userID, moduleID, ip, userAgent string) (*IssueResult, error)
	// Validate 消费令牌：单次使用、绑定用户与签发 IP
	Validate(ctx context.Context, tokenHash, moduleID, userID, ip string) (*ValidateResult, error)
	// SavePosition 保存断点续播位置
	SavePosition(ctx context.Context, tokenHash, userID string, positionSeconds int) error
}

// VideoTokenServiceConfig 视频访问令牌服务配置
type VideoTokenServiceConfig struct {
	Secret      string        // 令牌哈希密钥，注入而非全局常量，便于测试
	TokenExpiry time.Duration // 令牌有效期，默认 2 小时
}

type videoTokenService struct {
	tokenRepo   repository.VideoAccessTokenRepository
	userRepo    repository.UserRepository
	entitlement EntitlementService
	sessions    ViewingSessionService
	audit       AuditService
	config      *VideoTokenServiceConfig
}

// NewVideoTokenService 创建视频访问令牌服务
func NewVideoTokenService(
	tokenRepo repository.VideoAccessTokenRepository,
	userRepo repository.UserRepository,
	entitlement EntitlementService,
	sessions ViewingSessionService,
	audit AuditService,
	config *VideoTokenServiceConfig,
) VideoTokenService {
	if config == nil {
		config = &VideoTokenServiceConfig{}
	}
	if config.TokenExpiry == 0 {
		config.TokenExpiry = 2 * time.Hour // 默认 2 小时
	}
	return &videoTokenService{
		tokenRepo:   tokenRepo,
		userRepo:    userRepo,
		entitlement: entitlement,
		sessions:    sessions,
		audit:       audit,
		config:      config,
	}
}

func (s *videoTokenService) Issue(ctx context.Context, userID, moduleID, ip, userAgent string) (*IssueResult, error) {
	// 前置校验：必须已解锁课程
	if _, err := s.entitlement.RequireActiveAccess(ctx, userID, moduleID); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 轮换观看会话，旧设备随之下线
	session, err := s.sessions.Start(ctx, userID, ip, userAgent)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tokenHash := s.hashToken(userID, moduleID, now)
	expiresAt := now.Add(s.config.TokenExpiry)

	token := &model.VideoAccessToken{
		TokenHash: tokenHash,
		UserID:    userID,
		ModuleID:  moduleID,
		IPAddress: ip,
		UserAgent: userAgent,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("保存视频访问令牌失败: %w", err)
	}

	// 更新课程最近访问时间
	if err := s.entitlement.TouchAccess(ctx, userID, moduleID); err != nil {
		return nil, err
	}

	details, _ := json.Marshal(map[string]interface{}{
		"session_token": session.SessionToken,
		"expires_at":    expiresAt,
	})
	s.audit.Record(&model.AuditEvent{
		UserID:    userID,
		ModuleID:  moduleID,
		EventType: model.EventTokenGenerated,
		Details:   string(details),
		IPAddress: ip,
		UserAgent: userAgent,
	})

	return &IssueResult{
		TokenHash:    tokenHash,
		SessionToken: session.SessionToken,
		ExpiresAt:    expiresAt,
		Watermark: WatermarkData{
			UserID: user.ID,
			Email:  user.Email,
		},
	}, nil
}

func (s *videoTokenService) Validate(ctx context.Context, tokenHash, moduleID, userID, ip string) (*ValidateResult, error) {
	// 门禁 1：按哈希与课程查询未使用、未过期的令牌
	token, err := s.tokenRepo.GetLive(ctx, tokenHash, moduleID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	// 门禁 2：令牌归属必须是调用方
	if token.UserID != userID {
		return nil, ErrTokenUserMismatch
	}

	// 门禁 3：请求 IP 必须与签发 IP 一致
	// 不一致时先同步落一条可疑行为审计再拒绝，留痕本身是契约的一部分
	if token.IPAddress != ip {
		details, _ := json.Marshal(map[string]interface{}{
			"token_hash":  tokenHash,
			"issued_ip":   token.IPAddress,
			"request_ip":  ip,
			"description": "令牌验证 IP 与签发 IP 不一致",
		})
		event := &model.AuditEvent{
			UserID:    userID,
			ModuleID:  moduleID,
			EventType: model.EventSuspiciousActivity,
			Details:   string(details),
			IPAddress: ip,
			UserAgent: token.UserAgent,
			RiskScore: ipMismatchRiskScore,
		}
		if err := s.audit.RecordSync(ctx, event); err != nil {
			return nil, fmt.Errorf("写入可疑行为审计失败: %w", err)
		}
		return nil, ErrTokenIPMismatch
	}

	// 条件更新置位 is_used，并发竞争同一令牌时只有一个调用成功
	if err := s.tokenRepo.MarkUsed(ctx, tokenHash, moduleID); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	details, _ := json.Marshal(map[string]interface{}{
		"token_hash":     tokenHash,
		"video_position": token.VideoPositionSeconds,
	})
	s.audit.Record(&model.AuditEvent{
		UserID:    userID,
		ModuleID:  moduleID,
		EventType: model.EventVideoAccess,
		Details:   string(details),
		IPAddress: ip,
		UserAgent: token.UserAgent,
	})

	return &ValidateResult{
		UserEmail:     user.Email,
		VideoPosition: token.VideoPositionSeconds,
	}, nil
}

func (s *videoTokenService) SavePosition(ctx context.Context, tokenHash, userID string, positionSeconds int) error {
	if positionSeconds < 0 {
		positionSeconds = 0
	}
	err := s.tokenRepo.UpdatePosition(ctx, tokenHash, userID, positionSeconds)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return ErrInvalidOrExpiredToken
	}
	return err
}

// hashToken 计算令牌哈希
// 时间戳（毫秒）保证同一用户同一课程的多次签发互不相同，
// 服务端密钥保证无密钥者无法伪造。
func (s *videoTokenService) hashToken(userID, moduleID string, now time.Time) string {
	payload := fmt.Sprintf("%s-%s-%d-%s", userID, moduleID, now.UnixMilli(), s.config.Secret)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
