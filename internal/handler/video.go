package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/video-access-backend/internal/middleware"
	"github.com/pu-ac-cn/video-access-backend/internal/model"
	"github.com/pu-ac-cn/video-access-backend/internal/service"
	"github.com/pu-ac-cn/video-access-backend/pkg/response"
)

// VideoHandler 视频访问处理器
type VideoHandler struct {
	entitlement service.EntitlementService
	videoTokens service.VideoTokenService
}

// NewVideoHandler 创建视频访问处理器
func NewVideoHandler(entitlement service.EntitlementService, videoTokens service.VideoTokenService) *VideoHandler {
	return &VideoHandler{
		entitlement: entitlement,
		videoTokens: videoTokens,
	}
}

// ValidateTokenRequest 令牌验证请求
type ValidateTokenRequest struct {
	VideoToken string `json:"video_token" binding:"required"`
	ModuleID   string `json:"module_id" binding:"required"`
}

// SavePositionRequest 保存播放位置请求
type SavePositionRequest struct {
	VideoToken      string `json:"video_token" binding:"required"`
	PositionSeconds int    `json:"position_seconds" binding:"min=0"`
}

// SeatPackageView 席位包视图
type SeatPackageView struct {
	ID             string `json:"id"`
	TotalSeats     int    `json:"total_seats"`
	UsedSeats      int    `json:"used_seats"`
	RemainingSeats int    `json:"remaining_seats"`
	Status         string `json:"status"`
	PurchasedAt    string `json:"purchased_at"`
}

// Unlock 解锁课程
// POST /api/v1/video/courses/:module_id/unlock
func (h *VideoHandler) Unlock(c *gin.Context) {
	moduleID := c.Param("module_id")
	if moduleID == "" {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "缺少课程 ID")
		return
	}

	userID := middleware.CurrentUserID(c)
	access, pkg, err := h.entitlement.Unlock(c.Request.Context(), userID, moduleID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyUnlocked):
			response.Error(c, response.CodeAlreadyUnlocked)
		case errors.Is(err, service.ErrNoAvailableSeats):
			response.Error(c, response.CodeNoAvailableSeats)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, gin.H{
		"course_access_id": access.ID,
		"module_id":        access.ModuleID,
		"remaining_seats":  pkg.Remaining(),
	})
}

// GenerateToken 签发视频访问令牌
// POST /api/v1/video/courses/:module_id/token
func (h *VideoHandler) GenerateToken(c *gin.Context) {
	moduleID := c.Param("module_id")
	if moduleID == "" {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "缺少课程 ID")
		return
	}

	userID := middleware.CurrentUserID(c)
	result, err := h.videoTokens.Issue(c.Request.Context(), userID, moduleID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrAccessDenied) {
			response.Error(c, response.CodeAccessDenied)
			return
		}
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, result)
}

// ValidateToken 验证并消费视频访问令牌
// POST /api/v1/video/token/validate
func (h *VideoHandler) ValidateToken(c *gin.Context) {
	var req ValidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	userID := middleware.CurrentUserID(c)
	result, err := h.videoTokens.Validate(c.Request.Context(), req.VideoToken, req.ModuleID, userID, c.ClientIP())
	if err != nil {
		// 三种拒绝原因对外统一为笼统提示，IP 不匹配的差异只体现在内部审计
		switch {
		case errors.Is(err, service.ErrInvalidOrExpiredToken),
			errors.Is(err, service.ErrTokenUserMismatch),
			errors.Is(err, service.ErrTokenIPMismatch):
			response.Error(c, response.CodeVideoTokenRejected)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, gin.H{
		"valid":          true,
		"user_email":     result.UserEmail,
		"video_position": result.VideoPosition,
	})
}

// SavePosition 保存断点续播位置
// POST /api/v1/video/token/position
func (h *VideoHandler) SavePosition(c *gin.Context) {
	var req SavePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	userID := middleware.CurrentUserID(c)
	if err := h.videoTokens.SavePosition(c.Request.Context(), req.VideoToken, userID, req.PositionSeconds); err != nil {
		if errors.Is(err, service.ErrInvalidOrExpiredToken) {
			response.Error(c, response.CodeVideoTokenRejected)
			return
		}
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, nil)
}

// GetUserSeats 查询席位与已解锁课程
// GET /api/v1/video/seats
func (h *VideoHandler) GetUserSeats(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	pkgs, accesses, err := h.entitlement.GetUserSeats(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	seats := make([]SeatPackageView, 0, len(pkgs))
	for _, pkg := range pkgs {
		seats = append(seats, SeatPackageView{
			ID:             pkg.ID,
			TotalSeats:     pkg.TotalSeats,
			UsedSeats:      pkg.UsedSeats,
			RemainingSeats: pkg.Remaining(),
			Status:         pkg.Status,
			PurchasedAt:    pkg.PurchasedAt.Format("2006-01-02 15:04:05"),
		})
	}

	courses := make([]*model.CourseAccess, 0, len(accesses))
	courses = append(courses, accesses...)

	response.Success(c, gin.H{
		"seats":            seats,
		"unlocked_courses": courses,
	})
}
