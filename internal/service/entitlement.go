package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pu-ac-cn/video-access-backend/internal/model"
	"github.com/pu-ac-cn/video-access-backend/internal/repository"
)

// 席位与课程访问相关错误
var (
	ErrNoAvailableSeats = errors.New("没有可用席位")
	ErrAlreadyUnlocked  = errors.New("课程已解锁，请勿重复解锁")
	ErrAccessDenied     = errors.New("尚未解锁该课程")
)

// EntitlementService 席位与课程访问服务接口
type EntitlementService interface {
	// Unlock 消耗一个席位解锁课程
	// 席位消耗与访问记录插入在同一事务中完成；
	// 返回访问记录与消耗后的席位包。
	Unlock(ctx context.Context, userID, moduleID, ip, userAgent string) (*model.CourseAccess, *model.SeatPackage, error)
	// RequireActiveAccess 校验用户对课程持有生效的访问记录
	RequireActiveAccess(ctx context.Context, userID, moduleID string) (*model.CourseAccess, error)
	// TouchAccess 更新最近访问时间，签发令牌时调用
	TouchAccess(ctx context.Context, userID, moduleID string) error
	// Revoke 吊销课程访问（不归还席位）
	Revoke(ctx context.Context, userID, moduleID string) error
	// GetUserSeats 查询用户的席位包与已解锁课程
	GetUserSeats(ctx context.Context, userID string) ([]*model.SeatPackage, []*model.CourseAccess, error)
}

type entitlementService struct {
	seatRepo   repository.SeatPackageRepository
	accessRepo repository.CourseAccessRepository
	audit      AuditService
}

// NewEntitlementService 创建席位与课程访问服务
func NewEntitlementService(seatRepo repository.SeatPackageRepository, accessRepo repository.CourseAccessRepository, audit AuditService) EntitlementService {
	return &entitlementService{
		seatRepo:   seatRepo,
		accessRepo: accessRepo,
		audit:      audit,
	}
}

func (s *entitlementService) Unlock(ctx context.Context, userID, moduleID, ip, userAgent string) (*model.CourseAccess, *model.SeatPackage, error) {
	if userID == "" || moduleID == "" {
		return nil, nil, ErrAccessDenied
	}

	access, pkg, err := s.accessRepo.CreateWithSeat(ctx, userID, moduleID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAccessExists):
			return nil, nil, ErrAlreadyUnlocked
		case errors.Is(err, repository.ErrNoAvailableSeats):
			return nil, nil, ErrNoAvailableSeats
		default:
			return nil, nil, err
		}
	}

	// 审计解锁事件，负载里带上消耗后的剩余席位
	details, _ := json.Marshal(map[string]interface{}{
		"seat_package_id":  pkg.ID,
		"remaining_seats":  pkg.Remaining(),
		"course_access_id": access.ID,
	})
	s.audit.Record(&model.AuditEvent{
		UserID:    userID,
		ModuleID:  moduleID,
		EventType: model.EventCourseUnlock,
		Details:   string(details),
		IPAddress: ip,
		UserAgent: userAgent,
	})

	return access, pkg, nil
}

func (s *entitlementService) RequireActiveAccess(ctx context.Context, userID, moduleID string) (*model.CourseAccess, error) {
	access, err := s.accessRepo.GetActive(ctx, userID, moduleID)
	if err != nil {
		if errors.Is(err, repository.ErrAccessNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}
	return access, nil
}

func (s *entitlementService) TouchAccess(ctx context.Context, userID, moduleID string) error {
	return s.accessRepo.Touch(ctx, userID, moduleID)
}

func (s *entitlementService) Revoke(ctx context.Context, userID, moduleID string) error {
	err := s.accessRepo.Revoke(ctx, userID, moduleID)
	if errors.Is(err, repository.ErrAccessNotFound) {
		return ErrAccessDenied
	}
	return err
}

func (s *entitlementService) GetUserSeats(ctx context.Context, userID string) ([]*model.SeatPackage, []*model.CourseAccess, error) {
	pkgs, err := s.seatRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	accesses, err := s.accessRepo.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return pkgs, accesses, nil
}
