package repository

import (
	"context"
	"errors"
	"time"

	"github.com/pu-ac-cn/video-access-backend/internal/model"
	"gorm.io/gorm"
)

var (
	ErrAccessNotFound = errors.New("课程访问记录不存在")
	ErrAccessExists   = errors.New("课程已解锁")
)

// CourseAccessRepository 课程访问仓储
type CourseAccessRepository interface {
	// CreateWithSeat 在单个事务中完成席位消耗与访问记录插入，
	// 两者要么同时成功要么同时失败：
	// 席位不足返回 ErrNoAvailableSeats；
	// 唯一索引冲突（并发重复解锁）返回 ErrAccessExists。
	CreateWithSeat(ctx context.Context, userID, moduleID string) (*model.CourseAccess, *model.SeatPackage, error)
	GetActive(ctx context.Context, userID, moduleID string) (*model.CourseAccess, error)
	ListActiveByUserID(ctx context.Context, userID string) ([]*model.CourseAccess, error)
	Touch(ctx context.Context, userID, moduleID string) error
	Revoke(ctx context.Context, userID, moduleID string) error
}

type courseAccessRepository struct {
	db *gorm.DB
}

// NewCourseAccessRepository 创建课程访问仓储
func NewCourseAccessRepository(db *gorm.DB) CourseAccessRepository {
	return &courseAccessRepository{db: db}
}

func (r *courseAccessRepository) CreateWithSeat(ctx context.Context, userID, moduleID string) (*model.CourseAccess, *model.SeatPackage, error) {
	var access *model.CourseAccess
	var pkg model.SeatPackage

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		// 选取最早购买且仍有剩余席位的生效席位包
		err := tx.Where("user_id = ? AND status = ?", userID, model.StatusActive).
			Where("used_seats < total_seats").
			Where("expires_at IS NULL OR expires_at > ?", now).
			Order("purchased_at ASC").
			First(&pkg).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoAvailableSeats
			}
			return err
		}

		// 条件更新消耗席位，受影响行数为 0 说明并发下席位已被耗尽
		result := tx.Model(&model.SeatPackage{}).
			Where("id = ? AND status = ? AND used_seats < total_seats", pkg.ID, model.StatusActive).
			UpdateColumn("used_seats", gorm.Expr("used_seats + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNoAvailableSeats
		}

		// 插入访问记录，(user_id, module_id, status) 唯一索引挡住重复解锁；
		// 冲突时整个事务回滚，席位不会被多扣
		access = &model.CourseAccess{
			UserID:        userID,
			ModuleID:      moduleID,
			SeatPackageID: pkg.ID,
			Status:        model.StatusActive,
			UnlockedAt:    now,
		}
		if err := tx.Create(access).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAccessExists
			}
			return err
		}

		// 重新读取席位包，拿到消耗后的计数
		return tx.Where("id = ?", pkg.ID).First(&pkg).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return access, &pkg, nil
}

func (r *courseAccessRepository) GetActive(ctx context.Context, userID, moduleID string) (*model.CourseAccess, error) {
	var access model.CourseAccess
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND module_id = ? AND status = ?", userID, moduleID, model.StatusActive).
		First(&access).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessNotFound
		}
		return nil, err
	}
	return &access, nil
}

func (r *courseAccessRepository) ListActiveByUserID(ctx context.Context, userID string) ([]*model.CourseAccess, error) {
	var accesses []*model.CourseAccess
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.StatusActive).
		Order("unlocked_at DESC").
		Find(&accesses).Error
	return accesses, err
}

func (r *courseAccessRepository) Touch(ctx context.Context, userID, moduleID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.CourseAccess{}).
		Where("user_id = ? AND module_id = ? AND status = ?", userID, moduleID, model.StatusActive).
		UpdateColumn("last_accessed_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccessNotFound
	}
	return nil
}

func (r *courseAccessRepository) Revoke(ctx context.Context, userID, moduleID string) error {
	var access model.CourseAccess
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND module_id = ? AND status = ?", userID, moduleID, model.StatusActive).
		First(&access).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccessNotFound
		}
		return err
	}

	// status 带上行 ID，避免同一用户同一课程的历史吊销记录
	// 在唯一索引上冲突
	result := r.db.WithContext(ctx).
		Model(&model.CourseAccess{}).
		Where("id = ? AND status = ?", access.ID, model.StatusActive).
		UpdateColumn("status", model.StatusRevoked+":"+access.ID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccessNotFound
	}
	return nil
}
