package repository

import (
	"context"
	"errors"
	"time"

	"github.com/pu-ac-cn/video-access-backend/internal/model"
	"gorm.io/gorm"
)

var (
	ErrSeatPackageNotFound = errors.New("席位包不存在")
	ErrNoAvailableSeats    = errors.New("没有可用席位")
)

// SeatPackageRepository 席位包仓储
type SeatPackageRepository interface {
	Create(ctx context.Context, pkg *model.SeatPackage) error
	GetByID(ctx context.Context, id string) (*model.SeatPackage, error)
	ListByUserID(ctx context.Context, userID string) ([]*model.SeatPackage, error)
	// FindAvailable 按购买时间先后选取最早且仍有剩余席位的生效席位包
	FindAvailable(ctx context.Context, userID string) (*model.SeatPackage, error)
	// ConsumeSeat 以条件更新消耗一个席位：
	// used_seats 自增 1，前提是包处于生效状态且仍有剩余；
	// 受影响行数为 0 时返回 ErrNoAvailableSeats。
	ConsumeSeat(ctx context.Context, packageID string) (*model.SeatPackage, error)
}

type seatPackageRepository struct {
	db *gorm.DB
}

// NewSeatPackageRepository 创建席位包仓储
func NewSeatPackageRepository(db *gorm.DB) SeatPackageRepository {
	return &seatPackageRepository{db: db}
}

func (r *seatPackageRepository) Create(ctx context.Context, pkg *model.SeatPackage) error {
	if pkg.PurchasedAt.IsZero() {
		pkg.PurchasedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *seatPackageRepository) GetByID(ctx context.Context, id string) (*model.SeatPackage, error) {
	var pkg model.SeatPackage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSeatPackageNotFound
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *seatPackageRepository) ListByUserID(ctx context.Context, userID string) ([]*model.SeatPackage, error) {
	var pkgs []*model.SeatPackage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("purchased_at ASC").
		Find(&pkgs).Error
	return pkgs, err
}

func (r *seatPackageRepository) FindAvailable(ctx context.Context, userID string) (*model.SeatPackage, error) {
	var pkg model.SeatPackage
	now := time.Now()
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.StatusActive).
		Where("used_seats < total_seats").
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("purchased_at ASC").
		First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoAvailableSeats
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *seatPackageRepository) ConsumeSeat(ctx context.Context, packageID string) (*model.SeatPackage, error) {
	result := r.db.WithContext(ctx).
		Model(&model.SeatPackage{}).
		Where("id = ? AND status = ? AND used_seats < total_seats", packageID, model.StatusActive).
		UpdateColumn("used_seats", gorm.Expr("used_seats + 1"))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNoAvailableSeats
	}
	return r.GetByID(ctx, packageID)
}
