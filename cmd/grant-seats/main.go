// 为指定用户开通席位包的工具
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/pu-ac-cn/video-access-backend/internal/config"
	"github.com/pu-ac-cn/video-access-backend/internal/database"
	"github.com/pu-ac-cn/video-access-backend/internal/model"
	"github.com/pu-ac-cn/video-access-backend/internal/repository"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("用法: grant-seats <用户名或邮箱> <席位数> [有效天数]")
		fmt.Println("示例: grant-seats hr@example.com 10 365")
		os.Exit(1)
	}

	username := os.Args[1]
	seats, err := strconv.Atoi(os.Args[2])
	if err != nil || seats <= 0 {
		log.Fatalf("无效的席位数: %s", os.Args[2])
	}

	var validDays int
	if len(os.Args) > 3 {
		validDays, err = strconv.Atoi(os.Args[3])
		if err != nil || validDays <= 0 {
			log.Fatalf("无效的有效天数: %s", os.Args[3])
		}
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close()

	ctx := context.Background()

	// 初始化 Repository
	userRepo := repository.NewUserRepository(database.GetDB())
	seatRepo := repository.NewSeatPackageRepository(database.GetDB())

	// 查找用户（先按用户名，再按邮箱）
	user, err := userRepo.GetByUsername(ctx, username)
	if err != nil {
		user, err = userRepo.GetByEmail(ctx, username)
		if err != nil {
			log.Fatalf("用户不存在: %s", username)
		}
	}

	// 创建席位包
	pkg := &model.SeatPackage{
		UserID:      user.ID,
		TotalSeats:  seats,
		Status:      model.StatusActive,
		PurchasedAt: time.Now(),
	}
	if validDays > 0 {
		expiresAt := time.Now().AddDate(0, 0, validDays)
		pkg.ExpiresAt = &expiresAt
	}

	if err := seatRepo.Create(ctx, pkg); err != nil {
		log.Fatalf("创建席位包失败: %v", err)
	}

	fmt.Printf("已为用户 %s (%s) 开通席位包 %s\n", user.Username, user.Email, pkg.ID)
	fmt.Printf("  席位数: %d\n", pkg.TotalSeats)
	if pkg.ExpiresAt != nil {
		fmt.Printf("  有效期至: %s\n", pkg.ExpiresAt.Format("2006-01-02"))
	} else {
		fmt.Println("  有效期: 不限")
	}
}
