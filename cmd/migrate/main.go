// Package main 数据库迁移工具
package main

import (
	"flag"
	"log"

	"github.com/pu-ac-cn/video-access-backend/internal/config"
	"github.com/pu-ac-cn/video-access-backend/internal/database"
	"github.com/pu-ac-cn/video-access-backend/internal/model"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	// 加载配置
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化数据库连接
	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close()
	log.Println("数据库连接成功")

	// 执行迁移
	log.Println("开始执行数据库迁移...")

	// 迁移所有模型
	models := []any{
		&model.User{},
		&model.SeatPackage{},
		&model.CourseAccess{},
		&model.ViewingSession{},
		&model.VideoAccessToken{},
		&model.AuditEvent{},
	}

	for _, m := range models {
		if err := database.AutoMigrate(m); err != nil {
			log.Fatalf("迁移失败: %v", err)
		}
	}

	log.Println("数据库迁移完成！")

	// 打印创建的表
	log.Println("已创建/更新的表:")
	log.Println("  - users (用户表)")
	log.Println("  - seat_packages (席位包表)")
	log.Println("  - course_accesses (课程访问表)")
	log.Println("  - viewing_sessions (观看会话表)")
	log.Println("  - video_access_tokens (视频访问令牌表)")
	log.Println("  - audit_events (审计事件表)")
}
