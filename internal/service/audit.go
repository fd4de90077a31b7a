// Package service 业务逻辑层
package service

import (
	"context"
	"time"

	"github.com/pu-ac-cn/video-access-backend/internal/model"
	"github.com/pu-ac-cn/video-access-backend/internal/repository"
	"go.uber.org/zap"
)

// AuditService 审计服务接口
// Record 为尽力而为的异步追加，写入失败不影响主流程；
// RecordSync 同步落库，供必须先留痕再响应的安全路径使用。
type AuditService interface {
	Record(event *model.AuditEvent)
	RecordSync(ctx context.Context, event *model.AuditEvent) error
	Close()
}

type auditService struct {
	repo   repository.AuditEventRepository
	logger *zap.Logger
	queue  chan *model.AuditEvent
	done   chan struct{}
}

// 异步队列容量
const auditQueueSize = 256

// NewAuditService 创建审计服务并启动后台写入协程
func NewAuditService(repo repository.AuditEventRepository, logger *zap.Logger) AuditService {
	s := &auditService{
		repo:   repo,
		logger: logger,
		queue:  make(chan *model.AuditEvent, auditQueueSize),
		done:   make(chan struct{}),
	}
	go s.worker()
	return s
}

// Record 异步记录审计事件
// 队列已满时丢弃并记录日志，绝不阻塞调用方。
func (s *auditService) Record(event *model.AuditEvent) {
	select {
	case s.queue <- event:
	default:
		s.logger.Warn("审计队列已满，事件被丢弃",
			zap.String("event_type", event.EventType),
			zap.String("user_id", event.UserID),
		)
	}
}

// RecordSync 同步记录审计事件
func (s *auditService) RecordSync(ctx context.Context, event *model.AuditEvent) error {
	return s.repo.Create(ctx, event)
}

// Close 停止后台协程并写完队列中剩余的事件
func (s *auditService) Close() {
	close(s.queue)
	<-s.done
}

func (s *auditService) worker() {
	defer close(s.done)
	for event := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, event); err != nil {
			s.logger.Error("写入审计事件失败",
				zap.String("event_type", event.EventType),
				zap.String("user_id", event.UserID),
				zap.Error(err),
			)
		}
		cancel()
	}
}
