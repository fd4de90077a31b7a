package service

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pu-ac-cn/video-access-backend/internal/model"
)

// newPropVideoFixture 性质测试环境：一个用户、一门已解锁课程
func newPropVideoFixture() (*mockStore, *mockAudit, VideoTokenService) {
	store := newMockStore()
	audit := newMockAudit()
	ent := NewEntitlementService(mockSeatRepo{store}, mockAccessRepo{store}, audit)
	sessions := NewViewingSessionService(mockSessionRepo{store}, nil)
	svc := NewVideoTokenService(mockTokenRepo{store}, store, ent, sessions, audit, &VideoTokenServiceConfig{
		Secret: "prop-secret",
	})

	store.addUser("prop-user", "propuser", "prop@test.com")
	pkg := &model.SeatPackage{
		UserID:      "prop-user",
		TotalSeats:  1,
		Status:      model.StatusActive,
		PurchasedAt: time.Now(),
	}
	_ = (mockSeatRepo{store}).Create(context.Background(), pkg)
	_, _, _ = ent.Unlock(context.Background(), "prop-user", "course-101", "10.0.0.1", "ua")
	return store, audit, svc
}

// Property: 令牌单次使用
// *For any* 断点位置与验证次数 n（n >= 2），同一令牌恰好第一次验证成功，
// 后续验证全部被拒绝，且成功时返回保存的位置。
func TestProperty_TokenSingleUse(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("恰好一次验证成功", prop.ForAll(
		func(position, attempts int) bool {
			_, _, svc := newPropVideoFixture()
			ctx := context.Background()

			issued, err := svc.Issue(ctx, "prop-user", "course-101", "10.0.0.1", "ua")
			if err != nil {
				t.Logf("签发失败: %v", err)
				return false
			}
			if err := svc.SavePosition(ctx, issued.TokenHash, "prop-user", position); err != nil {
				t.Logf("保存位置失败: %v", err)
				return false
			}

			succeeded := 0
			for i := 0; i < attempts; i++ {
				result, err := svc.Validate(ctx, issued.TokenHash, "course-101", "prop-user", "10.0.0.1")
				if err == nil {
					succeeded++
					if result.VideoPosition != position {
						t.Logf("位置 %d，期望 %d", result.VideoPosition, position)
						return false
					}
				} else if err != ErrInvalidOrExpiredToken {
					t.Logf("意外错误: %v", err)
					return false
				}
			}
			return succeeded == 1
		},
		gen.IntRange(0, 7200),
		gen.IntRange(2, 6),
	))

	properties.TestingRun(t)
}

// Property: IP 绑定与留痕
// *For any* 与签发不同的请求 IP，验证被拒绝、令牌不被消费，
// 且每次拒绝都同步落一条风险分 75 的可疑行为审计。
func TestProperty_TokenIPBinding(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	otherIPGen := gen.OneConstOf(
		"10.9.9.9",
		"192.168.1.50",
		"172.16.0.3",
		"203.0.113.7",
	)

	properties.Property("异 IP 拒绝且留痕", prop.ForAll(
		func(requestIP string, tries int) bool {
			_, audit, svc := newPropVideoFixture()
			ctx := context.Background()

			issued, err := svc.Issue(ctx, "prop-user", "course-101", "10.0.0.1", "ua")
			if err != nil {
				t.Logf("签发失败: %v", err)
				return false
			}

			for i := 0; i < tries; i++ {
				if _, err := svc.Validate(ctx, issued.TokenHash, "course-101", "prop-user", requestIP); err != ErrTokenIPMismatch {
					t.Logf("异 IP 验证未被拒绝: %v", err)
					return false
				}
			}

			events := audit.byType(model.EventSuspiciousActivity)
			if len(events) != tries {
				t.Logf("可疑行为审计 %d 条，期望 %d", len(events), tries)
				return false
			}
			for _, e := range events {
				if e.RiskScore != ipMismatchRiskScore {
					t.Logf("风险分 %d，期望 %d", e.RiskScore, ipMismatchRiskScore)
					return false
				}
			}

			// 令牌未被消费，签发 IP 仍可使用
			if _, err := svc.Validate(ctx, issued.TokenHash, "course-101", "prop-user", "10.0.0.1"); err != nil {
				t.Logf("原 IP 验证失败: %v", err)
				return false
			}
			return true
		},
		otherIPGen,
		gen.IntRange(1, 4),
	))

	properties.TestingRun(t)
}
