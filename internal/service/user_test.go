package service

import (
	"context"
	"testing"

	"github.com/pu-ac-cn/video-access-backend/internal/model"
	"github.com/pu-ac-cn/video-access-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Create(t *testing.T) {
	store := newMockStore()
	svc := NewUserService(store)
	ctx := context.Background()

	user := &model.User{Username: "alice", Email: "alice@test.com"}
	require.NoError(t, svc.Create(ctx, user, "Password123"))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, model.StatusActive, user.Status)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "Password123", user.PasswordHash)

	// 用户名冲突
	dup := &model.User{Username: "alice", Email: "other@test.com"}
	assert.ErrorIs(t, svc.Create(ctx, dup, "Password123"), repository.ErrUserUsernameExists)

	// 邮箱冲突
	dup = &model.User{Username: "bob", Email: "alice@test.com"}
	assert.ErrorIs(t, svc.Create(ctx, dup, "Password123"), repository.ErrUserEmailExists)
}

func TestUserService_Create_Validation(t *testing.T) {
	svc := NewUserService(newMockStore())
	ctx := context.Background()

	tests := []struct {
		name     string
		user     *model.User
		password string
		wantErr  error
	}{
		{"用户名为空", &model.User{Email: "a@test.com"}, "Password123", ErrUsernameEmpty},
		{"用户名过短", &model.User{Username: "ab", Email: "a@test.com"}, "Password123", ErrUsernameTooShort},
		{"用户名含非法字符", &model.User{Username: "a b!", Email: "a@test.com"}, "Password123", ErrUsernameInvalid},
		{"邮箱为空", &model.User{Username: "alice"}, "Password123", ErrEmailEmpty},
		{"邮箱格式无效", &model.User{Username: "alice", Email: "not-an-email"}, "Password123", ErrEmailInvalid},
		{"密码为空", &model.User{Username: "alice", Email: "a@test.com"}, "", ErrPasswordEmpty},
		{"密码过短", &model.User{Username: "alice", Email: "a@test.com"}, "short", ErrPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.Create(ctx, tt.user, tt.password), tt.wantErr)
		})
	}
}

func TestUserService_GetByID(t *testing.T) {
	store := newMockStore()
	svc := NewUserService(store)
	ctx := context.Background()

	created := &model.User{Username: "alice", Email: "alice@test.com"}
	require.NoError(t, svc.Create(ctx, created, "Password123"))

	user, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.GetByID(ctx, "")
	assert.ErrorIs(t, err, ErrUserIDEmpty)
	_, err = svc.GetByID(ctx, "no-such-id")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserService_GetByUsername(t *testing.T) {
	store := newMockStore()
	svc := NewUserService(store)
	ctx := context.Background()

	created := &model.User{Username: "alice", Email: "alice@test.com"}
	require.NoError(t, svc.Create(ctx, created, "Password123"))

	user, err := svc.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.GetByUsername(ctx, "")
	assert.ErrorIs(t, err, ErrUsernameEmpty)
}
