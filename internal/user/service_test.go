package user

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend/internal/approval"
	"backend/internal/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console", "stderr"); err != nil {
		fmt.Println("初始化测试日志失败:", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))
	return db
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(openTestDB(t))
	ctx := context.Background()

	created, err := svc.Create(ctx, "ciso@example.com", "首席信息安全官", "s3cret-pass", approval.RoleCISO)
	require.NoError(t, err)

	t.Run("正确凭据", func(t *testing.T) {
		u, err := svc.Authenticate(ctx, "ciso@example.com", "s3cret-pass")
		require.NoError(t, err)
		assert.Equal(t, created.ID, u.ID)
		assert.Equal(t, approval.RoleCISO, u.Role)
	})

	t.Run("密码错误", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "ciso@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("账号不存在", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "ghost@example.com", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestSeedReviewers(t *testing.T) {
	svc := NewService(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, svc.SeedReviewers(ctx, "dev-pass"))

	t.Run("每个关卡角色加管理员", func(t *testing.T) {
		u, err := svc.Authenticate(ctx, "marketing@intelhub.local", "dev-pass")
		require.NoError(t, err)
		assert.Equal(t, approval.RoleMarketing, u.Role)

		u, err = svc.Authenticate(ctx, "admin@intelhub.local", "dev-pass")
		require.NoError(t, err)
		assert.True(t, u.Role.IsAdmin())
	})

	t.Run("重复预置幂等", func(t *testing.T) {
		require.NoError(t, svc.SeedReviewers(ctx, "dev-pass"))

		var count int64
		require.NoError(t, svc.db.Model(&User{}).Count(&count).Error)
		assert.Equal(t, int64(len(seedAccounts)), count)
	})
}
