package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"backend/internal/approval"
	"backend/internal/logger"
)

// 账号相关业务错误
var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
)

// Service 账号服务
type Service struct {
	db *gorm.DB
}

// NewService 创建账号服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Authenticate 校验邮箱密码，成功返回账号
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, "email = ? AND active = ?", email, true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// GetByID 按 ID 读取账号
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &u, nil
}

// Create 创建账号
func (s *Service) Create(ctx context.Context, email, name, password string, role approval.Role) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return u, nil
}

// seedAccounts 开发环境预置账号，每个关卡角色一个加一个管理员
var seedAccounts = []struct {
	Email string
	Name  string
	Role  approval.Role
}{
	{"marketing@intelhub.local", "市场审批员", approval.RoleMarketing},
	{"branding@intelhub.local", "品牌审批员", approval.RoleBranding},
	{"soc-l1@intelhub.local", "SOC 一线分析师", approval.RoleSocL1},
	{"soc-l3@intelhub.local", "SOC 资深分析师", approval.RoleSocL3},
	{"ciso@intelhub.local", "首席信息安全官", approval.RoleCISO},
	{"admin@intelhub.local", "平台管理员", approval.RoleAdmin},
}

// SeedReviewers 幂等预置各角色审批账号，已存在则跳过
func (s *Service) SeedReviewers(ctx context.Context, defaultPassword string) error {
	for _, acc := range seedAccounts {
		var count int64
		if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", acc.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("检查预置账号失败: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := s.Create(ctx, acc.Email, acc.Name, defaultPassword, acc.Role); err != nil {
			return err
		}
		logger.Info("预置审批账号已创建",
			zap.String("email", acc.Email),
			zap.String("role", string(acc.Role)))
	}
	return nil
}
