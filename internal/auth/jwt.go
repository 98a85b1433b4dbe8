package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"backend/internal/approval"
	"backend/internal/logger"
)

// 令牌相关错误
var (
	ErrTokenExpired     = errors.New("令牌已过期")
	ErrTokenInvalid     = errors.New("令牌无效")
	ErrTokenRevoked     = errors.New("令牌已吊销")
	ErrWrongTokenType   = errors.New("令牌类型不匹配")
	ErrMissingAuthToken = errors.New("缺少认证令牌")
)

// TokenClaims JWT 载荷
type TokenClaims struct {
	UserID    string        `json:"user_id"`
	Name      string        `json:"name"`
	Role      approval.Role `json:"role"`
	TokenType string        `json:"token_type"` // access, refresh
	jwt.RegisteredClaims
}

// TokenPair 访问令牌与刷新令牌
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // 秒
}

// JWTService JWT 签发与校验。
// 吊销名单优先写 Redis，未配置时退化为进程内存（重启即失效，仅开发可用）。
type JWTService struct {
	secretKey     []byte
	issuer        string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	redisClient   redis.UniversalClient

	mu        sync.Mutex
	localDeny map[string]time.Time
}

// NewJWTService 创建 JWT 服务，redisClient 可为 nil
func NewJWTService(secret, issuer string, accessExpiry, refreshExpiry time.Duration, redisClient redis.UniversalClient) *JWTService {
	if accessExpiry <= 0 {
		accessExpiry = 2 * time.Hour
	}
	if refreshExpiry <= 0 {
		refreshExpiry = 7 * 24 * time.Hour
	}
	return &JWTService{
		secretKey:     []byte(secret),
		issuer:        issuer,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		redisClient:   redisClient,
		localDeny:     make(map[string]time.Time),
	}
}

// GenerateTokenPair 为账号签发访问令牌与刷新令牌
func (s *JWTService) GenerateTokenPair(userID, name string, role approval.Role) (*TokenPair, error) {
	access, err := s.generate(userID, name, role, "access", s.accessExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := s.generate(userID, name, role, "refresh", s.refreshExpiry)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessExpiry.Seconds()),
	}, nil
}

func (s *JWTService) generate(userID, name string, role approval.Role, tokenType string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID:    userID,
		Name:      name,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("签发令牌失败: %w", err)
	}
	return signed, nil
}

// ValidateToken 校验令牌并返回载荷
func (s *JWTService) ValidateToken(ctx context.Context, tokenString, wantType string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非法签名算法: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}
	if s.isRevoked(ctx, claims.ID) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// RefreshAccessToken 用刷新令牌换新令牌对，旧刷新令牌同时吊销
func (s *JWTService) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.ValidateToken(ctx, refreshToken, "refresh")
	if err != nil {
		return nil, err
	}
	if err := s.revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		logger.Warn("吊销旧刷新令牌失败", zap.Error(err))
	}
	return s.GenerateTokenPair(claims.UserID, claims.Name, claims.Role)
}

// InvalidateToken 吊销令牌（登出）
func (s *JWTService) InvalidateToken(ctx context.Context, tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		// 已过期或非法的令牌无需入名单
		return nil
	}
	claims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return nil
	}
	return s.revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

func (s *JWTService) revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if s.redisClient != nil {
		key := fmt.Sprintf("blacklist:token:%s", tokenID)
		return s.redisClient.Set(ctx, key, "1", ttl).Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localDeny[tokenID] = time.Now().Add(ttl)
	return nil
}

// isRevoked 查询吊销名单。Redis 故障时放行，认证可用性优先于吊销即时性。
func (s *JWTService) isRevoked(ctx context.Context, tokenID string) bool {
	if s.redisClient != nil {
		key := fmt.Sprintf("blacklist:token:%s", tokenID)
		n, err := s.redisClient.Exists(ctx, key).Result()
		if err != nil {
			logger.Warn("查询令牌吊销名单失败", zap.Error(err))
			return false
		}
		return n > 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.localDeny[tokenID]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(s.localDeny, tokenID)
		return false
	}
	return true
}

// ExtractTokenFromBearer 从 Authorization 头提取令牌
func ExtractTokenFromBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingAuthToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrTokenInvalid
	}
	return parts[1], nil
}
