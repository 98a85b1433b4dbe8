package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/user"
)

// Handler 认证接口
type Handler struct {
	users *user.Service
	jwt   *auth.JWTService
}

// NewHandler 创建认证接口
func NewHandler(users *user.Service, jwt *auth.JWTService) *Handler {
	return &Handler{users: users, jwt: jwt}
}

// LoginRequest 登录请求体
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 刷新令牌请求体
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LoginResponse 登录结果
type LoginResponse struct {
	User   *user.User      `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// Login 邮箱密码登录
// @Summary 登录
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录凭据"
// @Success 200 {object} common.APIResponse
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "请求体不合法: "+err.Error())
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			common.Error(c, http.StatusUnauthorized, err.Error())
			return
		}
		common.Error(c, http.StatusInternalServerError, "登录失败")
		return
	}

	tokens, err := h.jwt.GenerateTokenPair(u.ID, u.Name, u.Role)
	if err != nil {
		common.Error(c, http.StatusInternalServerError, "签发令牌失败")
		return
	}
	common.Success(c, LoginResponse{User: u, Tokens: tokens})
}

// Refresh 刷新令牌
// @Summary 刷新令牌
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "刷新令牌"
// @Success 200 {object} common.APIResponse
// @Router /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "请求体不合法: "+err.Error())
		return
	}

	tokens, err := h.jwt.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		common.Error(c, http.StatusUnauthorized, err.Error())
		return
	}
	common.Success(c, tokens)
}

// Logout 登出并吊销当前令牌
// @Summary 登出
// @Tags auth
// @Produce json
// @Success 200 {object} common.APIResponse
// @Router /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	tokenString, err := auth.ExtractTokenFromBearer(c.GetHeader("Authorization"))
	if err == nil {
		if revokeErr := h.jwt.InvalidateToken(c.Request.Context(), tokenString); revokeErr != nil {
			common.Error(c, http.StatusInternalServerError, "登出失败")
			return
		}
	}
	common.SuccessWithMessage(c, "已登出", nil)
}
