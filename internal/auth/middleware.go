package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/approval"
)

const userContextKey = "user"

// UserContext 认证后注入请求上下文的调用方身份
type UserContext struct {
	UserID string
	Name   string
	Role   approval.Role
}

// Actor 转换为审批引擎的调用方身份
func (u *UserContext) Actor() approval.Actor {
	return approval.Actor{ID: u.UserID, Name: u.Name, Role: u.Role}
}

// AuthMiddleware JWT 认证中间件
func AuthMiddleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := ExtractTokenFromBearer(c.GetHeader("Authorization"))
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		claims, err := jwtService.ValidateToken(c.Request.Context(), tokenString, "access")
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		c.Set(userContextKey, &UserContext{
			UserID: claims.UserID,
			Name:   claims.Name,
			Role:   claims.Role,
		})
		c.Next()
	}
}

// RequireAdmin 仅管理角色可通过
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := GetUserContext(c)
		if !ok || !u.Role.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"code":    "INSUFFICIENT_ROLE",
				"message": "该操作需要管理员权限",
			})
			return
		}
		c.Next()
	}
}

// GetUserContext 读取认证身份
func GetUserContext(c *gin.Context) (*UserContext, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*UserContext)
	return u, ok
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"code":    "UNAUTHORIZED",
		"message": err.Error(),
	})
}
