package api

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	approvalHandler "backend/api/handlers/approval"
	articlesHandler "backend/api/handlers/articles"
	auditHandler "backend/api/handlers/audit"
	authHandler "backend/api/handlers/auth"
	notificationsHandler "backend/api/handlers/notifications"
	"backend/internal/approval"
	"backend/internal/article"
	"backend/internal/audit"
	"backend/internal/auth"
	"backend/internal/config"
	"backend/internal/infra"
	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/notification"
	"backend/internal/user"
)

// SetupRouter 组装依赖并注册全部路由
func SetupRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Redis 可选，连不上时令牌吊销退化为进程内存
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		rdb, err := infra.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Warn("Redis 不可用，令牌吊销降级为进程内存", zap.Error(err))
		} else {
			redisClient = rdb
		}
	}

	jwtService := auth.NewJWTService(
		resolveJWTSecret(cfg.Server.Mode),
		cfg.JWT.Issuer,
		time.Duration(cfg.JWT.AccessExpiry)*time.Minute,
		time.Duration(cfg.JWT.RefreshExpiry)*time.Hour,
		redisClient,
	)

	// 服务装配
	hub := notification.NewHub()
	auditService := audit.NewService(db)
	engine := approval.NewEngine(db,
		approval.WithNotifier(hub),
		approval.WithAuditSink(auditService),
	)
	projector := approval.NewQueueProjector(db)
	userService := user.NewService(db)
	articleService := article.NewService(db, func(ctx context.Context, tx *gorm.DB, articleID string) error {
		_, err := engine.EnterTx(ctx, tx, articleID)
		return err
	})

	// 处理器
	authH := authHandler.NewHandler(userService, jwtService)
	articlesH := articlesHandler.NewHandler(articleService, engine)
	approvalH := approvalHandler.NewHandler(engine, projector)
	auditH := auditHandler.NewHandler(auditService)
	wsH := notificationsHandler.NewHandler(hub)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestLogger(),
		CORS(),
		metrics.PrometheusMiddleware(),
	)

	// 系统探针
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerAPIRoutes := func(group *gin.RouterGroup) {
		// 公开接口
		authGroup := group.Group("/auth")
		{
			authGroup.POST("/login", authH.Login)
			authGroup.POST("/refresh", authH.Refresh)
			authGroup.POST("/logout", authH.Logout)
		}

		// 认证接口
		authed := group.Group("")
		authed.Use(auth.AuthMiddleware(jwtService))
		{
			articlesGroup := authed.Group("/articles")
			{
				articlesGroup.POST("", articlesH.Create)
				articlesGroup.GET("", articlesH.List)
				articlesGroup.GET("/:id", articlesH.Get)
				articlesGroup.POST("/:id/approve", approvalH.Approve)
				articlesGroup.POST("/:id/reject", approvalH.Reject)
				articlesGroup.POST("/:id/release", approvalH.Release)
				articlesGroup.POST("/:id/reset", approvalH.Reset)
				articlesGroup.GET("/:id/approval-history", approvalH.GetHistory)
			}

			approvalsGroup := authed.Group("/approvals")
			{
				approvalsGroup.GET("/queue", approvalH.GetQueue)
				approvalsGroup.GET("/stats", auth.RequireAdmin(), approvalH.GetStatusCounts)
			}

			authed.GET("/audit/logs", auth.RequireAdmin(), auditH.ListByTarget)

			authed.GET("/ws/approvals", wsH.Subscribe)
		}
	}

	registerAPIRoutes(router.Group("/api"))
	registerAPIRoutes(router.Group("/api/v1"))

	return router
}

// resolveJWTSecret 读取签名密钥。生产模式缺失即终止，开发模式给默认值并告警。
func resolveJWTSecret(mode string) string {
	secret := os.Getenv("JWT_SECRET_KEY")
	if secret != "" {
		return secret
	}
	if mode == "release" || mode == "prod" {
		logger.Fatal("生产环境必须设置 JWT_SECRET_KEY")
	}
	logger.Warn("未设置 JWT_SECRET_KEY，使用开发默认值")
	return "intelhub-dev-secret-do-not-use-in-prod"
}
