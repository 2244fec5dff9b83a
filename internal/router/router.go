package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/cache"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/config"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	adminhandlers "github.com/agendasuperapi/renda-recorrente2-sub004/internal/http/handlers/admin"
	publichandlers "github.com/agendasuperapi/renda-recorrente2-sub004/internal/http/handlers/public"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/logger"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	if strings.EqualFold(cfg.Server.Mode, gin.ReleaseMode) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// 初始化 Handler（契约接口 / 后台查询）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	intakeRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:intake", redisPrefix),
		WindowSeconds: cfg.Security.IntakeRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.IntakeRateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", healthz)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(ServiceJWTAuthMiddleware(c.AuthService), CallerAuthzMiddleware(c.AuthzService))
	{
		apiV1.POST("/sync/unified-data", RateLimitMiddleware(cache.Client(), intakeRule, KeyByCaller), publicHandler.SyncUnifiedData)

		commissions := apiV1.Group("/commissions")
		{
			commissions.POST("/reprocess", publicHandler.ReprocessCommissions)
			commissions.POST("/process-status", publicHandler.ProcessCommissionStatus)
			commissions.GET("", adminHandler.ListCommissions)
		}

		apiV1.GET("/payments", adminHandler.ListPayments)
		apiV1.GET("/payments/:id", adminHandler.GetPaymentDetail)
		apiV1.GET("/products/:id/commission-levels", adminHandler.ListProductCommissionLevels)
		apiV1.GET("/affiliates/:id/balance", adminHandler.GetAffiliateBalance)
		apiV1.GET("/settings/commission", adminHandler.GetCommissionSetting)
		apiV1.PUT("/settings/commission", adminHandler.UpdateCommissionSetting)

		jobs := apiV1.Group("/jobs")
		{
			jobs.POST("/maturation", adminHandler.EnqueueMaturationJob)
			jobs.POST("/reconcile", adminHandler.EnqueueReconcileJob)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found"})
	})

	return r
}

// healthz 存活检查，附带数据库连通性
func healthz(c *gin.Context) {
	status := gin.H{"status": "ok", "database": "ok"}
	if models.DB == nil {
		status["database"] = "not_initialized"
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	sqlDB, err := models.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		logger.Warnw("healthz_database_unreachable", "error", err)
		status["status"] = "degraded"
		status["database"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}
