package provider

import (
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/authz"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/cache"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/config"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/logger"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/queue"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/repository"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	JobLocker   *cache.JobLocker
	Location    *time.Location

	// Repositories
	UnifiedUserRepo     repository.UnifiedUserRepository
	UnifiedPaymentRepo  repository.UnifiedPaymentRepository
	CommissionRepo      repository.CommissionRepository
	CommissionLevelRepo repository.CommissionLevelRepository
	SubAffiliateRepo    repository.SubAffiliateRepository
	SubscriptionRepo    repository.SubscriptionRepository
	AffiliateRepo       repository.AffiliateRepository
	SettingRepo         repository.SettingRepository

	// Services
	AuthzService                *authz.Service
	AuthService                 *service.AuthService
	SettingService              *service.SettingService
	HierarchyResolver           *service.HierarchyResolver
	CommissionRateTable         *service.CommissionRateTable
	CommissionLedgerService     *service.CommissionLedgerService
	PaymentSyncService          *service.PaymentSyncService
	CommissionReprocessService  *service.CommissionReprocessService
	CommissionMaturationService *service.CommissionMaturationService
	CommissionQueryService      *service.CommissionQueryService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		JobLocker: cache.NewJobLocker(
			cache.Client(),
			cfg.Redis.Prefix,
			time.Duration(cfg.Schedule.JobLockTTLSecond)*time.Second,
		),
		Location: LoadLocation(cfg.Schedule.Timezone),
	}

	// 1. 初始化 Repositories
	c.initRepositories(models.DB)
	c.initAuthz(models.DB)

	// 2. 初始化 Services
	c.initServices()

	return c
}

// NewContainerForDB 基于给定数据库构建容器，不连接 Redis 与队列
func NewContainerForDB(cfg *config.Config, db *gorm.DB) *Container {
	c := &Container{
		Config:    cfg,
		JobLocker: cache.NewJobLocker(nil, cfg.Redis.Prefix, 0),
		Location:  LoadLocation(cfg.Schedule.Timezone),
	}
	c.initRepositories(db)
	c.initAuthz(db)
	c.initServices()
	return c
}

// LoadLocation 解析任务时区，失败回退 UTC
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warnw("provider_load_location_failed", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.UnifiedUserRepo = repository.NewUnifiedUserRepository(db)
	c.UnifiedPaymentRepo = repository.NewUnifiedPaymentRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.CommissionLevelRepo = repository.NewCommissionLevelRepository(db)
	c.SubAffiliateRepo = repository.NewSubAffiliateRepository(db)
	c.SubscriptionRepo = repository.NewSubscriptionRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
}

// initAuthz 初始化调用方授权，策略表写入失败直接终止启动
func (c *Container) initAuthz(db *gorm.DB) {
	authzService, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}
	authCfg := c.Config.Auth
	if len(authCfg.IntakeCallers) == 0 && len(authCfg.AdminCallers) == 0 {
		logger.Warnw("provider_authz_no_callers_configured")
	}
	if err := authzService.BootstrapCallers(authCfg.IntakeCallers, authCfg.AdminCallers); err != nil {
		logger.Errorw("provider_bootstrap_callers_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
}

func (c *Container) initServices() {
	commissionCfg := c.Config.Commission
	storeTimeout := time.Duration(commissionCfg.StoreTimeoutSeconds) * time.Second

	c.AuthService = service.NewAuthService(c.Config.Auth.ServiceJWTSecret)
	c.SettingService = service.NewSettingService(c.SettingRepo, service.CommissionSetting{
		HoldingPeriodDays:   commissionCfg.HoldingPeriodDays,
		MinWithdrawalAmount: models.NewMoneyFromFloat(commissionCfg.MinWithdrawalAmount),
	})
	c.HierarchyResolver = service.NewHierarchyResolver(c.SubAffiliateRepo, commissionCfg.MaxDepth)
	c.CommissionRateTable = service.NewCommissionRateTable(c.CommissionLevelRepo, c.SubscriptionRepo)
	c.CommissionLedgerService = service.NewCommissionLedgerService(
		c.UnifiedPaymentRepo,
		c.CommissionRepo,
		c.HierarchyResolver,
		c.CommissionRateTable,
	)
	c.PaymentSyncService = service.NewPaymentSyncService(
		c.UnifiedUserRepo,
		c.UnifiedPaymentRepo,
		c.AffiliateRepo,
		c.CommissionLedgerService,
		service.PaymentSyncOptions{StoreTimeout: storeTimeout},
	)
	c.CommissionReprocessService = service.NewCommissionReprocessService(
		c.UnifiedPaymentRepo,
		c.CommissionRepo,
		c.CommissionLedgerService,
		service.CommissionReprocessOptions{
			BatchSize:    commissionCfg.ReconcileBatchSize,
			Workers:      commissionCfg.Workers,
			StoreTimeout: storeTimeout,
		},
	)
	c.CommissionMaturationService = service.NewCommissionMaturationService(
		c.CommissionRepo,
		c.AffiliateRepo,
		c.SettingService,
		service.CommissionMaturationOptions{
			Workers:      commissionCfg.Workers,
			StoreTimeout: storeTimeout,
			Location:     c.Location,
		},
	)
	c.CommissionQueryService = service.NewCommissionQueryService(c.CommissionRepo, c.UnifiedPaymentRepo, c.AffiliateRepo)
}
