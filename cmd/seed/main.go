package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/config"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/logger"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/service"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

func main() {
	var printToken bool
	var caller string
	var productID string
	flag.BoolVar(&printToken, "token", false, "输出服务间调用 token")
	flag.StringVar(&caller, "caller", "seed", "token 调用方标识")
	flag.StringVar(&productID, "product", "demo-product", "演示产品ID")
	flag.Parse()

	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	now := time.Now().UTC()

	// 结算配置缺省值
	settings := []models.AppSetting{
		{
			Key:         constants.SettingKeyCommissionDaysToAvailable,
			Value:       fmt.Sprintf("%d", cfg.Commission.HoldingPeriodDays),
			Description: "days a pending commission waits before it can become available",
			UpdatedAt:   now,
		},
		{
			Key:         constants.SettingKeyCommissionMinWithdrawal,
			Value:       decimal.NewFromFloat(cfg.Commission.MinWithdrawalAmount).StringFixed(2),
			Description: "minimum matured total per affiliate",
			UpdatedAt:   now,
		},
	}
	for _, setting := range settings {
		if err := models.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&setting).Error; err != nil {
			stdLog.Printf("Failed to seed setting %s: %v", setting.Key, err)
		}
	}

	// 比例表：FREE 只拿直推，PRO 三级
	rates := []models.ProductCommissionLevel{
		{ProductID: productID, PlanType: constants.AffiliatePlanFree, Level: 1, Percentage: models.MustMoney("25"), IsActive: true},
		{ProductID: productID, PlanType: constants.AffiliatePlanPro, Level: 1, Percentage: models.MustMoney("40"), IsActive: true},
		{ProductID: productID, PlanType: constants.AffiliatePlanPro, Level: 2, Percentage: models.MustMoney("10"), IsActive: true},
		{ProductID: productID, PlanType: constants.AffiliatePlanPro, Level: 3, Percentage: models.MustMoney("5"), IsActive: true},
	}
	for i := range rates {
		if err := models.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&rates[i]).Error; err != nil {
			stdLog.Printf("Failed to seed rate %s/%d: %v", rates[i].PlanType, rates[i].Level, err)
		}
	}

	// 演示推广链：root(PRO) -> mid(FREE) -> leaf
	proPlan := models.Plan{ID: "demo-pro", ProductID: productID, Name: "PRO", Price: models.MustMoney("97.00")}
	if err := models.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&proPlan).Error; err != nil {
		stdLog.Printf("Failed to seed plan: %v", err)
	}
	affiliates := []models.Affiliate{
		{ID: "demo-root", AffiliateCode: "ROOT", Name: "Demo Root", Status: constants.AffiliateStatusActive, WithdrawalDay: 1},
		{ID: "demo-mid", AffiliateCode: "MID", Name: "Demo Mid", Status: constants.AffiliateStatusActive, WithdrawalDay: 3},
	}
	for i := range affiliates {
		if err := models.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&affiliates[i]).Error; err != nil {
			stdLog.Printf("Failed to seed affiliate %s: %v", affiliates[i].ID, err)
		}
	}
	var subCount int64
	models.DB.Model(&models.Subscription{}).Where("user_id = ?", "demo-root").Count(&subCount)
	if subCount == 0 {
		if err := models.DB.Create(&models.Subscription{UserID: "demo-root", PlanID: proPlan.ID, Status: constants.SubscriptionStatusActive}).Error; err != nil {
			stdLog.Printf("Failed to seed subscription: %v", err)
		}
	}
	edges := []models.SubAffiliate{
		{ParentAffiliateID: "demo-root", SubAffiliateID: "demo-mid", Level: 1},
		{ParentAffiliateID: "demo-mid", SubAffiliateID: "demo-leaf", Level: 1},
		{ParentAffiliateID: "demo-root", SubAffiliateID: "demo-leaf", Level: 2},
	}
	for i := range edges {
		if err := models.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&edges[i]).Error; err != nil {
			stdLog.Printf("Failed to seed hierarchy edge: %v", err)
		}
	}
	stdLog.Printf("Seed finished for product %s", productID)

	if printToken {
		token, expiresAt, err := service.NewAuthService(cfg.Auth.ServiceJWTSecret).GenerateServiceToken(caller, 30*24*time.Hour)
		if err != nil {
			stdLog.Fatalf("Failed to generate service token: %v", err)
		}
		fmt.Printf("token=%s\nexpires_at=%s\n", token, expiresAt.Format(time.RFC3339))
	}
}
