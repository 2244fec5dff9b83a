package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testProductID = "prod-renda"

type commissionTestEnv struct {
	db             *gorm.DB
	userRepo       *repository.GormUnifiedUserRepository
	paymentRepo    *repository.GormUnifiedPaymentRepository
	commissionRepo *repository.GormCommissionRepository
	affiliateRepo  *repository.GormAffiliateRepository
	subRepo        *repository.GormSubAffiliateRepository
	rates          *CommissionRateTable
	settings       *SettingService
	ledger         *CommissionLedgerService
}

func setupCommissionTest(t *testing.T) *commissionTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:commission_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	env := &commissionTestEnv{
		db:             db,
		userRepo:       repository.NewUnifiedUserRepository(db),
		paymentRepo:    repository.NewUnifiedPaymentRepository(db),
		commissionRepo: repository.NewCommissionRepository(db),
		affiliateRepo:  repository.NewAffiliateRepository(db),
		subRepo:        repository.NewSubAffiliateRepository(db),
	}
	env.rates = NewCommissionRateTable(repository.NewCommissionLevelRepository(db), repository.NewSubscriptionRepository(db))
	env.settings = NewSettingService(repository.NewSettingRepository(db), CommissionDefaultSetting())
	env.ledger = env.newLedger(env.commissionRepo, env.subRepo)
	return env
}

func (e *commissionTestEnv) newLedger(commissionRepo repository.CommissionRepository, subRepo repository.SubAffiliateRepository) *CommissionLedgerService {
	return NewCommissionLedgerService(
		e.paymentRepo,
		commissionRepo,
		NewHierarchyResolver(subRepo, constants.CommissionDefaultMaxDepth),
		e.rates,
	)
}

func (e *commissionTestEnv) newSyncService() *PaymentSyncService {
	return NewPaymentSyncService(e.userRepo, e.paymentRepo, e.affiliateRepo, e.ledger, PaymentSyncOptions{StoreTimeout: 5 * time.Second})
}

func createTestAffiliate(t *testing.T, db *gorm.DB, id string, withdrawalDay int) *models.Affiliate {
	t.Helper()
	row := &models.Affiliate{
		ID:            id,
		AffiliateCode: strings.ToUpper("CODE" + id),
		Name:          "Affiliate " + id,
		Status:        constants.AffiliateStatusActive,
		WithdrawalDay: withdrawalDay,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	return row
}

func createTestEdge(t *testing.T, db *gorm.DB, parentAffiliateID, descendantID string, level int) {
	t.Helper()
	row := &models.SubAffiliate{
		ParentAffiliateID: parentAffiliateID,
		SubAffiliateID:    descendantID,
		Level:             level,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("create edge failed: %v", err)
	}
}

func createTestRate(t *testing.T, db *gorm.DB, planType string, level int, percentage string, active bool) {
	t.Helper()
	row := &models.ProductCommissionLevel{
		ProductID:  testProductID,
		PlanType:   planType,
		Level:      level,
		Percentage: models.MustMoney(percentage),
		IsActive:   true,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("create rate failed: %v", err)
	}
	if !active {
		if err := db.Model(row).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate rate failed: %v", err)
		}
	}
}

func createTestSubscription(t *testing.T, db *gorm.DB, userID string, free bool, status string) {
	t.Helper()
	plan := &models.Plan{
		ID:        "plan-" + userID + "-" + status,
		ProductID: testProductID,
		Name:      "Plan",
		Price:     models.MustMoney("97.00"),
		IsFree:    free,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("create plan failed: %v", err)
	}
	sub := &models.Subscription{
		UserID: userID,
		PlanID: plan.ID,
		Status: status,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("create subscription failed: %v", err)
	}
}

func createTestUnifiedUser(t *testing.T, db *gorm.DB, externalUserID string, affiliateID *string) *models.UnifiedUser {
	t.Helper()
	row := &models.UnifiedUser{
		ExternalUserID: externalUserID,
		ProductID:      testProductID,
		Email:          externalUserID + "@example.com",
		AffiliateID:    affiliateID,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("create unified user failed: %v", err)
	}
	return row
}

func createTestPayment(t *testing.T, db *gorm.DB, user *models.UnifiedUser, amount, billingReason string, paidAt time.Time, affiliateID *string) *models.UnifiedPayment {
	t.Helper()
	row := &models.UnifiedPayment{
		ProductID:      testProductID,
		UnifiedUserID:  user.ID,
		ExternalUserID: user.ExternalUserID,
		Amount:         models.MustMoney(amount),
		Currency:       constants.CurrencyDefault,
		BillingReason:  billingReason,
		Status:         constants.UnifiedPaymentStatusPaid,
		PaymentDate:    paidAt.UTC(),
		AffiliateID:    affiliateID,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	return row
}

func createTestPendingCommission(t *testing.T, db *gorm.DB, affiliateID, amount string, paidAt time.Time) *models.Commission {
	t.Helper()
	row := &models.Commission{
		AffiliateID:      affiliateID,
		ProductID:        testProductID,
		UnifiedPaymentID: fmt.Sprintf("pay-%d", time.Now().UnixNano()),
		UnifiedUserID:    "uu",
		Amount:           models.MustMoney(amount),
		Percentage:       models.MustMoney("10"),
		Level:            1,
		CommissionType:   constants.CommissionTypeRenewal,
		Status:           constants.CommissionStatusPending,
		PaymentDate:      paidAt.UTC(),
		ReferenceMonth:   time.Date(paidAt.Year(), paidAt.Month(), 1, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}
	return row
}

func loadTestCommissions(t *testing.T, db *gorm.DB, paymentID string) []models.Commission {
	t.Helper()
	var rows []models.Commission
	if err := db.Where("unified_payment_id = ?", paymentID).Order("level asc").Find(&rows).Error; err != nil {
		t.Fatalf("load commissions failed: %v", err)
	}
	return rows
}

func reloadTestPayment(t *testing.T, db *gorm.DB, id string) *models.UnifiedPayment {
	t.Helper()
	var row models.UnifiedPayment
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	return &row
}

func strPtr(v string) *string {
	return &v
}

var errTestStoreDown = errors.New("store timeout")

// failingCommissionRepo 对指定支付/佣金注入存储错误
type failingCommissionRepo struct {
	repository.CommissionRepository
	failPaymentID     string
	failCommissionIDs map[string]struct{}
}

func (f *failingCommissionRepo) WithTx(tx *gorm.DB) repository.CommissionRepository {
	return &failingCommissionRepo{
		CommissionRepository: f.CommissionRepository.WithTx(tx),
		failPaymentID:        f.failPaymentID,
		failCommissionIDs:    f.failCommissionIDs,
	}
}

func (f *failingCommissionRepo) CountByPayment(ctx context.Context, paymentID string) (int64, error) {
	if f.failPaymentID != "" && paymentID == f.failPaymentID {
		return 0, errTestStoreDown
	}
	return f.CommissionRepository.CountByPayment(ctx, paymentID)
}

func (f *failingCommissionRepo) MarkAvailable(ctx context.Context, ids []string, now time.Time) (int64, error) {
	for _, id := range ids {
		if _, ok := f.failCommissionIDs[id]; ok {
			return 0, errTestStoreDown
		}
	}
	return f.CommissionRepository.MarkAvailable(ctx, ids, now)
}

type failingSubAffiliateRepo struct{}

func (failingSubAffiliateRepo) ListAncestors(context.Context, string, int) ([]models.SubAffiliate, error) {
	return nil, errTestStoreDown
}

// blockingSubAffiliateRepo 阻塞直到 ctx 结束
type blockingSubAffiliateRepo struct{}

func (blockingSubAffiliateRepo) ListAncestors(ctx context.Context, _ string, _ int) ([]models.SubAffiliate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
