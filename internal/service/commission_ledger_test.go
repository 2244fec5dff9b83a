package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
)

func TestProcessPaymentAmountRoundsHalfUp(t *testing.T) {
	env := setupCommissionTest(t)
	createTestAffiliate(t, env.db, "aff-pro", 1)
	createTestSubscription(t, env.db, "aff-pro", false, constants.SubscriptionStatusActive)
	createTestRate(t, env.db, constants.AffiliatePlanPro, 1, "30", true)
	createTestRate(t, env.db, constants.AffiliatePlanFree, 1, "10", true)
	user := createTestUnifiedUser(t, env.db, "ext-1", nil)
	createTestEdge(t, env.db, "aff-pro", user.ExternalUserID, 1)
	payment := createTestPayment(t, env.db, user, "199.90", constants.BillingReasonSubscriptionCycle, time.Now(), nil)

	result, err := env.ledger.ProcessPayment(context.Background(), payment)
	if err != nil {
		t.Fatalf("process payment failed: %v", err)
	}
	if result.CommissionsCount != 1 || result.Created != 1 {
		t.Fatalf("want 1 commission, got %+v", result)
	}

	rows := loadTestCommissions(t, env.db, payment.ID)
	if len(rows) != 1 {
		t.Fatalf("want 1 row got %d", len(rows))
	}
	if rows[0].Amount.String() != "59.97" {
		t.Fatalf("amount want 59.97 got %s", rows[0].Amount.String())
	}
	if rows[0].Percentage.String() != "30.00" {
		t.Fatalf("percentage want 30.00 got %s", rows[0].Percentage.String())
	}
	if rows[0].CommissionType != constants.CommissionTypeRenewal {
		t.Fatalf("commission type want renovacao got %s", rows[0].CommissionType)
	}
	if rows[0].Status != constants.CommissionStatusPending {
		t.Fatalf("status want pending got %s", rows[0].Status)
	}
	paidAt := payment.PaymentDate.UTC()
	if rows[0].ReferenceMonth.Day() != 1 || rows[0].ReferenceMonth.Month() != paidAt.Month() {
		t.Fatalf("reference month should be first day of payment month, got %v", rows[0].ReferenceMonth)
	}
}

func TestProcessPaymentIsIdempotent(t *testing.T) {
	env := setupCommissionTest(t)
	createTestAffiliate(t, env.db, "aff-1", 1)
	createTestAffiliate(t, env.db, "aff-2", 1)
	createTestRate(t, env.db, constants.AffiliatePlanFree, 1, "20", true)
	createTestRate(t, env.db, constants.AffiliatePlanFree, 2, "5", true)
	user := createTestUnifiedUser(t, env.db, "ext-idem", nil)
	createTestEdge(t, env.db, "aff-1", user.ExternalUserID, 1)
	createTestEdge(t, env.db, "aff-2", user.ExternalUserID, 2)
	payment := createTestPayment(t, env.db, user, "100.00", constants.BillingReasonSubscriptionCreate, time.Now(), nil)

	if _, err := env.ledger.ProcessPayment(context.Background(), payment); err != nil {
		t.Fatalf("first process failed: %v", err)
	}
	first := loadTestCommissions(t, env.db, payment.ID)

	again := reloadTestPayment(t, env.db, payment.ID)
	result, err := env.ledger.ProcessPayment(context.Background(), again)
	if err != nil {
		t.Fatalf("second process failed: %v", err)
	}
	if !result.Existing || result.Created != 0 {
		t.Fatalf("second run should only see existing rows, got %+v", result)
	}

	// 直接重放层级写入，唯一键兜底
	if _, err := env.ledger.ProcessLevels(context.Background(), again); err != nil {
		t.Fatalf("replay levels failed: %v", err)
	}

	second := loadTestCommissions(t, env.db, payment.ID)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("want 2 rows before and after, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || !first[i].Amount.Equal(second[i].Amount.Decimal) {
			t.Fatalf("rows changed between runs: %+v vs %+v", first[i], second[i])
		}
	}
	stored := reloadTestPayment(t, env.db, payment.ID)
	if !stored.Processed || stored.CommissionsGenerated != 2 {
		t.Fatalf("tracking want processed with 2, got processed=%v count=%d", stored.Processed, stored.CommissionsGenerated)
	}
	if first[0].CommissionType != constants.CommissionTypeFirstSale {
		t.Fatalf("commission type want primeira_venda got %s", first[0].CommissionType)
	}
}

func TestProcessPaymentWithoutRateStillMarksProcessed(t *testing.T) {
	env := setupCommissionTest(t)
	createTestAffiliate(t, env.db, "aff-norate", 1)
	createTestRate(t, env.db, constants.AffiliatePlanFree, 1, "25", false)
	user := createTestUnifiedUser(t, env.db, "ext-norate", nil)
	createTestEdge(t, env.db, "aff-norate", user.ExternalUserID, 1)
	payment := createTestPayment(t, env.db, user, "80.00", constants.BillingReasonSubscriptionCycle, time.Now(), nil)

	result, err := env.ledger.ProcessPayment(context.Background(), payment)
	if err != nil {
		t.Fatalf("process payment failed: %v", err)
	}
	if result.CommissionsCount != 0 {
		t.Fatalf("want 0 commissions got %d", result.CommissionsCount)
	}
	stored := reloadTestPayment(t, env.db, payment.ID)
	if !stored.Processed || stored.ProcessedAt == nil || stored.CommissionsGenerated != 0 || stored.LastError != nil {
		t.Fatalf("payment should be processed with 0 commissions, got %+v", stored)
	}
}

func TestProcessPaymentFallsBackToDirectAffiliate(t *testing.T) {
	env := setupCommissionTest(t)
	createTestAffiliate(t, env.db, "aff-direct", 1)
	createTestRate(t, env.db, constants.AffiliatePlanFree, 1, "15", true)
	user := createTestUnifiedUser(t, env.db, "ext-direct", nil)
	payment := createTestPayment(t, env.db, user, "100.00", constants.BillingReasonOneTimePurchase, time.Now(), strPtr("aff-direct"))

	if _, err := env.ledger.ProcessPayment(context.Background(), payment); err != nil {
		t.Fatalf("process payment failed: %v", err)
	}
	rows := loadTestCommissions(t, env.db, payment.ID)
	if len(rows) != 1 {
		t.Fatalf("want 1 row got %d", len(rows))
	}
	if rows[0].AffiliateID != "aff-direct" || rows[0].Level != 1 {
		t.Fatalf("want level 1 for aff-direct, got %s level %d", rows[0].AffiliateID, rows[0].Level)
	}
	if rows[0].Amount.String() != "15.00" {
		t.Fatalf("amount want 15.00 got %s", rows[0].Amount.String())
	}
	if rows[0].CommissionType != constants.CommissionTypeOneTime {
		t.Fatalf("commission type want venda_unica got %s", rows[0].CommissionType)
	}
}

func TestProcessPaymentHierarchyWinsOverDirectAffiliate(t *testing.T) {
	env := setupCommissionTest(t)
	createTestAffiliate(t, env.db, "aff-edge", 1)
	createTestAffiliate(t, env.db, "aff-field", 1)
	createTestRate(t, env.db, constants.AffiliatePlanFree, 1, "10", true)
	user := createTestUnifiedUser(t, env.db, "ext-both", nil)
	createTestEdge(t, env.db, "aff-edge", user.ExternalUserID, 1)
	payment := createTestPayment(t, env.db, user, "50.00", constants.BillingReasonSubscriptionCycle, time.Now(), strPtr("aff-field"))

	if _, err := env.ledger.ProcessPayment(context.Background(), payment); err != nil {
		t.Fatalf("process payment failed: %v", err)
	}
	rows := loadTestCommissions(t, env.db, payment.ID)
	if len(rows) != 1 || rows[0].AffiliateID != "aff-edge" {
		t.Fatalf("hierarchy edge should win, got %+v", rows)
	}
}

func TestProcessPaymentTruncatesAtMaxDepth(t *testing.T) {
	env := setupCommissionTest(t)
	user := createTestUnifiedUser(t, env.db, "ext-deep", nil)
	for level := 1; level <= 4; level++ {
		id := "aff-l" + string(rune('0'+level))
		createTestAffiliate(t, env.db, id, 1)
		createTestEdge(t, env.db, id, user.ExternalUserID, level)
		createTestRate(t, env.db, constants.AffiliatePlanFree, level, "10", true)
	}
	payment := createTestPayment(t, env.db, user, "100.00", constants.BillingReasonSubscriptionCycle, time.Now(), nil)

	if _, err := env.ledger.ProcessPayment(context.Background(), payment); err != nil {
		t.Fatalf("process payment failed: %v", err)
	}
	rows := loadTestCommissions(t, env.db, payment.ID)
	if len(rows) != 3 {
		t.Fatalf("want 3 levels got %d", len(rows))
	}
	for i, row := range rows {
		if row.Level != i+1 {
			t.Fatalf("levels should ascend from 1, got %d at %d", row.Level, i)
		}
	}
}

func TestProcessPaymentLookupFailureRecordsLastError(t *testing.T) {
	env := setupCommissionTest(t)
	ledger := env.newLedger(env.commissionRepo, failingSubAffiliateRepo{})
	user := createTestUnifiedUser(t, env.db, "ext-down", nil)
	payment := createTestPayment(t, env.db, user, "100.00", constants.BillingReasonSubscriptionCycle, time.Now(), nil)

	_, err := ledger.ProcessPayment(context.Background(), payment)
	if !errors.Is(err, ErrLookupUnavailable) {
		t.Fatalf("want ErrLookupUnavailable got %v", err)
	}
	stored := reloadTestPayment(t, env.db, payment.ID)
	if stored.Processed {
		t.Fatalf("payment must stay unprocessed")
	}
	if stored.LastError == nil || *stored.LastError == "" {
		t.Fatalf("last_error should be recorded")
	}
}

func TestProcessPaymentRepairsTrackingWhenRowsExist(t *testing.T) {
	env := setupCommissionTest(t)
	createTestAffiliate(t, env.db, "aff-repair", 1)
	createTestRate(t, env.db, constants.AffiliatePlanFree, 1, "10", true)
	user := createTestUnifiedUser(t, env.db, "ext-repair", nil)
	createTestEdge(t, env.db, "aff-repair", user.ExternalUserID, 1)
	payment := createTestPayment(t, env.db, user, "100.00", constants.BillingReasonSubscriptionCycle, time.Now(), nil)

	if _, err := env.ledger.ProcessPayment(context.Background(), payment); err != nil {
		t.Fatalf("process payment failed: %v", err)
	}
	// 模拟写入佣金后、回写跟踪字段前崩溃
	if err := env.db.Exec("UPDATE unified_payments SET processed = ?, commissions_generated = 0, processed_at = NULL WHERE id = ?", false, payment.ID).Error; err != nil {
		t.Fatalf("reset tracking failed: %v", err)
	}

	stale := reloadTestPayment(t, env.db, payment.ID)
	result, err := env.ledger.ProcessPayment(context.Background(), stale)
	if err != nil {
		t.Fatalf("repair failed: %v", err)
	}
	if !result.Existing || result.WasProcessed {
		t.Fatalf("want existing rows on unprocessed payment, got %+v", result)
	}
	stored := reloadTestPayment(t, env.db, payment.ID)
	if !stored.Processed || stored.CommissionsGenerated != 1 || stored.ProcessedAt == nil {
		t.Fatalf("tracking should be repaired, got %+v", stored)
	}
	if rows := loadTestCommissions(t, env.db, payment.ID); len(rows) != 1 {
		t.Fatalf("repair must not add rows, got %d", len(rows))
	}
}

func TestPlanTypeClassification(t *testing.T) {
	env := setupCommissionTest(t)
	createTestSubscription(t, env.db, "aff-free-plan", true, constants.SubscriptionStatusActive)
	createTestSubscription(t, env.db, "aff-canceled", false, constants.SubscriptionStatusCanceled)
	createTestSubscription(t, env.db, "aff-trial", false, constants.SubscriptionStatusTrialing)

	cases := []struct {
		affiliateID string
		want        string
	}{
		{"aff-none", constants.AffiliatePlanFree},
		{"aff-free-plan", constants.AffiliatePlanFree},
		{"aff-canceled", constants.AffiliatePlanFree},
		{"aff-trial", constants.AffiliatePlanPro},
	}
	for _, tc := range cases {
		got, err := env.rates.PlanType(context.Background(), tc.affiliateID)
		if err != nil {
			t.Fatalf("plan type for %s failed: %v", tc.affiliateID, err)
		}
		if got != tc.want {
			t.Fatalf("plan type for %s want %s got %s", tc.affiliateID, tc.want, got)
		}
	}
}

func TestCommissionTypeForBillingReason(t *testing.T) {
	cases := map[string]string{
		constants.BillingReasonSubscriptionCreate: constants.CommissionTypeFirstSale,
		constants.BillingReasonOneTimePurchase:    constants.CommissionTypeOneTime,
		constants.BillingReasonSubscriptionCycle:  constants.CommissionTypeRenewal,
		"":                                        constants.CommissionTypeRenewal,
		"manual":                                  constants.CommissionTypeRenewal,
	}
	for reason, want := range cases {
		if got := CommissionTypeForBillingReason(reason); got != want {
			t.Fatalf("reason %q want %s got %s", reason, want, got)
		}
	}
}
