package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"
)

func moneyPtr(raw string) *models.Money {
	m := models.MustMoney(raw)
	return &m
}

func TestSyncEndToEndCreatesLevelOneCommission(t *testing.T) {
	env := setupCommissionTest(t)
	createTestAffiliate(t, env.db, "A1", 1)
	createTestRate(t, env.db, constants.AffiliatePlanFree, 1, "40", true)
	svc := env.newSyncService()
	ctx := context.Background()

	userResult, err := svc.Sync(ctx, SyncRequest{
		Action: constants.SyncActionUser,
		User: &SyncUserInput{
			ExternalUserID: "U1",
			ProductID:      testProductID,
			Email:          "u1@example.com",
			AffiliateID:    "A1",
		},
	})
	if err != nil {
		t.Fatalf("sync user failed: %v", err)
	}
	if userResult.User == nil || userResult.User.AffiliateID == nil || *userResult.User.AffiliateID != "A1" {
		t.Fatalf("user should carry affiliate A1, got %+v", userResult.User)
	}

	paymentResult, err := svc.Sync(ctx, SyncRequest{
		Action: constants.SyncActionPayment,
		Payment: &SyncPaymentInput{
			ExternalUserID:  "U1",
			ProductID:       testProductID,
			StripeInvoiceID: "in_e2e",
			Amount:          moneyPtr("100.00"),
			BillingReason:   constants.BillingReasonSubscriptionCreate,
		},
	})
	if err != nil {
		t.Fatalf("sync payment failed: %v", err)
	}
	if paymentResult.Payment == nil {
		t.Fatalf("payment should be echoed")
	}
	if paymentResult.Commissions == nil || paymentResult.Commissions.CommissionsCount != 1 {
		t.Fatalf("want 1 commission, got %+v", paymentResult.Commissions)
	}

	rows := loadTestCommissions(t, env.db, paymentResult.Payment.ID)
	if len(rows) != 1 {
		t.Fatalf("want exactly 1 commission got %d", len(rows))
	}
	row := rows[0]
	if row.AffiliateID != "A1" || row.Level != 1 {
		t.Fatalf("want A1 level 1, got %s level %d", row.AffiliateID, row.Level)
	}
	if row.CommissionType != constants.CommissionTypeFirstSale {
		t.Fatalf("want primeira_venda got %s", row.CommissionType)
	}
	if row.Status != constants.CommissionStatusPending {
		t.Fatalf("want pending got %s", row.Status)
	}
	if row.Amount.String() != "40.00" {
		t.Fatalf("want 40.00 got %s", row.Amount.String())
	}
	if row.UnifiedUserID != userResult.User.ID {
		t.Fatalf("commission should reference unified user %s, got %s", userResult.User.ID, row.UnifiedUserID)
	}
}

func TestSyncResendDoesNotDuplicateOrMutateAmount(t *testing.T) {
	env := setupCommissionTest(t)
	createTestAffiliate(t, env.db, "A2", 1)
	createTestRate(t, env.db, constants.AffiliatePlanFree, 1, "10", true)
	svc := env.newSyncService()
	ctx := context.Background()

	req := SyncRequest{
		Action: constants.SyncActionBoth,
		User: &SyncUserInput{
			ExternalUserID: "U2",
			ProductID:      testProductID,
			Email:          "u2@example.com",
			AffiliateID:    "A2",
		},
		Payment: &SyncPaymentInput{
			ExternalUserID:  "U2",
			ProductID:       testProductID,
			StripeInvoiceID: "in_resend",
			Amount:          moneyPtr("50.00"),
		},
	}
	first, err := svc.Sync(ctx, req)
	if err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	req.Payment.Amount = moneyPtr("999.00")
	second, err := svc.Sync(ctx, req)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if second.Payment.ID != first.Payment.ID {
		t.Fatalf("resend should hit the same payment")
	}
	if second.Payment.Amount.String() != "50.00" {
		t.Fatalf("amount must not change, got %s", second.Payment.Amount.String())
	}
	if rows := loadTestCommissions(t, env.db, first.Payment.ID); len(rows) != 1 {
		t.Fatalf("want 1 commission after resend got %d", len(rows))
	}
}

func TestSyncResolvesAffiliateCode(t *testing.T) {
	env := setupCommissionTest(t)
	affiliate := createTestAffiliate(t, env.db, "A3", 1)
	svc := env.newSyncService()

	result, err := svc.Sync(context.Background(), SyncRequest{
		Action: constants.SyncActionUser,
		User: &SyncUserInput{
			ExternalUserID: "U3",
			ProductID:      testProductID,
			Email:          "u3@example.com",
			AffiliateCode:  affiliate.AffiliateCode,
		},
	})
	if err != nil {
		t.Fatalf("sync user failed: %v", err)
	}
	if result.User.AffiliateID == nil || *result.User.AffiliateID != "A3" {
		t.Fatalf("affiliate code should resolve to A3, got %+v", result.User.AffiliateID)
	}
}

func TestSyncNonPaidPaymentDoesNotTriggerLedger(t *testing.T) {
	env := setupCommissionTest(t)
	createTestAffiliate(t, env.db, "A4", 1)
	createTestRate(t, env.db, constants.AffiliatePlanFree, 1, "10", true)
	createTestUnifiedUser(t, env.db, "U4", strPtr("A4"))
	svc := env.newSyncService()

	result, err := svc.Sync(context.Background(), SyncRequest{
		Action: constants.SyncActionPayment,
		Payment: &SyncPaymentInput{
			ExternalUserID:  "U4",
			ProductID:       testProductID,
			StripeInvoiceID: "in_failed",
			Amount:          moneyPtr("10.00"),
			Status:          constants.UnifiedPaymentStatusFailed,
		},
	})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.Commissions != nil {
		t.Fatalf("failed payment must not produce commissions")
	}
	if rows := loadTestCommissions(t, env.db, result.Payment.ID); len(rows) != 0 {
		t.Fatalf("want 0 rows got %d", len(rows))
	}
}

func TestSyncValidationErrors(t *testing.T) {
	env := setupCommissionTest(t)
	svc := env.newSyncService()

	cases := []struct {
		name  string
		req   SyncRequest
		field string
	}{
		{
			name:  "missing action",
			req:   SyncRequest{},
			field: "action",
		},
		{
			name:  "unknown action",
			req:   SyncRequest{Action: "sync_everything"},
			field: "action",
		},
		{
			name:  "sync user without user",
			req:   SyncRequest{Action: constants.SyncActionUser},
			field: "user",
		},
		{
			name: "user without email",
			req: SyncRequest{Action: constants.SyncActionUser, User: &SyncUserInput{
				ExternalUserID: "U9",
				ProductID:      testProductID,
			}},
			field: "email",
		},
		{
			name: "payment without amount",
			req: SyncRequest{Action: constants.SyncActionPayment, Payment: &SyncPaymentInput{
				ExternalUserID: "U9",
				ProductID:      testProductID,
			}},
			field: "amount",
		},
		{
			name: "payment for unknown user",
			req: SyncRequest{Action: constants.SyncActionPayment, Payment: &SyncPaymentInput{
				ExternalUserID: "nobody",
				ProductID:      testProductID,
				Amount:         moneyPtr("10.00"),
			}},
			field: "external_user_id",
		},
	}
	for _, tc := range cases {
		_, err := svc.Sync(context.Background(), tc.req)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("%s: want ValidationError got %v", tc.name, err)
		}
		if vErr.Field != tc.field {
			t.Fatalf("%s: want field %s got %s", tc.name, tc.field, vErr.Field)
		}
	}
}

func TestSyncPaymentInheritsUserAffiliate(t *testing.T) {
	env := setupCommissionTest(t)
	createTestAffiliate(t, env.db, "A5", 1)
	createTestUnifiedUser(t, env.db, "U5", strPtr("A5"))
	svc := env.newSyncService()

	result, err := svc.Sync(context.Background(), SyncRequest{
		Action: constants.SyncActionPayment,
		Payment: &SyncPaymentInput{
			ExternalUserID: "U5",
			ProductID:      testProductID,
			Amount:         moneyPtr("20.00"),
		},
	})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.Payment.AffiliateID == nil || *result.Payment.AffiliateID != "A5" {
		t.Fatalf("payment should inherit user affiliate, got %+v", result.Payment.AffiliateID)
	}
	if result.Payment.Currency != constants.CurrencyDefault {
		t.Fatalf("currency should default to BRL, got %s", result.Payment.Currency)
	}
}

func syncLookupFailureRequest(invoiceID string) SyncRequest {
	return SyncRequest{
		Action: constants.SyncActionPayment,
		Payment: &SyncPaymentInput{
			ExternalUserID:  "U-lookup",
			ProductID:       testProductID,
			StripeInvoiceID: invoiceID,
			Amount:          moneyPtr("100.00"),
			BillingReason:   constants.BillingReasonSubscriptionCycle,
		},
	}
}

func TestSyncLedgerLookupFailurePersistsLastError(t *testing.T) {
	env := setupCommissionTest(t)
	createTestUnifiedUser(t, env.db, "U-lookup", strPtr("A1"))
	ledger := env.newLedger(env.commissionRepo, failingSubAffiliateRepo{})
	svc := NewPaymentSyncService(env.userRepo, env.paymentRepo, env.affiliateRepo, ledger, PaymentSyncOptions{StoreTimeout: 5 * time.Second})

	result, err := svc.Sync(context.Background(), syncLookupFailureRequest("in_lookup"))
	if !errors.Is(err, ErrLookupUnavailable) {
		t.Fatalf("want ErrLookupUnavailable, got %v", err)
	}
	if result == nil || result.Payment == nil {
		t.Fatalf("stored payment should be returned for the retry, got %+v", result)
	}
	if result.Success {
		t.Fatalf("result should not be marked successful")
	}

	stored := reloadTestPayment(t, env.db, result.Payment.ID)
	if stored.Processed {
		t.Fatalf("payment should stay unprocessed")
	}
	if stored.LastError == nil || !strings.Contains(*stored.LastError, errTestStoreDown.Error()) {
		t.Fatalf("last_error should be persisted, got %v", stored.LastError)
	}
	if rows := loadTestCommissions(t, env.db, stored.ID); len(rows) != 0 {
		t.Fatalf("no commission should be written, got %d", len(rows))
	}
}

func TestSyncLedgerStoreTimeoutIsRetryable(t *testing.T) {
	env := setupCommissionTest(t)
	createTestUnifiedUser(t, env.db, "U-lookup", strPtr("A1"))
	ledger := env.newLedger(env.commissionRepo, blockingSubAffiliateRepo{})
	svc := NewPaymentSyncService(env.userRepo, env.paymentRepo, env.affiliateRepo, ledger, PaymentSyncOptions{StoreTimeout: 50 * time.Millisecond})

	type syncOutcome struct {
		result *SyncResult
		err    error
	}
	done := make(chan syncOutcome, 1)
	go func() {
		result, err := svc.Sync(context.Background(), syncLookupFailureRequest("in_hang"))
		done <- syncOutcome{result: result, err: err}
	}()

	select {
	case outcome := <-done:
		if !errors.Is(outcome.err, ErrLookupUnavailable) {
			t.Fatalf("want ErrLookupUnavailable, got %v", outcome.err)
		}
		if !errors.Is(outcome.err, context.DeadlineExceeded) {
			t.Fatalf("want deadline exceeded in chain, got %v", outcome.err)
		}
		if outcome.result == nil || outcome.result.Payment == nil {
			t.Fatalf("stored payment should be returned, got %+v", outcome.result)
		}
		stored := reloadTestPayment(t, env.db, outcome.result.Payment.ID)
		if stored.Processed || stored.LastError == nil {
			t.Fatalf("timeout should be recorded as last_error, got processed=%v last_error=%v", stored.Processed, stored.LastError)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("sync did not honour the store timeout")
	}
}

func TestTimeoutAsLookup(t *testing.T) {
	if err := timeoutAsLookup("op", nil); err != nil {
		t.Fatalf("nil should stay nil, got %v", err)
	}
	plain := errors.New("boom")
	if err := timeoutAsLookup("op", plain); err != plain {
		t.Fatalf("non-timeout error should pass through, got %v", err)
	}
	wrapped := timeoutAsLookup("op", context.DeadlineExceeded)
	if !errors.Is(wrapped, ErrLookupUnavailable) || !errors.Is(wrapped, context.DeadlineExceeded) {
		t.Fatalf("deadline should become lookup unavailable, got %v", wrapped)
	}
}
