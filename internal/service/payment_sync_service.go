package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/logger"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/repository"

	"github.com/go-playground/validator/v10"
)

// SyncUserInput 外部产品上报的用户
type SyncUserInput struct {
	ExternalUserID string `json:"external_user_id" validate:"required,max=64"`
	ProductID      string `json:"product_id" validate:"required,max=64"`
	Email          string `json:"email" validate:"required,email,max=255"`
	Name           string `json:"name" validate:"omitempty,max=255"`
	Phone          string `json:"phone" validate:"omitempty,max=32"`
	CPF            string `json:"cpf" validate:"omitempty,max=20"`
	AffiliateCode  string `json:"affiliate_code" validate:"omitempty,max=32"`
	AffiliateID    string `json:"affiliate_id" validate:"omitempty,max=36"`
}

// SyncPaymentInput 外部产品上报的支付
type SyncPaymentInput struct {
	ExternalUserID    string                 `json:"external_user_id" validate:"required,max=64"`
	ProductID         string                 `json:"product_id" validate:"required,max=64"`
	PlanID            string                 `json:"plan_id" validate:"omitempty,max=64"`
	StripeInvoiceID   string                 `json:"stripe_invoice_id" validate:"omitempty,max=128"`
	Amount            *models.Money          `json:"amount" validate:"required"`
	Currency          string                 `json:"currency" validate:"omitempty,len=3"`
	BillingReason     string                 `json:"billing_reason" validate:"omitempty,max=32"`
	Status            string                 `json:"status" validate:"omitempty,oneof=paid failed refunded"`
	PaymentDate       *time.Time             `json:"payment_date"`
	AffiliateID       string                 `json:"affiliate_id" validate:"omitempty,max=36"`
	AffiliateCouponID string                 `json:"affiliate_coupon_id" validate:"omitempty,max=64"`
	Environment       string                 `json:"environment" validate:"omitempty,max=16"`
	Metadata          map[string]interface{} `json:"metadata"`
}

// SyncRequest 统一数据同步请求
type SyncRequest struct {
	Action  string            `json:"action" validate:"required,oneof=sync_user sync_payment sync_both"`
	User    *SyncUserInput    `json:"user"`
	Payment *SyncPaymentInput `json:"payment"`
}

// SyncResult 同步结果
type SyncResult struct {
	Success     bool                   `json:"success"`
	Action      string                 `json:"action"`
	User        *models.UnifiedUser    `json:"user,omitempty"`
	Payment     *models.UnifiedPayment `json:"payment,omitempty"`
	Commissions *LedgerResult          `json:"commissions,omitempty"`
	LedgerError string                 `json:"ledger_error,omitempty"`
}

// PaymentSyncService 统一用户/支付同步入口，唯一的账本触发点
type PaymentSyncService struct {
	userRepo      repository.UnifiedUserRepository
	paymentRepo   repository.UnifiedPaymentRepository
	affiliateRepo repository.AffiliateRepository
	ledger        *CommissionLedgerService
	validate      *validator.Validate
	opts          PaymentSyncOptions
	now           func() time.Time
}

// PaymentSyncOptions 同步服务参数
type PaymentSyncOptions struct {
	// StoreTimeout 单步存储调用（用户、支付、账本）的超时
	StoreTimeout time.Duration
}

// NewPaymentSyncService 创建同步服务
func NewPaymentSyncService(
	userRepo repository.UnifiedUserRepository,
	paymentRepo repository.UnifiedPaymentRepository,
	affiliateRepo repository.AffiliateRepository,
	ledger *CommissionLedgerService,
	opts PaymentSyncOptions,
) *PaymentSyncService {
	return &PaymentSyncService{
		userRepo:      userRepo,
		paymentRepo:   paymentRepo,
		affiliateRepo: affiliateRepo,
		ledger:        ledger,
		validate:      newRequestValidator(),
		opts:          opts,
		now:           time.Now,
	}
}

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Sync 处理一次同步请求
// 校验失败返回 ValidationError；账本存储不可达返回 ErrLookupUnavailable（附带已写入的记录）
func (s *PaymentSyncService) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	result := &SyncResult{Action: req.Action}
	if req.Action == constants.SyncActionUser || req.Action == constants.SyncActionBoth {
		storeCtx, cancel := s.storeContext(ctx)
		user, err := s.upsertUser(storeCtx, req.User)
		cancel()
		if err != nil {
			return nil, timeoutAsLookup("sync unified user", err)
		}
		result.User = user
	}

	if req.Action == constants.SyncActionPayment || req.Action == constants.SyncActionBoth {
		storeCtx, cancel := s.storeContext(ctx)
		payment, trigger, err := s.upsertPayment(storeCtx, req.Payment)
		cancel()
		if err != nil {
			return nil, timeoutAsLookup("sync unified payment", err)
		}
		result.Payment = payment
		if trigger {
			ledgerCtx, cancel := s.storeContext(ctx)
			ledgerResult, err := s.ledger.ProcessPayment(ledgerCtx, payment)
			cancel()
			if err != nil {
				err = timeoutAsLookup("process payment", err)
				result.LedgerError = err.Error()
				if errors.Is(err, ErrLookupUnavailable) {
					return result, err
				}
			} else {
				result.Commissions = ledgerResult
			}
		}
	}

	result.Success = true
	return result, nil
}

func (s *PaymentSyncService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.StoreTimeout)
}

// validateRequest 嵌套的 user/payment 非空时由 validator 一并校验
func (s *PaymentSyncService) validateRequest(req SyncRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return toValidationError(err)
	}
	switch req.Action {
	case constants.SyncActionUser:
		if req.User == nil {
			return newValidationError("user", "is required for "+req.Action)
		}
	case constants.SyncActionPayment:
		if req.Payment == nil {
			return newValidationError("payment", "is required for "+req.Action)
		}
	case constants.SyncActionBoth:
		if req.User == nil {
			return newValidationError("user", "is required for "+req.Action)
		}
		if req.Payment == nil {
			return newValidationError("payment", "is required for "+req.Action)
		}
	}
	if req.Payment != nil && req.Payment.Amount.Decimal.IsNegative() {
		return newValidationError("amount", "must not be negative")
	}
	return nil
}

func toValidationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		switch fe.Tag() {
		case "required":
			return newValidationError(fe.Field(), "is required")
		case "oneof":
			return newValidationError(fe.Field(), "must be one of: "+fe.Param())
		case "email":
			return newValidationError(fe.Field(), "must be a valid email")
		default:
			return newValidationError(fe.Field(), fmt.Sprintf("failed %s validation", fe.Tag()))
		}
	}
	return newValidationError("", err.Error())
}

func (s *PaymentSyncService) upsertUser(ctx context.Context, input *SyncUserInput) (*models.UnifiedUser, error) {
	now := s.now().UTC()
	affiliateID, err := s.resolveUserAffiliate(ctx, input)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByExternal(ctx, input.ExternalUserID, input.ProductID)
	if err != nil {
		return nil, lookupUnavailable("load unified user", err)
	}
	if existing == nil {
		user := &models.UnifiedUser{
			ExternalUserID: strings.TrimSpace(input.ExternalUserID),
			ProductID:      strings.TrimSpace(input.ProductID),
			Email:          strings.TrimSpace(input.Email),
			Name:           strings.TrimSpace(input.Name),
			Phone:          strings.TrimSpace(input.Phone),
			CPF:            strings.TrimSpace(input.CPF),
			AffiliateID:    affiliateID,
			AffiliateCode:  strings.ToUpper(strings.TrimSpace(input.AffiliateCode)),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		created, err := s.userRepo.CreateIfAbsent(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("create unified user: %w", err)
		}
		if created {
			logger.Infow("unified_user_created",
				"unified_user_id", user.ID,
				"external_user_id", user.ExternalUserID,
				"product_id", user.ProductID,
			)
			return user, nil
		}
		// 并发同步已创建，转为更新
		existing, err = s.userRepo.GetByExternal(ctx, input.ExternalUserID, input.ProductID)
		if err != nil {
			return nil, lookupUnavailable("load unified user", err)
		}
		if existing == nil {
			return nil, ErrUnifiedUserNotFound
		}
	}

	existing.Email = strings.TrimSpace(input.Email)
	if name := strings.TrimSpace(input.Name); name != "" {
		existing.Name = name
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		existing.Phone = phone
	}
	if cpf := strings.TrimSpace(input.CPF); cpf != "" {
		existing.CPF = cpf
	}
	if affiliateID != nil {
		existing.AffiliateID = affiliateID
	}
	if code := strings.ToUpper(strings.TrimSpace(input.AffiliateCode)); code != "" {
		existing.AffiliateCode = code
	}
	existing.UpdatedAt = now
	if err := s.userRepo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update unified user: %w", err)
	}
	return existing, nil
}

// resolveUserAffiliate affiliate_id 优先，否则按推荐码查找
func (s *PaymentSyncService) resolveUserAffiliate(ctx context.Context, input *SyncUserInput) (*string, error) {
	if id := strings.TrimSpace(input.AffiliateID); id != "" {
		return &id, nil
	}
	code := strings.TrimSpace(input.AffiliateCode)
	if code == "" || s.affiliateRepo == nil {
		return nil, nil
	}
	affiliate, err := s.affiliateRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, lookupUnavailable("resolve affiliate code", err)
	}
	if affiliate == nil {
		logger.Warnw("unified_user_affiliate_code_unknown", "affiliate_code", code)
		return nil, nil
	}
	id := affiliate.ID
	return &id, nil
}

// upsertPayment 返回支付以及是否需要触发账本
func (s *PaymentSyncService) upsertPayment(ctx context.Context, input *SyncPaymentInput) (*models.UnifiedPayment, bool, error) {
	user, err := s.userRepo.GetByExternal(ctx, input.ExternalUserID, input.ProductID)
	if err != nil {
		return nil, false, lookupUnavailable("load unified user", err)
	}
	if user == nil {
		return nil, false, newValidationError("external_user_id", "unified user not found, sync the user first")
	}

	now := s.now().UTC()
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = constants.UnifiedPaymentStatusPaid
	}

	invoiceID := strings.TrimSpace(input.StripeInvoiceID)
	if invoiceID != "" {
		existing, err := s.paymentRepo.GetByInvoice(ctx, invoiceID, input.ProductID)
		if err != nil {
			return nil, false, lookupUnavailable("load unified payment", err)
		}
		if existing != nil {
			return s.resyncPayment(ctx, existing, status, input.Metadata, now)
		}
	}

	payment := &models.UnifiedPayment{
		ProductID:         strings.TrimSpace(input.ProductID),
		UnifiedUserID:     user.ID,
		ExternalUserID:    user.ExternalUserID,
		PlanID:            strings.TrimSpace(input.PlanID),
		Amount:            models.NewMoneyFromDecimal(input.Amount.Decimal),
		Currency:          strings.ToUpper(strings.TrimSpace(input.Currency)),
		BillingReason:     strings.TrimSpace(input.BillingReason),
		Status:            status,
		PaymentDate:       now,
		AffiliateCouponID: strings.TrimSpace(input.AffiliateCouponID),
		Environment:       strings.TrimSpace(input.Environment),
		Metadata:          models.JSON(input.Metadata),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if invoiceID != "" {
		payment.StripeInvoiceID = &invoiceID
	}
	if payment.Currency == "" {
		payment.Currency = constants.CurrencyDefault
	}
	if input.PaymentDate != nil && !input.PaymentDate.IsZero() {
		payment.PaymentDate = input.PaymentDate.UTC()
	}
	if affiliateID := strings.TrimSpace(input.AffiliateID); affiliateID != "" {
		payment.AffiliateID = &affiliateID
	} else if user.AffiliateID != nil && strings.TrimSpace(*user.AffiliateID) != "" {
		inherited := *user.AffiliateID
		payment.AffiliateID = &inherited
	}

	created, err := s.paymentRepo.CreateIfAbsent(ctx, payment)
	if err != nil {
		return nil, false, fmt.Errorf("create unified payment: %w", err)
	}
	if !created {
		// 并发同步同一账单
		existing, err := s.paymentRepo.GetByInvoice(ctx, invoiceID, input.ProductID)
		if err != nil {
			return nil, false, lookupUnavailable("load unified payment", err)
		}
		if existing == nil {
			return nil, false, ErrPaymentNotFound
		}
		return s.resyncPayment(ctx, existing, status, input.Metadata, now)
	}

	logger.Infow("unified_payment_created",
		"payment_id", payment.ID,
		"product_id", payment.ProductID,
		"unified_user_id", payment.UnifiedUserID,
		"amount", payment.Amount.String(),
		"status", payment.Status,
	)
	return payment, payment.Status == constants.UnifiedPaymentStatusPaid, nil
}

// resyncPayment 重复同步只更新状态与附加数据，金额与身份字段不变
func (s *PaymentSyncService) resyncPayment(ctx context.Context, existing *models.UnifiedPayment, status string, metadata map[string]interface{}, now time.Time) (*models.UnifiedPayment, bool, error) {
	var meta models.JSON
	if metadata != nil {
		meta = models.JSON(metadata)
	}
	if err := s.paymentRepo.UpdateSyncFields(ctx, existing.ID, status, meta, now); err != nil {
		return nil, false, fmt.Errorf("update unified payment: %w", err)
	}
	existing.Status = status
	if meta != nil {
		existing.Metadata = meta
	}
	existing.UpdatedAt = now
	trigger := existing.Status == constants.UnifiedPaymentStatusPaid && !existing.Processed
	return existing, trigger, nil
}
