package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/agendasuperapi/renda-recorrente2-sub004/internal/http/handlers/shared"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/http/response"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListCommissions 佣金列表
// GET /api/v1/commissions
func (h *Handler) ListCommissions(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "created_from must be RFC3339", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "created_to must be RFC3339", err)
		return
	}

	items, total, err := h.CommissionQueryService.ListCommissions(c.Request.Context(), repository.CommissionListFilter{
		Page:             page,
		PageSize:         pageSize,
		AffiliateID:      strings.TrimSpace(c.Query("affiliate_id")),
		ProductID:        strings.TrimSpace(c.Query("product_id")),
		UnifiedPaymentID: strings.TrimSpace(c.Query("payment_id")),
		Status:           strings.TrimSpace(c.Query("status")),
		CreatedFrom:      createdFrom,
		CreatedTo:        createdTo,
	})
	if err != nil {
		respondServiceError(c, "failed to list commissions", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// ListPayments 统一支付列表
// GET /api/v1/payments
func (h *Handler) ListPayments(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)

	processed, err := parseBoolNullable(strings.TrimSpace(c.Query("processed")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "processed must be a boolean", err)
		return
	}
	hasError, err := parseBoolNullable(strings.TrimSpace(c.Query("has_error")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "has_error must be a boolean", err)
		return
	}

	items, total, err := h.CommissionQueryService.ListPayments(c.Request.Context(), repository.UnifiedPaymentListFilter{
		Page:      page,
		PageSize:  pageSize,
		ProductID: strings.TrimSpace(c.Query("product_id")),
		Processed: processed,
		HasError:  hasError,
	})
	if err != nil {
		respondServiceError(c, "failed to list payments", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetPaymentDetail 支付详情及各层佣金
// GET /api/v1/payments/:id
func (h *Handler) GetPaymentDetail(c *gin.Context) {
	detail, err := h.CommissionQueryService.GetPaymentDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, "failed to load payment", err)
		return
	}
	response.Success(c, detail)
}

// ListProductCommissionLevels 产品分级比例配置
// GET /api/v1/products/:id/commission-levels
func (h *Handler) ListProductCommissionLevels(c *gin.Context) {
	rows, err := h.CommissionRateTable.ListLevels(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, "failed to list commission levels", err)
		return
	}
	response.Success(c, rows)
}

// GetAffiliateBalance 推广者佣金余额
// GET /api/v1/affiliates/:id/balance
func (h *Handler) GetAffiliateBalance(c *gin.Context) {
	balance, err := h.CommissionQueryService.GetAffiliateBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, "failed to load balance", err)
		return
	}
	response.Success(c, balance)
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	utc := parsed.UTC()
	return &utc, nil
}

func parseBoolNullable(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
