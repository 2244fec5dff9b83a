package public

import (
	"errors"
	"net/http"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/queue"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// SyncUnifiedData 统一用户/支付同步
// POST /api/v1/sync/unified-data
func (h *Handler) SyncUnifiedData(c *gin.Context) {
	var req service.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondRaw(c, &service.ValidationError{Message: "invalid JSON body: " + err.Error()}, nil)
		return
	}

	result, err := h.PaymentSyncService.Sync(c.Request.Context(), req)
	if err != nil {
		extra := gin.H{}
		if errors.Is(err, service.ErrLookupUnavailable) && result != nil && result.Payment != nil {
			extra["payment"] = result.Payment
			extra["retry_enqueued"] = h.enqueuePaymentRetry(c, result.Payment.ID)
		}
		respondRaw(c, err, extra)
		return
	}

	if result.LedgerError != "" {
		requestLog(c).Warnw("sync_ledger_failed",
			"action", result.Action,
			"payment_id", result.Payment.ID,
			"error", result.LedgerError,
		)
	}
	c.JSON(http.StatusOK, result)
}

// enqueuePaymentRetry 存储不可达时交给异步任务重试
func (h *Handler) enqueuePaymentRetry(c *gin.Context, paymentID string) bool {
	if h.QueueClient == nil || !h.QueueClient.Enabled() {
		requestLog(c).Warnw("sync_retry_queue_disabled", "payment_id", paymentID)
		return false
	}
	delay := time.Duration(h.Config.Commission.RetryDelaySeconds) * time.Second
	if err := h.QueueClient.EnqueueProcessPayment(queue.ProcessPaymentPayload{PaymentID: paymentID}, delay); err != nil {
		requestLog(c).Errorw("sync_retry_enqueue_failed", "payment_id", paymentID, "error", err)
		return false
	}
	requestLog(c).Infow("sync_retry_enqueued", "payment_id", paymentID, "delay_seconds", int(delay.Seconds()))
	return true
}
