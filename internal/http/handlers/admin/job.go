package admin

import (
	"errors"
	"io"
	"strings"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/http/response"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/queue"

	"github.com/gin-gonic/gin"
)

const jobTriggerManual = "manual"

// EnqueueMaturationJob 手动触发结算任务，由 worker 异步执行
// POST /api/v1/jobs/maturation
func (h *Handler) EnqueueMaturationJob(c *gin.Context) {
	if !h.QueueClient.Enabled() {
		respondError(c, response.CodeServiceUnavailable, "queue is disabled", nil)
		return
	}
	if err := h.QueueClient.EnqueueMaturation(queue.JobTriggerPayload{Trigger: jobTriggerManual}); err != nil {
		respondError(c, response.CodeServiceUnavailable, "failed to enqueue maturation", err)
		return
	}
	response.SuccessWithMsg(c, "enqueued", gin.H{"task": queue.TaskMaturation})
}

// EnqueueReconcileJob 手动触发补偿任务
// POST /api/v1/jobs/reconcile
func (h *Handler) EnqueueReconcileJob(c *gin.Context) {
	payload := queue.ReconcilePayload{ProcessAllPending: true}
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid JSON body")
		return
	}
	ids := make([]string, 0, len(payload.PaymentIDs))
	for _, id := range payload.PaymentIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	payload.PaymentIDs = ids
	if len(ids) == 0 && !payload.ProcessAllPending {
		response.BadRequest(c, "provide payment_ids or process_all_pending")
		return
	}
	payload.Trigger = jobTriggerManual

	if !h.QueueClient.Enabled() {
		respondError(c, response.CodeServiceUnavailable, "queue is disabled", nil)
		return
	}
	if err := h.QueueClient.EnqueueReconcile(payload); err != nil {
		respondError(c, response.CodeServiceUnavailable, "failed to enqueue reconcile", err)
		return
	}
	response.SuccessWithMsg(c, "enqueued", gin.H{
		"task":        queue.TaskReconcile,
		"payment_ids": payload.PaymentIDs,
	})
}
