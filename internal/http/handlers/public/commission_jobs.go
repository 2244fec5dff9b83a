package public

import (
	"errors"
	"io"
	"net/http"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// ReprocessCommissions 补偿缺失佣金
// POST /api/v1/commissions/reprocess
func (h *Handler) ReprocessCommissions(c *gin.Context) {
	var input service.ReprocessInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		respondRaw(c, &service.ValidationError{Message: "invalid JSON body: " + err.Error()}, nil)
		return
	}

	report, err := h.RunReconcile(c.Request.Context(), input)
	if err != nil && !errors.Is(err, service.ErrPartialFailure) {
		respondRaw(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ProcessCommissionStatus 执行 pending -> available 结算
// POST /api/v1/commissions/process-status
func (h *Handler) ProcessCommissionStatus(c *gin.Context) {
	report, err := h.RunMaturation(c.Request.Context())
	if err != nil && !errors.Is(err, service.ErrPartialFailure) {
		respondRaw(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, report)
}
