package shared

import (
	"errors"
	"net/http"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/cache"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/http/response"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/logger"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回统一错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// HTTPStatus 将业务错误映射为 HTTP 状态码
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case service.IsValidationError(err), errors.Is(err, service.ErrCommissionConfigInvalid):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPaymentNotFound), errors.Is(err, service.ErrUnifiedUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, cache.ErrJobLocked):
		return http.StatusConflict
	case errors.Is(err, service.ErrLookupUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondRaw 契约接口的错误响应：真实 HTTP 状态码 + {success:false,error}
func RespondRaw(c *gin.Context, err error, extra gin.H) {
	status := HTTPStatus(err)
	body := gin.H{
		"success": false,
		"error":   err.Error(),
	}
	for k, v := range extra {
		body[k] = v
	}
	if requestID := c.GetString("request_id"); requestID != "" {
		body["request_id"] = requestID
	}
	if status >= http.StatusInternalServerError {
		RequestLog(c).Errorw("handler_error", "status", status, "error", err)
	} else {
		RequestLog(c).Warnw("handler_rejected", "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, body)
}
