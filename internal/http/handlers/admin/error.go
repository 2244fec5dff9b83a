package admin

import (
	"errors"

	handlershared "github.com/agendasuperapi/renda-recorrente2-sub004/internal/http/handlers/shared"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/http/response"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// respondServiceError 按业务错误类型选择响应码
func respondServiceError(c *gin.Context, fallbackMsg string, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondError(c, response.CodeBadRequest, vErr.Error(), nil)
	case errors.Is(err, service.ErrCommissionConfigInvalid):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrPaymentNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrLookupUnavailable):
		respondError(c, response.CodeServiceUnavailable, "store unavailable, retry later", err)
	default:
		respondError(c, response.CodeInternal, fallbackMsg, err)
	}
}
