package public

import (
	handlershared "github.com/agendasuperapi/renda-recorrente2-sub004/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondRaw(c *gin.Context, err error, extra gin.H) {
	handlershared.RespondRaw(c, err, extra)
}
