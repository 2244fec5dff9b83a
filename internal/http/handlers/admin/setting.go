package admin

import (
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/cache"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/http/response"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	commissionSettingCacheKey = "setting:commission"
	commissionSettingCacheTTL = 60 * time.Second
)

// GetCommissionSetting 获取佣金结算配置
// GET /api/v1/settings/commission
func (h *Handler) GetCommissionSetting(c *gin.Context) {
	var cached service.CommissionSetting
	if hit, err := cache.GetJSON(c.Request.Context(), commissionSettingCacheKey, &cached); err == nil && hit {
		response.Success(c, cached)
		return
	}

	setting, err := h.SettingService.GetCommissionSetting(c.Request.Context())
	if err != nil {
		respondServiceError(c, "failed to load commission setting", err)
		return
	}
	_ = cache.SetJSON(c.Request.Context(), commissionSettingCacheKey, setting, commissionSettingCacheTTL)
	response.Success(c, setting)
}

// UpdateCommissionSetting 更新佣金结算配置
// PUT /api/v1/settings/commission
func (h *Handler) UpdateCommissionSetting(c *gin.Context) {
	var req service.CommissionSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid JSON body", err)
		return
	}

	updated, err := h.SettingService.UpdateCommissionSetting(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, "failed to save commission setting", err)
		return
	}
	_ = cache.Del(c.Request.Context(), commissionSettingCacheKey)
	response.Success(c, updated)
}
