package admin

import "github.com/agendasuperapi/renda-recorrente2-sub004/internal/provider"

// Handler 后台查询/配置接口处理器入口
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
