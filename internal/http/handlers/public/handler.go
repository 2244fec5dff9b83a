package public

import "github.com/agendasuperapi/renda-recorrente2-sub004/internal/provider"

// Handler 外部产品调用的契约接口处理器
// 说明：请求/响应 JSON 字段为对外契约，不使用统一响应包装。
type Handler struct {
	*provider.Container
}

// New 创建契约接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
