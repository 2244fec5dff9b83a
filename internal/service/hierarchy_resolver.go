package service

import (
	"context"
	"strings"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/repository"
)

// AffiliateEdge 一条推广关系（祖先推广者, 层级）
type AffiliateEdge struct {
	AffiliateID string `json:"affiliate_id"`
	Level       int    `json:"level"`
}

// HierarchyResolver 推广层级解析
type HierarchyResolver struct {
	repo     repository.SubAffiliateRepository
	maxDepth int
}

// NewHierarchyResolver 创建层级解析器
func NewHierarchyResolver(repo repository.SubAffiliateRepository, maxDepth int) *HierarchyResolver {
	if maxDepth <= 0 {
		maxDepth = constants.CommissionDefaultMaxDepth
	}
	return &HierarchyResolver{repo: repo, maxDepth: maxDepth}
}

// Resolve 返回下级的祖先链，层级从 1 升序，最多 maxDepth 层
// 空结果合法；存储失败返回 ErrLookupUnavailable
func (r *HierarchyResolver) Resolve(ctx context.Context, descendantID string) ([]AffiliateEdge, error) {
	rows, err := r.repo.ListAncestors(ctx, descendantID, r.maxDepth)
	if err != nil {
		return nil, lookupUnavailable("resolve hierarchy", err)
	}
	edges := make([]AffiliateEdge, 0, len(rows))
	seen := make(map[int]struct{}, len(rows))
	for _, row := range rows {
		if row.Level < 1 || row.Level > r.maxDepth {
			continue
		}
		if _, ok := seen[row.Level]; ok {
			continue
		}
		affiliateID := strings.TrimSpace(row.ParentAffiliateID)
		if affiliateID == "" {
			continue
		}
		seen[row.Level] = struct{}{}
		edges = append(edges, AffiliateEdge{AffiliateID: affiliateID, Level: row.Level})
	}
	return edges, nil
}

// ResolveForPayment 解析支付对应的推广链
// 层级表无记录且支付携带 affiliate_id 时，视为一条 level 1 关系
func (r *HierarchyResolver) ResolveForPayment(ctx context.Context, payment *models.UnifiedPayment) ([]AffiliateEdge, error) {
	if payment == nil {
		return []AffiliateEdge{}, nil
	}
	edges, err := r.Resolve(ctx, payment.ExternalUserID)
	if err != nil {
		return nil, err
	}
	if len(edges) > 0 {
		return edges, nil
	}
	if payment.AffiliateID != nil {
		if affiliateID := strings.TrimSpace(*payment.AffiliateID); affiliateID != "" {
			return []AffiliateEdge{{AffiliateID: affiliateID, Level: 1}}, nil
		}
	}
	return edges, nil
}
