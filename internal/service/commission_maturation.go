package service

import (
	"context"
	"sort"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/logger"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// MaturationDetail 单个推广者的结算结果
type MaturationDetail struct {
	AffiliateID      string       `json:"affiliate_id"`
	Status           string       `json:"status"`
	Amount           models.Money `json:"amount"`
	CommissionsCount int          `json:"commissions_count"`
	WithdrawalDay    int          `json:"withdrawal_day"`
	Error            string       `json:"error,omitempty"`
}

// MaturationConfig 本次运行使用的配置
type MaturationConfig struct {
	DaysToAvailable int          `json:"days_to_available"`
	MinWithdrawal   models.Money `json:"min_withdrawal"`
	CurrentDay      int          `json:"current_day"`
}

// MaturationReport 结算报告
// processed 为本次转为 available 的佣金条数，total_pending 为满足冻结期的 pending 条数
type MaturationReport struct {
	Processed    int                `json:"processed"`
	TotalPending int                `json:"total_pending"`
	Details      []MaturationDetail `json:"details"`
	Config       MaturationConfig   `json:"config"`
}

// CommissionMaturationOptions 结算任务参数
type CommissionMaturationOptions struct {
	Workers      int
	StoreTimeout time.Duration
	Location     *time.Location
}

// CommissionMaturationService pending -> available 结算
type CommissionMaturationService struct {
	commissionRepo repository.CommissionRepository
	affiliateRepo  repository.AffiliateRepository
	settings       *SettingService
	opts           CommissionMaturationOptions
	now            func() time.Time
}

// NewCommissionMaturationService 创建结算服务
func NewCommissionMaturationService(
	commissionRepo repository.CommissionRepository,
	affiliateRepo repository.AffiliateRepository,
	settings *SettingService,
	opts CommissionMaturationOptions,
) *CommissionMaturationService {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &CommissionMaturationService{
		commissionRepo: commissionRepo,
		affiliateRepo:  affiliateRepo,
		settings:       settings,
		opts:           opts,
		now:            time.Now,
	}
}

// Run 加载一次配置后执行结算
func (s *CommissionMaturationService) Run(ctx context.Context) (*MaturationReport, error) {
	storeCtx, cancel := s.storeContext(ctx)
	setting, err := s.settings.GetCommissionSetting(storeCtx)
	cancel()
	if err != nil {
		logger.Job("commission_maturation").Errorw("commission_maturation_setting_failed", "error", err)
		return nil, err
	}
	return s.RunWithSetting(ctx, setting)
}

type affiliateGroup struct {
	affiliateID string
	ids         []string
	total       decimal.Decimal
}

// RunWithSetting 按给定配置执行结算，单个推广者失败不影响其余
func (s *CommissionMaturationService) RunWithSetting(ctx context.Context, setting CommissionSetting) (*MaturationReport, error) {
	log := logger.Job("commission_maturation")
	now := s.now().In(s.opts.Location)
	currentDay := normalizeWithdrawalWeekday(now)
	cutoff := now.AddDate(0, 0, -setting.HoldingPeriodDays).UTC()

	report := &MaturationReport{
		Details: []MaturationDetail{},
		Config: MaturationConfig{
			DaysToAvailable: setting.HoldingPeriodDays,
			MinWithdrawal:   setting.MinWithdrawalAmount,
			CurrentDay:      currentDay,
		},
	}

	storeCtx, cancel := s.storeContext(ctx)
	rows, err := s.commissionRepo.ListPendingBefore(storeCtx, cutoff)
	cancel()
	if err != nil {
		log.Errorw("commission_maturation_list_failed", "error", err)
		return nil, lookupUnavailable("list pending commissions", err)
	}
	report.TotalPending = len(rows)
	if len(rows) == 0 {
		log.Infow("commission_maturation_finished", "processed", 0, "total_pending", 0, "current_day", currentDay)
		return report, nil
	}

	groups := groupCommissionsByAffiliate(rows)
	affiliateIDs := make([]string, 0, len(groups))
	for _, group := range groups {
		affiliateIDs = append(affiliateIDs, group.affiliateID)
	}
	storeCtx, cancel = s.storeContext(ctx)
	withdrawalDays, err := s.loadWithdrawalDays(storeCtx, affiliateIDs)
	cancel()
	if err != nil {
		log.Errorw("commission_maturation_affiliates_failed", "error", err)
		return nil, err
	}

	details := make([]MaturationDetail, len(groups))
	processed := make([]int, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.opts.Workers)
	for i, group := range groups {
		eg.Go(func() error {
			details[i], processed[i] = s.matureGroup(egCtx, group, withdrawalDays[group.affiliateID], currentDay, setting, now)
			return nil
		})
	}
	_ = eg.Wait()

	for i, detail := range details {
		report.Processed += processed[i]
		switch detail.Status {
		case constants.MaturationStatusError:
			log.Warnw("commission_maturation_affiliate_failed", "affiliate_id", detail.AffiliateID, "error", detail.Error)
		case constants.MaturationStatusWaitingWithdrawalDay:
			log.Debugw("commission_maturation_waiting_withdrawal_day", "affiliate_id", detail.AffiliateID, "withdrawal_day", detail.WithdrawalDay)
		case constants.MaturationStatusBelowMinimum:
			log.Debugw("commission_maturation_below_minimum", "affiliate_id", detail.AffiliateID, "amount", detail.Amount.String())
		}
	}
	report.Details = details

	log.Infow("commission_maturation_finished",
		"processed", report.Processed,
		"total_pending", report.TotalPending,
		"affiliates", len(details),
		"current_day", currentDay,
	)
	for _, detail := range details {
		if detail.Status == constants.MaturationStatusError {
			return report, ErrPartialFailure
		}
	}
	return report, nil
}

func (s *CommissionMaturationService) matureGroup(ctx context.Context, group affiliateGroup, withdrawalDay, currentDay int, setting CommissionSetting, now time.Time) (MaturationDetail, int) {
	detail := MaturationDetail{
		AffiliateID:      group.affiliateID,
		Amount:           models.NewMoneyFromDecimal(group.total),
		CommissionsCount: len(group.ids),
		WithdrawalDay:    withdrawalDay,
	}
	if withdrawalDay != currentDay {
		detail.Status = constants.MaturationStatusWaitingWithdrawalDay
		return detail, 0
	}
	if detail.Amount.Decimal.LessThan(setting.MinWithdrawalAmount.Decimal) {
		detail.Status = constants.MaturationStatusBelowMinimum
		return detail, 0
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	affected, err := s.commissionRepo.MarkAvailable(storeCtx, group.ids, now.UTC())
	if err != nil {
		detail.Status = constants.MaturationStatusError
		detail.Error = err.Error()
		return detail, 0
	}
	detail.Status = constants.MaturationStatusProcessed
	return detail, int(affected)
}

func (s *CommissionMaturationService) loadWithdrawalDays(ctx context.Context, affiliateIDs []string) (map[string]int, error) {
	affiliates, err := s.affiliateRepo.ListByIDs(ctx, affiliateIDs)
	if err != nil {
		return nil, lookupUnavailable("load affiliate payout config", err)
	}
	days := make(map[string]int, len(affiliateIDs))
	for _, id := range affiliateIDs {
		days[id] = constants.CommissionDefaultWithdrawalDay
	}
	for _, affiliate := range affiliates {
		days[affiliate.ID] = normalizeWithdrawalDay(affiliate.WithdrawalDay)
	}
	return days, nil
}

func (s *CommissionMaturationService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.StoreTimeout)
}

// groupCommissionsByAffiliate 按推广者分组并汇总金额，结果按 affiliate_id 排序
func groupCommissionsByAffiliate(rows []models.Commission) []affiliateGroup {
	index := make(map[string]int)
	groups := make([]affiliateGroup, 0)
	for _, row := range rows {
		pos, ok := index[row.AffiliateID]
		if !ok {
			pos = len(groups)
			index[row.AffiliateID] = pos
			groups = append(groups, affiliateGroup{affiliateID: row.AffiliateID, total: decimal.Zero})
		}
		groups[pos].ids = append(groups[pos].ids, row.ID)
		groups[pos].total = groups[pos].total.Add(row.Amount.Decimal)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].affiliateID < groups[j].affiliateID
	})
	return groups
}

// normalizeWithdrawalWeekday 周一=1 ... 周五=5，周六周日视为周一
func normalizeWithdrawalWeekday(t time.Time) int {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return 1
	default:
		return int(t.Weekday())
	}
}

func normalizeWithdrawalDay(day int) int {
	if day < 1 || day > 5 {
		return constants.CommissionDefaultWithdrawalDay
	}
	return day
}
