package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/models"

	"github.com/shopspring/decimal"
)

const (
	commissionHoldingDaysMin = 0
	commissionHoldingDaysMax = 3650
)

// CommissionSetting 佣金结算配置，每次任务开始时加载一次后按参数传递
type CommissionSetting struct {
	HoldingPeriodDays   int          `json:"days_to_available"`
	MinWithdrawalAmount models.Money `json:"min_withdrawal"`
}

// CommissionDefaultSetting 默认佣金结算配置
func CommissionDefaultSetting() CommissionSetting {
	return CommissionSetting{
		HoldingPeriodDays:   constants.CommissionDefaultHoldingPeriodDays,
		MinWithdrawalAmount: models.NewMoneyFromFloat(constants.CommissionDefaultMinWithdrawal),
	}
}

// NormalizeCommissionSetting 归一化佣金结算配置
func NormalizeCommissionSetting(setting CommissionSetting) CommissionSetting {
	if setting.HoldingPeriodDays < commissionHoldingDaysMin {
		setting.HoldingPeriodDays = commissionHoldingDaysMin
	}
	if setting.HoldingPeriodDays > commissionHoldingDaysMax {
		setting.HoldingPeriodDays = commissionHoldingDaysMax
	}
	if setting.MinWithdrawalAmount.Decimal.IsNegative() {
		setting.MinWithdrawalAmount = models.NewMoneyFromDecimal(decimal.Zero)
	}
	setting.MinWithdrawalAmount = models.NewMoneyFromDecimal(setting.MinWithdrawalAmount.Decimal)
	return setting
}

// ValidateCommissionSetting 校验佣金结算配置
func ValidateCommissionSetting(setting CommissionSetting) error {
	if setting.HoldingPeriodDays < commissionHoldingDaysMin || setting.HoldingPeriodDays > commissionHoldingDaysMax {
		return fmt.Errorf("%w: 佣金冻结天数必须在 0-3650 之间", ErrCommissionConfigInvalid)
	}
	if setting.MinWithdrawalAmount.Decimal.IsNegative() {
		return fmt.Errorf("%w: 最低提现金额不能小于 0", ErrCommissionConfigInvalid)
	}
	return nil
}

func commissionSettingFromRows(rows []models.AppSetting, fallback CommissionSetting) CommissionSetting {
	result := fallback
	for _, row := range rows {
		switch row.Key {
		case constants.SettingKeyCommissionDaysToAvailable:
			if parsed, err := parseSettingInt(row.Value); err == nil {
				result.HoldingPeriodDays = parsed
			}
		case constants.SettingKeyCommissionMinWithdrawal:
			if parsed, err := parseSettingDecimal(row.Value); err == nil {
				result.MinWithdrawalAmount = models.NewMoneyFromDecimal(parsed)
			}
		}
	}
	return NormalizeCommissionSetting(result)
}

// GetCommissionSetting 读取 app_settings，缺失项回退默认值
func (s *SettingService) GetCommissionSetting(ctx context.Context) (CommissionSetting, error) {
	if s == nil || s.repo == nil {
		return CommissionDefaultSetting(), nil
	}
	fallback := s.commissionDefaults
	rows, err := s.repo.ListByKeys(ctx, []string{
		constants.SettingKeyCommissionDaysToAvailable,
		constants.SettingKeyCommissionMinWithdrawal,
	})
	if err != nil {
		return fallback, lookupUnavailable("load commission setting", err)
	}
	return commissionSettingFromRows(rows, fallback), nil
}

// UpdateCommissionSetting 更新佣金结算配置
func (s *SettingService) UpdateCommissionSetting(ctx context.Context, setting CommissionSetting) (CommissionSetting, error) {
	if err := ValidateCommissionSetting(setting); err != nil {
		return s.commissionDefaults, err
	}
	normalized := NormalizeCommissionSetting(setting)
	now := time.Now().UTC()
	values := map[string]string{
		constants.SettingKeyCommissionDaysToAvailable: fmt.Sprintf("%d", normalized.HoldingPeriodDays),
		constants.SettingKeyCommissionMinWithdrawal:   normalized.MinWithdrawalAmount.String(),
	}
	for _, key := range []string{constants.SettingKeyCommissionDaysToAvailable, constants.SettingKeyCommissionMinWithdrawal} {
		if _, err := s.repo.Upsert(ctx, key, values[key], now); err != nil {
			return s.commissionDefaults, err
		}
	}
	return normalized, nil
}

func parseSettingDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return decimal.Zero, fmt.Errorf("empty string")
		}
		return decimal.NewFromString(trimmed)
	default:
		parsed, err := parseSettingFloat(v)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromFloat(parsed), nil
	}
}
