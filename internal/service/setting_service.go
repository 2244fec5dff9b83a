package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/repository"
)

// SettingService 设置业务服务
type SettingService struct {
	repo               repository.SettingRepository
	commissionDefaults CommissionSetting
}

// NewSettingService 创建设置服务，defaults 为 app_settings 缺失时的回退值
func NewSettingService(repo repository.SettingRepository, defaults CommissionSetting) *SettingService {
	return &SettingService{
		repo:               repo,
		commissionDefaults: NormalizeCommissionSetting(defaults),
	}
}

// CommissionDefaults 返回配置文件提供的默认值
func (s *SettingService) CommissionDefaults() CommissionSetting {
	if s == nil {
		return CommissionDefaultSetting()
	}
	return s.commissionDefaults
}

func parseSettingInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), nil
		}
		if f, err := v.Float64(); err == nil {
			return int(f), nil
		}
		return 0, fmt.Errorf("invalid json number")
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, fmt.Errorf("empty string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, err
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unsupported value type")
	}
}

func parseSettingFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, fmt.Errorf("empty string")
		}
		return strconv.ParseFloat(trimmed, 64)
	default:
		return 0, fmt.Errorf("unsupported value type")
	}
}
