package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestSetDefaultsCommission(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal defaults failed: %v", err)
	}
	if cfg.Commission.MaxDepth != 3 {
		t.Fatalf("max depth want 3 got %d", cfg.Commission.MaxDepth)
	}
	if cfg.Commission.HoldingPeriodDays != 7 {
		t.Fatalf("holding period want 7 got %d", cfg.Commission.HoldingPeriodDays)
	}
	if cfg.Commission.MinWithdrawalAmount != 50 {
		t.Fatalf("min withdrawal want 50 got %v", cfg.Commission.MinWithdrawalAmount)
	}
	if cfg.Commission.ReconcileBatchSize != 100 {
		t.Fatalf("batch size want 100 got %d", cfg.Commission.ReconcileBatchSize)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("driver want sqlite got %s", cfg.Database.Driver)
	}
	if cfg.Queue.Queues["critical"] != 5 {
		t.Fatalf("critical queue weight want 5 got %d", cfg.Queue.Queues["critical"])
	}
}

func TestEnvOverridesCommissionKey(t *testing.T) {
	t.Setenv("COMMISSION_WORKERS", "9")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(envKeyReplacer())

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if cfg.Commission.Workers != 9 {
		t.Fatalf("workers want 9 got %d", cfg.Commission.Workers)
	}
}
