package config

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestParseDurationWithDays(t *testing.T) {
	cases := map[string]time.Duration{
		"7d":   7 * 24 * time.Hour,
		"1.5d": 36 * time.Hour,
		"48h":  48 * time.Hour,
		"90s":  90 * time.Second,
		"xd":   0,
		"soon": 0,
	}
	for in, want := range cases {
		if got := parseDurationWithDays(in); got != want {
			t.Errorf("parseDurationWithDays(%q) = %s, want %s", in, got, want)
		}
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"DB_HOST":     "localhost",
		"DB_PORT":     "5432",
		"DB_USER":     "pickup",
		"DB_PASSWORD": "secret",
		"DB_NAME":     "pickup",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	cfg := Load(zap.NewNop())

	if cfg.Pickup.Window != 48*time.Hour {
		t.Fatalf("window = %s", cfg.Pickup.Window)
	}
	if cfg.Pickup.DefaultAllowance != 1 || cfg.Pickup.ExtraAllowance != 3 {
		t.Fatalf("allowances = %d/%d", cfg.Pickup.DefaultAllowance, cfg.Pickup.ExtraAllowance)
	}
	if cfg.Commission.Hold != 7*24*time.Hour {
		t.Fatalf("hold = %s", cfg.Commission.Hold)
	}
	if cfg.Kafka.Enabled || cfg.Redis.Enabled {
		t.Fatal("kafka and redis must be off by default")
	}
	if cfg.DB.SSLMode != "disable" {
		t.Fatalf("sslmode = %q", cfg.DB.SSLMode)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PICKUP_WINDOW", "2d")
	t.Setenv("EXTRA_ALLOWANCE", "5")
	t.Setenv("TRANSFER_RESETS_DEADLINE", "true")
	t.Setenv("COMMISSION_ADMIN_PCT", "2.5")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")

	cfg := Load(zap.NewNop())
	if cfg.Pickup.Window != 48*time.Hour || cfg.Pickup.ExtraAllowance != 5 || !cfg.Pickup.TransferResetsDeadline {
		t.Fatalf("pickup = %+v", cfg.Pickup)
	}
	if cfg.Commission.AdminPct != "2.5" {
		t.Fatalf("admin pct = %q", cfg.Commission.AdminPct)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_PanicsOnMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic without KAFKA_BROKERS")
		}
	}()
	Load(zap.NewNop())
}
