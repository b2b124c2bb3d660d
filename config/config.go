package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"pickup-service/internal/database"

	"go.uber.org/zap"
)

type Config struct {
	Port       string
	DB         DB
	JWT        JWT
	Pickup     Pickup
	Commission Commission
	Jobs       Jobs
	Kafka      Kafka
	Redis      Redis
}

type DB struct {
	database.Config
}

type JWT struct {
	Secret   string
	Issuer   string
	Audience string
}

type Pickup struct {
	Window                 time.Duration
	DefaultAllowance       int
	ExtraAllowance         int
	TransferResetsDeadline bool
}

// Commission: проценты по уровням иерархии и срок удержания.
// Проценты задаются строкой ("2.5"), чтобы не терять точность.
type Commission struct {
	MarketerPct   string
	AdminPct      string
	SuperAdminPct string
	Hold          time.Duration
}

type Jobs struct {
	SweepInterval   time.Duration
	ReleaseInterval time.Duration
	BatchSize       int
	LeaseTTL        time.Duration
}

type Kafka struct {
	Enabled            bool
	Brokers            []string
	NotificationsTopic string
}

type Redis struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

func Load(log *zap.Logger) *Config {
	cfg := &Config{
		Port: getEnvDefault("APP_PORT", ":8080"),
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnvDefault("DB_SSLMODE", "disable"),
			},
		},
		JWT: JWT{
			Secret:   os.Getenv("JWT_SECRET"),
			Issuer:   getEnvDefault("JWT_ISSUER", "auth-service"),
			Audience: getEnvDefault("JWT_AUDIENCE", "pickup-service"),
		},
		Pickup: Pickup{
			Window:                 parseDurationWithDays(getEnvDefault("PICKUP_WINDOW", "48h")),
			DefaultAllowance:       atoiDefault(os.Getenv("DEFAULT_ALLOWANCE"), 1),
			ExtraAllowance:         atoiDefault(os.Getenv("EXTRA_ALLOWANCE"), 3),
			TransferResetsDeadline: os.Getenv("TRANSFER_RESETS_DEADLINE") == "true",
		},
		Commission: Commission{
			MarketerPct:   getEnvDefault("COMMISSION_MARKETER_PCT", "0"),
			AdminPct:      getEnvDefault("COMMISSION_ADMIN_PCT", "0"),
			SuperAdminPct: getEnvDefault("COMMISSION_SUPERADMIN_PCT", "0"),
			Hold:          parseDurationWithDays(getEnvDefault("COMMISSION_HOLD", "7d")),
		},
		Jobs: Jobs{
			SweepInterval:   parseDurationWithDays(getEnvDefault("SWEEP_INTERVAL", "1m")),
			ReleaseInterval: parseDurationWithDays(getEnvDefault("RELEASE_INTERVAL", "5m")),
			BatchSize:       atoiDefault(os.Getenv("JOB_BATCH_SIZE"), 500),
			LeaseTTL:        parseDurationWithDays(getEnvDefault("JOB_LEASE_TTL", "50s")),
		},
		Kafka: Kafka{
			Enabled:            os.Getenv("KAFKA_ENABLED") == "true",
			Brokers:            splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			NotificationsTopic: getEnvDefault("KAFKA_TOPIC_NOTIFICATIONS", "pickup.notifications"),
		},
		Redis: Redis{
			Enabled:  os.Getenv("REDIS_ENABLED") == "true",
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       atoiDefault(os.Getenv("REDIS_DB"), 0),
		},
	}

	if cfg.Pickup.Window <= 0 {
		log.Error("PICKUP_WINDOW должен быть положительным", zap.Duration("window", cfg.Pickup.Window))
		panic("invalid PICKUP_WINDOW")
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		log.Error("KAFKA_ENABLED=true, но KAFKA_BROKERS пуст")
		panic("missing required environment variable: KAFKA_BROKERS")
	}
	return cfg
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func parseDurationWithDays(s string) time.Duration {
	if strings.HasSuffix(s, "d") {
		daysStr := strings.TrimSuffix(s, "d")
		days, err := time.ParseDuration(daysStr + "h")
		if err != nil {
			log.Printf("Ошибка парсинга длительности: %v", err)
			return 0
		}
		return time.Duration(24) * days
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return duration
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
