package app

import (
	"fmt"

	"pickup-service/config"
	"pickup-service/internal/cache"
	"pickup-service/internal/clock"
	"pickup-service/internal/jobs"
	"pickup-service/internal/notify"
	"pickup-service/internal/producer"
	"pickup-service/internal/repository"
	"pickup-service/internal/service"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TaskSweep   = "sweep"
	TaskRelease = "release"
)

// App: собранные сервисы и фоновые задачи поверх одного пула соединений.
type App struct {
	Repo       *repository.Repository
	Pickups    *service.PickupService
	Allowances *service.AllowanceService
	Settlement *service.SettlementService
	Wallets    *service.WalletService
	Sweeper    *jobs.Sweeper
	Releaser   *jobs.Releaser
	Scheduler  *jobs.Scheduler

	closers []func() error
}

// Build собирает приложение. Внешние клиенты (Kafka, Redis) подключаются по конфигу.
func Build(cfg *config.Config, db *gorm.DB, clk clock.Clock, log *zap.Logger) (*App, error) {
	a := &App{Repo: repository.New(db)}

	var pub notify.Publisher = notify.NewLogPublisher(log)
	if cfg.Kafka.Enabled {
		p := producer.NewNotificationProducer(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic)
		a.closers = append(a.closers, p.Close)
		pub = p
		log.Info("Kafka notifications enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}
	fanout := notify.NewFanout(a.Repo.Users, pub, log)

	policy, err := service.NewCommissionPolicy(service.CommissionRates{
		MarketerPct:   cfg.Commission.MarketerPct,
		AdminPct:      cfg.Commission.AdminPct,
		SuperAdminPct: cfg.Commission.SuperAdminPct,
	}, cfg.Commission.Hold)
	if err != nil {
		return nil, fmt.Errorf("commission policy: %w", err)
	}

	a.Pickups = service.NewPickupService(a.Repo, service.PickupConfig{
		Window:                 cfg.Pickup.Window,
		DefaultAllowance:       int32(cfg.Pickup.DefaultAllowance),
		TransferResetsDeadline: cfg.Pickup.TransferResetsDeadline,
	}, clk, fanout, log)
	a.Allowances = service.NewAllowanceService(a.Repo, service.AllowanceConfig{
		DefaultAllowance: int32(cfg.Pickup.DefaultAllowance),
		ExtraAllowance:   int32(cfg.Pickup.ExtraAllowance),
	}, clk, fanout, log)
	a.Settlement = service.NewSettlementService(a.Repo, policy, clk, fanout, log)
	a.Wallets = service.NewWalletService(a.Repo, clk, fanout, log, cfg.Jobs.BatchSize)

	a.Sweeper = jobs.NewSweeper(a.Repo, clk, fanout, log, cfg.Jobs.BatchSize)
	a.Releaser = jobs.NewReleaser(a.Wallets, log)

	var lease jobs.Lease
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rc.Close)
		lease = rc
		log.Info("Redis job lease enabled")
	}

	a.Scheduler = jobs.NewScheduler(log, lease, cfg.Jobs.LeaseTTL)
	if err := a.Scheduler.Run(TaskSweep, cfg.Jobs.SweepInterval, a.Sweeper.Sweep); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Scheduler.Run(TaskRelease, cfg.Jobs.ReleaseInterval, a.Releaser.Release); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}
