package jobs

import (
	"context"

	"go.uber.org/zap"
)

// MaturedReleaser: то, что умеет выпускать созревшую комиссию (service.WalletService).
type MaturedReleaser interface {
	ReleaseMatured(ctx context.Context) (int, error)
}

type Releaser struct {
	wallets MaturedReleaser
	log     *zap.Logger
}

func NewReleaser(wallets MaturedReleaser, log *zap.Logger) *Releaser {
	return &Releaser{wallets: wallets, log: log}
}

func (r *Releaser) Release(ctx context.Context) (int, error) {
	n, err := r.wallets.ReleaseMatured(ctx)
	if err != nil {
		r.log.Error("commission release run failed", zap.Int("released", n), zap.Error(err))
	}
	return n, err
}
