package service

import (
	"context"

	"pickup-service/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier: рассылка по иерархии. Вызывается только после коммита.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, ev notify.Event) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, uuid.UUID, notify.Event) error { return nil }

// notifyAfterCommit: уведомления best-effort, их ошибка не откатывает состояние.
func notifyAfterCommit(ctx context.Context, n Notifier, log *zap.Logger, userID uuid.UUID, ev notify.Event) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, userID, ev); err != nil {
		log.Warn("notification fanout failed",
			zap.String("event", string(ev.Type)),
			zap.String("user_id", userID.String()),
			zap.String("entity_id", ev.EntityID.String()),
			zap.Error(err))
	}
}
