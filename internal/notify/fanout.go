package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pickup-service/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hierarchy: источник цепочки руководителей. repository.UserRepo ему удовлетворяет.
type Hierarchy interface {
	Chain(ctx context.Context, id uuid.UUID) ([]models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

type Fanout struct {
	users      Hierarchy
	pub        Publisher
	log        *zap.Logger
	newBackOff func() backoff.BackOff
}

func NewFanout(users Hierarchy, pub Publisher, log *zap.Logger) *Fanout {
	return &Fanout{
		users: users,
		pub:   pub,
		log:   log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 5 * time.Second
			return backoff.WithMaxRetries(b, 3)
		},
	}
}

// WithBackOff подменяет политику повторов публикации (в тестах без ожиданий).
func (f *Fanout) WithBackOff(fn func() backoff.BackOff) *Fanout {
	f.newBackOff = fn
	return f
}

// Recipients строит список получателей: сам пользователь, его руководители снизу вверх,
// затем все операторы. Уровни без назначенного руководителя просто отсутствуют.
func (f *Fanout) Recipients(ctx context.Context, userID uuid.UUID) ([]Message, error) {
	chain, err := f.users.Chain(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load supervision chain: %w", err)
	}
	operators, err := f.users.ListByRole(ctx, models.RoleOperator)
	if err != nil {
		return nil, fmt.Errorf("load operators: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(chain)+len(operators))
	out := make([]Message, 0, len(chain)+len(operators))
	add := func(id uuid.UUID, tier Tier, level int) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, Message{RecipientID: id, SubjectID: userID, Tier: tier, Level: level})
	}

	for i, u := range chain {
		switch {
		case i == 0:
			add(u.ID, TierSelf, 0)
		case u.Role == models.RoleOperator:
			add(u.ID, TierOperator, i)
		default:
			add(u.ID, TierSupervisor, i)
		}
	}
	for _, op := range operators {
		add(op.ID, TierOperator, len(chain))
	}
	return out, nil
}

// Notify публикует событие каждому получателю. Ошибка одного получателя не мешает остальным;
// все ошибки возвращаются вместе.
func (f *Fanout) Notify(ctx context.Context, userID uuid.UUID, ev Event) error {
	msgs, err := f.Recipients(ctx, userID)
	if err != nil {
		return err
	}

	var errs []error
	for _, m := range msgs {
		m.Event = ev
		op := func() error { return f.pub.Publish(ctx, m) }
		if err := backoff.Retry(op, backoff.WithContext(f.newBackOff(), ctx)); err != nil {
			f.log.Error("notification publish failed",
				zap.String("event", string(ev.Type)),
				zap.String("recipient_id", m.RecipientID.String()),
				zap.String("tier", string(m.Tier)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("recipient %s: %w", m.RecipientID, err))
		}
	}
	return errors.Join(errs...)
}

// LogPublisher: публикация в лог, когда Kafka выключена.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher { return &LogPublisher{log: log} }

func (p *LogPublisher) Publish(_ context.Context, msg Message) error {
	p.log.Info("notification",
		zap.String("event", string(msg.Event.Type)),
		zap.String("recipient_id", msg.RecipientID.String()),
		zap.String("subject_id", msg.SubjectID.String()),
		zap.String("tier", string(msg.Tier)),
		zap.String("entity_id", msg.Event.EntityID.String()))
	return nil
}
