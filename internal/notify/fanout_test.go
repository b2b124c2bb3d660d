package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pickup-service/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memHierarchy struct {
	users map[uuid.UUID]models.User
}

func (h memHierarchy) Chain(_ context.Context, id uuid.UUID) ([]models.User, error) {
	var out []models.User
	for cur, ok := h.users[id]; ok; {
		out = append(out, cur)
		if cur.SupervisorID == nil {
			break
		}
		cur, ok = h.users[*cur.SupervisorID]
	}
	return out, nil
}

func (h memHierarchy) ListByRole(_ context.Context, role models.Role) ([]models.User, error) {
	var out []models.User
	for _, u := range h.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

type memPublisher struct {
	mu    sync.Mutex
	sent  []Message
	fails map[uuid.UUID]int // сколько раз подряд падать для получателя
}

func (p *memPublisher) Publish(_ context.Context, m Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fails[m.RecipientID] > 0 {
		p.fails[m.RecipientID]--
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, m)
	return nil
}

func noWait() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2) }

type org struct {
	h                          memHierarchy
	op, super, admin, marketer models.User
	orphan                     models.User
}

func newOrg() org {
	var o org
	o.op = models.User{ID: uuid.New(), Role: models.RoleOperator}
	o.super = models.User{ID: uuid.New(), Role: models.RoleSuperAdmin, SupervisorID: &o.op.ID}
	o.admin = models.User{ID: uuid.New(), Role: models.RoleAdmin, SupervisorID: &o.super.ID}
	o.marketer = models.User{ID: uuid.New(), Role: models.RoleMarketer, SupervisorID: &o.admin.ID}
	o.orphan = models.User{ID: uuid.New(), Role: models.RoleMarketer}
	o.h = memHierarchy{users: map[uuid.UUID]models.User{}}
	for _, u := range []models.User{o.op, o.super, o.admin, o.marketer, o.orphan} {
		o.h.users[u.ID] = u
	}
	return o
}

func TestRecipients_ChainThenOperators(t *testing.T) {
	o := newOrg()
	f := NewFanout(o.h, &memPublisher{}, zap.NewNop())

	msgs, err := f.Recipients(context.Background(), o.marketer.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4, "operator in chain is not duplicated")

	require.Equal(t, o.marketer.ID, msgs[0].RecipientID)
	require.Equal(t, TierSelf, msgs[0].Tier)
	require.Equal(t, o.admin.ID, msgs[1].RecipientID)
	require.Equal(t, TierSupervisor, msgs[1].Tier)
	require.Equal(t, 1, msgs[1].Level)
	require.Equal(t, o.super.ID, msgs[2].RecipientID)
	require.Equal(t, o.op.ID, msgs[3].RecipientID)
	require.Equal(t, TierOperator, msgs[3].Tier)
	for _, m := range msgs {
		require.Equal(t, o.marketer.ID, m.SubjectID)
	}
}

func TestRecipients_MissingSupervisors(t *testing.T) {
	o := newOrg()
	f := NewFanout(o.h, &memPublisher{}, zap.NewNop())

	msgs, err := f.Recipients(context.Background(), o.orphan.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, TierSelf, msgs[0].Tier)
	require.Equal(t, o.op.ID, msgs[1].RecipientID)
	require.Equal(t, TierOperator, msgs[1].Tier)
}

func TestNotify_RetriesAndIsolatesFailures(t *testing.T) {
	o := newOrg()
	pub := &memPublisher{fails: map[uuid.UUID]int{
		o.admin.ID: 1,  // восстановится после повтора
		o.super.ID: 10, // не восстановится
	}}
	f := NewFanout(o.h, pub, zap.NewNop()).WithBackOff(noWait)

	ev := Event{Type: EventPickupExpired, EntityID: uuid.New()}
	err := f.Notify(context.Background(), o.marketer.ID, ev)
	require.Error(t, err)
	require.Contains(t, err.Error(), o.super.ID.String())

	got := map[uuid.UUID]bool{}
	for _, m := range pub.sent {
		require.Equal(t, ev.EntityID, m.Event.EntityID)
		got[m.RecipientID] = true
	}
	require.True(t, got[o.marketer.ID])
	require.True(t, got[o.admin.ID], "transient failure is retried")
	require.False(t, got[o.super.ID])
	require.True(t, got[o.op.ID], "later recipients still notified")
}

func TestLogPublisher_WritesEntry(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	id := uuid.New()
	require.NoError(t, p.Publish(context.Background(), Message{
		RecipientID: id,
		Tier:        TierSelf,
		Event:       Event{Type: EventCommissionReleased},
	}))
	entries := logs.FilterField(zap.String("recipient_id", id.String())).All()
	require.Len(t, entries, 1)
	require.Equal(t, "notification", entries[0].Message)
}
