package service

import (
	"fmt"
	"time"

	"pickup-service/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CommissionPolicy: процент от суммы продажи по уровню иерархии и срок удержания.
type CommissionPolicy struct {
	rates map[models.Role]decimal.Decimal
	hold  time.Duration
}

type CommissionRates struct {
	MarketerPct   string
	AdminPct      string
	SuperAdminPct string
}

func NewCommissionPolicy(r CommissionRates, hold time.Duration) (*CommissionPolicy, error) {
	if hold < 0 {
		return nil, fmt.Errorf("commission hold must be >= 0, got %s", hold)
	}
	p := &CommissionPolicy{rates: make(map[models.Role]decimal.Decimal, 3), hold: hold}
	for role, raw := range map[models.Role]string{
		models.RoleMarketer:   r.MarketerPct,
		models.RoleAdmin:      r.AdminPct,
		models.RoleSuperAdmin: r.SuperAdminPct,
	} {
		if raw == "" {
			raw = "0"
		}
		pct, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("commission rate for %s: %w", role, err)
		}
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return nil, fmt.Errorf("commission rate for %s must be within [0, 100], got %s", role, pct)
		}
		p.rates[role] = pct
	}
	return p, nil
}

func (p *CommissionPolicy) Hold() time.Duration { return p.hold }

// Amount: комиссия уровня в копейках, округление половины вверх.
func (p *CommissionPolicy) Amount(role models.Role, soldCents int64) int64 {
	rate, ok := p.rates[role]
	if !ok || rate.IsZero() || soldCents <= 0 {
		return 0
	}
	return decimal.NewFromInt(soldCents).Mul(rate).Div(hundred).Round(0).IntPart()
}

type CommissionShare struct {
	User        models.User
	AmountCents int64
}

// Split распределяет комиссию по цепочке продавца (сам маркетолог первым).
// Каждый уровень получает начисление не более одного раза; нулевые доли пропускаются.
func (p *CommissionPolicy) Split(soldCents int64, chain []models.User) []CommissionShare {
	out := make([]CommissionShare, 0, len(chain))
	paid := make(map[models.Role]struct{}, len(chain))
	for _, u := range chain {
		if _, dup := paid[u.Role]; dup {
			continue
		}
		amt := p.Amount(u.Role, soldCents)
		if amt <= 0 {
			continue
		}
		paid[u.Role] = struct{}{}
		out = append(out, CommissionShare{User: u, AmountCents: amt})
	}
	return out
}
