package dto

import (
	"time"

	"pickup-service/internal/models"

	"github.com/google/uuid"
)

type PickupResponse struct {
	ID                      string     `json:"id"`
	MarketerID              string     `json:"marketer_id"`
	DealerID                string     `json:"dealer_id"`
	ProductID               string     `json:"product_id"`
	Quantity                int32      `json:"quantity"`
	Status                  string     `json:"status"`
	TransferTargetID        *string    `json:"transfer_target_id,omitempty"`
	TransferredToPickupID   *string    `json:"transferred_to_pickup_id,omitempty"`
	TransferredFromPickupID *string    `json:"transferred_from_pickup_id,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	Deadline                time.Time  `json:"deadline"`
	ExpiredAt               *time.Time `json:"expired_at,omitempty"`
	ResolvedAt              *time.Time `json:"resolved_at,omitempty"`
}

type OrderResponse struct {
	ID              string    `json:"id"`
	PickupID        string    `json:"pickup_id"`
	MarketerID      string    `json:"marketer_id"`
	DealerID        string    `json:"dealer_id"`
	ProductID       string    `json:"product_id"`
	Quantity        int32     `json:"quantity"`
	SoldAmountCents int64     `json:"sold_amount_cents"`
	UnitPriceCents  int64     `json:"unit_price_cents"`
	ListAmountCents int64     `json:"list_amount_cents"`
	Status          string    `json:"status"`
	SaleDate        time.Time `json:"sale_date"`
}

type CreditResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Tier        string    `json:"tier"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	MaturesAt   time.Time `json:"matures_at"`
}

type SettlementResponse struct {
	Order   OrderResponse    `json:"order"`
	Credits []CreditResponse `json:"credits"`
}

type ExtraRequestResponse struct {
	ID         string     `json:"id"`
	MarketerID string     `json:"marketer_id"`
	Status     string     `json:"status"`
	ReviewedBy *string    `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type WithdrawalResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	AmountCents int64      `json:"amount_cents"`
	Status      string     `json:"status"`
	Note        string     `json:"note,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	ReviewedBy  *string    `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

type LedgerEntryResponse struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	AvailableDelta int64     `json:"available_delta_cents"`
	WithheldDelta  int64     `json:"withheld_delta_cents"`
	RefID          string    `json:"ref_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func ToPickup(p *models.Pickup) PickupResponse {
	return PickupResponse{
		ID:                      p.ID.String(),
		MarketerID:              p.MarketerID.String(),
		DealerID:                p.DealerID.String(),
		ProductID:               p.ProductID.String(),
		Quantity:                p.Quantity,
		Status:                  string(p.Status),
		TransferTargetID:        idPtr(p.TransferTargetID),
		TransferredToPickupID:   idPtr(p.TransferredToPickupID),
		TransferredFromPickupID: idPtr(p.TransferredFromPickupID),
		CreatedAt:               p.CreatedAt,
		Deadline:                p.Deadline,
		ExpiredAt:               p.ExpiredAt,
		ResolvedAt:              p.ResolvedAt,
	}
}

func ToOrder(o *models.Order) OrderResponse {
	return OrderResponse{
		ID:              o.ID.String(),
		PickupID:        o.PickupID.String(),
		MarketerID:      o.MarketerID.String(),
		DealerID:        o.DealerID.String(),
		ProductID:       o.ProductID.String(),
		Quantity:        o.Quantity,
		SoldAmountCents: o.SoldAmountCents,
		UnitPriceCents:  o.UnitPriceCents,
		ListAmountCents: o.ListAmountCents,
		Status:          string(o.Status),
		SaleDate:        o.SaleDate,
	}
}

func ToCredit(c *models.CommissionCredit) CreditResponse {
	return CreditResponse{
		ID:          c.ID.String(),
		UserID:      c.UserID.String(),
		Tier:        string(c.Tier),
		AmountCents: c.AmountCents,
		Status:      string(c.Status),
		MaturesAt:   c.MaturesAt,
	}
}

func ToExtraRequest(r *models.ExtraPickupRequest) ExtraRequestResponse {
	return ExtraRequestResponse{
		ID:         r.ID.String(),
		MarketerID: r.MarketerID.String(),
		Status:     string(r.Status),
		ReviewedBy: idPtr(r.ReviewedBy),
		ReviewedAt: r.ReviewedAt,
		CreatedAt:  r.CreatedAt,
	}
}

func ToWithdrawal(w *models.WithdrawalRequest) WithdrawalResponse {
	return WithdrawalResponse{
		ID:          w.ID.String(),
		UserID:      w.UserID.String(),
		AmountCents: w.AmountCents,
		Status:      string(w.Status),
		Note:        w.Note,
		RequestedAt: w.RequestedAt,
		ReviewedBy:  idPtr(w.ReviewedBy),
		ReviewedAt:  w.ReviewedAt,
	}
}

func ToLedgerEntry(e *models.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:             e.ID.String(),
		Kind:           string(e.Kind),
		AvailableDelta: e.AvailableDelta,
		WithheldDelta:  e.WithheldDelta,
		RefID:          e.RefID.String(),
		CreatedAt:      e.CreatedAt,
	}
}

// MapList применяет конвертер к срезу моделей.
func MapList[M any, R any](items []M, conv func(*M) R) []R {
	out := make([]R, 0, len(items))
	for i := range items {
		out = append(out, conv(&items[i]))
	}
	return out
}

func idPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
