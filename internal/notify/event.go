package notify

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventPickupCreated          EventType = "pickup.created"
	EventPickupSold             EventType = "pickup.sold"
	EventPickupExpired          EventType = "pickup.expired"
	EventTransferRequested      EventType = "pickup.transfer_requested"
	EventTransferAccepted       EventType = "pickup.transfer_accepted"
	EventTransferDeclined       EventType = "pickup.transfer_declined"
	EventReturnRequested        EventType = "pickup.return_requested"
	EventReturnConfirmed        EventType = "pickup.return_confirmed"
	EventReturnRejected         EventType = "pickup.return_rejected"
	EventExtraAllowanceRequest  EventType = "allowance.extra_requested"
	EventExtraAllowanceReviewed EventType = "allowance.extra_reviewed"
	EventCommissionReleased     EventType = "wallet.commission_released"
	EventWithdrawalRequested    EventType = "wallet.withdrawal_requested"
	EventWithdrawalReviewed     EventType = "wallet.withdrawal_reviewed"
)

// Event: факт перехода, о котором сообщается субъекту и его цепочке руководителей.
type Event struct {
	Type       EventType      `json:"type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Tier string

const (
	TierSelf       Tier = "self"
	TierSupervisor Tier = "supervisor"
	TierOperator   Tier = "operator"
)

// Message: одно сообщение одному получателю. Доставкой занимается внешний сервис.
type Message struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	SubjectID   uuid.UUID `json:"subject_id"`
	Tier        Tier      `json:"tier"`
	Level       int       `json:"level"`
	Event       Event     `json:"event"`
}
