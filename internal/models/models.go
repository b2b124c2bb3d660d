package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleMarketer   Role = "ROLE_MARKETER"
	RoleAdmin      Role = "ROLE_ADMIN"
	RoleSuperAdmin Role = "ROLE_SUPERADMIN"
	RoleOperator   Role = "ROLE_OPERATOR"
)

// User: проекция профиля из внешнего сервиса пользователей.
// Ядро читает только роль и ссылку на руководителя.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Role         Role       `gorm:"type:text;not null;index"`
	SupervisorID *uuid.UUID `gorm:"type:uuid;index"`
	FullName     string     `gorm:"type:text"`
	CreatedAt    time.Time  `gorm:"not null"`
}

func (User) TableName() string { return "users" }

type Dealer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Dealer) TableName() string { return "dealers" }

type Product struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	SKU        string    `gorm:"type:text;not null"`
	Name       string    `gorm:"type:text;not null"`
	PriceCents int64     `gorm:"not null;default:0"`
	IsActive   bool      `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Product) TableName() string { return "products" }

type ItemStatus string

const (
	ItemAvailable ItemStatus = "available"
	ItemReserved  ItemStatus = "reserved"
	ItemSold      ItemStatus = "sold"
	ItemReturned  ItemStatus = "returned"
)

// InventoryItem: физическая единица товара. PickupID заполнен, пока единица
// зарезервирована или продана в рамках выдачи.
type InventoryItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID  `gorm:"type:uuid;not null;index:ix_items_fifo,priority:1"`
	Status    ItemStatus `gorm:"type:text;not null;default:'available';index:ix_items_fifo,priority:2"`
	PickupID  *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time `gorm:"not null;index:ix_items_fifo,priority:3"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (InventoryItem) TableName() string { return "inventory_items" }

type PickupStatus string

const (
	PickupPending           PickupStatus = "pending"
	PickupSold              PickupStatus = "sold"
	PickupTransferRequested PickupStatus = "transfer_requested"
	PickupTransferred       PickupStatus = "transferred"
	PickupReturnRequested   PickupStatus = "return_requested"
	PickupReturned          PickupStatus = "returned"
	PickupExpired           PickupStatus = "expired"
)

// OpenPickupStatuses: статусы, в которых выдача удерживает зарезервированные единицы.
var OpenPickupStatuses = []PickupStatus{PickupPending, PickupTransferRequested, PickupReturnRequested}

func (s PickupStatus) IsOpen() bool {
	for _, o := range OpenPickupStatuses {
		if s == o {
			return true
		}
	}
	return false
}

// pickupTransitions: разрешённые ручные и автоматические переходы.
var pickupTransitions = map[PickupStatus][]PickupStatus{
	PickupPending:           {PickupSold, PickupTransferRequested, PickupReturnRequested, PickupExpired},
	PickupTransferRequested: {PickupTransferred, PickupPending},
	PickupReturnRequested:   {PickupReturned, PickupPending},
}

func (s PickupStatus) CanTransition(to PickupStatus) bool {
	for _, t := range pickupTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

type Pickup struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey"`
	MarketerID uuid.UUID    `gorm:"type:uuid;not null;index:ix_pickups_marketer_status,priority:1"`
	DealerID   uuid.UUID    `gorm:"type:uuid;not null;index"`
	ProductID  uuid.UUID    `gorm:"type:uuid;not null;index"`
	Quantity   int32        `gorm:"not null"`
	Status     PickupStatus `gorm:"type:text;not null;default:'pending';index:ix_pickups_marketer_status,priority:2;index:ix_pickups_status_deadline,priority:1"`

	TransferTargetID        *uuid.UUID `gorm:"type:uuid;index"`
	TransferredToPickupID   *uuid.UUID `gorm:"type:uuid"`
	TransferredFromPickupID *uuid.UUID `gorm:"type:uuid"`

	CreatedAt  time.Time `gorm:"not null;index"`
	Deadline   time.Time `gorm:"not null;index:ix_pickups_status_deadline,priority:2"`
	ExpiredAt  *time.Time
	ResolvedAt *time.Time
	UpdatedAt  time.Time `gorm:"not null"`
}

func (Pickup) TableName() string { return "pickups" }

// PickupAllowance: потолок одновременно открытых выдач маркетолога.
type PickupAllowance struct {
	MarketerID uuid.UUID `gorm:"type:uuid;primaryKey"`
	MaxOpen    int32     `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (PickupAllowance) TableName() string { return "pickup_allowances" }

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type ExtraPickupRequest struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey"`
	MarketerID uuid.UUID     `gorm:"type:uuid;not null;index"`
	Status     RequestStatus `gorm:"type:text;not null;default:'pending';index"`
	ReviewedBy *uuid.UUID    `gorm:"type:uuid"`
	ReviewedAt *time.Time

	CreatedAt time.Time `gorm:"not null;index"`
}

func (ExtraPickupRequest) TableName() string { return "extra_pickup_requests" }

type OrderStatus string

const (
	OrderPending           OrderStatus = "pending"
	OrderReleasedConfirmed OrderStatus = "released_confirmed"
	OrderCancelled         OrderStatus = "cancelled"
)

type Order struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey"`
	PickupID        uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex"`
	MarketerID      uuid.UUID   `gorm:"type:uuid;not null;index"`
	DealerID        uuid.UUID   `gorm:"type:uuid;not null"`
	ProductID       uuid.UUID   `gorm:"type:uuid;not null;index"`
	Quantity        int32       `gorm:"not null"`
	SoldAmountCents int64       `gorm:"not null"`
	UnitPriceCents  int64       `gorm:"not null;default:0"`
	ListAmountCents int64       `gorm:"not null;default:0"`
	Status          OrderStatus `gorm:"type:text;not null;default:'pending';index"`
	SaleDate        time.Time   `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

// Wallet: один кошелёк на пользователя. Меняется только через леджер.
type Wallet struct {
	UserID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	AvailableCents      int64     `gorm:"not null;default:0"`
	WithheldCents       int64     `gorm:"not null;default:0"`
	TotalWithdrawnCents int64     `gorm:"not null;default:0"`
	UpdatedAt           time.Time `gorm:"not null"`
}

func (Wallet) TableName() string { return "wallets" }

type CreditStatus string

const (
	CreditWithheld CreditStatus = "withheld"
	CreditReleased CreditStatus = "released"
)

// CommissionCredit: удержанное начисление комиссии. Переходит в released ровно один раз.
type CommissionCredit struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID    `gorm:"type:uuid;not null;index;uniqueIndex:ux_credits_order_user,priority:2"`
	OrderID     uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:ux_credits_order_user,priority:1"`
	Tier        Role         `gorm:"type:text;not null"`
	AmountCents int64        `gorm:"not null"`
	Status      CreditStatus `gorm:"type:text;not null;default:'withheld';index:ix_credits_status_maturity,priority:1"`
	MaturesAt   time.Time    `gorm:"not null;index:ix_credits_status_maturity,priority:2"`
	ReleasedAt  *time.Time

	CreatedAt time.Time `gorm:"not null"`
}

func (CommissionCredit) TableName() string { return "commission_credits" }

type WithdrawalRequest struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID     `gorm:"type:uuid;not null;index"`
	AmountCents int64         `gorm:"not null"`
	Status      RequestStatus `gorm:"type:text;not null;default:'pending';index"`
	Note        string        `gorm:"type:text"`
	RequestedAt time.Time     `gorm:"not null;index"`
	ReviewedBy  *uuid.UUID    `gorm:"type:uuid"`
	ReviewedAt  *time.Time
}

func (WithdrawalRequest) TableName() string { return "withdrawal_requests" }

type LedgerKind string

const (
	LedgerCommissionWithheld LedgerKind = "commission_withheld"
	LedgerCommissionReleased LedgerKind = "commission_released"
	LedgerWithdrawal         LedgerKind = "withdrawal"
)

// LedgerEntry: журнал движений по кошельку, только вставка.
type LedgerEntry struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index:ix_ledger_user_created,priority:1"`
	Kind           LedgerKind `gorm:"type:text;not null"`
	AvailableDelta int64      `gorm:"not null;default:0"`
	WithheldDelta  int64      `gorm:"not null;default:0"`
	RefID          uuid.UUID  `gorm:"type:uuid;not null;index"`

	CreatedAt time.Time `gorm:"not null;index:ix_ledger_user_created,priority:2"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// Идентификаторы генерируются на стороне приложения, чтобы схема не зависела от pgcrypto.

func (m *User) BeforeCreate(*gorm.DB) error               { ensureID(&m.ID); return nil }
func (m *Dealer) BeforeCreate(*gorm.DB) error             { ensureID(&m.ID); return nil }
func (m *Product) BeforeCreate(*gorm.DB) error            { ensureID(&m.ID); return nil }
func (m *InventoryItem) BeforeCreate(*gorm.DB) error      { ensureID(&m.ID); return nil }
func (m *Pickup) BeforeCreate(*gorm.DB) error             { ensureID(&m.ID); return nil }
func (m *ExtraPickupRequest) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
func (m *Order) BeforeCreate(*gorm.DB) error              { ensureID(&m.ID); return nil }
func (m *CommissionCredit) BeforeCreate(*gorm.DB) error   { ensureID(&m.ID); return nil }
func (m *WithdrawalRequest) BeforeCreate(*gorm.DB) error  { ensureID(&m.ID); return nil }
func (m *LedgerEntry) BeforeCreate(*gorm.DB) error        { ensureID(&m.ID); return nil }

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
