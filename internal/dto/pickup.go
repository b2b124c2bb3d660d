package dto

type CreatePickupRequest struct {
	DealerID  string `json:"dealer_id" binding:"required,uuid"`
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int32  `json:"quantity" binding:"required,gt=0"`
}

type TransferRequest struct {
	TargetMarketerID string `json:"target_marketer_id" binding:"required,uuid"`
}

type PlaceOrderRequest struct {
	SoldAmountCents int64  `json:"sold_amount_cents" binding:"required,gt=0"`
	SaleDate        string `json:"sale_date,omitempty"` // RFC3339
}

type ReviewRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note,omitempty"`
}

type WithdrawalRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Note        string `json:"note,omitempty"`
}

type ListResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}
