package service

import (
	"errors"
	"fmt"

	"pickup-service/internal/models"
)

// Виды ошибок. Конкретные ошибки оборачивают вид, проверка через errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrAllowanceExceeded   = errors.New("allowance exceeded")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrState               = errors.New("invalid state")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

var (
	ErrInvalidQuantity     = fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be > 0", ErrValidation)
	ErrInsufficientBalance = fmt.Errorf("%w: amount exceeds available balance", ErrValidation)
	ErrSelfTransfer        = fmt.Errorf("%w: cannot transfer pickup to yourself", ErrValidation)
	ErrInvalidTransferPeer = fmt.Errorf("%w: transfer target must be a marketer", ErrValidation)
	ErrInactiveProduct     = fmt.Errorf("%w: product is inactive", ErrValidation)
	ErrInvalidRole         = fmt.Errorf("%w: unknown role", ErrValidation)

	ErrPickupNotFound     = fmt.Errorf("%w: pickup", ErrNotFound)
	ErrDealerNotFound     = fmt.Errorf("%w: dealer", ErrNotFound)
	ErrProductNotFound    = fmt.Errorf("%w: product", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)
	ErrOrderNotFound      = fmt.Errorf("%w: order", ErrNotFound)
	ErrRequestNotFound    = fmt.Errorf("%w: extra allowance request", ErrNotFound)
	ErrWithdrawalNotFound = fmt.Errorf("%w: withdrawal request", ErrNotFound)

	ErrExtraRequestPending = fmt.Errorf("%w: extra allowance request already pending", ErrState)
	ErrAllowanceRaised     = fmt.Errorf("%w: allowance already raised", ErrState)
	ErrAlreadyReviewed     = fmt.Errorf("%w: request already reviewed", ErrState)
)

func pickupStateError(action string, current models.PickupStatus) error {
	return fmt.Errorf("%w: cannot %s pickup in status %s", ErrState, action, current)
}
