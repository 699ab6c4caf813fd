package domain

import "errors"

// Domain errors
var (
	// Order errors
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNotPending    = errors.New("order is not pending")
	ErrOrderNotCompleted  = errors.New("order is not completed")
	ErrInvalidOrderStatus = errors.New("invalid order status")

	// Inventory errors
	ErrSoldOut             = errors.New("not enough tickets available")
	ErrSaleNotStarted      = errors.New("ticket sales have not started")
	ErrSaleEnded           = errors.New("ticket sales have ended")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationExpired  = errors.New("reservation has expired")
	ErrAlreadyConfirmed    = errors.New("reservation already confirmed")
	// The availability counter could not be seeded; retryable, not a sell-out
	ErrInventoryUnavailable = errors.New("ticket inventory is unavailable")

	// Validation errors
	ErrInvalidOrderID      = errors.New("invalid order id")
	ErrInvalidEventID      = errors.New("invalid event id")
	ErrInvalidTicketTypeID = errors.New("invalid ticket type id")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrEmptyCart           = errors.New("cart must contain at least one line")
	ErrMissingCustomer     = errors.New("customer identity is required")
	ErrTicketTypeMismatch  = errors.New("ticket type does not belong to event")
	ErrCurrencyMismatch    = errors.New("currency mismatch")

	// Ticket type / event errors
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrEventCancelled     = errors.New("event has been cancelled")

	// Refund errors
	ErrRefundNotEligible   = errors.New("order is not eligible for refund")
	ErrRefundExceedsTotal  = errors.New("refund amount exceeds order total")
	ErrInvalidRefundType   = errors.New("invalid refund type")
	ErrRefundAmountInvalid = errors.New("refund amount must be positive")

	// Payment errors
	ErrPaymentDeclined    = errors.New("payment was declined")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrTicketTypeNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrTicketNotFound) ||
		errors.Is(err, ErrReservationNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidOrderID) ||
		errors.Is(err, ErrInvalidEventID) ||
		errors.Is(err, ErrInvalidTicketTypeID) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrMissingCustomer) ||
		errors.Is(err, ErrTicketTypeMismatch) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrInvalidRefundType) ||
		errors.Is(err, ErrRefundAmountInvalid)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSoldOut) ||
		errors.Is(err, ErrEventCancelled) ||
		errors.Is(err, ErrAlreadyConfirmed) ||
		errors.Is(err, ErrOrderNotPending) ||
		errors.Is(err, ErrOrderNotCompleted) ||
		errors.Is(err, ErrRefundExceedsTotal)
}

// IsTransientGatewayError checks if the error is worth retrying against
// the payment gateway. Declines are final; outages are not.
func IsTransientGatewayError(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable)
}

// IsSaleWindowError checks if the error is a sale-window error
func IsSaleWindowError(err error) bool {
	return errors.Is(err, ErrSaleNotStarted) ||
		errors.Is(err, ErrSaleEnded)
}
