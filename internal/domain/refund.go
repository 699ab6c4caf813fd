package domain

import "time"

// RefundType represents why a refund is being issued
type RefundType string

const (
	// RefundTypeFullCancellation is used when the event itself was
	// cancelled; the full remaining balance is returned.
	RefundTypeFullCancellation RefundType = "full_cancellation"
	// RefundTypeCustomerRequest is a customer-initiated refund; the fixed
	// processing fee is withheld.
	RefundTypeCustomerRequest RefundType = "customer_request"
)

// IsValid checks if the refund type is known
func (t RefundType) IsValid() bool {
	switch t {
	case RefundTypeFullCancellation, RefundTypeCustomerRequest:
		return true
	}
	return false
}

// String returns the string representation of RefundType
func (t RefundType) String() string {
	return string(t)
}

// RefundRecord is the append-only audit row for one applied refund
type RefundRecord struct {
	ID         string     `json:"id"`
	OrderID    string     `json:"order_id"`
	Type       RefundType `json:"type"`
	Amount     Money      `json:"amount"`
	Reason     string     `json:"reason,omitempty"`
	GatewayRef string     `json:"gateway_ref,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RefundComputation is the result of the refund calculator. Eligible is
// the amount the gateway will be asked to return; the fee fields are
// disclosure values for display and are never subtracted twice.
type RefundComputation struct {
	Type                 RefundType `json:"type"`
	Eligible             Money      `json:"eligible"`
	AlreadyFullyRefunded bool       `json:"already_fully_refunded"`
	DisclosedFixedFee    Money      `json:"disclosed_fixed_fee"`
	DisclosedPercentFee  Money      `json:"disclosed_percent_fee"`
}

// ComputeRefund determines how much of an order can still be refunded.
// Pure: it reads only its inputs and mutates nothing.
//
// When the event is cancelled the refund type is forced to
// full_cancellation and the entire remaining balance is eligible. A
// customer request withholds the fixed processing fee once; the
// percentage fee is disclosed but not deducted. A fully refunded order
// yields a zero-eligible result flagged AlreadyFullyRefunded, which
// callers treat as terminal rather than as an error.
//
// The refundability window gate is the caller's job; this function
// trusts the refund type it is given.
func ComputeRefund(order *Order, eventCancelled bool, requested RefundType, fees FeeSchedule) RefundComputation {
	currency := order.TotalAmount.Currency
	remaining := order.RemainingBalance()

	comp := RefundComputation{
		Type:                requested,
		Eligible:            Zero(currency),
		DisclosedFixedFee:   fees.Fixed(currency),
		DisclosedPercentFee: fees.PercentFee(order.TotalAmount),
	}

	if eventCancelled {
		comp.Type = RefundTypeFullCancellation
	}

	if !remaining.IsPositive() {
		comp.AlreadyFullyRefunded = true
		return comp
	}

	switch comp.Type {
	case RefundTypeFullCancellation:
		comp.Eligible = remaining
	default:
		eligible := remaining.Amount - fees.FixedFee
		if eligible < 0 {
			eligible = 0
		}
		comp.Eligible = Money{Amount: eligible, Currency: currency}
	}

	return comp
}
