package dto

import (
	"time"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
)

// RefundRequest represents a request to refund an order
type RefundRequest struct {
	Type   string `json:"type" binding:"required,oneof=full_cancellation customer_request"`
	Reason string `json:"reason,omitempty"`
}

// RefundQuoteResponse previews what a refund would return without
// executing it
type RefundQuoteResponse struct {
	OrderID              string   `json:"order_id"`
	Type                 string   `json:"type"`
	Eligible             MoneyDTO `json:"eligible"`
	AlreadyFullyRefunded bool     `json:"already_fully_refunded"`
	DisclosedFixedFee    MoneyDTO `json:"disclosed_fixed_fee"`
	DisclosedPercentFee  MoneyDTO `json:"disclosed_percent_fee"`
}

// RefundResponse represents an executed refund
type RefundResponse struct {
	RefundID     string   `json:"refund_id,omitempty"`
	OrderID      string   `json:"order_id"`
	Type         string   `json:"type"`
	Amount       MoneyDTO `json:"amount"`
	RefundAmount MoneyDTO `json:"refund_amount"`
	NetAmount    MoneyDTO `json:"net_amount"`
	NothingToRefund bool  `json:"nothing_to_refund,omitempty"`
	GatewayRef   string   `json:"gateway_ref,omitempty"`
}

// RefundRecordDTO represents one refund audit row
type RefundRecordDTO struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	Type       string    `json:"type"`
	Amount     MoneyDTO  `json:"amount"`
	Reason     string    `json:"reason,omitempty"`
	GatewayRef string    `json:"gateway_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// RefundRecordFromDomain converts a domain RefundRecord to its wire form
func RefundRecordFromDomain(r *domain.RefundRecord) RefundRecordDTO {
	return RefundRecordDTO{
		ID:         r.ID,
		OrderID:    r.OrderID,
		Type:       r.Type.String(),
		Amount:     MoneyFromDomain(r.Amount),
		Reason:     r.Reason,
		GatewayRef: r.GatewayRef,
		CreatedAt:  r.CreatedAt,
	}
}
