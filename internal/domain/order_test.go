package domain

import (
	"testing"
	"time"
)

func validOrder() *Order {
	return &Order{
		ID:            "order-123",
		EventID:       "event-456",
		CustomerEmail: "jane@example.com",
		CustomerName:  "Jane Doe",
		Status:        OrderStatusPending,
		Subtotal:      NewMoney(4825, "USD"),
		Fee:           NewMoney(175, "USD"),
		TotalAmount:   NewMoney(5000, "USD"),
		RefundAmount:  Zero("USD"),
		Items: []*OrderItem{
			{
				ID:           "item-1",
				OrderID:      "order-123",
				TicketTypeID: "tt-1",
				Quantity:     2,
				UnitPrice:    NewMoney(1500, "USD"),
			},
		},
		ExpiresAt: time.Now().Add(15 * time.Minute),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestOrderStatus_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status OrderStatus
		want   bool
	}{
		{"pending is valid", OrderStatusPending, true},
		{"completed is valid", OrderStatusCompleted, true},
		{"failed is valid", OrderStatusFailed, true},
		{"cancelled is valid", OrderStatusCancelled, true},
		{"unknown is invalid", OrderStatus("refunded"), false},
		{"empty is invalid", OrderStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.want {
				t.Errorf("OrderStatus.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrderStatus_IsFinal(t *testing.T) {
	if OrderStatusPending.IsFinal() {
		t.Error("pending should not be final")
	}
	for _, s := range []OrderStatus{OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled} {
		if !s.IsFinal() {
			t.Errorf("%v should be final", s)
		}
	}
}

func TestOrder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Order)
		wantErr error
	}{
		{"valid order", func(o *Order) {}, nil},
		{"missing id", func(o *Order) { o.ID = "" }, ErrInvalidOrderID},
		{"missing event", func(o *Order) { o.EventID = "" }, ErrInvalidEventID},
		{"no customer identity", func(o *Order) { o.CustomerEmail = ""; o.CustomerName = "" }, ErrMissingCustomer},
		{"user id satisfies identity", func(o *Order) {
			o.CustomerEmail = ""
			o.CustomerName = ""
			o.UserID = "user-1"
		}, nil},
		{"empty cart", func(o *Order) { o.Items = nil }, ErrEmptyCart},
		{"zero quantity line", func(o *Order) { o.Items[0].Quantity = 0 }, ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOrder()
			tt.modify(o)
			if err := o.Validate(); err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOrder_Complete(t *testing.T) {
	o := validOrder()
	if err := o.Complete("pi_abc123"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if o.Status != OrderStatusCompleted {
		t.Errorf("Status = %v, want completed", o.Status)
	}
	if o.PaymentRef != "pi_abc123" {
		t.Errorf("PaymentRef = %v, want pi_abc123", o.PaymentRef)
	}
	if o.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}

	// Second transition must be rejected
	if err := o.Complete("pi_other"); err != ErrOrderNotPending {
		t.Errorf("second Complete() error = %v, want ErrOrderNotPending", err)
	}
	if o.PaymentRef != "pi_abc123" {
		t.Error("duplicate Complete() must not overwrite the payment ref")
	}
}

func TestOrder_Fail(t *testing.T) {
	o := validOrder()
	if err := o.Fail("card declined"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	if o.Status != OrderStatusFailed {
		t.Errorf("Status = %v, want failed", o.Status)
	}
	if o.StatusReason != "card declined" {
		t.Errorf("StatusReason = %v", o.StatusReason)
	}

	if err := o.Complete("pi_late"); err != ErrOrderNotPending {
		t.Errorf("Complete() after Fail() error = %v, want ErrOrderNotPending", err)
	}
}

func TestOrder_Cancel(t *testing.T) {
	o := validOrder()
	if err := o.Cancel("reservation hold expired"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if o.Status != OrderStatusCancelled {
		t.Errorf("Status = %v, want cancelled", o.Status)
	}

	o2 := validOrder()
	o2.Status = OrderStatusCompleted
	if err := o2.Cancel("late"); err != ErrOrderNotPending {
		t.Errorf("Cancel() on completed error = %v, want ErrOrderNotPending", err)
	}
}

func TestOrder_ApplyRefund(t *testing.T) {
	tests := []struct {
		name       string
		status     OrderStatus
		refunded   int64
		amount     Money
		wantErr    error
		wantRefund int64
	}{
		{"first refund", OrderStatusCompleted, 0, NewMoney(4970, "USD"), nil, 4970},
		{"top-up to total", OrderStatusCompleted, 4970, NewMoney(30, "USD"), nil, 5000},
		{"exceeds total", OrderStatusCompleted, 4970, NewMoney(31, "USD"), ErrRefundExceedsTotal, 4970},
		{"zero amount", OrderStatusCompleted, 0, Zero("USD"), ErrRefundAmountInvalid, 0},
		{"wrong currency", OrderStatusCompleted, 0, NewMoney(100, "EUR"), ErrCurrencyMismatch, 0},
		{"pending order", OrderStatusPending, 0, NewMoney(100, "USD"), ErrOrderNotCompleted, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOrder()
			o.Status = tt.status
			o.RefundAmount = NewMoney(tt.refunded, "USD")

			if err := o.ApplyRefund(tt.amount); err != tt.wantErr {
				t.Fatalf("ApplyRefund() error = %v, want %v", err, tt.wantErr)
			}
			if o.RefundAmount.Amount != tt.wantRefund {
				t.Errorf("RefundAmount = %v, want %v", o.RefundAmount.Amount, tt.wantRefund)
			}
		})
	}
}

func TestOrder_RemainingBalance(t *testing.T) {
	o := validOrder()
	o.Status = OrderStatusCompleted
	o.RefundAmount = NewMoney(4970, "USD")

	if got := o.RemainingBalance(); got.Amount != 30 {
		t.Errorf("RemainingBalance() = %v, want 30", got.Amount)
	}
	if o.IsFullyRefunded() {
		t.Error("order with remaining balance should not be fully refunded")
	}

	o.RefundAmount = NewMoney(5000, "USD")
	if !o.IsFullyRefunded() {
		t.Error("order refunded to total should be fully refunded")
	}
}

func TestOrderItem_LineTotal(t *testing.T) {
	item := &OrderItem{Quantity: 3, UnitPrice: NewMoney(1500, "USD")}
	if got := item.LineTotal(); got.Amount != 4500 {
		t.Errorf("LineTotal() = %v, want 4500", got.Amount)
	}
}
