package domain

import "time"

// Event represents the event an order is placed against. The engine only
// needs the fields that drive refund eligibility and confirmation display.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Venue       string    `json:"venue,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Cancelled   bool      `json:"cancelled"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasStarted checks if the event has started
func (e *Event) HasStarted() bool {
	return time.Now().After(e.StartTime)
}

// RefundCutoffPassed checks whether the request falls inside the
// non-refundable window before the event start. A cancelled event has no
// cutoff.
func (e *Event) RefundCutoffPassed(now time.Time, cutoff time.Duration) bool {
	if e.Cancelled {
		return false
	}
	return now.After(e.StartTime.Add(-cutoff))
}
