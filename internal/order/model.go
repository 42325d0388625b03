package order

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Order is the purchase record for one checkout attempt. TotalPrice is the
// catalog-derived sum fixed at creation; Items carry title/price snapshots
// taken at the same moment and are never re-read from the catalog.
type Order struct {
	ID            int64     `json:"id"`
	CorrelationID string    `json:"correlation_id"`
	BuyerID       int64     `json:"buyer_id"`
	BuyerName     string    `json:"buyer_name"`
	ProjectID     int64     `json:"project_id"`
	TotalPrice    int       `json:"total_price"`
	ReceiptURL    string    `json:"receipt_url,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	Items         []Item    `json:"items"`
}

// Item is owned by its order and deleted with it. Title, Price and
// ProjectName are snapshots; SolutionID is a weak reference back to the
// catalog row.
type Item struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	SolutionID  int64  `json:"solution_id"`
	Title       string `json:"title"`
	Price       int    `json:"price"`
	ProjectName string `json:"project_name"`
	Quantity    int    `json:"quantity"`
}

// Complete moves a pending order to its completed terminal state and records
// the gateway receipt.
func (o *Order) Complete(receiptURL string) error {
	if o.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, StatusCompleted)
	}
	o.Status = StatusCompleted
	o.ReceiptURL = receiptURL
	return nil
}

// Fail moves a pending order to its failed terminal state.
func (o *Order) Fail() error {
	if o.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, StatusFailed)
	}
	o.Status = StatusFailed
	return nil
}

// Name composes the display name shown on the payment window: the first
// item's title, suffixed with the number of remaining items.
func (o *Order) Name() string {
	if len(o.Items) == 0 {
		return ""
	}
	return composeOrderName(o.Items[0].Title, len(o.Items))
}

func composeOrderName(firstTitle string, itemCount int) string {
	if itemCount > 1 {
		return fmt.Sprintf("%s and %d more", firstTitle, itemCount-1)
	}
	return firstTitle
}
