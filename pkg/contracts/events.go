package contracts

import "time"

const (
	OrderCompletedType = "order.completed"
	OrderFailedType    = "order.failed"
)

type OrderCompletedEvent struct {
	EventID       string    `json:"event_id"`
	OrderID       int64     `json:"order_id"`
	CorrelationID string    `json:"correlation_id"`
	BuyerID       int64     `json:"buyer_id"`
	TotalPrice    int       `json:"total_price"`
	ReceiptURL    string    `json:"receipt_url"`
	CompletedAt   time.Time `json:"completed_at"`
}

type OrderFailedEvent struct {
	EventID       string    `json:"event_id"`
	OrderID       int64     `json:"order_id"`
	CorrelationID string    `json:"correlation_id"`
	BuyerID       int64     `json:"buyer_id"`
	TotalPrice    int       `json:"total_price"`
	Reason        string    `json:"reason"`
	FailedAt      time.Time `json:"failed_at"`
}
