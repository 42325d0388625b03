package order

import (
	"context"
	"time"
)

// Buyer is the authenticated identity supplied by the caller. No
// authentication happens in this module.
type Buyer struct {
	ID   int64
	Name string
}

// ItemRequest is one requested line of a checkout. It deliberately carries no
// price: prices are resolved from the catalog only.
type ItemRequest struct {
	SolutionID int64 `json:"solutionId"`
	Quantity   int   `json:"quantity"`
}

// Solution is the catalog view consumed by order preparation.
type Solution struct {
	ID          int64
	ProjectID   int64
	ProjectName string
	Title       string
	Price       int
	Purchased   bool
}

// SolutionCatalog is the authoritative price/title lookup.
type SolutionCatalog interface {
	FindByID(ctx context.Context, id int64) (Solution, error)
}

// Payment is the gateway's authoritative record for one correlation id.
type Payment struct {
	Status     string        `json:"status"`
	Amount     PaymentAmount `json:"amount"`
	ReceiptURL string        `json:"receiptUrl"`
}

type PaymentAmount struct {
	Total int `json:"total"`
}

// PaymentGateway queries and cancels payment records by correlation id. Both
// calls block with a bounded timeout; failures surface as
// ErrGatewayUnavailable.
type PaymentGateway interface {
	GetPayment(ctx context.Context, correlationID string) (Payment, error)
	Cancel(ctx context.Context, correlationID, reason string) error
}

type Sort string

const (
	SortLatest    Sort = "latest"
	SortPriceHigh Sort = "pricehigh"
	SortPriceLow  Sort = "pricelow"
)

// ParseSort maps a request parameter onto a known sort, defaulting to latest.
func ParseSort(s string) Sort {
	switch Sort(s) {
	case SortPriceHigh, SortPriceLow:
		return Sort(s)
	default:
		return SortLatest
	}
}

// ListParams scopes a completed-order history read.
type ListParams struct {
	BuyerID int64
	From    *time.Time
	To      *time.Time
	Sort    Sort
	Offset  int
	Limit   int
}

// Repository persists the order aggregate. Every method is one atomic unit:
// either all of its writes commit or none do. CompleteOrder and FailOrder
// serialize the pending -> terminal transition with a compare-and-swap and
// return ErrAlreadyFinalized to the loser.
type Repository interface {
	// CreateOrder inserts the order and all its items, filling in generated
	// ids and the creation timestamp.
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id int64) (*Order, error)
	// DeleteOrder removes a pending order and cascades its items.
	DeleteOrder(ctx context.Context, id int64) error
	// CompleteOrder transitions pending -> completed, stores the receipt URL,
	// flips purchased on every referenced solution and records the completion
	// event, all in one transaction.
	CompleteOrder(ctx context.Context, id int64, receiptURL string) error
	// FailOrder transitions pending -> failed and records the failure event.
	FailOrder(ctx context.Context, id int64, reason string) error
	// ListCompleted returns one page of completed orders plus the total count
	// matching the filter.
	ListCompleted(ctx context.Context, p ListParams) ([]Order, int64, error)
	// SolutionPurchasedByBuyer reports whether the buyer has a completed
	// order containing the solution.
	SolutionPurchasedByBuyer(ctx context.Context, solutionID, buyerID int64) (bool, error)
}

// StatusNotifier pushes a status transition to interested subscribers.
type StatusNotifier interface {
	NotifyStatus(orderID int64, status Status)
}
