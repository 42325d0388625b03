package order

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"insightmarket/payments-service/pkg/paging"
)

// HistoryEntry is one completed purchase in the buyer's transaction history.
type HistoryEntry struct {
	OrderID       int64         `json:"orderId"`
	CorrelationID string        `json:"correlationId"`
	BuyerName     string        `json:"buyerName"`
	TotalPrice    int           `json:"totalPrice"`
	OrderName     string        `json:"orderName"`
	CreatedAt     time.Time     `json:"createdAt"`
	ReceiptURL    string        `json:"receiptUrl"`
	Items         []HistoryItem `json:"orderItems"`
}

// HistoryItem is rendered from the item's creation-time snapshot, so history
// stays stable when catalog prices change later.
type HistoryItem struct {
	SolutionID  int64  `json:"solutionId"`
	Title       string `json:"title"`
	Price       int    `json:"price"`
	Quantity    int    `json:"quantity"`
	ProjectName string `json:"projectName"`
}

// HistoryService is the read-only view over completed orders. Pending and
// failed orders never appear regardless of filters.
type HistoryService struct {
	repo   Repository
	logger *slog.Logger
}

func NewHistoryService(repo Repository, logger *slog.Logger) *HistoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryService{repo: repo, logger: logger}
}

// List returns one page of the buyer's completed orders. Pages are 1-based; a
// page past the available range yields an empty list with the real total.
func (s *HistoryService) List(ctx context.Context, buyer Buyer, req paging.Request) (paging.Response[HistoryEntry], error) {
	req = req.Normalized()

	params := ListParams{
		BuyerID: buyer.ID,
		Sort:    ParseSort(req.Sort),
		Offset:  req.Offset(),
		Limit:   req.Size,
	}
	if from, to, ok := req.DateBounds(); ok {
		params.From = &from
		params.To = &to
	}

	orders, total, err := s.repo.ListCompleted(ctx, params)
	if err != nil {
		return paging.Response[HistoryEntry]{}, fmt.Errorf("list completed orders: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(orders))
	for _, o := range orders {
		entries = append(entries, toHistoryEntry(o))
	}

	return paging.NewResponse(entries, total, req), nil
}

// SolutionPurchased reports whether the buyer owns the solution through a
// completed order.
func (s *HistoryService) SolutionPurchased(ctx context.Context, buyer Buyer, solutionID int64) (bool, error) {
	return s.repo.SolutionPurchasedByBuyer(ctx, solutionID, buyer.ID)
}

func toHistoryEntry(o Order) HistoryEntry {
	items := make([]HistoryItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, HistoryItem{
			SolutionID:  it.SolutionID,
			Title:       it.Title,
			Price:       it.Price,
			Quantity:    it.Quantity,
			ProjectName: it.ProjectName,
		})
	}

	return HistoryEntry{
		OrderID:       o.ID,
		CorrelationID: o.CorrelationID,
		BuyerName:     o.BuyerName,
		TotalPrice:    o.TotalPrice,
		OrderName:     o.Name(),
		CreatedAt:     o.CreatedAt,
		ReceiptURL:    o.ReceiptURL,
		Items:         items,
	}
}
