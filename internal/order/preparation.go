package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"insightmarket/payments-service/pkg/metrics"

	"github.com/google/uuid"
)

// correlation-id collisions are vanishingly rare with 8 hex chars, but the
// storage unique constraint makes them possible, so Prepare retries a fresh
// token a few times before giving up.
const maxCorrelationAttempts = 3

// OrderSummary is returned to the client to open the gateway payment window.
type OrderSummary struct {
	OrderID       int64  `json:"orderId"`
	CorrelationID string `json:"correlationId"`
	TotalAmount   int    `json:"totalAmount"`
	OrderName     string `json:"orderName"`
	BuyerName     string `json:"buyerName"`
}

// PreparationService builds a pending order from requested catalog items.
// Prices always come from the catalog; nothing in the request payload is
// trusted for money.
type PreparationService struct {
	repo    Repository
	catalog SolutionCatalog
	metrics *metrics.PaymentMetrics
	logger  *slog.Logger
}

func NewPreparationService(repo Repository, catalog SolutionCatalog, m *metrics.PaymentMetrics, logger *slog.Logger) *PreparationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreparationService{repo: repo, catalog: catalog, metrics: m, logger: logger}
}

// Prepare resolves every requested solution against the catalog, snapshots
// title and price into order items, and persists the pending order and its
// items in one atomic write. No external call is made.
func (s *PreparationService) Prepare(ctx context.Context, buyer Buyer, projectID int64, reqs []ItemRequest) (OrderSummary, error) {
	if len(reqs) == 0 {
		return OrderSummary{}, fmt.Errorf("order must contain at least one item")
	}

	var (
		total int
		items = make([]Item, 0, len(reqs))
	)
	for _, req := range reqs {
		if req.Quantity < 1 {
			return OrderSummary{}, fmt.Errorf("quantity must be at least 1 for solution %d", req.SolutionID)
		}

		sol, err := s.catalog.FindByID(ctx, req.SolutionID)
		if err != nil {
			return OrderSummary{}, fmt.Errorf("resolve solution %d: %w", req.SolutionID, err)
		}

		items = append(items, Item{
			SolutionID:  sol.ID,
			Title:       sol.Title,
			Price:       sol.Price,
			ProjectName: sol.ProjectName,
			Quantity:    req.Quantity,
		})
		total += sol.Price * req.Quantity
	}

	o := &Order{
		BuyerID:    buyer.ID,
		BuyerName:  buyer.Name,
		ProjectID:  projectID,
		TotalPrice: total,
		Status:     StatusPending,
		Items:      items,
	}

	for attempt := 1; ; attempt++ {
		o.CorrelationID = newCorrelationID()
		err := s.repo.CreateOrder(ctx, o)
		if err == nil {
			break
		}
		if errors.Is(err, ErrCorrelationIDTaken) && attempt < maxCorrelationAttempts {
			s.logger.Warn("correlation id collision, regenerating",
				"correlation_id", o.CorrelationID, "attempt", attempt)
			continue
		}
		return OrderSummary{}, fmt.Errorf("create order: %w", err)
	}

	s.metrics.ObservePrepared()
	s.logger.Info("order prepared",
		"order_id", o.ID,
		"correlation_id", o.CorrelationID,
		"buyer_id", buyer.ID,
		"total", total,
		"items", len(items))

	return OrderSummary{
		OrderID:       o.ID,
		CorrelationID: o.CorrelationID,
		TotalAmount:   total,
		OrderName:     o.Name(),
		BuyerName:     buyer.Name,
	}, nil
}

// RemoveOrder deletes a pending order, cascading its items. Orders in a
// terminal state are rejected with ErrOrderNotPending.
func (s *PreparationService) RemoveOrder(ctx context.Context, orderID int64) error {
	if err := s.repo.DeleteOrder(ctx, orderID); err != nil {
		return err
	}
	s.logger.Info("pending order removed", "order_id", orderID)
	return nil
}

func newCorrelationID() string {
	return "ORD-" + uuid.NewString()[:8]
}
