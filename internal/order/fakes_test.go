package order_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"insightmarket/payments-service/internal/order"
)

// fakeRepo is an in-memory order.Repository mirroring the storage layer's
// transition semantics, including the pending -> terminal compare-and-swap.
type fakeRepo struct {
	mu        sync.Mutex
	orders    map[int64]*order.Order
	purchased map[int64]bool
	nextID    int64

	createErrs  []error
	completeErr error
	failErr     error

	lastList order.ListParams
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:    make(map[int64]*order.Order),
		purchased: make(map[int64]bool),
	}
}

func (r *fakeRepo) CreateOrder(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}

	for _, existing := range r.orders {
		if existing.CorrelationID == o.CorrelationID {
			return order.ErrCorrelationIDTaken
		}
	}

	r.nextID++
	o.ID = r.nextID
	o.CreatedAt = time.Now().UTC()
	for i := range o.Items {
		r.nextID++
		o.Items[i].ID = r.nextID
		o.Items[i].OrderID = o.ID
	}

	stored := *o
	stored.Items = append([]order.Item(nil), o.Items...)
	r.orders[o.ID] = &stored
	return nil
}

func (r *fakeRepo) GetOrder(_ context.Context, id int64) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	return &cp, nil
}

func (r *fakeRepo) DeleteOrder(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status != order.StatusPending {
		return fmt.Errorf("%w: status %s", order.ErrOrderNotPending, o.Status)
	}
	delete(r.orders, id)
	return nil
}

func (r *fakeRepo) CompleteOrder(_ context.Context, id int64, receiptURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.completeErr != nil {
		return r.completeErr
	}

	o, ok := r.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status != order.StatusPending {
		return order.ErrAlreadyFinalized
	}

	o.Status = order.StatusCompleted
	o.ReceiptURL = receiptURL
	for _, it := range o.Items {
		r.purchased[it.SolutionID] = true
	}
	return nil
}

func (r *fakeRepo) FailOrder(_ context.Context, id int64, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failErr != nil {
		return r.failErr
	}

	o, ok := r.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status != order.StatusPending {
		return order.ErrAlreadyFinalized
	}

	o.Status = order.StatusFailed
	return nil
}

func (r *fakeRepo) ListCompleted(_ context.Context, p order.ListParams) ([]order.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastList = p

	var matched []order.Order
	for _, o := range r.orders {
		if o.BuyerID != p.BuyerID || o.Status != order.StatusCompleted {
			continue
		}
		if p.From != nil && o.CreatedAt.Before(*p.From) {
			continue
		}
		if p.To != nil && o.CreatedAt.After(*p.To) {
			continue
		}
		cp := *o
		cp.Items = append([]order.Item(nil), o.Items...)
		matched = append(matched, cp)
	}

	switch p.Sort {
	case order.SortPriceHigh:
		sort.Slice(matched, func(i, j int) bool { return matched[i].TotalPrice > matched[j].TotalPrice })
	case order.SortPriceLow:
		sort.Slice(matched, func(i, j int) bool { return matched[i].TotalPrice < matched[j].TotalPrice })
	default:
		sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	}

	total := int64(len(matched))
	if p.Offset >= len(matched) {
		return nil, total, nil
	}
	end := p.Offset + p.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[p.Offset:end], total, nil
}

func (r *fakeRepo) SolutionPurchasedByBuyer(_ context.Context, solutionID, buyerID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.orders {
		if o.BuyerID != buyerID || o.Status != order.StatusCompleted {
			continue
		}
		for _, it := range o.Items {
			if it.SolutionID == solutionID {
				return true, nil
			}
		}
	}
	return false, nil
}

type fakeCatalog struct {
	solutions map[int64]order.Solution
}

func (c *fakeCatalog) FindByID(_ context.Context, id int64) (order.Solution, error) {
	sol, ok := c.solutions[id]
	if !ok {
		return order.Solution{}, order.ErrSolutionNotFound
	}
	return sol, nil
}

type fakeGateway struct {
	payment order.Payment
	getErr  error

	cancelErr     error
	getCalls      int
	cancelCalls   int
	cancelReasons []string
}

func (g *fakeGateway) GetPayment(_ context.Context, _ string) (order.Payment, error) {
	g.getCalls++
	if g.getErr != nil {
		return order.Payment{}, g.getErr
	}
	return g.payment, nil
}

func (g *fakeGateway) Cancel(_ context.Context, _ string, reason string) error {
	g.cancelCalls++
	g.cancelReasons = append(g.cancelReasons, reason)
	return g.cancelErr
}
