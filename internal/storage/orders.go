package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"insightmarket/payments-service/internal/order"
	"insightmarket/payments-service/pkg/contracts"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// OrderRepository is the pgx implementation of order.Repository. State
// transitions are serialized with a row lock plus a status-guarded update, so
// concurrent finalizations cannot both win.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (correlation_id, buyer_id, buyer_name, project_id, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		o.CorrelationID, o.BuyerID, o.BuyerName, o.ProjectID, o.TotalPrice, o.Status,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return order.ErrCorrelationIDTaken
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, solution_id, title, price, project_name, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			item.OrderID, item.SolutionID, item.Title, item.Price, item.ProjectName, item.Quantity,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *OrderRepository) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	var o order.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, correlation_id, buyer_id, buyer_name, project_id, total_price, receipt_url, status, created_at
		FROM orders
		WHERE id = $1`, id,
	).Scan(&o.ID, &o.CorrelationID, &o.BuyerID, &o.BuyerName, &o.ProjectID,
		&o.TotalPrice, &o.ReceiptURL, &o.Status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.loadItems(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]

	return &o, nil
}

// DeleteOrder removes a pending order; items cascade. The status guard is
// part of the delete itself so a concurrent finalization cannot slip a
// terminal order into the delete.
func (r *OrderRepository) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM orders
		WHERE id = $1 AND status = $2`,
		id, order.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var status order.Status
	err = r.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrOrderNotFound
		}
		return fmt.Errorf("check order status: %w", err)
	}
	return fmt.Errorf("%w: status %s", order.ErrOrderNotPending, status)
}

func (r *OrderRepository) CompleteOrder(ctx context.Context, id int64, receiptURL string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	o, err := lockOrder(ctx, tx, id)
	if err != nil {
		return err
	}
	if o.Status != order.StatusPending {
		return order.ErrAlreadyFinalized
	}

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, receipt_url = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, order.StatusCompleted, receiptURL, order.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("complete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrAlreadyFinalized
	}

	// Idempotent: re-flagging an already-purchased solution is a no-op.
	_, err = tx.Exec(ctx, `
		UPDATE solutions
		SET purchased = TRUE
		WHERE id IN (SELECT solution_id FROM order_items WHERE order_id = $1)`,
		id,
	)
	if err != nil {
		return fmt.Errorf("flag solutions purchased: %w", err)
	}

	event := contracts.OrderCompletedEvent{
		EventID:       uuid.New().String(),
		OrderID:       o.ID,
		CorrelationID: o.CorrelationID,
		BuyerID:       o.BuyerID,
		TotalPrice:    o.TotalPrice,
		ReceiptURL:    receiptURL,
		CompletedAt:   time.Now().UTC(),
	}
	if err := insertOutbox(ctx, tx, event.EventID, contracts.OrderCompletedType, event); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *OrderRepository) FailOrder(ctx context.Context, id int64, reason string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	o, err := lockOrder(ctx, tx, id)
	if err != nil {
		return err
	}
	if o.Status != order.StatusPending {
		return order.ErrAlreadyFinalized
	}

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		id, order.StatusFailed, order.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("fail order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrAlreadyFinalized
	}

	event := contracts.OrderFailedEvent{
		EventID:       uuid.New().String(),
		OrderID:       o.ID,
		CorrelationID: o.CorrelationID,
		BuyerID:       o.BuyerID,
		TotalPrice:    o.TotalPrice,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
	}
	if err := insertOutbox(ctx, tx, event.EventID, contracts.OrderFailedType, event); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *OrderRepository) ListCompleted(ctx context.Context, p order.ListParams) ([]order.Order, int64, error) {
	where := `buyer_id = $1 AND status = $2`
	args := []any{p.BuyerID, order.StatusCompleted}

	if p.From != nil {
		args = append(args, *p.From)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if p.To != nil {
		args = append(args, *p.To)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, p.Limit, p.Offset)
	query := fmt.Sprintf(`
		SELECT id, correlation_id, buyer_id, buyer_name, project_id, total_price, receipt_url, status, created_at
		FROM orders
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		where, orderClause(p.Sort), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	var ids []int64
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(&o.ID, &o.CorrelationID, &o.BuyerID, &o.BuyerName, &o.ProjectID,
			&o.TotalPrice, &o.ReceiptURL, &o.Status, &o.CreatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		items, err := r.loadItems(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range result {
			result[i].Items = items[result[i].ID]
		}
	}

	return result, total, nil
}

func (r *OrderRepository) SolutionPurchasedByBuyer(ctx context.Context, solutionID, buyerID int64) (bool, error) {
	var purchased bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE oi.solution_id = $1 AND o.buyer_id = $2 AND o.status = $3
		)`,
		solutionID, buyerID, order.StatusCompleted,
	).Scan(&purchased)
	if err != nil {
		return false, fmt.Errorf("check solution purchase: %w", err)
	}
	return purchased, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []int64) (map[int64][]order.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, solution_id, title, price, project_name, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`, orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64][]order.Item)
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.SolutionID, &it.Title, &it.Price, &it.ProjectName, &it.Quantity); err != nil {
			return nil, err
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	return items, rows.Err()
}

func lockOrder(ctx context.Context, tx pgx.Tx, id int64) (*order.Order, error) {
	var o order.Order
	err := tx.QueryRow(ctx, `
		SELECT id, correlation_id, buyer_id, total_price, status
		FROM orders
		WHERE id = $1
		FOR UPDATE`, id,
	).Scan(&o.ID, &o.CorrelationID, &o.BuyerID, &o.TotalPrice, &o.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return &o, nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, eventID, eventType string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO order_outbox (event_id, event_type, payload)
		VALUES ($1, $2, $3)`,
		eventID, eventType, payload,
	)
	if err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}

func orderClause(s order.Sort) string {
	switch s {
	case order.SortPriceHigh:
		return "total_price DESC, id DESC"
	case order.SortPriceLow:
		return "total_price ASC, id ASC"
	default:
		return "id DESC"
	}
}
