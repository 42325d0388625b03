// Package catalog exposes the solutions table as the authoritative
// price/title source for order preparation.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"insightmarket/payments-service/internal/order"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// FindByID resolves a purchasable solution. Soft-deleted rows are treated as
// absent so a retired solution can no longer be ordered.
func (s *Store) FindByID(ctx context.Context, id int64) (order.Solution, error) {
	var sol order.Solution
	err := s.pool.QueryRow(ctx, `
		SELECT id, project_id, project_name, title, price, purchased
		FROM solutions
		WHERE id = $1 AND NOT deleted`, id,
	).Scan(&sol.ID, &sol.ProjectID, &sol.ProjectName, &sol.Title, &sol.Price, &sol.Purchased)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Solution{}, order.ErrSolutionNotFound
		}
		return order.Solution{}, fmt.Errorf("find solution: %w", err)
	}
	return sol, nil
}
