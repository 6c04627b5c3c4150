package repository

import (
	"context"
	"fmt"

	"github.com/lyzr/coffeeroster/cmd/roster/models"
	"github.com/lyzr/coffeeroster/common/db"
)

// PostgresReorderHistoryRepository handles database operations for reorder_history
type PostgresReorderHistoryRepository struct {
	q db.Querier
}

// NewReorderHistoryRepository creates a history repository on q
func NewReorderHistoryRepository(q db.Querier) *PostgresReorderHistoryRepository {
	return &PostgresReorderHistoryRepository{q: q}
}

// Append inserts an entry and fills in its id
func (r *PostgresReorderHistoryRepository) Append(ctx context.Context, entry *models.ReorderHistoryEntry) error {
	query := `
		INSERT INTO reorder_history (timestamp, old_order, new_order)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query, entry.Timestamp, entry.OldOrder, entry.NewOrder).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append reorder history: %w", err)
	}
	return nil
}

// PruneKeepLatest deletes entries with an id below the keep-th newest id.
// With fewer than keep entries the subquery yields NULL and nothing is deleted.
func (r *PostgresReorderHistoryRepository) PruneKeepLatest(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be positive, got %d", keep)
	}

	query := `
		DELETE FROM reorder_history
		WHERE id < (
			SELECT id FROM reorder_history
			ORDER BY id DESC
			OFFSET $1 LIMIT 1
		)
	`

	result, err := r.q.Exec(ctx, query, keep-1)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reorder history: %w", err)
	}
	return result.RowsAffected(), nil
}

// List returns entries newest first
func (r *PostgresReorderHistoryRepository) List(ctx context.Context) ([]*models.ReorderHistoryEntry, error) {
	query := `
		SELECT id, timestamp, old_order, new_order
		FROM reorder_history
		ORDER BY id DESC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reorder history: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.ReorderHistoryEntry, 0)
	for rows.Next() {
		e := &models.ReorderHistoryEntry{}
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.OldOrder, &e.NewOrder); err != nil {
			return nil, fmt.Errorf("failed to scan reorder history: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reorder history: %w", err)
	}
	return entries, nil
}
